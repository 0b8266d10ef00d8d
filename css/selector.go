package css

import (
	"fmt"
	"strings"

	"github.com/roryl/zsx/dom"
)

// CSSSelector represents a parsed CSS selector.
type CSSSelector struct {
	// A selector is a list of complex selectors separated by commas
	ComplexSelectors []*ComplexSelector
}

// ComplexSelector is a chain of compound selectors separated by combinators.
type ComplexSelector struct {
	Compounds []*CompoundSelector
}

// CompoundSelector is a sequence of simple selectors.
type CompoundSelector struct {
	TypeSelector      *TypeSelector
	IDSelectors       []string
	ClassSelectors    []string
	AttributeMatchers []*AttributeMatcher
	PseudoClasses     []*PseudoClassSelector
	Combinator        CombinatorType // Combinator following this compound selector
}

// CombinatorType represents the type of combinator.
type CombinatorType int

const (
	CombinatorNone              CombinatorType = iota
	CombinatorDescendant                       // (whitespace)
	CombinatorChild                            // >
	CombinatorNextSibling                      // +
	CombinatorSubsequentSibling                // ~
)

// TypeSelector represents a type (tag) selector.
type TypeSelector struct {
	Name string // "*" for universal, or tag name
}

// AttributeMatcher represents an attribute selector.
type AttributeMatcher struct {
	Name            string
	Operator        AttributeOperator
	Value           string
	CaseInsensitive bool
}

// AttributeOperator represents the operator in an attribute selector.
type AttributeOperator int

const (
	AttrExists    AttributeOperator = iota // [attr]
	AttrEquals                             // [attr=value]
	AttrIncludes                           // [attr~=value]
	AttrDashMatch                          // [attr|=value]
	AttrPrefix                             // [attr^=value]
	AttrSuffix                             // [attr$=value]
	AttrSubstring                          // [attr*=value]
)

// PseudoClassSelector represents a pseudo-class.
type PseudoClassSelector struct {
	Name     string
	Argument string       // For functional pseudo-classes like :nth-child(2n+1)
	Selector *CSSSelector // For :not(), :is(), :where(), :has()
}

// SelectorParser parses CSS selectors.
type SelectorParser struct {
	input  string
	tokens []Token
	pos    int
}

// ParseSelector parses a CSS selector list. Malformed input is reported as
// a dom SyntaxError.
func ParseSelector(input string) (*CSSSelector, error) {
	p := &SelectorParser{input: input, tokens: NewTokenizer(input).TokenizeAll()}
	sel, err := p.parseSelector()
	if err != nil {
		return nil, dom.ErrSyntax(fmt.Sprintf("'%s' is not a valid selector: %v", input, err))
	}
	return sel, nil
}

func (p *SelectorParser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF, Start: len(p.input), End: len(p.input)}
	}
	return p.tokens[p.pos]
}

func (p *SelectorParser) peek(offset int) Token {
	pos := p.pos + offset
	if pos >= len(p.tokens) || pos < 0 {
		return Token{Type: TokenEOF}
	}
	return p.tokens[pos]
}

func (p *SelectorParser) consume() Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *SelectorParser) skipWhitespace() bool {
	skipped := false
	for p.current().Type == TokenWhitespace {
		p.consume()
		skipped = true
	}
	return skipped
}

func (p *SelectorParser) isDelim(r rune) bool {
	tok := p.current()
	return tok.Type == TokenDelim && tok.Delim == r
}

// parseSelector parses a selector list that must span all tokens.
func (p *SelectorParser) parseSelector() (*CSSSelector, error) {
	selector := &CSSSelector{}

	for {
		p.skipWhitespace()
		complex, err := p.parseComplexSelector()
		if err != nil {
			return nil, err
		}
		selector.ComplexSelectors = append(selector.ComplexSelectors, complex)

		switch tok := p.current(); tok.Type {
		case TokenComma:
			p.consume()
		case TokenEOF:
			return selector, nil
		default:
			return nil, fmt.Errorf("unexpected %s", tok)
		}
	}
}

// parseComplexSelector parses a complex selector.
func (p *SelectorParser) parseComplexSelector() (*ComplexSelector, error) {
	complex := &ComplexSelector{}

	for {
		compound, err := p.parseCompoundSelector()
		if err != nil {
			return nil, err
		}
		if compound == nil {
			return nil, fmt.Errorf("expected a selector, got %s", p.current())
		}
		complex.Compounds = append(complex.Compounds, compound)

		hadWhitespace := p.skipWhitespace()
		tok := p.current()
		switch {
		case tok.Type == TokenDelim && tok.Delim == '>':
			compound.Combinator = CombinatorChild
		case tok.Type == TokenDelim && tok.Delim == '+':
			compound.Combinator = CombinatorNextSibling
		case tok.Type == TokenDelim && tok.Delim == '~':
			compound.Combinator = CombinatorSubsequentSibling
		case tok.Type == TokenEOF, tok.Type == TokenComma, tok.Type == TokenCloseParen:
			return complex, nil
		case hadWhitespace:
			compound.Combinator = CombinatorDescendant
			continue
		default:
			return nil, fmt.Errorf("unexpected %s", tok)
		}
		p.consume()
		p.skipWhitespace()
	}
}

// parseCompoundSelector parses a compound selector, returning nil when the
// current token cannot start one.
func (p *SelectorParser) parseCompoundSelector() (*CompoundSelector, error) {
	compound := &CompoundSelector{}
	hasContent := false

	switch tok := p.current(); {
	case tok.Type == TokenIdent:
		p.consume()
		compound.TypeSelector = &TypeSelector{Name: strings.ToLower(tok.Value)}
		hasContent = true
	case tok.Type == TokenDelim && tok.Delim == '*':
		p.consume()
		compound.TypeSelector = &TypeSelector{Name: "*"}
		hasContent = true
	}

	for {
		tok := p.current()
		switch {
		case tok.Type == TokenHash:
			if tok.HashType != HashID {
				return nil, fmt.Errorf("invalid id selector %q", "#"+tok.Value)
			}
			p.consume()
			compound.IDSelectors = append(compound.IDSelectors, tok.Value)

		case tok.Type == TokenDelim && tok.Delim == '.':
			p.consume()
			if p.current().Type != TokenIdent {
				return nil, fmt.Errorf("expected a class name after '.'")
			}
			compound.ClassSelectors = append(compound.ClassSelectors, p.consume().Value)

		case tok.Type == TokenColon:
			p.consume()
			if p.current().Type == TokenColon {
				return nil, fmt.Errorf("pseudo-elements never match elements")
			}
			pc, err := p.parsePseudoClass()
			if err != nil {
				return nil, err
			}
			compound.PseudoClasses = append(compound.PseudoClasses, pc)

		case tok.Type == TokenOpenSquare:
			attr, err := p.parseAttributeSelector()
			if err != nil {
				return nil, err
			}
			compound.AttributeMatchers = append(compound.AttributeMatchers, attr)

		default:
			if !hasContent {
				return nil, nil
			}
			return compound, nil
		}
		hasContent = true
	}
}

// parseAttributeSelector parses an attribute selector.
func (p *SelectorParser) parseAttributeSelector() (*AttributeMatcher, error) {
	p.consume() // [
	p.skipWhitespace()

	if p.current().Type != TokenIdent {
		return nil, fmt.Errorf("expected an attribute name")
	}
	attr := &AttributeMatcher{Name: strings.ToLower(p.consume().Value)}
	p.skipWhitespace()

	if p.current().Type == TokenCloseSquare {
		p.consume()
		attr.Operator = AttrExists
		return attr, nil
	}

	if p.isDelim('=') {
		p.consume()
		attr.Operator = AttrEquals
	} else {
		tok := p.current()
		ops := map[rune]AttributeOperator{
			'~': AttrIncludes,
			'|': AttrDashMatch,
			'^': AttrPrefix,
			'$': AttrSuffix,
			'*': AttrSubstring,
		}
		op, ok := ops[tok.Delim]
		if tok.Type != TokenDelim || !ok || p.peek(1).Type != TokenDelim || p.peek(1).Delim != '=' {
			return nil, fmt.Errorf("invalid attribute operator %s", tok)
		}
		p.consume()
		p.consume()
		attr.Operator = op
	}
	p.skipWhitespace()

	tok := p.current()
	if tok.Type != TokenString && tok.Type != TokenIdent && tok.Type != TokenNumber {
		return nil, fmt.Errorf("expected an attribute value, got %s", tok)
	}
	attr.Value = p.consume().Value
	p.skipWhitespace()

	if tok := p.current(); tok.Type == TokenIdent && strings.EqualFold(tok.Value, "i") {
		attr.CaseInsensitive = true
		p.consume()
		p.skipWhitespace()
	} else if tok.Type == TokenIdent && strings.EqualFold(tok.Value, "s") {
		p.consume()
		p.skipWhitespace()
	}

	if p.current().Type != TokenCloseSquare {
		return nil, fmt.Errorf("unterminated attribute selector")
	}
	p.consume()
	return attr, nil
}

// parsePseudoClass parses a pseudo-class selector.
func (p *SelectorParser) parsePseudoClass() (*PseudoClassSelector, error) {
	tok := p.consume()
	switch tok.Type {
	case TokenIdent:
		return &PseudoClassSelector{Name: strings.ToLower(tok.Value)}, nil
	case TokenFunction:
	default:
		return nil, fmt.Errorf("expected a pseudo-class name, got %s", tok)
	}

	pc := &PseudoClassSelector{Name: strings.ToLower(tok.Value)}
	switch pc.Name {
	case "not", "is", "where", "matches", "any", "has":
		sub := &CSSSelector{}
		for {
			p.skipWhitespace()
			complex, err := p.parseComplexSelector()
			if err != nil {
				return nil, err
			}
			sub.ComplexSelectors = append(sub.ComplexSelectors, complex)
			if p.current().Type != TokenComma {
				break
			}
			p.consume()
		}
		if p.current().Type != TokenCloseParen {
			return nil, fmt.Errorf("unterminated :%s()", pc.Name)
		}
		p.consume()
		pc.Selector = sub
		return pc, nil
	}

	// Keep the raw argument text, e.g. "2n + 1".
	start := p.current().Start
	depth := 1
	for {
		tok := p.current()
		switch tok.Type {
		case TokenEOF:
			return nil, fmt.Errorf("unterminated :%s()", pc.Name)
		case TokenOpenParen, TokenFunction:
			depth++
		case TokenCloseParen:
			depth--
			if depth == 0 {
				pc.Argument = strings.TrimSpace(p.input[start:tok.Start])
				p.consume()
				return pc, nil
			}
		}
		p.consume()
	}
}
