// Package css parses and matches CSS selectors against the dom tree.
// Tokenization follows CSS Syntax Module Level 3 for the subset of tokens
// that can appear in a selector: https://www.w3.org/TR/css-syntax-3/
package css

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// TokenType represents the type of a CSS token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenFunction
	TokenHash
	TokenString
	TokenDelim
	TokenNumber
	TokenWhitespace
	TokenColon
	TokenComma
	TokenOpenSquare  // [
	TokenCloseSquare // ]
	TokenOpenParen   // (
	TokenCloseParen  // )
	TokenBadString
)

// HashType indicates whether a hash token is an ID or unrestricted.
type HashType int

const (
	HashUnrestricted HashType = iota
	HashID
)

// Token represents a CSS token. Start and End are byte offsets into the
// source, used to recover the raw text of functional arguments.
type Token struct {
	Type     TokenType
	Value    string
	HashType HashType
	Delim    rune
	Start    int
	End      int
}

func (t Token) String() string {
	switch t.Type {
	case TokenEOF:
		return "<EOF>"
	case TokenIdent:
		return fmt.Sprintf("<IDENT %q>", t.Value)
	case TokenFunction:
		return fmt.Sprintf("<FUNCTION %q>", t.Value)
	case TokenHash:
		return fmt.Sprintf("<HASH %q>", t.Value)
	case TokenString:
		return fmt.Sprintf("<STRING %q>", t.Value)
	case TokenDelim:
		return fmt.Sprintf("<DELIM %q>", t.Delim)
	case TokenNumber:
		return fmt.Sprintf("<NUMBER %s>", t.Value)
	case TokenWhitespace:
		return "<WHITESPACE>"
	default:
		return fmt.Sprintf("<%d>", t.Type)
	}
}

// Tokenizer splits selector text into tokens.
type Tokenizer struct {
	input string
	pos   int
}

// NewTokenizer creates a tokenizer over input.
func NewTokenizer(input string) *Tokenizer {
	return &Tokenizer{input: input}
}

// TokenizeAll returns every token up to, but not including, EOF.
func (t *Tokenizer) TokenizeAll() []Token {
	var tokens []Token
	for {
		tok := t.Next()
		if tok.Type == TokenEOF {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

func (t *Tokenizer) peekRune(offset int) rune {
	pos := t.pos
	for i := 0; i < offset; i++ {
		if pos >= len(t.input) {
			return -1
		}
		_, size := utf8.DecodeRuneInString(t.input[pos:])
		pos += size
	}
	if pos >= len(t.input) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(t.input[pos:])
	return r
}

func (t *Tokenizer) advance() rune {
	r, size := utf8.DecodeRuneInString(t.input[t.pos:])
	t.pos += size
	return r
}

// Next returns the next token.
func (t *Tokenizer) Next() Token {
	start := t.pos
	if t.pos >= len(t.input) {
		return Token{Type: TokenEOF, Start: start, End: start}
	}
	tok := t.next()
	tok.Start = start
	tok.End = t.pos
	return tok
}

func (t *Tokenizer) next() Token {
	r := t.peekRune(0)
	switch {
	case isWhitespace(r):
		for isWhitespace(t.peekRune(0)) {
			t.advance()
		}
		return Token{Type: TokenWhitespace}
	case r == '"' || r == '\'':
		t.advance()
		return t.consumeString(r)
	case r == '#':
		t.advance()
		if isNameChar(t.peekRune(0)) || t.validEscape(0) {
			hashType := HashUnrestricted
			if t.startsIdentifier(0) {
				hashType = HashID
			}
			return Token{Type: TokenHash, Value: t.consumeName(), HashType: hashType}
		}
		return Token{Type: TokenDelim, Delim: '#'}
	case r == ',':
		t.advance()
		return Token{Type: TokenComma}
	case r == ':':
		t.advance()
		return Token{Type: TokenColon}
	case r == '[':
		t.advance()
		return Token{Type: TokenOpenSquare}
	case r == ']':
		t.advance()
		return Token{Type: TokenCloseSquare}
	case r == '(':
		t.advance()
		return Token{Type: TokenOpenParen}
	case r == ')':
		t.advance()
		return Token{Type: TokenCloseParen}
	case r >= '0' && r <= '9':
		var sb strings.Builder
		for c := t.peekRune(0); c >= '0' && c <= '9'; c = t.peekRune(0) {
			sb.WriteRune(t.advance())
		}
		return Token{Type: TokenNumber, Value: sb.String()}
	case t.startsIdentifier(0):
		name := t.consumeName()
		if t.peekRune(0) == '(' {
			t.advance()
			return Token{Type: TokenFunction, Value: name}
		}
		return Token{Type: TokenIdent, Value: name}
	}
	t.advance()
	return Token{Type: TokenDelim, Delim: r}
}

func (t *Tokenizer) consumeString(quote rune) Token {
	var sb strings.Builder
	for {
		if t.pos >= len(t.input) {
			return Token{Type: TokenString, Value: sb.String()}
		}
		r := t.advance()
		switch r {
		case quote:
			return Token{Type: TokenString, Value: sb.String()}
		case '\n':
			return Token{Type: TokenBadString}
		case '\\':
			if t.pos >= len(t.input) {
				continue
			}
			if t.peekRune(0) == '\n' {
				t.advance()
				continue
			}
			sb.WriteRune(t.consumeEscape())
		default:
			sb.WriteRune(r)
		}
	}
}

// consumeName consumes an identifier sequence, resolving escapes.
func (t *Tokenizer) consumeName() string {
	var sb strings.Builder
	for t.pos < len(t.input) {
		r := t.peekRune(0)
		switch {
		case isNameChar(r):
			sb.WriteRune(t.advance())
		case t.validEscape(0):
			t.advance()
			sb.WriteRune(t.consumeEscape())
		default:
			return sb.String()
		}
	}
	return sb.String()
}

// consumeEscape consumes the part of an escape after the backslash.
func (t *Tokenizer) consumeEscape() rune {
	if t.pos >= len(t.input) {
		return utf8.RuneError
	}
	if isHexDigit(t.peekRune(0)) {
		var hex strings.Builder
		for i := 0; i < 6 && isHexDigit(t.peekRune(0)); i++ {
			hex.WriteRune(t.advance())
		}
		if isWhitespace(t.peekRune(0)) {
			t.advance()
		}
		v, err := strconv.ParseUint(hex.String(), 16, 32)
		if err != nil || v == 0 || v > utf8.MaxRune || (v >= 0xD800 && v <= 0xDFFF) {
			return utf8.RuneError
		}
		return rune(v)
	}
	return t.advance()
}

func (t *Tokenizer) validEscape(offset int) bool {
	return t.peekRune(offset) == '\\' && t.peekRune(offset+1) != '\n' && t.peekRune(offset+1) != -1
}

func (t *Tokenizer) startsIdentifier(offset int) bool {
	r := t.peekRune(offset)
	switch {
	case r == '-':
		next := t.peekRune(offset + 1)
		return isNameStart(next) || next == '-' || t.validEscape(offset+1)
	case isNameStart(r):
		return true
	case r == '\\':
		return t.validEscape(offset)
	}
	return false
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f'
}

func isNameStart(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || r >= 0x80
}

func isNameChar(r rune) bool {
	return isNameStart(r) || (r >= '0' && r <= '9') || r == '-'
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
