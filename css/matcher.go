package css

import (
	"strconv"
	"strings"

	"github.com/roryl/zsx/dom"
)

// MatchElement tests if a selector matches an element.
func (s *CSSSelector) MatchElement(el *dom.Element) bool {
	for _, cs := range s.ComplexSelectors {
		if cs.MatchElement(el) {
			return true
		}
	}
	return false
}

// MatchElement tests if a complex selector matches an element.
func (cs *ComplexSelector) MatchElement(el *dom.Element) bool {
	if len(cs.Compounds) == 0 {
		return false
	}
	return cs.matchFrom(len(cs.Compounds)-1, el)
}

// matchFrom matches compound i against el and the compounds before it
// against el's relatives, backtracking through ancestors and siblings.
func (cs *ComplexSelector) matchFrom(i int, el *dom.Element) bool {
	if !cs.Compounds[i].MatchElement(el) {
		return false
	}
	if i == 0 {
		return true
	}

	switch cs.Compounds[i-1].Combinator {
	case CombinatorDescendant:
		for ancestor := el.ParentElement(); ancestor != nil; ancestor = ancestor.ParentElement() {
			if cs.matchFrom(i-1, ancestor) {
				return true
			}
		}
	case CombinatorChild:
		if parent := el.ParentElement(); parent != nil {
			return cs.matchFrom(i-1, parent)
		}
	case CombinatorNextSibling:
		if prev := el.PreviousElementSibling(); prev != nil {
			return cs.matchFrom(i-1, prev)
		}
	case CombinatorSubsequentSibling:
		for prev := el.PreviousElementSibling(); prev != nil; prev = prev.PreviousElementSibling() {
			if cs.matchFrom(i-1, prev) {
				return true
			}
		}
	}
	return false
}

// MatchElement tests if a compound selector matches an element.
func (c *CompoundSelector) MatchElement(el *dom.Element) bool {
	if c.TypeSelector != nil && c.TypeSelector.Name != "*" && el.LocalName() != c.TypeSelector.Name {
		return false
	}

	for _, id := range c.IDSelectors {
		if el.Id() != id {
			return false
		}
	}

	for _, class := range c.ClassSelectors {
		if !el.ClassList().Contains(class) {
			return false
		}
	}

	for _, attr := range c.AttributeMatchers {
		if !matchAttributeSelector(attr, el) {
			return false
		}
	}

	for _, pc := range c.PseudoClasses {
		if !matchPseudoClass(pc, el) {
			return false
		}
	}

	return true
}

func matchAttributeSelector(attr *AttributeMatcher, el *dom.Element) bool {
	attrValue, ok := el.Attr(attr.Name)
	if !ok {
		return false
	}
	if attr.Operator == AttrExists {
		return true
	}

	matchValue := attr.Value
	if attr.CaseInsensitive {
		attrValue = strings.ToLower(attrValue)
		matchValue = strings.ToLower(matchValue)
	}

	switch attr.Operator {
	case AttrEquals:
		return attrValue == matchValue
	case AttrIncludes:
		for _, word := range strings.Fields(attrValue) {
			if word == matchValue {
				return true
			}
		}
		return false
	case AttrDashMatch:
		return attrValue == matchValue || strings.HasPrefix(attrValue, matchValue+"-")
	case AttrPrefix:
		return matchValue != "" && strings.HasPrefix(attrValue, matchValue)
	case AttrSuffix:
		return matchValue != "" && strings.HasSuffix(attrValue, matchValue)
	case AttrSubstring:
		return matchValue != "" && strings.Contains(attrValue, matchValue)
	}

	return false
}

func matchPseudoClass(pc *PseudoClassSelector, el *dom.Element) bool {
	switch pc.Name {
	case "root":
		parent := el.AsNode().ParentNode()
		return parent != nil && parent.NodeType() == dom.DocumentNode

	case "empty":
		for c := el.AsNode().FirstChild(); c != nil; c = c.NextSibling() {
			if c.NodeType() == dom.ElementNode || (c.NodeType() == dom.TextNode && c.NodeValue() != "") {
				return false
			}
		}
		return true

	case "first-child":
		return el.PreviousElementSibling() == nil

	case "last-child":
		return el.NextElementSibling() == nil

	case "only-child":
		return el.PreviousElementSibling() == nil && el.NextElementSibling() == nil

	case "first-of-type":
		return matchNthChild("1", el, false, true)

	case "last-of-type":
		return matchNthChild("1", el, true, true)

	case "nth-child":
		return matchNthChild(pc.Argument, el, false, false)

	case "nth-last-child":
		return matchNthChild(pc.Argument, el, true, false)

	case "nth-of-type":
		return matchNthChild(pc.Argument, el, false, true)

	case "nth-last-of-type":
		return matchNthChild(pc.Argument, el, true, true)

	case "not":
		return pc.Selector != nil && !pc.Selector.MatchElement(el)

	case "is", "where", "matches", "any":
		return pc.Selector != nil && pc.Selector.MatchElement(el)

	case "has":
		return pc.Selector != nil && hasMatchingDescendant(el, pc.Selector)

	case "enabled":
		return el.IsFormControl() && !el.Disabled()

	case "disabled":
		return el.IsFormControl() && el.Disabled()

	case "checked":
		switch el.LocalName() {
		case "input":
			t := el.Type()
			return (t == "checkbox" || t == "radio") && el.Checked()
		case "option":
			return el.Selected()
		}
		return false

	case "required":
		return el.HasAttribute("required")

	case "optional":
		return el.IsFormControl() && !el.HasAttribute("required")

	case "link", "any-link":
		return (el.LocalName() == "a" || el.LocalName() == "area") && el.HasAttribute("href")

	default:
		// Dynamic states (hover, focus, target) never match a headless tree.
		return false
	}
}

// matchNthChild implements :nth-child, :nth-last-child, :nth-of-type, :nth-last-of-type
func matchNthChild(arg string, el *dom.Element, fromLast bool, ofType bool) bool {
	a, b := parseAnPlusB(arg)

	pos := 1
	tagName := el.LocalName()
	if fromLast {
		for next := el.NextElementSibling(); next != nil; next = next.NextElementSibling() {
			if !ofType || next.LocalName() == tagName {
				pos++
			}
		}
	} else {
		for prev := el.PreviousElementSibling(); prev != nil; prev = prev.PreviousElementSibling() {
			if !ofType || prev.LocalName() == tagName {
				pos++
			}
		}
	}

	if a == 0 {
		return pos == b
	}

	// pos = a*n + b where n >= 0
	diff := pos - b
	if a > 0 {
		return diff >= 0 && diff%a == 0
	}
	return diff <= 0 && diff%a == 0
}

// parseAnPlusB parses an An+B expression.
func parseAnPlusB(s string) (int, int) {
	s = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))

	switch s {
	case "odd":
		return 2, 1
	case "even":
		return 2, 0
	}

	if n, err := strconv.Atoi(s); err == nil {
		return 0, n
	}

	nIdx := strings.Index(s, "n")
	if nIdx == -1 {
		return 0, 0
	}

	var a int
	switch aStr := s[:nIdx]; aStr {
	case "", "+":
		a = 1
	case "-":
		a = -1
	default:
		a, _ = strconv.Atoi(aStr)
	}

	var b int
	if bStr := s[nIdx+1:]; bStr != "" {
		b, _ = strconv.Atoi(bStr)
	}

	return a, b
}

func hasMatchingDescendant(el *dom.Element, sel *CSSSelector) bool {
	for _, d := range el.Descendants() {
		if sel.MatchElement(d) {
			return true
		}
	}
	return false
}
