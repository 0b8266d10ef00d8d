package zsx

import (
	"strings"

	"go.uber.org/zap"

	"github.com/roryl/zsx/dom"
)

// Pair matches a live element with the response element that replaces it.
// Selector is the selector that finds the live element again after the swap.
type Pair struct {
	Live     *dom.Element
	Response *dom.Element
	Selector string
}

// SplitSelectors splits a swap selector set on commas. Items are trimmed but
// empty items are kept so that Resolve can reject them.
func SplitSelectors(set string) []string {
	parts := strings.Split(set, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func validateSelector(op, selector string) error {
	if strings.TrimSpace(selector) == "" {
		return configError(op, selector, ErrEmptySelector)
	}
	if strings.Contains(selector, ",") {
		return configError(op, selector, ErrCompoundSelector)
	}
	return nil
}

// Resolve pairs the live elements matching selector under root with their
// counterparts in response. A selector matching several live elements is
// disambiguated by id; response counterparts that do not exist are skipped.
func (e *Engine) Resolve(root *dom.Node, response *dom.Document, selector string) ([]Pair, error) {
	if err := validateSelector("resolve", selector); err != nil {
		return nil, err
	}

	live, err := e.compiler.QueryAll(root, selector)
	if err != nil {
		return nil, configError("resolve", selector, err)
	}

	switch len(live) {
	case 0:
		return nil, &Error{Kind: ResolutionError, Op: "resolve", Selector: selector, Err: ErrNoMatchingElement}
	case 1:
		repl, _ := e.compiler.Query(response.AsNode(), selector)
		if repl == nil {
			e.logger.Debug("selector has no counterpart in response", zap.String("selector", selector))
			return nil, nil
		}
		return []Pair{{Live: live[0], Response: repl, Selector: selector}}, nil
	}

	for _, el := range live {
		if el.Id() == "" {
			return nil, ambiguousError(selector)
		}
	}

	pairs := make([]Pair, 0, len(live))
	for _, el := range live {
		id := el.Id()
		repl := response.GetElementById(id)
		if repl == nil {
			e.logger.Debug("element has no counterpart in response", zap.String("selector", selector), zap.String("id", id))
			continue
		}
		pairs = append(pairs, Pair{Live: el, Response: repl, Selector: "#" + id})
	}
	return pairs, nil
}
