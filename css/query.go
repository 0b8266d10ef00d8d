package css

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roryl/zsx/dom"
)

// DefaultCacheSize is the number of compiled selectors kept by a Compiler.
const DefaultCacheSize = 512

// Compiler parses selectors and keeps the most recently used ones compiled.
// Swap directives repeat the same handful of selectors on every navigation,
// so nearly every lookup after the first is a cache hit.
type Compiler struct {
	cache *lru.Cache[string, *CSSSelector]
}

// NewCompiler creates a Compiler holding up to size compiled selectors.
func NewCompiler(size int) *Compiler {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *CSSSelector](size)
	if err != nil {
		// lru.New only fails for a non-positive size.
		panic(err)
	}
	return &Compiler{cache: cache}
}

var defaultCompiler = NewCompiler(DefaultCacheSize)

// Compile returns the parsed form of selector, parsing it on a cache miss.
func (c *Compiler) Compile(selector string) (*CSSSelector, error) {
	if sel, ok := c.cache.Get(selector); ok {
		return sel, nil
	}
	sel, err := ParseSelector(selector)
	if err != nil {
		return nil, err
	}
	c.cache.Add(selector, sel)
	return sel, nil
}

// Len returns the number of cached selectors.
func (c *Compiler) Len() int {
	return c.cache.Len()
}

// Query returns the first descendant of root matching selector, or nil.
func (c *Compiler) Query(root *dom.Node, selector string) (*dom.Element, error) {
	sel, err := c.Compile(selector)
	if err != nil {
		return nil, err
	}
	return querySelectorInternal(root, sel), nil
}

// QueryAll returns every descendant of root matching selector in tree order.
func (c *Compiler) QueryAll(root *dom.Node, selector string) ([]*dom.Element, error) {
	sel, err := c.Compile(selector)
	if err != nil {
		return nil, err
	}
	return querySelectorAllInternal(root, sel), nil
}

// Matches reports whether el matches selector.
func (c *Compiler) Matches(el *dom.Element, selector string) (bool, error) {
	sel, err := c.Compile(selector)
	if err != nil {
		return false, err
	}
	return sel.MatchElement(el), nil
}

// Query returns the first descendant of root matching selector using the
// shared compiler.
func Query(root *dom.Node, selector string) (*dom.Element, error) {
	return defaultCompiler.Query(root, selector)
}

// QueryAll returns every descendant of root matching selector using the
// shared compiler.
func QueryAll(root *dom.Node, selector string) ([]*dom.Element, error) {
	return defaultCompiler.QueryAll(root, selector)
}

// Matches reports whether el matches selector using the shared compiler.
func Matches(el *dom.Element, selector string) (bool, error) {
	return defaultCompiler.Matches(el, selector)
}

// QuerySelector returns the first element matching the selector, or nil when
// nothing matches or the selector is invalid.
func QuerySelector(root *dom.Node, selectorStr string) *dom.Element {
	el, _ := Query(root, selectorStr)
	return el
}

// QuerySelectorAll returns all elements matching the selector. An invalid
// selector matches nothing.
func QuerySelectorAll(root *dom.Node, selectorStr string) []*dom.Element {
	els, _ := QueryAll(root, selectorStr)
	return els
}

func querySelectorInternal(node *dom.Node, selector *CSSSelector) *dom.Element {
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		if child.NodeType() != dom.ElementNode {
			continue
		}
		el := (*dom.Element)(child)
		if selector.MatchElement(el) {
			return el
		}
		if result := querySelectorInternal(child, selector); result != nil {
			return result
		}
	}
	return nil
}

func querySelectorAllInternal(node *dom.Node, selector *CSSSelector) []*dom.Element {
	var results []*dom.Element
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		if child.NodeType() != dom.ElementNode {
			continue
		}
		el := (*dom.Element)(child)
		if selector.MatchElement(el) {
			results = append(results, el)
		}
		results = append(results, querySelectorAllInternal(child, selector)...)
	}
	return results
}
