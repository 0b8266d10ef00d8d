package dom

import (
	"strings"
)

// Element represents an element in the DOM tree.
type Element Node

// Attribute is a single name/value pair on an element. Attributes keep their
// source order.
type Attribute struct {
	Name  string
	Value string
}

// elementData holds data specific to Element nodes.
type elementData struct {
	localName  string
	tagName    string
	attributes []Attribute

	// Layout geometry, supplied by whoever measures the page.
	geometry *ElementGeometry

	// Form control state that is not reflected in attributes.
	form *controlState
}

// AsNode returns the underlying Node.
func (e *Element) AsNode() *Node {
	return (*Node)(e)
}

// TagName returns the tag name of the element (uppercase for HTML elements).
func (e *Element) TagName() string {
	return e.elementData.tagName
}

// LocalName returns the local name of the element.
func (e *Element) LocalName() string {
	return e.elementData.localName
}

// OwnerDocument returns the document the element belongs to.
func (e *Element) OwnerDocument() *Document {
	return e.ownerDoc
}

// Id returns the value of the id attribute.
func (e *Element) Id() string {
	return e.GetAttribute("id")
}

// SetId sets the id attribute.
func (e *Element) SetId(id string) {
	e.SetAttribute("id", id)
}

// ClassName returns the value of the class attribute.
func (e *Element) ClassName() string {
	return e.GetAttribute("class")
}

// ClassList returns a live view over the class attribute.
func (e *Element) ClassList() *DOMTokenList {
	return &DOMTokenList{element: e, attrName: "class"}
}

// Attributes returns a copy of the element's attributes in source order.
func (e *Element) Attributes() []Attribute {
	return append([]Attribute(nil), e.elementData.attributes...)
}

// Attr returns the value of the named attribute and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	name = strings.ToLower(name)
	for _, a := range e.elementData.attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// GetAttribute returns the value of the named attribute, or "" if absent.
func (e *Element) GetAttribute(name string) string {
	v, _ := e.Attr(name)
	return v
}

// HasAttribute returns true if the element has the named attribute.
func (e *Element) HasAttribute(name string) bool {
	_, ok := e.Attr(name)
	return ok
}

// SetAttribute sets the value of the named attribute, appending it if new.
func (e *Element) SetAttribute(name, value string) {
	name = strings.ToLower(name)
	attrs := e.elementData.attributes
	for i := range attrs {
		if attrs[i].Name == name {
			attrs[i].Value = value
			return
		}
	}
	e.elementData.attributes = append(attrs, Attribute{Name: name, Value: value})
}

// RemoveAttribute removes the named attribute if present.
func (e *Element) RemoveAttribute(name string) {
	name = strings.ToLower(name)
	attrs := e.elementData.attributes
	for i := range attrs {
		if attrs[i].Name == name {
			e.elementData.attributes = append(attrs[:i], attrs[i+1:]...)
			return
		}
	}
}

// ParentElement returns the parent element.
func (e *Element) ParentElement() *Element {
	return e.AsNode().ParentElement()
}

// Children returns the element children of this element.
func (e *Element) Children() []*Element {
	return elementChildren(e.AsNode())
}

func elementChildren(n *Node) []*Element {
	var out []*Element
	for c := n.firstChild; c != nil; c = c.nextSibling {
		if c.nodeType == ElementNode {
			out = append(out, (*Element)(c))
		}
	}
	return out
}

// FirstElementChild returns the first child that is an element.
func (e *Element) FirstElementChild() *Element {
	for c := e.firstChild; c != nil; c = c.nextSibling {
		if c.nodeType == ElementNode {
			return (*Element)(c)
		}
	}
	return nil
}

// NextElementSibling returns the next sibling that is an element.
func (e *Element) NextElementSibling() *Element {
	for s := e.nextSibling; s != nil; s = s.nextSibling {
		if s.nodeType == ElementNode {
			return (*Element)(s)
		}
	}
	return nil
}

// PreviousElementSibling returns the previous sibling that is an element.
func (e *Element) PreviousElementSibling() *Element {
	for s := e.prevSibling; s != nil; s = s.prevSibling {
		if s.nodeType == ElementNode {
			return (*Element)(s)
		}
	}
	return nil
}

// Descendants returns every element below e in document order.
func (e *Element) Descendants() []*Element {
	return descendants(e.AsNode())
}

func descendants(n *Node) []*Element {
	var out []*Element
	walkElements(n, func(el *Element) bool {
		out = append(out, el)
		return true
	})
	return out
}

// walkElements visits the element descendants of n in document order until
// fn returns false.
func walkElements(n *Node, fn func(*Element) bool) bool {
	for c := n.firstChild; c != nil; c = c.nextSibling {
		if c.nodeType != ElementNode {
			continue
		}
		if !fn((*Element)(c)) {
			return false
		}
		if !walkElements(c, fn) {
			return false
		}
	}
	return true
}

// GetElementsByTagName returns descendant elements with the given local name.
// "*" matches every element.
func (e *Element) GetElementsByTagName(name string) []*Element {
	return elementsByTagName(e.AsNode(), name)
}

func elementsByTagName(n *Node, name string) []*Element {
	name = strings.ToLower(name)
	var out []*Element
	walkElements(n, func(el *Element) bool {
		if name == "*" || el.LocalName() == name {
			out = append(out, el)
		}
		return true
	})
	return out
}

// Closest returns the nearest inclusive ancestor with the given local name.
func (e *Element) Closest(localName string) *Element {
	for cur := e; cur != nil; cur = cur.ParentElement() {
		if cur.LocalName() == localName {
			return cur
		}
	}
	return nil
}

// AppendChild appends a node to this element.
func (e *Element) AppendChild(child *Node) *Node {
	return e.AsNode().AppendChild(child)
}

// Remove detaches the element from its parent.
func (e *Element) Remove() {
	e.AsNode().Remove()
}

// TextContent returns the text content of the element.
func (e *Element) TextContent() string {
	return e.AsNode().TextContent()
}

// SetTextContent sets the text content of the element.
func (e *Element) SetTextContent(text string) {
	e.AsNode().SetTextContent(text)
}

// InnerHTML returns the HTML serialization of the element's children.
func (e *Element) InnerHTML() string {
	var sb strings.Builder
	for child := e.firstChild; child != nil; child = child.nextSibling {
		serializeNode(child, &sb)
	}
	return sb.String()
}

// SetInnerHTML replaces the element's children with the parsed fragment.
func (e *Element) SetInnerHTML(htmlContent string) error {
	nodes, err := parseHTMLFragment(htmlContent, e)
	if err != nil {
		return err
	}
	e.AsNode().removeAllChildren()
	for _, node := range nodes {
		e.AsNode().insertBeforeInternal(node, nil)
	}
	return nil
}

// OuterHTML returns the HTML serialization of the element and its children.
func (e *Element) OuterHTML() string {
	var sb strings.Builder
	serializeNode(e.AsNode(), &sb)
	return sb.String()
}
