package dom

import (
	"strings"
)

// Node represents a node in the DOM tree. Document, Element, Text and Comment
// are all views over the same struct, distinguished by nodeType.
type Node struct {
	nodeType   NodeType
	nodeName   string
	ownerDoc   *Document
	parentNode *Node

	// First/last child and sibling pointers for efficient traversal
	firstChild  *Node
	lastChild   *Node
	prevSibling *Node
	nextSibling *Node

	// Type-specific data (only one will be non-nil based on nodeType)
	elementData  *elementData
	textData     *string
	documentData *documentData

	// Listeners are created lazily on first registration.
	events *eventTarget
}

// newNode creates a new node with the given type and name.
func newNode(nodeType NodeType, nodeName string, ownerDoc *Document) *Node {
	return &Node{
		nodeType: nodeType,
		nodeName: nodeName,
		ownerDoc: ownerDoc,
	}
}

// NodeType returns the type of the node.
func (n *Node) NodeType() NodeType {
	return n.nodeType
}

// NodeName returns the name of the node.
// For elements, this is the tag name in uppercase.
// For text nodes, this is "#text".
func (n *Node) NodeName() string {
	return n.nodeName
}

// NodeValue returns the character data of text and comment nodes, and the
// empty string for everything else.
func (n *Node) NodeValue() string {
	if n.textData != nil {
		return *n.textData
	}
	return ""
}

// SetNodeValue sets the character data of text and comment nodes.
// It is a no-op for other node kinds.
func (n *Node) SetNodeValue(value string) {
	if n.nodeType == TextNode || n.nodeType == CommentNode {
		n.textData = &value
	}
}

// OwnerDocument returns the document this node belongs to.
// A Document returns nil, as in the DOM.
func (n *Node) OwnerDocument() *Document {
	if n.nodeType == DocumentNode {
		return nil
	}
	return n.ownerDoc
}

// ParentNode returns the parent of this node.
func (n *Node) ParentNode() *Node {
	return n.parentNode
}

// ParentElement returns the parent element, or nil if the parent is not an element.
func (n *Node) ParentElement() *Element {
	if n.parentNode != nil && n.parentNode.nodeType == ElementNode {
		return (*Element)(n.parentNode)
	}
	return nil
}

// ChildNodes returns a snapshot of the children of this node.
func (n *Node) ChildNodes() []*Node {
	var out []*Node
	for c := n.firstChild; c != nil; c = c.nextSibling {
		out = append(out, c)
	}
	return out
}

// FirstChild returns the first child of this node.
func (n *Node) FirstChild() *Node {
	return n.firstChild
}

// LastChild returns the last child of this node.
func (n *Node) LastChild() *Node {
	return n.lastChild
}

// PreviousSibling returns the previous sibling of this node.
func (n *Node) PreviousSibling() *Node {
	return n.prevSibling
}

// NextSibling returns the next sibling of this node.
func (n *Node) NextSibling() *Node {
	return n.nextSibling
}

// HasChildNodes returns true if this node has any children.
func (n *Node) HasChildNodes() bool {
	return n.firstChild != nil
}

// IsConnected returns true if the node is attached to a document.
func (n *Node) IsConnected() bool {
	return n.GetRootNode().nodeType == DocumentNode
}

// GetRootNode returns the topmost ancestor of this node.
func (n *Node) GetRootNode() *Node {
	root := n
	for root.parentNode != nil {
		root = root.parentNode
	}
	return root
}

// Contains returns true if other is an inclusive descendant of this node.
func (n *Node) Contains(other *Node) bool {
	for ; other != nil; other = other.parentNode {
		if other == n {
			return true
		}
	}
	return false
}

// TextContent returns the concatenated text of all descendant text nodes.
func (n *Node) TextContent() string {
	switch n.nodeType {
	case TextNode, CommentNode:
		return n.NodeValue()
	case DocumentNode, DocumentTypeNode:
		return ""
	}
	var sb strings.Builder
	n.collectTextContent(&sb)
	return sb.String()
}

func (n *Node) collectTextContent(sb *strings.Builder) {
	for child := n.firstChild; child != nil; child = child.nextSibling {
		switch child.nodeType {
		case TextNode:
			sb.WriteString(child.NodeValue())
		case ElementNode, DocumentFragmentNode:
			child.collectTextContent(sb)
		}
	}
}

// SetTextContent replaces all children with a single text node.
func (n *Node) SetTextContent(value string) {
	switch n.nodeType {
	case TextNode, CommentNode:
		n.SetNodeValue(value)
		return
	case DocumentNode, DocumentTypeNode:
		return
	}
	n.removeAllChildren()
	if value != "" {
		doc := n.ownerDoc
		n.insertBeforeInternal(doc.CreateTextNode(value), nil)
	}
}

// AppendChild adds a node to the end of the children list.
// For error-returning version, use AppendChildWithError.
func (n *Node) AppendChild(child *Node) *Node {
	result, _ := n.AppendChildWithError(child)
	return result
}

// AppendChildWithError adds a node to the end of the children list.
func (n *Node) AppendChildWithError(child *Node) (*Node, error) {
	return n.InsertBeforeWithError(child, nil)
}

// InsertBefore inserts newChild before refChild. A nil refChild appends.
func (n *Node) InsertBefore(newChild, refChild *Node) *Node {
	result, _ := n.InsertBeforeWithError(newChild, refChild)
	return result
}

// InsertBeforeWithError inserts newChild before refChild, validating the
// hierarchy first. Inserting a DocumentFragment moves its children.
func (n *Node) InsertBeforeWithError(newChild, refChild *Node) (*Node, error) {
	if err := n.validatePreInsertion(newChild, refChild); err != nil {
		return nil, err
	}
	if refChild == newChild {
		refChild = newChild.nextSibling
	}
	if newChild.nodeType == DocumentFragmentNode {
		for _, c := range newChild.ChildNodes() {
			newChild.removeChildInternal(c)
			n.insertBeforeInternal(c, refChild)
		}
		return newChild, nil
	}
	if newChild.parentNode != nil {
		newChild.parentNode.removeChildInternal(newChild)
	}
	n.insertBeforeInternal(newChild, refChild)
	return newChild, nil
}

func (n *Node) validatePreInsertion(node, child *Node) error {
	if node == nil {
		return ErrHierarchyRequest("node is nil")
	}
	switch n.nodeType {
	case DocumentNode, DocumentFragmentNode, ElementNode:
	default:
		return ErrHierarchyRequest("parent cannot have children")
	}
	if node.Contains(n) {
		return ErrHierarchyRequest("the new child is an ancestor of the parent")
	}
	if child != nil && child.parentNode != n {
		return ErrNotFound("the reference child is not a child of this node")
	}
	if node.nodeType == DocumentNode {
		return ErrHierarchyRequest("a document cannot be inserted")
	}
	if n.nodeType == DocumentNode && node.nodeType == TextNode {
		return ErrHierarchyRequest("text cannot be a child of a document")
	}
	return nil
}

// RemoveChild removes a child node.
func (n *Node) RemoveChild(child *Node) *Node {
	result, _ := n.RemoveChildWithError(child)
	return result
}

// RemoveChildWithError removes a child node, failing if it is not a child.
func (n *Node) RemoveChildWithError(child *Node) (*Node, error) {
	if child == nil || child.parentNode != n {
		return nil, ErrNotFound("the node to be removed is not a child of this node")
	}
	n.removeChildInternal(child)
	return child, nil
}

// Remove detaches the node from its parent, if any.
func (n *Node) Remove() {
	if n.parentNode != nil {
		n.parentNode.removeChildInternal(n)
	}
}

// ReplaceChild replaces oldChild with newChild and returns oldChild.
func (n *Node) ReplaceChild(newChild, oldChild *Node) *Node {
	result, _ := n.ReplaceChildWithError(newChild, oldChild)
	return result
}

// ReplaceChildWithError replaces oldChild with newChild.
func (n *Node) ReplaceChildWithError(newChild, oldChild *Node) (*Node, error) {
	if oldChild == nil || oldChild.parentNode != n {
		return nil, ErrNotFound("the node to be replaced is not a child of this node")
	}
	if newChild == oldChild {
		return oldChild, nil
	}
	ref := oldChild.nextSibling
	if ref == newChild {
		ref = newChild.nextSibling
	}
	if err := n.validatePreInsertion(newChild, nil); err != nil {
		return nil, err
	}
	n.removeChildInternal(oldChild)
	if _, err := n.InsertBeforeWithError(newChild, ref); err != nil {
		return nil, err
	}
	return oldChild, nil
}

func (n *Node) removeAllChildren() {
	for n.firstChild != nil {
		n.removeChildInternal(n.firstChild)
	}
}

// removeChildInternal unlinks a child without checking that it is one.
func (n *Node) removeChildInternal(child *Node) {
	if child.prevSibling != nil {
		child.prevSibling.nextSibling = child.nextSibling
	} else {
		n.firstChild = child.nextSibling
	}

	if child.nextSibling != nil {
		child.nextSibling.prevSibling = child.prevSibling
	} else {
		n.lastChild = child.prevSibling
	}

	child.parentNode = nil
	child.prevSibling = nil
	child.nextSibling = nil
}

// insertBeforeInternal inserts a node before a reference child without validation.
// If refChild is nil, appends to the end.
func (n *Node) insertBeforeInternal(newChild, refChild *Node) {
	newChild.parentNode = n

	owner := n.ownerDoc
	if n.nodeType == DocumentNode {
		owner = (*Document)(n)
	}
	if owner != nil && newChild.ownerDoc != owner {
		adoptNode(newChild, owner)
	}

	if refChild == nil {
		newChild.prevSibling = n.lastChild
		newChild.nextSibling = nil
		if n.lastChild != nil {
			n.lastChild.nextSibling = newChild
		} else {
			n.firstChild = newChild
		}
		n.lastChild = newChild
		return
	}

	newChild.prevSibling = refChild.prevSibling
	newChild.nextSibling = refChild
	if refChild.prevSibling != nil {
		refChild.prevSibling.nextSibling = newChild
	} else {
		n.firstChild = newChild
	}
	refChild.prevSibling = newChild
}

// adoptNode moves a subtree into doc.
func adoptNode(node *Node, doc *Document) {
	node.ownerDoc = doc
	for c := node.firstChild; c != nil; c = c.nextSibling {
		adoptNode(c, doc)
	}
}

// CloneNode returns a copy of this node. Listeners are not copied.
func (n *Node) CloneNode(deep bool) *Node {
	clone := newNode(n.nodeType, n.nodeName, n.ownerDoc)
	switch n.nodeType {
	case ElementNode:
		src := n.elementData
		clone.elementData = &elementData{
			localName:  src.localName,
			tagName:    src.tagName,
			attributes: append([]Attribute(nil), src.attributes...),
		}
		if src.geometry != nil {
			g := *src.geometry
			clone.elementData.geometry = &g
		}
		clone.elementData.form = src.form.clone()
	case TextNode, CommentNode:
		v := n.NodeValue()
		clone.textData = &v
	case DocumentNode:
		clone.documentData = &documentData{url: n.documentData.url}
		clone.ownerDoc = (*Document)(clone)
	}
	if deep {
		for c := n.firstChild; c != nil; c = c.nextSibling {
			clone.insertBeforeInternal(c.CloneNode(true), nil)
		}
	}
	return clone
}
