package dom

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseHTML parses a complete HTML document.
func ParseHTML(htmlContent string) (*Document, error) {
	return ParseHTMLReader(strings.NewReader(htmlContent))
}

// ParseHTMLReader parses a complete UTF-8 HTML document from r.
func ParseHTMLReader(r io.Reader) (*Document, error) {
	doc := NewDocument()

	netDoc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	convertHTMLTree(netDoc, doc.AsNode(), doc)
	return doc, nil
}

// convertHTMLTree converts the children of src into children of parent.
func convertHTMLTree(src *html.Node, parent *Node, doc *Document) {
	for c := src.FirstChild; c != nil; c = c.NextSibling {
		convertHTMLNode(c, parent, doc)
	}
}

// convertHTMLNode converts one html.Node (and its subtree) and appends it to parent.
func convertHTMLNode(c *html.Node, parent *Node, doc *Document) {
	var node *Node

	switch c.Type {
	case html.TextNode:
		node = doc.CreateTextNode(c.Data)
	case html.ElementNode:
		el := doc.CreateElement(c.Data)
		for _, attr := range c.Attr {
			el.SetAttribute(attr.Key, attr.Val)
		}
		node = el.AsNode()
	case html.CommentNode:
		node = doc.CreateComment(c.Data)
	case html.DoctypeNode:
		node = newNode(DocumentTypeNode, c.Data, doc)
	case html.DocumentNode:
		convertHTMLTree(c, parent, doc)
		return
	default:
		return
	}

	parent.insertBeforeInternal(node, nil)
	if c.Type == html.ElementNode {
		convertHTMLTree(c, node, doc)
	}
}

// parseHTMLFragment parses an HTML fragment in the context of an element.
func parseHTMLFragment(htmlContent string, context *Element) ([]*Node, error) {
	tagName := context.LocalName()
	contextNode := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Lookup([]byte(tagName)),
		Data:     tagName,
	}

	nodes, err := html.ParseFragment(strings.NewReader(htmlContent), contextNode)
	if err != nil {
		return nil, err
	}

	doc := context.ownerDoc
	result := make([]*Node, 0, len(nodes))
	holder := doc.CreateDocumentFragment()
	for _, n := range nodes {
		convertHTMLNode(n, holder, doc)
	}
	for c := holder.firstChild; c != nil; {
		next := c.nextSibling
		holder.removeChildInternal(c)
		result = append(result, c)
		c = next
	}
	return result, nil
}

// serializeNode serializes a node to HTML.
func serializeNode(n *Node, sb *strings.Builder) {
	switch n.nodeType {
	case TextNode:
		if parent := n.ParentElement(); parent != nil && isRawTextElement(parent.LocalName()) {
			sb.WriteString(n.NodeValue())
			return
		}
		sb.WriteString(html.EscapeString(n.NodeValue()))
	case CommentNode:
		sb.WriteString("<!--")
		sb.WriteString(n.NodeValue())
		sb.WriteString("-->")
	case DocumentTypeNode:
		sb.WriteString("<!DOCTYPE ")
		sb.WriteString(n.nodeName)
		sb.WriteString(">")
	case ElementNode:
		el := (*Element)(n)
		tagName := el.LocalName()
		sb.WriteString("<")
		sb.WriteString(tagName)
		for _, attr := range el.elementData.attributes {
			sb.WriteString(" ")
			sb.WriteString(attr.Name)
			sb.WriteString("=\"")
			sb.WriteString(html.EscapeString(attr.Value))
			sb.WriteString("\"")
		}
		sb.WriteString(">")
		if isVoidElement(tagName) {
			return
		}
		for child := n.firstChild; child != nil; child = child.nextSibling {
			serializeNode(child, sb)
		}
		sb.WriteString("</")
		sb.WriteString(tagName)
		sb.WriteString(">")
	case DocumentFragmentNode, DocumentNode:
		for child := n.firstChild; child != nil; child = child.nextSibling {
			serializeNode(child, sb)
		}
	}
}

// isVoidElement returns true if the element is a void element.
func isVoidElement(tagName string) bool {
	switch tagName {
	case "area", "base", "br", "col", "embed", "hr", "img", "input",
		"link", "meta", "param", "source", "track", "wbr":
		return true
	}
	return false
}

func isRawTextElement(tagName string) bool {
	switch tagName {
	case "script", "style", "xmp", "iframe", "noembed", "noframes", "plaintext":
		return true
	}
	return false
}
