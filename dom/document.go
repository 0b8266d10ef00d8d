package dom

import (
	"strings"
)

// Document represents the entire HTML document.
type Document Node

// documentData holds data specific to Document nodes.
type documentData struct {
	url         string
	contentType string
}

// NewDocument creates a new empty HTML Document at about:blank.
func NewDocument() *Document {
	node := newNode(DocumentNode, "#document", nil)
	node.documentData = &documentData{
		url:         "about:blank",
		contentType: "text/html",
	}
	doc := (*Document)(node)
	node.ownerDoc = doc
	return doc
}

// AsNode returns the underlying Node.
func (d *Document) AsNode() *Node {
	return (*Node)(d)
}

// URL returns the document's address.
func (d *Document) URL() string {
	return d.documentData.url
}

// SetURL sets the document's address. Relative references in the document
// resolve against it.
func (d *Document) SetURL(url string) {
	d.documentData.url = url
}

// ContentType returns the document's MIME type.
func (d *Document) ContentType() string {
	return d.documentData.contentType
}

// SetContentType records the MIME type the document was served with.
func (d *Document) SetContentType(ct string) {
	d.documentData.contentType = ct
}

// DocumentElement returns the root element of the document.
func (d *Document) DocumentElement() *Element {
	for child := d.firstChild; child != nil; child = child.nextSibling {
		if child.nodeType == ElementNode {
			return (*Element)(child)
		}
	}
	return nil
}

// Head returns the <head> element.
func (d *Document) Head() *Element {
	return d.rootChild("head")
}

// Body returns the <body> element.
func (d *Document) Body() *Element {
	return d.rootChild("body")
}

func (d *Document) rootChild(localName string) *Element {
	docEl := d.DocumentElement()
	if docEl == nil {
		return nil
	}
	for _, el := range docEl.Children() {
		if el.LocalName() == localName {
			return el
		}
	}
	return nil
}

// EnsureHead returns the <head> element, creating the root and head
// elements when the document lacks them.
func (d *Document) EnsureHead() *Element {
	if head := d.Head(); head != nil {
		return head
	}
	root := d.ensureDocumentElement()
	head := d.CreateElement("head")
	root.AsNode().InsertBefore(head.AsNode(), root.AsNode().firstChild)
	return head
}

// EnsureBody returns the <body> element, creating the root and body
// elements when the document lacks them.
func (d *Document) EnsureBody() *Element {
	if body := d.Body(); body != nil {
		return body
	}
	root := d.ensureDocumentElement()
	body := d.CreateElement("body")
	root.AppendChild(body.AsNode())
	return body
}

func (d *Document) ensureDocumentElement() *Element {
	if root := d.DocumentElement(); root != nil {
		return root
	}
	root := d.CreateElement("html")
	d.AsNode().AppendChild(root.AsNode())
	return root
}

// CreateElement creates a new HTML element with the given tag name.
func (d *Document) CreateElement(tagName string) *Element {
	node := newNode(ElementNode, strings.ToUpper(tagName), d)
	node.elementData = &elementData{
		localName: strings.ToLower(tagName),
		tagName:   strings.ToUpper(tagName),
	}
	return (*Element)(node)
}

// CreateTextNode creates a new Text node.
func (d *Document) CreateTextNode(data string) *Node {
	node := newNode(TextNode, "#text", d)
	node.textData = &data
	return node
}

// CreateComment creates a new Comment node.
func (d *Document) CreateComment(data string) *Node {
	node := newNode(CommentNode, "#comment", d)
	node.textData = &data
	return node
}

// CreateDocumentFragment creates an empty DocumentFragment.
func (d *Document) CreateDocumentFragment() *Node {
	return newNode(DocumentFragmentNode, "#document-fragment", d)
}

// GetElementById returns the first element in tree order with the given id.
func (d *Document) GetElementById(id string) *Element {
	return getElementByID(d.AsNode(), id)
}

func getElementByID(root *Node, id string) *Element {
	if id == "" {
		return nil
	}
	var found *Element
	walkElements(root, func(el *Element) bool {
		if el.Id() == id {
			found = el
			return false
		}
		return true
	})
	return found
}

// GetElementById returns the first descendant with the given id.
func (e *Element) GetElementById(id string) *Element {
	return getElementByID(e.AsNode(), id)
}

// GetElementsByTagName returns every element with the given local name.
func (d *Document) GetElementsByTagName(name string) []*Element {
	return elementsByTagName(d.AsNode(), name)
}

// Descendants returns every element of the document in tree order.
func (d *Document) Descendants() []*Element {
	return descendants(d.AsNode())
}

// Title returns the text of the first <title> element.
func (d *Document) Title() string {
	titles := d.GetElementsByTagName("title")
	if len(titles) == 0 {
		return ""
	}
	return strings.Join(strings.Fields(titles[0].TextContent()), " ")
}

// OuterHTML serializes the whole document.
func (d *Document) OuterHTML() string {
	var sb strings.Builder
	for c := d.firstChild; c != nil; c = c.nextSibling {
		serializeNode(c, &sb)
	}
	return sb.String()
}
