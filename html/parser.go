// Package html decodes fetched HTML responses into dom documents. Bodies are
// transcoded to UTF-8 with golang.org/x/net/html/charset before being handed
// to the golang.org/x/net/html tree builder.
package html

import (
	"fmt"
	"io"
	"mime"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/roryl/zsx/dom"
)

// DefaultContentType is assumed when a response carries no Content-Type.
const DefaultContentType = "text/html; charset=utf-8"

// Parse parses a UTF-8 HTML string into a document with the given URL.
func Parse(htmlContent, baseURL string) (*dom.Document, error) {
	return ParseResponse(strings.NewReader(htmlContent), DefaultContentType, baseURL)
}

// ParseResponse decodes body according to contentType and parses it into a
// document whose URL is baseURL. The charset is taken from the Content-Type
// header, then from a <meta> prescan, falling back to windows-1252 as
// browsers do.
func ParseResponse(body io.Reader, contentType, baseURL string) (*dom.Document, error) {
	if contentType == "" {
		contentType = DefaultContentType
	}

	r, err := charset.NewReader(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", contentType, err)
	}

	doc, err := dom.ParseHTMLReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}

	if baseURL != "" {
		doc.SetURL(baseURL)
	}
	if mediaType := MediaType(contentType); mediaType != "" {
		doc.SetContentType(mediaType)
	}
	return doc, nil
}

// MediaType returns the lower-cased media type of a Content-Type header
// value, or "" when it cannot be parsed.
func MediaType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(mediaType)
}

// IsHTML reports whether contentType names an HTML document. An empty
// header is treated as HTML.
func IsHTML(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	switch MediaType(contentType) {
	case "text/html", "application/xhtml+xml":
		return true
	}
	return false
}

// Charset returns the encoding name that ParseResponse would use for a body
// starting with prefix.
func Charset(prefix []byte, contentType string) string {
	_, name, _ := charset.DetermineEncoding(prefix, contentType)
	return name
}
