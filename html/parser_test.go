package html

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_BasicDocument(t *testing.T) {
	input := `<!DOCTYPE html>
<html>
<head><title>Test</title></head>
<body><p id="greeting">Hello, World!</p></body>
</html>`

	doc, err := Parse(input, "http://example.test/home")
	require.NoError(t, err)

	assert.Equal(t, "http://example.test/home", doc.URL())
	assert.Equal(t, "text/html", doc.ContentType())
	assert.Equal(t, "Test", doc.Title())
	require.NotNil(t, doc.Head())
	require.NotNil(t, doc.Body())

	p := doc.GetElementById("greeting")
	require.NotNil(t, p)
	assert.Equal(t, "Hello, World!", p.TextContent())
}

func TestParse_MalformedHTML(t *testing.T) {
	// The HTML5 tree builder repairs unclosed tags.
	doc, err := Parse(`<p>unclosed paragraph<div id="d">nested div</p></div>`, "")
	require.NoError(t, err)

	div := doc.GetElementById("d")
	require.NotNil(t, div)
	assert.Equal(t, "body", div.ParentElement().LocalName())
}

func TestParseResponse_TranscodesHeaderCharset(t *testing.T) {
	body := []byte("<p id=\"p\">caf\xe9</p>")

	doc, err := ParseResponse(bytes.NewReader(body), "text/html; charset=iso-8859-1", "http://example.test/")
	require.NoError(t, err)
	assert.Equal(t, "café", doc.GetElementById("p").TextContent())
}

func TestParseResponse_MetaCharsetPrescan(t *testing.T) {
	body := []byte("<meta charset=\"windows-1252\"><p id=\"p\">na\xefve</p>")

	doc, err := ParseResponse(bytes.NewReader(body), "text/html", "")
	require.NoError(t, err)
	assert.Equal(t, "naïve", doc.GetElementById("p").TextContent())
}

func TestParseResponse_EmptyContentType(t *testing.T) {
	doc, err := ParseResponse(bytes.NewReader([]byte(`<div id="x">ok</div>`)), "", "")
	require.NoError(t, err)
	assert.Equal(t, "text/html", doc.ContentType())
	assert.Equal(t, "ok", doc.GetElementById("x").TextContent())
}

func TestIsHTML(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"", true},
		{"text/html", true},
		{"text/html; charset=utf-8", true},
		{"TEXT/HTML", true},
		{"application/xhtml+xml", true},
		{"application/json", false},
		{"text/plain; charset=utf-8", false},
		{";;;", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsHTML(tt.contentType), "IsHTML(%q)", tt.contentType)
	}
}

func TestCharset(t *testing.T) {
	assert.Equal(t, "utf-8", Charset([]byte(`<meta charset="utf-8">`), "text/html"))
	assert.Equal(t, "utf-8", Charset(nil, "text/html; charset=utf-8"))
}
