package zsx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roryl/zsx/dom"
	"github.com/roryl/zsx/js"
	"github.com/roryl/zsx/network"
)

// lastWrite behaves like a document whose cookie string is whatever was
// last assigned to it.
type lastWrite struct {
	stored string
	writes []string
}

func (c *lastWrite) Cookie() string { return c.stored }

func (c *lastWrite) SetCookie(raw string) {
	c.stored = raw
	c.writes = append(c.writes, raw)
}

func TestSetCookieValue(t *testing.T) {
	jar := &lastWrite{}

	SetCookieValue(jar, "zsx_test_cookie", "test_value", "")
	got, ok := GetCookieValue(jar, "zsx_test_cookie", "")
	require.True(t, ok)
	assert.Equal(t, "test_value", got)

	SetCookieValue(jar, "zsx_test_cookie", "", "")
	assert.Equal(t, "zsx_test_cookie=; Max-Age=0", jar.stored)

	SetCookieValue(jar, "zsx_test_cookie", "test_value", "prefix.")
	assert.Equal(t, "prefix.zsx_test_cookie=test_value", jar.stored)
}

func TestGetCookieValue(t *testing.T) {
	jar := &lastWrite{stored: "zsx_test_cookie=test_value; other_cookie=other_value"}
	got, ok := GetCookieValue(jar, "zsx_test_cookie", "")
	assert.True(t, ok)
	assert.Equal(t, "test_value", got)

	jar.stored = "prefix.zsx_test_cookie=test_value; other_cookie=other_value"
	got, ok = GetCookieValue(jar, "zsx_test_cookie", "prefix.")
	assert.True(t, ok)
	assert.Equal(t, "test_value", got)

	_, ok = GetCookieValue(jar, "missing", "")
	assert.False(t, ok)
}

func TestCookieSetOnClick(t *testing.T) {
	jar := &lastWrite{}
	e, doc := newTestEngine(t, `<body>
		<a id="link1" href="" zx-cookie-set='{"testCookie1":"value1","gone":null}'>Set Cookie 1</a>
		<a id="link2" href="" zx-cookie-set='{"testCookie2":"value2"}'>Set Cookie 2</a>
		<a id="bad" href="" zx-cookie-set='["x"]'>Bad</a>
	</body>`, WithCookies(jar), WithCookiePrefix("app."))
	e.Attach(doc.DocumentElement())

	doc.GetElementById("link1").DispatchEvent(dom.NewEvent("click", dom.EventInit{Bubbles: true}))
	assert.Equal(t, []string{"app.testCookie1=value1", "app.gone=; Max-Age=0"}, jar.writes)

	doc.GetElementById("link2").DispatchEvent(dom.NewEvent("click", dom.EventInit{Bubbles: true}))
	assert.Equal(t, "app.testCookie2=value2", jar.stored)

	doc.GetElementById("bad").DispatchEvent(dom.NewEvent("click", dom.EventInit{Bubbles: true}))
	assert.Len(t, jar.writes, 3)

	err := e.ApplyCookieSet(doc.GetElementById("bad"))
	assert.True(t, IsKind(err, ConfigurationError))
}

func TestCookieSetWithDocumentCookies(t *testing.T) {
	j, err := network.NewCookieJar()
	require.NoError(t, err)
	cookies, err := js.NewDocumentCookies(j, testOrigin+"/")
	require.NoError(t, err)

	e, doc := newTestEngine(t, `<body><span id="s" zx-cookie-set='{"theme":"dark","lang":"en"}'></span></body>`,
		WithCookies(cookies))
	require.NoError(t, e.ApplyCookieSet(doc.GetElementById("s")))

	got, ok := GetCookieValue(cookies, "theme", "")
	assert.True(t, ok)
	assert.Equal(t, "dark", got)

	SetCookieValue(cookies, "theme", "", "")
	_, ok = GetCookieValue(cookies, "theme", "")
	assert.False(t, ok)
	got, _ = GetCookieValue(cookies, "lang", "")
	assert.Equal(t, "en", got)
}

func TestParseCookieSetKeepsOrder(t *testing.T) {
	got, err := parseCookieSet(`{"b":"2","a":1,"c":null}`)
	require.NoError(t, err)
	assert.Equal(t, []cookieSetting{{name: "b", value: "2"}, {name: "a", value: "1"}, {name: "c"}}, got)

	_, err = parseCookieSet(`{"a":`)
	assert.Error(t, err)
}
