package js

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roryl/zsx/dom"
	"github.com/roryl/zsx/network"
	"github.com/roryl/zsx/storage"
)

const bindingPage = `<html><head><title>Bindings</title></head><body>
<div id="main" class="a b" style="min-height: 10px">
  <p class="item">one</p>
  <p class="item">two</p>
  <form id="f"><input name="q" value="x"><button id="go" type="submit">Go</button></form>
</div>
</body></html>`

func newTestExecutor(t *testing.T, src string, opts ...ExecutorOption) (*ScriptExecutor, *dom.Document) {
	t.Helper()
	doc, err := dom.ParseHTML(src)
	require.NoError(t, err)
	doc.SetURL("http://example.com/page?x=1#frag")
	return NewScriptExecutor(doc, opts...), doc
}

func TestDocumentQueries(t *testing.T) {
	se, _ := newTestExecutor(t, bindingPage)

	tests := []struct {
		code string
		want interface{}
	}{
		{"document.title", "Bindings"},
		{"document.getElementById('main').tagName", "DIV"},
		{"document.querySelectorAll('p.item').length", int64(2)},
		{"document.querySelector('#main > p').textContent", "one"},
		{"document.getElementById('missing') === null", true},
		{"document.getElementById('main') === document.querySelector('.a')", true},
		{"document.querySelector('p').closest('div').id", "main"},
		{"document.querySelector('p').matches('.item')", true},
		{"document.body.children.length", int64(1)},
		{"document.getElementById('main').style.minHeight", "10px"},
		{"location.pathname + location.search + location.hash", "/page?x=1#frag"},
		{"location.origin", "http://example.com"},
	}
	for _, tt := range tests {
		got, err := se.Eval(tt.code)
		if err != nil {
			t.Errorf("%s: %v", tt.code, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s = %#v, want %#v", tt.code, got, tt.want)
		}
	}
}

func TestInvalidSelectorThrowsSyntaxError(t *testing.T) {
	se, _ := newTestExecutor(t, bindingPage)
	got, err := se.Eval(`
		var name = "";
		try { document.querySelector("div >"); } catch (e) { name = e.name; }
		name
	`)
	require.NoError(t, err)
	assert.Equal(t, "SyntaxError", got)
}

func TestElementMutation(t *testing.T) {
	se, doc := newTestExecutor(t, bindingPage)

	_, err := se.Eval(`
		var main = document.getElementById('main');
		main.classList.add('c');
		main.classList.remove('a');
		main.setAttribute('data-x', '1');
		main.style.minHeight = '25px';
		var span = document.createElement('span');
		span.id = 'added';
		span.textContent = 'hi';
		main.appendChild(span);
		document.querySelector('p').remove();
		document.querySelector('input').value = 'typed';
	`)
	require.NoError(t, err)

	main := doc.GetElementById("main")
	assert.Equal(t, "b c", main.ClassName())
	assert.Equal(t, "1", main.GetAttribute("data-x"))
	assert.Equal(t, 25, main.Style().PixelValue("min-height"))
	require.NotNil(t, doc.GetElementById("added"))
	assert.Equal(t, "hi", doc.GetElementById("added").TextContent())
	assert.Len(t, doc.GetElementsByTagName("p"), 1)
	assert.Equal(t, "typed", doc.GetElementsByTagName("input")[0].Value())
}

func TestEventListenersFromScript(t *testing.T) {
	se, doc := newTestExecutor(t, bindingPage)

	_, err := se.Eval(`
		var log = [];
		function onSwap(e) { log.push(e.type + ':' + e.detail.selector); }
		document.addEventListener('custom', onSwap);
		document.addEventListener('custom', onSwap);
		document.getElementById('f').addEventListener('submit', function(e) {
			e.preventDefault();
			log.push('submit:' + e.submitter.id);
		});
	`)
	require.NoError(t, err)

	// Go-side dispatch reaches script listeners once despite the double add.
	doc.DispatchEvent(dom.NewEvent("custom", dom.EventInit{Detail: detail{"#main"}}))

	// Script-side click runs the listener re-entrantly.
	_, err = se.Eval(`document.getElementById('go').click()`)
	require.NoError(t, err)

	got, err := se.Eval(`
		document.dispatchEvent(new CustomEvent('custom', {detail: {selector: '#js'}}));
		document.removeEventListener('custom', onSwap);
		document.dispatchEvent(new CustomEvent('custom', {detail: {selector: '#gone'}}));
		log.join(',')
	`)
	require.NoError(t, err)
	assert.Equal(t, "custom:#main,submit:go,custom:#js", got)
}

type detail struct{ selector string }

func (d detail) DetailMap() map[string]interface{} {
	return map[string]interface{}{"selector": d.selector}
}

func TestDetailMapperBindsElements(t *testing.T) {
	se, doc := newTestExecutor(t, bindingPage)
	_, err := se.Eval(`
		var seen = null;
		document.addEventListener('swapped', function(e) { seen = e.detail.newElement; });
	`)
	require.NoError(t, err)

	main := doc.GetElementById("main")
	doc.DispatchEvent(dom.NewEvent("swapped", dom.EventInit{Detail: elementDetail{main}}))

	el, err := se.EvalElement("seen")
	require.NoError(t, err)
	assert.Same(t, main, el)
}

type elementDetail struct{ el *dom.Element }

func (d elementDetail) DetailMap() map[string]interface{} {
	return map[string]interface{}{"newElement": d.el}
}

func TestRunScriptInlineAndCurrentScript(t *testing.T) {
	se, doc := newTestExecutor(t, `<body><div id="out"></div><script id="s1">
		document.getElementById('out').textContent = document.currentScript.id;
	</script><script type="text/template">not js</script></body>`)

	errs := se.ExecuteScripts(context.Background())
	assert.Empty(t, errs)
	assert.Equal(t, "s1", doc.GetElementById("out").TextContent())

	got, err := se.Eval("document.currentScript === null")
	require.NoError(t, err)
	assert.Equal(t, true, got)
}

func TestRunScriptErrorIsReturned(t *testing.T) {
	se, doc := newTestExecutor(t, `<body><script id="bad">throw new Error("nope")</script></body>`)
	err := se.RunScript(context.Background(), doc.GetElementById("bad"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inline-script#bad")
	assert.Len(t, se.Runtime().Errors(), 1)
}

func TestRunScriptExternal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/app.js":
			w.Header().Set("Content-Type", "text/javascript")
			w.Write([]byte(`window.loaded = (window.loaded || 0) + 1;`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client, err := network.NewClient()
	require.NoError(t, err)

	doc, err := dom.ParseHTML(`<body><script id="ok" src="/app.js"></script><script id="missing" src="/nope.js"></script></body>`)
	require.NoError(t, err)
	doc.SetURL(server.URL + "/index.html")
	se := NewScriptExecutor(doc, WithLoader(network.NewLoader(client)))

	require.NoError(t, se.RunScript(context.Background(), doc.GetElementById("ok")))
	got, err := se.Eval("loaded")
	require.NoError(t, err)
	assert.EqualValues(t, 1, got)

	err = se.RunScript(context.Background(), doc.GetElementById("missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestRunScriptExternalWithoutLoader(t *testing.T) {
	se, doc := newTestExecutor(t, `<body><script id="s" src="/a.js"></script></body>`)
	assert.Error(t, se.RunScript(context.Background(), doc.GetElementById("s")))
}

func TestStorageBinding(t *testing.T) {
	area := storage.NewArea(storage.NewMemory(), "http://example.com")
	se, _ := newTestExecutor(t, bindingPage, WithStorageArea(area))

	got, err := se.Eval(`
		localStorage.setItem('b', '2');
		localStorage.setItem('a', 1);
		sessionStorage.setItem('s', 'x');
		[localStorage.length, localStorage.key(0), localStorage.getItem('a'),
		 localStorage.getItem('zz') === null, sessionStorage.getItem('s')].join(',')
	`)
	require.NoError(t, err)
	assert.Equal(t, "2,a,1,true,x", got)

	v, ok, err := area.GetItem(context.Background(), "b")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	_, err = se.Eval("localStorage.removeItem('b'); localStorage.clear()")
	require.NoError(t, err)
	keys, err := area.Keys(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestDocumentCookie(t *testing.T) {
	jar, err := network.NewCookieJar()
	require.NoError(t, err)
	cookies, err := NewDocumentCookies(jar, "http://example.com/page")
	require.NoError(t, err)

	se, _ := newTestExecutor(t, bindingPage, WithCookieStore(cookies))
	got, err := se.Eval(`
		document.cookie = "theme=dark";
		document.cookie = "lang=en; Path=/";
		document.cookie
	`)
	require.NoError(t, err)
	assert.Contains(t, got, "theme=dark")
	assert.Contains(t, got, "lang=en")

	cookies.SetCookie("theme=; Max-Age=0")
	assert.Equal(t, "lang=en", cookies.Cookie())

	cookies.SetCookie("")
	assert.Equal(t, "lang=en", cookies.Cookie(), "malformed cookies are ignored")
}
