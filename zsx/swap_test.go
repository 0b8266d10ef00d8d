package zsx

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roryl/zsx/dom"
	"github.com/roryl/zsx/js"
)

var linkTrigger = Trigger{Kind: KindLink, Method: "get", URL: testOrigin + "/foo", Swap: Attr{Value: "#testId", Present: true}}

func TestSplitSelectors(t *testing.T) {
	got := SplitSelectors(" #a, .b ,#c,")
	if diff := cmp.Diff([]string{"#a", ".b", "#c", ""}, got); diff != "" {
		t.Errorf("SplitSelectors mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve(t *testing.T) {
	e, doc := newTestEngine(t, `<body>
		<div id="one" class="single">old</div>
		<div id="test1" class="many">a</div>
		<div id="test2" class="many">b</div>
		<div class="anon"></div><div class="anon"></div>
	</body>`)
	resp := parseDoc(t, `<body>
		<div id="one" class="single">new</div>
		<div id="test1" class="many">A</div>
	</body>`)
	root := doc.AsNode()

	pairs, err := e.Resolve(root, resp, ".single")
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Same(t, doc.GetElementById("one"), pairs[0].Live)
	assert.Equal(t, "new", pairs[0].Response.TextContent())
	assert.Equal(t, ".single", pairs[0].Selector)

	pairs, err = e.Resolve(root, resp, ".many")
	require.NoError(t, err)
	require.Len(t, pairs, 1, "test2 has no counterpart and is skipped")
	assert.Equal(t, "#test1", pairs[0].Selector)

	_, err = e.Resolve(root, resp, ".anon")
	require.Error(t, err)
	assert.True(t, IsKind(err, ResolutionError))
	assert.ErrorIs(t, err, ErrAmbiguousSelector)

	_, err = e.Resolve(root, resp, "#nothing")
	assert.ErrorIs(t, err, ErrNoMatchingElement)

	_, err = e.Resolve(root, resp, "  ")
	assert.ErrorIs(t, err, ErrEmptySelector)
	assert.True(t, IsKind(err, ConfigurationError))

	_, err = e.Resolve(root, resp, "div >")
	assert.True(t, IsKind(err, ConfigurationError))
}

func TestSwapExecutesInlineScripts(t *testing.T) {
	e, doc := newTestEngine(t, `<html><head></head><body><div id="testId"></div></body></html>`)
	resp := parseDoc(t, `<div id="testId"><script>window.executed = (window.executed || 0) + 1;</script></div>`)

	require.NoError(t, e.SwapAll(context.Background(), resp, "#testId", linkTrigger))

	got, err := e.Scripts().(*js.ScriptExecutor).Eval("executed")
	require.NoError(t, err)
	assert.EqualValues(t, 1, got)
	assert.Empty(t, doc.Head().GetElementsByTagName("script"), "clones are removed after running")
	assert.Len(t, doc.GetElementById("testId").GetElementsByTagName("script"), 1)
}

func TestSwapSkipsScripts(t *testing.T) {
	runner := &recordingRunner{}
	e, _ := newTestEngine(t, `<body><div id="testId"></div></body>`, WithScriptRunner(runner))
	resp := parseDoc(t, `<div id="testId">
		<script>one</script>
		<script zx-script-skip="true">skipped</script>
		<script type="text/template">template</script>
		<script type="text/javascript">two</script>
		<script src="/app.js"></script>
	</div>`)

	require.NoError(t, e.SwapAll(context.Background(), resp, "#testId", linkTrigger))
	assert.Equal(t, []string{"one", "two", "src:/app.js"}, runner.ran)
}

func TestSwapMultipleElementsNeedIds(t *testing.T) {
	e, doc := newTestEngine(t, `<body><div id="testContainer"><div class="replaceMe"><div class="replaceMe"></div></div></div></body>`)
	resp := parseDoc(t, `<div class="replaceMe"><div class="replaceMe"></div></div>`)

	err := e.SwapAll(context.Background(), resp, ".replaceMe", linkTrigger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `Multiple elements found with selector ".replaceMe" but no id found to disambiguate them.`)

	var zerr *Error
	require.ErrorAs(t, err, &zerr)
	assert.Equal(t, ".replaceMe", zerr.Selector)
	assert.NotNil(t, doc.GetElementById("testContainer"))
}

func TestSwapClassSelectorWithIds(t *testing.T) {
	e, doc := newTestEngine(t, `<body><div id="testContainer"><div>
		<div id="test1" class="replaceMe1">foo</div>
		<div id="test2" class="replaceMe1">foo</div>
	</div></div></body>`)
	resp := parseDoc(t, `<div>
		<div id="test1" class="replaceMe1">bar</div>
		<div id="test2" class="replaceMe1">bar</div>
	</div>`)

	require.NoError(t, e.SwapAll(context.Background(), resp, ".replaceMe1", linkTrigger))
	assert.Equal(t, "bar", doc.GetElementById("test1").InnerHTML())
	assert.Equal(t, "bar", doc.GetElementById("test2").InnerHTML())
}

func TestSwapSelectorList(t *testing.T) {
	var seen []string
	e, doc := newTestEngine(t, `<body><div id="test1">foo</div><div id="test2">foo</div><div id="test3">foo</div></body>`)
	doc.AddEventListener(EventSwapAfter, dom.Listener{Handle: func(ev *dom.Event) {
		seen = append(seen, ev.Detail.(SwapDetail).Selector)
	}})
	resp := parseDoc(t, `<div id="test1">bar</div><div id="test2">bar</div><div id="test3">bar</div>`)

	require.NoError(t, e.SwapAll(context.Background(), resp, "#test1, #test2", linkTrigger))
	assert.Equal(t, "bar", doc.GetElementById("test1").InnerHTML())
	assert.Equal(t, "bar", doc.GetElementById("test2").InnerHTML())
	assert.Equal(t, "foo", doc.GetElementById("test3").InnerHTML())
	assert.Equal(t, []string{"#test1", "#test2"}, seen)
}

func TestSwapKeep(t *testing.T) {
	e, doc := newTestEngine(t, `<body><div id="testContainer"><div>
		<div id="subContainer">
			<div id="test1">foo</div>
			<div id="test2" zx-keep="true">foo</div>
			<div id="test3" zx-keep="true">gone</div>
			<div zx-keep="true">anonymous</div>
		</div>
	</div></div></body>`)
	kept := doc.GetElementById("test2")
	resp := parseDoc(t, `<div>
		<div id="subContainer">
			<div id="test1">bar</div>
			<div id="test2" zx-keep="true">bar</div>
		</div>
	</div>`)

	require.NoError(t, e.SwapAll(context.Background(), resp, "#subContainer", linkTrigger))
	assert.Equal(t, "bar", doc.GetElementById("test1").InnerHTML())
	assert.Equal(t, "foo", doc.GetElementById("test2").InnerHTML())
	assert.Same(t, kept, doc.GetElementById("test2"))
	assert.Nil(t, doc.GetElementById("test3"), "keep elements without a placeholder are dropped")
	assert.NotContains(t, doc.GetElementById("subContainer").TextContent(), "anonymous")
}

func TestSwapKeepMaintainsScrollPosition(t *testing.T) {
	e, doc := newTestEngine(t, `<body><div id="testContainer">
		<div id="outerContainer">
			<div id="scrollContainer" zx-keep="true" style="height: 100px; overflow-y: scroll;">
				<div style="height: 1000px;"><div id="test1">foo</div><div id="test2">foo</div></div>
			</div>
		</div>
	</div></body>`)
	scroller := doc.GetElementById("scrollContainer")
	scroller.SetGeometry(&dom.ElementGeometry{Height: 100, ClientHeight: 100, ScrollHeight: 1000, ScrollTop: 50})

	resp := parseDoc(t, `<div id="outerContainer">
		<div id="scrollContainer" zx-keep="true" style="height: 100px; overflow-y: scroll;">
			<div style="height: 1000px;"><div id="test1">foo</div><div id="test2">foo</div></div>
		</div>
	</div>`)

	require.NoError(t, e.SwapAll(context.Background(), resp, "#outerContainer", linkTrigger))

	got := doc.GetElementById("testContainer").AsNode()
	el, err := e.compiler.Query(got, "#scrollContainer")
	require.NoError(t, err)
	require.NotNil(t, el)
	assert.Equal(t, 50.0, el.ScrollTop())
}

func TestSwapSyncsAttributes(t *testing.T) {
	e, doc := newTestEngine(t, `<body><div id="box" class="old" data-x="1">x</div></body>`)
	resp := parseDoc(t, `<div id="box" class="new" data-y="2">y</div>`)

	require.NoError(t, e.SwapAll(context.Background(), resp, "#box", linkTrigger))
	box := doc.GetElementById("box")
	want := []dom.Attribute{{Name: "id", Value: "box"}, {Name: "class", Value: "new"}, {Name: "data-y", Value: "2"}}
	if diff := cmp.Diff(want, box.Attributes()); diff != "" {
		t.Errorf("attributes mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "y", box.TextContent())
}

func TestSwapRearmsNewContent(t *testing.T) {
	e, doc := newTestEngine(t, `<body><div id="main"></div></body>`)
	resp := parseDoc(t, `<div id="main">
		<a id="next" href="/next" zx-swap="#main" zx-link-mode="app">next</a>
		<form id="keepme" zx-persist="true"><input name="q"></form>
	</div>`)

	require.NoError(t, e.SwapAll(context.Background(), resp, "#main", linkTrigger))
	next := doc.GetElementById("next")
	assert.Equal(t, "/next", next.GetAttribute(AttrDataHref))
	assert.True(t, next.AsNode().HasEventListener("click", keyLinkClick))
	assert.True(t, doc.GetElementById("keepme").AsNode().HasEventListener("change", keyPersistInput))
}

func TestSwapEmitsAfterEvent(t *testing.T) {
	e, doc := newTestEngine(t, `<body><div id="main">old</div></body>`)
	var detail SwapDetail
	doc.AddEventListener(EventSwapAfter, dom.Listener{Handle: func(ev *dom.Event) {
		detail = ev.Detail.(SwapDetail)
	}})
	old := doc.GetElementById("main")

	final, err := e.Swap(context.Background(), old, parseDoc(t, `<div id="main">new</div>`).GetElementById("main"), "#main", linkTrigger)
	require.NoError(t, err)
	assert.Same(t, old, detail.OldElement)
	assert.Same(t, final, detail.NewElement)
	assert.Equal(t, "#main", detail.Selector)
	assert.Equal(t, map[string]interface{}{"oldElement": old, "newElement": final, "selector": "#main"}, detail.DetailMap())
}

func TestSwapErrors(t *testing.T) {
	e, doc := newTestEngine(t, `<body><div id="main"></div></body>`)
	repl := parseDoc(t, `<div id="main">x</div>`).GetElementById("main")
	ctx := context.Background()

	_, err := e.Swap(ctx, doc.GetElementById("main"), repl, "", linkTrigger)
	assert.ErrorIs(t, err, ErrEmptySelector)

	_, err = e.Swap(ctx, doc.GetElementById("main"), repl, "#main, #other", linkTrigger)
	assert.ErrorIs(t, err, ErrCompoundSelector)
	assert.True(t, IsKind(err, ConfigurationError))

	ghost := doc.CreateElement("div")
	ghost.SetId("ghost")
	_, err = e.Swap(ctx, ghost, repl, "#ghost", linkTrigger)
	assert.ErrorIs(t, err, ErrFinalElementMissing)
	assert.True(t, IsKind(err, ResponseError))
}

func TestSwapJumpGuard(t *testing.T) {
	guarded := linkTrigger
	guarded.JumpGuard = JumpGuardOn

	tests := []struct {
		name       string
		page       string
		trig       Trigger
		spacerTop  float64
		wantSpacer bool
		wantHeight string
	}{
		{"off", `<body><div id="outerContainer"></div></body>`, linkTrigger, 0, false, ""},
		{"creates the spacer", `<div id="outerContainer"></div>`, guarded, 0, true, "768px"},
		{"fills the rest of the viewport", `<body><div id="outerContainer"></div><div id="zeroViewportSpacer" style="min-height: 10px"></div></body>`, guarded, 500, true, "268px"},
		{"collapses below the fold", `<body><div id="outerContainer"></div><div id="zeroViewportSpacer"></div></body>`, guarded, 900, true, "0px"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, doc := newTestEngine(t, tt.page)
			old := doc.GetElementById("outerContainer")
			old.SetGeometry(&dom.ElementGeometry{Height: 300, ScrollHeight: 300, ClientHeight: 300})
			if s := doc.GetElementById(SpacerID); s != nil {
				s.SetGeometry(&dom.ElementGeometry{Y: tt.spacerTop})
			}

			resp := parseDoc(t, `<div id="outerContainer">foo</div>`)
			require.NoError(t, e.SwapAll(context.Background(), resp, "#outerContainer", tt.trig))
			assert.Equal(t, "foo", doc.GetElementById("outerContainer").InnerHTML())

			spacer := doc.GetElementById(SpacerID)
			if !tt.wantSpacer {
				assert.Nil(t, spacer)
				return
			}
			require.NotNil(t, spacer)
			assert.Same(t, spacer.AsNode(), doc.Body().AsNode().LastChild())
			assert.Equal(t, tt.wantHeight, spacer.Style().GetPropertyValue("min-height"))
		})
	}
}

func TestGrowSpacerAccumulates(t *testing.T) {
	e, doc := newTestEngine(t, `<body><div id="zeroViewportSpacer" style="min-height: 10px"></div><p>after</p></body>`)
	existing := doc.GetElementById(SpacerID)

	spacer := e.growSpacer(300)
	assert.Same(t, existing, spacer)
	assert.Equal(t, "310px", spacer.Style().GetPropertyValue("min-height"))

	e.growSpacer(5)
	assert.Equal(t, "315px", spacer.Style().GetPropertyValue("min-height"))

	next := spacer.AsNode().NextSibling()
	require.NotNil(t, next)
	assert.Equal(t, "P", next.NodeName(), "an existing spacer stays where it is")
}

func TestGrowSpacerAppendsOnlyWhenCreated(t *testing.T) {
	e, doc := newTestEngine(t, `<body><p>content</p></body>`)

	spacer := e.growSpacer(100)
	assert.Same(t, spacer.AsNode(), doc.Body().AsNode().LastChild())

	doc.Body().AppendChild(doc.CreateElement("footer").AsNode())
	assert.Same(t, spacer, e.growSpacer(50))
	assert.Equal(t, "FOOTER", doc.Body().AsNode().LastChild().NodeName())
	assert.Equal(t, "150px", spacer.Style().GetPropertyValue("min-height"))
}

func TestSwapJumpGuardFromForm(t *testing.T) {
	tests := []struct {
		name       string
		form       string
		button     string
		submitter  bool
		wantSpacer bool
	}{
		{"form guard", `zx-jump-guard="true"`, "", false, true},
		{"button guard", "", `zx-jump-guard="true"`, true, true},
		{"button overrides form off", `zx-jump-guard="false"`, `zx-jump-guard="true"`, true, true},
		{"button overrides form on", `zx-jump-guard="true"`, `zx-jump-guard="no"`, true, false},
		{"unguarded", "", "", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, doc := newTestEngine(t, `<body>
				<form id="f" action="/home/echo" method="POST" zx-swap="#container" `+tt.form+`>
					<button id="b" type="submit" `+tt.button+`>Form Swap</button>
				</form>
				<div id="container">old</div>
			</body>`)

			var submitter *dom.Element
			if tt.submitter {
				submitter = doc.GetElementById("b")
			}
			trig := Normalize(Form{Form: doc.GetElementById("f"), Submitter: submitter})

			resp := parseDoc(t, `<div id="container">new</div>`)
			require.NoError(t, e.SwapAll(context.Background(), resp, "#container", trig))
			assert.Equal(t, "new", doc.GetElementById("container").TextContent())

			spacer := doc.GetElementById(SpacerID)
			if !tt.wantSpacer {
				assert.Nil(t, spacer)
				return
			}
			require.NotNil(t, spacer)
			assert.Same(t, spacer.AsNode(), doc.Body().AsNode().LastChild())
		})
	}
}
