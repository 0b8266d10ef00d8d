package zsx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roryl/zsx/dom"
)

func TestPlanScroll(t *testing.T) {
	e, doc := newTestEngine(t, `<body>
		<div id="main"><p class="lead">lead</p></div>
		<div id="9lives">odd id</div>
	</body>`)

	withScroll := func(v string, swap string) Trigger {
		trig := Trigger{Kind: KindLink, Method: "get"}
		if v != "" {
			trig.ScrollTo = Attr{Value: v, Present: true}
		}
		if swap != "" {
			trig.Swap = Attr{Value: swap, Present: true}
		}
		return trig
	}

	tests := []struct {
		name       string
		trig       Trigger
		prior, cur string
		action     ScrollAction
		target     string
		behavior   string
	}{
		{"same path does nothing", withScroll("", "#main"), "/a?x=1", "/a?x=2", ScrollNone, "", ""},
		{"path change snaps to top", withScroll("", "#main"), "/a", "/b", ScrollTop, "", "instant"},
		{"top", withScroll("top", "#main"), "/a", "/a", ScrollTop, "", "auto"},
		{"true scrolls to the swap target", withScroll("true", "#main"), "/a", "/b", ScrollIntoView, "main", "auto"},
		{"selector", withScroll("#main", "#main"), "/a", "/a", ScrollIntoView, "main", "auto"},
		{"fragment", withScroll("", "#main"), "/a", "/b#main", ScrollIntoView, "main", "auto"},
		{"directive wins over fragment", withScroll("top", "#main"), "/a", "/b#main", ScrollTop, "", "auto"},
		{"fragment that is not a selector", withScroll("", "#main"), "/a", "/a#9lives", ScrollIntoView, "9lives", "auto"},
		{"no match", withScroll("#missing", "#main"), "/a", "/b", ScrollNone, "", ""},
		{"unknown directive", withScroll("somewhere", "#main"), "/a", "/b", ScrollNone, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := e.PlanScroll(tt.trig, testOrigin+tt.prior, testOrigin+tt.cur)
			require.NoError(t, err)
			assert.Equal(t, tt.action, plan.Action)
			assert.Equal(t, tt.behavior, plan.Behavior)
			if tt.target == "" {
				assert.Nil(t, plan.Target)
				return
			}
			assert.Same(t, doc.GetElementById(tt.target), plan.Target)
		})
	}
}

func TestPlanScrollErrors(t *testing.T) {
	e, _ := newTestEngine(t, `<body><div id="main"></div></body>`)

	_, err := e.PlanScroll(Trigger{ScrollTo: Attr{Value: "true", Present: true}}, testOrigin+"/", testOrigin+"/")
	assert.ErrorIs(t, err, ErrMissingSwapSelector)
	assert.True(t, IsKind(err, ConfigurationError))

	_, err = e.PlanScroll(Trigger{ScrollTo: Attr{Value: ".a >", Present: true}}, testOrigin+"/", testOrigin+"/")
	assert.True(t, IsKind(err, ConfigurationError))
}

func TestApplyScroll(t *testing.T) {
	_, doc := newTestEngine(t, `<body><div id="target"></div></body>`)
	target := doc.GetElementById("target")
	target.SetGeometry(&dom.ElementGeometry{Y: 1200, Height: 40})

	w := NewWindow(1024, 768)
	ApplyScroll(w, ScrollPlan{Action: ScrollIntoView, Target: target, Behavior: "auto"})
	assert.Equal(t, 1200.0, w.ScrollY())
	assert.Same(t, target, w.Target())

	ApplyScroll(w, ScrollPlan{})
	assert.Equal(t, 1200.0, w.ScrollY())

	ApplyScroll(w, ScrollPlan{Action: ScrollTop, Behavior: "instant"})
	assert.Zero(t, w.ScrollY())
	assert.Nil(t, w.Target())
}
