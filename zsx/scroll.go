package zsx

import (
	"net/url"
	"strings"

	"github.com/roryl/zsx/dom"
)

// ScrollAction is what a ScrollPlan does to the viewport.
type ScrollAction int

const (
	ScrollNone ScrollAction = iota
	// ScrollIntoView brings Target into view.
	ScrollIntoView
	// ScrollTop moves to the top of the page.
	ScrollTop
)

// ScrollPlan is the scroll decided for one navigation. Behavior is "auto" for
// explicit directives and "instant" for the snap after a path change; neither
// animates.
type ScrollPlan struct {
	Action   ScrollAction
	Target   *dom.Element
	Behavior string
}

// PlanScroll decides how to scroll after a navigation from priorURL to
// currentURL. A zx-scroll-to directive wins over the URL fragment. Without
// either, a change of path snaps to the top.
func (e *Engine) PlanScroll(trig Trigger, priorURL, currentURL string) (ScrollPlan, error) {
	directive := trig.ScrollTo.Value
	if directive == "" {
		if u, err := url.Parse(currentURL); err == nil && u.Fragment != "" {
			directive = "#" + u.Fragment
		}
	}

	if directive == "" {
		if pathChanged(priorURL, currentURL) {
			return ScrollPlan{Action: ScrollTop, Behavior: "instant"}, nil
		}
		return ScrollPlan{}, nil
	}

	switch {
	case directive == "true":
		if !trig.Swap.Present || strings.TrimSpace(trig.Swap.Value) == "" {
			return ScrollPlan{}, configError("scroll", "", ErrMissingSwapSelector)
		}
		target, err := e.compiler.Query(e.doc.AsNode(), trig.Swap.Value)
		if err != nil {
			return ScrollPlan{}, configError("scroll", trig.Swap.Value, err)
		}
		return intoView(target), nil
	case directive == "top":
		return ScrollPlan{Action: ScrollTop, Behavior: "auto"}, nil
	case strings.ContainsAny(directive, "#."):
		target, err := e.compiler.Query(e.doc.AsNode(), directive)
		if err != nil {
			// Fragments are ids, which need not be valid selectors.
			if !strings.HasPrefix(directive, "#") {
				return ScrollPlan{}, configError("scroll", directive, err)
			}
			target = e.doc.GetElementById(directive[1:])
		}
		return intoView(target), nil
	}
	return ScrollPlan{}, nil
}

func intoView(target *dom.Element) ScrollPlan {
	if target == nil {
		return ScrollPlan{}
	}
	return ScrollPlan{Action: ScrollIntoView, Target: target, Behavior: "auto"}
}

func pathChanged(prior, current string) bool {
	p, err := url.Parse(prior)
	if err != nil {
		return true
	}
	c, err := url.Parse(current)
	if err != nil {
		return true
	}
	return p.Path != c.Path
}

// ApplyScroll carries out plan on v.
func ApplyScroll(v Viewport, plan ScrollPlan) {
	switch plan.Action {
	case ScrollIntoView:
		v.ScrollIntoView(plan.Target)
	case ScrollTop:
		v.ScrollTo(0)
	}
}
