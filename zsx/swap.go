package zsx

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/roryl/zsx/dom"
)

// SwapDetail is the detail of the zsx.zx-swap.after event.
type SwapDetail struct {
	OldElement *dom.Element
	NewElement *dom.Element
	Selector   string
}

// DetailMap exposes the detail to scripts as {oldElement, newElement, selector}.
func (d SwapDetail) DetailMap() map[string]interface{} {
	return map[string]interface{}{
		"oldElement": d.OldElement,
		"newElement": d.NewElement,
		"selector":   d.Selector,
	}
}

type keptElement struct {
	el         *dom.Element
	scrolled   bool
	scrollTop  float64
	scrollLeft float64
}

// SwapAll resolves and swaps every selector of set, in order, against the
// response document.
func (e *Engine) SwapAll(ctx context.Context, response *dom.Document, set string, trig Trigger) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.swapAll(ctx, response, set, trig)
}

func (e *Engine) swapAll(ctx context.Context, response *dom.Document, set string, trig Trigger) error {
	for _, selector := range SplitSelectors(set) {
		pairs, err := e.Resolve(e.doc.AsNode(), response, selector)
		if err != nil {
			return err
		}
		for _, p := range pairs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := e.swap(ctx, p.Live, p.Response, p.Selector, trig); err != nil {
				return err
			}
		}
	}
	return nil
}

// Swap replaces the content and attributes of old with those of replacement
// and returns the swapped element, found again through selector.
func (e *Engine) Swap(ctx context.Context, old, replacement *dom.Element, selector string, trig Trigger) (*dom.Element, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.swap(ctx, old, replacement, selector, trig)
}

func (e *Engine) swap(ctx context.Context, old, replacement *dom.Element, selector string, trig Trigger) (*dom.Element, error) {
	if err := validateSelector("swap", selector); err != nil {
		return nil, err
	}
	log := e.logger.With(zap.String("selector", selector))

	kept := e.detachKept(old)

	guard := trig.JumpGuard == JumpGuardOn
	var spacer *dom.Element
	if guard {
		spacer = e.growSpacer(old.ScrollHeight())
	}

	if err := old.SetInnerHTML(replacement.InnerHTML()); err != nil {
		return nil, &Error{Kind: ResponseError, Op: "swap", Selector: selector, Err: err}
	}

	final := e.findFinal(selector)
	if final == nil {
		return nil, &Error{Kind: ResponseError, Op: "swap", Selector: selector, Err: ErrFinalElementMissing}
	}

	syncAttributes(final, replacement)

	for _, child := range final.Children() {
		e.attach(child)
	}

	e.runScripts(ctx, final)
	e.restoreKept(kept)

	if guard {
		e.shrinkSpacer(spacer)
	}

	e.doc.DispatchEvent(dom.NewEvent(EventSwapAfter, dom.EventInit{
		Detail: SwapDetail{OldElement: old, NewElement: final, Selector: selector},
	}))
	log.Debug("swapped", zap.Int("kept", len(kept)), zap.Bool("jumpGuard", guard))
	return final, nil
}

// findFinal looks the swapped element up again. Id selectors go straight to
// the id index so that ids which are not valid CSS still work.
func (e *Engine) findFinal(selector string) *dom.Element {
	if strings.HasPrefix(selector, "#") {
		if el := e.doc.GetElementById(selector[1:]); el != nil {
			return el
		}
	}
	el, err := e.compiler.Query(e.doc.AsNode(), selector)
	if err != nil {
		return nil
	}
	return el
}

func syncAttributes(dst, src *dom.Element) {
	want := src.Attributes()
	names := make(map[string]struct{}, len(want))
	for _, a := range want {
		names[a.Name] = struct{}{}
		dst.SetAttribute(a.Name, a.Value)
	}
	for _, a := range dst.Attributes() {
		if _, ok := names[a.Name]; !ok {
			dst.RemoveAttribute(a.Name)
		}
	}
}

// detachKept removes the keep elements under root and returns them. Keep
// elements nested in another keep element travel with their ancestor.
func (e *Engine) detachKept(root *dom.Element) []keptElement {
	all, err := e.compiler.QueryAll(root.AsNode(), "["+AttrKeep+"]")
	if err != nil || len(all) == 0 {
		return nil
	}

	seen := make(map[*dom.Element]bool, len(all))
	var kept []keptElement
	for _, el := range all {
		seen[el] = true
		if hasKeptAncestor(el, root, seen) {
			continue
		}
		k := keptElement{el: el}
		if el.ScrollHeight() > el.ClientHeight() || el.ScrollWidth() > el.ClientWidth() {
			k.scrolled = true
			k.scrollTop = el.ScrollTop()
			k.scrollLeft = el.ScrollLeft()
		}
		el.Remove()
		kept = append(kept, k)
	}
	return kept
}

func hasKeptAncestor(el, root *dom.Element, seen map[*dom.Element]bool) bool {
	for p := el.ParentElement(); p != nil && p != root; p = p.ParentElement() {
		if seen[p] {
			return true
		}
	}
	return false
}

func (e *Engine) restoreKept(kept []keptElement) {
	for _, k := range kept {
		id := k.el.Id()
		if id == "" {
			e.logger.Warn("dropping keep element without id")
			continue
		}
		placeholder := e.doc.GetElementById(id)
		if placeholder == nil || placeholder.ParentElement() == nil {
			e.logger.Warn("dropping keep element without placeholder", zap.String("id", id))
			continue
		}
		placeholder.AsNode().ParentNode().ReplaceChild(k.el.AsNode(), placeholder.AsNode())
		if k.scrolled {
			k.el.SetScrollTop(k.scrollTop)
			k.el.SetScrollLeft(k.scrollLeft)
		}
	}
}

func (e *Engine) runScripts(ctx context.Context, root *dom.Element) {
	scripts := root.GetElementsByTagName("script")
	if len(scripts) == 0 {
		return
	}
	if e.scripts == nil {
		e.logger.Debug("no script runner, skipping scripts", zap.Int("count", len(scripts)))
		return
	}

	head := e.doc.EnsureHead()
	for _, script := range scripts {
		if script.GetAttribute(AttrScriptSkip) == "true" {
			continue
		}
		if t, ok := script.Attr("type"); ok && t != "text/javascript" {
			continue
		}

		fresh := e.doc.CreateElement("script")
		if id := script.Id(); id != "" {
			fresh.SetId(id)
		}
		if src := script.GetAttribute("src"); src != "" {
			fresh.SetAttribute("src", src)
		} else {
			fresh.SetTextContent(script.TextContent())
		}

		head.AppendChild(fresh.AsNode())
		if err := e.scripts.RunScript(ctx, fresh); err != nil {
			e.logger.Warn("script failed", zap.String("script", scriptName(script)), zap.Error(err))
		}
		fresh.Remove()
	}
}

func scriptName(script *dom.Element) string {
	if src := script.GetAttribute("src"); src != "" {
		return src
	}
	if id := script.Id(); id != "" {
		return "#" + id
	}
	return "inline"
}

// growSpacer moves the spacer to the end of the body and adds height to its
// minimum height, creating it on first use.
func (e *Engine) growSpacer(height float64) *dom.Element {
	e.doc.EnsureHead()
	body := e.doc.EnsureBody()

	spacer := e.doc.GetElementById(SpacerID)
	if spacer == nil {
		spacer = e.doc.CreateElement("div")
		spacer.SetId(SpacerID)
		body.AppendChild(spacer.AsNode())
	}
	current := spacer.Style().PixelValue("min-height")
	spacer.Style().SetProperty("min-height", fmt.Sprintf("%dpx", current+int(height)))
	return spacer
}

// shrinkSpacer sizes the spacer to fill the rest of the viewport, or to
// nothing when it already starts below the fold.
func (e *Engine) shrinkSpacer(spacer *dom.Element) {
	inner := e.viewport.InnerHeight()
	top := spacer.GetBoundingClientRect().Top()
	if top >= inner {
		spacer.Style().SetProperty("min-height", "0px")
		return
	}
	spacer.Style().SetProperty("min-height", strconv.FormatFloat(inner-top, 'f', -1, 64)+"px")
}
