package zsx

import (
	"sync"

	"github.com/roryl/zsx/dom"
)

// Viewport is the window the page is shown in.
type Viewport interface {
	InnerHeight() float64
	// ScrollTo scrolls the page to the vertical offset top.
	ScrollTo(top float64)
	ScrollIntoView(el *dom.Element)
}

// Window is a Viewport of fixed size that records where it was scrolled.
type Window struct {
	mu          sync.Mutex
	innerWidth  float64
	innerHeight float64
	scrollY     float64
	target      *dom.Element
}

// NewWindow returns a window of the given inner size scrolled to the top.
func NewWindow(innerWidth, innerHeight float64) *Window {
	return &Window{innerWidth: innerWidth, innerHeight: innerHeight}
}

func (w *Window) InnerWidth() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.innerWidth
}

func (w *Window) InnerHeight() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.innerHeight
}

func (w *Window) ScrollTo(top float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scrollY = top
	w.target = nil
}

// ScrollIntoView moves the window so that el's top edge is at the top of the
// viewport.
func (w *Window) ScrollIntoView(el *dom.Element) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.scrollY += el.GetBoundingClientRect().Top()
	if w.scrollY < 0 {
		w.scrollY = 0
	}
	w.target = el
}

// ScrollY returns the current vertical scroll offset.
func (w *Window) ScrollY() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scrollY
}

// Target returns the element last scrolled into view, or nil.
func (w *Window) Target() *dom.Element {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.target
}
