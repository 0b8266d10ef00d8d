package dom

// ElementGeometry holds measured layout metrics for an element. The tree has
// no layout engine of its own; a host that renders the page (or a test) sets
// these so that scroll restoration and the viewport spacer can read them.
type ElementGeometry struct {
	// Border box coordinates relative to the viewport
	X, Y, Width, Height float64

	// Scroll properties
	ScrollTop, ScrollLeft     float64
	ScrollWidth, ScrollHeight float64
	ClientWidth, ClientHeight float64
}

// DOMRect represents a rectangle in viewport coordinates.
type DOMRect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Top returns the top edge (y for positive height, y + height for negative).
func (r DOMRect) Top() float64 {
	if r.Height < 0 {
		return r.Y + r.Height
	}
	return r.Y
}

// Bottom returns the bottom edge (y + height for positive height, y for negative).
func (r DOMRect) Bottom() float64 {
	if r.Height < 0 {
		return r.Y
	}
	return r.Y + r.Height
}

// Geometry returns the element's layout geometry, or nil if it was never measured.
func (e *Element) Geometry() *ElementGeometry {
	return e.elementData.geometry
}

// SetGeometry sets the element's layout geometry.
func (e *Element) SetGeometry(g *ElementGeometry) {
	e.elementData.geometry = g
}

func (e *Element) geometryForWrite() *ElementGeometry {
	if e.elementData.geometry == nil {
		e.elementData.geometry = &ElementGeometry{}
	}
	return e.elementData.geometry
}

// GetBoundingClientRect returns the element's border box.
// If the element was never measured, returns a zero-sized rect.
func (e *Element) GetBoundingClientRect() DOMRect {
	geom := e.Geometry()
	if geom == nil {
		return DOMRect{}
	}
	return DOMRect{X: geom.X, Y: geom.Y, Width: geom.Width, Height: geom.Height}
}

// ClientHeight returns the inner height of the element.
func (e *Element) ClientHeight() float64 {
	if geom := e.Geometry(); geom != nil {
		return geom.ClientHeight
	}
	return 0
}

// ClientWidth returns the inner width of the element.
func (e *Element) ClientWidth() float64 {
	if geom := e.Geometry(); geom != nil {
		return geom.ClientWidth
	}
	return 0
}

// ScrollHeight returns the height of the element's content.
func (e *Element) ScrollHeight() float64 {
	if geom := e.Geometry(); geom != nil {
		return geom.ScrollHeight
	}
	return 0
}

// ScrollWidth returns the width of the element's content.
func (e *Element) ScrollWidth() float64 {
	if geom := e.Geometry(); geom != nil {
		return geom.ScrollWidth
	}
	return 0
}

// ScrollTop returns the scroll offset from the top.
func (e *Element) ScrollTop() float64 {
	if geom := e.Geometry(); geom != nil {
		return geom.ScrollTop
	}
	return 0
}

// SetScrollTop sets the scroll offset from the top.
func (e *Element) SetScrollTop(value float64) {
	if value < 0 {
		value = 0
	}
	e.geometryForWrite().ScrollTop = value
}

// ScrollLeft returns the scroll offset from the left.
func (e *Element) ScrollLeft() float64 {
	if geom := e.Geometry(); geom != nil {
		return geom.ScrollLeft
	}
	return 0
}

// SetScrollLeft sets the scroll offset from the left.
func (e *Element) SetScrollLeft(value float64) {
	if value < 0 {
		value = 0
	}
	e.geometryForWrite().ScrollLeft = value
}

// IsScrollable reports whether the element's content overflows its box on
// either axis.
func (e *Element) IsScrollable() bool {
	geom := e.Geometry()
	if geom == nil {
		return false
	}
	return geom.ScrollHeight > geom.ClientHeight || geom.ScrollWidth > geom.ClientWidth
}
