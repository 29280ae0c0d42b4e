package editor

import (
	"math"

	"github.com/sitewalk/planmark/pkg/core"
)

// Viewport is the view-only zoom/pan transform. A screen coordinate s maps to
// content coordinate c by c = (s + offset) / zoom. It is never persisted.
type Viewport struct {
	Zoom    float64
	OffsetX float64
	OffsetY float64

	minZoom float64
	maxZoom float64
}

// NewViewport returns an identity viewport clamped to [minZoom, maxZoom].
func NewViewport(minZoom, maxZoom float64) *Viewport {
	if minZoom <= 0 {
		minZoom = 1
	}
	if maxZoom < minZoom {
		maxZoom = minZoom
	}
	v := &Viewport{minZoom: minZoom, maxZoom: maxZoom}
	v.SetZoom(1)
	return v
}

// SetZoom sets the zoom factor, clamped to the configured bounds.
func (v *Viewport) SetZoom(zoom float64) {
	if math.IsNaN(zoom) {
		return
	}
	v.Zoom = math.Min(math.Max(zoom, v.minZoom), v.maxZoom)
}

// ZoomAt changes the zoom while keeping the content under the screen anchor fixed.
func (v *Viewport) ZoomAt(zoom float64, anchor core.Point) {
	fixed := v.ToContent(anchor)
	v.SetZoom(zoom)
	v.OffsetX = fixed.X*v.Zoom - anchor.X
	v.OffsetY = fixed.Y*v.Zoom - anchor.Y
}

// Pan scrolls by a screen-space delta.
func (v *Viewport) Pan(dx, dy float64) {
	v.OffsetX += dx
	v.OffsetY += dy
}

// ToContent converts a screen coordinate to content space.
func (v *Viewport) ToContent(screen core.Point) core.Point {
	return core.Point{
		X: (screen.X + v.OffsetX) / v.Zoom,
		Y: (screen.Y + v.OffsetY) / v.Zoom,
	}
}

// ToScreen converts a content coordinate to screen space.
func (v *Viewport) ToScreen(content core.Point) core.Point {
	return core.Point{
		X: content.X*v.Zoom - v.OffsetX,
		Y: content.Y*v.Zoom - v.OffsetY,
	}
}
