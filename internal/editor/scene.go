package editor

import (
	"github.com/sitewalk/planmark/internal/geo"
	"github.com/sitewalk/planmark/pkg/core"
)

// Geometry is the rendered shape of a handle.
type Geometry interface {
	// HitDistance is the distance the eraser measures from p.
	HitDistance(p core.Point) float64
}

// Anchor is a single-position geometry: point markers, text labels and photo markers.
type Anchor struct {
	Position core.Point
	Label    string // text content or photo count; empty for point markers
}

func (a Anchor) HitDistance(p core.Point) float64 {
	return a.Position.Distance(p)
}

// Segment is a straight line. The eraser measures to the center of its bounding box,
// not to the segment itself.
type Segment struct {
	Start, End core.Point
}

func (s Segment) HitDistance(p core.Point) float64 {
	return geo.BoundingCenter(s.Start, s.End).Distance(p)
}

// Path is a polyline; closed paths already repeat their first point.
type Path struct {
	Points []core.Point
	Closed bool
}

func (g Path) HitDistance(p core.Point) float64 {
	return geo.PathDistance(p, g.Points)
}

// Box is an axis-aligned rectangle; the eraser measures to the nearest edge.
type Box struct {
	Bounds core.Rect
}

func (b Box) HitDistance(p core.Point) float64 {
	return geo.RectEdgeDistance(p, b.Bounds)
}

// Handle is one rendered annotation.
type Handle struct {
	Kind     core.Kind
	ID       core.ID
	LayerID  *core.ID
	Color    core.Color
	Geometry Geometry
}

// hitOrder is the order the eraser scans kinds in.
var hitOrder = []core.Kind{
	core.KindPoint,
	core.KindText,
	core.KindPhoto,
	core.KindLine,
	core.KindPolyline,
	core.KindRectangle,
}

// Scene is the set of handles rendered for one drawing, bucketed by kind.
type Scene struct {
	byKind map[core.Kind][]Handle
}

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{byKind: make(map[core.Kind][]Handle)}
}

// Add renders a handle on top of its kind.
func (s *Scene) Add(h Handle) {
	s.byKind[h.Kind] = append(s.byKind[h.Kind], h)
}

// Update swaps the handle with h's id for h, keeping its stacking order. It
// reports whether one was rendered.
func (s *Scene) Update(h Handle) bool {
	hs := s.byKind[h.Kind]
	for i := range hs {
		if hs[i].ID == h.ID {
			hs[i] = h
			return true
		}
	}
	return false
}

// Handles returns every handle in hit-test order.
func (s *Scene) Handles() []Handle {
	out := make([]Handle, 0, s.Len())
	for _, kind := range hitOrder {
		out = append(out, s.byKind[kind]...)
	}
	return out
}

// OfKind returns the handles of one kind.
func (s *Scene) OfKind(kind core.Kind) []Handle {
	return append([]Handle(nil), s.byKind[kind]...)
}

// Find returns the handle with id.
func (s *Scene) Find(id core.ID) (Handle, bool) {
	for _, hs := range s.byKind {
		for _, h := range hs {
			if h.ID == id {
				return h, true
			}
		}
	}
	return Handle{}, false
}

// Len returns the number of handles.
func (s *Scene) Len() int {
	n := 0
	for _, hs := range s.byKind {
		n += len(hs)
	}
	return n
}

// HitTest scans kinds in priority order (points, text, photos, then lines,
// polylines and rectangles) and returns the first handle closer than threshold.
// A closer handle of a later kind never wins over a qualifying earlier one.
func (s *Scene) HitTest(p core.Point, threshold float64) (Handle, bool) {
	for _, kind := range hitOrder {
		for _, h := range s.byKind[kind] {
			if h.Geometry.HitDistance(p) < threshold {
				return h, true
			}
		}
	}
	return Handle{}, false
}

func lineHandle(l core.Line, color core.Color) Handle {
	return Handle{Kind: core.KindLine, ID: l.ID, LayerID: l.LayerID, Color: color, Geometry: Segment{Start: l.Start, End: l.End}}
}

func polylineHandle(p core.Polyline, color core.Color) Handle {
	return Handle{Kind: core.KindPolyline, ID: p.ID, LayerID: p.LayerID, Color: color, Geometry: Path{Points: p.Points, Closed: p.Closed}}
}

func rectangleHandle(r core.Rectangle, color core.Color) Handle {
	return Handle{Kind: core.KindRectangle, ID: r.ID, LayerID: r.LayerID, Color: color, Geometry: Box{Bounds: r.Bounds}}
}

func pointHandle(p core.PointMarker, color core.Color) Handle {
	return Handle{Kind: core.KindPoint, ID: p.ID, LayerID: p.LayerID, Color: color, Geometry: Anchor{Position: p.Position}}
}

func textHandle(t core.Text, color core.Color) Handle {
	return Handle{Kind: core.KindText, ID: t.ID, LayerID: t.LayerID, Color: color, Geometry: Anchor{Position: t.Position, Label: t.Content}}
}

func photoHandle(p core.PhotoMarker) Handle {
	return Handle{Kind: core.KindPhoto, ID: p.ID, Color: core.Black, Geometry: Anchor{Position: p.Position}}
}
