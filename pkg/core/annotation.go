package core

import (
	"fmt"
	"time"
)

// Line is a straight segment between two taps.
type Line struct {
	ID        ID    `json:"id"`
	DrawingID ID    `json:"drawingId"`
	LayerID   *ID   `json:"layerId,omitempty"`
	Start     Point `json:"start"`
	End       Point `json:"end"`
}

// Polyline is an ordered path of at least two points. A closed polyline repeats its
// first point as its last.
type Polyline struct {
	ID        ID      `json:"id"`
	DrawingID ID      `json:"drawingId"`
	LayerID   *ID     `json:"layerId,omitempty"`
	Points    []Point `json:"points"`
	Closed    bool    `json:"closed"`
}

// Validate checks the point-count and closure invariants.
func (p Polyline) Validate() error {
	if len(p.Points) < 2 {
		return fmt.Errorf("%w: polyline needs at least 2 points, got %d", ErrValidation, len(p.Points))
	}
	if p.Closed && p.Points[0] != p.Points[len(p.Points)-1] {
		return fmt.Errorf("%w: closed polyline must end on its first point", ErrValidation)
	}
	return nil
}

// Rectangle is an axis-aligned box.
type Rectangle struct {
	ID        ID   `json:"id"`
	DrawingID ID   `json:"drawingId"`
	LayerID   *ID  `json:"layerId,omitempty"`
	Bounds    Rect `json:"bounds"`
}

// PointMarker is a single-coordinate marker.
type PointMarker struct {
	ID        ID    `json:"id"`
	DrawingID ID    `json:"drawingId"`
	LayerID   *ID   `json:"layerId,omitempty"`
	Position  Point `json:"position"`
}

// Text is a label centered on Position.
type Text struct {
	ID        ID     `json:"id"`
	DrawingID ID     `json:"drawingId"`
	LayerID   *ID    `json:"layerId,omitempty"`
	Content   string `json:"content"`
	Position  Point  `json:"position"`
}

// PhotoMarker is a photo anchored on the drawing. Records with a ParentID are
// additional photos paged under the primary marker they point to.
type PhotoMarker struct {
	ID        ID        `json:"id"`
	DrawingID ID        `json:"drawingId"`
	Position  Point     `json:"position"`
	Image     []byte    `json:"image"`
	Sequence  int       `json:"sequence"`
	TakenAt   time.Time `json:"takenAt"`
	ParentID  *ID       `json:"parentId,omitempty"`
}

// IsPrimary reports whether the marker anchors a visible position on the canvas.
func (p PhotoMarker) IsPrimary() bool {
	return p.ParentID == nil
}
