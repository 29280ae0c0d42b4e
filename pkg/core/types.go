// Package core holds the domain types shared by the editor, the stores and the sync layer.
package core

import (
	"math"

	"github.com/google/uuid"
)

// ID is the identity of every persisted record. It is presented as a hyphenated hex string.
type ID = uuid.UUID

// NilID is the zero identity.
var NilID = uuid.Nil

// NewID returns a fresh random identity.
func NewID() ID {
	return uuid.New()
}

// ParseID parses a hyphenated hex identity.
func ParseID(s string) (ID, error) {
	return uuid.Parse(s)
}

// IDPtr returns a pointer to a copy of id.
func IDPtr(id ID) *ID {
	return &id
}

// Point is a coordinate in content space (the unscaled drawing page).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point) Distance(other Point) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Rect is an axis-aligned rectangle whose origin is the top-left corner.
type Rect struct {
	Origin Point   `json:"origin"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectFromCorners builds the bounding rectangle of two opposite corners.
func RectFromCorners(a, b Point) Rect {
	return Rect{
		Origin: Point{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Width:  math.Abs(a.X - b.X),
		Height: math.Abs(a.Y - b.Y),
	}
}

// Corners returns the four corners clockwise starting at the origin.
func (r Rect) Corners() [4]Point {
	return [4]Point{
		r.Origin,
		{X: r.Origin.X + r.Width, Y: r.Origin.Y},
		{X: r.Origin.X + r.Width, Y: r.Origin.Y + r.Height},
		{X: r.Origin.X, Y: r.Origin.Y + r.Height},
	}
}

// Center returns the center of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.Origin.X + r.Width/2, Y: r.Origin.Y + r.Height/2}
}

// Kind identifies a record type in the store.
type Kind string

const (
	KindLine      Kind = "line"
	KindPolyline  Kind = "polyline"
	KindRectangle Kind = "rectangle"
	KindPoint     Kind = "point"
	KindText      Kind = "text"
	KindPhoto     Kind = "photo"
	KindLayer     Kind = "layer"
	KindAudio     Kind = "audio"
	KindProject   Kind = "project"
	KindDrawing   Kind = "drawing"
)

// GeometryKinds are the annotation kinds that belong to a layer.
var GeometryKinds = []Kind{KindLine, KindPolyline, KindRectangle, KindPoint, KindText}
