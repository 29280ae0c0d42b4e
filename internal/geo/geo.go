// Package geo holds the geometry used by hit-testing and persistence.
// Distances are computed in content space; simplefeatures does the segment math.
package geo

import (
	"errors"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/sitewalk/planmark/pkg/core"
	"github.com/wroge/wgs84"
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// toPoint converts a content-space point to a simplefeatures point. Non-finite
// coordinates are rejected.
func toPoint(p core.Point) (geom.Point, error) {
	return geom.XY{X: p.X, Y: p.Y}.AsPoint()
}

// toLineString converts an ordered point list to a LineString.
func toLineString(pts []core.Point) (geom.LineString, error) {
	flat := make([]float64, 0, len(pts)*2)
	for _, p := range pts {
		flat = append(flat, p.X, p.Y)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
}

// SegmentDistance returns the distance from p to the segment a-b.
func SegmentDistance(p, a, b core.Point) float64 {
	if a == b {
		return p.Distance(a)
	}
	return PathDistance(p, []core.Point{a, b})
}

// PathDistance returns the minimum distance from p to any segment between consecutive
// points of path. A single point degenerates to point distance; an empty path or
// non-finite coordinates give +Inf.
func PathDistance(p core.Point, path []core.Point) float64 {
	switch len(path) {
	case 0:
		return math.Inf(1)
	case 1:
		return p.Distance(path[0])
	}
	pt, err := toPoint(p)
	if err != nil {
		return math.Inf(1)
	}
	ls, err := toLineString(path)
	if err != nil {
		return math.Inf(1)
	}
	d, ok := geom.Distance(pt.AsGeometry(), ls.AsGeometry())
	if !ok {
		return math.Inf(1)
	}
	return d
}

// RectEdgeDistance returns the minimum distance from p to the four edges of r.
// Points inside the rectangle are measured to the nearest edge, not zero.
func RectEdgeDistance(p core.Point, r core.Rect) float64 {
	c := r.Corners()
	return PathDistance(p, []core.Point{c[0], c[1], c[2], c[3], c[0]})
}

// BoundingBox returns the axis-aligned bounding rectangle of pts.
func BoundingBox(pts []core.Point) (core.Rect, error) {
	if len(pts) == 0 {
		return core.Rect{}, ErrInvalidCoordinates
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return core.Rect{
		Origin: core.Point{X: minX, Y: minY},
		Width:  maxX - minX,
		Height: maxY - minY,
	}, nil
}

// BoundingCenter returns the center of the bounding box of pts.
func BoundingCenter(pts ...core.Point) core.Point {
	box, err := BoundingBox(pts)
	if err != nil {
		return core.Point{}
	}
	return box.Center()
}

// Coords3857From4326 projects a WGS84 longitude/latitude pair to a Web Mercator point.
// Site locations are persisted in 3857 meters.
func Coords3857From4326(longitude, latitude float64) (geom.Point, error) {
	if math.IsNaN(longitude) || math.IsNaN(latitude) || math.Abs(latitude) > 90 || math.Abs(longitude) > 180 {
		return geom.Point{}, ErrInvalidCoordinates
	}
	f := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	return geom.XY{X: x, Y: y}.AsPoint()
}

// Coords4326From3857 reverses Coords3857From4326.
func Coords4326From3857(p geom.Point) (core.SiteLocation, bool) {
	c, ok := p.Coordinates()
	if !ok {
		return core.SiteLocation{}, false
	}
	f := wgs84.EPSG().Transform(3857, 4326)
	lon, lat, _ := f(c.XY.X, c.XY.Y, 0)
	return core.SiteLocation{Longitude: lon, Latitude: lat}, true
}
