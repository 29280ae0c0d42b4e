package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRectFromCorners_Normalizes(t *testing.T) {
	r := RectFromCorners(Point{X: 50, Y: 10}, Point{X: 20, Y: 40})

	assert.Equal(t, Point{X: 20, Y: 10}, r.Origin)
	assert.Equal(t, 30.0, r.Width)
	assert.Equal(t, 30.0, r.Height)
	assert.Equal(t, Point{X: 35, Y: 25}, r.Center())
}

func TestRectCorners(t *testing.T) {
	r := Rect{Origin: Point{X: 0, Y: 0}, Width: 10, Height: 5}
	c := r.Corners()
	assert.Equal(t, Point{X: 10, Y: 5}, c[2])
	assert.Equal(t, Point{X: 0, Y: 5}, c[3])
}

func TestPolylineValidate(t *testing.T) {
	open := Polyline{Points: []Point{{X: 0, Y: 0}, {X: 10, Y: 0}}}
	assert.NoError(t, open.Validate())

	short := Polyline{Points: []Point{{X: 0, Y: 0}}}
	assert.True(t, errors.Is(short.Validate(), ErrValidation))

	badClosed := Polyline{Points: []Point{{X: 0, Y: 0}, {X: 10, Y: 0}}, Closed: true}
	assert.True(t, errors.Is(badClosed.Validate(), ErrValidation))

	closed := Polyline{Points: []Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 0, Y: 0}}, Closed: true}
	assert.NoError(t, closed.Validate())
}

func TestDrawingScaleLabel(t *testing.T) {
	assert.Equal(t, "1:100", Drawing{Scale: 100}.ScaleLabel())
	assert.Equal(t, "", Drawing{}.ScaleLabel())
}

func TestPhotoMarkerIsPrimary(t *testing.T) {
	parent := NewID()
	assert.True(t, PhotoMarker{}.IsPrimary())
	assert.False(t, PhotoMarker{ParentID: &parent}.IsPrimary())
}
