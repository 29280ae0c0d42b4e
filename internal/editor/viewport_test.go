package editor

import (
	"testing"

	"github.com/sitewalk/planmark/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewport_RoundTrip(t *testing.T) {
	v := NewViewport(0.25, 8)
	v.SetZoom(2.5)
	v.Pan(30, -12)

	p := core.Point{X: 123.5, Y: 77}
	got := v.ToContent(v.ToScreen(p))
	assert.InDelta(t, p.X, got.X, 1e-9)
	assert.InDelta(t, p.Y, got.Y, 1e-9)
}

func TestViewport_Clamp(t *testing.T) {
	v := NewViewport(0.25, 8)
	v.SetZoom(100)
	assert.Equal(t, 8.0, v.Zoom)
	v.SetZoom(0.01)
	assert.Equal(t, 0.25, v.Zoom)
}

func TestViewport_ZoomAtKeepsAnchor(t *testing.T) {
	v := NewViewport(0.25, 8)
	anchor := core.Point{X: 200, Y: 150}
	before := v.ToContent(anchor)
	v.ZoomAt(4, anchor)
	after := v.ToContent(anchor)
	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)
}

func TestParseMode(t *testing.T) {
	for _, m := range Modes {
		got, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMode("lasso")
	require.ErrorIs(t, err, core.ErrValidation)
	assert.Equal(t, core.KindPhoto, ModePhotoPlacement.Kind())
	assert.Equal(t, core.Kind(""), ModeEraser.Kind())
}

func TestScene_HitOrder(t *testing.T) {
	s := NewScene()
	line := Handle{Kind: core.KindLine, ID: core.NewID(), Geometry: Segment{End: core.Point{X: 10}}}
	text := Handle{Kind: core.KindText, ID: core.NewID(), Geometry: Anchor{Position: core.Point{X: 40}}}
	s.Add(line)
	s.Add(text)

	h, ok := s.HitTest(core.Point{X: 5}, 50)
	require.True(t, ok)
	assert.Equal(t, text.ID, h.ID)
	assert.Equal(t, []core.ID{text.ID, line.ID}, []core.ID{s.Handles()[0].ID, s.Handles()[1].ID})

	_, ok = s.HitTest(core.Point{X: 500}, 50)
	assert.False(t, ok)
}
