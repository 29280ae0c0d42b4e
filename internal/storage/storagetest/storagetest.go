// Package storagetest holds the behavioral checks every storage.Store backend must pass.
package storagetest

import (
	"context"
	"testing"

	"github.com/sitewalk/planmark/internal/storage"
	"github.com/sitewalk/planmark/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, initialized store.
type Factory func(t *testing.T) storage.Store

// Seed creates a project with one drawing.
func Seed(t *testing.T, s storage.Store) (core.Project, core.Drawing) {
	t.Helper()
	ctx := context.Background()
	p := core.Project{ID: core.NewID(), Name: "Site survey"}
	require.NoError(t, s.SaveProject(ctx, p))
	d := core.Drawing{ID: core.NewID(), ProjectID: p.ID, Name: "Level 1"}
	require.NoError(t, s.SaveDrawing(ctx, d))
	return p, d
}

// Run executes the shared contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("ColorAndCoordinatesRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		p, d := Seed(t, s)

		layer := core.Layer{ID: core.NewID(), ProjectID: p.ID, Name: "Survey", Color: core.MustParseColor("#1A2B3C")}
		require.NoError(t, s.SaveLayer(ctx, layer))
		pt := core.PointMarker{ID: core.NewID(), DrawingID: d.ID, LayerID: core.IDPtr(layer.ID), Position: core.Point{X: 12.5, Y: 99.75}}
		require.NoError(t, s.SavePoint(ctx, pt))

		layers, err := s.LoadLayers(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, layers, 1)
		assert.Equal(t, "#1A2B3C", layers[0].Color.Hex())
		assert.Equal(t, layer.Color, layers[0].Color)

		points, err := s.LoadPoints(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, []core.PointMarker{pt}, points)
	})

	t.Run("TranslucentColorRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		p, _ := Seed(t, s)

		layer := core.Layer{ID: core.NewID(), ProjectID: p.ID, Name: "Glass", Color: core.MustParseColor("#10203080")}
		require.NoError(t, s.SaveLayer(ctx, layer))
		layers, err := s.LoadLayers(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, layers, 1)
		assert.Equal(t, "#10203080", layers[0].Color.Hex())
	})

	t.Run("PolylineRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, d := Seed(t, s)

		open := core.Polyline{ID: core.NewID(), DrawingID: d.ID, Points: []core.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}}}
		require.NoError(t, s.SavePolyline(ctx, open))
		polys, err := s.LoadPolylines(ctx, d.ID)
		require.NoError(t, err)
		require.Len(t, polys, 1)
		assert.False(t, polys[0].Closed)
		assert.Equal(t, open.Points, polys[0].Points)
	})

	t.Run("OrphanWriteRejected", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, d := Seed(t, s)

		missing := core.NewID()
		require.ErrorIs(t, s.SaveLine(ctx, core.Line{ID: core.NewID(), DrawingID: missing}), core.ErrNotFound)
		require.ErrorIs(t, s.SaveRectangle(ctx, core.Rectangle{ID: core.NewID(), DrawingID: missing}), core.ErrNotFound)
		require.ErrorIs(t, s.SavePhoto(ctx, core.PhotoMarker{ID: core.NewID(), DrawingID: missing}), core.ErrNotFound)
		require.ErrorIs(t, s.SaveText(ctx, core.Text{ID: core.NewID(), DrawingID: d.ID, LayerID: core.IDPtr(missing), Content: "x"}), core.ErrNotFound)

		texts, err := s.LoadTexts(ctx, d.ID)
		require.NoError(t, err)
		assert.Empty(t, texts)
	})

	t.Run("LayerDeleteCascades", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		p, d := Seed(t, s)

		layer := core.Layer{ID: core.NewID(), ProjectID: p.ID, Name: "Doomed", Color: core.Black}
		keep := core.Layer{ID: core.NewID(), ProjectID: p.ID, Name: "Keep", Color: core.Black}
		require.NoError(t, s.SaveLayer(ctx, layer))
		require.NoError(t, s.SaveLayer(ctx, keep))
		tagged := core.IDPtr(layer.ID)

		require.NoError(t, s.SaveLine(ctx, core.Line{ID: core.NewID(), DrawingID: d.ID, LayerID: tagged}))
		require.NoError(t, s.SavePolyline(ctx, core.Polyline{ID: core.NewID(), DrawingID: d.ID, LayerID: tagged, Points: []core.Point{{}, {X: 3}}}))
		require.NoError(t, s.SaveRectangle(ctx, core.Rectangle{ID: core.NewID(), DrawingID: d.ID, LayerID: tagged}))
		require.NoError(t, s.SavePoint(ctx, core.PointMarker{ID: core.NewID(), DrawingID: d.ID, LayerID: tagged}))
		require.NoError(t, s.SaveText(ctx, core.Text{ID: core.NewID(), DrawingID: d.ID, LayerID: tagged, Content: "gone"}))

		other := core.Line{ID: core.NewID(), DrawingID: d.ID, LayerID: core.IDPtr(keep.ID)}
		plain := core.Line{ID: core.NewID(), DrawingID: d.ID}
		require.NoError(t, s.SaveLine(ctx, other))
		require.NoError(t, s.SaveLine(ctx, plain))

		require.NoError(t, s.DeleteLayer(ctx, layer.ID))

		lines, err := s.LoadLines(ctx, d.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []core.Line{other, plain}, lines)
		polys, _ := s.LoadPolylines(ctx, d.ID)
		rects, _ := s.LoadRectangles(ctx, d.ID)
		points, _ := s.LoadPoints(ctx, d.ID)
		texts, _ := s.LoadTexts(ctx, d.ID)
		assert.Empty(t, polys)
		assert.Empty(t, rects)
		assert.Empty(t, points)
		assert.Empty(t, texts)

		layers, err := s.LoadLayers(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, layers, 1)
		assert.Equal(t, keep.ID, layers[0].ID)

		require.ErrorIs(t, s.DeleteLayer(ctx, layer.ID), core.ErrNotFound)
	})

	t.Run("PhotoGroupAndSequence", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, d := Seed(t, s)

		seq, err := s.NextSequenceNumber(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, seq)

		primary := core.PhotoMarker{ID: core.NewID(), DrawingID: d.ID, Position: core.Point{X: 1, Y: 2}, Image: []byte("a"), Sequence: seq}
		require.NoError(t, s.SavePhoto(ctx, primary))
		seq, err = s.NextSequenceNumber(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, seq)

		child := core.PhotoMarker{ID: core.NewID(), DrawingID: d.ID, Position: core.Point{X: 1, Y: 2}, Image: []byte("b"), Sequence: seq, ParentID: core.IDPtr(primary.ID)}
		require.NoError(t, s.SavePhoto(ctx, child))

		group, err := s.LoadGroup(ctx, primary.ID)
		require.NoError(t, err)
		require.Len(t, group, 2)
		assert.Equal(t, []core.ID{primary.ID, child.ID}, []core.ID{group[0].ID, group[1].ID})

		promoted := child
		promoted.ParentID = nil
		require.NoError(t, s.ReplaceGroup(ctx, primary.ID, []core.PhotoMarker{promoted}))

		_, err = s.LoadPhoto(ctx, primary.ID)
		require.ErrorIs(t, err, core.ErrNotFound)
		group, err = s.LoadGroup(ctx, child.ID)
		require.NoError(t, err)
		require.Len(t, group, 1)
		assert.Nil(t, group[0].ParentID)
		assert.Equal(t, []byte("b"), group[0].Image)
	})

	t.Run("DrawingDeleteCascades", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		p, d := Seed(t, s)

		require.NoError(t, s.SavePoint(ctx, core.PointMarker{ID: core.NewID(), DrawingID: d.ID}))
		require.NoError(t, s.SavePhoto(ctx, core.PhotoMarker{ID: core.NewID(), DrawingID: d.ID, Sequence: 1}))
		require.NoError(t, s.DeleteDrawing(ctx, d.ID))

		drawings, err := s.LoadDrawings(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, drawings)
		points, _ := s.LoadPoints(ctx, d.ID)
		photos, _ := s.LoadPhotos(ctx, d.ID)
		assert.Empty(t, points)
		assert.Empty(t, photos)
	})

	t.Run("ServerIDs", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		p, d := Seed(t, s)

		require.NoError(t, s.SetServerID(ctx, core.KindProject, p.ID, "p-1"))
		require.NoError(t, s.SetServerID(ctx, core.KindDrawing, d.ID, "d-1"))
		gotP, err := s.LoadProject(ctx, p.ID)
		require.NoError(t, err)
		gotD, err := s.LoadDrawing(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, "p-1", gotP.ServerID)
		assert.Equal(t, "d-1", gotD.ServerID)
	})
}
