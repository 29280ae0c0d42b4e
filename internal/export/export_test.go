package export

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sitewalk/planmark/internal/storage/memory"
	"github.com/sitewalk/planmark/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T) (*memory.Store, core.Drawing) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	p := core.Project{ID: core.NewID(), Name: "Survey"}
	require.NoError(t, store.SaveProject(ctx, p))
	d := core.Drawing{ID: core.NewID(), ProjectID: p.ID, Name: "Level 1", Scale: 100}
	require.NoError(t, store.SaveDrawing(ctx, d))
	layer := core.Layer{ID: core.NewID(), ProjectID: p.ID, Name: "Walls", Color: core.MustParseColor("#1A2B3C")}
	require.NoError(t, store.SaveLayer(ctx, layer))

	require.NoError(t, store.SaveLine(ctx, core.Line{ID: core.NewID(), DrawingID: d.ID, LayerID: core.IDPtr(layer.ID), End: core.Point{X: 10}}))
	require.NoError(t, store.SavePolyline(ctx, core.Polyline{ID: core.NewID(), DrawingID: d.ID, Points: []core.Point{{}, {X: 1}, {}}, Closed: true}))
	require.NoError(t, store.SavePoint(ctx, core.PointMarker{ID: core.NewID(), DrawingID: d.ID, Position: core.Point{X: 100, Y: 100}}))
	require.NoError(t, store.SaveText(ctx, core.Text{ID: core.NewID(), DrawingID: d.ID, Content: "crack"}))
	require.NoError(t, store.SavePhoto(ctx, core.PhotoMarker{ID: core.NewID(), DrawingID: d.ID, Image: []byte{0xff, 0xd8}, Sequence: 1, TakenAt: time.Unix(0, 0).UTC()}))
	return store, d
}

func TestBuild(t *testing.T) {
	store, d := seeded(t)
	b, err := Build(context.Background(), store, d.ID)
	require.NoError(t, err)

	assert.Equal(t, FormatVersion, b.Version)
	assert.Equal(t, "Survey", b.Project.Name)
	assert.Equal(t, d.ID, b.Drawing.ID)
	assert.Len(t, b.Layers, 1)
	assert.Equal(t, 5, b.Count())
}

func TestBuild_UnknownDrawing(t *testing.T) {
	_, err := Build(context.Background(), memory.New(), core.NewID())
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestWriteRead(t *testing.T) {
	store, d := seeded(t)
	b, err := Build(context.Background(), store, d.ID)
	require.NoError(t, err)

	for _, compress := range []bool{false, true} {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, b, compress))
		if !compress {
			assert.Contains(t, buf.String(), `"color":"#1A2B3C"`)
		}

		got, err := Read(&buf)
		require.NoError(t, err)
		assert.Equal(t, b.Count(), got.Count())
		assert.Equal(t, b.Photos[0].Image, got.Photos[0].Image)
		assert.Equal(t, b.Layers[0].Color, got.Layers[0].Color)
		assert.Equal(t, b.Polylines[0].Points, got.Polylines[0].Points)
	}
}

func TestWriteFile_Gzip(t *testing.T) {
	store, d := seeded(t)
	b, err := Build(context.Background(), store, d.ID)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "level1.json.gz")
	require.NoError(t, WriteFile(path, b, true))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()
	got, err := Read(gz)
	require.NoError(t, err)
	assert.Equal(t, "Level 1", got.Drawing.Name)
}

func TestRead_Invalid(t *testing.T) {
	_, err := Read(strings.NewReader("{not json"))
	require.ErrorIs(t, err, core.ErrValidation)

	_, err = Read(strings.NewReader(`{"version":99}`))
	require.ErrorIs(t, err, core.ErrValidation)
}
