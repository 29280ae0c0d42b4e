package layers

import (
	"context"
	"testing"

	"github.com/sitewalk/planmark/internal/storage/memory"
	"github.com/sitewalk/planmark/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) (*Registry, *memory.Store, core.Drawing) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	p := core.Project{ID: core.NewID(), Name: "Survey"}
	require.NoError(t, store.SaveProject(ctx, p))
	d := core.Drawing{ID: core.NewID(), ProjectID: p.ID, Name: "L1"}
	require.NoError(t, store.SaveDrawing(ctx, d))
	return New(store, p.ID, nil), store, d
}

func TestList_SynthesizesDefaultLayer(t *testing.T) {
	r, store, _ := newRegistry(t)
	ctx := context.Background()

	layers, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.Equal(t, core.DefaultLayerName, layers[0].Name)
	assert.Equal(t, core.Black, layers[0].Color)

	// persisted immediately
	stored, err := store.LoadLayers(ctx, r.ProjectID())
	require.NoError(t, err)
	assert.Equal(t, layers, stored)

	// not duplicated on the next listing
	layers, err = r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, layers, 1)
}

func TestList_ActivatesDefault(t *testing.T) {
	r, _, _ := newRegistry(t)
	assert.Nil(t, r.Active())
	assert.Equal(t, core.Black, r.ActiveColor())

	layers, err := r.List(context.Background())
	require.NoError(t, err)

	require.NotNil(t, r.Active())
	assert.Equal(t, layers[0].ID, r.Active().ID)
	assert.Equal(t, layers[0].ID, *r.ActiveID())
}

func TestCreate(t *testing.T) {
	r, _, _ := newRegistry(t)
	ctx := context.Background()
	red := core.MustParseColor("#FF0000")

	l, err := r.Create(ctx, "  Electrical ", red)
	require.NoError(t, err)
	assert.Equal(t, "Electrical", l.Name)
	assert.Equal(t, red, r.ColorOf(core.IDPtr(l.ID)))

	layers, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, layers, 2)

	found, ok := r.Find("Electrical")
	require.True(t, ok)
	assert.Equal(t, l.ID, found.ID)
}

func TestCreate_Validation(t *testing.T) {
	r, _, _ := newRegistry(t)
	ctx := context.Background()

	_, err := r.Create(ctx, "   ", core.Black)
	require.ErrorIs(t, err, core.ErrValidation)

	_, err = r.Create(ctx, "Plumbing", core.Black)
	require.NoError(t, err)
	_, err = r.Create(ctx, "Plumbing", core.Black)
	require.ErrorIs(t, err, core.ErrValidation)
}

func TestSetActive(t *testing.T) {
	r, _, _ := newRegistry(t)
	ctx := context.Background()
	blue := core.MustParseColor("#0000FF")

	l, err := r.Create(ctx, "Water", blue)
	require.NoError(t, err)
	require.NoError(t, r.SetActive(l))
	assert.Equal(t, blue, r.ActiveColor())

	foreign := core.Layer{ID: core.NewID(), ProjectID: core.NewID(), Name: "x"}
	require.ErrorIs(t, r.SetActive(foreign), core.ErrValidation)
	assert.Equal(t, l.ID, r.Active().ID)
}

func TestDelete_CascadesAndFallsBack(t *testing.T) {
	r, store, d := newRegistry(t)
	ctx := context.Background()

	l, err := r.Create(ctx, "Temporary", core.MustParseColor("#00FF00"))
	require.NoError(t, err)
	require.NoError(t, r.SetActive(l))

	tagged := core.PointMarker{ID: core.NewID(), DrawingID: d.ID, LayerID: core.IDPtr(l.ID)}
	untagged := core.PointMarker{ID: core.NewID(), DrawingID: d.ID}
	require.NoError(t, store.SavePoint(ctx, tagged))
	require.NoError(t, store.SavePoint(ctx, untagged))

	require.NoError(t, r.Delete(ctx, l.ID))

	points, err := store.LoadPoints(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, []core.PointMarker{untagged}, points)

	require.NotNil(t, r.Active())
	assert.Equal(t, core.DefaultLayerName, r.Active().Name)
	assert.Equal(t, core.Black, r.ColorOf(core.IDPtr(l.ID)))
}

func TestDelete_DefaultLayerIsRecreated(t *testing.T) {
	r, _, _ := newRegistry(t)
	ctx := context.Background()

	def, err := r.Default(ctx)
	require.NoError(t, err)
	require.NoError(t, r.Delete(ctx, def.ID))

	again, err := r.Default(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, def.ID, again.ID)
	assert.Equal(t, again.ID, r.Active().ID)
}

func TestDelete_Unknown(t *testing.T) {
	r, _, _ := newRegistry(t)
	require.ErrorIs(t, r.Delete(context.Background(), core.NewID()), core.ErrNotFound)
}

func TestColorOf_Untagged(t *testing.T) {
	r, _, _ := newRegistry(t)
	assert.Equal(t, core.Black, r.ColorOf(nil))
	assert.Equal(t, core.Black, r.ColorOf(core.IDPtr(core.NewID())))
}
