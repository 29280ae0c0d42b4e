// Package layers tracks the named, colored layers of a project and the layer that
// is active in the current editing session.
package layers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sitewalk/planmark/internal/storage"
	"github.com/sitewalk/planmark/pkg/core"
)

// Registry lists, creates and deletes the layers of one project. The active layer
// is session state only and is never persisted.
type Registry struct {
	store     storage.Store
	projectID core.ID
	log       *slog.Logger

	mu     sync.RWMutex
	known  map[core.ID]core.Layer
	active *core.Layer
}

// New creates a registry for projectID.
func New(store storage.Store, projectID core.ID, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		store:     store,
		projectID: projectID,
		log:       log.With("project", projectID.String()),
		known:     make(map[core.ID]core.Layer),
	}
}

// ProjectID returns the project the registry is bound to.
func (r *Registry) ProjectID() core.ID {
	return r.projectID
}

// List returns the project's layers ordered by name. If no default layer exists yet
// one is created in black and persisted before returning. The first call also makes
// the default layer active.
func (r *Registry) List(ctx context.Context) ([]core.Layer, error) {
	layers, err := r.store.LoadLayers(ctx, r.projectID)
	if err != nil {
		return nil, err
	}

	def, ok := findDefault(layers)
	if !ok {
		def = core.Layer{
			ID:        core.NewID(),
			ProjectID: r.projectID,
			Name:      core.DefaultLayerName,
			Color:     core.Black,
		}
		if err := r.store.SaveLayer(ctx, def); err != nil {
			return nil, fmt.Errorf("failed to create default layer: %w", err)
		}
		r.log.Info("Created default layer", "layer", def.ID.String())
		if layers, err = r.store.LoadLayers(ctx, r.projectID); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.known = make(map[core.ID]core.Layer, len(layers))
	for _, l := range layers {
		r.known[l.ID] = l
	}
	if r.active == nil {
		r.active = &def
	} else if l, ok := r.known[r.active.ID]; ok {
		r.active = &l
	}
	return layers, nil
}

// Default returns the project's default layer, creating it if absent.
func (r *Registry) Default(ctx context.Context) (core.Layer, error) {
	layers, err := r.List(ctx)
	if err != nil {
		return core.Layer{}, err
	}
	def, _ := findDefault(layers)
	return def, nil
}

// Create persists a new layer. Names are trimmed and must be non-empty and unique
// within the project.
func (r *Registry) Create(ctx context.Context, name string, color core.Color) (core.Layer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Layer{}, fmt.Errorf("%w: layer name is empty", core.ErrValidation)
	}
	layers, err := r.List(ctx)
	if err != nil {
		return core.Layer{}, err
	}
	for _, l := range layers {
		if l.Name == name {
			return core.Layer{}, fmt.Errorf("%w: layer %q already exists", core.ErrValidation, name)
		}
	}

	layer := core.Layer{ID: core.NewID(), ProjectID: r.projectID, Name: name, Color: color}
	if err := r.store.SaveLayer(ctx, layer); err != nil {
		return core.Layer{}, err
	}

	r.mu.Lock()
	r.known[layer.ID] = layer
	r.mu.Unlock()
	r.log.Debug("Created layer", "layer", layer.ID.String(), "name", name, "color", color.Hex())
	return layer, nil
}

// Delete removes the layer and every annotation tagged with it. If the active layer
// is deleted the session falls back to the default layer, recreating it if needed.
func (r *Registry) Delete(ctx context.Context, id core.ID) error {
	if err := r.store.DeleteLayer(ctx, id); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.known, id)
	wasActive := r.active != nil && r.active.ID == id
	if wasActive {
		r.active = nil
	}
	r.mu.Unlock()

	if wasActive {
		def, err := r.Default(ctx)
		if err != nil {
			return fmt.Errorf("layer deleted but default layer unavailable: %w", err)
		}
		r.log.Info("Active layer deleted, falling back to default", "layer", def.ID.String())
	}
	return nil
}

// SetActive selects the layer used for subsequent commits.
func (r *Registry) SetActive(layer core.Layer) error {
	if layer.ProjectID != r.projectID {
		return fmt.Errorf("%w: layer %s belongs to another project", core.ErrValidation, layer.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.known[layer.ID] = layer
	r.active = &layer
	return nil
}

// Active returns the active layer, or nil before the first List.
func (r *Registry) Active() *core.Layer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == nil {
		return nil
	}
	l := *r.active
	return &l
}

// ActiveID returns the id new annotations are tagged with.
func (r *Registry) ActiveID() *core.ID {
	if l := r.Active(); l != nil {
		return core.IDPtr(l.ID)
	}
	return nil
}

// ActiveColor returns the color of the next annotation.
func (r *Registry) ActiveColor() core.Color {
	if l := r.Active(); l != nil {
		return l.Color
	}
	return core.Black
}

// ColorOf returns the render color for an annotation tagged with layerID.
// Untagged annotations and unknown layers render in the default color.
func (r *Registry) ColorOf(layerID *core.ID) core.Color {
	if layerID == nil {
		return core.Black
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l, ok := r.known[*layerID]; ok {
		return l.Color
	}
	return core.Black
}

// Find looks up a layer by name among the layers seen by the last List.
func (r *Registry) Find(name string) (core.Layer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.known {
		if l.Name == name {
			return l, true
		}
	}
	return core.Layer{}, false
}

func findDefault(layers []core.Layer) (core.Layer, bool) {
	for _, l := range layers {
		if l.IsDefault() {
			return l, true
		}
	}
	return core.Layer{}, false
}
