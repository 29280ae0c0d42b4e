// Package photo places photo markers on a drawing and manages the stacks of photos
// grouped under each marker.
package photo

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sitewalk/planmark/internal/storage"
	"github.com/sitewalk/planmark/pkg/core"
)

// Role says what a captured image is for.
type Role int

const (
	// RolePrimary commits the image as a new marker at a placed position.
	RolePrimary Role = iota
	// RoleRetake replaces the image of an existing record in place.
	RoleRetake
	// RoleAdd stacks another photo under an existing marker.
	RoleAdd
)

func (r Role) String() string {
	switch r {
	case RolePrimary:
		return "primary"
	case RoleRetake:
		return "retake"
	case RoleAdd:
		return "add"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Controller manages photo markers of one drawing.
type Controller struct {
	store     storage.Store
	drawingID core.ID
	log       *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	pending map[core.ID]core.Point
}

// New creates a controller for drawingID.
func New(store storage.Store, drawingID core.ID, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		store:     store,
		drawingID: drawingID,
		log:       log.With("drawing", drawingID.String()),
		now:       time.Now,
		pending:   make(map[core.ID]core.Point),
	}
}

// Place records a provisional marker at pos and returns its identity. Nothing is
// persisted until Capture succeeds.
func (c *Controller) Place(pos core.Point) core.ID {
	id := core.NewID()
	c.mu.Lock()
	c.pending[id] = pos
	c.mu.Unlock()
	return id
}

// Pending returns the position of a provisional marker.
func (c *Controller) Pending(id core.ID) (core.Point, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos, ok := c.pending[id]
	return pos, ok
}

// Reposition records a new provisional position for the existing record id. The
// next RoleRetake capture of id moves the record's group there; Cancel drops it.
func (c *Controller) Reposition(id core.ID, pos core.Point) {
	c.mu.Lock()
	c.pending[id] = pos
	c.mu.Unlock()
}

// Cancel discards a provisional marker. It reports whether one existed.
func (c *Controller) Cancel(id core.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[id]
	delete(c.pending, id)
	return ok
}

// Capture commits image for id according to role and returns the stored record.
//
// For RolePrimary id must be a provisional marker from Place. For RoleRetake id is
// the record whose image and timestamp are replaced; when Reposition was called for
// id, every record of its group also moves to the new position. For RoleAdd id is any record of the target
// group; the new photo is attached to the group's primary marker.
func (c *Controller) Capture(ctx context.Context, image []byte, id core.ID, role Role) (core.PhotoMarker, error) {
	if len(image) == 0 {
		return core.PhotoMarker{}, fmt.Errorf("%w: empty image", core.ErrValidation)
	}

	switch role {
	case RolePrimary:
		return c.capturePrimary(ctx, image, id)
	case RoleRetake:
		return c.retake(ctx, image, id)
	case RoleAdd:
		return c.add(ctx, image, id)
	default:
		return core.PhotoMarker{}, fmt.Errorf("%w: unknown capture role %s", core.ErrValidation, role)
	}
}

func (c *Controller) capturePrimary(ctx context.Context, image []byte, id core.ID) (core.PhotoMarker, error) {
	pos, ok := c.Pending(id)
	if !ok {
		return core.PhotoMarker{}, storage.NotFound(core.KindPhoto, id)
	}
	seq, err := c.store.NextSequenceNumber(ctx, c.drawingID)
	if err != nil {
		return core.PhotoMarker{}, err
	}
	marker := core.PhotoMarker{
		ID:        id,
		DrawingID: c.drawingID,
		Position:  pos,
		Image:     image,
		Sequence:  seq,
		TakenAt:   c.now(),
	}
	if err := c.store.SavePhoto(ctx, marker); err != nil {
		return core.PhotoMarker{}, err
	}
	c.Cancel(id)
	c.log.Debug("Photo marker placed", "marker", id.String(), "sequence", seq)
	return marker, nil
}

func (c *Controller) retake(ctx context.Context, image []byte, id core.ID) (core.PhotoMarker, error) {
	marker, err := c.store.LoadPhoto(ctx, id)
	if err != nil {
		return core.PhotoMarker{}, err
	}
	marker.Image = image
	marker.TakenAt = c.now()
	pos, moved := c.Pending(id)
	if moved {
		group, err := c.store.LoadGroup(ctx, id)
		if err != nil {
			return core.PhotoMarker{}, err
		}
		for _, member := range group {
			if member.ID == id || member.Position == pos {
				continue
			}
			member.Position = pos
			if err := c.store.SavePhoto(ctx, member); err != nil {
				return core.PhotoMarker{}, err
			}
		}
		marker.Position = pos
	}
	if err := c.store.SavePhoto(ctx, marker); err != nil {
		return core.PhotoMarker{}, err
	}
	if moved {
		c.Cancel(id)
	}
	c.log.Debug("Photo retaken", "marker", id.String(), "moved", moved)
	return marker, nil
}

func (c *Controller) add(ctx context.Context, image []byte, id core.ID) (core.PhotoMarker, error) {
	group, err := c.store.LoadGroup(ctx, id)
	if err != nil {
		return core.PhotoMarker{}, err
	}
	head, err := Chain(group).Head()
	if err != nil {
		return core.PhotoMarker{}, err
	}
	seq, err := c.store.NextSequenceNumber(ctx, c.drawingID)
	if err != nil {
		return core.PhotoMarker{}, err
	}
	extra := core.PhotoMarker{
		ID:        core.NewID(),
		DrawingID: c.drawingID,
		Position:  head.Position,
		Image:     image,
		Sequence:  seq,
		TakenAt:   c.now(),
		ParentID:  core.IDPtr(head.ID),
	}
	if err := c.store.SavePhoto(ctx, extra); err != nil {
		return core.PhotoMarker{}, err
	}
	c.log.Debug("Photo added to group", "marker", head.ID.String(), "photo", extra.ID.String(), "sequence", seq)
	return extra, nil
}

// Delete removes one photo. Deleting a primary marker promotes the next photo of
// its group, whose id is returned; nil means no promotion took place.
func (c *Controller) Delete(ctx context.Context, id core.ID) (*core.ID, error) {
	marker, err := c.store.LoadPhoto(ctx, id)
	if err != nil {
		return nil, err
	}
	if !marker.IsPrimary() {
		return nil, c.store.DeletePhoto(ctx, id)
	}

	group, err := c.store.LoadGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	rest, err := Chain(group).Without(id).Rehead()
	if err != nil {
		return nil, err
	}
	if err := c.store.ReplaceGroup(ctx, id, rest); err != nil {
		return nil, err
	}
	if len(rest) == 0 {
		c.log.Debug("Photo marker removed", "marker", id.String())
		return nil, nil
	}
	promoted := rest[0].ID
	c.log.Debug("Photo marker promoted", "deleted", id.String(), "promoted", promoted.String(), "remaining", len(rest))
	return &promoted, nil
}

// LoadGroup returns the photos grouped with id, ordered by sequence.
func (c *Controller) LoadGroup(ctx context.Context, id core.ID) ([]core.PhotoMarker, error) {
	return c.store.LoadGroup(ctx, id)
}

// Markers returns the placeable (primary) markers of the drawing.
func (c *Controller) Markers(ctx context.Context) ([]core.PhotoMarker, error) {
	photos, err := c.store.LoadPhotos(ctx, c.drawingID)
	if err != nil {
		return nil, err
	}
	out := make([]core.PhotoMarker, 0, len(photos))
	for _, p := range photos {
		if p.IsPrimary() {
			out = append(out, p)
		}
	}
	return out, nil
}
