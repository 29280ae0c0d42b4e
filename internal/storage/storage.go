package storage

import (
	"context"

	"github.com/sitewalk/planmark/pkg/core"
)

// Store is the GeometryStore contract every backend must satisfy.
// Writes that reference a missing drawing, project or layer fail with core.ErrNotFound;
// backend failures are wrapped in core.ErrStorage.
type Store interface {
	// Lifecycle
	Init() error
	Close() error

	// Projects and drawings
	SaveProject(ctx context.Context, p core.Project) error
	LoadProjects(ctx context.Context) ([]core.Project, error)
	LoadProject(ctx context.Context, id core.ID) (core.Project, error)
	DeleteProject(ctx context.Context, id core.ID) error

	SaveDrawing(ctx context.Context, d core.Drawing) error
	LoadDrawings(ctx context.Context, projectID core.ID) ([]core.Drawing, error)
	LoadDrawing(ctx context.Context, id core.ID) (core.Drawing, error)
	DeleteDrawing(ctx context.Context, id core.ID) error

	// SetServerID records the backend identity of a synced project or drawing.
	SetServerID(ctx context.Context, kind core.Kind, id core.ID, serverID string) error

	// Layers
	SaveLayer(ctx context.Context, l core.Layer) error
	LoadLayers(ctx context.Context, projectID core.ID) ([]core.Layer, error)
	// DeleteLayer removes the layer and every annotation that references it in one transaction.
	DeleteLayer(ctx context.Context, id core.ID) error

	// Geometry
	SaveLine(ctx context.Context, l core.Line) error
	LoadLines(ctx context.Context, drawingID core.ID) ([]core.Line, error)
	DeleteLine(ctx context.Context, id core.ID) error

	SavePolyline(ctx context.Context, p core.Polyline) error
	LoadPolylines(ctx context.Context, drawingID core.ID) ([]core.Polyline, error)
	DeletePolyline(ctx context.Context, id core.ID) error

	SaveRectangle(ctx context.Context, r core.Rectangle) error
	LoadRectangles(ctx context.Context, drawingID core.ID) ([]core.Rectangle, error)
	DeleteRectangle(ctx context.Context, id core.ID) error

	SavePoint(ctx context.Context, p core.PointMarker) error
	LoadPoints(ctx context.Context, drawingID core.ID) ([]core.PointMarker, error)
	DeletePoint(ctx context.Context, id core.ID) error

	SaveText(ctx context.Context, t core.Text) error
	LoadTexts(ctx context.Context, drawingID core.ID) ([]core.Text, error)
	DeleteText(ctx context.Context, id core.ID) error

	// Photos. SavePhoto inserts or replaces in place (retake).
	SavePhoto(ctx context.Context, p core.PhotoMarker) error
	LoadPhotos(ctx context.Context, drawingID core.ID) ([]core.PhotoMarker, error)
	LoadPhoto(ctx context.Context, id core.ID) (core.PhotoMarker, error)
	DeletePhoto(ctx context.Context, id core.ID) error
	// NextSequenceNumber returns the highest sequence on the drawing plus one.
	NextSequenceNumber(ctx context.Context, drawingID core.ID) (int, error)
	// LoadGroup returns the marker with markerID and its children ordered by sequence.
	LoadGroup(ctx context.Context, markerID core.ID) ([]core.PhotoMarker, error)
	// ReplaceGroup deletes deleteID and writes updates atomically.
	ReplaceGroup(ctx context.Context, deleteID core.ID, updates []core.PhotoMarker) error

	// Audio notes
	SaveAudioNote(ctx context.Context, a core.AudioNote) error
	LoadAudioNotes(ctx context.Context, projectID core.ID) ([]core.AudioNote, error)
	DeleteAudioNote(ctx context.Context, id core.ID) error
}

// Dumpable is an optional interface for backends that keep their data in memory
// and can snapshot it to disk.
type Dumpable interface {
	Dump(path string) error
}
