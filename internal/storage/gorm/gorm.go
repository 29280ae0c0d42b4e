// Package gormstorage implements storage.Store on top of gorm. It works with any
// dialector; the sqlite wrapper and the postgres store type both embed it.
package gormstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sitewalk/planmark/internal/database"
	"github.com/sitewalk/planmark/internal/model"
	"github.com/sitewalk/planmark/internal/model/convert"
	"github.com/sitewalk/planmark/internal/storage"
	"github.com/sitewalk/planmark/pkg/core"
	"gorm.io/gorm"
)

// geometryTables lists every table whose rows hang off a drawing and may carry a layer.
var geometryTables = []any{
	&model.LineAnnotation{},
	&model.PolylineAnnotation{},
	&model.RectangleAnnotation{},
	&model.PointAnnotation{},
	&model.TextAnnotation{},
}

// Dependencies holds everything the store needs.
type Dependencies struct {
	DB     *gorm.DB
	Logger *slog.Logger
}

// Store is a gorm-backed storage.Store.
type Store struct {
	db  *gorm.DB
	log *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// New creates a new gorm store.
func New(deps Dependencies) *Store {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Store{db: deps.DB, log: log}
}

// DB exposes the underlying connection for wrappers that need raw access.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Init migrates the schema.
func (s *Store) Init() error {
	if s.db == nil {
		return storage.Failed("init", errors.New("no database connection"))
	}
	if err := database.Migrate(s.db); err != nil {
		return storage.Failed("init", err)
	}
	s.log.Debug("GORM store initialized", "dialect", s.db.Dialector.Name())
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return storage.Failed("close", err)
	}
	return sqlDB.Close()
}

func (s *Store) tx(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// exists reports whether a row with the given id is present in table.
func exists(db *gorm.DB, table any, id core.ID) (bool, error) {
	var n int64
	if err := db.Model(table).Where("id = ?", id.String()).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func requireRow(db *gorm.DB, table any, kind core.Kind, id core.ID) error {
	ok, err := exists(db, table, id)
	if err != nil {
		return storage.Failed("lookup "+string(kind), err)
	}
	if !ok {
		return storage.NotFound(kind, id)
	}
	return nil
}

// requireOwners checks the drawing and optional layer an annotation points at.
func requireOwners(db *gorm.DB, drawingID core.ID, layerID *core.ID) error {
	if err := requireRow(db, &model.Drawing{}, core.KindDrawing, drawingID); err != nil {
		return err
	}
	if layerID != nil {
		return requireRow(db, &model.Layer{}, core.KindLayer, *layerID)
	}
	return nil
}

// find loads rows matching query and converts them to core records.
func find[R any, T any](db *gorm.DB, op, order string, conv func(R) (T, error), query string, args ...any) ([]T, error) {
	var rows []R
	q := db
	if query != "" {
		q = q.Where(query, args...)
	}
	if order != "" {
		q = q.Order(order)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, storage.Failed(op, err)
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		rec, err := conv(row)
		if err != nil {
			return nil, storage.Failed(op, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// first loads a single row by id.
func first[R any, T any](db *gorm.DB, kind core.Kind, id core.ID, conv func(R) (T, error)) (T, error) {
	var row R
	var zero T
	err := db.Where("id = ?", id.String()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return zero, storage.NotFound(kind, id)
	}
	if err != nil {
		return zero, storage.Failed("load "+string(kind), err)
	}
	rec, err := conv(row)
	if err != nil {
		return zero, storage.Failed("load "+string(kind), err)
	}
	return rec, nil
}

// remove deletes a single row by id, failing with core.ErrNotFound if nothing matched.
func remove(db *gorm.DB, table any, kind core.Kind, id core.ID) error {
	res := db.Where("id = ?", id.String()).Delete(table)
	if res.Error != nil {
		return storage.Failed("delete "+string(kind), res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.NotFound(kind, id)
	}
	return nil
}

// insertAnnotation checks ownership and inserts row inside one transaction.
func (s *Store) insertAnnotation(ctx context.Context, kind core.Kind, drawingID core.ID, layerID *core.ID, row any) error {
	return s.tx(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireOwners(tx, drawingID, layerID); err != nil {
			return err
		}
		if err := tx.Create(row).Error; err != nil {
			return storage.Failed("save "+string(kind), err)
		}
		return nil
	})
}

////////////////////////
// PROJECTS
////////////////////////

// SaveProject inserts or updates a project.
func (s *Store) SaveProject(ctx context.Context, p core.Project) error {
	row, err := convert.CoreToProject(p)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrValidation, err)
	}
	if err := s.tx(ctx).Save(&row).Error; err != nil {
		return storage.Failed("save project", err)
	}
	return nil
}

// LoadProjects returns every project, oldest first.
func (s *Store) LoadProjects(ctx context.Context) ([]core.Project, error) {
	return find(s.tx(ctx), "load projects", "created_at", convert.ProjectToCore, "")
}

// LoadProject returns one project.
func (s *Store) LoadProject(ctx context.Context, id core.ID) (core.Project, error) {
	return first(s.tx(ctx), core.KindProject, id, convert.ProjectToCore)
}

// DeleteProject removes the project with its drawings, layers and audio notes.
func (s *Store) DeleteProject(ctx context.Context, id core.ID) error {
	return s.tx(ctx).Transaction(func(tx *gorm.DB) error {
		var drawingIDs []string
		if err := tx.Model(&model.Drawing{}).Where("project_id = ?", id.String()).Pluck("id", &drawingIDs).Error; err != nil {
			return storage.Failed("delete project", err)
		}
		if err := deleteDrawingContents(tx, drawingIDs); err != nil {
			return err
		}
		for _, table := range []any{&model.Drawing{}, &model.Layer{}, &model.AudioNote{}} {
			if err := tx.Where("project_id = ?", id.String()).Delete(table).Error; err != nil {
				return storage.Failed("delete project", err)
			}
		}
		return remove(tx, &model.Project{}, core.KindProject, id)
	})
}

////////////////////////
// DRAWINGS
////////////////////////

// SaveDrawing inserts or updates a drawing. The owning project must exist.
func (s *Store) SaveDrawing(ctx context.Context, d core.Drawing) error {
	row := convert.CoreToDrawing(d)
	return s.tx(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireRow(tx, &model.Project{}, core.KindProject, d.ProjectID); err != nil {
			return err
		}
		if err := tx.Save(&row).Error; err != nil {
			return storage.Failed("save drawing", err)
		}
		return nil
	})
}

// LoadDrawings returns the drawings of a project, oldest first.
func (s *Store) LoadDrawings(ctx context.Context, projectID core.ID) ([]core.Drawing, error) {
	return find(s.tx(ctx), "load drawings", "created_at", convert.DrawingToCore, "project_id = ?", projectID.String())
}

// LoadDrawing returns one drawing.
func (s *Store) LoadDrawing(ctx context.Context, id core.ID) (core.Drawing, error) {
	return first(s.tx(ctx), core.KindDrawing, id, convert.DrawingToCore)
}

// DeleteDrawing removes the drawing and every annotation that references it.
func (s *Store) DeleteDrawing(ctx context.Context, id core.ID) error {
	return s.tx(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteDrawingContents(tx, []string{id.String()}); err != nil {
			return err
		}
		return remove(tx, &model.Drawing{}, core.KindDrawing, id)
	})
}

func deleteDrawingContents(tx *gorm.DB, drawingIDs []string) error {
	if len(drawingIDs) == 0 {
		return nil
	}
	tables := append([]any{&model.PhotoMarker{}}, geometryTables...)
	for _, table := range tables {
		if err := tx.Where("drawing_id IN ?", drawingIDs).Delete(table).Error; err != nil {
			return storage.Failed("delete drawing contents", err)
		}
	}
	return nil
}

// SetServerID records the backend identity of a synced project or drawing.
func (s *Store) SetServerID(ctx context.Context, kind core.Kind, id core.ID, serverID string) error {
	var table any
	switch kind {
	case core.KindProject:
		table = &model.Project{}
	case core.KindDrawing:
		table = &model.Drawing{}
	default:
		return fmt.Errorf("%w: %s has no server id", core.ErrValidation, kind)
	}
	res := s.tx(ctx).Model(table).Where("id = ?", id.String()).Update("server_id", serverID)
	if res.Error != nil {
		return storage.Failed("set server id", res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.NotFound(kind, id)
	}
	return nil
}

////////////////////////
// LAYERS
////////////////////////

// SaveLayer inserts or updates a layer. The owning project must exist.
func (s *Store) SaveLayer(ctx context.Context, l core.Layer) error {
	row := convert.CoreToLayer(l)
	return s.tx(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireRow(tx, &model.Project{}, core.KindProject, l.ProjectID); err != nil {
			return err
		}
		if err := tx.Save(&row).Error; err != nil {
			return storage.Failed("save layer", err)
		}
		return nil
	})
}

// LoadLayers returns the layers of a project ordered by name.
func (s *Store) LoadLayers(ctx context.Context, projectID core.ID) ([]core.Layer, error) {
	return find(s.tx(ctx), "load layers", "name", convert.LayerToCore, "project_id = ?", projectID.String())
}

// DeleteLayer removes the layer and every annotation tagged with it in one transaction.
func (s *Store) DeleteLayer(ctx context.Context, id core.ID) error {
	return s.tx(ctx).Transaction(func(tx *gorm.DB) error {
		for _, table := range geometryTables {
			if err := tx.Where("layer_id = ?", id.String()).Delete(table).Error; err != nil {
				return storage.Failed("delete layer", err)
			}
		}
		return remove(tx, &model.Layer{}, core.KindLayer, id)
	})
}

////////////////////////
// GEOMETRY
////////////////////////

// SaveLine persists a new line.
func (s *Store) SaveLine(ctx context.Context, l core.Line) error {
	row := convert.CoreToLine(l)
	return s.insertAnnotation(ctx, core.KindLine, l.DrawingID, l.LayerID, &row)
}

// LoadLines returns the lines of a drawing.
func (s *Store) LoadLines(ctx context.Context, drawingID core.ID) ([]core.Line, error) {
	return find(s.tx(ctx), "load lines", "", convert.LineToCore, "drawing_id = ?", drawingID.String())
}

// DeleteLine removes one line.
func (s *Store) DeleteLine(ctx context.Context, id core.ID) error {
	return remove(s.tx(ctx), &model.LineAnnotation{}, core.KindLine, id)
}

// SavePolyline persists a new polyline after checking its point invariants.
func (s *Store) SavePolyline(ctx context.Context, p core.Polyline) error {
	if err := p.Validate(); err != nil {
		return err
	}
	row := convert.CoreToPolyline(p)
	return s.insertAnnotation(ctx, core.KindPolyline, p.DrawingID, p.LayerID, &row)
}

// LoadPolylines returns the polylines of a drawing.
func (s *Store) LoadPolylines(ctx context.Context, drawingID core.ID) ([]core.Polyline, error) {
	return find(s.tx(ctx), "load polylines", "", convert.PolylineToCore, "drawing_id = ?", drawingID.String())
}

// DeletePolyline removes one polyline.
func (s *Store) DeletePolyline(ctx context.Context, id core.ID) error {
	return remove(s.tx(ctx), &model.PolylineAnnotation{}, core.KindPolyline, id)
}

// SaveRectangle persists a new rectangle.
func (s *Store) SaveRectangle(ctx context.Context, r core.Rectangle) error {
	row := convert.CoreToRectangle(r)
	return s.insertAnnotation(ctx, core.KindRectangle, r.DrawingID, r.LayerID, &row)
}

// LoadRectangles returns the rectangles of a drawing.
func (s *Store) LoadRectangles(ctx context.Context, drawingID core.ID) ([]core.Rectangle, error) {
	return find(s.tx(ctx), "load rectangles", "", convert.RectangleToCore, "drawing_id = ?", drawingID.String())
}

// DeleteRectangle removes one rectangle.
func (s *Store) DeleteRectangle(ctx context.Context, id core.ID) error {
	return remove(s.tx(ctx), &model.RectangleAnnotation{}, core.KindRectangle, id)
}

// SavePoint persists a new point marker.
func (s *Store) SavePoint(ctx context.Context, p core.PointMarker) error {
	row := convert.CoreToPoint(p)
	return s.insertAnnotation(ctx, core.KindPoint, p.DrawingID, p.LayerID, &row)
}

// LoadPoints returns the point markers of a drawing.
func (s *Store) LoadPoints(ctx context.Context, drawingID core.ID) ([]core.PointMarker, error) {
	return find(s.tx(ctx), "load points", "", convert.PointToCore, "drawing_id = ?", drawingID.String())
}

// DeletePoint removes one point marker.
func (s *Store) DeletePoint(ctx context.Context, id core.ID) error {
	return remove(s.tx(ctx), &model.PointAnnotation{}, core.KindPoint, id)
}

// SaveText persists a new text label.
func (s *Store) SaveText(ctx context.Context, t core.Text) error {
	if t.Content == "" {
		return fmt.Errorf("%w: empty text", core.ErrValidation)
	}
	row := convert.CoreToText(t)
	return s.insertAnnotation(ctx, core.KindText, t.DrawingID, t.LayerID, &row)
}

// LoadTexts returns the text labels of a drawing.
func (s *Store) LoadTexts(ctx context.Context, drawingID core.ID) ([]core.Text, error) {
	return find(s.tx(ctx), "load texts", "", convert.TextToCore, "drawing_id = ?", drawingID.String())
}

// DeleteText removes one text label.
func (s *Store) DeleteText(ctx context.Context, id core.ID) error {
	return remove(s.tx(ctx), &model.TextAnnotation{}, core.KindText, id)
}

////////////////////////
// PHOTOS
////////////////////////

// SavePhoto inserts a marker or replaces it in place (retake).
func (s *Store) SavePhoto(ctx context.Context, p core.PhotoMarker) error {
	row := convert.CoreToPhoto(p)
	return s.tx(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireRow(tx, &model.Drawing{}, core.KindDrawing, p.DrawingID); err != nil {
			return err
		}
		if p.ParentID != nil {
			if err := requireRow(tx, &model.PhotoMarker{}, core.KindPhoto, *p.ParentID); err != nil {
				return err
			}
		}
		if err := tx.Save(&row).Error; err != nil {
			return storage.Failed("save photo", err)
		}
		return nil
	})
}

// LoadPhotos returns every photo of a drawing ordered by sequence.
func (s *Store) LoadPhotos(ctx context.Context, drawingID core.ID) ([]core.PhotoMarker, error) {
	return find(s.tx(ctx), "load photos", "sequence", convert.PhotoToCore, "drawing_id = ?", drawingID.String())
}

// LoadPhoto returns one photo.
func (s *Store) LoadPhoto(ctx context.Context, id core.ID) (core.PhotoMarker, error) {
	return first(s.tx(ctx), core.KindPhoto, id, convert.PhotoToCore)
}

// DeletePhoto removes one photo record. Group bookkeeping is the caller's job.
func (s *Store) DeletePhoto(ctx context.Context, id core.ID) error {
	return remove(s.tx(ctx), &model.PhotoMarker{}, core.KindPhoto, id)
}

// NextSequenceNumber returns the highest sequence on the drawing plus one.
func (s *Store) NextSequenceNumber(ctx context.Context, drawingID core.ID) (int, error) {
	var maxSeq sql.NullInt64
	err := s.tx(ctx).Model(&model.PhotoMarker{}).
		Where("drawing_id = ?", drawingID.String()).
		Select("MAX(sequence)").
		Scan(&maxSeq).Error
	if err != nil {
		return 0, storage.Failed("next sequence", err)
	}
	if !maxSeq.Valid {
		return 1, nil
	}
	return int(maxSeq.Int64) + 1, nil
}

// LoadGroup returns the group markerID belongs to, ordered by sequence.
func (s *Store) LoadGroup(ctx context.Context, markerID core.ID) ([]core.PhotoMarker, error) {
	db := s.tx(ctx)
	marker, err := first(db, core.KindPhoto, markerID, convert.PhotoToCore)
	if err != nil {
		return nil, err
	}
	head := marker.ID
	if marker.ParentID != nil {
		head = *marker.ParentID
	}
	return find(db, "load group", "sequence", convert.PhotoToCore, "id = ? OR parent_id = ?", head.String(), head.String())
}

// ReplaceGroup deletes deleteID and writes updates atomically.
func (s *Store) ReplaceGroup(ctx context.Context, deleteID core.ID, updates []core.PhotoMarker) error {
	return s.tx(ctx).Transaction(func(tx *gorm.DB) error {
		if err := remove(tx, &model.PhotoMarker{}, core.KindPhoto, deleteID); err != nil {
			return err
		}
		for _, p := range updates {
			row := convert.CoreToPhoto(p)
			if err := tx.Save(&row).Error; err != nil {
				return storage.Failed("replace group", err)
			}
		}
		return nil
	})
}

////////////////////////
// AUDIO
////////////////////////

// SaveAudioNote persists an audio note. The owning project must exist.
func (s *Store) SaveAudioNote(ctx context.Context, a core.AudioNote) error {
	row := convert.CoreToAudioNote(a)
	return s.tx(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireRow(tx, &model.Project{}, core.KindProject, a.ProjectID); err != nil {
			return err
		}
		if err := tx.Create(&row).Error; err != nil {
			return storage.Failed("save audio note", err)
		}
		return nil
	})
}

// LoadAudioNotes returns the audio notes of a project, oldest first.
func (s *Store) LoadAudioNotes(ctx context.Context, projectID core.ID) ([]core.AudioNote, error) {
	return find(s.tx(ctx), "load audio notes", "recorded_at", convert.AudioNoteToCore, "project_id = ?", projectID.String())
}

// DeleteAudioNote removes one audio note.
func (s *Store) DeleteAudioNote(ctx context.Context, id core.ID) error {
	return remove(s.tx(ctx), &model.AudioNote{}, core.KindAudio, id)
}
