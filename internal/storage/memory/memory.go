// Package memory implements storage.Store with in-process maps. It backs tests and
// the CLI's --ephemeral sessions and mirrors the GORM store's semantics.
package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sitewalk/planmark/internal/storage"
	"github.com/sitewalk/planmark/pkg/core"
)

var errDuplicate = errors.New("duplicate id")

// table keeps records keyed by id in insertion order.
type table[T any] struct {
	rows  map[core.ID]T
	order []core.ID
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[core.ID]T)}
}

func (t *table[T]) put(id core.ID, v T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = v
}

func (t *table[T]) has(id core.ID) bool {
	_, ok := t.rows[id]
	return ok
}

func (t *table[T]) get(id core.ID) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

func (t *table[T]) remove(id core.ID) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	t.order = slices.DeleteFunc(t.order, func(other core.ID) bool { return other == id })
	return true
}

// filter returns matching records in insertion order.
func (t *table[T]) filter(match func(T) bool) []T {
	out := make([]T, 0)
	for _, id := range t.order {
		if v := t.rows[id]; match(v) {
			out = append(out, v)
		}
	}
	return out
}

func (t *table[T]) removeWhere(match func(T) bool) {
	for _, id := range slices.Clone(t.order) {
		if match(t.rows[id]) {
			t.remove(id)
		}
	}
}

// Store holds every record in memory.
type Store struct {
	projects   *table[core.Project]
	drawings   *table[core.Drawing]
	layers     *table[core.Layer]
	lines      *table[core.Line]
	polylines  *table[core.Polyline]
	rectangles *table[core.Rectangle]
	points     *table[core.PointMarker]
	texts      *table[core.Text]
	photos     *table[core.PhotoMarker]
	audio      *table[core.AudioNote]

	mu sync.RWMutex
}

var _ storage.Store = (*Store)(nil)

// New creates an empty memory store.
func New() *Store {
	return &Store{
		projects:   newTable[core.Project](),
		drawings:   newTable[core.Drawing](),
		layers:     newTable[core.Layer](),
		lines:      newTable[core.Line](),
		polylines:  newTable[core.Polyline](),
		rectangles: newTable[core.Rectangle](),
		points:     newTable[core.PointMarker](),
		texts:      newTable[core.Text](),
		photos:     newTable[core.PhotoMarker](),
		audio:      newTable[core.AudioNote](),
	}
}

// Init is a no-op.
func (s *Store) Init() error {
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func onLayer(id core.ID) func(layerID *core.ID) bool {
	return func(layerID *core.ID) bool { return layerID != nil && *layerID == id }
}

func cloneID(id *core.ID) *core.ID {
	if id == nil {
		return nil
	}
	return core.IDPtr(*id)
}

// requireOwners checks the drawing and optional layer an annotation points at. Caller holds mu.
func (s *Store) requireOwners(drawingID core.ID, layerID *core.ID) error {
	if !s.drawings.has(drawingID) {
		return storage.NotFound(core.KindDrawing, drawingID)
	}
	if layerID != nil && !s.layers.has(*layerID) {
		return storage.NotFound(core.KindLayer, *layerID)
	}
	return nil
}

// insert adds an annotation after ownership checks.
func insert[T any](s *Store, t *table[T], kind core.Kind, id, drawingID core.ID, layerID *core.ID, v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireOwners(drawingID, layerID); err != nil {
		return err
	}
	if t.has(id) {
		return storage.Failed("save "+string(kind), fmt.Errorf("%w: %s", errDuplicate, id))
	}
	t.put(id, v)
	return nil
}

func load[T any](s *Store, t *table[T], match func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return t.filter(match)
}

func drop[T any](s *Store, t *table[T], kind core.Kind, id core.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !t.remove(id) {
		return storage.NotFound(kind, id)
	}
	return nil
}

////////////////////////
// PROJECTS
////////////////////////

// SaveProject inserts or updates a project.
func (s *Store) SaveProject(_ context.Context, p core.Project) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.Site != nil {
		site := *p.Site
		p.Site = &site
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects.put(p.ID, p)
	return nil
}

// LoadProjects returns every project, oldest first.
func (s *Store) LoadProjects(_ context.Context) ([]core.Project, error) {
	out := load(s, s.projects, func(core.Project) bool { return true })
	slices.SortStableFunc(out, func(a, b core.Project) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

// LoadProject returns one project.
func (s *Store) LoadProject(_ context.Context, id core.ID) (core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects.get(id)
	if !ok {
		return core.Project{}, storage.NotFound(core.KindProject, id)
	}
	return p, nil
}

// DeleteProject removes the project with its drawings, layers and audio notes.
func (s *Store) DeleteProject(_ context.Context, id core.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.projects.has(id) {
		return storage.NotFound(core.KindProject, id)
	}
	for _, d := range s.drawings.filter(func(d core.Drawing) bool { return d.ProjectID == id }) {
		s.deleteDrawingContents(d.ID)
		s.drawings.remove(d.ID)
	}
	s.layers.removeWhere(func(l core.Layer) bool { return l.ProjectID == id })
	s.audio.removeWhere(func(a core.AudioNote) bool { return a.ProjectID == id })
	s.projects.remove(id)
	return nil
}

////////////////////////
// DRAWINGS
////////////////////////

// SaveDrawing inserts or updates a drawing. The owning project must exist.
func (s *Store) SaveDrawing(_ context.Context, d core.Drawing) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.projects.has(d.ProjectID) {
		return storage.NotFound(core.KindProject, d.ProjectID)
	}
	s.drawings.put(d.ID, d)
	return nil
}

// LoadDrawings returns the drawings of a project, oldest first.
func (s *Store) LoadDrawings(_ context.Context, projectID core.ID) ([]core.Drawing, error) {
	out := load(s, s.drawings, func(d core.Drawing) bool { return d.ProjectID == projectID })
	slices.SortStableFunc(out, func(a, b core.Drawing) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

// LoadDrawing returns one drawing.
func (s *Store) LoadDrawing(_ context.Context, id core.ID) (core.Drawing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drawings.get(id)
	if !ok {
		return core.Drawing{}, storage.NotFound(core.KindDrawing, id)
	}
	return d, nil
}

// DeleteDrawing removes the drawing and every annotation that references it.
func (s *Store) DeleteDrawing(_ context.Context, id core.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.drawings.has(id) {
		return storage.NotFound(core.KindDrawing, id)
	}
	s.deleteDrawingContents(id)
	s.drawings.remove(id)
	return nil
}

// deleteDrawingContents drops every record of a drawing. Caller holds mu.
func (s *Store) deleteDrawingContents(id core.ID) {
	s.lines.removeWhere(func(v core.Line) bool { return v.DrawingID == id })
	s.polylines.removeWhere(func(v core.Polyline) bool { return v.DrawingID == id })
	s.rectangles.removeWhere(func(v core.Rectangle) bool { return v.DrawingID == id })
	s.points.removeWhere(func(v core.PointMarker) bool { return v.DrawingID == id })
	s.texts.removeWhere(func(v core.Text) bool { return v.DrawingID == id })
	s.photos.removeWhere(func(v core.PhotoMarker) bool { return v.DrawingID == id })
}

// SetServerID records the backend identity of a synced project or drawing.
func (s *Store) SetServerID(_ context.Context, kind core.Kind, id core.ID, serverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case core.KindProject:
		p, ok := s.projects.get(id)
		if !ok {
			return storage.NotFound(kind, id)
		}
		p.ServerID = serverID
		s.projects.put(id, p)
	case core.KindDrawing:
		d, ok := s.drawings.get(id)
		if !ok {
			return storage.NotFound(kind, id)
		}
		d.ServerID = serverID
		s.drawings.put(id, d)
	default:
		return fmt.Errorf("%w: %s has no server id", core.ErrValidation, kind)
	}
	return nil
}

////////////////////////
// LAYERS
////////////////////////

// SaveLayer inserts or updates a layer. The owning project must exist.
func (s *Store) SaveLayer(_ context.Context, l core.Layer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.projects.has(l.ProjectID) {
		return storage.NotFound(core.KindProject, l.ProjectID)
	}
	s.layers.put(l.ID, l)
	return nil
}

// LoadLayers returns the layers of a project ordered by name.
func (s *Store) LoadLayers(_ context.Context, projectID core.ID) ([]core.Layer, error) {
	out := load(s, s.layers, func(l core.Layer) bool { return l.ProjectID == projectID })
	slices.SortStableFunc(out, func(a, b core.Layer) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

// DeleteLayer removes the layer and every annotation tagged with it. The lock makes
// the cascade atomic with respect to other callers.
func (s *Store) DeleteLayer(_ context.Context, id core.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.layers.has(id) {
		return storage.NotFound(core.KindLayer, id)
	}
	tagged := onLayer(id)
	s.lines.removeWhere(func(v core.Line) bool { return tagged(v.LayerID) })
	s.polylines.removeWhere(func(v core.Polyline) bool { return tagged(v.LayerID) })
	s.rectangles.removeWhere(func(v core.Rectangle) bool { return tagged(v.LayerID) })
	s.points.removeWhere(func(v core.PointMarker) bool { return tagged(v.LayerID) })
	s.texts.removeWhere(func(v core.Text) bool { return tagged(v.LayerID) })
	s.layers.remove(id)
	return nil
}

////////////////////////
// GEOMETRY
////////////////////////

// SaveLine persists a new line.
func (s *Store) SaveLine(_ context.Context, l core.Line) error {
	l.LayerID = cloneID(l.LayerID)
	return insert(s, s.lines, core.KindLine, l.ID, l.DrawingID, l.LayerID, l)
}

// LoadLines returns the lines of a drawing.
func (s *Store) LoadLines(_ context.Context, drawingID core.ID) ([]core.Line, error) {
	return load(s, s.lines, func(v core.Line) bool { return v.DrawingID == drawingID }), nil
}

// DeleteLine removes one line.
func (s *Store) DeleteLine(_ context.Context, id core.ID) error {
	return drop(s, s.lines, core.KindLine, id)
}

// SavePolyline persists a new polyline after checking its point invariants.
func (s *Store) SavePolyline(_ context.Context, p core.Polyline) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.LayerID = cloneID(p.LayerID)
	p.Points = slices.Clone(p.Points)
	return insert(s, s.polylines, core.KindPolyline, p.ID, p.DrawingID, p.LayerID, p)
}

// LoadPolylines returns the polylines of a drawing.
func (s *Store) LoadPolylines(_ context.Context, drawingID core.ID) ([]core.Polyline, error) {
	out := load(s, s.polylines, func(v core.Polyline) bool { return v.DrawingID == drawingID })
	for i := range out {
		out[i].Points = slices.Clone(out[i].Points)
	}
	return out, nil
}

// DeletePolyline removes one polyline.
func (s *Store) DeletePolyline(_ context.Context, id core.ID) error {
	return drop(s, s.polylines, core.KindPolyline, id)
}

// SaveRectangle persists a new rectangle.
func (s *Store) SaveRectangle(_ context.Context, r core.Rectangle) error {
	r.LayerID = cloneID(r.LayerID)
	return insert(s, s.rectangles, core.KindRectangle, r.ID, r.DrawingID, r.LayerID, r)
}

// LoadRectangles returns the rectangles of a drawing.
func (s *Store) LoadRectangles(_ context.Context, drawingID core.ID) ([]core.Rectangle, error) {
	return load(s, s.rectangles, func(v core.Rectangle) bool { return v.DrawingID == drawingID }), nil
}

// DeleteRectangle removes one rectangle.
func (s *Store) DeleteRectangle(_ context.Context, id core.ID) error {
	return drop(s, s.rectangles, core.KindRectangle, id)
}

// SavePoint persists a new point marker.
func (s *Store) SavePoint(_ context.Context, p core.PointMarker) error {
	p.LayerID = cloneID(p.LayerID)
	return insert(s, s.points, core.KindPoint, p.ID, p.DrawingID, p.LayerID, p)
}

// LoadPoints returns the point markers of a drawing.
func (s *Store) LoadPoints(_ context.Context, drawingID core.ID) ([]core.PointMarker, error) {
	return load(s, s.points, func(v core.PointMarker) bool { return v.DrawingID == drawingID }), nil
}

// DeletePoint removes one point marker.
func (s *Store) DeletePoint(_ context.Context, id core.ID) error {
	return drop(s, s.points, core.KindPoint, id)
}

// SaveText persists a new text label.
func (s *Store) SaveText(_ context.Context, t core.Text) error {
	if t.Content == "" {
		return fmt.Errorf("%w: empty text", core.ErrValidation)
	}
	t.LayerID = cloneID(t.LayerID)
	return insert(s, s.texts, core.KindText, t.ID, t.DrawingID, t.LayerID, t)
}

// LoadTexts returns the text labels of a drawing.
func (s *Store) LoadTexts(_ context.Context, drawingID core.ID) ([]core.Text, error) {
	return load(s, s.texts, func(v core.Text) bool { return v.DrawingID == drawingID }), nil
}

// DeleteText removes one text label.
func (s *Store) DeleteText(_ context.Context, id core.ID) error {
	return drop(s, s.texts, core.KindText, id)
}

////////////////////////
// PHOTOS
////////////////////////

func clonePhoto(p core.PhotoMarker) core.PhotoMarker {
	p.Image = slices.Clone(p.Image)
	p.ParentID = cloneID(p.ParentID)
	return p
}

func bySequence(a, b core.PhotoMarker) int {
	return cmp.Compare(a.Sequence, b.Sequence)
}

// SavePhoto inserts a marker or replaces it in place (retake).
func (s *Store) SavePhoto(_ context.Context, p core.PhotoMarker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.drawings.has(p.DrawingID) {
		return storage.NotFound(core.KindDrawing, p.DrawingID)
	}
	if p.ParentID != nil && !s.photos.has(*p.ParentID) {
		return storage.NotFound(core.KindPhoto, *p.ParentID)
	}
	s.photos.put(p.ID, clonePhoto(p))
	return nil
}

// LoadPhotos returns every photo of a drawing ordered by sequence.
func (s *Store) LoadPhotos(_ context.Context, drawingID core.ID) ([]core.PhotoMarker, error) {
	out := load(s, s.photos, func(v core.PhotoMarker) bool { return v.DrawingID == drawingID })
	for i := range out {
		out[i] = clonePhoto(out[i])
	}
	slices.SortStableFunc(out, bySequence)
	return out, nil
}

// LoadPhoto returns one photo.
func (s *Store) LoadPhoto(_ context.Context, id core.ID) (core.PhotoMarker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.photos.get(id)
	if !ok {
		return core.PhotoMarker{}, storage.NotFound(core.KindPhoto, id)
	}
	return clonePhoto(p), nil
}

// DeletePhoto removes one photo record. Group bookkeeping is the caller's job.
func (s *Store) DeletePhoto(_ context.Context, id core.ID) error {
	return drop(s, s.photos, core.KindPhoto, id)
}

// NextSequenceNumber returns the highest sequence on the drawing plus one.
func (s *Store) NextSequenceNumber(_ context.Context, drawingID core.ID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	next := 1
	for _, p := range s.photos.filter(func(v core.PhotoMarker) bool { return v.DrawingID == drawingID }) {
		next = max(next, p.Sequence+1)
	}
	return next, nil
}

// LoadGroup returns the group markerID belongs to, ordered by sequence.
func (s *Store) LoadGroup(_ context.Context, markerID core.ID) ([]core.PhotoMarker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	marker, ok := s.photos.get(markerID)
	if !ok {
		return nil, storage.NotFound(core.KindPhoto, markerID)
	}
	head := marker.ID
	if marker.ParentID != nil {
		head = *marker.ParentID
	}
	out := s.photos.filter(func(v core.PhotoMarker) bool {
		return v.ID == head || (v.ParentID != nil && *v.ParentID == head)
	})
	for i := range out {
		out[i] = clonePhoto(out[i])
	}
	slices.SortStableFunc(out, bySequence)
	return out, nil
}

// ReplaceGroup deletes deleteID and writes updates atomically.
func (s *Store) ReplaceGroup(_ context.Context, deleteID core.ID, updates []core.PhotoMarker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.photos.remove(deleteID) {
		return storage.NotFound(core.KindPhoto, deleteID)
	}
	for _, p := range updates {
		s.photos.put(p.ID, clonePhoto(p))
	}
	return nil
}

////////////////////////
// AUDIO
////////////////////////

// SaveAudioNote persists an audio note. The owning project must exist.
func (s *Store) SaveAudioNote(_ context.Context, a core.AudioNote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.projects.has(a.ProjectID) {
		return storage.NotFound(core.KindProject, a.ProjectID)
	}
	if s.audio.has(a.ID) {
		return storage.Failed("save audio note", fmt.Errorf("%w: %s", errDuplicate, a.ID))
	}
	a.Data = slices.Clone(a.Data)
	s.audio.put(a.ID, a)
	return nil
}

// LoadAudioNotes returns the audio notes of a project, oldest first.
func (s *Store) LoadAudioNotes(_ context.Context, projectID core.ID) ([]core.AudioNote, error) {
	out := load(s, s.audio, func(v core.AudioNote) bool { return v.ProjectID == projectID })
	for i := range out {
		out[i].Data = slices.Clone(out[i].Data)
	}
	slices.SortStableFunc(out, func(a, b core.AudioNote) int { return a.RecordedAt.Compare(b.RecordedAt) })
	return out, nil
}

// DeleteAudioNote removes one audio note.
func (s *Store) DeleteAudioNote(_ context.Context, id core.ID) error {
	return drop(s, s.audio, core.KindAudio, id)
}
