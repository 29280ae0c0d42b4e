// Package editor is the annotation canvas controller: one interaction mode at a
// time, screen taps mapped to content space, records committed to the store and
// rendered back as scene handles.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sitewalk/planmark/internal/layers"
	"github.com/sitewalk/planmark/internal/logging"
	"github.com/sitewalk/planmark/internal/photo"
	"github.com/sitewalk/planmark/internal/storage"
	"github.com/sitewalk/planmark/pkg/core"
)

// DefaultHitThreshold is the eraser radius in content units.
const DefaultHitThreshold = 50.0

// Options tune a session.
type Options struct {
	HitThreshold float64
	MinZoom      float64
	MaxZoom      float64
	NoticeBuffer int
}

// DefaultOptions returns the stock editor tuning.
func DefaultOptions() Options {
	return Options{HitThreshold: DefaultHitThreshold, MinZoom: 0.25, MaxZoom: 8, NoticeBuffer: 16}
}

// Dependencies are the collaborators of a session. Layers and Photos are created
// from Store when nil.
type Dependencies struct {
	Store    storage.Store
	Layers   *layers.Registry
	Photos   *photo.Controller
	Prompt   TextPrompt
	Camera   Camera
	Observer Observer
	Logger   *slog.Logger
}

// Outcome reports what a tap or control did.
type Outcome struct {
	Action Action
	Kind   core.Kind
	ID     core.ID
}

// Session is the editing state of one open drawing. It is driven from a single
// goroutine; store calls are made synchronously from the handlers.
type Session struct {
	drawing  core.Drawing
	store    storage.Store
	layers   *layers.Registry
	photos   *photo.Controller
	prompt   TextPrompt
	camera   Camera
	observer Observer
	log      *slog.Logger
	opts     Options
	now      func() time.Time

	mode     Mode
	anchor   *core.Point  // first tap of a line or rectangle
	path     []core.Point // polyline in progress
	viewport *Viewport
	scene    *Scene
	notices  chan Notice
	ioError  bool
}

// NewSession opens drawing for editing and renders its stored annotations.
func NewSession(ctx context.Context, drawing core.Drawing, deps Dependencies, opts Options) (*Session, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("%w: session needs a store", core.ErrValidation)
	}
	if opts.HitThreshold <= 0 {
		opts.HitThreshold = DefaultHitThreshold
	}
	if opts.NoticeBuffer <= 0 {
		opts.NoticeBuffer = DefaultOptions().NoticeBuffer
	}
	base := deps.Logger
	if base == nil {
		base = slog.Default()
	}

	s := &Session{
		drawing:  drawing,
		store:    deps.Store,
		layers:   deps.Layers,
		photos:   deps.Photos,
		prompt:   deps.Prompt,
		camera:   deps.Camera,
		observer: deps.Observer,
		opts:     opts,
		now:      time.Now,
		viewport: NewViewport(opts.MinZoom, opts.MaxZoom),
		scene:    NewScene(),
		notices:  make(chan Notice, opts.NoticeBuffer),
	}
	s.log = slog.New(logging.NewContextHandler(base.Handler(), func() []slog.Attr {
		return []slog.Attr{slog.String("mode", s.mode.String())}
	})).With("drawing", drawing.ID.String())

	if s.layers == nil {
		s.layers = layers.New(s.store, drawing.ProjectID, base)
	}
	if s.photos == nil {
		s.photos = photo.New(s.store, drawing.ID, base)
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Drawing returns the drawing being edited.
func (s *Session) Drawing() core.Drawing { return s.drawing }

// Layers returns the session's layer registry.
func (s *Session) Layers() *layers.Registry { return s.layers }

// Photos returns the session's photo controller.
func (s *Session) Photos() *photo.Controller { return s.photos }

// Viewport returns the view transform.
func (s *Session) Viewport() *Viewport { return s.viewport }

// Scene returns the rendered handles.
func (s *Session) Scene() *Scene { return s.scene }

// Notices delivers dropped-commit notices. Notices are discarded when nobody reads.
func (s *Session) Notices() <-chan Notice { return s.notices }

// IOErrorFlag reports whether camera or file access failed since the last clear.
func (s *Session) IOErrorFlag() bool { return s.ioError }

// ClearIOError resets the flag once the user has seen it.
func (s *Session) ClearIOError() { s.ioError = false }

// Mode returns the active mode.
func (s *Session) Mode() Mode { return s.mode }

// Enter activates mode. Construction state of the previous mode is discarded.
func (s *Session) Enter(mode Mode) {
	if mode == ModeIdle {
		s.Leave()
		return
	}
	s.reset()
	s.mode = mode
	s.log.Debug("Mode entered")
}

// Leave returns to Idle and re-enables every mode.
func (s *Session) Leave() {
	s.reset()
	s.mode = ModeIdle
}

// Enabled reports whether the affordance for mode is interactive. While a mode is
// active every other mode is disabled.
func (s *Session) Enabled(mode Mode) bool {
	return s.mode == ModeIdle || mode == ModeIdle || mode == s.mode
}

func (s *Session) reset() {
	s.anchor = nil
	s.path = nil
}

// Tap handles a tap at a screen coordinate.
func (s *Session) Tap(ctx context.Context, screen core.Point) (Outcome, error) {
	return s.TapContent(ctx, s.viewport.ToContent(screen))
}

// TapContent handles a tap already in content space.
func (s *Session) TapContent(ctx context.Context, p core.Point) (Outcome, error) {
	switch s.mode {
	case ModeLine:
		return s.tapLine(ctx, p)
	case ModePoint:
		return s.tapPoint(ctx, p)
	case ModePolyline:
		s.path = append(s.path, p)
		return Outcome{Action: ActionPending, Kind: core.KindPolyline}, nil
	case ModeText:
		return s.tapText(ctx, p)
	case ModeRectangle:
		return s.tapRectangle(ctx, p)
	case ModePhotoPlacement:
		return s.tapPhoto(ctx, p)
	case ModeEraser:
		return s.erase(ctx, p)
	default:
		return Outcome{Action: ActionNone}, nil
	}
}

func (s *Session) tapLine(ctx context.Context, p core.Point) (Outcome, error) {
	if s.anchor == nil {
		s.anchor = &p
		return Outcome{Action: ActionPending, Kind: core.KindLine}, nil
	}
	line := core.Line{
		ID:        core.NewID(),
		DrawingID: s.drawing.ID,
		LayerID:   s.layers.ActiveID(),
		Start:     *s.anchor,
		End:       p,
	}
	s.anchor = nil
	return s.commit(ctx, lineHandle(line, s.layers.ActiveColor()), func() error {
		return s.store.SaveLine(ctx, line)
	})
}

func (s *Session) tapPoint(ctx context.Context, p core.Point) (Outcome, error) {
	pt := core.PointMarker{
		ID:        core.NewID(),
		DrawingID: s.drawing.ID,
		LayerID:   s.layers.ActiveID(),
		Position:  p,
	}
	return s.commit(ctx, pointHandle(pt, s.layers.ActiveColor()), func() error {
		return s.store.SavePoint(ctx, pt)
	})
}

func (s *Session) tapRectangle(ctx context.Context, p core.Point) (Outcome, error) {
	if s.anchor == nil {
		s.anchor = &p
		return Outcome{Action: ActionPending, Kind: core.KindRectangle}, nil
	}
	rect := core.Rectangle{
		ID:        core.NewID(),
		DrawingID: s.drawing.ID,
		LayerID:   s.layers.ActiveID(),
		Bounds:    core.RectFromCorners(*s.anchor, p),
	}
	s.anchor = nil
	return s.commit(ctx, rectangleHandle(rect, s.layers.ActiveColor()), func() error {
		return s.store.SaveRectangle(ctx, rect)
	})
}

func (s *Session) tapText(ctx context.Context, p core.Point) (Outcome, error) {
	if s.prompt == nil {
		return Outcome{}, fmt.Errorf("%w: no text prompt configured", core.ErrIO)
	}
	content, ok, err := s.prompt.Prompt(ctx, p)
	if errors.Is(err, core.ErrCancelled) || (err == nil && !ok) {
		return Outcome{Action: ActionCancelled, Kind: core.KindText}, nil
	}
	if err != nil {
		return Outcome{}, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return Outcome{Action: ActionNone, Kind: core.KindText}, fmt.Errorf("%w: empty text", core.ErrValidation)
	}
	text := core.Text{
		ID:        core.NewID(),
		DrawingID: s.drawing.ID,
		LayerID:   s.layers.ActiveID(),
		Content:   content,
		Position:  p,
	}
	return s.commit(ctx, textHandle(text, s.layers.ActiveColor()), func() error {
		return s.store.SaveText(ctx, text)
	})
}

func (s *Session) tapPhoto(ctx context.Context, p core.Point) (Outcome, error) {
	id := s.photos.Place(p)
	image, out, err := s.shoot(ctx)
	if image == nil {
		s.photos.Cancel(id)
		return out, err
	}
	marker, err := s.photos.Capture(ctx, image, id, photo.RolePrimary)
	if err != nil {
		s.photos.Cancel(id)
		return s.fail(ctx, "capture", Handle{Kind: core.KindPhoto, ID: id}, err)
	}
	h := photoHandle(marker)
	s.scene.Add(h)
	s.emit(ctx, ActionCommitted, h)
	return Outcome{Action: ActionCommitted, Kind: core.KindPhoto, ID: marker.ID}, nil
}

// shoot runs the camera. A nil image means the capture did not happen and out
// describes why.
func (s *Session) shoot(ctx context.Context) ([]byte, Outcome, error) {
	if s.camera == nil {
		s.ioError = true
		return nil, Outcome{Action: ActionCancelled, Kind: core.KindPhoto}, nil
	}
	image, err := s.camera.Capture(ctx)
	switch {
	case errors.Is(err, core.ErrCancelled):
		return nil, Outcome{Action: ActionCancelled, Kind: core.KindPhoto}, nil
	case errors.Is(err, core.ErrIO):
		s.ioError = true
		s.log.WarnContext(ctx, "Camera unavailable", "error", err)
		return nil, Outcome{Action: ActionCancelled, Kind: core.KindPhoto}, nil
	case err != nil:
		return nil, Outcome{}, err
	case len(image) == 0:
		return nil, Outcome{Action: ActionCancelled, Kind: core.KindPhoto}, nil
	}
	return image, Outcome{}, nil
}

// AddPhoto captures another photo into the group of markerID.
func (s *Session) AddPhoto(ctx context.Context, markerID core.ID) (Outcome, error) {
	return s.recapture(ctx, markerID, photo.RoleAdd)
}

// RetakePhoto replaces the image of photo id in place.
func (s *Session) RetakePhoto(ctx context.Context, id core.ID) (Outcome, error) {
	return s.recapture(ctx, id, photo.RoleRetake)
}

// RetakePhotoAt replaces the image of photo id and moves its group to pos. The
// move is dropped when the camera is cancelled or the capture fails.
func (s *Session) RetakePhotoAt(ctx context.Context, id core.ID, pos core.Point) (Outcome, error) {
	s.photos.Reposition(id, pos)
	out, err := s.recapture(ctx, id, photo.RoleRetake)
	if out.Action != ActionCommitted {
		s.photos.Cancel(id)
		return out, err
	}
	group, err := s.photos.LoadGroup(ctx, id)
	if err != nil {
		return out, err
	}
	for _, m := range group {
		s.scene.Update(photoHandle(m))
	}
	return out, nil
}

func (s *Session) recapture(ctx context.Context, id core.ID, role photo.Role) (Outcome, error) {
	image, out, err := s.shoot(ctx)
	if image == nil {
		return out, err
	}
	marker, err := s.photos.Capture(ctx, image, id, role)
	if err != nil {
		return s.fail(ctx, role.String(), Handle{Kind: core.KindPhoto, ID: id}, err)
	}
	s.emit(ctx, ActionCommitted, Handle{Kind: core.KindPhoto, ID: marker.ID})
	return Outcome{Action: ActionCommitted, Kind: core.KindPhoto, ID: marker.ID}, nil
}

// DeletePhoto removes one photo from the viewer and re-renders. The promoted
// marker id is returned when a primary was deleted.
func (s *Session) DeletePhoto(ctx context.Context, id core.ID) (*core.ID, error) {
	promoted, err := s.photos.Delete(ctx, id)
	if err != nil {
		_, ferr := s.fail(ctx, "delete", Handle{Kind: core.KindPhoto, ID: id}, err)
		return nil, ferr
	}
	s.emit(ctx, ActionErased, Handle{Kind: core.KindPhoto, ID: id})
	return promoted, s.Reload(ctx)
}

// PolylineControls reports whether Cancel, Save and Close-loop are offered.
func (s *Session) PolylineControls() bool {
	return s.mode == ModePolyline && len(s.path) >= 2
}

// PolylinePreview returns the points of the polyline in progress.
func (s *Session) PolylinePreview() []core.Point {
	return slices.Clone(s.path)
}

// CancelPolyline discards the polyline in progress.
func (s *Session) CancelPolyline() {
	s.path = nil
}

// SavePolyline commits the points so far as an open polyline.
func (s *Session) SavePolyline(ctx context.Context) (Outcome, error) {
	return s.commitPolyline(ctx, false)
}

// ClosePolyline appends the first point and commits a closed polyline.
func (s *Session) ClosePolyline(ctx context.Context) (Outcome, error) {
	return s.commitPolyline(ctx, true)
}

func (s *Session) commitPolyline(ctx context.Context, closed bool) (Outcome, error) {
	if !s.PolylineControls() {
		return Outcome{}, fmt.Errorf("%w: polyline needs at least 2 points", core.ErrValidation)
	}
	points := s.path
	s.path = nil
	if closed {
		points = append(points, points[0])
	}
	pl := core.Polyline{
		ID:        core.NewID(),
		DrawingID: s.drawing.ID,
		LayerID:   s.layers.ActiveID(),
		Points:    points,
		Closed:    closed,
	}
	return s.commit(ctx, polylineHandle(pl, s.layers.ActiveColor()), func() error {
		return s.store.SavePolyline(ctx, pl)
	})
}

// commit persists a record and renders its handle when the write succeeds.
func (s *Session) commit(ctx context.Context, h Handle, save func() error) (Outcome, error) {
	if err := save(); err != nil {
		return s.fail(ctx, "save", h, err)
	}
	s.scene.Add(h)
	s.emit(ctx, ActionCommitted, h)
	return Outcome{Action: ActionCommitted, Kind: h.Kind, ID: h.ID}, nil
}

// fail applies the error policy at the editor boundary: validation errors go back
// to the caller, missing owners and store failures are logged and reported as a
// notice, anything else is returned unchanged.
func (s *Session) fail(ctx context.Context, op string, h Handle, err error) (Outcome, error) {
	switch {
	case errors.Is(err, core.ErrValidation):
		return Outcome{Action: ActionNone, Kind: h.Kind}, err
	case errors.Is(err, core.ErrNotFound):
		s.log.WarnContext(ctx, "Commit abandoned, owner missing", "op", op, "kind", h.Kind, "id", h.ID.String(), "error", err)
	case errors.Is(err, core.ErrStorage):
		s.log.ErrorContext(ctx, "Commit failed", "op", op, "kind", h.Kind, "id", h.ID.String(), "error", err)
	default:
		return Outcome{}, err
	}
	s.notify(Notice{Op: op, Kind: h.Kind, Err: err, At: s.now()})
	s.emit(ctx, ActionDropped, h)
	return Outcome{Action: ActionDropped, Kind: h.Kind, ID: h.ID}, nil
}

func (s *Session) notify(n Notice) {
	select {
	case s.notices <- n:
	default:
		s.log.Debug("Notice discarded, channel full", "notice", n.String())
	}
}

func (s *Session) emit(ctx context.Context, action Action, h Handle) {
	if s.observer == nil {
		return
	}
	s.observer.Observe(ctx, Event{
		Action:    action,
		Kind:      h.Kind,
		ID:        h.ID,
		DrawingID: s.drawing.ID,
		LayerID:   h.LayerID,
		At:        s.now(),
	})
}

// erase deletes the first handle within the hit threshold and re-renders the
// whole scene from the store.
func (s *Session) erase(ctx context.Context, p core.Point) (Outcome, error) {
	h, ok := s.scene.HitTest(p, s.opts.HitThreshold)
	if !ok {
		return Outcome{Action: ActionNone}, nil
	}
	if err := s.remove(ctx, h); err != nil {
		out, ferr := s.fail(ctx, "erase", h, err)
		if rerr := s.Reload(ctx); rerr != nil && ferr == nil {
			s.log.ErrorContext(ctx, "Reload after failed erase", "error", rerr)
		}
		return out, ferr
	}
	s.emit(ctx, ActionErased, h)
	if err := s.Reload(ctx); err != nil {
		return s.fail(ctx, "reload", h, err)
	}
	return Outcome{Action: ActionErased, Kind: h.Kind, ID: h.ID}, nil
}

func (s *Session) remove(ctx context.Context, h Handle) error {
	switch h.Kind {
	case core.KindLine:
		return s.store.DeleteLine(ctx, h.ID)
	case core.KindPolyline:
		return s.store.DeletePolyline(ctx, h.ID)
	case core.KindRectangle:
		return s.store.DeleteRectangle(ctx, h.ID)
	case core.KindPoint:
		return s.store.DeletePoint(ctx, h.ID)
	case core.KindText:
		return s.store.DeleteText(ctx, h.ID)
	case core.KindPhoto:
		_, err := s.photos.Delete(ctx, h.ID)
		return err
	default:
		return fmt.Errorf("%w: cannot erase %s", core.ErrValidation, h.Kind)
	}
}

// Reload rebuilds the scene from the store. Layer colors are refreshed first.
func (s *Session) Reload(ctx context.Context) error {
	if _, err := s.layers.List(ctx); err != nil {
		return err
	}
	scene := NewScene()
	id := s.drawing.ID

	points, err := s.store.LoadPoints(ctx, id)
	if err != nil {
		return err
	}
	for _, p := range points {
		scene.Add(pointHandle(p, s.layers.ColorOf(p.LayerID)))
	}
	texts, err := s.store.LoadTexts(ctx, id)
	if err != nil {
		return err
	}
	for _, t := range texts {
		scene.Add(textHandle(t, s.layers.ColorOf(t.LayerID)))
	}
	markers, err := s.photos.Markers(ctx)
	if err != nil {
		return err
	}
	for _, m := range markers {
		scene.Add(photoHandle(m))
	}
	lines, err := s.store.LoadLines(ctx, id)
	if err != nil {
		return err
	}
	for _, l := range lines {
		scene.Add(lineHandle(l, s.layers.ColorOf(l.LayerID)))
	}
	polylines, err := s.store.LoadPolylines(ctx, id)
	if err != nil {
		return err
	}
	for _, pl := range polylines {
		scene.Add(polylineHandle(pl, s.layers.ColorOf(pl.LayerID)))
	}
	rects, err := s.store.LoadRectangles(ctx, id)
	if err != nil {
		return err
	}
	for _, r := range rects {
		scene.Add(rectangleHandle(r, s.layers.ColorOf(r.LayerID)))
	}

	s.scene = scene
	s.log.Debug("Scene reloaded", "handles", scene.Len())
	return nil
}
