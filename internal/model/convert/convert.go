// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/sitewalk/planmark/internal/geo"
	"github.com/sitewalk/planmark/internal/model"
	"github.com/sitewalk/planmark/pkg/core"
	"gorm.io/datatypes"
)

// idPtrToString converts an optional identity to a nullable column value.
func idPtrToString(id *core.ID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// stringToIDPtr parses a nullable identity column.
func stringToIDPtr(s *string) (*core.ID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, fmt.Errorf("invalid id %q: %w", *s, err)
	}
	return &id, nil
}

func parseID(s string) (core.ID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return core.NilID, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

// pointsToJSON converts a point list to datatypes.JSON for DB storage.
func pointsToJSON(points []core.Point) datatypes.JSON {
	if len(points) == 0 {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(geo.FormatPolyline(points))
}

// CoreToProject converts a core.Project to a GORM model.Project.
func CoreToProject(p core.Project) (model.Project, error) {
	row := model.Project{
		ID:        p.ID.String(),
		Name:      p.Name,
		Address:   p.Address,
		ServerID:  p.ServerID,
		CreatedAt: p.CreatedAt,
	}
	if p.Site != nil {
		pt, err := geo.Coords3857From4326(p.Site.Longitude, p.Site.Latitude)
		if err != nil {
			return model.Project{}, err
		}
		xy, _ := pt.XY()
		row.HasSite = true
		row.SiteX, row.SiteY = xy.X, xy.Y
	}
	return row, nil
}

// ProjectToCore converts a GORM model.Project to a core.Project.
func ProjectToCore(row model.Project) (core.Project, error) {
	id, err := parseID(row.ID)
	if err != nil {
		return core.Project{}, err
	}
	p := core.Project{
		ID:        id,
		Name:      row.Name,
		Address:   row.Address,
		ServerID:  row.ServerID,
		CreatedAt: row.CreatedAt,
	}
	if row.HasSite {
		pt, err := geom.XY{X: row.SiteX, Y: row.SiteY}.AsPoint()
		if err != nil {
			return core.Project{}, fmt.Errorf("project %s site: %w", row.ID, err)
		}
		if site, ok := geo.Coords4326From3857(pt); ok {
			p.Site = &site
		}
	}
	return p, nil
}

// CoreToDrawing converts a core.Drawing to a GORM model.Drawing.
func CoreToDrawing(d core.Drawing) model.Drawing {
	return model.Drawing{
		ID:         d.ID.String(),
		ProjectID:  d.ProjectID.String(),
		Name:       d.Name,
		SourcePath: d.SourcePath,
		PageWidth:  d.PageWidth,
		PageHeight: d.PageHeight,
		Scale:      d.Scale,
		ServerID:   d.ServerID,
		CreatedAt:  d.CreatedAt,
	}
}

// DrawingToCore converts a GORM model.Drawing to a core.Drawing.
func DrawingToCore(row model.Drawing) (core.Drawing, error) {
	id, err := parseID(row.ID)
	if err != nil {
		return core.Drawing{}, err
	}
	projectID, err := parseID(row.ProjectID)
	if err != nil {
		return core.Drawing{}, err
	}
	return core.Drawing{
		ID:         id,
		ProjectID:  projectID,
		Name:       row.Name,
		SourcePath: row.SourcePath,
		PageWidth:  row.PageWidth,
		PageHeight: row.PageHeight,
		Scale:      row.Scale,
		ServerID:   row.ServerID,
		CreatedAt:  row.CreatedAt,
	}, nil
}

// CoreToLayer converts a core.Layer to a GORM model.Layer.
func CoreToLayer(l core.Layer) model.Layer {
	return model.Layer{
		ID:        l.ID.String(),
		ProjectID: l.ProjectID.String(),
		Name:      l.Name,
		Color:     l.Color.Hex(),
	}
}

// LayerToCore converts a GORM model.Layer to a core.Layer.
func LayerToCore(row model.Layer) (core.Layer, error) {
	id, err := parseID(row.ID)
	if err != nil {
		return core.Layer{}, err
	}
	projectID, err := parseID(row.ProjectID)
	if err != nil {
		return core.Layer{}, err
	}
	color, err := core.ParseColor(row.Color)
	if err != nil {
		return core.Layer{}, err
	}
	return core.Layer{ID: id, ProjectID: projectID, Name: row.Name, Color: color}, nil
}

// CoreToLine converts a core.Line to a GORM model.LineAnnotation.
func CoreToLine(l core.Line) model.LineAnnotation {
	return model.LineAnnotation{
		ID:        l.ID.String(),
		DrawingID: l.DrawingID.String(),
		LayerID:   idPtrToString(l.LayerID),
		StartX:    l.Start.X,
		StartY:    l.Start.Y,
		EndX:      l.End.X,
		EndY:      l.End.Y,
	}
}

// LineToCore converts a GORM model.LineAnnotation to a core.Line.
func LineToCore(row model.LineAnnotation) (core.Line, error) {
	id, drawingID, layerID, err := annotationIDs(row.ID, row.DrawingID, row.LayerID)
	if err != nil {
		return core.Line{}, err
	}
	return core.Line{
		ID:        id,
		DrawingID: drawingID,
		LayerID:   layerID,
		Start:     core.Point{X: row.StartX, Y: row.StartY},
		End:       core.Point{X: row.EndX, Y: row.EndY},
	}, nil
}

// CoreToPolyline converts a core.Polyline to a GORM model.PolylineAnnotation.
func CoreToPolyline(p core.Polyline) model.PolylineAnnotation {
	return model.PolylineAnnotation{
		ID:        p.ID.String(),
		DrawingID: p.DrawingID.String(),
		LayerID:   idPtrToString(p.LayerID),
		Points:    pointsToJSON(p.Points),
		Closed:    p.Closed,
	}
}

// PolylineToCore converts a GORM model.PolylineAnnotation to a core.Polyline.
func PolylineToCore(row model.PolylineAnnotation) (core.Polyline, error) {
	id, drawingID, layerID, err := annotationIDs(row.ID, row.DrawingID, row.LayerID)
	if err != nil {
		return core.Polyline{}, err
	}
	points, err := geo.ParsePolyline(string(row.Points))
	if err != nil {
		return core.Polyline{}, fmt.Errorf("polyline %s: %w", row.ID, err)
	}
	return core.Polyline{
		ID:        id,
		DrawingID: drawingID,
		LayerID:   layerID,
		Points:    points,
		Closed:    row.Closed,
	}, nil
}

// CoreToRectangle converts a core.Rectangle to a GORM model.RectangleAnnotation.
func CoreToRectangle(r core.Rectangle) model.RectangleAnnotation {
	return model.RectangleAnnotation{
		ID:        r.ID.String(),
		DrawingID: r.DrawingID.String(),
		LayerID:   idPtrToString(r.LayerID),
		X:         r.Bounds.Origin.X,
		Y:         r.Bounds.Origin.Y,
		Width:     r.Bounds.Width,
		Height:    r.Bounds.Height,
	}
}

// RectangleToCore converts a GORM model.RectangleAnnotation to a core.Rectangle.
func RectangleToCore(row model.RectangleAnnotation) (core.Rectangle, error) {
	id, drawingID, layerID, err := annotationIDs(row.ID, row.DrawingID, row.LayerID)
	if err != nil {
		return core.Rectangle{}, err
	}
	return core.Rectangle{
		ID:        id,
		DrawingID: drawingID,
		LayerID:   layerID,
		Bounds: core.Rect{
			Origin: core.Point{X: row.X, Y: row.Y},
			Width:  row.Width,
			Height: row.Height,
		},
	}, nil
}

// CoreToPoint converts a core.PointMarker to a GORM model.PointAnnotation.
func CoreToPoint(p core.PointMarker) model.PointAnnotation {
	return model.PointAnnotation{
		ID:        p.ID.String(),
		DrawingID: p.DrawingID.String(),
		LayerID:   idPtrToString(p.LayerID),
		X:         p.Position.X,
		Y:         p.Position.Y,
	}
}

// PointToCore converts a GORM model.PointAnnotation to a core.PointMarker.
func PointToCore(row model.PointAnnotation) (core.PointMarker, error) {
	id, drawingID, layerID, err := annotationIDs(row.ID, row.DrawingID, row.LayerID)
	if err != nil {
		return core.PointMarker{}, err
	}
	return core.PointMarker{
		ID:        id,
		DrawingID: drawingID,
		LayerID:   layerID,
		Position:  core.Point{X: row.X, Y: row.Y},
	}, nil
}

// CoreToText converts a core.Text to a GORM model.TextAnnotation.
func CoreToText(t core.Text) model.TextAnnotation {
	return model.TextAnnotation{
		ID:        t.ID.String(),
		DrawingID: t.DrawingID.String(),
		LayerID:   idPtrToString(t.LayerID),
		Content:   t.Content,
		X:         t.Position.X,
		Y:         t.Position.Y,
	}
}

// TextToCore converts a GORM model.TextAnnotation to a core.Text.
func TextToCore(row model.TextAnnotation) (core.Text, error) {
	id, drawingID, layerID, err := annotationIDs(row.ID, row.DrawingID, row.LayerID)
	if err != nil {
		return core.Text{}, err
	}
	return core.Text{
		ID:        id,
		DrawingID: drawingID,
		LayerID:   layerID,
		Content:   row.Content,
		Position:  core.Point{X: row.X, Y: row.Y},
	}, nil
}

// CoreToPhoto converts a core.PhotoMarker to a GORM model.PhotoMarker.
func CoreToPhoto(p core.PhotoMarker) model.PhotoMarker {
	return model.PhotoMarker{
		ID:        p.ID.String(),
		DrawingID: p.DrawingID.String(),
		ParentID:  idPtrToString(p.ParentID),
		X:         p.Position.X,
		Y:         p.Position.Y,
		Image:     p.Image,
		Sequence:  p.Sequence,
		TakenAt:   p.TakenAt,
	}
}

// PhotoToCore converts a GORM model.PhotoMarker to a core.PhotoMarker.
func PhotoToCore(row model.PhotoMarker) (core.PhotoMarker, error) {
	id, drawingID, parentID, err := annotationIDs(row.ID, row.DrawingID, row.ParentID)
	if err != nil {
		return core.PhotoMarker{}, err
	}
	return core.PhotoMarker{
		ID:        id,
		DrawingID: drawingID,
		ParentID:  parentID,
		Position:  core.Point{X: row.X, Y: row.Y},
		Image:     row.Image,
		Sequence:  row.Sequence,
		TakenAt:   row.TakenAt,
	}, nil
}

// CoreToAudioNote converts a core.AudioNote to a GORM model.AudioNote.
func CoreToAudioNote(a core.AudioNote) model.AudioNote {
	return model.AudioNote{
		ID:          a.ID.String(),
		ProjectID:   a.ProjectID.String(),
		DrawingName: a.DrawingName,
		Data:        a.Data,
		RecordedAt:  a.RecordedAt,
		DurationMs:  a.Duration.Milliseconds(),
	}
}

// AudioNoteToCore converts a GORM model.AudioNote to a core.AudioNote.
func AudioNoteToCore(row model.AudioNote) (core.AudioNote, error) {
	id, err := parseID(row.ID)
	if err != nil {
		return core.AudioNote{}, err
	}
	projectID, err := parseID(row.ProjectID)
	if err != nil {
		return core.AudioNote{}, err
	}
	return core.AudioNote{
		ID:          id,
		ProjectID:   projectID,
		DrawingName: row.DrawingName,
		Data:        row.Data,
		RecordedAt:  row.RecordedAt,
		Duration:    time.Duration(row.DurationMs) * time.Millisecond,
	}, nil
}

// annotationIDs parses the identity triple shared by every annotation row.
func annotationIDs(id, drawingID string, ref *string) (core.ID, core.ID, *core.ID, error) {
	parsedID, err := parseID(id)
	if err != nil {
		return core.NilID, core.NilID, nil, err
	}
	parsedDrawing, err := parseID(drawingID)
	if err != nil {
		return core.NilID, core.NilID, nil, err
	}
	parsedRef, err := stringToIDPtr(ref)
	if err != nil {
		return core.NilID, core.NilID, nil, err
	}
	return parsedID, parsedDrawing, parsedRef, nil
}
