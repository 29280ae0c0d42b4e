// Package model defines the gorm row types persisted by the GeometryStore.
// Identities are stored as hyphenated UUID strings and coordinates as separate
// x/y float columns.
package model

import (
	"time"

	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Project{},
	&Drawing{},
	&Layer{},
	&LineAnnotation{},
	&PolylineAnnotation{},
	&RectangleAnnotation{},
	&PointAnnotation{},
	&TextAnnotation{},
	&PhotoMarker{},
	&AudioNote{},
}

////////////////////////
// PROJECT MODELS
////////////////////////

// Project is an inspection job that owns drawings, layers and audio notes
type Project struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Name      string    `json:"name" gorm:"size:255"`
	Address   string    `json:"address" gorm:"size:255"`
	HasSite   bool      `json:"hasSite" gorm:"default:false"`
	SiteX     float64   `json:"siteX"`                                               // EPSG:3857 easting
	SiteY     float64   `json:"siteY"`                                               // EPSG:3857 northing
	ServerID  string    `json:"serverId" gorm:"size:64;index:idx_project_server_id"` // empty until synced
	CreatedAt time.Time `json:"createdAt"`
}

func (*Project) TableName() string {
	return "projects"
}

// Drawing is a single page document attached to a project
type Drawing struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	ProjectID  string    `json:"projectId" gorm:"size:36;index:idx_drawing_project_id"`
	Name       string    `json:"name" gorm:"size:255"`
	SourcePath string    `json:"sourcePath" gorm:"size:1024"`
	PageWidth  float64   `json:"pageWidth"`
	PageHeight float64   `json:"pageHeight"`
	Scale      int       `json:"scale" gorm:"default:0"` // denominator of 1:N
	ServerID   string    `json:"serverId" gorm:"size:64"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (*Drawing) TableName() string {
	return "drawings"
}

// Layer groups annotations for default coloring and bulk deletion
type Layer struct {
	ID        string `json:"id" gorm:"primaryKey;size:36"`
	ProjectID string `json:"projectId" gorm:"size:36;index:idx_layer_project_id"`
	Name      string `json:"name" gorm:"size:127"`
	Color     string `json:"color" gorm:"size:9"` // #RRGGBB or #RRGGBBAA
}

func (*Layer) TableName() string {
	return "layers"
}

////////////////////////
// ANNOTATION MODELS
////////////////////////

// LineAnnotation is a straight segment on a drawing
type LineAnnotation struct {
	ID        string  `json:"id" gorm:"primaryKey;size:36"`
	DrawingID string  `json:"drawingId" gorm:"size:36;index:idx_line_drawing_id"`
	LayerID   *string `json:"layerId" gorm:"size:36;index:idx_line_layer_id"`
	StartX    float64 `json:"startX"`
	StartY    float64 `json:"startY"`
	EndX      float64 `json:"endX"`
	EndY      float64 `json:"endY"`
}

func (*LineAnnotation) TableName() string {
	return "line_annotations"
}

// PolylineAnnotation is an open or closed path on a drawing
type PolylineAnnotation struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"`
	DrawingID string         `json:"drawingId" gorm:"size:36;index:idx_polyline_drawing_id"`
	LayerID   *string        `json:"layerId" gorm:"size:36;index:idx_polyline_layer_id"`
	Points    datatypes.JSON `json:"points"` // [[x1,y1],[x2,y2],...]
	Closed    bool           `json:"closed" gorm:"default:false"`
}

func (*PolylineAnnotation) TableName() string {
	return "polyline_annotations"
}

// RectangleAnnotation is an axis-aligned box on a drawing
type RectangleAnnotation struct {
	ID        string  `json:"id" gorm:"primaryKey;size:36"`
	DrawingID string  `json:"drawingId" gorm:"size:36;index:idx_rectangle_drawing_id"`
	LayerID   *string `json:"layerId" gorm:"size:36;index:idx_rectangle_layer_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

func (*RectangleAnnotation) TableName() string {
	return "rectangle_annotations"
}

// PointAnnotation is a single-coordinate marker
type PointAnnotation struct {
	ID        string  `json:"id" gorm:"primaryKey;size:36"`
	DrawingID string  `json:"drawingId" gorm:"size:36;index:idx_point_drawing_id"`
	LayerID   *string `json:"layerId" gorm:"size:36;index:idx_point_layer_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

func (*PointAnnotation) TableName() string {
	return "point_annotations"
}

// TextAnnotation is a label centered on (X, Y)
type TextAnnotation struct {
	ID        string  `json:"id" gorm:"primaryKey;size:36"`
	DrawingID string  `json:"drawingId" gorm:"size:36;index:idx_text_drawing_id"`
	LayerID   *string `json:"layerId" gorm:"size:36;index:idx_text_layer_id"`
	Content   string  `json:"content" gorm:"size:2000"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

func (*TextAnnotation) TableName() string {
	return "text_annotations"
}

// PhotoMarker is a photo anchored on a drawing. ParentID groups additional photos
// under their primary marker.
type PhotoMarker struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	DrawingID string    `json:"drawingId" gorm:"size:36;index:idx_photo_drawing_id"`
	ParentID  *string   `json:"parentId" gorm:"size:36;index:idx_photo_parent_id"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Image     []byte    `json:"image"`
	Sequence  int       `json:"sequence" gorm:"index:idx_photo_sequence"`
	TakenAt   time.Time `json:"takenAt"`
}

func (*PhotoMarker) TableName() string {
	return "photo_markers"
}

// AudioNote is a voice memo recorded for a project
type AudioNote struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	ProjectID   string    `json:"projectId" gorm:"size:36;index:idx_audio_project_id"`
	DrawingName string    `json:"drawingName" gorm:"size:255"`
	Data        []byte    `json:"data"`
	RecordedAt  time.Time `json:"recordedAt"`
	DurationMs  int64     `json:"durationMs"`
}

func (*AudioNote) TableName() string {
	return "audio_notes"
}
