package core

import (
	"strconv"
	"time"
)

// DefaultLayerName is the name of the layer every project falls back to.
const DefaultLayerName = "0"

// SiteLocation is a WGS84 longitude/latitude pair for a project site.
type SiteLocation struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Project groups drawings, layers and audio notes of one inspection.
type Project struct {
	ID        ID            `json:"id"`
	Name      string        `json:"name"`
	Address   string        `json:"address,omitempty"`
	Site      *SiteLocation `json:"site,omitempty"`
	ServerID  string        `json:"serverId,omitempty"` // empty until synced
	CreatedAt time.Time     `json:"createdAt"`
}

// Drawing is a single page of a scaled architectural document attached to a project.
type Drawing struct {
	ID         ID        `json:"id"`
	ProjectID  ID        `json:"projectId"`
	Name       string    `json:"name"`
	SourcePath string    `json:"sourcePath"`
	PageWidth  float64   `json:"pageWidth"`
	PageHeight float64   `json:"pageHeight"`
	Scale      int       `json:"scale,omitempty"` // denominator of 1:N, 0 when unknown
	ServerID   string    `json:"serverId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ScaleLabel renders the scale ratio, e.g. "1:100".
func (d Drawing) ScaleLabel() string {
	if d.Scale <= 0 {
		return ""
	}
	return "1:" + strconv.Itoa(d.Scale)
}

// Layer is a named, colored grouping of annotations.
type Layer struct {
	ID        ID     `json:"id"`
	ProjectID ID     `json:"projectId"`
	Name      string `json:"name"`
	Color     Color  `json:"color"`
}

// IsDefault reports whether this is the project's fallback layer.
func (l Layer) IsDefault() bool {
	return l.Name == DefaultLayerName
}

// AudioNote is a voice memo recorded against a project.
type AudioNote struct {
	ID          ID            `json:"id"`
	ProjectID   ID            `json:"projectId"`
	DrawingName string        `json:"drawingName"`
	Data        []byte        `json:"data"`
	RecordedAt  time.Time     `json:"recordedAt"`
	Duration    time.Duration `json:"duration"`
}
