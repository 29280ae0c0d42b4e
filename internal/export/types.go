// Package export bundles the annotations of one drawing into a portable JSON document.
package export

import (
	"time"

	"github.com/sitewalk/planmark/pkg/core"
)

// FormatVersion is written into every bundle.
const FormatVersion = 1

// Bundle is the root JSON structure of an export.
type Bundle struct {
	Version    int                `json:"version"`
	ExportedAt time.Time          `json:"exportedAt"`
	Project    core.Project       `json:"project"`
	Drawing    core.Drawing       `json:"drawing"`
	Layers     []core.Layer       `json:"layers"`
	Lines      []core.Line        `json:"lines"`
	Polylines  []core.Polyline    `json:"polylines"`
	Rectangles []core.Rectangle   `json:"rectangles"`
	Points     []core.PointMarker `json:"points"`
	Texts      []core.Text        `json:"texts"`
	Photos     []core.PhotoMarker `json:"photos"`
}

// Count returns the number of annotation records in the bundle.
func (b Bundle) Count() int {
	return len(b.Lines) + len(b.Polylines) + len(b.Rectangles) + len(b.Points) + len(b.Texts) + len(b.Photos)
}
