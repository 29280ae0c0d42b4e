package editor

import (
	"fmt"
	"strings"

	"github.com/sitewalk/planmark/pkg/core"
)

// Mode is the interaction mode of the canvas. At most one non-idle mode is active.
type Mode int

const (
	ModeIdle Mode = iota
	ModeLine
	ModePoint
	ModePolyline
	ModeText
	ModeRectangle
	ModePhotoPlacement
	ModeEraser
)

// Modes lists every mode in toolbar order.
var Modes = []Mode{ModeIdle, ModeLine, ModePoint, ModePolyline, ModeText, ModeRectangle, ModePhotoPlacement, ModeEraser}

var modeNames = map[Mode]string{
	ModeIdle:           "idle",
	ModeLine:           "line",
	ModePoint:          "point",
	ModePolyline:       "polyline",
	ModeText:           "text",
	ModeRectangle:      "rectangle",
	ModePhotoPlacement: "photo",
	ModeEraser:         "eraser",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode resolves a mode by name.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return ModeIdle, fmt.Errorf("%w: unknown mode %q", core.ErrValidation, s)
}

// Kind returns the record kind the mode commits, or "" for Idle and Eraser.
func (m Mode) Kind() core.Kind {
	switch m {
	case ModeLine:
		return core.KindLine
	case ModePoint:
		return core.KindPoint
	case ModePolyline:
		return core.KindPolyline
	case ModeText:
		return core.KindText
	case ModeRectangle:
		return core.KindRectangle
	case ModePhotoPlacement:
		return core.KindPhoto
	default:
		return ""
	}
}
