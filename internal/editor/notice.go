package editor

import (
	"errors"
	"time"

	"github.com/sitewalk/planmark/pkg/core"
)

// Notice is a non-blocking message about a commit that did not make it to the store.
type Notice struct {
	Op   string
	Kind core.Kind
	Err  error
	At   time.Time
}

// Severity classifies the notice for display.
func (n Notice) Severity() string {
	if errors.Is(n.Err, core.ErrNotFound) {
		return "warning"
	}
	return "error"
}

func (n Notice) String() string {
	return n.Op + " " + string(n.Kind) + ": " + n.Err.Error()
}
