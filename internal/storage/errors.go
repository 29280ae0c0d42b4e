package storage

import (
	"fmt"

	"github.com/sitewalk/planmark/pkg/core"
)

// NotFound builds a core.ErrNotFound error naming the missing record.
func NotFound(kind core.Kind, id core.ID) error {
	return fmt.Errorf("%w: %s %s", core.ErrNotFound, kind, id)
}

// Failed wraps a backend error in core.ErrStorage.
func Failed(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", core.ErrStorage, op, err)
}
