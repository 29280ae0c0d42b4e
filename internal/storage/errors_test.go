package storage

import (
	"errors"
	"testing"

	"github.com/sitewalk/planmark/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestNotFound(t *testing.T) {
	id := core.NewID()
	err := NotFound(core.KindDrawing, id)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Contains(t, err.Error(), "drawing "+id.String())
}

func TestFailed_KeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Failed("save line", cause)
	assert.ErrorIs(t, err, core.ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "save line")
}
