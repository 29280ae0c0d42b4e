package editor

import (
	"context"

	"github.com/sitewalk/planmark/pkg/core"
)

// TextPrompt asks the user for label text at a content position. ok is false when
// the user cancels.
type TextPrompt interface {
	Prompt(ctx context.Context, at core.Point) (text string, ok bool, err error)
}

// Camera captures one image. It returns core.ErrCancelled when the user backs out
// and an error wrapping core.ErrIO when the device refuses access.
type Camera interface {
	Capture(ctx context.Context) ([]byte, error)
}

// PromptFunc adapts a function to TextPrompt.
type PromptFunc func(ctx context.Context, at core.Point) (string, bool, error)

func (f PromptFunc) Prompt(ctx context.Context, at core.Point) (string, bool, error) {
	return f(ctx, at)
}

// CameraFunc adapts a function to Camera.
type CameraFunc func(ctx context.Context) ([]byte, error)

func (f CameraFunc) Capture(ctx context.Context) ([]byte, error) {
	return f(ctx)
}
