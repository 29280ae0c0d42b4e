package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// captureStdout swaps osStdout for a pipe; the returned func restores it and
// returns what was written.
func captureStdout(t *testing.T) func() string {
	t.Helper()
	r, w, err := osPipe()
	require.NoError(t, err)
	orig := osStdout
	osStdout = w
	return func() string {
		w.Close()
		osStdout = orig
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		r.Close()
		return buf.String()
	}
}

func TestSetup_Outputs(t *testing.T) {
	t.Run("file", func(t *testing.T) {
		restore := captureStdout(t)
		var file bytes.Buffer
		m := NewSlogManager()
		m.Setup(&file, "info", nil)
		m.Logger().Info("Drawing opened", "drawing", "d1")

		assert.Empty(t, restore())
		assert.Contains(t, file.String(), "Logging initialized")
		assert.Contains(t, file.String(), "drawing=d1")
	})
	t.Run("stdout", func(t *testing.T) {
		restore := captureStdout(t)
		m := NewSlogManager()
		m.Setup(nil, "info", nil)
		m.Logger().Info("Drawing opened")

		assert.Contains(t, restore(), "Drawing opened")
	})
}

func TestSetup_Level(t *testing.T) {
	var debug, info bytes.Buffer
	d := NewSlogManager()
	d.Setup(&debug, "DEBUG", nil)
	i := NewSlogManager()
	i.Setup(&info, "info", nil)

	for _, m := range []*SlogManager{d, i} {
		m.Logger().Debug("Scene reloaded")
		m.Logger().Warn("Camera unavailable")
	}
	assert.Contains(t, debug.String(), "Scene reloaded")
	assert.NotContains(t, info.String(), "Scene reloaded")
	assert.Contains(t, info.String(), "Camera unavailable")
}

func TestSetup_SecondCallReplacesOutputs(t *testing.T) {
	var first, second bytes.Buffer
	m := NewSlogManager()
	m.Setup(&first, "info", nil)
	m.Setup(&second, "info", nil)
	m.Logger().Info("after")

	assert.NotContains(t, first.String(), "after")
	assert.Contains(t, second.String(), "after")
}

func TestSetup_ExtraHandlers(t *testing.T) {
	var file, extra bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", nil, newJSONHandler(&extra, "info"))
	m.Logger().Info("shipped", "drawing", "d1")

	assert.Contains(t, file.String(), "shipped")
	assert.Contains(t, extra.String(), `"drawing":"d1"`)
}

func TestSetup_OTelProvider(t *testing.T) {
	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", sdklog.NewLoggerProvider())
	m.Logger().Info("bridged")

	assert.Contains(t, file.String(), "bridged")
	assert.NoError(t, m.Flush(context.Background()))
}

func TestLogger_BeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Same(t, slog.Default(), m.Logger())
	assert.NoError(t, m.Flush(context.Background()))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"Warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestWithContext_ReadsProviderPerRecord(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", nil)

	mode := "line"
	logger := m.WithContext(func() []slog.Attr {
		return []slog.Attr{slog.String("mode", mode)}
	})
	logger.Info("first")
	mode = "eraser"
	logger.Info("second")

	assert.Contains(t, buf.String(), "mode=line")
	assert.Contains(t, buf.String(), "mode=eraser")
}

func TestNewGraylogHandler_BadAddress(t *testing.T) {
	_, _, err := NewGraylogHandler("not-an-address", "info")
	require.Error(t, err)
}

func TestNewGraylogHandler_ShipsRecord(t *testing.T) {
	r, err := gelf.NewReader("127.0.0.1:0")
	require.NoError(t, err)

	h, closer, err := NewGraylogHandler(r.Addr(), "info")
	require.NoError(t, err)
	defer closer.Close()

	slog.New(h).Info("Sync job complete", "job", "save project")

	msg, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, msg.Short+msg.Full, "Sync job complete")
	assert.Contains(t, msg.Short+msg.Full, `"job":"save project"`)
}
