package otel

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

func TestNew_Disabled(t *testing.T) {
	p, err := New(Config{LogWriter: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Nil(t, p.LoggerProvider())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_NoExporter(t *testing.T) {
	_, err := New(Config{Enabled: true, ServiceName: "planmark"})
	require.ErrorIs(t, err, errNoExporter)
}

func TestNew_LogWriter(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{
		Enabled:      true,
		ServiceName:  "planmark",
		BatchTimeout: time.Second,
		LogWriter:    &buf,
	})
	require.NoError(t, err)
	require.NotNil(t, p.LoggerProvider())

	logger := slog.New(otelslog.NewHandler("planmark", otelslog.WithLoggerProvider(p.LoggerProvider())))
	logger.Info("Sync job complete", "job", "save project")

	require.NoError(t, p.LoggerProvider().ForceFlush(context.Background()))
	assert.Contains(t, buf.String(), "Sync job complete")
	assert.Contains(t, buf.String(), "planmark")
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_Endpoint(t *testing.T) {
	p, err := New(Config{
		Enabled:      true,
		ServiceName:  "planmark",
		BatchTimeout: time.Second,
		Endpoint:     "127.0.0.1:4318",
		Insecure:     true,
	})
	require.NoError(t, err)
	require.NotNil(t, p.LoggerProvider())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = p.Shutdown(ctx)
}
