// Package livefeed streams editor activity to the sync backend over a WebSocket
// so that office users can follow a field session as it happens. The feed is
// best effort: messages are dropped rather than blocking the editor.
package livefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/sitewalk/planmark/internal/editor"
	"github.com/sitewalk/planmark/pkg/core"
	"github.com/sitewalk/planmark/pkg/streaming"
)

// Config holds live feed settings.
type Config struct {
	URL    string
	Secret string
	Device string
}

// Feed is an editor.Observer that forwards events to the backend.
type Feed struct {
	link    *link
	cfg     Config
	sent    atomic.Uint64
	dropped atomic.Uint64
}

var _ editor.Observer = (*Feed)(nil)

// New creates a feed. Nothing is dialed until Connect.
func New(cfg Config, log *slog.Logger) *Feed {
	if log == nil {
		log = slog.Default()
	}
	return &Feed{
		link: newLink(log.With("component", "livefeed")),
		cfg:  cfg,
	}
}

// Connect dials the backend.
func (f *Feed) Connect() error {
	if err := f.link.open(f.cfg.URL, f.cfg.Secret); err != nil {
		return fmt.Errorf("%w: %w", core.ErrIO, err)
	}
	return nil
}

// Close disconnects from the backend.
func (f *Feed) Close() error {
	return f.link.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// OpenDrawing announces d and waits for the server ack. The announcement is
// replayed whenever the connection is re-established.
func (f *Feed) OpenDrawing(d core.Drawing) error {
	data, err := marshalEnvelope(streaming.TypeOpenDrawing, streaming.OpenDrawingPayload{
		DrawingID: d.ID.String(),
		ProjectID: d.ProjectID.String(),
		Name:      d.Name,
		Device:    f.cfg.Device,
	})
	if err != nil {
		return err
	}

	f.link.setHello(data)
	return f.link.request(data, streaming.TypeOpenDrawing, ackTimeout)
}

// CloseDrawing ends the announcement and waits for the server ack.
func (f *Feed) CloseDrawing() error {
	data, err := marshalEnvelope(streaming.TypeCloseDrawing, nil)
	if err != nil {
		return err
	}
	f.link.setHello(nil)
	return f.link.request(data, streaming.TypeCloseDrawing, ackTimeout)
}

// Payload converts an editor event to its wire form.
func Payload(e editor.Event) streaming.AnnotationPayload {
	p := streaming.AnnotationPayload{
		Action:    e.Action.String(),
		Kind:      string(e.Kind),
		ID:        e.ID.String(),
		DrawingID: e.DrawingID.String(),
		At:        e.At.UTC(),
	}
	if e.LayerID != nil {
		p.LayerID = e.LayerID.String()
	}
	return p
}

// Observe forwards e without waiting for the network.
func (f *Feed) Observe(_ context.Context, e editor.Event) {
	data, err := marshalEnvelope(streaming.TypeAnnotation, Payload(e))
	if err != nil || !f.link.enqueue(data) {
		f.dropped.Add(1)
		return
	}
	f.sent.Add(1)
}

// Sent returns the number of events handed to the write loop.
func (f *Feed) Sent() uint64 {
	return f.sent.Load()
}

// Dropped returns the number of events lost to a full send buffer.
func (f *Feed) Dropped() uint64 {
	return f.dropped.Load()
}
