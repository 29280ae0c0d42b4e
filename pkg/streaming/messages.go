// Package streaming defines the live activity protocol spoken between a field
// device and the sync backend.
package streaming

import (
	"encoding/json"
	"time"
)

// Message type constants matching the streaming protocol.
const (
	TypeOpenDrawing  = "open_drawing"
	TypeCloseDrawing = "close_drawing"
	TypeAnnotation   = "annotation"
	TypeAck          = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// OpenDrawingPayload announces the drawing a device is annotating.
type OpenDrawingPayload struct {
	DrawingID string `json:"drawingId"`
	ProjectID string `json:"projectId"`
	Name      string `json:"name"`
	Device    string `json:"device,omitempty"`
}

// AnnotationPayload reports one committed, erased or dropped annotation.
type AnnotationPayload struct {
	Action    string    `json:"action"`
	Kind      string    `json:"kind"`
	ID        string    `json:"id"`
	DrawingID string    `json:"drawingId"`
	LayerID   string    `json:"layerId,omitempty"`
	At        time.Time `json:"at"`
}
