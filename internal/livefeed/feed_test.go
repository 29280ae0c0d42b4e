package livefeed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/sitewalk/planmark/internal/editor"
	"github.com/sitewalk/planmark/pkg/core"
	"github.com/sitewalk/planmark/pkg/streaming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testServer upgrades to WebSocket, records received messages and acks
// open_drawing and close_drawing.
func testServer(t *testing.T) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(r.URL.Query().Get("secret"))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if env.Type == streaming.TypeOpenDrawing || env.Type == streaming.TypeCloseDrawing {
				ack := streaming.AckMessage{Type: streaming.TypeAck, For: env.Type}
				data, _ := json.Marshal(ack)
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	secret   string
	messages []streaming.Envelope
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func drawing() core.Drawing {
	return core.Drawing{ID: core.NewID(), ProjectID: core.NewID(), Name: "Level 2"}
}

func TestOpenAndCloseDrawing(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	f := New(Config{URL: wsURL(srv), Secret: "s3cret", Device: "tablet-1"}, nil)
	require.NoError(t, f.Connect())
	defer f.Close()

	d := drawing()
	require.NoError(t, f.OpenDrawing(d))
	require.NoError(t, f.CloseDrawing())

	msgs := ml.all()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, streaming.TypeOpenDrawing, msgs[0].Type)
	assert.Equal(t, streaming.TypeCloseDrawing, msgs[len(msgs)-1].Type)

	var open streaming.OpenDrawingPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &open))
	assert.Equal(t, d.ID.String(), open.DrawingID)
	assert.Equal(t, "Level 2", open.Name)
	assert.Equal(t, "tablet-1", open.Device)

	ml.mu.Lock()
	assert.Equal(t, "s3cret", ml.secret)
	ml.mu.Unlock()
}

func TestObserveForwardsEvents(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	f := New(Config{URL: wsURL(srv)}, nil)
	require.NoError(t, f.Connect())
	defer f.Close()

	d := drawing()
	require.NoError(t, f.OpenDrawing(d))

	layer := core.NewID()
	events := []editor.Event{
		{Action: editor.ActionCommitted, Kind: core.KindLine, ID: core.NewID(), DrawingID: d.ID, LayerID: &layer, At: time.Now()},
		{Action: editor.ActionErased, Kind: core.KindPhoto, ID: core.NewID(), DrawingID: d.ID, At: time.Now()},
	}
	for _, e := range events {
		f.Observe(context.Background(), e)
	}
	require.NoError(t, f.CloseDrawing())

	var got []streaming.AnnotationPayload
	for _, m := range ml.all() {
		if m.Type != streaming.TypeAnnotation {
			continue
		}
		var p streaming.AnnotationPayload
		require.NoError(t, json.Unmarshal(m.Payload, &p))
		got = append(got, p)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "committed", got[0].Action)
	assert.Equal(t, "line", got[0].Kind)
	assert.Equal(t, layer.String(), got[0].LayerID)
	assert.Equal(t, "erased", got[1].Action)
	assert.Empty(t, got[1].LayerID)
	assert.Equal(t, uint64(2), f.Sent())
	assert.Zero(t, f.Dropped())
}

func TestConnect_Unreachable(t *testing.T) {
	f := New(Config{URL: "ws://127.0.0.1:1/feed"}, nil)
	err := f.Connect()
	require.ErrorIs(t, err, core.ErrIO)
}

func TestConnect_BadURL(t *testing.T) {
	f := New(Config{URL: "://nope"}, nil)
	require.Error(t, f.Connect())
}

func TestObserve_DropsWhenBufferFull(t *testing.T) {
	// never connected: nothing drains the send buffer
	f := New(Config{}, nil)
	e := editor.Event{Action: editor.ActionCommitted, Kind: core.KindPoint, ID: core.NewID()}
	for range outboxSize + 3 {
		f.Observe(context.Background(), e)
	}
	assert.Equal(t, uint64(outboxSize), f.Sent())
	assert.Equal(t, uint64(3), f.Dropped())
}

func TestOpenDrawing_Timeout(t *testing.T) {
	f := New(Config{}, nil)
	require.NoError(t, f.Close())
	err := f.OpenDrawing(drawing())
	require.ErrorIs(t, err, errLinkClosed)
}

func TestPayload(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	e := editor.Event{Action: editor.ActionDropped, Kind: core.KindText, ID: core.NewID(), DrawingID: core.NewID(), At: at}
	p := Payload(e)
	assert.Equal(t, "dropped", p.Action)
	assert.Equal(t, "text", p.Kind)
	assert.Equal(t, time.UTC, p.At.Location())
	assert.True(t, at.Equal(p.At))
}

func TestReconnectReplaysOpenDrawing(t *testing.T) {
	var (
		mu     sync.Mutex
		conns  int
		firsts []string
	)
	replayed := make(chan struct{})
	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		mu.Lock()
		conns++
		n := conns
		mu.Unlock()

		_, msg, err := c.ReadMessage()
		if err != nil {
			return
		}
		var env streaming.Envelope
		require.NoError(t, json.Unmarshal(msg, &env))
		mu.Lock()
		firsts = append(firsts, env.Type)
		mu.Unlock()

		if n == 1 {
			data, _ := json.Marshal(streaming.AckMessage{Type: streaming.TypeAck, For: env.Type})
			_ = c.WriteMessage(ws.TextMessage, data)
			return // drop the first socket after the ack
		}
		close(replayed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	f := New(Config{URL: wsURL(srv)}, nil)
	f.link.delay = 10 * time.Millisecond
	require.NoError(t, f.Connect())
	defer f.Close()

	require.NoError(t, f.OpenDrawing(drawing()))

	select {
	case <-replayed:
	case <-time.After(5 * time.Second):
		t.Fatal("feed did not reconnect")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{streaming.TypeOpenDrawing, streaming.TypeOpenDrawing}, firsts)
}

func TestEndpointURL(t *testing.T) {
	got, err := endpointURL("ws://office.example/api/feed?device=t1", "a b")
	require.NoError(t, err)
	assert.Equal(t, "ws://office.example/api/feed?device=t1&secret=a+b", got)

	_, err = endpointURL("://nope", "")
	require.Error(t, err)
}
