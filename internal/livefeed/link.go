package livefeed

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/sitewalk/planmark/pkg/streaming"
)

const (
	outboxSize  = 1024
	ackBuffer   = 16
	redialLimit = 10
	maxDelay    = 30 * time.Second
	writeWait   = 10 * time.Second
	ackTimeout  = 10 * time.Second
)

var errLinkClosed = errors.New("feed link closed")

// link owns one WebSocket at a time. Each socket gets its own read and write
// pump; the first pump to fail triggers a single redial.
type link struct {
	log   *slog.Logger
	delay time.Duration

	outbox chan []byte
	acks   chan string
	stop   chan struct{}

	mu       sync.Mutex
	sock     *ws.Conn
	endpoint string
	hello    []byte
	stopped  bool
}

func newLink(log *slog.Logger) *link {
	return &link{
		log:    log,
		delay:  time.Second,
		outbox: make(chan []byte, outboxSize),
		acks:   make(chan string, ackBuffer),
		stop:   make(chan struct{}),
	}
}

// endpointURL adds the shared secret to the feed URL.
func endpointURL(raw, secret string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid feed url: %w", err)
	}
	q := u.Query()
	q.Set("secret", secret)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (l *link) open(raw, secret string) error {
	endpoint, err := endpointURL(raw, secret)
	if err != nil {
		return err
	}
	sock, _, err := ws.DefaultDialer.Dial(endpoint, nil)
	if err != nil {
		return fmt.Errorf("feed dial: %w", err)
	}

	l.mu.Lock()
	l.endpoint = endpoint
	l.sock = sock
	l.mu.Unlock()
	l.serve(sock)
	return nil
}

// setHello stores the message replayed first on every new socket. nil clears it.
func (l *link) setHello(data []byte) {
	l.mu.Lock()
	l.hello = data
	l.mu.Unlock()
}

// serve starts the pumps of sock. gone closes when the read pump exits, which
// retires the write pump of the same socket.
func (l *link) serve(sock *ws.Conn) {
	gone := make(chan struct{})
	go l.writePump(sock, gone)
	go l.readPump(sock, gone)
}

func (l *link) writePump(sock *ws.Conn, gone <-chan struct{}) {
	for {
		select {
		case <-l.stop:
			return
		case <-gone:
			return
		case data := <-l.outbox:
			if err := write(sock, data); err != nil {
				l.log.Warn("Feed write failed", "error", err)
				l.redial(sock)
				return
			}
		}
	}
}

func (l *link) readPump(sock *ws.Conn, gone chan<- struct{}) {
	for {
		_, raw, err := sock.ReadMessage()
		if err != nil {
			close(gone)
			if !l.isStopped() {
				l.log.Warn("Feed read failed", "error", err)
				l.redial(sock)
			}
			return
		}
		var ack streaming.AckMessage
		if err := json.Unmarshal(raw, &ack); err != nil || ack.Type != streaming.TypeAck {
			l.log.Debug("Ignoring feed message", "raw", string(raw))
			continue
		}
		select {
		case l.acks <- ack.For:
		default:
			l.log.Debug("Ack discarded, buffer full", "for", ack.For)
		}
	}
}

func write(sock *ws.Conn, data []byte) error {
	if err := sock.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return sock.WriteMessage(ws.TextMessage, data)
}

// redial replaces broken with a fresh socket. Calls for a socket that is no
// longer current are ignored, so the two pumps of one socket redial once.
func (l *link) redial(broken *ws.Conn) {
	l.mu.Lock()
	if l.stopped || l.sock != broken {
		l.mu.Unlock()
		return
	}
	l.sock = nil
	l.mu.Unlock()
	_ = broken.Close()

	delay := l.delay
	for attempt := 1; attempt <= redialLimit; attempt++ {
		select {
		case <-l.stop:
			return
		case <-time.After(delay):
		}

		sock, _, err := ws.DefaultDialer.Dial(l.endpoint, nil)
		if err != nil {
			l.log.Warn("Feed redial failed", "attempt", attempt, "error", err)
			delay = min(delay*2, maxDelay)
			continue
		}

		l.mu.Lock()
		if l.stopped {
			l.mu.Unlock()
			_ = sock.Close()
			return
		}
		hello := l.hello
		l.mu.Unlock()

		if hello != nil {
			if err := write(sock, hello); err != nil {
				l.log.Warn("Feed hello replay failed", "error", err)
				_ = sock.Close()
				continue
			}
		}

		l.mu.Lock()
		l.sock = sock
		l.mu.Unlock()
		l.log.Info("Feed reconnected", "attempt", attempt)
		l.serve(sock)
		return
	}
	l.log.Error("Feed gave up reconnecting", "attempts", redialLimit)
}

// enqueue hands data to the write pump without blocking.
func (l *link) enqueue(data []byte) bool {
	select {
	case l.outbox <- data:
		return true
	default:
		return false
	}
}

// request enqueues data and waits for the server to ack msgType.
func (l *link) request(data []byte, msgType string, timeout time.Duration) error {
	if !l.enqueue(data) {
		return fmt.Errorf("feed outbox full, %s not sent", msgType)
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case got := <-l.acks:
			if got == msgType {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("no ack for %s after %s", msgType, timeout)
		case <-l.stop:
			return fmt.Errorf("%w while waiting for %s ack", errLinkClosed, msgType)
		}
	}
}

func (l *link) isStopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopped
}

// close says goodbye to the server and stops both pumps.
func (l *link) close() error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	l.stopped = true
	close(l.stop)
	sock := l.sock
	l.sock = nil
	l.mu.Unlock()

	if sock == nil {
		return nil
	}
	_ = sock.WriteControl(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return sock.Close()
}
