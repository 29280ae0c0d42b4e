// Package dispatcher routes messages by topic to handlers. A handler registered
// with Queue runs on its own worker goroutine behind a bounded lane.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/sitewalk/planmark/internal/dispatcher"

// Queued is the result of a message accepted by a lane.
const Queued = "queued"

var (
	ErrQueueFull = errors.New("queue full")
	ErrClosed    = errors.New("dispatcher closed")
	ErrNoHandler = errors.New("no handler")
)

// Message is a unit of work addressed to a topic.
type Message struct {
	Topic string
	Body  any
	Sent  time.Time
}

// HandlerFunc handles one message.
type HandlerFunc func(Message) (any, error)

// Logger is the key/value logger used by Traced handlers.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type options struct {
	queue  int
	wait   bool
	traced bool
}

// Option configures Register.
type Option func(*options)

// Queue runs the handler on a worker behind a lane of the given capacity.
func Queue(capacity int) Option {
	return func(o *options) { o.queue = capacity }
}

// Wait makes Dispatch block on a full lane instead of failing with ErrQueueFull.
func Wait() Option {
	return func(o *options) { o.wait = true }
}

// Traced logs the start and outcome of every handled message.
func Traced() Option {
	return func(o *options) { o.traced = true }
}

type lane struct {
	ch    chan Message
	attrs metric.MeasurementOption
}

type instruments struct {
	depth    metric.Int64ObservableGauge
	handled  metric.Int64Counter
	rejected metric.Int64Counter
	callback metric.Registration
}

// Dispatcher holds the handlers and lanes. Its zero value is not usable; call New.
type Dispatcher struct {
	log Logger
	ins instruments

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	lanes    map[string]*lane
	closed   bool
	workers  sync.WaitGroup
}

// New builds a dispatcher that records lane metrics on the global meter provider.
func New(log Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		log:      log,
		handlers: make(map[string]HandlerFunc),
		lanes:    make(map[string]*lane),
	}
	if err := d.instrument(otel.Meter(instrumentationName)); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dispatcher) instrument(m metric.Meter) error {
	var err error
	if d.ins.depth, err = m.Int64ObservableGauge("dispatcher.lane.depth",
		metric.WithDescription("Messages waiting in a lane")); err != nil {
		return fmt.Errorf("lane depth gauge: %w", err)
	}
	if d.ins.handled, err = m.Int64Counter("dispatcher.messages.handled",
		metric.WithDescription("Messages handled by lane workers")); err != nil {
		return fmt.Errorf("handled counter: %w", err)
	}
	if d.ins.rejected, err = m.Int64Counter("dispatcher.messages.rejected",
		metric.WithDescription("Messages refused by a full lane")); err != nil {
		return fmt.Errorf("rejected counter: %w", err)
	}
	d.ins.callback, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		d.mu.RLock()
		defer d.mu.RUnlock()
		for _, l := range d.lanes {
			o.ObserveInt64(d.ins.depth, int64(len(l.ch)), l.attrs)
		}
		return nil
	}, d.ins.depth)
	if err != nil {
		return fmt.Errorf("lane depth callback: %w", err)
	}
	return nil
}

// Register installs h for topic, replacing any earlier handler.
func (d *Dispatcher) Register(topic string, h HandlerFunc, opts ...Option) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.traced {
		h = d.traced(topic, h)
	}
	if o.queue > 0 {
		h = d.startLane(topic, o.queue, o.wait, h)
	}

	d.mu.Lock()
	d.handlers[topic] = h
	d.mu.Unlock()
}

// Dispatch hands m to its topic's handler. Queued handlers return Queued.
func (d *Dispatcher) Dispatch(m Message) (any, error) {
	d.mu.RLock()
	h, ok := d.handlers[m.Topic]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w for topic %q", ErrNoHandler, m.Topic)
	}
	if m.Sent.IsZero() {
		m.Sent = time.Now()
	}
	return h(m)
}

// Has reports whether topic has a handler.
func (d *Dispatcher) Has(topic string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[topic]
	return ok
}

// Close refuses new messages, waits for every lane to drain and unregisters the
// metric callback. Calling it again is a no-op.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	for _, l := range d.lanes {
		close(l.ch)
	}
	d.mu.Unlock()

	d.workers.Wait()
	return d.ins.callback.Unregister()
}

func (d *Dispatcher) startLane(topic string, capacity int, wait bool, h HandlerFunc) HandlerFunc {
	l := &lane{
		ch:    make(chan Message, capacity),
		attrs: metric.WithAttributes(attribute.String("topic", topic)),
	}
	d.mu.Lock()
	d.lanes[topic] = l
	d.mu.Unlock()

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		for m := range l.ch {
			_, _ = h(m)
			d.ins.handled.Add(context.Background(), 1, l.attrs)
		}
	}()

	// Sends hold the read lock so Close cannot close the lane under them.
	return func(m Message) (any, error) {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed {
			return nil, ErrClosed
		}
		if wait {
			l.ch <- m
			return Queued, nil
		}
		select {
		case l.ch <- m:
			return Queued, nil
		default:
			d.ins.rejected.Add(context.Background(), 1, l.attrs)
			return nil, fmt.Errorf("%w: %s", ErrQueueFull, topic)
		}
	}
}

func (d *Dispatcher) traced(topic string, h HandlerFunc) HandlerFunc {
	return func(m Message) (any, error) {
		d.log.Debug("Handling message", "topic", topic, "waited", time.Since(m.Sent))
		start := time.Now()
		res, err := h(m)
		if err != nil {
			d.log.Error("Message failed", "topic", topic, "took", time.Since(start), "error", err)
			return res, err
		}
		d.log.Debug("Message handled", "topic", topic, "took", time.Since(start))
		return res, nil
	}
}
