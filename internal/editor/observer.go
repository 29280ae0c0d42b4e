package editor

import (
	"context"
	"time"

	"github.com/sitewalk/planmark/pkg/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/sitewalk/planmark/internal/editor"

// Action is what a tap did.
type Action int

const (
	ActionNone      Action = iota // tap ignored (idle mode, eraser miss)
	ActionPending                 // construction state advanced, nothing persisted yet
	ActionCommitted               // a record was written
	ActionErased                  // a record was deleted
	ActionDropped                 // the store refused the write; see Notices
	ActionCancelled               // the prompt or camera was cancelled
)

var actionNames = map[Action]string{
	ActionNone:      "none",
	ActionPending:   "pending",
	ActionCommitted: "committed",
	ActionErased:    "erased",
	ActionDropped:   "dropped",
	ActionCancelled: "cancelled",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return "unknown"
}

// Event is reported to the session observer after every commit, erase or drop.
type Event struct {
	Action    Action
	Kind      core.Kind
	ID        core.ID
	DrawingID core.ID
	LayerID   *core.ID
	At        time.Time
}

// Observer receives editor events. Implementations must not block.
type Observer interface {
	Observe(ctx context.Context, e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, e Event)

func (f ObserverFunc) Observe(ctx context.Context, e Event) {
	f(ctx, e)
}

// MultiObserver fans an event out to several observers.
type MultiObserver []Observer

func (m MultiObserver) Observe(ctx context.Context, e Event) {
	for _, o := range m {
		if o != nil {
			o.Observe(ctx, e)
		}
	}
}

// MetricsObserver counts editor events on the global OTel meter.
type MetricsObserver struct {
	events metric.Int64Counter
}

// NewMetricsObserver registers the editor counters. The global meter is a no-op
// unless a provider has been installed.
func NewMetricsObserver() (*MetricsObserver, error) {
	events, err := otel.Meter(instrumentationName).Int64Counter(
		"planmark.editor.events",
		metric.WithDescription("Annotation commits, erasures and dropped writes"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}
	return &MetricsObserver{events: events}, nil
}

func (m *MetricsObserver) Observe(ctx context.Context, e Event) {
	m.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", e.Action.String()),
		attribute.String("kind", string(e.Kind)),
	))
}
