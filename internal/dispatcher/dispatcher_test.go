package dispatcher

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) add(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf("%s %s %v", level, msg, kv))
}

func (l *recordingLogger) Debug(msg string, kv ...any) { l.add("DBG", msg, kv) }
func (l *recordingLogger) Info(msg string, kv ...any)  { l.add("INF", msg, kv) }
func (l *recordingLogger) Error(msg string, kv ...any) { l.add("ERR", msg, kv) }

func (l *recordingLogger) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

func newDispatcher(t *testing.T) (*Dispatcher, *recordingLogger) {
	t.Helper()
	log := &recordingLogger{}
	d, err := New(log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d, log
}

func TestDispatch_Inline(t *testing.T) {
	d, _ := newDispatcher(t)
	var got Message
	d.Register("render", func(m Message) (any, error) {
		got = m
		return "drawn", nil
	})

	res, err := d.Dispatch(Message{Topic: "render", Body: 3})
	require.NoError(t, err)
	assert.Equal(t, "drawn", res)
	assert.Equal(t, 3, got.Body)
	assert.False(t, got.Sent.IsZero(), "send time is stamped")
}

func TestDispatch_NoHandler(t *testing.T) {
	d, _ := newDispatcher(t)
	_, err := d.Dispatch(Message{Topic: "missing"})
	require.ErrorIs(t, err, ErrNoHandler)
	assert.Contains(t, err.Error(), `"missing"`)
}

func TestHas(t *testing.T) {
	d, _ := newDispatcher(t)
	d.Register("sync", func(Message) (any, error) { return nil, nil })
	assert.True(t, d.Has("sync"))
	assert.False(t, d.Has("upload"))
}

func TestQueue_RunsInOrder(t *testing.T) {
	d, _ := newDispatcher(t)
	var (
		mu   sync.Mutex
		seen []int
	)
	d.Register("sync", func(m Message) (any, error) {
		mu.Lock()
		seen = append(seen, m.Body.(int))
		mu.Unlock()
		return nil, nil
	}, Queue(10))

	for i := range 5 {
		res, err := d.Dispatch(Message{Topic: "sync", Body: i})
		require.NoError(t, err)
		assert.Equal(t, Queued, res)
	}
	require.NoError(t, d.Close())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, seen)
}

func TestQueue_FullLaneRejects(t *testing.T) {
	d, _ := newDispatcher(t)
	started := make(chan struct{})
	release := make(chan struct{})
	d.Register("sync", func(Message) (any, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil, nil
	}, Queue(2))

	_, err := d.Dispatch(Message{Topic: "sync"})
	require.NoError(t, err)
	<-started

	for range 2 {
		_, err := d.Dispatch(Message{Topic: "sync"})
		require.NoError(t, err)
	}
	_, err = d.Dispatch(Message{Topic: "sync"})
	require.ErrorIs(t, err, ErrQueueFull)

	close(release)
}

func TestQueue_WaitBlocksUntilRoom(t *testing.T) {
	d, _ := newDispatcher(t)
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	d.Register("sync", func(Message) (any, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil, nil
	}, Queue(1), Wait())

	_, err := d.Dispatch(Message{Topic: "sync"})
	require.NoError(t, err)
	<-started
	_, err = d.Dispatch(Message{Topic: "sync"})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		_, _ = d.Dispatch(Message{Topic: "sync"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("dispatch returned while the lane was full")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch still blocked after the worker drained")
	}
}

func TestClose_DrainsAndRefuses(t *testing.T) {
	d, _ := newDispatcher(t)
	var handled atomic.Int32
	d.Register("sync", func(Message) (any, error) {
		time.Sleep(time.Millisecond)
		handled.Add(1)
		return nil, nil
	}, Queue(10))

	for i := range 5 {
		_, err := d.Dispatch(Message{Topic: "sync", Body: i})
		require.NoError(t, err)
	}
	require.NoError(t, d.Close())
	assert.EqualValues(t, 5, handled.Load())

	_, err := d.Dispatch(Message{Topic: "sync"})
	require.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, d.Close())
	goleak.VerifyNone(t)
}

func TestTraced(t *testing.T) {
	d, log := newDispatcher(t)
	d.Register("ok", func(Message) (any, error) { return 1, nil }, Traced())
	d.Register("bad", func(Message) (any, error) { return nil, errors.New("backend down") }, Traced())

	_, err := d.Dispatch(Message{Topic: "ok"})
	require.NoError(t, err)
	_, err = d.Dispatch(Message{Topic: "bad"})
	require.EqualError(t, err, "backend down")

	lines := log.snapshot()
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "DBG Handling message"))
	assert.True(t, strings.HasPrefix(lines[1], "DBG Message handled"))
	assert.True(t, strings.HasPrefix(lines[3], "ERR Message failed"))
	assert.Contains(t, lines[3], "backend down")
}

func TestTraced_Queued(t *testing.T) {
	d, log := newDispatcher(t)
	d.Register("sync", func(Message) (any, error) { return nil, nil }, Queue(4), Traced())

	res, err := d.Dispatch(Message{Topic: "sync"})
	require.NoError(t, err)
	assert.Equal(t, Queued, res)
	require.NoError(t, d.Close())

	assert.Len(t, log.snapshot(), 2, "logged when the worker runs the message")
}
