package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type job struct {
	ID       int
	Kind     string
	Deferred bool
}

func TestPushAndSnapshot(t *testing.T) {
	q := New[job]()
	assert.Zero(t, q.Len())
	assert.Empty(t, q.Snapshot())

	q.Push(job{ID: 1, Kind: "project"})
	q.Push(job{ID: 2, Kind: "drawing"}, job{ID: 3, Kind: "drawing"})
	assert.Equal(t, 3, q.Len())

	snap := q.Snapshot()
	assert.Equal(t, []int{1, 2, 3}, []int{snap[0].ID, snap[1].ID, snap[2].ID})

	snap[0].ID = 99
	assert.Equal(t, 1, q.Snapshot()[0].ID, "snapshot is a copy")
}

func TestRemoveFunc(t *testing.T) {
	q := New[job]()
	q.Push(job{ID: 1, Kind: "drawing"}, job{ID: 2, Kind: "project"}, job{ID: 3, Kind: "drawing"})

	assert.Equal(t, 2, q.RemoveFunc(func(j job) bool { return j.Kind == "drawing" }))
	assert.Equal(t, []job{{ID: 2, Kind: "project"}}, q.Snapshot())
	assert.Zero(t, q.RemoveFunc(func(j job) bool { return j.ID == 7 }))
}

func TestUpdateFunc_KeepsPosition(t *testing.T) {
	q := New[job]()
	q.Push(job{ID: 1}, job{ID: 2}, job{ID: 3})

	ok := q.UpdateFunc(func(j job) bool { return j.ID == 2 }, func(j *job) { j.Deferred = true })
	assert.True(t, ok)
	assert.Equal(t, []job{{ID: 1}, {ID: 2, Deferred: true}, {ID: 3}}, q.Snapshot())

	assert.False(t, q.UpdateFunc(func(j job) bool { return j.ID == 9 }, func(j *job) { j.Kind = "x" }))
}

func TestConcurrentUse(t *testing.T) {
	q := New[job]()
	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				q.Push(job{ID: w*100 + i})
				_ = q.Snapshot()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, q.Len())

	removed := q.RemoveFunc(func(j job) bool { return j.ID%2 == 0 })
	assert.Equal(t, 400, removed)
	assert.Equal(t, 400, q.Len())
}
