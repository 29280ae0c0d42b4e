// Package syncer pushes local projects and drawings to the backend in the
// background. Local state is the source of truth; failed jobs stay in the outbox
// and never roll back a local commit.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sitewalk/planmark/internal/api"
	"github.com/sitewalk/planmark/internal/cache"
	"github.com/sitewalk/planmark/internal/dispatcher"
	"github.com/sitewalk/planmark/internal/logging"
	"github.com/sitewalk/planmark/internal/queue"
	"github.com/sitewalk/planmark/internal/storage"
	"github.com/sitewalk/planmark/pkg/core"
)

const topic = "sync"

// Client is the subset of the backend API the syncer drives.
type Client interface {
	CreateProject(ctx context.Context, p core.Project) (string, error)
	UpdateProject(ctx context.Context, serverID string, p core.Project) error
	DeleteProject(ctx context.Context, serverID string) error
	CreateDrawing(ctx context.Context, projectServerID string, d core.Drawing) (string, error)
	UpdateDrawing(ctx context.Context, serverID string, d core.Drawing) error
	DeleteDrawing(ctx context.Context, serverID string) error
	UploadFile(ctx context.Context, drawingServerID, filePath string) error
}

// Dependencies are the collaborators of a Syncer.
type Dependencies struct {
	Client     Client
	Store      storage.Store
	Logger     *slog.Logger
	Dispatch   dispatcher.Logger
	QueueSize  int
	OnComplete func(Result)
}

// Syncer runs outbox jobs on a buffered dispatcher worker.
type Syncer struct {
	client     Client
	store      storage.Store
	ids        *cache.ServerIDs
	outbox     *queue.Queue[Job]
	dispatcher *dispatcher.Dispatcher
	log        *slog.Logger
	onComplete func(Result)
	ctx        context.Context
	cancel     context.CancelFunc

	mu     sync.Mutex
	queued map[core.ID]bool
}

// New starts a syncer. Close must be called to stop its worker.
func New(deps Dependencies) (*Syncer, error) {
	if deps.Client == nil || deps.Store == nil {
		return nil, fmt.Errorf("%w: syncer needs a client and a store", core.ErrValidation)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Dispatch == nil {
		deps.Dispatch = logging.NewDispatcherLogger(zerolog.Nop())
	}
	if deps.QueueSize <= 0 {
		deps.QueueSize = 100
	}

	d, err := dispatcher.New(deps.Dispatch)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Syncer{
		client:     deps.Client,
		store:      deps.Store,
		ids:        cache.NewServerIDs(),
		outbox:     queue.New[Job](),
		dispatcher: d,
		log:        deps.Logger.With("component", "sync"),
		onComplete: deps.OnComplete,
		ctx:        ctx,
		cancel:     cancel,
		queued:     make(map[core.ID]bool),
	}
	d.Register(topic, s.handle, dispatcher.Queue(deps.QueueSize), dispatcher.Traced())
	return s, nil
}

// SaveProject queues a create-or-update of a project.
func (s *Syncer) SaveProject(id core.ID) error {
	return s.Enqueue(Job{Kind: core.KindProject, Action: ActionSave, LocalID: id})
}

// DeleteProject queues removal of a project the backend knows as serverID.
func (s *Syncer) DeleteProject(id core.ID, serverID string) error {
	return s.Enqueue(Job{Kind: core.KindProject, Action: ActionDelete, LocalID: id, ServerID: serverID})
}

// SaveDrawing queues a create-or-update of a drawing.
func (s *Syncer) SaveDrawing(id core.ID) error {
	return s.Enqueue(Job{Kind: core.KindDrawing, Action: ActionSave, LocalID: id})
}

// DeleteDrawing queues removal of a drawing the backend knows as serverID.
func (s *Syncer) DeleteDrawing(id core.ID, serverID string) error {
	return s.Enqueue(Job{Kind: core.KindDrawing, Action: ActionDelete, LocalID: id, ServerID: serverID})
}

// Upload queues a file upload attached to a drawing.
func (s *Syncer) Upload(drawingID core.ID, path string) error {
	return s.Enqueue(Job{Kind: core.KindDrawing, Action: ActionUpload, LocalID: drawingID, Path: path})
}

// Enqueue adds a job to the outbox and hands it to the worker. A job refused by
// a full queue stays in the outbox until the next Flush.
func (s *Syncer) Enqueue(job Job) error {
	if job.ID == core.NilID {
		job.ID = core.NewID()
	}
	s.outbox.Push(job)
	return s.dispatch(job)
}

// Flush re-dispatches every outbox job that is not already queued.
func (s *Syncer) Flush() error {
	var errs []error
	for _, job := range s.outbox.Snapshot() {
		if err := s.dispatch(job); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Pending returns the jobs that have not completed.
func (s *Syncer) Pending() []Job {
	return s.outbox.Snapshot()
}

// ServerID returns the cached server id of a local record.
func (s *Syncer) ServerID(local core.ID) (string, bool) {
	return s.ids.Get(local)
}

// Close stops accepting jobs, finishes queued ones and stops the worker.
func (s *Syncer) Close() error {
	err := s.dispatcher.Close()
	s.cancel()
	return err
}

func (s *Syncer) dispatch(job Job) error {
	s.mu.Lock()
	if s.queued[job.ID] {
		s.mu.Unlock()
		return nil
	}
	s.queued[job.ID] = true
	s.mu.Unlock()

	if _, err := s.dispatcher.Dispatch(dispatcher.Message{Topic: topic, Body: job}); err != nil {
		s.mu.Lock()
		delete(s.queued, job.ID)
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Syncer) handle(m dispatcher.Message) (any, error) {
	job, ok := m.Body.(Job)
	if !ok {
		return nil, fmt.Errorf("unexpected message body %T", m.Body)
	}
	s.mu.Lock()
	delete(s.queued, job.ID)
	s.mu.Unlock()

	res := s.run(s.ctx, job)
	switch {
	case res.Deferred:
		s.update(job.ID, func(j *Job) { j.Deferred = true })
		s.log.Debug("Sync job deferred", "job", job.String())
	case res.Err != nil:
		s.log.Warn("Sync job failed", "job", job.String(), "retryable", api.IsRetryable(res.Err), "error", res.Err)
	default:
		s.outbox.RemoveFunc(func(j Job) bool { return j.ID == job.ID })
		s.log.Info("Sync job complete", "job", job.String(), "serverId", res.ServerID)
		if job.Action == ActionSave {
			s.releaseDeferred()
		}
	}
	if s.onComplete != nil {
		s.onComplete(res)
	}
	return res, res.Err
}

// releaseDeferred retries jobs that were waiting for an owner to be created.
func (s *Syncer) releaseDeferred() {
	for _, job := range s.outbox.Snapshot() {
		if !job.Deferred {
			continue
		}
		if err := s.dispatch(job); err != nil {
			s.log.Debug("Deferred job stays in outbox", "job", job.String(), "error", err)
		}
	}
}

func (s *Syncer) update(id core.ID, fn func(*Job)) {
	s.outbox.UpdateFunc(func(j Job) bool { return j.ID == id }, fn)
}
