package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/sitewalk/planmark/internal/api"
	"github.com/sitewalk/planmark/pkg/core"
)

// run makes one attempt at job. The only local write is the server id of a
// record the backend just created.
func (s *Syncer) run(ctx context.Context, job Job) Result {
	res := Result{Job: job}
	switch job.Action {
	case ActionSave:
		switch job.Kind {
		case core.KindProject:
			res.ServerID, res.Err = s.saveProject(ctx, job.LocalID)
		case core.KindDrawing:
			res.ServerID, res.Deferred, res.Err = s.saveDrawing(ctx, job.LocalID)
		default:
			res.Err = fmt.Errorf("%w: cannot sync %s", core.ErrValidation, job.Kind)
		}
	case ActionDelete:
		res.Err = s.remove(ctx, job)
	case ActionUpload:
		res.ServerID, res.Deferred, res.Err = s.upload(ctx, job)
	default:
		res.Err = fmt.Errorf("%w: unknown sync action %q", core.ErrValidation, job.Action)
	}
	return res
}

// resolve returns the server id of a local project or drawing, or "" when the
// backend has not seen it yet. The store is consulted on a cache miss.
func (s *Syncer) resolve(ctx context.Context, kind core.Kind, local core.ID) (string, error) {
	if id, ok := s.ids.Get(local); ok {
		return id, nil
	}
	var (
		serverID string
		err      error
	)
	switch kind {
	case core.KindProject:
		var p core.Project
		p, err = s.store.LoadProject(ctx, local)
		serverID = p.ServerID
	case core.KindDrawing:
		var d core.Drawing
		d, err = s.store.LoadDrawing(ctx, local)
		serverID = d.ServerID
	default:
		return "", fmt.Errorf("%w: %s has no server id", core.ErrValidation, kind)
	}
	if err != nil {
		return "", err
	}
	if serverID != "" {
		s.ids.Set(local, serverID)
	}
	return serverID, nil
}

// remember caches a new server id and writes it back to the store. A failed
// write is logged only: the cache still holds the id for this session.
func (s *Syncer) remember(ctx context.Context, kind core.Kind, local core.ID, serverID string) {
	s.ids.Set(local, serverID)
	if err := s.store.SetServerID(ctx, kind, local, serverID); err != nil {
		s.log.Warn("Failed to store server id", "kind", kind, "id", local.String(), "serverId", serverID, "error", err)
	}
}

func (s *Syncer) saveProject(ctx context.Context, id core.ID) (string, error) {
	p, err := s.store.LoadProject(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		s.log.Debug("Project gone before sync", "id", id.String())
		return "", nil
	}
	if err != nil {
		return "", err
	}
	serverID, err := s.resolve(ctx, core.KindProject, id)
	if err != nil {
		return "", err
	}
	if serverID != "" {
		err := s.client.UpdateProject(ctx, serverID, p)
		if !errors.Is(err, api.ErrServerNotFound) {
			return serverID, err
		}
		s.log.Info("Project unknown to server, creating it again", "id", id.String(), "serverId", serverID)
		s.ids.Delete(id)
	}
	created, err := s.client.CreateProject(ctx, p)
	if err != nil {
		return "", err
	}
	s.remember(ctx, core.KindProject, id, created)
	return created, nil
}

// saveDrawing is deferred while the owning project has no server id.
func (s *Syncer) saveDrawing(ctx context.Context, id core.ID) (string, bool, error) {
	d, err := s.store.LoadDrawing(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		s.log.Debug("Drawing gone before sync", "id", id.String())
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	projectID, err := s.resolve(ctx, core.KindProject, d.ProjectID)
	if err != nil {
		return "", false, err
	}
	if projectID == "" {
		return "", true, nil
	}
	serverID, err := s.resolve(ctx, core.KindDrawing, id)
	if err != nil {
		return "", false, err
	}
	if serverID != "" {
		err := s.client.UpdateDrawing(ctx, serverID, d)
		if !errors.Is(err, api.ErrServerNotFound) {
			return serverID, false, err
		}
		s.log.Info("Drawing unknown to server, creating it again", "id", id.String(), "serverId", serverID)
		s.ids.Delete(id)
	}
	created, err := s.client.CreateDrawing(ctx, projectID, d)
	if err != nil {
		return "", false, err
	}
	s.remember(ctx, core.KindDrawing, id, created)
	return created, false, nil
}

// remove deletes a record by the server id captured when the job was queued,
// falling back to the cache. Records the server never had, or no longer has,
// count as deleted.
func (s *Syncer) remove(ctx context.Context, job Job) error {
	serverID := job.ServerID
	if serverID == "" {
		serverID, _ = s.ids.Get(job.LocalID)
	}
	if serverID == "" {
		return nil
	}
	var err error
	switch job.Kind {
	case core.KindProject:
		err = s.client.DeleteProject(ctx, serverID)
	case core.KindDrawing:
		err = s.client.DeleteDrawing(ctx, serverID)
	default:
		return fmt.Errorf("%w: cannot delete %s", core.ErrValidation, job.Kind)
	}
	if err != nil && !errors.Is(err, api.ErrServerNotFound) {
		return err
	}
	s.ids.Delete(job.LocalID)
	return nil
}

// upload attaches job.Path to its drawing, retrying once on a transient failure.
// It is deferred while the drawing has no server id.
func (s *Syncer) upload(ctx context.Context, job Job) (string, bool, error) {
	serverID, err := s.resolve(ctx, core.KindDrawing, job.LocalID)
	if err != nil {
		return "", false, err
	}
	if serverID == "" {
		return "", true, nil
	}
	err = s.client.UploadFile(ctx, serverID, job.Path)
	if api.IsRetryable(err) {
		s.log.Debug("Upload failed, retrying once", "job", job.String(), "error", err)
		err = s.client.UploadFile(ctx, serverID, job.Path)
	}
	if err != nil {
		return "", false, err
	}
	return serverID, false, nil
}
