package syncer

import (
	"fmt"

	"github.com/sitewalk/planmark/pkg/core"
)

// Action is what a job does on the backend.
type Action string

const (
	ActionSave   Action = "save"   // create, or update when a server id is known
	ActionDelete Action = "delete" // remove by server id
	ActionUpload Action = "upload" // attach a file to a drawing
)

// Job is one unit of outbox work.
type Job struct {
	ID       core.ID
	Kind     core.Kind // project or drawing
	Action   Action
	LocalID  core.ID
	ServerID string // for deletes, captured before the local record went away
	Path     string // for uploads
	Deferred bool   // waiting for the owner to get a server id
}

func (j Job) String() string {
	return fmt.Sprintf("%s %s %s", j.Action, j.Kind, j.LocalID)
}

// Result reports the outcome of one job attempt.
type Result struct {
	Job      Job
	ServerID string
	Deferred bool
	Err      error
}

// OK reports whether the job finished.
func (r Result) OK() bool {
	return r.Err == nil && !r.Deferred
}
