package repository

import (
	"context"

	"roster-roast/internal/domain/model"
)

// JobRepository is the durable record of job state. Each in-flight job id is
// owned by exactly one worker at a time (queue delivery semantics), so the
// store only needs per-record atomic merge, not cross-job locking.
type JobRepository interface {
	// Create assigns a fresh id when the job has none, initializes status to
	// queued and stamps CreatedAt/UpdatedAt.
	Create(ctx context.Context, job *model.Job) error
	FindByID(ctx context.Context, id string) (*model.Job, error)
	// FindSucceededByHash returns only jobs whose status is succeeded; a
	// matching hash in any other state is not a valid cache hit. Returns
	// domain.ErrNotFound when there is none.
	FindSucceededByHash(ctx context.Context, hash string) (*model.Job, error)
	// Update applies a partial merge and refreshes UpdatedAt. Updating a
	// non-existent id returns domain.ErrNotFound.
	Update(ctx context.Context, id string, upd model.JobUpdate) (*model.Job, error)
}
