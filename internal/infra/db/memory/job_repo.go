// Package memory holds the in-memory job store used by the single-process
// deployment and by tests. The Postgres store in internal/infra/db/postgres
// is the durable option for multi-worker setups.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"roster-roast/internal/domain"
	"roster-roast/internal/domain/model"
	"roster-roast/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*JobRepo)(nil)

type JobRepo struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
}

func NewJobRepo() *JobRepo {
	return &JobRepo{jobs: make(map[string]*model.Job)}
}

func (r *JobRepo) Create(ctx context.Context, job *model.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if _, exists := r.jobs[job.ID]; exists {
		return domain.ErrAlreadyExists
	}
	now := time.Now()
	job.Status = model.JobStatusQueued
	job.CreatedAt = now
	job.UpdatedAt = now

	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *JobRepo) FindByID(ctx context.Context, id string) (*model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (r *JobRepo) FindSucceededByHash(ctx context.Context, hash string) (*model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, j := range r.jobs {
		if j.InputHash == hash && j.Status == model.JobStatusSucceeded {
			cp := *j
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *JobRepo) Update(ctx context.Context, id string, upd model.JobUpdate) (*model.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	if upd.Status != nil {
		j.Status = *upd.Status
	}
	if upd.ProviderRequestID != nil {
		j.ProviderRequestID = *upd.ProviderRequestID
	}
	if upd.Lyrics != nil {
		j.Lyrics = *upd.Lyrics
	}
	if upd.LyricsLRC != nil {
		j.LyricsLRC = *upd.LyricsLRC
	}
	if upd.MP3Key != nil {
		j.MP3Key = *upd.MP3Key
	}
	if upd.PreviewMP3Key != nil {
		j.PreviewMP3Key = *upd.PreviewMP3Key
	}
	if upd.DurationSec != nil {
		j.DurationSec = *upd.DurationSec
	}
	if upd.ErrorMessage != nil {
		j.ErrorMessage = *upd.ErrorMessage
	}
	if upd.Unlocked != nil {
		j.Unlocked = *upd.Unlocked
	}
	j.UpdatedAt = time.Now()

	cp := *j
	return &cp, nil
}
