package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"roster-roast/internal/domain"
	"roster-roast/internal/domain/model"
	"roster-roast/internal/domain/ports/adapter"
	"roster-roast/internal/domain/ports/repository"
)

// Compile-time check
var _ SongUseCase = (*songUC)(nil)

// SongUseCase is the surface the HTTP layer consumes.
type SongUseCase interface {
	// Submit validates and accepts a generation request: the job is created
	// in queued state with its input hash fixed, then handed to the queue.
	Submit(ctx context.Context, req model.GenerationRequest) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	// Retry re-enqueues a failed job as a new logical attempt.
	Retry(ctx context.Context, id string) (*model.Job, error)
	// Unlock marks the full track purchasable-downloaded. Entitlement
	// bookkeeping lives with the payment collaborator; this is its hook.
	Unlock(ctx context.Context, id string) (*model.Job, error)
	PreviewURL(ctx context.Context, id string) (string, error)
	DownloadURL(ctx context.Context, id string) (string, error)
}

type songUC struct {
	jobs   repository.JobRepository
	queue  repository.SongQueue
	blobs  adapter.BlobStore
	urlTTL time.Duration
	log    *zerolog.Logger
}

func NewSongUseCase(
	jobs repository.JobRepository,
	queue repository.SongQueue,
	blobs adapter.BlobStore,
	urlTTL time.Duration,
	logger *zerolog.Logger,
) *songUC {
	l := logger.With().Str("component", "SongUseCase").Logger()
	if urlTTL <= 0 {
		urlTTL = 10 * time.Minute
	}
	return &songUC{jobs: jobs, queue: queue, blobs: blobs, urlTTL: urlTTL, log: &l}
}

func (u *songUC) Submit(ctx context.Context, req model.GenerationRequest) (*model.Job, error) {
	norm := req.Normalize()
	if err := validateRequest(norm); err != nil {
		return nil, err
	}

	hash := norm.Hash()
	job := &model.Job{Request: req, InputHash: hash}
	if err := u.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if err := u.queue.Enqueue(ctx, &model.QueuedSong{JobID: job.ID, InputHash: hash}); err != nil {
		// The job exists but will never be delivered; fail it so the record
		// stays inspectable rather than stuck in queued forever.
		msg := "could not enqueue generation request"
		_, _ = u.jobs.Update(ctx, job.ID, model.JobUpdate{
			Status:       model.StatusPtr(model.JobStatusFailed),
			ErrorMessage: model.StrPtr(msg),
		})
		return nil, fmt.Errorf("enqueue job %s: %w", job.ID, err)
	}

	u.log.Info().Str("job_id", job.ID).Str("input_hash", hash).Msg("song request accepted")
	return job, nil
}

func (u *songUC) Get(ctx context.Context, id string) (*model.Job, error) {
	return u.jobs.FindByID(ctx, id)
}

func (u *songUC) Retry(ctx context.Context, id string) (*model.Job, error) {
	job, err := u.jobs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusFailed {
		return nil, domain.ErrJobNotRetryable
	}

	// Clearing the provider request id makes the next delivery submit from
	// scratch rather than resume a request the provider already gave up on.
	job, err = u.jobs.Update(ctx, id, model.JobUpdate{
		Status:            model.StatusPtr(model.JobStatusQueued),
		ErrorMessage:      model.StrPtr(""),
		ProviderRequestID: model.StrPtr(""),
	})
	if err != nil {
		return nil, err
	}
	if err := u.queue.Enqueue(ctx, &model.QueuedSong{JobID: job.ID, InputHash: job.InputHash}); err != nil {
		return nil, fmt.Errorf("re-enqueue job %s: %w", id, err)
	}
	u.log.Info().Str("job_id", id).Msg("job retry requested")
	return job, nil
}

func (u *songUC) Unlock(ctx context.Context, id string) (*model.Job, error) {
	return u.jobs.Update(ctx, id, model.JobUpdate{Unlocked: model.BoolPtr(true)})
}

func (u *songUC) PreviewURL(ctx context.Context, id string) (string, error) {
	job, err := u.jobs.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if job.Status != model.JobStatusSucceeded || job.PreviewMP3Key == "" {
		return "", domain.ErrArtifactNotReady
	}
	return u.blobs.SignedURL(job.PreviewMP3Key, adapter.BucketPreviews, u.urlTTL)
}

func (u *songUC) DownloadURL(ctx context.Context, id string) (string, error) {
	job, err := u.jobs.FindByID(ctx, id)
	if err != nil {
		return "", err
	}
	if job.Status != model.JobStatusSucceeded || job.MP3Key == "" {
		return "", domain.ErrArtifactNotReady
	}
	if !job.Unlocked {
		return "", domain.ErrDownloadLocked
	}
	return u.blobs.SignedURL(job.MP3Key, adapter.BucketAudio, u.urlTTL)
}

func validateRequest(req model.GenerationRequest) error {
	if req.TeamName == "" || req.OpponentTeamName == "" {
		return fmt.Errorf("%w: both team names are required", domain.ErrInvalidArgument)
	}
	if !contains(model.Genres, req.Genre) {
		return fmt.Errorf("%w: unknown genre %q", domain.ErrInvalidArgument, req.Genre)
	}
	if !contains(model.Tones, req.Tone) {
		return fmt.Errorf("%w: unknown tone %q", domain.ErrInvalidArgument, req.Tone)
	}
	if !contains(model.Personas, req.Persona) {
		return fmt.Errorf("%w: unknown persona %q", domain.ErrInvalidArgument, req.Persona)
	}
	if !contains(model.Ratings, req.RatingMode) {
		return fmt.Errorf("%w: unknown rating mode %q", domain.ErrInvalidArgument, req.RatingMode)
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
