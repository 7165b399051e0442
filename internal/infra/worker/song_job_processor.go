package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"roster-roast/internal/domain"
	"roster-roast/internal/domain/model"
	"roster-roast/internal/domain/ports/adapter"
	"roster-roast/internal/domain/ports/repository"
	"roster-roast/internal/infra/metrics"
	"roster-roast/internal/infra/storage"
	"roster-roast/internal/lrc"
)

// PreviewMaker is the slice of the audio post-processor the orchestrator needs.
type PreviewMaker interface {
	MakePreview(ctx context.Context, fullAudio []byte) ([]byte, error)
}

// Options bound the poll loop and queue-level redelivery.
type Options struct {
	PollInterval    time.Duration
	MaxPollAttempts int
	MaxDeliveries   int
	RetryBackoff    time.Duration
	DurationSec     int
}

func (o *Options) fillDefaults() {
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.MaxPollAttempts <= 0 {
		o.MaxPollAttempts = 60
	}
	if o.MaxDeliveries <= 0 {
		o.MaxDeliveries = 3
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 5 * time.Second
	}
	if o.DurationSec <= 0 {
		o.DurationSec = 45
	}
}

// SongJobProcessor is the orchestrator: it consumes queued work and drives
// each job through queued -> processing -> succeeded|failed. Within one job
// the stages are strictly sequential; the poll loop is the only suspension
// point.
type SongJobProcessor struct {
	jobs     repository.JobRepository
	queue    repository.SongQueue
	renderer adapter.LyricsRenderer
	gen      adapter.GenerationAdapter
	blobs    adapter.BlobStore
	preview  PreviewMaker
	opts     Options
	log      *zerolog.Logger
}

func NewSongJobProcessor(
	jobs repository.JobRepository,
	queue repository.SongQueue,
	renderer adapter.LyricsRenderer,
	gen adapter.GenerationAdapter,
	blobs adapter.BlobStore,
	preview PreviewMaker,
	opts Options,
	logger *zerolog.Logger,
) *SongJobProcessor {
	opts.fillDefaults()
	l := logger.With().Str("component", "SongJobProcessor").Logger()
	return &SongJobProcessor{
		jobs:     jobs,
		queue:    queue,
		renderer: renderer,
		gen:      gen,
		blobs:    blobs,
		preview:  preview,
		opts:     opts,
		log:      &l,
	}
}

// Start consumes the queue until ctx is done, dispatching onto pool. It
// blocks, so run it in a goroutine.
func (p *SongJobProcessor) Start(ctx context.Context, pool *Pool) {
	p.log.Info().Msg("song job processor started")
	for {
		song, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.log.Info().Msg("song job processor stopping")
				return
			}
			p.log.Error().Err(err).Msg("dequeue failed")
			continue
		}
		s := song
		if err := pool.Submit(ctx, func(ctx context.Context) error {
			p.ProcessOne(ctx, s)
			return nil
		}); err != nil {
			return
		}
	}
}

// ProcessOne runs one delivery of one job end to end. A failure anywhere is
// caught once here: the job is marked failed with a single human-readable
// message, then redelivered with backoff while attempts remain.
func (p *SongJobProcessor) ProcessOne(ctx context.Context, song *model.QueuedSong) {
	log := p.log.With().Str("job_id", song.JobID).Int("attempt", song.Attempt).Logger()

	job, err := p.jobs.FindByID(ctx, song.JobID)
	if err != nil {
		log.Error().Err(err).Msg("queued job not in store, dropping")
		return
	}
	// At-least-once delivery: reprocessing a finished job is a no-op.
	if job.Status == model.JobStatusSucceeded {
		log.Debug().Msg("job already succeeded, ignoring redelivery")
		return
	}

	if _, err := p.jobs.Update(ctx, job.ID, model.JobUpdate{
		Status: model.StatusPtr(model.JobStatusProcessing),
	}); err != nil {
		log.Error().Err(err).Msg("could not mark job processing")
		return
	}

	start := time.Now()
	err = p.handle(ctx, job)
	if err == nil {
		metrics.IncSongJob(string(model.JobStatusSucceeded))
		log.Info().Dur("elapsed", time.Since(start)).Msg("job succeeded")
		return
	}

	msg := err.Error()
	if _, uerr := p.jobs.Update(ctx, job.ID, model.JobUpdate{
		Status:       model.StatusPtr(model.JobStatusFailed),
		ErrorMessage: model.StrPtr(msg),
	}); uerr != nil {
		log.Error().Err(uerr).Msg("could not record job failure")
	}
	metrics.IncSongJob(string(model.JobStatusFailed))
	log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("job failed")

	// Hand transient failures back to the queue with exponential backoff.
	// Terminal conditions (provider-reported failure, poll timeout) get no
	// further deliveries.
	if isTerminal(err) {
		return
	}
	next := song.Attempt + 1
	if next >= p.opts.MaxDeliveries {
		log.Warn().Int("deliveries", next).Msg("job permanently failed, deliveries exhausted")
		return
	}
	backoff := p.opts.RetryBackoff * (1 << song.Attempt)
	redelivery := &model.QueuedSong{JobID: song.JobID, InputHash: song.InputHash, Attempt: next}
	if qerr := p.queue.EnqueueAfter(ctx, redelivery, backoff); qerr != nil {
		log.Error().Err(qerr).Msg("could not schedule redelivery")
		return
	}
	log.Info().Dur("backoff", backoff).Int("next_attempt", next).Msg("redelivery scheduled")
}

func (p *SongJobProcessor) handle(ctx context.Context, job *model.Job) error {
	// Dedup: a prior succeeded job with the same input hash donates its
	// artifacts. This is the one path to succeeded that skips the provider.
	if prior, err := p.jobs.FindSucceededByHash(ctx, job.InputHash); err == nil && prior.ID != job.ID {
		metrics.IncCacheHit()
		_, err = p.jobs.Update(ctx, job.ID, model.JobUpdate{
			Status:            model.StatusPtr(model.JobStatusSucceeded),
			ProviderRequestID: model.StrPtr(prior.ProviderRequestID),
			Lyrics:            model.StrPtr(prior.Lyrics),
			LyricsLRC:         model.StrPtr(prior.LyricsLRC),
			MP3Key:            model.StrPtr(prior.MP3Key),
			PreviewMP3Key:     model.StrPtr(prior.PreviewMP3Key),
			DurationSec:       model.IntPtr(prior.DurationSec),
		})
		return err
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("dedup lookup: %w", err)
	}

	// A prior delivery that already submitted leaves its provider request id
	// behind; resume polling instead of paying for a second render. A
	// user-facing retry clears the id, forcing a fresh submission.
	if job.ProviderRequestID != "" && job.Lyrics != "" {
		return p.awaitAndFinish(ctx, job, job.ProviderRequestID, job.Lyrics)
	}

	norm := job.Request.Normalize()
	lyricsText, err := p.renderer.Render(adapter.LyricsInput{
		TeamName:         norm.TeamName,
		OpponentTeamName: norm.OpponentTeamName,
		YourRoster:       norm.YourRoster,
		OpponentRoster:   norm.OpponentRoster,
		Genre:            norm.Genre,
		Tone:             norm.Tone,
		Persona:          norm.Persona,
		RatingMode:       norm.RatingMode,
	})
	if err != nil {
		return fmt.Errorf("render lyrics: %w", err)
	}

	requestID, err := p.gen.Submit(ctx, adapter.SubmitParams{
		Lyrics:      lyricsText,
		Genre:       norm.Genre,
		Tone:        norm.Tone,
		Persona:     norm.Persona,
		RatingMode:  norm.RatingMode,
		DurationSec: p.opts.DurationSec,
	})
	if err != nil {
		return fmt.Errorf("submit to provider: %w", err)
	}

	// Persist the provider id before polling so a crash mid-poll leaves an
	// inspectable trail.
	if _, err := p.jobs.Update(ctx, job.ID, model.JobUpdate{
		Lyrics:            model.StrPtr(lyricsText),
		ProviderRequestID: model.StrPtr(requestID),
	}); err != nil {
		return fmt.Errorf("persist provider request id: %w", err)
	}

	return p.awaitAndFinish(ctx, job, requestID, lyricsText)
}

func (p *SongJobProcessor) awaitAndFinish(ctx context.Context, job *model.Job, requestID, lyricsText string) error {
	for attempt := 1; attempt <= p.opts.MaxPollAttempts; attempt++ {
		res, err := p.gen.Poll(ctx, requestID)
		if err != nil {
			metrics.ObservePollAttempts(attempt)
			return fmt.Errorf("poll provider: %w", err)
		}

		switch res.Status {
		case adapter.GenerationSucceeded:
			metrics.ObservePollAttempts(attempt)
			return p.finishSucceeded(ctx, job, res, lyricsText)
		case adapter.GenerationFailed:
			metrics.ObservePollAttempts(attempt)
			msg := res.Error
			if msg == "" {
				msg = "song generation failed"
			}
			// Transport-level trouble is retryable at the queue; a failure
			// the provider itself reported is not.
			if res.Transient {
				return errors.New(msg)
			}
			return &providerError{msg: msg}
		}

		if attempt == p.opts.MaxPollAttempts {
			break
		}
		select {
		case <-time.After(p.opts.PollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	metrics.ObservePollAttempts(p.opts.MaxPollAttempts)
	return domain.ErrGenerationTimeout
}

func (p *SongJobProcessor) finishSucceeded(ctx context.Context, job *model.Job, res adapter.PollResult, lyricsText string) error {
	duration := res.DurationSec
	if duration <= 0 {
		duration = p.opts.DurationSec
	}

	fullKey, err := p.blobs.Put(ctx, storage.NewKey(job.ID, storage.ArtifactFull), res.Audio, adapter.BucketAudio)
	if err != nil {
		return fmt.Errorf("store full track: %w", err)
	}

	previewBytes, err := p.preview.MakePreview(ctx, res.Audio)
	if err != nil {
		return fmt.Errorf("derive preview: %w", err)
	}
	previewKey, err := p.blobs.Put(ctx, storage.NewKey(job.ID, storage.ArtifactPreview), previewBytes, adapter.BucketPreviews)
	if err != nil {
		return fmt.Errorf("store preview: %w", err)
	}

	timed := lrc.Build(lyricsText, duration)

	// Artifacts and the succeeded status land in one update so a reader
	// never sees a succeeded job with missing pieces.
	_, err = p.jobs.Update(ctx, job.ID, model.JobUpdate{
		Status:        model.StatusPtr(model.JobStatusSucceeded),
		MP3Key:        model.StrPtr(fullKey),
		PreviewMP3Key: model.StrPtr(previewKey),
		LyricsLRC:     model.StrPtr(timed),
		DurationSec:   model.IntPtr(duration),
	})
	return err
}

// providerError marks a provider-reported failure: terminal, not worth a
// queue-level redelivery.
type providerError struct{ msg string }

func (e *providerError) Error() string { return e.msg }

func isTerminal(err error) bool {
	var pe *providerError
	return errors.As(err, &pe) || errors.Is(err, domain.ErrGenerationTimeout)
}
