package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"roster-roast/internal/domain"
	"roster-roast/internal/domain/model"
	"roster-roast/internal/domain/ports/repository"
)

var _ repository.JobRepository = (*JobRepo)(nil)

// JobRepo is the durable job store for multi-worker deployments. Update is a
// single partial UPDATE statement, so concurrent merges on different fields
// of the same record stay atomic at the row level.
type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

const jobColumns = `id, status, input_hash, request, provider_request_id, lyrics, lyrics_lrc,
mp3_key, preview_mp3_key, duration_sec, error_message, unlocked, created_at, updated_at`

func (r *JobRepo) Create(ctx context.Context, job *model.Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now()
	job.Status = model.JobStatusQueued
	job.CreatedAt = now
	job.UpdatedAt = now

	reqJSON, err := json.Marshal(job.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	const q = `
INSERT INTO song_jobs (id, status, input_hash, request, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6);`
	_, err = r.pool.Exec(ctx, q, job.ID, job.Status, job.InputHash, reqJSON, job.CreatedAt, job.UpdatedAt)
	return err
}

func (r *JobRepo) FindByID(ctx context.Context, id string) (*model.Job, error) {
	const q = `SELECT ` + jobColumns + ` FROM song_jobs WHERE id = $1;`
	return r.scanJob(r.pool.QueryRow(ctx, q, id))
}

func (r *JobRepo) FindSucceededByHash(ctx context.Context, hash string) (*model.Job, error) {
	const q = `
SELECT ` + jobColumns + `
FROM song_jobs
WHERE input_hash = $1 AND status = 'succeeded'
ORDER BY updated_at DESC
LIMIT 1;`
	return r.scanJob(r.pool.QueryRow(ctx, q, hash))
}

func (r *JobRepo) Update(ctx context.Context, id string, upd model.JobUpdate) (*model.Job, error) {
	sets := []string{"updated_at = now()"}
	args := []interface{}{id}

	add := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.ProviderRequestID != nil {
		add("provider_request_id", *upd.ProviderRequestID)
	}
	if upd.Lyrics != nil {
		add("lyrics", *upd.Lyrics)
	}
	if upd.LyricsLRC != nil {
		add("lyrics_lrc", *upd.LyricsLRC)
	}
	if upd.MP3Key != nil {
		add("mp3_key", *upd.MP3Key)
	}
	if upd.PreviewMP3Key != nil {
		add("preview_mp3_key", *upd.PreviewMP3Key)
	}
	if upd.DurationSec != nil {
		add("duration_sec", *upd.DurationSec)
	}
	if upd.ErrorMessage != nil {
		add("error_message", *upd.ErrorMessage)
	}
	if upd.Unlocked != nil {
		add("unlocked", *upd.Unlocked)
	}

	q := "UPDATE song_jobs SET " + joinSets(sets) + " WHERE id = $1 RETURNING " + jobColumns + ";"
	return r.scanJob(r.pool.QueryRow(ctx, q, args...))
}

func (r *JobRepo) scanJob(row pgx.Row) (*model.Job, error) {
	var (
		j        model.Job
		status   string
		reqJSON  []byte
		provider *string
		lyrics   *string
		lrcText  *string
		mp3      *string
		preview  *string
		duration *int
		errMsg   *string
	)
	err := row.Scan(
		&j.ID, &status, &j.InputHash, &reqJSON, &provider, &lyrics, &lrcText,
		&mp3, &preview, &duration, &errMsg, &j.Unlocked, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	j.Status = model.JobStatus(status)
	if len(reqJSON) > 0 {
		if err := json.Unmarshal(reqJSON, &j.Request); err != nil {
			return nil, fmt.Errorf("unmarshal request: %w", err)
		}
	}
	j.ProviderRequestID = deref(provider)
	j.Lyrics = deref(lyrics)
	j.LyricsLRC = deref(lrcText)
	j.MP3Key = deref(mp3)
	j.PreviewMP3Key = deref(preview)
	if duration != nil {
		j.DurationSec = *duration
	}
	j.ErrorMessage = deref(errMsg)
	return &j, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func joinSets(sets []string) string {
	out := sets[0]
	for _, s := range sets[1:] {
		out += ", " + s
	}
	return out
}
