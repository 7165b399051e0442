package model

import "time"

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
)

// Job is the lifecycle record for one song generation. InputHash is fixed at
// creation; artifact fields (MP3Key, PreviewMP3Key, LyricsLRC, DurationSec)
// are only written together with the transition to succeeded, and
// ErrorMessage only together with failed.
type Job struct {
	ID                string
	Status            JobStatus
	InputHash         string
	Request           GenerationRequest // raw inputs, kept for display/audit
	ProviderRequestID string
	Lyrics            string
	LyricsLRC         string
	MP3Key            string
	PreviewMP3Key     string
	DurationSec       int
	ErrorMessage      string
	Unlocked          bool // entitlement flag, owned by the payment collaborator
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// JobUpdate is a partial merge: nil fields are left untouched. The store
// refreshes UpdatedAt on every apply.
type JobUpdate struct {
	Status            *JobStatus
	ProviderRequestID *string
	Lyrics            *string
	LyricsLRC         *string
	MP3Key            *string
	PreviewMP3Key     *string
	DurationSec       *int
	ErrorMessage      *string
	Unlocked          *bool
}

// QueuedSong is the unit of work delivered to the orchestrator. Attempt
// counts queue deliveries, not provider polls.
type QueuedSong struct {
	JobID     string `json:"job_id"`
	InputHash string `json:"input_hash"`
	Attempt   int    `json:"attempt"`
}

func StatusPtr(s JobStatus) *JobStatus { return &s }
func StrPtr(s string) *string          { return &s }
func IntPtr(i int) *int                { return &i }
func BoolPtr(b bool) *bool             { return &b }
