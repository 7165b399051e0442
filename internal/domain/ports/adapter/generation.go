package adapter

import "context"

// GenerationStatus mirrors the provider-side lifecycle of a synthesis request.
type GenerationStatus string

const (
	GenerationQueued     GenerationStatus = "queued"
	GenerationProcessing GenerationStatus = "processing"
	GenerationSucceeded  GenerationStatus = "succeeded"
	GenerationFailed     GenerationStatus = "failed"
)

// SubmitParams is what the music provider needs to start a render.
type SubmitParams struct {
	Lyrics      string
	Genre       string
	Tone        string
	Persona     string
	RatingMode  string
	DurationSec int
}

// PollResult reflects current provider-side state only; polling never
// advances anything. Transient marks a failed result caused by transport
// trouble (network, rate limit, 5xx) rather than by the provider declaring
// the render dead; transient failures are eligible for queue-level retry.
type PollResult struct {
	Status      GenerationStatus
	Audio       []byte
	DurationSec int
	Lyrics      string
	Error       string
	Transient   bool
}

// GenerationAdapter wraps the external music-generation API.
//
// Submit returns immediately with an opaque request id; it never blocks on
// completion. Poll is idempotent and must not surface transport errors as Go
// errors: network failures, timeouts and non-2xx responses map to a
// PollResult with Status failed and a message.
type GenerationAdapter interface {
	Submit(ctx context.Context, params SubmitParams) (string, error)
	Poll(ctx context.Context, requestID string) (PollResult, error)
}
