package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound          = errors.New("entity not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrAlreadyExists     = errors.New("entity already exists")
	ErrQueueFull         = errors.New("song queue is full")
	ErrJobNotRetryable   = errors.New("job is not in a retryable state")
	ErrArtifactNotReady  = errors.New("requested artifact is not ready")
	ErrDownloadLocked    = errors.New("full track is not unlocked for this job")
	ErrGenerationTimeout = errors.New("song generation timed out")
)
