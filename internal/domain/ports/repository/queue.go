package repository

import (
	"context"
	"time"

	"roster-roast/internal/domain/model"
)

// SongQueue delivers generation work to the orchestrator at least once.
// Redelivery of an already-succeeded job is tolerated by the orchestrator.
type SongQueue interface {
	Enqueue(ctx context.Context, song *model.QueuedSong) error
	// EnqueueAfter schedules a redelivery, used for backoff between attempts.
	EnqueueAfter(ctx context.Context, song *model.QueuedSong, delay time.Duration) error
	// Dequeue blocks until a unit of work is available or ctx is done.
	Dequeue(ctx context.Context) (*model.QueuedSong, error)
	Close() error
}
