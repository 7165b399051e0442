// Package queue provides the song work queue: an in-memory channel queue for
// single-process runs and tests, and a Redis-backed queue for deployments.
package queue

import (
	"context"
	"sync"
	"time"

	"roster-roast/internal/domain"
	"roster-roast/internal/domain/model"
	"roster-roast/internal/domain/ports/repository"
)

var _ repository.SongQueue = (*MemoryQueue)(nil)

type MemoryQueue struct {
	ch     chan *model.QueuedSong
	mu     sync.Mutex
	timers map[*time.Timer]struct{}
	closed bool
}

func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 256
	}
	return &MemoryQueue{
		ch:     make(chan *model.QueuedSong, capacity),
		timers: make(map[*time.Timer]struct{}),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, song *model.QueuedSong) error {
	select {
	case q.ch <- song:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return domain.ErrQueueFull
	}
}

func (q *MemoryQueue) EnqueueAfter(ctx context.Context, song *model.QueuedSong, delay time.Duration) error {
	if delay <= 0 {
		return q.Enqueue(ctx, song)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return domain.ErrQueueFull
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		q.mu.Lock()
		delete(q.timers, timer)
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return
		}
		select {
		case q.ch <- song:
		default:
			// saturated on redelivery: drop, the job stays failed
		}
	})
	q.timers[timer] = struct{}{}
	return nil
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*model.QueuedSong, error) {
	select {
	case song := <-q.ch:
		return song, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	for t := range q.timers {
		t.Stop()
	}
	q.timers = map[*time.Timer]struct{}{}
	return nil
}
