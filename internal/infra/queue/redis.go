package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"roster-roast/internal/config"
	"roster-roast/internal/domain/model"
	"roster-roast/internal/domain/ports/repository"
)

var _ repository.SongQueue = (*RedisQueue)(nil)

const (
	readyKey   = "song_generate:ready"
	delayedKey = "song_generate:delayed"
)

// RedisQueue is a list-backed ready queue plus a sorted-set delay queue,
// scored by the unix time a redelivery becomes due.
type RedisQueue struct {
	cli *redis.Client
}

func NewRedisQueue(ctx context.Context, cfg *config.RedisConfig) (*RedisQueue, error) {
	cli := redis.NewClient(&redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisQueue{cli: cli}, nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, song *model.QueuedSong) error {
	b, err := json.Marshal(song)
	if err != nil {
		return err
	}
	return q.cli.LPush(ctx, readyKey, b).Err()
}

func (q *RedisQueue) EnqueueAfter(ctx context.Context, song *model.QueuedSong, delay time.Duration) error {
	if delay <= 0 {
		return q.Enqueue(ctx, song)
	}
	b, err := json.Marshal(song)
	if err != nil {
		return err
	}
	due := float64(time.Now().Add(delay).UnixMilli())
	return q.cli.ZAdd(ctx, delayedKey, &redis.Z{Score: due, Member: b}).Err()
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*model.QueuedSong, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := q.promoteDue(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return nil, err
		}

		res, err := q.cli.BRPop(ctx, time.Second, readyKey).Result()
		if errors.Is(err, redis.Nil) {
			continue // timed out, loop to promote delayed work
		}
		if err != nil {
			return nil, err
		}
		var song model.QueuedSong
		if err := json.Unmarshal([]byte(res[1]), &song); err != nil {
			return nil, fmt.Errorf("decode queued song: %w", err)
		}
		return &song, nil
	}
}

// promoteDue moves delayed entries whose time has come onto the ready list.
func (q *RedisQueue) promoteDue(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	members, err := q.cli.ZRangeByScore(ctx, delayedKey, &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil || len(members) == 0 {
		return err
	}
	for _, m := range members {
		removed, err := q.cli.ZRem(ctx, delayedKey, m).Result()
		if err != nil {
			return err
		}
		// another worker may have promoted it first
		if removed == 0 {
			continue
		}
		if err := q.cli.LPush(ctx, readyKey, m).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (q *RedisQueue) Close() error { return q.cli.Close() }
