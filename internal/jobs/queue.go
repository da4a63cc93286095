package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/auralabs/aura-backend/internal/platform/envutil"
	"github.com/auralabs/aura-backend/internal/platform/logger"
)

// ErrEmpty is returned by Dequeue when no document id was available
// within the poll window.
var ErrEmpty = errors.New("queue empty")

// Queue carries document ids from the upload handler to the processing
// worker. Each enqueued id should be dispatched exactly once.
type Queue interface {
	Enqueue(ctx context.Context, documentID uuid.UUID) error
	Dequeue(ctx context.Context) (uuid.UUID, error)
	Close() error
}

type redisQueue struct {
	log *logger.Logger
	rdb *goredis.Client
	key string
}

// NewRedisQueue connects to the Redis list used as the task transport
// between the API process and its workers.
func NewRedisQueue(log *logger.Logger) (Queue, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(envutil.GetEnv("REDIS_ADDR", "", log))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	key := strings.TrimSpace(envutil.GetEnv("REDIS_QUEUE_KEY", "aura:document_queue", log))

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisQueue{
		log: log.With("component", "RedisQueue"),
		rdb: rdb,
		key: key,
	}, nil
}

func (q *redisQueue) Enqueue(ctx context.Context, documentID uuid.UUID) error {
	if q == nil || q.rdb == nil {
		return fmt.Errorf("redis queue not initialized")
	}
	return q.rdb.LPush(ctx, q.key, documentID.String()).Err()
}

func (q *redisQueue) Dequeue(ctx context.Context) (uuid.UUID, error) {
	vals, err := q.rdb.BRPop(ctx, 1*time.Second, q.key).Result()
	if errors.Is(err, goredis.Nil) {
		return uuid.Nil, ErrEmpty
	}
	if err != nil {
		return uuid.Nil, err
	}
	if len(vals) != 2 {
		return uuid.Nil, ErrEmpty
	}
	id, err := uuid.Parse(vals[1])
	if err != nil {
		q.log.Warn("Dropping malformed queue entry", "value", vals[1], "error", err)
		return uuid.Nil, ErrEmpty
	}
	return id, nil
}

func (q *redisQueue) Close() error {
	if q == nil || q.rdb == nil {
		return nil
	}
	return q.rdb.Close()
}

type memoryQueue struct {
	ch chan uuid.UUID
}

// NewMemoryQueue is the single-process fallback used when no Redis is
// configured. Enqueue never blocks the upload request; a full buffer is
// an error the caller surfaces.
func NewMemoryQueue(buffer int) Queue {
	if buffer <= 0 {
		buffer = 256
	}
	return &memoryQueue{ch: make(chan uuid.UUID, buffer)}
}

func (q *memoryQueue) Enqueue(ctx context.Context, documentID uuid.UUID) error {
	select {
	case q.ch <- documentID:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("queue full")
	}
}

func (q *memoryQueue) Dequeue(ctx context.Context) (uuid.UUID, error) {
	select {
	case id := <-q.ch:
		return id, nil
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	case <-time.After(1 * time.Second):
		return uuid.Nil, ErrEmpty
	}
}

func (q *memoryQueue) Close() error { return nil }
