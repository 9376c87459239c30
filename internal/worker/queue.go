package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	BatchSize     = 50
	BatchTimeout  = 2 * time.Second
	PollTimeout   = 1 * time.Second // Must be >= 1s to satisfy Redis
	drainLimit    = 1000
	shutdownGrace = 5 * time.Second
)

// flushFunc persists a batch and returns the items that must be retried.
type flushFunc[T any] func(ctx context.Context, batch []*T) (retry []*T)

// batchConsumer drains one Redis list in batches flushed by size or age.
type batchConsumer[T any] struct {
	rdb   redis.UniversalClient
	queue string
	flush flushFunc[T]
	log   zerolog.Logger
}

func (c *batchConsumer[T]) run(ctx context.Context) {
	c.log.Info().Str("queue", c.queue).Msg("Worker started")

	buffer := make([]*T, 0, BatchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 && (len(buffer) >= BatchSize || time.Since(lastFlush) >= BatchTimeout) {
			c.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			c.shutdown(buffer)
			return
		default:
		}

		result, err := c.rdb.BLPop(ctx, PollTimeout, c.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			c.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		if p, ok := c.decode(result[1]); ok {
			buffer = append(buffer, p)
		}
	}
}

func (c *batchConsumer[T]) decode(raw string) (*T, bool) {
	var p T
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		// Malformed payloads can never succeed; drop them.
		c.log.Error().Err(err).Str("data", raw).Msg("Discarding malformed JSON")
		return nil, false
	}
	return &p, true
}

func (c *batchConsumer[T]) flushSafe(ctx context.Context, batch []*T) {
	if len(batch) == 0 {
		return
	}
	if retry := c.flush(ctx, batch); len(retry) > 0 {
		c.requeue(ctx, retry)
	}
}

func (c *batchConsumer[T]) requeue(ctx context.Context, items []*T) {
	pipe := c.rdb.Pipeline()
	for _, p := range items {
		data, _ := json.Marshal(p)
		pipe.RPush(ctx, c.queue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
		return
	}
	c.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	// Back off so a hard database outage does not spin the loop.
	time.Sleep(2 * time.Second)
}

// shutdown flushes the in-memory buffer, then drains what is left in the queue.
func (c *batchConsumer[T]) shutdown(buffer []*T) {
	c.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	c.flushSafe(ctx, buffer)

	batch := make([]*T, 0, BatchSize)
	drained := 0
	for drained < drainLimit && ctx.Err() == nil {
		raw, err := c.rdb.LPop(ctx, c.queue).Result()
		if err != nil {
			break
		}
		if p, ok := c.decode(raw); ok {
			batch = append(batch, p)
			drained++
		}
		if len(batch) >= BatchSize {
			c.flushSafe(ctx, batch)
			batch = batch[:0]
		}
	}
	c.flushSafe(ctx, batch)

	if drained > 0 {
		c.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
	c.log.Info().Msg("Worker stopped")
}
