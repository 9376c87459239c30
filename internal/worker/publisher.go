package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/service"
)

// RedisEventBus publishes session events to the session's PubSub channel and
// enqueues audit and result rows for the write-behind workers, in one pipeline.
type RedisEventBus struct {
	rdb redis.UniversalClient
}

// NewRedisEventBus creates a new RedisEventBus.
func NewRedisEventBus(rdb redis.UniversalClient) *RedisEventBus {
	return &RedisEventBus{rdb: rdb}
}

func (b *RedisEventBus) Publish(ctx context.Context, ev service.SessionEvent) error {
	msg, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	answers, err := answerPayloads(ev)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	pipe := b.rdb.Pipeline()
	pipe.Publish(ctx, config.CacheKey.SessionEventsChannel(ev.SessionToken), msg)
	for _, a := range answers {
		data, _ := json.Marshal(a)
		pipe.RPush(ctx, config.WorkerKey.PersistAnswerEventsQueue, data)
	}
	if r := resultPayloadFor(ev); r != nil {
		data, _ := json.Marshal(r)
		pipe.RPush(ctx, config.WorkerKey.PersistResultsQueue, data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish to redis: %w", err)
	}
	return nil
}

// Subscribe opens a PubSub subscription to one session's events.
func (b *RedisEventBus) Subscribe(ctx context.Context, sessionToken string) *redis.PubSub {
	return b.rdb.Subscribe(ctx, config.CacheKey.SessionEventsChannel(sessionToken))
}
