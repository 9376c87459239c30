package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Pinger checks one backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PoolPinger adapts a pgx pool.
type PoolPinger struct{ Pool *pgxpool.Pool }

func (p PoolPinger) Ping(ctx context.Context) error { return p.Pool.Ping(ctx) }

// RedisPinger adapts a go-redis client.
type RedisPinger struct{ Client *redis.Client }

func (p RedisPinger) Ping(ctx context.Context) error { return p.Client.Ping(ctx).Err() }

// CheckAll pings every named store and returns "ok" or the error text per name.
func CheckAll(ctx context.Context, timeout time.Duration, stores map[string]Pinger) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	healthy := true
	out := make(map[string]string, len(stores))
	for name, p := range stores {
		if err := p.Ping(ctx); err != nil {
			out[name] = err.Error()
			healthy = false
			continue
		}
		out[name] = "ok"
	}
	return out, healthy
}
