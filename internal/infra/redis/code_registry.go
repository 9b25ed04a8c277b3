package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeRegistry reserves join codes in Redis so multiple engine instances
// cannot mint the same code for two concurrently active sessions. The TTL is
// a safety net against leaked reservations (a crashed instance that never
// released); it should comfortably exceed the longest plausible session.
type CodeRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCodeRegistry(client *redis.Client, ttl time.Duration) *CodeRegistry {
	return &CodeRegistry{client: client, ttl: ttl}
}

func (r *CodeRegistry) Reserve(ctx context.Context, code string) (bool, error) {
	return r.client.SetNX(ctx, r.key(code), "1", r.ttl).Result()
}

func (r *CodeRegistry) Release(ctx context.Context, code string) error {
	return r.client.Del(ctx, r.key(code)).Err()
}

func (r *CodeRegistry) key(code string) string {
	return "session:code:" + code
}
