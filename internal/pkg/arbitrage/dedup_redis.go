package arbitrage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DedupGuard claims a content_hash as newly detected exactly once across
// every concurrently-running engine instance. Postgres's
// UNIQUE(content_hash) already makes the row itself idempotent; this guard is
// for the fan-out publisher event, which has no such constraint and would
// otherwise re-fire "arbitrage.new" once per instance that independently
// notices the same opportunity in the same cycle.
type DedupGuard interface {
	ClaimNew(ctx context.Context, contentHash string, ttl time.Duration) bool
}

// RedisDedupGuard is a DedupGuard backed by go-redis SETNX with a TTL.
type RedisDedupGuard struct {
	client *redis.Client
}

func NewRedisDedupGuard(addr, password string, db int) (*RedisDedupGuard, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("arbitrage: connecting dedup guard: %w", err)
	}
	return &RedisDedupGuard{client: client}, nil
}

// ClaimNew reports true the first time contentHash is seen within ttl, and
// false to every later caller until the key expires. A Redis error fails
// open (claims true) so a cache outage never silently swallows a real
// arbitrage.new event.
func (g *RedisDedupGuard) ClaimNew(ctx context.Context, contentHash string, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = time.Minute
	}
	ok, err := g.client.SetNX(ctx, "arbitrage:dedup:"+contentHash, "1", ttl).Result()
	if err != nil {
		return true
	}
	return ok
}

func (g *RedisDedupGuard) Close() error {
	return g.client.Close()
}
