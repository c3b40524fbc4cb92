package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kestrelodds/arbiter/internal/pkg/enums"
	"github.com/kestrelodds/arbiter/internal/pkg/models"
)

// CandidateCache lets Resolve skip a repeat CandidatesInWindow round-trip
// when two providers in the same cycle report overlapping kickoff windows
// for the same sport.
// Bucketing is by sport and a coarsened start time, so it is a best-effort
// accelerator rather than a precise index: a miss always falls through to
// CandidateStore, and a stale or approximate hit only changes which
// candidates get scored, never the scoring itself.
type CandidateCache interface {
	Get(ctx context.Context, sport enums.SportID, bucket time.Time) ([]models.Match, bool)
	Set(ctx context.Context, sport enums.SportID, bucket time.Time, matches []models.Match, ttl time.Duration)
}

// candidateCacheBucket coarsens start times into cache buckets, wide enough
// that two providers' reports of the same kickoff (which rarely agree to
// the second) land in the same bucket.
const candidateCacheBucket = 5 * time.Minute

// RedisCandidateCache is a CandidateCache backed by go-redis, storing each
// bucket as marshaled JSON with a TTL.
type RedisCandidateCache struct {
	client *redis.Client
}

func NewRedisCandidateCache(addr, password string, db int) (*RedisCandidateCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("resolver: connecting candidate cache: %w", err)
	}
	return &RedisCandidateCache{client: client}, nil
}

func (c *RedisCandidateCache) Get(ctx context.Context, sport enums.SportID, bucket time.Time) ([]models.Match, bool) {
	data, err := c.client.Get(ctx, candidateCacheKey(sport, bucket)).Result()
	if err != nil {
		return nil, false
	}
	var matches []models.Match
	if err := json.Unmarshal([]byte(data), &matches); err != nil {
		return nil, false
	}
	return matches, true
}

func (c *RedisCandidateCache) Set(ctx context.Context, sport enums.SportID, bucket time.Time, matches []models.Match, ttl time.Duration) {
	data, err := json.Marshal(matches)
	if err != nil {
		return
	}
	c.client.Set(ctx, candidateCacheKey(sport, bucket), data, ttl)
}

func (c *RedisCandidateCache) Close() error {
	return c.client.Close()
}

func candidateCacheKey(sport enums.SportID, bucket time.Time) string {
	return fmt.Sprintf("resolver:candidates:%d:%d", sport, bucket.Unix())
}
