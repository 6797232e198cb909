// Package cache keeps parsed enrichment results in Redis so a repeat run
// over the same ads does not pay for inference twice.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"adspy/types"
)

const defaultPrefix = "adspy:enrichment:"

// Config configures the Redis connection and entry lifetime
type Config struct {
	Addr     string // e.g. localhost:6379
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// kv is the subset of the Redis client the cache uses.
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Enrichments is a Redis-backed store of EnrichmentResult values keyed
// by archive ID and media class.
type Enrichments struct {
	client kv
	closer func() error
	prefix string
	ttl    time.Duration
}

// New connects to Redis and verifies connectivity.
func New(ctx context.Context, cfg Config) (*Enrichments, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	e := newEnrichments(client, cfg.Prefix, cfg.TTL)
	e.closer = client.Close
	return e, nil
}

func newEnrichments(client kv, prefix string, ttl time.Duration) *Enrichments {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Enrichments{client: client, prefix: prefix, ttl: ttl}
}

// Get returns the cached result for key. A miss is not an error.
func (e *Enrichments) Get(ctx context.Context, key string) (types.EnrichmentResult, bool, error) {
	raw, err := e.client.Get(ctx, e.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.EnrichmentResult{}, false, nil
	}
	if err != nil {
		return types.EnrichmentResult{}, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var res types.EnrichmentResult
	if err := json.Unmarshal(raw, &res); err != nil {
		// A corrupt entry behaves like a miss and is overwritten on the next Put
		return types.EnrichmentResult{}, false, nil
	}
	return res, true, nil
}

// Put stores res under key with the configured TTL.
func (e *Enrichments) Put(ctx context.Context, key string, res types.EnrichmentResult) error {
	res.Cached = false
	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode enrichment: %w", err)
	}
	if err := e.client.Set(ctx, e.prefix+key, b, e.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (e *Enrichments) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer()
}
