package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/ferrywatch/ferries_core/internal/capacity"
	"github.com/ferrywatch/ferries_core/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// CapacitySource caches the raw capacity payload in Redis in front of another
// source. Only the upstream payload is cached: callers still normalize on every
// call, so sailing identifiers stay per-fetch.
type CapacitySource struct {
	upstream capacity.Source
	client   *redis.Client
	cache    *cache.Cache[string]
	key      string
	ttl      time.Duration
	mutexTTL time.Duration
	maxWait  time.Duration
	poll     time.Duration
}

// NewCapacitySource wraps upstream. key identifies the payload, usually the endpoint URL.
func NewCapacitySource(upstream capacity.Source, client *redis.Client, key string, ttl, mutexTTL time.Duration) *CapacitySource {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(ttl))

	return &CapacitySource{
		upstream: upstream,
		client:   client,
		cache:    cache.New[string](redisStore),
		key:      CapacityKey(key),
		ttl:      ttl,
		mutexTTL: mutexTTL,
		maxWait:  3 * time.Second,
		poll:     100 * time.Millisecond,
	}
}

// FetchCapacity returns the cached payload, or fetches it while holding a lock so
// overlapping requests wait for the first one instead of hitting the upstream API.
func (s *CapacitySource) FetchCapacity(ctx context.Context) (*models.CapacityResponse, error) {
	if resp, ok := s.get(ctx); ok {
		return resp, nil
	}

	lockKey := LockKey(s.key)
	acquired, err := AcquireLock(ctx, s.client, lockKey, s.mutexTTL)
	if err != nil {
		// Continue without lock (degrade gracefully)
		log.Warn().Err(err).Msg("Failed to acquire capacity lock")
	} else if !acquired {
		released, err := WaitForLock(ctx, s.client, lockKey, s.maxWait, s.poll)
		if err == nil && released {
			if resp, ok := s.get(ctx); ok {
				return resp, nil
			}
		}
		// If waiting failed, fetch anyway
	}

	defer func() {
		if acquired {
			ReleaseLock(context.WithoutCancel(ctx), s.client, lockKey)
		}
	}()

	resp, err := s.upstream.FetchCapacity(ctx)
	if err != nil {
		return nil, err
	}

	s.set(ctx, resp)
	return resp, nil
}

func (s *CapacitySource) get(ctx context.Context) (*models.CapacityResponse, bool) {
	value, err := s.cache.Get(ctx, s.key)
	if err != nil {
		return nil, false // cache miss
	}

	var resp models.CapacityResponse
	if err := json.Unmarshal([]byte(value), &resp); err != nil {
		log.Warn().Err(err).Msg("Discarding unreadable cached capacity payload")
		return nil, false
	}

	log.Debug().Str("key", s.key).Msg("Capacity cache hit")
	return &resp, true
}

func (s *CapacitySource) set(ctx context.Context, resp *models.CapacityResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to marshal capacity payload")
		return
	}

	if err := s.cache.Set(ctx, s.key, string(data), store.WithExpiration(s.ttl)); err != nil {
		log.Warn().Err(err).Msg("Failed to cache capacity payload")
	}
}
