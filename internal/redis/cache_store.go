package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/mohamedirsath07/ExpireGuard/internal/domain"
	"github.com/mohamedirsath07/ExpireGuard/internal/registry"
)

// CachedResponse is one precached asset response.
type CachedResponse struct {
	Status int         `json:"status"`
	Header http.Header `json:"header,omitempty"`
	Body   []byte      `json:"body"`
}

// CacheStore manages generation-keyed asset caches. Each generation lives
// under one key ("expireguard-v<N>") so a whole generation can be evicted
// in a single delete.
type CacheStore interface {
	// PutAll populates a generation cache with the full asset set in one
	// atomic write. An existing cache for the version is replaced.
	PutAll(ctx context.Context, version int, assets map[string]*CachedResponse) error

	// Get returns the cached response for a URL path. Returns
	// domain.CacheMissError when the generation has no entry for it.
	Get(ctx context.Context, version int, url string) (*CachedResponse, error)

	// Versions lists every generation currently present in cache storage.
	Versions(ctx context.Context) ([]int, error)

	// Delete evicts a whole generation cache.
	Delete(ctx context.Context, version int) error
}

type cacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a Redis-backed CacheStore.
func NewCacheStore(client *redis.Client) CacheStore {
	return &cacheStore{client: client}
}

func (s *cacheStore) PutAll(ctx context.Context, version int, assets map[string]*CachedResponse) error {
	key := registry.CacheName(version)

	fields := make(map[string]interface{}, len(assets))
	for url, res := range assets {
		data, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("marshal cached response for %s: %w", url, err)
		}
		fields[url] = data
	}

	// Replace the hash in one transaction so a reinstall never leaves a
	// mix of old and new entries.
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("populate cache %s: %w", key, err)
	}
	return nil
}

func (s *cacheStore) Get(ctx context.Context, version int, url string) (*CachedResponse, error) {
	data, err := s.client.HGet(ctx, registry.CacheName(version), url).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, &domain.CacheMissError{Version: version, URL: url}
		}
		return nil, fmt.Errorf("cache get %s v%d: %w", url, version, err)
	}
	var res CachedResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("unmarshal cached response for %s: %w", url, err)
	}
	return &res, nil
}

func (s *cacheStore) Versions(ctx context.Context) ([]int, error) {
	var versions []int
	iter := s.client.Scan(ctx, 0, registry.CachePattern(), 0).Iterator()
	for iter.Next(ctx) {
		if v, ok := registry.ParseCacheName(iter.Val()); ok {
			versions = append(versions, v)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan cache generations: %w", err)
	}
	return versions, nil
}

func (s *cacheStore) Delete(ctx context.Context, version int) error {
	if err := s.client.Del(ctx, registry.CacheName(version)).Err(); err != nil {
		return fmt.Errorf("delete cache generation %d: %w", version, err)
	}
	return nil
}
