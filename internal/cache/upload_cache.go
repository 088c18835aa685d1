package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"casecounsel/internal/ingest"
)

// UploadCache stores extracted page text for transient uploads, keyed by
// content hash. Only raw text is cached; embeddings and passages stay
// request-scoped and are never persisted.
type UploadCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewUploadCache(client *redisv9.Client, ttl time.Duration) *UploadCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &UploadCache{client: client, ttl: ttl}
}

func (c *UploadCache) GetPages(ctx context.Context, key string) ([]ingest.PageText, bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get upload pages failed: %w", err)
	}

	var pages []ingest.PageText
	if err := json.Unmarshal([]byte(raw), &pages); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached pages failed: %w", err)
	}
	return pages, true, nil
}

func (c *UploadCache) SetPages(ctx context.Context, key string, pages []ingest.PageText) error {
	payload, err := json.Marshal(pages)
	if err != nil {
		return fmt.Errorf("marshal upload pages failed: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set upload pages failed: %w", err)
	}
	return nil
}

func (c *UploadCache) key(hash string) string {
	return "upload:pages:" + hash
}
