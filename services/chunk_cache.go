package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"chefshelf/internal/logger"
	"chefshelf/models"

	"github.com/redis/go-redis/v9"
)

const chunkCachePrefix = "chefshelf:chunk:"

// ChunkCache remembers what a chunk of text produced so re-importing the same
// document does not call the model again.
type ChunkCache interface {
	Get(ctx context.Context, key string) ([]models.Recipe, bool)
	Set(ctx context.Context, key string, recipes []models.Recipe)
}

// ChunkCacheKey identifies a chunk's result for one provider and model.
func ChunkCacheKey(provider, model, text string) string {
	h := sha256.New()
	h.Write([]byte(provider))
	h.Write([]byte{0})
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return chunkCachePrefix + hex.EncodeToString(h.Sum(nil))
}

// RedisChunkCache stores chunk results as JSON with a TTL. Redis errors are
// logged and treated as misses.
type RedisChunkCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisChunkCache creates a chunk cache backed by client
func NewRedisChunkCache(client *redis.Client, ttl time.Duration) *RedisChunkCache {
	return &RedisChunkCache{client: client, ttl: ttl}
}

func (c *RedisChunkCache) Get(ctx context.Context, key string) ([]models.Recipe, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("cache.chunk.get_failed", "error", err)
		}
		return nil, false
	}

	var recipes []models.Recipe
	if err := json.Unmarshal(data, &recipes); err != nil {
		logger.Warn("cache.chunk.decode_failed", "error", err)
		return nil, false
	}
	return models.NormalizeAll(recipes), true
}

func (c *RedisChunkCache) Set(ctx context.Context, key string, recipes []models.Recipe) {
	data, err := json.Marshal(models.NormalizeAll(recipes))
	if err != nil {
		logger.Warn("cache.chunk.encode_failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Warn("cache.chunk.set_failed", "error", err)
	}
}
