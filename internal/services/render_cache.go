package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pagecraft/pagecraft-backend/internal/logger"
	"github.com/pagecraft/pagecraft-backend/internal/render"
	"github.com/pagecraft/pagecraft-backend/internal/utils"
)

// RenderCache memoizes rendered pages keyed by source identity and
// template. A cache outage degrades to uncached rendering, never to an
// error surfaced to the caller.
type RenderCache interface {
	Get(ctx context.Context, identity, templateName string) (*render.Result, bool)
	Set(ctx context.Context, identity, templateName string, result *render.Result)
	InvalidateIdentity(ctx context.Context, identity string)
}

type redisRenderCache struct {
	client *redis.Client
	log    *logger.Logger
	ttl    time.Duration
}

func NewRedisRenderCache(baseLog *logger.Logger) RenderCache {
	log := baseLog.With("component", "RenderCache")
	addr := utils.GetEnv("REDIS_ADDR", "localhost:6379", log)
	ttl := utils.GetEnvAsInt("RENDER_CACHE_TTL_SECONDS", 300, log)
	client := redis.NewClient(&redis.Options{Addr: addr})
	return &redisRenderCache{
		client: client,
		log:    log,
		ttl:    time.Duration(ttl) * time.Second,
	}
}

func cacheKey(identity, templateName string) string {
	return "render:" + identity + ":" + templateName
}

func (c *redisRenderCache) Get(ctx context.Context, identity, templateName string) (*render.Result, bool) {
	raw, err := c.client.Get(ctx, cacheKey(identity, templateName)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("Cache read failed, rendering uncached", "identity", identity, "error", err)
		}
		return nil, false
	}
	var result render.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		c.log.Warn("Cache entry corrupt, dropping", "identity", identity, "template", templateName)
		c.client.Del(ctx, cacheKey(identity, templateName))
		return nil, false
	}
	return &result, true
}

func (c *redisRenderCache) Set(ctx context.Context, identity, templateName string, result *render.Result) {
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(identity, templateName), raw, c.ttl).Err(); err != nil {
		c.log.Warn("Cache write failed", "identity", identity, "error", err)
	}
}

// InvalidateIdentity drops every cached page for one source identity.
func (c *redisRenderCache) InvalidateIdentity(ctx context.Context, identity string) {
	var cursor uint64
	pattern := cacheKey(identity, "*")
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.log.Warn("Cache invalidation scan failed", "identity", identity, "error", err)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.log.Warn("Cache invalidation delete failed", "identity", identity, "error", err)
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

// NoopRenderCache is used when Redis is not configured and in tests.
type NoopRenderCache struct{}

func (NoopRenderCache) Get(context.Context, string, string) (*render.Result, bool) { return nil, false }
func (NoopRenderCache) Set(context.Context, string, string, *render.Result)        {}
func (NoopRenderCache) InvalidateIdentity(context.Context, string)                 {}
