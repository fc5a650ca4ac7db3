package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const articlePrefix = "journal:articles:"

// ArticleCache puffert die öffentlichen Artikellisten (Startseite, Archiv).
// Fehler werden nur geloggt, ohne Redis wird einfach die DB gefragt.
type ArticleCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewArticleCache verbindet sich mit Redis und prüft die Verbindung.
func NewArticleCache(ctx context.Context, redisURL string, ttl time.Duration, logger *zap.Logger) (*ArticleCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &ArticleCache{client: client, ttl: ttl, logger: logger}, nil
}

// NewArticleCacheWithClient nutzt einen bestehenden Client.
func NewArticleCacheWithClient(client *redis.Client, ttl time.Duration, logger *zap.Logger) *ArticleCache {
	return &ArticleCache{client: client, ttl: ttl, logger: logger}
}

// Get lädt einen Eintrag nach dst. false bei Miss oder Fehler.
func (c *ArticleCache) Get(ctx context.Context, key string, dst any) bool {
	if c == nil {
		return false
	}
	data, err := c.client.Get(ctx, articlePrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Article cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("Article cache entry corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set speichert value als JSON mit der konfigurierten TTL.
func (c *ArticleCache) Set(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, articlePrefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Article cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate löscht alle Artikel-Einträge, z. B. nach Veröffentlichung.
func (c *ArticleCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	iter := c.client.Scan(ctx, 0, articlePrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("Article cache scan failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("Article cache invalidation failed", zap.Error(err))
	}
}

// Close schließt die Verbindung.
func (c *ArticleCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
