package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-school-api/internal/observability"
)

// ResultCache stores computed result sheets and analytics in Redis. A nil
// client disables caching.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewResultCache constructs the cache.
func NewResultCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *ResultCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ResultCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "result_cache").Logger(),
	}
}

func classResultKey(schoolID, classID, subjectID, termID uint) string {
	return fmt.Sprintf("results:school:%d:class:%d:subject:%d:term:%d", schoolID, classID, subjectID, termID)
}

func termAnalyticsKey(schoolID, termID uint) string {
	return fmt.Sprintf("analytics:school:%d:term:%d", schoolID, termID)
}

func (c *ResultCache) enabled() bool {
	return c != nil && c.client != nil
}

// Get decodes the cached value into target and reports whether it was found.
func (c *ResultCache) Get(ctx context.Context, key string, target interface{}) bool {
	if !c.enabled() {
		return false
	}

	cached, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Str("key", key).Msg("failed to read result cache")
		}
		observability.CacheLookups().WithLabelValues("miss").Inc()
		return false
	}

	if err := json.Unmarshal([]byte(cached), target); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		observability.CacheLookups().WithLabelValues("miss").Inc()
		return false
	}

	observability.CacheLookups().WithLabelValues("hit").Inc()
	return true
}

// Set stores value under key for the configured TTL.
func (c *ResultCache) Set(ctx context.Context, key string, value interface{}) {
	if !c.enabled() {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to encode cache entry")
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to store result cache")
	}
}

// InvalidateSheet drops the cached sheet for one class/subject/term together
// with the term analytics it feeds.
func (c *ResultCache) InvalidateSheet(ctx context.Context, schoolID, classID, subjectID, termID uint) {
	if !c.enabled() {
		return
	}
	keys := []string{
		classResultKey(schoolID, classID, subjectID, termID),
		termAnalyticsKey(schoolID, termID),
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Uint("school_id", schoolID).Msg("failed to invalidate result cache")
	}
}

// InvalidateSchool drops every cached sheet and analytics entry of a school.
func (c *ResultCache) InvalidateSchool(ctx context.Context, schoolID uint) {
	if !c.enabled() {
		return
	}
	patterns := []string{
		fmt.Sprintf("results:school:%d:*", schoolID),
		fmt.Sprintf("analytics:school:%d:*", schoolID),
	}
	for _, pattern := range patterns {
		iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			c.logger.Warn().Err(err).Str("pattern", pattern).Msg("failed to scan result cache")
			continue
		}
		if len(keys) == 0 {
			continue
		}
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.logger.Warn().Err(err).Str("pattern", pattern).Msg("failed to invalidate result cache")
		}
	}
}
