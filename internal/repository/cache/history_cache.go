// internal/repository/cache/history_cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/andre-sav/panopticon/internal/domain/timeline"
)

// HistoryCache stores per-lead stage histories. The Zoho timeline
// endpoint only answers one lead per call, so these entries are what
// keeps a dashboard load from issuing hundreds of requests.
type HistoryCache struct {
	client *redis.Client
	logger *zap.Logger
}

func NewHistoryCache(client *redis.Client, logger *zap.Logger) *HistoryCache {
	return &HistoryCache{client: client, logger: logger}
}

func historyKey(leadID string) string {
	return historyKeyPrefix + leadID
}

// Get returns one lead's cached history. Failures degrade to a miss.
func (c *HistoryCache) Get(ctx context.Context, leadID string) (timeline.History, bool) {
	data, err := c.client.Get(ctx, historyKey(leadID)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("history cache read failed", zap.String("lead_id", leadID), zap.Error(err))
		return nil, false
	}

	var history timeline.History
	if err := json.Unmarshal(data, &history); err != nil {
		c.logger.Warn("history cache payload corrupt", zap.String("lead_id", leadID), zap.Error(err))
		return nil, false
	}
	return history, true
}

// GetBatch returns cached histories for the given leads, chunking the
// MGET to keep commands bounded. Leads without an entry are simply
// absent from the result; a failed chunk only loses its own leads.
func (c *HistoryCache) GetBatch(ctx context.Context, leadIDs []string) map[string]timeline.History {
	result := make(map[string]timeline.History)
	if len(leadIDs) == 0 {
		return result
	}

	for _, ids := range chunk(leadIDs, batchChunkSize) {
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = historyKey(id)
		}

		values, err := c.client.MGet(ctx, keys...).Result()
		if err != nil {
			c.logger.Warn("history cache batch read failed", zap.Int("chunk_size", len(ids)), zap.Error(err))
			continue
		}

		for i, v := range values {
			if v == nil {
				continue
			}
			raw, ok := v.(string)
			if !ok {
				continue
			}
			var history timeline.History
			if err := json.Unmarshal([]byte(raw), &history); err != nil {
				c.logger.Warn("history cache payload corrupt", zap.String("lead_id", ids[i]), zap.Error(err))
				continue
			}
			result[ids[i]] = history
		}
	}

	c.logger.Debug("history batch cache",
		zap.Int("hits", len(result)),
		zap.Int("requested", len(leadIDs)))
	return result
}

// Set caches one lead's history.
func (c *HistoryCache) Set(ctx context.Context, leadID string, history timeline.History) error {
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal stage history: %w", err)
	}
	if err := c.client.Set(ctx, historyKey(leadID), data, cacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache stage history: %w", err)
	}
	return nil
}

// SetBatch caches many histories in one pipelined round trip.
func (c *HistoryCache) SetBatch(ctx context.Context, histories map[string]timeline.History) error {
	if len(histories) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for leadID, history := range histories {
		data, err := json.Marshal(history)
		if err != nil {
			return fmt.Errorf("failed to marshal stage history: %w", err)
		}
		pipe.Set(ctx, historyKey(leadID), data, cacheTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to batch cache stage histories: %w", err)
	}

	c.logger.Info("batch cached stage histories", zap.Int("count", len(histories)))
	return nil
}

// All returns every cached history, keyed by lead ID. Used to build
// the stage-flow aggregation across the whole pipeline.
func (c *HistoryCache) All(ctx context.Context) (map[string]timeline.History, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, historyKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan history cache: %w", err)
	}

	result := make(map[string]timeline.History, len(keys))
	for _, keyChunk := range chunk(keys, batchChunkSize) {
		values, err := c.client.MGet(ctx, keyChunk...).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read history cache: %w", err)
		}
		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				continue
			}
			var history timeline.History
			if err := json.Unmarshal([]byte(raw), &history); err != nil {
				continue
			}
			leadID := strings.TrimPrefix(keyChunk[i], historyKeyPrefix)
			result[leadID] = history
		}
	}
	return result, nil
}

// Clear drops one lead's cached history.
func (c *HistoryCache) Clear(ctx context.Context, leadID string) error {
	if err := c.client.Del(ctx, historyKey(leadID)).Err(); err != nil {
		return fmt.Errorf("failed to clear stage history cache: %w", err)
	}
	return nil
}

// ClearAll drops every cached history.
func (c *HistoryCache) ClearAll(ctx context.Context) error {
	return clearByPattern(ctx, c.client, historyKeyPrefix+"*")
}

// clearByPattern scans and deletes matching keys in batches.
func clearByPattern(ctx context.Context, client *redis.Client, pattern string) error {
	iter := client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= batchChunkSize {
			if err := client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to clear cache keys: %w", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(keys) > 0 {
		if err := client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to clear cache keys: %w", err)
		}
	}
	return nil
}
