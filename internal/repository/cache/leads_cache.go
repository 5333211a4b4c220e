// internal/repository/cache/leads_cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/andre-sav/panopticon/internal/domain/lead"
)

// LeadsCache stores the full leads list under a single key so a page
// load does not always cost a Zoho round trip.
type LeadsCache struct {
	client *redis.Client
	logger *zap.Logger
}

func NewLeadsCache(client *redis.Client, logger *zap.Logger) *LeadsCache {
	return &LeadsCache{client: client, logger: logger}
}

type leadsPayload struct {
	Leads    []lead.Lead `json:"leads"`
	CachedAt time.Time   `json:"cached_at"`
}

// Get returns the cached leads list and when it was cached. Any Redis
// or decode failure is logged and reported as a miss.
func (c *LeadsCache) Get(ctx context.Context) ([]lead.Lead, time.Time, bool) {
	data, err := c.client.Get(ctx, leadsKey).Bytes()
	if err == redis.Nil {
		return nil, time.Time{}, false
	}
	if err != nil {
		c.logger.Warn("leads cache read failed", zap.Error(err))
		return nil, time.Time{}, false
	}

	var payload leadsPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.logger.Warn("leads cache payload corrupt", zap.Error(err))
		return nil, time.Time{}, false
	}

	c.logger.Info("leads cache hit", zap.Int("count", len(payload.Leads)))
	return payload.Leads, payload.CachedAt, true
}

// Set caches the leads list for the TTL window.
func (c *LeadsCache) Set(ctx context.Context, leads []lead.Lead) error {
	payload := leadsPayload{Leads: leads, CachedAt: time.Now().UTC()}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal leads payload: %w", err)
	}

	if err := c.client.Set(ctx, leadsKey, data, cacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache leads: %w", err)
	}

	c.logger.Info("cached leads", zap.Int("count", len(leads)))
	return nil
}

// Clear drops the cached leads list, forcing the next load to fetch.
func (c *LeadsCache) Clear(ctx context.Context) error {
	if err := c.client.Del(ctx, leadsKey).Err(); err != nil {
		return fmt.Errorf("failed to clear leads cache: %w", err)
	}
	return nil
}
