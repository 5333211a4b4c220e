// internal/repository/cache/deliveries_cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/andre-sav/panopticon/internal/domain/delivery"
)

// DeliveriesCache stores the deliveries list under a single key,
// mirroring the leads cache.
type DeliveriesCache struct {
	client *redis.Client
	logger *zap.Logger
}

func NewDeliveriesCache(client *redis.Client, logger *zap.Logger) *DeliveriesCache {
	return &DeliveriesCache{client: client, logger: logger}
}

type deliveriesPayload struct {
	Deliveries []delivery.Delivery `json:"deliveries"`
	CachedAt   time.Time           `json:"cached_at"`
}

// Get returns the cached deliveries list. Failures degrade to a miss.
func (c *DeliveriesCache) Get(ctx context.Context) ([]delivery.Delivery, bool) {
	data, err := c.client.Get(ctx, deliveriesKey).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("deliveries cache read failed", zap.Error(err))
		return nil, false
	}

	var payload deliveriesPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.logger.Warn("deliveries cache payload corrupt", zap.Error(err))
		return nil, false
	}

	c.logger.Info("deliveries cache hit", zap.Int("count", len(payload.Deliveries)))
	return payload.Deliveries, true
}

// Set caches the deliveries list for the TTL window.
func (c *DeliveriesCache) Set(ctx context.Context, deliveries []delivery.Delivery) error {
	payload := deliveriesPayload{Deliveries: deliveries, CachedAt: time.Now().UTC()}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal deliveries payload: %w", err)
	}

	if err := c.client.Set(ctx, deliveriesKey, data, cacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to cache deliveries: %w", err)
	}

	c.logger.Info("cached deliveries", zap.Int("count", len(deliveries)))
	return nil
}

// Clear drops the cached deliveries list.
func (c *DeliveriesCache) Clear(ctx context.Context) error {
	if err := c.client.Del(ctx, deliveriesKey).Err(); err != nil {
		return fmt.Errorf("failed to clear deliveries cache: %w", err)
	}
	return nil
}
