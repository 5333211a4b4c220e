// internal/service/delivery/service.go

// Package delivery joins Zoho delivery records to leads. Deliveries
// live in their own module with no lead lookup, so the join key is
// the normalized street address plus zip code.
package delivery

import (
	"context"

	"go.uber.org/zap"

	"github.com/andre-sav/panopticon/internal/domain/delivery"
)

// Fetcher is the slice of the Zoho client this service consumes.
type Fetcher interface {
	FetchDeliveries(ctx context.Context) ([]delivery.Delivery, error)
}

// Cache is the slice of the Redis deliveries cache this service consumes.
type Cache interface {
	Get(ctx context.Context) ([]delivery.Delivery, bool)
	Set(ctx context.Context, deliveries []delivery.Delivery) error
}

type DeliveryService struct {
	fetcher Fetcher
	cache   Cache
	logger  *zap.Logger
}

func NewDeliveryService(fetcher Fetcher, cache Cache, logger *zap.Logger) *DeliveryService {
	return &DeliveryService{
		fetcher: fetcher,
		cache:   cache,
		logger:  logger,
	}
}

// ByAddress returns deliveries keyed by normalized address, cache
// first. On a fetch failure it returns an empty map so the delivery
// column degrades to unknown instead of failing the dashboard.
// Records without a usable address cannot be joined and are dropped;
// when two deliveries share an address the later one wins.
func (s *DeliveryService) ByAddress(ctx context.Context) map[string]delivery.Delivery {
	deliveries, ok := s.cache.Get(ctx)
	if !ok {
		var err error
		deliveries, err = s.fetcher.FetchDeliveries(ctx)
		if err != nil {
			s.logger.Warn("failed to fetch deliveries, delivery status unknown", zap.Error(err))
			return map[string]delivery.Delivery{}
		}
		if err := s.cache.Set(ctx, deliveries); err != nil {
			s.logger.Warn("failed to cache deliveries", zap.Error(err))
		}
	}

	byAddress := make(map[string]delivery.Delivery, len(deliveries))
	for _, d := range deliveries {
		if key := d.Key(); key != "" {
			byAddress[key] = d
		}
	}
	return byAddress
}
