// internal/service/refresh/service.go

// Package refresh owns the fetch lifecycle: pulling the lead list
// from Zoho, replacing the in-memory snapshot, warming the Redis
// cache, recording the daily tier counts and telling connected
// dashboards that something changed. A refresh only runs when the
// operator asks for one; nothing here fires on a timer.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/andre-sav/panopticon/internal/domain/lead"
	xerrors "github.com/andre-sav/panopticon/internal/pkg/errors"
	"github.com/andre-sav/panopticon/internal/pkg/snapshot"
	"github.com/andre-sav/panopticon/internal/service/leads"
)

// Fetcher is the slice of the Zoho client this service consumes.
type Fetcher interface {
	FetchLeads(ctx context.Context) ([]lead.Lead, error)
}

// LeadsCache is the slice of the Redis leads cache this service consumes.
type LeadsCache interface {
	Get(ctx context.Context) ([]lead.Lead, time.Time, bool)
	Set(ctx context.Context, leads []lead.Lead) error
}

// SnapshotWriter persists one row of tier counts per calendar day.
type SnapshotWriter interface {
	Upsert(ctx context.Context, snapshotDate time.Time, counts lead.StatusCounts) error
}

// Notifier pushes refresh lifecycle events to connected dashboards.
type Notifier interface {
	BroadcastRefreshStarted()
	BroadcastRefreshCompleted(counts lead.StatusCounts, at time.Time)
	BroadcastRefreshFailed(kind, message string)
}

type RefreshService struct {
	fetcher   Fetcher
	cache     LeadsCache
	store     *snapshot.Store
	leads     *leads.Service
	snapshots SnapshotWriter
	notifier  Notifier
	logger    *zap.Logger
	clock     func() time.Time

	mu sync.Mutex // held for the duration of one refresh
}

func NewRefreshService(
	fetcher Fetcher,
	cache LeadsCache,
	store *snapshot.Store,
	leadsSvc *leads.Service,
	snapshots SnapshotWriter,
	notifier Notifier,
	logger *zap.Logger,
) *RefreshService {
	return &RefreshService{
		fetcher:   fetcher,
		cache:     cache,
		store:     store,
		leads:     leadsSvc,
		snapshots: snapshots,
		notifier:  notifier,
		logger:    logger,
		clock:     time.Now,
	}
}

// Warm seeds the in-memory snapshot from the Redis cache so a restart
// serves data without an API round trip. Falls through to a full
// refresh when nothing usable is cached.
func (s *RefreshService) Warm(ctx context.Context) error {
	if cached, cachedAt, ok := s.cache.Get(ctx); ok {
		s.store.SetResult(cached, cachedAt)
		s.logger.Info("snapshot warmed from cache",
			zap.Int("leads", len(cached)),
			zap.Time("cached_at", cachedAt),
		)
		return nil
	}
	return s.Refresh(ctx)
}

// Refresh fetches the lead list and replaces the snapshot. Only one
// refresh runs at a time; a concurrent call returns
// xerrors.ErrRefreshInProgress immediately rather than queueing. On
// failure the previous snapshot is kept (flagged as possibly stale)
// and the error is returned for the caller to classify.
func (s *RefreshService) Refresh(ctx context.Context) error {
	if !s.mu.TryLock() {
		return xerrors.ErrRefreshInProgress
	}
	defer s.mu.Unlock()

	if s.notifier != nil {
		s.notifier.BroadcastRefreshStarted()
	}
	started := s.clock()

	fetched, err := s.fetcher.FetchLeads(ctx)
	if err != nil {
		kind := xerrors.FetchKindOf(err)
		s.store.SetFailure(err, s.clock())
		if s.notifier != nil {
			s.notifier.BroadcastRefreshFailed(string(kind), err.Error())
		}
		s.logger.Error("refresh failed",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return fmt.Errorf("failed to refresh leads: %w", err)
	}

	now := s.clock()
	s.store.SetResult(fetched, now)
	if err := s.cache.Set(ctx, fetched); err != nil {
		s.logger.Warn("failed to cache leads", zap.Error(err))
	}

	counts := s.leads.CountLeads(s.leads.Enrich(fetched, now))
	if s.snapshots != nil {
		if err := s.snapshots.Upsert(ctx, now, counts); err != nil {
			s.logger.Warn("failed to record status snapshot", zap.Error(err))
		}
	}

	if s.notifier != nil {
		s.notifier.BroadcastRefreshCompleted(counts, now)
	}
	s.logger.Info("refresh completed",
		zap.Int("leads", len(fetched)),
		zap.Int("stale", counts.Stale),
		zap.Int("at_risk", counts.AtRisk),
		zap.Int("healthy", counts.Healthy),
		zap.Duration("took", now.Sub(started)),
	)
	return nil
}
