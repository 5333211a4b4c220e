// internal/service/history/service.go

// Package history serves stage transition timelines, cache first. A
// lead's history only grows when an admin moves it through the
// pipeline, so a cached timeline is trusted until the cache expires
// and a fetch failure degrades that lead to an unknown stage age
// instead of failing the dashboard.
package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/andre-sav/panopticon/internal/domain/timeline"
)

// Fetcher is the slice of the Zoho client this service consumes.
type Fetcher interface {
	FetchStageHistory(ctx context.Context, leadID string) (timeline.History, error)
}

// Cache is the slice of the Redis history cache this service consumes.
type Cache interface {
	Get(ctx context.Context, leadID string) (timeline.History, bool)
	GetBatch(ctx context.Context, leadIDs []string) map[string]timeline.History
	Set(ctx context.Context, leadID string, history timeline.History) error
	SetBatch(ctx context.Context, histories map[string]timeline.History) error
	All(ctx context.Context) (map[string]timeline.History, error)
}

type HistoryService struct {
	fetcher Fetcher
	cache   Cache
	logger  *zap.Logger
}

func NewHistoryService(fetcher Fetcher, cache Cache, logger *zap.Logger) *HistoryService {
	return &HistoryService{
		fetcher: fetcher,
		cache:   cache,
		logger:  logger,
	}
}

// LeadHistory returns the stage timeline for one lead, fetching and
// caching it on a miss.
func (s *HistoryService) LeadHistory(ctx context.Context, leadID string) (timeline.History, error) {
	if cached, ok := s.cache.Get(ctx, leadID); ok {
		return cached, nil
	}

	history, err := s.fetcher.FetchStageHistory(ctx, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stage history: %w", err)
	}

	if err := s.cache.Set(ctx, leadID, history); err != nil {
		s.logger.Warn("failed to cache stage history", zap.String("lead_id", leadID), zap.Error(err))
	}

	return history, nil
}

// StageHistories returns timelines for the given leads. Cached entries
// are served as-is; the rest are fetched one by one and cached in a
// single batch write. A lead whose fetch fails is simply absent from
// the result.
func (s *HistoryService) StageHistories(ctx context.Context, leadIDs []string) map[string]timeline.History {
	histories := s.cache.GetBatch(ctx, leadIDs)

	fetched := make(map[string]timeline.History)
	var failures int
	for _, id := range leadIDs {
		if _, ok := histories[id]; ok {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		history, err := s.fetcher.FetchStageHistory(ctx, id)
		if err != nil {
			failures++
			s.logger.Warn("failed to fetch stage history", zap.String("lead_id", id), zap.Error(err))
			continue
		}
		fetched[id] = history
		histories[id] = history
	}

	if len(fetched) > 0 {
		if err := s.cache.SetBatch(ctx, fetched); err != nil {
			s.logger.Warn("failed to cache stage histories", zap.Int("count", len(fetched)), zap.Error(err))
		}
	}
	if failures > 0 {
		s.logger.Warn("some stage histories unavailable",
			zap.Int("failed", failures),
			zap.Int("requested", len(leadIDs)),
		)
	}

	return histories
}

// EnteredCurrentStage returns, per lead, when the lead entered the
// stage it is in now. Leads with no usable timeline are absent.
func (s *HistoryService) EnteredCurrentStage(ctx context.Context, leadIDs []string) map[string]time.Time {
	entered := make(map[string]time.Time, len(leadIDs))
	for id, history := range s.StageHistories(ctx, leadIDs) {
		if at, ok := history.EnteredCurrentStageAt(); ok {
			entered[id] = at
		}
	}
	return entered
}

// StageFlows aggregates every cached transition into per-edge counts
// for the pipeline flow view. Transitions missing either side are
// skipped, matching how the timelines are recorded: the first entry of
// a lead has no previous stage.
func (s *HistoryService) StageFlows(ctx context.Context) ([]timeline.Flow, error) {
	histories, err := s.cache.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cached histories: %w", err)
	}

	type edge struct{ from, to string }
	counts := make(map[edge]int)
	for _, history := range histories {
		for _, tr := range history {
			if tr.FromStage == nil || *tr.FromStage == "" || tr.ToStage == nil || *tr.ToStage == "" {
				continue
			}
			counts[edge{*tr.FromStage, *tr.ToStage}]++
		}
	}

	flows := make([]timeline.Flow, 0, len(counts))
	for e, n := range counts {
		flows = append(flows, timeline.Flow{FromStage: e.from, ToStage: e.to, Count: n})
	}
	sort.Slice(flows, func(i, j int) bool {
		if flows[i].Count != flows[j].Count {
			return flows[i].Count > flows[j].Count
		}
		if flows[i].FromStage != flows[j].FromStage {
			return flows[i].FromStage < flows[j].FromStage
		}
		return flows[i].ToStage < flows[j].ToStage
	})

	return flows, nil
}
