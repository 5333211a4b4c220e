// internal/service/dashboard/service.go

// Package dashboard assembles the board view: it reads the lead
// snapshot, pulls the supporting columns (stage age, latest note,
// delivery status) and runs the display pipeline. All I/O failures on
// supporting columns degrade those columns; only a missing snapshot
// is an error.
package dashboard

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/andre-sav/panopticon/internal/domain/delivery"
	"github.com/andre-sav/panopticon/internal/domain/lead"
	"github.com/andre-sav/panopticon/internal/domain/note"
	xerrors "github.com/andre-sav/panopticon/internal/pkg/errors"
	"github.com/andre-sav/panopticon/internal/pkg/snapshot"
	"github.com/andre-sav/panopticon/internal/service/leads"
)

// StageAges provides when each lead entered its current stage.
type StageAges interface {
	EnteredCurrentStage(ctx context.Context, leadIDs []string) map[string]time.Time
}

// LatestNotes provides the newest note per lead.
type LatestNotes interface {
	LatestNotes(ctx context.Context, leadIDs []string) map[string]note.Note
}

// Deliveries provides delivery records keyed by normalized address.
type Deliveries interface {
	ByAddress(ctx context.Context) map[string]delivery.Delivery
}

// Query is one dashboard request: which filters to apply and how to
// order the result.
type Query struct {
	Filters lead.FilterState
	Sort    lead.SortKey
}

// View is a fully assembled board. Counts always cover the whole
// snapshot, not the filtered subset, so the summary row is stable
// while the operator narrows the table.
type View struct {
	Records     []lead.DisplayRecord `json:"records"`
	Counts      lead.StatusCounts    `json:"counts"`
	Total       int                  `json:"total"`
	Filtered    bool                 `json:"filtered"`
	LastRefresh time.Time            `json:"last_refresh"`
	Warning     string               `json:"warning,omitempty"`
}

type DashboardService struct {
	store      *snapshot.Store
	leads      *leads.Service
	stageAges  StageAges
	notes      LatestNotes
	deliveries Deliveries
	logger     *zap.Logger
	clock      func() time.Time
}

func NewDashboardService(
	store *snapshot.Store,
	leadsSvc *leads.Service,
	stageAges StageAges,
	notes LatestNotes,
	deliveries Deliveries,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		store:      store,
		leads:      leadsSvc,
		stageAges:  stageAges,
		notes:      notes,
		deliveries: deliveries,
		logger:     logger,
		clock:      time.Now,
	}
}

// Board builds the dashboard view for one query. It returns
// xerrors.ErrNoSnapshot before the first successful fetch, or the
// recorded fetch error when the last refresh failed with no older
// data to fall back on.
func (s *DashboardService) Board(ctx context.Context, q Query) (View, error) {
	snap := s.store.View()
	if !snap.Loaded {
		if snap.Err != nil {
			return View{}, snap.Err
		}
		return View{}, xerrors.ErrNoSnapshot
	}

	now := s.clock()
	enriched := s.leads.Enrich(snap.Leads, now)

	ids := make([]string, 0, len(enriched))
	for _, l := range enriched {
		if l.ID != "" {
			ids = append(ids, l.ID)
		}
	}

	dctx := leads.DisplayContext{Now: now}
	if s.stageAges != nil {
		dctx.StageEnteredAt = s.stageAges.EnteredCurrentStage(ctx, ids)
	}
	if s.notes != nil {
		dctx.Notes = s.notes.LatestNotes(ctx, ids)
	}
	if s.deliveries != nil {
		dctx.Deliveries = s.deliveries.ByAddress(ctx)
	}

	records := s.leads.FormatForDisplay(enriched, dctx)
	counts := s.leads.CountByStatus(records)

	filtered := s.leads.ApplyFilters(records, q.Filters)
	sorted := s.leads.Sort(filtered, q.Sort)

	return View{
		Records:     sorted,
		Counts:      counts,
		Total:       len(records),
		Filtered:    q.Filters.Active(),
		LastRefresh: snap.LastRefresh,
		Warning:     snap.Warning,
	}, nil
}

// Options derives the filter dropdown choices from the current
// snapshot. Before the first fetch it returns the fixed choices with
// empty stage and owner lists.
func (s *DashboardService) Options(ctx context.Context) leads.Options {
	snap := s.store.View()
	return s.leads.Options(snap.Leads)
}
