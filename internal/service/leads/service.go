// internal/service/leads/service.go

// Package leads implements the classification, formatting, filtering
// and sorting pipeline over the in-memory lead snapshot. Every method
// is a pure transform: no I/O, no shared state, safe to call in any
// order. The surrounding services fetch data; this package only
// computes.
package leads

import (
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/andre-sav/panopticon/internal/domain/lead"
)

// Service holds the pipeline configuration: the logger used for
// degraded-rendering warnings and the pipeline position of each known
// stage. Stage values themselves stay opaque strings; the order table
// only influences sorting and option lists.
type Service struct {
	logger     *zap.Logger
	stageOrder []string
}

// NewService creates the pipeline service. A nil stageOrder falls
// back to the default pipeline ordering.
func NewService(logger *zap.Logger, stageOrder []string) *Service {
	if stageOrder == nil {
		stageOrder = lead.DefaultStageOrder
	}
	return &Service{logger: logger, stageOrder: stageOrder}
}

// Enrich returns a copy of the leads with days-since and status
// computed against now. Leads without an appointment stay without
// either derived field.
func (s *Service) Enrich(leadsIn []lead.Lead, now time.Time) []lead.Lead {
	out := make([]lead.Lead, len(leadsIn))
	copy(out, leadsIn)
	for i := range out {
		out[i].ComputeDerived(now)
	}
	return out
}

// CountByStatus buckets records into the three status tiers. Records
// without a status count as healthy by policy, so the three buckets
// always sum to the input length.
func (s *Service) CountByStatus(records []lead.DisplayRecord) lead.StatusCounts {
	var counts lead.StatusCounts
	for _, r := range records {
		counts.Add(r.Status)
	}
	return counts
}

// CountLeads tallies enriched leads by tier, for callers that work on
// leads rather than display rows.
func (s *Service) CountLeads(leadsIn []lead.Lead) lead.StatusCounts {
	var counts lead.StatusCounts
	for _, l := range leadsIn {
		counts.Add(l.Status)
	}
	return counts
}

// Options are the filter choices offered by the UI, derived from the
// current snapshot rather than hardcoded.
type Options struct {
	Stages     []string `json:"stages"`
	Owners     []string `json:"owners"`
	DateRanges []string `json:"date_ranges"`
	SortKeys   []string `json:"sort_keys"`
}

// Options lists the distinct stages (in pipeline order) and owners
// (alphabetical, deduplicated case-insensitively) present in the
// snapshot, plus the fixed date-range and sort-key choices.
func (s *Service) Options(leadsIn []lead.Lead) Options {
	opts := Options{
		DateRanges: []string{string(lead.RangeAll), string(lead.RangeLast7), string(lead.RangeLast30)},
		SortKeys: []string{
			string(lead.SortUrgency), string(lead.SortDaysDesc), string(lead.SortDaysAsc),
			string(lead.SortAppointment), string(lead.SortName), string(lead.SortStage), string(lead.SortOwner),
		},
	}

	stageSeen := make(map[string]bool)
	ownerSeen := make(map[string]string)
	for _, l := range leadsIn {
		if l.CurrentStage != nil && !stageSeen[*l.CurrentStage] {
			stageSeen[*l.CurrentStage] = true
			opts.Stages = append(opts.Stages, *l.CurrentStage)
		}
		if l.LocatorName != nil {
			key := strings.ToLower(*l.LocatorName)
			if _, dup := ownerSeen[key]; !dup {
				ownerSeen[key] = *l.LocatorName
				opts.Owners = append(opts.Owners, *l.LocatorName)
			}
		}
	}

	sort.SliceStable(opts.Stages, func(i, j int) bool {
		ri, rj := lead.StageRank(opts.Stages[i], s.stageOrder), lead.StageRank(opts.Stages[j], s.stageOrder)
		if ri != rj {
			return ri < rj
		}
		return opts.Stages[i] < opts.Stages[j]
	})
	sort.SliceStable(opts.Owners, func(i, j int) bool {
		return strings.ToLower(opts.Owners[i]) < strings.ToLower(opts.Owners[j])
	})

	return opts
}
