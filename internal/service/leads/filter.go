// internal/service/leads/filter.go
package leads

import (
	"strings"

	"github.com/andre-sav/panopticon/internal/domain/lead"
)

// ApplyFilters keeps the records satisfying every active filter.
// Inactive filters are no-ops, so an all-"all" state returns the
// input unchanged. An empty result is a normal outcome; whether any
// filter was active is the caller's context, not encoded here.
func (s *Service) ApplyFilters(records []lead.DisplayRecord, f lead.FilterState) []lead.DisplayRecord {
	out := make([]lead.DisplayRecord, 0, len(records))
	for _, r := range records {
		if matchesStage(r, f.Stage) && matchesOwner(r, f.Owner) && matchesDateRange(r, f.DateRange) {
			out = append(out, r)
		}
	}
	return out
}

// matchesStage is an exact string match. A record with no stage
// renders the placeholder, which never equals a real stage value.
func matchesStage(r lead.DisplayRecord, stage string) bool {
	if stage == "" || stage == "all" {
		return true
	}
	return r.Stage == stage
}

// matchesOwner is a case-insensitive exact match on the owner name.
func matchesOwner(r lead.DisplayRecord, owner string) bool {
	if owner == "" || owner == "all" {
		return true
	}
	return strings.EqualFold(r.Locator, owner)
}

// matchesDateRange checks the derived day count against the preset's
// closed interval. Records without an appointment only pass the
// unbounded "all" preset.
func matchesDateRange(r lead.DisplayRecord, dr lead.DateRange) bool {
	min, max, bounded := dr.Bounds()
	if !bounded {
		return true
	}
	if r.DaysSince == nil {
		return false
	}
	return *r.DaysSince >= min && *r.DaysSince <= max
}
