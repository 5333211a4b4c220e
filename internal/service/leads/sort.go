// internal/service/leads/sort.go
package leads

import (
	"sort"
	"strings"

	"github.com/andre-sav/panopticon/internal/domain/lead"
)

// Sort orders records by the given key, returning a new slice. Every
// key yields a total order with absent values last, and the sort is
// stable: equal records keep their input order, so re-sorting an
// already sorted list changes nothing.
func (s *Service) Sort(records []lead.DisplayRecord, key lead.SortKey) []lead.DisplayRecord {
	out := make([]lead.DisplayRecord, len(records))
	copy(out, records)

	var less func(a, b lead.DisplayRecord) bool
	switch key {
	case lead.SortDaysDesc:
		less = daysLess(true)
	case lead.SortDaysAsc:
		less = daysLess(false)
	case lead.SortAppointment:
		less = appointmentLess
	case lead.SortName:
		less = textLess(func(r lead.DisplayRecord) string { return r.Name })
	case lead.SortStage:
		less = s.stageLess
	case lead.SortOwner:
		less = textLess(func(r lead.DisplayRecord) string { return r.Locator })
	default:
		less = urgencyLess
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// urgencyLess is the default ordering: status tier first (stale, then
// at_risk, then healthy, then statusless), most days overdue first
// within a tier.
func urgencyLess(a, b lead.DisplayRecord) bool {
	ra, rb := lead.UrgencyRank(a.Status), lead.UrgencyRank(b.Status)
	if ra != rb {
		return ra < rb
	}
	return compareDaysDesc(a.DaysSince, b.DaysSince)
}

func daysLess(desc bool) func(a, b lead.DisplayRecord) bool {
	return func(a, b lead.DisplayRecord) bool {
		if desc {
			return compareDaysDesc(a.DaysSince, b.DaysSince)
		}
		return compareDaysAsc(a.DaysSince, b.DaysSince)
	}
}

// compareDaysDesc puts larger day counts first and nil last.
func compareDaysDesc(a, b *int) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return *a > *b
}

// compareDaysAsc puts smaller day counts first and nil still last.
func compareDaysAsc(a, b *int) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return *a < *b
}

// appointmentLess orders by appointment time ascending, absent last.
func appointmentLess(a, b lead.DisplayRecord) bool {
	if a.AppointmentAt == nil {
		return false
	}
	if b.AppointmentAt == nil {
		return true
	}
	return a.AppointmentAt.Before(*b.AppointmentAt)
}

// textLess orders case-insensitively with the placeholder last.
func textLess(field func(lead.DisplayRecord) string) func(a, b lead.DisplayRecord) bool {
	return func(a, b lead.DisplayRecord) bool {
		va, vb := field(a), field(b)
		if va == lead.PlaceholderToken {
			return false
		}
		if vb == lead.PlaceholderToken {
			return true
		}
		return strings.ToLower(va) < strings.ToLower(vb)
	}
}

// stageLess orders by pipeline position, with stages missing from the
// order table after known ones and absent stages last.
func (s *Service) stageLess(a, b lead.DisplayRecord) bool {
	ra, rb := s.stageRank(a.Stage), s.stageRank(b.Stage)
	if ra != rb {
		return ra < rb
	}
	return strings.ToLower(a.Stage) < strings.ToLower(b.Stage)
}

func (s *Service) stageRank(stage string) int {
	if stage == lead.PlaceholderToken {
		return len(s.stageOrder) + 1
	}
	return lead.StageRank(stage, s.stageOrder)
}
