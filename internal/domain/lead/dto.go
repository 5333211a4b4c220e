// internal/domain/lead/dto.go
package lead

import "time"

// PlaceholderToken is the single token the dashboard renders for any
// missing value. Never an empty string, never a literal "null".
const PlaceholderToken = "—"

// DisplayRecord is one presentation-ready dashboard row. String fields
// are fully formatted (placeholder applied); the typed companions at
// the bottom carry the raw values filtering and sorting run on, so a
// record with holes still orders deterministically.
type DisplayRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Appointment string `json:"appointment"`
	DaysAgo     string `json:"days_ago"`
	StatusBadge string `json:"status_badge"`
	Stage       string `json:"stage"`
	TimeInStage string `json:"time_in_stage"`
	Locator     string `json:"locator"`
	Phone       string `json:"phone"`
	PhoneLink   string `json:"phone_link,omitempty"`
	Email       string `json:"email"`
	EmailLink   string `json:"email_link,omitempty"`
	LastNote    string `json:"last_note"`
	NoteAge     string `json:"note_age"`
	Delivery    string `json:"delivery"`

	Status        Status     `json:"status,omitempty"`
	DaysSince     *int       `json:"days_since,omitempty"`
	AppointmentAt *time.Time `json:"appointment_at,omitempty"`
}

// DateRange is a closed set of named presets evaluated against the
// derived days-since value. Records without an appointment date only
// ever satisfy RangeAll.
type DateRange string

const (
	RangeAll    DateRange = "all"
	RangeLast7  DateRange = "last_7_days"
	RangeLast30 DateRange = "last_30_days"
)

// Bounds returns the inclusive [min, max] days-since window of the
// preset. bounded is false for RangeAll, which matches everything.
func (r DateRange) Bounds() (min, max int, bounded bool) {
	switch r {
	case RangeLast7:
		return 0, 6, true
	case RangeLast30:
		return 0, 29, true
	default:
		return 0, 0, false
	}
}

// ParseDateRange maps a query-string value onto a preset. The empty
// string is RangeAll so an unset filter is a no-op.
func ParseDateRange(s string) (DateRange, bool) {
	switch DateRange(s) {
	case "", RangeAll:
		return RangeAll, true
	case RangeLast7:
		return RangeLast7, true
	case RangeLast30:
		return RangeLast30, true
	default:
		return RangeAll, false
	}
}

// FilterState is the set of optional dashboard filters. Zero values
// mean "all" and deactivate the corresponding predicate; active
// filters combine with AND semantics.
type FilterState struct {
	Stage     string    `json:"stage,omitempty"`
	Owner     string    `json:"owner,omitempty"`
	DateRange DateRange `json:"date_range,omitempty"`
}

// Active reports whether any filter narrows the result. Callers use
// this to tell "no data" apart from "nothing matches the filters".
func (f FilterState) Active() bool {
	if f.Stage != "" || f.Owner != "" {
		return true
	}
	_, _, bounded := f.DateRange.Bounds()
	return bounded
}

// SortKey selects the dashboard ordering.
type SortKey string

const (
	SortUrgency     SortKey = "urgency"
	SortDaysDesc    SortKey = "days_desc"
	SortDaysAsc     SortKey = "days_asc"
	SortAppointment SortKey = "appointment"
	SortName        SortKey = "name"
	SortStage       SortKey = "stage"
	SortOwner       SortKey = "owner"
)

// ParseSortKey maps a query-string value onto a sort key, defaulting
// to the urgency ordering for the empty string.
func ParseSortKey(s string) (SortKey, bool) {
	switch SortKey(s) {
	case "", SortUrgency:
		return SortUrgency, true
	case SortDaysDesc, SortDaysAsc, SortAppointment, SortName, SortStage, SortOwner:
		return SortKey(s), true
	default:
		return SortUrgency, false
	}
}

// StatusCounts is the per-tier summary shown above the table. Leads
// with no computed status count as healthy by policy: absence of an
// appointment date is "not a problem", not a fourth bucket.
type StatusCounts struct {
	Stale   int `json:"stale"`
	AtRisk  int `json:"at_risk"`
	Healthy int `json:"healthy"`
}

// Add tallies one status into its bucket. The statusless-is-healthy
// policy lives here so every aggregation counts the same way.
func (c *StatusCounts) Add(s Status) {
	switch s {
	case StatusStale:
		c.Stale++
	case StatusAtRisk:
		c.AtRisk++
	default:
		c.Healthy++
	}
}

// Total is the sum of all buckets, always equal to the input length
// of the aggregation that produced the counts.
func (c StatusCounts) Total() int {
	return c.Stale + c.AtRisk + c.Healthy
}

// StatusSnapshot is one persisted day of tier counts, used for the
// trend chart. One row per UTC calendar day.
type StatusSnapshot struct {
	SnapshotDate time.Time `json:"snapshot_date"`
	StaleCount   int       `json:"stale_count"`
	AtRiskCount  int       `json:"at_risk_count"`
	HealthyCount int       `json:"healthy_count"`
	TotalCount   int       `json:"total_count"`
	CreatedAt    time.Time `json:"created_at"`
}
