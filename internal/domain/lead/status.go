// internal/domain/lead/status.go
package lead

import "time"

// Status is the follow-up tier of a lead. The empty string means
// "no status": the lead has no appointment date to measure from.
type Status string

const (
	StatusStale   Status = "stale"
	StatusAtRisk  Status = "at_risk"
	StatusHealthy Status = "healthy"
)

// Staleness thresholds in calendar days (single source of truth).
const (
	StaleThresholdDays  = 7
	AtRiskThresholdDays = 5
)

// DaysSince returns the calendar-day difference between the reference
// time and the appointment, both taken as UTC dates. Time-of-day never
// affects the result: an appointment at 23:59 and a reference at 00:01
// of the same day are 0 days apart. Negative means the appointment is
// in the future.
func DaysSince(appointment, reference time.Time) int {
	a := appointment.UTC()
	r := reference.UTC()
	aMidnight := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	rMidnight := time.Date(r.Year(), r.Month(), r.Day(), 0, 0, 0, 0, time.UTC)
	return int(rMidnight.Sub(aMidnight) / (24 * time.Hour))
}

// Classify maps a day count to its status tier. Total over all
// integers: negative (future appointment) is healthy.
func Classify(daysSince int) Status {
	switch {
	case daysSince >= StaleThresholdDays:
		return StatusStale
	case daysSince >= AtRiskThresholdDays:
		return StatusAtRisk
	default:
		return StatusHealthy
	}
}

// UrgencyRank orders tiers for the default dashboard sort:
// stale < at_risk < healthy < none.
func UrgencyRank(s Status) int {
	switch s {
	case StatusStale:
		return 0
	case StatusAtRisk:
		return 1
	case StatusHealthy:
		return 2
	default:
		return 3
	}
}
