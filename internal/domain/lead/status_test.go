package lead

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyBoundaries(t *testing.T) {
	assert.Equal(t, StatusHealthy, Classify(4))
	assert.Equal(t, StatusAtRisk, Classify(5))
	assert.Equal(t, StatusAtRisk, Classify(6))
	assert.Equal(t, StatusStale, Classify(7))
}

func TestClassifyFarFromBoundaries(t *testing.T) {
	assert.Equal(t, StatusHealthy, Classify(0))
	assert.Equal(t, StatusHealthy, Classify(-3))
	assert.Equal(t, StatusStale, Classify(10))
	assert.Equal(t, StatusStale, Classify(365))
}

func TestThresholdConstants(t *testing.T) {
	assert.Equal(t, 7, StaleThresholdDays)
	assert.Equal(t, 5, AtRiskThresholdDays)
}

func TestDaysSincePastAppointment(t *testing.T) {
	ref := time.Date(2026, 1, 8, 12, 0, 0, 0, time.UTC)
	appt := time.Date(2026, 1, 1, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, 7, DaysSince(appt, ref))
}

func TestDaysSinceSameDay(t *testing.T) {
	ref := time.Date(2026, 1, 8, 0, 1, 0, 0, time.UTC)
	appt := time.Date(2026, 1, 8, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, 0, DaysSince(appt, ref))
}

func TestDaysSinceFutureAppointment(t *testing.T) {
	ref := time.Date(2026, 1, 8, 12, 0, 0, 0, time.UTC)
	appt := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, -2, DaysSince(appt, ref))
}

func TestDaysSinceIgnoresTimeOfDay(t *testing.T) {
	ref := time.Date(2026, 1, 8, 17, 45, 12, 0, time.UTC)
	morning := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	night := time.Date(2026, 1, 3, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, DaysSince(morning, ref), DaysSince(night, ref))
	assert.Equal(t, 5, DaysSince(morning, ref))
}

func TestDaysSinceNormalizesOffsets(t *testing.T) {
	// 2026-01-07T23:00-05:00 is 2026-01-08T04:00 UTC: the UTC date is
	// what counts, not the local one.
	est := time.FixedZone("EST", -5*60*60)
	appt := time.Date(2026, 1, 7, 23, 0, 0, 0, est)
	ref := time.Date(2026, 1, 8, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, DaysSince(appt, ref))
}

func TestComputeDerivedWithAppointment(t *testing.T) {
	appt := time.Date(2026, 1, 1, 10, 30, 0, 0, time.UTC)
	l := Lead{ID: "1", AppointmentAt: &appt}

	l.ComputeDerived(time.Date(2026, 1, 8, 9, 0, 0, 0, time.UTC))

	if assert.NotNil(t, l.DaysSince) {
		assert.Equal(t, 7, *l.DaysSince)
	}
	assert.Equal(t, StatusStale, l.Status)
}

func TestComputeDerivedWithoutAppointment(t *testing.T) {
	l := Lead{ID: "1"}

	l.ComputeDerived(time.Date(2026, 1, 8, 9, 0, 0, 0, time.UTC))

	assert.Nil(t, l.DaysSince)
	assert.Empty(t, l.Status)
}

func TestComputeDerivedClearsPreviousValues(t *testing.T) {
	appt := time.Date(2026, 1, 1, 10, 30, 0, 0, time.UTC)
	l := Lead{ID: "1", AppointmentAt: &appt}
	l.ComputeDerived(time.Date(2026, 1, 8, 9, 0, 0, 0, time.UTC))

	l.AppointmentAt = nil
	l.ComputeDerived(time.Date(2026, 1, 8, 9, 0, 0, 0, time.UTC))

	assert.Nil(t, l.DaysSince)
	assert.Empty(t, l.Status)
}

func TestUrgencyRankOrdering(t *testing.T) {
	assert.Less(t, UrgencyRank(StatusStale), UrgencyRank(StatusAtRisk))
	assert.Less(t, UrgencyRank(StatusAtRisk), UrgencyRank(StatusHealthy))
	assert.Less(t, UrgencyRank(StatusHealthy), UrgencyRank(Status("")))
}

func TestStageRank(t *testing.T) {
	order := []string{"Appt Not Acknowledged", "HLM Follow up", "Green/Delivered"}
	assert.Equal(t, 0, StageRank("Appt Not Acknowledged", order))
	assert.Equal(t, 2, StageRank("Green/Delivered", order))
	assert.Equal(t, 3, StageRank("Some New Stage", order))
}
