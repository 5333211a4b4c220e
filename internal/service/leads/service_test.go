// internal/service/leads/service_test.go
package leads

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/andre-sav/panopticon/internal/domain/lead"
)

// reference time used across the pipeline tests
var ref = time.Date(2026, 1, 8, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func datePtr(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 10, 0, 0, 0, time.UTC)
	return &t
}

// testLead builds a lead; empty strings mean absent.
func testLead(id string, appt *time.Time, stage, owner string) lead.Lead {
	l := lead.Lead{ID: id, AppointmentAt: appt}
	if stage != "" {
		l.CurrentStage = &stage
	}
	if owner != "" {
		l.LocatorName = &owner
	}
	return l
}

func newTestService() *Service {
	return NewService(zap.NewNop(), nil)
}

func TestEnrichComputesDerivedFields(t *testing.T) {
	svc := newTestService()

	leadsIn := []lead.Lead{
		testLead("stale", datePtr(2026, 1, 1), "", ""),
		testLead("at-risk", datePtr(2026, 1, 3), "", ""),
		testLead("future", datePtr(2026, 1, 10), "", ""),
		testLead("no-appt", nil, "", ""),
	}

	out := svc.Enrich(leadsIn, ref)
	require.Len(t, out, 4)

	require.NotNil(t, out[0].DaysSince)
	assert.Equal(t, 7, *out[0].DaysSince)
	assert.Equal(t, lead.StatusStale, out[0].Status)

	require.NotNil(t, out[1].DaysSince)
	assert.Equal(t, 5, *out[1].DaysSince)
	assert.Equal(t, lead.StatusAtRisk, out[1].Status)

	require.NotNil(t, out[2].DaysSince)
	assert.Equal(t, -2, *out[2].DaysSince)
	assert.Equal(t, lead.StatusHealthy, out[2].Status)

	assert.Nil(t, out[3].DaysSince, "no appointment means no day count")
	assert.Empty(t, out[3].Status, "no appointment means no status")
}

func TestEnrichDoesNotMutateInput(t *testing.T) {
	svc := newTestService()
	leadsIn := []lead.Lead{testLead("a", datePtr(2026, 1, 1), "", "")}

	_ = svc.Enrich(leadsIn, ref)

	assert.Nil(t, leadsIn[0].DaysSince)
	assert.Empty(t, leadsIn[0].Status)
}

func TestCountByStatusSumsToInputLength(t *testing.T) {
	svc := newTestService()

	leadsIn := []lead.Lead{
		testLead("s1", datePtr(2026, 1, 1), "", ""),  // stale
		testLead("s2", datePtr(2025, 12, 1), "", ""), // stale
		testLead("a1", datePtr(2026, 1, 3), "", ""),  // at_risk
		testLead("h1", datePtr(2026, 1, 7), "", ""),  // healthy
		testLead("h2", datePtr(2026, 1, 10), "", ""), // healthy (future)
		testLead("n1", nil, "", ""),                  // statusless
	}

	records := svc.FormatForDisplay(svc.Enrich(leadsIn, ref), DisplayContext{Now: ref})
	counts := svc.CountByStatus(records)

	assert.Equal(t, 2, counts.Stale)
	assert.Equal(t, 1, counts.AtRisk)
	assert.Equal(t, 3, counts.Healthy, "statusless leads count as healthy by policy")
	assert.Equal(t, len(leadsIn), counts.Total())
}

func TestCountByStatusEmptyInput(t *testing.T) {
	svc := newTestService()
	counts := svc.CountByStatus(nil)
	assert.Equal(t, 0, counts.Total())
}

func TestOptionsListsStagesAndOwners(t *testing.T) {
	svc := newTestService()

	leadsIn := []lead.Lead{
		testLead("1", nil, "HLM Follow up", "Marcus Johnson"),
		testLead("2", nil, "Appt Not Acknowledged", "jessica brown"),
		testLead("3", nil, "HLM Follow up", "Jessica Brown"),
		testLead("4", nil, "Some Custom Stage", "Ann Lee"),
		testLead("5", nil, "", ""),
	}

	opts := svc.Options(leadsIn)

	// Known stages in pipeline order, unknown ones after.
	assert.Equal(t, []string{"Appt Not Acknowledged", "HLM Follow up", "Some Custom Stage"}, opts.Stages)

	// Owners deduplicated case-insensitively, first spelling kept.
	assert.Equal(t, []string{"Ann Lee", "jessica brown", "Marcus Johnson"}, opts.Owners)

	assert.Contains(t, opts.DateRanges, "last_7_days")
	assert.Contains(t, opts.SortKeys, "urgency")
}

func TestStalenessScenarios(t *testing.T) {
	svc := newTestService()

	tests := []struct {
		name       string
		appt       *time.Time
		wantDays   int
		wantStatus lead.Status
	}{
		{"week old appointment is stale", datePtr(2026, 1, 1), 7, lead.StatusStale},
		{"five day old appointment is at risk", datePtr(2026, 1, 3), 5, lead.StatusAtRisk},
		{"future appointment is healthy", datePtr(2026, 1, 10), -2, lead.StatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := svc.Enrich([]lead.Lead{testLead("x", tt.appt, "", "")}, ref)
			require.NotNil(t, out[0].DaysSince)
			assert.Equal(t, tt.wantDays, *out[0].DaysSince)
			assert.Equal(t, tt.wantStatus, out[0].Status)
		})
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	svc := newTestService()

	// 50 records cycling through stages, owners and appointment ages.
	leadsIn := make([]lead.Lead, 50)
	stages := []string{"Green", "HLM Follow up", "Declined By Operator"}
	owners := []string{"Jessica Brown", "Marcus Johnson"}
	for i := range leadsIn {
		appt := ref.AddDate(0, 0, -(i % 12))
		leadsIn[i] = testLead(
			string(rune('A'+i%26))+string(rune('a'+i/26)),
			&appt,
			stages[i%len(stages)],
			owners[i%len(owners)],
		)
	}

	records := svc.FormatForDisplay(svc.Enrich(leadsIn, ref), DisplayContext{Now: ref})

	filtered := svc.ApplyFilters(records, lead.FilterState{
		Stage:     "Green",
		Owner:     "jessica brown",
		DateRange: lead.RangeLast7,
	})
	sorted := svc.Sort(filtered, lead.SortUrgency)

	require.NotEmpty(t, sorted)
	prevRank := -1
	for _, r := range sorted {
		assert.Equal(t, "Green", r.Stage)
		assert.Equal(t, "Jessica Brown", r.Locator)
		require.NotNil(t, r.DaysSince)
		assert.GreaterOrEqual(t, *r.DaysSince, 0)
		assert.LessOrEqual(t, *r.DaysSince, 6)

		rank := lead.UrgencyRank(r.Status)
		assert.GreaterOrEqual(t, rank, prevRank, "urgency order puts stale before at_risk before healthy")
		prevRank = rank
	}

	counts := svc.CountByStatus(sorted)
	assert.Equal(t, len(sorted), counts.Total())
}
