// internal/domain/lead/entity.go
package lead

import (
	"time"
)

// Lead is a Zoho Locating record normalized to internal field names.
// Every field except ID is optional: the upstream picklist-driven
// module can and does return records with arbitrary holes, and a
// missing value must stay distinguishable from a real one all the way
// to the display boundary.
type Lead struct {
	ID            string     `json:"id"`
	Name          *string    `json:"name,omitempty"`
	AppointmentAt *time.Time `json:"appointment_date,omitempty"`
	CurrentStage  *string    `json:"current_stage,omitempty"`
	LocatorName   *string    `json:"locator_name,omitempty"`
	LocatorPhone  *string    `json:"locator_phone,omitempty"`
	LocatorEmail  *string    `json:"locator_email,omitempty"`
	StreetAddress *string    `json:"street_address,omitempty"`
	ZipCode       *string    `json:"zip_code,omitempty"`
	CreatedAt     *time.Time `json:"created_time,omitempty"`
	ModifiedAt    *time.Time `json:"modified_time,omitempty"`

	// Derived fields, recomputed on every enrichment pass from
	// AppointmentAt and the reference clock. Both stay nil/empty when
	// there is no appointment date.
	DaysSince *int   `json:"days_since,omitempty"`
	Status    Status `json:"status,omitempty"`
}

// HasAppointment reports whether the lead carries an appointment date.
func (l *Lead) HasAppointment() bool {
	return l.AppointmentAt != nil
}

// ComputeDerived fills DaysSince and Status relative to the given
// reference time. Leads without an appointment date get neither.
func (l *Lead) ComputeDerived(reference time.Time) {
	if l.AppointmentAt == nil {
		l.DaysSince = nil
		l.Status = ""
		return
	}
	days := DaysSince(*l.AppointmentAt, reference)
	l.DaysSince = &days
	l.Status = Classify(days)
}

// DefaultStageOrder is the pipeline position of the stages the Zoho
// org is known to use. Stage values are still treated as opaque text
// everywhere; this table only orders known stages first in filter
// dropdowns. Stages the upstream admins add later simply sort after.
var DefaultStageOrder = []string{
	"Appt Not Acknowledged",
	"HLM Follow up",
	"Green - Approved By Locator",
	"Green - SiteSurvey Sent",
	"Green - LLL Approved",
	"Green - LLL Fulfilled",
	"Green/No-operator",
	"Delivery Requested",
	"Green/Delivered",
	"Declined By Operator",
}

// StageRank returns the pipeline position of a stage per the supplied
// order table, or len(order) for stages not in the table so unknown
// values group after known ones.
func StageRank(stage string, order []string) int {
	for i, s := range order {
		if s == stage {
			return i
		}
	}
	return len(order)
}
