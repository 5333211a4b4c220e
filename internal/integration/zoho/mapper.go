// internal/integration/zoho/mapper.go
package zoho

import (
	"fmt"
	"sort"
	"time"

	"github.com/andre-sav/panopticon/internal/domain/delivery"
	"github.com/andre-sav/panopticon/internal/domain/lead"
	"github.com/andre-sav/panopticon/internal/domain/timeline"
	xerrors "github.com/andre-sav/panopticon/internal/pkg/errors"
)

// LeadFields is the field selection requested from the Locatings
// module. This is static configuration: unknown fields in a reply are
// dropped, missing ones map to absent values.
var LeadFields = []string{
	"id",
	"Name",
	"Stage",
	"Locator_Name",
	"APPT_Date",
	"Locator_Phone",
	"Locator_Email",
	"Street_Address",
	"Zip_Code",
	"Created_Time",
	"Modified_Time",
}

// DeliveryFields is the field selection requested from the Deliveries
// module. Deliveries are matched to leads by address, not by ID.
var DeliveryFields = []string{
	"id",
	"Street_Address",
	"Zip_Code",
	"Delivery_Date",
}

// MapLead converts one raw Locatings record into a Lead. Any missing
// field maps to an absent value. The only structural requirement is
// that the record is an object: anything else fails with
// ErrMalformedRecord rather than being silently dropped.
func MapLead(raw any) (lead.Lead, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return lead.Lead{}, fmt.Errorf("%w: expected object, got %T", xerrors.ErrMalformedRecord, raw)
	}

	l := lead.Lead{
		CurrentStage:  stringField(m, "Stage"),
		LocatorName:   lookupNameField(m, "Locator_Name"),
		LocatorPhone:  stringField(m, "Locator_Phone"),
		LocatorEmail:  stringField(m, "Locator_Email"),
		StreetAddress: stringField(m, "Street_Address"),
		ZipCode:       stringField(m, "Zip_Code"),
		CreatedAt:     timeField(m, "Created_Time"),
		ModifiedAt:    timeField(m, "Modified_Time"),
	}

	if id := stringField(m, "id"); id != nil {
		l.ID = *id
	}

	// The module went through a field rename at some point; accept the
	// old API names so cached payloads keep mapping.
	l.Name = stringField(m, "Name")
	if l.Name == nil {
		l.Name = stringField(m, "Full_Name")
	}
	l.AppointmentAt = timeField(m, "APPT_Date")
	if l.AppointmentAt == nil {
		l.AppointmentAt = timeField(m, "Appointment_Date")
	}

	return l, nil
}

// MapDelivery converts one raw Deliveries record.
func MapDelivery(raw any) (delivery.Delivery, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return delivery.Delivery{}, fmt.Errorf("%w: expected object, got %T", xerrors.ErrMalformedRecord, raw)
	}

	d := delivery.Delivery{
		StreetAddress: stringField(m, "Street_Address"),
		ZipCode:       stringField(m, "Zip_Code"),
		DeliveredAt:   timeField(m, "Delivery_Date"),
	}
	if id := stringField(m, "id"); id != nil {
		d.ID = *id
	}
	return d, nil
}

// mapTimeline extracts Stage changes from timeline events and returns
// them oldest first. Transitions without a timestamp sort before
// everything else, matching how they are displayed.
func mapTimeline(events []timelineEvent) timeline.History {
	var history timeline.History
	for _, ev := range events {
		for _, fc := range ev.FieldHistory {
			if fc.APIName != "Stage" {
				continue
			}
			history = append(history, timeline.StageTransition{
				FromStage: fc.PreviousValue,
				ToStage:   fc.Value,
				ChangedAt: parseTime(ev.DoneTime),
			})
		}
	}

	sort.SliceStable(history, func(i, j int) bool {
		ti, tj := history[i].ChangedAt, history[j].ChangedAt
		if ti == nil {
			return tj != nil
		}
		if tj == nil {
			return false
		}
		return ti.Before(*tj)
	})
	return history
}

// ParseZohoTime parses an ISO-8601 timestamp from Zoho into UTC.
// Naive timestamps are taken as UTC; unparseable input yields nil.
func ParseZohoTime(s string) *time.Time {
	return parseTime(s)
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}

// ----- field extraction helpers -----

func stringField(m map[string]any, key string) *string {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

// lookupNameField handles Zoho lookup fields, which arrive as
// {"id": ..., "name": ...} objects on the standard API but as plain
// strings on older cached payloads.
func lookupNameField(m map[string]any, key string) *string {
	v, ok := m[key]
	if !ok || v == nil {
		return nil
	}
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return &val
	case map[string]any:
		return stringField(val, "name")
	default:
		return nil
	}
}

func timeField(m map[string]any, key string) *time.Time {
	s := stringField(m, key)
	if s == nil {
		return nil
	}
	return parseTime(*s)
}
