// internal/service/leads/formatter.go
package leads

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/andre-sav/panopticon/internal/domain/delivery"
	"github.com/andre-sav/panopticon/internal/domain/lead"
	"github.com/andre-sav/panopticon/internal/domain/note"
)

// dateLayout is the one human-readable date style used everywhere.
const dateLayout = "Jan 2, 2006"

// DisplayContext carries the per-lead context fetched outside the
// pure pipeline. All maps are optional; a nil map simply renders the
// corresponding columns as unknown.
type DisplayContext struct {
	Now time.Time

	// StageEnteredAt maps lead ID to when it entered its current stage.
	StageEnteredAt map[string]time.Time

	// Notes maps lead ID to its latest note.
	Notes map[string]note.Note

	// Deliveries maps the normalized address key to a delivery record.
	Deliveries map[string]delivery.Delivery
}

// FormatForDisplay converts enriched leads into presentation records.
// It never fails: every missing value renders as the placeholder
// token, and an unrecognized status tier degrades to plain text with
// a logged warning.
func (s *Service) FormatForDisplay(leadsIn []lead.Lead, dctx DisplayContext) []lead.DisplayRecord {
	records := make([]lead.DisplayRecord, 0, len(leadsIn))
	for _, l := range leadsIn {
		records = append(records, s.formatLead(l, dctx))
	}
	return records
}

func (s *Service) formatLead(l lead.Lead, dctx DisplayContext) lead.DisplayRecord {
	r := lead.DisplayRecord{
		ID:          l.ID,
		Name:        orPlaceholder(l.Name),
		Appointment: formatDate(l.AppointmentAt),
		DaysAgo:     formatDays(l.DaysSince),
		StatusBadge: s.FormatStatus(l.Status),
		Stage:       orPlaceholder(l.CurrentStage),
		Locator:     orPlaceholder(l.LocatorName),
		Phone:       orPlaceholder(l.LocatorPhone),
		Email:       orPlaceholder(l.LocatorEmail),
		LastNote:    lead.PlaceholderToken,
		NoteAge:     lead.PlaceholderToken,
		TimeInStage: FormatTimeInStage(nil, dctx.Now),
		Delivery:    lead.PlaceholderToken,

		Status:        l.Status,
		DaysSince:     l.DaysSince,
		AppointmentAt: l.AppointmentAt,
	}

	// Contact affordances only exist when the field does.
	if l.LocatorPhone != nil {
		if tel := telURI(*l.LocatorPhone); tel != "" {
			r.PhoneLink = tel
		}
	}
	if l.LocatorEmail != nil {
		r.EmailLink = "mailto:" + *l.LocatorEmail
	}

	if entered, ok := dctx.StageEnteredAt[l.ID]; ok {
		r.TimeInStage = FormatTimeInStage(&entered, dctx.Now)
	}

	if n, ok := dctx.Notes[l.ID]; ok && !n.Empty() {
		r.LastNote = n.Content
		r.NoteAge = formatNoteAge(n.CreatedAt, dctx.Now)
	}

	if key := delivery.AddressKey(l.StreetAddress, l.ZipCode); key != "" {
		if d, ok := dctx.Deliveries[key]; ok {
			r.Delivery = formatDelivery(d)
		}
	}

	return r
}

// FormatStatus renders a tier as an icon plus text so status is never
// conveyed by color alone. An unknown tier is rendered as plain text
// and logged; an absent tier renders as the placeholder.
func (s *Service) FormatStatus(status lead.Status) string {
	switch status {
	case lead.StatusStale:
		return "🔴 stale"
	case lead.StatusAtRisk:
		return "🟡 at_risk"
	case lead.StatusHealthy:
		return "🟢 healthy"
	case "":
		return lead.PlaceholderToken
	default:
		s.logger.Warn("unknown status tier, rendering as plain text", zap.String("status", string(status)))
		return string(status)
	}
}

// FormatTimeInStage phrases how long a lead has sat in its current
// stage. A nil timestamp reads "Unknown"; a future timestamp reads
// "In N days".
func FormatTimeInStage(enteredAt *time.Time, now time.Time) string {
	if enteredAt == nil {
		return "Unknown"
	}

	days := lead.DaysSince(*enteredAt, now)
	switch {
	case days == 0:
		return "Less than 1 day"
	case days == 1:
		return "1 day"
	case days > 1:
		return fmt.Sprintf("%d days", days)
	case days == -1:
		return "In 1 day"
	default:
		return fmt.Sprintf("In %d days", -days)
	}
}

func formatNoteAge(createdAt *time.Time, now time.Time) string {
	if createdAt == nil {
		return lead.PlaceholderToken
	}
	days := lead.DaysSince(*createdAt, now)
	switch {
	case days <= 0:
		return "today"
	case days == 1:
		return "1 day ago"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}

func formatDelivery(d delivery.Delivery) string {
	if d.DeliveredAt == nil {
		return "Delivered"
	}
	return "Delivered " + d.DeliveredAt.Format(dateLayout)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return lead.PlaceholderToken
	}
	return t.Format(dateLayout)
}

// formatDays phrases the derived day count for the table cell.
func formatDays(d *int) string {
	if d == nil {
		return lead.PlaceholderToken
	}
	switch {
	case *d == 0:
		return "Today"
	case *d == 1:
		return "1 day ago"
	case *d > 1:
		return fmt.Sprintf("%d days ago", *d)
	case *d == -1:
		return "In 1 day"
	default:
		return fmt.Sprintf("In %d days", -*d)
	}
}

// telURI strips a phone number down to digits and a leading plus so
// the link survives the formatting the CRM users type into the field.
// Numbers with no digits at all produce no link.
func telURI(phone string) string {
	var b strings.Builder
	for i, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '+' && i == 0 {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" || digits == "+" {
		return ""
	}
	return "tel:" + digits
}

func orPlaceholder(s *string) string {
	if s == nil || *s == "" {
		return lead.PlaceholderToken
	}
	return *s
}
