// internal/domain/note/entity.go
package note

import "time"

// Note is the most recent note attached to a lead in Zoho. A lead
// that was checked and has no notes is represented by a Note with
// empty Content and nil CreatedAt, which is distinct from "never
// checked" (no cache entry at all).
type Note struct {
	LeadID    string     `json:"lead_id"`
	Content   string     `json:"content"`
	CreatedAt *time.Time `json:"created_at"`
}

// Empty reports whether the lead has no note content.
func (n Note) Empty() bool {
	return n.Content == ""
}
