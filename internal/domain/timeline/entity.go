// internal/domain/timeline/entity.go
package timeline

import "time"

// StageTransition is one stage change from a lead's Zoho timeline.
// FromStage is nil for the record's initial stage.
type StageTransition struct {
	FromStage *string    `json:"from_stage"`
	ToStage   *string    `json:"to_stage"`
	ChangedAt *time.Time `json:"changed_at"`
}

// History is a lead's stage transitions in chronological order
// (oldest first). An empty history is valid: the record never left
// its initial stage.
type History []StageTransition

// EnteredCurrentStageAt returns when the lead entered its current
// stage, i.e. the timestamp of the newest transition. ok is false for
// an empty history or one whose newest transition has no timestamp.
func (h History) EnteredCurrentStageAt() (time.Time, bool) {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].ChangedAt != nil {
			return *h[i].ChangedAt, true
		}
	}
	return time.Time{}, false
}

// Flow is one from→to edge aggregated across leads for the
// stage-flow diagram. Only transitions with both ends present
// contribute.
type Flow struct {
	FromStage string `json:"from_stage"`
	ToStage   string `json:"to_stage"`
	Count     int    `json:"count"`
}
