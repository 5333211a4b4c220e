// internal/pkg/snapshot/store.go
package snapshot

import (
	"sync"
	"time"

	"github.com/andre-sav/panopticon/internal/domain/lead"
)

// PartialWarning is shown when a refresh fails but an older snapshot
// is still being served.
const PartialWarning = "Some data may be missing. Showing cached data."

// Store holds the last successful lead fetch for the lifetime of the
// process. Its lifecycle is two-phase: a refresh either replaces the
// whole snapshot or, when it fails and older data exists, keeps the
// old snapshot and flags it as possibly stale. Leads are never merged
// across refreshes.
type Store struct {
	mu          sync.RWMutex
	leads       []lead.Lead
	lastRefresh time.Time
	loaded      bool
	warning     string
	lastErr     error
}

// View is a consistent read of the store. Err is only set when there
// is no data to show at all; Warning flags data that survived a
// failed refresh.
type View struct {
	Leads       []lead.Lead
	LastRefresh time.Time
	Loaded      bool
	Warning     string
	Err         error
}

func NewStore() *Store {
	return &Store{}
}

// SetResult replaces the snapshot after a successful fetch and clears
// any previous error or warning. An empty result is a valid snapshot.
func (s *Store) SetResult(leads []lead.Lead, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.leads = leads
	s.lastRefresh = at
	s.loaded = true
	s.warning = ""
	s.lastErr = nil
}

// SetFailure records a failed fetch. When a non-empty snapshot is
// already held it is kept as-is with a warning; otherwise the error
// is stored for display and the snapshot stays empty.
func (s *Store) SetFailure(err error, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded && len(s.leads) > 0 {
		s.warning = PartialWarning
		return
	}

	s.leads = nil
	s.lastRefresh = at
	s.loaded = false
	s.warning = ""
	s.lastErr = err
}

// View returns a copy of the current state. The returned slice is
// safe to re-slice; the leads themselves are read-only by convention.
func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	leads := make([]lead.Lead, len(s.leads))
	copy(leads, s.leads)

	return View{
		Leads:       leads,
		LastRefresh: s.lastRefresh,
		Loaded:      s.loaded,
		Warning:     s.warning,
		Err:         s.lastErr,
	}
}

// Clear drops the snapshot entirely, forcing the next read to fetch.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.leads = nil
	s.loaded = false
	s.warning = ""
	s.lastErr = nil
}
