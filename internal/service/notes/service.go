// internal/service/notes/service.go

// Package notes serves the latest note per lead, cache first. "This
// lead has no notes" is itself cached, so a lead without notes costs
// one API call per cache window instead of one per dashboard render.
package notes

import (
	"context"

	"go.uber.org/zap"

	"github.com/andre-sav/panopticon/internal/domain/note"
)

// Fetcher is the slice of the Zoho client this service consumes.
type Fetcher interface {
	FetchLatestNote(ctx context.Context, leadID string) (note.Note, error)
}

// Cache is the slice of the Redis notes cache this service consumes.
type Cache interface {
	GetBatch(ctx context.Context, leadIDs []string) map[string]note.Note
	SetBatch(ctx context.Context, notes []note.Note) error
	Uncached(ctx context.Context, leadIDs []string) []string
}

type NotesService struct {
	fetcher Fetcher
	cache   Cache
	logger  *zap.Logger
}

func NewNotesService(fetcher Fetcher, cache Cache, logger *zap.Logger) *NotesService {
	return &NotesService{
		fetcher: fetcher,
		cache:   cache,
		logger:  logger,
	}
}

// LatestNotes returns the newest note per lead. Uncached leads are
// fetched one by one and written back in a single batch, empty
// results included. A lead whose fetch fails is absent from the
// result and will be retried on the next call.
func (s *NotesService) LatestNotes(ctx context.Context, leadIDs []string) map[string]note.Note {
	uncached := s.cache.Uncached(ctx, leadIDs)

	fetched := make([]note.Note, 0, len(uncached))
	var failures int
	for _, id := range uncached {
		if ctx.Err() != nil {
			break
		}

		n, err := s.fetcher.FetchLatestNote(ctx, id)
		if err != nil {
			failures++
			s.logger.Warn("failed to fetch latest note", zap.String("lead_id", id), zap.Error(err))
			continue
		}
		fetched = append(fetched, n)
	}

	if len(fetched) > 0 {
		if err := s.cache.SetBatch(ctx, fetched); err != nil {
			s.logger.Warn("failed to cache notes", zap.Int("count", len(fetched)), zap.Error(err))
		}
	}
	if failures > 0 {
		s.logger.Warn("some notes unavailable",
			zap.Int("failed", failures),
			zap.Int("requested", len(leadIDs)),
		)
	}

	notes := s.cache.GetBatch(ctx, leadIDs)
	for _, n := range fetched {
		// Cover a cache write that did not stick.
		if _, ok := notes[n.LeadID]; !ok {
			notes[n.LeadID] = n
		}
	}
	return notes
}
