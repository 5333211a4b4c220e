// internal/repository/cache/notes_cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/andre-sav/panopticon/internal/domain/note"
)

// NotesCache stores each lead's latest note. Leads checked and found
// without notes get a marker entry so they are not re-fetched on the
// next load.
type NotesCache struct {
	client *redis.Client
	logger *zap.Logger
}

func NewNotesCache(client *redis.Client, logger *zap.Logger) *NotesCache {
	return &NotesCache{client: client, logger: logger}
}

func noteKey(leadID string) string {
	return noteKeyPrefix + leadID
}

type notePayload struct {
	Content string     `json:"content"`
	Time    *time.Time `json:"time"`
}

// GetBatch returns cached notes for the given leads. A lead cached
// with the no-notes marker appears in the result as an empty Note;
// leads never checked are absent entirely.
func (c *NotesCache) GetBatch(ctx context.Context, leadIDs []string) map[string]note.Note {
	result := make(map[string]note.Note)
	if len(leadIDs) == 0 {
		return result
	}

	for _, ids := range chunk(leadIDs, batchChunkSize) {
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = noteKey(id)
		}

		values, err := c.client.MGet(ctx, keys...).Result()
		if err != nil {
			c.logger.Warn("notes cache batch read failed", zap.Int("chunk_size", len(ids)), zap.Error(err))
			continue
		}

		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				continue
			}
			var payload notePayload
			if err := json.Unmarshal([]byte(raw), &payload); err != nil {
				c.logger.Warn("notes cache payload corrupt", zap.String("lead_id", ids[i]), zap.Error(err))
				continue
			}

			n := note.Note{LeadID: ids[i]}
			if payload.Content != noNotesMarker {
				n.Content = payload.Content
				n.CreatedAt = payload.Time
			}
			result[ids[i]] = n
		}
	}
	return result
}

// SetBatch caches notes in one pipelined round trip. Notes without
// content are stored as the no-notes marker.
func (c *NotesCache) SetBatch(ctx context.Context, notes []note.Note) error {
	if len(notes) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for _, n := range notes {
		payload := notePayload{Content: n.Content, Time: n.CreatedAt}
		if n.Empty() {
			payload = notePayload{Content: noNotesMarker}
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal note payload: %w", err)
		}
		pipe.Set(ctx, noteKey(n.LeadID), data, cacheTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to batch cache notes: %w", err)
	}

	c.logger.Info("cached notes", zap.Int("count", len(notes)))
	return nil
}

// Uncached returns the lead IDs with no cache entry at all, marker
// entries included as cached. On a Redis failure the whole chunk is
// reported uncached so the caller re-fetches rather than shows gaps.
func (c *NotesCache) Uncached(ctx context.Context, leadIDs []string) []string {
	if len(leadIDs) == 0 {
		return nil
	}

	var missing []string
	for _, ids := range chunk(leadIDs, batchChunkSize) {
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = noteKey(id)
		}

		values, err := c.client.MGet(ctx, keys...).Result()
		if err != nil {
			c.logger.Warn("notes cache check failed", zap.Int("chunk_size", len(ids)), zap.Error(err))
			missing = append(missing, ids...)
			continue
		}

		for i, v := range values {
			if v == nil {
				missing = append(missing, ids[i])
			}
		}
	}
	return missing
}

// Clear drops every cached note.
func (c *NotesCache) Clear(ctx context.Context) error {
	return clearByPattern(ctx, c.client, noteKeyPrefix+"*")
}
