// internal/repository/cache/cache.go

// Package cache holds the Redis-backed TTL caches that sit between
// the dashboard and the slow Zoho endpoints. Entries expire after 24
// hours; a refresh clears them explicitly. Cache reads degrade to a
// miss on any Redis failure so the dashboard never breaks because the
// cache is down.
package cache

import "time"

const (
	// cacheTTL bounds how stale cached Zoho data may get before it is
	// re-fetched even without an explicit refresh.
	cacheTTL = 24 * time.Hour

	// batchChunkSize caps how many keys go into a single MGET.
	batchChunkSize = 100

	leadsKey         = "panopticon:leads"
	deliveriesKey    = "panopticon:deliveries"
	historyKeyPrefix = "panopticon:history:"
	noteKeyPrefix    = "panopticon:note:"

	// noNotesMarker distinguishes "checked, lead has no notes" from
	// "never checked" so empty leads are not re-fetched every render.
	noNotesMarker = "__NO_NOTES__"
)

func chunk(ids []string, size int) [][]string {
	var out [][]string
	for len(ids) > size {
		out = append(out, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}
