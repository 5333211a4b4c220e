// internal/repository/postgres/snapshot_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andre-sav/panopticon/internal/domain/lead"
	xerrors "github.com/andre-sav/panopticon/internal/pkg/errors"
)

// SnapshotRepository persists one status-count row per day so the
// dashboard can chart whether the pipeline is getting healthier.
// Everything else in the system is ephemeral; this table is the only
// durable state.
type SnapshotRepository struct {
	db *pgxpool.Pool
}

func NewSnapshotRepository(db *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// EnsureSchema creates the snapshots table when missing. The schema
// is one table, so this replaces a migration tool.
func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS status_snapshots (
			snapshot_date DATE PRIMARY KEY,
			stale_count INT NOT NULL DEFAULT 0,
			at_risk_count INT NOT NULL DEFAULT 0,
			healthy_count INT NOT NULL DEFAULT 0,
			total_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure status_snapshots schema: %w", err)
	}
	return nil
}

// Upsert saves the counts for a date, replacing any snapshot already
// taken that day. Later refreshes within the same day win.
func (r *SnapshotRepository) Upsert(ctx context.Context, snapshotDate time.Time, counts lead.StatusCounts) error {
	query := `
		INSERT INTO status_snapshots (
			snapshot_date, stale_count, at_risk_count, healthy_count, total_count, created_at
		) VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (snapshot_date) DO UPDATE SET
			stale_count = EXCLUDED.stale_count,
			at_risk_count = EXCLUDED.at_risk_count,
			healthy_count = EXCLUDED.healthy_count,
			total_count = EXCLUDED.total_count,
			created_at = NOW()
	`

	_, err := r.db.Exec(ctx, query,
		snapshotDate.UTC().Truncate(24*time.Hour),
		counts.Stale, counts.AtRisk, counts.Healthy, counts.Total(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert status snapshot: %w", err)
	}
	return nil
}

// FindByDate returns one day's snapshot.
func (r *SnapshotRepository) FindByDate(ctx context.Context, snapshotDate time.Time) (*lead.StatusSnapshot, error) {
	query := `
		SELECT snapshot_date, stale_count, at_risk_count, healthy_count, total_count, created_at
		FROM status_snapshots
		WHERE snapshot_date = $1
	`

	var s lead.StatusSnapshot
	err := r.db.QueryRow(ctx, query, snapshotDate.UTC().Truncate(24*time.Hour)).Scan(
		&s.SnapshotDate, &s.StaleCount, &s.AtRiskCount, &s.HealthyCount, &s.TotalCount, &s.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find status snapshot: %w", err)
	}
	return &s, nil
}

// ListSince returns the snapshots of the last N days, oldest first,
// ready for trend charting.
func (r *SnapshotRepository) ListSince(ctx context.Context, days int) ([]lead.StatusSnapshot, error) {
	if days < 1 {
		days = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	query := `
		SELECT snapshot_date, stale_count, at_risk_count, healthy_count, total_count, created_at
		FROM status_snapshots
		WHERE snapshot_date >= $1
		ORDER BY snapshot_date ASC
	`

	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list status snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []lead.StatusSnapshot{}
	for rows.Next() {
		var s lead.StatusSnapshot
		if err := rows.Scan(
			&s.SnapshotDate, &s.StaleCount, &s.AtRiskCount, &s.HealthyCount, &s.TotalCount, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan status snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read status snapshots: %w", err)
	}

	return snapshots, nil
}
