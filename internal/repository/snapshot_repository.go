package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/crime-eda-backend-go/internal/database"
	"github.com/jengzang/crime-eda-backend-go/internal/models"
)

// ErrNotFound is returned when no snapshot matches
var ErrNotFound = errors.New("snapshot not found")

const snapshotColumns = `id, version, raw_version, area_version, source, areas,
	rows_read, invalid_timestamps, invalid_numbers,
	input_rows, dropped_missing, missing_by_field, dropped_sentinel_year, dropped_duplicates, output_rows,
	loaded_at`

// SnapshotRepository persists dataset loads and their headline aggregates
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Save stores a snapshot with its period counts and density table in one
// transaction and sets snap.ID
func (r *SnapshotRepository) Save(ctx context.Context, snap *models.DatasetSnapshot, periods map[models.Granularity][]models.PeriodCount, density []models.AreaYearDensity) error {
	missing, err := json.Marshal(snap.Clean.MissingByField)
	if err != nil {
		return fmt.Errorf("failed to encode missing counts: %w", err)
	}

	return database.Transaction(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO dataset_snapshots (
			version, raw_version, area_version, source, areas,
			rows_read, invalid_timestamps, invalid_numbers,
			input_rows, dropped_missing, missing_by_field, dropped_sentinel_year, dropped_duplicates, output_rows,
			loaded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.Version, snap.RawVersion, snap.AreaVersion, snap.Source, snap.Areas,
			snap.Normalize.RowsRead, snap.Normalize.InvalidTimestamps, snap.Normalize.InvalidNumbers,
			snap.Clean.InputRows, snap.Clean.DroppedMissing, string(missing), snap.Clean.DroppedSentinelYear,
			snap.Clean.DroppedDuplicates, snap.Clean.OutputRows,
			snap.LoadedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get snapshot id: %w", err)
		}

		periodStmt, err := tx.PrepareContext(ctx, `INSERT INTO period_counts (snapshot_id, granularity, period_start, count) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare period insert: %w", err)
		}
		defer periodStmt.Close()
		for g, rows := range periods {
			for _, p := range rows {
				if _, err := periodStmt.ExecContext(ctx, id, string(g), p.PeriodStart.Format(time.DateOnly), p.Count); err != nil {
					return fmt.Errorf("failed to insert period count: %w", err)
				}
			}
		}

		densityStmt, err := tx.PrepareContext(ctx, `INSERT INTO area_year_density (snapshot_id, area_number, community, year, incidents, area_km2, per_km2) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare density insert: %w", err)
		}
		defer densityStmt.Close()
		for _, d := range density {
			var perKm2 sql.NullInt64
			if d.PerKm2 != nil {
				perKm2 = sql.NullInt64{Int64: *d.PerKm2, Valid: true}
			}
			if _, err := densityStmt.ExecContext(ctx, id, d.AreaNumber, d.Community, d.Year, d.Incidents, d.AreaKm2, perKm2); err != nil {
				return fmt.Errorf("failed to insert density row: %w", err)
			}
		}

		snap.ID = id
		return nil
	})
}

// Latest returns the most recently saved snapshot
func (r *SnapshotRepository) Latest(ctx context.Context) (*models.DatasetSnapshot, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM dataset_snapshots ORDER BY id DESC LIMIT 1`)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return snap, err
}

// GetByID returns one snapshot
func (r *SnapshotRepository) GetByID(ctx context.Context, id int64) (*models.DatasetSnapshot, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM dataset_snapshots WHERE id = ?`, id)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return snap, err
}

// History lists snapshots, newest first. limit <= 0 returns all.
func (r *SnapshotRepository) History(ctx context.Context, limit int) ([]models.DatasetSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM dataset_snapshots ORDER BY id DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []models.DatasetSnapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *snap)
	}
	return snapshots, rows.Err()
}

// PeriodCounts returns the stored period counts of a snapshot
func (r *SnapshotRepository) PeriodCounts(ctx context.Context, snapshotID int64, g models.Granularity) ([]models.PeriodCount, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT period_start, count FROM period_counts
		WHERE snapshot_id = ? AND granularity = ? ORDER BY period_start`, snapshotID, string(g))
	if err != nil {
		return nil, fmt.Errorf("failed to query period counts: %w", err)
	}
	defer rows.Close()

	counts := []models.PeriodCount{}
	for rows.Next() {
		var start string
		var p models.PeriodCount
		if err := rows.Scan(&start, &p.Count); err != nil {
			return nil, fmt.Errorf("failed to scan period count: %w", err)
		}
		if p.PeriodStart, err = time.Parse(time.DateOnly, start); err != nil {
			return nil, fmt.Errorf("invalid stored period %q: %w", start, err)
		}
		counts = append(counts, p)
	}
	return counts, rows.Err()
}

// Density returns the stored density rows of a snapshot. year <= 0 returns every year.
func (r *SnapshotRepository) Density(ctx context.Context, snapshotID int64, year int) ([]models.AreaYearDensity, error) {
	query := `SELECT area_number, community, year, incidents, area_km2, per_km2
		FROM area_year_density WHERE snapshot_id = ?`
	args := []interface{}{snapshotID}
	if year > 0 {
		query += ` AND year = ?`
		args = append(args, year)
	}
	query += ` ORDER BY area_number, year`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query density: %w", err)
	}
	defer rows.Close()

	density := []models.AreaYearDensity{}
	for rows.Next() {
		var d models.AreaYearDensity
		var perKm2 sql.NullInt64
		if err := rows.Scan(&d.AreaNumber, &d.Community, &d.Year, &d.Incidents, &d.AreaKm2, &perKm2); err != nil {
			return nil, fmt.Errorf("failed to scan density row: %w", err)
		}
		if perKm2.Valid {
			v := perKm2.Int64
			d.PerKm2 = &v
		}
		density = append(density, d)
	}
	return density, rows.Err()
}

// Prune deletes all but the newest keep snapshots with their aggregates
func (r *SnapshotRepository) Prune(ctx context.Context, keep int) (int64, error) {
	const stale = `SELECT id FROM dataset_snapshots WHERE id NOT IN (
		SELECT id FROM dataset_snapshots ORDER BY id DESC LIMIT ?)`

	var deleted int64
	err := database.Transaction(ctx, r.db, func(tx *sql.Tx) error {
		// foreign_keys is per connection, so children are removed explicitly
		for _, table := range []string{"period_counts", "area_year_density"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE snapshot_id IN (`+stale+`)`, keep); err != nil {
				return fmt.Errorf("failed to prune %s: %w", table, err)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM dataset_snapshots WHERE id IN (`+stale+`)`, keep)
		if err != nil {
			return fmt.Errorf("failed to prune snapshots: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(s scanner) (*models.DatasetSnapshot, error) {
	var snap models.DatasetSnapshot
	var missing, loadedAt string

	err := s.Scan(
		&snap.ID, &snap.Version, &snap.RawVersion, &snap.AreaVersion, &snap.Source, &snap.Areas,
		&snap.Normalize.RowsRead, &snap.Normalize.InvalidTimestamps, &snap.Normalize.InvalidNumbers,
		&snap.Clean.InputRows, &snap.Clean.DroppedMissing, &missing, &snap.Clean.DroppedSentinelYear,
		&snap.Clean.DroppedDuplicates, &snap.Clean.OutputRows,
		&loadedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot: %w", err)
	}

	if err := json.Unmarshal([]byte(missing), &snap.Clean.MissingByField); err != nil {
		return nil, fmt.Errorf("invalid stored missing counts: %w", err)
	}
	if snap.LoadedAt, err = time.Parse(time.RFC3339Nano, loadedAt); err != nil {
		return nil, fmt.Errorf("invalid stored load time: %w", err)
	}
	return &snap, nil
}
