package repository

import (
	"database/sql"
	"fmt"

	"github.com/jengzang/wayfarer-backend-go/internal/database"
	"github.com/jengzang/wayfarer-backend-go/internal/models"
)

// liveEditFilter is the single overlay predicate every reader applies: a point
// is live unless an uncancelled DELETE_RANGE edit of the same user contains
// its recorded_at.
const liveEditFilter = `NOT EXISTS (
		SELECT 1 FROM track_edits e
		WHERE e.user_id = track_points.user_id
		  AND e.type = 'DELETE_RANGE'
		  AND e.canceled_at IS NULL
		  AND track_points.recorded_at >= e.start_at
		  AND track_points.recorded_at <= e.end_at
	)`

const trackPointColumns = `id, user_id, client_point_id, recorded_at, latitude, longitude,
		gcj02_latitude, gcj02_longitude, altitude, accuracy, speed,
		step_count, step_delta, activity_type, is_dirty, weather_snapshot, geom_hash,
		created_at, updated_at`

// TrackRepository handles database operations for track points
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new track repository
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

const insertPointSQL = `INSERT OR IGNORE INTO track_points (
		user_id, client_point_id, recorded_at, latitude, longitude,
		gcj02_latitude, gcj02_longitude, altitude, accuracy, speed,
		step_count, step_delta, activity_type, weather_snapshot, geom_hash,
		created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func insertPointArgs(p *models.TrackPoint) []interface{} {
	return []interface{}{
		p.UserID, p.ClientPointID, p.RecordedAt, p.Latitude, p.Longitude,
		p.GCJ02Latitude, p.GCJ02Longitude, p.Altitude, p.Accuracy, p.Speed,
		p.StepCount, p.StepDelta, p.ActivityType, p.WeatherSnapshot, p.GeomHash,
		p.CreatedAt, p.UpdatedAt,
	}
}

// InsertBatchIdempotent persists a batch of points in one transaction using
// INSERT OR IGNORE keyed on (user_id, client_point_id). A duplicate key is a
// silent success; any other failure aborts the whole transaction so the
// caller can fall back to per-row inserts.
func (r *TrackRepository) InsertBatchIdempotent(points []*models.TrackPoint) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(insertPointSQL)
		if err != nil {
			return fmt.Errorf("failed to prepare insert statement: %w", err)
		}
		defer stmt.Close()

		for _, p := range points {
			if _, err := stmt.Exec(insertPointArgs(p)...); err != nil {
				return fmt.Errorf("failed to insert track point %s: %w", p.ClientPointID, err)
			}
		}
		return nil
	})
}

// InsertOneIdempotent persists a single point in its own transaction so one
// hostile row cannot sink the rest of a batch.
func (r *TrackRepository) InsertOneIdempotent(p *models.TrackPoint) error {
	if _, err := r.db.Exec(insertPointSQL, insertPointArgs(p)...); err != nil {
		return fmt.Errorf("failed to insert track point %s: %w", p.ClientPointID, err)
	}
	return nil
}

// QueryWindow retrieves a user's live points inside [StartAt, EndAt] in
// ascending time order, with the overlay filter applied.
func (r *TrackRepository) QueryWindow(filter models.TrackWindowFilter) ([]models.TrackPoint, error) {
	query := `SELECT ` + trackPointColumns + `
		FROM track_points
		WHERE user_id = ? AND recorded_at >= ? AND recorded_at <= ?
		  AND ` + liveEditFilter + `
		ORDER BY recorded_at ASC`

	args := []interface{}{filter.UserID, filter.StartAt, filter.EndAt}
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query track points: %w", err)
	}
	defer rows.Close()

	return scanTrackPoints(rows)
}

// CountWindow counts a user's live points inside [startAt, endAt].
func (r *TrackRepository) CountWindow(userID string, startAt, endAt int64) (int64, error) {
	query := `SELECT COUNT(*) FROM track_points
		WHERE user_id = ? AND recorded_at >= ? AND recorded_at <= ?
		  AND ` + liveEditFilter

	var total int64
	if err := r.db.QueryRow(query, userID, startAt, endAt).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count track points: %w", err)
	}
	return total, nil
}

// ListWindowRaw retrieves all of a user's points inside [startAt, endAt]
// ascending, without the overlay filter. The anti-cheat auditor works on the
// raw stream so suppressed ranges keep their verdicts.
func (r *TrackRepository) ListWindowRaw(userID string, startAt, endAt int64) ([]models.TrackPoint, error) {
	query := `SELECT ` + trackPointColumns + `
		FROM track_points
		WHERE user_id = ? AND recorded_at >= ? AND recorded_at <= ?
		ORDER BY recorded_at ASC`

	rows, err := r.db.Query(query, userID, startAt, endAt)
	if err != nil {
		return nil, fmt.Errorf("failed to query track points: %w", err)
	}
	defer rows.Close()

	return scanTrackPoints(rows)
}

// PointBefore returns the user's latest point strictly before the given time,
// or nil when there is none. Used as audit context for the first point of a
// window.
func (r *TrackRepository) PointBefore(userID string, before int64) (*models.TrackPoint, error) {
	query := `SELECT ` + trackPointColumns + `
		FROM track_points
		WHERE user_id = ? AND recorded_at < ?
		ORDER BY recorded_at DESC
		LIMIT 1`

	rows, err := r.db.Query(query, userID, before)
	if err != nil {
		return nil, fmt.Errorf("failed to query preceding track point: %w", err)
	}
	defer rows.Close()

	points, err := scanTrackPoints(rows)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, nil
	}
	return &points[0], nil
}

// DirtyFlagUpdate pairs a point id with its recomputed verdict.
type DirtyFlagUpdate struct {
	ID      int64
	IsDirty bool
}

// UpdateDirtyFlags bulk-updates the is_dirty column inside one transaction so
// a failed audit pass never leaves a half-written window.
func (r *TrackRepository) UpdateDirtyFlags(updates []DirtyFlagUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`UPDATE track_points
			SET is_dirty = ?, updated_at = strftime('%s','now')
			WHERE id = ?`)
		if err != nil {
			return fmt.Errorf("failed to prepare dirty flag update: %w", err)
		}
		defer stmt.Close()

		for _, u := range updates {
			if _, err := stmt.Exec(u.IsDirty, u.ID); err != nil {
				return fmt.Errorf("failed to update dirty flag for point %d: %w", u.ID, err)
			}
		}
		return nil
	})
}

// StepRow is the minimal projection used by the step aggregations.
type StepRow struct {
	RecordedAt int64
	StepDelta  int64
}

// StepRowsWindow returns (recorded_at, step_delta) for a user's live points
// inside [startAt, endAt] ascending, with the overlay filter applied.
func (r *TrackRepository) StepRowsWindow(userID string, startAt, endAt int64) ([]StepRow, error) {
	query := `SELECT recorded_at, COALESCE(step_delta, 0)
		FROM track_points
		WHERE user_id = ? AND recorded_at >= ? AND recorded_at <= ?
		  AND ` + liveEditFilter + `
		ORDER BY recorded_at ASC`

	rows, err := r.db.Query(query, userID, startAt, endAt)
	if err != nil {
		return nil, fmt.Errorf("failed to query step rows: %w", err)
	}
	defer rows.Close()

	var out []StepRow
	for rows.Next() {
		var s StepRow
		if err := rows.Scan(&s.RecordedAt, &s.StepDelta); err != nil {
			return nil, fmt.Errorf("failed to scan step row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanTrackPoints(rows *sql.Rows) ([]models.TrackPoint, error) {
	var points []models.TrackPoint
	for rows.Next() {
		var p models.TrackPoint
		err := rows.Scan(
			&p.ID, &p.UserID, &p.ClientPointID, &p.RecordedAt, &p.Latitude, &p.Longitude,
			&p.GCJ02Latitude, &p.GCJ02Longitude, &p.Altitude, &p.Accuracy, &p.Speed,
			&p.StepCount, &p.StepDelta, &p.ActivityType, &p.IsDirty, &p.WeatherSnapshot, &p.GeomHash,
			&p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
