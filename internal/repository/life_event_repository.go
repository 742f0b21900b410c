package repository

import (
	"database/sql"
	"fmt"

	"github.com/jengzang/wayfarer-backend-go/internal/models"
)

const lifeEventColumns = `id, user_id, event_type, start_at, end_at, location_name, manual_note,
		latitude, longitude, gcj02_latitude, gcj02_longitude, payload_json, created_at, updated_at`

// LifeEventRepository handles database operations for life events
type LifeEventRepository struct {
	db *sql.DB
}

// NewLifeEventRepository creates a new life event repository
func NewLifeEventRepository(db *sql.DB) *LifeEventRepository {
	return &LifeEventRepository{db: db}
}

// InsertIfAbsent inserts an event keyed on its id and reports whether a row
// was written. A losing writer (recompute over an overlapping window, or a
// retried client submission) silently keeps the existing row.
func (r *LifeEventRepository) InsertIfAbsent(e *models.LifeEvent) (bool, error) {
	query := `INSERT OR IGNORE INTO life_events (` + lifeEventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := r.db.Exec(query,
		e.ID, e.UserID, e.EventType, e.StartAt, e.EndAt, e.LocationName, e.ManualNote,
		e.Latitude, e.Longitude, e.GCJ02Latitude, e.GCJ02Longitude, e.PayloadJSON,
		e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert life event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return n > 0, nil
}

// ListOverlapping returns a user's events overlapping [startAt, endAt],
// ordered by start time. Zero bounds disable the corresponding filter.
func (r *LifeEventRepository) ListOverlapping(userID string, startAt, endAt int64) ([]models.LifeEvent, error) {
	query := `SELECT ` + lifeEventColumns + ` FROM life_events WHERE user_id = ?`
	args := []interface{}{userID}

	if startAt > 0 {
		query += " AND end_at >= ?"
		args = append(args, startAt)
	}
	if endAt > 0 {
		query += " AND start_at <= ?"
		args = append(args, endAt)
	}
	query += " ORDER BY start_at ASC, id ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query life events: %w", err)
	}
	defer rows.Close()

	var events []models.LifeEvent
	for rows.Next() {
		e, err := scanLifeEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// Get returns one event scoped to its owning user, or nil when absent.
func (r *LifeEventRepository) Get(userID, id string) (*models.LifeEvent, error) {
	query := `SELECT ` + lifeEventColumns + ` FROM life_events WHERE id = ? AND user_id = ?`

	var e models.LifeEvent
	err := r.db.QueryRow(query, id, userID).Scan(
		&e.ID, &e.UserID, &e.EventType, &e.StartAt, &e.EndAt, &e.LocationName, &e.ManualNote,
		&e.Latitude, &e.Longitude, &e.GCJ02Latitude, &e.GCJ02Longitude, &e.PayloadJSON,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get life event: %w", err)
	}
	return &e, nil
}

// Update overwrites the mutable columns of an event.
func (r *LifeEventRepository) Update(e *models.LifeEvent) error {
	query := `UPDATE life_events
		SET event_type = ?, start_at = ?, end_at = ?, location_name = ?, manual_note = ?,
		    latitude = ?, longitude = ?, gcj02_latitude = ?, gcj02_longitude = ?,
		    payload_json = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`

	_, err := r.db.Exec(query,
		e.EventType, e.StartAt, e.EndAt, e.LocationName, e.ManualNote,
		e.Latitude, e.Longitude, e.GCJ02Latitude, e.GCJ02Longitude,
		e.PayloadJSON, e.UpdatedAt, e.ID, e.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update life event: %w", err)
	}
	return nil
}

// Delete removes an event and reports whether a row existed.
func (r *LifeEventRepository) Delete(userID, id string) (bool, error) {
	res, err := r.db.Exec(`DELETE FROM life_events WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete life event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return n > 0, nil
}

func scanLifeEvent(rows *sql.Rows) (*models.LifeEvent, error) {
	var e models.LifeEvent
	err := rows.Scan(
		&e.ID, &e.UserID, &e.EventType, &e.StartAt, &e.EndAt, &e.LocationName, &e.ManualNote,
		&e.Latitude, &e.Longitude, &e.GCJ02Latitude, &e.GCJ02Longitude, &e.PayloadJSON,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan life event: %w", err)
	}
	return &e, nil
}
