package repository

import (
	"database/sql"
	"fmt"

	"github.com/jengzang/wayfarer-backend-go/internal/models"
)

const trackEditColumns = `id, user_id, type, start_at, end_at, created_at, canceled_at, note`

// EditRepository handles database operations for soft-delete edit ranges
type EditRepository struct {
	db *sql.DB
}

// NewEditRepository creates a new edit repository
func NewEditRepository(db *sql.DB) *EditRepository {
	return &EditRepository{db: db}
}

// Create persists a new edit range.
func (r *EditRepository) Create(e *models.TrackEdit) error {
	query := `INSERT INTO track_edits (id, user_id, type, start_at, end_at, created_at, canceled_at, note)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query, e.ID, e.UserID, e.Type, e.StartAt, e.EndAt, e.CreatedAt, e.CanceledAt, e.Note)
	if err != nil {
		return fmt.Errorf("failed to create track edit: %w", err)
	}
	return nil
}

// ListByUser returns a user's edits, newest first.
func (r *EditRepository) ListByUser(userID string) ([]models.TrackEdit, error) {
	query := `SELECT ` + trackEditColumns + ` FROM track_edits
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query track edits: %w", err)
	}
	defer rows.Close()

	var edits []models.TrackEdit
	for rows.Next() {
		var e models.TrackEdit
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.StartAt, &e.EndAt,
			&e.CreatedAt, &e.CanceledAt, &e.Note); err != nil {
			return nil, fmt.Errorf("failed to scan track edit: %w", err)
		}
		edits = append(edits, e)
	}
	return edits, rows.Err()
}

// Get returns one edit scoped to its owning user, or nil when absent.
func (r *EditRepository) Get(userID, id string) (*models.TrackEdit, error) {
	query := `SELECT ` + trackEditColumns + ` FROM track_edits WHERE id = ? AND user_id = ?`

	var e models.TrackEdit
	err := r.db.QueryRow(query, id, userID).Scan(&e.ID, &e.UserID, &e.Type, &e.StartAt, &e.EndAt,
		&e.CreatedAt, &e.CanceledAt, &e.Note)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get track edit: %w", err)
	}
	return &e, nil
}

// Cancel sets canceled_at once. Cancelling an already-cancelled edit is a
// no-op, which keeps the operation idempotent.
func (r *EditRepository) Cancel(userID, id string, canceledAt int64) error {
	query := `UPDATE track_edits SET canceled_at = ?
		WHERE id = ? AND user_id = ? AND canceled_at IS NULL`

	if _, err := r.db.Exec(query, canceledAt, id, userID); err != nil {
		return fmt.Errorf("failed to cancel track edit: %w", err)
	}
	return nil
}
