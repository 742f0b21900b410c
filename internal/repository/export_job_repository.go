package repository

import (
	"database/sql"
	"fmt"

	"github.com/jengzang/wayfarer-backend-go/internal/models"
)

const exportJobColumns = `id, user_id, state, format, include_weather, start_at, end_at, timezone,
		artifact_path, error_code, error_message, created_at, updated_at, finished_at`

// ExportJobRepository handles database operations for export jobs
type ExportJobRepository struct {
	db *sql.DB
}

// NewExportJobRepository creates a new export job repository
func NewExportJobRepository(db *sql.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Create persists a new job in state CREATED.
func (r *ExportJobRepository) Create(j *models.ExportJob) error {
	query := `INSERT INTO export_jobs (` + exportJobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query,
		j.ID, j.UserID, j.State, j.Format, j.IncludeWeather, j.StartAt, j.EndAt, j.Timezone,
		j.ArtifactPath, j.ErrorCode, j.ErrorMessage, j.CreatedAt, j.UpdatedAt, j.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create export job: %w", err)
	}
	return nil
}

// Get returns one job scoped to its owning user, or nil when absent.
func (r *ExportJobRepository) Get(userID, id string) (*models.ExportJob, error) {
	return r.get(`SELECT `+exportJobColumns+` FROM export_jobs WHERE id = ? AND user_id = ?`, id, userID)
}

// GetByID returns one job regardless of owner, or nil when absent. Used by
// the background runner which is handed a job id, not a request context.
func (r *ExportJobRepository) GetByID(id string) (*models.ExportJob, error) {
	return r.get(`SELECT `+exportJobColumns+` FROM export_jobs WHERE id = ?`, id)
}

func (r *ExportJobRepository) get(query string, args ...interface{}) (*models.ExportJob, error) {
	var j models.ExportJob
	err := r.db.QueryRow(query, args...).Scan(
		&j.ID, &j.UserID, &j.State, &j.Format, &j.IncludeWeather, &j.StartAt, &j.EndAt, &j.Timezone,
		&j.ArtifactPath, &j.ErrorCode, &j.ErrorMessage, &j.CreatedAt, &j.UpdatedAt, &j.FinishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get export job: %w", err)
	}
	return &j, nil
}

// CountActive counts a user's jobs in CREATED or RUNNING state.
func (r *ExportJobRepository) CountActive(userID string) (int, error) {
	query := `SELECT COUNT(*) FROM export_jobs
		WHERE user_id = ? AND state IN ('CREATED', 'RUNNING')`

	var n int
	if err := r.db.QueryRow(query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count active export jobs: %w", err)
	}
	return n, nil
}

// MarkRunning transitions CREATED -> RUNNING and reports whether the
// transition happened (false means the job was cancelled or already ran).
func (r *ExportJobRepository) MarkRunning(id string, now int64) (bool, error) {
	query := `UPDATE export_jobs
		SET state = 'RUNNING', error_code = NULL, error_message = NULL, finished_at = NULL, updated_at = ?
		WHERE id = ? AND state = 'CREATED'`

	res, err := r.db.Exec(query, now, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark export job running: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return n > 0, nil
}

// FinalizeFromRunning writes the terminal state only if the job is still
// RUNNING. A false return means a cancellation raced the render; the caller
// must discard the artifact it just wrote.
func (r *ExportJobRepository) FinalizeFromRunning(id, state string, artifactPath, errorCode, errorMessage *string, now int64) (bool, error) {
	query := `UPDATE export_jobs
		SET state = ?, artifact_path = ?, error_code = ?, error_message = ?, finished_at = ?, updated_at = ?
		WHERE id = ? AND state = 'RUNNING'`

	res, err := r.db.Exec(query, state, artifactPath, errorCode, errorMessage, now, now, id)
	if err != nil {
		return false, fmt.Errorf("failed to finalize export job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return n > 0, nil
}

// Cancel transitions CREATED|RUNNING -> CANCELED scoped to the owning user
// and reports whether the transition happened.
func (r *ExportJobRepository) Cancel(userID, id string, now int64) (bool, error) {
	query := `UPDATE export_jobs
		SET state = 'CANCELED', finished_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ? AND state IN ('CREATED', 'RUNNING')`

	res, err := r.db.Exec(query, now, now, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to cancel export job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return n > 0, nil
}
