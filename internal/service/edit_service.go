package service

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jengzang/wayfarer-backend-go/internal/apperr"
	"github.com/jengzang/wayfarer-backend-go/internal/models"
	"github.com/jengzang/wayfarer-backend-go/internal/repository"
)

var (
	errEditUnsupportedType = apperr.New("EDIT_UNSUPPORTED_TYPE", "only DELETE_RANGE edits are supported", http.StatusBadRequest)
	errEditInvalidRange    = apperr.New("EDIT_INVALID_RANGE", "start must precede end", http.StatusBadRequest)
	errEditNotFound        = apperr.New("EDIT_NOT_FOUND", "edit not found", http.StatusNotFound)
)

// EditResult pairs a new edit with the number of live points it suppressed.
type EditResult struct {
	Edit         *models.TrackEdit `json:"edit"`
	AppliedCount int64             `json:"appliedCount"`
}

// EditService manages soft-delete edit ranges.
type EditService struct {
	edits  *repository.EditRepository
	tracks *repository.TrackRepository
}

// NewEditService creates a new edit service
func NewEditService(edits *repository.EditRepository, tracks *repository.TrackRepository) *EditService {
	return &EditService{edits: edits, tracks: tracks}
}

// Create records a new DELETE_RANGE edit and reports how many currently-live
// points the range suppresses. The count is taken before the edit lands, so
// points already hidden by an older overlapping range are not double-counted.
func (s *EditService) Create(userID, editType string, startAt, endAt int64, note *string) (*EditResult, error) {
	if editType != models.EditTypeDeleteRange {
		return nil, errEditUnsupportedType
	}
	if startAt >= endAt {
		return nil, errEditInvalidRange
	}

	applied, err := s.tracks.CountWindow(userID, startAt, endAt)
	if err != nil {
		return nil, fmt.Errorf("failed to count suppressed points: %w", err)
	}

	edit := &models.TrackEdit{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      models.EditTypeDeleteRange,
		StartAt:   startAt,
		EndAt:     endAt,
		CreatedAt: time.Now().Unix(),
		Note:      note,
	}
	if err := s.edits.Create(edit); err != nil {
		return nil, err
	}
	return &EditResult{Edit: edit, AppliedCount: applied}, nil
}

// List returns the user's edits, newest first.
func (s *EditService) List(userID string) ([]models.TrackEdit, error) {
	edits, err := s.edits.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	if edits == nil {
		edits = []models.TrackEdit{}
	}
	return edits, nil
}

// Cancel unsets an edit's effect, immediately un-suppressing its points.
// Cancelling an already-cancelled edit succeeds without changing anything.
func (s *EditService) Cancel(userID, id string) (*models.TrackEdit, error) {
	edit, err := s.edits.Get(userID, id)
	if err != nil {
		return nil, err
	}
	if edit == nil {
		return nil, errEditNotFound
	}
	if edit.CanceledAt == nil {
		now := time.Now().Unix()
		if err := s.edits.Cancel(userID, id, now); err != nil {
			return nil, err
		}
		edit.CanceledAt = &now
	}
	return edit, nil
}
