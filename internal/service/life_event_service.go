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
	errLifeEventInvalidRange = apperr.New("LIFE_EVENT_INVALID_RANGE", "start must precede end", http.StatusBadRequest)
	errLifeEventMissingType  = apperr.New("LIFE_EVENT_MISSING_TYPE", "eventType is required", http.StatusBadRequest)
	errLifeEventNotFound     = apperr.New("LIFE_EVENT_NOT_FOUND", "life event not found", http.StatusNotFound)
)

// LifeEventInput carries the user-editable fields of an event. ClientEventID
// is an optional idempotency key: resubmitting the same key returns the
// stored event instead of creating a duplicate.
type LifeEventInput struct {
	ClientEventID  string   `json:"clientEventId"`
	EventType      string   `json:"eventType"`
	StartAt        int64    `json:"-"`
	EndAt          int64    `json:"-"`
	LocationName   *string  `json:"locationName"`
	ManualNote     *string  `json:"manualNote"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	GCJ02Latitude  *float64 `json:"gcj02Latitude"`
	GCJ02Longitude *float64 `json:"gcj02Longitude"`
}

// LifeEventService manages user-authored interval events.
type LifeEventService struct {
	events *repository.LifeEventRepository
}

// NewLifeEventService creates a new life event service
func NewLifeEventService(events *repository.LifeEventRepository) *LifeEventService {
	return &LifeEventService{events: events}
}

// List returns the user's events overlapping [startAt, endAt]; zero bounds
// disable the corresponding filter.
func (s *LifeEventService) List(userID string, startAt, endAt int64) ([]models.LifeEvent, error) {
	events, err := s.events.ListOverlapping(userID, startAt, endAt)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.LifeEvent{}
	}
	return events, nil
}

// Create inserts a user-authored event. With a client idempotency key the
// insert is if-absent per user: a retried submission returns the existing
// row, and the same key under a different user names a different event.
func (s *LifeEventService) Create(userID string, input LifeEventInput) (*models.LifeEvent, error) {
	if input.EventType == "" {
		return nil, errLifeEventMissingType
	}
	if input.StartAt >= input.EndAt {
		return nil, errLifeEventInvalidRange
	}

	id := uuid.NewString()
	if input.ClientEventID != "" {
		id = lifeEventID(userID, input.ClientEventID)
	}

	now := time.Now().Unix()
	event := &models.LifeEvent{
		ID:             id,
		UserID:         userID,
		EventType:      input.EventType,
		StartAt:        input.StartAt,
		EndAt:          input.EndAt,
		LocationName:   input.LocationName,
		ManualNote:     input.ManualNote,
		Latitude:       input.Latitude,
		Longitude:      input.Longitude,
		GCJ02Latitude:  input.GCJ02Latitude,
		GCJ02Longitude: input.GCJ02Longitude,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	inserted, err := s.events.InsertIfAbsent(event)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// The id is scoped to this user, so the losing writer can only
		// be an earlier submission of the same key.
		existing, err := s.events.Get(userID, id)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, fmt.Errorf("failed to load life event %s after duplicate insert", id)
		}
		return existing, nil
	}
	return event, nil
}

// lifeEventID derives the per-user identifier for a client idempotency key.
func lifeEventID(userID, clientEventID string) string {
	name := fmt.Sprintf("%s|EVENT|%s", userID, clientEventID)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// Update overwrites the mutable fields of an event the user owns.
func (s *LifeEventService) Update(userID, id string, input LifeEventInput) (*models.LifeEvent, error) {
	if input.EventType == "" {
		return nil, errLifeEventMissingType
	}
	if input.StartAt >= input.EndAt {
		return nil, errLifeEventInvalidRange
	}

	event, err := s.events.Get(userID, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, errLifeEventNotFound
	}

	event.EventType = input.EventType
	event.StartAt = input.StartAt
	event.EndAt = input.EndAt
	event.LocationName = input.LocationName
	event.ManualNote = input.ManualNote
	event.Latitude = input.Latitude
	event.Longitude = input.Longitude
	event.GCJ02Latitude = input.GCJ02Latitude
	event.GCJ02Longitude = input.GCJ02Longitude
	event.UpdatedAt = time.Now().Unix()

	if err := s.events.Update(event); err != nil {
		return nil, err
	}
	return event, nil
}

// Delete removes an event the user owns.
func (s *LifeEventService) Delete(userID, id string) error {
	deleted, err := s.events.Delete(userID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return errLifeEventNotFound
	}
	return nil
}
