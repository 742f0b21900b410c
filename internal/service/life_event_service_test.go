package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jengzang/wayfarer-backend-go/internal/models"
	"github.com/jengzang/wayfarer-backend-go/internal/repository"
)

func TestLifeEventCreateIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := NewLifeEventService(repository.NewLifeEventRepository(db))

	input := LifeEventInput{
		ClientEventID: "client-key-1",
		EventType:     "TRIP",
		StartAt:       1000,
		EndAt:         2000,
		LocationName:  str("Kyoto"),
	}

	first, err := svc.Create("u1", input)
	require.NoError(t, err)

	// A retried submission returns the stored event, not a duplicate.
	input.LocationName = str("Osaka")
	second, err := svc.Create("u1", input)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "Kyoto", *second.LocationName)

	events, err := svc.List("u1", 0, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestLifeEventClientKeyScopedPerUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewLifeEventService(repository.NewLifeEventRepository(db))

	input := LifeEventInput{
		ClientEventID: "shared-key",
		EventType:     "TRIP",
		StartAt:       1000,
		EndAt:         2000,
	}

	mine, err := svc.Create("u1", input)
	require.NoError(t, err)

	// Another user reusing the key gets their own event, and resubmitting
	// it stays idempotent for them.
	var theirs *models.LifeEvent
	for i := 0; i < 3; i++ {
		got, err := svc.Create("u2", input)
		require.NoError(t, err)
		if theirs != nil {
			require.Equal(t, theirs.ID, got.ID)
		}
		theirs = got
	}
	require.NotEqual(t, mine.ID, theirs.ID)

	got, err := svc.List("u2", 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = svc.List("u1", 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestLifeEventValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewLifeEventService(repository.NewLifeEventRepository(db))

	_, err := svc.Create("u1", LifeEventInput{EventType: "", StartAt: 100, EndAt: 200})
	require.Error(t, err)

	_, err = svc.Create("u1", LifeEventInput{EventType: "TRIP", StartAt: 200, EndAt: 100})
	require.Error(t, err)

	// Zero-length intervals are rejected too.
	_, err = svc.Create("u1", LifeEventInput{EventType: "TRIP", StartAt: 200, EndAt: 200})
	require.Error(t, err)
}

func TestLifeEventUpdateAndDelete(t *testing.T) {
	db := newTestDB(t)
	svc := NewLifeEventService(repository.NewLifeEventRepository(db))

	event, err := svc.Create("u1", LifeEventInput{EventType: "TRIP", StartAt: 100, EndAt: 200})
	require.NoError(t, err)

	updated, err := svc.Update("u1", event.ID, LifeEventInput{
		EventType:  "TRIP",
		StartAt:    100,
		EndAt:      300,
		ManualNote: str("extended"),
	})
	require.NoError(t, err)
	require.EqualValues(t, 300, updated.EndAt)

	// Another user cannot touch it.
	_, err = svc.Update("u2", event.ID, LifeEventInput{EventType: "TRIP", StartAt: 100, EndAt: 200})
	require.Error(t, err)
	require.Error(t, svc.Delete("u2", event.ID))

	require.NoError(t, svc.Delete("u1", event.ID))
	require.Error(t, svc.Delete("u1", event.ID))
}

func TestLifeEventListOverlapWindow(t *testing.T) {
	db := newTestDB(t)
	svc := NewLifeEventService(repository.NewLifeEventRepository(db))

	_, err := svc.Create("u1", LifeEventInput{EventType: "TRIP", StartAt: 100, EndAt: 200})
	require.NoError(t, err)
	_, err = svc.Create("u1", LifeEventInput{EventType: "TRIP", StartAt: 500, EndAt: 600})
	require.NoError(t, err)

	events, err := svc.List("u1", 150, 300)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.EqualValues(t, 100, events[0].StartAt)
}
