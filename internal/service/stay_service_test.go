package service

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jengzang/wayfarer-backend-go/internal/models"
	"github.com/jengzang/wayfarer-backend-go/internal/repository"
)

func stayEvents(t *testing.T, events *repository.LifeEventRepository, userID string) []models.LifeEvent {
	t.Helper()
	all, err := events.ListOverlapping(userID, 0, 0)
	require.NoError(t, err)
	var stays []models.LifeEvent
	for _, e := range all {
		if e.EventType == models.EventTypeStay {
			stays = append(stays, e)
		}
	}
	return stays
}

func TestStayDurationBoundary(t *testing.T) {
	db := newTestDB(t)
	tracks := repository.NewTrackRepository(db)
	events := repository.NewLifeEventRepository(db)
	stays := NewStayService(tracks, events, defaultStay(), zap.NewNop())

	// Exactly the time threshold qualifies.
	seedPoint(t, tracks, "u1", "p1", 1000, 39.9, 116.4, nil)
	seedPoint(t, tracks, "u1", "p2", 1300, 39.9, 116.4, nil)

	// One second short does not.
	seedPoint(t, tracks, "u2", "p1", 1000, 39.9, 116.4, nil)
	seedPoint(t, tracks, "u2", "p2", 1299, 39.9, 116.4, nil)

	require.NoError(t, stays.RecomputeWindow("u1", 0, 10000))
	require.NoError(t, stays.RecomputeWindow("u2", 0, 10000))

	got := stayEvents(t, events, "u1")
	require.Len(t, got, 1)
	require.EqualValues(t, 1000, got[0].StartAt)
	require.EqualValues(t, 1300, got[0].EndAt)
	require.NotNil(t, got[0].Latitude)
	require.InDelta(t, 39.9, *got[0].Latitude, 1e-9)

	require.Empty(t, stayEvents(t, events, "u2"))
}

func TestStayRecomputeIdempotent(t *testing.T) {
	db := newTestDB(t)
	tracks := repository.NewTrackRepository(db)
	events := repository.NewLifeEventRepository(db)
	stays := NewStayService(tracks, events, defaultStay(), zap.NewNop())

	seedPoint(t, tracks, "u1", "p1", 1000, 39.9, 116.4, nil)
	seedPoint(t, tracks, "u1", "p2", 1200, 39.9001, 116.4001, nil)
	seedPoint(t, tracks, "u1", "p3", 1400, 39.9, 116.4, nil)

	require.NoError(t, stays.RecomputeWindow("u1", 0, 10000))
	require.Len(t, stayEvents(t, events, "u1"), 1)

	// Re-running over the same and an overlapping window changes nothing.
	require.NoError(t, stays.RecomputeWindow("u1", 0, 10000))
	require.NoError(t, stays.RecomputeWindow("u1", 500, 5000))
	require.Len(t, stayEvents(t, events, "u1"), 1)
}

func TestStayPreservesManualEdits(t *testing.T) {
	db := newTestDB(t)
	tracks := repository.NewTrackRepository(db)
	events := repository.NewLifeEventRepository(db)
	stays := NewStayService(tracks, events, defaultStay(), zap.NewNop())

	seedPoint(t, tracks, "u1", "p1", 1000, 39.9, 116.4, nil)
	seedPoint(t, tracks, "u1", "p2", 1400, 39.9, 116.4, nil)
	require.NoError(t, stays.RecomputeWindow("u1", 0, 10000))

	got := stayEvents(t, events, "u1")
	require.Len(t, got, 1)

	// The user annotates the detected stay.
	got[0].LocationName = str("home")
	got[0].UpdatedAt = 9999
	require.NoError(t, events.Update(&got[0]))

	require.NoError(t, stays.RecomputeWindow("u1", 0, 10000))

	got = stayEvents(t, events, "u1")
	require.Len(t, got, 1)
	require.NotNil(t, got[0].LocationName)
	require.Equal(t, "home", *got[0].LocationName)
}

func TestStayFarApartPointsDetectNothing(t *testing.T) {
	db := newTestDB(t)
	tracks := repository.NewTrackRepository(db)
	events := repository.NewLifeEventRepository(db)
	stays := NewStayService(tracks, events, defaultStay(), zap.NewNop())

	// Each hop is ~1.1 km, well past the 200 m radius.
	seedPoint(t, tracks, "u1", "p1", 1000, 39.90, 116.4, nil)
	seedPoint(t, tracks, "u1", "p2", 1400, 39.91, 116.4, nil)
	seedPoint(t, tracks, "u1", "p3", 1800, 39.92, 116.4, nil)

	require.NoError(t, stays.RecomputeWindow("u1", 0, 10000))
	require.Empty(t, stayEvents(t, events, "u1"))
}

func TestStayIgnoresSuppressedPoints(t *testing.T) {
	db := newTestDB(t)
	tracks := repository.NewTrackRepository(db)
	edits := repository.NewEditRepository(db)
	events := repository.NewLifeEventRepository(db)
	stays := NewStayService(tracks, events, defaultStay(), zap.NewNop())

	seedPoint(t, tracks, "u1", "p1", 1000, 39.9, 116.4, nil)
	seedPoint(t, tracks, "u1", "p2", 1400, 39.9, 116.4, nil)

	require.NoError(t, edits.Create(&models.TrackEdit{
		ID:        "e1",
		UserID:    "u1",
		Type:      models.EditTypeDeleteRange,
		StartAt:   900,
		EndAt:     1500,
		CreatedAt: 2000,
	}))

	require.NoError(t, stays.RecomputeWindow("u1", 0, 10000))
	require.Empty(t, stayEvents(t, events, "u1"))
}

func TestStayEventIDDeterministic(t *testing.T) {
	a := StayEventID("u1", 1000, 1300)
	b := StayEventID("u1", 1000, 1300)
	require.Equal(t, a, b)
	require.NotEqual(t, a, StayEventID("u2", 1000, 1300))
	require.NotEqual(t, a, StayEventID("u1", 1000, 1301))
}
