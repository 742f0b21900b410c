package repository

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jengzang/wayfarer-backend-go/internal/database"
	"github.com/jengzang/wayfarer-backend-go/internal/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrationManager(db, zap.NewNop()).RunMigrations())
	return db
}

func testPoint(userID, clientID string, recordedAt int64, lat, lon float64) *models.TrackPoint {
	return &models.TrackPoint{
		UserID:        userID,
		ClientPointID: clientID,
		RecordedAt:    recordedAt,
		Latitude:      lat,
		Longitude:     lon,
		CreatedAt:     recordedAt,
		UpdatedAt:     recordedAt,
	}
}

func TestInsertBatchIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewTrackRepository(db)

	batch := []*models.TrackPoint{
		testPoint("u1", "p1", 1000, 39.9, 116.4),
		testPoint("u1", "p2", 1060, 39.901, 116.401),
	}
	require.NoError(t, repo.InsertBatchIdempotent(batch))
	require.NoError(t, repo.InsertBatchIdempotent(batch))

	count, err := repo.CountWindow("u1", 0, 2000)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestInsertBatchIdempotentAcrossUsers(t *testing.T) {
	db := newTestDB(t)
	repo := NewTrackRepository(db)

	// The same client key under a different user is a distinct point.
	require.NoError(t, repo.InsertOneIdempotent(testPoint("u1", "p1", 1000, 39.9, 116.4)))
	require.NoError(t, repo.InsertOneIdempotent(testPoint("u2", "p1", 1000, 39.9, 116.4)))

	c1, err := repo.CountWindow("u1", 0, 2000)
	require.NoError(t, err)
	c2, err := repo.CountWindow("u2", 0, 2000)
	require.NoError(t, err)
	require.EqualValues(t, 1, c1)
	require.EqualValues(t, 1, c2)
}

func TestQueryWindowAppliesOverlay(t *testing.T) {
	db := newTestDB(t)
	tracks := NewTrackRepository(db)
	edits := NewEditRepository(db)

	require.NoError(t, tracks.InsertBatchIdempotent([]*models.TrackPoint{
		testPoint("u1", "p1", 1000, 39.9, 116.4),
		testPoint("u1", "p2", 1500, 39.901, 116.401),
		testPoint("u1", "p3", 2000, 39.902, 116.402),
	}))

	require.NoError(t, edits.Create(&models.TrackEdit{
		ID:        "e1",
		UserID:    "u1",
		Type:      models.EditTypeDeleteRange,
		StartAt:   1200,
		EndAt:     1800,
		CreatedAt: 3000,
	}))

	points, err := tracks.QueryWindow(models.TrackWindowFilter{UserID: "u1", StartAt: 0, EndAt: 3000})
	require.NoError(t, err)
	require.Len(t, points, 2)
	require.Equal(t, "p1", points[0].ClientPointID)
	require.Equal(t, "p3", points[1].ClientPointID)

	// Cancelling the range brings the point back without re-ingestion.
	require.NoError(t, edits.Cancel("u1", "e1", 3100))

	points, err = tracks.QueryWindow(models.TrackWindowFilter{UserID: "u1", StartAt: 0, EndAt: 3000})
	require.NoError(t, err)
	require.Len(t, points, 3)
}

func TestOverlayScopedToUser(t *testing.T) {
	db := newTestDB(t)
	tracks := NewTrackRepository(db)
	edits := NewEditRepository(db)

	require.NoError(t, tracks.InsertOneIdempotent(testPoint("u1", "p1", 1500, 39.9, 116.4)))
	require.NoError(t, tracks.InsertOneIdempotent(testPoint("u2", "p1", 1500, 39.9, 116.4)))

	require.NoError(t, edits.Create(&models.TrackEdit{
		ID:        "e1",
		UserID:    "u1",
		Type:      models.EditTypeDeleteRange,
		StartAt:   1000,
		EndAt:     2000,
		CreatedAt: 3000,
	}))

	points, err := tracks.QueryWindow(models.TrackWindowFilter{UserID: "u2", StartAt: 0, EndAt: 3000})
	require.NoError(t, err)
	require.Len(t, points, 1)
}

func TestListWindowRawIgnoresOverlay(t *testing.T) {
	db := newTestDB(t)
	tracks := NewTrackRepository(db)
	edits := NewEditRepository(db)

	require.NoError(t, tracks.InsertOneIdempotent(testPoint("u1", "p1", 1500, 39.9, 116.4)))
	require.NoError(t, edits.Create(&models.TrackEdit{
		ID:        "e1",
		UserID:    "u1",
		Type:      models.EditTypeDeleteRange,
		StartAt:   1000,
		EndAt:     2000,
		CreatedAt: 3000,
	}))

	points, err := tracks.ListWindowRaw("u1", 0, 3000)
	require.NoError(t, err)
	require.Len(t, points, 1)
}

func TestPointBefore(t *testing.T) {
	db := newTestDB(t)
	tracks := NewTrackRepository(db)

	require.NoError(t, tracks.InsertBatchIdempotent([]*models.TrackPoint{
		testPoint("u1", "p1", 1000, 39.9, 116.4),
		testPoint("u1", "p2", 2000, 39.901, 116.401),
	}))

	prev, err := tracks.PointBefore("u1", 2000)
	require.NoError(t, err)
	require.NotNil(t, prev)
	require.Equal(t, "p1", prev.ClientPointID)

	prev, err = tracks.PointBefore("u1", 1000)
	require.NoError(t, err)
	require.Nil(t, prev)
}

func TestUpdateDirtyFlags(t *testing.T) {
	db := newTestDB(t)
	tracks := NewTrackRepository(db)

	require.NoError(t, tracks.InsertOneIdempotent(testPoint("u1", "p1", 1000, 39.9, 116.4)))
	points, err := tracks.ListWindowRaw("u1", 0, 2000)
	require.NoError(t, err)
	require.False(t, points[0].IsDirty)

	require.NoError(t, tracks.UpdateDirtyFlags([]DirtyFlagUpdate{{ID: points[0].ID, IsDirty: true}}))

	points, err = tracks.ListWindowRaw("u1", 0, 2000)
	require.NoError(t, err)
	require.True(t, points[0].IsDirty)
}
