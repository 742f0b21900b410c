package service

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jengzang/wayfarer-backend-go/internal/config"
	"github.com/jengzang/wayfarer-backend-go/internal/database"
	"github.com/jengzang/wayfarer-backend-go/internal/models"
	"github.com/jengzang/wayfarer-backend-go/internal/repository"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrationManager(db, zap.NewNop()).RunMigrations())
	return db
}

func defaultAntiCheat() config.AntiCheatConfig {
	return config.AntiCheatConfig{
		MaxStepRatePerSec: 4.0,
		MinStepLengthM:    0.3,
		MaxStepLengthM:    2.5,
		TeleportSpeedMPS:  120.0,
		AccuracyFudgeM:    5.0,
	}
}

func defaultStay() config.StayConfig {
	return config.StayConfig{
		DistanceThresholdM: 200.0,
		TimeThresholdS:     300.0,
	}
}

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func seedPoint(t *testing.T, repo *repository.TrackRepository, userID, clientID string,
	recordedAt int64, lat, lon float64, stepDelta *int64) {
	t.Helper()
	require.NoError(t, repo.InsertOneIdempotent(&models.TrackPoint{
		UserID:        userID,
		ClientPointID: clientID,
		RecordedAt:    recordedAt,
		Latitude:      lat,
		Longitude:     lon,
		StepDelta:     stepDelta,
		CreatedAt:     recordedAt,
		UpdatedAt:     recordedAt,
	}))
}

// lonOffset converts meters east at the equator into degrees of longitude.
func lonOffset(meters float64) float64 {
	return meters / 111320.0
}
