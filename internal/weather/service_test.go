package weather

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jengzang/wayfarer-backend-go/internal/database"
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

type fakeProvider struct {
	calls   int
	payload string
	err     error
}

func (f *fakeProvider) FetchHour(_ context.Context, lat, lon float64, hourUnix int64) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.payload, nil
}

func TestSnapshotCachesPerCellHour(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{payload: `{"temperature_2m":20}`}
	svc := NewService(repository.NewWeatherCacheRepository(db), provider, 5, zap.NewNop())

	payload, degraded := svc.Snapshot(context.Background(), 39.9042, 116.4074, 1748739623)
	require.False(t, degraded)
	require.Equal(t, `{"temperature_2m":20}`, payload)
	require.Equal(t, 1, provider.calls)

	// A nearby point in the same cell and hour never reaches the provider.
	payload, degraded = svc.Snapshot(context.Background(), 39.9043, 116.4075, 1748739999)
	require.False(t, degraded)
	require.Equal(t, `{"temperature_2m":20}`, payload)
	require.Equal(t, 1, provider.calls)

	// A different hour misses.
	_, degraded = svc.Snapshot(context.Background(), 39.9042, 116.4074, 1748739623+3600)
	require.False(t, degraded)
	require.Equal(t, 2, provider.calls)
}

func TestSnapshotDegradesOnProviderFailure(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{err: errors.New("boom")}
	svc := NewService(repository.NewWeatherCacheRepository(db), provider, 5, zap.NewNop())

	payload, degraded := svc.Snapshot(context.Background(), 39.9, 116.4, 1748739623)
	require.True(t, degraded)
	require.Empty(t, payload)

	// A degraded outcome is never cached; the next call retries.
	_, _ = svc.Snapshot(context.Background(), 39.9, 116.4, 1748739623)
	require.Equal(t, 2, provider.calls)
}
