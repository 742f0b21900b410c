package handler

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jengzang/wayfarer-backend-go/internal/config"
	"github.com/jengzang/wayfarer-backend-go/internal/database"
	"github.com/jengzang/wayfarer-backend-go/internal/export"
	"github.com/jengzang/wayfarer-backend-go/internal/middleware"
	"github.com/jengzang/wayfarer-backend-go/internal/models"
	"github.com/jengzang/wayfarer-backend-go/internal/repository"
	"github.com/jengzang/wayfarer-backend-go/internal/scheduler"
)

type captureScheduler struct{ tasks []scheduler.Task }

func (s *captureScheduler) Enqueue(task scheduler.Task) { s.tasks = append(s.tasks, task) }
func (s *captureScheduler) Stop()                       {}

func exportTestRouter(t *testing.T, userID string) (*gin.Engine, *sql.DB, *captureScheduler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.NewMigrationManager(db, zap.NewNop()).RunMigrations())

	sched := &captureScheduler{}
	svc := export.NewService(
		repository.NewExportJobRepository(db),
		repository.NewTrackRepository(db),
		nil,
		sched,
		config.ExportConfig{SyncThresholdPoints: 1000, MaxPoints: 100000, MaxConcurrentPerUser: 3},
		t.TempDir(),
		zap.NewNop(),
	)
	h := NewExportHandler(svc)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.UserIDKey, userID) })
	r.POST("/api/v1/export", h.Create)
	r.GET("/api/v1/export", h.CreateFromQuery)
	return r, db, sched
}

func seedExportPoint(t *testing.T, db *sql.DB, userID, clientID string, recordedAt int64, lat, lon float64) {
	t.Helper()
	require.NoError(t, repository.NewTrackRepository(db).InsertOneIdempotent(&models.TrackPoint{
		UserID:        userID,
		ClientPointID: clientID,
		RecordedAt:    recordedAt,
		Latitude:      lat,
		Longitude:     lon,
		CreatedAt:     recordedAt,
		UpdatedAt:     recordedAt,
	}))
}

func TestExportGetStreamsSmallWindow(t *testing.T) {
	r, db, _ := exportTestRouter(t, "u1")
	seedExportPoint(t, db, "u1", "p1", 1748736100, 39.9042, 116.4074)
	seedExportPoint(t, db, "u1", "p2", 1748736200, 39.9043, 116.4075)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/export?start=2025-06-01T00:00:00Z&end=2025-06-01T01:00:00Z&format=csv", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Header().Get("Content-Disposition"), "tracks_")
	require.Contains(t, rr.Body.String(), "39.904")
}

func TestExportGetQueuesWeatherJob(t *testing.T) {
	r, db, sched := exportTestRouter(t, "u1")
	seedExportPoint(t, db, "u1", "p1", 1748736100, 39.9042, 116.4074)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/export?start=2025-06-01T00:00:00Z&end=2025-06-01T01:00:00Z&format=gpx&includeWeather=true", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Contains(t, rr.Body.String(), models.ExportStateCreated)
	require.Len(t, sched.tasks, 1)
}

func TestExportGetRejectsUnsupportedFormat(t *testing.T) {
	r, _, _ := exportTestRouter(t, "u1")

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/export?start=2025-06-01T00:00:00Z&end=2025-06-01T01:00:00Z&format=shapefile", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "EXPORT_FORMAT_UNSUPPORTED")
}

func TestExportGetAndPostShareSemantics(t *testing.T) {
	r, db, _ := exportTestRouter(t, "u1")
	seedExportPoint(t, db, "u1", "p1", 1748736100, 39.9042, 116.4074)

	getReq := httptest.NewRequest(http.MethodGet,
		"/api/v1/export?start=2025-06-01T00:00:00Z&end=2025-06-01T01:00:00Z&format=geojson", nil)
	getRR := httptest.NewRecorder()
	r.ServeHTTP(getRR, getReq)

	body := `{"start":"2025-06-01T00:00:00Z","end":"2025-06-01T01:00:00Z","format":"geojson"}`
	postReq := httptest.NewRequest(http.MethodPost, "/api/v1/export", strings.NewReader(body))
	postReq.Header.Set("Content-Type", "application/json")
	postRR := httptest.NewRecorder()
	r.ServeHTTP(postRR, postReq)

	require.Equal(t, http.StatusOK, getRR.Code)
	require.Equal(t, postRR.Code, getRR.Code)
	require.Equal(t, postRR.Body.String(), getRR.Body.String())
}
