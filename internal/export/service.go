package export

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jengzang/wayfarer-backend-go/internal/apperr"
	"github.com/jengzang/wayfarer-backend-go/internal/config"
	"github.com/jengzang/wayfarer-backend-go/internal/models"
	"github.com/jengzang/wayfarer-backend-go/internal/repository"
	"github.com/jengzang/wayfarer-backend-go/internal/scheduler"
	"github.com/jengzang/wayfarer-backend-go/internal/timeutil"
)

// Job error codes surfaced through job status.
const (
	CodeTooManyPoints   = "EXPORT_TOO_MANY_POINTS"
	CodeWeatherDegraded = "EXPORT_WEATHER_DEGRADED"
	CodeRenderFailed    = "EXPORT_RENDER_FAILED"
)

var (
	errInvalidRange      = apperr.New("EXPORT_INVALID_RANGE", "start must precede end", http.StatusBadRequest)
	errJobNotFound       = apperr.New("EXPORT_JOB_NOT_FOUND", "export job not found", http.StatusNotFound)
	errJobNotReady       = apperr.New("EXPORT_JOB_NOT_READY", "export job has no downloadable artifact", http.StatusConflict)
	errJobNotCancellable = apperr.New("EXPORT_JOB_NOT_CANCELABLE", "export job already finished", http.StatusConflict)
	errRateLimited       = apperr.New("RATE_LIMITED", "too many concurrent export jobs", http.StatusTooManyRequests)
)

// WeatherSource supplies best-effort weather snapshots during rendering.
type WeatherSource interface {
	Snapshot(ctx context.Context, lat, lon float64, at int64) (payload string, degraded bool)
}

// CreateRequest is a validated export creation request.
type CreateRequest struct {
	StartAt        int64
	EndAt          int64
	Format         string
	IncludeWeather bool
	Timezone       string
}

// CreateResult is either a persisted async job or an inline sync payload.
type CreateResult struct {
	Job *models.ExportJob

	SyncPayload  []byte
	SyncFilename string
	SyncFormat   string
}

// Service drives export jobs through their state machine.
type Service struct {
	jobs    *repository.ExportJobRepository
	tracks  *repository.TrackRepository
	weather WeatherSource
	sched   scheduler.Scheduler
	cfg     config.ExportConfig
	baseDir string
	logger  *zap.Logger
}

// NewService creates a new export service
func NewService(jobs *repository.ExportJobRepository, tracks *repository.TrackRepository,
	weather WeatherSource, sched scheduler.Scheduler, cfg config.ExportConfig,
	baseDir string, logger *zap.Logger) *Service {
	return &Service{
		jobs:    jobs,
		tracks:  tracks,
		weather: weather,
		sched:   sched,
		cfg:     cfg,
		baseDir: baseDir,
		logger:  logger,
	}
}

// Create validates the request and either renders a small non-weather export
// inline or persists a job and schedules its run.
func (s *Service) Create(userID string, req CreateRequest) (*CreateResult, error) {
	if req.StartAt >= req.EndAt {
		return nil, errInvalidRange
	}
	format, err := NormalizeFormat(req.Format)
	if err != nil {
		return nil, err
	}

	// Sync fast path: small non-weather requests stream straight back
	// without touching the job table.
	if !req.IncludeWeather {
		count, err := s.tracks.CountWindow(userID, req.StartAt, req.EndAt)
		if err != nil {
			return nil, fmt.Errorf("failed to count export points: %w", err)
		}
		if count <= int64(s.cfg.SyncThresholdPoints) {
			points, err := s.loadPoints(userID, req.StartAt, req.EndAt)
			if err != nil {
				return nil, err
			}
			payload, err := Render(format, points, timeutil.Location(req.Timezone))
			if err != nil {
				return nil, err
			}
			return &CreateResult{
				SyncPayload:  payload,
				SyncFilename: artifactName(req.StartAt, req.EndAt, format),
				SyncFormat:   format,
			}, nil
		}
	}

	active, err := s.jobs.CountActive(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count active jobs: %w", err)
	}
	if active >= s.cfg.MaxConcurrentPerUser {
		return nil, errRateLimited
	}

	now := time.Now().Unix()
	job := &models.ExportJob{
		ID:             uuid.NewString(),
		UserID:         userID,
		State:          models.ExportStateCreated,
		Format:         format,
		IncludeWeather: req.IncludeWeather,
		StartAt:        req.StartAt,
		EndAt:          req.EndAt,
		Timezone:       req.Timezone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.jobs.Create(job); err != nil {
		return nil, err
	}

	jobID := job.ID
	s.sched.Enqueue(scheduler.Task{
		Name: "export_run",
		Run: func() error {
			return s.Run(jobID)
		},
	})
	return &CreateResult{Job: job}, nil
}

// Run executes one job: RUNNING, size check, load, optional enrichment,
// render, artifact write, then a finalize that re-checks for a concurrent
// cancellation. A cancellation landing mid-render wins and the artifact is
// discarded.
func (s *Service) Run(jobID string) error {
	job, err := s.jobs.GetByID(jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return nil
	}
	started, err := s.jobs.MarkRunning(jobID, time.Now().Unix())
	if err != nil {
		return err
	}
	if !started {
		// Cancelled before a worker picked it up.
		return nil
	}

	count, err := s.tracks.CountWindow(job.UserID, job.StartAt, job.EndAt)
	if err != nil {
		return err
	}
	if count > int64(s.cfg.MaxPoints) {
		msg := fmt.Sprintf("window holds %d points, limit is %d", count, s.cfg.MaxPoints)
		return s.fail(jobID, CodeTooManyPoints, msg)
	}

	points, err := s.loadPoints(job.UserID, job.StartAt, job.EndAt)
	if err != nil {
		return err
	}

	degraded := false
	if job.IncludeWeather {
		ctx := context.Background()
		for i := range points {
			p := &points[i]
			payload, miss := s.weather.Snapshot(ctx, p.Latitude, p.Longitude, p.RecordedAt)
			if miss {
				degraded = true
				continue
			}
			p.WeatherSnapshot = &payload
		}
	}

	payload, err := Render(job.Format, points, timeutil.Location(job.Timezone))
	if err != nil {
		return s.fail(jobID, CodeRenderFailed, "failed to render export payload")
	}

	artifactPath := filepath.Join(s.baseDir, job.UserID, jobID+"."+Extension(job.Format))
	if err := os.MkdirAll(filepath.Dir(artifactPath), 0o755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if err := os.WriteFile(artifactPath, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	state := models.ExportStateSucceeded
	var errCode, errMsg *string
	if degraded {
		state = models.ExportStatePartial
		code := CodeWeatherDegraded
		msg := "weather enrichment unavailable for some points"
		errCode, errMsg = &code, &msg
	}

	finalized, err := s.jobs.FinalizeFromRunning(jobID, state, &artifactPath, errCode, errMsg, time.Now().Unix())
	if err != nil {
		return err
	}
	if !finalized {
		// A cancellation raced the render; it wins.
		if rmErr := os.Remove(artifactPath); rmErr != nil && !os.IsNotExist(rmErr) {
			s.logger.Warn("failed to remove orphaned artifact",
				zap.String("job_id", jobID), zap.Error(rmErr))
		}
		return nil
	}

	s.logger.Info("export job finished",
		zap.String("job_id", jobID),
		zap.String("state", state),
		zap.Int("points", len(points)))
	return nil
}

func (s *Service) fail(jobID, code, message string) error {
	_, err := s.jobs.FinalizeFromRunning(jobID, models.ExportStateFailed, nil, &code, &message, time.Now().Unix())
	return err
}

func (s *Service) loadPoints(userID string, startAt, endAt int64) ([]models.TrackPoint, error) {
	points, err := s.tracks.QueryWindow(models.TrackWindowFilter{
		UserID:  userID,
		StartAt: startAt,
		EndAt:   endAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load export points: %w", err)
	}
	return points, nil
}

// Get returns a job owned by the user.
func (s *Service) Get(userID, id string) (*models.ExportJob, error) {
	job, err := s.jobs.Get(userID, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, errJobNotFound
	}
	return job, nil
}

// Cancel stops a CREATED or RUNNING job and best-effort deletes any artifact
// already on disk.
func (s *Service) Cancel(userID, id string) (*models.ExportJob, error) {
	job, err := s.jobs.Get(userID, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, errJobNotFound
	}

	canceled, err := s.jobs.Cancel(userID, id, time.Now().Unix())
	if err != nil {
		return nil, err
	}
	if !canceled {
		return nil, errJobNotCancellable
	}

	if job.ArtifactPath != nil {
		if rmErr := os.Remove(*job.ArtifactPath); rmErr != nil && !os.IsNotExist(rmErr) {
			s.logger.Warn("failed to remove cancelled artifact",
				zap.String("job_id", id), zap.Error(rmErr))
		}
	}
	return s.jobs.Get(userID, id)
}

// Download resolves the artifact of a finished job. Only SUCCEEDED and
// PARTIAL jobs whose artifact still exists are downloadable.
func (s *Service) Download(userID, id string) (path, filename string, err error) {
	job, err := s.jobs.Get(userID, id)
	if err != nil {
		return "", "", err
	}
	if job == nil {
		return "", "", errJobNotFound
	}
	if job.State != models.ExportStateSucceeded && job.State != models.ExportStatePartial {
		return "", "", errJobNotReady
	}
	if job.ArtifactPath == nil {
		return "", "", errJobNotReady
	}
	if _, statErr := os.Stat(*job.ArtifactPath); statErr != nil {
		return "", "", errJobNotReady
	}
	return *job.ArtifactPath, artifactName(job.StartAt, job.EndAt, job.Format), nil
}

func artifactName(startAt, endAt int64, format string) string {
	return fmt.Sprintf("tracks_%s_%s.%s",
		time.Unix(startAt, 0).UTC().Format("20060102T150405Z"),
		time.Unix(endAt, 0).UTC().Format("20060102T150405Z"),
		Extension(format))
}
