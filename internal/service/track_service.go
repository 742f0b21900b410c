package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jengzang/wayfarer-backend-go/internal/apperr"
	"github.com/jengzang/wayfarer-backend-go/internal/config"
	"github.com/jengzang/wayfarer-backend-go/internal/models"
	"github.com/jengzang/wayfarer-backend-go/internal/repository"
	"github.com/jengzang/wayfarer-backend-go/internal/scheduler"
	"github.com/jengzang/wayfarer-backend-go/internal/timeutil"
)

// Batch item rejection reason codes.
const (
	ReasonItemInvalid = "TRACK_BATCH_ITEM_INVALID"
	ReasonDBError     = "TRACK_BATCH_DB_ERROR"
)

var errQueryInvalidRange = apperr.New("TRACK_QUERY_INVALID_RANGE", "end must not precede start", http.StatusBadRequest)

// PointInput is one candidate point from a batch upload. Every item is
// independently valid or invalid; a bad item never aborts the batch.
type PointInput struct {
	ClientPointID  string   `json:"clientPointId"`
	RecordedAt     string   `json:"recordedAt"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	GCJ02Latitude  *float64 `json:"gcj02Latitude"`
	GCJ02Longitude *float64 `json:"gcj02Longitude"`
	Altitude       *float64 `json:"altitude"`
	Accuracy       *float64 `json:"accuracy"`
	Speed          *float64 `json:"speed"`
	StepCount      *int64   `json:"stepCount"`
	StepDelta      *int64   `json:"stepDelta"`
	ActivityType   *int64   `json:"activityType"`
}

// TrackService handles batch ingestion and the point query surface.
type TrackService struct {
	tracks *repository.TrackRepository
	audit  *AuditService
	stays  *StayService
	sched  scheduler.Scheduler
	cfg    config.IngestConfig
	logger *zap.Logger
}

// NewTrackService creates a new track service
func NewTrackService(tracks *repository.TrackRepository, audit *AuditService, stays *StayService,
	sched scheduler.Scheduler, cfg config.IngestConfig, logger *zap.Logger) *TrackService {
	return &TrackService{
		tracks: tracks,
		audit:  audit,
		stays:  stays,
		sched:  sched,
		cfg:    cfg,
		logger: logger,
	}
}

// IngestBatch validates and idempotently persists a batch of points, then
// best-effort schedules the audit and stay passes over the accepted span.
// A duplicate (user, clientPointId) is accepted as a success, never an error.
func (s *TrackService) IngestBatch(userID string, items []PointInput) (*models.BatchResult, error) {
	result := &models.BatchResult{
		AcceptedIDs: []string{},
		Rejected:    []models.RejectedPoint{},
	}

	now := time.Now().Unix()
	var valid []*models.TrackPoint
	for _, item := range items {
		point, reason := s.parseItem(userID, item, now)
		if reason != "" {
			result.Rejected = append(result.Rejected, models.RejectedPoint{
				ClientPointID: item.ClientPointID,
				ReasonCode:    ReasonItemInvalid,
				Message:       reason,
			})
			continue
		}
		valid = append(valid, point)
	}

	if len(valid) == 0 {
		return result, nil
	}

	accepted := valid
	if err := s.tracks.InsertBatchIdempotent(valid); err != nil {
		// The bulk transaction hit a non-conflict storage error. Retry each
		// point in isolation so one hostile row cannot sink the batch.
		s.logger.Warn("bulk insert failed, falling back to per-point inserts",
			zap.String("user_id", userID), zap.Error(err))
		accepted = accepted[:0]
		for _, p := range valid {
			if err := s.tracks.InsertOneIdempotent(p); err != nil {
				result.Rejected = append(result.Rejected, models.RejectedPoint{
					ClientPointID: p.ClientPointID,
					ReasonCode:    ReasonDBError,
					Message:       "failed to persist point",
				})
				continue
			}
			accepted = append(accepted, p)
		}
	}

	for _, p := range accepted {
		result.AcceptedIDs = append(result.AcceptedIDs, p.ClientPointID)
	}

	s.scheduleRecompute(userID, accepted)
	return result, nil
}

// scheduleRecompute enqueues the audit and stay passes over the span of the
// accepted points. Scheduling failures are logged by the scheduler, never
// surfaced to the upload response.
func (s *TrackService) scheduleRecompute(userID string, accepted []*models.TrackPoint) {
	if len(accepted) == 0 {
		return
	}
	minAt, maxAt := accepted[0].RecordedAt, accepted[0].RecordedAt
	for _, p := range accepted[1:] {
		if p.RecordedAt < minAt {
			minAt = p.RecordedAt
		}
		if p.RecordedAt > maxAt {
			maxAt = p.RecordedAt
		}
	}

	s.sched.Enqueue(scheduler.Task{
		Name: "audit_recompute",
		Run: func() error {
			return s.audit.RecomputeWindow(userID, minAt, maxAt)
		},
	})
	s.sched.Enqueue(scheduler.Task{
		Name: "stay_recompute",
		Run: func() error {
			return s.stays.RecomputeWindow(userID, minAt, maxAt)
		},
	})
}

func (s *TrackService) parseItem(userID string, item PointInput, now int64) (*models.TrackPoint, string) {
	if item.ClientPointID == "" {
		return nil, "clientPointId is required"
	}
	if item.RecordedAt == "" {
		return nil, "recordedAt is required"
	}
	recordedAt, err := timeutil.Parse(item.RecordedAt)
	if err != nil {
		return nil, fmt.Sprintf("recordedAt is not a valid timestamp: %q", item.RecordedAt)
	}
	if item.Latitude == nil || item.Longitude == nil {
		return nil, "latitude and longitude are required"
	}
	lat, lon := *item.Latitude, *item.Longitude
	if lat < -90 || lat > 90 {
		return nil, fmt.Sprintf("latitude out of range: %v", lat)
	}
	if lon < -180 || lon > 180 {
		return nil, fmt.Sprintf("longitude out of range: %v", lon)
	}
	if item.Accuracy != nil && *item.Accuracy <= 0 {
		return nil, "accuracy must be positive"
	}
	if item.StepCount != nil && *item.StepCount < 0 {
		return nil, "stepCount must not be negative"
	}
	if item.StepDelta != nil && *item.StepDelta < 0 {
		return nil, "stepDelta must not be negative"
	}

	geomHash := GeomHash(lat, lon)
	return &models.TrackPoint{
		UserID:         userID,
		ClientPointID:  item.ClientPointID,
		RecordedAt:     recordedAt,
		Latitude:       lat,
		Longitude:      lon,
		GCJ02Latitude:  item.GCJ02Latitude,
		GCJ02Longitude: item.GCJ02Longitude,
		Altitude:       item.Altitude,
		Accuracy:       item.Accuracy,
		Speed:          item.Speed,
		StepCount:      item.StepCount,
		StepDelta:      item.StepDelta,
		ActivityType:   item.ActivityType,
		GeomHash:       &geomHash,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, ""
}

// QueryWindow returns the user's live points in [startAt, endAt] ascending,
// clamped to the configured page size.
func (s *TrackService) QueryWindow(userID string, startAt, endAt int64, limit, offset int) ([]models.TrackPoint, error) {
	if endAt < startAt {
		return nil, errQueryInvalidRange
	}
	if limit <= 0 {
		limit = s.cfg.QueryDefaultLimit
	}
	if limit > s.cfg.QueryMaxLimit {
		limit = s.cfg.QueryMaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	points, err := s.tracks.QueryWindow(models.TrackWindowFilter{
		UserID:  userID,
		StartAt: startAt,
		EndAt:   endAt,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return nil, err
	}
	if points == nil {
		points = []models.TrackPoint{}
	}
	return points, nil
}

// GeomHash is a weak dedupe helper: a stable hash of the coordinates rounded
// to ~0.1 m so near-identical fixes collide.
func GeomHash(lat, lon float64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%.6f,%.6f", lat, lon)))
	return hex.EncodeToString(sum[:])
}
