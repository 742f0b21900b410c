package service

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jengzang/wayfarer-backend-go/internal/config"
	"github.com/jengzang/wayfarer-backend-go/internal/models"
	"github.com/jengzang/wayfarer-backend-go/internal/repository"
	"github.com/jengzang/wayfarer-backend-go/internal/spatial"
	"github.com/jengzang/wayfarer-backend-go/internal/timeutil"
)

// StayService detects stay intervals from a user's live points and records
// them as life events with deterministic identifiers.
type StayService struct {
	tracks *repository.TrackRepository
	events *repository.LifeEventRepository
	cfg    config.StayConfig
	logger *zap.Logger
}

// NewStayService creates a new stay service
func NewStayService(tracks *repository.TrackRepository, events *repository.LifeEventRepository, cfg config.StayConfig, logger *zap.Logger) *StayService {
	return &StayService{tracks: tracks, events: events, cfg: cfg, logger: logger}
}

// stayPayload is the structured payload attached to auto-detected stays.
type stayPayload struct {
	Source             string  `json:"source"`
	DistanceThresholdM float64 `json:"distance_threshold_m"`
	TimeThresholdS     float64 `json:"time_threshold_s"`
	PointCount         int     `json:"point_count"`
}

// RecomputeWindow detects stays among the user's live points in
// [startAt, endAt] and inserts them if absent. Deterministic event ids make
// recompute over overlapping windows commute; an existing event (including
// one the user has since edited) is never overwritten.
func (s *StayService) RecomputeWindow(userID string, startAt, endAt int64) error {
	points, err := s.tracks.QueryWindow(models.TrackWindowFilter{
		UserID:  userID,
		StartAt: startAt,
		EndAt:   endAt,
	})
	if err != nil {
		return fmt.Errorf("failed to load stay window: %w", err)
	}
	if len(points) < 2 {
		return nil
	}

	inserted := 0
	anchor := 0
	for anchor < len(points)-1 {
		// Extend the run while points remain within the radius of the anchor.
		last := anchor
		for last+1 < len(points) {
			next := points[last+1]
			d := spatial.Haversine(points[anchor].Latitude, points[anchor].Longitude,
				next.Latitude, next.Longitude)
			if d > s.cfg.DistanceThresholdM {
				break
			}
			last++
		}

		duration := float64(points[last].RecordedAt - points[anchor].RecordedAt)
		if last > anchor && duration >= s.cfg.TimeThresholdS {
			ok, err := s.emitStay(userID, points[anchor:last+1])
			if err != nil {
				return err
			}
			if ok {
				inserted++
			}
			anchor = last + 1
			continue
		}
		// Threshold not met: advance by exactly one so detection stays
		// stable under re-invocation.
		anchor++
	}

	if inserted > 0 {
		s.logger.Debug("stay window recomputed",
			zap.String("user_id", userID),
			zap.Int("inserted", inserted))
	}
	return nil
}

func (s *StayService) emitStay(userID string, run []models.TrackPoint) (bool, error) {
	startAt := run[0].RecordedAt
	endAt := run[len(run)-1].RecordedAt

	var sumLat, sumLon float64
	var sumGLat, sumGLon float64
	gcjCount := 0
	for _, p := range run {
		sumLat += p.Latitude
		sumLon += p.Longitude
		if p.GCJ02Latitude != nil && p.GCJ02Longitude != nil {
			sumGLat += *p.GCJ02Latitude
			sumGLon += *p.GCJ02Longitude
			gcjCount++
		}
	}
	lat := sumLat / float64(len(run))
	lon := sumLon / float64(len(run))

	payload, err := json.Marshal(stayPayload{
		Source:             "AUTO_STAY",
		DistanceThresholdM: s.cfg.DistanceThresholdM,
		TimeThresholdS:     s.cfg.TimeThresholdS,
		PointCount:         len(run),
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal stay payload: %w", err)
	}
	payloadStr := string(payload)

	now := time.Now().Unix()
	event := &models.LifeEvent{
		ID:          StayEventID(userID, startAt, endAt),
		UserID:      userID,
		EventType:   models.EventTypeStay,
		StartAt:     startAt,
		EndAt:       endAt,
		Latitude:    &lat,
		Longitude:   &lon,
		PayloadJSON: &payloadStr,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if gcjCount > 0 {
		gLat := sumGLat / float64(gcjCount)
		gLon := sumGLon / float64(gcjCount)
		event.GCJ02Latitude = &gLat
		event.GCJ02Longitude = &gLon
	}

	inserted, err := s.events.InsertIfAbsent(event)
	if err != nil {
		return false, fmt.Errorf("failed to insert stay event: %w", err)
	}
	return inserted, nil
}

// StayEventID derives the deterministic identifier for an auto-detected stay
// from its owning user and interval.
func StayEventID(userID string, startAt, endAt int64) string {
	name := fmt.Sprintf("%s|STAY|%s|%s", userID, timeutil.FormatZ(startAt), timeutil.FormatZ(endAt))
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
