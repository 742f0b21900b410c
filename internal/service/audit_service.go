package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jengzang/wayfarer-backend-go/internal/config"
	"github.com/jengzang/wayfarer-backend-go/internal/models"
	"github.com/jengzang/wayfarer-backend-go/internal/repository"
	"github.com/jengzang/wayfarer-backend-go/internal/spatial"
)

// AuditService recomputes the dirty flag over a time window using hard
// physical-plausibility rules.
type AuditService struct {
	tracks *repository.TrackRepository
	cfg    config.AntiCheatConfig
	logger *zap.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(tracks *repository.TrackRepository, cfg config.AntiCheatConfig, logger *zap.Logger) *AuditService {
	return &AuditService{tracks: tracks, cfg: cfg, logger: logger}
}

// RecomputeWindow re-derives the dirty flag for every point of the user in
// [startAt, endAt]. The point immediately preceding the window supplies
// context for the first point; without it the first point is never flagged.
// The pass works on the raw point stream so that suppressed ranges keep
// their verdicts, and writes all flags in one transaction.
func (s *AuditService) RecomputeWindow(userID string, startAt, endAt int64) error {
	points, err := s.tracks.ListWindowRaw(userID, startAt, endAt)
	if err != nil {
		return fmt.Errorf("failed to load audit window: %w", err)
	}
	if len(points) == 0 {
		return nil
	}

	prev, err := s.tracks.PointBefore(userID, points[0].RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to load audit context: %w", err)
	}

	updates := make([]repository.DirtyFlagUpdate, 0, len(points))
	for i := range points {
		cur := &points[i]
		dirty := false
		if prev != nil {
			dirty = s.isImplausible(prev, cur)
		}
		updates = append(updates, repository.DirtyFlagUpdate{ID: cur.ID, IsDirty: dirty})
		prev = cur
	}

	if err := s.tracks.UpdateDirtyFlags(updates); err != nil {
		return fmt.Errorf("failed to write audit verdicts: %w", err)
	}

	s.logger.Debug("audit window recomputed",
		zap.String("user_id", userID),
		zap.Int("points", len(points)))
	return nil
}

// isImplausible applies the hard rules to one adjacent pair.
func (s *AuditService) isImplausible(prev, cur *models.TrackPoint) bool {
	dt := float64(cur.RecordedAt - prev.RecordedAt)
	distance := spatial.Haversine(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude)

	// Shrink the distance by the combined GPS uncertainty plus a fudge
	// margin so ordinary jitter never trips the teleport rule.
	slack := accuracyOf(prev) + accuracyOf(cur) + s.cfg.AccuracyFudgeM
	effectiveDistance := distance - slack
	if effectiveDistance < 0 {
		effectiveDistance = 0
	}

	steps := float64(stepDeltaOf(cur))

	// No time may pass while steps accrue or position moves.
	if dt <= 0 {
		return steps > 0 || effectiveDistance > 0
	}

	if steps/dt > s.cfg.MaxStepRatePerSec {
		return true
	}
	if steps > 0 {
		stride := distance / steps
		if stride < s.cfg.MinStepLengthM || stride > s.cfg.MaxStepLengthM {
			return true
		}
	}
	return effectiveDistance/dt > s.cfg.TeleportSpeedMPS
}

func accuracyOf(p *models.TrackPoint) float64 {
	if p.Accuracy == nil {
		return 0
	}
	return *p.Accuracy
}

func stepDeltaOf(p *models.TrackPoint) int64 {
	if p.StepDelta == nil {
		return 0
	}
	return *p.StepDelta
}
