package weather

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jengzang/wayfarer-backend-go/internal/models"
	"github.com/jengzang/wayfarer-backend-go/internal/repository"
	"github.com/jengzang/wayfarer-backend-go/internal/spatial"
	"github.com/jengzang/wayfarer-backend-go/internal/timeutil"
)

// Service resolves (lat, lon, time) to a cached snapshot, fetching from the
// provider at most once per grid cell and hour.
type Service struct {
	cache     *repository.WeatherCacheRepository
	provider  Provider
	precision int
	logger    *zap.Logger
}

// NewService creates a new weather service
func NewService(cache *repository.WeatherCacheRepository, provider Provider, precision int, logger *zap.Logger) *Service {
	return &Service{
		cache:     cache,
		provider:  provider,
		precision: precision,
		logger:    logger,
	}
}

// Snapshot returns the weather payload covering the given location and time.
// Every failure mode — provider exhaustion, timeout, malformed response,
// even a cache read error — folds into (empty, degraded=true); callers treat
// degraded as a soft failure, never a hard error.
func (s *Service) Snapshot(ctx context.Context, lat, lon float64, at int64) (string, bool) {
	hour := timeutil.FloorToHour(at)
	cell := spatial.Encode(lat, lon, s.precision)

	cached, err := s.cache.Get(cell, hour)
	if err != nil {
		s.logger.Warn("weather cache read failed",
			zap.String("cell", cell), zap.Error(err))
		return "", true
	}
	if cached != nil {
		return cached.Payload, false
	}

	// Fetch at the cell's center so every point in the cell shares one
	// provider call.
	centerLat, centerLon := spatial.DecodeCenter(cell)
	payload, err := s.provider.FetchHour(ctx, centerLat, centerLon, hour)
	if err != nil {
		s.logger.Warn("weather fetch degraded",
			zap.String("cell", cell),
			zap.Int64("hour", hour),
			zap.Error(err))
		return "", true
	}

	// Write-through; a losing concurrent writer keeps its own fetch and
	// discards nothing the caller can observe.
	_, err = s.cache.InsertIfAbsent(&models.WeatherCacheEntry{
		Geohash5:  cell,
		HourTime:  hour,
		Payload:   payload,
		CreatedAt: time.Now().Unix(),
	})
	if err != nil {
		s.logger.Warn("weather cache write failed",
			zap.String("cell", cell), zap.Error(err))
	}
	return payload, false
}
