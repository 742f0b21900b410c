package repository

import (
	"database/sql"
	"fmt"

	"github.com/jengzang/wayfarer-backend-go/internal/models"
)

// WeatherCacheRepository handles database operations for cached weather
// snapshots keyed by (geohash5, hour_time).
type WeatherCacheRepository struct {
	db *sql.DB
}

// NewWeatherCacheRepository creates a new weather cache repository
func NewWeatherCacheRepository(db *sql.DB) *WeatherCacheRepository {
	return &WeatherCacheRepository{db: db}
}

// Get returns the cached entry for a cell/hour, or nil on a miss.
func (r *WeatherCacheRepository) Get(geohash5 string, hourTime int64) (*models.WeatherCacheEntry, error) {
	query := `SELECT id, geohash5, hour_time, payload, created_at
		FROM weather_cache WHERE geohash5 = ? AND hour_time = ?`

	var e models.WeatherCacheEntry
	err := r.db.QueryRow(query, geohash5, hourTime).Scan(&e.ID, &e.Geohash5, &e.HourTime, &e.Payload, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get weather cache entry: %w", err)
	}
	return &e, nil
}

// InsertIfAbsent writes through to the cache; the first writer wins and a
// losing concurrent writer no-ops instead of erroring.
func (r *WeatherCacheRepository) InsertIfAbsent(e *models.WeatherCacheEntry) (bool, error) {
	query := `INSERT OR IGNORE INTO weather_cache (geohash5, hour_time, payload, created_at)
		VALUES (?, ?, ?, ?)`

	res, err := r.db.Exec(query, e.Geohash5, e.HourTime, e.Payload, e.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert weather cache entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return n > 0, nil
}
