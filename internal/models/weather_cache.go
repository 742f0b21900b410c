package models

// WeatherCacheEntry holds one provider payload keyed by (geohash5, hour_time).
// Entries are write-once: the first writer wins, concurrent writers no-op.
type WeatherCacheEntry struct {
	ID        int64  `json:"id" db:"id"`
	Geohash5  string `json:"geohash5" db:"geohash5"`
	HourTime  int64  `json:"hourTime" db:"hour_time"`
	Payload   string `json:"payload" db:"payload"`
	CreatedAt int64  `json:"createdAt" db:"created_at"`
}
