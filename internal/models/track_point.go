package models

// TrackPoint represents one GPS/sensor sample owned by a user.
// recorded_at and the other timestamps are unix seconds (UTC).
type TrackPoint struct {
	ID            int64  `json:"id" db:"id"`
	UserID        string `json:"userId" db:"user_id"`
	ClientPointID string `json:"clientPointId" db:"client_point_id"`
	RecordedAt    int64  `json:"recordedAt" db:"recorded_at"`

	// WGS84 required.
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`

	// Optional GCJ-02 (for AMap rendering consistency).
	GCJ02Latitude  *float64 `json:"gcj02Latitude,omitempty" db:"gcj02_latitude"`
	GCJ02Longitude *float64 `json:"gcj02Longitude,omitempty" db:"gcj02_longitude"`

	Altitude *float64 `json:"altitude,omitempty" db:"altitude"`
	Accuracy *float64 `json:"accuracy,omitempty" db:"accuracy"`
	Speed    *float64 `json:"speed,omitempty" db:"speed"`

	StepCount    *int64 `json:"stepCount,omitempty" db:"step_count"`
	StepDelta    *int64 `json:"stepDelta,omitempty" db:"step_delta"`
	ActivityType *int64 `json:"activityType,omitempty" db:"activity_type"`

	// Set by the anti-cheat auditor only.
	IsDirty bool `json:"isDirty" db:"is_dirty"`

	// Serialized weather payload, attached during weather-enriched exports.
	WeatherSnapshot *string `json:"weatherSnapshot,omitempty" db:"weather_snapshot"`

	// Weak dedupe helper: stable hash of the rounded coordinates.
	GeomHash *string `json:"geomHash,omitempty" db:"geom_hash"`

	CreatedAt int64 `json:"createdAt" db:"created_at"`
	UpdatedAt int64 `json:"updatedAt" db:"updated_at"`
}

// TrackWindowFilter selects a user's points inside an inclusive time window.
type TrackWindowFilter struct {
	UserID  string
	StartAt int64
	EndAt   int64
	Limit   int
	Offset  int
}

// RejectedPoint reports a batch item that failed validation or persistence.
type RejectedPoint struct {
	ClientPointID string `json:"clientPointId,omitempty"`
	ReasonCode    string `json:"reasonCode"`
	Message       string `json:"message"`
}

// BatchResult is the outcome of one idempotent batch upload.
type BatchResult struct {
	AcceptedIDs []string        `json:"acceptedIds"`
	Rejected    []RejectedPoint `json:"rejected"`
}
