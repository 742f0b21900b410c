package models

// EventTypeStay tags auto-detected stay intervals.
const EventTypeStay = "STAY"

// LifeEvent is a derived or user-authored interval fact. Auto-generated STAY
// events carry a deterministic id so recompute is insert-if-absent.
type LifeEvent struct {
	ID        string `json:"id" db:"id"`
	UserID    string `json:"userId" db:"user_id"`
	EventType string `json:"eventType" db:"event_type"`
	StartAt   int64  `json:"startAt" db:"start_at"`
	EndAt     int64  `json:"endAt" db:"end_at"`

	LocationName *string `json:"locationName,omitempty" db:"location_name"`
	ManualNote   *string `json:"manualNote,omitempty" db:"manual_note"`

	Latitude       *float64 `json:"latitude,omitempty" db:"latitude"`
	Longitude      *float64 `json:"longitude,omitempty" db:"longitude"`
	GCJ02Latitude  *float64 `json:"gcj02Latitude,omitempty" db:"gcj02_latitude"`
	GCJ02Longitude *float64 `json:"gcj02Longitude,omitempty" db:"gcj02_longitude"`

	// Serialized JSON payload (point count, thresholds used, source).
	PayloadJSON *string `json:"payloadJson,omitempty" db:"payload_json"`

	CreatedAt int64 `json:"createdAt" db:"created_at"`
	UpdatedAt int64 `json:"updatedAt" db:"updated_at"`
}
