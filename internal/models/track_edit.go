package models

// EditTypeDeleteRange is the only supported edit type: a soft-delete overlay
// that suppresses points inside [StartAt, EndAt] without deleting rows.
const EditTypeDeleteRange = "DELETE_RANGE"

// TrackEdit is a user-declared invalid range. While CanceledAt is nil every
// reader excludes points whose recorded_at falls inside the range.
type TrackEdit struct {
	ID         string `json:"editId" db:"id"`
	UserID     string `json:"userId" db:"user_id"`
	Type       string `json:"type" db:"type"`
	StartAt    int64  `json:"start" db:"start_at"`
	EndAt      int64  `json:"end" db:"end_at"`
	CreatedAt  int64  `json:"createdAt" db:"created_at"`
	CanceledAt *int64 `json:"canceledAt,omitempty" db:"canceled_at"`
	Note       *string `json:"note,omitempty" db:"note"`
}
