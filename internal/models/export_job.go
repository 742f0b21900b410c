package models

// Export job states.
const (
	ExportStateCreated   = "CREATED"
	ExportStateRunning   = "RUNNING"
	ExportStateSucceeded = "SUCCEEDED"
	ExportStatePartial   = "PARTIAL"
	ExportStateFailed    = "FAILED"
	ExportStateCanceled  = "CANCELED"
)

// Canonical export formats.
const (
	ExportFormatCSV     = "CSV"
	ExportFormatGPX     = "GPX"
	ExportFormatGeoJSON = "GeoJSON"
	ExportFormatKML     = "KML"
)

// ExportJob tracks one asynchronous export through its state machine:
// CREATED -> RUNNING -> {SUCCEEDED, PARTIAL, FAILED}; CREATED|RUNNING -> CANCELED.
type ExportJob struct {
	ID             string `json:"jobId" db:"id"`
	UserID         string `json:"userId" db:"user_id"`
	State          string `json:"state" db:"state"`
	Format         string `json:"format" db:"format"`
	IncludeWeather bool   `json:"includeWeather" db:"include_weather"`

	StartAt  int64  `json:"startAt" db:"start_at"`
	EndAt    int64  `json:"endAt" db:"end_at"`
	Timezone string `json:"timezone" db:"timezone"`

	ArtifactPath *string `json:"artifactPath,omitempty" db:"artifact_path"`
	ErrorCode    *string `json:"errorCode,omitempty" db:"error_code"`
	ErrorMessage *string `json:"errorMessage,omitempty" db:"error_message"`

	CreatedAt  int64  `json:"createdAt" db:"created_at"`
	UpdatedAt  int64  `json:"updatedAt" db:"updated_at"`
	FinishedAt *int64 `json:"finishedAt,omitempty" db:"finished_at"`
}

// IsTerminal reports whether the job can no longer change state.
func (j *ExportJob) IsTerminal() bool {
	switch j.State {
	case ExportStateSucceeded, ExportStatePartial, ExportStateFailed, ExportStateCanceled:
		return true
	}
	return false
}
