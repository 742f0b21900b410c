package handler

import (
	"github.com/jengzang/wayfarer-backend-go/internal/models"
	"github.com/jengzang/wayfarer-backend-go/internal/timeutil"
)

// Wire views render stored unix-second timestamps as RFC3339 UTC strings
// with a Z suffix. Storage stays integer; only the boundary formats.

type trackPointView struct {
	ID             int64    `json:"id"`
	ClientPointID  string   `json:"clientPointId"`
	RecordedAt     string   `json:"recordedAt"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	GCJ02Latitude  *float64 `json:"gcj02Latitude,omitempty"`
	GCJ02Longitude *float64 `json:"gcj02Longitude,omitempty"`
	Altitude       *float64 `json:"altitude,omitempty"`
	Accuracy       *float64 `json:"accuracy,omitempty"`
	Speed          *float64 `json:"speed,omitempty"`
	StepCount      *int64   `json:"stepCount,omitempty"`
	StepDelta      *int64   `json:"stepDelta,omitempty"`
	ActivityType   *int64   `json:"activityType,omitempty"`
	IsDirty        bool     `json:"isDirty"`
}

func toPointView(p *models.TrackPoint) trackPointView {
	return trackPointView{
		ID:             p.ID,
		ClientPointID:  p.ClientPointID,
		RecordedAt:     timeutil.FormatZ(p.RecordedAt),
		Latitude:       p.Latitude,
		Longitude:      p.Longitude,
		GCJ02Latitude:  p.GCJ02Latitude,
		GCJ02Longitude: p.GCJ02Longitude,
		Altitude:       p.Altitude,
		Accuracy:       p.Accuracy,
		Speed:          p.Speed,
		StepCount:      p.StepCount,
		StepDelta:      p.StepDelta,
		ActivityType:   p.ActivityType,
		IsDirty:        p.IsDirty,
	}
}

func toPointViews(points []models.TrackPoint) []trackPointView {
	out := make([]trackPointView, 0, len(points))
	for i := range points {
		out = append(out, toPointView(&points[i]))
	}
	return out
}

type editView struct {
	EditID     string  `json:"editId"`
	Type       string  `json:"type"`
	Start      string  `json:"start"`
	End        string  `json:"end"`
	CreatedAt  string  `json:"createdAt"`
	CanceledAt *string `json:"canceledAt,omitempty"`
	Note       *string `json:"note,omitempty"`
}

func toEditView(e *models.TrackEdit) editView {
	v := editView{
		EditID:    e.ID,
		Type:      e.Type,
		Start:     timeutil.FormatZ(e.StartAt),
		End:       timeutil.FormatZ(e.EndAt),
		CreatedAt: timeutil.FormatZ(e.CreatedAt),
		Note:      e.Note,
	}
	if e.CanceledAt != nil {
		s := timeutil.FormatZ(*e.CanceledAt)
		v.CanceledAt = &s
	}
	return v
}

type lifeEventView struct {
	ID             string   `json:"id"`
	EventType      string   `json:"eventType"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
	LocationName   *string  `json:"locationName,omitempty"`
	ManualNote     *string  `json:"manualNote,omitempty"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	GCJ02Latitude  *float64 `json:"gcj02Latitude,omitempty"`
	GCJ02Longitude *float64 `json:"gcj02Longitude,omitempty"`
	Payload        *string  `json:"payload,omitempty"`
	CreatedAt      string   `json:"createdAt"`
	UpdatedAt      string   `json:"updatedAt"`
}

func toLifeEventView(e *models.LifeEvent) lifeEventView {
	return lifeEventView{
		ID:             e.ID,
		EventType:      e.EventType,
		Start:          timeutil.FormatZ(e.StartAt),
		End:            timeutil.FormatZ(e.EndAt),
		LocationName:   e.LocationName,
		ManualNote:     e.ManualNote,
		Latitude:       e.Latitude,
		Longitude:      e.Longitude,
		GCJ02Latitude:  e.GCJ02Latitude,
		GCJ02Longitude: e.GCJ02Longitude,
		Payload:        e.PayloadJSON,
		CreatedAt:      timeutil.FormatZ(e.CreatedAt),
		UpdatedAt:      timeutil.FormatZ(e.UpdatedAt),
	}
}

type exportJobView struct {
	JobID          string  `json:"jobId"`
	State          string  `json:"state"`
	Format         string  `json:"format"`
	IncludeWeather bool    `json:"includeWeather"`
	Start          string  `json:"start"`
	End            string  `json:"end"`
	Timezone       string  `json:"timezone,omitempty"`
	ErrorCode      *string `json:"errorCode,omitempty"`
	ErrorMessage   *string `json:"errorMessage,omitempty"`
	CreatedAt      string  `json:"createdAt"`
	FinishedAt     *string `json:"finishedAt,omitempty"`
}

func toExportJobView(j *models.ExportJob) exportJobView {
	v := exportJobView{
		JobID:          j.ID,
		State:          j.State,
		Format:         j.Format,
		IncludeWeather: j.IncludeWeather,
		Start:          timeutil.FormatZ(j.StartAt),
		End:            timeutil.FormatZ(j.EndAt),
		Timezone:       j.Timezone,
		ErrorCode:      j.ErrorCode,
		ErrorMessage:   j.ErrorMessage,
		CreatedAt:      timeutil.FormatZ(j.CreatedAt),
	}
	if j.FinishedAt != nil {
		s := timeutil.FormatZ(*j.FinishedAt)
		v.FinishedAt = &s
	}
	return v
}
