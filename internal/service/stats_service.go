package service

import (
	"net/http"
	"time"

	"github.com/jengzang/wayfarer-backend-go/internal/apperr"
	"github.com/jengzang/wayfarer-backend-go/internal/repository"
	"github.com/jengzang/wayfarer-backend-go/internal/timeutil"
)

var errStatsInvalidRange = apperr.New("STATS_STEPS_INVALID_RANGE", "start must precede end", http.StatusBadRequest)

// DailySteps is one zero-filled day bucket.
type DailySteps struct {
	Date  string `json:"date"`
	Steps int64  `json:"steps"`
}

// HourlySteps is one zero-filled hour bucket.
type HourlySteps struct {
	Hour  string `json:"hour"`
	Steps int64  `json:"steps"`
}

// StatsService aggregates step deltas over the user's live points. Points
// suppressed by an active edit range never contribute to a bucket.
type StatsService struct {
	tracks *repository.TrackRepository
}

// NewStatsService creates a new stats service
func NewStatsService(tracks *repository.TrackRepository) *StatsService {
	return &StatsService{tracks: tracks}
}

// Daily sums step deltas per calendar day in the given timezone, zero-filling
// days without data.
func (s *StatsService) Daily(userID string, startAt, endAt int64, tzName string) ([]DailySteps, error) {
	if startAt >= endAt {
		return nil, errStatsInvalidRange
	}
	loc := timeutil.Location(tzName)

	rows, err := s.tracks.StepRowsWindow(userID, startAt, endAt)
	if err != nil {
		return nil, err
	}

	sums := make(map[string]int64)
	for _, r := range rows {
		key := time.Unix(r.RecordedAt, 0).In(loc).Format("2006-01-02")
		sums[key] += r.StepDelta
	}

	var out []DailySteps
	day := time.Unix(startAt, 0).In(loc)
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	end := time.Unix(endAt, 0).In(loc)
	for !day.After(end) {
		key := day.Format("2006-01-02")
		out = append(out, DailySteps{Date: key, Steps: sums[key]})
		day = day.AddDate(0, 0, 1)
	}
	return out, nil
}

// Hourly sums step deltas per clock hour in the given timezone, zero-filling
// hours without data.
func (s *StatsService) Hourly(userID string, startAt, endAt int64, tzName string) ([]HourlySteps, error) {
	if startAt >= endAt {
		return nil, errStatsInvalidRange
	}
	loc := timeutil.Location(tzName)

	rows, err := s.tracks.StepRowsWindow(userID, startAt, endAt)
	if err != nil {
		return nil, err
	}

	sums := make(map[string]int64)
	for _, r := range rows {
		key := time.Unix(r.RecordedAt, 0).In(loc).Format("2006-01-02T15:00")
		sums[key] += r.StepDelta
	}

	var out []HourlySteps
	hour := time.Unix(timeutil.FloorToHour(startAt), 0).In(loc)
	end := time.Unix(endAt, 0).In(loc)
	for !hour.After(end) {
		key := hour.Format("2006-01-02T15:00")
		out = append(out, HourlySteps{Hour: key, Steps: sums[key]})
		hour = hour.Add(time.Hour)
	}
	return out, nil
}
