// Package timeutil centralizes the timestamp conventions used across the API:
// unix seconds (UTC) in storage, RFC3339 with a Z suffix on the wire.
package timeutil

import (
	"fmt"
	"time"
)

// FormatZ renders a unix-second timestamp as RFC3339 UTC with a Z suffix.
func FormatZ(unixSec int64) string {
	return time.Unix(unixSec, 0).UTC().Format(time.RFC3339)
}

// Parse accepts an RFC3339 timestamp (with or without offset; a missing
// offset is treated as UTC) and returns unix seconds.
func Parse(value string) (int64, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.Unix(), nil
	}
	// Tolerate naive timestamps from older clients.
	if t, err := time.Parse("2006-01-02T15:04:05", value); err == nil {
		return t.UTC().Unix(), nil
	}
	return 0, fmt.Errorf("invalid timestamp: %q", value)
}

// FloorToHour floors a unix-second timestamp to the top of its UTC hour.
func FloorToHour(unixSec int64) int64 {
	return unixSec - (unixSec % 3600)
}

// Location resolves an IANA timezone name, falling back to UTC for unknown
// names. Timezone only affects export formatting, never storage.
func Location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
