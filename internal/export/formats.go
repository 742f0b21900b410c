// Package export renders track datasets into downloadable artifacts and
// drives the asynchronous export job state machine.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/jengzang/wayfarer-backend-go/internal/apperr"
	"github.com/jengzang/wayfarer-backend-go/internal/models"
)

var errFormatUnsupported = apperr.New("EXPORT_FORMAT_UNSUPPORTED", "unsupported export format", http.StatusBadRequest)

// NormalizeFormat resolves a requested format, case-insensitively, to its
// canonical name.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return models.ExportFormatCSV, nil
	case "gpx":
		return models.ExportFormatGPX, nil
	case "geojson":
		return models.ExportFormatGeoJSON, nil
	case "kml":
		return models.ExportFormatKML, nil
	}
	return "", errFormatUnsupported
}

// Extension returns the artifact file extension for a canonical format.
func Extension(format string) string {
	switch format {
	case models.ExportFormatCSV:
		return "csv"
	case models.ExportFormatGPX:
		return "gpx"
	case models.ExportFormatGeoJSON:
		return "geojson"
	case models.ExportFormatKML:
		return "kml"
	}
	return "dat"
}

// Render dispatches to the renderer for a canonical format. Renderers are
// pure: the same points and timezone always produce byte-identical output.
func Render(format string, points []models.TrackPoint, loc *time.Location) ([]byte, error) {
	switch format {
	case models.ExportFormatCSV:
		return renderCSV(points, loc)
	case models.ExportFormatGPX:
		return renderGPX(points, loc)
	case models.ExportFormatGeoJSON:
		return renderGeoJSON(points, loc)
	case models.ExportFormatKML:
		return renderKML(points, loc)
	}
	return nil, errFormatUnsupported
}

func anyWeather(points []models.TrackPoint) bool {
	for i := range points {
		if points[i].WeatherSnapshot != nil {
			return true
		}
	}
	return false
}

func formatTime(unixSec int64, loc *time.Location) string {
	return time.Unix(unixSec, 0).In(loc).Format(time.RFC3339)
}

func floatCell(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func intCell(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func renderCSV(points []models.TrackPoint, loc *time.Location) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	withWeather := anyWeather(points)
	header := []string{"recorded_at", "latitude", "longitude", "altitude", "accuracy",
		"speed", "step_count", "step_delta", "activity_type", "is_dirty"}
	if withWeather {
		header = append(header, "weather")
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}

	for i := range points {
		p := &points[i]
		row := []string{
			formatTime(p.RecordedAt, loc),
			strconv.FormatFloat(p.Latitude, 'f', -1, 64),
			strconv.FormatFloat(p.Longitude, 'f', -1, 64),
			floatCell(p.Altitude),
			floatCell(p.Accuracy),
			floatCell(p.Speed),
			intCell(p.StepCount),
			intCell(p.StepDelta),
			intCell(p.ActivityType),
			strconv.FormatBool(p.IsDirty),
		}
		if withWeather {
			weather := ""
			if p.WeatherSnapshot != nil {
				weather = *p.WeatherSnapshot
			}
			row = append(row, weather)
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

type geoJSONFeature struct {
	Type       string         `json:"type"`
	Geometry   map[string]any `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

// renderGeoJSON emits one Point feature per sample. Properties are maps so
// the marshaller sorts their keys, keeping the output canonical.
func renderGeoJSON(points []models.TrackPoint, loc *time.Location) ([]byte, error) {
	withWeather := anyWeather(points)

	fc := geoJSONCollection{Type: "FeatureCollection", Features: []geoJSONFeature{}}
	for i := range points {
		p := &points[i]
		props := map[string]any{
			"recorded_at": formatTime(p.RecordedAt, loc),
			"is_dirty":    p.IsDirty,
		}
		if p.Altitude != nil {
			props["altitude"] = *p.Altitude
		}
		if p.Accuracy != nil {
			props["accuracy"] = *p.Accuracy
		}
		if p.Speed != nil {
			props["speed"] = *p.Speed
		}
		if p.StepCount != nil {
			props["step_count"] = *p.StepCount
		}
		if p.StepDelta != nil {
			props["step_delta"] = *p.StepDelta
		}
		if p.ActivityType != nil {
			props["activity_type"] = *p.ActivityType
		}
		if withWeather {
			if p.WeatherSnapshot != nil {
				props["weather"] = json.RawMessage(*p.WeatherSnapshot)
			} else {
				props["weather"] = nil
			}
		}

		fc.Features = append(fc.Features, geoJSONFeature{
			Type: "Feature",
			Geometry: map[string]any{
				"type":        "Point",
				"coordinates": []float64{p.Longitude, p.Latitude},
			},
			Properties: props,
		})
	}

	out, err := json.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal geojson: %w", err)
	}
	return out, nil
}

type gpxTrkpt struct {
	Lat  float64  `xml:"lat,attr"`
	Lon  float64  `xml:"lon,attr"`
	Ele  *float64 `xml:"ele,omitempty"`
	Time string   `xml:"time"`
}

type gpxTrkseg struct {
	Points []gpxTrkpt `xml:"trkpt"`
}

type gpxTrk struct {
	Name     string    `xml:"name"`
	Segments gpxTrkseg `xml:"trkseg"`
}

type gpxRoot struct {
	XMLName xml.Name `xml:"gpx"`
	Version string   `xml:"version,attr"`
	Creator string   `xml:"creator,attr"`
	Xmlns   string   `xml:"xmlns,attr"`
	Track   gpxTrk   `xml:"trk"`
}

func renderGPX(points []models.TrackPoint, loc *time.Location) ([]byte, error) {
	root := gpxRoot{
		Version: "1.1",
		Creator: "wayfarer",
		Xmlns:   "http://www.topografix.com/GPX/1/1",
		Track:   gpxTrk{Name: "wayfarer export", Segments: gpxTrkseg{Points: []gpxTrkpt{}}},
	}
	for i := range points {
		p := &points[i]
		root.Track.Segments.Points = append(root.Track.Segments.Points, gpxTrkpt{
			Lat:  p.Latitude,
			Lon:  p.Longitude,
			Ele:  p.Altitude,
			Time: formatTime(p.RecordedAt, loc),
		})
	}

	body, err := xml.MarshalIndent(root, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gpx: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

type kmlLineString struct {
	Coordinates string `xml:"coordinates"`
}

type kmlPlacemark struct {
	Name       string        `xml:"name"`
	LineString kmlLineString `xml:"LineString"`
}

type kmlDocument struct {
	Name      string       `xml:"name"`
	Placemark kmlPlacemark `xml:"Placemark"`
}

type kmlRoot struct {
	XMLName  xml.Name    `xml:"kml"`
	Xmlns    string      `xml:"xmlns,attr"`
	Document kmlDocument `xml:"Document"`
}

func renderKML(points []models.TrackPoint, _ *time.Location) ([]byte, error) {
	var coords strings.Builder
	for i := range points {
		p := &points[i]
		alt := 0.0
		if p.Altitude != nil {
			alt = *p.Altitude
		}
		if i > 0 {
			coords.WriteByte(' ')
		}
		fmt.Fprintf(&coords, "%s,%s,%s",
			strconv.FormatFloat(p.Longitude, 'f', -1, 64),
			strconv.FormatFloat(p.Latitude, 'f', -1, 64),
			strconv.FormatFloat(alt, 'f', -1, 64))
	}

	root := kmlRoot{
		Xmlns: "http://www.opengis.net/kml/2.2",
		Document: kmlDocument{
			Name: "wayfarer export",
			Placemark: kmlPlacemark{
				Name:       "track",
				LineString: kmlLineString{Coordinates: coords.String()},
			},
		},
	}

	body, err := xml.MarshalIndent(root, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal kml: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}
