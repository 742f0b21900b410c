package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jengzang/wayfarer-backend-go/internal/config"
)

func archiveBody(t *testing.T, hour string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"hourly": map[string]any{
			"time":                []string{hour},
			"temperature_2m":      []float64{21.5},
			"relativehumidity_2m": []float64{60},
			"precipitation":       []float64{0.2},
			"weathercode":         []int{3},
			"windspeed_10m":       []float64{12.5},
		},
	})
	require.NoError(t, err)
	return body
}

func newTestClient(t *testing.T, serverURL string) (*Client, *[]time.Duration) {
	t.Helper()
	c := NewClient(config.WeatherConfig{
		BaseURL:     serverURL,
		Timeout:     5 * time.Second,
		MaxRetries:  3,
		BackoffBase: 100 * time.Millisecond,
	}, zap.NewNop())

	var sleeps []time.Duration
	c.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return c, &sleeps
}

func TestFetchHourSuccess(t *testing.T) {
	hour := int64(1748739600) // 2025-06-01T01:00 UTC
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "UTC", r.URL.Query().Get("timezone"))
		require.Equal(t, "2025-06-01", r.URL.Query().Get("start_date"))
		w.Write(archiveBody(t, "2025-06-01T01:00"))
	}))
	defer srv.Close()

	c, sleeps := newTestClient(t, srv.URL)
	payload, err := c.FetchHour(context.Background(), 39.9, 116.4, hour)
	require.NoError(t, err)
	require.Contains(t, payload, `"temperature_2m":21.5`)
	require.Empty(t, *sleeps)
}

func TestFetchHourRetriesWithIncreasingBackoff(t *testing.T) {
	hour := int64(1748739600)
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(archiveBody(t, "2025-06-01T01:00"))
	}))
	defer srv.Close()

	c, sleeps := newTestClient(t, srv.URL)
	payload, err := c.FetchHour(context.Background(), 39.9, 116.4, hour)
	require.NoError(t, err)
	require.NotEmpty(t, payload)
	require.Equal(t, 3, calls)

	// Exactly two sleeps, each longer than the last.
	require.Len(t, *sleeps, 2)
	require.Equal(t, 100*time.Millisecond, (*sleeps)[0])
	require.Equal(t, 200*time.Millisecond, (*sleeps)[1])
}

func TestFetchHourExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, sleeps := newTestClient(t, srv.URL)
	_, err := c.FetchHour(context.Background(), 39.9, 116.4, 1748739600)
	require.ErrorIs(t, err, ErrProviderUnavailable)
	require.Len(t, *sleeps, 2)
}

func TestFetchHourNonRetryableStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c, sleeps := newTestClient(t, srv.URL)
	_, err := c.FetchHour(context.Background(), 39.9, 116.4, 1748739600)
	require.ErrorIs(t, err, ErrProviderUnavailable)
	require.Empty(t, *sleeps)
}

func TestFetchHourMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	_, err := c.FetchHour(context.Background(), 39.9, 116.4, 1748739600)
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestFetchHourMissingHour(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archiveBody(t, "2025-06-01T05:00"))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	_, err := c.FetchHour(context.Background(), 39.9, 116.4, 1748739600)
	require.ErrorIs(t, err, ErrMalformedResponse)
}
