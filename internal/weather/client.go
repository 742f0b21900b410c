// Package weather maps locations and hours to historical weather snapshots,
// caching provider payloads per grid cell and hour.
package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/jengzang/wayfarer-backend-go/internal/config"
)

// Sentinel failures of the provider call. Callers normally see neither;
// the service layer folds them into a degraded outcome.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrMalformedResponse   = errors.New("malformed weather response")
)

const hourlyFields = "temperature_2m,relativehumidity_2m,precipitation,weathercode,windspeed_10m"

// Provider fetches one hour of weather for a location.
type Provider interface {
	FetchHour(ctx context.Context, lat, lon float64, hourUnix int64) (string, error)
}

// Client calls the Open-Meteo archive API with bounded retry on 429 and 5xx.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	maxRetries  int
	backoffBase time.Duration
	sleep       func(time.Duration)
	logger      *zap.Logger
}

// NewClient creates a new archive API client.
func NewClient(cfg config.WeatherConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     cfg.BaseURL,
		maxRetries:  cfg.MaxRetries,
		backoffBase: cfg.BackoffBase,
		sleep:       time.Sleep,
		logger:      logger,
	}
}

// hourlyBlock mirrors the provider's parallel-array hourly layout.
type hourlyBlock struct {
	Time             []string  `json:"time"`
	Temperature2m    []float64 `json:"temperature_2m"`
	RelativeHumidity []float64 `json:"relativehumidity_2m"`
	Precipitation    []float64 `json:"precipitation"`
	WeatherCode      []int     `json:"weathercode"`
	WindSpeed10m     []float64 `json:"windspeed_10m"`
}

type archiveResponse struct {
	Hourly hourlyBlock `json:"hourly"`
}

// snapshot is the compact per-hour payload stored in the cache.
type snapshot struct {
	Time             string  `json:"time"`
	Temperature2m    float64 `json:"temperature_2m"`
	RelativeHumidity float64 `json:"relativehumidity_2m"`
	Precipitation    float64 `json:"precipitation"`
	WeatherCode      int     `json:"weathercode"`
	WindSpeed10m     float64 `json:"windspeed_10m"`
}

// FetchHour retrieves the snapshot for one UTC hour. On HTTP 429 or 5xx it
// retries with exponential backoff (base * 2^attempt) up to the retry
// ceiling; exhaustion, transport failures and unparseable bodies surface as
// the package's sentinel errors.
func (c *Client) FetchHour(ctx context.Context, lat, lon float64, hourUnix int64) (string, error) {
	day := time.Unix(hourUnix, 0).UTC().Format("2006-01-02")

	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%.5f", lat))
	q.Set("longitude", fmt.Sprintf("%.5f", lon))
	q.Set("start_date", day)
	q.Set("end_date", day)
	q.Set("hourly", hourlyFields)
	q.Set("timezone", "UTC")
	reqURL := c.baseURL + "?" + q.Encode()

	body, err := c.getWithRetry(ctx, reqURL)
	if err != nil {
		return "", err
	}
	return c.extractHour(body, hourUnix)
}

func (c *Client) getWithRetry(ctx context.Context, reqURL string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to build weather request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			if readErr != nil {
				return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, readErr)
			}
			return body, nil
		}

		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		if !retryable {
			return nil, fmt.Errorf("%w: unexpected status %d", ErrProviderUnavailable, resp.StatusCode)
		}
		if attempt >= c.maxRetries-1 {
			return nil, fmt.Errorf("%w: status %d after %d attempts", ErrProviderUnavailable, resp.StatusCode, attempt+1)
		}

		delay := c.backoffBase * (1 << attempt)
		c.logger.Debug("weather provider throttled, backing off",
			zap.Int("status", resp.StatusCode),
			zap.Duration("delay", delay))
		c.sleep(delay)
	}
}

// extractHour picks the requested hour out of the day's parallel arrays.
func (c *Client) extractHour(body []byte, hourUnix int64) (string, error) {
	var parsed archiveResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	wanted := time.Unix(hourUnix, 0).UTC().Format("2006-01-02T15:04")
	h := parsed.Hourly
	for i, ts := range h.Time {
		if ts != wanted {
			continue
		}
		if i >= len(h.Temperature2m) || i >= len(h.RelativeHumidity) ||
			i >= len(h.Precipitation) || i >= len(h.WeatherCode) || i >= len(h.WindSpeed10m) {
			return "", fmt.Errorf("%w: ragged hourly arrays", ErrMalformedResponse)
		}
		payload, err := json.Marshal(snapshot{
			Time:             ts,
			Temperature2m:    h.Temperature2m[i],
			RelativeHumidity: h.RelativeHumidity[i],
			Precipitation:    h.Precipitation[i],
			WeatherCode:      h.WeatherCode[i],
			WindSpeed10m:     h.WindSpeed10m[i],
		})
		if err != nil {
			return "", fmt.Errorf("failed to marshal weather snapshot: %w", err)
		}
		return string(payload), nil
	}
	return "", fmt.Errorf("%w: hour %s missing from response", ErrMalformedResponse, wanted)
}
