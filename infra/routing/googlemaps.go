// Package routing implements road-distance lookups against the Google Maps
// Distance Matrix API.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/fooddispatch/core/model"
	corerouting "github.com/kilianp07/fooddispatch/core/routing"
)

// DefaultBaseURL is the Distance Matrix endpoint.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/distancematrix/json"

// Config holds the route lookup settings.
type Config struct {
	APIKey          string `json:"api_key"`
	BaseURL         string `json:"base_url"`
	TimeoutSeconds  int    `json:"timeout_seconds"`
	CachePath       string `json:"cache_path"`
	CacheTTLMinutes int    `json:"cache_ttl_minutes"`
}

// StatusError reports a non-OK answer from the API.
type StatusError struct {
	HTTPStatus int
	Status     string
	Message    string
}

func (e *StatusError) Error() string {
	if e.HTTPStatus != 0 && e.HTTPStatus != http.StatusOK {
		return fmt.Sprintf("distance matrix: http %d", e.HTTPStatus)
	}
	if e.Message != "" {
		return fmt.Sprintf("distance matrix: %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("distance matrix: %s", e.Status)
}

// GoogleMapsClient queries the Distance Matrix API once per call, without
// retries.
type GoogleMapsClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGoogleMapsClient returns a client. An empty key yields a client that
// answers ErrNotConfigured.
func NewGoogleMapsClient(cfg Config) *GoogleMapsClient {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GoogleMapsClient{
		apiKey:  cfg.APIKey,
		baseURL: base,
		client:  &http.Client{Timeout: timeout},
	}
}

type matrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []struct {
			Status   string `json:"status"`
			Distance struct {
				Value float64 `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value float64 `json:"value"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

func coords(c model.Coordinates) string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

// Distance returns the driving distance between two points.
func (g *GoogleMapsClient) Distance(ctx context.Context, from, to model.Coordinates) (corerouting.Route, error) {
	if g.apiKey == "" {
		return corerouting.Route{}, corerouting.ErrNotConfigured
	}
	q := url.Values{}
	q.Set("origins", coords(from))
	q.Set("destinations", coords(to))
	q.Set("mode", "driving")
	q.Set("units", "metric")
	q.Set("key", g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return corerouting.Route{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := g.client.Do(req)
	if err != nil {
		return corerouting.Route{}, fmt.Errorf("distance matrix request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return corerouting.Route{}, &StatusError{HTTPStatus: resp.StatusCode}
	}
	var body matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return corerouting.Route{}, fmt.Errorf("decode distance matrix: %w", err)
	}
	if body.Status != "OK" {
		return corerouting.Route{}, &StatusError{HTTPStatus: resp.StatusCode, Status: body.Status, Message: strings.TrimSpace(body.ErrorMessage)}
	}
	if len(body.Rows) == 0 || len(body.Rows[0].Elements) == 0 {
		return corerouting.Route{}, &StatusError{Status: "EMPTY_RESPONSE"}
	}
	el := body.Rows[0].Elements[0]
	if el.Status != "OK" {
		return corerouting.Route{}, &StatusError{Status: el.Status}
	}
	return corerouting.Route{
		DistanceKm:      el.Distance.Value / 1000,
		DurationMinutes: el.Duration.Value / 60,
	}, nil
}
