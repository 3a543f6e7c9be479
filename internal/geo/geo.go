// Package geo wraps the third-party map services the app uses: reverse
// geocoding and place search (Nominatim-compatible) and driving routes
// (OSRM-compatible). Calls are throttled client-side.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Raj-venom/scrap-dai-client/internal/metrics"
)

const (
	DefaultGeocoderURL = "https://nominatim.openstreetmap.org"
	DefaultRouterURL   = "https://router.project-osrm.org"
	DefaultUserAgent   = "scrapdai-client/1.0"

	// DefaultRequestsPerSecond matches the public Nominatim usage policy.
	DefaultRequestsPerSecond = 1.0

	earthRadiusMeters = 6371008.8
)

var (
	ErrNoResult = errors.New("geo: no result")
	ErrUpstream = errors.New("geo: upstream error")
)

// Coordinate is a WGS84 position.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Coordinate) float64 {
	rad := math.Pi / 180
	dLat := (b.Lat - a.Lat) * rad
	dLon := (b.Lon - a.Lon) * rad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*rad)*math.Cos(b.Lat*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(h)))
}

// fetcher is the throttled JSON GET shared by Geocoder and Router.
type fetcher struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
}

// Option configures a Geocoder or Router.
type Option func(*fetcher)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *fetcher) {
		f.httpClient = c
	}
}

// WithUserAgent sets the User-Agent header. Public map services require one
// that identifies the application.
func WithUserAgent(ua string) Option {
	return func(f *fetcher) {
		f.userAgent = ua
	}
}

// WithRateLimit sets the client-side request rate. A non-positive rps
// disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(f *fetcher) {
		if rps <= 0 {
			f.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func newFetcher(baseURL string, opts []Option) *fetcher {
	f := &fetcher{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		userAgent:  DefaultUserAgent,
		limiter:    rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), 1),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// getJSON waits for the limiter, then GETs path and decodes the body into out.
func (f *fetcher) getJSON(ctx context.Context, api, path string, out interface{}) (err error) {
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.GeoRequestsTotal.WithLabelValues(api, result).Inc()
	}()

	if err := f.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: %s returned %d", ErrUpstream, api, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: failed to parse %s response: %v", ErrUpstream, api, err)
	}
	return nil
}
