package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/kelvins/geocoder/structs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/kjstillabower/weather-lookup-web/internal/models"
)

// Google geocoding API statuses that are not failures.
const (
	googleStatusOK          = "OK"
	googleStatusZeroResults = "ZERO_RESULTS"
)

// Google resolves places through the Google Geocoding API. Requests are built
// from geocoder.Address and decoded into the library's result structs, but
// sent with a per-instance client so the context and timeout apply and no
// package globals are touched.
type Google struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGoogle returns a Google backend. An empty baseURL uses geocoder.ApiUrl.
func NewGoogle(apiKey, baseURL string, timeout time.Duration) (*Google, error) {
	if apiKey == "" {
		return nil, errors.New("google geocoder requires an API key")
	}
	if baseURL == "" {
		baseURL = geocoder.ApiUrl
	}
	if !strings.HasSuffix(baseURL, "?") {
		baseURL += "?"
	}
	return &Google{apiKey: apiKey, baseURL: baseURL, client: &http.Client{Timeout: timeout}}, nil
}

func (g *Google) Geocode(ctx context.Context, city string) (models.Coordinates, bool, error) {
	addr := geocoder.Address{City: city}
	params := url.Values{}
	params.Set("address", addr.FormatAddress())
	params.Set("key", g.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+params.Encode(), nil)
	if err != nil {
		return models.Coordinates{}, false, fmt.Errorf("%w: create request: %v", ErrGeocoderFailure, err)
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := g.client.Do(req)
	if err != nil {
		return models.Coordinates{}, false, fmt.Errorf("%w: %w", ErrGeocoderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Coordinates{}, false, fmt.Errorf("%w: google HTTP %d", ErrGeocoderFailure, resp.StatusCode)
	}

	var results structs.Results
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return models.Coordinates{}, false, fmt.Errorf("%w: parse response: %v", ErrGeocoderFailure, err)
	}
	return googleLocation(results)
}

// googleLocation maps a decoded response to coordinates. OK with no results
// and ZERO_RESULTS are both misses; any other status is a failure.
func googleLocation(results structs.Results) (models.Coordinates, bool, error) {
	switch status := strings.ToUpper(results.Status); status {
	case googleStatusOK:
		if len(results.Results) == 0 {
			return models.Coordinates{}, false, nil
		}
		loc := results.Results[0].Geometry.Location
		return models.Coordinates{Latitude: loc.Lat, Longitude: loc.Lng}, true, nil
	case googleStatusZeroResults:
		return models.Coordinates{}, false, nil
	default:
		if results.ErrorMessage != "" {
			return models.Coordinates{}, false, fmt.Errorf("%w: google status %s: %s", ErrGeocoderFailure, status, results.ErrorMessage)
		}
		return models.Coordinates{}, false, fmt.Errorf("%w: google status %q", ErrGeocoderFailure, status)
	}
}
