package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/kjstillabower/weather-lookup-web/internal/models"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	DefaultUserAgent    = "Weather Application"
)

// Nominatim queries the OpenStreetMap Nominatim search API.
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewNominatim(baseURL, userAgent string, timeout time.Duration) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Nominatim{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (n *Nominatim) Geocode(ctx context.Context, city string) (models.Coordinates, bool, error) {
	params := url.Values{}
	params.Set("q", city)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return models.Coordinates{}, false, fmt.Errorf("%w: create request: %v", ErrGeocoderFailure, err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := n.client.Do(req)
	if err != nil {
		return models.Coordinates{}, false, fmt.Errorf("%w: %w", ErrGeocoderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Coordinates{}, false, fmt.Errorf("%w: nominatim HTTP %d", ErrGeocoderFailure, resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return models.Coordinates{}, false, fmt.Errorf("%w: parse response: %v", ErrGeocoderFailure, err)
	}
	if len(results) == 0 {
		return models.Coordinates{}, false, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return models.Coordinates{}, false, fmt.Errorf("%w: parse lat %q: %v", ErrGeocoderFailure, results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return models.Coordinates{}, false, fmt.Errorf("%w: parse lon %q: %v", ErrGeocoderFailure, results[0].Lon, err)
	}
	return models.Coordinates{Latitude: lat, Longitude: lon}, true, nil
}
