package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-web/internal/models"
	"github.com/kjstillabower/weather-lookup-web/internal/observability"
)

// Geocoder resolves a free-text place name to coordinates. found is false when
// the backend has no match; err is reserved for transport and parse failures.
type Geocoder interface {
	Geocode(ctx context.Context, city string) (coords models.Coordinates, found bool, err error)
}

var ErrGeocoderFailure = errors.New("geocoder failure")

const (
	BackendNominatim = "nominatim"
	BackendGoogle    = "google"
)

// Options configures New.
type Options struct {
	Backend   string
	BaseURL   string
	UserAgent string
	APIKey    string
	Timeout   time.Duration
}

// New returns the Geocoder for opts.Backend wrapped with metrics and tracing.
func New(opts Options) (Geocoder, error) {
	var inner Geocoder
	switch strings.ToLower(opts.Backend) {
	case "", BackendNominatim:
		inner = NewNominatim(opts.BaseURL, opts.UserAgent, opts.Timeout)
		opts.Backend = BackendNominatim
	case BackendGoogle:
		g, err := NewGoogle(opts.APIKey, opts.BaseURL, opts.Timeout)
		if err != nil {
			return nil, err
		}
		inner = g
	default:
		return nil, fmt.Errorf("unknown geocoder backend %q", opts.Backend)
	}
	return Instrument(opts.Backend, inner), nil
}

type instrumented struct {
	backend string
	inner   Geocoder
}

// Instrument wraps g so every lookup records a span, latency, and a
// found/miss/error outcome under the given backend label.
func Instrument(backend string, g Geocoder) Geocoder {
	return &instrumented{backend: backend, inner: g}
}

func (i *instrumented) Geocode(ctx context.Context, city string) (models.Coordinates, bool, error) {
	ctx, span := observability.Tracer().Start(ctx, "geocode."+i.backend)
	defer span.End()
	span.SetAttributes(attribute.String("geocode.city", city))

	start := time.Now()
	coords, found, err := i.inner.Geocode(ctx, city)
	observability.GeocodeDuration.WithLabelValues(i.backend).Observe(time.Since(start).Seconds())

	logger := observability.LoggerFromContext(ctx)
	switch {
	case err != nil:
		observability.GeocodeLookupsTotal.WithLabelValues(i.backend, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "geocode failed")
		logger.Warn("geocode failed", zap.String("backend", i.backend), zap.String("city", city), zap.Error(err))
	case !found:
		observability.GeocodeLookupsTotal.WithLabelValues(i.backend, "miss").Inc()
		span.SetAttributes(attribute.Bool("geocode.found", false))
	default:
		observability.GeocodeLookupsTotal.WithLabelValues(i.backend, "found").Inc()
		span.SetAttributes(
			attribute.Bool("geocode.found", true),
			attribute.Float64("geocode.lat", coords.Latitude),
			attribute.Float64("geocode.lon", coords.Longitude))
	}
	return coords, found, err
}
