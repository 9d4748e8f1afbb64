package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-web/internal/client"
	"github.com/kjstillabower/weather-lookup-web/internal/geocode"
	"github.com/kjstillabower/weather-lookup-web/internal/models"
	"github.com/kjstillabower/weather-lookup-web/internal/observability"
	"github.com/kjstillabower/weather-lookup-web/internal/views"
)

// MissPolicy decides what a historical lookup does when the city cannot be geocoded.
type MissPolicy string

const (
	// MissPolicyZero queries the provider at (0,0).
	MissPolicyZero MissPolicy = "zero"
	// MissPolicyReject fails the request with ErrLocationUnresolved.
	MissPolicyReject MissPolicy = "reject"
)

// ErrLocationUnresolved is returned under MissPolicyReject when geocoding finds no match.
var ErrLocationUnresolved = errors.New("location could not be geocoded")

const defaultHistoryDays = 5

// Options configures NewViewService. Zero values fall back to defaults.
type Options struct {
	MissPolicy  MissPolicy
	Location    *time.Location
	HistoryDays int
	Now         func() time.Time
}

// ViewService builds the page view-models. Each call is independent; the
// service holds only immutable configuration.
type ViewService struct {
	weather     client.WeatherClient
	geocoder    geocode.Geocoder
	missPolicy  MissPolicy
	location    *time.Location
	historyDays int
	now         func() time.Time
}

func NewViewService(weather client.WeatherClient, geocoder geocode.Geocoder, opts Options) *ViewService {
	s := &ViewService{
		weather:     weather,
		geocoder:    geocoder,
		missPolicy:  opts.MissPolicy,
		location:    opts.Location,
		historyDays: opts.HistoryDays,
		now:         opts.Now,
	}
	if s.missPolicy == "" {
		s.missPolicy = MissPolicyZero
	}
	if s.location == nil {
		s.location = time.Local
	}
	if s.historyDays <= 0 {
		s.historyDays = defaultHistoryDays
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Location returns the display time zone.
func (s *ViewService) Location() *time.Location {
	return s.location
}

// Home returns the date-picker bounds: now minus the history window, and now.
func (s *ViewService) Home() *views.HomePage {
	now := s.now().In(s.location)
	return &views.HomePage{
		MinDate: now.AddDate(0, 0, -s.historyDays),
		MaxDate: now,
	}
}

// Current fetches current conditions for q.City.
func (s *ViewService) Current(ctx context.Context, q models.WeatherQuery) (*views.ResultsPage, error) {
	logger := observability.LoggerFromContext(ctx)
	observability.RecordCityQuery(q.City, "results")

	cw, err := s.weather.GetCurrentWeather(ctx, q.City, q.Units)
	if err != nil {
		return nil, fmt.Errorf("current weather for %s: %w", q.City, err)
	}

	logger.Debug("current weather fetched", zap.String("city", q.City), zap.String("provider_name", cw.Name))
	return &views.ResultsPage{
		Date:        s.now().In(s.location),
		City:        q.City,
		Description: cw.Description,
		Temperature: cw.Temperature,
		Humidity:    cw.Humidity,
		WindSpeed:   cw.WindSpeed,
		Sunrise:     time.Unix(cw.Sunrise, 0).In(s.location),
		Sunset:      time.Unix(cw.Sunset, 0).In(s.location),
		UnitsLetter: models.UnitsLetter(q.Units),
	}, nil
}

// Historical fetches conditions for q.City on q.Date. q.Date must be set.
func (s *ViewService) Historical(ctx context.Context, q models.WeatherQuery) (*views.HistoricalPage, error) {
	if q.Date == nil {
		return nil, errors.New("historical query without date")
	}
	logger := observability.LoggerFromContext(ctx)
	observability.RecordCityQuery(q.City, "historical_results")

	date := q.Date.In(s.location)
	coords, found, err := s.geocoder.Geocode(ctx, q.City)
	if err != nil {
		return nil, fmt.Errorf("geocode %s: %w", q.City, err)
	}
	if !found {
		if s.missPolicy == MissPolicyReject {
			return nil, fmt.Errorf("%w: %s", ErrLocationUnresolved, q.City)
		}
		logger.Warn("geocoding miss, using (0,0)", zap.String("city", q.City))
		coords = models.Coordinates{}
	}

	hw, err := s.weather.GetHistoricalWeather(ctx, coords, q.Units, date.Unix())
	if err != nil {
		return nil, fmt.Errorf("historical weather for %s on %s: %w", q.City, date.Format("2006-01-02"), err)
	}

	lo, hi, err := MinMax(hw.Hourly)
	if err != nil {
		return nil, fmt.Errorf("%w: hourly: %w", client.ErrMalformedResponse, err)
	}

	return &views.HistoricalPage{
		City:        q.City,
		Date:        date,
		Latitude:    coords.Latitude,
		Longitude:   coords.Longitude,
		Units:       q.Units,
		UnitsLetter: models.UnitsLetter(q.Units),
		Description: hw.Description,
		Temperature: hw.Temperature,
		MinTemp:     lo.Temp,
		MaxTemp:     hi.Temp,
		Approximate: !found,
	}, nil
}
