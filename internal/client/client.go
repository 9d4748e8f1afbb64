package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-web/internal/models"
	"github.com/kjstillabower/weather-lookup-web/internal/observability"
)

// WeatherClient fetches current and historical conditions from the provider.
type WeatherClient interface {
	GetCurrentWeather(ctx context.Context, city, units string) (models.CurrentWeather, error)
	GetHistoricalWeather(ctx context.Context, coords models.Coordinates, units string, dt int64) (models.HistoricalWeather, error)
	ValidateAPIKey(ctx context.Context) error
}

var (
	ErrInvalidAPIKey     = errors.New("invalid API key")
	ErrLocationNotFound  = errors.New("location not found")
	ErrUpstreamFailure   = errors.New("upstream failure")
	ErrRateLimited       = errors.New("rate limited")
	ErrMalformedResponse = errors.New("malformed provider response")
)

const (
	endpointCurrent     = "current"
	endpointTimemachine = "timemachine"
)

// OpenWeatherClient talks to the OpenWeatherMap current-weather and
// onecall/timemachine endpoints. Every call is a single attempt bounded by timeout.
type OpenWeatherClient struct {
	apiKey        string
	currentURL    string
	historicalURL string
	timeout       time.Duration
	client        *http.Client
}

func NewOpenWeatherClient(apiKey, currentURL, historicalURL string, timeout time.Duration) (*OpenWeatherClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if len(apiKey) < 10 {
		return nil, fmt.Errorf("%w: API key appears invalid (too short)", ErrInvalidAPIKey)
	}

	return &OpenWeatherClient{
		apiKey:        apiKey,
		currentURL:    currentURL,
		historicalURL: historicalURL,
		timeout:       timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type currentResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity int      `json:"humidity"`
	} `json:"main"`
	Wind *struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Sys *struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
}

type timemachineResponse struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Timezone string  `json:"timezone"`
	Current  *struct {
		Temp    *float64 `json:"temp"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"current"`
	Hourly *[]models.HourlyReading `json:"hourly"`
}

func (c *OpenWeatherClient) GetCurrentWeather(ctx context.Context, city, units string) (models.CurrentWeather, error) {
	params := url.Values{}
	params.Set("q", city)
	setUnits(params, units)

	body, err := c.fetch(ctx, endpointCurrent, c.currentURL, params,
		attribute.String("weather.city", city), attribute.String("weather.units", units))
	if err != nil {
		return models.CurrentWeather{}, err
	}

	var apiResp currentResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return models.CurrentWeather{}, fmt.Errorf("parse response: %w", err)
	}
	return mapCurrentResponse(apiResp)
}

func (c *OpenWeatherClient) GetHistoricalWeather(ctx context.Context, coords models.Coordinates, units string, dt int64) (models.HistoricalWeather, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	params.Set("dt", strconv.FormatInt(dt, 10))
	setUnits(params, units)

	body, err := c.fetch(ctx, endpointTimemachine, c.historicalURL, params,
		attribute.Float64("weather.lat", coords.Latitude),
		attribute.Float64("weather.lon", coords.Longitude),
		attribute.Int64("weather.dt", dt))
	if err != nil {
		return models.HistoricalWeather{}, err
	}

	var apiResp timemachineResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return models.HistoricalWeather{}, fmt.Errorf("parse response: %w", err)
	}
	return mapTimemachineResponse(apiResp)
}

// setUnits omits the parameter when empty so the provider applies its default.
func setUnits(params url.Values, units string) {
	if units != "" {
		params.Set("units", units)
	}
}

// fetch performs one GET against the provider and returns the body of a 2xx response.
func (c *OpenWeatherClient) fetch(ctx context.Context, endpoint, rawURL string, params url.Values, attrs ...attribute.KeyValue) ([]byte, error) {
	ctx, span := observability.Tracer().Start(ctx, "openweather."+endpoint)
	defer span.End()
	span.SetAttributes(attrs...)

	logger := observability.LoggerFromContext(ctx)
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, rawURL, params)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request")
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		observability.WeatherAPIDuration.WithLabelValues(endpoint, "error").Observe(duration)
		span.RecordError(err)
		span.SetStatus(codes.Error, "http request failed")

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("request timeout: %w", err)
		}
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(endpoint, status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(endpoint, status).Observe(duration)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if err := c.handleErrorResponse(resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider error status")
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read response body")
		return nil, fmt.Errorf("read response body: %w", err)
	}

	logger.Debug("provider response",
		zap.String("endpoint", endpoint),
		zap.Duration("duration", time.Since(start)),
		zap.ByteString("body", body))
	return body, nil
}

func (c *OpenWeatherClient) buildRequest(ctx context.Context, rawURL string, params url.Values) (*http.Request, error) {
	baseURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params.Set("appid", c.apiKey)
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if corrID := observability.CorrelationIDFromContext(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	return req, nil
}

func (c *OpenWeatherClient) handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: provider rejected key", ErrInvalidAPIKey)
	case http.StatusNotFound:
		return fmt.Errorf("%w", ErrLocationNotFound)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	return nil
}

func mapCurrentResponse(apiResp currentResponse) (models.CurrentWeather, error) {
	switch {
	case len(apiResp.Weather) == 0:
		return models.CurrentWeather{}, fmt.Errorf("%w: missing weather[0]", ErrMalformedResponse)
	case apiResp.Main == nil || apiResp.Main.Temp == nil:
		return models.CurrentWeather{}, fmt.Errorf("%w: missing main.temp", ErrMalformedResponse)
	case apiResp.Wind == nil:
		return models.CurrentWeather{}, fmt.Errorf("%w: missing wind", ErrMalformedResponse)
	case apiResp.Sys == nil:
		return models.CurrentWeather{}, fmt.Errorf("%w: missing sys", ErrMalformedResponse)
	}

	return models.CurrentWeather{
		Name:        apiResp.Name,
		Description: apiResp.Weather[0].Description,
		Temperature: *apiResp.Main.Temp,
		Humidity:    apiResp.Main.Humidity,
		WindSpeed:   apiResp.Wind.Speed,
		Sunrise:     apiResp.Sys.Sunrise,
		Sunset:      apiResp.Sys.Sunset,
	}, nil
}

func mapTimemachineResponse(apiResp timemachineResponse) (models.HistoricalWeather, error) {
	switch {
	case apiResp.Current == nil:
		return models.HistoricalWeather{}, fmt.Errorf("%w: missing current", ErrMalformedResponse)
	case len(apiResp.Current.Weather) == 0:
		return models.HistoricalWeather{}, fmt.Errorf("%w: missing current.weather[0]", ErrMalformedResponse)
	case apiResp.Current.Temp == nil:
		return models.HistoricalWeather{}, fmt.Errorf("%w: missing current.temp", ErrMalformedResponse)
	case apiResp.Hourly == nil:
		return models.HistoricalWeather{}, fmt.Errorf("%w: missing hourly", ErrMalformedResponse)
	}

	return models.HistoricalWeather{
		Latitude:    apiResp.Lat,
		Longitude:   apiResp.Lon,
		Timezone:    apiResp.Timezone,
		Description: apiResp.Current.Weather[0].Description,
		Temperature: *apiResp.Current.Temp,
		Hourly:      *apiResp.Hourly,
	}, nil
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

// ValidateAPIKey issues a lightweight current-weather lookup and reports whether the key is accepted.
func (c *OpenWeatherClient) ValidateAPIKey(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	params := url.Values{}
	params.Set("q", "London")
	req, err := c.buildRequest(ctx, c.currentURL, params)
	if err != nil {
		return fmt.Errorf("build validation request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: API key is invalid or not activated", ErrInvalidAPIKey)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("validation failed: HTTP %d", resp.StatusCode)
	}

	return nil
}
