package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from .env, YAML and env.
type Config struct {
	ServerPort string

	WeatherAPIKey        string
	WeatherCurrentURL    string
	WeatherHistoricalURL string
	WeatherAPITimeout    time.Duration

	GeocoderBackend    string // "nominatim" or "google"
	GeocoderURL        string
	GeocoderUserAgent  string
	GeocoderAPIKey     string
	GeocoderTimeout    time.Duration
	GeocoderMissPolicy string // "zero" or "reject"

	RequestTimeout time.Duration

	DisplayTimezone string
	DisplayLocation *time.Location
	HistoryDays     int

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	DegradedWindow   time.Duration
	DegradedErrorPct int

	TrackedCities []string

	TracingEndpoint    string
	TracingServiceName string
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		CurrentURL    string `yaml:"current_url"`
		HistoricalURL string `yaml:"historical_url"`
		Timeout       string `yaml:"timeout"`
	} `yaml:"weather_api"`

	Geocoder struct {
		Backend    string `yaml:"backend"`
		URL        string `yaml:"url"`
		UserAgent  string `yaml:"user_agent"`
		Timeout    string `yaml:"timeout"`
		MissPolicy string `yaml:"miss_policy"`
	} `yaml:"geocoder"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Display struct {
		Timezone    string `yaml:"timezone"`
		HistoryDays int    `yaml:"history_days"`
	} `yaml:"display"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Health struct {
		DegradedWindow   string `yaml:"degraded_window"`
		DegradedErrorPct int    `yaml:"degraded_error_pct"`
	} `yaml:"health"`

	Metrics struct {
		TrackedCities []string `yaml:"tracked_cities"`
	} `yaml:"metrics"`

	Tracing struct {
		Endpoint    string `yaml:"endpoint"`
		ServiceName string `yaml:"service_name"`
	} `yaml:"tracing"`
}

type secretsFile struct {
	WeatherAPIKey  string `yaml:"weather_api_key"`
	GeocoderAPIKey string `yaml:"geocoder_api_key"`
}

// Load reads .env (optional), config/{ENV_NAME}.yaml (default dev) and
// config/secrets.yaml (optional), then applies env overrides. The weather API
// key comes from WEATHER_API_KEY, API_KEY or the secrets file. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}

	if err := godotenv.Load(filepath.Join(cwd, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	sec, err := readSecrets(filepath.Join(cwd, "config", "secrets.yaml"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	cfg.ServerPort = firstNonEmpty(os.Getenv("PORT"), fc.Server.Port, "8080")

	cfg.WeatherAPIKey = firstNonEmpty(os.Getenv("WEATHER_API_KEY"), os.Getenv("API_KEY"), sec.WeatherAPIKey)
	if cfg.WeatherAPIKey == "" {
		return nil, fmt.Errorf("WEATHER_API_KEY required (set WEATHER_API_KEY or API_KEY env, or config/secrets.yaml weather_api_key)")
	}
	cfg.WeatherCurrentURL = firstNonEmpty(fc.WeatherAPI.CurrentURL, "https://api.openweathermap.org/data/2.5/weather")
	cfg.WeatherHistoricalURL = firstNonEmpty(fc.WeatherAPI.HistoricalURL, "https://api.openweathermap.org/data/2.5/onecall/timemachine")
	cfg.WeatherAPITimeout = parseDurationOrZero(fc.WeatherAPI.Timeout, 2*time.Second)

	cfg.GeocoderBackend = strings.ToLower(strings.TrimSpace(firstNonEmpty(os.Getenv("GEOCODER_BACKEND"), fc.Geocoder.Backend, "nominatim")))
	cfg.GeocoderURL = strings.TrimSpace(fc.Geocoder.URL)
	cfg.GeocoderUserAgent = firstNonEmpty(fc.Geocoder.UserAgent, "Weather Application")
	cfg.GeocoderAPIKey = firstNonEmpty(os.Getenv("GEOCODER_API_KEY"), sec.GeocoderAPIKey)
	cfg.GeocoderTimeout = parseDurationOrZero(fc.Geocoder.Timeout, 2*time.Second)
	cfg.GeocoderMissPolicy = strings.ToLower(strings.TrimSpace(firstNonEmpty(fc.Geocoder.MissPolicy, "zero")))

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 5*time.Second)

	cfg.DisplayTimezone = strings.TrimSpace(firstNonEmpty(os.Getenv("DISPLAY_TIMEZONE"), fc.Display.Timezone, "Local"))
	cfg.HistoryDays = fc.Display.HistoryDays
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = 5
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.DegradedWindow = parseDuration(fc.Health.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = fc.Health.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 50
	}

	cfg.TrackedCities = fc.Metrics.TrackedCities

	cfg.TracingEndpoint = strings.TrimSpace(firstNonEmpty(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"), fc.Tracing.Endpoint))
	cfg.TracingServiceName = firstNonEmpty(fc.Tracing.ServiceName, "weather-lookup-web")

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readSecrets(path string) (secretsFile, error) {
	var sec secretsFile
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sec, nil
		}
		return sec, fmt.Errorf("read secrets file: %w", err)
	}
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return sec, fmt.Errorf("parse secrets file: %w", err)
	}
	return sec, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// parseDuration parses s, falling back to defaultVal when empty, invalid, or <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses s, falling back to defaultVal only when empty or
// invalid. Zero and negative values are returned for validate to reject.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate rejects unusable values, resolves the display time zone, and
// raises RequestTimeout so it always covers a geocode plus a weather call.
func validate(cfg *Config) error {
	if len(cfg.WeatherAPIKey) < 10 {
		return fmt.Errorf("WEATHER_API_KEY appears invalid (too short)")
	}
	if cfg.WeatherAPITimeout <= 0 {
		return fmt.Errorf("weather_api.timeout must be positive")
	}
	if cfg.GeocoderTimeout <= 0 {
		return fmt.Errorf("geocoder.timeout must be positive")
	}
	if min := cfg.WeatherAPITimeout + cfg.GeocoderTimeout; cfg.RequestTimeout <= min {
		cfg.RequestTimeout = min + time.Second
	}

	switch cfg.GeocoderBackend {
	case "nominatim":
	case "google":
		if cfg.GeocoderAPIKey == "" {
			return fmt.Errorf("geocoder.backend google requires GEOCODER_API_KEY (env or config/secrets.yaml geocoder_api_key)")
		}
	default:
		return fmt.Errorf("geocoder.backend must be nominatim or google, got %q", cfg.GeocoderBackend)
	}

	switch cfg.GeocoderMissPolicy {
	case "zero", "reject":
	default:
		return fmt.Errorf("geocoder.miss_policy must be zero or reject, got %q", cfg.GeocoderMissPolicy)
	}

	loc, err := time.LoadLocation(cfg.DisplayTimezone)
	if err != nil {
		return fmt.Errorf("display.timezone %q: %w", cfg.DisplayTimezone, err)
	}
	cfg.DisplayLocation = loc
	return nil
}
