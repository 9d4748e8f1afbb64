package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalEnvYAML = `
server:
  port: "8080"
weather_api:
  timeout: 2s
`

var configEnvVars = []string{
	"ENV_NAME", "PORT", "WEATHER_API_KEY", "API_KEY", "GEOCODER_BACKEND",
	"GEOCODER_API_KEY", "DISPLAY_TIMEZONE", "OTEL_EXPORTER_OTLP_ENDPOINT",
}

// isolate unsets every variable Load reads (restored after the test) and
// switches into a fresh directory.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range configEnvVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func writeEnvFile(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "dev.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func writeSecretsFile(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config", "secrets.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoad_FailsWhenNoAPIKey(t *testing.T) {
	dir := isolate(t)
	writeEnvFile(t, dir, minimalEnvYAML)

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load() expected error when no API key is configured, got nil")
	}
	if cfg != nil {
		t.Fatalf("Load() expected nil config on error, got %+v", cfg)
	}
	if !strings.Contains(err.Error(), "WEATHER_API_KEY") {
		t.Errorf("Load() error = %v, want message containing WEATHER_API_KEY", err)
	}
}

// TestLoad_APIKeySources verifies the precedence WEATHER_API_KEY > API_KEY >
// .env > secrets file.
func TestLoad_APIKeySources(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		dotenv  string
		secrets string
		want    string
	}{
		{"secrets file", nil, "", "weather_api_key: key-from-secrets-file\n", "key-from-secrets-file"},
		{"API_KEY env", map[string]string{"API_KEY": "key-from-api-key"}, "", "weather_api_key: key-from-secrets-file\n", "key-from-api-key"},
		{"WEATHER_API_KEY wins", map[string]string{"WEATHER_API_KEY": "key-from-weather", "API_KEY": "key-from-api-key"}, "", "", "key-from-weather"},
		{".env file", nil, "API_KEY=key-from-dotenv-file\n", "weather_api_key: key-from-secrets-file\n", "key-from-dotenv-file"},
		{"env beats .env", map[string]string{"API_KEY": "key-from-process"}, "API_KEY=key-from-dotenv-file\n", "", "key-from-process"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			writeEnvFile(t, dir, minimalEnvYAML)
			if tt.secrets != "" {
				writeSecretsFile(t, dir, tt.secrets)
			}
			if tt.dotenv != "" {
				if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(tt.dotenv), 0644); err != nil {
					t.Fatalf("WriteFile: %v", err)
				}
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.WeatherAPIKey != tt.want {
				t.Errorf("WeatherAPIKey = %q, want %q", cfg.WeatherAPIKey, tt.want)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)
	writeEnvFile(t, dir, minimalEnvYAML)
	t.Setenv("WEATHER_API_KEY", "test-key-1234567890")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.WeatherCurrentURL != "https://api.openweathermap.org/data/2.5/weather" {
		t.Errorf("WeatherCurrentURL = %q", cfg.WeatherCurrentURL)
	}
	if cfg.WeatherHistoricalURL != "https://api.openweathermap.org/data/2.5/onecall/timemachine" {
		t.Errorf("WeatherHistoricalURL = %q", cfg.WeatherHistoricalURL)
	}
	if cfg.GeocoderBackend != "nominatim" || cfg.GeocoderMissPolicy != "zero" {
		t.Errorf("geocoder = %q/%q, want nominatim/zero", cfg.GeocoderBackend, cfg.GeocoderMissPolicy)
	}
	if cfg.GeocoderUserAgent != "Weather Application" {
		t.Errorf("GeocoderUserAgent = %q", cfg.GeocoderUserAgent)
	}
	if cfg.HistoryDays != 5 {
		t.Errorf("HistoryDays = %d, want 5", cfg.HistoryDays)
	}
	if cfg.DisplayLocation != time.Local {
		t.Errorf("DisplayLocation = %v, want Local", cfg.DisplayLocation)
	}
	if cfg.RequestTimeout <= cfg.WeatherAPITimeout+cfg.GeocoderTimeout {
		t.Errorf("RequestTimeout %v does not cover weather %v + geocoder %v", cfg.RequestTimeout, cfg.WeatherAPITimeout, cfg.GeocoderTimeout)
	}
	if cfg.TracingEndpoint != "" {
		t.Errorf("TracingEndpoint = %q, want empty (tracing off)", cfg.TracingEndpoint)
	}
	if cfg.TracingServiceName != "weather-lookup-web" {
		t.Errorf("TracingServiceName = %q", cfg.TracingServiceName)
	}
}

func TestLoad_FullFileAndOverrides(t *testing.T) {
	dir := isolate(t)
	writeEnvFile(t, dir, `
server:
  port: "9090"
weather_api:
  current_url: http://localhost:1/current
  historical_url: http://localhost:1/timemachine
  timeout: 3s
geocoder:
  backend: nominatim
  url: http://localhost:2
  user_agent: test-agent
  timeout: 1s
  miss_policy: reject
request:
  timeout: 10s
display:
  timezone: UTC
  history_days: 7
shutdown:
  timeout: 5s
  in_flight_timeout: 2s
  in_flight_check_interval: 50ms
health:
  degraded_window: 30s
  degraded_error_pct: 25
metrics:
  tracked_cities: [Seattle, Tokyo]
tracing:
  endpoint: collector:4317
  service_name: weather-web
`)
	t.Setenv("WEATHER_API_KEY", "test-key-1234567890")
	t.Setenv("GEOCODER_BACKEND", "google")
	t.Setenv("GEOCODER_API_KEY", "google-key")
	t.Setenv("DISPLAY_TIMEZONE", "Asia/Tokyo")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerPort != "9090" || cfg.WeatherCurrentURL != "http://localhost:1/current" || cfg.WeatherHistoricalURL != "http://localhost:1/timemachine" {
		t.Errorf("server/weather = %q %q %q", cfg.ServerPort, cfg.WeatherCurrentURL, cfg.WeatherHistoricalURL)
	}
	if cfg.GeocoderBackend != "google" || cfg.GeocoderAPIKey != "google-key" {
		t.Errorf("geocoder backend/key = %q/%q, want google/google-key", cfg.GeocoderBackend, cfg.GeocoderAPIKey)
	}
	if cfg.GeocoderURL != "http://localhost:2" || cfg.GeocoderUserAgent != "test-agent" || cfg.GeocoderMissPolicy != "reject" {
		t.Errorf("geocoder = %+v", cfg)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s", cfg.RequestTimeout)
	}
	if cfg.DisplayTimezone != "Asia/Tokyo" || cfg.DisplayLocation == nil || cfg.DisplayLocation.String() != "Asia/Tokyo" {
		t.Errorf("display timezone = %q / %v", cfg.DisplayTimezone, cfg.DisplayLocation)
	}
	if cfg.HistoryDays != 7 {
		t.Errorf("HistoryDays = %d, want 7", cfg.HistoryDays)
	}
	if cfg.ShutdownTimeout != 5*time.Second || cfg.ShutdownInFlightTimeout != 2*time.Second || cfg.ShutdownInFlightCheckInterval != 50*time.Millisecond {
		t.Errorf("shutdown = %v %v %v", cfg.ShutdownTimeout, cfg.ShutdownInFlightTimeout, cfg.ShutdownInFlightCheckInterval)
	}
	if cfg.DegradedWindow != 30*time.Second || cfg.DegradedErrorPct != 25 {
		t.Errorf("health = %v %d", cfg.DegradedWindow, cfg.DegradedErrorPct)
	}
	if len(cfg.TrackedCities) != 2 || cfg.TrackedCities[1] != "Tokyo" {
		t.Errorf("TrackedCities = %v", cfg.TrackedCities)
	}
	if cfg.TracingEndpoint != "collector:4317" || cfg.TracingServiceName != "weather-web" {
		t.Errorf("tracing = %q %q", cfg.TracingEndpoint, cfg.TracingServiceName)
	}
}

func TestLoad_EnvFileNotFound(t *testing.T) {
	isolate(t)
	t.Setenv("WEATHER_API_KEY", "test-key-1234567890")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("Load() error = %v, want config file not found", err)
	}
}

func TestLoad_InvalidDurationFallsBackToDefault(t *testing.T) {
	dir := isolate(t)
	writeEnvFile(t, dir, `
weather_api:
  timeout: soon
shutdown:
  timeout: -1s
`)
	t.Setenv("WEATHER_API_KEY", "test-key-1234567890")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WeatherAPITimeout != 2*time.Second {
		t.Errorf("WeatherAPITimeout = %v, want 2s default", cfg.WeatherAPITimeout)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 30s default", cfg.ShutdownTimeout)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
	}{
		{"zero weather timeout", "weather_api:\n  timeout: 0s\n", nil, "weather_api.timeout"},
		{"unknown backend", "geocoder:\n  backend: bing\n", nil, "geocoder.backend"},
		{"google without key", "geocoder:\n  backend: google\n", nil, "GEOCODER_API_KEY"},
		{"unknown miss policy", "geocoder:\n  miss_policy: guess\n", nil, "geocoder.miss_policy"},
		{"bad timezone", "display:\n  timezone: Mars/Olympus\n", nil, "display.timezone"},
		{"short key", minimalEnvYAML, map[string]string{"WEATHER_API_KEY": "short"}, "too short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			writeEnvFile(t, dir, tt.yaml)
			t.Setenv("WEATHER_API_KEY", "test-key-1234567890")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if err == nil {
				t.Fatalf("Load() = %+v, want error containing %q", cfg, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_InvalidSecretsYAML(t *testing.T) {
	dir := isolate(t)
	writeEnvFile(t, dir, minimalEnvYAML)
	writeSecretsFile(t, dir, "weather_api_key: [unclosed\n")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "parse secrets file") {
		t.Errorf("Load() error = %v, want parse secrets file", err)
	}
}

func TestLoad_InvalidConfigYAML(t *testing.T) {
	dir := isolate(t)
	writeEnvFile(t, dir, "server: [unclosed\n")
	t.Setenv("WEATHER_API_KEY", "test-key-1234567890")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "parse config file") {
		t.Errorf("Load() error = %v, want parse config file", err)
	}
}

func TestLoad_EnvNameSelectsFile(t *testing.T) {
	dir := isolate(t)
	writeEnvFile(t, dir, minimalEnvYAML)
	if err := os.WriteFile(filepath.Join(dir, "config", "prod.yaml"), []byte("server:\n  port: \"80\"\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("ENV_NAME", "prod")
	t.Setenv("WEATHER_API_KEY", "test-key-1234567890")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "80" {
		t.Errorf("ServerPort = %q, want 80", cfg.ServerPort)
	}
}
