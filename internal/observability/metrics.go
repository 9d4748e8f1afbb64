package observability

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Dominated by the upstream calls on result pages.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// OpenWeatherMap call rate by endpoint (current, timemachine) and status.
	WeatherAPICallsTotal *prometheus.CounterVec

	// OpenWeatherMap latency by endpoint. Watch for: p95 > 2s (upstream degradation).
	WeatherAPIDuration *prometheus.HistogramVec

	// Geocoding lookups by backend and result (found, miss, error).
	GeocodeLookupsTotal *prometheus.CounterVec

	// Geocoding latency by backend.
	GeocodeDuration *prometheus.HistogramVec

	// Page renders by page (home, results, historical_results, error) and outcome.
	PageRendersTotal *prometheus.CounterVec

	// Error pages served by error category. Watch for: spikes in upstream_5xx or parsing.
	PageErrorsTotal *prometheus.CounterVec

	// Total city lookups on result pages.
	CityQueriesTotal prometheus.Counter

	// Per-city lookups (allow-list; others go to "other").
	CityQueriesByNameTotal *prometheus.CounterVec

	trackedCitiesMu sync.RWMutex
	trackedCities   map[string]struct{}
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of OpenWeatherMap API calls",
		},
		[]string{"endpoint", "status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "OpenWeatherMap API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "status"},
	)
	GeocodeLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocodeLookupsTotal",
			Help: "Total number of geocoding lookups by backend and result",
		},
		[]string{"backend", "result"},
	)
	GeocodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geocodeDurationSeconds",
			Help:    "Geocoding latency in seconds (per lookup)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"backend"},
	)
	PageRendersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pageRendersTotal",
			Help: "Total number of HTML page renders by page and outcome",
		},
		[]string{"page", "outcome"},
	)
	PageErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pageErrorsTotal",
			Help: "Total number of error pages served by error category",
		},
		[]string{"category"},
	)
	CityQueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cityQueriesTotal",
			Help: "Total number of city lookups on result pages",
		},
	)
	CityQueriesByNameTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cityQueriesByNameTotal",
			Help: "City lookups by city (allow-list; others use city=other)",
		},
		[]string{"city", "page"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		WeatherAPICallsTotal, WeatherAPIDuration,
		GeocodeLookupsTotal, GeocodeDuration,
		PageRendersTotal, PageErrorsTotal,
		CityQueriesTotal, CityQueriesByNameTotal,
	)
}

// SetTrackedCities sets the allow-list for per-city metrics. Other cities increment "other".
func SetTrackedCities(cities []string) {
	trackedCitiesMu.Lock()
	defer trackedCitiesMu.Unlock()
	trackedCities = make(map[string]struct{}, len(cities))
	for _, c := range cities {
		trackedCities[normalizeCityForMetrics(c)] = struct{}{}
	}
}

// RecordCityQuery records a city lookup made by the given page.
func RecordCityQuery(city, page string) {
	CityQueriesTotal.Inc()
	CityQueriesByNameTotal.WithLabelValues(MetricCityLabel(city), page).Inc()
}

// MetricCityLabel returns the normalized city when tracked, "other" otherwise.
func MetricCityLabel(city string) string {
	c := normalizeCityForMetrics(city)
	trackedCitiesMu.RLock()
	_, ok := trackedCities[c] // nil map read is safe in Go
	trackedCitiesMu.RUnlock()
	if ok {
		return c
	}
	return "other"
}

func normalizeCityForMetrics(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
