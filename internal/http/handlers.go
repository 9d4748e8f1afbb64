package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-web/internal/client"
	"github.com/kjstillabower/weather-lookup-web/internal/geocode"
	"github.com/kjstillabower/weather-lookup-web/internal/lifecycle"
	"github.com/kjstillabower/weather-lookup-web/internal/observability"
	"github.com/kjstillabower/weather-lookup-web/internal/service"
	"github.com/kjstillabower/weather-lookup-web/internal/traffic"
	"github.com/kjstillabower/weather-lookup-web/internal/validation"
	"github.com/kjstillabower/weather-lookup-web/internal/views"
)

// HealthConfig holds thresholds for the health handler.
type HealthConfig struct {
	ServiceName      string
	Version          string
	DegradedWindow   time.Duration
	DegradedErrorPct int
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	views            *service.ViewService
	client           client.WeatherClient
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

func NewHandler(
	viewService *service.ViewService,
	client client.WeatherClient,
	healthConfig *HealthConfig,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		views:        viewService,
		client:       client,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// Home handles GET /.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	page := h.views.Home()
	h.renderPage(w, r, "home", http.StatusOK, func(buf *bytes.Buffer) error {
		return views.RenderHome(buf, page)
	})
}

// Results handles GET /results?city=&units=.
func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	q, err := validation.ParseCurrentQuery(r.URL.Query())
	if err != nil {
		h.writeBadRequest(w, r, err)
		return
	}

	page, err := h.views.Current(r.Context(), q)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}
	traffic.RecordSuccess()
	h.renderPage(w, r, "results", http.StatusOK, func(buf *bytes.Buffer) error {
		return views.RenderResults(buf, page)
	})
}

// HistoricalResults handles GET /historical_results?city=&date=&units=.
func (h *Handler) HistoricalResults(w http.ResponseWriter, r *http.Request) {
	q, err := validation.ParseHistoricalQuery(r.URL.Query(), h.views.Location())
	if err != nil {
		h.writeBadRequest(w, r, err)
		return
	}

	page, err := h.views.Historical(r.Context(), q)
	if err != nil {
		h.writeLookupError(w, r, err)
		return
	}
	traffic.RecordSuccess()
	h.renderPage(w, r, "historical_results", http.StatusOK, func(buf *bytes.Buffer) error {
		return views.RenderHistorical(buf, page)
	})
}

// renderPage renders into a buffer first so a template failure never leaves
// a half-written page on the wire.
func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, page string, status int, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		observability.PageRendersTotal.WithLabelValues(page, "error").Inc()
		observability.LoggerFromContext(r.Context()).Error("render page", zap.String("page", page), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	observability.PageRendersTotal.WithLabelValues(page, "success").Inc()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) writeErrorPage(w http.ResponseWriter, r *http.Request, status int, category client.ErrorCategory, title, message string) {
	observability.PageErrorsTotal.WithLabelValues(string(category)).Inc()
	page := &views.ErrorPage{
		Status:        status,
		Title:         title,
		Message:       message,
		CorrelationID: observability.CorrelationIDFromContext(r.Context()),
	}
	h.renderPage(w, r, "error", status, func(buf *bytes.Buffer) error {
		return views.RenderError(buf, page)
	})
}

func (h *Handler) writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context()).Debug("invalid query", zap.Error(err))
	msg := "Please provide a city name."
	if errors.Is(err, validation.ErrInvalidDate) {
		msg = "Please provide a date in YYYY-MM-DD format."
	} else if errors.Is(err, validation.ErrCityInvalidChars) || errors.Is(err, validation.ErrCityTooLong) ||
		errors.Is(err, validation.ErrCityNoLetters) {
		msg = "That city name is not valid."
	}
	h.writeErrorPage(w, r, http.StatusBadRequest, client.ErrorCategoryValidation, "Invalid request", msg)
}

// writeLookupError maps a view-builder failure to an error page and records
// upstream failures in the traffic window. A "not found" answer is a valid
// upstream response and is not counted as a failure.
func (h *Handler) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	logger := observability.LoggerFromContext(r.Context())
	category := client.CategorizeError(err)

	switch {
	case errors.Is(err, client.ErrLocationNotFound):
		traffic.RecordSuccess()
		logger.Info("location not found", zap.Error(err))
		h.writeErrorPage(w, r, http.StatusNotFound, category, "Location not found",
			"The weather service does not recognise that city.")
	case errors.Is(err, service.ErrLocationUnresolved):
		traffic.RecordSuccess()
		logger.Info("location not geocoded", zap.Error(err))
		h.writeErrorPage(w, r, http.StatusNotFound, client.ErrorCategoryGeocoding, "Location not found",
			"That city could not be located.")
	case isTimeout(err):
		traffic.RecordFailure()
		logger.Warn("lookup timed out", zap.Error(err))
		h.writeErrorPage(w, r, http.StatusServiceUnavailable, client.ErrorCategoryTimeout, "Weather service unavailable",
			"The weather service took too long to respond. Please try again.")
	case errors.Is(err, client.ErrRateLimited):
		traffic.RecordFailure()
		logger.Warn("provider rate limited", zap.Error(err))
		h.writeErrorPage(w, r, http.StatusServiceUnavailable, category, "Weather service unavailable",
			"The weather service is busy. Please try again shortly.")
	default:
		traffic.RecordFailure()
		if errors.Is(err, geocode.ErrGeocoderFailure) {
			category = client.ErrorCategoryGeocoding
		}
		logger.Error("lookup failed", zap.String("category", string(category)), zap.Error(err))
		h.writeErrorPage(w, r, http.StatusBadGateway, category, "Weather lookup failed",
			"The weather service returned an unexpected response.")
	}
}

// isTimeout reports whether err is a deadline or transport timeout. The
// metrics category is not used here because it can match text in the city.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"weatherApi": "healthy"}
	if result.status == "degraded" {
		checks["weatherApi"] = "unhealthy"
	}
	name, version := "weather-lookup-web", "dev"
	if h.healthConfig != nil {
		if h.healthConfig.ServiceName != "" {
			name = h.healthConfig.ServiceName
		}
		if h.healthConfig.Version != "" {
			version = h.healthConfig.Version
		}
	}
	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":    result.status,
		"reason":    result.reason,
		"service":   name,
		"version":   version,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates, in priority order:
// shutting-down > API key invalid > upstream error rate > healthy.
func (h *Handler) computeHealthStatus(ctx context.Context) healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if err := h.client.ValidateAPIKey(ctx); err != nil {
		return healthResult{"degraded", http.StatusServiceUnavailable, "api_key_invalid"}
	}
	if h.healthConfig != nil && traffic.Degraded(h.healthConfig.DegradedWindow, h.healthConfig.DegradedErrorPct) {
		return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
