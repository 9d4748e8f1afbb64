package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-web/internal/observability"
)

// NewRouter registers the page routes, /health and /metrics. Page routes get
// the request timeout; /health and /metrics do not.
func NewRouter(h *Handler, logger *zap.Logger, requestTimeout time.Duration) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.Use(TracingMiddleware)

	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	pages := router.NewRoute().Subrouter()
	pages.Use(TimeoutMiddleware(requestTimeout))
	pages.HandleFunc("/", h.Home).Methods(http.MethodGet)
	pages.HandleFunc("/results", h.Results).Methods(http.MethodGet)
	pages.HandleFunc("/historical_results", h.HistoricalResults).Methods(http.MethodGet)

	return router
}
