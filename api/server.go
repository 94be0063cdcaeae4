package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Landmarklens/ImobiliareScraper/models"
	"github.com/Landmarklens/ImobiliareScraper/services"
	"github.com/Landmarklens/ImobiliareScraper/storage"
)

// Server exposes the reconciler and the read-side queries over HTTP.
type Server struct {
	reconciler *services.Reconciler
	queries    *services.QueryService
	ops        *storage.SQLiteStore
	logger     zerolog.Logger
	router     *mux.Router
}

func NewServer(reconciler *services.Reconciler, queries *services.QueryService, ops *storage.SQLiteStore, logger zerolog.Logger) *Server {
	s := &Server{
		reconciler: reconciler,
		queries:    queries,
		ops:        ops,
		logger:     logger.With().Str("component", "api").Logger(),
		router:     mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/observations", s.handleObservations).Methods(http.MethodPost)
	api.HandleFunc("/not-found", s.handleNotFound).Methods(http.MethodPost)
	api.HandleFunc("/commands", s.handleCommand).Methods(http.MethodPost)

	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/stats/cities", s.handleCityStats).Methods(http.MethodGet)
	api.HandleFunc("/price-decreases", s.handlePriceDecreases).Methods(http.MethodGet)
	api.HandleFunc("/price-drops", s.handlePriceDecreases).Methods(http.MethodGet)
	api.HandleFunc("/top-drops", s.handleTopDrops).Methods(http.MethodGet)
	api.HandleFunc("/price-trend/{fingerprint}", s.handlePriceTrend).Methods(http.MethodGet)
	api.HandleFunc("/price-history/{fingerprint}", s.handlePriceHistory).Methods(http.MethodGet)
	api.HandleFunc("/price-alerts", s.handlePriceAlerts).Methods(http.MethodGet)
	api.HandleFunc("/recent-properties", s.handleRecentProperties).Methods(http.MethodGet)
	api.HandleFunc("/runs", s.handleRuns).Methods(http.MethodGet)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("encode response")
	}
}

// writeError maps the domain error types onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		validationErr *models.ValidationError
		notFoundErr   *models.NotFoundError
		conflictErr   *models.ConflictError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &notFoundErr):
		status = http.StatusNotFound
	case errors.As(err, &conflictErr):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("request failed")
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
