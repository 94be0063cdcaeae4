package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/Landmarklens/ImobiliareScraper/models"
	"github.com/Landmarklens/ImobiliareScraper/services"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type observationsRequest struct {
	Source       string               `json:"source"`
	Observations []models.Observation `json:"observations"`
}

func (s *Server) handleObservations(w http.ResponseWriter, r *http.Request) {
	var req observationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if len(req.Observations) == 0 {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no observations"})
		return
	}

	result, err := s.reconciler.ReconcileBatch(r.Context(), req.Source, req.Observations)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

type notFoundRequest struct {
	Fingerprints []string `json:"fingerprints"`
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	var req notFoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if len(req.Fingerprints) == 0 {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no fingerprints"})
		return
	}

	marked := 0
	missing := make([]string, 0)
	for _, fp := range req.Fingerprints {
		err := s.reconciler.MarkNotFound(r.Context(), fp)
		if err != nil {
			var nfErr *models.NotFoundError
			if errors.As(err, &nfErr) {
				missing = append(missing, fp)
				continue
			}
			s.writeError(w, err)
			return
		}
		marked++
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"marked_inactive": marked, "missing": missing})
}

type commandRequest struct {
	Command string          `json:"command"`
	Params  json.RawMessage `json:"params"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	cmd := models.CommandType(req.Command)
	switch cmd {
	case models.CmdRefreshAlerts, models.CmdPruneHistory:
	default:
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown command: " + req.Command})
		return
	}

	if err := s.ops.EnqueueCommand(cmd, req.Params); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"queued": req.Command})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.queries.CreationStats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleCityStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.queries.StatsByCity(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"cities": emptySlice(stats)})
}

func (s *Server) handlePriceDecreases(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", services.DefaultRecentDropsDays)
	minDrop := queryFloat(r, "min_drop", services.DefaultMinDropPct)

	records, err := s.queries.RecentDrops(r.Context(), days, minDrop)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":      len(records),
		"properties": emptySlice(records),
	})
}

func (s *Server) handleTopDrops(w http.ResponseWriter, r *http.Request) {
	windowDays := queryInt(r, "window_days", services.DefaultTopDropsWindowDays)
	limit := queryInt(r, "limit", services.DefaultTopDropsLimit)

	records, err := s.queries.TopDrops(r.Context(), windowDays, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":      len(records),
		"properties": emptySlice(records),
	})
}

func (s *Server) handlePriceTrend(w http.ResponseWriter, r *http.Request) {
	fingerprint := mux.Vars(r)["fingerprint"]
	trend, err := s.queries.PriceTrend(r.Context(), fingerprint)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, trend)
}

func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	fingerprint := mux.Vars(r)["fingerprint"]

	var history []models.PriceHistoryEntry
	var err error
	switch {
	case queryInt(r, "days", 0) > 0:
		days := queryInt(r, "days", 0)
		history, err = s.queries.PriceHistoryWindow(r.Context(), fingerprint, time.Duration(days)*24*time.Hour)
	case queryInt(r, "latest", 0) > 0:
		history, err = s.queries.LatestPrices(r.Context(), fingerprint, queryInt(r, "latest", 0))
	default:
		history, err = s.queries.PriceHistory(r.Context(), fingerprint)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"fingerprint": fingerprint,
		"history":     emptySlice(history),
	})
}

func (s *Server) handlePriceAlerts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", services.DefaultRecentLimit)
	records, err := s.queries.ActiveAlerts(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":      len(records),
		"properties": emptySlice(records),
	})
}

func (s *Server) handleRecentProperties(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", services.DefaultRecentLimit)
	records, err := s.queries.RecentRecords(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"count":      len(records),
		"properties": emptySlice(records),
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	runs, err := s.ops.RecentRuns(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": emptySlice(runs)})
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultVal
	}
	return v
}

func queryFloat(r *http.Request, key string, defaultVal float64) float64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultVal
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return defaultVal
	}
	return v
}

// emptySlice keeps JSON arrays as [] instead of null for nil slices.
func emptySlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
