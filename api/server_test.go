package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Landmarklens/ImobiliareScraper/config"
	"github.com/Landmarklens/ImobiliareScraper/models"
	"github.com/Landmarklens/ImobiliareScraper/services"
	"github.com/Landmarklens/ImobiliareScraper/storage"
)

// memStore backs the handlers with an in-memory reconcile/query surface.
type memStore struct {
	mu      sync.Mutex
	records map[string]*models.PropertyRecord
	history map[string][]models.PriceHistoryEntry
}

func newMemStore() *memStore {
	return &memStore{
		records: make(map[string]*models.PropertyRecord),
		history: make(map[string][]models.PriceHistoryEntry),
	}
}

func (m *memStore) ApplyReconcile(ctx context.Context, fingerprint string, plan models.PlanFunc) (*models.ReconcilePlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var existing *models.PropertyRecord
	if rec, ok := m.records[fingerprint]; ok {
		snapshot := *rec
		existing = &snapshot
	}
	applied, err := plan(existing)
	if err != nil {
		return nil, err
	}
	m.records[fingerprint] = applied.Record
	if applied.HistoryEntry != nil {
		m.history[fingerprint] = append(m.history[fingerprint], *applied.HistoryEntry)
	}
	return applied, nil
}

func (m *memStore) SetStatus(ctx context.Context, fingerprint string, status models.PropertyStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[fingerprint]
	if !ok {
		return false, nil
	}
	rec.Status = status
	return true, nil
}

func (m *memStore) GetProperty(ctx context.Context, fingerprint string) (*models.PropertyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[fingerprint]
	if !ok {
		return nil, nil
	}
	snapshot := *rec
	return &snapshot, nil
}

func (m *memStore) GetPriceHistory(ctx context.Context, fingerprint string) ([]models.PriceHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history[fingerprint], nil
}

func (m *memStore) TopDrops(ctx context.Context, windowDays, limit int) ([]models.PropertyRecord, error) {
	return m.withDrops(), nil
}

func (m *memStore) RecentDrops(ctx context.Context, days int, minDropPct float64) ([]models.PropertyRecord, error) {
	return m.withDrops(), nil
}

func (m *memStore) withDrops() []models.PropertyRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PropertyRecord
	for _, rec := range m.records {
		if rec.PriceChangePercentage != nil && *rec.PriceChangePercentage > 0 {
			out = append(out, *rec)
		}
	}
	return out
}

func (m *memStore) StatsByCity(ctx context.Context) ([]models.CityStats, error) {
	return nil, nil
}

func (m *memStore) CreationStats(ctx context.Context) (*models.CreationStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &models.CreationStats{Total: len(m.records)}, nil
}

func (m *memStore) ActiveAlerts(ctx context.Context, limit int) ([]models.PropertyRecord, error) {
	return nil, nil
}

func (m *memStore) RecentRecords(ctx context.Context, limit int) ([]models.PropertyRecord, error) {
	return nil, nil
}

func newTestServer(t *testing.T) (*Server, *memStore) {
	t.Helper()

	store := newMemStore()
	logger := zerolog.Nop()

	ops, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "ops.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ops.Close() })

	reconciler := services.NewReconciler(store, config.DefaultTracker(), logger)
	reconciler.SetJournal(ops)
	queries := services.NewQueryService(store, logger)

	return NewServer(reconciler, queries, ops, logger), store
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestPostObservations(t *testing.T) {
	srv, store := newTestServer(t)

	price := 500000.0
	body := observationsRequest{
		Source: "imobiliare",
		Observations: []models.Observation{
			{Source: "imobiliare", ExternalID: "A100", Title: "Apartament", PriceRON: &price},
		},
	}

	rr := doJSON(t, srv, http.MethodPost, "/api/observations", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var result services.BatchResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Observations)
	assert.Equal(t, 1, result.RecordsNew)
	assert.Len(t, store.records, 1)
	assert.NotZero(t, result.RunID)
}

func TestPostObservationsEmptyBatch(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/observations", observationsRequest{Source: "imobiliare"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPriceTrendEndpoint(t *testing.T) {
	srv, store := newTestServer(t)

	price := 450000.0
	prev := 500000.0
	pct := 10.0
	store.records["fp1"] = &models.PropertyRecord{
		Fingerprint:           "fp1",
		PriceRON:              &price,
		PreviousPriceRON:      &prev,
		PriceChangePercentage: &pct,
		PriceChangeCount:      1,
	}

	rr := doJSON(t, srv, http.MethodGet, "/api/price-trend/fp1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var trend services.PriceTrend
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &trend))
	assert.Equal(t, "price_drop", string(trend.Trend))
	assert.Equal(t, 450000.0, *trend.CurrentPriceRON)
}

func TestPriceTrendNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/price-trend/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMarkNotFoundEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	store.records["fp1"] = &models.PropertyRecord{Fingerprint: "fp1", Status: models.StatusActive}

	rr := doJSON(t, srv, http.MethodPost, "/api/not-found", notFoundRequest{
		Fingerprints: []string{"fp1", "unknown"},
	})
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		MarkedInactive int      `json:"marked_inactive"`
		Missing        []string `json:"missing"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.MarkedInactive)
	assert.Equal(t, []string{"unknown"}, resp.Missing)
	assert.Equal(t, models.StatusInactive, store.records["fp1"].Status)
}

func TestCommandEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodPost, "/api/commands", commandRequest{Command: "refresh_alerts"})
	assert.Equal(t, http.StatusAccepted, rr.Code)

	rr = doJSON(t, srv, http.MethodPost, "/api/commands", commandRequest{Command: "format_disk"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	pending, err := srv.ops.GetPendingCommands()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.CmdRefreshAlerts, pending[0].Command)
}

func TestPriceDropsAliasesPriceDecreases(t *testing.T) {
	srv, store := newTestServer(t)

	price := 450000.0
	pct := 10.0
	store.records["fp1"] = &models.PropertyRecord{
		Fingerprint:           "fp1",
		Status:                models.StatusActive,
		PriceRON:              &price,
		PriceChangePercentage: &pct,
	}

	for _, path := range []string{"/api/price-decreases", "/api/price-drops"} {
		rr := doJSON(t, srv, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rr.Code, path)

		var resp struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Count, path)
	}
}

func TestPriceHistoryEndpointViews(t *testing.T) {
	srv, store := newTestServer(t)

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	price1, price2 := 500000.0, 450000.0
	store.records["fp1"] = &models.PropertyRecord{Fingerprint: "fp1"}
	store.history["fp1"] = []models.PriceHistoryEntry{
		{Fingerprint: "fp1", ObservedAt: base, PriceRON: &price1},
		{Fingerprint: "fp1", ObservedAt: base.Add(24 * time.Hour), PriceRON: &price2},
	}

	rr := doJSON(t, srv, http.MethodGet, "/api/price-history/fp1", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		History []models.PriceHistoryEntry `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.History, 2)

	rr = doJSON(t, srv, http.MethodGet, "/api/price-history/fp1?latest=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.History, 1)
	assert.Equal(t, 450000.0, *resp.History[0].PriceRON)
}

func TestTopDropsEndpointEmpty(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/api/top-drops", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"count":0,"properties":[]}`, rr.Body.String())
}
