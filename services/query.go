package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Landmarklens/ImobiliareScraper/models"
	"github.com/Landmarklens/ImobiliareScraper/pricing"
)

// Query defaults, overridable per call.
const (
	DefaultTopDropsWindowDays = 60
	DefaultTopDropsLimit      = 100
	DefaultRecentDropsDays    = 7
	DefaultMinDropPct         = 5.0
	DefaultRecentLimit        = 50
)

// QueryStore is the read-only persistence surface of the query service.
// Implementations must serve multi-row aggregates from a consistent
// snapshot without blocking writers.
type QueryStore interface {
	GetProperty(ctx context.Context, fingerprint string) (*models.PropertyRecord, error)
	GetPriceHistory(ctx context.Context, fingerprint string) ([]models.PriceHistoryEntry, error)
	TopDrops(ctx context.Context, windowDays, limit int) ([]models.PropertyRecord, error)
	RecentDrops(ctx context.Context, days int, minDropPct float64) ([]models.PropertyRecord, error)
	StatsByCity(ctx context.Context) ([]models.CityStats, error)
	CreationStats(ctx context.Context) (*models.CreationStats, error)
	ActiveAlerts(ctx context.Context, limit int) ([]models.PropertyRecord, error)
	RecentRecords(ctx context.Context, limit int) ([]models.PropertyRecord, error)
}

// PriceTrend is the per-record trend summary served to the monitoring
// surface.
type PriceTrend struct {
	Fingerprint           string                `json:"fingerprint"`
	Title                 string                `json:"title"`
	ExternalURL           string                `json:"external_url"`
	CurrentPriceRON       *float64              `json:"current_price_ron"`
	CurrentPriceEUR       *float64              `json:"current_price_eur"`
	PreviousPriceRON      *float64              `json:"previous_price_ron"`
	PreviousPriceEUR      *float64              `json:"previous_price_eur"`
	HighestPriceRON       *float64              `json:"highest_price_ron"`
	LowestPriceRON        *float64              `json:"lowest_price_ron"`
	PriceChangeCount      int                   `json:"price_change_count"`
	PriceLastChanged      *time.Time            `json:"price_last_changed"`
	PriceChangePercentage *float64              `json:"price_change_percentage"`
	Trend                 pricing.TrendCategory `json:"trend"`
}

// QueryService answers the read-side questions over reconciled records.
type QueryService struct {
	store  QueryStore
	logger zerolog.Logger
	now    func() time.Time
}

func NewQueryService(store QueryStore, logger zerolog.Logger) *QueryService {
	return &QueryService{store: store, logger: logger, now: time.Now}
}

// TopDrops returns up to limit records whose latest change is a drop
// within the trailing window, largest percentage first. Ties break on
// most recent change, then fingerprint.
func (s *QueryService) TopDrops(ctx context.Context, windowDays, limit int) ([]models.PropertyRecord, error) {
	if windowDays <= 0 {
		windowDays = DefaultTopDropsWindowDays
	}
	if limit <= 0 || limit > DefaultTopDropsLimit {
		limit = DefaultTopDropsLimit
	}
	records, err := s.store.TopDrops(ctx, windowDays, limit)
	if err != nil {
		return nil, fmt.Errorf("top drops: %w", err)
	}
	return records, nil
}

// RecentDrops returns active records whose drop exceeds minDropPct
// within the trailing days, largest drop first.
func (s *QueryService) RecentDrops(ctx context.Context, days int, minDropPct float64) ([]models.PropertyRecord, error) {
	if days <= 0 {
		days = DefaultRecentDropsDays
	}
	if minDropPct <= 0 {
		minDropPct = DefaultMinDropPct
	}
	records, err := s.store.RecentDrops(ctx, days, minDropPct)
	if err != nil {
		return nil, fmt.Errorf("recent drops: %w", err)
	}
	return records, nil
}

// StatsByCity aggregates change percentages per (city, property_type)
// over active records. Inactive and unavailable records are excluded.
func (s *QueryService) StatsByCity(ctx context.Context) ([]models.CityStats, error) {
	stats, err := s.store.StatsByCity(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats by city: %w", err)
	}
	return stats, nil
}

// CreationStats counts records by creation time.
func (s *QueryService) CreationStats(ctx context.Context) (*models.CreationStats, error) {
	stats, err := s.store.CreationStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("creation stats: %w", err)
	}
	return stats, nil
}

// PriceTrend summarizes a record's price movement and classifies it.
func (s *QueryService) PriceTrend(ctx context.Context, fingerprint string) (*PriceTrend, error) {
	record, err := s.store.GetProperty(ctx, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("get property: %w", err)
	}
	if record == nil {
		return nil, &models.NotFoundError{Fingerprint: fingerprint}
	}
	return &PriceTrend{
		Fingerprint:           record.Fingerprint,
		Title:                 record.Title,
		ExternalURL:           record.ExternalURL,
		CurrentPriceRON:       record.PriceRON,
		CurrentPriceEUR:       record.PriceEUR,
		PreviousPriceRON:      record.PreviousPriceRON,
		PreviousPriceEUR:      record.PreviousPriceEUR,
		HighestPriceRON:       record.HighestPriceRON,
		LowestPriceRON:        record.LowestPriceRON,
		PriceChangeCount:      record.PriceChangeCount,
		PriceLastChanged:      record.PriceLastChanged,
		PriceChangePercentage: record.PriceChangePercentage,
		Trend:                 pricing.Classify(record.PriceChangePercentage),
	}, nil
}

// PriceHistory returns the full retained ledger, oldest first.
func (s *QueryService) PriceHistory(ctx context.Context, fingerprint string) ([]models.PriceHistoryEntry, error) {
	record, err := s.store.GetProperty(ctx, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("get property: %w", err)
	}
	if record == nil {
		return nil, &models.NotFoundError{Fingerprint: fingerprint}
	}
	entries, err := s.store.GetPriceHistory(ctx, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("get price history: %w", err)
	}
	return entries, nil
}

// PriceHistoryWindow returns the ledger entries inside the trailing
// window, oldest first.
func (s *QueryService) PriceHistoryWindow(ctx context.Context, fingerprint string, window time.Duration) ([]models.PriceHistoryEntry, error) {
	ledger, err := s.loadLedger(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	return ledger.Within(s.now(), window), nil
}

// LatestPrices returns up to n ledger entries, most recent first.
func (s *QueryService) LatestPrices(ctx context.Context, fingerprint string, n int) ([]models.PriceHistoryEntry, error) {
	ledger, err := s.loadLedger(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	return ledger.Latest(n), nil
}

func (s *QueryService) loadLedger(ctx context.Context, fingerprint string) (*pricing.Ledger, error) {
	entries, err := s.PriceHistory(ctx, fingerprint)
	if err != nil {
		return nil, err
	}
	ledger := pricing.NewLedger(pricing.Retention{})
	for _, e := range entries {
		ledger.Append(e)
	}
	return ledger, nil
}

// ActiveAlerts lists records whose drop alert is currently up.
func (s *QueryService) ActiveAlerts(ctx context.Context, limit int) ([]models.PropertyRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	records, err := s.store.ActiveAlerts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("active alerts: %w", err)
	}
	return records, nil
}

// RecentRecords lists the newest records.
func (s *QueryService) RecentRecords(ctx context.Context, limit int) ([]models.PropertyRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	records, err := s.store.RecentRecords(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent records: %w", err)
	}
	return records, nil
}
