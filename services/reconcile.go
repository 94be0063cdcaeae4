package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Landmarklens/ImobiliareScraper/config"
	"github.com/Landmarklens/ImobiliareScraper/identity"
	"github.com/Landmarklens/ImobiliareScraper/metrics"
	"github.com/Landmarklens/ImobiliareScraper/models"
	"github.com/Landmarklens/ImobiliareScraper/pricing"
)

// ReconcileStore is the persistence surface the reconciler needs. The
// implementation must run the plan callback under a per-fingerprint lock
// and apply the returned plan atomically, returning
// models.ErrWriteConflict on retryable contention.
type ReconcileStore interface {
	ApplyReconcile(ctx context.Context, fingerprint string, plan models.PlanFunc) (*models.ReconcilePlan, error)
	SetStatus(ctx context.Context, fingerprint string, status models.PropertyStatus) (bool, error)
}

// RunJournal records ingest batches. Nil-able: one-shot reconciles skip
// journaling.
type RunJournal interface {
	CreateRun(run *models.IngestRun) (int64, error)
	UpdateRun(run *models.IngestRun) error
}

// ReconcileResult is the outcome of merging one observation.
type ReconcileResult struct {
	Outcome     models.ReconcileOutcome
	Fingerprint string
	Change      *pricing.Change
	Trend       pricing.TrendCategory
}

// Reconciler turns raw observations into identity-tracked records with
// bounded price history.
type Reconciler struct {
	store   ReconcileStore
	journal RunJournal
	cfg     config.TrackerConfig
	rec     *metrics.Recorder
	logger  zerolog.Logger
	now     func() time.Time
}

func NewReconciler(store ReconcileStore, cfg config.TrackerConfig, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// SetJournal registers the run journal for batch ingests.
func (r *Reconciler) SetJournal(j RunJournal) { r.journal = j }

// SetMetrics registers the metrics recorder.
func (r *Reconciler) SetMetrics(rec *metrics.Recorder) { r.rec = rec }

// Reconcile merges one observation into the store. Concurrent calls for
// the same fingerprint behave as if serialized; write collisions are
// retried up to the configured bound and then surfaced as a transient
// ConflictError. The observation is never silently dropped.
func (r *Reconciler) Reconcile(ctx context.Context, obs *models.Observation) (*ReconcileResult, error) {
	if err := obs.Validate(); err != nil {
		r.rec.IncValidationError()
		return nil, err
	}

	fingerprint := identity.Fingerprint(obs)
	now := r.now()
	if obs.ObservedAt.IsZero() {
		obs.ObservedAt = now
	}

	started := now
	var applied *models.ReconcilePlan
	var err error
	for attempt := 1; ; attempt++ {
		applied, err = r.store.ApplyReconcile(ctx, fingerprint, r.plan(obs, fingerprint, now))
		if err == nil {
			break
		}
		if !errors.Is(err, models.ErrWriteConflict) {
			return nil, fmt.Errorf("reconcile %s: %w", fingerprint, err)
		}
		r.rec.IncWriteConflict()
		if attempt >= r.cfg.MaxRetries {
			return nil, &models.ConflictError{Fingerprint: fingerprint, Attempts: attempt}
		}
		r.logger.Debug().Str("fingerprint", fingerprint).Int("attempt", attempt).Msg("write conflict, retrying reconcile")
	}
	r.rec.ObserveReconcile(time.Since(started))
	r.rec.IncObservation(string(applied.Outcome))

	result := &ReconcileResult{
		Outcome:     applied.Outcome,
		Fingerprint: fingerprint,
		Trend:       pricing.TrendUnknown,
	}
	if applied.Outcome == models.OutcomePriceChanged {
		rec := applied.Record
		change := pricing.Change{Percentage: rec.PriceChangePercentage}
		if rec.PriceChangeRON != nil {
			change.AbsoluteRON = *rec.PriceChangeRON
		}
		change.AbsoluteEUR = rec.PriceChangeEUR
		result.Change = &change
		result.Trend = pricing.Classify(rec.PriceChangePercentage)

		if rec.PriceDropAlert {
			r.logger.Warn().
				Str("fingerprint", fingerprint).
				Float64("change_pct", deref(rec.PriceChangePercentage)).
				Msg("price drop alert raised")
		}
	}
	return result, nil
}

// MarkNotFound handles the crawl layer's "listing not found" event: the
// record transitions to inactive, it is never deleted.
func (r *Reconciler) MarkNotFound(ctx context.Context, fingerprint string) error {
	found, err := r.store.SetStatus(ctx, fingerprint, models.StatusInactive)
	if err != nil {
		return fmt.Errorf("mark not found %s: %w", fingerprint, err)
	}
	if !found {
		return &models.NotFoundError{Fingerprint: fingerprint}
	}
	r.logger.Info().Str("fingerprint", fingerprint).Msg("record marked inactive")
	return nil
}

// plan builds the PlanFunc for one observation. It captures only values,
// so the returned closure is pure and safe to re-run on retry.
func (r *Reconciler) plan(obs *models.Observation, fingerprint string, now time.Time) models.PlanFunc {
	return func(existing *models.PropertyRecord) (*models.ReconcilePlan, error) {
		if existing == nil {
			return r.planCreate(obs, fingerprint, now), nil
		}
		return r.planUpdate(existing, obs, now), nil
	}
}

func (r *Reconciler) planCreate(obs *models.Observation, fingerprint string, now time.Time) *models.ReconcilePlan {
	status := obs.Status
	if status == "" {
		status = models.StatusActive
	}
	record := &models.PropertyRecord{
		ID:             uuid.New(),
		Fingerprint:    fingerprint,
		ExternalSource: obs.Source,
		ExternalID:     obs.ExternalID,
		ExternalURL:    obs.URL,
		Title:          obs.Title,
		Description:    obs.Description,
		PropertyType:   obs.PropertyType,
		DealType:       obs.DealType,
		Country:        obs.Country,
		County:         obs.County,
		City:           obs.City,
		Neighborhood:   obs.Neighborhood,
		Address:        obs.Address,
		Latitude:       obs.Latitude,
		Longitude:      obs.Longitude,
		SquareMeters:   obs.SquareMeters,
		RoomCount:      obs.RoomCount,
		Floor:          obs.Floor,
		PriceRON:       obs.PriceRON,
		PriceEUR:       obs.PriceEUR,
		Currency:       obs.Currency,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if record.Currency == "" {
		record.Currency = "RON"
	}
	if obs.PriceRON != nil {
		record.HighestPriceRON = obs.PriceRON
		record.LowestPriceRON = obs.PriceRON
	}

	plan := &models.ReconcilePlan{Record: record, Outcome: models.OutcomeCreated}
	if obs.PriceRON != nil || obs.PriceEUR != nil {
		plan.HistoryEntry = &models.PriceHistoryEntry{
			Fingerprint: fingerprint,
			ObservedAt:  obs.ObservedAt,
			PriceRON:    obs.PriceRON,
			PriceEUR:    obs.PriceEUR,
		}
	}
	return plan
}

func (r *Reconciler) planUpdate(existing *models.PropertyRecord, obs *models.Observation, now time.Time) *models.ReconcilePlan {
	next := *existing
	next.UpdatedAt = now
	changes := map[string]models.FieldChange{}

	updateStr(&next.Title, obs.Title, "title", changes)
	updateStr(&next.Description, obs.Description, "description", changes)
	updateStr(&next.PropertyType, obs.PropertyType, "property_type", changes)
	updateStr(&next.DealType, obs.DealType, "deal_type", changes)
	updateStr(&next.Country, obs.Country, "country", changes)
	updateStr(&next.County, obs.County, "county", changes)
	updateStr(&next.City, obs.City, "city", changes)
	updateStr(&next.Neighborhood, obs.Neighborhood, "neighborhood", changes)
	updateStr(&next.Address, obs.Address, "address", changes)
	updateStr(&next.ExternalURL, obs.URL, "external_url", changes)
	updateStr(&next.Currency, obs.Currency, "currency", changes)
	updateIntPtr(&next.SquareMeters, obs.SquareMeters, "square_meters", changes)
	updateIntPtr(&next.RoomCount, obs.RoomCount, "room_count", changes)
	updateIntPtr(&next.Floor, obs.Floor, "floor", changes)
	if obs.Latitude != nil {
		next.Latitude = obs.Latitude
	}
	if obs.Longitude != nil {
		next.Longitude = obs.Longitude
	}
	if obs.Status != "" && obs.Status != existing.Status {
		changes["status"] = models.FieldChange{Old: string(existing.Status), New: string(obs.Status)}
		next.Status = obs.Status
	}

	plan := &models.ReconcilePlan{Record: &next}

	switch {
	case obs.PriceRON == nil:
		// Price withheld ("price on request"): record the transition via
		// status/descriptive fields, never compute against null and never
		// append a null ledger entry.
		plan.Outcome = models.OutcomeUnchanged

	case existing.PriceRON == nil:
		// Known record priced for the first time: initialize the price
		// fields as a create would. No percentage, no alert, no
		// change-count increment.
		next.PriceRON = obs.PriceRON
		next.PriceEUR = obs.PriceEUR
		next.HighestPriceRON = obs.PriceRON
		next.LowestPriceRON = obs.PriceRON
		changes["price_ron"] = models.FieldChange{Old: nil, New: *obs.PriceRON}
		plan.Outcome = models.OutcomePriceInitialized
		plan.HistoryEntry = &models.PriceHistoryEntry{
			Fingerprint: existing.Fingerprint,
			ObservedAt:  obs.ObservedAt,
			PriceRON:    obs.PriceRON,
			PriceEUR:    obs.PriceEUR,
		}

	case pricing.Equal(*existing.PriceRON, *obs.PriceRON, r.cfg.PriceEpsilon):
		plan.Outcome = models.OutcomeUnchanged

	default:
		oldRON, newRON := *existing.PriceRON, *obs.PriceRON
		change := pricing.Compute(oldRON, newRON, existing.PriceEUR, obs.PriceEUR)
		changes["price_ron"] = models.FieldChange{Old: oldRON, New: newRON}

		next.PreviousPriceRON = existing.PriceRON
		next.PreviousPriceEUR = existing.PriceEUR
		next.PriceRON = obs.PriceRON
		if obs.PriceEUR != nil {
			next.PriceEUR = obs.PriceEUR
		}
		next.PriceChangeRON = &change.AbsoluteRON
		next.PriceChangeEUR = change.AbsoluteEUR
		next.PriceChangePercentage = change.Percentage
		next.PriceLastChanged = &now
		next.PriceChangeCount = existing.PriceChangeCount + 1
		next.HighestPriceRON = maxPtr(existing.HighestPriceRON, newRON)
		next.LowestPriceRON = minPtr(existing.LowestPriceRON, newRON)
		next.PriceDropAlert = change.Percentage != nil && *change.Percentage >= r.cfg.DropAlertThreshold

		plan.Outcome = models.OutcomePriceChanged
		plan.HistoryEntry = &models.PriceHistoryEntry{
			Fingerprint: existing.Fingerprint,
			ObservedAt:  obs.ObservedAt,
			PriceRON:    obs.PriceRON,
			PriceEUR:    next.PriceEUR,
		}
	}

	if len(changes) > 0 {
		plan.ChangeLog = &models.ChangeLogEntry{
			Fingerprint: existing.Fingerprint,
			Changes:     changes,
			ChangeCount: len(changes),
			ChangedAt:   now,
		}
	}
	return plan
}

func updateStr(dst *string, val, field string, changes map[string]models.FieldChange) {
	if val == "" || val == *dst {
		return
	}
	changes[field] = models.FieldChange{Old: *dst, New: val}
	*dst = val
}

func updateIntPtr(dst **int, val *int, field string, changes map[string]models.FieldChange) {
	if val == nil {
		return
	}
	if *dst != nil && **dst == *val {
		return
	}
	var old interface{}
	if *dst != nil {
		old = **dst
	}
	changes[field] = models.FieldChange{Old: old, New: *val}
	*dst = val
}

func maxPtr(cur *float64, v float64) *float64 {
	if cur == nil || v > *cur {
		return &v
	}
	return cur
}

func minPtr(cur *float64, v float64) *float64 {
	if cur == nil || v < *cur {
		return &v
	}
	return cur
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
