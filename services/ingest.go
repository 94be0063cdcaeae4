package services

import (
	"context"
	"errors"

	"github.com/Landmarklens/ImobiliareScraper/models"
)

// ItemResult is the per-observation outcome within a batch.
type ItemResult struct {
	Fingerprint string                  `json:"fingerprint"`
	Outcome     models.ReconcileOutcome `json:"outcome,omitempty"`
	Error       string                  `json:"error,omitempty"`
}

// BatchResult aggregates one ingest run.
type BatchResult struct {
	RunID        int64        `json:"run_id,omitempty"`
	Observations int          `json:"observations"`
	RecordsNew   int          `json:"records_new"`
	PriceChanges int          `json:"price_changes"`
	Unchanged    int          `json:"unchanged"`
	Errors       int          `json:"errors"`
	Items        []ItemResult `json:"items"`
}

func (b *BatchResult) aggregate(res *ReconcileResult) {
	switch res.Outcome {
	case models.OutcomeCreated:
		b.RecordsNew++
	case models.OutcomePriceChanged:
		b.PriceChanges++
	default:
		b.Unchanged++
	}
}

// ReconcileBatch processes one crawl pass. Each observation is
// reconciled independently; a bad item never aborts the batch. The
// batch is journaled as an ingest run when a journal is configured.
func (r *Reconciler) ReconcileBatch(ctx context.Context, source string, observations []models.Observation) (*BatchResult, error) {
	result := &BatchResult{Observations: len(observations)}

	var run *models.IngestRun
	if r.journal != nil {
		run = &models.IngestRun{
			Source:    source,
			StartedAt: r.now(),
			Status:    models.RunStatusRunning,
		}
		id, err := r.journal.CreateRun(run)
		if err != nil {
			r.logger.Warn().Err(err).Msg("could not journal ingest run")
			run = nil
		} else {
			run.ID = id
			result.RunID = id
		}
	}

	for i := range observations {
		if err := ctx.Err(); err != nil {
			r.finishRun(run, result, err)
			return result, err
		}

		obs := &observations[i]
		res, err := r.Reconcile(ctx, obs)
		if err != nil {
			result.Errors++
			result.Items = append(result.Items, ItemResult{Error: err.Error()})
			var verr *models.ValidationError
			if errors.As(err, &verr) {
				r.logger.Warn().Err(err).Str("source", source).Str("external_id", obs.ExternalID).Msg("observation rejected")
			} else {
				r.logger.Error().Err(err).Str("source", source).Str("external_id", obs.ExternalID).Msg("reconcile failed")
			}
			continue
		}
		result.aggregate(res)
		result.Items = append(result.Items, ItemResult{Fingerprint: res.Fingerprint, Outcome: res.Outcome})
	}

	r.finishRun(run, result, nil)
	r.logger.Info().
		Str("source", source).
		Int("observations", result.Observations).
		Int("new", result.RecordsNew).
		Int("price_changes", result.PriceChanges).
		Int("errors", result.Errors).
		Msg("ingest batch complete")
	return result, nil
}

func (r *Reconciler) finishRun(run *models.IngestRun, result *BatchResult, cause error) {
	if run == nil {
		return
	}
	now := r.now()
	run.FinishedAt = &now
	run.Status = models.RunStatusCompleted
	if cause != nil {
		run.Status = models.RunStatusFailed
		run.ErrorMessage = cause.Error()
	}
	run.Observations = result.Observations
	run.RecordsNew = result.RecordsNew
	run.PriceChanges = result.PriceChanges
	run.Unchanged = result.Unchanged
	run.ErrorsCount = result.Errors
	if err := r.journal.UpdateRun(run); err != nil {
		r.logger.Warn().Err(err).Int64("run_id", run.ID).Msg("could not finalize ingest run")
	}
}
