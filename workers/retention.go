package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Landmarklens/ImobiliareScraper/metrics"
)

type HistoryStore interface {
	PruneHistory(ctx context.Context) (int64, error)
}

// RetentionWorker sweeps price history ledgers against the retention
// policy for records that no longer receive observations.
type RetentionWorker struct {
	store     HistoryStore
	logger    zerolog.Logger
	rec       *metrics.Recorder
	triggerCh chan struct{}
}

func NewRetentionWorker(store HistoryStore, logger zerolog.Logger) *RetentionWorker {
	return &RetentionWorker{
		store:     store,
		logger:    logger.With().Str("worker", "retention").Logger(),
		triggerCh: make(chan struct{}, 1),
	}
}

func (w *RetentionWorker) SetMetrics(rec *metrics.Recorder) {
	w.rec = rec
}

func (w *RetentionWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

func (w *RetentionWorker) Run(ctx context.Context, interval time.Duration) {
	w.logger.Info().Dur("interval", interval).Msg("retention worker started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("retention worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		case <-w.triggerCh:
			w.logger.Info().Msg("history prune triggered")
			w.runOnce(ctx)
		}
	}
}

func (w *RetentionWorker) runOnce(ctx context.Context) {
	pruned, err := w.store.PruneHistory(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("prune history failed")
		return
	}
	w.rec.AddHistoryPruned(pruned)
	if pruned > 0 {
		w.logger.Info().Int64("pruned", pruned).Msg("history entries pruned")
	}
}
