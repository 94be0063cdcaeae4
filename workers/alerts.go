package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Landmarklens/ImobiliareScraper/metrics"
)

// AlertStore is the slice of the storage layer the alert worker needs.
type AlertStore interface {
	ExpireDropAlerts(ctx context.Context, window time.Duration) (int64, error)
}

// AlertWorker periodically clears drop alerts once the price change
// behind them has aged out of the alert window.
type AlertWorker struct {
	store     AlertStore
	window    time.Duration
	logger    zerolog.Logger
	rec       *metrics.Recorder
	triggerCh chan struct{}
}

func NewAlertWorker(store AlertStore, window time.Duration, logger zerolog.Logger) *AlertWorker {
	return &AlertWorker{
		store:     store,
		window:    window,
		logger:    logger.With().Str("worker", "alerts").Logger(),
		triggerCh: make(chan struct{}, 1),
	}
}

func (w *AlertWorker) SetMetrics(rec *metrics.Recorder) {
	w.rec = rec
}

// Trigger requests an immediate pass without waiting for the ticker.
func (w *AlertWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

func (w *AlertWorker) Run(ctx context.Context, interval time.Duration) {
	w.logger.Info().Dur("interval", interval).Msg("alert worker started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("alert worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		case <-w.triggerCh:
			w.logger.Info().Msg("alert refresh triggered")
			w.runOnce(ctx)
		}
	}
}

func (w *AlertWorker) runOnce(ctx context.Context) {
	cleared, err := w.store.ExpireDropAlerts(ctx, w.window)
	if err != nil {
		w.logger.Error().Err(err).Msg("expire drop alerts failed")
		return
	}
	w.rec.AddAlertsCleared(cleared)
	if cleared > 0 {
		w.logger.Info().Int64("cleared", cleared).Msg("drop alerts expired")
	}
}
