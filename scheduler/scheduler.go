package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/Landmarklens/ImobiliareScraper/config"
	"github.com/Landmarklens/ImobiliareScraper/models"
	"github.com/Landmarklens/ImobiliareScraper/storage"
)

// Triggerable allows workers to be triggered manually
type Triggerable interface {
	Trigger()
}

// Scheduler drives the periodic maintenance passes and executes
// commands queued in the operational store.
type Scheduler struct {
	cfg    *config.Config
	store  *storage.SQLiteStore
	logger zerolog.Logger
	cron   *cron.Cron
	ticker *time.Ticker
	stopCh chan struct{}

	alertWorker     Triggerable
	retentionWorker Triggerable
}

func New(cfg *config.Config, store *storage.SQLiteStore, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		store:  store,
		logger: logger.With().Str("component", "scheduler").Logger(),
		cron:   cron.New(),
		stopCh: make(chan struct{}),
	}
}

// SetWorkers registers background workers for manual triggering
func (s *Scheduler) SetWorkers(alerts, retention Triggerable) {
	s.alertWorker = alerts
	s.retentionWorker = retention
}

func (s *Scheduler) Start(ctx context.Context) error {
	go s.pollCommands(ctx)

	if s.cfg.Scheduler.Cron != "" {
		s.logger.Info().Str("cron", s.cfg.Scheduler.Cron).Msg("starting scheduler")
		_, err := s.cron.AddFunc(s.cfg.Scheduler.Cron, s.refreshAll)
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	} else if s.cfg.Scheduler.Interval > 0 {
		s.logger.Info().Dur("interval", s.cfg.Scheduler.Interval).Msg("starting scheduler")
		s.ticker = time.NewTicker(s.cfg.Scheduler.Interval)
		go func() {
			for {
				select {
				case <-s.ticker.C:
					s.refreshAll()
				case <-s.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}()
	} else {
		s.logger.Info().Msg("no schedule configured, daemon will only respond to commands")
	}

	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
}

func (s *Scheduler) refreshAll() {
	if s.alertWorker != nil {
		s.alertWorker.Trigger()
	}
	if s.retentionWorker != nil {
		s.retentionWorker.Trigger()
	}
}

func (s *Scheduler) pollCommands(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cmds, err := s.store.GetPendingCommands()
			if err != nil {
				s.logger.Error().Err(err).Msg("error getting commands")
				continue
			}

			for _, cmd := range cmds {
				s.logger.Info().Str("command", string(cmd.Command)).Msg("processing command")
				if err := s.handleCommand(&cmd); err != nil {
					s.logger.Error().Err(err).Str("command", string(cmd.Command)).Msg("command error")
				}
				if err := s.store.MarkCommandProcessed(cmd.ID); err != nil {
					s.logger.Error().Err(err).Msg("error marking command processed")
				}
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) handleCommand(cmd *models.Command) error {
	switch cmd.Command {
	case models.CmdRefreshAlerts:
		if s.alertWorker != nil {
			s.alertWorker.Trigger()
		}
		return nil
	case models.CmdPruneHistory:
		if s.retentionWorker != nil {
			s.retentionWorker.Trigger()
		}
		return nil
	default:
		return fmt.Errorf("unknown command: %s", cmd.Command)
	}
}
