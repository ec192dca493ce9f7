package processing

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Scheduler runs the degraded embedding sweep on a cron schedule.
type Scheduler struct {
	service *Service
	cron    *cron.Cron
	logger  arbor.ILogger
}

// NewScheduler creates a new reprocessing scheduler
func NewScheduler(service *Service, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		service: service,
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger,
	}
}

// Start begins the scheduled sweep
func (s *Scheduler) Start(schedule string) error {
	if schedule == "" {
		// Default: every hour
		schedule = "0 0 * * * *"
	}

	_, err := s.cron.AddFunc(schedule, func() {
		s.runSweep()
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Msg("Embedding reprocessing scheduler started")

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info().Msg("Embedding reprocessing scheduler stopped")
}

// RunNow triggers an immediate sweep
func (s *Scheduler) RunNow() {
	s.logger.Info().Msg("Triggering immediate reprocessing run")
	go s.runSweep()
}

func (s *Scheduler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	s.logger.Info().Msg("Starting scheduled reprocessing")

	stats, err := s.service.ProcessDegraded(ctx)
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("Scheduled reprocessing failed")
		return
	}

	s.logger.Info().
		Int("scanned", stats.Scanned).
		Int("recovered", stats.Recovered).
		Int("still_degraded", stats.StillDegraded).
		Dur("duration", stats.Duration).
		Msg("Scheduled reprocessing completed")
}
