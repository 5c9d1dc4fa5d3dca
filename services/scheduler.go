package services

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron"

	"sitebooks/backend/logger"
)

// Scheduler triggers the sync pipeline on a cron schedule inside the server
// process, for deployments without an external cron.
type Scheduler struct {
	cron    *cron.Cron
	syncer  *Syncer
	timeout time.Duration
}

// NewScheduler registers the sync on spec, e.g. "@every 1h" or
// "0 0 * * * *". An empty spec returns a nil Scheduler.
func NewScheduler(spec string, syncer *Syncer, timeout time.Duration) (*Scheduler, error) {
	if spec == "" {
		return nil, nil
	}
	s := &Scheduler{cron: cron.New(), syncer: syncer, timeout: timeout}
	if err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	if s == nil {
		return
	}
	log := logger.WithComponent("scheduler")
	log.Info().Msg("Starting sync scheduler")
	s.cron.Start()
}

// Stop halts future runs. A run in flight finishes on its own.
func (s *Scheduler) Stop() {
	if s == nil {
		return
	}
	s.cron.Stop()
}

func (s *Scheduler) runOnce() {
	log := logger.WithComponent("scheduler")

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	stats, err := s.syncer.Run(ctx)
	switch {
	case errors.Is(err, ErrSyncInProgress):
		log.Info().Msg("Skipping scheduled sync, another run is in progress")
	case errors.Is(err, ErrNoActiveConnection):
		log.Warn().Msg("Skipping scheduled sync, no active Xero connection")
	case err != nil:
		log.Error().Err(err).Msg("Scheduled sync failed")
	default:
		log.Info().Int("upserted", stats.Upserted).Msg("Scheduled sync complete")
	}
}
