// Package scheduler drives repeated import cycles at a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/importo/internal/models"
	"github.com/ternarybob/importo/internal/orchestrator"
)

// CycleRunner is the slice of the orchestrator the scheduler drives.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*models.CycleOutcome, error)
}

// Service runs one import cycle per tick. Overlap protection lives in the
// orchestrator's single-flight guard; a tick that lands mid-cycle is logged
// and dropped.
type Service struct {
	orchestrator CycleRunner
	interval     time.Duration
	cron         *cron.Cron
	logger       arbor.ILogger
	running      bool
}

// NewService builds a scheduler around the orchestrator.
func NewService(o CycleRunner, interval time.Duration, logger arbor.ILogger) *Service {
	return &Service{
		orchestrator: o,
		interval:     interval,
		cron:         cron.New(),
		logger:       logger,
	}
}

// Start registers the interval job and launches the first cycle immediately
// rather than waiting a full interval.
func (s *Service) Start(ctx context.Context) error {
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	spec := fmt.Sprintf("@every %s", s.interval)
	if _, err := s.cron.AddFunc(spec, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule import cycle: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().Str("interval", s.interval.String()).Msg("Import scheduler started")

	go s.tick(ctx)
	return nil
}

// Stop halts the cron loop and waits for a running tick to finish.
func (s *Service) Stop() {
	if !s.running {
		return
	}
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.running = false
	s.logger.Info().Msg("Import scheduler stopped")
}

func (s *Service) tick(ctx context.Context) {
	outcome, err := s.orchestrator.RunCycle(ctx)
	if err != nil {
		if errors.Is(err, orchestrator.ErrCycleInProgress) {
			s.logger.Warn().Msg("Previous cycle still running, skipping tick")
			return
		}
		s.logger.Error().Err(err).Msg("Import cycle could not start")
		return
	}

	if !outcome.Succeeded() {
		s.logger.Warn().
			Str("status", string(outcome.Status)).
			Str("reason", string(outcome.Reason)).
			Msg("Import cycle failed, retrying on next tick")
		return
	}
	logClear(s.logger, outcome)
}

func logClear(logger arbor.ILogger, outcome *models.CycleOutcome) {
	if outcome.Clear == nil {
		return
	}
	logger.Info().
		Int("deleted", outcome.Clear.Deleted).
		Int("skipped", outcome.Clear.Skipped).
		Int("failed", outcome.Clear.Failed).
		Msg("List cleared after import")
}
