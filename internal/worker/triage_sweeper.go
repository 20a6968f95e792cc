package worker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const sweepBatch = 50

// TriageSweeper periodically re-queues tickets whose triage never landed,
// for example after a model outage or a restart.
type TriageSweeper struct {
	cron   *cron.Cron
	spec   string
	runner TriageRunner
	worker *TriageWorker
	logger *zap.Logger
}

// NewTriageSweeper validates the schedule and builds a stopped sweeper.
func NewTriageSweeper(spec string, runner TriageRunner, worker *TriageWorker, logger *zap.Logger) (*TriageSweeper, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid triage sweep schedule %q: %w", spec, err)
	}
	return &TriageSweeper{
		cron:   cron.New(),
		spec:   spec,
		runner: runner,
		worker: worker,
		logger: logger,
	}, nil
}

// Start registers the sweep job and starts the scheduler.
func (s *TriageSweeper) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.Sweep(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("triage sweeper started", zap.String("schedule", s.spec))
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *TriageSweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep enqueues a batch of untriaged tickets and returns how many were queued.
func (s *TriageSweeper) Sweep(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}
	pending, err := s.runner.PendingTriage(ctx, sweepBatch)
	if err != nil {
		s.logger.Warn("triage sweep failed", zap.Error(err))
		return 0
	}
	queued := 0
	for _, ticket := range pending {
		if s.worker.Enqueue(ticket.ID) {
			queued++
		}
	}
	if queued > 0 {
		s.logger.Info("triage sweep queued tickets", zap.Int("count", queued))
	}
	return queued
}
