package usecase

import (
	"context"
	"log/slog"
	"time"

	"NewsAnalyst/internal/ports"
)

// Scheduler wires the interval driver with the analysis use case.
type Scheduler struct {
	driver   ports.Scheduler
	analysis *Analysis
	topics   []string
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring analyses of topics.
func NewScheduler(driver ports.Scheduler, analysis *Analysis, topics []string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, analysis: analysis, topics: topics, logger: logger}
}

// Start registers the analysis with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.analysis == nil || len(s.topics) == 0 {
		return nil
	}

	job := func(trigger time.Time) {
		s.logger.Info("scheduled analysis", "trigger", trigger.Format(time.RFC3339), "topics", len(s.topics))
		outcomes, err := s.analysis.AnalyzeAll(ctx, s.topics)
		if err != nil {
			s.logger.Error("scheduled analysis failed", "error", err)
		}
		done := 0
		for _, out := range outcomes {
			if out.Done() {
				done++
			}
		}
		s.logger.Info("scheduled analysis finished", "done", done, "aborted", len(outcomes)-done)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
