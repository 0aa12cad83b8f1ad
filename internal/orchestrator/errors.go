package orchestrator

import (
	"fmt"

	"NewsAnalyst/internal/domain"
)

// AbortedError is the only error Run returns. It carries everything the caller
// needs to diagnose the run: where it stopped, why, and what had been built.
type AbortedError struct {
	RunID    string
	Topic    string
	State    State
	Reason   string
	Err      error
	Record   *domain.RunRecord
	Warnings []domain.PartialDataError
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("run %s aborted in %s: %s", e.RunID, e.State, e.Reason)
}

func (e *AbortedError) Unwrap() error { return e.Err }

func reason(err error) string {
	switch {
	case domain.IsCanceled(err):
		return "run canceled"
	case domain.IsFatal(err):
		return "fatal error: " + err.Error()
	case domain.IsTransient(err):
		return "retries exhausted: " + err.Error()
	default:
		return err.Error()
	}
}
