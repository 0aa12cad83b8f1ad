// Package agent holds the pipeline agents. Every agent is stateless: all per-run
// data arrives through the Runtime and the read-only View handed to Execute.
package agent

import (
	"context"
	"fmt"
	"log/slog"

	"NewsAnalyst/internal/domain"
	"NewsAnalyst/internal/ports"
)

// Capability is an external collaborator an agent may call.
type Capability string

const (
	CapabilityInference Capability = "inference"
	CapabilitySearch    Capability = "search"
)

// Descriptor is the static contract of an agent.
type Descriptor struct {
	Name         string
	Requires     []domain.Field
	Reads        []domain.Field
	Output       domain.Field
	Capabilities []Capability
}

// Agent is one unit of pipeline work.
type Agent interface {
	Descriptor() Descriptor
	Execute(ctx context.Context, rt Runtime, view domain.View) domain.StageResult
}

// Runtime is the explicit per-run context threaded through every agent call.
// Inference and Search are nil when the capability is not configured.
type Runtime struct {
	RunID            string
	Inference        ports.InferenceClient
	Search           ports.SearchClient
	Generation       ports.InferenceOptions
	MaxArticles      int
	MaxQueries       int
	ConcurrencyLimit int
	Logger           *slog.Logger
}

func (rt Runtime) logger() *slog.Logger {
	if rt.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return rt.Logger
}

// Standard returns the four pipeline agents in execution order.
func Standard() []Agent {
	return []Agent{Researcher{}, Analyzer{}, FactChecker{}, Reporter{}}
}

func warning(stage, format string, args ...any) domain.PartialDataError {
	return domain.PartialDataError{Stage: stage, Detail: fmt.Sprintf(format, args...)}
}
