// Package orchestrator drives the agent pipeline for one topic at a time:
// Init, Researching, Analyzing, FactChecking, Reporting, then Done, with
// Aborted reachable from every state.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"NewsAnalyst/internal/agent"
	"NewsAnalyst/internal/domain"
	"NewsAnalyst/internal/ports"
	"NewsAnalyst/internal/report"
)

const instrumentationName = "NewsAnalyst/internal/orchestrator"

// Deps wires the external capabilities and agents into the orchestrator.
type Deps struct {
	Inference ports.InferenceClient
	Search    ports.SearchClient

	// Agents overrides the agent bound to a state. Unset states use agent.Standard.
	Agents map[State]agent.Agent

	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Orchestrator is safe for concurrent use; every Run owns its own record.
type Orchestrator struct {
	inference ports.InferenceClient
	search    ports.SearchClient
	agents    map[State]agent.Agent
	logger    *slog.Logger
	tracer    trace.Tracer
	attempts  metric.Int64Counter
}

// New builds an orchestrator from its dependencies.
func New(deps Deps) *Orchestrator {
	agents := map[State]agent.Agent{}
	for i, a := range agent.Standard() {
		agents[StateResearching+State(i)] = a
	}
	for s, a := range deps.Agents {
		agents[s] = a
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	tp := deps.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := deps.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	var counter metric.Int64Counter = noop.Int64Counter{}
	if c, err := mp.Meter(instrumentationName).Int64Counter("newsanalyst.stage.attempts",
		metric.WithDescription("Stage invocations by outcome")); err == nil {
		counter = c
	} else {
		logger.Warn("stage attempt counter unavailable", "error", err)
	}

	return &Orchestrator{
		inference: deps.Inference,
		search:    deps.Search,
		agents:    agents,
		logger:    logger,
		tracer:    tp.Tracer(instrumentationName),
		attempts:  counter,
	}
}

// run is the mutable state of one invocation.
type run struct {
	state    State
	record   *domain.RunRecord
	warnings []domain.PartialDataError
	logger   *slog.Logger
}

func (r *run) warn(ws ...domain.PartialDataError) {
	for _, w := range ws {
		r.logger.Warn("partial data", "stage", w.Stage, "detail", w.Detail)
	}
	r.warnings = append(r.warnings, ws...)
}

// Run executes the pipeline for topic. It returns either a report (possibly
// carrying warnings) or an *AbortedError; panics inside agents never escape.
func (o *Orchestrator) Run(ctx context.Context, topic string, cfg Config) (*domain.Report, error) {
	runID := uuid.NewString()
	topic = strings.TrimSpace(topic)
	r := &run{
		state:  StateInit,
		record: domain.NewRunRecord(runID, topic),
		logger: o.logger.With("run_id", runID, "topic", topic),
	}

	ctx, span := o.tracer.Start(ctx, "orchestrator.run", trace.WithAttributes(
		attribute.String("newsanalyst.run_id", runID),
		attribute.String("newsanalyst.topic", topic),
	))
	defer span.End()

	rep, err := o.execute(ctx, r, cfg)
	if err != nil {
		aborted := &AbortedError{
			RunID:    runID,
			Topic:    topic,
			State:    r.state,
			Reason:   reason(err),
			Err:      err,
			Record:   r.record.Clone(),
			Warnings: r.warnings,
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, aborted.Reason)
		r.logger.Error("run aborted", "state", r.state.String(), "reason", aborted.Reason)
		r.state = StateAborted
		return nil, aborted
	}

	r.state = StateDone
	span.SetAttributes(attribute.Int("newsanalyst.articles", len(r.record.Articles)),
		attribute.Int("newsanalyst.warnings", len(r.warnings)))
	r.logger.Info("run finished", "articles", len(r.record.Articles), "warnings", len(r.warnings))
	return rep, nil
}

func (o *Orchestrator) execute(ctx context.Context, r *run, cfg Config) (*domain.Report, error) {
	if r.record.Topic == "" {
		return nil, &domain.FatalError{Op: "validate", Err: errors.New("topic is empty")}
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, &domain.FatalError{Op: "validate", Err: err}
	}

	rt := agent.Runtime{
		RunID:            r.record.RunID,
		Generation:       cfg.Generation,
		MaxArticles:      cfg.MaxArticles,
		MaxQueries:       cfg.MaxQueries,
		ConcurrencyLimit: cfg.ConcurrencyLimit,
	}
	if o.inference != nil {
		rt.Inference = timedInference{next: o.inference, timeout: cfg.PerCallTimeout}
	}
	if o.search != nil {
		rt.Search = timedSearch{next: o.search, timeout: cfg.PerCallTimeout}
	}

	r.logger.Info("run started", "stages", stageList(cfg))
	for state := next(StateInit); !state.Terminal(); state = next(state) {
		r.state = state
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stage := stageStates[state]
		if !cfg.enabled(stage) {
			r.logger.Info("stage skipped", "stage", string(stage))
			continue
		}
		ag, ok := o.agents[state]
		if !ok || ag == nil {
			return nil, &domain.FatalError{Op: string(stage), Err: errors.New("no agent bound to stage")}
		}
		if err := o.runStage(ctx, r, ag, rt, cfg); err != nil {
			return nil, err
		}
	}

	return report.Assemble(r.record, r.warnings), nil
}

// runStage invokes one agent with retries and merges its payload.
func (o *Orchestrator) runStage(ctx context.Context, r *run, ag agent.Agent, rt agent.Runtime, cfg Config) error {
	desc := ag.Descriptor()
	logger := r.logger.With("stage", desc.Name)
	rt.Logger = logger

	view := r.record.View(append(append([]domain.Field{}, desc.Requires...), desc.Reads...)...)
	for _, f := range desc.Requires {
		if !view.Has(f) {
			view = view.Substitute(f)
			r.warn(domain.PartialDataError{Stage: desc.Name, Detail: fmt.Sprintf("missing %s, using empty default", f)})
		}
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.RetryLimit; attempt++ {
		if attempt > 0 {
			delay := cfg.Backoff.Delay(attempt)
			logger.Warn("retrying stage", "attempt", attempt+1, "delay", delay, "error", lastErr)
			if err := sleep(ctx, delay); err != nil {
				return err
			}
		}

		res := o.invoke(ctx, ag, rt, view, attempt+1)
		switch res.Outcome {
		case domain.OutcomeSuccess, domain.OutcomePartial:
			r.warn(res.Warnings...)
			dropped, err := r.record.Merge(desc.Name, desc.Output, res.Payload)
			if err != nil {
				return err
			}
			r.warn(dropped...)
			logger.Info("stage complete", "outcome", res.Outcome.String(), "attempt", attempt+1)
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		err := res.Err
		if err == nil {
			err = errors.New("stage failed without an error")
		}
		err = domain.Classify(desc.Name, err)
		if !domain.IsTransient(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%s: %d attempts failed: %w", desc.Name, cfg.RetryLimit+1, lastErr)
}

// invoke runs a single attempt inside its own span, converting panics into
// fatal failures.
func (o *Orchestrator) invoke(ctx context.Context, ag agent.Agent, rt agent.Runtime, view domain.View, attempt int) (res domain.StageResult) {
	name := ag.Descriptor().Name
	ctx, span := o.tracer.Start(ctx, "stage."+name, trace.WithAttributes(
		attribute.String("newsanalyst.stage", name),
		attribute.Int("newsanalyst.attempt", attempt),
	))
	defer func() {
		if p := recover(); p != nil {
			res = domain.Failure(&domain.FatalError{Op: name, Err: fmt.Errorf("panic: %v", p)})
		}
		o.attempts.Add(ctx, 1, metric.WithAttributes(
			attribute.String("stage", name),
			attribute.String("outcome", res.Outcome.String()),
		))
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
		}
		span.End()
	}()
	return ag.Execute(ctx, rt, view)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func stageList(cfg Config) string {
	var names []string
	for _, s := range AllStages {
		if cfg.enabled(s) {
			names = append(names, string(s))
		}
	}
	return strings.Join(names, ",")
}
