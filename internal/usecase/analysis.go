package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"NewsAnalyst/internal/domain"
	"NewsAnalyst/internal/orchestrator"
	"NewsAnalyst/internal/ports"
	"NewsAnalyst/internal/report"
)

// Runner executes one pipeline run. It is satisfied by *orchestrator.Orchestrator.
type Runner interface {
	Run(ctx context.Context, topic string, cfg orchestrator.Config) (*domain.Report, error)
}

// AnalysisDeps wires all driven adapters into the analysis use case.
type AnalysisDeps struct {
	Runner   Runner
	Config   orchestrator.Config
	Archive  ports.ReportArchive
	Notifier ports.Notifier
	Logger   *slog.Logger
	// Now stamps archived runs; defaults to time.Now.
	Now func() time.Time
}

// Analysis runs topics through the pipeline and fans the outcome out to the
// archive and the notifier.
type Analysis struct {
	runner   Runner
	cfg      orchestrator.Config
	archive  ports.ReportArchive
	notifier ports.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// Outcome is the result of analyzing one topic: exactly one of Report and
// Aborted is set.
type Outcome struct {
	Topic   string
	Report  *domain.Report
	Aborted *orchestrator.AbortedError
}

// Done reports whether the run produced a report.
func (o Outcome) Done() bool { return o.Report != nil }

// NewAnalysis constructs the use case.
func NewAnalysis(deps AnalysisDeps) *Analysis {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Analysis{
		runner:   deps.Runner,
		cfg:      deps.Config,
		archive:  deps.Archive,
		notifier: deps.Notifier,
		logger:   logger,
		now:      now,
	}
}

// Analyze runs one topic. An aborted run is reported through the Outcome; the
// error covers archive and notification failures only.
func (a *Analysis) Analyze(ctx context.Context, topic string) (Outcome, error) {
	if a.runner == nil {
		return Outcome{}, errors.New("analysis runner is not configured")
	}

	out := Outcome{Topic: topic}
	rep, err := a.runner.Run(ctx, topic, a.cfg)
	if err != nil {
		var aborted *orchestrator.AbortedError
		if !errors.As(err, &aborted) {
			return out, fmt.Errorf("run %q: %w", topic, err)
		}
		out.Aborted = aborted
	}
	out.Report = rep

	var errs []error
	if a.archive != nil {
		if err := a.archive.Save(ctx, a.archived(out)); err != nil {
			errs = append(errs, fmt.Errorf("archive %q: %w", topic, err))
		}
	}

	if a.notifier != nil && out.Done() {
		if err := a.notifier.PublishDigest(ctx, buildDigestMessage(out.Report)); err != nil {
			errs = append(errs, fmt.Errorf("notify %q: %w", topic, err))
		}
	}

	return out, errors.Join(errs...)
}

// AnalyzeAll runs every topic as an independent pipeline, concurrently.
// Outcomes keep the order of topics.
func (a *Analysis) AnalyzeAll(ctx context.Context, topics []string) ([]Outcome, error) {
	outcomes := make([]Outcome, len(topics))
	errs := make([]error, len(topics))

	var g errgroup.Group
	for i, topic := range topics {
		g.Go(func() error {
			outcomes[i], errs[i] = a.Analyze(ctx, topic)
			return nil
		})
	}
	_ = g.Wait()

	for i, out := range outcomes {
		if out.Aborted != nil {
			a.logger.Warn("topic aborted", "topic", topics[i], "reason", out.Aborted.Reason)
		}
	}
	return outcomes, errors.Join(errs...)
}

func (a *Analysis) archived(out Outcome) domain.ArchivedRun {
	run := domain.ArchivedRun{
		Topic:     out.Topic,
		CreatedAt: a.now(),
	}
	if out.Done() {
		run.RunID = out.Report.RunID
		run.Status = domain.RunStatusDone
		run.ArticleCount = len(out.Report.Entries)
		run.WarningCount = len(out.Report.Warnings)
		run.Markdown = out.Report.Markdown()
		return run
	}
	run.RunID = out.Aborted.RunID
	run.Status = domain.RunStatusAborted
	run.Reason = out.Aborted.Reason
	run.WarningCount = len(out.Aborted.Warnings)
	if out.Aborted.Record != nil {
		run.ArticleCount = len(out.Aborted.Record.Articles)
	}
	return run
}

func buildDigestMessage(rep *domain.Report) string {
	if rep == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*News Analysis: %s*\n\n", rep.Topic)
	if rep.Summary != "" {
		b.WriteString(rep.Summary)
		b.WriteString("\n\n")
	}
	if s, ok := rep.Section(report.SectionCredibility); ok && !s.Insufficient {
		for _, line := range s.Lines {
			if line == "" {
				break
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	for _, e := range rep.Entries {
		credibility := e.Credibility
		if credibility == "" {
			credibility = "NOT CHECKED"
		}
		fmt.Fprintf(&b, "- %s (%s)\n%s\n", e.Title, credibility, e.URL)
	}
	return strings.TrimSpace(b.String())
}
