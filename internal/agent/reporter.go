package agent

import (
	"context"
	"fmt"
	"strings"

	"NewsAnalyst/internal/domain"
	"NewsAnalyst/internal/ports"
	"NewsAnalyst/internal/report"
)

const (
	reporterName     = "reporter"
	summaryThemes    = 5
	summaryNoThemes  = "none"
	summaryNoDataTag = "unknown"
)

// Reporter writes the executive summary from the aggregated analysis and fact checks.
type Reporter struct{}

var _ Agent = Reporter{}

func (Reporter) Descriptor() Descriptor {
	return Descriptor{
		Name:         reporterName,
		Requires:     []domain.Field{domain.FieldTopic, domain.FieldArticles},
		Reads:        []domain.Field{domain.FieldAnalysis, domain.FieldFactChecks},
		Output:       domain.FieldReport,
		Capabilities: []Capability{CapabilityInference},
	}
}

func (Reporter) Execute(ctx context.Context, rt Runtime, view domain.View) domain.StageResult {
	st := report.Compute(view.Articles(), view.Analysis, view.FactCheck)
	fallback := templateSummary(view.Topic(), st)

	if rt.Inference == nil {
		return domain.Partial(domain.Payload{Field: domain.FieldReport, Report: fallback},
			warning(reporterName, "inference unavailable, executive summary built from template"))
	}

	text, err := rt.Inference.Generate(ctx, ports.Prompt{
		System: reporterSystemPrompt,
		User:   fmt.Sprintf(reporterUserPrompt, view.Topic(), digest(st)),
	}, rt.Generation)
	if err != nil {
		return domain.Failure(fmt.Errorf("executive summary: %w", err))
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Partial(domain.Payload{Field: domain.FieldReport, Report: fallback},
			warning(reporterName, "model returned an empty summary, using template"))
	}
	return domain.Success(domain.Payload{Field: domain.FieldReport, Report: text})
}

// digest renders the statistics the model sees when writing the summary.
func digest(st report.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Total articles analyzed: %d\n", st.Articles)
	fmt.Fprintf(&b, "- Sentiment distribution: positive %d, neutral %d, negative %d\n",
		st.Sentiment[domain.SentimentPositive], st.Sentiment[domain.SentimentNeutral], st.Sentiment[domain.SentimentNegative])
	fmt.Fprintf(&b, "- Top themes: %s\n", topThemes(st))
	if st.Checked > 0 {
		fmt.Fprintf(&b, "- Average credibility score: %.2f (%s reliability)", st.MeanCredibility, st.Reliability)
	} else {
		b.WriteString("- Average credibility score: not assessed")
	}
	return b.String()
}

func templateSummary(topic string, st report.Stats) string {
	dominant := string(st.Dominant)
	if dominant == "" {
		dominant = summaryNoDataTag
	}
	credibility := summaryNoDataTag
	if st.Checked > 0 {
		credibility = fmt.Sprintf("%.2f/1.0", st.MeanCredibility)
	}
	return fmt.Sprintf("Executive Summary for %s: Analyzed %d articles. Overall sentiment: %s. "+
		"Average credibility score: %s. Key themes identified: %s. "+
		"This analysis provides insights into current trends and public opinion.",
		topic, st.Articles, dominant, credibility, topThemes(st))
}

func topThemes(st report.Stats) string {
	if len(st.Themes) == 0 {
		return summaryNoThemes
	}
	names := make([]string, 0, summaryThemes)
	for _, t := range st.Themes {
		names = append(names, t.Theme)
		if len(names) == summaryThemes {
			break
		}
	}
	return strings.Join(names, ", ")
}
