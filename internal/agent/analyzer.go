package agent

import (
	"context"
	"fmt"

	"NewsAnalyst/internal/domain"
	"NewsAnalyst/internal/ports"
)

const (
	analyzerName = "analyzer"
	maxThemes    = 5
)

type sentimentReply struct {
	Sentiment  string   `json:"sentiment" jsonschema:"enum=positive,enum=neutral,enum=negative"`
	Confidence float64  `json:"confidence"`
	Themes     []string `json:"themes"`
	Summary    string   `json:"summary"`
}

var sentimentSchema = mustStructured[sentimentReply]("sentiment_analysis", "Sentiment and themes of a news article")

// Analyzer tags every article with sentiment, themes and entities.
type Analyzer struct{}

var _ Agent = Analyzer{}

func (Analyzer) Descriptor() Descriptor {
	return Descriptor{
		Name:         analyzerName,
		Requires:     []domain.Field{domain.FieldTopic, domain.FieldArticles},
		Output:       domain.FieldAnalysis,
		Capabilities: []Capability{CapabilityInference},
	}
}

func (Analyzer) Execute(ctx context.Context, rt Runtime, view domain.View) domain.StageResult {
	articles := view.Articles()
	results := make(map[string]domain.Analysis, len(articles))
	var warnings []domain.PartialDataError

	if rt.Inference == nil {
		for _, art := range articles {
			results[art.ID] = neutralAnalysis(art, "Basic analysis without inference")
		}
		if len(articles) > 0 {
			warnings = append(warnings, warning(analyzerName, "inference unavailable, %d articles defaulted to neutral", len(articles)))
		}
		return domain.Partial(domain.Payload{Field: domain.FieldAnalysis, Analysis: results}, warnings...)
	}

	for _, art := range articles {
		if err := ctx.Err(); err != nil {
			return domain.Failure(err)
		}
		text, err := rt.Inference.Generate(ctx, ports.Prompt{
			System: analyzerSystemPrompt,
			User:   fmt.Sprintf(articleUserPrompt, art.Title, art.Source, art.URL, art.Snippet),
		}, sentimentSchema.options(rt.Generation))
		if err != nil {
			return domain.Failure(fmt.Errorf("analyze article %s: %w", art.ID, err))
		}

		reply, err := sentimentSchema.decode(text)
		if err != nil {
			results[art.ID] = neutralAnalysis(art, "Analysis failed")
			warnings = append(warnings, warning(analyzerName, "article %q: %v", art.Title, err))
			continue
		}

		results[art.ID] = domain.Analysis{
			Sentiment:  domain.ParseSentiment(reply.Sentiment),
			Confidence: clamp01(reply.Confidence),
			Themes:     normalizeThemes(reply.Themes, maxThemes),
			Entities:   extractEntities(articleText(art.Title, art.Snippet)),
			Summary:    reply.Summary,
		}
	}

	rt.logger().Debug("analysis complete", "articles", len(articles), "warnings", len(warnings))
	return domain.Partial(domain.Payload{Field: domain.FieldAnalysis, Analysis: results}, warnings...)
}

func neutralAnalysis(art domain.Article, summary string) domain.Analysis {
	return domain.Analysis{
		Sentiment:  domain.SentimentNeutral,
		Confidence: 0.5,
		Themes:     []string{"general"},
		Entities:   extractEntities(articleText(art.Title, art.Snippet)),
		Summary:    summary,
	}
}
