package agent

import (
	"context"
	"fmt"

	"NewsAnalyst/internal/domain"
	"NewsAnalyst/internal/ports"
)

const factCheckerName = "factchecker"

type credibilityReply struct {
	Verdict     string  `json:"verdict" jsonschema:"enum=verified,enum=unverified,enum=disputed"`
	Credibility float64 `json:"credibility_score"`
	Assessment  string  `json:"assessment"`
}

var credibilitySchema = mustStructured[credibilityReply]("credibility_assessment", "Credibility assessment of a news article")

// FactChecker assesses the credibility of every article.
type FactChecker struct{}

var _ Agent = FactChecker{}

func (FactChecker) Descriptor() Descriptor {
	return Descriptor{
		Name:         factCheckerName,
		Requires:     []domain.Field{domain.FieldTopic, domain.FieldArticles},
		Output:       domain.FieldFactChecks,
		Capabilities: []Capability{CapabilityInference},
	}
}

func (FactChecker) Execute(ctx context.Context, rt Runtime, view domain.View) domain.StageResult {
	articles := view.Articles()
	results := make(map[string]domain.FactCheck, len(articles))
	var warnings []domain.PartialDataError

	if rt.Inference == nil {
		for _, art := range articles {
			results[art.ID] = heuristicCheck(art)
		}
		if len(articles) > 0 {
			warnings = append(warnings, warning(factCheckerName, "inference unavailable, %d articles checked heuristically", len(articles)))
		}
		return domain.Partial(domain.Payload{Field: domain.FieldFactChecks, FactChecks: results}, warnings...)
	}

	for _, art := range articles {
		if err := ctx.Err(); err != nil {
			return domain.Failure(err)
		}
		text, err := rt.Inference.Generate(ctx, ports.Prompt{
			System: factCheckerSystemPrompt,
			User:   fmt.Sprintf(articleUserPrompt, art.Title, art.Source, art.URL, art.Snippet),
		}, credibilitySchema.options(rt.Generation))
		if err != nil {
			return domain.Failure(fmt.Errorf("fact-check article %s: %w", art.ID, err))
		}

		flags := redFlags(articleText(art.Title, art.Snippet))
		reply, err := credibilitySchema.decode(text)
		if err != nil {
			results[art.ID] = domain.FactCheck{
				Verdict:     domain.VerdictUnverified,
				Credibility: 0.5,
				Assessment:  "Fact checking failed",
				RedFlags:    flags,
			}
			warnings = append(warnings, warning(factCheckerName, "article %q: %v", art.Title, err))
			continue
		}

		results[art.ID] = domain.FactCheck{
			Verdict:     domain.ParseVerdict(reply.Verdict),
			Credibility: clamp01(reply.Credibility),
			Assessment:  reply.Assessment,
			RedFlags:    flags,
		}
	}

	rt.logger().Debug("fact checks complete", "articles", len(articles), "warnings", len(warnings))
	return domain.Partial(domain.Payload{Field: domain.FieldFactChecks, FactChecks: results}, warnings...)
}

// heuristicCheck scores an article from its red flags alone.
func heuristicCheck(art domain.Article) domain.FactCheck {
	flags := redFlags(articleText(art.Title, art.Snippet))
	score := 0.7 - 0.1*float64(len(flags))
	if score < 0.3 {
		score = 0.3
	}
	return domain.FactCheck{
		Verdict:     domain.VerdictUnverified,
		Credibility: score,
		Assessment:  "Inference not available for fact checking",
		RedFlags:    flags,
	}
}
