// Package report turns a finished Run Record into a Report.
package report

import (
	"fmt"
	"strings"

	"NewsAnalyst/internal/domain"
)

// Section titles in render order.
const (
	SectionSummary     = "Summary"
	SectionSentiment   = "Sentiment"
	SectionThemes      = "Themes"
	SectionEntities    = "Key Entities"
	SectionCredibility = "Credibility"
	SectionArticles    = "Articles"
	SectionWarnings    = "Warnings"
	SectionMethodology = "Methodology"
)

const (
	maxThemes        = 8
	maxEntities      = 10
	maxArticleThemes = 3
	maxPreview       = 200
	notAnalyzed      = "n/a"
	notChecked       = "NOT CHECKED"
)

var methodology = []string{
	"This report was generated by a multi-agent pipeline that:",
	"1. Searched for relevant news articles",
	"2. Analyzed content for sentiment, themes and entities",
	"3. Performed fact-checking and credibility assessment",
	"4. Generated the executive summary",
	"",
	"**Disclaimer:** This analysis is generated by AI and should be verified with additional sources.",
}

// Assemble builds the report from the record and the warnings gathered during the
// run. It reads nothing but its arguments, so equal inputs give equal reports.
func Assemble(record *domain.RunRecord, warnings []domain.PartialDataError) *domain.Report {
	analysis := func(id string) (domain.Analysis, bool) {
		a, ok := record.Analysis[id]
		return a, ok
	}
	facts := func(id string) (domain.FactCheck, bool) {
		fc, ok := record.FactChecks[id]
		return fc, ok
	}
	st := Compute(record.Articles, analysis, facts)

	rep := &domain.Report{
		RunID:    record.RunID,
		Topic:    record.Topic,
		Summary:  strings.TrimSpace(record.Report),
		Warnings: append([]domain.PartialDataError(nil), warnings...),
	}
	for _, art := range record.Articles {
		entry := domain.ReportEntry{
			ArticleID: art.ID,
			Title:     art.Title,
			URL:       art.URL,
			Source:    art.Source,
		}
		if a, ok := analysis(art.ID); ok {
			entry.Sentiment = a.Sentiment
		}
		if fc, ok := facts(art.ID); ok {
			entry.Credibility = strings.ToUpper(string(fc.Verdict))
		}
		rep.Entries = append(rep.Entries, entry)
	}

	rep.Sections = []domain.Section{
		summarySection(record, rep.Summary),
		sentimentSection(record, st),
		themesSection(st),
		entitiesSection(record, st),
		credibilitySection(record, st),
		articlesSection(record, analysis, facts),
		warningsSection(warnings),
		{Title: SectionMethodology, Lines: methodology},
	}
	return rep
}

func insufficient(title string) domain.Section {
	return domain.Section{Title: title, Lines: []string{domain.InsufficientData}, Insufficient: true}
}

func summarySection(record *domain.RunRecord, summary string) domain.Section {
	if !record.Has(domain.FieldReport) || summary == "" {
		s := insufficient(SectionSummary)
		s.Lines = append(s.Lines, "", fmt.Sprintf("**Articles analyzed:** %d", len(record.Articles)))
		return s
	}
	lines := strings.Split(summary, "\n")
	lines = append(lines, "", fmt.Sprintf("**Articles analyzed:** %d", len(record.Articles)))
	if len(record.Articles) == 0 {
		lines = append(lines, "", domain.InsufficientData)
		return domain.Section{Title: SectionSummary, Lines: lines, Insufficient: true}
	}
	return domain.Section{Title: SectionSummary, Lines: lines}
}

func sentimentSection(record *domain.RunRecord, st Stats) domain.Section {
	if !record.Has(domain.FieldAnalysis) || st.Analyzed == 0 {
		return insufficient(SectionSentiment)
	}
	lines := []string{fmt.Sprintf("Dominant sentiment: **%s**", st.Dominant), ""}
	for _, s := range domain.Sentiments {
		n := st.Sentiment[s]
		pct := float64(n) / float64(st.Analyzed) * 100
		lines = append(lines, fmt.Sprintf("- %s: %d articles (%.1f%%)", capitalize(string(s)), n, pct))
		for _, art := range record.Articles {
			if a, ok := record.Analysis[art.ID]; ok && a.Sentiment == s {
				lines = append(lines, "  - "+art.Title)
			}
		}
	}
	return domain.Section{Title: SectionSentiment, Lines: lines}
}

func themesSection(st Stats) domain.Section {
	if len(st.Themes) == 0 {
		return insufficient(SectionThemes)
	}
	var lines []string
	for i, t := range st.Themes {
		if i == maxThemes {
			break
		}
		parts := make([]string, 0, len(domain.Sentiments))
		for _, s := range domain.Sentiments {
			parts = append(parts, fmt.Sprintf("%s %d", s, t.BySentiment[s]))
		}
		lines = append(lines, fmt.Sprintf("- %s: %d mentions (%s)", t.Theme, t.Mentions, strings.Join(parts, ", ")))
	}
	return domain.Section{Title: SectionThemes, Lines: lines}
}

func entitiesSection(record *domain.RunRecord, st Stats) domain.Section {
	if !record.Has(domain.FieldAnalysis) || len(st.Entities) == 0 {
		return insufficient(SectionEntities)
	}
	names := make([]string, 0, maxEntities)
	for i, e := range st.Entities {
		if i == maxEntities {
			break
		}
		names = append(names, e.Entity)
	}
	return domain.Section{Title: SectionEntities, Lines: []string{"Identified entities: " + strings.Join(names, ", ")}}
}

func credibilitySection(record *domain.RunRecord, st Stats) domain.Section {
	if !record.Has(domain.FieldFactChecks) || st.Checked == 0 {
		return insufficient(SectionCredibility)
	}
	lines := []string{
		fmt.Sprintf("- Overall credibility score: %.2f/1.0", st.MeanCredibility),
		fmt.Sprintf("- Reliability: %s", st.Reliability),
	}
	if len(st.RedFlags) > 0 {
		lines = append(lines, "", "Common issues:")
		for _, f := range st.RedFlags {
			lines = append(lines, fmt.Sprintf("- %s: %d articles", f.Flag, f.Count))
		}
	}
	return domain.Section{Title: SectionCredibility, Lines: lines}
}

func articlesSection(record *domain.RunRecord,
	analysis func(string) (domain.Analysis, bool),
	facts func(string) (domain.FactCheck, bool),
) domain.Section {
	if len(record.Articles) == 0 {
		return insufficient(SectionArticles)
	}
	var lines []string
	for i, art := range record.Articles {
		lines = append(lines,
			fmt.Sprintf("%d. **%s** (%s)", i+1, art.Title, art.Source),
			"   - URL: "+art.URL,
		)

		a, analyzed := analysis(art.ID)
		if !analyzed {
			lines = append(lines, "   - Sentiment: "+notAnalyzed)
		} else {
			lines = append(lines, fmt.Sprintf("   - Sentiment: %s (confidence %.2f)", a.Sentiment, a.Confidence))
			if len(a.Themes) > 0 {
				lines = append(lines, "   - Themes: "+strings.Join(a.Themes[:min(len(a.Themes), maxArticleThemes)], ", "))
			}
			if summary := oneLine(a.Summary); summary != "" {
				lines = append(lines, "   - Summary: "+summary)
			}
		}

		fc, checked := facts(art.ID)
		if !checked {
			lines = append(lines, "   - Credibility: "+notChecked)
		} else {
			credibility := fmt.Sprintf("%s (%.2f)", strings.ToUpper(string(fc.Verdict)), fc.Credibility)
			if len(fc.RedFlags) > 0 {
				credibility += "; " + strings.Join(fc.RedFlags, "; ")
			}
			lines = append(lines, "   - Credibility: "+credibility)
			if assessment := oneLine(fc.Assessment); assessment != "" {
				lines = append(lines, "   - Assessment: "+assessment)
			}
		}

		if preview := previewText(art.Snippet); preview != "" {
			lines = append(lines, "   - Preview: "+preview)
		}
	}
	return domain.Section{Title: SectionArticles, Lines: lines}
}

func warningsSection(warnings []domain.PartialDataError) domain.Section {
	if len(warnings) == 0 {
		return domain.Section{Title: SectionWarnings, Lines: []string{"None"}}
	}
	lines := make([]string, 0, len(warnings))
	for _, w := range warnings {
		lines = append(lines, "- "+w.Error())
	}
	return domain.Section{Title: SectionWarnings, Lines: lines}
}

// oneLine collapses whitespace so free text cannot break the list layout.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func previewText(s string) string {
	s = oneLine(s)
	runes := []rune(s)
	if len(runes) <= maxPreview {
		return s
	}
	return strings.TrimSpace(string(runes[:maxPreview])) + "..."
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
