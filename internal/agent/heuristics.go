package agent

import (
	"regexp"
	"slices"
	"strings"
)

const maxEntities = 10

var entityExpr = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)

var (
	sensationalWords = []string{"shocking", "unbelievable", "incredible", "amazing", "devastating"}
	absoluteWords    = []string{"always", "never", "all", "none", "everyone", "nobody"}
	attributionCues  = []string{"source", "according to"}
)

// Red flags raised by the lexical credibility checks.
const (
	FlagSensational = "Contains sensational language"
	FlagAttribution = "Limited source attribution"
	FlagAbsolute    = "Contains absolute statements"
)

// extractEntities returns capitalized word runs, unique and sorted.
func extractEntities(text string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range entityExpr.FindAllString(text, -1) {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
		if len(out) == maxEntities {
			break
		}
	}
	slices.Sort(out)
	return out
}

// redFlags runs the lexical credibility checks over an article's text.
func redFlags(text string) []string {
	lower := strings.ToLower(text)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r == '\'')
	})

	var flags []string
	if containsAny(lower, sensationalWords) {
		flags = append(flags, FlagSensational)
	}
	if !containsAny(lower, attributionCues) {
		flags = append(flags, FlagAttribution)
	}
	for _, w := range words {
		if slices.Contains(absoluteWords, w) {
			flags = append(flags, FlagAbsolute)
			break
		}
	}
	return flags
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// normalizeThemes lowercases, trims and de-duplicates model themes.
func normalizeThemes(themes []string, limit int) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(themes))
	for _, t := range themes {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func articleText(title, snippet string) string {
	if snippet == "" {
		return title
	}
	return title + ". " + snippet
}
