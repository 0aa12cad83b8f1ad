package report

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"NewsAnalyst/internal/domain"
)

// Reliability levels derived from the mean credibility score.
const (
	ReliabilityHigh     = "High"
	ReliabilityModerate = "Moderate"
	ReliabilityLow      = "Low"
)

// ThemeStat counts one theme across articles, split by sentiment.
type ThemeStat struct {
	Theme       string
	Mentions    int
	BySentiment map[domain.Sentiment]int
}

// FlagStat counts one red flag across articles.
type FlagStat struct {
	Flag  string
	Count int
}

// EntityStat counts the articles that name an entity.
type EntityStat struct {
	Entity   string
	Articles int
}

// Stats aggregates per-article analysis and fact checks.
type Stats struct {
	Articles        int
	Analyzed        int
	Sentiment       map[domain.Sentiment]int
	Dominant        domain.Sentiment
	Themes          []ThemeStat
	Entities        []EntityStat
	Checked         int
	MeanCredibility float64
	Reliability     string
	RedFlags        []FlagStat
}

// Compute walks articles in order and aggregates whatever analysis and fact
// checks the lookups return. Every slice in the result has a total order.
func Compute(articles []domain.Article,
	analysis func(id string) (domain.Analysis, bool),
	facts func(id string) (domain.FactCheck, bool),
) Stats {
	st := Stats{
		Articles:  len(articles),
		Sentiment: map[domain.Sentiment]int{},
	}

	themes := map[string]*ThemeStat{}
	flags := map[string]int{}
	entities := map[string]int{}
	var credibility float64

	for _, art := range articles {
		if a, ok := analysis(art.ID); ok {
			st.Analyzed++
			st.Sentiment[a.Sentiment]++
			for _, t := range a.Themes {
				ts, ok := themes[t]
				if !ok {
					ts = &ThemeStat{Theme: t, BySentiment: map[domain.Sentiment]int{}}
					themes[t] = ts
				}
				ts.Mentions++
				ts.BySentiment[a.Sentiment]++
			}
			named := map[string]bool{}
			for _, e := range a.Entities {
				e = strings.TrimSpace(e)
				if e == "" || named[e] {
					continue
				}
				named[e] = true
				entities[e]++
			}
		}
		if fc, ok := facts(art.ID); ok {
			st.Checked++
			credibility += fc.Credibility
			for _, f := range fc.RedFlags {
				flags[f]++
			}
		}
	}

	best := 0
	for _, s := range domain.Sentiments {
		if n := st.Sentiment[s]; n > best {
			best = n
			st.Dominant = s
		}
	}

	for _, name := range slices.Sorted(maps.Keys(themes)) {
		st.Themes = append(st.Themes, *themes[name])
	}
	slices.SortStableFunc(st.Themes, func(a, b ThemeStat) int {
		return cmp.Compare(b.Mentions, a.Mentions)
	})

	for _, name := range slices.Sorted(maps.Keys(entities)) {
		st.Entities = append(st.Entities, EntityStat{Entity: name, Articles: entities[name]})
	}
	slices.SortStableFunc(st.Entities, func(a, b EntityStat) int {
		return cmp.Compare(b.Articles, a.Articles)
	})

	for _, name := range slices.Sorted(maps.Keys(flags)) {
		st.RedFlags = append(st.RedFlags, FlagStat{Flag: name, Count: flags[name]})
	}
	slices.SortStableFunc(st.RedFlags, func(a, b FlagStat) int {
		return cmp.Compare(b.Count, a.Count)
	})

	if st.Checked > 0 {
		st.MeanCredibility = credibility / float64(st.Checked)
		st.Reliability = reliabilityLevel(st.MeanCredibility)
	}
	return st
}

func reliabilityLevel(score float64) string {
	switch {
	case score >= 0.7:
		return ReliabilityHigh
	case score >= 0.5:
		return ReliabilityModerate
	default:
		return ReliabilityLow
	}
}
