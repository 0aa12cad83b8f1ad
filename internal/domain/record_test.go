package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRecordMergeAppendOnly(t *testing.T) {
	t.Parallel()

	rec := NewRunRecord("run-1", "solar")
	require.Equal(t, []Field{FieldTopic}, rec.Fields())

	arts := []Article{{ID: "a1", Title: "One"}, {ID: "a2", Title: "Two"}}
	warnings, err := rec.Merge("researcher", FieldArticles, Payload{Field: FieldArticles, Articles: arts})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.True(t, rec.Has(FieldArticles))

	arts[0].Title = "mutated"
	assert.Equal(t, "One", rec.Articles[0].Title, "record must own its articles")

	_, err = rec.Merge("researcher", FieldArticles, Payload{Field: FieldArticles, Articles: arts})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, "One", rec.Articles[0].Title)
}

func TestRunRecordMergeRejectsStrayFields(t *testing.T) {
	t.Parallel()

	rec := NewRunRecord("run-1", "solar")

	_, err := rec.Merge("analyzer", FieldAnalysis, Payload{Field: FieldArticles})
	require.Error(t, err)
	assert.True(t, IsFatal(err))

	_, err = rec.Merge("analyzer", FieldAnalysis, Payload{
		Field:    FieldAnalysis,
		Analysis: map[string]Analysis{},
		Report:   "sneaky",
	})
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.False(t, rec.Has(FieldAnalysis))
	assert.False(t, rec.Has(FieldReport))
}

func TestRunRecordMergeDropsUnknownArticles(t *testing.T) {
	t.Parallel()

	rec := NewRunRecord("run-1", "solar")
	_, err := rec.Merge("researcher", FieldArticles, Payload{Field: FieldArticles, Articles: []Article{{ID: "a1"}}})
	require.NoError(t, err)

	warnings, err := rec.Merge("factchecker", FieldFactChecks, Payload{
		Field: FieldFactChecks,
		FactChecks: map[string]FactCheck{
			"a1":    {Verdict: VerdictVerified},
			"ghost": {Verdict: VerdictDisputed},
		},
	})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, "factchecker", warnings[0].Stage)
	assert.Contains(t, warnings[0].Detail, "ghost")
	assert.Len(t, rec.FactChecks, 1)
}

func TestRunRecordMergeNilArticlesIsPresentAndEmpty(t *testing.T) {
	t.Parallel()

	rec := NewRunRecord("run-1", "solar")
	_, err := rec.Merge("researcher", FieldArticles, Payload{Field: FieldArticles})
	require.NoError(t, err)
	assert.True(t, rec.Has(FieldArticles))
	assert.NotNil(t, rec.Articles)
	assert.Empty(t, rec.Articles)
}

func TestRunRecordZeroValueMerge(t *testing.T) {
	t.Parallel()

	var rec RunRecord
	_, err := rec.Merge("reporter", FieldReport, Payload{Field: FieldReport, Report: "text"})
	require.NoError(t, err)
	assert.True(t, rec.Has(FieldReport))
	assert.True(t, rec.Has(FieldTopic))
}

func TestRunRecordViewIsRestrictedCopy(t *testing.T) {
	t.Parallel()

	rec := NewRunRecord("run-1", "solar")
	_, err := rec.Merge("researcher", FieldArticles, Payload{Field: FieldArticles, Articles: []Article{{ID: "a1", Title: "One"}}})
	require.NoError(t, err)
	_, err = rec.Merge("analyzer", FieldAnalysis, Payload{
		Field:    FieldAnalysis,
		Analysis: map[string]Analysis{"a1": {Sentiment: SentimentPositive, Themes: []string{"grid"}}},
	})
	require.NoError(t, err)

	view := rec.View(FieldArticles)
	assert.Equal(t, "solar", view.Topic())
	assert.True(t, view.Has(FieldArticles))
	assert.False(t, view.Has(FieldAnalysis))
	_, ok := view.Analysis("a1")
	assert.False(t, ok, "analysis was not requested")

	arts := view.Articles()
	arts[0].Title = "mutated"
	assert.Equal(t, "One", rec.Articles[0].Title)

	full := rec.View(FieldArticles, FieldAnalysis)
	a, ok := full.Analysis("a1")
	require.True(t, ok)
	a.Themes[0] = "mutated"
	assert.Equal(t, "grid", rec.Analysis["a1"].Themes[0])
}

func TestViewSubstituteLeavesRecordAbsent(t *testing.T) {
	t.Parallel()

	rec := NewRunRecord("run-1", "solar")
	view := rec.View(FieldArticles).Substitute(FieldArticles)

	assert.True(t, view.Has(FieldArticles))
	assert.NotNil(t, view.Articles())
	assert.Empty(t, view.Articles())
	assert.False(t, rec.Has(FieldArticles))
}

func TestRunRecordClone(t *testing.T) {
	t.Parallel()

	rec := NewRunRecord("run-1", "solar")
	_, err := rec.Merge("researcher", FieldArticles, Payload{Field: FieldArticles, Articles: []Article{{ID: "a1"}}})
	require.NoError(t, err)
	_, err = rec.Merge("factchecker", FieldFactChecks, Payload{
		Field:      FieldFactChecks,
		FactChecks: map[string]FactCheck{"a1": {RedFlags: []string{"flag"}}},
	})
	require.NoError(t, err)

	clone := rec.Clone()
	clone.FactChecks["a1"].RedFlags[0] = "changed"
	clone.Articles[0].ID = "changed"

	assert.Equal(t, "flag", rec.FactChecks["a1"].RedFlags[0])
	assert.Equal(t, "a1", rec.Articles[0].ID)
	assert.Equal(t, rec.Fields(), clone.Fields())
	assert.Nil(t, (*RunRecord)(nil).Clone())
}
