package domain

import (
	"fmt"
	"maps"
	"slices"
)

// Field names a Run Record slot.
type Field string

const (
	FieldTopic      Field = "topic"
	FieldArticles   Field = "articles"
	FieldAnalysis   Field = "analysis"
	FieldFactChecks Field = "fact_checks"
	FieldReport     Field = "report"
)

// RunRecord accumulates the output of every stage of a single run.
// Fields are written at most once; presence is tracked separately from emptiness.
type RunRecord struct {
	RunID      string
	Topic      string
	Articles   []Article
	Analysis   map[string]Analysis
	FactChecks map[string]FactCheck
	Report     string

	present map[Field]bool
}

// NewRunRecord starts a record holding only the topic.
func NewRunRecord(runID, topic string) *RunRecord {
	return &RunRecord{
		RunID:   runID,
		Topic:   topic,
		present: map[Field]bool{FieldTopic: true},
	}
}

// Has reports whether a field has been written.
func (r *RunRecord) Has(f Field) bool {
	return r != nil && r.present[f]
}

// Fields lists written fields in pipeline order.
func (r *RunRecord) Fields() []Field {
	var out []Field
	for _, f := range []Field{FieldTopic, FieldArticles, FieldAnalysis, FieldFactChecks, FieldReport} {
		if r.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Clone returns a deep copy, used when handing a partial record to callers.
func (r *RunRecord) Clone() *RunRecord {
	if r == nil {
		return nil
	}
	out := &RunRecord{
		RunID:   r.RunID,
		Topic:   r.Topic,
		Report:  r.Report,
		present: maps.Clone(r.present),
	}
	if r.Articles != nil {
		out.Articles = slices.Clone(r.Articles)
	}
	if r.Analysis != nil {
		out.Analysis = make(map[string]Analysis, len(r.Analysis))
		for id, a := range r.Analysis {
			a.Themes = slices.Clone(a.Themes)
			a.Entities = slices.Clone(a.Entities)
			out.Analysis[id] = a
		}
	}
	if r.FactChecks != nil {
		out.FactChecks = make(map[string]FactCheck, len(r.FactChecks))
		for id, fc := range r.FactChecks {
			fc.RedFlags = slices.Clone(fc.RedFlags)
			out.FactChecks[id] = fc
		}
	}
	return out
}

// View builds a read-only snapshot restricted to the given fields.
func (r *RunRecord) View(fields ...Field) View {
	snap := r.Clone()
	v := View{topic: r.Topic, present: map[Field]bool{}}
	for _, f := range fields {
		if !r.Has(f) {
			continue
		}
		v.present[f] = true
		switch f {
		case FieldArticles:
			v.articles = snap.Articles
		case FieldAnalysis:
			v.analysis = snap.Analysis
		case FieldFactChecks:
			v.factChecks = snap.FactChecks
		case FieldReport:
			v.report = snap.Report
		}
	}
	v.present[FieldTopic] = true
	return v
}

// Payload is what a stage hands back for merging. Only the slot named by Field may be set.
type Payload struct {
	Field      Field
	Articles   []Article
	Analysis   map[string]Analysis
	FactChecks map[string]FactCheck
	Report     string
}

// Merge applies a stage payload under the append-only rules. Entries keyed by
// unknown article ids are dropped and reported as warnings.
func (r *RunRecord) Merge(stage string, output Field, p Payload) ([]PartialDataError, error) {
	if p.Field != output {
		return nil, &FatalError{Op: "merge " + stage, Err: fmt.Errorf("payload targets %q, stage declares %q", p.Field, output)}
	}
	if err := p.strayFields(); err != nil {
		return nil, &FatalError{Op: "merge " + stage, Err: err}
	}
	if r.Has(output) {
		return nil, &FatalError{Op: "merge " + stage, Err: fmt.Errorf("field %q already written", output)}
	}

	var warnings []PartialDataError
	known := make(map[string]bool, len(r.Articles))
	for _, a := range r.Articles {
		known[a.ID] = true
	}

	switch output {
	case FieldArticles:
		r.Articles = slices.Clone(p.Articles)
		if r.Articles == nil {
			r.Articles = []Article{}
		}
	case FieldAnalysis:
		r.Analysis = map[string]Analysis{}
		for _, id := range slices.Sorted(maps.Keys(p.Analysis)) {
			if !known[id] {
				warnings = append(warnings, PartialDataError{Stage: stage, Detail: fmt.Sprintf("dropped analysis for unknown article %s", id)})
				continue
			}
			r.Analysis[id] = p.Analysis[id]
		}
	case FieldFactChecks:
		r.FactChecks = map[string]FactCheck{}
		for _, id := range slices.Sorted(maps.Keys(p.FactChecks)) {
			if !known[id] {
				warnings = append(warnings, PartialDataError{Stage: stage, Detail: fmt.Sprintf("dropped fact check for unknown article %s", id)})
				continue
			}
			r.FactChecks[id] = p.FactChecks[id]
		}
	case FieldReport:
		r.Report = p.Report
	default:
		return nil, &FatalError{Op: "merge " + stage, Err: fmt.Errorf("field %q is not writable", output)}
	}
	r.mark(output)
	return warnings, nil
}

func (r *RunRecord) mark(f Field) {
	if r.present == nil {
		r.present = map[Field]bool{FieldTopic: true}
	}
	r.present[f] = true
}

func (p Payload) strayFields() error {
	set := map[Field]bool{
		FieldArticles:   p.Articles != nil,
		FieldAnalysis:   p.Analysis != nil,
		FieldFactChecks: p.FactChecks != nil,
		FieldReport:     p.Report != "",
	}
	for _, f := range []Field{FieldArticles, FieldAnalysis, FieldFactChecks, FieldReport} {
		if set[f] && f != p.Field {
			return fmt.Errorf("payload for %q also writes %q", p.Field, f)
		}
	}
	return nil
}

// View is the read-only slice of a Run Record handed to an agent.
type View struct {
	topic      string
	articles   []Article
	analysis   map[string]Analysis
	factChecks map[string]FactCheck
	report     string
	present    map[Field]bool
}

// Topic returns the run topic.
func (v View) Topic() string { return v.topic }

// Has reports whether the field was both requested and present.
func (v View) Has(f Field) bool { return v.present[f] }

// Articles returns the articles in discovery order.
func (v View) Articles() []Article { return slices.Clone(v.articles) }

// Analysis returns the analysis for one article.
func (v View) Analysis(id string) (Analysis, bool) {
	a, ok := v.analysis[id]
	return a, ok
}

// FactCheck returns the fact check for one article.
func (v View) FactCheck(id string) (FactCheck, bool) {
	fc, ok := v.factChecks[id]
	return fc, ok
}

// Report returns the narrative report text.
func (v View) Report() string { return v.report }

// Substitute returns a view in which a missing field reads as its empty default.
// The underlying record is left untouched, so the field stays absent there.
func (v View) Substitute(f Field) View {
	if v.present[f] {
		return v
	}
	present := maps.Clone(v.present)
	present[f] = true
	v.present = present
	switch f {
	case FieldArticles:
		v.articles = []Article{}
	case FieldAnalysis:
		v.analysis = map[string]Analysis{}
	case FieldFactChecks:
		v.factChecks = map[string]FactCheck{}
	case FieldReport:
		v.report = ""
	}
	return v
}
