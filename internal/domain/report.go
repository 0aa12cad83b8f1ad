package domain

import "strings"

// InsufficientData marks report sections whose inputs were absent or empty.
const InsufficientData = "_insufficient data_"

// Section is one titled block of a report.
type Section struct {
	Title        string
	Lines        []string
	Insufficient bool
}

// ReportEntry is the per-article line of a report.
type ReportEntry struct {
	ArticleID   string
	Title       string
	URL         string
	Source      string
	Sentiment   Sentiment
	Credibility string
}

// Report is the assembled outcome of a completed run.
type Report struct {
	RunID    string
	Topic    string
	Summary  string
	Entries  []ReportEntry
	Sections []Section
	Warnings []PartialDataError
}

// Section returns the section with the given title.
func (r *Report) Section(title string) (Section, bool) {
	for _, s := range r.Sections {
		if s.Title == title {
			return s, true
		}
	}
	return Section{}, false
}

// Markdown renders the report. Output depends only on report contents.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# News Analysis Report: ")
	b.WriteString(r.Topic)
	b.WriteString("\n\n")
	for _, s := range r.Sections {
		b.WriteString("## ")
		b.WriteString(s.Title)
		b.WriteString("\n\n")
		for _, line := range s.Lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}
