package domain

import "strings"

// Article is a news item discovered by the research stage.
type Article struct {
	ID      string
	Title   string
	URL     string
	Snippet string
	Source  string
	Query   string
}

// SearchHit is a single ranked result returned by a search provider.
type SearchHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
}

// Sentiment buckets used by the analysis stage.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Sentiments lists buckets in report order.
var Sentiments = []Sentiment{SentimentPositive, SentimentNeutral, SentimentNegative}

// ParseSentiment maps free-form model output onto a bucket, defaulting to neutral.
func ParseSentiment(value string) Sentiment {
	switch Sentiment(strings.ToLower(strings.TrimSpace(value))) {
	case SentimentPositive:
		return SentimentPositive
	case SentimentNegative:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// Analysis captures sentiment and theme extraction for one article.
type Analysis struct {
	Sentiment  Sentiment
	Confidence float64
	Themes     []string
	Entities   []string
	Summary    string
}

// Verdict is the credibility classification of an article.
type Verdict string

const (
	VerdictVerified   Verdict = "verified"
	VerdictUnverified Verdict = "unverified"
	VerdictDisputed   Verdict = "disputed"
)

// ParseVerdict maps model output onto a verdict, defaulting to unverified.
func ParseVerdict(value string) Verdict {
	switch Verdict(strings.ToLower(strings.TrimSpace(value))) {
	case VerdictVerified:
		return VerdictVerified
	case VerdictDisputed:
		return VerdictDisputed
	default:
		return VerdictUnverified
	}
}

// FactCheck holds the credibility assessment of one article.
type FactCheck struct {
	Verdict     Verdict
	Credibility float64
	Assessment  string
	RedFlags    []string
}
