package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"NewsAnalyst/internal/domain"
)

const (
	// TavilyName identifies the Tavily provider in the registry.
	TavilyName         = "tavily"
	tavilyEndpoint     = "https://api.tavily.com/search"
	defaultTavilyDepth = "advanced"
	defaultMaxResults  = 5
)

// DefaultNewsDomains restricts Tavily to established outlets.
var DefaultNewsDomains = []string{"bbc.com", "reuters.com", "cnn.com", "npr.org"}

// TavilyOptions tunes the Tavily search request.
type TavilyOptions struct {
	Endpoint       string
	SearchDepth    string
	IncludeDomains []string
	HTTPClient     *http.Client
}

// Tavily queries the Tavily search API.
type Tavily struct {
	endpoint string
	apiKey   string
	depth    string
	domains  []string
	client   *http.Client
}

var _ Provider = (*Tavily)(nil)

// NewTavily wires an API key with optional request tuning.
func NewTavily(apiKey string, opts TavilyOptions) *Tavily {
	t := &Tavily{
		endpoint: opts.Endpoint,
		apiKey:   apiKey,
		depth:    opts.SearchDepth,
		domains:  opts.IncludeDomains,
		client:   opts.HTTPClient,
	}
	if t.endpoint == "" {
		t.endpoint = tavilyEndpoint
	}
	if t.depth == "" {
		t.depth = defaultTavilyDepth
	}
	if t.client == nil {
		t.client = &http.Client{}
	}
	return t
}

// Name identifies the provider inside the registry.
func (t *Tavily) Name() string { return TavilyName }

type tavilyRequest struct {
	Query          string   `json:"query"`
	Topic          string   `json:"topic"`
	SearchDepth    string   `json:"search_depth"`
	MaxResults     int      `json:"max_results"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Query returns hits in the order Tavily ranks them.
func (t *Tavily) Query(ctx context.Context, text string, maxResults int) ([]domain.SearchHit, error) {
	const op = "tavily search"
	if err := validateQuery(op, text, maxResults); err != nil {
		return nil, err
	}
	if t.apiKey == "" {
		return nil, &domain.FatalError{Op: op, Err: fmt.Errorf("api key is not configured")}
	}
	if maxResults == 0 {
		maxResults = defaultMaxResults
	}

	body, err := json.Marshal(tavilyRequest{
		Query:          text,
		Topic:          "news",
		SearchDepth:    t.depth,
		MaxResults:     maxResults,
		IncludeDomains: t.domains,
	})
	if err != nil {
		return nil, &domain.FatalError{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.FatalError{Op: op, Err: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, domain.Classify(op, fmt.Errorf("do request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, domain.FromStatus(op, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &domain.FatalError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}

	hits := make([]domain.SearchHit, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		if len(hits) == maxResults {
			break
		}
		hits = append(hits, domain.SearchHit{
			Title:   strings.TrimSpace(r.Title),
			URL:     strings.TrimSpace(r.URL),
			Snippet: strings.TrimSpace(r.Content),
			Source:  sourceFromURL(r.URL),
		})
	}
	return hits, nil
}
