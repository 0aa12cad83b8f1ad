package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"NewsAnalyst/internal/domain"
)

const (
	// DuckDuckGoName identifies the DuckDuckGo provider in the registry.
	DuckDuckGoName     = "duckduckgo"
	duckDuckGoEndpoint = "https://html.duckduckgo.com/html/"
	userAgent          = "NewsAnalyst/1.0"
)

// DuckDuckGo scrapes the HTML results page of DuckDuckGo. It needs no key and
// serves as the fallback provider.
type DuckDuckGo struct {
	endpoint string
	client   *http.Client
}

var _ Provider = (*DuckDuckGo)(nil)

// NewDuckDuckGo wires an HTTP client; an empty endpoint uses the public one.
func NewDuckDuckGo(endpoint string, client *http.Client) *DuckDuckGo {
	if endpoint == "" {
		endpoint = duckDuckGoEndpoint
	}
	if client == nil {
		client = &http.Client{}
	}
	return &DuckDuckGo{endpoint: endpoint, client: client}
}

// Name identifies the provider inside the registry.
func (d *DuckDuckGo) Name() string { return DuckDuckGoName }

// Query returns hits in page order.
func (d *DuckDuckGo) Query(ctx context.Context, text string, maxResults int) ([]domain.SearchHit, error) {
	const op = "duckduckgo search"
	if err := validateQuery(op, text, maxResults); err != nil {
		return nil, err
	}
	if maxResults == 0 {
		maxResults = defaultMaxResults
	}

	pageURL, err := buildSearchURL(d.endpoint, text)
	if err != nil {
		return nil, &domain.FatalError{Op: op, Err: err}
	}

	doc, err := d.fetchDocument(ctx, op, pageURL)
	if err != nil {
		return nil, err
	}
	return extractHits(doc, maxResults), nil
}

func (d *DuckDuckGo) fetchDocument(ctx context.Context, op, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &domain.FatalError{Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, domain.Classify(op, fmt.Errorf("request document: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, domain.FromStatus(op, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, domain.Classify(op, fmt.Errorf("parse document: %w", err))
	}
	return doc, nil
}

func extractHits(doc *goquery.Document, maxResults int) []domain.SearchHit {
	var hits []domain.SearchHit
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.HasClass("result--ad") {
			return true
		}
		link := s.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		target := resolveRedirect(href)
		title := strings.TrimSpace(link.Text())
		if target == "" || title == "" {
			return true
		}
		hits = append(hits, domain.SearchHit{
			Title:   title,
			URL:     target,
			Snippet: strings.TrimSpace(s.Find(".result__snippet").First().Text()),
			Source:  sourceFromURL(target),
		})
		return len(hits) < maxResults
	})
	return hits
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= tracking links.
func resolveRedirect(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

func buildSearchURL(base, text string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid search endpoint %s: %w", base, err)
	}
	query := parsed.Query()
	query.Set("q", text)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
