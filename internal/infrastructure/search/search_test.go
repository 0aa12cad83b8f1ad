package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/redis/go-redis/v9"

	"NewsAnalyst/internal/domain"
)

const resultsPage = `
<html><body>
<div class="results">
  <div class="result results_links web-result">
    <h2 class="result__title">
      <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.reuters.com%2Fbusiness%2Fsolar&amp;rut=abc">Solar <b>record</b></a>
    </h2>
    <a class="result__snippet" href="#">Installs doubled this year.</a>
  </div>
  <div class="result result--ad">
    <a class="result__a" href="https://ads.example.com">Buy panels</a>
  </div>
  <div class="result">
    <a class="result__a" href="javascript:void(0)">Broken</a>
  </div>
  <div class="result">
    <a class="result__a" href="https://www.bbc.com/news/wind">Wind auction delayed</a>
    <div class="result__snippet">Bids postponed.</div>
  </div>
  <div class="result">
    <a class="result__a" href="https://npr.org/grid">Grid strain</a>
  </div>
</div>
</body></html>`

func TestExtractHits(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resultsPage))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	hits := extractHits(doc, 2)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].URL != "https://www.reuters.com/business/solar" {
		t.Fatalf("redirect not resolved: %s", hits[0].URL)
	}
	if hits[0].Title != "Solar record" || hits[0].Source != "reuters.com" {
		t.Fatalf("unexpected first hit: %+v", hits[0])
	}
	if hits[0].Snippet != "Installs doubled this year." {
		t.Fatalf("unexpected snippet: %q", hits[0].Snippet)
	}
	if hits[1].Title != "Wind auction delayed" || hits[1].Source != "bbc.com" {
		t.Fatalf("ads and broken links must be skipped, got %+v", hits[1])
	}
}

func TestDuckDuckGoQuery(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "renewable energy" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		if r.Header.Get("User-Agent") != userAgent {
			http.Error(w, "missing agent", http.StatusForbidden)
			return
		}
		_, _ = io.WriteString(w, resultsPage)
	}))
	defer srv.Close()

	ddg := NewDuckDuckGo(srv.URL+"/html/", srv.Client())
	hits, err := ddg.Query(context.Background(), "renewable energy", 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[2].URL != "https://npr.org/grid" {
		t.Fatalf("unexpected order: %+v", hits)
	}
}

func TestDuckDuckGoStatusErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewDuckDuckGo(srv.URL, srv.Client()).Query(context.Background(), "x", 3)
	if !domain.IsTransient(err) {
		t.Fatalf("expected transient error, got %v", err)
	}

	_, err = NewDuckDuckGo(srv.URL, srv.Client()).Query(context.Background(), "  ", 3)
	if !domain.IsFatal(err) {
		t.Fatalf("expected fatal error for empty query, got %v", err)
	}
}

func TestResolveRedirect(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fa": "https://example.com/a",
		"https://example.com/b":                                  "https://example.com/b",
		"/relative/path":                                         "",
		"mailto:someone@example.com":                             "",
	}
	for in, want := range cases {
		if got := resolveRedirect(in); got != want {
			t.Fatalf("resolveRedirect(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTavilyQuery(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var received tavilyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tvly-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		mu.Lock()
		err := json.NewDecoder(r.Body).Decode(&received)
		mu.Unlock()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, _ = io.WriteString(w, `{"results":[
			{"title":" Solar record ","url":"https://www.reuters.com/solar","content":"Installs doubled.","score":0.9},
			{"title":"Wind delay","url":"https://bbc.com/wind","content":"Bids postponed.","score":0.7},
			{"title":"Grid strain","url":"https://npr.org/grid","content":"Thin margins.","score":0.5}
		]}`)
	}))
	defer srv.Close()

	tv := NewTavily("tvly-key", TavilyOptions{Endpoint: srv.URL, IncludeDomains: DefaultNewsDomains, HTTPClient: srv.Client()})
	hits, err := tv.Query(context.Background(), "solar", 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected results capped at 2, got %d", len(hits))
	}
	if hits[0].Title != "Solar record" || hits[0].Source != "reuters.com" || hits[0].Snippet != "Installs doubled." {
		t.Fatalf("unexpected first hit: %+v", hits[0])
	}

	mu.Lock()
	defer mu.Unlock()
	if received.Topic != "news" || received.SearchDepth != defaultTavilyDepth || received.MaxResults != 2 {
		t.Fatalf("unexpected request: %+v", received)
	}
	if len(received.IncludeDomains) != len(DefaultNewsDomains) {
		t.Fatalf("include domains not forwarded: %v", received.IncludeDomains)
	}
}

func TestTavilyErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewTavily("bad", TavilyOptions{Endpoint: srv.URL}).Query(context.Background(), "solar", 3)
	if !domain.IsFatal(err) || !strings.Contains(err.Error(), "invalid key") {
		t.Fatalf("expected fatal auth error, got %v", err)
	}

	_, err = NewTavily("", TavilyOptions{Endpoint: srv.URL}).Query(context.Background(), "solar", 3)
	if !domain.IsFatal(err) {
		t.Fatalf("expected fatal error without key, got %v", err)
	}
}

type fakeProvider struct {
	name  string
	hits  []domain.SearchHit
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Query(context.Context, string, int) ([]domain.SearchHit, error) {
	f.calls++
	return f.hits, f.err
}

func TestRegistryChainAndFallback(t *testing.T) {
	t.Parallel()

	primary := &fakeProvider{name: "tavily", err: &domain.TransientError{Op: "tavily", Err: errors.New("502")}}
	backup := &fakeProvider{name: "duckduckgo", hits: []domain.SearchHit{{Title: "ok", URL: "https://example.com"}}}

	reg := NewRegistry()
	reg.Register(primary)
	reg.Register(backup)

	chain, err := reg.Chain([]string{"missing", "tavily", "duckduckgo"}, nil)
	if err != nil {
		t.Fatalf("chain: %v", err)
	}
	if got := strings.Join(chain.Providers(), ","); got != "tavily,duckduckgo" {
		t.Fatalf("unexpected providers: %s", got)
	}

	hits, err := chain.Query(context.Background(), "solar", 5)
	if err != nil {
		t.Fatalf("fallback query: %v", err)
	}
	if len(hits) != 1 || primary.calls != 1 || backup.calls != 1 {
		t.Fatalf("unexpected fallback behavior: hits=%d primary=%d backup=%d", len(hits), primary.calls, backup.calls)
	}

	backup.err = &domain.FatalError{Op: "duckduckgo", Err: errors.New("blocked")}
	_, err = chain.Query(context.Background(), "solar", 5)
	if !domain.IsFatal(err) {
		t.Fatalf("expected last provider error, got %v", err)
	}

	if _, err := reg.Chain([]string{"nope"}, nil); err == nil {
		t.Fatalf("expected error for empty chain")
	}
}

func TestFallbackStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	first := &fakeProvider{name: "a", err: context.Canceled}
	second := &fakeProvider{name: "b"}
	chain := &Fallback{providers: []Provider{first, second}}

	_, err := chain.Query(ctx, "x", 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if second.calls != 0 {
		t.Fatalf("fallback must not continue after cancellation")
	}
}

func TestRateLimited(t *testing.T) {
	t.Parallel()

	next := &fakeProvider{name: "n"}
	unlimited := NewRateLimited(next, 0, 0)
	for range 5 {
		if _, err := unlimited.Query(context.Background(), "x", 1); err != nil {
			t.Fatalf("unlimited query: %v", err)
		}
	}

	limited := NewRateLimited(&fakeProvider{name: "n"}, 0.5, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := limited.Query(ctx, "x", 1); err != nil {
		t.Fatalf("first query should use the burst: %v", err)
	}
	_, err := limited.Query(ctx, "x", 1)
	if !domain.IsTransient(err) {
		t.Fatalf("expected transient rate limit error, got %v", err)
	}
}

type memoryStore struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
	sets   int
}

func (s *memoryStore) Get(_ context.Context, key string) *redis.StringCmd {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return redis.NewStringResult("", s.getErr)
	}
	v, ok := s.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (s *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.data == nil {
		s.data = map[string]string{}
	}
	s.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func TestCachedQuery(t *testing.T) {
	t.Parallel()

	next := &fakeProvider{name: "n", hits: []domain.SearchHit{{Title: "Solar", URL: "https://example.com/solar", Source: "example.com"}}}
	store := &memoryStore{}
	cached := NewCached(next, store, time.Hour, nil)

	for _, q := range []string{"Solar Power", " solar power "} {
		hits, err := cached.Query(context.Background(), q, 5)
		if err != nil {
			t.Fatalf("cached query: %v", err)
		}
		if len(hits) != 1 || hits[0].URL != "https://example.com/solar" {
			t.Fatalf("unexpected hits: %+v", hits)
		}
	}
	if next.calls != 1 || store.sets != 1 {
		t.Fatalf("expected one upstream call and one write, got calls=%d sets=%d", next.calls, store.sets)
	}
	if _, ok := store.data["newsanalyst:search:5:solar power"]; !ok {
		t.Fatalf("unexpected cache keys: %v", store.data)
	}

	if _, err := cached.Query(context.Background(), "solar power", 3); err != nil {
		t.Fatalf("cached query: %v", err)
	}
	if next.calls != 2 {
		t.Fatalf("different result limits must not share an entry")
	}
}

func TestCachedDegradesOnStoreFailure(t *testing.T) {
	t.Parallel()

	next := &fakeProvider{name: "n", hits: []domain.SearchHit{{Title: "x", URL: "https://example.com"}}}
	store := &memoryStore{getErr: errors.New("connection refused")}
	cached := NewCached(next, store, time.Minute, nil)

	hits, err := cached.Query(context.Background(), "x", 1)
	if err != nil || len(hits) != 1 {
		t.Fatalf("cache failure must not fail the query: %v", err)
	}

	corrupt := &memoryStore{data: map[string]string{"newsanalyst:search:1:x": "{not json"}}
	hits, err = NewCached(next, corrupt, time.Minute, nil).Query(context.Background(), "x", 1)
	if err != nil || len(hits) != 1 {
		t.Fatalf("corrupt entry must be refreshed: %v", err)
	}
	if !strings.HasPrefix(corrupt.data["newsanalyst:search:1:x"], "[") {
		t.Fatalf("corrupt entry was not overwritten: %q", corrupt.data["newsanalyst:search:1:x"])
	}

	failing := &fakeProvider{name: "n", err: &domain.TransientError{Op: "n", Err: errors.New("502")}}
	empty := &memoryStore{}
	if _, err := NewCached(failing, empty, time.Minute, nil).Query(context.Background(), "x", 1); !domain.IsTransient(err) {
		t.Fatalf("upstream error must pass through, got %v", err)
	}
	if empty.sets != 0 {
		t.Fatalf("errors must not be cached")
	}
}
