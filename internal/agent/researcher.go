package agent

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"NewsAnalyst/internal/domain"
	"NewsAnalyst/internal/ports"
)

const (
	researcherName    = "researcher"
	defaultMaxQueries = 3
	minQueryLength    = 4
)

// Researcher turns the topic into search queries, fans them out on a bounded
// worker pool and merges the hits into a deterministic article list.
type Researcher struct{}

var _ Agent = Researcher{}

func (Researcher) Descriptor() Descriptor {
	return Descriptor{
		Name:         researcherName,
		Requires:     []domain.Field{domain.FieldTopic},
		Output:       domain.FieldArticles,
		Capabilities: []Capability{CapabilitySearch, CapabilityInference},
	}
}

// QueryBatch is the outcome of one search query, kept in its query slot.
type QueryBatch struct {
	Query string
	Hits  []domain.SearchHit
	Err   error
}

func (r Researcher) Execute(ctx context.Context, rt Runtime, view domain.View) domain.StageResult {
	if rt.Search == nil {
		return domain.Failure(&domain.FatalError{Op: researcherName, Err: errors.New("search capability is not configured")})
	}

	queries, warnings := r.planQueries(ctx, rt, view.Topic())
	if err := ctx.Err(); err != nil {
		return domain.Failure(err)
	}
	rt.logger().Debug("research queries planned", "queries", queries)

	batches, err := fetchAll(ctx, rt.Search, queries, rt.MaxArticles, rt.ConcurrencyLimit)
	if err != nil {
		return domain.Failure(err)
	}

	var firstErr error
	failed := 0
	for _, b := range batches {
		if b.Err == nil {
			continue
		}
		if domain.IsCanceled(b.Err) && ctx.Err() != nil {
			return domain.Failure(ctx.Err())
		}
		failed++
		if firstErr == nil {
			firstErr = fmt.Errorf("search %q: %w", b.Query, b.Err)
		}
		warnings = append(warnings, warning(researcherName, "search %q failed: %v", b.Query, b.Err))
	}
	if failed == len(batches) && failed > 0 {
		return domain.Failure(firstErr)
	}

	articles := MergeHits(batches, rt.MaxArticles)
	rt.logger().Debug("research merged", "articles", len(articles), "failed_queries", failed)
	return domain.Partial(domain.Payload{Field: domain.FieldArticles, Articles: articles}, warnings...)
}

// planQueries asks the model for search queries, falling back to the fixed set
// derived from the topic.
func (Researcher) planQueries(ctx context.Context, rt Runtime, topic string) ([]string, []domain.PartialDataError) {
	limit := cmp.Or(rt.MaxQueries, defaultMaxQueries)
	fallback := capQueries(dedupeQueries([]string{topic, topic + " news", topic + " latest"}), limit)
	if rt.Inference == nil {
		return fallback, nil
	}

	text, err := rt.Inference.Generate(ctx, ports.Prompt{
		System: researcherSystemPrompt,
		User:   fmt.Sprintf(researcherUserPrompt, topic),
	}, rt.Generation)
	if err != nil {
		return fallback, []domain.PartialDataError{warning(researcherName, "query planning failed, using default queries: %v", err)}
	}

	queries := capQueries(parseQueries(text), limit)
	if len(queries) == 0 {
		return fallback, []domain.PartialDataError{warning(researcherName, "model returned no usable queries, using default queries")}
	}
	return queries, nil
}

// fetchAll runs every query on a pool of at most limit workers. Each result lands
// in the slot of its query, so completion order never affects the outcome. On
// cancellation it returns without waiting for in-flight calls.
func fetchAll(ctx context.Context, search ports.SearchClient, queries []string, perQuery, limit int) ([]QueryBatch, error) {
	batches := make([]QueryBatch, len(queries))
	for i, q := range queries {
		batches[i].Query = q
	}

	var g errgroup.Group
	g.SetLimit(max(limit, 1))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i, q := range queries {
			if ctx.Err() != nil {
				batches[i].Err = ctx.Err()
				continue
			}
			g.Go(func() error {
				hits, err := search.Query(ctx, q, perQuery)
				batches[i].Hits = hits
				batches[i].Err = err
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
		return batches, nil
	}
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]+|\d+[.)])\s*`)

type rankedHit struct {
	hit      domain.SearchHit
	query    string
	queryIdx int
	position int
}

// MergeHits orders hits by query rank, then position within the query's results,
// then source, then URL; drops duplicate URLs and caps the list at limit.
// Query rank and position are unique per hit, so source and URL only keep the
// comparison total and never reorder hits taken from batches.
func MergeHits(batches []QueryBatch, limit int) []domain.Article {
	var ranked []rankedHit
	for qi, b := range batches {
		if b.Err != nil {
			continue
		}
		for pos, h := range b.Hits {
			ranked = append(ranked, rankedHit{hit: h, query: b.Query, queryIdx: qi, position: pos})
		}
	}

	slices.SortStableFunc(ranked, func(a, b rankedHit) int {
		return cmp.Or(
			cmp.Compare(a.queryIdx, b.queryIdx),
			cmp.Compare(a.position, b.position),
			cmp.Compare(a.hit.Source, b.hit.Source),
			cmp.Compare(a.hit.URL, b.hit.URL),
		)
	})

	articles := make([]domain.Article, 0, len(ranked))
	seen := map[string]bool{}
	for _, rh := range ranked {
		if limit > 0 && len(articles) == limit {
			break
		}
		key := articleKey(rh.hit)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		articles = append(articles, domain.Article{
			ID:      uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String(),
			Title:   strings.TrimSpace(rh.hit.Title),
			URL:     strings.TrimSpace(rh.hit.URL),
			Snippet: strings.TrimSpace(rh.hit.Snippet),
			Source:  rh.hit.Source,
			Query:   rh.query,
		})
	}
	return articles
}

// articleKey normalizes the hit URL for de-duplication; hits without a URL fall
// back to their title.
func articleKey(h domain.SearchHit) string {
	raw := strings.TrimSpace(h.URL)
	if raw == "" {
		title := strings.ToLower(strings.TrimSpace(h.Title))
		if title == "" {
			return ""
		}
		return "title:" + title
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

func parseQueries(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		line = strings.Trim(line, `"'`)
		line = strings.TrimSpace(line)
		if len(line) < minQueryLength {
			continue
		}
		out = append(out, line)
	}
	return dedupeQueries(out)
}

func dedupeQueries(queries []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		key := strings.ToLower(strings.TrimSpace(q))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, strings.TrimSpace(q))
	}
	return out
}

func capQueries(queries []string, limit int) []string {
	if limit > 0 && len(queries) > limit {
		return queries[:limit]
	}
	return queries
}
