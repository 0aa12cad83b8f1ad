package agent

import (
	"context"
	"strings"
	"sync"

	"NewsAnalyst/internal/domain"
	"NewsAnalyst/internal/ports"
)

type inferenceFunc func(ctx context.Context, prompt ports.Prompt, opts ports.InferenceOptions) (string, error)

func (f inferenceFunc) Generate(ctx context.Context, prompt ports.Prompt, opts ports.InferenceOptions) (string, error) {
	return f(ctx, prompt, opts)
}

// reply returns canned text chosen by a substring of the user prompt.
func reply(byTitle map[string]string, fallback string) inferenceFunc {
	return func(_ context.Context, prompt ports.Prompt, _ ports.InferenceOptions) (string, error) {
		for title, text := range byTitle {
			if strings.Contains(prompt.User, title) {
				return text, nil
			}
		}
		return fallback, nil
	}
}

type searchFunc func(ctx context.Context, text string, maxResults int) ([]domain.SearchHit, error)

func (f searchFunc) Query(ctx context.Context, text string, maxResults int) ([]domain.SearchHit, error) {
	return f(ctx, text, maxResults)
}

type recordingSearch struct {
	mu      sync.Mutex
	queries []string
	hits    map[string][]domain.SearchHit
	errs    map[string]error
}

func (s *recordingSearch) Query(_ context.Context, text string, _ int) ([]domain.SearchHit, error) {
	s.mu.Lock()
	s.queries = append(s.queries, text)
	s.mu.Unlock()
	if err := s.errs[text]; err != nil {
		return nil, err
	}
	return s.hits[text], nil
}

func viewOf(topic string, articles ...domain.Article) domain.View {
	rec := domain.NewRunRecord("run-test", topic)
	if _, err := rec.Merge(researcherName, domain.FieldArticles, domain.Payload{Field: domain.FieldArticles, Articles: articles}); err != nil {
		panic(err)
	}
	return rec.View(domain.FieldTopic, domain.FieldArticles)
}
