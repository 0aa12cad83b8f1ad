// Package search holds the search provider adapters and the decorators that
// wrap them (fallback chain, rate limit, cache).
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"NewsAnalyst/internal/domain"
	"NewsAnalyst/internal/ports"
)

// Provider is a named search backend.
type Provider interface {
	Name() string
	ports.SearchClient
}

// Registry keeps a mapping from provider names to their implementations.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: map[string]Provider{}}
}

// Register adds or replaces a provider implementation.
func (r *Registry) Register(p Provider) {
	if r.providers == nil {
		r.providers = map[string]Provider{}
	}
	r.providers[p.Name()] = p
}

// Resolve returns a provider by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Provider, error) {
	if p, ok := r.providers[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("search provider %s is not registered", name)
}

// Chain resolves the named providers into a fallback chain tried in order.
// Names that are not registered are skipped with a warning.
func (r *Registry) Chain(names []string, logger *slog.Logger) (*Fallback, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var chain []Provider
	for _, name := range names {
		p, err := r.Resolve(name)
		if err != nil {
			logger.Warn("skip search provider", "provider", name, "error", err)
			continue
		}
		chain = append(chain, p)
	}
	if len(chain) == 0 {
		return nil, errors.New("no search provider available")
	}
	return &Fallback{providers: chain, logger: logger}, nil
}

// Fallback queries providers in order and returns the first successful answer.
type Fallback struct {
	providers []Provider
	logger    *slog.Logger
}

var _ ports.SearchClient = (*Fallback)(nil)

// Query tries every provider until one succeeds. The last error is returned
// when all of them fail, keeping its classification.
func (f *Fallback) Query(ctx context.Context, text string, maxResults int) ([]domain.SearchHit, error) {
	var lastErr error
	for _, p := range f.providers {
		hits, err := p.Query(ctx, text, maxResults)
		if err == nil {
			return hits, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		f.logger.Warn("search provider failed", "provider", p.Name(), "query", text, "error", err)
		lastErr = err
	}
	return nil, lastErr
}

// Providers lists the chain in query order.
func (f *Fallback) Providers() []string {
	names := make([]string, 0, len(f.providers))
	for _, p := range f.providers {
		names = append(names, p.Name())
	}
	return names
}

// sourceFromURL names a hit's publisher by its host.
func sourceFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func validateQuery(op, text string, maxResults int) error {
	if strings.TrimSpace(text) == "" {
		return &domain.FatalError{Op: op, Err: errors.New("query is empty")}
	}
	if maxResults < 0 {
		return &domain.FatalError{Op: op, Err: fmt.Errorf("max results must not be negative, got %d", maxResults)}
	}
	return nil
}
