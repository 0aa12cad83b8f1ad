package search

import (
	"context"

	"golang.org/x/time/rate"

	"NewsAnalyst/internal/domain"
	"NewsAnalyst/internal/ports"
)

// RateLimited throttles a search client with a token bucket shared by every
// caller, so concurrent runs stay within the provider's quota.
type RateLimited struct {
	next    ports.SearchClient
	limiter *rate.Limiter
}

var _ ports.SearchClient = (*RateLimited)(nil)

// NewRateLimited allows perSecond queries with the given burst.
// A non-positive rate disables throttling.
func NewRateLimited(next ports.SearchClient, perSecond float64, burst int) *RateLimited {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(limit, max(burst, 1))}
}

// Query waits for a token, then delegates.
func (r *RateLimited) Query(ctx context.Context, text string, maxResults int) ([]domain.SearchHit, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// Wait fails early when the deadline cannot be met.
		return nil, &domain.TransientError{Op: "search rate limit", Err: err}
	}
	return r.next.Query(ctx, text, maxResults)
}
