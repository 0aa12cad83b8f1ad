package ports

import (
	"context"
	"time"

	"NewsAnalyst/internal/domain"
)

// Prompt is the system/user message pair sent to a model.
type Prompt struct {
	System string
	User   string
}

// ResponseSchema asks the model for JSON output matching a JSON Schema document.
type ResponseSchema struct {
	Name        string
	Description string
	Schema      map[string]any
}

// InferenceOptions tune a single generation.
type InferenceOptions struct {
	Temperature float64
	MaxTokens   int
	Model       string
	Schema      *ResponseSchema
}

// InferenceClient generates text. Errors are domain.TransientError or domain.FatalError.
type InferenceClient interface {
	Generate(ctx context.Context, prompt Prompt, opts InferenceOptions) (string, error)
}

// SearchClient runs a query and returns ranked hits. Errors are classified like InferenceClient.
type SearchClient interface {
	Query(ctx context.Context, text string, maxResults int) ([]domain.SearchHit, error)
}

// ReportArchive persists finished runs for history and audit.
type ReportArchive interface {
	Save(ctx context.Context, run domain.ArchivedRun) error
	Recent(ctx context.Context, topic string, limit int) ([]domain.ArchivedRun, error)
}

// Notifier streams report digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when recurring analyses execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
