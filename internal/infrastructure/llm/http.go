package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"NewsAnalyst/internal/domain"
	"NewsAnalyst/internal/ports"
)

// HTTPClient talks to a self-hosted inference service exposing POST /generate.
type HTTPClient struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

var _ ports.InferenceClient = (*HTTPClient)(nil)

// NewHTTPClient creates a reusable client. Timeouts come from the caller's
// context, so the http.Client carries none.
func NewHTTPClient(endpoint, apiKey, model string, client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPClient{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		apiKey:   apiKey,
		model:    model,
		http:     client,
	}
}

type generateRequest struct {
	System      string         `json:"system,omitempty"`
	Prompt      string         `json:"prompt"`
	Model       string         `json:"model,omitempty"`
	Temperature float64        `json:"temperature"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Schema      map[string]any `json:"schema,omitempty"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// Generate posts the prompt and returns the generated text.
func (c *HTTPClient) Generate(ctx context.Context, prompt ports.Prompt, opts ports.InferenceOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}
	payload := generateRequest{
		System:      prompt.System,
		Prompt:      prompt.User,
		Model:       model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if opts.Schema != nil {
		payload.Schema = opts.Schema.Schema
	}

	var resp generateResponse
	if err := c.post(ctx, "/generate", payload, &resp); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any, v any) error {
	const op = "inference http"

	body, err := json.Marshal(payload)
	if err != nil {
		return &domain.FatalError{Op: op, Err: fmt.Errorf("marshal payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return &domain.FatalError{Op: op, Err: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Classify(op, fmt.Errorf("do request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.FromStatus(op, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &domain.FatalError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
