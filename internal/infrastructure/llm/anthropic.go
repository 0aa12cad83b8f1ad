package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"NewsAnalyst/internal/ports"
)

const defaultAnthropicMaxTokens = 1024

// MessagesClient captures the subset of the Anthropic SDK used by the adapter.
// It is satisfied by *sdk.MessageService.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicOptions configures the Anthropic Messages client.
type AnthropicOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// AnthropicClient implements ports.InferenceClient over the Messages API.
// Response schemas are passed as instructions since the API has no JSON mode.
type AnthropicClient struct {
	msg   MessagesClient
	model string
}

var _ ports.InferenceClient = (*AnthropicClient)(nil)

// NewAnthropicClient wraps an existing messages service.
func NewAnthropicClient(msg MessagesClient, model string) (*AnthropicClient, error) {
	if msg == nil {
		return nil, errors.New("anthropic messages client is required")
	}
	if model == "" {
		return nil, errors.New("model is required")
	}
	return &AnthropicClient{msg: msg, model: model}, nil
}

// NewAnthropicFromOptions builds the SDK client with retries disabled.
func NewAnthropicFromOptions(opts AnthropicOptions) (*AnthropicClient, error) {
	if opts.APIKey == "" {
		return nil, errors.New("api key is required")
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}
	client := sdk.NewClient(reqOpts...)
	return NewAnthropicClient(&client.Messages, opts.Model)
}

// Generate sends one user turn and concatenates the text blocks of the reply.
func (c *AnthropicClient) Generate(ctx context.Context, prompt ports.Prompt, opts ports.InferenceOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	system, err := systemPrompt(prompt.System, opts.Schema)
	if err != nil {
		return "", err
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt.User)),
		},
		Temperature: sdk.Float(opts.Temperature),
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return "", classify("anthropic messages.new", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func systemPrompt(system string, schema *ports.ResponseSchema) (string, error) {
	if schema == nil {
		return system, nil
	}
	raw, err := json.Marshal(schema.Schema)
	if err != nil {
		return "", fmt.Errorf("marshal %s schema: %w", schema.Name, err)
	}
	instruction := "Respond with a single JSON object matching this JSON Schema and nothing else:\n" + string(raw)
	if system == "" {
		return instruction, nil
	}
	return system + "\n\n" + instruction, nil
}
