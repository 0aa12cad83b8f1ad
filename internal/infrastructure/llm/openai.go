package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared/constant"

	"NewsAnalyst/internal/ports"
)

// GroqBaseURL is the OpenAI-compatible endpoint of Groq.
const GroqBaseURL = "https://api.groq.com/openai/v1/"

// ChatCompletions captures the subset of the openai-go client used by the
// adapter. It is satisfied by *openai.ChatCompletionService.
type ChatCompletions interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIOptions configures an OpenAI-compatible chat completions client.
type OpenAIOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	// StrictSchema asks the provider to enforce the response schema.
	StrictSchema bool
	HTTPClient   *http.Client
}

// OpenAIClient implements ports.InferenceClient over the Chat Completions API.
// It works against OpenAI and any compatible provider such as Groq.
type OpenAIClient struct {
	chat   ChatCompletions
	model  string
	strict bool
}

var _ ports.InferenceClient = (*OpenAIClient)(nil)

// NewOpenAIClient wraps an existing chat completions service.
func NewOpenAIClient(chat ChatCompletions, model string, strict bool) (*OpenAIClient, error) {
	if chat == nil {
		return nil, errors.New("chat completions client is required")
	}
	if model == "" {
		return nil, errors.New("model is required")
	}
	return &OpenAIClient{chat: chat, model: model, strict: strict}, nil
}

// NewOpenAIFromOptions builds the SDK client. SDK retries are disabled because
// retrying is the orchestrator's job.
func NewOpenAIFromOptions(opts OpenAIOptions) (*OpenAIClient, error) {
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
	client := openai.NewClient(reqOpts...)
	return NewOpenAIClient(&client.Chat.Completions, opts.Model, opts.StrictSchema)
}

// Generate sends a system and a user message and returns the first choice.
func (c *OpenAIClient) Generate(ctx context.Context, prompt ports.Prompt, opts ports.InferenceOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if prompt.System != "" {
		messages = append(messages, openai.SystemMessage(prompt.System))
	}
	messages = append(messages, openai.UserMessage(prompt.User))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        opts.Schema.Name,
					Description: openai.String(opts.Schema.Description),
					Strict:      openai.Bool(c.strict),
					Schema:      opts.Schema.Schema,
				},
				Type: constant.ValueOf[constant.JSONSchema](),
			},
		}
	}

	resp, err := c.chat.New(ctx, params)
	if err != nil {
		return "", classify("openai chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return "", classify("openai chat completion", fmt.Errorf("response has no choices"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
