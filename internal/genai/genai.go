// Package genai provides GenAI-enhanced operations using OpenAI API.

package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/sentimental-labs/StoryPipe/internal/models"
)

// ErrNoChoicesReturned indicates the chat API returned an empty choice list.
var ErrNoChoicesReturned = errors.New("no choices returned")

// Default generation parameters, used when neither the client options nor the
// per-call params override them.
const (
	DefaultModel               = openai.ChatModelGPT4
	DefaultTemperature         = 0.7
	DefaultMaxCompletionTokens = 600
)

// chatService defines minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// openaiChatService adapts the OpenAI SDK completion service to chatService.
type openaiChatService struct {
	completions openai.ChatCompletionService
}

func (s openaiChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := s.completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Client wraps the OpenAI chat completion service for text and structured
// generation.
type Client struct {
	chat                chatService
	model               string
	temperature         float64
	maxCompletionTokens int
}

// Opts holds configuration options for creating a client.
type Opts struct {
	apiKey              string
	model               string
	temperature         float64
	maxCompletionTokens int
}

// Option configures client creation.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key, overriding the OPENAI_API_KEY
// environment variable.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.apiKey = key }
}

// WithModel sets the default chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.model = model }
}

// WithTemperature sets the default sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Opts) { o.temperature = t }
}

// WithMaxCompletionTokens sets the default completion token budget.
func WithMaxCompletionTokens(n int) Option {
	return func(o *Opts) { o.maxCompletionTokens = n }
}

// NewClient initializes a GenAI client. The API key comes from options or the
// OPENAI_API_KEY environment variable; without one the client cannot be built.
func NewClient(opts ...Option) (*Client, error) {
	o := Opts{
		apiKey:              os.Getenv("OPENAI_API_KEY"),
		model:               DefaultModel,
		temperature:         DefaultTemperature,
		maxCompletionTokens: DefaultMaxCompletionTokens,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.apiKey == "" {
		slog.Error("GenAI NewClient: missing API key")
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	cli := openai.NewClient(option.WithAPIKey(o.apiKey))
	slog.Debug("GenAI client created", "model", o.model, "temperature", o.temperature, "maxCompletionTokens", o.maxCompletionTokens)
	return &Client{
		chat:                openaiChatService{completions: cli.Chat.Completions},
		model:               o.model,
		temperature:         o.temperature,
		maxCompletionTokens: o.maxCompletionTokens,
	}, nil
}

// GenerationParams override the client defaults for a single call. Zero
// values fall back to the client's configuration.
type GenerationParams struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int
}

// GeneratePrompt generates a response from a system and user prompt pair
// using the client's default parameters.
func (c *Client) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.GenerateWithParams(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(userPrompt),
	}, GenerationParams{})
}

// GenerateWithParams generates a response for an arbitrary message sequence
// with per-call parameter overrides.
func (c *Client) GenerateWithParams(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, p GenerationParams) (string, error) {
	req := c.buildParams(messages, p)
	resp, err := c.chat.Create(ctx, req)
	if err != nil {
		slog.Error("GenAI GenerateWithParams: chat call failed", "model", req.Model, "error", err)
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("GenAI GenerateWithParams: empty choices", "model", req.Model)
		return "", ErrNoChoicesReturned
	}
	content := resp.Choices[0].Message.Content
	slog.Debug("GenAI GenerateWithParams: response received", "model", req.Model, "contentLength", len(content))
	return content, nil
}

// GenerateStructured requests a JSON response constrained by the given schema
// and unmarshals it into out. Schema violations or malformed JSON yield an
// error wrapping models.ErrParseFailure so callers can fall back.
func (c *Client) GenerateStructured(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, schemaName string, schema map[string]interface{}, p GenerationParams, out interface{}) error {
	req := c.buildParams(messages, p)
	req.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
			JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:   schemaName,
				Schema: schema,
				Strict: openai.Bool(true),
			},
		},
	}
	resp, err := c.chat.Create(ctx, req)
	if err != nil {
		slog.Error("GenAI GenerateStructured: chat call failed", "schema", schemaName, "error", err)
		return fmt.Errorf("structured completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ErrNoChoicesReturned
	}
	raw := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		slog.Warn("GenAI GenerateStructured: unmarshal failed", "schema", schemaName, "error", err)
		return fmt.Errorf("%w: %v", models.ErrParseFailure, err)
	}
	slog.Debug("GenAI GenerateStructured: response parsed", "schema", schemaName)
	return nil
}

func (c *Client) buildParams(messages []openai.ChatCompletionMessageParamUnion, p GenerationParams) openai.ChatCompletionNewParams {
	model := c.model
	if p.Model != "" {
		model = p.Model
	}
	temperature := c.temperature
	if p.Temperature != 0 {
		temperature = p.Temperature
	}
	maxTokens := c.maxCompletionTokens
	if p.MaxCompletionTokens != 0 {
		maxTokens = p.MaxCompletionTokens
	}
	return openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(model),
		Messages:            messages,
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	}
}
