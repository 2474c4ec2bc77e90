// Package llm provides the generative chat client used for country
// detection, drafting, and grading. All calls run at temperature 0 so the
// pipeline stays as deterministic as the provider allows.
package llm

import (
	"context"
	"errors"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/stardustx8/legalchat/internal/resilience"
)

// Client defines the chat completion operation used by the pipeline.
type Client interface {
	Complete(ctx context.Context, req CompleteRequest) (string, error)
}

// CompleteRequest is a single system+user chat exchange.
type CompleteRequest struct {
	System    string
	User      string
	MaxTokens int64

	// JSONMode prefills the assistant turn with "{" so the model emits a
	// bare JSON object without prose or code fences.
	JSONMode bool
}

type sdkClient struct {
	client    sdk.Client
	model     string
	maxTokens int64
}

// Option configures the client.
type Option func(*sdkClient)

// WithRequestOptions passes extra options to the underlying SDK client
// (base URL overrides for testing, custom HTTP clients).
func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(c *sdkClient) {
		c.client = sdk.NewClient(opts...)
	}
}

// WithMaxTokens sets the default completion budget for requests that do
// not specify one.
func WithMaxTokens(n int64) Option {
	return func(c *sdkClient) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// NewClient creates a chat client for the given API key and model.
func NewClient(apiKey, model string, opts ...Option) Client {
	c := &sdkClient{
		client:    sdk.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: 4096,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *sdkClient) Complete(ctx context.Context, req CompleteRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	messages := []sdk.MessageParam{
		sdk.NewUserMessage(sdk.NewTextBlock(req.User)),
	}
	if req.JSONMode {
		messages = append(messages, sdk.NewAssistantMessage(sdk.NewTextBlock("{")))
	}

	params := sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   maxTokens,
		Messages:    messages,
		Temperature: sdk.Float(0),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", classify(eris.Wrap(err, "llm: create message"), err)
	}

	var parts []string
	for _, block := range msg.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	text := strings.Join(parts, "\n")
	if req.JSONMode {
		text = "{" + text
	}
	return text, nil
}

// classify tags provider errors whose status codes indicate a transient
// condition, so the retry layer knows to try again.
func classify(wrapped, cause error) error {
	var apierr *sdk.Error
	if errors.As(cause, &apierr) {
		if resilience.IsTransientHTTPStatus(apierr.StatusCode) {
			return resilience.NewTransientError(wrapped, apierr.StatusCode)
		}
		return wrapped
	}
	// Non-API errors from the SDK are transport-level; let the string
	// heuristics in IsTransient decide.
	return wrapped
}
