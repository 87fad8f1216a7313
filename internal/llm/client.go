package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned by a disabled client. Callers treat it like
// any other failure and fall back to their default result.
var ErrNotConfigured = errors.New("llm: no API key configured")

// Client is the gateway to the completion API. Implementations issue exactly
// one request per call and never retry; callers own defensive parsing of the
// returned content and degrade to safe defaults on any error.
type Client interface {
	// Configured reports whether the client can reach the completion API.
	// A false value is a valid long-lived state, not an error.
	Configured() bool

	// Complete sends a system instruction and user prompt and returns the
	// raw content of the first choice. The response is requested as a JSON
	// object.
	Complete(ctx context.Context, system, user string, temperature float32) (string, error)
}

// OpenAIClient calls the OpenAI chat-completions endpoint.
type OpenAIClient struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

// NewClient constructs the process-wide gateway client. An empty API key
// yields a disabled client so that call sites never have to nil-check.
func NewClient(apiKey, model string, maxTokens int, logger *zap.Logger) Client {
	if apiKey == "" {
		logger.Warn("OPENAI_API_KEY not set, analysis and summarization run in degraded mode")
		return disabled{}
	}
	return &OpenAIClient{
		client:    openai.NewClient(apiKey),
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

func (c *OpenAIClient) Configured() bool { return true }

func (c *OpenAIClient) Complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	if strings.TrimSpace(user) == "" {
		return "", errors.New("llm: empty prompt")
	}

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: system,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: user,
				},
			},
			MaxTokens:   c.maxTokens,
			Temperature: temperature,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("llm: response contained no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// disabled is the gateway when no credential is configured. It never touches
// the network.
type disabled struct{}

func (disabled) Configured() bool { return false }

func (disabled) Complete(context.Context, string, string, float32) (string, error) {
	return "", ErrNotConfigured
}
