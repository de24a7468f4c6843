package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-sonnet-4-20250514"

// messageAPI is the slice of the Anthropic SDK the backend uses.
type messageAPI interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicClient implements ChatClient on the Anthropic messages API.
type AnthropicClient struct {
	api   messageAPI
	model string
}

// NewAnthropicClient creates an Anthropic-backed chat client.
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	if model == "" || strings.HasPrefix(model, "gpt-") {
		model = DefaultAnthropicModel
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicClient{
		api:   &client.Messages,
		model: model,
	}
}

// Complete generates a chat completion. The Anthropic API takes the system
// instruction separately from the conversation turns, so system-role messages
// are split off before the call.
func (c *AnthropicClient) Complete(ctx context.Context, messages []Message, temperature float32, maxTokens int) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(float64(temperature)),
	}

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: m.Content})
		case RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	resp, err := c.api.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic message: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		out.WriteString(block.Text)
	}
	if out.Len() == 0 {
		return "", ErrNoCompletion
	}
	return out.String(), nil
}
