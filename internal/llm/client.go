package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat conversation. Every request carries one
// system message and one or more user turns.
type Message struct {
	Role    Role
	Content string
}

// System builds a system-role message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User builds a user-role message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// ChatClient is the capability the pipeline needs from a language model
// provider. Implementations are constructed once at startup and injected;
// call sites never branch on the provider.
type ChatClient interface {
	Complete(ctx context.Context, messages []Message, temperature float32, maxTokens int) (string, error)
}

// Provider names a supported chat backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

var (
	// ErrNoCompletion is returned when the provider responds without any
	// generated content.
	ErrNoCompletion = errors.New("no completion returned")
	// ErrNoAPIKey is returned when the selected provider has no API key.
	ErrNoAPIKey = errors.New("api key not set for selected provider")
)

// Config selects and configures the chat backend.
type Config struct {
	Provider        Provider
	OpenAIAPIKey    string
	AnthropicAPIKey string
	Model           string
}

// NewClient constructs the chat client for the configured provider.
func NewClient(cfg Config) (ChatClient, error) {
	provider := Provider(strings.ToLower(strings.TrimSpace(string(cfg.Provider))))
	if provider == "" {
		provider = ProviderOpenAI
	}

	switch provider {
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, ErrNoAPIKey
		}
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.Model), nil
	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, ErrNoAPIKey
		}
		return NewAnthropicClient(cfg.AnthropicAPIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
