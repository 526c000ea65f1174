package llm

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Provider constants for LLM provider selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds LLM client configuration.
type Config struct {
	Provider  string // "openai" or "anthropic"
	APIKey    string // Required: API key for the provider
	BaseURL   string // Optional: custom API endpoint
	Model     string
	MaxTokens int
}

// Message represents a conversation message.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// Request contains the messages for a generation call.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature *float64 // nil = model default, explicit 0 = deterministic
}

// Response carries the generated text and usage accounting.
type Response struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	Cost             float64
}

// Client generates text given a message list. Hook handlers consume this
// as an opaque capability; provider selection happens at construction.
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// GenerateStructured constrains the output to the JSON schema derived
	// from result and unmarshals into it. Only supported by providers with
	// native structured output; others return an error.
	GenerateStructured(ctx context.Context, req Request, schemaName string, result any) (*Response, error)

	Model() string
}

// New builds a Client for the configured provider.
func New(cfg Config) (Client, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return newOpenAIClient(cfg)
	case ProviderAnthropic:
		return newAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.Provider)
	}
}

// GenerateSchemaFrom generates a JSON schema from an instance value.
// Useful when the type is not known at compile time.
func GenerateSchemaFrom(v any) any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(v)
}

// Temp is a helper for inline temperature pointers.
func Temp(t float64) *float64 {
	return &t
}
