package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/invopop/jsonschema"
)

var nameInvalidChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-sonnet-4-5-20250514"

	defaultMaxTokens = 1024
)

var (
	ErrEmptyResponse = errors.New("llm returned no content")
	ErrRefused       = errors.New("llm refused the request")
	ErrTruncated     = errors.New("llm response truncated at token limit")
)

// Config holds LLM client configuration. A zero Timeout keeps the SDK default;
// MaxRetries is always applied, so zero disables retries.
type Config struct {
	Provider   string // "openai" or "anthropic"
	APIKey     string
	BaseURL    string // Optional: custom API endpoint
	Model      string
	MaxTokens  int
	Timeout    time.Duration // per attempt
	MaxRetries int
}

func (c Config) validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if c.Timeout < 0 || c.MaxRetries < 0 {
		return fmt.Errorf("timeout and max retries must not be negative")
	}
	return nil
}

func (c Config) modelOr(fallback string) string {
	if c.Model == "" {
		return fallback
	}
	return c.Model
}

// AgentClient runs one classifier turn: messages in, response text and/or tool calls out.
type AgentClient interface {
	ChatWithTools(ctx context.Context, req AgentRequest) (*AgentResponse, error)
	Model() string
}

// AgentRequest contains the messages and tools for a single turn.
type AgentRequest struct {
	Messages    []Message
	Tools       []Tool
	ToolChoice  string // Optional: force a call to the named tool
	MaxTokens   int
	Temperature *float64
}

// Message represents a conversation message.
type Message struct {
	Role    string // "system", "user", "assistant"
	Name    string // Optional: participant name (user messages only)
	Content string
}

// Tool defines a function the LLM can call.
type Tool struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
}

// ToolCall represents a tool invocation requested by the LLM.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON-encoded arguments
}

// AgentResponse contains the LLM's response.
type AgentResponse struct {
	Content          string     // Text response
	ToolCalls        []ToolCall // Tool calls requested instead of (or alongside) text
	FinishReason     string     // "stop", "tool_calls", "length"
	PromptTokens     int
	CompletionTokens int
}

// NewAgentClient creates the classifier's AgentClient. An empty provider means OpenAI.
func NewAgentClient(cfg Config) (AgentClient, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case ProviderAnthropic:
		return newAnthropicClient(cfg), nil
	case ProviderOpenAI, "":
		return newOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// maxTokens picks the request limit, then the client default, then defaultMaxTokens.
func maxTokens(requested, configured int) int64 {
	switch {
	case requested > 0:
		return int64(requested)
	case configured > 0:
		return int64(configured)
	default:
		return defaultMaxTokens
	}
}

// GenerateSchema reflects T into an inline JSON schema with closed objects.
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// SanitizeName converts a username to a valid OpenAI name parameter.
// The name must match ^[a-zA-Z0-9_-]{1,64}$.
func SanitizeName(username string) string {
	sanitized := nameInvalidChars.ReplaceAllString(username, "_")
	if len(sanitized) > 64 {
		sanitized = sanitized[:64]
	}
	return sanitized
}

func Temp(t float64) *float64 {
	return &t
}
