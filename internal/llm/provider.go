package llm

import "context"

// Provider is the core abstraction for LLM interaction.
// Consumers call Generate with a Request and receive the model's raw text.
type Provider interface {
	// Generate sends a prompt to the LLM and returns its text response.
	// Structure is not guaranteed; callers parse and repair the text.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the LLM.
type Request struct {
	// System is the system prompt. Sets the LLM's role and constraints.
	System string

	// Messages is the conversation history. Generation in kahani is
	// single-turn, so this normally holds one user message.
	Messages []Message

	// JSON asks the provider for a JSON-only response where the API
	// supports such a mode. It is a hint; callers still parse and repair.
	JSON bool

	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int

	// Temperature controls randomness. Range: 0.0 - 1.0.
	// Default: 0.0 (deterministic) when not set.
	Temperature float64
}

// Message represents a single message in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Response holds the LLM's output.
type Response struct {
	// Text is the raw text the model produced.
	Text string

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason indicates why generation stopped.
	// Normalized to: "end", "max_tokens"
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// UserPrompt returns the content of the first user message, or "".
func (r Request) UserPrompt() string {
	for _, m := range r.Messages {
		if m.Role == RoleUser {
			return m.Content
		}
	}
	return ""
}
