// Package llm defines the Provider interface for chat-completion backends.
//
// A provider wraps a hosted model API (OpenAI, OpenRouter, Anthropic, a local
// Ollama instance, ...) behind a single Complete call. Podium only needs
// one-shot completions for coaching feedback, so there is no streaming or
// tool-calling surface here.
//
// Implementations must be safe for concurrent use and must return promptly
// when the supplied context is cancelled.
package llm

import "context"

// Role values accepted in [Message.Role].
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in the conversation sent to the model.
type Message struct {
	// Role is one of [RoleSystem], [RoleUser] or [RoleAssistant].
	Role string

	// Content is the message text.
	Content string
}

// CompletionRequest carries everything the model needs to produce a reply.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// SystemPrompt is injected before Messages as a system-role message.
	// Empty means no system prompt.
	SystemPrompt string

	// Messages is the ordered conversation. The last entry is usually the
	// user prompt.
	Messages []Message

	// Temperature controls randomness in [0.0, 2.0]. Zero leaves the
	// provider default in place.
	Temperature float64

	// MaxTokens caps the generated tokens. Zero means provider default.
	MaxTokens int
}

// Usage holds token accounting returned by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionResponse is the result of [Provider.Complete].
type CompletionResponse struct {
	// Content is the full text of the assistant's reply.
	Content string

	// Model is the model that actually served the request, when reported.
	Model string

	// Usage contains token accounting for this request.
	Usage Usage
}

// Provider is the abstraction over any chat-completion backend.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// It returns an error when the request fails, the backend returns no
	// choices, or ctx is cancelled first.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
