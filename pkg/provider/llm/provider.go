// Package llm defines the Completer interface for text post-processing backends.
//
// A Completer wraps a chat-completion API (e.g., OpenAI, Anthropic, or a local
// Ollama instance) and exposes the two call shapes sotto's pipelines need: a
// plain text completion over a system prompt plus conversation messages, and an
// image-aware variant used when the clipboard holds an image.
//
// Implementations must be safe for concurrent use and must propagate context
// cancellation promptly: when ctx is cancelled the call must return as quickly
// as possible.
package llm

import "context"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a conversation history.
type Message struct {
	// Role is the author of the message.
	Role Role

	// Content is the plain-text body.
	Content string
}

// Request carries everything a Completer needs to produce a response.
type Request struct {
	// System is the system prompt injected before the conversation. Providers
	// without a dedicated system slot should prepend it as a system-role message.
	System string

	// Messages is the ordered conversation. The last message is from the user
	// and drives the response. Must be non-empty.
	Messages []Message

	// Model overrides the provider's default model when non-empty.
	Model string

	// WebSearch asks the provider to ground the answer with a web search, when
	// the backing model supports it. Providers without search support ignore it.
	WebSearch bool
}

// Completer is the abstraction over any completion backend.
type Completer interface {
	// Complete sends req and returns the assistant's full reply text.
	Complete(ctx context.Context, req Request) (string, error)

	// CompleteWithImage sends a system prompt, a user instruction, and an image
	// (PNG or JPEG bytes) to a vision-capable model and returns the reply text.
	// Backends without vision support return an error without issuing a call.
	CompleteWithImage(ctx context.Context, system, user string, image []byte) (string, error)
}
