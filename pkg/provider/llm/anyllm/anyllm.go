// Package anyllm provides a Completer backed by github.com/mozilla-ai/any-llm-go,
// a unified multi-provider interface supporting OpenAI, Anthropic, Gemini,
// Ollama, DeepSeek, Mistral, Groq, and local llama.cpp/llamafile servers.
//
// Usage:
//
//	c, err := anyllm.New("anthropic", "claude-sonnet-4-5", anyllmlib.WithAPIKey("sk-ant-..."))
//	c, err := anyllm.New("ollama", "llama3.2", anyllmlib.WithBaseURL("http://localhost:11434"))
//
// The backends reached through any-llm-go are text-only here; CompleteWithImage
// returns an error without issuing a call. Configure the OpenAI completer when
// image processing is needed.
package anyllm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/sottovoce/sotto/pkg/provider/llm"
)

// ErrNoVision is returned by CompleteWithImage; any-llm-go backends are driven
// text-only by this adapter.
var ErrNoVision = errors.New("anyllm: image completions are not supported by this backend")

// Compile-time assertion that Completer implements llm.Completer.
var _ llm.Completer = (*Completer)(nil)

// Completer implements llm.Completer by wrapping an any-llm-go provider.
type Completer struct {
	backend anyllmlib.Provider
	model   string
}

// New creates a Completer backed by the given provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq", "llamacpp", "llamafile".
//
// opts are any-llm-go configuration options (e.g., anyllmlib.WithAPIKey,
// anyllmlib.WithBaseURL). Without an API key option the backend falls back to
// its conventional environment variable (OPENAI_API_KEY, ANTHROPIC_API_KEY, …).
func New(providerName string, model string, opts ...anyllmlib.Option) (*Completer, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}
	return &Completer{backend: backend, model: model}, nil
}

// Complete implements llm.Completer.
func (c *Completer) Complete(ctx context.Context, req llm.Request) (string, error) {
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("anyllm: request has no messages")
	}

	messages := make([]anyllmlib.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, anyllmlib.Message{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, anyllmlib.Message{Role: string(m.Role), Content: m.Content})
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	resp, err := c.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("anyllm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm: empty choices in response")
	}
	return resp.Choices[0].Message.ContentString(), nil
}

// CompleteWithImage implements llm.Completer. It always returns [ErrNoVision].
func (c *Completer) CompleteWithImage(_ context.Context, _, _ string, _ []byte) (string, error) {
	return "", ErrNoVision
}

// createBackend creates the underlying any-llm-go provider for the given name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}
