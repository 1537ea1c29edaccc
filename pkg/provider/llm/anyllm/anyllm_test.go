package anyllm

import (
	"context"
	"errors"
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
)

// TestNew_MissingProviderName ensures constructor rejects an empty provider name.
func TestNew_MissingProviderName(t *testing.T) {
	_, err := New("", "llama3.2")
	if err == nil {
		t.Fatal("expected error for empty provider name")
	}
}

// TestNew_MissingModel ensures constructor rejects an empty model.
func TestNew_MissingModel(t *testing.T) {
	_, err := New("ollama", "")
	if err == nil {
		t.Fatal("expected error for empty model")
	}
}

// TestNew_UnsupportedProvider checks that unknown provider names are rejected
// with a message listing the supported set.
func TestNew_UnsupportedProvider(t *testing.T) {
	_, err := New("carrier-pigeon", "llama3.2")
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

// TestNew_SupportedProviders checks that every advertised backend constructs.
func TestNew_SupportedProviders(t *testing.T) {
	names := []string{
		"openai", "anthropic", "gemini", "ollama", "deepseek",
		"mistral", "groq", "llamacpp", "llamafile",
	}
	for _, name := range names {
		if _, err := New(name, "some-model", anyllmlib.WithAPIKey("test-key")); err != nil {
			t.Errorf("New(%q): unexpected error: %v", name, err)
		}
	}
}

// TestNew_CaseInsensitiveProviderName checks that provider names are matched
// case-insensitively.
func TestNew_CaseInsensitiveProviderName(t *testing.T) {
	if _, err := New("Ollama", "llama3.2"); err != nil {
		t.Errorf("unexpected error for mixed-case provider name: %v", err)
	}
}

// TestCompleteWithImage_Unsupported checks that image completions fail fast
// without touching the backend.
func TestCompleteWithImage_Unsupported(t *testing.T) {
	c, err := New("ollama", "llama3.2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = c.CompleteWithImage(context.Background(), "system", "describe", []byte{0x89})
	if !errors.Is(err, ErrNoVision) {
		t.Fatalf("expected ErrNoVision, got %v", err)
	}
}
