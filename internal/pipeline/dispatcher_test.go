package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sottovoce/sotto/internal/pipeline"
	"github.com/sottovoce/sotto/internal/session"
	"github.com/sottovoce/sotto/pkg/clipboard"
	"github.com/sottovoce/sotto/pkg/provider/llm"
	llmmock "github.com/sottovoce/sotto/pkg/provider/llm/mock"
)

func TestTranscribe_WithoutPostProcessPassesThrough(t *testing.T) {
	t.Parallel()
	c := &llmmock.Completer{Response: "should not be used"}
	d := pipeline.New(c)

	res, err := d.Dispatch(context.Background(), session.Snapshot{
		Mode:        session.ModeTranscribe,
		PostProcess: false,
	}, "raw words as spoken")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Text != "raw words as spoken" {
		t.Errorf("text = %q, want passthrough", res.Text)
	}
	if res.Delivery != session.DeliveryRouted {
		t.Errorf("delivery = %q, want routed", res.Delivery)
	}
	if len(c.CompleteCalls) != 0 {
		t.Errorf("completer called %d times without post-processing, want 0", len(c.CompleteCalls))
	}
}

func TestTranscribe_PostProcessUsesStylePrompt(t *testing.T) {
	t.Parallel()
	c := &llmmock.Completer{Response: "Cleaned."}
	d := pipeline.New(c)

	res, err := d.Dispatch(context.Background(), session.Snapshot{
		Mode:            session.ModeTranscribe,
		PostProcess:     true,
		FormattingStyle: session.StyleCondensed,
	}, "um so basically the thing is")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Text != "Cleaned." {
		t.Errorf("text = %q", res.Text)
	}
	if len(c.CompleteCalls) != 1 {
		t.Fatalf("completer called %d times, want 1", len(c.CompleteCalls))
	}
	req := c.CompleteCalls[0].Req
	if !strings.Contains(req.System, "terse") {
		t.Errorf("condensed style not reflected in system prompt: %q", req.System)
	}
	if !strings.Contains(req.System, "never translate") {
		t.Errorf("system prompt does not pin the source language: %q", req.System)
	}
	if len(req.Messages) != 1 || req.Messages[0].Content != "um so basically the thing is" {
		t.Errorf("messages = %+v", req.Messages)
	}
}

func TestTranscribe_EmptyTextSkipsCleanup(t *testing.T) {
	t.Parallel()
	c := &llmmock.Completer{}
	d := pipeline.New(c)

	res, err := d.Dispatch(context.Background(), session.Snapshot{
		Mode:        session.ModeTranscribe,
		PostProcess: true,
	}, "   ")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Text != "   " {
		t.Errorf("text = %q, want passthrough", res.Text)
	}
	if len(c.CompleteCalls) != 0 {
		t.Errorf("completer called for blank transcription")
	}
}

func TestAsk_SendsHistoryAndForcesChat(t *testing.T) {
	t.Parallel()
	c := &llmmock.Completer{Response: "It rains."}
	d := pipeline.New(c)

	history := []llm.Message{
		{Role: llm.RoleUser, Content: "what is the weather"},
		{Role: llm.RoleAssistant, Content: "Where?"},
	}
	res, err := d.Dispatch(context.Background(), session.Snapshot{
		Mode:      session.ModeAsk,
		History:   history,
		WebSearch: true,
	}, "in hamburg")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Delivery != session.DeliveryAlwaysChat {
		t.Errorf("delivery = %q, want always_chat", res.Delivery)
	}
	req := c.CompleteCalls[0].Req
	if len(req.Messages) != 3 {
		t.Fatalf("messages = %d, want history + question", len(req.Messages))
	}
	if req.Messages[2].Role != llm.RoleUser || req.Messages[2].Content != "in hamburg" {
		t.Errorf("last message = %+v", req.Messages[2])
	}
	if !req.WebSearch {
		t.Error("web search flag not propagated")
	}
	if !strings.Contains(req.System, "markdown") {
		t.Errorf("system prompt does not ask for markdown: %q", req.System)
	}
	if !strings.Contains(req.System, "same language") {
		t.Errorf("system prompt does not ask to match the question's language: %q", req.System)
	}
}

func TestRespond_WithTextContext(t *testing.T) {
	t.Parallel()
	c := &llmmock.Completer{Response: "Sounds good, see you at 10."}
	d := pipeline.New(c)

	res, err := d.Dispatch(context.Background(), session.Snapshot{
		Mode:                session.ModeRespond,
		UseClipboardContext: true,
		Clipboard:           clipboard.Snapshot{Kind: clipboard.KindText, Text: "Can we move the meeting to 10?"},
	}, "say yes briefly")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Text != "Sounds good, see you at 10." {
		t.Errorf("text = %q", res.Text)
	}
	if sys := c.CompleteCalls[0].Req.System; !strings.Contains(sys, "Never answer or analyze") {
		t.Errorf("system prompt does not forbid answering the message: %q", sys)
	}
	user := c.CompleteCalls[0].Req.Messages[0].Content
	if !strings.Contains(user, "Can we move the meeting to 10?") {
		t.Errorf("clipboard context missing from user message: %q", user)
	}
	if !strings.Contains(user, "say yes briefly") {
		t.Errorf("instruction missing from user message: %q", user)
	}
}

func TestRespond_WithoutContextSendsInstructionOnly(t *testing.T) {
	t.Parallel()
	c := &llmmock.Completer{Response: "Draft."}
	d := pipeline.New(c)

	_, err := d.Dispatch(context.Background(), session.Snapshot{
		Mode:                session.ModeRespond,
		UseClipboardContext: false,
		Clipboard:           clipboard.Snapshot{Kind: clipboard.KindText, Text: "secret"},
	}, "write a polite decline")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	user := c.CompleteCalls[0].Req.Messages[0].Content
	if strings.Contains(user, "secret") {
		t.Errorf("clipboard leaked into prompt with context disabled: %q", user)
	}
	if user != "write a polite decline" {
		t.Errorf("user message = %q", user)
	}
}

func TestRespond_ImageContextUsesVisionCall(t *testing.T) {
	t.Parallel()
	c := &llmmock.Completer{ImageResponse: "Nice chart, numbers look right."}
	d := pipeline.New(c)

	img := []byte{0x89, 'P', 'N', 'G'}
	res, err := d.Dispatch(context.Background(), session.Snapshot{
		Mode:                session.ModeRespond,
		UseClipboardContext: true,
		Clipboard:           clipboard.Snapshot{Kind: clipboard.KindImage, Image: img},
	}, "comment on this")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Text != "Nice chart, numbers look right." {
		t.Errorf("text = %q", res.Text)
	}
	if len(c.ImageCalls) != 1 || len(c.CompleteCalls) != 0 {
		t.Fatalf("calls = %d image / %d text, want 1/0", len(c.ImageCalls), len(c.CompleteCalls))
	}
	if string(c.ImageCalls[0].Image) != string(img) {
		t.Error("image bytes not passed through")
	}
}

func TestCode_StripsMarkdownFences(t *testing.T) {
	t.Parallel()
	c := &llmmock.Completer{Response: "```python\nprint('hi')\n```"}
	d := pipeline.New(c)

	res, err := d.Dispatch(context.Background(), session.Snapshot{
		Mode:         session.ModeCode,
		CodeLanguage: session.CodePython,
	}, "print hi")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Text != "print('hi')" {
		t.Errorf("text = %q, want fences stripped", res.Text)
	}
	if !strings.Contains(c.CompleteCalls[0].Req.System, "python") {
		t.Errorf("language hint missing from system prompt: %q", c.CompleteCalls[0].Req.System)
	}
}

func TestCode_UnfencedOutputUnchanged(t *testing.T) {
	t.Parallel()
	c := &llmmock.Completer{Response: "echo hi"}
	d := pipeline.New(c)

	res, err := d.Dispatch(context.Background(), session.Snapshot{
		Mode:         session.ModeCode,
		CodeLanguage: session.CodeBash,
	}, "echo hi")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Text != "echo hi" {
		t.Errorf("text = %q", res.Text)
	}
}

func TestProcess_EmptyClipboardFailsBeforeAnyCall(t *testing.T) {
	t.Parallel()
	c := &llmmock.Completer{}
	d := pipeline.New(c)

	_, err := d.Dispatch(context.Background(), session.Snapshot{
		Mode:      session.ModeProcess,
		Clipboard: clipboard.Snapshot{Kind: clipboard.KindEmpty},
	}, "summarize this")
	if !errors.Is(err, session.ErrEmptyClipboard) {
		t.Fatalf("err = %v, want ErrEmptyClipboard", err)
	}
	if len(c.CompleteCalls) != 0 || len(c.ImageCalls) != 0 {
		t.Error("completer must not be called for an empty clipboard")
	}
}

func TestProcess_TextClipboard(t *testing.T) {
	t.Parallel()
	c := &llmmock.Completer{Response: "SHORT VERSION"}
	d := pipeline.New(c)

	res, err := d.Dispatch(context.Background(), session.Snapshot{
		Mode:      session.ModeProcess,
		Clipboard: clipboard.Snapshot{Kind: clipboard.KindText, Text: "a very long document"},
	}, "make it short")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Text != "SHORT VERSION" {
		t.Errorf("text = %q", res.Text)
	}
	user := c.CompleteCalls[0].Req.Messages[0].Content
	if !strings.Contains(user, "a very long document") || !strings.Contains(user, "make it short") {
		t.Errorf("user message = %q", user)
	}
}

func TestProcess_ImageClipboard(t *testing.T) {
	t.Parallel()
	c := &llmmock.Completer{ImageResponse: "The error is on line 3."}
	d := pipeline.New(c)

	res, err := d.Dispatch(context.Background(), session.Snapshot{
		Mode:      session.ModeProcess,
		Clipboard: clipboard.Snapshot{Kind: clipboard.KindImage, Image: []byte{1, 2, 3}},
	}, "what is wrong in this screenshot")
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Text != "The error is on line 3." {
		t.Errorf("text = %q", res.Text)
	}
	if len(c.ImageCalls) != 1 {
		t.Fatalf("image calls = %d, want 1", len(c.ImageCalls))
	}
	if c.ImageCalls[0].User != "what is wrong in this screenshot" {
		t.Errorf("user instruction = %q", c.ImageCalls[0].User)
	}
}

func TestDispatch_CompleterErrorPropagates(t *testing.T) {
	t.Parallel()
	c := &llmmock.Completer{Err: errors.New("rate limited")}
	d := pipeline.New(c)

	_, err := d.Dispatch(context.Background(), session.Snapshot{
		Mode: session.ModeAsk,
	}, "anything")
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("err = %v, want wrapped completer error", err)
	}
}
