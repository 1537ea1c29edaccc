// Package pipeline implements the per-mode post-processing pipelines that run
// between transcription and delivery. The Dispatcher is pure orchestration
// over a [llm.Completer]: it never touches the live session, only the frozen
// snapshot it is handed.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/sottovoce/sotto/internal/session"
	"github.com/sottovoce/sotto/pkg/clipboard"
	"github.com/sottovoce/sotto/pkg/provider/llm"
)

// Dispatcher routes a frozen session snapshot plus its transcription to the
// mode's pipeline.
type Dispatcher struct {
	completer llm.Completer
}

var _ session.Dispatcher = (*Dispatcher)(nil)

// New returns a Dispatcher backed by completer.
func New(completer llm.Completer) *Dispatcher {
	return &Dispatcher{completer: completer}
}

// Dispatch implements [session.Dispatcher].
func (d *Dispatcher) Dispatch(ctx context.Context, snap session.Snapshot, transcription string) (session.Result, error) {
	switch snap.Mode {
	case session.ModeTranscribe:
		return d.transcribe(ctx, snap, transcription)
	case session.ModeAsk:
		return d.ask(ctx, snap, transcription)
	case session.ModeRespond:
		return d.respond(ctx, snap, transcription)
	case session.ModeCode:
		return d.code(ctx, snap, transcription)
	case session.ModeProcess:
		return d.process(ctx, snap, transcription)
	default:
		return session.Result{}, fmt.Errorf("pipeline: unknown mode %q", snap.Mode)
	}
}

// transcribe returns the transcription as-is, or cleaned up per the frozen
// formatting style when post-processing is on.
func (d *Dispatcher) transcribe(ctx context.Context, snap session.Snapshot, transcription string) (session.Result, error) {
	if !snap.PostProcess || strings.TrimSpace(transcription) == "" {
		return session.Result{Text: transcription, Delivery: session.DeliveryRouted}, nil
	}
	text, err := d.completer.Complete(ctx, llm.Request{
		System:   transcribePrompt(snap.FormattingStyle),
		Messages: []llm.Message{{Role: llm.RoleUser, Content: transcription}},
	})
	if err != nil {
		return session.Result{}, fmt.Errorf("pipeline: transcribe cleanup: %w", err)
	}
	return session.Result{Text: text, Delivery: session.DeliveryRouted}, nil
}

// ask answers the spoken question on top of the frozen conversation history.
// Ask results always go to the chat surface.
func (d *Dispatcher) ask(ctx context.Context, snap session.Snapshot, transcription string) (session.Result, error) {
	msgs := make([]llm.Message, 0, len(snap.History)+1)
	msgs = append(msgs, snap.History...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: transcription})
	text, err := d.completer.Complete(ctx, llm.Request{
		System:    askPrompt,
		Messages:  msgs,
		WebSearch: snap.WebSearch,
	})
	if err != nil {
		return session.Result{}, fmt.Errorf("pipeline: ask: %w", err)
	}
	return session.Result{Text: text, Delivery: session.DeliveryAlwaysChat}, nil
}

// respond drafts a reply per the dictated instructions, optionally grounded
// on the clipboard snapshot taken when the mode was entered.
func (d *Dispatcher) respond(ctx context.Context, snap session.Snapshot, transcription string) (session.Result, error) {
	useContext := snap.UseClipboardContext && !snap.Clipboard.IsEmpty()
	if useContext && snap.Clipboard.Kind == clipboard.KindImage {
		text, err := d.completer.CompleteWithImage(ctx, respondPrompt(true), transcription, snap.Clipboard.Image)
		if err != nil {
			return session.Result{}, fmt.Errorf("pipeline: respond with image: %w", err)
		}
		return session.Result{Text: text, Delivery: session.DeliveryRouted}, nil
	}
	var original string
	if useContext {
		original = snap.Clipboard.Text
	}
	text, err := d.completer.Complete(ctx, llm.Request{
		System:   respondPrompt(useContext),
		Messages: []llm.Message{{Role: llm.RoleUser, Content: respondUser(transcription, original)}},
	})
	if err != nil {
		return session.Result{}, fmt.Errorf("pipeline: respond: %w", err)
	}
	return session.Result{Text: text, Delivery: session.DeliveryRouted}, nil
}

// code generates code from the spoken request and strips any markdown fence
// the model added anyway.
func (d *Dispatcher) code(ctx context.Context, snap session.Snapshot, transcription string) (session.Result, error) {
	text, err := d.completer.Complete(ctx, llm.Request{
		System:   codePrompt(snap.CodeLanguage),
		Messages: []llm.Message{{Role: llm.RoleUser, Content: transcription}},
	})
	if err != nil {
		return session.Result{}, fmt.Errorf("pipeline: code: %w", err)
	}
	return session.Result{Text: stripFences(text), Delivery: session.DeliveryRouted}, nil
}

// process applies the spoken command to the frozen clipboard snapshot. An
// empty snapshot fails before any network call.
func (d *Dispatcher) process(ctx context.Context, snap session.Snapshot, transcription string) (session.Result, error) {
	if snap.Clipboard.IsEmpty() {
		return session.Result{}, session.ErrEmptyClipboard
	}
	if snap.Clipboard.Kind == clipboard.KindImage {
		text, err := d.completer.CompleteWithImage(ctx, processImagePrompt, transcription, snap.Clipboard.Image)
		if err != nil {
			return session.Result{}, fmt.Errorf("pipeline: process image: %w", err)
		}
		return session.Result{Text: text, Delivery: session.DeliveryRouted}, nil
	}
	text, err := d.completer.Complete(ctx, llm.Request{
		System:   processTextPrompt,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: processUser(transcription, snap.Clipboard.Text)}},
	})
	if err != nil {
		return session.Result{}, fmt.Errorf("pipeline: process: %w", err)
	}
	return session.Result{Text: text, Delivery: session.DeliveryRouted}, nil
}
