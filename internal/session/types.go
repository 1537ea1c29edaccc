// Package session implements the core orchestration engine: the state machine
// owning the lifecycle of a single recording/processing session, the mutable
// session context with its explicit freeze point, and result delivery
// coordination.
//
// Exactly one logical session exists at a time. The [Coordinator] is the
// single owner of session state; the presentation layer holds a reference to
// it and observes changes through an [EventSink], never through shared state.
package session

import (
	"context"
	"errors"

	"github.com/sottovoce/sotto/pkg/clipboard"
	"github.com/sottovoce/sotto/pkg/focus"
	"github.com/sottovoce/sotto/pkg/provider/llm"
)

// State models the session lifecycle.
type State string

const (
	StateIdle          State = "idle"
	StateRecording     State = "recording"
	StateTranscribing  State = "transcribing"
	StateProcessing    State = "processing"
	StateShowingResult State = "showing_result"
	StateError         State = "error"
)

// IsValid reports whether s is a recognised state.
func (s State) IsValid() bool {
	switch s {
	case StateIdle, StateRecording, StateTranscribing, StateProcessing, StateShowingResult, StateError:
		return true
	}
	return false
}

// Busy reports whether a recording or an in-flight pipeline owns the session,
// i.e. whether a new start must be rejected.
func (s State) Busy() bool {
	switch s {
	case StateRecording, StateTranscribing, StateProcessing:
		return true
	}
	return false
}

// Mode selects the post-processing pipeline for a session. Modes are a fixed,
// closed set; they carry no display strings — presentation labels live with
// the presentation layer.
type Mode string

const (
	// ModeTranscribe delivers the transcription, optionally cleaned up.
	ModeTranscribe Mode = "transcribe"

	// ModeAsk answers the spoken question in a running chat.
	ModeAsk Mode = "ask"

	// ModeRespond drafts a reply to the clipboard message as instructed.
	ModeRespond Mode = "respond"

	// ModeCode generates code from the spoken request.
	ModeCode Mode = "code"

	// ModeProcess applies the spoken command to the clipboard contents.
	ModeProcess Mode = "process"
)

// IsValid reports whether m is a recognised mode.
func (m Mode) IsValid() bool {
	switch m {
	case ModeTranscribe, ModeAsk, ModeRespond, ModeCode, ModeProcess:
		return true
	}
	return false
}

// UsesClipboard reports whether entering m captures a clipboard snapshot.
func (m Mode) UsesClipboard() bool {
	return m == ModeRespond || m == ModeProcess
}

// FormattingStyle controls Transcribe-mode cleanup. Meaningless for other
// modes.
type FormattingStyle string

const (
	// StyleStandard fixes grammar and punctuation only.
	StyleStandard FormattingStyle = "standard"

	// StyleStructured reformats into a structured document with headings and
	// lists where the content calls for them.
	StyleStructured FormattingStyle = "structured"

	// StyleCondensed compresses into a terse message: filler words dropped,
	// no trailing punctuation.
	StyleCondensed FormattingStyle = "condensed"
)

// IsValid reports whether f is a recognised formatting style.
func (f FormattingStyle) IsValid() bool {
	switch f {
	case StyleStandard, StyleStructured, StyleCondensed:
		return true
	}
	return false
}

// CodeLanguage hints the target language for Code mode. Meaningless for other
// modes.
type CodeLanguage string

const (
	CodeAuto   CodeLanguage = "auto"
	CodePython CodeLanguage = "python"
	CodeBash   CodeLanguage = "bash"
)

// IsValid reports whether c is a recognised code language hint.
func (c CodeLanguage) IsValid() bool {
	switch c {
	case CodeAuto, CodePython, CodeBash:
		return true
	}
	return false
}

// OutputRouting selects where a routed result goes.
type OutputRouting string

const (
	// RoutingAutoPaste pastes the result into the previously focused
	// application.
	RoutingAutoPaste OutputRouting = "auto_paste"

	// RoutingShowInChat shows the result in the chat surface.
	RoutingShowInChat OutputRouting = "show_in_chat"
)

// IsValid reports whether r is a recognised routing.
func (r OutputRouting) IsValid() bool {
	return r == RoutingAutoPaste || r == RoutingShowInChat
}

// Delivery is the dispatcher's routing verdict for a result.
type Delivery string

const (
	// DeliveryAlwaysChat forces the chat surface regardless of the session's
	// output routing (Ask mode).
	DeliveryAlwaysChat Delivery = "always_chat"

	// DeliveryRouted defers to the session's output routing.
	DeliveryRouted Delivery = "routed"
)

// Result is the outcome of a pipeline dispatch.
type Result struct {
	// Text is the final result text.
	Text string

	// Delivery says how the result reaches the user.
	Delivery Delivery
}

// ErrorCode classifies session failures for display and metrics.
type ErrorCode string

const (
	// ErrorCodeNoCredential means no backend credential was configured.
	ErrorCodeNoCredential ErrorCode = "no_credential"

	// ErrorCodeCaptureUnavailable means the input device could not be opened,
	// typically because microphone permission is missing.
	ErrorCodeCaptureUnavailable ErrorCode = "capture_unavailable"

	// ErrorCodeEmptyCapture means recording stopped without producing audio.
	ErrorCodeEmptyCapture ErrorCode = "empty_capture"

	// ErrorCodeServiceFailure means a transcription or completion call failed.
	ErrorCodeServiceFailure ErrorCode = "service_failure"

	// ErrorCodeEmptyClipboard means Process mode found nothing to process.
	ErrorCodeEmptyClipboard ErrorCode = "empty_clipboard"

	// ErrorCodeDelivery means the result was produced but pasting it failed.
	// Unlike the codes above it does not move the session to the error state;
	// the session is already over when delivery runs.
	ErrorCodeDelivery ErrorCode = "delivery"
)

// Sentinel errors returned by Coordinator operations and pipelines.
var (
	// ErrBusy is returned when a start arrives while a recording or pipeline
	// is still in flight.
	ErrBusy = errors.New("session: a session is already active")

	// ErrNoCredential is returned when the credential guard rejects a start.
	ErrNoCredential = errors.New("session: no backend credential configured")

	// ErrNotRecording is returned by operations that require an open
	// recording.
	ErrNotRecording = errors.New("session: no open recording")

	// ErrNoResult is returned by operations that require a shown result.
	ErrNoResult = errors.New("session: no result is being shown")

	// ErrEmptyCapture is returned when recording stopped without audio.
	ErrEmptyCapture = errors.New("session: recording produced no audio")

	// ErrEmptyClipboard is returned by the Process pipeline before any
	// network call when the clipboard snapshot is empty.
	ErrEmptyClipboard = errors.New("session: clipboard is empty")
)

// Snapshot is the frozen session context handed to the pipeline when
// recording stops. From that instant on, live mutations of the session no
// longer affect the in-flight pipeline.
type Snapshot struct {
	// SessionID identifies the session the snapshot was frozen from.
	SessionID string

	// Mode is the frozen pipeline selection.
	Mode Mode

	// Language is the frozen ISO 639-1 transcription hint; empty means the
	// transcription service's own detection stands.
	Language string

	// FormattingStyle is the frozen Transcribe cleanup style.
	FormattingStyle FormattingStyle

	// CodeLanguage is the frozen Code-mode language hint.
	CodeLanguage CodeLanguage

	// UseClipboardContext is the frozen Respond-mode context toggle.
	UseClipboardContext bool

	// OutputRouting is the frozen result routing.
	OutputRouting OutputRouting

	// Clipboard is the snapshot taken when the clipboard-consuming mode was
	// entered. Never re-read by the pipeline.
	Clipboard clipboard.Snapshot

	// History is a copy of the conversation history at freeze time.
	History []llm.Message

	// PostProcess enables the Transcribe cleanup pass.
	PostProcess bool

	// WebSearch lets Ask-mode completions ground answers with a web search.
	WebSearch bool
}

// Dispatcher executes the mode-specific pipeline over a frozen snapshot.
// Implemented by internal/pipeline.
type Dispatcher interface {
	// Dispatch builds the mode's prompts, issues the completion calls, and
	// returns the final text plus its delivery verdict. A Process dispatch
	// over an empty clipboard snapshot returns [ErrEmptyClipboard] without
	// any network call.
	Dispatch(ctx context.Context, snap Snapshot, transcription string) (Result, error)
}

// Deliverer routes a final result into the previously focused application.
// Implemented by internal/delivery.
type Deliverer interface {
	// Deliver reactivates app (when hasApp), waits for focus to settle,
	// writes text to the clipboard, and injects the paste chord — strictly in
	// that order.
	Deliver(ctx context.Context, text string, app focus.App, hasApp bool) error
}

// Corrector rewrites a raw transcription before dispatch. Implemented by
// internal/vocab.
type Corrector interface {
	Correct(text string) string
}
