package session

import (
	"github.com/google/uuid"
	"github.com/sottovoce/sotto/pkg/clipboard"
	"github.com/sottovoce/sotto/pkg/focus"
	"github.com/sottovoce/sotto/pkg/provider/llm"
)

// Defaults seeds a fresh session context. Values come from configuration and
// are validated there.
type Defaults struct {
	Mode                Mode
	Language            string
	FormattingStyle     FormattingStyle
	CodeLanguage        CodeLanguage
	OutputRouting       OutputRouting
	UseClipboardContext bool
	PostProcess         bool
	WebSearch           bool
}

// sessionContext is the live, mutable state of the current session. All
// access goes through the Coordinator's mutex.
type sessionContext struct {
	id string

	mode                Mode
	language            string
	formattingStyle     FormattingStyle
	codeLanguage        CodeLanguage
	useClipboardContext bool
	outputRouting       OutputRouting
	postProcess         bool
	webSearch           bool

	// clip is captured once on entry to a clipboard-consuming mode and
	// refreshed on re-entry. Never read at pipeline time.
	clip         clipboard.Snapshot
	clipCaptured bool

	// prevApp is the application that held focus when the session started.
	prevApp    focus.App
	hasPrevApp bool

	// history holds alternating user/assistant turns across continuations of
	// a chat. Cleared on fresh start, cancel, and dismiss.
	history []llm.Message
}

func newSessionContext(d Defaults) *sessionContext {
	return &sessionContext{
		id:                  uuid.NewString(),
		mode:                d.Mode,
		language:            d.Language,
		formattingStyle:     d.FormattingStyle,
		codeLanguage:        d.CodeLanguage,
		useClipboardContext: d.UseClipboardContext,
		outputRouting:       d.OutputRouting,
		postProcess:         d.PostProcess,
		webSearch:           d.WebSearch,
	}
}

// captureClipboard takes (or refreshes) the mode-entry clipboard snapshot.
func (s *sessionContext) captureClipboard(g clipboard.Gateway) {
	s.clip = g.Snapshot()
	s.clipCaptured = true
}

// freeze copies the live context into an immutable Snapshot. Called exactly
// once per session, at the moment recording stops.
func (s *sessionContext) freeze() Snapshot {
	hist := make([]llm.Message, len(s.history))
	copy(hist, s.history)
	return Snapshot{
		SessionID:           s.id,
		Mode:                s.mode,
		Language:            s.language,
		FormattingStyle:     s.formattingStyle,
		CodeLanguage:        s.codeLanguage,
		UseClipboardContext: s.useClipboardContext,
		OutputRouting:       s.outputRouting,
		Clipboard:           s.clip,
		History:             hist,
		PostProcess:         s.postProcess,
		WebSearch:           s.webSearch,
	}
}

// appendTurn records one user/assistant exchange in the history.
func (s *sessionContext) appendTurn(user, assistant string) {
	s.history = append(s.history,
		llm.Message{Role: llm.RoleUser, Content: user},
		llm.Message{Role: llm.RoleAssistant, Content: assistant},
	)
}

// historyCopy returns a defensive copy for handing to sinks.
func (s *sessionContext) historyCopy() []llm.Message {
	hist := make([]llm.Message, len(s.history))
	copy(hist, s.history)
	return hist
}
