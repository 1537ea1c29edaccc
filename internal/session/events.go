package session

import "github.com/sottovoce/sotto/pkg/provider/llm"

// EventSink receives session lifecycle notifications. Implementations must be
// fast and must not call back into the Coordinator from inside a callback;
// hand off to another goroutine instead.
type EventSink interface {
	// StateChanged fires on every state transition.
	StateChanged(state State, mode Mode)

	// AudioLevel fires with RMS level samples while recording.
	AudioLevel(level float64)

	// TranscriptReady fires once per session with the (corrected)
	// transcription, before dispatch.
	TranscriptReady(text string)

	// ResultReady fires when a result is routed to the chat surface. The
	// history slice is a copy owned by the receiver.
	ResultReady(mode Mode, text string, history []llm.Message)

	// SessionError fires when a session fails or when delivery fails after a
	// successful pipeline.
	SessionError(code ErrorCode, detail string)

	// SurfaceHidden fires right before an auto-paste delivery so the
	// presentation surface can get out of the way.
	SurfaceHidden()
}

// NopSink is an EventSink that discards everything.
type NopSink struct{}

var _ EventSink = NopSink{}

func (NopSink) StateChanged(State, Mode)                {}
func (NopSink) AudioLevel(float64)                      {}
func (NopSink) TranscriptReady(string)                  {}
func (NopSink) ResultReady(Mode, string, []llm.Message) {}
func (NopSink) SessionError(ErrorCode, string)          {}
func (NopSink) SurfaceHidden()                          {}
