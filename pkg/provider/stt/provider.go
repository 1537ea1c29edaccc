// Package stt defines the Transcriber interface for speech-to-text backends.
//
// sotto records first and transcribes after the fact, so the interface is a
// single batch call over a finished [capture.Recording] rather than a
// streaming session. Implementations wrap a hosted API (OpenAI) or a local
// whisper.cpp model and must be safe for concurrent use, though sotto issues
// at most one transcription at a time.
package stt

import (
	"context"

	"github.com/sottovoce/sotto/pkg/capture"
)

// Transcript is the result of a successful transcription.
type Transcript struct {
	// Text is the transcribed text.
	Text string

	// Language is the ISO 639-1 code of the detected (or requested) language,
	// when the backend reports one. Empty when unknown.
	Language string
}

// Transcriber is the abstraction over any speech-to-text backend.
type Transcriber interface {
	// Transcribe converts the recorded audio to text. language is an optional
	// ISO 639-1 hint; empty lets the backend auto-detect. The backend's own
	// detection stands unless an explicit hint is given.
	//
	// The Recording's temp file must still exist when Transcribe is called;
	// the Transcriber never deletes it.
	Transcribe(ctx context.Context, rec *capture.Recording, language string) (Transcript, error)
}
