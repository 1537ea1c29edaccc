// Package mock provides test doubles for the stt package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/sottovoce/sotto/pkg/capture"
	"github.com/sottovoce/sotto/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcriber.Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Rec is the recording passed to Transcribe.
	Rec *capture.Recording
	// Language is the language hint passed to Transcribe.
	Language string
}

// Transcriber is a mock implementation of stt.Transcriber.
type Transcriber struct {
	mu sync.Mutex

	// Transcript is returned from Transcribe.
	Transcript stt.Transcript

	// Err, if non-nil, is returned from Transcribe.
	Err error

	// Block, if non-nil, is received from before returning; tests use it to
	// hold a transcription in flight while they cancel the session.
	Block <-chan struct{}

	// TranscribeCalls records every call to Transcribe.
	TranscribeCalls []TranscribeCall
}

var _ stt.Transcriber = (*Transcriber)(nil)

// Transcribe records the call and returns Transcript, Err.
func (t *Transcriber) Transcribe(ctx context.Context, rec *capture.Recording, language string) (stt.Transcript, error) {
	t.mu.Lock()
	t.TranscribeCalls = append(t.TranscribeCalls, TranscribeCall{Ctx: ctx, Rec: rec, Language: language})
	block := t.Block
	t.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return stt.Transcript{}, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return stt.Transcript{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return stt.Transcript{}, t.Err
	}
	return t.Transcript, nil
}

// Calls returns a snapshot of recorded calls.
func (t *Transcriber) Calls() []TranscribeCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TranscribeCall, len(t.TranscribeCalls))
	copy(out, t.TranscribeCalls)
	return out
}
