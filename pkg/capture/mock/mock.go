// Package mock provides test doubles for the capture package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/sottovoce/sotto/pkg/capture"
)

// Recorder is a mock implementation of capture.Recorder.
type Recorder struct {
	mu sync.Mutex

	// StartErr, if non-nil, is returned from Start.
	StartErr error

	// Recording is returned from Stop together with StopOK.
	Recording *capture.Recording
	StopOK    bool

	// StartCalls counts calls to Start.
	StartCalls int

	// StopCalls counts calls to Stop.
	StopCalls int

	levels chan float64
}

var _ capture.Recorder = (*Recorder)(nil)

// Start records the call and returns StartErr.
func (r *Recorder) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StartCalls++
	if r.StartErr != nil {
		return r.StartErr
	}
	r.levels = make(chan float64)
	return nil
}

// Stop records the call, closes the level channel, and returns the scripted
// Recording.
func (r *Recorder) Stop() (*capture.Recording, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StopCalls++
	if r.levels != nil {
		close(r.levels)
		r.levels = nil
	}
	if !r.StopOK {
		return nil, false
	}
	return r.Recording, true
}

// Levels returns the level channel for the open cycle, or nil.
func (r *Recorder) Levels() <-chan float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.levels
}
