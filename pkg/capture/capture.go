// Package capture defines the Recorder interface for microphone capture.
//
// A Recorder produces a single [Recording] per start/stop cycle: audio is
// buffered while recording and written out as a 16-bit PCM WAV temp file when
// the cycle stops. The temp file is owned by whoever holds the Recording and
// must be removed via [Recording.Remove] on every exit path.
//
// While a capture cycle is open the Recorder also publishes coarse input-level
// samples for UI metering. The level stream is strictly an output: consumers
// must never derive session state from it.
package capture

import (
	"context"
	"os"
	"time"
)

// Recording is a finished capture: a WAV temp file plus basic audio metadata.
type Recording struct {
	// Path is the absolute path of the temporary WAV file.
	Path string

	// Duration is the captured audio length.
	Duration time.Duration

	// SampleRate is the capture sample rate in Hz.
	SampleRate int
}

// Remove deletes the temporary WAV file. Safe to call on a zero-value
// Recording or more than once; the first os.Remove error is returned so
// callers can log it, but removal is best-effort by contract.
func (r *Recording) Remove() error {
	if r == nil || r.Path == "" {
		return nil
	}
	err := os.Remove(r.Path)
	r.Path = ""
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Recorder creates microphone capture cycles. Implementations must be safe
// for use from a single goroutine at a time; sotto never runs overlapping
// capture cycles.
type Recorder interface {
	// Start opens the input device and begins buffering audio. It returns an
	// error when the device is unavailable or permission has not been granted.
	// Starting while a cycle is already open is an error.
	Start(ctx context.Context) error

	// Stop ends the open capture cycle and returns the finished Recording.
	// ok is false when no audio was captured (instant stop, device produced
	// no frames); in that case no temp file exists.
	Stop() (rec *Recording, ok bool)

	// Levels returns a channel of input level samples in [0, 1], published
	// periodically while a cycle is open. The channel is closed on Stop.
	// Samples are dropped rather than blocking when the consumer is slow.
	Levels() <-chan float64
}
