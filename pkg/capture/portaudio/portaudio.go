// Package portaudio provides a capture.Recorder backed by the PortAudio
// bindings. Audio is read from the default input device as 16-bit mono PCM,
// buffered in memory for the duration of the cycle, and written to a WAV temp
// file on stop.
//
// PortAudio requires the native library at runtime; a missing device or a
// denied microphone permission surfaces as an error from Start, which sotto
// maps to its capture-unavailable error state.
package portaudio

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
	pa "github.com/gordonklaus/portaudio"

	"github.com/sottovoce/sotto/pkg/capture"
)

const (
	defaultSampleRate = 16000
	framesPerBuffer   = 1024
)

// Compile-time assertion that Recorder implements capture.Recorder.
var _ capture.Recorder = (*Recorder)(nil)

// Option is a functional option for configuring a Recorder.
type Option func(*Recorder)

// WithSampleRate sets the capture sample rate in Hz. Defaults to 16000,
// which is what both Whisper backends expect.
func WithSampleRate(rate int) Option {
	return func(r *Recorder) { r.sampleRate = rate }
}

// WithTempDir sets the directory for recording temp files. Defaults to the
// OS temp directory.
func WithTempDir(dir string) Option {
	return func(r *Recorder) { r.tempDir = dir }
}

// Recorder implements capture.Recorder using PortAudio.
type Recorder struct {
	sampleRate int
	tempDir    string

	mu      sync.Mutex
	stream  *pa.Stream
	frames  []int16
	levels  chan float64
	stopCh  chan struct{}
	doneCh  chan struct{}
	readErr error
}

// New initialises PortAudio and returns a Recorder. Call Close when the
// recorder is no longer needed to release the PortAudio runtime.
func New(opts ...Option) (*Recorder, error) {
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}
	r := &Recorder{
		sampleRate: defaultSampleRate,
		tempDir:    os.TempDir(),
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Close terminates the PortAudio runtime. Any open capture cycle is
// discarded.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.stream != nil {
		close(r.stopCh)
		r.mu.Unlock()
		<-r.doneCh
		r.mu.Lock()
		r.finishLocked()
	}
	r.mu.Unlock()
	if err := pa.Terminate(); err != nil {
		return fmt.Errorf("portaudio: terminate: %w", err)
	}
	return nil
}

// Start implements capture.Recorder.
func (r *Recorder) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stream != nil {
		return fmt.Errorf("portaudio: capture cycle already open")
	}

	in := make([]int16, framesPerBuffer)
	stream, err := pa.OpenDefaultStream(1, 0, float64(r.sampleRate), len(in), in)
	if err != nil {
		return fmt.Errorf("portaudio: open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("portaudio: start input stream: %w", err)
	}

	r.stream = stream
	r.frames = r.frames[:0]
	r.levels = make(chan float64, 16)
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	r.readErr = nil

	go r.readLoop(stream, in, r.levels, r.stopCh, r.doneCh)
	return nil
}

// readLoop pulls buffers from the stream until stopped, accumulating frames
// and publishing an RMS level per buffer.
func (r *Recorder) readLoop(stream *pa.Stream, in []int16, levels chan<- float64, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer close(levels)

	for {
		select {
		case <-stop:
			return
		default:
		}

		if err := stream.Read(); err != nil {
			r.mu.Lock()
			r.readErr = err
			r.mu.Unlock()
			return
		}

		buf := make([]int16, len(in))
		copy(buf, in)

		r.mu.Lock()
		r.frames = append(r.frames, buf...)
		r.mu.Unlock()

		select {
		case levels <- rmsLevel(buf):
		default:
		}
	}
}

// Stop implements capture.Recorder.
func (r *Recorder) Stop() (*capture.Recording, bool) {
	r.mu.Lock()
	if r.stream == nil {
		r.mu.Unlock()
		return nil, false
	}
	close(r.stopCh)
	done := r.doneCh
	r.mu.Unlock()
	<-done

	r.mu.Lock()
	frames := r.frames
	r.frames = nil
	r.finishLocked()
	r.mu.Unlock()

	if len(frames) == 0 {
		return nil, false
	}

	path := filepath.Join(r.tempDir, fmt.Sprintf("sotto-%s.wav", uuid.NewString()))
	if err := writeWAV(path, frames, r.sampleRate); err != nil {
		_ = os.Remove(path)
		return nil, false
	}

	return &capture.Recording{
		Path:       path,
		Duration:   time.Duration(len(frames)) * time.Second / time.Duration(r.sampleRate),
		SampleRate: r.sampleRate,
	}, true
}

// finishLocked stops and closes the stream. Caller holds r.mu.
func (r *Recorder) finishLocked() {
	if r.stream != nil {
		_ = r.stream.Stop()
		_ = r.stream.Close()
		r.stream = nil
	}
}

// Levels implements capture.Recorder.
func (r *Recorder) Levels() <-chan float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.levels
}

// rmsLevel computes the normalised root-mean-square level of a PCM buffer.
func rmsLevel(buf []int16) float64 {
	if len(buf) == 0 {
		return 0
	}
	var sum float64
	for _, s := range buf {
		f := float64(s)
		sum += f * f
	}
	return math.Min(1, math.Sqrt(sum/float64(len(buf)))/32768.0)
}

// writeWAV writes 16-bit mono PCM samples to a WAV file.
func writeWAV(path string, samples []int16, rate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("portaudio: create wav %q: %w", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  rate,
		},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, s := range samples {
		buf.Data[i] = int(s)
	}
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return fmt.Errorf("portaudio: write wav %q: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("portaudio: finalise wav %q: %w", path, err)
	}
	return nil
}
