// Package whisper provides a Transcriber backed by the whisper.cpp CGO
// bindings, for fully local transcription without any network dependency.
//
// The whisper.cpp static library (libwhisper.a) and headers (whisper.h) must
// be available at link time via LIBRARY_PATH and C_INCLUDE_PATH. The model is
// loaded once at construction and shared across calls; each Transcribe call
// creates its own whisper context, which is the unit of thread confinement in
// whisper.cpp.
//
// Recordings must be 16 kHz PCM — the rate sotto's capture layer records at —
// because whisper.cpp expects 16 kHz input and this provider does not
// resample.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	wav "github.com/go-audio/wav"
	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/sottovoce/sotto/pkg/capture"
	"github.com/sottovoce/sotto/pkg/provider/stt"
)

// Compile-time assertion that Transcriber implements stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

// Transcriber implements stt.Transcriber using a local whisper.cpp model.
type Transcriber struct {
	model    whisperlib.Model
	language string
}

// Option is a functional option for configuring a Transcriber.
type Option func(*Transcriber)

// WithLanguage sets the default language code used when Transcribe receives
// no explicit hint (e.g., "en", "de"). Defaults to "auto".
func WithLanguage(lang string) Option {
	return func(t *Transcriber) { t.language = lang }
}

// New creates a Transcriber that loads the whisper.cpp model from the given
// file path. The caller must call Close when the transcriber is no longer
// needed.
func New(modelPath string, opts ...Option) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	t := &Transcriber{model: model, language: "auto"}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Close releases the whisper model.
func (t *Transcriber) Close() error {
	if t.model != nil {
		return t.model.Close()
	}
	return nil
}

// Transcribe implements stt.Transcriber.
func (t *Transcriber) Transcribe(ctx context.Context, rec *capture.Recording, language string) (stt.Transcript, error) {
	if rec == nil || rec.Path == "" {
		return stt.Transcript{}, errors.New("whisper: recording has no audio file")
	}
	if err := ctx.Err(); err != nil {
		return stt.Transcript{}, err
	}

	samples, err := loadWAVMono(rec.Path)
	if err != nil {
		return stt.Transcript{}, err
	}

	lang := language
	if lang == "" {
		lang = t.language
	}

	// Each context is NOT thread-safe, but the model can be shared.
	wctx, err := t.model.NewContext()
	if err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(lang); err != nil {
		slog.Warn("whisper: failed to set language, using default", "language", lang, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return stt.Transcript{}, fmt.Errorf("whisper: process audio: %w", err)
	}
	// Inference is a blocking cgo call; honour cancellation before surfacing
	// a result the caller no longer wants.
	if err := ctx.Err(); err != nil {
		return stt.Transcript{}, err
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stt.Transcript{}, fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}

	detected := lang
	if detected == "auto" {
		detected = ""
	}
	return stt.Transcript{Text: strings.Join(parts, " "), Language: detected}, nil
}

// loadWAVMono decodes a 16-bit PCM WAV file into float32 mono samples in
// [-1, 1], downmixing interleaved channels by averaging.
func loadWAVMono(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("whisper: open recording %q: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("whisper: decode wav %q: %w", path, err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("whisper: wav %q contains no audio", path)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}

	samples := make([]float32, 0, len(buf.Data)/channels)
	for i := 0; i+channels <= len(buf.Data); i += channels {
		var sum int
		for c := 0; c < channels; c++ {
			sum += buf.Data[i+c]
		}
		samples = append(samples, float32(sum/channels)/32768.0)
	}
	return samples, nil
}
