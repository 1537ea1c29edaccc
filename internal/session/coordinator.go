package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sottovoce/sotto/internal/cred"
	"github.com/sottovoce/sotto/internal/observe"
	"github.com/sottovoce/sotto/pkg/capture"
	"github.com/sottovoce/sotto/pkg/clipboard"
	"github.com/sottovoce/sotto/pkg/focus"
	"github.com/sottovoce/sotto/pkg/provider/llm"
	"github.com/sottovoce/sotto/pkg/provider/stt"
)

// defaultErrorClear is how long a terminal error stays visible before the
// session resets to idle on its own.
const defaultErrorClear = 3 * time.Second

// Config wires a Coordinator. Recorder, Transcriber, Dispatcher, Deliverer,
// Clipboard, Focus and Credentials are required; the rest default to no-ops.
type Config struct {
	Recorder    capture.Recorder
	Transcriber stt.Transcriber
	Dispatcher  Dispatcher
	Deliverer   Deliverer
	Clipboard   clipboard.Gateway
	Focus       focus.Gateway
	Credentials cred.Store

	// Sink receives lifecycle events. Defaults to NopSink.
	Sink EventSink

	// Corrector optionally rewrites transcriptions before dispatch.
	Corrector Corrector

	// Metrics optionally records stage durations and session outcomes.
	Metrics *observe.Metrics

	// Defaults seed every fresh session context.
	Defaults Defaults

	// ErrorClearAfter overrides the error auto-clear delay. Zero means the
	// default of three seconds.
	ErrorClearAfter time.Duration
}

// Coordinator is the single owner of session state. All operations are safe
// for concurrent use; event sink callbacks are issued outside the internal
// lock.
type Coordinator struct {
	rec     capture.Recorder
	trans   stt.Transcriber
	disp    Dispatcher
	deliver Deliverer
	clip    clipboard.Gateway
	focus   focus.Gateway
	creds   cred.Store
	sink    EventSink
	corr    Corrector
	metrics *observe.Metrics
	defls   Defaults
	errWait time.Duration

	mu    sync.Mutex
	state State
	sctx  *sessionContext

	// generation increments on every fresh session and on every reset. An
	// in-flight pipeline or error timer whose generation no longer matches
	// discards its result silently.
	generation uint64

	cancelRun context.CancelFunc

	lastTranscription string
	lastResult        string
	errCode           ErrorCode
	errDetail         string
}

// New builds a Coordinator. It returns an error when a required dependency is
// missing or the defaults are invalid.
func New(cfg Config) (*Coordinator, error) {
	switch {
	case cfg.Recorder == nil:
		return nil, fmt.Errorf("session: Recorder is required")
	case cfg.Transcriber == nil:
		return nil, fmt.Errorf("session: Transcriber is required")
	case cfg.Dispatcher == nil:
		return nil, fmt.Errorf("session: Dispatcher is required")
	case cfg.Deliverer == nil:
		return nil, fmt.Errorf("session: Deliverer is required")
	case cfg.Clipboard == nil:
		return nil, fmt.Errorf("session: Clipboard is required")
	case cfg.Focus == nil:
		return nil, fmt.Errorf("session: Focus is required")
	case cfg.Credentials == nil:
		return nil, fmt.Errorf("session: Credentials is required")
	}
	if !cfg.Defaults.Mode.IsValid() {
		return nil, fmt.Errorf("session: invalid default mode %q", cfg.Defaults.Mode)
	}
	if !cfg.Defaults.FormattingStyle.IsValid() {
		return nil, fmt.Errorf("session: invalid default formatting style %q", cfg.Defaults.FormattingStyle)
	}
	if !cfg.Defaults.CodeLanguage.IsValid() {
		return nil, fmt.Errorf("session: invalid default code language %q", cfg.Defaults.CodeLanguage)
	}
	if !cfg.Defaults.OutputRouting.IsValid() {
		return nil, fmt.Errorf("session: invalid default output routing %q", cfg.Defaults.OutputRouting)
	}
	sink := cfg.Sink
	if sink == nil {
		sink = NopSink{}
	}
	wait := cfg.ErrorClearAfter
	if wait <= 0 {
		wait = defaultErrorClear
	}
	return &Coordinator{
		rec:     cfg.Recorder,
		trans:   cfg.Transcriber,
		disp:    cfg.Dispatcher,
		deliver: cfg.Deliverer,
		clip:    cfg.Clipboard,
		focus:   cfg.Focus,
		creds:   cfg.Credentials,
		sink:    sink,
		corr:    cfg.Corrector,
		metrics: cfg.Metrics,
		defls:   cfg.Defaults,
		errWait: wait,
		state:   StateIdle,
		sctx:    newSessionContext(cfg.Defaults),
	}, nil
}

// State returns the current session state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Mode returns the current session mode.
func (c *Coordinator) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sctx.mode
}

// OutputRouting returns the current result routing.
func (c *Coordinator) OutputRouting() OutputRouting {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sctx.outputRouting
}

// History returns a copy of the current conversation history.
func (c *Coordinator) History() []llm.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sctx.historyCopy()
}

// LastTranscription returns the most recent raw-corrected transcription. It
// survives session resets until the next session overwrites it.
func (c *Coordinator) LastTranscription() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastTranscription
}

// LastResult returns the most recent pipeline result text.
func (c *Coordinator) LastResult() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastResult
}

// LastError returns the current error, valid while the state is StateError.
func (c *Coordinator) LastError() (ErrorCode, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errCode, c.errDetail
}

// Start begins a fresh session: a new context seeded from the defaults, an
// empty history, a captured foreground application, and an open recording.
// Valid from idle, showing-result and error states; returns ErrBusy while a
// recording or pipeline is in flight.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	c.generation++
	c.sctx = newSessionContext(c.defls)
	c.errCode, c.errDetail = "", ""
	return c.beginRecordingLocked(ctx)
}

// Continue opens a follow-up recording on top of the shown result, keeping
// the conversation history and the previously captured application. Valid
// only from the showing-result state.
func (c *Coordinator) Continue(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateShowingResult {
		c.mu.Unlock()
		return ErrNoResult
	}
	c.generation++
	return c.beginRecordingLocked(ctx)
}

// beginRecordingLocked runs the shared start path. It releases the mutex.
func (c *Coordinator) beginRecordingLocked(ctx context.Context) error {
	if !c.creds.HasCredential() {
		c.enterErrorLocked(ErrorCodeNoCredential, "no API key configured for the active backend")
		c.mu.Unlock()
		return ErrNoCredential
	}
	// Capture the foreground app only on a fresh start. A continuation keeps
	// the handle from the original session; at this point sotto's own chat
	// surface holds focus and must never become the paste target.
	if !c.sctx.hasPrevApp {
		if app, ok := c.focus.CaptureActive(); ok {
			c.sctx.prevApp, c.sctx.hasPrevApp = app, true
		}
	}
	if c.sctx.mode.UsesClipboard() {
		c.sctx.captureClipboard(c.clip)
	}
	if err := c.rec.Start(ctx); err != nil {
		c.enterErrorLocked(ErrorCodeCaptureUnavailable, err.Error())
		c.mu.Unlock()
		return fmt.Errorf("session: start recording: %w", err)
	}
	c.setStateLocked(StateRecording)
	mode := c.sctx.mode
	gen := c.generation
	levels := c.rec.Levels()
	c.mu.Unlock()

	go c.forwardLevels(levels, gen)
	c.sink.StateChanged(StateRecording, mode)
	return nil
}

// forwardLevels relays recorder level samples to the sink until the channel
// closes or the session moves on.
func (c *Coordinator) forwardLevels(levels <-chan float64, gen uint64) {
	if levels == nil {
		return
	}
	for lvl := range levels {
		c.mu.Lock()
		stale := c.generation != gen || c.state != StateRecording
		c.mu.Unlock()
		if stale {
			return
		}
		c.sink.AudioLevel(lvl)
	}
}

// Stop closes the recording, freezes the session context and launches the
// asynchronous transcription/processing pipeline. Valid only while
// recording.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateRecording {
		c.mu.Unlock()
		return ErrNotRecording
	}
	rec, ok := c.rec.Stop()
	if !ok || rec == nil {
		if rec != nil {
			if err := rec.Remove(); err != nil {
				slog.Warn("session: remove empty recording", "path", rec.Path, "error", err)
			}
		}
		c.enterErrorLocked(ErrorCodeEmptyCapture, "recording produced no audio")
		c.mu.Unlock()
		return ErrEmptyCapture
	}
	snap := c.sctx.freeze()
	c.setStateLocked(StateTranscribing)
	gen := c.generation
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancelRun = cancel
	c.mu.Unlock()

	c.sink.StateChanged(StateTranscribing, snap.Mode)
	go func() {
		defer cancel()
		c.run(runCtx, gen, snap, rec)
	}()
	return nil
}

// Cancel aborts the session. While recording it discards the audio, restores
// focus to the captured application and clears the history; while a pipeline
// is in flight it cancels the outstanding call and ignores its eventual
// result.
func (c *Coordinator) Cancel() error {
	c.mu.Lock()
	switch c.state {
	case StateRecording:
		rec, _ := c.rec.Stop()
		if rec != nil {
			if err := rec.Remove(); err != nil {
				slog.Warn("session: remove cancelled recording", "path", rec.Path, "error", err)
			}
		}
	case StateTranscribing, StateProcessing:
		if c.cancelRun != nil {
			c.cancelRun()
		}
	default:
		c.mu.Unlock()
		return ErrNotRecording
	}
	mode := c.sctx.mode
	app, hasApp := c.sctx.prevApp, c.sctx.hasPrevApp
	c.generation++
	c.resetToIdleLocked()
	c.observeDone(mode, "cancelled")
	c.mu.Unlock()

	if hasApp {
		if err := c.focus.Activate(app); err != nil {
			slog.Debug("session: restore focus after cancel", "error", err)
		}
	}
	c.sink.StateChanged(StateIdle, mode)
	return nil
}

// Dismiss hides the shown result and returns to idle, clearing the
// conversation history. When copyResult is set the result text is written to
// the clipboard on the way out. Valid only from the showing-result state.
func (c *Coordinator) Dismiss(copyResult bool) error {
	c.mu.Lock()
	if c.state != StateShowingResult {
		c.mu.Unlock()
		return ErrNoResult
	}
	mode := c.sctx.mode
	text := c.lastResult
	c.generation++
	c.resetToIdleLocked()
	c.mu.Unlock()

	if copyResult && text != "" {
		if err := c.clip.WriteText(text); err != nil {
			slog.Warn("session: copy result on dismiss", "error", err)
		}
	}
	c.sink.SurfaceHidden()
	c.sink.StateChanged(StateIdle, mode)
	return nil
}

// Toggle maps the single push-to-talk signal onto the state machine: start
// when idle or in error, stop when recording, continue the conversation when
// a result is showing.
func (c *Coordinator) Toggle(ctx context.Context) error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	switch state {
	case StateIdle, StateError:
		return c.Start(ctx)
	case StateRecording:
		return c.Stop(ctx)
	case StateShowingResult:
		return c.Continue(ctx)
	default:
		return ErrBusy
	}
}

// CopyLastResult writes the most recent result text back to the clipboard.
func (c *Coordinator) CopyLastResult() error {
	c.mu.Lock()
	text := c.lastResult
	c.mu.Unlock()
	if text == "" {
		return ErrNoResult
	}
	if err := c.clip.WriteText(text); err != nil {
		return fmt.Errorf("session: copy last result: %w", err)
	}
	return nil
}

// SetMode switches the pipeline mid-recording. Entering a clipboard-consuming
// mode refreshes the clipboard snapshot. Valid only while recording.
func (c *Coordinator) SetMode(m Mode) error {
	if !m.IsValid() {
		return fmt.Errorf("session: invalid mode %q", m)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRecording {
		return ErrNotRecording
	}
	if m == c.sctx.mode {
		return nil
	}
	c.sctx.mode = m
	if m.UsesClipboard() {
		c.sctx.captureClipboard(c.clip)
	}
	return nil
}

// SetLanguage overrides the transcription language hint mid-recording. The
// value "auto" (or empty) defers to the service's own detection.
func (c *Coordinator) SetLanguage(lang string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRecording {
		return ErrNotRecording
	}
	if lang == "auto" {
		lang = ""
	}
	c.sctx.language = lang
	return nil
}

// SetFormattingStyle changes the Transcribe cleanup style mid-recording.
func (c *Coordinator) SetFormattingStyle(f FormattingStyle) error {
	if !f.IsValid() {
		return fmt.Errorf("session: invalid formatting style %q", f)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRecording {
		return ErrNotRecording
	}
	c.sctx.formattingStyle = f
	return nil
}

// SetCodeLanguage changes the Code-mode language hint mid-recording.
func (c *Coordinator) SetCodeLanguage(cl CodeLanguage) error {
	if !cl.IsValid() {
		return fmt.Errorf("session: invalid code language %q", cl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRecording {
		return ErrNotRecording
	}
	c.sctx.codeLanguage = cl
	return nil
}

// SetOutputRouting changes the result routing mid-recording.
func (c *Coordinator) SetOutputRouting(r OutputRouting) error {
	if !r.IsValid() {
		return fmt.Errorf("session: invalid output routing %q", r)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRecording {
		return ErrNotRecording
	}
	c.sctx.outputRouting = r
	return nil
}

// SetUseClipboardContext toggles the Respond-mode clipboard context
// mid-recording.
func (c *Coordinator) SetUseClipboardContext(use bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRecording {
		return ErrNotRecording
	}
	c.sctx.useClipboardContext = use
	return nil
}

// run is the asynchronous pipeline: transcribe, correct, dispatch, deliver.
// It operates exclusively on the frozen snapshot; any commit back into the
// coordinator checks the generation first and aborts silently when stale.
func (c *Coordinator) run(ctx context.Context, gen uint64, snap Snapshot, rec *capture.Recording) {
	defer func() {
		if err := rec.Remove(); err != nil {
			slog.Warn("session: remove temp audio", "path", rec.Path, "error", err)
		}
	}()

	start := time.Now()
	tr, err := c.trans.Transcribe(ctx, rec, snap.Language)
	if c.metrics != nil {
		c.metrics.RecordStage(ctx, c.metrics.TranscriptionDuration, start, string(snap.Mode))
	}
	if err != nil {
		c.fail(gen, snap.Mode, ErrorCodeServiceFailure, fmt.Errorf("transcription: %w", err))
		return
	}
	text := tr.Text
	if c.corr != nil {
		text = c.corr.Correct(text)
	}

	c.mu.Lock()
	if c.generation != gen || c.state != StateTranscribing {
		c.mu.Unlock()
		return
	}
	c.lastTranscription = text
	c.setStateLocked(StateProcessing)
	c.mu.Unlock()
	c.sink.TranscriptReady(text)
	c.sink.StateChanged(StateProcessing, snap.Mode)

	start = time.Now()
	res, err := c.disp.Dispatch(ctx, snap, text)
	if c.metrics != nil {
		c.metrics.RecordStage(ctx, c.metrics.CompletionDuration, start, string(snap.Mode))
	}
	if err != nil {
		code := ErrorCodeServiceFailure
		if errors.Is(err, ErrEmptyClipboard) {
			code = ErrorCodeEmptyClipboard
		}
		c.fail(gen, snap.Mode, code, err)
		return
	}
	c.finish(ctx, gen, snap, text, res)
}

// finish commits a successful dispatch: chat-routed results enter the
// showing-result state with the exchange appended to the history; paste-routed
// results reset the session to idle and run delivery last, after the state
// transition, so a delivery failure can no longer disturb the machine.
func (c *Coordinator) finish(ctx context.Context, gen uint64, snap Snapshot, transcription string, res Result) {
	toChat := res.Delivery == DeliveryAlwaysChat || snap.OutputRouting == RoutingShowInChat

	c.mu.Lock()
	if c.generation != gen || c.state != StateProcessing {
		c.mu.Unlock()
		return
	}
	c.lastResult = res.Text
	if toChat {
		c.sctx.appendTurn(transcription, res.Text)
		hist := c.sctx.historyCopy()
		c.setStateLocked(StateShowingResult)
		c.cancelRun = nil
		c.observeDone(snap.Mode, "shown")
		c.mu.Unlock()

		c.sink.ResultReady(snap.Mode, res.Text, hist)
		c.sink.StateChanged(StateShowingResult, snap.Mode)
		return
	}

	app, hasApp := c.sctx.prevApp, c.sctx.hasPrevApp
	c.resetToIdleLocked()
	c.observeDone(snap.Mode, "pasted")
	c.mu.Unlock()

	c.sink.SurfaceHidden()
	c.sink.StateChanged(StateIdle, snap.Mode)

	start := time.Now()
	err := c.deliver.Deliver(ctx, res.Text, app, hasApp)
	if c.metrics != nil {
		c.metrics.RecordStage(ctx, c.metrics.DeliveryDuration, start, string(snap.Mode))
	}
	if err != nil {
		slog.Warn("session: deliver result", "error", err)
		c.sink.SessionError(ErrorCodeDelivery, err.Error())
	}
}

// fail moves a still-current pipeline into the error state.
func (c *Coordinator) fail(gen uint64, mode Mode, code ErrorCode, err error) {
	c.mu.Lock()
	if c.generation != gen || (c.state != StateTranscribing && c.state != StateProcessing) {
		c.mu.Unlock()
		return
	}
	c.enterErrorLocked(code, err.Error())
	c.mu.Unlock()
	slog.Error("session: pipeline failed", "mode", mode, "code", code, "error", err)
}

// enterErrorLocked transitions to the error state, emits the error event and
// arms the auto-clear timer. Caller holds the mutex and releases it after.
func (c *Coordinator) enterErrorLocked(code ErrorCode, detail string) {
	c.errCode, c.errDetail = code, detail
	mode := c.sctx.mode
	c.setStateLocked(StateError)
	c.cancelRun = nil
	if c.metrics != nil {
		c.metrics.SessionFailed(context.Background(), string(code))
	}
	c.observeDone(mode, "failed")
	gen := c.generation

	go func() {
		c.sink.SessionError(code, detail)
		c.sink.StateChanged(StateError, mode)
	}()
	time.AfterFunc(c.errWait, func() {
		c.mu.Lock()
		if c.state != StateError || c.generation != gen {
			c.mu.Unlock()
			return
		}
		c.generation++
		c.resetToIdleLocked()
		c.mu.Unlock()
		c.sink.StateChanged(StateIdle, mode)
	})
}

// resetToIdleLocked drops the session context and returns to idle. The
// last-transcription and last-result values survive; everything else is
// rebuilt from the defaults.
func (c *Coordinator) resetToIdleLocked() {
	c.sctx = newSessionContext(c.defls)
	c.errCode, c.errDetail = "", ""
	c.cancelRun = nil
	c.setStateLocked(StateIdle)
}

// setStateLocked transitions the state and keeps the active-session gauge in
// step: the gauge is 1 exactly while the state is not idle.
func (c *Coordinator) setStateLocked(next State) {
	prev := c.state
	c.state = next
	if c.metrics == nil || prev == next {
		return
	}
	if prev == StateIdle && next != StateIdle {
		c.metrics.SessionActive(context.Background(), 1)
	} else if prev != StateIdle && next == StateIdle {
		c.metrics.SessionActive(context.Background(), -1)
	}
}

// observeDone records a session outcome when metrics are wired.
func (c *Coordinator) observeDone(mode Mode, status string) {
	if c.metrics != nil {
		c.metrics.SessionDone(context.Background(), string(mode), status)
	}
}
