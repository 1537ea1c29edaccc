package session_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sottovoce/sotto/internal/cred"
	"github.com/sottovoce/sotto/internal/session"
	"github.com/sottovoce/sotto/pkg/capture"
	capturemock "github.com/sottovoce/sotto/pkg/capture/mock"
	clipmock "github.com/sottovoce/sotto/pkg/clipboard/mock"
	"github.com/sottovoce/sotto/pkg/focus"
	focusmock "github.com/sottovoce/sotto/pkg/focus/mock"
	"github.com/sottovoce/sotto/pkg/provider/llm"
	sttmock "github.com/sottovoce/sotto/pkg/provider/stt/mock"
)

// opLog is a shared ordered log the sink and the deliverer both append to, so
// tests can assert sequencing across components.
type opLog struct {
	mu  sync.Mutex
	ops []string
}

func (l *opLog) add(op string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ops = append(l.ops, op)
}

func (l *opLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.ops))
	copy(out, l.ops)
	return out
}

func (l *opLog) index(op string) int {
	for i, o := range l.snapshot() {
		if o == op {
			return i
		}
	}
	return -1
}

// logSink records every event into the shared log.
type logSink struct {
	log *opLog
}

func (s *logSink) StateChanged(st session.State, _ session.Mode)      { s.log.add("state:" + string(st)) }
func (s *logSink) AudioLevel(float64)                                 {}
func (s *logSink) TranscriptReady(text string)                        { s.log.add("transcript:" + text) }
func (s *logSink) ResultReady(_ session.Mode, text string, _ []llm.Message) {
	s.log.add("result:" + text)
}
func (s *logSink) SessionError(code session.ErrorCode, _ string) {
	s.log.add("error:" + string(code))
}
func (s *logSink) SurfaceHidden() { s.log.add("surface_hidden") }

// dispatchCall records one scripted dispatch.
type dispatchCall struct {
	snap session.Snapshot
	text string
}

// scriptDispatcher returns scripted results and records the frozen snapshots
// it was handed.
type scriptDispatcher struct {
	mu    sync.Mutex
	res   session.Result
	err   error
	calls []dispatchCall
}

func (d *scriptDispatcher) Dispatch(_ context.Context, snap session.Snapshot, text string) (session.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatchCall{snap: snap, text: text})
	if d.err != nil {
		return session.Result{}, d.err
	}
	return d.res, nil
}

func (d *scriptDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func (d *scriptDispatcher) lastCall(t *testing.T) dispatchCall {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.calls) == 0 {
		t.Fatal("dispatcher was never called")
	}
	return d.calls[len(d.calls)-1]
}

// deliverCall records one delivery.
type deliverCall struct {
	text    string
	app     focus.App
	hasApp  bool
	stateAt session.State
}

// recordDeliverer records deliveries, the coordinator state at delivery time,
// and appends to the shared log.
type recordDeliverer struct {
	mu    sync.Mutex
	err   error
	coord *session.Coordinator
	log   *opLog
	calls []deliverCall
}

func (d *recordDeliverer) Deliver(_ context.Context, text string, app focus.App, hasApp bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, deliverCall{text: text, app: app, hasApp: hasApp, stateAt: d.coord.State()})
	d.log.add("deliver")
	return d.err
}

func (d *recordDeliverer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func (d *recordDeliverer) lastCall(t *testing.T) deliverCall {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.calls) == 0 {
		t.Fatal("deliverer was never called")
	}
	return d.calls[len(d.calls)-1]
}

// rig bundles a coordinator with all its mocks.
type rig struct {
	coord *session.Coordinator
	rec   *capturemock.Recorder
	trans *sttmock.Transcriber
	disp  *scriptDispatcher
	del   *recordDeliverer
	clip  *clipmock.Gateway
	focus *focusmock.Gateway
	log   *opLog
}

func newRig(t *testing.T, mutate func(*session.Config)) *rig {
	t.Helper()
	log := &opLog{}
	r := &rig{
		rec: &capturemock.Recorder{
			Recording: &capture.Recording{Path: "/nonexistent/sotto-test.wav", Duration: time.Second},
			StopOK:    true,
		},
		trans: &sttmock.Transcriber{},
		disp:  &scriptDispatcher{res: session.Result{Text: "out", Delivery: session.DeliveryRouted}},
		del:   &recordDeliverer{log: log},
		clip:  &clipmock.Gateway{},
		focus: &focusmock.Gateway{Active: focus.App{PID: 42, Title: "editor"}, HasActive: true},
		log:   log,
	}
	cfg := session.Config{
		Recorder:    r.rec,
		Transcriber: r.trans,
		Dispatcher:  r.disp,
		Deliverer:   r.del,
		Clipboard:   r.clip,
		Focus:       r.focus,
		Credentials: cred.Static(true),
		Sink:        &logSink{log: log},
		Defaults: session.Defaults{
			Mode:            session.ModeTranscribe,
			FormattingStyle: session.StyleStandard,
			CodeLanguage:    session.CodeAuto,
			OutputRouting:   session.RoutingAutoPaste,
		},
		ErrorClearAfter: 40 * time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	coord, err := session.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.coord = coord
	r.del.coord = coord
	return r
}

// waitState polls until the coordinator reaches want or the deadline passes.
func waitState(t *testing.T, coord *session.Coordinator, want session.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if coord.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %q, still %q", want, coord.State())
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStart_FreshSessionHasEmptyHistory(t *testing.T) {
	t.Parallel()
	r := newRig(t, func(cfg *session.Config) {
		cfg.Defaults.Mode = session.ModeAsk
	})
	r.disp.res = session.Result{Text: "answer", Delivery: session.DeliveryAlwaysChat}
	r.trans.Transcript.Text = "question"
	ctx := context.Background()

	if err := r.coord.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.coord.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitState(t, r.coord, session.StateShowingResult)
	if got := len(r.coord.History()); got != 2 {
		t.Fatalf("history after ask = %d entries, want 2", got)
	}

	// A fresh start must not inherit the old conversation.
	if err := r.coord.Start(ctx); err != nil {
		t.Fatalf("fresh Start: %v", err)
	}
	if got := len(r.coord.History()); got != 0 {
		t.Errorf("history after fresh start = %d entries, want 0", got)
	}
	if r.coord.State() != session.StateRecording {
		t.Errorf("state = %q, want recording", r.coord.State())
	}
}

func TestStart_WhileBusyReturnsErrBusy(t *testing.T) {
	t.Parallel()
	r := newRig(t, nil)
	ctx := context.Background()

	if err := r.coord.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.coord.Start(ctx); !errors.Is(err, session.ErrBusy) {
		t.Errorf("second Start err = %v, want ErrBusy", err)
	}
	if r.rec.StartCalls != 1 {
		t.Errorf("recorder started %d times, want 1", r.rec.StartCalls)
	}
}

func TestStart_NoCredentialEntersError(t *testing.T) {
	t.Parallel()
	r := newRig(t, func(cfg *session.Config) {
		cfg.Credentials = cred.Static(false)
	})

	err := r.coord.Start(context.Background())
	if !errors.Is(err, session.ErrNoCredential) {
		t.Fatalf("Start err = %v, want ErrNoCredential", err)
	}
	if r.coord.State() != session.StateError {
		t.Errorf("state = %q, want error", r.coord.State())
	}
	if code, _ := r.coord.LastError(); code != session.ErrorCodeNoCredential {
		t.Errorf("error code = %q, want no_credential", code)
	}
	if r.rec.StartCalls != 0 {
		t.Errorf("recorder started %d times, want 0", r.rec.StartCalls)
	}

	// The error clears on its own.
	waitState(t, r.coord, session.StateIdle)
}

func TestStart_RecorderFailureEntersError(t *testing.T) {
	t.Parallel()
	r := newRig(t, nil)
	r.rec.StartErr = errors.New("device busy")

	if err := r.coord.Start(context.Background()); err == nil {
		t.Fatal("Start should fail when the recorder cannot open")
	}
	if code, _ := r.coord.LastError(); code != session.ErrorCodeCaptureUnavailable {
		t.Errorf("error code = %q, want capture_unavailable", code)
	}
}

func TestStop_WithoutRecordingIsRejected(t *testing.T) {
	t.Parallel()
	r := newRig(t, nil)
	if err := r.coord.Stop(context.Background()); !errors.Is(err, session.ErrNotRecording) {
		t.Errorf("Stop err = %v, want ErrNotRecording", err)
	}
}

func TestStop_EmptyCaptureEntersError(t *testing.T) {
	t.Parallel()
	r := newRig(t, nil)
	r.rec.StopOK = false
	ctx := context.Background()

	if err := r.coord.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.coord.Stop(ctx); !errors.Is(err, session.ErrEmptyCapture) {
		t.Fatalf("Stop err = %v, want ErrEmptyCapture", err)
	}
	if code, _ := r.coord.LastError(); code != session.ErrorCodeEmptyCapture {
		t.Errorf("error code = %q, want empty_capture", code)
	}
	if r.disp.callCount() != 0 {
		t.Errorf("dispatcher called %d times, want 0", r.disp.callCount())
	}
}

func TestFullSession_AutoPasteDelivery(t *testing.T) {
	t.Parallel()
	r := newRig(t, nil)
	r.trans.Transcript.Text = "hello world"
	r.disp.res = session.Result{Text: "Hello world.", Delivery: session.DeliveryRouted}
	ctx := context.Background()

	if err := r.coord.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.coord.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitFor(t, "delivery", func() bool { return r.del.callCount() == 1 })
	waitState(t, r.coord, session.StateIdle)

	call := r.del.lastCall(t)
	if call.text != "Hello world." {
		t.Errorf("delivered text = %q", call.text)
	}
	if !call.hasApp || call.app.PID != 42 {
		t.Errorf("delivered app = %+v hasApp=%v, want PID 42", call.app, call.hasApp)
	}
	if call.stateAt != session.StateIdle {
		t.Errorf("state at delivery time = %q, want idle", call.stateAt)
	}

	// The surface hides and the state resets before the paste happens.
	hid, idle, del := r.log.index("surface_hidden"), r.log.index("state:idle"), r.log.index("deliver")
	if hid == -1 || idle == -1 || del == -1 {
		t.Fatalf("missing events in log: %v", r.log.snapshot())
	}
	if !(hid < idle && idle < del) {
		t.Errorf("event order = %v, want surface_hidden < state:idle < deliver", r.log.snapshot())
	}

	if got := r.coord.LastResult(); got != "Hello world." {
		t.Errorf("LastResult = %q", got)
	}
	if got := r.coord.LastTranscription(); got != "hello world" {
		t.Errorf("LastTranscription = %q", got)
	}
}

func TestFullSession_AskShowsInChat(t *testing.T) {
	t.Parallel()
	r := newRig(t, func(cfg *session.Config) {
		cfg.Defaults.Mode = session.ModeAsk
	})
	r.trans.Transcript.Text = "what is two plus two"
	r.disp.res = session.Result{Text: "Four.", Delivery: session.DeliveryAlwaysChat}
	ctx := context.Background()

	if err := r.coord.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.coord.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitState(t, r.coord, session.StateShowingResult)

	if r.del.callCount() != 0 {
		t.Errorf("deliverer called %d times for a chat result, want 0", r.del.callCount())
	}
	hist := r.coord.History()
	if len(hist) != 2 {
		t.Fatalf("history = %d entries, want 2", len(hist))
	}
	if hist[0].Role != llm.RoleUser || hist[0].Content != "what is two plus two" {
		t.Errorf("history[0] = %+v", hist[0])
	}
	if hist[1].Role != llm.RoleAssistant || hist[1].Content != "Four." {
		t.Errorf("history[1] = %+v", hist[1])
	}
	if r.log.index("result:Four.") == -1 {
		t.Errorf("missing result event, log: %v", r.log.snapshot())
	}
}

func TestContinue_PreservesHistoryAndAlternation(t *testing.T) {
	t.Parallel()
	r := newRig(t, func(cfg *session.Config) {
		cfg.Defaults.Mode = session.ModeAsk
	})
	r.trans.Transcript.Text = "first question"
	r.disp.res = session.Result{Text: "first answer", Delivery: session.DeliveryAlwaysChat}
	ctx := context.Background()

	if err := r.coord.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.coord.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitState(t, r.coord, session.StateShowingResult)

	r.trans.Transcript.Text = "second question"
	r.disp.res = session.Result{Text: "second answer", Delivery: session.DeliveryAlwaysChat}

	if err := r.coord.Continue(ctx); err != nil {
		t.Fatalf("Continue: %v", err)
	}
	if r.coord.State() != session.StateRecording {
		t.Fatalf("state after Continue = %q, want recording", r.coord.State())
	}
	if got := len(r.coord.History()); got != 2 {
		t.Fatalf("history across continuation = %d entries, want 2", got)
	}
	if err := r.coord.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	waitFor(t, "second result", func() bool { return len(r.coord.History()) == 4 })

	// The dispatcher saw the prior exchange in its frozen history.
	snap := r.disp.lastCall(t).snap
	if len(snap.History) != 2 {
		t.Fatalf("frozen history = %d entries, want 2", len(snap.History))
	}
	hist := r.coord.History()
	wantRoles := []llm.Role{llm.RoleUser, llm.RoleAssistant, llm.RoleUser, llm.RoleAssistant}
	for i, role := range wantRoles {
		if hist[i].Role != role {
			t.Errorf("history[%d].Role = %q, want %q", i, hist[i].Role, role)
		}
	}
}

func TestContinue_KeepsOriginalForegroundApp(t *testing.T) {
	t.Parallel()
	r := newRig(t, func(cfg *session.Config) {
		cfg.Defaults.OutputRouting = session.RoutingShowInChat
	})
	r.trans.Transcript.Text = "first take"
	ctx := context.Background()

	if err := r.coord.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.coord.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitState(t, r.coord, session.StateShowingResult)
	if got := r.focus.CaptureCalls; got != 1 {
		t.Fatalf("CaptureActive calls after fresh start = %d, want 1", got)
	}

	// While the result is shown, sotto's own window holds focus. A
	// continuation must not adopt it as the paste target.
	r.focus.Active = focus.App{PID: 99, Title: "sotto"}

	if err := r.coord.Continue(ctx); err != nil {
		t.Fatalf("Continue: %v", err)
	}
	if err := r.coord.SetOutputRouting(session.RoutingAutoPaste); err != nil {
		t.Fatalf("SetOutputRouting: %v", err)
	}
	if err := r.coord.Stop(ctx); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	waitFor(t, "delivery", func() bool { return r.del.callCount() == 1 })

	if got := r.focus.CaptureCalls; got != 1 {
		t.Errorf("CaptureActive calls across continuation = %d, want 1", got)
	}
	call := r.del.lastCall(t)
	if !call.hasApp || call.app.PID != 42 {
		t.Errorf("delivered to app %+v (hasApp=%v), want the original PID 42", call.app, call.hasApp)
	}
}

func TestCancel_WhileRecordingRestoresFocusAndClearsHistory(t *testing.T) {
	t.Parallel()
	r := newRig(t, nil)
	ctx := context.Background()

	if err := r.coord.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.coord.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if r.coord.State() != session.StateIdle {
		t.Errorf("state = %q, want idle", r.coord.State())
	}
	if r.rec.StopCalls != 1 {
		t.Errorf("recorder stopped %d times, want 1", r.rec.StopCalls)
	}
	if len(r.focus.Activated) != 1 || r.focus.Activated[0].PID != 42 {
		t.Errorf("focus not restored, activations: %+v", r.focus.Activated)
	}
	if got := len(r.coord.History()); got != 0 {
		t.Errorf("history after cancel = %d entries, want 0", got)
	}
	if r.disp.callCount() != 0 {
		t.Errorf("dispatcher called after cancel")
	}
}

func TestCancel_DuringTranscriptionDiscardsResult(t *testing.T) {
	t.Parallel()
	r := newRig(t, nil)
	block := make(chan struct{})
	r.trans.Block = block
	ctx := context.Background()

	if err := r.coord.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.coord.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitState(t, r.coord, session.StateTranscribing)

	if err := r.coord.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if r.coord.State() != session.StateIdle {
		t.Fatalf("state = %q, want idle", r.coord.State())
	}
	close(block)

	// The abandoned pipeline must not call the dispatcher or change state.
	time.Sleep(30 * time.Millisecond)
	if r.disp.callCount() != 0 {
		t.Errorf("dispatcher called %d times after cancel, want 0", r.disp.callCount())
	}
	if r.coord.State() != session.StateIdle {
		t.Errorf("state drifted to %q after cancel", r.coord.State())
	}
}

func TestCancel_WhenIdleIsRejected(t *testing.T) {
	t.Parallel()
	r := newRig(t, nil)
	if err := r.coord.Cancel(); !errors.Is(err, session.ErrNotRecording) {
		t.Errorf("Cancel err = %v, want ErrNotRecording", err)
	}
}

func TestDismiss_ClearsHistoryAndOptionallyCopies(t *testing.T) {
	t.Parallel()
	r := newRig(t, func(cfg *session.Config) {
		cfg.Defaults.Mode = session.ModeAsk
	})
	r.trans.Transcript.Text = "q"
	r.disp.res = session.Result{Text: "a", Delivery: session.DeliveryAlwaysChat}
	ctx := context.Background()

	if err := r.coord.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.coord.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitState(t, r.coord, session.StateShowingResult)

	if err := r.coord.Dismiss(true); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if r.coord.State() != session.StateIdle {
		t.Errorf("state = %q, want idle", r.coord.State())
	}
	if got := len(r.coord.History()); got != 0 {
		t.Errorf("history after dismiss = %d entries, want 0", got)
	}
	if got := r.clip.LastWritten(); got != "a" {
		t.Errorf("clipboard after dismiss-with-copy = %q, want %q", got, "a")
	}
}

func TestLiveSetters_OnlyWhileRecording(t *testing.T) {
	t.Parallel()
	r := newRig(t, nil)
	if err := r.coord.SetMode(session.ModeAsk); !errors.Is(err, session.ErrNotRecording) {
		t.Errorf("SetMode while idle err = %v, want ErrNotRecording", err)
	}
	if err := r.coord.SetFormattingStyle(session.StyleCondensed); !errors.Is(err, session.ErrNotRecording) {
		t.Errorf("SetFormattingStyle while idle err = %v, want ErrNotRecording", err)
	}
	if err := r.coord.SetMode("nonsense"); err == nil {
		t.Error("SetMode should reject unknown modes")
	}
}

func TestSetMode_EnteringClipboardModeTakesSnapshot(t *testing.T) {
	t.Parallel()
	r := newRig(t, nil)
	ctx := context.Background()

	if err := r.coord.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if r.clip.SnapshotCalls != 0 {
		t.Fatalf("snapshot taken for transcribe mode: %d calls", r.clip.SnapshotCalls)
	}
	if err := r.coord.SetMode(session.ModeProcess); err != nil {
		t.Fatalf("SetMode: %v", err)
	}
	if r.clip.SnapshotCalls != 1 {
		t.Errorf("snapshot calls = %d, want 1", r.clip.SnapshotCalls)
	}
	// Re-entering refreshes.
	if err := r.coord.SetMode(session.ModeTranscribe); err != nil {
		t.Fatalf("SetMode back: %v", err)
	}
	if err := r.coord.SetMode(session.ModeProcess); err != nil {
		t.Fatalf("SetMode again: %v", err)
	}
	if r.clip.SnapshotCalls != 2 {
		t.Errorf("snapshot calls after re-entry = %d, want 2", r.clip.SnapshotCalls)
	}
}

func TestStop_FreezesLiveSettings(t *testing.T) {
	t.Parallel()
	r := newRig(t, nil)
	r.trans.Transcript.Text = "note to self"
	ctx := context.Background()

	if err := r.coord.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.coord.SetFormattingStyle(session.StyleCondensed); err != nil {
		t.Fatalf("SetFormattingStyle: %v", err)
	}
	if err := r.coord.SetLanguage("de"); err != nil {
		t.Fatalf("SetLanguage: %v", err)
	}
	if err := r.coord.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitState(t, r.coord, session.StateIdle)

	snap := r.disp.lastCall(t).snap
	if snap.FormattingStyle != session.StyleCondensed {
		t.Errorf("frozen style = %q, want condensed", snap.FormattingStyle)
	}
	calls := r.trans.Calls()
	if len(calls) != 1 || calls[0].Language != "de" {
		t.Errorf("transcriber language = %+v, want one call with \"de\"", calls)
	}
}

func TestEmptyTranscription_StillDispatched(t *testing.T) {
	t.Parallel()
	r := newRig(t, nil)
	r.trans.Transcript.Text = ""
	ctx := context.Background()

	if err := r.coord.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.coord.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitState(t, r.coord, session.StateIdle)
	if r.disp.callCount() != 1 {
		t.Fatalf("dispatcher called %d times, want 1", r.disp.callCount())
	}
	if got := r.disp.lastCall(t).text; got != "" {
		t.Errorf("dispatched text = %q, want empty", got)
	}
}

func TestPipelineFailure_EntersErrorThenAutoClears(t *testing.T) {
	t.Parallel()
	r := newRig(t, nil)
	r.disp.err = errors.New("upstream 500")
	ctx := context.Background()

	if err := r.coord.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.coord.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitState(t, r.coord, session.StateError)
	if code, _ := r.coord.LastError(); code != session.ErrorCodeServiceFailure {
		t.Errorf("error code = %q, want service_failure", code)
	}
	waitState(t, r.coord, session.StateIdle)
	if code, detail := r.coord.LastError(); code != "" || detail != "" {
		t.Errorf("error not cleared: %q %q", code, detail)
	}
}

func TestEmptyClipboardFailure_UsesDedicatedCode(t *testing.T) {
	t.Parallel()
	r := newRig(t, func(cfg *session.Config) {
		cfg.Defaults.Mode = session.ModeProcess
	})
	r.disp.err = session.ErrEmptyClipboard
	ctx := context.Background()

	if err := r.coord.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.coord.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitState(t, r.coord, session.StateError)
	if code, _ := r.coord.LastError(); code != session.ErrorCodeEmptyClipboard {
		t.Errorf("error code = %q, want empty_clipboard", code)
	}
}

func TestDeliveryFailure_DoesNotEnterErrorState(t *testing.T) {
	t.Parallel()
	r := newRig(t, nil)
	r.del.err = errors.New("paste blocked")
	r.trans.Transcript.Text = "x"
	ctx := context.Background()

	if err := r.coord.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.coord.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitFor(t, "delivery error event", func() bool { return r.log.index("error:delivery") != -1 })
	if r.coord.State() != session.StateIdle {
		t.Errorf("state after failed delivery = %q, want idle", r.coord.State())
	}
}

func TestToggle_WalksTheStateMachine(t *testing.T) {
	t.Parallel()
	r := newRig(t, func(cfg *session.Config) {
		cfg.Defaults.Mode = session.ModeAsk
	})
	r.trans.Transcript.Text = "q"
	r.disp.res = session.Result{Text: "a", Delivery: session.DeliveryAlwaysChat}
	ctx := context.Background()

	if err := r.coord.Toggle(ctx); err != nil {
		t.Fatalf("first Toggle: %v", err)
	}
	if r.coord.State() != session.StateRecording {
		t.Fatalf("state = %q, want recording", r.coord.State())
	}
	if err := r.coord.Toggle(ctx); err != nil {
		t.Fatalf("second Toggle: %v", err)
	}
	waitState(t, r.coord, session.StateShowingResult)

	// Toggling on a shown result continues the conversation.
	if err := r.coord.Toggle(ctx); err != nil {
		t.Fatalf("third Toggle: %v", err)
	}
	if r.coord.State() != session.StateRecording {
		t.Errorf("state = %q, want recording", r.coord.State())
	}
	if got := len(r.coord.History()); got != 2 {
		t.Errorf("history across toggle-continue = %d entries, want 2", got)
	}
}

func TestCopyLastResult(t *testing.T) {
	t.Parallel()
	r := newRig(t, nil)
	if err := r.coord.CopyLastResult(); !errors.Is(err, session.ErrNoResult) {
		t.Errorf("CopyLastResult with nothing err = %v, want ErrNoResult", err)
	}

	r.trans.Transcript.Text = "x"
	r.disp.res = session.Result{Text: "final text", Delivery: session.DeliveryRouted}
	ctx := context.Background()
	if err := r.coord.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.coord.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitState(t, r.coord, session.StateIdle)
	if err := r.coord.CopyLastResult(); err != nil {
		t.Fatalf("CopyLastResult: %v", err)
	}
	if got := r.clip.LastWritten(); got != "final text" {
		t.Errorf("clipboard = %q, want %q", got, "final text")
	}
}

func TestShowInChatRouting_KeepsResultOutOfTargetApp(t *testing.T) {
	t.Parallel()
	r := newRig(t, func(cfg *session.Config) {
		cfg.Defaults.OutputRouting = session.RoutingShowInChat
	})
	r.trans.Transcript.Text = "dictated text"
	r.disp.res = session.Result{Text: "cleaned text", Delivery: session.DeliveryRouted}
	ctx := context.Background()

	if err := r.coord.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.coord.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitState(t, r.coord, session.StateShowingResult)
	if r.del.callCount() != 0 {
		t.Errorf("deliverer called %d times with show_in_chat routing, want 0", r.del.callCount())
	}
	if !strings.Contains(strings.Join(r.log.snapshot(), ","), "result:cleaned text") {
		t.Errorf("result event missing, log: %v", r.log.snapshot())
	}
}
