// Command sotto is the hotkey-driven voice assistant daemon: press the
// chord, speak, press again, and the result lands in the application you
// were using.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/sottovoce/sotto/internal/config"
	"github.com/sottovoce/sotto/internal/cred"
	"github.com/sottovoce/sotto/internal/delivery"
	"github.com/sottovoce/sotto/internal/notify"
	"github.com/sottovoce/sotto/internal/observe"
	"github.com/sottovoce/sotto/internal/pipeline"
	"github.com/sottovoce/sotto/internal/session"
	"github.com/sottovoce/sotto/internal/vocab"
	"github.com/sottovoce/sotto/pkg/capture/portaudio"
	"github.com/sottovoce/sotto/pkg/clipboard"
	atottoclip "github.com/sottovoce/sotto/pkg/clipboard/atotto"
	"github.com/sottovoce/sotto/pkg/clipboard/designx"
	focusrobotgo "github.com/sottovoce/sotto/pkg/focus/robotgo"
	"github.com/sottovoce/sotto/pkg/hotkey"
	"github.com/sottovoce/sotto/pkg/hotkey/gohook"
	"github.com/sottovoce/sotto/pkg/provider/llm"
	"github.com/sottovoce/sotto/pkg/provider/llm/anyllm"
	llmopenai "github.com/sottovoce/sotto/pkg/provider/llm/openai"
	"github.com/sottovoce/sotto/pkg/provider/stt"
	sttopenai "github.com/sottovoce/sotto/pkg/provider/stt/openai"
	sttwhisper "github.com/sottovoce/sotto/pkg/provider/stt/whisper"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "sotto.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "sotto: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "sotto: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.App.LogLevel)
	slog.SetDefault(logger)

	slog.Info("sotto starting",
		"config", *configPath,
		"transcription", cfg.Transcription.Name,
		"completion", cfg.Completion.Name,
		"default_mode", cfg.Session.DefaultMode,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────────
	var metrics *observe.Metrics
	var metricsShutdown func(context.Context) error
	if cfg.App.MetricsAddr != "" {
		mp, shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "sotto"})
		if err != nil {
			slog.Error("failed to initialise metrics", "err", err)
			return 1
		}
		metricsShutdown = shutdown
		metrics, err = observe.NewMetrics(mp)
		if err != nil {
			slog.Error("failed to create metrics", "err", err)
			return 1
		}
	}

	// ── Providers ─────────────────────────────────────────────────────────────
	transcriber, err := buildTranscriber(cfg.Transcription)
	if err != nil {
		slog.Error("failed to create transcription backend", "name", cfg.Transcription.Name, "err", err)
		return 1
	}
	completer, err := buildCompleter(cfg.Completion)
	if err != nil {
		slog.Error("failed to create completion backend", "name", cfg.Completion.Name, "err", err)
		return 1
	}

	// ── Gateways ──────────────────────────────────────────────────────────────
	var clip clipboard.Gateway
	if cfg.Session.ImageClipboard {
		g, err := designx.New()
		if err != nil {
			slog.Warn("image clipboard unavailable, falling back to text-only", "err", err)
			clip = atottoclip.New()
		} else {
			clip = g
		}
	} else {
		clip = atottoclip.New()
	}

	focusGW, err := focusrobotgo.New()
	if err != nil {
		slog.Error("failed to initialise focus gateway", "err", err)
		return 1
	}

	recorder, err := portaudio.New(
		portaudio.WithSampleRate(cfg.Recording.SampleRate),
		portaudio.WithTempDir(cfg.Recording.TempDir),
	)
	if err != nil {
		slog.Error("failed to initialise audio capture", "err", err)
		return 1
	}
	defer recorder.Close()

	// ── Coordinator ───────────────────────────────────────────────────────────
	var corrector session.Corrector
	if c := vocab.New(cfg.Vocabulary); c.Enabled() {
		corrector = c
		slog.Info("vocabulary corrector enabled", "words", len(cfg.Vocabulary))
	}

	var deliverOpts []delivery.Option
	if cfg.Session.SettleDelayMs > 0 {
		deliverOpts = append(deliverOpts, delivery.WithSettleDelay(time.Duration(cfg.Session.SettleDelayMs)*time.Millisecond))
	}

	var notifier *notify.Notifier
	if cfg.App.Notifications {
		notifier = notify.New("sotto")
	}

	coord, err := session.New(session.Config{
		Recorder:        recorder,
		Transcriber:     transcriber,
		Dispatcher:      pipeline.New(completer),
		Deliverer:       delivery.New(focusGW, clip, deliverOpts...),
		Clipboard:       clip,
		Focus:           focusGW,
		Credentials:     credentialStore(cfg),
		Sink:            &consoleSink{out: os.Stdout, notifier: notifier},
		Corrector:       corrector,
		Metrics:         metrics,
		Defaults:        cfg.Session.Defaults(),
		ErrorClearAfter: time.Duration(cfg.Session.ErrorClearMs) * time.Millisecond,
	})
	if err != nil {
		slog.Error("failed to create session coordinator", "err", err)
		return 1
	}

	// ── Hotkeys ───────────────────────────────────────────────────────────────
	listener, err := gohook.New(cfg.Bindings())
	if err != nil {
		slog.Error("failed to create hotkey listener", "err", err)
		return 1
	}
	events, err := listener.Start(ctx)
	if err != nil {
		slog.Error("failed to install hotkey hook", "err", err)
		return 1
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.App.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.App.MetricsAddr, Handler: observe.Handler()}
		g.Go(func() error {
			slog.Info("metrics endpoint listening", "addr", cfg.App.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		eventLoop(gctx, coord, events, cfg.Session.CopyOnDismiss)
		return nil
	})

	slog.Info("ready — press the toggle chord to start recording")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	if metricsShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsShutdown(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}
	slog.Info("goodbye")
	return 0
}

// eventLoop translates hotkey events into coordinator operations. Rejected
// operations (wrong state) are logged at debug level and otherwise ignored:
// hammering the chord must never wedge the machine.
func eventLoop(ctx context.Context, coord *session.Coordinator, events <-chan hotkey.Event, copyOnDismiss bool) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			var err error
			switch ev.Action {
			case hotkey.ActionToggle:
				err = coord.Toggle(ctx)
			case hotkey.ActionCancel:
				err = coord.Cancel()
			case hotkey.ActionDismiss:
				err = coord.Dismiss(copyOnDismiss)
			case hotkey.ActionMode:
				err = coord.SetMode(session.Mode(ev.Arg))
			case hotkey.ActionRouting:
				err = toggleRouting(coord)
			default:
				slog.Warn("unknown hotkey action", "action", ev.Action)
				continue
			}
			if err != nil {
				slog.Debug("hotkey action rejected", "action", ev.Action, "err", err)
			}
		}
	}
}

// toggleRouting flips the live routing between paste and chat.
func toggleRouting(coord *session.Coordinator) error {
	next := session.RoutingShowInChat
	if coord.OutputRouting() == session.RoutingShowInChat {
		next = session.RoutingAutoPaste
	}
	return coord.SetOutputRouting(next)
}

// buildTranscriber instantiates the configured transcription backend.
func buildTranscriber(entry config.ProviderEntry) (stt.Transcriber, error) {
	switch entry.Name {
	case "openai":
		var opts []sttopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, sttopenai.WithBaseURL(entry.BaseURL))
		}
		return sttopenai.New(apiKey(entry), entry.Model, opts...)
	case "whisper-native":
		return sttwhisper.New(entry.ModelPath)
	default:
		return nil, fmt.Errorf("unsupported transcription backend %q", entry.Name)
	}
}

// buildCompleter instantiates the configured completion backend. The "openai"
// name uses the native client for vision and web search support; every other
// name goes through the any-llm-go multi-provider adapter.
func buildCompleter(entry config.ProviderEntry) (llm.Completer, error) {
	if entry.Name == "openai" {
		var opts []llmopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, llmopenai.WithBaseURL(entry.BaseURL))
		}
		if entry.VisionModel != "" {
			opts = append(opts, llmopenai.WithVisionModel(entry.VisionModel))
		}
		return llmopenai.New(apiKey(entry), entry.Model, opts...)
	}

	var opts []anyllmlib.Option
	if key := apiKey(entry); key != "" {
		opts = append(opts, anyllmlib.WithAPIKey(key))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	return anyllm.New(entry.Name, entry.Model, opts...)
}

// credentialStore builds the start guard: local backends need no key, remote
// ones must find theirs in the environment.
func credentialStore(cfg *config.Config) cred.Store {
	var vars []string
	for _, entry := range []config.ProviderEntry{cfg.Transcription, cfg.Completion} {
		if localBackend(entry.Name) {
			continue
		}
		if entry.APIKeyEnv != "" {
			vars = append(vars, entry.APIKeyEnv)
		} else {
			vars = append(vars, defaultKeyEnv(entry.Name))
		}
	}
	if len(vars) == 0 {
		return cred.Static(true)
	}
	return &cred.EnvStore{Vars: vars}
}

// localBackend reports whether name runs without an API key.
func localBackend(name string) bool {
	switch name {
	case "whisper-native", "ollama", "llamacpp", "llamafile":
		return true
	}
	return false
}

// defaultKeyEnv maps a backend name to its conventional key variable.
func defaultKeyEnv(name string) string {
	switch name {
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	case "deepseek":
		return "DEEPSEEK_API_KEY"
	case "mistral":
		return "MISTRAL_API_KEY"
	case "groq":
		return "GROQ_API_KEY"
	default:
		return "SOTTO_API_KEY"
	}
}

// apiKey resolves the entry's key from the environment.
func apiKey(entry config.ProviderEntry) string {
	env := entry.APIKeyEnv
	if env == "" {
		env = defaultKeyEnv(entry.Name)
	}
	return os.Getenv(env)
}

// consoleSink renders session events on the terminal and raises desktop
// notifications for errors. This is the minimal presentation surface; a
// richer overlay would implement the same interface.
type consoleSink struct {
	out      *os.File
	notifier *notify.Notifier
}

var _ session.EventSink = (*consoleSink)(nil)

func (s *consoleSink) StateChanged(state session.State, mode session.Mode) {
	slog.Debug("session state", "state", state, "mode", mode)
	switch state {
	case session.StateRecording:
		fmt.Fprintf(s.out, "● recording (%s)\n", mode)
	case session.StateTranscribing:
		fmt.Fprintln(s.out, "… transcribing")
	case session.StateProcessing:
		fmt.Fprintln(s.out, "… processing")
	}
}

func (s *consoleSink) AudioLevel(float64) {}

func (s *consoleSink) TranscriptReady(text string) {
	slog.Debug("transcript ready", "chars", len(text))
}

func (s *consoleSink) ResultReady(mode session.Mode, text string, history []llm.Message) {
	fmt.Fprintf(s.out, "\n%s\n\n", text)
}

func (s *consoleSink) SessionError(code session.ErrorCode, detail string) {
	fmt.Fprintf(s.out, "✗ %s: %s\n", code, detail)
	if s.notifier != nil {
		s.notifier.Error(detail)
	}
}

func (s *consoleSink) SurfaceHidden() {}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
