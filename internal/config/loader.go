package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/sottovoce/sotto/internal/session"
	"github.com/sottovoce/sotto/pkg/hotkey"
	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known backend names per pipeline stage.
// Used by [Validate] to warn about unrecognised names.
var ValidProviderNames = map[string][]string{
	"transcription": {"openai", "whisper-native"},
	"completion":    {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and validates
// the result. Useful in tests where configs are constructed from string
// literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills in the zero-value fields callers almost never want to
// set explicitly.
func ApplyDefaults(cfg *Config) {
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = LogInfo
	}
	if cfg.Recording.SampleRate == 0 {
		cfg.Recording.SampleRate = 16000
	}
	if cfg.Session.DefaultMode == "" {
		cfg.Session.DefaultMode = session.ModeTranscribe
	}
	if cfg.Session.FormattingStyle == "" {
		cfg.Session.FormattingStyle = session.StyleStandard
	}
	if cfg.Session.CodeLanguage == "" {
		cfg.Session.CodeLanguage = session.CodeAuto
	}
	if cfg.Session.OutputRouting == "" {
		cfg.Session.OutputRouting = session.RoutingAutoPaste
	}
	if len(cfg.Hotkeys) == 0 {
		cfg.Hotkeys = []HotkeyConfig{
			{Keys: []string{"ctrl", "shift", "space"}, Action: hotkey.ActionToggle},
			{Keys: []string{"ctrl", "shift", "x"}, Action: hotkey.ActionCancel},
		}
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.App.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("app.log_level %q is invalid; valid values: debug, info, warn, error", cfg.App.LogLevel))
	}

	if cfg.Recording.SampleRate < 8000 || cfg.Recording.SampleRate > 48000 {
		errs = append(errs, fmt.Errorf("recording.sample_rate %d is out of range [8000, 48000]", cfg.Recording.SampleRate))
	}

	validateProviderName("transcription", cfg.Transcription.Name)
	validateProviderName("completion", cfg.Completion.Name)

	if cfg.Transcription.Name == "" {
		errs = append(errs, errors.New("transcription.name is required"))
	}
	if cfg.Transcription.Name == "whisper-native" && cfg.Transcription.ModelPath == "" {
		errs = append(errs, errors.New("transcription.model_path is required for the whisper-native backend"))
	}
	if cfg.Completion.Name == "" {
		errs = append(errs, errors.New("completion.name is required"))
	}

	if !cfg.Session.DefaultMode.IsValid() {
		errs = append(errs, fmt.Errorf("session.default_mode %q is invalid; valid values: transcribe, ask, respond, code, process", cfg.Session.DefaultMode))
	}
	if !cfg.Session.FormattingStyle.IsValid() {
		errs = append(errs, fmt.Errorf("session.formatting_style %q is invalid; valid values: standard, structured, condensed", cfg.Session.FormattingStyle))
	}
	if !cfg.Session.CodeLanguage.IsValid() {
		errs = append(errs, fmt.Errorf("session.code_language %q is invalid; valid values: auto, python, bash", cfg.Session.CodeLanguage))
	}
	if !cfg.Session.OutputRouting.IsValid() {
		errs = append(errs, fmt.Errorf("session.output_routing %q is invalid; valid values: auto_paste, show_in_chat", cfg.Session.OutputRouting))
	}
	if cfg.Session.SettleDelayMs < 0 {
		errs = append(errs, fmt.Errorf("session.settle_delay_ms %d must not be negative", cfg.Session.SettleDelayMs))
	}
	if cfg.Session.ErrorClearMs < 0 {
		errs = append(errs, fmt.Errorf("session.error_clear_ms %d must not be negative", cfg.Session.ErrorClearMs))
	}

	toggleSeen := false
	for i, hk := range cfg.Hotkeys {
		prefix := fmt.Sprintf("hotkeys[%d]", i)
		if len(hk.Keys) == 0 {
			errs = append(errs, fmt.Errorf("%s.keys is required", prefix))
		}
		if !hk.Action.IsValid() {
			errs = append(errs, fmt.Errorf("%s.action %q is invalid; valid values: toggle, cancel, dismiss, mode, routing", prefix, hk.Action))
			continue
		}
		if hk.Action == hotkey.ActionToggle {
			toggleSeen = true
		}
		if hk.Action == hotkey.ActionMode && !session.Mode(hk.Arg).IsValid() {
			errs = append(errs, fmt.Errorf("%s.arg %q is not a mode; valid values: transcribe, ask, respond, code, process", prefix, hk.Arg))
		}
	}
	if !toggleSeen {
		errs = append(errs, errors.New("hotkeys must include a toggle binding"))
	}

	for i, word := range cfg.Vocabulary {
		if word == "" {
			errs = append(errs, fmt.Errorf("vocabulary[%d] is empty", i))
		}
	}

	return errors.Join(errs...)
}

// Bindings converts the hotkey config into listener bindings.
func (c *Config) Bindings() []hotkey.Binding {
	bindings := make([]hotkey.Binding, 0, len(c.Hotkeys))
	for _, hk := range c.Hotkeys {
		bindings = append(bindings, hotkey.Binding{Keys: hk.Keys, Action: hk.Action, Arg: hk.Arg})
	}
	return bindings
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown backend name — may be a typo or third-party backend",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
