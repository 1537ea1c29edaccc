// Package config provides the configuration schema and loader for sotto.
package config

import (
	"github.com/sottovoce/sotto/internal/session"
	"github.com/sottovoce/sotto/pkg/hotkey"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for sotto.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	App           AppConfig       `yaml:"app"`
	Hotkeys       []HotkeyConfig  `yaml:"hotkeys"`
	Recording     RecordingConfig `yaml:"recording"`
	Transcription ProviderEntry   `yaml:"transcription"`
	Completion    ProviderEntry   `yaml:"completion"`
	Session       SessionConfig   `yaml:"session"`
	Vocabulary    []string        `yaml:"vocabulary"`
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	// LogLevel controls verbosity. Defaults to "info".
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address the Prometheus metrics endpoint listens
	// on (e.g., "127.0.0.1:9090"). Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`

	// Notifications enables desktop notifications for errors.
	Notifications bool `yaml:"notifications"`
}

// HotkeyConfig binds a global key chord to a session action.
type HotkeyConfig struct {
	// Keys is the chord as understood by the hook backend
	// (e.g., ["ctrl", "shift", "space"]).
	Keys []string `yaml:"keys"`

	// Action is the session action the chord triggers.
	Action hotkey.Action `yaml:"action"`

	// Arg carries the action's argument where one applies, e.g. the mode
	// name for a mode action.
	Arg string `yaml:"arg"`
}

// RecordingConfig holds audio capture settings.
type RecordingConfig struct {
	// SampleRate is the capture rate in Hz. Defaults to 16000, the rate
	// expected by Whisper-family models.
	SampleRate int `yaml:"sample_rate"`

	// TempDir overrides the directory for temporary WAV files. Empty uses
	// the OS default.
	TempDir string `yaml:"temp_dir"`
}

// ProviderEntry is the common configuration block shared by the transcription
// and completion backends. The Name field selects the implementation.
type ProviderEntry struct {
	// Name selects the backend implementation
	// (e.g., "openai", "whisper-native", "anthropic", "ollama").
	Name string `yaml:"name"`

	// APIKeyEnv names the environment variable holding the backend's API
	// key. Keys never live in the config file itself.
	APIKeyEnv string `yaml:"api_key_env"`

	// BaseURL overrides the backend's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the backend
	// (e.g., "whisper-1", "gpt-4o-mini").
	Model string `yaml:"model"`

	// VisionModel overrides the model used for image-bearing requests.
	// Empty falls back to Model.
	VisionModel string `yaml:"vision_model"`

	// ModelPath is the local model file for the "whisper-native" backend.
	// Ignored by remote backends.
	ModelPath string `yaml:"model_path"`
}

// SessionConfig seeds the defaults of every fresh session.
type SessionConfig struct {
	// DefaultMode is the pipeline a fresh session starts in.
	DefaultMode session.Mode `yaml:"default_mode"`

	// Language is the ISO 639-1 transcription hint; "auto" or empty defers
	// to the service's own detection.
	Language string `yaml:"language"`

	// FormattingStyle is the Transcribe-mode cleanup style.
	FormattingStyle session.FormattingStyle `yaml:"formatting_style"`

	// CodeLanguage is the Code-mode language hint.
	CodeLanguage session.CodeLanguage `yaml:"code_language"`

	// OutputRouting selects where routed results go.
	OutputRouting session.OutputRouting `yaml:"output_routing"`

	// PostProcess enables the Transcribe cleanup pass.
	PostProcess bool `yaml:"post_process"`

	// UseClipboardContext feeds the clipboard snapshot into Respond mode.
	UseClipboardContext bool `yaml:"use_clipboard_context"`

	// WebSearch lets Ask-mode completions ground answers with a web search.
	WebSearch bool `yaml:"web_search"`

	// CopyOnDismiss writes the shown result to the clipboard when dismissed.
	CopyOnDismiss bool `yaml:"copy_on_dismiss"`

	// SettleDelayMs is the pause between reactivating the target application
	// and pasting, in milliseconds. Zero uses the built-in default.
	SettleDelayMs int `yaml:"settle_delay_ms"`

	// ErrorClearMs is how long errors stay visible before the session resets,
	// in milliseconds. Zero uses the built-in default of 3000.
	ErrorClearMs int `yaml:"error_clear_ms"`

	// ImageClipboard enables the image-capable clipboard gateway so Respond
	// and Process can see screenshots. Requires a display connection.
	ImageClipboard bool `yaml:"image_clipboard"`
}

// Defaults converts the session block into coordinator defaults.
func (s SessionConfig) Defaults() session.Defaults {
	lang := s.Language
	if lang == "auto" {
		lang = ""
	}
	return session.Defaults{
		Mode:                s.DefaultMode,
		Language:            lang,
		FormattingStyle:     s.FormattingStyle,
		CodeLanguage:        s.CodeLanguage,
		OutputRouting:       s.OutputRouting,
		UseClipboardContext: s.UseClipboardContext,
		PostProcess:         s.PostProcess,
		WebSearch:           s.WebSearch,
	}
}
