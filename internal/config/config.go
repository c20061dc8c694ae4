// ABOUTME: Configuration model for the relay: shell, relay tuning, assistant and hook definitions
// ABOUTME: TOML by default, YAML for .yaml/.yml files; missing fields keep their defaults

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/mauromedda/chatshell-go/pkg/tui/key"
)

// Popup output policies.
const (
	PopupOutputBuffer      = "buffer"
	PopupOutputPassthrough = "passthrough"
)

// Notice display modes.
const (
	NoticesPopup  = "popup"
	NoticesInline = "inline"
)

// Config is the whole configuration file.
type Config struct {
	Shell     ShellConfig     `toml:"shell" yaml:"shell"`
	Relay     RelayConfig     `toml:"relay" yaml:"relay"`
	Assistant AssistantConfig `toml:"assistant" yaml:"assistant"`
	Hooks     []HookConfig    `toml:"hooks" yaml:"hooks"`
}

// ShellConfig describes the child shell.
type ShellConfig struct {
	Command string            `toml:"command" yaml:"command"`
	Args    []string          `toml:"args" yaml:"args"`
	Env     map[string]string `toml:"env,omitempty" yaml:"env,omitempty"`
}

// RelayConfig tunes the event loop.
type RelayConfig struct {
	PollInterval      Duration `toml:"poll_interval" yaml:"poll_interval"`
	EscapeTimeout     Duration `toml:"escape_timeout" yaml:"escape_timeout"`
	TerminateGrace    Duration `toml:"terminate_grace" yaml:"terminate_grace"`
	EnhancedKeyboard  bool     `toml:"enhanced_keyboard" yaml:"enhanced_keyboard"`
	PopupOutput       string   `toml:"popup_output" yaml:"popup_output"`
	MaxBufferedOutput int      `toml:"max_buffered_output" yaml:"max_buffered_output"`
	Notices           string   `toml:"notices" yaml:"notices"`
	WatchConfig       bool     `toml:"watch_config" yaml:"watch_config"`
}

// AssistantConfig configures the OpenAI-compatible assistant.
type AssistantConfig struct {
	APIKey       string   `toml:"api_key" yaml:"api_key"`
	Model        string   `toml:"model" yaml:"model"`
	APIBase      string   `toml:"api_base" yaml:"api_base"`
	MaxTokens    int      `toml:"max_tokens" yaml:"max_tokens"`
	Temperature  float64  `toml:"temperature" yaml:"temperature"`
	Timeout      Duration `toml:"timeout" yaml:"timeout"`
	AutoExecute  bool     `toml:"auto_execute" yaml:"auto_execute"`
	SystemPrompt string   `toml:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
}

// HookConfig is one [[hooks]] entry.
type HookConfig struct {
	Name           string   `toml:"name" yaml:"name"`
	KeyCombination string   `toml:"key_combination" yaml:"key_combination"`
	Action         string   `toml:"action" yaml:"action"`
	Description    string   `toml:"description,omitempty" yaml:"description,omitempty"`
	Enabled        *bool    `toml:"enabled,omitempty" yaml:"enabled,omitempty"`
	Timeout        Duration `toml:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// IsEnabled reports the enabled flag; an omitted flag means enabled.
func (h HookConfig) IsEnabled() bool {
	return h.Enabled == nil || *h.Enabled
}

// Duration is a time.Duration that reads and writes as "50ms", "10s".
type Duration struct {
	time.Duration
}

// D wraps a time.Duration.
func D(d time.Duration) Duration { return Duration{d} }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// IsZero lets the encoders omit unset durations.
func (d Duration) IsZero() bool { return d.Duration == 0 }

func enabled(b bool) *bool { return &b }

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Shell: ShellConfig{
			Command: "/bin/bash",
			Args:    []string{"-i"},
		},
		Relay: RelayConfig{
			PollInterval:      D(50 * time.Millisecond),
			EscapeTimeout:     D(25 * time.Millisecond),
			TerminateGrace:    D(500 * time.Millisecond),
			EnhancedKeyboard:  true,
			PopupOutput:       PopupOutputBuffer,
			MaxBufferedOutput: 1 << 20,
			Notices:           NoticesPopup,
		},
		Assistant: AssistantConfig{
			APIKey:      "${OPENAI_API_KEY}",
			Model:       "gpt-4o-mini",
			APIBase:     "https://api.openai.com/v1",
			MaxTokens:   1000,
			Temperature: 0.7,
			Timeout:     D(60 * time.Second),
		},
		Hooks: DefaultHooks(),
	}
}

// DefaultHooks returns the hook set written by --init.
func DefaultHooks() []HookConfig {
	return []HookConfig{
		{Name: "help", KeyCombination: "ctrl+;", Action: "fn:show_help", Description: "Show help information", Enabled: enabled(true)},
		{Name: "time", KeyCombination: "ctrl+t", Action: "fn:show_time", Description: "Show current time", Enabled: enabled(false)},
		{Name: "clear", KeyCombination: "ctrl+l", Action: "builtin:clear_screen", Description: "Clear the screen", Enabled: enabled(false)},
		{Name: "config_info", KeyCombination: "ctrl+shift+c", Action: "builtin:show_config", Description: "Show hook configuration", Enabled: enabled(true)},
		{Name: "palette", KeyCombination: "ctrl+alt+p", Action: "builtin:hook_palette", Description: "Search and run a hook", Enabled: enabled(true)},
		{Name: "assistant", KeyCombination: "ctrl+g", Action: "assistant:prompt", Description: "Ask the assistant for a command", Enabled: enabled(true)},
		{Name: "assistant_reset", KeyCombination: "ctrl+alt+g", Action: "assistant:reset", Description: "Forget the assistant conversation", Enabled: enabled(false)},
	}
}

// Load reads path on top of Default(). A file without hooks keeps the
// default hook set; ${VAR} references are expanded afterwards.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	cfg.Hooks = nil
	hooksDefined := false

	if isYAML(path) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		hooksDefined = cfg.Hooks != nil
	} else {
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parsing %s: unknown keys %v", path, undecoded)
		}
		hooksDefined = md.IsDefined("hooks")
	}
	if !hooksDefined {
		cfg.Hooks = DefaultHooks()
	}

	ResolveEnvVars(cfg)
	return cfg, nil
}

// Save writes cfg to path (TOML, or YAML for .yaml/.yml), creating the
// parent directory. The file may hold an API key, so it is written 0600.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	if isYAML(path) {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		_ = enc.Close()
	} else {
		buf.WriteString("# chatshell configuration\n\n")
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
	}

	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// Validate checks the fields the relay depends on. Hook actions are
// checked when the hooks are built.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Shell.Command) == "" {
		errs = append(errs, errors.New("shell.command is empty"))
	}
	for name, d := range map[string]Duration{
		"relay.poll_interval":   c.Relay.PollInterval,
		"relay.escape_timeout":  c.Relay.EscapeTimeout,
		"relay.terminate_grace": c.Relay.TerminateGrace,
		"assistant.timeout":     c.Assistant.Timeout,
	} {
		if d.Duration <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, d.Duration))
		}
	}
	switch c.Relay.PopupOutput {
	case PopupOutputBuffer, PopupOutputPassthrough:
	default:
		errs = append(errs, fmt.Errorf("relay.popup_output must be %q or %q, got %q",
			PopupOutputBuffer, PopupOutputPassthrough, c.Relay.PopupOutput))
	}
	switch c.Relay.Notices {
	case NoticesPopup, NoticesInline:
	default:
		errs = append(errs, fmt.Errorf("relay.notices must be %q or %q, got %q",
			NoticesPopup, NoticesInline, c.Relay.Notices))
	}
	if c.Relay.MaxBufferedOutput <= 0 {
		errs = append(errs, fmt.Errorf("relay.max_buffered_output must be positive, got %d", c.Relay.MaxBufferedOutput))
	}

	seen := make(map[string]bool, len(c.Hooks))
	for i, h := range c.Hooks {
		if h.Name == "" {
			errs = append(errs, fmt.Errorf("hooks[%d]: name is empty", i))
		} else if seen[h.Name] {
			errs = append(errs, fmt.Errorf("hooks[%d]: duplicate name %q", i, h.Name))
		}
		seen[h.Name] = true
		if _, err := key.ParsePattern(h.KeyCombination); err != nil {
			errs = append(errs, fmt.Errorf("hooks[%d] %q: %w", i, h.Name, err))
		}
		if h.Timeout.Duration < 0 {
			errs = append(errs, fmt.Errorf("hooks[%d] %q: negative timeout", i, h.Name))
		}
	}
	return errors.Join(errs...)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
