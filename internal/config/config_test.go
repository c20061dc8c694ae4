// ABOUTME: Tests for config defaults, TOML/YAML loading, saving and validation
// ABOUTME: Uses temp directories for isolated file-based tests

package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if cfg.Shell.Command != "/bin/bash" || len(cfg.Shell.Args) != 1 || cfg.Shell.Args[0] != "-i" {
		t.Errorf("shell = %+v, want /bin/bash -i", cfg.Shell)
	}
	if cfg.Relay.PollInterval.Duration != 50*time.Millisecond {
		t.Errorf("poll interval = %v", cfg.Relay.PollInterval)
	}
	if cfg.Relay.PopupOutput != PopupOutputBuffer {
		t.Errorf("popup output = %q", cfg.Relay.PopupOutput)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	byName := map[string]HookConfig{}
	for _, h := range cfg.Hooks {
		byName[h.Name] = h
	}
	help, ok := byName["help"]
	if !ok || help.KeyCombination != "ctrl+;" || help.Action != "fn:show_help" || !help.IsEnabled() {
		t.Errorf("help hook = %+v", help)
	}
	if byName["time"].IsEnabled() {
		t.Error("time hook should be disabled by default")
	}
}

func TestLoad_TOML(t *testing.T) {
	t.Setenv("CHATSHELL_TEST_KEY", "sk-test")
	path := writeFile(t, "config.toml", `
[shell]
command = "/bin/sh"
args = ["-l"]
[shell.env]
EDITOR = "vi"

[relay]
enhanced_keyboard = false
popup_output = "passthrough"

[assistant]
api_key = "${CHATSHELL_TEST_KEY}"

[[hooks]]
name = "greet"
key_combination = "ctrl+alt+h"
action = "cmd:echo hi"
timeout = "2s"

[[hooks]]
name = "off"
key_combination = "f5"
action = "fn:show_time"
enabled = false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Shell.Command != "/bin/sh" || cfg.Shell.Env["EDITOR"] != "vi" {
		t.Errorf("shell = %+v", cfg.Shell)
	}
	if cfg.Relay.EnhancedKeyboard {
		t.Error("enhanced_keyboard = false was not applied")
	}
	if cfg.Relay.PopupOutput != PopupOutputPassthrough {
		t.Errorf("popup_output = %q", cfg.Relay.PopupOutput)
	}
	if cfg.Relay.EscapeTimeout.Duration != 25*time.Millisecond {
		t.Errorf("unset escape_timeout lost its default: %v", cfg.Relay.EscapeTimeout)
	}
	if cfg.Assistant.APIKey != "sk-test" {
		t.Errorf("api_key = %q, want expanded value", cfg.Assistant.APIKey)
	}
	if cfg.Assistant.Model != "gpt-4o-mini" {
		t.Errorf("model default lost: %q", cfg.Assistant.Model)
	}
	if len(cfg.Hooks) != 2 {
		t.Fatalf("hooks = %+v, want the 2 configured hooks", cfg.Hooks)
	}
	if cfg.Hooks[0].Timeout.Duration != 2*time.Second || !cfg.Hooks[0].IsEnabled() {
		t.Errorf("greet hook = %+v", cfg.Hooks[0])
	}
	if cfg.Hooks[1].IsEnabled() {
		t.Error("hook with enabled = false reported enabled")
	}
}

func TestLoad_NoHooksKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.toml", "[shell]\ncommand = \"/bin/zsh\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Hooks) != len(DefaultHooks()) {
		t.Errorf("got %d hooks, want the %d defaults", len(cfg.Hooks), len(DefaultHooks()))
	}
}

func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "config.yaml", `
shell:
  command: /bin/sh
relay:
  poll_interval: 10ms
hooks:
  - name: help
    key_combination: "ctrl+;"
    action: fn:show_help
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Shell.Command != "/bin/sh" {
		t.Errorf("command = %q", cfg.Shell.Command)
	}
	if cfg.Relay.PollInterval.Duration != 10*time.Millisecond {
		t.Errorf("poll_interval = %v", cfg.Relay.PollInterval)
	}
	if !cfg.Relay.EnhancedKeyboard {
		t.Error("default enhanced_keyboard lost")
	}
	if len(cfg.Hooks) != 1 || cfg.Hooks[0].Name != "help" {
		t.Errorf("hooks = %+v", cfg.Hooks)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, file, content string
	}{
		{"bad toml", "c.toml", "[shell\ncommand="},
		{"unknown key", "c.toml", "[shell]\nshel_command = \"x\"\n"},
		{"bad duration", "c.toml", "[relay]\npoll_interval = \"soon\"\n"},
		{"bad yaml", "c.yml", "shell: [unterminated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Load(writeFile(t, tt.file, tt.content)); err == nil {
				t.Error("Load succeeded, want error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file error = %v, want fs.ErrNotExist", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"config.toml", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "nested", name)
			want := Default()
			want.Assistant.APIKey = "literal"
			if err := want.Save(path); err != nil {
				t.Fatalf("Save: %v", err)
			}

			info, err := os.Stat(path)
			if err != nil {
				t.Fatal(err)
			}
			if info.Mode().Perm() != 0o600 {
				t.Errorf("mode = %v, want 0600", info.Mode().Perm())
			}

			got, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got.Relay != want.Relay || got.Assistant != want.Assistant {
				t.Errorf("round trip mismatch:\n got %+v %+v\nwant %+v %+v", got.Relay, got.Assistant, want.Relay, want.Assistant)
			}
			if len(got.Hooks) != len(want.Hooks) {
				t.Fatalf("hooks = %d, want %d", len(got.Hooks), len(want.Hooks))
			}
			for i := range want.Hooks {
				if got.Hooks[i].Name != want.Hooks[i].Name || got.Hooks[i].IsEnabled() != want.Hooks[i].IsEnabled() {
					t.Errorf("hook %d = %+v, want %+v", i, got.Hooks[i], want.Hooks[i])
				}
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty command", func(c *Config) { c.Shell.Command = " " }, "shell.command"},
		{"zero poll", func(c *Config) { c.Relay.PollInterval = D(0) }, "relay.poll_interval"},
		{"bad policy", func(c *Config) { c.Relay.PopupOutput = "drop" }, "relay.popup_output"},
		{"bad notices", func(c *Config) { c.Relay.Notices = "toast" }, "relay.notices"},
		{"no buffer", func(c *Config) { c.Relay.MaxBufferedOutput = 0 }, "max_buffered_output"},
		{"bad key", func(c *Config) { c.Hooks[0].KeyCombination = "hyper+x" }, "invalid key pattern"},
		{"duplicate hook", func(c *Config) { c.Hooks[1].Name = c.Hooks[0].Name }, "duplicate name"},
		{"unnamed hook", func(c *Config) { c.Hooks[0].Name = "" }, "name is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestEnsureExists(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "chatshell", "config.toml")

	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := EnsureExists(path)
			if err != nil {
				t.Errorf("EnsureExists: %v", err)
				return
			}
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("config created %d times, want exactly once", created)
	}
	if _, err := Load(path); err != nil {
		t.Errorf("generated config does not load: %v", err)
	}
}

func TestDefaultPath(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	if got, want := DefaultPath(), filepath.Join(xdg, "chatshell", "config.toml"); got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
	if got, want := LogPath(), filepath.Join(xdg, "chatshell", "chatshell.log"); got != want {
		t.Errorf("LogPath() = %q, want %q", got, want)
	}

	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", home)
	if got, want := DefaultPath(), filepath.Join(home, ".config", "chatshell", "config.toml"); got != want {
		t.Errorf("DefaultPath() without XDG = %q, want %q", got, want)
	}
}
