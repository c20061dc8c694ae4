// ABOUTME: Tests for the CLI: exit code mapping, --shell splitting, --init and --version
// ABOUTME: The relay itself is not started; it needs a real terminal on stdin

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/mauromedda/chatshell-go/internal/config"
	"github.com/mauromedda/chatshell-go/internal/relay"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"clean", nil, exitOK},
		{"startup", fmt.Errorf("%w: spawn shell: boom", relay.ErrStartup), exitStartup},
		{"relay io", fmt.Errorf("run: %w", &relay.IOError{Op: "read pty", Err: errors.New("boom")}), exitRelayIO},
		{"other", errors.New("unknown flag"), exitStartup},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("%s: exitCode = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestSplitShell(t *testing.T) {
	t.Parallel()

	cmd, args, err := splitShell(`zsh -l -c "echo 'hi there'"`)
	if err != nil {
		t.Fatal(err)
	}
	if cmd != "zsh" || !slices.Equal(args, []string{"-l", "-c", "echo 'hi there'"}) {
		t.Errorf("splitShell = %q %q", cmd, args)
	}
	for _, bad := range []string{"", "   ", `bash "unterminated`} {
		if _, _, err := splitShell(bad); err == nil {
			t.Errorf("splitShell(%q) succeeded", bad)
		}
	}
}

func TestExecute_Version(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer
	if code := execute([]string{"--version"}, &out, &errOut); code != exitOK {
		t.Fatalf("exit = %d, stderr = %q", code, errOut.String())
	}
	if !strings.HasPrefix(out.String(), "chatshell dev") {
		t.Errorf("version output = %q", out.String())
	}
}

func TestExecute_InitRefusesOverwrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cfg", "config.toml")
	var out, errOut bytes.Buffer
	if code := execute([]string{"--init", "--config", path}, &out, &errOut); code != exitOK {
		t.Fatalf("first --init exit = %d, stderr = %q", code, errOut.String())
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if cfg.Shell.Command == "" || len(cfg.Hooks) == 0 {
		t.Errorf("written config = %+v", cfg)
	}

	errOut.Reset()
	if code := execute([]string{"--init", "-c", path}, &out, &errOut); code != exitStartup {
		t.Errorf("second --init exit = %d, want %d", code, exitStartup)
	}
	if !strings.Contains(errOut.String(), "already exists") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestExecute_RejectsArguments(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer
	if code := execute([]string{"extra"}, &out, &errOut); code != exitStartup {
		t.Errorf("exit = %d, want %d", code, exitStartup)
	}
}

func TestLoadConfig_ShellOverride(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.Default().Save(path); err != nil {
		t.Fatal(err)
	}
	cfg, got, err := loadConfig(cliArgs{configPath: path, shell: "/bin/sh -i"})
	if err != nil {
		t.Fatal(err)
	}
	if got != path || cfg.Shell.Command != "/bin/sh" || !slices.Equal(cfg.Shell.Args, []string{"-i"}) {
		t.Errorf("loadConfig = %q, %+v", got, cfg.Shell)
	}

	if _, _, err := loadConfig(cliArgs{configPath: filepath.Join(t.TempDir(), "missing.toml")}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing explicit config = %v", err)
	}
}

func TestLoadConfig_ShellOverrideWithDefaultsFallback(t *testing.T) {
	// XDG_CONFIG_HOME pointing at a regular file makes the default dir uncreatable.
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("XDG_CONFIG_HOME", blocker)

	cfg, path, err := loadConfig(cliArgs{shell: "zsh -l"})
	if err != nil {
		t.Fatal(err)
	}
	if path != "" {
		t.Errorf("fallback path = %q, want none", path)
	}
	if cfg.Shell.Command != "zsh" || !slices.Equal(cfg.Shell.Args, []string{"-l"}) {
		t.Errorf("--shell ignored on fallback: %+v", cfg.Shell)
	}
}
