// ABOUTME: CLI entry point for chatshell with terminal crash recovery
// ABOUTME: Loads config, moves logging to a file, runs the relay and maps errors to exit codes

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	// termfix must be imported before any package that imports bubbletea
	// so popups never send terminal queries whose replies would reach the shell.
	_ "github.com/mauromedda/chatshell-go/internal/termfix"

	"github.com/mauromedda/chatshell-go/internal/config"
	"github.com/mauromedda/chatshell-go/internal/log"
	"github.com/mauromedda/chatshell-go/internal/relay"
	"github.com/mauromedda/chatshell-go/pkg/tui/terminal"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Exit codes.
const (
	exitOK      = 0
	exitStartup = 1
	exitRelayIO = 2
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(argv []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(func(args cliArgs) error {
		if args.version {
			fmt.Fprintf(stdout, "chatshell %s (%s) built %s\n", version, commit, date)
			return nil
		}
		if args.init {
			return initConfig(args.configPath, stdout)
		}
		return run(args)
	})
	cmd.SetArgs(argv)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
	}
	return exitCode(err)
}

func exitCode(err error) int {
	var ioErr *relay.IOError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &ioErr):
		return exitRelayIO
	default:
		return exitStartup
	}
}

func initConfig(path string, stdout io.Writer) error {
	if path == "" {
		path = config.DefaultPath()
	}
	created, err := config.EnsureExists(path)
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("%s already exists", path)
	}
	fmt.Fprintf(stdout, "wrote default configuration to %s\n", path)
	return nil
}

// loadConfig reads the config file. The default path is created on first
// run; an explicit path must exist.
func loadConfig(args cliArgs) (*config.Config, string, error) {
	cfg, path, err := readConfig(args.configPath)
	if err != nil {
		return nil, "", err
	}
	if args.shell != "" {
		cmd, shellArgs, err := splitShell(args.shell)
		if err != nil {
			return nil, "", err
		}
		cfg.Shell.Command, cfg.Shell.Args = cmd, shellArgs
	}
	return cfg, path, nil
}

// readConfig falls back to defaults, with no path to watch, when the default
// file cannot be created.
func readConfig(path string) (*config.Config, string, error) {
	if path == "" {
		path = config.DefaultPath()
		if created, err := config.EnsureExists(path); err != nil {
			log.Warn("[CONFIG] %v; using defaults", err)
			cfg := config.Default()
			config.ResolveEnvVars(cfg)
			return cfg, "", nil
		} else if created {
			log.Info("[CONFIG] wrote default configuration to %s", path)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// run performs the initialization sequence and relays until the shell exits.
func run(args cliArgs) error {
	if args.verbose {
		log.SetLevel(log.LevelDebug)
	}

	cfg, path, err := loadConfig(args)
	if err != nil {
		return fmt.Errorf("%w: %w", relay.ErrStartup, err)
	}

	term := terminal.NewProcessTerminal(terminal.WithEnhancedKeyboard(cfg.Relay.EnhancedKeyboard))
	if !term.IsTerminal() {
		return fmt.Errorf("%w: stdin is not a terminal", relay.ErrStartup)
	}
	defer terminal.RestoreOnPanic(term)

	loop, err := relay.New(cfg, term,
		relay.WithInput(int(term.Input().Fd())),
		relay.WithConfigPath(path),
	)
	if err != nil {
		return err
	}

	// The relay owns the terminal from here on; log lines go to a file.
	logPath := args.logFile
	if logPath == "" {
		logPath = config.LogPath()
	}
	closeLog, err := log.OpenFile(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v; logging disabled\n", err)
		prev := log.SetOutput(nil)
		closeLog = func() error { log.SetOutput(prev); return nil }
	}
	defer func() { _ = closeLog() }()

	err = loop.Run(context.Background())
	if st := loop.ExitStatus(); st != nil {
		log.Info("[MAIN] shell %v", st)
	}
	return err
}
