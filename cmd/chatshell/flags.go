// ABOUTME: CLI flag parsing with spf13/cobra
// ABOUTME: Supports --config, --shell, --init, --verbose, --log-file and --version

package main

import (
	"fmt"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
)

type cliArgs struct {
	configPath string
	shell      string
	logFile    string
	init       bool
	verbose    bool
	version    bool
}

// newRootCmd builds the chatshell command; run receives the parsed flags.
func newRootCmd(run func(cliArgs) error) *cobra.Command {
	var args cliArgs

	cmd := &cobra.Command{
		Use:   "chatshell",
		Short: "Transparent shell relay with key hooks and an assistant",
		Long: `chatshell runs your shell on a pseudo-terminal and relays every byte
unchanged, except for the key combinations bound to hooks in the config file.

Examples:
  chatshell                          # default shell and config
  chatshell --shell "zsh -l"         # a different shell
  chatshell --config ./chatshell.toml --verbose
  chatshell --init                   # write the default config and exit`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&args.configPath, "config", "c", "", "Config file (default $XDG_CONFIG_HOME/chatshell/config.toml)")
	f.StringVarP(&args.shell, "shell", "s", "", `Shell command line, e.g. "bash -i"`)
	f.StringVar(&args.logFile, "log-file", "", "Log file (default next to the config)")
	f.BoolVar(&args.init, "init", false, "Write the default config and exit")
	f.BoolVarP(&args.verbose, "verbose", "v", false, "Log debug messages")
	f.BoolVar(&args.version, "version", false, "Show version and exit")
	return cmd
}

// splitShell splits a --shell value into a command and its arguments.
func splitShell(line string) (string, []string, error) {
	words, err := shellquote.Split(line)
	if err != nil {
		return "", nil, fmt.Errorf("parsing --shell: %w", err)
	}
	if len(words) == 0 {
		return "", nil, fmt.Errorf("parsing --shell: empty command")
	}
	return words[0], words[1:], nil
}
