// ABOUTME: Human-readable rendering of the effective configuration
// ABOUTME: Shown by the show_config builtin; the API key is masked

package config

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"
)

// Explain renders a human-readable summary of cfg grouped by section.
func Explain(c *Config) string {
	if c == nil {
		c = &Config{}
	}

	var b strings.Builder

	b.WriteString("=== Shell ===\n")
	fmt.Fprintf(&b, "  Command: %s %s\n", c.Shell.Command, strings.Join(c.Shell.Args, " "))
	for k, v := range sortedEnv(c.Shell.Env) {
		fmt.Fprintf(&b, "  Env:     %s=%s\n", k, v)
	}
	b.WriteString("\n")

	b.WriteString("=== Relay ===\n")
	fmt.Fprintf(&b, "  PollInterval:     %v\n", c.Relay.PollInterval.Duration)
	fmt.Fprintf(&b, "  EscapeTimeout:    %v\n", c.Relay.EscapeTimeout.Duration)
	fmt.Fprintf(&b, "  EnhancedKeyboard: %v\n", c.Relay.EnhancedKeyboard)
	fmt.Fprintf(&b, "  PopupOutput:      %s\n", c.Relay.PopupOutput)
	b.WriteString("\n")

	b.WriteString("=== Assistant ===\n")
	fmt.Fprintf(&b, "  Model:   %s\n", c.Assistant.Model)
	fmt.Fprintf(&b, "  APIBase: %s\n", c.Assistant.APIBase)
	fmt.Fprintf(&b, "  APIKey:  %s\n", maskKey(c.Assistant.APIKey))
	b.WriteString("\n")

	b.WriteString("=== Hooks ===\n")
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	for _, h := range c.Hooks {
		state := "on"
		if !h.IsEnabled() {
			state = "off"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", h.Name, h.KeyCombination, state, h.Action, h.Description)
	}
	_ = tw.Flush()

	return b.String()
}

func maskKey(k string) string {
	switch {
	case k == "":
		return "(not set)"
	case len(k) <= 8:
		return "****"
	default:
		return k[:3] + "…" + k[len(k)-4:]
	}
}

// sortedEnv yields env entries in key order.
func sortedEnv(env map[string]string) func(yield func(string, string) bool) {
	return func(yield func(string, string) bool) {
		keys := make([]string, 0, len(env))
		for k := range env {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if !yield(k, env[k]) {
				return
			}
		}
	}
}
