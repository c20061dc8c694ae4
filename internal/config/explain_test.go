// ABOUTME: Tests for human-readable config explanation rendering
// ABOUTME: Covers empty config, hook listing and API key masking

package config

import (
	"strings"
	"testing"
)

func TestExplain_Empty(t *testing.T) {
	t.Parallel()

	result := Explain(nil)
	for _, section := range []string{"Shell", "Relay", "Assistant", "Hooks"} {
		if !strings.Contains(result, "=== "+section+" ===") {
			t.Errorf("missing %s section in %q", section, result)
		}
	}
	if !strings.Contains(result, "(not set)") {
		t.Error("empty API key should render as (not set)")
	}
}

func TestExplain_Default(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Assistant.APIKey = "sk-abcdefghijklmnop"
	cfg.Shell.Env = map[string]string{"B": "2", "A": "1"}
	result := Explain(cfg)

	if strings.Contains(result, "sk-abcdefghijklmnop") {
		t.Error("API key printed in clear")
	}
	if !strings.Contains(result, "mnop") {
		t.Error("masked key should keep its last characters")
	}
	if strings.Index(result, "A=1") > strings.Index(result, "B=2") {
		t.Error("env entries not sorted")
	}
	for _, h := range cfg.Hooks {
		if !strings.Contains(result, h.Name) || !strings.Contains(result, h.KeyCombination) {
			t.Errorf("hook %q missing from explanation", h.Name)
		}
	}
	if !strings.Contains(result, "off") {
		t.Error("disabled hooks should be marked off")
	}
}
