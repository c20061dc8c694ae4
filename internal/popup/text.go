// ABOUTME: Plain-text measuring, truncation and wrapping by grapheme cluster and display width
// ABOUTME: Applied to popup content before styling, so no escape sequences are present

package popup

import (
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

func graphemeWidth(cluster string) int {
	if cluster == "" {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(cluster)
	if r == '\t' {
		return 1
	}
	return runewidth.RuneWidth(r)
}

// displayWidth returns the number of cells s occupies.
func displayWidth(s string) int {
	w := 0
	state := -1
	for s != "" {
		var cluster string
		cluster, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		w += graphemeWidth(cluster)
	}
	return w
}

// truncate shortens s to at most width cells, ending in an ellipsis when
// anything was cut.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if displayWidth(s) <= width {
		return s
	}
	var b strings.Builder
	col, state := 0, -1
	for s != "" {
		var cluster string
		cluster, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		w := graphemeWidth(cluster)
		if col+w > width-1 {
			break
		}
		b.WriteString(cluster)
		col += w
	}
	b.WriteRune('…')
	return b.String()
}

// wrap breaks s into lines of at most width cells at Unicode line-break
// opportunities. Words longer than width are split by grapheme.
func wrap(s string, width int) []string {
	if width <= 0 {
		return nil
	}
	s = strings.ReplaceAll(s, "\t", "    ")

	var lines []string
	for _, para := range strings.Split(s, "\n") {
		lines = append(lines, wrapParagraph(strings.TrimRight(para, "\r"), width)...)
	}
	return lines
}

func wrapParagraph(s string, width int) []string {
	if s == "" {
		return []string{""}
	}

	var lines []string
	var line strings.Builder
	col := 0
	flush := func() {
		lines = append(lines, strings.TrimRight(line.String(), " "))
		line.Reset()
		col = 0
	}

	state := -1
	for s != "" {
		var segment string
		segment, s, _, state = uniseg.FirstLineSegmentInString(s, state)
		w := displayWidth(segment)
		trimmed := displayWidth(strings.TrimRight(segment, " "))

		if col+trimmed > width && col > 0 {
			flush()
		}
		if trimmed > width {
			for _, part := range splitByWidth(segment, width) {
				if col > 0 {
					flush()
				}
				line.WriteString(part)
				col = displayWidth(part)
			}
			continue
		}
		line.WriteString(segment)
		col += w
	}
	if line.Len() > 0 || len(lines) == 0 {
		flush()
	}
	return lines
}

// splitByWidth cuts s into pieces of at most width cells.
func splitByWidth(s string, width int) []string {
	var parts []string
	var b strings.Builder
	col, state := 0, -1
	for s != "" {
		var cluster string
		cluster, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		w := graphemeWidth(cluster)
		if col+w > width && col > 0 {
			parts = append(parts, b.String())
			b.Reset()
			col = 0
		}
		b.WriteString(cluster)
		col += w
	}
	if b.Len() > 0 {
		parts = append(parts, b.String())
	}
	return parts
}
