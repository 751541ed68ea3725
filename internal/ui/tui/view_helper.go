package tui

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/1ikeadragon/subconverge/internal/domain"
)

func clampString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))

	n := 0
	for _, r := range s {
		if n >= maxLen {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String() + "…"
}

func renderSummary(t Theme, r domain.Report) string {
	var b strings.Builder

	b.WriteString(t.Title.Render("Summary"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  stop:   %s after %d round(s)\n", r.StopReason, len(r.Rounds)))
	b.WriteString(fmt.Sprintf("  seed:   %d\n", r.SeedSize))
	b.WriteString(fmt.Sprintf("  raw:    %d\n", r.RawCount))
	b.WriteString(fmt.Sprintf("  clean:  %d\n", r.CleanCount))

	alive := fmt.Sprintf("  alive:  %d", r.AliveCount)
	if r.ProbeFailed {
		alive += t.Warn.Render("  (probe failed)")
	}
	b.WriteString(alive)
	b.WriteString("\n")

	if r.Interrupted {
		b.WriteString(t.Warn.Render("  interrupted: partial results"))
		b.WriteString("\n")
	}

	if len(r.Paths) > 0 {
		b.WriteString("\n")
		keys := make([]string, 0, len(r.Paths))
		for k := range r.Paths {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(t.Help.Render(fmt.Sprintf("  %-6s %s", k, r.Paths[k])))
			b.WriteString("\n")
		}
	}
	return b.String()
}
