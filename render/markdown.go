// Package render turns cluster state and reconciliation decisions into the
// markdown published to the document store.
package render

import (
	"fmt"
	"strings"
)

// Heading renders a markdown heading at the given level (clamped to 1..6)
func Heading(text string, level int) string {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return strings.Repeat("#", level) + " " + text
}

// BulletList renders items as a markdown bullet list
func BulletList(items []string) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- " + item)
	}
	return b.String()
}

// Table renders a markdown table
func Table(headers []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString("| " + strings.Join(headers, " | ") + " |\n")

	separators := make([]string, len(headers))
	for i := range separators {
		separators[i] = "---"
	}
	b.WriteString("| " + strings.Join(separators, " | ") + " |")

	for _, row := range rows {
		b.WriteString("\n| " + strings.Join(row, " | ") + " |")
	}
	return b.String()
}

// HorizontalRule renders a thematic break
func HorizontalRule() string {
	return "---"
}

// StatusBadge maps a lifecycle status to its colored indicator
func StatusBadge(status string) string {
	switch status {
	case "running":
		return "🟢 Running"
	case "stopped":
		return "🔴 Stopped"
	case "paused":
		return "🟡 Paused"
	case "suspended":
		return "🟠 Suspended"
	default:
		return "⚪ " + capitalize(status)
	}
}

func capitalize(s string) string {
	if s == "" {
		return "Unknown"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Bold wraps text in markdown strong emphasis
func Bold(text string) string {
	return fmt.Sprintf("**%s**", text)
}
