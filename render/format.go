package render

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// StripHTML drops HTML tags and collapses whitespace. Proxmox descriptions
// sometimes arrive as HTML fragments.
func StripHTML(text string) string {
	if text == "" {
		return text
	}
	clean := htmlTagRe.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(clean, " "))
}

// FormatUptime renders seconds as "3d 4h 12m"
func FormatUptime(seconds int64) string {
	if seconds <= 0 {
		return "Unknown"
	}

	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	return strings.Join(parts, " ")
}

// FormatMemory renders megabytes, switching to GB at 1024
func FormatMemory(mb int64) string {
	if mb <= 0 {
		return "Unknown"
	}
	if mb >= 1024 {
		return fmt.Sprintf("%.1f GB", float64(mb)/1024)
	}
	return fmt.Sprintf("%d MB", mb)
}

// FormatDisk renders gigabytes, switching to TB at 1024
func FormatDisk(gb float64) string {
	if gb <= 0 {
		return "Unknown"
	}
	if gb >= 1024 {
		return fmt.Sprintf("%.1f TB", gb/1024)
	}
	return fmt.Sprintf("%.0f GB", gb)
}

// FormatBytes humanizes a byte count
func FormatBytes(n int64) string {
	const (
		kib = 1 << 10
		mib = 1 << 20
		gib = 1 << 30
		tib = 1 << 40
	)
	switch {
	case n <= 0:
		return "Unknown"
	case n >= tib:
		return fmt.Sprintf("%.1f TB", float64(n)/tib)
	case n >= gib:
		return fmt.Sprintf("%.1f GB", float64(n)/gib)
	case n >= mib:
		return fmt.Sprintf("%.1f MB", float64(n)/mib)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// FormatUnixTime renders a unix timestamp for display, "Unknown" when zero
func FormatUnixTime(ts int64) string {
	if ts == 0 {
		return "Unknown"
	}
	return time.Unix(ts, 0).Format("2006-01-02 15:04")
}
