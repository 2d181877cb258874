// Package ui renders nudge status output for terminals.
// Colors follow the Ayu theme with light/dark variants.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorPass = lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	}
	ColorFail = lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6",
		Dark:  "#59c2ff",
	}
)

var (
	PassStyle     = lipgloss.NewStyle().Foreground(ColorPass)
	WarnStyle     = lipgloss.NewStyle().Foreground(ColorWarn)
	FailStyle     = lipgloss.NewStyle().Foreground(ColorFail)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle   = lipgloss.NewStyle().Foreground(ColorAccent)
	CategoryStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	LabelStyle    = lipgloss.NewStyle().Foreground(ColorMuted).Width(12)
)

const (
	IconPass  = "✓"
	IconWarn  = "⚠"
	IconFail  = "✗"
	IconPause = "⏸"
	IconBell  = "🔔"
	IconInfo  = "ℹ"
)

const SeparatorLight = "──────────────────────────────────────────"

func RenderPass(s string) string   { return PassStyle.Render(s) }
func RenderWarn(s string) string   { return WarnStyle.Render(s) }
func RenderFail(s string) string   { return FailStyle.Render(s) }
func RenderMuted(s string) string  { return MutedStyle.Render(s) }
func RenderAccent(s string) string { return AccentStyle.Render(s) }

// RenderCategory renders a section header in uppercase.
func RenderCategory(s string) string {
	return CategoryStyle.Render(strings.ToUpper(s))
}

// RenderSeparator renders the light separator line.
func RenderSeparator() string {
	return MutedStyle.Render(SeparatorLight)
}

// RenderField renders an aligned "label value" line.
func RenderField(label, value string) string {
	return "  " + LabelStyle.Render(label) + " " + value
}

// RenderMode colors a continuation mode: check is green, manual is blue.
func RenderMode(mode string) string {
	switch mode {
	case "check":
		return PassStyle.Render(mode)
	case "manual":
		return AccentStyle.Render(mode)
	default:
		return MutedStyle.Render(mode)
	}
}

// RenderAlertType colors an alert type by urgency.
func RenderAlertType(t string) string {
	switch t {
	case "error":
		return FailStyle.Render(t)
	case "permission":
		return WarnStyle.Render(t)
	default:
		return AccentStyle.Render(t)
	}
}

// RenderAge renders how long ago t was, coarsely.
func RenderAge(t, now time.Time) string {
	return MutedStyle.Render(Age(now.Sub(t)) + " ago")
}

// Age formats d as 45s, 12m, 3h or 2d.
func Age(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	}
}

// Truncate shortens s to at most max runes, ending with "…".
func Truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max == 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}
