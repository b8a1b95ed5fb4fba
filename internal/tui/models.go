package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/corewave/dataflow/internal/events"
)

// Shared color scheme
var (
	// Status colors
	ColorSuccess = lipgloss.Color("42")  // Green
	ColorWarning = lipgloss.Color("226") // Yellow
	ColorError   = lipgloss.Color("196") // Red
	ColorInfo    = lipgloss.Color("39")  // Blue
	ColorMuted   = lipgloss.Color("240") // Gray

	// UI element colors
	ColorSelected   = lipgloss.Color("212") // Pink
	ColorUnselected = lipgloss.Color("250") // Light gray
	ColorBorder     = lipgloss.Color("240") // Gray
	ColorTitle      = lipgloss.Color("212") // Pink
)

// Shared styles
var (
	// Title styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorTitle).
			MarginBottom(1)

	// Status badge styles
	BadgeStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true)

	SuccessBadge = BadgeStyle.Copy().
			Background(ColorSuccess).
			Foreground(lipgloss.Color("0"))

	WarningBadge = BadgeStyle.Copy().
			Background(ColorWarning).
			Foreground(lipgloss.Color("0"))

	ErrorBadge = BadgeStyle.Copy().
			Background(ColorError).
			Foreground(lipgloss.Color("255"))

	InfoBadge = BadgeStyle.Copy().
		Background(ColorInfo).
		Foreground(lipgloss.Color("255"))

	// List item styles
	SelectedItemStyle = lipgloss.NewStyle().
				Foreground(ColorSelected).
				Bold(true)

	UnselectedItemStyle = lipgloss.NewStyle().
				Foreground(ColorUnselected)

	// Box styles
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(1, 2)

	// Help text style
	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorMuted).
			MarginTop(1)
)

// kindBadge renders a styled badge for a variable's event kind, the
// board's equivalent of the teacher's update-status badge.
func kindBadge(k events.Kind) string {
	switch k {
	case events.KindPending:
		return InfoBadge.Render("PENDING")
	case events.KindReady:
		return SuccessBadge.Render("READY")
	case events.KindError:
		return ErrorBadge.Render("ERROR")
	case events.KindOk:
		return SuccessBadge.Render("OK")
	default:
		return WarningBadge.Render("UNKNOWN")
	}
}

// formatVariableLine formats a single variable's row on the board.
func formatVariableLine(name string, generation int64, k events.Kind, value, cause string) string {
	line := fmt.Sprintf("%-16s gen=%-4d %s", name, generation, kindBadge(k))
	if k == events.KindError && cause != "" {
		line += "  " + lipgloss.NewStyle().Foreground(ColorWarning).Render(cause)
	} else if value != "" {
		line += "  " + lipgloss.NewStyle().Foreground(ColorMuted).Render(value)
	}
	return line
}

// formatHelpLine formats a help line showing a keybinding.
func formatHelpLine(keys, description string) string {
	keyStyle := lipgloss.NewStyle().
		Foreground(ColorInfo).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(ColorMuted)

	return fmt.Sprintf("%s %s", keyStyle.Render(keys), descStyle.Render(description))
}

// KeyBinding represents a keyboard shortcut.
type KeyBinding struct {
	Key         string
	Description string
}

// formatHelp formats multiple keybindings as a help footer.
func formatHelp(bindings []KeyBinding) string {
	lines := make([]string, len(bindings))
	for i, binding := range bindings {
		lines[i] = formatHelpLine(binding.Key, binding.Description)
	}
	return HelpStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
