// Package tui renders the interactive upload progress bar for the hoist CLI.
//
// The bar is shown only when stderr is a terminal and --progress=bar.
// It displays the same counters the log reporter writes.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	primaryColor = lipgloss.Color("#7C3AED") // Purple
	successColor = lipgloss.Color("#10B981") // Green
	errorColor   = lipgloss.Color("#EF4444") // Red
	mutedColor   = lipgloss.Color("#6B7280") // Gray
)

// Styles for TUI components.
var (
	// TitleStyle for the file being uploaded.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	// StatStyle for the counters under the bar.
	StatStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// SuccessStyle for a committed upload.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	// ErrorStyle for a failed upload.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)
)
