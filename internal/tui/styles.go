package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent  = lipgloss.Color("#7C3AED")
	muted   = lipgloss.Color("#6B7280")
	success = lipgloss.Color("#10B981")
	danger  = lipgloss.Color("#EF4444")
	warning = lipgloss.Color("#F59E0B")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Width(34).
			Foreground(muted)

	focusedLabelStyle = labelStyle.
				Foreground(accent).
				Bold(true)

	hintStyle = lipgloss.NewStyle().
			Foreground(muted).
			Italic(true)

	stepDoneStyle    = lipgloss.NewStyle().Foreground(success).Bold(true)
	stepActiveStyle  = lipgloss.NewStyle().Foreground(warning).Bold(true)
	stepPendingStyle = lipgloss.NewStyle().Foreground(muted)

	statusStyle = lipgloss.NewStyle().
			Bold(true).
			MarginTop(1).
			MarginBottom(1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1).
			MarginTop(1)

	eligibleStyle    = lipgloss.NewStyle().Foreground(success).Bold(true)
	notEligibleStyle = lipgloss.NewStyle().Foreground(danger).Bold(true)
	errorStyle       = lipgloss.NewStyle().Foreground(danger)
)
