package tui

import "charm.land/lipgloss/v2"

// Palette
var (
	colorAccent  = lipgloss.Color("#7aa2f7")
	colorOK      = lipgloss.Color("#9ece6a")
	colorWarn    = lipgloss.Color("#e0af68")
	colorError   = lipgloss.Color("#f7768e")
	colorMuted   = lipgloss.Color("#737aa2")
	colorText    = lipgloss.Color("#c0caf5")
	colorChrome  = lipgloss.Color("#1f2335")
	colorBorder  = lipgloss.Color("#3b4261")
	colorReverse = lipgloss.Color("#1a1b26")
)

// Header and status bar
var (
	headerStyle = lipgloss.NewStyle().
			Background(colorChrome).
			Foreground(colorText)

	headerBrandStyle = lipgloss.NewStyle().
				Foreground(colorAccent).
				Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(colorChrome).
			Foreground(colorText)

	statusSepStyle        = lipgloss.NewStyle().Foreground(colorMuted)
	statusIdleStyle       = lipgloss.NewStyle().Foreground(colorMuted)
	statusConnectingStyle = lipgloss.NewStyle().Foreground(colorWarn)
	statusConnectedStyle  = lipgloss.NewStyle().Foreground(colorOK)
	statusFailedStyle     = lipgloss.NewStyle().Foreground(colorError)

	readOnlyBadgeStyle = lipgloss.NewStyle().
				Background(colorWarn).
				Foreground(colorReverse).
				Padding(0, 1)
)

// Query page
var (
	queryTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorAccent)

	gridHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText)

	gridBorderStyle = lipgloss.NewStyle().Foreground(colorBorder)
	gridNullStyle   = lipgloss.NewStyle().Foreground(colorMuted).Italic(true)
	resultInfoStyle = lipgloss.NewStyle().Foreground(colorMuted)
	errorTextStyle  = lipgloss.NewStyle().Foreground(colorError)
	helpStyle       = lipgloss.NewStyle().Foreground(colorMuted)

	selectedMarkerStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)

	pagePadding = lipgloss.NewStyle().Padding(1, 2)
)
