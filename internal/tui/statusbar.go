package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/wethinkt/go-orbitaldb/internal/conn"
	"github.com/wethinkt/go-orbitaldb/internal/profiles"
)

// statusIndicator is the connection state as shown to the user.
func statusIndicator(e conn.Entry) string {
	switch e.Status {
	case conn.StatusConnecting:
		return statusConnectingStyle.Render("◌ Connecting…")
	case conn.StatusConnected:
		return statusConnectedStyle.Render("● Connected")
	case conn.StatusFailed:
		msg := "✕ Failed"
		if e.LastError != "" {
			msg += ": " + e.LastError
		}
		return statusFailedStyle.Render(msg)
	default:
		return statusIdleStyle.Render("○ Idle")
	}
}

// renderStatusBar renders the bottom line for the active profile.
func renderStatusBar(width int, p *profiles.Profile, e conn.Entry) string {
	var parts []string
	if p == nil {
		parts = append(parts, statusIdleStyle.Render("No profile selected"))
	} else {
		parts = append(parts, statusIndicator(e), p.Name)
		if p.IsMemory() {
			parts = append(parts, "in-memory")
		} else {
			parts = append(parts, "persistent")
		}
		if p.ReadOnly {
			parts = append(parts, readOnlyBadgeStyle.Render("read-only"))
		}
		parts = append(parts, fmt.Sprintf("refs %d", e.Refs))
		if e.Timer == conn.TimerArmed {
			parts = append(parts, statusIdleStyle.Render("closing…"))
		}
	}

	line := strings.Join(parts, statusSepStyle.Render("  •  "))
	if width > 0 {
		line = ansi.Truncate(line, width, "…")
		return statusBarStyle.Width(width).Render(line)
	}
	return line
}

func renderHeader(width int, path []string) string {
	brand := headerBrandStyle.Render("orbitaldb")
	crumbs := strings.Join(path, " › ")
	line := brand
	if crumbs != "" {
		line += "  " + crumbs
	}
	if width > 0 {
		line = ansi.Truncate(line, width, "…")
		return headerStyle.Width(width).Render(line)
	}
	return line
}
