package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/timebird/internal/timer"
)

// Palette. Adaptive so the app stays readable on light terminals.
var (
	colorBrand   = lipgloss.AdaptiveColor{Light: "#0B5CD5", Dark: "#4C9AFF"}
	colorInk     = lipgloss.AdaptiveColor{Light: "#1D2433", Dark: "#D7DEEA"}
	colorDim     = lipgloss.AdaptiveColor{Light: "#8A93A3", Dark: "#6B7385"}
	colorRule    = lipgloss.AdaptiveColor{Light: "#D0D6E0", Dark: "#3A4252"}
	colorRunning = lipgloss.AdaptiveColor{Light: "#11865B", Dark: "#3DD68C"}
	colorStopped = lipgloss.AdaptiveColor{Light: "#B35C00", Dark: "#FFB454"}
	colorDanger  = lipgloss.AdaptiveColor{Light: "#C4312B", Dark: "#FF6B61"}
	colorAccent  = lipgloss.AdaptiveColor{Light: "#6B4FD8", Dark: "#A48BFF"}
)

// projectColors colour the per-project bars in order of first appearance.
var projectColors = []lipgloss.Color{
	"#4C9AFF", "#3DD68C", "#FFB454", "#A48BFF", "#FF6B61", "#38C7D3", "#E58AD6", "#B5C45A",
}

func projectStyle(i int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(projectColors[i%len(projectColors)])
}

var (
	// Chrome
	brandStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBrand)

	busyBadgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorRunning)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBrand).
			Border(lipgloss.ThickBorder(), false, false, true, false).
			BorderForeground(colorBrand).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(colorDim).
				Padding(0, 2)

	headerStyle = lipgloss.NewStyle().Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Foreground(colorDim).Padding(0, 1)

	// Missing credentials
	bannerStyle = lipgloss.NewStyle().
			Foreground(colorStopped).
			Border(lipgloss.ThickBorder(), false, false, false, true).
			BorderForeground(colorStopped).
			PaddingLeft(1)

	// Panels
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorRule).
			Padding(1, 2)

	activePanelStyle = panelStyle.BorderForeground(colorBrand)

	// Text
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(colorInk)
	mutedStyle     = lipgloss.NewStyle().Foreground(colorDim)
	highlightStyle = lipgloss.NewStyle().Foreground(colorAccent)
	secretStyle    = lipgloss.NewStyle().Foreground(colorDim).Italic(true)
	successStyle   = lipgloss.NewStyle().Foreground(colorRunning)
	warningStyle   = lipgloss.NewStyle().Foreground(colorStopped)
	errorStyle     = lipgloss.NewStyle().Foreground(colorDanger)

	// Pickers
	selectedItemStyle = lipgloss.NewStyle().Foreground(colorBrand).Bold(true)
	normalItemStyle   = lipgloss.NewStyle().Foreground(colorInk)

	// Clock line of the timer view
	clockStyle = lipgloss.NewStyle().Bold(true).Align(lipgloss.Center)
)

// sessionLook returns the clock style and state label for a timer state.
func sessionLook(st timer.State) (lipgloss.Style, string) {
	switch st {
	case timer.Running:
		return clockStyle.Foreground(colorRunning), successStyle.Render("● Running")
	case timer.Stopped:
		return clockStyle.Foreground(colorStopped), warningStyle.Render("■ Stopped")
	default:
		return clockStyle.Foreground(colorBrand), mutedStyle.Render("○ Idle")
	}
}
