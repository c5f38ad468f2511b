package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/codesim/internal/score"
)

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
)

// tierColors is indexed by Tier.Weight: gray for unknown, then green
// (very low similarity) up to red (very high).
var tierColors = [...]lipgloss.Color{
	colorSecondary,
	lipgloss.Color("78"),
	lipgloss.Color("114"),
	lipgloss.Color("220"),
	lipgloss.Color("208"),
	lipgloss.Color("196"),
}

// TierStyle colours a score or label by its tier.
func TierStyle(t score.Tier) lipgloss.Style {
	w := t.Weight()
	return lipgloss.NewStyle().Foreground(tierColors[w]).Bold(w >= score.High.Weight())
}

// CursorRow style for the row under the cursor.
var CursorRow = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// NormalRow style for other rows.
var NormalRow = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Padding(0, 1)

// SelectedMark style for the selection checkbox and target marker.
var SelectedMark = lipgloss.NewStyle().
	Foreground(colorSuccess).
	Bold(true)

// LanguageBadge style for language tags.
var LanguageBadge = lipgloss.NewStyle().
	Foreground(colorPrimary).
	Background(lipgloss.Color("236")).
	Padding(0, 1).
	MarginRight(1)

// PaneTitle style for pane headers.
var PaneTitle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight).
	Padding(0, 1)

// PaneBorder frames a pane; the focused pane uses the highlight colour.
var PaneBorder = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorMuted)

// FocusedPaneBorder frames the focused pane.
var FocusedPaneBorder = PaneBorder.BorderForeground(colorHighlight)

// ModeActive style for the chosen mode.
var ModeActive = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// ModeInactive style for the other modes.
var ModeInactive = lipgloss.NewStyle().
	Foreground(colorSecondary).
	Padding(0, 1)

// RunReady and RunDisabled render the run control.
var (
	RunReady = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(colorSuccess).
			Padding(0, 1)
	RunDisabled = lipgloss.NewStyle().
			Foreground(colorMuted).
			Background(lipgloss.Color("236")).
			Padding(0, 1)
)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("196")).
	Bold(true).
	Padding(0, 1)

// NoticeStyle for transient success messages.
var NoticeStyle = lipgloss.NewStyle().
	Foreground(colorSuccess).
	Padding(0, 1)

// HelpStyle for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(1, 2)

// InputBar style for the text entry bar.
var InputBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("240")).
	Padding(0, 1)

// MutedText for secondary information.
var MutedText = lipgloss.NewStyle().
	Foreground(colorMuted)

// DebugPanel frames the debug overlay.
var DebugPanel = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorHighlight).
	Padding(1, 2)

// DebugHeaderStyle for debug overlay section headers.
var DebugHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight)
