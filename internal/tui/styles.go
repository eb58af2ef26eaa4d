package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	Accent    = lipgloss.Color("#E5A00D")
	DimGray   = lipgloss.Color("#6B7280")
	LightGray = lipgloss.Color("#9CA3AF")
	White     = lipgloss.Color("#F9FAFB")
	Green     = lipgloss.Color("#10B981")
	Red       = lipgloss.Color("#EF4444")
	Yellow    = lipgloss.Color("#F59E0B")
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(White).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimGray)

	AccentStyle = lipgloss.NewStyle().
			Foreground(Accent)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Red)

	WarnStyle = lipgloss.NewStyle().
			Foreground(Yellow)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Green)

	HelpStyle = lipgloss.NewStyle().
			Foreground(LightGray).
			MarginTop(1)
)

// Status glyphs
const (
	GlyphDone    = "✓"
	GlyphFailed  = "✗"
	GlyphPending = "·"
	GlyphWarning = "!"
)
