package tui

import "github.com/charmbracelet/lipgloss"

// Color palette - single lime accent for a professional, distinctive look
const (
	ColorLime     = "154" // Primary accent (#AFFF00) - bright lime green
	ColorLimeDim  = "106" // Dimmed lime for inactive/borders
	ColorWhite    = "255" // Headers, important text
	ColorGray     = "245" // Secondary text, labels
	ColorDarkGray = "238" // Box borders, separators
	ColorRed      = "196" // Errors
	ColorYellow   = "220" // Warnings
)

// Styles holds the chat UI styles.
type Styles struct {
	Header   lipgloss.Style
	Question lipgloss.Style
	Answer   lipgloss.Style
	Source   lipgloss.Style
	Error    lipgloss.Style
	Dim      lipgloss.Style
	InputBox lipgloss.Style
	Status   lipgloss.Style
}

// DefaultStyles returns styled components for TTY mode.
func DefaultStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Question: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Answer:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWhite)),
		Source:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		InputBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorDarkGray)).
			Padding(0, 1),
		Status: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLimeDim)),
	}
}

// NoColorStyles returns unstyled components for plain mode.
func NoColorStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle(),
		Question: lipgloss.NewStyle(),
		Answer:   lipgloss.NewStyle(),
		Source:   lipgloss.NewStyle(),
		Error:    lipgloss.NewStyle(),
		Dim:      lipgloss.NewStyle(),
		InputBox: lipgloss.NewStyle(),
		Status:   lipgloss.NewStyle(),
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
