package ui

import "github.com/charmbracelet/lipgloss"

// Color palette - single cyan accent with semantic score colors
const (
	ColorCyan     = "51"  // Primary accent - titles, matched text
	ColorCyanDim  = "30"  // Dimmed accent for labels
	ColorWhite    = "255" // Important text
	ColorGray     = "245" // Secondary text
	ColorDarkGray = "238" // Separators, metadata
	ColorGreen    = "82"  // Strong scores
	ColorYellow   = "220" // Middling scores, warnings
	ColorRed      = "196" // Weak scores, errors
)

// Styles holds the render styles for terminal output.
type Styles struct {
	Title     lipgloss.Style
	Match     lipgloss.Style
	Label     lipgloss.Style
	Dim       lipgloss.Style
	Snippet   lipgloss.Style
	ScoreHigh lipgloss.Style
	ScoreMid  lipgloss.Style
	ScoreLow  lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
}

// DefaultStyles returns styled components for interactive terminals.
func DefaultStyles() Styles {
	return Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorCyan)),
		Match:     lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color(ColorCyan)),
		Label:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorCyanDim)),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Snippet:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		ScoreHigh: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorGreen)),
		ScoreMid:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		ScoreLow:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Warning:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
	}
}

// NoColorStyles returns unstyled components for plain mode.
func NoColorStyles() Styles {
	return Styles{
		Title:     lipgloss.NewStyle(),
		Match:     lipgloss.NewStyle(),
		Label:     lipgloss.NewStyle(),
		Dim:       lipgloss.NewStyle(),
		Snippet:   lipgloss.NewStyle(),
		ScoreHigh: lipgloss.NewStyle(),
		ScoreMid:  lipgloss.NewStyle(),
		ScoreLow:  lipgloss.NewStyle(),
		Warning:   lipgloss.NewStyle(),
		Error:     lipgloss.NewStyle(),
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}

// Score picks the style tier for a relevance score.
func (s Styles) Score(score float64) lipgloss.Style {
	switch {
	case score >= 80:
		return s.ScoreHigh
	case score >= 50:
		return s.ScoreMid
	default:
		return s.ScoreLow
	}
}
