package style

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	Cyan    = lipgloss.Color("#00E5FF") // Primary highlight
	Magenta = lipgloss.Color("#FF1B6B") // Accent
	Yellow  = lipgloss.Color("#FFB500") // Warnings
	Green   = lipgloss.Color("#2AFFAA") // Rewards / success
	Red     = lipgloss.Color("#FF5555") // Burns / errors
	Blue    = lipgloss.Color("#3B82F6") // Info

	Base03 = lipgloss.Color("#1B1D23") // Background
	Base01 = lipgloss.Color("#6C7280") // Muted text
	Base2  = lipgloss.Color("#ECEFF4") // Primary text
	Base1  = lipgloss.Color("#B4BCC8") // Secondary text
)

// Palette provides a centralized color management
type Palette struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Warning   lipgloss.Color
	Info      lipgloss.Color

	Background    lipgloss.Color
	Text          lipgloss.Color
	TextMuted     lipgloss.Color
	TextSecondary lipgloss.Color
}

// DefaultPalette returns the default color palette
func DefaultPalette() Palette {
	return Palette{
		Primary:   Cyan,
		Secondary: Magenta,
		Success:   Green,
		Error:     Red,
		Warning:   Yellow,
		Info:      Blue,

		Background:    Base03,
		Text:          Base2,
		TextMuted:     Base01,
		TextSecondary: Base1,
	}
}

// Styles used by the dashboard panes.
type Styles struct {
	Header  lipgloss.Style
	Title   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Reward  lipgloss.Style
	Burn    lipgloss.Style
	Pane    lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
}

// NewStyles derives the dashboard styles from palette.
func NewStyles(palette Palette) Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Foreground(palette.Text).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Primary).
			Padding(0, 2).
			MarginBottom(1),
		Title: lipgloss.NewStyle().
			Foreground(palette.Primary).
			Bold(true),
		Label:  lipgloss.NewStyle().Foreground(palette.TextSecondary),
		Value:  lipgloss.NewStyle().Foreground(palette.Text).Bold(true),
		Reward: lipgloss.NewStyle().Foreground(palette.Success).Bold(true),
		Burn:   lipgloss.NewStyle().Foreground(palette.Error),
		Pane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(palette.Secondary).
			Padding(0, 1),
		Muted:   lipgloss.NewStyle().Foreground(palette.TextMuted),
		Error:   lipgloss.NewStyle().Foreground(palette.Error).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(palette.Warning),
	}
}

// LevelStyle colors a log level.
func (s Styles) LevelStyle(level string) lipgloss.Style {
	switch level {
	case "error", "dpanic", "panic", "fatal":
		return s.Error
	case "warn":
		return s.Warning
	case "debug":
		return s.Muted
	default:
		return s.Label
	}
}
