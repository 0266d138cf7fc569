package ui

import (
	"github.com/charmbracelet/lipgloss"
	"sonar-radar.klederson.com/internal/radar"
)

// Theme is a named colour scheme for the whole screen.
type Theme struct {
	Name       string
	Bright     lipgloss.Color
	Normal     lipgloss.Color
	Mid        lipgloss.Color
	Dim        lipgloss.Color
	Bar        lipgloss.Color
	InRange    lipgloss.Color
	OutOfRange lipgloss.Color
	Passed     lipgloss.Color
}

// Shared across themes
var (
	ColorWarning = lipgloss.Color("#FFAA00")
	ColorError   = lipgloss.Color("#FF3300")
	ColorBlack   = lipgloss.Color("#000000")
)

var themes = []Theme{
	{
		Name:       "matrix",
		Bright:     lipgloss.Color("#00FF41"),
		Normal:     lipgloss.Color("#00CC33"),
		Mid:        lipgloss.Color("#008F11"),
		Dim:        lipgloss.Color("#004A0A"),
		Bar:        lipgloss.Color("#002200"),
		InRange:    lipgloss.Color("#00FFAA"),
		OutOfRange: lipgloss.Color("#FF5F5F"),
		Passed:     lipgloss.Color("#33FF66"),
	},
	{
		Name:       "amber",
		Bright:     lipgloss.Color("#FFB000"),
		Normal:     lipgloss.Color("#E09A00"),
		Mid:        lipgloss.Color("#9A6A00"),
		Dim:        lipgloss.Color("#4A3300"),
		Bar:        lipgloss.Color("#221700"),
		InRange:    lipgloss.Color("#FFE066"),
		OutOfRange: lipgloss.Color("#FF4040"),
		Passed:     lipgloss.Color("#CC8800"),
	},
	{
		Name:       "ice",
		Bright:     lipgloss.Color("#7FDBFF"),
		Normal:     lipgloss.Color("#39CCCC"),
		Mid:        lipgloss.Color("#1F7A8C"),
		Dim:        lipgloss.Color("#0B3642"),
		Bar:        lipgloss.Color("#001A22"),
		InRange:    lipgloss.Color("#E0FFFF"),
		OutOfRange: lipgloss.Color("#FF6F91"),
		Passed:     lipgloss.Color("#5FA8D3"),
	},
	{
		Name:       "crimson",
		Bright:     lipgloss.Color("#FF3355"),
		Normal:     lipgloss.Color("#D7263D"),
		Mid:        lipgloss.Color("#8C1C2B"),
		Dim:        lipgloss.Color("#400A12"),
		Bar:        lipgloss.Color("#220005"),
		InRange:    lipgloss.Color("#FFD166"),
		OutOfRange: lipgloss.Color("#FFFFFF"),
		Passed:     lipgloss.Color("#B5485D"),
	},
}

// ThemeByName returns the named theme, or the first one when unknown.
func ThemeByName(name string) Theme {
	for _, t := range themes {
		if t.Name == name {
			return t
		}
	}
	return themes[0]
}

// NextTheme returns the name of the theme after name, wrapping around.
func NextTheme(name string) string {
	for i, t := range themes {
		if t.Name == name {
			return themes[(i+1)%len(themes)].Name
		}
	}
	return themes[0].Name
}

// Palette returns the scope colours of the theme.
func (t Theme) Palette() radar.Palette {
	return radar.Palette{
		Bright:     t.Bright,
		Mid:        t.Mid,
		Dim:        t.Dim,
		InRange:    t.InRange,
		OutOfRange: t.OutOfRange,
		Passed:     t.Passed,
	}
}

// Styles are the pre-built lipgloss styles of a theme.
type Styles struct {
	Theme Theme

	MenuBar      lipgloss.Style
	MenuKey      lipgloss.Style
	MenuLabel    lipgloss.Style
	StatusBar    lipgloss.Style
	StatusActive lipgloss.Style
	StatusIdle   lipgloss.Style
	StatusError  lipgloss.Style
	PanelBorder  lipgloss.Style
	PanelActive  lipgloss.Style
	PanelTitle   lipgloss.Style
	Separator    lipgloss.Style
	Label        lipgloss.Style
	Value        lipgloss.Style
	Help         lipgloss.Style
	InRange      lipgloss.Style
	OutOfRange   lipgloss.Style
}

// NewStyles builds the styles for t.
func NewStyles(t Theme) Styles {
	return Styles{
		Theme: t,

		MenuBar: lipgloss.NewStyle().
			Background(t.Bar).
			Foreground(t.Bright).
			Bold(true).
			Padding(0, 1),

		MenuKey: lipgloss.NewStyle().
			Foreground(t.Bright).
			Bold(true),

		MenuLabel: lipgloss.NewStyle().
			Foreground(t.Normal),

		StatusBar: lipgloss.NewStyle().
			Background(t.Bar).
			Foreground(t.Normal).
			Padding(0, 1),

		StatusActive: lipgloss.NewStyle().
			Foreground(t.Bright).
			Bold(true),

		StatusIdle: lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true),

		StatusError: lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true),

		PanelBorder: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Mid),

		PanelActive: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Bright),

		PanelTitle: lipgloss.NewStyle().
			Foreground(t.Bright).
			Bold(true).
			Padding(0, 1),

		Separator: lipgloss.NewStyle().
			Foreground(t.Mid),

		Label: lipgloss.NewStyle().
			Foreground(t.Mid),

		Value: lipgloss.NewStyle().
			Foreground(t.Bright).
			Bold(true),

		Help: lipgloss.NewStyle().
			Foreground(t.Dim),

		InRange: lipgloss.NewStyle().
			Foreground(t.InRange).
			Bold(true),

		OutOfRange: lipgloss.NewStyle().
			Foreground(t.OutOfRange).
			Bold(true),
	}
}
