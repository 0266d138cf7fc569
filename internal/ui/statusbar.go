package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Status is the content of the bottom bar.
type Status struct {
	Active  bool
	Message string
	Err     string
	Angle   float64
	Rate    float64
	Limit   float64
	Speed   int
}

// RenderStatusBar renders the bottom status bar. An error replaces the
// message until the next successful step.
func RenderStatusBar(width int, st Styles, s Status) string {
	state := st.StatusIdle.Render("[STOPPED]")
	if s.Active {
		state = st.StatusActive.Render("[RUNNING]")
	}

	info := fmt.Sprintf(" Angle: %5.1fdeg  Rate: %5.1f Hz  Range: 0-%.0fcm  Speed: %dx ",
		s.Angle, s.Rate, s.Limit, s.Speed)

	msg := st.MenuLabel.Render(s.Message)
	if s.Err != "" {
		msg = st.StatusError.Render(s.Err)
	}

	content := state + st.MenuLabel.Render(info) + msg

	gap := width - 2 - lipgloss.Width(content)
	if gap < 0 {
		gap = 0
	}
	return st.StatusBar.Width(width).Render(content + strings.Repeat(" ", gap))
}
