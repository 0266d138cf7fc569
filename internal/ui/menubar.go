package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"sonar-radar.klederson.com/internal/config"
)

// MenuKeys is the key legend shown in the menu bar.
var MenuKeys = []struct{ Key, Label string }{
	{"C", "onnect"},
	{"S", "weep"},
	{"O", "bject"},
	{"A", "im"},
	{"X", "stop"},
	{"R", "eset"},
	{"E", "xport"},
	{"M", "theme"},
	{"Q", "uit"},
}

// RenderMenuBar renders the top menu bar.
func RenderMenuBar(width int, st Styles, mode, port string, connected bool) string {
	title := fmt.Sprintf(" %s v%s ", config.AppName, config.AppVersion)

	menu := ""
	for _, k := range MenuKeys {
		menu += "  " + st.MenuKey.Render("["+k.Key+"]") + st.MenuLabel.Render(k.Label)
	}

	status := st.StatusIdle.Render(strings.ToUpper(mode))
	if mode != "idle" {
		status = st.StatusActive.Render(strings.ToUpper(mode))
	}

	portInfo := st.StatusError.Render("not connected")
	if connected {
		portInfo = st.MenuLabel.Render(fmt.Sprintf("Port: %s", port))
	}

	left := st.MenuKey.Render(title) + menu
	right := status + "  " + portInfo + " "

	gap := width - 2 - lipgloss.Width(left) - lipgloss.Width(right) // bar padding
	if gap < 0 {
		gap = 0
	}
	return st.MenuBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}
