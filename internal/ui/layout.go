package ui

import "github.com/charmbracelet/lipgloss"

const (
	menuHeight   = 1
	statusHeight = 1
	minRadarW    = 30
	minSideW     = 24
	minBodyH     = 5
)

// Layout selects the optional right-hand panes.
type Layout struct {
	ShowTop    bool // sample history
	ShowBottom bool // readout
}

// Rect is a screen region in cells.
type Rect struct {
	X, Y, W, H int
}

// Empty reports whether the region has no area.
func (r Rect) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Plan is the set of regions for one screen size.
type Plan struct {
	Menu   Rect
	Radar  Rect
	Top    Rect
	Bottom Rect
	Status Rect
}

// PlanLayout splits the screen: menu bar on top, status bar at the bottom,
// the scope on the left and the enabled panes stacked on the right. A
// hidden pane gets an empty Rect and the scope widens when both are hidden.
func PlanLayout(width, height int, l Layout) Plan {
	bodyH := height - menuHeight - statusHeight
	if bodyH < minBodyH {
		bodyH = minBodyH
	}
	bodyY := menuHeight

	p := Plan{
		Menu:   Rect{0, 0, width, menuHeight},
		Status: Rect{0, bodyY + bodyH, width, statusHeight},
	}

	if !l.ShowTop && !l.ShowBottom {
		p.Radar = Rect{0, bodyY, width, bodyH}
		return p
	}

	radarW := width * 2 / 3
	if radarW < minRadarW {
		radarW = minRadarW
	}
	sideW := width - radarW
	if sideW < minSideW {
		sideW = minSideW
		radarW = width - sideW
	}
	if radarW < 0 {
		radarW = 0
	}
	p.Radar = Rect{0, bodyY, radarW, bodyH}

	switch {
	case l.ShowTop && l.ShowBottom:
		topH := bodyH / 2
		p.Top = Rect{radarW, bodyY, sideW, topH}
		p.Bottom = Rect{radarW, bodyY + topH, sideW, bodyH - topH}
	case l.ShowTop:
		p.Top = Rect{radarW, bodyY, sideW, bodyH}
	default:
		p.Bottom = Rect{radarW, bodyY, sideW, bodyH}
	}
	return p
}

// ComposeLayout joins the scope and the side panes horizontally,
// with menu bar on top and status bar on bottom.
func ComposeLayout(menuBar, radarPanel, top, bottom, statusBar string) string {
	var side []string
	if top != "" {
		side = append(side, top)
	}
	if bottom != "" {
		side = append(side, bottom)
	}

	middle := radarPanel
	if len(side) > 0 {
		middle = lipgloss.JoinHorizontal(lipgloss.Top, radarPanel, lipgloss.JoinVertical(lipgloss.Left, side...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, menuBar, middle, statusBar)
}
