package ui

// RenderRadarPanel wraps scope content with a styled border.
// The scope itself is rendered by the radar package.
func RenderRadarPanel(width, height int, st Styles, title, scope, legend string) string {
	content := st.PanelTitle.Render(title) + "\n" + scope + "\n" + legend
	return st.PanelBorder.Width(width - 2).Height(height - 2).Render(content)
}

// ScopeSize returns the drawable area inside a radar panel of the given size.
func ScopeSize(width, height int) (int, int) {
	w := width - 4
	h := height - 4 // border, title, legend
	if w < 10 {
		w = 10
	}
	if h < 5 {
		h = 5
	}
	return w, h
}
