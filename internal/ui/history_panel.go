package ui

import (
	"fmt"
	"strings"
)

var sparkChars = []byte{'_', '.', '-', '~', '^'}

// RenderHistoryPanel renders the sample history as stacked sparkline rows.
func RenderHistoryPanel(history []float64, limit float64, width, height int, st Styles) string {
	innerW := width - 4
	if innerW < 10 {
		innerW = 10
	}
	innerH := height - 2
	if innerH < 3 {
		innerH = 3
	}

	title := st.PanelTitle.Render(fmt.Sprintf("HISTORY [%d]", len(history)))
	lines := []string{title, st.Separator.Render(strings.Repeat("-", innerW))}

	rows := innerH - len(lines) - 1
	if rows < 1 {
		rows = 1
	}
	for _, row := range renderChart(history, limit, innerW, rows) {
		lines = append(lines, st.MenuLabel.Render(row))
	}
	if n := len(history); n > 0 {
		lines = append(lines, st.Label.Render(fmt.Sprintf("last %.1f cm  max %.0f cm", history[n-1], limit)))
	}

	for len(lines) < innerH {
		lines = append(lines, "")
	}
	return st.PanelBorder.Width(width - 2).Height(height - 2).Render(strings.Join(lines, "\n"))
}

// renderChart scales the most recent width values into rows of text, top
// row first. Each value fills its column up to a sparkline glyph.
func renderChart(values []float64, limit float64, width, rows int) []string {
	out := make([]string, rows)
	if len(values) == 0 || width <= 0 {
		return out
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	top := limit
	for _, v := range values {
		if v > top {
			top = v
		}
	}
	if top <= 0 {
		top = 1
	}

	levels := rows * len(sparkChars)
	grid := make([][]byte, rows)
	for r := range grid {
		grid[r] = []byte(strings.Repeat(" ", len(values)))
	}
	for c, v := range values {
		lvl := int(v / top * float64(levels-1))
		if lvl < 0 {
			lvl = 0
		}
		full, part := lvl/len(sparkChars), lvl%len(sparkChars)
		for r := 0; r < full; r++ {
			grid[rows-1-r][c] = '|'
		}
		if full < rows {
			grid[rows-1-full][c] = sparkChars[part]
		}
	}
	for r := range grid {
		out[r] = string(grid[r])
	}
	return out
}
