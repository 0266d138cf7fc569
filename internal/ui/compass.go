package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderServoDial renders a half dial with a needle at the servo angle.
// angle: degrees of servo travel, 0 = far left, 180 = far right. The needle
// length follows distance/limit, so a near echo gives a short needle.
func RenderServoDial(width, height int, angle, distance, limit float64, st Styles) string {
	if width < 9 || height < 4 {
		return ""
	}

	grid := make([][]byte, height)
	isNeedle := make([][]bool, height)
	for i := range grid {
		grid[i] = []byte(strings.Repeat(" ", width))
		isNeedle[i] = make([]bool, width)
	}

	fcx := float64(width-1) / 2.0
	fcy := float64(height - 1)
	rx := fcx - 1
	ry := fcy - 1
	if ry < 2 {
		ry = 2
	}

	// Dial arc
	steps := 60
	for i := 0; i <= steps; i++ {
		th := -math.Pi/2 + math.Pi*float64(i)/float64(steps)
		col := int(math.Round(fcx + rx*math.Sin(th)))
		row := int(math.Round(fcy - ry*math.Cos(th)))
		setGrid(grid, width, height, col, row, arcChar(th))
	}

	cx := int(math.Round(fcx))
	cy := int(math.Round(fcy))
	setGrid(grid, width, height, 0, cy, 'L')
	setGrid(grid, width, height, width-1, cy, 'R')

	frac := 1.0
	if limit > 0 {
		frac = math.Max(0.25, math.Min(distance/limit, 1.0))
	}
	theta := -math.Pi/2 + math.Pi*angle/180

	shaftSteps := int(math.Max(rx, ry)*frac) + 1
	tipCol, tipRow := cx, cy
	for s := 1; s <= shaftSteps; s++ {
		t := float64(s) / float64(shaftSteps) * frac * 0.9
		col := int(math.Round(fcx + t*rx*math.Sin(theta)))
		row := int(math.Round(fcy - t*ry*math.Cos(theta)))
		if col >= 0 && col < width && row >= 0 && row < height {
			grid[row][col] = shaftChar(theta)
			isNeedle[row][col] = true
			tipCol, tipRow = col, row
		}
	}
	grid[tipRow][tipCol] = '*'
	isNeedle[tipRow][tipCol] = true
	setGrid(grid, width, height, cx, cy, '+')

	needleSty := st.Value
	arcSty := lipgloss.NewStyle().Foreground(st.Theme.Dim)
	markSty := st.MenuKey

	var sb strings.Builder
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			ch := grid[row][col]
			switch {
			case ch == 'L' || ch == 'R' || ch == '+':
				sb.WriteString(markSty.Render(string(ch)))
			case isNeedle[row][col]:
				sb.WriteString(needleSty.Render(string(ch)))
			case ch != ' ':
				sb.WriteString(arcSty.Render(string(ch)))
			default:
				sb.WriteByte(' ')
			}
		}
		if row < height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func setGrid(grid [][]byte, w, h, col, row int, ch byte) {
	if col >= 0 && col < w && row >= 0 && row < h {
		grid[row][col] = ch
	}
}

// arcChar picks the outline glyph for a bearing on the dial.
func arcChar(th float64) byte {
	switch a := math.Abs(th); {
	case a < math.Pi/8:
		return '-'
	case a > 3*math.Pi/8:
		return '|'
	case th < 0:
		return '/'
	default:
		return '\\'
	}
}

// shaftChar returns the line character for a needle bearing.
func shaftChar(th float64) byte {
	switch a := math.Abs(th); {
	case a < math.Pi/8:
		return '|'
	case a > 3*math.Pi/8:
		return '-'
	case th < 0:
		return '\\'
	default:
		return '/'
	}
}
