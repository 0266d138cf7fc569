package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"sonar-radar.klederson.com/internal/radar"
)

// Readout is the numeric view of the latest frame.
type Readout struct {
	Frame   radar.Frame
	Bounds  radar.Bounds
	Sweeps  int       // completed detection sweeps this session
	Means   []float64 // mean distance of recent sweeps, oldest first
	Updated time.Time // when Frame arrived
}

// RenderDetailPanel renders the readout pane: current values, a distance
// gauge and the servo dial.
func RenderDetailPanel(r Readout, width, height int, st Styles) string {
	innerW := width - 4
	if innerW < 20 {
		innerW = 20
	}
	fr := r.Frame

	lines := []string{
		st.PanelTitle.Render("READOUT"),
		st.Separator.Render(strings.Repeat("-", innerW)),
	}

	zone := st.InRange.Render(fr.Zone.String())
	if fr.Zone != radar.ZoneInRange {
		zone = st.OutOfRange.Render(fr.Zone.String())
	}

	lastMean := "-"
	if n := len(r.Means); n > 0 {
		lastMean = fmt.Sprintf("%.1f cm", r.Means[n-1])
	}

	fields := []struct{ label, value string }{
		{"Mode", st.Value.Render(fr.Mode.String())},
		{"Angle", st.Value.Render(fmt.Sprintf("%.1f deg %s", fr.Angle, fr.Direction))},
		{"Distance", st.Value.Render(fmt.Sprintf("%.1f cm", fr.Distance))},
		{"Zone", zone},
		{"Bounds", st.Value.Render(r.Bounds.String())},
		{"Rate", st.Value.Render(fmt.Sprintf("%.1f Hz", fr.Rate))},
		{"Pass", st.Value.Render(formatPass(fr.PassDuration))},
		{"Sweeps", st.Value.Render(fmt.Sprintf("%d (last mean %s)", r.Sweeps, lastMean))},
		{"Updated", st.Value.Render(formatLastSeen(r.Updated))},
	}
	for _, f := range fields {
		lines = append(lines, st.Label.Render(fmt.Sprintf("  %-9s", f.label))+f.value)
	}
	if len(r.Means) > 0 {
		trend := renderChart(r.Means, fr.Limit, innerW-11, 1)[0]
		lines = append(lines, st.Label.Render(fmt.Sprintf("  %-9s", "Trend"))+st.MenuLabel.Render(trend))
	}
	lines = append(lines, "")

	barWidth := innerW - 14
	if barWidth < 10 {
		barWidth = 10
	}
	lines = append(lines, st.Label.Render("  Range ")+renderGauge(fr.Distance, fr.Limit, barWidth, st))

	dialH := height - 2 - len(lines) - 1
	if dialH > 3 {
		dialW := innerW
		if dialW > dialH*4 {
			dialW = dialH * 4
		}
		if dial := RenderServoDial(dialW, dialH, fr.Angle, fr.Distance, fr.Limit, st); dial != "" {
			lines = append(lines, "")
			pad := strings.Repeat(" ", max(0, (innerW-dialW)/2))
			for _, dl := range strings.Split(dial, "\n") {
				lines = append(lines, pad+dl)
			}
		}
	}

	for len(lines) < height-2 {
		lines = append(lines, "")
	}
	if len(lines) > height-2 && height > 2 {
		lines = lines[:height-2]
	}
	return st.PanelBorder.Width(width - 2).Height(height - 2).Render(strings.Join(lines, "\n"))
}

// renderGauge draws distance as a filled bar against the display limit.
func renderGauge(distance, limit float64, width int, st Styles) string {
	ratio := 0.0
	if limit > 0 {
		ratio = math.Max(0, math.Min(distance/limit, 1))
	}
	filled := int(math.Round(ratio * float64(width)))

	filledPart := lipgloss.NewStyle().Foreground(st.Theme.Bright).Render(strings.Repeat("|", filled))
	emptyPart := st.Help.Render(strings.Repeat("-", width-filled))
	return st.Help.Render("[") + filledPart + emptyPart + st.Help.Render("]")
}

func formatPass(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func formatLastSeen(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	if d < time.Second {
		return "now"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm ago", int(d.Minutes()))
}
