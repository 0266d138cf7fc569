package radar

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"sonar-radar.klederson.com/internal/config"
)

// Palette holds the colours of the scope.
type Palette struct {
	Bright     lipgloss.Color
	Mid        lipgloss.Color
	Dim        lipgloss.Color
	InRange    lipgloss.Color
	OutOfRange lipgloss.Color
	Passed     lipgloss.Color
}

// DefaultPalette is the phosphor green scope.
var DefaultPalette = Palette{
	Bright:     lipgloss.Color("#00FF41"),
	Mid:        lipgloss.Color("#008F11"),
	Dim:        lipgloss.Color("#004A0A"),
	InRange:    lipgloss.Color("#00FFAA"),
	OutOfRange: lipgloss.Color("#FF5F5F"),
	Passed:     lipgloss.Color("#33FF66"),
}

const (
	markInRange  = 'o'
	markOutRange = 'x'
	markPassed   = ':'
	markTrail    = '.'
	markNewest   = 'O'
)

type mark struct {
	ch    rune
	color lipgloss.Color
	bold  bool
}

// scope maps sensor coordinates onto terminal cells. The sensor sits at the
// middle of the bottom row; straight ahead is up.
type scope struct {
	width, height int
	originX       int
	originY       int
	radius        float64
	limit         float64
}

func newScope(width, height int, limit float64) scope {
	s := scope{
		width:   width,
		height:  height,
		originX: width / 2,
		originY: height - 1,
		limit:   limit,
	}
	s.radius = math.Min(float64(s.originX-1), float64(s.originY)/config.AspectRatio)
	if s.radius < 3 {
		s.radius = 3
	}
	return s
}

// cell returns the terminal cell of a point, if it falls on the scope.
func (s scope) cell(p Point) (col, row int, ok bool) {
	if s.limit <= 0 {
		return 0, 0, false
	}
	k := s.radius / s.limit
	col = s.originX + int(math.Round(p.X*k))
	row = s.originY - int(math.Round(p.Y*k*config.AspectRatio))
	ok = col >= 0 && col < s.width && row >= 0 && row < s.height
	return col, row, ok
}

// Render produces the scope display for a frame as a styled string.
func Render(width, height int, fr Frame, pal Palette) string {
	if width < 10 || height < 5 {
		return ""
	}

	s := newScope(width, height, fr.Limit)
	beam := BeamOf(fr)
	marks := plotMarks(s, fr, pal)

	ringRadii := make([]float64, config.RingCount)
	for i := range ringRadii {
		ringRadii[i] = s.radius * float64(i+1) / float64(config.RingCount)
	}

	var sb strings.Builder
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			if m, ok := marks[row*width+col]; ok {
				st := lipgloss.NewStyle().Foreground(m.color).Bold(m.bold)
				sb.WriteString(st.Render(string(m.ch)))
				continue
			}
			sb.WriteString(renderCell(s, col, row, ringRadii, beam, pal))
		}
		if row < height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// plotMarks lays out the point layers, later layers winning a shared cell.
func plotMarks(s scope, fr Frame, pal Palette) map[int]mark {
	marks := make(map[int]mark)
	put := func(points []Point, m mark) {
		for _, p := range points {
			if col, row, ok := s.cell(p); ok {
				marks[row*s.width+col] = m
			}
		}
	}

	passed := mark{ch: markPassed, color: pal.Passed}
	put(fr.Forward.InRange, passed)
	put(fr.Backward.InRange, passed)
	put(fr.Forward.OutOfRange, mark{ch: markPassed, color: pal.OutOfRange})
	put(fr.Backward.OutOfRange, mark{ch: markPassed, color: pal.OutOfRange})
	put(fr.Trail, mark{ch: markTrail, color: pal.Mid})

	current := mark{ch: markInRange, color: pal.InRange, bold: true}
	if fr.Mode == ModeStatic {
		current.ch = markNewest
	}
	put(fr.Current.InRange, current)
	put(fr.Current.OutOfRange, mark{ch: markOutRange, color: pal.OutOfRange, bold: true})
	return marks
}

func renderCell(s scope, col, row int, ringRadii []float64, beam Beam, pal Palette) string {
	dist := CellDistance(col, row, s.originX, s.originY)
	angle := CellAngle(col, row, s.originX, s.originY)

	if dist > s.radius+0.5 {
		return " "
	}

	if col == s.originX && row == s.originY {
		return lipgloss.NewStyle().Foreground(pal.Bright).Bold(true).Render("+")
	}
	if row == s.originY {
		return glow('-', beam.Intensity(angle), pal)
	}
	if col == s.originX {
		return glow('|', beam.Intensity(angle), pal)
	}

	for _, ringR := range ringRadii {
		if math.Abs(dist-ringR) < 0.8 {
			return glow(RingChar(angle), beam.Intensity(angle), pal)
		}
	}

	intensity := beam.Intensity(angle)
	if intensity <= 0 {
		return lipgloss.NewStyle().Foreground(pal.Dim).Render(".")
	}
	return glow('.', intensity, pal)
}

func glow(ch rune, intensity float64, pal Palette) string {
	color := pal.Mid
	switch {
	case intensity > 0.8:
		color = pal.Bright
	case intensity > 0.4:
		color = pal.InRange
	case intensity > 0:
		color = pal.Passed
	}
	return lipgloss.NewStyle().Foreground(color).Render(string(ch))
}

// RenderLegend produces the scope legend line with the range scale.
func RenderLegend(width int, limit float64, pal Palette) string {
	legend := "   " +
		lipgloss.NewStyle().Foreground(pal.InRange).Render(string(markInRange)+" in range") +
		"  " +
		lipgloss.NewStyle().Foreground(pal.OutOfRange).Render(string(markOutRange)+" out of range") +
		"  " +
		lipgloss.NewStyle().Foreground(pal.Passed).Render(string(markPassed)+" last pass") +
		"  " +
		lipgloss.NewStyle().Foreground(pal.Mid).Render(fmt.Sprintf("ring %.0f cm", limit/config.RingCount))

	pad := (width - lipgloss.Width(legend)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + legend
}
