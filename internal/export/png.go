// Package export writes scans to files: a PNG snapshot of the live plots
// and an interactive 3D view of the sweep log.
package export

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"sonar-radar.klederson.com/internal/config"
	"sonar-radar.klederson.com/internal/radar"
)

// ErrFileType is returned for export paths without a .png extension.
var ErrFileType = errors.New("incorrect file type")

var (
	colorInRange  = color.RGBA{R: 0x00, G: 0xFF, B: 0xAA, A: 0xFF}
	colorOutRange = color.RGBA{R: 0xFF, G: 0x5F, B: 0x5F, A: 0xFF}
	colorPassed   = color.RGBA{R: 0x33, G: 0x99, B: 0x55, A: 0xFF}
	colorTrail    = color.RGBA{R: 0x00, G: 0x8F, B: 0x11, A: 0xFF}
	colorScanner  = color.RGBA{R: 0x00, G: 0xC0, B: 0x30, A: 0xFF}
	colorRing     = color.RGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xFF}
)

// CheckPath validates an export destination.
func CheckPath(path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".png") {
		return fmt.Errorf("%w: %q (want .png)", ErrFileType, path)
	}
	return nil
}

// PNG saves the sample history and the polar view of a frame side by side.
func PNG(fr radar.Frame, path string) error {
	if err := CheckPath(path); err != nil {
		return err
	}

	hist, err := historyPlot(fr)
	if err != nil {
		return err
	}
	polar, err := polarPlot(fr)
	if err != nil {
		return err
	}

	img := vgimg.New(16*vg.Inch, 7*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: 1, Cols: 2,
		PadX: vg.Millimeter, PadY: vg.Millimeter,
		PadTop: vg.Points(4), PadBottom: vg.Points(4),
		PadLeft: vg.Points(4), PadRight: vg.Points(4),
	}
	canvases := plot.Align([][]*plot.Plot{{hist, polar}}, tiles, dc)
	hist.Draw(canvases[0][0])
	polar.Draw(canvases[0][1])

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write png: %w", err)
	}
	return f.Close()
}

func historyPlot(fr radar.Frame) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Distance history"
	p.X.Label.Text = "Sample"
	p.Y.Label.Text = "Distance (cm)"

	pts := make(plotter.XYs, len(fr.History))
	top := fr.Limit
	for i, v := range fr.History {
		pts[i] = plotter.XY{X: float64(i), Y: v}
		top = math.Max(top, v)
	}
	if len(pts) > 0 {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("history line: %w", err)
		}
		line.Color = colorScanner
		line.Width = vg.Points(1)
		p.Add(line)
	}

	p.X.Min, p.X.Max = 0, math.Max(1, float64(len(pts)-1))
	p.Y.Min, p.Y.Max = 0, math.Max(1, top)
	return p, nil
}

func polarPlot(fr radar.Frame) (*plot.Plot, error) {
	limit := math.Max(fr.Limit, 1)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Scan (%s)", fr.Mode)
	p.X.Label.Text = "X (cm)"
	p.Y.Label.Text = "Y (cm)"
	p.Add(plotter.NewGrid())

	for i := 1; i <= config.RingCount; i++ {
		if err := addLine(p, arc(limit*float64(i)/config.RingCount), colorRing, ""); err != nil {
			return nil, err
		}
	}

	layers := []struct {
		name   string
		points []radar.Point
		color  color.Color
		radius vg.Length
	}{
		{"last forward", append(append([]radar.Point(nil), fr.Forward.InRange...), fr.Forward.OutOfRange...), colorPassed, 1.5},
		{"last backward", append(append([]radar.Point(nil), fr.Backward.InRange...), fr.Backward.OutOfRange...), colorPassed, 1.5},
		{"trail", fr.Trail, colorTrail, 2},
		{"in range", fr.Current.InRange, colorInRange, 3},
		{"out of range", fr.Current.OutOfRange, colorOutRange, 3},
	}
	for _, l := range layers {
		if err := addScatter(p, l.points, l.color, l.radius, l.name); err != nil {
			return nil, err
		}
	}

	if fr.Mode != radar.ModeIdle {
		scanner := []radar.Point{fr.Scanner[0], fr.Scanner[1]}
		if err := addLine(p, toXYs(scanner), colorScanner, "scanner"); err != nil {
			return nil, err
		}
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	p.X.Min, p.X.Max = -limit, limit
	p.Y.Min, p.Y.Max = 0, limit
	return p, nil
}

func arc(r float64) plotter.XYs {
	pts := make(plotter.XYs, 0, 91)
	for deg := -90; deg <= 90; deg += 2 {
		th := float64(deg) * math.Pi / 180
		pts = append(pts, plotter.XY{X: r * math.Sin(th), Y: r * math.Cos(th)})
	}
	return pts
}

func toXYs(points []radar.Point) plotter.XYs {
	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}
	return xys
}

func addLine(p *plot.Plot, xys plotter.XYs, c color.Color, name string) error {
	line, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("line %s: %w", name, err)
	}
	line.Color = c
	line.Width = vg.Points(1)
	p.Add(line)
	if name != "" {
		p.Legend.Add(name, line)
	}
	return nil
}

func addScatter(p *plot.Plot, points []radar.Point, c color.Color, radius vg.Length, name string) error {
	if len(points) == 0 {
		return nil
	}
	s, err := plotter.NewScatter(toXYs(points))
	if err != nil {
		return fmt.Errorf("scatter %s: %w", name, err)
	}
	s.GlyphStyle.Color = c
	s.GlyphStyle.Radius = vg.Points(float64(radius))
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(s)
	p.Legend.Add(name, s)
	return nil
}
