package export

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"sonar-radar.klederson.com/internal/radar"
)

// ErrNoSweeps is returned by Render3D when there is nothing to draw.
var ErrNoSweeps = errors.New("no sweeps recorded")

// SweepSpacing is the z distance between consecutive sweeps in the 3D view.
const SweepSpacing = 0.5

// Stack3D lays the sweeps out in layers: sweep i sits at z = i*SweepSpacing.
// It also returns the largest |x| or |y| seen.
func Stack3D(records []radar.Record) ([]opts.Chart3DData, float64) {
	var data []opts.Chart3DData
	extent := 1.0
	for i, rec := range records {
		z := float64(i) * SweepSpacing
		for _, p := range rec {
			data = append(data, opts.Chart3DData{Value: []interface{}{p.X, p.Y, z}})
			extent = math.Max(extent, math.Max(math.Abs(p.X), math.Abs(p.Y)))
		}
	}
	return data, extent
}

// Render3D writes an interactive HTML scatter of every logged sweep.
func Render3D(records []radar.Record, w io.Writer) error {
	if len(records) == 0 {
		return ErrNoSweeps
	}
	data, extent := Stack3D(records)
	depth := math.Max(SweepSpacing, float64(len(records)-1)*SweepSpacing)

	scatter := charts.NewScatter3D()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Sonar sweeps", Theme: "dark", Width: "1000px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{Title: "Recorded sweeps", Subtitle: fmt.Sprintf("sweeps=%d points=%d", len(records), len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxis3DOpts(opts.XAxis3D{Name: "X (cm)", Min: -extent, Max: extent}),
		charts.WithYAxis3DOpts(opts.YAxis3D{Name: "Y (cm)", Min: 0, Max: extent}),
		charts.WithZAxis3DOpts(opts.ZAxis3D{Name: "Sweep", Min: 0, Max: depth}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Dimension:  "2",
			Min:        0,
			Max:        float32(depth),
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#3e4989", "#26828e", "#35b779", "#fde725"}},
		}),
	)
	scatter.AddSeries("sweeps", data)

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("render 3d view: %w", err)
	}
	return nil
}
