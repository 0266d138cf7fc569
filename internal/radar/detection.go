package radar

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
)

// ErrSweepFinished is returned by DetectionController.Step once a sweep
// has completed and the controller is not set to restart.
var ErrSweepFinished = errors.New("detection sweep finished")

// Recorder persists completed sweep records.
type Recorder interface {
	Append(points []Point) error
}

// DetectionConfig parameterises the one-shot object scan.
type DetectionConfig struct {
	Steps       int     // Number of one-degree steps per sweep
	Speed       Speed   // Selects the theta table resolution
	Limit       float64 // Readings are clamped to this distance
	AutoRestart bool    // Start a new sweep after each completed one
}

// DetectionController scans once across the configured range, one degree
// per tick, and records the sweep when it reaches the end.
type DetectionController struct {
	cfg      DetectionConfig
	table    ThetaTable
	link     Link
	recorder Recorder
	rate     *RateEstimator
	opts     options

	angle    int
	points   []Point
	raw      []float64
	history  []float64
	finished bool
}

// NewDetectionController returns a controller at the start of a sweep.
// recorder may be nil.
func NewDetectionController(cfg DetectionConfig, link Link, recorder Recorder, opts ...Option) *DetectionController {
	o := buildOptions(opts)
	return &DetectionController{
		cfg:      cfg,
		table:    NewThetaTable(cfg.Speed.Resolution()),
		link:     link,
		recorder: recorder,
		rate:     NewRateEstimator(o.now()),
		opts:     o,
		history:  make([]float64, cfg.Speed.HistoryLen()),
	}
}

// Angle returns the next servo angle to be sampled.
func (c *DetectionController) Angle() int {
	return c.angle
}

// Reset clears the sweep and homes the servo.
func (c *DetectionController) Reset() error {
	c.clear()
	c.finished = false
	if err := c.link.SendAngle(0); err != nil {
		return fmt.Errorf("home servo: %w", err)
	}
	return nil
}

func (c *DetectionController) clear() {
	c.angle = 0
	c.points = nil
	c.raw = nil
}

// Step samples the next angle, or completes the sweep once every step has
// been sampled. Completion persists the record through the Recorder and
// homes the servo.
func (c *DetectionController) Step(ctx context.Context) (Frame, error) {
	if c.finished {
		return Frame{}, ErrSweepFinished
	}
	if c.angle >= c.cfg.Steps {
		return c.complete(), nil
	}

	v, err := c.link.ReadSample(ctx)
	reading, err := Fallback(v, err)
	if err != nil {
		return Frame{}, fmt.Errorf("read sample: %w", err)
	}
	if reading.Substituted() {
		c.opts.logger.WithError(reading.Err).WithField("angle", c.angle).Warn("substituting zero sample")
	}

	d := reading.Distance
	if d > c.cfg.Limit {
		d = c.cfg.Limit
	}

	p := c.table.Project(float64(c.angle), d)
	if err := c.link.SendAngle(float64(c.angle + 1)); err != nil {
		return Frame{}, fmt.Errorf("send angle %d: %w", c.angle+1, err)
	}
	c.angle++
	c.points = append(c.points, p)
	c.raw = append(c.raw, d)
	c.history = pushHistory(c.history, d)

	rate, _ := c.rate.Update(c.opts.now())
	fr := Frame{
		Mode:     ModeDetect,
		Angle:    float64(c.angle),
		Distance: d,
		Limit:    c.cfg.Limit,
		ReadErr:  reading.Err,
		History:  c.history,
		Current:  Pass{InRange: slices.Clone(c.points)},
		Scanner:  [2]Point{{}, c.table.Project(float64(c.angle), c.cfg.Limit)},
		Rate:     rate,
	}
	if reading.Err != nil {
		fr.Warning = reading.Err.Error()
	}
	c.opts.publish(fr)
	return fr, nil
}

func (c *DetectionController) complete() Frame {
	record := roundRecord(c.points)
	fr := Frame{
		Mode:     ModeDetect,
		Limit:    c.cfg.Limit,
		History:  c.history,
		Forward:  Pass{InRange: record},
		Backward: Pass{InRange: record},
		Record:   record,
		Mean:     mean(c.raw),
		Complete: true,
	}

	log := c.opts.logger.WithField("points", len(record))
	if c.recorder != nil {
		if err := c.recorder.Append(record); err != nil {
			log.WithError(err).Warn("failed to append sweep record")
			fr.Warning = err.Error()
		}
	}
	log.WithField("mean", fr.Mean).Info("detection sweep complete")

	c.clear()
	if err := c.link.SendAngle(0); err != nil {
		log.WithError(err).Warn("failed to home servo")
		fr.Warning = err.Error()
	}
	if !c.cfg.AutoRestart {
		c.finished = true
	}

	c.opts.publish(fr)
	return fr
}

// Run drives one complete sweep and returns its record.
func (c *DetectionController) Run(ctx context.Context) (Record, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fr, err := c.Step(ctx)
		if err != nil {
			return nil, err
		}
		if fr.Complete {
			return fr.Record, nil
		}
	}
}

// roundRecord keeps two decimals of each coordinate, the precision sweeps
// are recorded at.
func roundRecord(points []Point) Record {
	rec := make(Record, len(points))
	for i, p := range points {
		rec[i] = Point{X: round2(p.X), Y: round2(p.Y)}
	}
	return rec
}

func round2(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return r
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}
