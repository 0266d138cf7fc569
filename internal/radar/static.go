package radar

import (
	"context"
	"fmt"
	"slices"

	"sonar-radar.klederson.com/internal/config"
)

// StaticConfig parameterises fixed-angle monitoring.
type StaticConfig struct {
	Angle  float64
	Speed  Speed
	Bounds Bounds
	Policy Policy
}

// StaticController samples repeatedly at one servo angle.
type StaticController struct {
	cfg     StaticConfig
	table   ThetaTable
	link    Link
	rate    *RateEstimator
	opts    options
	history []float64
	trail   []Point
}

// NewStaticController returns a controller aimed at cfg.Angle. Call Aim to
// move the servo before stepping.
func NewStaticController(cfg StaticConfig, link Link, opts ...Option) *StaticController {
	o := buildOptions(opts)
	cfg.Angle = clampAngle(cfg.Angle)
	return &StaticController{
		cfg:     cfg,
		table:   NewThetaTable(cfg.Speed.Resolution()),
		link:    link,
		rate:    NewRateEstimator(o.now()),
		opts:    o,
		history: make([]float64, cfg.Speed.HistoryLen()),
		trail:   make([]Point, config.StaticTrailSize),
	}
}

// Angle returns the fixed servo angle.
func (c *StaticController) Angle() float64 {
	return c.cfg.Angle
}

// Aim moves the servo to angle and clears the trail.
func (c *StaticController) Aim(angle float64) error {
	c.cfg.Angle = clampAngle(angle)
	c.trail = make([]Point, config.StaticTrailSize)
	if err := c.link.SendAngle(c.cfg.Angle); err != nil {
		return fmt.Errorf("aim servo at %g: %w", c.cfg.Angle, err)
	}
	return nil
}

// Step reads one sample at the fixed angle.
func (c *StaticController) Step(ctx context.Context) (Frame, error) {
	v, err := c.link.ReadSample(ctx)
	reading, err := Fallback(v, err)
	if err != nil {
		return Frame{}, fmt.Errorf("read sample: %w", err)
	}

	c.history = pushHistory(c.history, reading.Distance)

	policy := c.cfg.Policy
	if policy == nil {
		policy = ReferencePolicy(c.cfg.Bounds)
	}
	zone := policy(reading.Distance)
	p := c.table.Project(c.cfg.Angle, reading.Distance)
	c.trail = append(slices.Clone(c.trail[1:]), p)

	var current Pass
	switch zone {
	case ZoneInRange:
		current.InRange = []Point{p}
	case ZoneOutOfRange:
		current.OutOfRange = []Point{p}
	}

	rate, _ := c.rate.Update(c.opts.now())
	fr := Frame{
		Mode:     ModeStatic,
		Angle:    c.cfg.Angle,
		Distance: reading.Distance,
		Zone:     zone,
		Limit:    c.cfg.Bounds.Limit,
		ReadErr:  reading.Err,
		History:  c.history,
		Current:  current,
		Trail:    slices.Clone(c.trail[:5]),
		Scanner:  [2]Point{{}, c.table.Project(c.cfg.Angle, c.cfg.Bounds.Limit)},
		Rate:     rate,
	}
	if reading.Err != nil {
		fr.Warning = reading.Err.Error()
		c.opts.logger.WithError(reading.Err).WithField("angle", c.cfg.Angle).Warn("substituting zero sample")
	}
	c.opts.publish(fr)
	return fr, nil
}

func clampAngle(a float64) float64 {
	if a < 0 {
		return 0
	}
	if a > config.ServoSpan {
		return config.ServoSpan
	}
	return a
}
