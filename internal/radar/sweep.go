package radar

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// SweepConfig parameterises the oscillating scan.
type SweepConfig struct {
	Steps  int    // Servo angle at which the scan turns back, in degrees
	Speed  Speed  // Scan speed multiplier
	Bounds Bounds // Threshold bounds and display limit
	Policy Policy // Zone policy; ReferencePolicy(Bounds) when nil
}

func (c SweepConfig) policy() Policy {
	if c.Policy != nil {
		return c.Policy
	}
	return ReferencePolicy(c.Bounds)
}

// SweepState is the complete state of an oscillating scan between ticks.
type SweepState struct {
	Angle        float64
	Direction    Direction
	History      []float64
	Current      Pass // In-progress half-sweep
	Forward      Pass // Last completed pass that ended at Steps
	Backward     Pass // Last completed pass that ended at 0
	PassStarted  time.Time
	PassDuration time.Duration
}

// NewSweepState returns the state of a scan parked at angle 0.
func NewSweepState(cfg SweepConfig, now time.Time) SweepState {
	return SweepState{
		Direction:   Forward,
		History:     make([]float64, cfg.Speed.HistoryLen()),
		PassStarted: now,
	}
}

// Tick describes what a single Advance did.
type Tick struct {
	Reading Reading
	Zone    Zone
	Point   Point
	Turned  bool
}

// Advance applies one reading taken at s.Angle and returns the next state.
// s itself is not modified.
func Advance(cfg SweepConfig, table ThetaTable, s SweepState, r Reading, now time.Time) (SweepState, Tick) {
	next := s
	next.History = pushHistory(s.History, r.Distance)

	tick := Tick{Reading: r, Zone: cfg.policy()(r.Distance)}
	tick.Point = table.Project(s.Angle, r.Distance)

	cur := Pass{
		InRange:    slices.Clip(s.Current.InRange),
		OutOfRange: slices.Clip(s.Current.OutOfRange),
	}
	switch tick.Zone {
	case ZoneInRange:
		cur.InRange = append(cur.InRange, tick.Point)
	case ZoneOutOfRange:
		cur.OutOfRange = append(cur.OutOfRange, tick.Point)
	}

	switch {
	case s.Angle >= float64(cfg.Steps):
		next.Direction = Backward
		next.Forward = cur
		cur = Pass{}
		tick.Turned = true
	case s.Angle <= 0:
		next.Direction = Forward
		next.Backward = cur
		cur = Pass{}
		tick.Turned = true
	}
	next.Current = cur

	if tick.Turned {
		next.PassDuration = now.Sub(s.PassStarted)
		next.PassStarted = now
	}

	if next.Direction == Forward {
		next.Angle = s.Angle + cfg.Speed.Increment()
	} else {
		next.Angle = s.Angle - cfg.Speed.Increment()
	}
	return next, tick
}

// SweepController runs the oscillating scan against a Link.
type SweepController struct {
	cfg   SweepConfig
	table ThetaTable
	link  Link
	rate  *RateEstimator
	opts  options
	state SweepState
}

// NewSweepController returns a controller parked at angle 0.
func NewSweepController(cfg SweepConfig, link Link, opts ...Option) *SweepController {
	o := buildOptions(opts)
	now := o.now()
	return &SweepController{
		cfg:   cfg,
		table: NewThetaTable(cfg.Speed.Resolution()),
		link:  link,
		rate:  NewRateEstimator(now),
		opts:  o,
		state: NewSweepState(cfg, now),
	}
}

// State returns the current state.
func (c *SweepController) State() SweepState {
	return c.state
}

// Step reads one sample, advances the scan, commands the servo and
// publishes the resulting frame. Non-fatal read failures are substituted
// with zero; other failures abort the step without changing state.
func (c *SweepController) Step(ctx context.Context) (Frame, error) {
	v, err := c.link.ReadSample(ctx)
	reading, err := Fallback(v, err)
	if err != nil {
		return Frame{}, fmt.Errorf("read sample: %w", err)
	}
	if reading.Substituted() {
		c.opts.logger.WithError(reading.Err).WithField("angle", c.state.Angle).Warn("substituting zero sample")
	}

	now := c.opts.now()
	next, tick := Advance(c.cfg, c.table, c.state, reading, now)

	if err := c.link.SendAngle(next.Angle); err != nil {
		return Frame{}, fmt.Errorf("send angle %g: %w", next.Angle, err)
	}
	c.state = next

	rate, rerr := c.rate.Update(now)
	if rerr != nil {
		c.opts.logger.WithError(rerr).Debug("tick rate clamped")
	}

	fr := c.frame(tick, rate)
	c.opts.publish(fr)
	return fr, nil
}

func (c *SweepController) frame(t Tick, rate float64) Frame {
	s := c.state
	fr := Frame{
		Mode:         ModeSweep,
		Angle:        s.Angle,
		Direction:    s.Direction,
		Distance:     t.Reading.Distance,
		Zone:         t.Zone,
		Limit:        c.cfg.Bounds.Limit,
		ReadErr:      t.Reading.Err,
		History:      s.History,
		Current:      s.Current,
		Forward:      s.Forward,
		Backward:     s.Backward,
		Scanner:      [2]Point{{}, c.table.Project(s.Angle, c.cfg.Bounds.Limit)},
		Turned:       t.Turned,
		Rate:         rate,
		PassDuration: s.PassDuration,
	}
	if t.Reading.Err != nil {
		fr.Warning = t.Reading.Err.Error()
	}
	return fr
}
