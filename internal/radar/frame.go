package radar

import (
	"context"
	"errors"
	"time"

	"sonar-radar.klederson.com/internal/config"
)

// Mode identifies which controller produced a frame.
type Mode int

const (
	ModeIdle Mode = iota
	ModeSweep
	ModeDetect
	ModeStatic
)

func (m Mode) String() string {
	switch m {
	case ModeSweep:
		return "sweep"
	case ModeDetect:
		return "detect"
	case ModeStatic:
		return "static"
	default:
		return "idle"
	}
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Direction of servo travel.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Speed is the scan speed multiplier.
type Speed int

const (
	SpeedNormal Speed = 1
	SpeedFast   Speed = 2
)

// Resolution returns theta table entries per degree. Fast scans halve it.
func (s Speed) Resolution() int {
	if s == SpeedFast {
		return 1
	}
	return 2
}

// Increment returns the servo advance per tick in degrees.
func (s Speed) Increment() float64 {
	if s == SpeedFast {
		return 1
	}
	return 0.5
}

// HistoryLen returns the length of the sample history line.
func (s Speed) HistoryLen() int {
	return config.HistoryBase * s.Resolution()
}

// Pass holds the points of one half-sweep split by zone.
type Pass struct {
	InRange    []Point `json:"in_range"`
	OutOfRange []Point `json:"out_of_range"`
}

// Len returns the number of points in the pass.
func (p Pass) Len() int {
	return len(p.InRange) + len(p.OutOfRange)
}

// Record is the ordered point list of one full detection sweep.
type Record []Point

// Frame is the render-ready projection of a controller step.
type Frame struct {
	Mode         Mode          `json:"mode"`
	Angle        float64       `json:"angle"`
	Direction    Direction     `json:"direction"`
	Distance     float64       `json:"distance"`
	Zone         Zone          `json:"zone"`
	Limit        float64       `json:"limit"`
	ReadErr      error         `json:"-"`
	Warning      string        `json:"warning,omitempty"`
	History      []float64     `json:"history"`
	Current      Pass          `json:"current"`
	Forward      Pass          `json:"forward"`
	Backward     Pass          `json:"backward"`
	Trail        []Point       `json:"trail,omitempty"`
	Scanner      [2]Point      `json:"scanner"`
	Turned       bool          `json:"turned"`
	Rate         float64       `json:"rate"`
	PassDuration time.Duration `json:"pass_duration"`
	Record       Record        `json:"record,omitempty"`
	Mean         float64       `json:"mean,omitempty"`
	Complete     bool          `json:"complete"`
}

// Sink consumes frames for display or forwarding.
type Sink interface {
	Publish(Frame)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Frame)

// Publish calls f.
func (f SinkFunc) Publish(fr Frame) {
	f(fr)
}

// Sinks fans a frame out to every member.
type Sinks []Sink

// Publish forwards the frame to all non-nil sinks.
func (s Sinks) Publish(fr Frame) {
	for _, sink := range s {
		if sink != nil {
			sink.Publish(fr)
		}
	}
}

// Link is the duplex connection to the scanner controller.
type Link interface {
	ReadSample(ctx context.Context) (float64, error)
	SendAngle(angle float64) error
}

// Reading is a distance sample, possibly substituted after a failed read.
type Reading struct {
	Distance float64
	Err      error
}

// Substituted reports whether the reading replaced a failed read.
func (r Reading) Substituted() bool {
	return r.Err != nil
}

type nonFatal interface {
	NonFatal() bool
}

// Fallback applies the zero-substitution policy to a read result. Errors
// that report themselves as non-fatal become a zero Reading carrying the
// cause; any other error is returned unchanged.
func Fallback(v float64, err error) (Reading, error) {
	if err == nil {
		return Reading{Distance: v}, nil
	}
	var nf nonFatal
	if errors.As(err, &nf) && nf.NonFatal() {
		return Reading{Distance: 0, Err: err}, nil
	}
	return Reading{}, err
}

func pushHistory(h []float64, v float64) []float64 {
	if len(h) == 0 {
		return h
	}
	next := make([]float64, len(h))
	copy(next, h[1:])
	next[len(next)-1] = v
	return next
}
