package link

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"sonar-radar.klederson.com/internal/config"
)

// SimulatorPath is the port name that selects the simulated controller.
const SimulatorPath = "sim"

// simCommandLog bounds the commands kept for inspection.
const simCommandLog = 64

type simObject struct {
	center   float64 // servo angle in degrees
	width    float64 // angular width in degrees
	distance float64 // cm
	drift    float64 // cm/s of slow radial motion
	phase    float64
}

// Simulator is an in-process stand-in for the scanner controller. It
// reports the distance of a synthetic scene at the last commanded angle
// and accepts angle commands like the real firmware.
type Simulator struct {
	r *io.PipeReader
	w *io.PipeWriter

	mu       sync.Mutex
	angle    float64
	objects  []simObject
	garbage  float64 // probability of emitting an unparsable line
	commands []string

	cancel context.CancelFunc
	once   sync.Once
}

// NewSimulator builds a random scene and starts emitting readings every
// interval.
func NewSimulator(interval time.Duration) *Simulator {
	if interval <= 0 {
		interval = config.SimulatorInterval
	}
	r, w := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	n := 3 + rand.Intn(3)
	objects := make([]simObject, n)
	for i := range objects {
		objects[i] = simObject{
			center:   10 + rand.Float64()*160,
			width:    6 + rand.Float64()*14,
			distance: 8 + rand.Float64()*40,
			drift:    rand.Float64() * 2,
			phase:    rand.Float64() * 2 * math.Pi,
		}
	}

	s := &Simulator{
		r:       r,
		w:       w,
		objects: objects,
		garbage: 0.01,
		cancel:  cancel,
	}
	go s.loop(ctx, interval)
	return s
}

// OpenSimulator is an Opener that ignores the path and mode.
func OpenSimulator(string, *serial.Mode) (Port, error) {
	return NewSimulator(0), nil
}

func (s *Simulator) loop(ctx context.Context, interval time.Duration) {
	defer s.w.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			line := s.reading(now.Sub(start).Seconds())
			if _, err := s.w.Write([]byte(line)); err != nil {
				return
			}
		}
	}
}

func (s *Simulator) reading(t float64) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rand.Float64() < s.garbage {
		return "ERR\r\n"
	}
	d := s.distanceAt(s.angle, t) + (rand.Float64()-0.5)*0.6
	if d < 2 {
		d = 2
	}
	return fmt.Sprintf("%.2f\r\n", d)
}

// distanceAt returns the nearest echo at angle; open space reads as the
// sensor's maximum range.
func (s *Simulator) distanceAt(angle, t float64) float64 {
	nearest := 400.0
	for _, o := range s.objects {
		if math.Abs(angle-o.center) > o.width/2 {
			continue
		}
		d := o.distance + o.drift*math.Sin(t*0.3+o.phase)*5
		if d < nearest {
			nearest = d
		}
	}
	return nearest
}

// Read returns simulated controller output.
func (s *Simulator) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

// Write accepts newline-terminated angle commands.
func (s *Simulator) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cmd := range strings.Split(string(p), "\n") {
		cmd = strings.TrimSpace(cmd)
		if cmd == "" {
			continue
		}
		s.commands = append(s.commands, cmd)
		if n := len(s.commands); n > simCommandLog {
			s.commands = append(s.commands[:0], s.commands[n-simCommandLog:]...)
		}
		var a float64
		if _, err := fmt.Sscan(cmd, &a); err == nil {
			s.angle = math.Max(0, math.Min(config.ServoSpan, a))
		}
	}
	return len(p), nil
}

// Angle returns the last commanded servo angle.
func (s *Simulator) Angle() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.angle
}

// Commands returns the most recent commands, oldest first.
func (s *Simulator) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// Close stops the emitter and unblocks readers.
func (s *Simulator) Close() error {
	s.once.Do(func() {
		s.cancel()
		_ = s.r.Close()
	})
	return nil
}
