package radar

import (
	"math"

	"sonar-radar.klederson.com/internal/config"
)

// Beam is the scanner line as drawn on the scope.
type Beam struct {
	Theta     float64 // Bearing in radians, 0 = straight ahead
	Direction Direction
	Active    bool
}

// BeamOf derives the beam from a frame's scanner line.
func BeamOf(fr Frame) Beam {
	end := fr.Scanner[1]
	if fr.Mode == ModeIdle || (end.X == 0 && end.Y == 0) {
		return Beam{}
	}
	return Beam{
		Theta:     math.Atan2(end.X, end.Y),
		Direction: fr.Direction,
		Active:    true,
	}
}

// Degrees returns the beam bearing in degrees.
func (b Beam) Degrees() float64 {
	return b.Theta * 180 / math.Pi
}

// Intensity returns the glow intensity [0, 1] for a given cell bearing.
// The glow trails behind the direction of travel.
func (b Beam) Intensity(cellAngle float64) float64 {
	if !b.Active {
		return 0
	}
	diff := b.Theta - cellAngle
	if b.Direction == Backward {
		diff = -diff
	}

	trailRad := config.BeamTrailDeg * math.Pi / 180.0
	if diff < 0 || diff > trailRad {
		return 0
	}

	// Linear falloff: 1.0 at the beam → 0.0 at trail end
	return 1.0 - diff/trailRad
}
