package radar

import (
	"math"

	"sonar-radar.klederson.com/internal/config"
)

// Point is a Cartesian projection of a polar reading. Y points away from
// the sensor, X to its right.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Polar converts a bearing (radians, 0 = straight ahead, positive to the
// right) and a range into a Point.
func Polar(theta, r float64) Point {
	return Point{X: r * math.Sin(theta), Y: r * math.Cos(theta)}
}

// ThetaTable maps servo angle steps to bearings spanning -90°..+90°.
type ThetaTable struct {
	resolution int
	theta      []float64
}

// NewThetaTable builds a table with `resolution` entries per degree of
// servo travel, plus the closing entry.
func NewThetaTable(resolution int) ThetaTable {
	if resolution < 1 {
		resolution = 1
	}
	n := config.ServoSpan*resolution + 1
	theta := make([]float64, n)
	for i := range theta {
		theta[i] = -math.Pi/2 + math.Pi*float64(i)/float64(n-1)
	}
	return ThetaTable{resolution: resolution, theta: theta}
}

// Len returns the number of entries.
func (t ThetaTable) Len() int {
	return len(t.theta)
}

// Resolution returns entries per degree.
func (t ThetaTable) Resolution() int {
	return t.resolution
}

// Index returns the table index for a servo angle, clamped to the table.
func (t ThetaTable) Index(angle float64) int {
	i := int(angle * float64(t.resolution))
	if i < 0 {
		return 0
	}
	if i >= len(t.theta) {
		return len(t.theta) - 1
	}
	return i
}

// At returns the bearing for a servo angle.
func (t ThetaTable) At(angle float64) float64 {
	return t.theta[t.Index(angle)]
}

// Project converts a reading taken at a servo angle into a Point.
func (t ThetaTable) Project(angle, distance float64) Point {
	return Polar(t.At(angle), distance)
}

// CellDistance computes the distance from a cell to the scope origin,
// accounting for terminal aspect ratio.
func CellDistance(col, row, originX, originY int) float64 {
	dx := float64(col - originX)
	dy := float64(originY-row) / config.AspectRatio
	return math.Sqrt(dx*dx + dy*dy)
}

// CellAngle computes the bearing from the origin to a cell.
// Returns radians where 0 = straight up, negative to the left.
func CellAngle(col, row, originX, originY int) float64 {
	dx := float64(col - originX)
	dy := float64(originY-row) / config.AspectRatio
	return math.Atan2(dx, dy)
}

// RingChar returns the appropriate character for a ring at the given bearing.
func RingChar(angle float64) rune {
	angle = NormalizeAngle(angle)

	// 8 sectors for character selection
	sector := int(math.Round(angle/(math.Pi/4))) % 8

	switch sector {
	case 0, 4:
		return '-'
	case 1, 5:
		return '\\'
	case 2, 6:
		return '|'
	case 3, 7:
		return '/'
	default:
		return '.'
	}
}

// NormalizeAngle wraps an angle to [0, 2π).
func NormalizeAngle(a float64) float64 {
	for a < 0 {
		a += 2 * math.Pi
	}
	for a >= 2*math.Pi {
		a -= 2 * math.Pi
	}
	return a
}
