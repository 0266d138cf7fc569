package radar

import "fmt"

// Zone is the classification of a single distance reading.
type Zone int

const (
	ZoneInRange Zone = iota
	ZoneOutOfRange
	ZoneBeyondLimit
)

func (z Zone) String() string {
	switch z {
	case ZoneOutOfRange:
		return "out_of_range"
	case ZoneBeyondLimit:
		return "beyond_limit"
	default:
		return "in_range"
	}
}

// MarshalText encodes the zone by name.
func (z Zone) MarshalText() ([]byte, error) {
	return []byte(z.String()), nil
}

// Bounds are the two threshold distances and the display limit, in cm.
// Low <= High <= Limit is expected but not enforced here.
type Bounds struct {
	Low   float64
	High  float64
	Limit float64
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%g, %g] limit %g", b.Low, b.High, b.Limit)
}

// AtOrBeyondHigh reports High <= d <= Limit.
func (b Bounds) AtOrBeyondHigh(d float64) bool {
	return b.High <= d && d <= b.Limit
}

// AtOrBelowLow reports d <= Low.
func (b Bounds) AtOrBelowLow(d float64) bool {
	return d <= b.Low
}

// AtOrBeyondLow reports Low <= d <= Limit.
func (b Bounds) AtOrBeyondLow(d float64) bool {
	return b.Low <= d && d <= b.Limit
}

// AtOrBelowHigh reports d <= High.
func (b Bounds) AtOrBelowHigh(d float64) bool {
	return d <= b.High
}

// Policy maps a distance to a Zone.
type Policy func(d float64) Zone

// ReferencePolicy treats the band strictly between Low and High as out of
// range; readings at or beyond High (up to Limit) or at or below Low are in
// range. Readings past Limit that match neither band are beyond the limit.
func ReferencePolicy(b Bounds) Policy {
	return func(d float64) Zone {
		switch {
		case b.AtOrBeyondHigh(d) || b.AtOrBelowLow(d):
			return ZoneInRange
		case d > b.Limit:
			return ZoneBeyondLimit
		default:
			return ZoneOutOfRange
		}
	}
}

// LiteralPolicy keeps the bound roles swapped: in range when
// Low <= d <= Limit or d <= High. With Low <= High every reading inside the
// limit is in range.
func LiteralPolicy(b Bounds) Policy {
	return func(d float64) Zone {
		switch {
		case b.AtOrBeyondLow(d) || b.AtOrBelowHigh(d):
			return ZoneInRange
		case d > b.Limit:
			return ZoneBeyondLimit
		default:
			return ZoneOutOfRange
		}
	}
}
