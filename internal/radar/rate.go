package radar

import (
	"errors"
	"time"

	"sonar-radar.klederson.com/internal/config"
)

// ErrZeroInterval is returned by RateEstimator.Update when two ticks share
// a timestamp. The returned rate is still valid.
var ErrZeroInterval = errors.New("zero interval between ticks")

// RateEstimator keeps an exponential moving average of the tick rate.
type RateEstimator struct {
	last time.Time
	ema  float64
}

// NewRateEstimator starts measuring from start.
func NewRateEstimator(start time.Time) *RateEstimator {
	return &RateEstimator{last: start}
}

// Update folds the interval since the previous call into the average and
// returns the smoothed rate in ticks per second.
func (r *RateEstimator) Update(now time.Time) (float64, error) {
	dt := now.Sub(r.last).Seconds()
	r.last = now

	var err error
	instant := 1.0
	if dt == 0 {
		err = ErrZeroInterval
	} else {
		instant = 1 / dt
	}
	r.ema = r.ema*(1-config.SmoothingAlpha) + instant*config.SmoothingAlpha
	return r.ema, err
}

// Rate returns the current smoothed rate.
func (r *RateEstimator) Rate() float64 {
	return r.ema
}
