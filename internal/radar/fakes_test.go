package radar

import (
	"context"
	"errors"
	"time"
)

// softErr is a read failure the controllers must tolerate.
type softErr struct{ msg string }

func (e softErr) Error() string  { return e.msg }
func (e softErr) NonFatal() bool { return true }

var errHard = errors.New("port closed")

// fakeLink replays scripted samples and records the angles sent.
type fakeLink struct {
	samples []float64
	errs    map[int]error // read index -> error
	reads   int
	sent    []float64
	sendErr error
}

func constantLink(v float64) *fakeLink {
	return &fakeLink{samples: []float64{v}}
}

func (l *fakeLink) ReadSample(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	i := l.reads
	l.reads++
	if err, ok := l.errs[i]; ok {
		return 0, err
	}
	if len(l.samples) == 0 {
		return 0, nil
	}
	if i < len(l.samples) {
		return l.samples[i], nil
	}
	return l.samples[len(l.samples)-1], nil
}

func (l *fakeLink) SendAngle(angle float64) error {
	if l.sendErr != nil {
		return l.sendErr
	}
	l.sent = append(l.sent, angle)
	return nil
}

type fakeRecorder struct {
	records [][]Point
	err     error
}

func (r *fakeRecorder) Append(points []Point) error {
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, points)
	return nil
}

// stepClock advances by a fixed interval on every call.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	t := start
	return func() time.Time {
		now := t
		t = t.Add(step)
		return now
	}
}

type frameLog []Frame

func (f *frameLog) Publish(fr Frame) {
	*f = append(*f, fr)
}
