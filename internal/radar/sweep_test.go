package radar

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBounds = Bounds{Low: 10, High: 20, Limit: 50}

func TestAdvanceTurnsOnlyAtExtremes(t *testing.T) {
	for _, speed := range []Speed{SpeedNormal, SpeedFast} {
		cfg := SweepConfig{Steps: 10, Speed: speed, Bounds: testBounds}
		table := NewThetaTable(speed.Resolution())
		now := time.Unix(0, 0)
		s := NewSweepState(cfg, now)

		turns := 0
		for i := 0; i < 200; i++ {
			angle := s.Angle
			var tick Tick
			s, tick = Advance(cfg, table, s, Reading{Distance: 30}, now.Add(time.Duration(i)*time.Second))

			atExtreme := angle <= 0 || angle >= 10
			require.Equal(t, atExtreme, tick.Turned, "speed %d angle %g", speed, angle)
			if tick.Turned {
				turns++
				assert.Zero(t, s.Current.Len(), "lists cleared on turn")
			}
			assert.GreaterOrEqual(t, s.Angle, 0.0)
			assert.LessOrEqual(t, s.Angle, 10.0)
		}
		assert.Greater(t, turns, 2)
	}
}

func TestAdvanceSnapshotsPasses(t *testing.T) {
	cfg := SweepConfig{Steps: 2, Speed: SpeedFast, Bounds: testBounds}
	table := NewThetaTable(1)
	now := time.Unix(0, 0)
	s := NewSweepState(cfg, now)

	// angle 0 turns immediately and starts the forward pass
	s, _ = Advance(cfg, table, s, Reading{Distance: 30}, now)
	s, _ = Advance(cfg, table, s, Reading{Distance: 15}, now.Add(time.Second))
	assert.Len(t, s.Current.InRange, 0)
	assert.Len(t, s.Current.OutOfRange, 1)

	s, tick := Advance(cfg, table, s, Reading{Distance: 40}, now.Add(3*time.Second))
	require.True(t, tick.Turned)
	assert.Equal(t, Backward, s.Direction)
	assert.Equal(t, 1.0, s.Angle)
	assert.Len(t, s.Forward.OutOfRange, 1)
	assert.Len(t, s.Forward.InRange, 1)
	assert.Equal(t, 3*time.Second, s.PassDuration)
}

func TestAdvanceDoesNotMutateInput(t *testing.T) {
	cfg := SweepConfig{Steps: 10, Speed: SpeedNormal, Bounds: testBounds}
	table := NewThetaTable(2)
	s := NewSweepState(cfg, time.Unix(0, 0))
	s, _ = Advance(cfg, table, s, Reading{Distance: 30}, time.Unix(1, 0))
	s, _ = Advance(cfg, table, s, Reading{Distance: 30}, time.Unix(2, 0))

	before := s
	before.History = slices.Clone(s.History)
	before.Current = clonePass(s.Current)
	before.Forward = clonePass(s.Forward)
	before.Backward = clonePass(s.Backward)
	_, _ = Advance(cfg, table, s, Reading{Distance: 5}, time.Unix(3, 0))

	if diff := cmp.Diff(before, s); diff != "" {
		t.Errorf("input state changed (-want +got):\n%s", diff)
	}
}

func clonePass(p Pass) Pass {
	return Pass{InRange: slices.Clone(p.InRange), OutOfRange: slices.Clone(p.OutOfRange)}
}

func TestAdvanceHistoryLength(t *testing.T) {
	cfg := SweepConfig{Steps: 180, Speed: SpeedNormal, Bounds: testBounds}
	s := NewSweepState(cfg, time.Unix(0, 0))
	require.Len(t, s.History, 400)

	s, _ = Advance(cfg, NewThetaTable(2), s, Reading{Distance: 7}, time.Unix(1, 0))
	assert.Len(t, s.History, 400)
	assert.Equal(t, 7.0, s.History[len(s.History)-1])

	fast := SweepConfig{Steps: 180, Speed: SpeedFast}
	assert.Len(t, NewSweepState(fast, time.Unix(0, 0)).History, 200)
}

func TestSweepControllerSendsAngles(t *testing.T) {
	link := constantLink(30)
	var frames frameLog
	c := NewSweepController(SweepConfig{Steps: 2, Speed: SpeedNormal, Bounds: testBounds}, link,
		WithClock(stepClock(time.Unix(0, 0), 100*time.Millisecond)),
		WithSink(&frames),
	)

	for i := 0; i < 9; i++ {
		_, err := c.Step(context.Background())
		require.NoError(t, err)
	}

	want := []float64{0.5, 1, 1.5, 2, 1.5, 1, 0.5, 0, 0.5}
	assert.Equal(t, want, link.sent)
	assert.Equal(t, 9, link.reads)
	require.Len(t, frames, 9)
	assert.Equal(t, ModeSweep, frames[0].Mode)
	assert.Equal(t, 50.0, frames[0].Limit)
	assert.Greater(t, frames[8].Rate, 0.0)
}

func TestSweepControllerSubstitutesSoftErrors(t *testing.T) {
	link := &fakeLink{
		samples: []float64{30, 30, 30},
		errs:    map[int]error{1: softErr{"bad token"}},
	}
	c := NewSweepController(SweepConfig{Steps: 10, Speed: SpeedFast, Bounds: testBounds}, link)

	_, err := c.Step(context.Background())
	require.NoError(t, err)

	fr, err := c.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, fr.Distance)
	assert.Equal(t, "bad token", fr.Warning)
	assert.Equal(t, 0.0, fr.History[len(fr.History)-1])
	assert.Equal(t, 2.0, fr.Angle)
}

func TestSweepControllerFatalError(t *testing.T) {
	link := &fakeLink{errs: map[int]error{0: errHard}}
	c := NewSweepController(SweepConfig{Steps: 10, Speed: SpeedFast, Bounds: testBounds}, link)

	_, err := c.Step(context.Background())
	require.ErrorIs(t, err, errHard)
	assert.Empty(t, link.sent)
	assert.Equal(t, 0.0, c.State().Angle)
}

func TestSweepControllerSendFailureKeepsState(t *testing.T) {
	link := constantLink(30)
	link.sendErr = errHard
	c := NewSweepController(SweepConfig{Steps: 10, Speed: SpeedFast, Bounds: testBounds}, link)

	_, err := c.Step(context.Background())
	require.ErrorIs(t, err, errHard)
	assert.Equal(t, 0.0, c.State().Angle)
}

func TestSweepControllerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewSweepController(SweepConfig{Steps: 10, Speed: SpeedFast, Bounds: testBounds}, constantLink(30))
	_, err := c.Step(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
