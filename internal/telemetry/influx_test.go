package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/influxdata/influxdb-client-go/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sonar-radar.klederson.com/internal/radar"
)

type fakeWriter struct {
	points  []*write.Point
	flushes int
}

func (f *fakeWriter) WritePoint(p *write.Point) { f.points = append(f.points, p) }
func (f *fakeWriter) Flush()                    { f.flushes++ }

func tagsOf(p *write.Point) map[string]string {
	out := map[string]string{}
	for _, t := range p.TagList() {
		out[t.Key] = t.Value
	}
	return out
}

func fieldsOf(p *write.Point) map[string]interface{} {
	out := map[string]interface{}{}
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func TestPointFor(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	fr := radar.Frame{
		Mode:     radar.ModeSweep,
		Angle:    42.5,
		Distance: 17,
		Zone:     radar.ZoneInRange,
		Rate:     30,
		ReadErr:  errors.New("missing serial data"),
	}

	p := PointFor(fr, "abc", ts)
	assert.Equal(t, SampleMeasurement, p.Name())
	assert.Equal(t, ts, p.Time())

	if diff := cmp.Diff(map[string]string{"session": "abc", "mode": "sweep"}, tagsOf(p)); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	fields := fieldsOf(p)
	assert.Equal(t, 42.5, fields["angle"])
	assert.Equal(t, 17.0, fields["distance"])
	assert.Equal(t, "in_range", fields["zone"])
	assert.Equal(t, 30.0, fields["rate"])
	assert.Equal(t, true, fields["substituted"])
}

func TestSinkSkipsIdleFrames(t *testing.T) {
	w := &fakeWriter{}
	s := NewSink(w, "")
	assert.NotEmpty(t, s.Session())

	s.Publish(radar.Frame{})
	assert.Empty(t, w.points)

	s.Publish(radar.Frame{Mode: radar.ModeStatic, Angle: 90})
	require.Len(t, w.points, 1)
	assert.Equal(t, s.Session(), tagsOf(w.points[0])["session"])
	assert.Zero(t, w.flushes)
}

func TestSinkCompletedSweep(t *testing.T) {
	w := &fakeWriter{}
	s := NewSink(w, "run-1")

	s.Publish(radar.Frame{
		Mode:     radar.ModeDetect,
		Complete: true,
		Record:   radar.Record{{X: 1, Y: 1}, {X: 2, Y: 2}},
		Mean:     32.5,
	})
	require.Len(t, w.points, 2)
	assert.Equal(t, SweepMeasurement, w.points[1].Name())
	fields := fieldsOf(w.points[1])
	assert.EqualValues(t, 2, fields["points"])
	assert.Equal(t, 32.5, fields["mean"])
	assert.Equal(t, 1, w.flushes)

	s.Close()
	assert.Equal(t, 2, w.flushes)
}

func TestConfigEnabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.True(t, Config{Server: "http://localhost:8086"}.Enabled())
}
