// Package telemetry forwards frames to InfluxDB.
package telemetry

import (
	"time"

	"github.com/google/uuid"
	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/influxdata/influxdb-client-go/api/write"
	"github.com/sirupsen/logrus"
	"sonar-radar.klederson.com/internal/radar"
)

const (
	SampleMeasurement = "sonar.sample"
	SweepMeasurement  = "sonar.sweep"
)

// Config selects the InfluxDB target.
type Config struct {
	Server string
	Token  string
	Org    string
	Bucket string
}

// Enabled reports whether a server was configured.
func (c Config) Enabled() bool {
	return c.Server != ""
}

// PointWriter is the subset of the write API the sink needs.
type PointWriter interface {
	WritePoint(point *write.Point)
	Flush()
}

// Sink is a radar.Sink writing one point per frame.
type Sink struct {
	w       PointWriter
	session string
	now     func() time.Time
	closeFn func()
}

// NewSink wraps an existing writer. An empty session gets a fresh uuid.
func NewSink(w PointWriter, session string) *Sink {
	if session == "" {
		session = uuid.NewString()
	}
	return &Sink{w: w, session: session, now: time.Now}
}

// Dial connects a non-blocking write API and logs its asynchronous
// write errors.
func Dial(cfg Config, logger logrus.FieldLogger) *Sink {
	client := influxdb2.NewClient(cfg.Server, cfg.Token)
	writeApi := client.WriteApi(cfg.Org, cfg.Bucket)
	go drain(writeApi, logger)

	s := NewSink(writeApi, "")
	s.closeFn = func() {
		writeApi.Flush()
		writeApi.Close()
		client.Close()
	}
	logger.WithFields(logrus.Fields{
		"server":  cfg.Server,
		"bucket":  cfg.Bucket,
		"session": s.session,
	}).Info("telemetry enabled")
	return s
}

func drain(writeApi api.WriteApi, logger logrus.FieldLogger) {
	for err := range writeApi.Errors() {
		logger.WithError(err).Warn("influx write error")
	}
}

// Session returns the session tag attached to every point.
func (s *Sink) Session() string {
	return s.session
}

// Publish implements radar.Sink. Idle frames are skipped.
func (s *Sink) Publish(fr radar.Frame) {
	if fr.Mode == radar.ModeIdle {
		return
	}
	ts := s.now()
	s.w.WritePoint(PointFor(fr, s.session, ts))
	if fr.Complete {
		s.w.WritePoint(SweepPointFor(fr, s.session, ts))
		s.w.Flush()
	}
}

// Close flushes pending points and releases the client.
func (s *Sink) Close() {
	if s.closeFn != nil {
		s.closeFn()
		return
	}
	s.w.Flush()
}

// PointFor builds the per-frame sample point.
func PointFor(fr radar.Frame, session string, ts time.Time) *write.Point {
	tags := map[string]string{
		"session": session,
		"mode":    fr.Mode.String(),
	}
	fields := map[string]interface{}{
		"angle":       fr.Angle,
		"distance":    fr.Distance,
		"zone":        fr.Zone.String(),
		"rate":        fr.Rate,
		"substituted": fr.ReadErr != nil,
	}
	return influxdb2.NewPoint(SampleMeasurement, tags, fields, ts)
}

// SweepPointFor summarises a completed detection sweep.
func SweepPointFor(fr radar.Frame, session string, ts time.Time) *write.Point {
	return influxdb2.NewPoint(SweepMeasurement,
		map[string]string{"session": session},
		map[string]interface{}{
			"points": len(fr.Record),
			"mean":   fr.Mean,
		},
		ts,
	)
}
