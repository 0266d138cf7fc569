package app

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
	"sonar-radar.klederson.com/internal/config"
	"sonar-radar.klederson.com/internal/link"
	"sonar-radar.klederson.com/internal/radar"
)

type fakeLink struct {
	mu      sync.Mutex
	dist    float64
	pending []float64 // buffered readings returned before dist
	flushes int
	sent    []float64
}

func (l *fakeLink) ReadSample(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pending) > 0 {
		v := l.pending[0]
		l.pending = l.pending[1:]
		return v, nil
	}
	return l.dist, nil
}

func (l *fakeLink) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = nil
	l.flushes++
	return nil
}

func (l *fakeLink) SendAngle(angle float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, angle)
	return nil
}

func (l *fakeLink) angles() []float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]float64(nil), l.sent...)
}

type fakeRecorder struct {
	records [][]radar.Point
}

func (r *fakeRecorder) Append(points []radar.Point) error {
	r.records = append(r.records, points)
	return nil
}

type msgSink chan tea.Msg

func (s msgSink) Send(msg tea.Msg) { s <- msg }

func key(k string) tea.KeyMsg {
	switch k {
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func newModel(t *testing.T, deps Deps) (AppModel, *fakeLink) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	deps.Logger = logger
	s := config.Default()
	s.DetectionRadius = 30
	m := New(s, deps)
	fl := &fakeLink{dist: 12}
	m.UseLink(fl, "fake")
	return m, fl
}

func update(t *testing.T, m AppModel, msg tea.Msg) (AppModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	am, ok := next.(AppModel)
	require.True(t, ok)
	return am, cmd
}

func TestStartRequiresLink(t *testing.T) {
	logger, _ := test.NewNullLogger()
	m := New(config.Default(), Deps{Logger: logger})

	m, cmd := update(t, m, key("s"))
	assert.Nil(t, cmd)
	assert.False(t, m.running)
	assert.Contains(t, m.errText, "Not connected")
}

func TestSweepStepsChain(t *testing.T) {
	var published []radar.Frame
	m, fl := newModel(t, Deps{Sinks: radar.Sinks{radar.SinkFunc(func(fr radar.Frame) {
		published = append(published, fr)
	})}})

	m, cmd := update(t, m, key("s"))
	require.NotNil(t, cmd)
	assert.True(t, m.running)
	assert.Equal(t, radar.ModeSweep, m.mode)

	for i := 0; i < 3; i++ {
		msg := cmd()
		step, ok := msg.(StepMsg)
		require.True(t, ok)
		require.NoError(t, step.Err)
		m, cmd = update(t, m, msg)
		require.NotNil(t, cmd)
	}

	assert.Equal(t, 1.5, m.frame.Angle)
	assert.Equal(t, []float64{0.5, 1, 1.5}, fl.angles())
	assert.Len(t, published, 3)
	assert.False(t, m.updated.IsZero())
}

func TestStopDiscardsInFlightStep(t *testing.T) {
	m, _ := newModel(t, Deps{})

	m, cmd := update(t, m, key("s"))
	require.NotNil(t, cmd)
	m, _ = update(t, m, key("x"))
	assert.False(t, m.running)

	msg := cmd()
	step := msg.(StepMsg)
	assert.ErrorIs(t, step.Err, context.Canceled)

	m, cmd = update(t, m, msg)
	assert.Nil(t, cmd)
	assert.Equal(t, radar.ModeIdle, m.frame.Mode)
}

func TestStartFlushesStaleInput(t *testing.T) {
	m, fl := newModel(t, Deps{})
	fl.pending = []float64{99, 98, 97}

	m, cmd := update(t, m, key("s"))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	assert.Equal(t, 1, fl.flushes)
	assert.Equal(t, 12.0, m.frame.Distance)
}

// chattyPort answers every read with a fresh reading.
type chattyPort struct {
	mu      sync.Mutex
	closed  bool
	written []string
}

func (p *chattyPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return 0, io.EOF
	}
	time.Sleep(time.Millisecond)
	return copy(b, "12.5\n"), nil
}

func (p *chattyPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = append(p.written, strings.TrimSpace(string(b)))
	return len(b), nil
}

func (p *chattyPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *chattyPort) last() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.written) == 0 {
		return ""
	}
	return p.written[len(p.written)-1]
}

func TestResetWaitsForRunningStep(t *testing.T) {
	logger, _ := test.NewNullLogger()
	port := &chattyPort{}
	l, err := link.New(port, "chatty", link.PortOptions{ReadTimeout: time.Second}, logger)
	require.NoError(t, err)
	defer l.Close()

	s := config.Default()
	s.DetectionRadius = 30
	m := New(s, Deps{Logger: logger})
	m.UseLink(l, "chatty")

	for i := 0; i < 20; i++ {
		var cmd tea.Cmd
		m, cmd = update(t, m, key("o"))
		require.NotNil(t, cmd)

		done := make(chan tea.Msg, 1)
		go func() { done <- cmd() }()
		m, _ = update(t, m, key("r"))

		// The servo ends homed whether or not the step got to run.
		assert.Equal(t, "0", port.last())

		var next tea.Cmd
		m, next = update(t, m, <-done)
		assert.Nil(t, next)
		assert.Equal(t, radar.ModeIdle, m.frame.Mode)
	}
}

func TestStaleRunIgnored(t *testing.T) {
	m, _ := newModel(t, Deps{})

	m, _ = update(t, m, key("s"))
	stale := StepMsg{RunID: m.runID - 1, Frame: radar.Frame{Mode: radar.ModeSweep, Angle: 99}}
	m, cmd := update(t, m, stale)
	assert.Nil(t, cmd)
	assert.NotEqual(t, 99.0, m.frame.Angle)
}

func TestObjectScanRecordsSweep(t *testing.T) {
	rec := &fakeRecorder{}
	m, fl := newModel(t, Deps{Recorder: rec})

	m, cmd := update(t, m, key("o"))
	steps := 0
	for cmd != nil && steps < 100 {
		m, cmd = update(t, m, cmd())
		steps++
	}

	assert.Equal(t, 31, steps)
	assert.False(t, m.running)
	assert.True(t, m.frame.Complete)
	assert.Equal(t, 1, m.sweeps)
	assert.Equal(t, []float64{12}, m.shared.means.Values())
	require.Len(t, rec.records, 1)
	assert.Len(t, rec.records[0], 30)

	sent := fl.angles()
	assert.Equal(t, 0.0, sent[len(sent)-1])
	assert.Contains(t, m.message, "Sweep 1 recorded")
}

func TestStaticAim(t *testing.T) {
	m, fl := newModel(t, Deps{})

	m, cmd := update(t, m, key("a"))
	require.NotNil(t, cmd)
	assert.Equal(t, []float64{90}, fl.angles())

	m, _ = update(t, m, key("right"))
	m, cmd = update(t, m, cmd())
	require.NotNil(t, cmd)
	assert.Equal(t, []float64{90, 95}, fl.angles())
	assert.Equal(t, radar.ModeStatic, m.frame.Mode)

	for i := 0; i < 40; i++ {
		m.setAim(m.aim - aimStep)
	}
	assert.Equal(t, 0.0, m.aim)
}

func TestSpeedRestartsRun(t *testing.T) {
	m, _ := newModel(t, Deps{})

	m, _ = update(t, m, key("s"))
	id := m.runID
	m, cmd := update(t, m, key("2"))
	require.NotNil(t, cmd)
	assert.Equal(t, 2, m.settings.Speed)
	assert.Greater(t, m.runID, id)
	assert.True(t, m.running)

	m, cmd = update(t, m, cmd())
	require.NotNil(t, cmd)
	assert.Equal(t, 1.0, m.frame.Angle)

	_, cmd = update(t, m, key("2"))
	assert.Nil(t, cmd)
}

func TestResetReturnsToIdle(t *testing.T) {
	m, fl := newModel(t, Deps{})

	m, cmd := update(t, m, key("s"))
	m, _ = update(t, m, cmd())
	m, _ = update(t, m, key("r"))

	assert.False(t, m.running)
	assert.Equal(t, radar.ModeIdle, m.mode)
	assert.Equal(t, radar.ModeIdle, m.frame.Mode)
	sent := fl.angles()
	assert.Equal(t, 0.0, sent[len(sent)-1])
}

func TestViewToggles(t *testing.T) {
	m, _ := newModel(t, Deps{})
	assert.Contains(t, m.View(), "Initializing")

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 140, Height: 40})
	view := m.View()
	assert.Contains(t, view, "HISTORY")
	assert.Contains(t, view, "READOUT")

	m, _ = update(t, m, key("t"))
	view = m.View()
	assert.NotContains(t, view, "HISTORY")
	assert.Contains(t, view, "READOUT")

	m, _ = update(t, m, key("b"))
	assert.NotContains(t, m.View(), "READOUT")
}

func TestThemeCycles(t *testing.T) {
	m, _ := newModel(t, Deps{})
	m, _ = update(t, m, key("m"))
	assert.Equal(t, "amber", m.settings.Theme)
	assert.Equal(t, "amber", m.styles.Theme.Name)
}

func TestExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.png")
	m, _ := newModel(t, Deps{Export: path})

	m, cmd := update(t, m, key("e"))
	require.NotNil(t, cmd)
	msg := cmd().(ExportMsg)
	require.NoError(t, msg.Err)

	m, _ = update(t, m, msg)
	assert.Contains(t, m.message, "scan.png")

	m, _ = update(t, m, ExportMsg{Path: "x.jpg", Err: errors.New("incorrect file type")})
	assert.Contains(t, m.errText, "Export failed")
}

func TestConnectFailureReported(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := config.Default()
	s.PortName = "/dev/nowhere"
	m := New(s, Deps{
		Logger: logger,
		Open: func(string, *serial.Mode) (link.Port, error) {
			return nil, errors.New("no such device")
		},
	})
	sink := make(msgSink, 8)
	m.Attach(sink)

	m, _ = update(t, m, connectMsg{})
	assert.True(t, m.connecting)

	var failed link.ConnectFailedMsg
	require.Eventually(t, func() bool {
		select {
		case msg := <-sink:
			f, ok := msg.(link.ConnectFailedMsg)
			if ok {
				failed = f
			}
			return ok
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)

	m, _ = update(t, m, failed)
	assert.False(t, m.connecting)
	assert.True(t, strings.HasPrefix(m.errText, "Connection failed"))
	assert.Contains(t, m.errText, "no such device")
}

func TestCloseAbandonsHandshake(t *testing.T) {
	logger, _ := test.NewNullLogger()
	r, w := io.Pipe()
	defer w.Close()
	port := &silentPort{r: r}

	s := config.Default()
	s.PortName = "/dev/slow"
	m := New(s, Deps{
		Logger: logger,
		Open: func(string, *serial.Mode) (link.Port, error) {
			return port, nil
		},
	})
	sink := make(msgSink, 64)
	m.Attach(sink)

	m, _ = update(t, m, key("c"))
	require.True(t, m.connecting)

	m.Close()
	assert.False(t, m.connecting)
	assert.Eventually(t, port.isClosed, 2*time.Second, 5*time.Millisecond)

	// A link that shows up late is closed rather than adopted.
	late, err := link.New(&silentPort{r: r}, "late", link.PortOptions{}, logger)
	require.NoError(t, err)
	m, _ = update(t, m, link.ConnectedMsg{Link: late})
	assert.Nil(t, m.shared.link)
	assert.ErrorIs(t, late.SendAngle(1), link.ErrClosed)
}

// silentPort never produces a line.
type silentPort struct {
	r      *io.PipeReader
	mu     sync.Mutex
	closed bool
}

func (p *silentPort) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *silentPort) Write(b []byte) (int, error) { return len(b), nil }

func (p *silentPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *silentPort) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func TestConnectSimulator(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := config.Default()
	s.PortName = link.SimulatorPath
	m := New(s, Deps{Logger: logger})
	sink := make(msgSink, 64)
	m.Attach(sink)

	m, _ = update(t, m, key("c"))

	var connected link.ConnectedMsg
	require.Eventually(t, func() bool {
		select {
		case msg := <-sink:
			c, ok := msg.(link.ConnectedMsg)
			if ok {
				connected = c
			}
			return ok
		default:
			return false
		}
	}, 3*time.Second, 5*time.Millisecond)

	m, _ = update(t, m, connected)
	assert.Contains(t, m.message, "Connected to sim")

	m, cmd := update(t, m, key("s"))
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.Equal(t, radar.ModeSweep, m.frame.Mode)

	_, cmd = update(t, m, key("q"))
	require.NotNil(t, cmd)
	assert.Nil(t, m.shared.link)
}
