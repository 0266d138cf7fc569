package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"sonar-radar.klederson.com/internal/config"
	"sonar-radar.klederson.com/internal/export"
	"sonar-radar.klederson.com/internal/link"
	"sonar-radar.klederson.com/internal/radar"
	"sonar-radar.klederson.com/internal/ui"
)

const (
	aimStep     = 5.0
	defaultAim  = 90.0
	meansWindow = 32
)

// stepper is the common surface of the three controllers.
type stepper interface {
	Step(ctx context.Context) (radar.Frame, error)
}

// flusher is implemented by links that can drop buffered input.
type flusher interface {
	Flush() error
}

// Deps are the collaborators injected by main.
type Deps struct {
	Logger   logrus.FieldLogger
	Recorder radar.Recorder // sweep log; may be nil
	Sinks    radar.Sinks    // extra frame consumers (stream, telemetry)
	Open     link.Opener    // nil selects by port name
	Export   string         // PNG path for the export key
}

// shared holds state shared between the Bubble Tea model copies and main.go.
// Because Bubble Tea uses value receivers, pointer fields ensure all copies
// see the same underlying data.
type shared struct {
	program link.Sender
	deps    Deps

	link       radar.Link
	closer     func() error
	controller stepper
	static     *radar.StaticController
	detect     *radar.DetectionController
	ctx        context.Context
	cancel     context.CancelFunc
	means      *Ring

	// stepMu is held for the duration of a controller step. Holding it
	// from the UI goroutine guarantees no step is running.
	stepMu sync.Mutex

	dialCancel context.CancelFunc
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	width  int
	height int

	settings config.Settings
	layout   ui.Layout
	styles   ui.Styles

	mode       radar.Mode
	running    bool
	connecting bool
	runID      int
	aim        float64
	aimDirty   bool

	message string
	errText string
	frame   radar.Frame
	updated time.Time
	sweeps  int

	shared *shared
}

// New creates the model from validated settings.
func New(settings config.Settings, deps Deps) AppModel {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Export == "" {
		deps.Export = config.DefaultExport
	}
	return AppModel{
		settings: settings,
		layout:   ui.Layout{ShowTop: settings.ShowTop, ShowBottom: settings.ShowBottom},
		styles:   ui.NewStyles(ui.ThemeByName(settings.Theme)),
		aim:      defaultAim,
		message:  "Press c to connect",
		frame:    radar.Frame{Limit: settings.DistanceLimit},
		shared: &shared{
			deps:  deps,
			means: NewRing(meansWindow),
		},
	}
}

// Attach gives the model a way to post handshake messages. Must be called
// before p.Run().
func (m *AppModel) Attach(p link.Sender) {
	m.shared.program = p
}

// UseLink installs an already open link, bypassing the handshake.
func (m *AppModel) UseLink(l radar.Link, name string) {
	m.shared.link = l
	m.settings.PortName = name
	m.message = fmt.Sprintf("Connected to %s", name)
}

func (m AppModel) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd()}
	if m.settings.PortName != "" && m.shared.link == nil {
		cmds = append(cmds, func() tea.Msg { return connectMsg{} })
	}
	return tea.Batch(cmds...)
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		return m, tickCmd()

	case connectMsg:
		return m.connect()

	case link.ConnectProgressMsg:
		if m.connecting {
			m.message = msg.Text()
		}
		return m, nil

	case link.ConnectedMsg:
		if !m.connecting {
			// Superseded by a close or a newer link.
			_ = msg.Link.Close()
			return m, nil
		}
		m.connecting = false
		m.endDial()
		m.errText = ""
		m.shared.link = msg.Link
		m.shared.closer = msg.Link.Close
		m.message = fmt.Sprintf("Connected to %s", msg.Link.Name())
		return m, nil

	case link.ConnectFailedMsg:
		m.connecting = false
		m.endDial()
		m.errText = fmt.Sprintf("Connection failed: %v", msg.Err)
		m.message = ""
		return m, nil

	case StepMsg:
		return m.handleStep(msg)

	case ExportMsg:
		if msg.Err != nil {
			m.errText = fmt.Sprintf("Export failed: %v", msg.Err)
		} else {
			m.errText = ""
			m.message = fmt.Sprintf("Saved %s", msg.Path)
		}
		return m, nil
	}

	return m, nil
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		m.stop()
		m.closeLink()
		return m, tea.Quit

	case "c", "C":
		return m.connect()

	case "s", "S":
		return m.start(radar.ModeSweep)

	case "o", "O":
		return m.start(radar.ModeDetect)

	case "a", "A":
		return m.start(radar.ModeStatic)

	case "left", "h":
		m.setAim(m.aim - aimStep)

	case "right", "l":
		m.setAim(m.aim + aimStep)

	case "x", "X":
		m.stop()
		m.message = "Stopped"

	case "r", "R":
		return m.reset()

	case "1", "2":
		speed := 1
		if msg.String() == "2" {
			speed = 2
		}
		if speed == m.settings.Speed {
			return m, nil
		}
		m.settings.Speed = speed
		m.message = fmt.Sprintf("Speed %dx", speed)
		if m.running {
			return m.start(m.mode)
		}

	case "t", "T":
		m.layout.ShowTop = !m.layout.ShowTop

	case "b", "B":
		m.layout.ShowBottom = !m.layout.ShowBottom

	case "m", "M":
		m.settings.Theme = ui.NextTheme(m.settings.Theme)
		m.styles = ui.NewStyles(ui.ThemeByName(m.settings.Theme))

	case "e", "E":
		return m, exportCmd(m.frame, m.shared.deps.Export)
	}

	return m, nil
}

func (m AppModel) connect() (tea.Model, tea.Cmd) {
	if m.connecting {
		return m, nil
	}
	if m.settings.PortName == "" {
		m.errText = "No port configured (use --port)"
		return m, nil
	}
	if m.shared.program == nil {
		m.errText = "Connection unavailable"
		return m, nil
	}
	m.stop()
	m.closeLink()

	open := m.shared.deps.Open
	if open == nil && m.settings.PortName == link.SimulatorPath {
		open = link.OpenSimulator
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.shared.dialCancel = cancel
	link.Handshake{
		Path:    m.settings.PortName,
		Options: link.PortOptions{BaudRate: m.settings.BaudRate, ReadTimeout: m.settings.ReadTimeout.Std()},
		Open:    open,
		Logger:  m.shared.deps.Logger,
	}.Start(ctx, m.shared.program)

	m.connecting = true
	m.errText = ""
	m.message = "Connecting ."
	return m, nil
}

func (m AppModel) start(mode radar.Mode) (tea.Model, tea.Cmd) {
	if m.shared.link == nil {
		m.errText = "Not connected (press c)"
		return m, nil
	}
	m.stop()

	s := m.shared
	if f, ok := s.link.(flusher); ok {
		if err := f.Flush(); err != nil {
			s.deps.Logger.WithError(err).Warn("failed to flush serial input")
		}
	}
	bounds := radar.Bounds{Low: m.settings.ThresholdLow, High: m.settings.ThresholdHigh, Limit: m.settings.DistanceLimit}
	speed := radar.Speed(m.settings.Speed)
	opts := []radar.Option{
		radar.WithLogger(s.deps.Logger.WithField("mode", mode.String())),
		radar.WithSink(s.deps.Sinks),
	}

	s.static, s.detect = nil, nil
	switch mode {
	case radar.ModeSweep:
		s.controller = radar.NewSweepController(radar.SweepConfig{
			Steps:  m.settings.DetectionRadius,
			Speed:  speed,
			Bounds: bounds,
		}, s.link, opts...)
		m.message = "Sweeping"
	case radar.ModeDetect:
		s.detect = radar.NewDetectionController(radar.DetectionConfig{
			Steps: m.settings.DetectionRadius,
			Speed: speed,
			Limit: m.settings.DistanceLimit,
		}, s.link, s.deps.Recorder, opts...)
		s.controller = s.detect
		m.message = fmt.Sprintf("Object scan over %d deg", m.settings.DetectionRadius)
	case radar.ModeStatic:
		s.static = radar.NewStaticController(radar.StaticConfig{
			Angle:  m.aim,
			Speed:  speed,
			Bounds: bounds,
		}, s.link, opts...)
		s.controller = s.static
		m.aimDirty = true
		m.message = "Static"
	default:
		return m, nil
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	m.mode = mode
	m.running = true
	m.runID++
	m.errText = ""
	s.deps.Logger.WithFields(logrus.Fields{"mode": mode.String(), "speed": m.settings.Speed}).Info("scan started")
	cmd := m.next()
	return m, cmd
}

// next applies a pending aim change and schedules the following step.
func (m *AppModel) next() tea.Cmd {
	s := m.shared
	if m.aimDirty && s.static != nil {
		m.aimDirty = false
		if err := s.static.Aim(m.aim); err != nil {
			m.errText = err.Error()
		}
	}
	return stepCmd(s.ctx, m.runID, s)
}

func (m *AppModel) setAim(angle float64) {
	if angle < 0 {
		angle = 0
	}
	if angle > config.ServoSpan {
		angle = config.ServoSpan
	}
	m.aim = angle
	m.aimDirty = true
	m.message = fmt.Sprintf("Aim %.0f deg", angle)
}

func (m AppModel) handleStep(msg StepMsg) (tea.Model, tea.Cmd) {
	if msg.RunID != m.runID || !m.running {
		return m, nil
	}

	if msg.Err != nil {
		switch {
		case errors.Is(msg.Err, context.Canceled):
			return m, nil
		case errors.Is(msg.Err, radar.ErrSweepFinished):
			m.stop()
			m.message = "Object scan finished (r to reset)"
		default:
			m.stop()
			m.errText = msg.Err.Error()
			m.shared.deps.Logger.WithError(msg.Err).Error("scan stopped")
		}
		return m, nil
	}

	fr := msg.Frame
	m.frame = fr
	m.updated = time.Now()
	m.errText = fr.Warning
	if fr.Complete {
		m.sweeps++
		m.shared.means.Push(fr.Mean)
		m.stop()
		m.message = fmt.Sprintf("Sweep %d recorded: %d points, mean %.1f cm", m.sweeps, len(fr.Record), fr.Mean)
		if fr.Warning != "" {
			m.errText = fr.Warning
		}
		return m, nil
	}

	cmd := m.next()
	return m, cmd
}

func (m *AppModel) stop() {
	s := m.shared
	if s.cancel != nil {
		s.cancel()
		s.ctx, s.cancel = nil, nil
	}
	// Wait out a step that was already past its cancellation check.
	s.stepMu.Lock()
	s.stepMu.Unlock() //nolint:staticcheck
	if m.running {
		s.deps.Logger.WithField("mode", m.mode.String()).Info("scan stopped")
	}
	m.running = false
	m.runID++
}

func (m AppModel) reset() (tea.Model, tea.Cmd) {
	m.stop()
	s := m.shared
	if s.detect != nil {
		if err := s.detect.Reset(); err != nil {
			m.errText = err.Error()
		}
	} else if s.link != nil {
		if err := s.link.SendAngle(0); err != nil {
			m.errText = err.Error()
		}
	}
	s.controller, s.static, s.detect = nil, nil, nil
	s.means.Reset()
	m.mode = radar.ModeIdle
	m.frame = radar.Frame{Limit: m.settings.DistanceLimit}
	m.sweeps = 0
	m.aim = defaultAim
	m.message = "Reset"
	return m, nil
}

func (m *AppModel) closeLink() {
	s := m.shared
	if s.closer != nil {
		if err := s.closer(); err != nil {
			s.deps.Logger.WithError(err).Warn("closing serial link")
		}
	}
	s.link, s.closer = nil, nil
}

func (m *AppModel) endDial() {
	if m.shared.dialCancel != nil {
		m.shared.dialCancel()
		m.shared.dialCancel = nil
	}
}

// Close stops any scan, abandons a pending handshake and releases the link.
func (m *AppModel) Close() {
	m.connecting = false
	m.endDial()
	m.stop()
	m.closeLink()
}

func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing " + config.AppName + "..."
	}

	plan := ui.PlanLayout(m.width, m.height, m.layout)
	st := m.styles

	menuBar := ui.RenderMenuBar(plan.Menu.W, st, m.mode.String(), m.settings.PortName, m.shared.link != nil)

	scopeW, scopeH := ui.ScopeSize(plan.Radar.W, plan.Radar.H)
	pal := st.Theme.Palette()
	scope := radar.Render(scopeW, scopeH, m.frame, pal)
	legend := radar.RenderLegend(scopeW, m.frame.Limit, pal)
	title := fmt.Sprintf("SCOPE %s", m.mode)
	radarPanel := ui.RenderRadarPanel(plan.Radar.W, plan.Radar.H, st, title, scope, legend)

	var top, bottom string
	if !plan.Top.Empty() {
		top = ui.RenderHistoryPanel(m.frame.History, m.frame.Limit, plan.Top.W, plan.Top.H, st)
	}
	if !plan.Bottom.Empty() {
		bottom = ui.RenderDetailPanel(ui.Readout{
			Frame:   m.frame,
			Bounds:  radar.Bounds{Low: m.settings.ThresholdLow, High: m.settings.ThresholdHigh, Limit: m.settings.DistanceLimit},
			Sweeps:  m.sweeps,
			Means:   m.shared.means.Values(),
			Updated: m.updated,
		}, plan.Bottom.W, plan.Bottom.H, st)
	}

	statusBar := ui.RenderStatusBar(plan.Status.W, st, ui.Status{
		Active:  m.running,
		Message: m.message,
		Err:     m.errText,
		Angle:   m.frame.Angle,
		Rate:    m.frame.Rate,
		Limit:   m.settings.DistanceLimit,
		Speed:   m.settings.Speed,
	})

	return ui.ComposeLayout(menuBar, radarPanel, top, bottom, statusBar)
}

// stepCmd runs one step of the current controller. Steps of a cancelled
// run never reach the controller.
func stepCmd(ctx context.Context, id int, s *shared) tea.Cmd {
	ctrl := s.controller
	return func() tea.Msg {
		s.stepMu.Lock()
		defer s.stepMu.Unlock()
		if err := ctx.Err(); err != nil {
			return StepMsg{RunID: id, Err: err}
		}
		fr, err := ctrl.Step(ctx)
		return StepMsg{RunID: id, Frame: fr, Err: err}
	}
}

func exportCmd(fr radar.Frame, path string) tea.Cmd {
	return func() tea.Msg {
		return ExportMsg{Path: path, Err: export.PNG(fr, path)}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
