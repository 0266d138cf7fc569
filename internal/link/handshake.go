package link

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"sonar-radar.klederson.com/internal/config"
)

// ConnectProgressMsg is sent while the handshake waits for the controller.
type ConnectProgressMsg struct {
	Port string
	Dots int
}

// Text renders the progress line shown to the user.
func (m ConnectProgressMsg) Text() string {
	dots := m.Dots%3 + 1
	if dots == 1 {
		return "Connecting ."
	}
	return strings.TrimSpace(strings.Repeat(". ", dots))
}

// ConnectedMsg is sent once the controller has answered.
type ConnectedMsg struct {
	Link *Link
}

// ConnectFailedMsg is sent when the link could not be established.
type ConnectFailedMsg struct {
	Err error
}

// Sender delivers messages to the UI program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Handshake opens a port and waits for the first line from the controller.
type Handshake struct {
	Path    string
	Options PortOptions
	Open    Opener
	Timeout time.Duration // Overall deadline; config.HandshakeTimeout when zero
	Step    time.Duration // Progress interval; config.HandshakeStep when zero
	Logger  logrus.FieldLogger
}

// Start runs the handshake in a goroutine and reports progress and the
// single final outcome through p. A link that opens after ctx is cancelled
// is closed instead of being reported.
func (h Handshake) Start(ctx context.Context, p Sender) {
	go func() {
		l, err := h.Run(ctx, func(dots int) {
			p.Send(ConnectProgressMsg{Port: h.Path, Dots: dots})
		})
		if err != nil {
			p.Send(ConnectFailedMsg{Err: err})
			return
		}
		if ctx.Err() != nil {
			// Nobody is waiting for this link any more.
			_ = l.Close()
			return
		}
		p.Send(ConnectedMsg{Link: l})
	}()
}

// Run performs the handshake synchronously. progress may be nil.
func (h Handshake) Run(ctx context.Context, progress func(dots int)) (*Link, error) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = config.HandshakeTimeout
	}
	step := h.Step
	if step <= 0 {
		step = config.HandshakeStep
	}
	logger := h.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	l, err := Connect(h.Path, h.Options, h.Open, logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ready := make(chan error, 1)
	go func() {
		for {
			_, err := l.ReadLine(ctx)
			if err == nil || !IsReadError(err) {
				ready <- err
				return
			}
			if ctx.Err() != nil {
				ready <- ctx.Err()
				return
			}
		}
	}()

	ticker := time.NewTicker(step)
	defer ticker.Stop()

	dots := 0
	if progress != nil {
		progress(dots)
	}
	for {
		select {
		case err := <-ready:
			if err != nil {
				_ = l.Close()
				if errors.Is(err, context.DeadlineExceeded) {
					err = fmt.Errorf("no response within %s", timeout)
				}
				return nil, &ConnectionError{Port: h.Path, Err: err}
			}
			logger.WithField("port", h.Path).Info("serial link established")
			return l, nil
		case <-ticker.C:
			dots++
			if progress != nil {
				progress(dots)
			}
		}
	}
}
