// Package link is the serial connection to the scanner controller: ASCII
// distance readings in, ASCII servo angles out, one value per line.
package link

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

// Port is the minimal interface needed for a serial port.
type Port interface {
	io.ReadWriter
	io.Closer
}

// Opener opens the port at path.
type Opener func(path string, mode *serial.Mode) (Port, error)

// OpenSerial opens a real serial device.
func OpenSerial(path string, mode *serial.Mode) (Port, error) {
	return serial.Open(path, mode)
}

// ListPorts returns the serial ports present on the system.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}

type inputResetter interface {
	ResetInputBuffer() error
}

// Link reads samples and writes angle commands over a Port. A monitor
// goroutine is the only reader of the port.
type Link struct {
	port    Port
	name    string
	timeout time.Duration
	logger  logrus.FieldLogger

	lines  chan string
	cancel context.CancelFunc

	errMu  sync.Mutex
	monErr error

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

// New wraps an open port and starts monitoring it.
func New(port Port, name string, opts PortOptions, logger logrus.FieldLogger) (*Link, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Link{
		port:    port,
		name:    name,
		timeout: opts.ReadTimeout,
		logger:  logger.WithField("port", name),
		lines:   make(chan string, 16),
		cancel:  cancel,
		closed:  make(chan struct{}),
	}
	go l.monitor(ctx)
	return l, nil
}

// Connect opens path with open and wraps it in a Link. Failures are
// reported as *ConnectionError.
func Connect(path string, opts PortOptions, open Opener, logger logrus.FieldLogger) (*Link, error) {
	if open == nil {
		open = OpenSerial
	}
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, &ConnectionError{Port: path, Err: err}
	}
	port, err := open(path, mode)
	if err != nil {
		return nil, &ConnectionError{Port: path, Err: err}
	}
	l, err := New(port, path, opts, logger)
	if err != nil {
		_ = port.Close()
		return nil, &ConnectionError{Port: path, Err: err}
	}
	return l, nil
}

// Name returns the port name.
func (l *Link) Name() string {
	return l.name
}

func (l *Link) monitor(ctx context.Context) {
	defer close(l.lines)

	scan := bufio.NewScanner(l.port)
	for scan.Scan() {
		select {
		case l.lines <- scan.Text():
		case <-ctx.Done():
			l.setErr(ErrClosed)
			return
		}
	}

	err := scan.Err()
	switch {
	case err == nil:
		err = fmt.Errorf("%w: %w", ErrClosed, io.EOF)
	case ctx.Err() != nil:
		err = ErrClosed
	default:
		err = fmt.Errorf("%w: %w", ErrClosed, err)
	}
	l.logger.WithError(err).Debug("serial monitor stopped")
	l.setErr(err)
}

func (l *Link) setErr(err error) {
	l.errMu.Lock()
	defer l.errMu.Unlock()
	if l.monErr == nil {
		l.monErr = err
	}
}

func (l *Link) err() error {
	l.errMu.Lock()
	defer l.errMu.Unlock()
	if l.monErr == nil {
		return ErrClosed
	}
	return l.monErr
}

// ReadLine waits for the next raw line. It gives up after the read
// timeout with a Timeout *ReadError.
func (l *Link) ReadLine(ctx context.Context) (string, error) {
	select {
	case <-l.closed:
		return "", ErrClosed
	default:
	}

	var timeout <-chan time.Time
	if l.timeout > 0 {
		t := time.NewTimer(l.timeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-l.lines:
		if !ok {
			return "", l.err()
		}
		return line, nil
	case <-timeout:
		return "", &ReadError{Kind: Timeout}
	}
}

// ReadSample reads one distance reading.
func (l *Link) ReadSample(ctx context.Context) (float64, error) {
	line, err := l.ReadLine(ctx)
	if err != nil {
		return 0, err
	}
	return ParseSample(line)
}

// ParseSample parses one line of controller output.
func ParseSample(line string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
	if err != nil {
		return 0, &ReadError{Kind: ParseFailure, Line: line, Err: err}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ReadError{Kind: ParseFailure, Line: line, Err: errors.New("not a finite number")}
	}
	return v, nil
}

// FormatAngle renders an angle command without a trailing newline.
// Whole angles carry no decimal point.
func FormatAngle(angle float64) string {
	if angle == math.Trunc(angle) && math.Abs(angle) < 1e15 {
		return strconv.FormatInt(int64(angle), 10)
	}
	return strconv.FormatFloat(angle, 'f', -1, 64)
}

// SendAngle commands the servo.
func (l *Link) SendAngle(angle float64) error {
	return l.SendCommand(FormatAngle(angle))
}

// SendCommand writes one line to the controller.
func (l *Link) SendCommand(command string) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	select {
	case <-l.closed:
		return ErrClosed
	default:
	}

	if !strings.HasSuffix(command, "\n") {
		command += "\n"
	}
	n, err := l.port.Write([]byte(command))
	if err != nil {
		return fmt.Errorf("write %q: %w", strings.TrimSpace(command), err)
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// Flush discards input that arrived before the scan started.
func (l *Link) Flush() error {
	if r, ok := l.port.(inputResetter); ok {
		if err := r.ResetInputBuffer(); err != nil {
			return fmt.Errorf("reset input buffer: %w", err)
		}
	}
	for {
		select {
		case _, ok := <-l.lines:
			if !ok {
				return nil
			}
		default:
			return nil
		}
	}
}

// Close stops the monitor and closes the port.
func (l *Link) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.writeMu.Lock()
		close(l.closed)
		l.writeMu.Unlock()

		l.cancel()
		err = l.port.Close()
	})
	return err
}
