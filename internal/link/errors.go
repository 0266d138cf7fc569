package link

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned once the port has been closed or hit EOF.
	ErrClosed = errors.New("serial link closed")
	// ErrWriteFailed is returned when a command is only partially written.
	ErrWriteFailed = errors.New("failed to write to serial port")
)

// ReadErrorKind classifies recoverable read failures.
type ReadErrorKind int

const (
	ParseFailure ReadErrorKind = iota
	Timeout
)

func (k ReadErrorKind) String() string {
	if k == Timeout {
		return "timeout"
	}
	return "parse failure"
}

// ReadError is a read that produced no usable sample. Callers substitute a
// zero reading and keep going.
type ReadError struct {
	Kind ReadErrorKind
	Line string
	Err  error
}

func (e *ReadError) Error() string {
	switch e.Kind {
	case Timeout:
		return "missing serial data"
	default:
		return fmt.Sprintf("bad serial data %q: %v", e.Line, e.Err)
	}
}

func (e *ReadError) Unwrap() error { return e.Err }

// NonFatal reports that the error should not stop a scan.
func (e *ReadError) NonFatal() bool { return true }

// IsReadError reports whether err is a recoverable read failure.
func IsReadError(err error) bool {
	var re *ReadError
	return errors.As(err, &re)
}

// ConnectionError wraps a failure to open or confirm the link.
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
