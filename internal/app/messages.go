package app

import (
	"time"

	"sonar-radar.klederson.com/internal/radar"
)

// TickMsg refreshes time-dependent parts of the view.
type TickMsg time.Time

// StepMsg carries the result of one controller step. RunID ties it to the
// run that scheduled it; results of stopped runs are dropped.
type StepMsg struct {
	RunID int
	Frame radar.Frame
	Err   error
}

// ExportMsg reports the outcome of a PNG export.
type ExportMsg struct {
	Path string
	Err  error
}

// connectMsg asks Update to start the handshake.
type connectMsg struct{}
