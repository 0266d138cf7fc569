package link

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestPortOptionsNormalizeDefaults(t *testing.T) {
	got, err := PortOptions{}.Normalize()
	require.NoError(t, err)

	assert.Equal(t, 9600, got.BaudRate)
	assert.Equal(t, 8, got.DataBits)
	assert.Equal(t, 1, got.StopBits)
	assert.Equal(t, "N", got.Parity)
	assert.Equal(t, 2*time.Second, got.ReadTimeout)
}

func TestPortOptionsNormalizeExplicit(t *testing.T) {
	got, err := PortOptions{BaudRate: 57600, DataBits: 7, StopBits: 2, Parity: "even"}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, PortOptions{BaudRate: 57600, DataBits: 7, StopBits: 2, Parity: "E", ReadTimeout: 2 * time.Second}, got)
}

func TestPortOptionsNormalizeInvalid(t *testing.T) {
	tests := map[string]PortOptions{
		"data bits":   {DataBits: 9},
		"stop bits":   {StopBits: 3},
		"parity":      {Parity: "mark"},
		"neg timeout": {ReadTimeout: -time.Second},
	}
	for name, opts := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := opts.Normalize()
			assert.Error(t, err)
		})
	}
}

func TestPortOptionsSerialMode(t *testing.T) {
	mode, err := PortOptions{BaudRate: 19200, StopBits: 2, Parity: "O"}.SerialMode()
	require.NoError(t, err)
	assert.Equal(t, &serial.Mode{
		BaudRate: 19200,
		DataBits: 8,
		Parity:   serial.OddParity,
		StopBits: serial.TwoStopBits,
	}, mode)

	_, err = PortOptions{Parity: "X"}.SerialMode()
	assert.Error(t, err)
}
