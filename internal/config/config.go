package config

import "time"

const (
	// Sensor / servo geometry
	ServoSpan       = 180   // Servo travel in degrees
	HistoryBase     = 200   // Sample history length per unit of angular resolution
	StaticTrailSize = 8     // Projected points kept in static mode
	MaxDistance     = 800.0 // Upper bound accepted for any distance setting (cm)

	// Radar display
	AspectRatio  = 0.5 // Terminal char aspect correction (chars are ~2:1 tall)
	RingCount    = 4   // Number of concentric rings
	TargetFPS    = 30  // Redraw rate of the terminal UI
	BeamTrailDeg = 24  // Trailing glow behind the scanner line

	// Rate estimation
	SmoothingAlpha = 0.1 // EMA weight of the newest instantaneous rate

	// Serial link
	DefaultBaudRate    = 9600
	DefaultReadTimeout = 2 * time.Second
	HandshakeTimeout   = 5 * time.Second
	HandshakeStep      = 500 * time.Millisecond

	// Demo mode
	SimulatorInterval = 15 * time.Millisecond // Line rate of the simulated controller

	// Files
	DefaultLogDir    = "."
	DefaultExport    = "radar.png"
	DefaultRender    = "sweeps.html"
	DefaultLogFile   = "sonar-radar.log"
	SweepLogFileX    = "datax.txt"
	SweepLogFileY    = "datay.txt"
	MaxConfigSizeB   = 1 << 20
	ConfigFileSuffix = ".json"

	// App
	AppName    = "SONAR-RADAR"
	AppVersion = "1.0"
)
