package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"sonar-radar.klederson.com/internal/app"
	"sonar-radar.klederson.com/internal/config"
	"sonar-radar.klederson.com/internal/link"
	"sonar-radar.klederson.com/internal/logging"
	"sonar-radar.klederson.com/internal/radar"
	"sonar-radar.klederson.com/internal/stream"
	"sonar-radar.klederson.com/internal/sweeplog"
	"sonar-radar.klederson.com/internal/telemetry"
)

var (
	flagConfig   string
	flagPort     string
	flagBaud     int
	flagLimit    float64
	flagLow      float64
	flagHigh     float64
	flagRadius   int
	flagSpeed    int
	flagTheme    string
	flagLogDir   string
	flagLogFile  string
	flagLogLevel string
	flagDemo     bool
	flagStream   string
	flagExport   string

	flagInflux telemetry.Config
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sonar-radar",
		Short: "Sonar Radar - terminal scope for a servo-mounted ultrasonic rangefinder",
		Long: `Sonar Radar drives a rotating ultrasonic rangefinder over a serial link
and plots its echoes on a half-circle ASCII scope.

Keys: c connect, s sweep, o object scan, a static aim (left/right to move),
x stop, r reset, 1/2 speed, t/b toggle panes, m theme, e export PNG, q quit.
Use --demo to run against the built-in simulator without hardware.`,
		SilenceUsage: true,
		RunE:         run,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "JSON settings file")
	pf.StringVar(&flagPort, "port", "", "Serial port of the controller")
	pf.IntVar(&flagBaud, "baud", config.DefaultBaudRate, "Serial baud rate")
	pf.Float64Var(&flagLimit, "limit", 50, "Distance limit in cm")
	pf.Float64Var(&flagLow, "low", 0, "Lower threshold in cm")
	pf.Float64Var(&flagHigh, "high", 20, "Upper threshold in cm")
	pf.IntVar(&flagRadius, "radius", config.ServoSpan, "Detection radius in degrees (30-180)")
	pf.IntVar(&flagSpeed, "speed", 1, "Scan speed multiplier (1 or 2)")
	pf.StringVar(&flagTheme, "theme", config.Themes[0], "Colour theme")
	pf.StringVar(&flagLogDir, "log-dir", config.DefaultLogDir, "Directory for datax.txt/datay.txt")
	pf.StringVar(&flagLogLevel, "log-level", "info", "Log level")
	pf.BoolVar(&flagDemo, "demo", false, "Use the built-in simulator instead of a serial port")
	pf.StringVar(&flagStream, "stream", "", "Serve live frames over WebSocket on this address (e.g. :8080)")
	pf.StringVar(&flagInflux.Server, "influx-url", "", "InfluxDB server URL; telemetry is off when empty")
	pf.StringVar(&flagInflux.Token, "influx-token", os.Getenv("INFLUX_TOKEN"), "InfluxDB token")
	pf.StringVar(&flagInflux.Org, "influx-org", "sonar", "InfluxDB organisation")
	pf.StringVar(&flagInflux.Bucket, "influx-bucket", "sonar.raw", "InfluxDB bucket")

	rootCmd.Flags().StringVar(&flagLogFile, "log-file", config.DefaultLogFile, "Log file (the terminal belongs to the UI)")
	rootCmd.Flags().StringVar(&flagExport, "export", config.DefaultExport, "PNG path for the export key")

	rootCmd.AddCommand(scanCmd(), portsCmd(), renderCmd())
	return rootCmd
}

func run(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	logger := logrus.StandardLogger()
	closer, err := logging.Setup(logger, flagLogFile, flagLogLevel)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sinks, closeSinks := buildSinks(ctx, logger)
	defer closeSinks()

	model := app.New(settings, app.Deps{
		Logger:   logger,
		Recorder: sweeplog.New(settings.LogDir, logger),
		Sinks:    sinks,
		Export:   flagExport,
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithFPS(config.TargetFPS),
	)
	// Handshake progress is delivered through the program.
	model.Attach(p)
	defer model.Close()

	logger.WithField("port", settings.PortName).Info("starting ui")
	_, err = p.Run()
	return err
}

// loadSettings layers the config file under explicitly set flags.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	s := config.Default()
	if flagConfig != "" {
		loaded, err := config.Load(flagConfig)
		if err != nil {
			return s, err
		}
		s = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		s.PortName = flagPort
	}
	if flags.Changed("baud") {
		s.BaudRate = flagBaud
	}
	if flags.Changed("limit") {
		s.DistanceLimit = flagLimit
	}
	if flags.Changed("low") {
		s.ThresholdLow = flagLow
	}
	if flags.Changed("high") {
		s.ThresholdHigh = flagHigh
	}
	if flags.Changed("radius") {
		s.DetectionRadius = flagRadius
	}
	if flags.Changed("speed") {
		s.Speed = flagSpeed
	}
	if flags.Changed("theme") {
		s.Theme = flagTheme
	}
	if flags.Changed("log-dir") {
		s.LogDir = flagLogDir
	}
	if flagDemo {
		s.PortName = link.SimulatorPath
	}

	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// buildSinks starts the optional stream server and telemetry writer.
func buildSinks(ctx context.Context, logger logrus.FieldLogger) (radar.Sinks, func()) {
	var sinks radar.Sinks
	var closers []func()

	if flagStream != "" {
		hub := stream.NewHub(logger)
		sinks = append(sinks, hub)
		go func() {
			if err := hub.Serve(ctx, flagStream); err != nil {
				logger.WithError(err).Error("stream server stopped")
			}
		}()
	}
	if flagInflux.Enabled() {
		t := telemetry.Dial(flagInflux, logger)
		sinks = append(sinks, t)
		closers = append(closers, t.Close)
	}

	return sinks, func() {
		for _, c := range closers {
			c()
		}
	}
}
