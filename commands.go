package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"sonar-radar.klederson.com/internal/config"
	"sonar-radar.klederson.com/internal/export"
	"sonar-radar.klederson.com/internal/link"
	"sonar-radar.klederson.com/internal/logging"
	"sonar-radar.klederson.com/internal/radar"
	"sonar-radar.klederson.com/internal/stream"
	"sonar-radar.klederson.com/internal/sweeplog"
	"sonar-radar.klederson.com/internal/telemetry"
)

var (
	flagSweeps int
	flagOut    string
)

func scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run object scans without the UI and append them to the sweep log",
		RunE:  runScan,
	}
	cmd.Flags().IntVar(&flagSweeps, "sweeps", 1, "Number of sweeps to record (0 = until interrupted)")
	return cmd
}

func portsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := link.ListPorts()
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no serial ports found")
				return nil
			}
			for _, p := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
}

func renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the sweep log as an interactive 3D HTML page",
		RunE:  runRender,
	}
	cmd.Flags().StringVar(&flagOut, "out", config.DefaultRender, "Output HTML file")
	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if settings.PortName == "" {
		return errors.New("no port configured (use --port or --demo)")
	}

	logger := logrus.StandardLogger()
	closer, err := logging.Setup(logger, "", flagLogLevel)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var open link.Opener
	if settings.PortName == link.SimulatorPath {
		open = link.OpenSimulator
	}
	l, err := link.Handshake{
		Path:    settings.PortName,
		Options: link.PortOptions{BaudRate: settings.BaudRate, ReadTimeout: settings.ReadTimeout.Std()},
		Open:    open,
		Logger:  logger,
	}.Run(ctx, func(dots int) {
		logger.WithField("port", settings.PortName).Debug(link.ConnectProgressMsg{Port: settings.PortName, Dots: dots}.Text())
	})
	if err != nil {
		return err
	}
	defer l.Close()

	var sinks radar.Sinks
	var hub *stream.Hub
	if flagStream != "" {
		hub = stream.NewHub(logger)
		sinks = append(sinks, hub)
	}
	if flagInflux.Enabled() {
		t := telemetry.Dial(flagInflux, logger)
		defer t.Close()
		sinks = append(sinks, t)
	}

	recorder := sweeplog.New(settings.LogDir, logger)
	ctrl := radar.NewDetectionController(radar.DetectionConfig{
		Steps: settings.DetectionRadius,
		Speed: radar.Speed(settings.Speed),
		Limit: settings.DistanceLimit,
	}, l, recorder, radar.WithLogger(logger.WithField("mode", "detect")), radar.WithSink(sinks))

	g, ctx := errgroup.WithContext(ctx)
	ctx, done := context.WithCancel(ctx)

	g.Go(func() error {
		// The server lives as long as the scan.
		defer done()
		for i := 0; flagSweeps == 0 || i < flagSweeps; i++ {
			if err := l.Flush(); err != nil {
				return err
			}
			record, err := ctrl.Run(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return fmt.Errorf("sweep %d: %w", i+1, err)
			}
			logger.WithFields(logrus.Fields{
				"sweep":  i + 1,
				"points": len(record),
			}).Info("sweep recorded")
			if err := ctrl.Reset(); err != nil {
				return err
			}
		}
		return nil
	})
	if hub != nil {
		g.Go(func() error {
			return hub.Serve(ctx, flagStream)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	xPath, yPath := recorder.Paths()
	logger.WithFields(logrus.Fields{"x": xPath, "y": yPath}).Info("scan complete")
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	records, err := sweeplog.Read(settings.LogDir)
	if err != nil {
		return err
	}

	f, err := os.Create(flagOut)
	if err != nil {
		return fmt.Errorf("create %s: %w", flagOut, err)
	}
	if err := export.Render3D(records, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rendered %d sweeps to %s\n", len(records), flagOut)
	return nil
}
