// Command facegauge overlays a calibration-and-measurement guide on a live
// camera feed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"facegauge/calibration"
	"facegauge/config"
	"facegauge/detection"
	"facegauge/logging"
	"facegauge/measurement"
	"facegauge/notify"
	"facegauge/overlay"
	"facegauge/report"
	"facegauge/session"
	"facegauge/timeutil"
	"facegauge/video"
)

var (
	configPath      = flag.String("config", "", "YAML configuration file (defaults are used when omitted)")
	device          = flag.String("device", "", "Camera index or video file/stream URL, overrides camera.device\n\t\tExample: -device=1 or -device=/tmp/clip.mp4")
	debugMode       = flag.Bool("debug", false, "Enable debug logging")
	source          = flag.String("source", "", "Measurement source name, overrides source")
	resultsDir      = flag.String("results", "", "Directory for results files, overrides results_dir")
	statusOverlay   = flag.Bool("status-overlay", true, "Show calibration status in the lower-left corner")
	terminalOverlay = flag.Bool("terminal-overlay", true, "Show recent messages in the upper-left corner")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("facegauge stopped", zap.Error(err))
		os.Exit(1)
	}
}

// loadConfig reads the file (if any) and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if *device != "" {
		cfg.Camera.Device = *device
	}
	if *source != "" {
		cfg.Source = *source
	}
	if *resultsDir != "" {
		cfg.ResultsDir = *resultsDir
	}
	if *debugMode {
		cfg.Log.Level = "debug"
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "status-overlay":
			cfg.Overlay.Status = *statusOverlay
		case "terminal-overlay":
			cfg.Overlay.Terminal = *terminalOverlay
		}
	})
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	tick, err := cfg.Tick()
	if err != nil {
		return err
	}
	reconnect, err := cfg.Reconnect()
	if err != nil {
		return err
	}

	sources := detection.NewSourceManager(logger.Named("detection"))
	if err := sources.Initialize(cfg.Source); err != nil {
		return err
	}
	defer sources.Close()

	a := newApp(logger)
	a.input = os.Stdin
	a.rect = calibration.Rect{
		Left:   cfg.Display.Left,
		Top:    cfg.Display.Top,
		Width:  cfg.Display.Width,
		Height: cfg.Display.Height,
	}

	clock := timeutil.RealClock{}
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	machine, err := session.NewMachine(session.Config{
		Logger:       logger.Named("session"),
		Engine:       calibration.NewEngine(logger.Named("calibration"), rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))),
		Pipeline:     measurement.NewPipeline(),
		Source:       sources.Source(),
		Scheduler:    session.NewLoopScheduler(clock, a.post(loopCtx)),
		Settings:     cfg.Settings,
		TickInterval: tick,
	})
	if err != nil {
		return err
	}
	a.machine = machine

	lines := cfg.Overlay.TerminalLines
	if lines == 0 {
		lines = 1
	}
	a.history = notify.NewHistory(lines)
	machine.Subscribe(notify.NewConsole(logger.Named("notify"), a.history).Listener())
	machine.Subscribe(report.NewWriter(cfg.ResultsDir, logger.Named("report")).Listener())

	a.renderer = overlay.NewRenderer(logger.Named("overlay"), overlay.Options{
		StatusOverlay:   cfg.Overlay.Status,
		TerminalOverlay: cfg.Overlay.Terminal && cfg.Overlay.TerminalLines > 0,
	})

	a.capture = video.NewCapture(cfg.Camera.Device, reconnect, clock, logger.Named("video"))
	if _, _, err := a.capture.Open(); err != nil {
		if !errors.Is(err, video.ErrDeviceUnavailable) {
			return err
		}
		logger.Warn("starting without camera", zap.Error(err))
		machine.DeviceLost(err)
	}
	defer a.capture.Close()

	a.canvas = video.NewMatCanvas()
	defer a.canvas.Close()
	a.window = video.NewWindow(cfg.Display.Title, int(cfg.Display.Width), int(cfg.Display.Height))
	defer a.window.Close()

	logger.Info("facegauge ready",
		zap.String("device", cfg.Camera.Device),
		zap.String("source", sources.Info().Name),
		zap.Duration("tick", tick))
	a.history.Add("Ready. Press C to calibrate or A for automatic calibration")

	err = a.run(loopCtx)
	machine.Reset()
	return err
}
