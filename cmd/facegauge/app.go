package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"facegauge/calibration"
	"facegauge/notify"
	"facegauge/overlay"
	"facegauge/session"
	"facegauge/video"
)

// idleRefresh pumps the window while no frames arrive.
const idleRefresh = 30 * time.Millisecond

// app owns the event loop. Everything that touches the machine, the
// renderer or the window runs on the loop goroutine.
type app struct {
	logger   *zap.Logger
	machine  *session.Machine
	renderer *overlay.Renderer
	history  *notify.History
	capture  *video.Capture
	canvas   *video.MatCanvas
	window   *video.Window
	rect     calibration.Rect
	input    io.Reader

	tasks  chan func()
	frames chan *video.Frame
}

func newApp(logger *zap.Logger) *app {
	return &app{
		logger: logger,
		tasks:  make(chan func(), 64),
		frames: make(chan *video.Frame, 2),
	}
}

// post queues fn for the loop. It gives up once ctx is done.
func (a *app) post(ctx context.Context) func(func()) {
	return func(fn func()) {
		select {
		case a.tasks <- fn:
		case <-ctx.Done():
		}
	}
}

// run starts capture and stdin reading and runs the loop on the calling
// goroutine until the user quits or ctx is cancelled.
func (a *app) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	post := a.post(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.capture.Run(gctx, a.frames, func(err error) {
			post(func() {
				if err != nil {
					a.machine.DeviceLost(err)
				} else {
					a.machine.DeviceRecovered()
				}
			})
		})
	})

	// Scanner.Scan cannot be interrupted, so the reader is not waited on.
	if a.input != nil {
		go a.readCommands(gctx, post)
	}

	loopErr := a.loop(gctx)
	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return loopErr
}

func (a *app) loop(ctx context.Context) error {
	refresh := time.NewTicker(idleRefresh)
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-a.tasks:
			fn()
			continue
		case f := <-a.frames:
			a.draw(f)
			f.Close()
		case <-refresh.C:
		}

		if quit := a.pollKey(); quit {
			a.logger.Info("quit requested")
			return nil
		}
		if !a.window.IsOpen() {
			return nil
		}
	}
}

func (a *app) draw(f *video.Frame) {
	snap := a.machine.Snapshot()
	if err := a.renderer.Render(a.canvas, f, snap, a.history.Recent()); err != nil {
		a.logger.Debug("frame skipped", zap.Error(err))
		return
	}
	a.window.Show(a.canvas)
}

func (a *app) pollKey() bool {
	key := a.window.WaitKey(1)
	if key == video.KeyNone {
		return false
	}
	quit, err := handleKey(a.machine, key)
	if err != nil {
		a.logger.Debug("key rejected", zap.Int("key", key), zap.Error(err))
	}
	return quit
}

func (a *app) readCommands(ctx context.Context, post func(func())) {
	scanner := bufio.NewScanner(a.input)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		cmd, err := parseCommand(line)
		if err != nil {
			a.history.Add(err.Error())
			a.logger.Warn("invalid command", zap.String("line", line), zap.Error(err))
			continue
		}
		post(func() {
			fw, fh := a.renderer.LastSize()
			if err := apply(a.machine, cmd, a.rect, fw, fh); err != nil {
				a.logger.Debug("command rejected", zap.String("command", cmd.name), zap.Error(err))
			}
		})
	}
	if err := scanner.Err(); err != nil {
		a.logger.Warn("stdin closed", zap.Error(err))
	}
}
