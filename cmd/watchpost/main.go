package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/watchpost/internal/app"
	"github.com/ayusman/watchpost/internal/capture"
	"github.com/ayusman/watchpost/internal/config"
	"github.com/ayusman/watchpost/internal/hook"
	"github.com/ayusman/watchpost/internal/logger"
	"github.com/ayusman/watchpost/internal/motion"
	"github.com/ayusman/watchpost/internal/recorder"
	"github.com/ayusman/watchpost/internal/server"
	"github.com/ayusman/watchpost/internal/store"
	"github.com/ayusman/watchpost/internal/tray"
)

func main() {
	envFile := flag.String("env", ".env", "path to an optional .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, syncLog, err := logger.New(logger.Config{Dir: cfg.LogDir, Level: cfg.LogLevel, Console: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer syncLog()

	if err := run(cfg, log); err != nil {
		log.Errorw("Watchpost stopped with error", "error", err)
		syncLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.SugaredLogger) error {
	for _, dir := range []string{cfg.DataDir, cfg.VideoDir, cfg.PhotoDir, cfg.HookDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	manager := hook.NewManager(cfg.HookDir)
	if err := manager.Discover(); err != nil {
		log.Warnw("Failed to discover hooks", "dir", cfg.HookDir, "error", err)
	}
	for _, h := range manager.List() {
		log.Infow("Hook loaded", "name", h.Manifest.Name, "events", h.Manifest.Events)
	}
	hooks := hook.NewDispatcher(manager, hook.NewExecutor(cfg.HookTimeout), log.Named("hook"))
	defer func() {
		// Runs after the pipeline has closed, so the final recording hooks
		// get a chance to complete.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HookTimeout)
		defer cancel()
		hooks.Shutdown(ctx)
	}()

	transform := capture.NewTransform(st.Settings().GetBool(store.SettingMirror, cfg.CameraMirror))

	pipeline := app.New(app.Config{
		Camera:        newCamera(cfg, transform),
		Transform:     transform,
		Store:         st,
		Hooks:         hooks,
		Logger:        log.Named("app"),
		VideoDir:      cfg.VideoDir,
		PhotoDir:      cfg.PhotoDir,
		VideoExt:      cfg.VideoExt,
		RecordFPS:     cfg.RecordFPS,
		WriterFactory: recorder.VideoWriterFactory(cfg.VideoCodec),
		Motion: motion.Config{
			BlurSize:         cfg.BlurSize,
			DiffThreshold:    float32(cfg.DiffThreshold),
			MinArea:          float64(cfg.MinArea),
			DilateIterations: cfg.DilateIterations,
		},
		MotionPersistence: cfg.MotionPersistence,
		MotionPoll:        cfg.MotionPollInterval,
		TickSleep:         cfg.TickSleep,
	})
	if err := pipeline.Start(); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	defer pipeline.Close()

	if pipeline.MotionEnabledSetting(cfg.MotionOnStart) {
		pipeline.StartMotionDetection()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		log.Infow("Serving static files", "dir", staticDir)
	}

	srv := server.New(server.Config{
		StaticDir: staticDir,
		Store:     st,
		Pipeline:  pipeline,
		Logger:    log.Named("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(ctx, cfg.Addr)
	}()

	if cfg.Tray {
		// systray must own the main thread on macOS; the rest keeps running
		// in the background until the menu or a signal quits.
		t := tray.New()
		go func() {
			<-ctx.Done()
			t.Quit()
		}()
		runTray(ctx, t, cfg, pipeline, stop, log)
	}

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-errCh:
		stop()
		return fmt.Errorf("http server: %w", err)
	}

	// Stop serving before the pipeline so stream clients can drain.
	if err := <-errCh; err != nil {
		log.Warnw("HTTP server shutdown", "error", err)
	}
	return nil
}

// newCamera builds the configured frame source.
func newCamera(cfg *config.Config, transform *capture.Transform) capture.Camera {
	if cfg.CameraSource == config.SourceSynthetic {
		cam := capture.NewMockCamera(capture.SyntheticSequence(cfg.CameraWidth, cfg.CameraHeight, 4*cfg.CameraFPS), true)
		cam.SetInterval(time.Second / time.Duration(cfg.CameraFPS))
		return cam
	}

	return capture.NewCamera(capture.Options{
		DeviceID:  cfg.CameraID,
		Width:     cfg.CameraWidth,
		Height:    cfg.CameraHeight,
		FPS:       cfg.CameraFPS,
		Layout:    capture.Layout(cfg.CameraLayout),
		Transform: transform,
	})
}

// runTray blocks until the tray menu quits. Tray state follows the pipeline
// through a status poll.
func runTray(ctx context.Context, t *tray.Tray, cfg *config.Config, p *app.App, quit context.CancelFunc, log *zap.SugaredLogger) {
	t.SetMotion(p.MotionDetectionEnabled())
	t.OnRecord(func(on bool) {
		tctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := p.TriggerManualRecording(tctx, on); err != nil {
			log.Warnw("Manual recording failed", "error", err)
		}
		t.SetRecording(p.IsRecording())
	})
	t.OnMotion(func(on bool) {
		if on {
			p.StartMotionDetection()
		} else {
			p.StopMotionDetection()
		}
	})
	t.OnOpen(func() {
		if err := openBrowser(viewerURL(cfg.Addr)); err != nil {
			log.Warnw("Failed to open viewer", "error", err)
		}
	})
	t.OnQuit(quit)

	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.SetRecording(p.IsRecording())
			}
		}
	}()

	t.Run()
}

func viewerURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.watchpost/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".watchpost", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
