// Package app wires the camera, frame buffer, motion monitor and recording
// controller into the running watchpost service.
package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/watchpost/internal/capture"
	"github.com/ayusman/watchpost/internal/hook"
	"github.com/ayusman/watchpost/internal/motion"
	"github.com/ayusman/watchpost/internal/recorder"
	"github.com/ayusman/watchpost/internal/store"
)

// Pipeline defaults.
const (
	// DefaultTickSleep is the pause between acquisition ticks.
	DefaultTickSleep = 5 * time.Millisecond
	// SnapshotQuality is the JPEG quality of saved snapshots.
	SnapshotQuality = 95
	// StreamQuality is the JPEG quality of live stream frames.
	StreamQuality = 80
	// eventQueueSize bounds recording events waiting for the store and hooks.
	eventQueueSize = 64
)

// Config holds the collaborators and tunables of an App.
type Config struct {
	Camera    capture.Camera
	Transform *capture.Transform

	// Store indexes recordings and snapshots and persists settings. Optional.
	Store *store.Store
	// Hooks receives recording and snapshot events. Optional.
	Hooks  *hook.Dispatcher
	Logger *zap.SugaredLogger

	VideoDir      string
	PhotoDir      string
	VideoExt      string
	RecordFPS     float64
	WriterFactory recorder.WriterFactory

	Motion            motion.Config
	MotionPersistence time.Duration
	MotionPoll        time.Duration
	// Analyzer replaces the OpenCV motion detector when set.
	Analyzer motion.Analyzer

	TickSleep time.Duration
}

// App is the camera pipeline: one acquisition loop feeding a shared frame
// buffer, a motion monitor reading from it, and the recording controller.
type App struct {
	config    Config
	log       *zap.SugaredLogger
	camera    capture.Camera
	transform *capture.Transform
	buffer    *capture.FrameBuffer
	detector  *motion.Detector
	monitor   *motion.Monitor
	recorder  *recorder.Controller

	captureErrors atomic.Int64
	droppedEvents atomic.Int64

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	events  chan recorder.Event
	eventWG sync.WaitGroup
	snapMu  sync.Mutex
}

// New creates a stopped App.
func New(config Config) *App {
	log := config.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if config.TickSleep < 0 {
		config.TickSleep = 0
	}
	if config.Transform == nil {
		config.Transform = capture.NewTransform(false)
	}

	a := &App{
		config:    config,
		log:       log,
		camera:    config.Camera,
		transform: config.Transform,
		buffer:    capture.NewFrameBuffer(),
	}

	analyzer := config.Analyzer
	if analyzer == nil {
		a.detector = motion.NewDetector(config.Motion)
		analyzer = a.detector
	}

	a.monitor = motion.NewMonitor(a.buffer, analyzer, motion.MonitorConfig{
		Persistence:  config.MotionPersistence,
		PollInterval: config.MotionPoll,
		Logger:       log.Named("motion"),
	})

	a.recorder = recorder.NewController(recorder.Config{
		OutputDir: config.VideoDir,
		Ext:       config.VideoExt,
		FPS:       config.RecordFPS,
		Factory:   config.WriterFactory,
		Logger:    log.Named("recorder"),
	})
	a.recorder.OnEvent(a.enqueueEvent)

	return a
}

// Start opens the camera and launches the acquisition loop.
// Calling Start on a running App does nothing.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}

	if a.config.Store != nil {
		if n, err := a.config.Store.Recordings().MarkInterrupted(); err != nil {
			a.log.Warnw("Failed to mark interrupted recordings", "error", err)
		} else if n > 0 {
			a.log.Infow("Marked interrupted recordings", "count", n)
		}
	}

	a.events = make(chan recorder.Event, eventQueueSize)
	a.eventWG.Add(1)
	go a.processEvents(a.events)

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	a.log.Infow("Pipeline started", "camera_fps", a.camera.FPS(), "record_fps", a.config.RecordFPS)
	return nil
}

// Stop halts motion detection and the acquisition loop, finalizes any open
// recording and releases the camera.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh == nil {
		return
	}

	a.monitor.Stop()

	close(a.stopCh)
	<-a.doneCh
	a.stopCh = nil
	a.doneCh = nil

	// The loop has exited, nothing sends on events anymore.
	close(a.events)
	a.eventWG.Wait()
	a.events = nil

	if err := a.camera.Close(); err != nil {
		a.log.Warnw("Error closing camera", "error", err)
	}

	a.log.Info("Pipeline stopped")
}

// Close stops the App and releases the motion detector.
func (a *App) Close() {
	a.Stop()
	if a.detector != nil {
		a.detector.Close()
	}
}

// Running reports whether the acquisition loop is active.
func (a *App) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopCh != nil
}

// TriggerManualRecording sets or clears the manual recording request and
// waits, bounded by ctx, for the acquisition loop to act on it. It returns
// a *recorder.WriterOpenError if the file could not be created. When ctx
// ends first the request stays in place and nil is returned.
func (a *App) TriggerManualRecording(ctx context.Context, on bool) error {
	result := a.recorder.RequestManual(on)
	a.log.Infow("Manual recording requested", "on", on)

	if !a.Running() {
		return nil
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return nil
	}
}

// IsRecording reports whether a video file is currently open.
func (a *App) IsRecording() bool {
	return a.recorder.IsRecording()
}

// CaptureSnapshot returns the latest published frame, or
// capture.ErrNotAvailable before the first frame.
func (a *App) CaptureSnapshot() (*capture.Frame, error) {
	f, ok := a.buffer.Latest()
	if !ok {
		return nil, capture.ErrNotAvailable
	}
	return f, nil
}

// StartMotionDetection starts the motion monitor. Calling it while running
// does nothing.
func (a *App) StartMotionDetection() {
	a.monitor.Start()
	a.saveSetting(store.SettingMotionEnabled, true)
}

// StopMotionDetection stops the motion monitor and withdraws the motion
// recording request. Calling it while stopped does nothing.
func (a *App) StopMotionDetection() {
	a.monitor.Stop()
	a.recorder.NotifyMotion(false)
	a.saveSetting(store.SettingMotionEnabled, false)
}

// MotionDetectionEnabled reports whether the motion monitor is running.
func (a *App) MotionDetectionEnabled() bool {
	return a.monitor.Running()
}

// MotionEnabledSetting returns the persisted motion detection flag.
func (a *App) MotionEnabledSetting(def bool) bool {
	if a.config.Store == nil {
		return def
	}
	return a.config.Store.Settings().GetBool(store.SettingMotionEnabled, def)
}

// ZoomIn increases digital zoom by one step and returns the new level.
func (a *App) ZoomIn() float64 {
	z := a.transform.ZoomIn()
	a.log.Debugw("Zoom changed", "zoom", z)
	return z
}

// ZoomOut decreases digital zoom by one step and returns the new level.
func (a *App) ZoomOut() float64 {
	z := a.transform.ZoomOut()
	a.log.Debugw("Zoom changed", "zoom", z)
	return z
}

// SetMirror turns horizontal mirroring on or off and persists the choice.
func (a *App) SetMirror(on bool) {
	a.transform.SetMirror(on)
	a.saveSetting(store.SettingMirror, on)
}

// Store returns the configured store, which may be nil.
func (a *App) Store() *store.Store {
	return a.config.Store
}

func (a *App) saveSetting(key string, value bool) {
	if a.config.Store == nil {
		return
	}
	if err := a.config.Store.Settings().SetBool(key, value); err != nil {
		a.log.Warnw("Failed to persist setting", "key", key, "error", err)
	}
}
