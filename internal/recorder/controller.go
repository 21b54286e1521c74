// Package recorder decides when a video file should be open and feeds it frames.
package recorder

import (
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ayusman/watchpost/internal/capture"
)

// DefaultFPS is the target rate of recorded video.
const DefaultFPS = 15.0

// Config configures a Controller.
type Config struct {
	OutputDir string
	// Ext is the container extension including the dot.
	Ext     string
	FPS     float64
	Factory WriterFactory
	Logger  *zap.SugaredLogger
}

type session struct {
	info   Session
	writer Writer
}

// Controller is the recording state machine. Recording is active exactly
// when a manual request or a motion request is present; each activation
// opens one file and each deactivation closes it.
//
// SetManual, NotifyMotion and the query methods are safe for concurrent use.
// Reconcile, WriteIfActive and Close must only be called from the
// acquisition goroutine, which owns the writer.
type Controller struct {
	cfg      Config
	log      *zap.SugaredLogger
	interval time.Duration
	now      func() time.Time

	mu        sync.Mutex
	manual    bool
	motion    bool
	blocked   bool
	current   *session
	lastWrite time.Time
	lastErr   error
	written   int64
	waiters   []chan error
	listeners []func(Event)

	stamp  string
	issued map[string]struct{}
}

// NewController creates an inactive Controller.
func NewController(cfg Config) *Controller {
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultFPS
	}
	if cfg.Ext == "" {
		cfg.Ext = DefaultExt
	}
	if cfg.Factory == nil {
		cfg.Factory = VideoWriterFactory(DefaultCodec)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Controller{
		cfg:      cfg,
		log:      log,
		interval: writeInterval(cfg.FPS),
		now:      time.Now,
		issued:   make(map[string]struct{}),
	}
}

// writeInterval is 1/fps rounded up to the next nanosecond, so no window
// of frame time holds more than ceil(window*fps) writes.
func writeInterval(fps float64) time.Duration {
	return time.Duration(math.Ceil(float64(time.Second) / fps))
}

// SetManual sets the manual recording request. It takes effect on the next
// Reconcile and always counts as a fresh request after a failure.
func (c *Controller) SetManual(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.manual = on
	c.blocked = false
}

// NotifyMotion sets the motion recording request.
func (c *Controller) NotifyMotion(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.motion != on {
		c.motion = on
		c.blocked = false
	}
}

// OnEvent registers a listener for recording events. Listeners run on the
// acquisition goroutine and must not block.
func (c *Controller) OnEvent(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.listeners = append(c.listeners, fn)
}

// Reconcile brings the recording state in line with the requests, opening a
// new file of the given frame size or closing the current one.
//
// A failed open returns *WriterOpenError and leaves the controller inactive;
// no new open is attempted until the requests are re-evaluated.
func (c *Controller) Reconcile(size image.Point) error {
	c.mu.Lock()
	want := c.manual || c.motion
	active := c.current != nil
	blocked := c.blocked
	trigger := triggerOf(c.manual, c.motion)
	if !want {
		c.blocked = false
	}
	// Only callers that registered before the requests were read get this result.
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()

	var err error
	switch {
	case want && !active && !blocked:
		err = c.open(size, trigger)
	case !want && active:
		c.finish(EventStopped, nil)
	}

	if err != nil {
		c.mu.Lock()
		c.lastErr = err
		c.mu.Unlock()
	}

	for _, w := range waiters {
		w <- err
	}
	return err
}

// RequestManual sets the manual recording request like SetManual and
// returns a channel that receives the result of the first Reconcile to
// observe it: nil, or the *WriterOpenError of a failed open.
func (c *Controller) RequestManual(on bool) <-chan error {
	ch := make(chan error, 1)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.manual = on
	c.blocked = false
	c.waiters = append(c.waiters, ch)
	return ch
}

func (c *Controller) open(size image.Point, trigger Trigger) error {
	now := c.now()

	path, err := c.nextPath(now)
	var w Writer
	if err == nil {
		w, err = c.cfg.Factory(path, c.cfg.FPS, size)
	}
	if err != nil {
		openErr := &WriterOpenError{Path: path, Err: err}

		c.mu.Lock()
		c.blocked = true
		c.mu.Unlock()

		c.log.Errorw("Failed to start recording", "path", path, "error", err)
		c.emit(Event{
			Type:    EventFailed,
			Session: Session{Path: path, Trigger: trigger, StartedAt: now},
			Err:     openErr,
		})
		return openErr
	}

	s := &session{
		info: Session{
			ID:        uuid.NewString(),
			Path:      path,
			Trigger:   trigger,
			StartedAt: now,
		},
		writer: w,
	}

	c.mu.Lock()
	c.current = s
	c.lastWrite = time.Time{}
	c.lastErr = nil
	info := s.info
	c.mu.Unlock()

	c.log.Infow("Recording started",
		"id", info.ID,
		"path", path,
		"trigger", trigger,
		"size", fmt.Sprintf("%dx%d", size.X, size.Y),
		"fps", c.cfg.FPS)
	c.emit(Event{Type: EventStarted, Session: info})

	return nil
}

// finish closes the current writer and clears the session.
func (c *Controller) finish(typ EventType, cause error) error {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()

	if s == nil {
		return nil
	}

	closeErr := s.writer.Close()

	c.mu.Lock()
	s.info.EndedAt = c.now()
	info := s.info
	c.current = nil
	if typ == EventFailed {
		c.blocked = true
		c.lastErr = cause
	}
	c.mu.Unlock()

	if closeErr != nil {
		c.log.Warnw("Failed to finalize recording", "path", info.Path, "error", closeErr)
	}
	if typ == EventFailed {
		c.log.Errorw("Recording aborted", "id", info.ID, "path", info.Path, "error", cause)
	} else {
		c.log.Infow("Recording stopped",
			"id", info.ID,
			"path", info.Path,
			"frames", info.Frames,
			"duration", info.EndedAt.Sub(info.StartedAt))
	}

	c.emit(Event{Type: typ, Session: info, Err: cause})
	return closeErr
}

// WriteIfActive writes f to the current recording, at most once per
// 1/FPS of frame time. Frames arriving faster are dropped.
func (c *Controller) WriteIfActive(f *capture.Frame, now time.Time) error {
	c.mu.Lock()
	s := c.current
	due := s != nil && (c.lastWrite.IsZero() || now.Sub(c.lastWrite) >= c.interval)
	c.mu.Unlock()

	if !due {
		return nil
	}

	if err := s.writer.Write(f); err != nil {
		werr := &WriterWriteError{Path: s.info.Path, Err: err}
		if werr.Permanent() {
			c.finish(EventFailed, werr)
		} else {
			c.log.Debugw("Dropped frame", "path", s.info.Path, "error", err)
		}
		return werr
	}

	c.mu.Lock()
	c.lastWrite = now
	s.info.Frames++
	c.written++
	c.mu.Unlock()

	return nil
}

// Close finalizes any active recording. Called once on shutdown.
func (c *Controller) Close() error {
	return c.finish(EventStopped, nil)
}

// IsRecording reports whether a file is currently open.
func (c *Controller) IsRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Current returns the active session.
func (c *Controller) Current() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return Session{}, false
	}
	return c.current.info, true
}

// Manual reports the manual request flag.
func (c *Controller) Manual() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.manual
}

// Motion reports the motion request flag.
func (c *Controller) Motion() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.motion
}

// LastError returns the most recent open or permanent write failure,
// cleared when a recording starts successfully.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// FramesWritten returns the number of frames written across all sessions.
func (c *Controller) FramesWritten() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written
}

func (c *Controller) emit(ev Event) {
	c.mu.Lock()
	listeners := append([]func(Event)(nil), c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

// nextPath returns a file name derived from now that has not been used yet.
// Activations within the same second get a numeric suffix.
func (c *Controller) nextPath(now time.Time) (string, error) {
	if err := os.MkdirAll(c.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	stamp := now.Format("2006-01-02_15-04-05")
	if stamp != c.stamp {
		c.stamp = stamp
		clear(c.issued)
	}

	base := filepath.Join(c.cfg.OutputDir, "video_"+stamp)
	path := base + c.cfg.Ext
	for n := 1; c.taken(path); n++ {
		path = fmt.Sprintf("%s_%d%s", base, n, c.cfg.Ext)
	}
	c.issued[path] = struct{}{}

	return path, nil
}

func (c *Controller) taken(path string) bool {
	if _, ok := c.issued[path]; ok {
		return true
	}
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
