package motion

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/watchpost/internal/capture"
)

// Default monitor timing.
const (
	DefaultPersistence  = 5 * time.Second
	DefaultPollInterval = 100 * time.Millisecond
)

// FrameSource is where the monitor polls frames from.
type FrameSource interface {
	Latest() (*capture.Frame, bool)
}

// Analyzer is the detection step run on each new frame.
type Analyzer interface {
	Detect(frame *capture.Frame) (Result, error)
	Reset()
}

// MonitorConfig configures a Monitor.
type MonitorConfig struct {
	// Persistence keeps motion active this long after the last detection.
	Persistence  time.Duration
	PollInterval time.Duration
	Logger       *zap.SugaredLogger
}

// Monitor runs an Analyzer against the latest frame in the background and
// holds the debounced motion flag.
type Monitor struct {
	source   FrameSource
	analyzer Analyzer
	cfg      MonitorConfig
	log      *zap.SugaredLogger
	now      func() time.Time

	mu         sync.Mutex
	active     bool
	lastMotion time.Time
	lastResult Result
	lastSeq    uint64
	running    bool
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// NewMonitor creates a stopped Monitor.
func NewMonitor(source FrameSource, analyzer Analyzer, cfg MonitorConfig) *Monitor {
	if cfg.Persistence <= 0 {
		cfg.Persistence = DefaultPersistence
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Monitor{
		source:   source,
		analyzer: analyzer,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Start launches the polling loop. Calling Start on a running monitor does nothing.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	m.running = true
	m.lastSeq = 0
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	go m.run(m.stopCh, m.doneCh)

	m.log.Infow("Motion detection started",
		"persistence", m.cfg.Persistence,
		"poll_interval", m.cfg.PollInterval)
}

// Stop ends the polling loop, waits for it to exit, clears the motion flag
// and resets the detector baseline. Calling Stop on a stopped monitor does nothing.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stopCh, doneCh := m.stopCh, m.doneCh
	m.mu.Unlock()

	close(stopCh)
	<-doneCh

	m.mu.Lock()
	m.active = false
	m.lastResult = Result{}
	m.mu.Unlock()

	m.analyzer.Reset()

	m.log.Info("Motion detection stopped")
}

// Running reports whether the polling loop is active.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Active reports whether motion is currently in effect, including the
// persistence period after the last detection.
func (m *Monitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// LastMotion returns the time of the last positive detection.
func (m *Monitor) LastMotion() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastMotion
}

// LastResult returns the most recent detection result.
func (m *Monitor) LastResult() Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastResult
}

func (m *Monitor) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.poll()
		}
	}
}

// poll runs one monitor tick.
func (m *Monitor) poll() {
	frame, ok := m.source.Latest()
	if !ok {
		return
	}

	m.mu.Lock()
	fresh := frame.Seq != m.lastSeq
	m.lastSeq = frame.Seq
	m.mu.Unlock()

	if !fresh {
		m.observe(false, m.now())
		return
	}

	res, err := m.analyzer.Detect(frame)
	if err != nil {
		m.log.Warnw("Motion detection failed", "seq", frame.Seq, "error", err)
		res = Result{}
	}

	m.mu.Lock()
	m.lastResult = res
	m.mu.Unlock()

	m.observe(res.Motion, m.now())
}

// observe folds one detection outcome into the debounced flag.
// It returns true when the flag changed.
func (m *Monitor) observe(detected bool, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if detected {
		changed := !m.active
		m.active = true
		m.lastMotion = now
		if changed {
			m.log.Infow("Motion detected", "at", now)
		}
		return changed
	}

	if m.active && now.Sub(m.lastMotion) > m.cfg.Persistence {
		m.active = false
		m.log.Infow("Motion ended", "last_motion", m.lastMotion)
		return true
	}
	return false
}
