package motion

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/watchpost/internal/capture"
)

type fakeAnalyzer struct {
	mu     sync.Mutex
	motion bool
	err    error
	calls  int
	resets int
}

func (a *fakeAnalyzer) Detect(*capture.Frame) (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return Result{}, a.err
	}
	return Result{Motion: a.motion}, nil
}

func (a *fakeAnalyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resets++
}

func (a *fakeAnalyzer) setMotion(on bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.motion = on
}

func (a *fakeAnalyzer) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func newTestMonitor(src FrameSource, a Analyzer) *Monitor {
	return NewMonitor(src, a, MonitorConfig{
		Persistence:  5 * time.Second,
		PollInterval: 5 * time.Millisecond,
	})
}

func TestMonitor_Observe_Persistence(t *testing.T) {
	m := newTestMonitor(capture.NewFrameBuffer(), &fakeAnalyzer{})
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	if !m.observe(true, t0) {
		t.Error("first detection should change the flag")
	}

	tests := []struct {
		name   string
		at     time.Duration
		active bool
	}{
		{name: "within grace", at: 2 * time.Second, active: true},
		{name: "exactly at persistence", at: 5 * time.Second, active: true},
		{name: "just after persistence", at: 5*time.Second + time.Millisecond, active: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.observe(false, t0.Add(tt.at))
			if got := m.Active(); got != tt.active {
				t.Errorf("Active() at T+%v = %v, want %v", tt.at, got, tt.active)
			}
		})
	}
}

func TestMonitor_Observe_DetectionExtendsWindow(t *testing.T) {
	m := newTestMonitor(capture.NewFrameBuffer(), &fakeAnalyzer{})
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	// Motion from 0 to 1s, then still frames.
	for ms := 0; ms <= 1000; ms += 100 {
		m.observe(true, t0.Add(time.Duration(ms)*time.Millisecond))
	}
	if got := m.LastMotion(); !got.Equal(t0.Add(time.Second)) {
		t.Errorf("LastMotion() = %v, want T+1s", got)
	}

	for ms := 1100; ms <= 6000; ms += 100 {
		m.observe(false, t0.Add(time.Duration(ms)*time.Millisecond))
		if !m.Active() {
			t.Fatalf("motion cleared early at T+%dms", ms)
		}
	}

	m.observe(false, t0.Add(6100*time.Millisecond))
	if m.Active() {
		t.Error("motion should clear after 1s + 5s persistence")
	}
}

func TestMonitor_StartIdempotent(t *testing.T) {
	m := newTestMonitor(capture.NewFrameBuffer(), &fakeAnalyzer{})

	m.Start()
	stopCh := m.stopCh
	m.Start()

	if m.stopCh != stopCh {
		t.Error("second Start() should not launch another loop")
	}
	if !m.Running() {
		t.Error("Running() should be true after Start()")
	}

	m.Stop()
	m.Stop()

	if m.Running() {
		t.Error("Running() should be false after Stop()")
	}
}

func TestMonitor_SkipsWithoutFrame(t *testing.T) {
	a := &fakeAnalyzer{motion: true}
	m := newTestMonitor(capture.NewFrameBuffer(), a)

	m.poll()
	m.poll()

	if a.Calls() != 0 {
		t.Errorf("Detect called %d times with no frame published", a.Calls())
	}
	if m.Active() {
		t.Error("no frame should mean no motion")
	}
}

func TestMonitor_OnlyNewFramesAnalyzed(t *testing.T) {
	buf := capture.NewFrameBuffer()
	a := &fakeAnalyzer{}
	m := newTestMonitor(buf, a)

	buf.Publish(capture.SolidFrame(4, 4, 0, 0, 0))
	m.poll()
	m.poll()
	m.poll()

	if got := a.Calls(); got != 1 {
		t.Errorf("Detect calls = %d, want 1 for a single frame", got)
	}

	buf.Publish(capture.SolidFrame(4, 4, 0, 0, 0))
	m.poll()

	if got := a.Calls(); got != 2 {
		t.Errorf("Detect calls = %d, want 2 after a new frame", got)
	}
}

func TestMonitor_StaleFrameStillExpires(t *testing.T) {
	buf := capture.NewFrameBuffer()
	a := &fakeAnalyzer{motion: true}
	m := newTestMonitor(buf, a)

	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := t0
	m.now = func() time.Time { return now }

	buf.Publish(capture.SolidFrame(4, 4, 0, 0, 0))
	m.poll()
	if !m.Active() {
		t.Fatal("expected motion after detection")
	}

	// Source stalls: no new frames, time passes.
	now = t0.Add(6 * time.Second)
	m.poll()

	if m.Active() {
		t.Error("persistence should expire even without new frames")
	}
}

func TestMonitor_DetectErrorCountsAsNoMotion(t *testing.T) {
	buf := capture.NewFrameBuffer()
	a := &fakeAnalyzer{err: errors.New("boom")}
	m := newTestMonitor(buf, a)

	buf.Publish(capture.SolidFrame(4, 4, 0, 0, 0))
	m.poll()

	if m.Active() {
		t.Error("a failed detection should not activate motion")
	}
}

func TestMonitor_StopClearsState(t *testing.T) {
	buf := capture.NewFrameBuffer()
	a := &fakeAnalyzer{motion: true}
	m := newTestMonitor(buf, a)

	buf.Publish(capture.SolidFrame(4, 4, 0, 0, 0))
	m.Start()

	deadline := time.Now().Add(2 * time.Second)
	for !m.Active() {
		if time.Now().After(deadline) {
			t.Fatal("monitor never reported motion")
		}
		time.Sleep(5 * time.Millisecond)
	}

	m.Stop()

	if m.Active() {
		t.Error("Stop() should clear the motion flag")
	}
	a.mu.Lock()
	resets := a.resets
	a.mu.Unlock()
	if resets != 1 {
		t.Errorf("analyzer resets = %d, want 1", resets)
	}
}

func TestMonitor_RestartAnalyzesCurrentFrame(t *testing.T) {
	buf := capture.NewFrameBuffer()
	a := &fakeAnalyzer{}
	m := newTestMonitor(buf, a)

	buf.Publish(capture.SolidFrame(4, 4, 0, 0, 0))
	m.poll()
	m.Start()
	m.Stop()

	before := a.Calls()
	a.setMotion(false)
	m.Start()
	defer m.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for a.Calls() == before {
		if time.Now().After(deadline) {
			t.Fatal("restarted monitor did not analyze the current frame")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
