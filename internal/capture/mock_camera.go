package capture

import (
	"errors"
	"sync"
	"time"
)

// MockCamera plays back pre-built frames for testing
type MockCamera struct {
	frames   []*Frame
	index    int
	loop     bool
	interval time.Duration
	failures int
	reads    int
	mu       sync.Mutex
	running  bool
}

func NewMockCamera(frames []*Frame, loop bool) *MockCamera {
	return &MockCamera{
		frames: frames,
		loop:   loop,
	}
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.index = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// ReadFrame returns the next frame stamped with the current time.
// When an interval is set it sleeps first, like a sensor running at that rate.
func (c *MockCamera) ReadFrame() (*Frame, error) {
	c.mu.Lock()
	interval := c.interval
	c.mu.Unlock()

	if interval > 0 {
		time.Sleep(interval)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.reads++

	if !c.running {
		return nil, &CaptureError{Err: ErrCameraNotOpen}
	}

	if c.failures > 0 {
		c.failures--
		return nil, &CaptureError{Err: errors.New("simulated capture failure")}
	}

	if len(c.frames) == 0 {
		return nil, &CaptureError{Err: errors.New("no frames available")}
	}

	if c.index >= len(c.frames) {
		if c.loop {
			c.index = 0
		} else {
			return nil, &CaptureError{Err: errors.New("no more frames")}
		}
	}

	frame := *c.frames[c.index]
	frame.Timestamp = time.Now()
	c.index++

	return &frame, nil
}

func (c *MockCamera) SetFPS(fps int) {}
func (c *MockCamera) FPS() int       { return DefaultFPS }
func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// SetFrames replaces the frame sequence
func (c *MockCamera) SetFrames(frames []*Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = frames
	c.index = 0
}

// SetInterval makes every read block for d before returning.
func (c *MockCamera) SetInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interval = d
}

// FailNext makes the next n reads fail with a CaptureError.
func (c *MockCamera) FailNext(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = n
}

// Reads returns how many times ReadFrame was called.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// Reset restarts playback from the beginning
func (c *MockCamera) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = 0
}
