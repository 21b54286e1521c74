package capture

import (
	"errors"
	"sync"
)

// ErrNotAvailable is returned when no frame has been published yet.
var ErrNotAvailable = errors.New("no frame available yet")

// FrameBuffer holds the most recently captured frame.
//
// It has a single writer (the acquisition loop) and any number of readers.
// Publishing never waits on readers: consumers poll Latest and compare Seq
// to find out whether anything new arrived.
type FrameBuffer struct {
	mu     sync.RWMutex
	latest *Frame
	seq    uint64
}

// NewFrameBuffer creates an empty FrameBuffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{}
}

// Publish replaces the latest frame and returns the stored frame, stamped
// with the next sequence number. The pixel data is shared, not copied.
func (b *FrameBuffer) Publish(f *Frame) *Frame {
	if f == nil {
		return nil
	}

	stored := *f

	b.mu.Lock()
	b.seq++
	stored.Seq = b.seq
	b.latest = &stored
	b.mu.Unlock()

	return &stored
}

// Latest returns the most recent frame, or false if nothing was published yet.
func (b *FrameBuffer) Latest() (*Frame, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.latest, b.latest != nil
}

// Seq returns the sequence number of the latest frame, 0 when empty.
func (b *FrameBuffer) Seq() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.seq
}
