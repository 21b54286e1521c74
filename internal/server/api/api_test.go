package api

import (
	"context"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/watchpost/internal/app"
	"github.com/ayusman/watchpost/internal/capture"
	"github.com/ayusman/watchpost/internal/store"
)

// fakePipeline records calls and returns canned results.
type fakePipeline struct {
	mu        sync.Mutex
	status    app.Status
	recording bool
	motion    bool
	zoom      float64
	mirror    bool
	frame     *capture.Frame
	snapshot  *store.Snapshot
	triggers  []bool
	openErr   error
	saveErr   error
	frames    [][]byte
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{zoom: 1.0}
}

func (p *fakePipeline) Status() app.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.status
	s.Recording = p.recording
	s.MotionEnabled = p.motion
	s.Zoom = p.zoom
	s.Mirror = p.mirror
	return s
}

func (p *fakePipeline) TriggerManualRecording(ctx context.Context, on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.triggers = append(p.triggers, on)
	if p.openErr != nil && on {
		return p.openErr
	}
	p.recording = on
	return nil
}

func (p *fakePipeline) IsRecording() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.recording
}

func (p *fakePipeline) StartMotionDetection() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.motion = true
}

func (p *fakePipeline) StopMotionDetection() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.motion = false
}

func (p *fakePipeline) CaptureSnapshot() (*capture.Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frame == nil {
		return nil, capture.ErrNotAvailable
	}
	return p.frame, nil
}

func (p *fakePipeline) SaveSnapshot(ctx context.Context) (*store.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saveErr != nil {
		return nil, p.saveErr
	}
	if p.snapshot == nil {
		return nil, capture.ErrNotAvailable
	}
	return p.snapshot, nil
}

func (p *fakePipeline) ZoomIn() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.zoom += capture.ZoomStep
	return p.zoom
}

func (p *fakePipeline) ZoomOut() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.zoom -= capture.ZoomStep
	return p.zoom
}

func (p *fakePipeline) SetMirror(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mirror = on
}

// Stream yields the configured frames in a loop until ctx ends.
func (p *fakePipeline) Stream(ctx context.Context, interval time.Duration) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		p.mu.Lock()
		frames := p.frames
		p.mu.Unlock()
		if len(frames) == 0 {
			return
		}
		for i := 0; ; i++ {
			if !yield(frames[i%len(frames)]) {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(interval):
			}
		}
	}
}

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "watchpost-api-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	s, err := store.New(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}
