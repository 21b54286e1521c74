package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/hybridgroup/mjpeg"
	"go.uber.org/zap"

	"github.com/ayusman/watchpost/internal/server/api"
)

// StreamHandler serves the live view as MJPEG. Frames are encoded once and
// fanned out to every client; the encoder only runs while someone watches.
type StreamHandler struct {
	pipeline api.Pipeline
	interval time.Duration
	log      *zap.SugaredLogger
	stream   *mjpeg.Stream

	mu      sync.Mutex
	clients int
	cancel  context.CancelFunc
	closed  bool
}

// NewStreamHandler creates a new StreamHandler fed by the given pipeline.
func NewStreamHandler(p api.Pipeline, interval time.Duration, log *zap.SugaredLogger) *StreamHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &StreamHandler{
		pipeline: p,
		interval: interval,
		log:      log,
		stream:   mjpeg.NewStream(),
	}
}

// ServeHTTP streams MJPEG frames to the client until it disconnects.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.acquire() {
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.release()

	w.Header().Set("Cache-Control", "no-cache")
	h.stream.ServeHTTP(w, r)
}

// Clients returns the number of connected viewers.
func (h *StreamHandler) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clients
}

// Close refuses new viewers. Connected viewers keep streaming until they
// disconnect.
func (h *StreamHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
}

func (h *StreamHandler) acquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}

	h.clients++
	if h.clients == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancel = cancel
		go h.pump(ctx)
		h.log.Debug("Stream pump started")
	}
	return true
}

func (h *StreamHandler) release() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients--
	if h.clients == 0 && h.cancel != nil {
		h.cancel()
		h.cancel = nil
		h.log.Debug("Stream pump stopped")
	}
}

func (h *StreamHandler) pump(ctx context.Context) {
	for jpg := range h.pipeline.Stream(ctx, h.interval) {
		h.stream.UpdateJPEG(jpg)
	}
}
