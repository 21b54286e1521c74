package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/watchpost/internal/app"
	"github.com/ayusman/watchpost/internal/server/api"
)

// DefaultStatusInterval is how often status changes are checked for.
const DefaultStatusInterval = 250 * time.Millisecond

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// EventsHandler pushes the pipeline status as JSON over WebSocket whenever
// it changes. New clients get the current status right away.
type EventsHandler struct {
	pipeline api.Pipeline
	interval time.Duration
	log      *zap.SugaredLogger

	mu      sync.Mutex
	clients map[*websocket.Conn]bool // value: status already sent
	closed  bool

	wake   chan struct{}
	stopCh chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewEventsHandler creates an EventsHandler and starts its broadcaster.
func NewEventsHandler(p api.Pipeline, interval time.Duration, log *zap.SugaredLogger) *EventsHandler {
	if interval <= 0 {
		interval = DefaultStatusInterval
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	h := &EventsHandler{
		pipeline: p,
		interval: interval,
		log:      log,
		clients:  make(map[*websocket.Conn]bool),
		wake:     make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go h.broadcast()
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debugw("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.clients[conn] = false
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	select {
	case h.wake <- struct{}{}:
	default:
	}

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Close stops the broadcaster and disconnects all clients.
func (h *EventsHandler) Close() {
	h.once.Do(func() {
		close(h.stopCh)
		<-h.done

		h.mu.Lock()
		h.closed = true
		for conn := range h.clients {
			conn.Close()
		}
		h.mu.Unlock()
	})
}

// broadcast is the only goroutine writing to client connections.
func (h *EventsHandler) broadcast() {
	defer close(h.done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var lastState []byte
	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
		case <-h.wake:
		}

		status := h.pipeline.Status()
		msg, err := json.Marshal(status)
		if err != nil {
			h.log.Warnw("Failed to encode status", "error", err)
			continue
		}
		state, err := json.Marshal(withoutCounters(status))
		if err != nil {
			h.log.Warnw("Failed to encode status", "error", err)
			continue
		}
		changed := !bytes.Equal(state, lastState)
		lastState = state

		h.mu.Lock()
		for conn, sent := range h.clients {
			if sent && !changed {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				conn.Close()
				continue
			}
			h.clients[conn] = true
		}
		h.mu.Unlock()
	}
}

// withoutCounters clears the fields that advance with every frame, so a
// push happens only when the pipeline state itself changes.
func withoutCounters(s app.Status) app.Status {
	s.FrameSeq = 0
	s.FramesWritten = 0
	if s.Session != nil {
		sess := *s.Session
		sess.Frames = 0
		s.Session = &sess
	}
	return s
}
