// Package server provides the HTTP server for the watchpost camera service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/watchpost/internal/server/api"
	"github.com/ayusman/watchpost/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Pipeline  api.Pipeline
	Logger    *zap.SugaredLogger

	// StreamInterval is how often the MJPEG pump polls for frames.
	StreamInterval time.Duration
	// StatusInterval is how often the events socket checks for status changes.
	StatusInterval time.Duration
}

// Server represents the HTTP server for the watchpost application.
type Server struct {
	config Config
	log    *zap.SugaredLogger
	mux    *http.ServeMux
	start  time.Time

	stream *StreamHandler
	events *EventsHandler
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	log := config.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	s := &Server{
		config: config,
		log:    log,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Store != nil {
		s.mux.Handle("/api/recordings", api.NewRecordingHandler(s.config.Store))
		s.mux.Handle("/api/recordings/", api.NewRecordingHandler(s.config.Store))

		snapshots := api.NewSnapshotHandler(s.config.Store, s.config.Pipeline, s.log)
		s.mux.Handle("/api/snapshots", snapshots)
		s.mux.Handle("/api/snapshots/", snapshots)
	}

	if p := s.config.Pipeline; p != nil {
		control := api.NewControlHandler(p, s.log)
		for _, path := range []string{
			"/api/status",
			"/api/snapshot",
			"/api/recording/",
			"/api/motion/",
			"/api/zoom/",
			"/api/mirror/",
		} {
			s.mux.Handle(path, control)
		}

		s.stream = NewStreamHandler(p, s.config.StreamInterval, s.log.Named("stream"))
		s.mux.Handle("/api/stream", s.stream)

		s.events = NewEventsHandler(p, s.config.StatusInterval, s.log.Named("events"))
		s.mux.Handle("/api/events", s.events)
	}

	// Unknown API paths never fall through to the static files.
	s.mux.Handle("/api/", http.NotFoundHandler())

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}
	if s.config.Pipeline != nil {
		response["running"] = s.config.Pipeline.Status().Running
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return err
	case <-ctx.Done():
	}

	s.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		// MJPEG clients never go idle; drop them.
		s.log.Debugw("Forcing remaining connections closed", "error", err)
		srv.Close()
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close refuses new stream clients and disconnects websocket clients.
func (s *Server) Close() {
	if s.stream != nil {
		s.stream.Close()
	}
	if s.events != nil {
		s.events.Close()
	}
}
