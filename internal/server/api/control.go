package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/watchpost/internal/app"
	"github.com/ayusman/watchpost/internal/capture"
	"github.com/ayusman/watchpost/internal/recorder"
)

// DefaultTriggerTimeout bounds how long a recording request waits for the
// acquisition loop to act on it.
const DefaultTriggerTimeout = 2 * time.Second

// ControlHandler serves the pipeline status and control endpoints:
//
//	GET  /api/status
//	GET  /api/snapshot
//	POST /api/recording/{start|stop}
//	POST /api/motion/{start|stop}
//	POST /api/zoom/{in|out}
//	POST /api/mirror/{on|off}
type ControlHandler struct {
	pipeline Pipeline
	timeout  time.Duration
	log      *zap.SugaredLogger
}

// NewControlHandler creates a ControlHandler for the given pipeline.
func NewControlHandler(p Pipeline, log *zap.SugaredLogger) *ControlHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ControlHandler{pipeline: p, timeout: DefaultTriggerTimeout, log: log}
}

type recordingResponse struct {
	Recording bool   `json:"recording"`
	Error     string `json:"error,omitempty"`
}

type motionResponse struct {
	Enabled bool `json:"enabled"`
}

type zoomResponse struct {
	Zoom float64 `json:"zoom"`
}

type mirrorResponse struct {
	Mirror bool `json:"mirror"`
}

// ServeHTTP implements the http.Handler interface.
func (h *ControlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/")

	switch path {
	case "status":
		h.readOnly(w, r, h.status)
	case "snapshot":
		h.readOnly(w, r, h.snapshot)
	case "recording/start":
		h.action(w, r, func(w http.ResponseWriter, r *http.Request) { h.recording(w, r, true) })
	case "recording/stop":
		h.action(w, r, func(w http.ResponseWriter, r *http.Request) { h.recording(w, r, false) })
	case "motion/start":
		h.action(w, r, func(w http.ResponseWriter, r *http.Request) { h.motion(w, true) })
	case "motion/stop":
		h.action(w, r, func(w http.ResponseWriter, r *http.Request) { h.motion(w, false) })
	case "zoom/in":
		h.action(w, r, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, zoomResponse{Zoom: h.pipeline.ZoomIn()})
		})
	case "zoom/out":
		h.action(w, r, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, zoomResponse{Zoom: h.pipeline.ZoomOut()})
		})
	case "mirror/on", "mirror/off":
		on := path == "mirror/on"
		h.action(w, r, func(w http.ResponseWriter, r *http.Request) {
			h.pipeline.SetMirror(on)
			writeJSON(w, http.StatusOK, mirrorResponse{Mirror: on})
		})
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *ControlHandler) readOnly(w http.ResponseWriter, r *http.Request, fn http.HandlerFunc) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	fn(w, r)
}

func (h *ControlHandler) action(w http.ResponseWriter, r *http.Request, fn http.HandlerFunc) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	fn(w, r)
}

// status handles GET /api/status.
func (h *ControlHandler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.pipeline.Status())
}

// snapshot handles GET /api/snapshot and returns the latest frame as a JPEG.
func (h *ControlHandler) snapshot(w http.ResponseWriter, r *http.Request) {
	frame, err := h.pipeline.CaptureSnapshot()
	if errors.Is(err, capture.ErrNotAvailable) {
		writeError(w, http.StatusServiceUnavailable, "No frame captured yet")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to capture snapshot")
		return
	}

	data, err := frame.JPEG(app.SnapshotQuality)
	if err != nil {
		h.log.Warnw("Failed to encode snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to encode snapshot")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

// recording handles POST /api/recording/start and /api/recording/stop.
func (h *ControlHandler) recording(w http.ResponseWriter, r *http.Request, on bool) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	err := h.pipeline.TriggerManualRecording(ctx, on)

	var openErr *recorder.WriterOpenError
	if errors.As(err, &openErr) {
		writeJSON(w, http.StatusInternalServerError, recordingResponse{
			Recording: h.pipeline.IsRecording(),
			Error:     openErr.Error(),
		})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, recordingResponse{Recording: h.pipeline.IsRecording()})
}

// motion handles POST /api/motion/start and /api/motion/stop.
func (h *ControlHandler) motion(w http.ResponseWriter, on bool) {
	if on {
		h.pipeline.StartMotionDetection()
	} else {
		h.pipeline.StopMotionDetection()
	}
	writeJSON(w, http.StatusOK, motionResponse{Enabled: on})
}
