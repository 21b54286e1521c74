// Package api provides HTTP API handlers for the watchpost camera service.
package api

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"time"

	"github.com/ayusman/watchpost/internal/app"
	"github.com/ayusman/watchpost/internal/capture"
	"github.com/ayusman/watchpost/internal/store"
)

// Pipeline is the part of the running camera pipeline the API controls.
// *app.App implements it.
type Pipeline interface {
	Status() app.Status
	TriggerManualRecording(ctx context.Context, on bool) error
	IsRecording() bool
	StartMotionDetection()
	StopMotionDetection()
	CaptureSnapshot() (*capture.Frame, error)
	SaveSnapshot(ctx context.Context) (*store.Snapshot, error)
	ZoomIn() float64
	ZoomOut() float64
	SetMirror(on bool)
	Stream(ctx context.Context, interval time.Duration) iter.Seq[[]byte]
}

var _ Pipeline = (*app.App)(nil)

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
