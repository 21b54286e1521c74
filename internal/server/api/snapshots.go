package api

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ayusman/watchpost/internal/capture"
	"github.com/ayusman/watchpost/internal/store"
)

// SnapshotHandler handles HTTP requests for saved snapshots.
type SnapshotHandler struct {
	store    *store.Store
	pipeline Pipeline
	log      *zap.SugaredLogger
}

// NewSnapshotHandler creates a new SnapshotHandler. Saving requires a
// pipeline; listing only needs the store.
func NewSnapshotHandler(s *store.Store, p Pipeline, log *zap.SugaredLogger) *SnapshotHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &SnapshotHandler{store: s, pipeline: p, log: log}
}

type listSnapshotsResponse struct {
	Snapshots []*store.Snapshot `json:"snapshots"`
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/snapshots and /api/snapshots/{id}
func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/snapshots")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.save(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.file(w, r, path)
}

// list handles GET /api/snapshots, newest first.
func (h *SnapshotHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	snapshots, err := h.store.Snapshots().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list snapshots")
		return
	}
	if snapshots == nil {
		snapshots = []*store.Snapshot{}
	}

	writeJSON(w, http.StatusOK, listSnapshotsResponse{Snapshots: snapshots})
}

// save handles POST /api/snapshots and writes the latest frame to disk.
func (h *SnapshotHandler) save(w http.ResponseWriter, r *http.Request) {
	if h.pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "Camera not configured")
		return
	}

	snap, err := h.pipeline.SaveSnapshot(r.Context())
	if err != nil {
		if errors.Is(err, capture.ErrNotAvailable) {
			writeError(w, http.StatusServiceUnavailable, "No frame captured yet")
			return
		}
		h.log.Warnw("Failed to save snapshot", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save snapshot")
		return
	}

	writeJSON(w, http.StatusCreated, snap)
}

// file handles GET /api/snapshots/{id} and serves the JPEG.
func (h *SnapshotHandler) file(w http.ResponseWriter, r *http.Request, id string) {
	snap, err := h.store.Snapshots().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Snapshot not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get snapshot")
		return
	}
	http.ServeFile(w, r, snap.Path)
}
