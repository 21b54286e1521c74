package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/ayusman/watchpost/internal/store"
)

// RecordingHandler handles HTTP requests for recorded videos.
type RecordingHandler struct {
	store *store.Store
}

// NewRecordingHandler creates a new RecordingHandler with the given store.
func NewRecordingHandler(s *store.Store) *RecordingHandler {
	return &RecordingHandler{store: s}
}

type listRecordingsResponse struct {
	Recordings []*store.Recording `json:"recordings"`
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/recordings, /api/recordings/{id} and /api/recordings/{id}/file
func (h *RecordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/recordings")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	if id, ok := strings.CutSuffix(path, "/file"); ok {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.file(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, path)
	case http.MethodDelete:
		h.delete(w, r, path)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// parseLimit reads the optional ?limit= query parameter. Zero means no limit.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("invalid limit")
	}
	return n, nil
}

// list handles GET /api/recordings, newest first.
func (h *RecordingHandler) list(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}

	recordings, err := h.store.Recordings().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list recordings")
		return
	}
	if recordings == nil {
		recordings = []*store.Recording{}
	}

	writeJSON(w, http.StatusOK, listRecordingsResponse{Recordings: recordings})
}

// get handles GET /api/recordings/{id}.
func (h *RecordingHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	rec, ok := h.lookup(w, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// file handles GET /api/recordings/{id}/file and serves the video itself.
func (h *RecordingHandler) file(w http.ResponseWriter, r *http.Request, id string) {
	rec, ok := h.lookup(w, id)
	if !ok {
		return
	}
	if rec.Status == store.RecordingActive {
		writeError(w, http.StatusConflict, "Recording in progress")
		return
	}
	http.ServeFile(w, r, rec.Path)
}

// delete handles DELETE /api/recordings/{id}. It removes the video file and
// its index entry; a recording still being written cannot be deleted.
func (h *RecordingHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	rec, ok := h.lookup(w, id)
	if !ok {
		return
	}
	if rec.Status == store.RecordingActive {
		writeError(w, http.StatusConflict, "Recording in progress")
		return
	}

	if err := os.Remove(rec.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		writeError(w, http.StatusInternalServerError, "Failed to delete video file")
		return
	}

	if err := h.store.Recordings().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete recording")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *RecordingHandler) lookup(w http.ResponseWriter, id string) (*store.Recording, bool) {
	rec, err := h.store.Recordings().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get recording")
		return nil, false
	}
	return rec, true
}
