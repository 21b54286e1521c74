package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/watchpost/internal/store"
)

func createRecording(t *testing.T, s *store.Store, id, path string, finished bool) {
	t.Helper()

	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if err := s.Recordings().Create(&store.Recording{
		ID:        id,
		Path:      path,
		Trigger:   "manual",
		StartedAt: started,
	}); err != nil {
		t.Fatalf("failed to create recording: %v", err)
	}
	if finished {
		if err := s.Recordings().Finish(id, store.RecordingFinished, 75, started.Add(5*time.Second), ""); err != nil {
			t.Fatalf("failed to finish recording: %v", err)
		}
	}
}

func TestRecordingHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewRecordingHandler(s)

	createRecording(t, s, "rec-1", "/videos/a.avi", true)
	createRecording(t, s, "rec-2", "/videos/b.avi", false)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response listRecordingsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Recordings) != 2 {
		t.Errorf("expected 2 recordings, got %d", len(response.Recordings))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings?limit=1", nil))
	json.NewDecoder(rec.Body).Decode(&response)
	if len(response.Recordings) != 1 {
		t.Errorf("expected 1 recording with limit, got %d", len(response.Recordings))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings?limit=x", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d for bad limit, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestRecordingHandler_ListEmpty(t *testing.T) {
	handler := NewRecordingHandler(newTestStore(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings", nil))

	if rec.Body.String() != "{\"recordings\":[]}\n" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestRecordingHandler_Get(t *testing.T) {
	s := newTestStore(t)
	handler := NewRecordingHandler(s)
	createRecording(t, s, "rec-1", "/videos/a.avi", true)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings/rec-1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var got store.Recording
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != "rec-1" || got.Frames != 75 || got.Status != store.RecordingFinished {
		t.Errorf("unexpected recording %+v", got)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestRecordingHandler_File(t *testing.T) {
	s := newTestStore(t)
	handler := NewRecordingHandler(s)

	path := filepath.Join(t.TempDir(), "video.avi")
	if err := os.WriteFile(path, []byte("RIFF"), 0644); err != nil {
		t.Fatal(err)
	}
	createRecording(t, s, "done", path, true)
	createRecording(t, s, "live", filepath.Join(t.TempDir(), "live.avi"), false)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings/done/file", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "RIFF" {
		t.Errorf("file download: status %d, body %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recordings/live/file", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d for active recording, got %d", http.StatusConflict, rec.Code)
	}
}

func TestRecordingHandler_Delete(t *testing.T) {
	s := newTestStore(t)
	handler := NewRecordingHandler(s)

	path := filepath.Join(t.TempDir(), "video.avi")
	if err := os.WriteFile(path, []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}
	createRecording(t, s, "rec-1", path, true)
	createRecording(t, s, "rec-2", "/videos/live.avi", false)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/recordings/rec-1", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("video file should be removed")
	}
	if _, err := s.Recordings().GetByID("rec-1"); err != store.ErrNotFound {
		t.Errorf("recording should be deleted, got err %v", err)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/recordings/rec-2", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("expected status %d for active recording, got %d", http.StatusConflict, rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/recordings/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestRecordingHandler_MethodNotAllowed(t *testing.T) {
	handler := NewRecordingHandler(newTestStore(t))

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/recordings"},
		{http.MethodPut, "/api/recordings/rec-1"},
		{http.MethodDelete, "/api/recordings/rec-1/file"},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, http.StatusMethodNotAllowed, rec.Code)
		}
	}
}
