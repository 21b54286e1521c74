package main

import (
	"testing"

	"github.com/ayusman/watchpost/internal/hook"
)

func TestMessage(t *testing.T) {
	tests := []struct {
		name      string
		req       hook.Request
		wantTitle string
		wantBody  string
		wantOK    bool
	}{
		{
			name:      "started",
			req:       hook.Request{Event: hook.EventRecordingStarted, Path: "/v/video_2024-05-01_10-00-00.avi", Trigger: "motion"},
			wantTitle: "Recording started",
			wantBody:  "video_2024-05-01_10-00-00.avi (motion)",
			wantOK:    true,
		},
		{
			name:      "stopped",
			req:       hook.Request{Event: hook.EventRecordingStopped, Path: "/v/a.avi", Frames: 75},
			wantTitle: "Recording saved",
			wantBody:  "a.avi, 75 frames",
			wantOK:    true,
		},
		{
			name:      "failed",
			req:       hook.Request{Event: hook.EventRecordingFailed, Error: "disk full"},
			wantTitle: "Recording failed",
			wantBody:  "disk full",
			wantOK:    true,
		},
		{
			name:      "snapshot",
			req:       hook.Request{Event: hook.EventSnapshotSaved, Path: "/p/snapshot.jpg"},
			wantTitle: "Snapshot saved",
			wantBody:  "snapshot.jpg",
			wantOK:    true,
		},
		{
			name:   "unknown",
			req:    hook.Request{Event: "camera.lost"},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, body, ok := message(tt.req)
			if ok != tt.wantOK || title != tt.wantTitle || body != tt.wantBody {
				t.Errorf("message() = (%q, %q, %v), want (%q, %q, %v)", title, body, ok, tt.wantTitle, tt.wantBody, tt.wantOK)
			}
		})
	}
}

func TestQuote(t *testing.T) {
	if got := quote(`say "hi" \ bye`); got != `"say \"hi\" \\ bye"` {
		t.Errorf("quote() = %s", got)
	}
}
