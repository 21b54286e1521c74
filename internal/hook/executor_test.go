package hook

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// writeScript creates an executable shell script in dir and returns a Hook for it.
func writeScript(t *testing.T, dir, name, content string) *Hook {
	t.Helper()

	scriptPath := filepath.Join(dir, name)
	if err := os.WriteFile(scriptPath, []byte(content), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	return &Hook{
		Manifest: Manifest{
			Name:       strings.TrimSuffix(name, ".sh"),
			Version:    "1.0.0",
			Executable: name,
			Events:     []string{EventRecordingStarted},
		},
		Path:       dir,
		Executable: scriptPath,
	}
}

func TestExecutor_Execute(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	h := writeScript(t, t.TempDir(), "ok.sh", "#!/bin/sh\necho '{\"success\":true}'\n")

	executor := NewExecutor(5 * time.Second)
	response, err := executor.Execute(context.Background(), h, &Request{Event: EventRecordingStarted})
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if !response.Success {
		t.Errorf("expected success=true, got false")
	}
	if response.Error != "" {
		t.Errorf("expected empty error, got %q", response.Error)
	}
}

func TestExecutor_Execute_ReadsStdin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := t.TempDir()
	out := filepath.Join(dir, "received.json")

	// The script stores the request next to itself so the test can inspect it.
	h := writeScript(t, dir, "echo.sh", "#!/bin/sh\ncat > received.json\necho '{\"success\":true}'\n")

	req := &Request{
		Event:   EventRecordingStopped,
		ID:      "rec-1",
		Path:    "/videos/video_2024-05-01_10-00-00.avi",
		Trigger: "motion",
		Frames:  75,
	}

	if _, err := NewExecutor(5*time.Second).Execute(context.Background(), h, req); err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("hook did not write its input: %v", err)
	}

	var got Request
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("hook input is not JSON: %v", err)
	}
	if got.Event != req.Event || got.ID != req.ID || got.Path != req.Path || got.Frames != req.Frames {
		t.Errorf("hook received %+v, want %+v", got, *req)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	h := writeScript(t, t.TempDir(), "slow.sh", "#!/bin/sh\nsleep 10\necho '{\"success\":true}'\n")

	executor := NewExecutor(100 * time.Millisecond)
	_, err := executor.Execute(context.Background(), h, &Request{Event: EventRecordingStarted})
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}

	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout-related error, got: %v", err)
	}
}

func TestExecutor_Execute_ErrorResponse(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	h := writeScript(t, t.TempDir(), "fail.sh", "#!/bin/sh\necho '{\"success\":false,\"error\":\"upload failed\"}'\n")

	response, err := NewExecutor(5*time.Second).Execute(context.Background(), h, &Request{Event: EventRecordingStopped})
	if err != nil {
		t.Fatalf("Execute() should not return error for error response: %v", err)
	}

	if response.Success {
		t.Error("expected success=false, got true")
	}
	if response.Error != "upload failed" {
		t.Errorf("expected error 'upload failed', got %q", response.Error)
	}
}

func TestExecutor_Execute_InvalidJSON(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	h := writeScript(t, t.TempDir(), "garbage.sh", "#!/bin/sh\necho 'this is not json'\n")

	_, err := NewExecutor(5*time.Second).Execute(context.Background(), h, &Request{Event: EventRecordingStarted})
	if err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
	if !strings.Contains(err.Error(), "failed to parse hook response") {
		t.Errorf("expected parse error, got: %v", err)
	}
}

func TestExecutor_Execute_NonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	h := writeScript(t, t.TempDir(), "exit.sh", "#!/bin/sh\necho 'something went wrong' >&2\nexit 1\n")

	_, err := NewExecutor(5*time.Second).Execute(context.Background(), h, &Request{Event: EventRecordingStarted})
	if err == nil {
		t.Fatal("expected error for non-zero exit, got nil")
	}
	if !strings.Contains(err.Error(), "something went wrong") {
		t.Errorf("expected stderr in error, got: %v", err)
	}
}

func TestNewExecutor(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{name: "explicit", timeout: 3 * time.Second, want: 3 * time.Second},
		{name: "zero uses default", timeout: 0, want: DefaultTimeout},
		{name: "negative uses default", timeout: -time.Second, want: DefaultTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewExecutor(tt.timeout).timeout; got != tt.want {
				t.Errorf("timeout = %v, want %v", got, tt.want)
			}
		})
	}
}
