package hook

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestDispatcher_RunsSubscribedHooks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	root := t.TempDir()

	install := func(name string, events []string) string {
		dir := filepath.Join(root, name)
		writeManifest(t, root, name, Manifest{Name: name, Executable: "run.sh", Events: events})
		script := "#!/bin/sh\ncat > input.json\necho '{\"success\":true}'\n"
		if err := os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0755); err != nil {
			t.Fatal(err)
		}
		return filepath.Join(dir, "input.json")
	}

	stoppedInput := install("on-stop", []string{EventRecordingStopped})
	snapshotInput := install("on-snapshot", []string{EventSnapshotSaved})

	manager := NewManager(root)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	d := NewDispatcher(manager, NewExecutor(5*time.Second), nil)
	defer d.Close()

	d.Dispatch(Request{Event: EventRecordingStopped, ID: "rec-9", Frames: 3})
	d.Wait()

	data, err := os.ReadFile(stoppedInput)
	if err != nil {
		t.Fatalf("subscribed hook did not run: %v", err)
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		t.Fatalf("invalid hook input: %v", err)
	}
	if req.ID != "rec-9" || req.Timestamp.IsZero() {
		t.Errorf("hook received %+v", req)
	}

	if _, err := os.Stat(snapshotInput); !os.IsNotExist(err) {
		t.Error("hook for another event should not run")
	}
}

func TestDispatcher_NoHooks(t *testing.T) {
	d := NewDispatcher(NewManager(t.TempDir()), NewExecutor(0), nil)

	d.Dispatch(Request{Event: EventSnapshotSaved})
	d.Close()
}

func installScript(t *testing.T, root, name, event, script string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	writeManifest(t, root, name, Manifest{Name: name, Executable: "run.sh", Events: []string{event}})
	if err := os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestDispatcher_ShutdownLetsRunningHooksFinish(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	root := t.TempDir()
	dir := installScript(t, root, "slow-stop", EventRecordingStopped,
		"#!/bin/sh\nsleep 0.3\ncat > input.json\necho '{\"success\":true}'\n")

	manager := NewManager(root)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	d := NewDispatcher(manager, NewExecutor(5*time.Second), nil)

	d.Dispatch(Request{Event: EventRecordingStopped, ID: "rec-final"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	d.Shutdown(ctx)

	if _, err := os.Stat(filepath.Join(dir, "input.json")); err != nil {
		t.Errorf("hook should complete before shutdown returns: %v", err)
	}
}

func TestDispatcher_ShutdownCancelsAfterDeadline(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}
	if testing.Short() {
		t.Skip("skipping slow hook test in short mode")
	}

	root := t.TempDir()
	installScript(t, root, "stuck", EventRecordingStopped, "#!/bin/sh\nexec sleep 30\n")

	manager := NewManager(root)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	d := NewDispatcher(manager, NewExecutor(time.Minute), nil)

	d.Dispatch(Request{Event: EventRecordingStopped, ID: "rec-stuck"})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	d.Shutdown(ctx)
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("Shutdown took %v, want it bounded by the context", elapsed)
	}
}
