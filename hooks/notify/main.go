// Package main is a watchpost hook that shows a desktop notification for
// recording and snapshot events. It uses osascript on macOS and notify-send
// elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ayusman/watchpost/internal/hook"
)

func main() {
	var req hook.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(fmt.Errorf("failed to decode request: %w", err))
		return
	}

	title, body, ok := message(req)
	if !ok {
		writeResponse(fmt.Errorf("unsupported event: %s", req.Event))
		return
	}

	writeResponse(notify(title, body))
}

// message builds the notification text for an event.
func message(req hook.Request) (title, body string, ok bool) {
	file := filepath.Base(req.Path)

	switch req.Event {
	case hook.EventRecordingStarted:
		return "Recording started", fmt.Sprintf("%s (%s)", file, req.Trigger), true
	case hook.EventRecordingStopped:
		return "Recording saved", fmt.Sprintf("%s, %d frames", file, req.Frames), true
	case hook.EventRecordingFailed:
		return "Recording failed", req.Error, true
	case hook.EventSnapshotSaved:
		return "Snapshot saved", file, true
	}
	return "", "", false
}

func writeResponse(err error) {
	resp := hook.Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

func notify(title, body string) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "darwin" {
		script := fmt.Sprintf(`display notification %s with title %s`, quote(body), quote("Watchpost: "+title))
		cmd = exec.Command("osascript", "-e", script)
	} else {
		cmd = exec.Command("notify-send", "Watchpost: "+title, body)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// quote renders s as an AppleScript string literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
