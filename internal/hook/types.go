// Package hook runs user-supplied executables when recording events happen.
//
// A hook is a subdirectory of the hook directory holding a hook.json
// manifest and an executable. The executable receives a JSON Request on
// stdin and answers with a JSON Response on stdout.
package hook

import "time"

// ManifestFile is the manifest name looked up in each hook directory.
const ManifestFile = "hook.json"

// Event names a hook can subscribe to.
const (
	EventRecordingStarted = "recording.started"
	EventRecordingStopped = "recording.stopped"
	EventRecordingFailed  = "recording.failed"
	EventSnapshotSaved    = "snapshot.saved"
)

// Manifest describes a hook's metadata and the events it handles.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Events      []string `json:"events"`
}

// Handles reports whether the hook subscribes to event.
func (m Manifest) Handles(event string) bool {
	for _, e := range m.Events {
		if e == event || e == "*" {
			return true
		}
	}
	return false
}

// Request is sent to a hook on stdin.
type Request struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	ID        string    `json:"id,omitempty"`
	Path      string    `json:"path,omitempty"`
	Trigger   string    `json:"trigger,omitempty"`
	Frames    int       `json:"frames,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Response is read from a hook's stdout.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Hook is a discovered hook with its manifest and location.
type Hook struct {
	Manifest   Manifest
	Path       string
	Executable string
}
