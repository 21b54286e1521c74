package recorder

import "time"

// Trigger records what caused a recording to start.
type Trigger string

const (
	TriggerManual       Trigger = "manual"
	TriggerMotion       Trigger = "motion"
	TriggerManualMotion Trigger = "manual+motion"
)

func triggerOf(manual, motion bool) Trigger {
	switch {
	case manual && motion:
		return TriggerManualMotion
	case motion:
		return TriggerMotion
	default:
		return TriggerManual
	}
}

// Session describes one recording, from open to close.
type Session struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Trigger   Trigger   `json:"trigger"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	Frames    int       `json:"frames"`
}

// Duration returns how long the session lasted, or has lasted so far.
func (s Session) Duration() time.Duration {
	if s.EndedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// EventType identifies a recording lifecycle event.
type EventType string

const (
	EventStarted EventType = "recording.started"
	EventStopped EventType = "recording.stopped"
	EventFailed  EventType = "recording.failed"
)

// Event is delivered to listeners after each recording state change.
type Event struct {
	Type    EventType
	Session Session
	Err     error
}
