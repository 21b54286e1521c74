package app

import (
	"time"

	"github.com/ayusman/watchpost/internal/recorder"
)

// Status is a point-in-time view of the pipeline.
type Status struct {
	Running       bool              `json:"running"`
	Recording     bool              `json:"recording"`
	Manual        bool              `json:"manual"`
	MotionEnabled bool              `json:"motion_enabled"`
	MotionActive  bool              `json:"motion_active"`
	LastMotion    *time.Time        `json:"last_motion,omitempty"`
	Session       *recorder.Session `json:"session,omitempty"`
	LastError     string            `json:"last_error,omitempty"`
	Zoom          float64           `json:"zoom"`
	Mirror        bool              `json:"mirror"`
	FrameSeq      uint64            `json:"frame_seq"`
	CaptureErrors int64             `json:"capture_errors"`
	FramesWritten int64             `json:"frames_written"`
	DroppedEvents int64             `json:"dropped_events"`
}

// Status collects the current pipeline state.
func (a *App) Status() Status {
	s := Status{
		Running:       a.Running(),
		Recording:     a.recorder.IsRecording(),
		Manual:        a.recorder.Manual(),
		MotionEnabled: a.monitor.Running(),
		MotionActive:  a.monitor.Active(),
		Zoom:          a.transform.Zoom(),
		Mirror:        a.transform.Mirror(),
		FrameSeq:      a.buffer.Seq(),
		CaptureErrors: a.captureErrors.Load(),
		FramesWritten: a.recorder.FramesWritten(),
		DroppedEvents: a.droppedEvents.Load(),
	}

	if t := a.monitor.LastMotion(); !t.IsZero() {
		s.LastMotion = &t
	}
	if sess, ok := a.recorder.Current(); ok {
		s.Session = &sess
	}
	if err := a.recorder.LastError(); err != nil {
		s.LastError = err.Error()
	}
	return s
}
