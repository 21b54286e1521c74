package app

import (
	"github.com/ayusman/watchpost/internal/hook"
	"github.com/ayusman/watchpost/internal/recorder"
	"github.com/ayusman/watchpost/internal/store"
)

// enqueueEvent hands a recording event to the event worker. It runs on the
// acquisition goroutine and drops the event when the queue is full.
func (a *App) enqueueEvent(ev recorder.Event) {
	if a.events == nil {
		a.handleEvent(ev)
		return
	}

	select {
	case a.events <- ev:
	default:
		n := a.droppedEvents.Add(1)
		a.log.Warnw("Event queue full, dropping event",
			"event", ev.Type, "id", ev.Session.ID, "dropped", n)
	}
}

func (a *App) processEvents(events <-chan recorder.Event) {
	defer a.eventWG.Done()

	for ev := range events {
		a.handleEvent(ev)
	}
}

// handleEvent indexes the recording in the store and notifies hooks.
func (a *App) handleEvent(ev recorder.Event) {
	s := ev.Session
	errMsg := ""
	if ev.Err != nil {
		errMsg = ev.Err.Error()
	}

	if st := a.config.Store; st != nil && s.ID != "" {
		var err error
		switch ev.Type {
		case recorder.EventStarted:
			err = st.Recordings().Create(&store.Recording{
				ID:        s.ID,
				Path:      s.Path,
				Trigger:   string(s.Trigger),
				StartedAt: s.StartedAt,
			})
		case recorder.EventStopped:
			err = st.Recordings().Finish(s.ID, store.RecordingFinished, s.Frames, s.EndedAt, "")
		case recorder.EventFailed:
			err = st.Recordings().Finish(s.ID, store.RecordingFailed, s.Frames, s.EndedAt, errMsg)
		}
		if err != nil {
			a.log.Warnw("Failed to index recording", "id", s.ID, "event", ev.Type, "error", err)
		}
	}

	if a.config.Hooks != nil {
		a.config.Hooks.Dispatch(hook.Request{
			Event:   string(ev.Type),
			ID:      s.ID,
			Path:    s.Path,
			Trigger: string(s.Trigger),
			Frames:  s.Frames,
			Error:   errMsg,
		})
	}
}
