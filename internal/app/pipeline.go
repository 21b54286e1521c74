package app

import (
	"time"
)

// captureErrorLogEvery throttles logging of repeated capture failures.
const captureErrorLogEvery = 100

// runPipeline is the acquisition loop. Each tick it:
// 1. Reads a frame from the camera (failures are logged and the tick skipped)
// 2. Publishes it to the frame buffer
// 3. Passes the motion monitor's state to the recording controller
// 4. Reconciles the recording state against the frame size
// 5. Writes the frame if recording, subject to the target frame rate
//
// On exit the controller is closed so an open recording is finalized.
func (a *App) runPipeline(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	defer func() {
		if err := a.recorder.Close(); err != nil {
			a.log.Warnw("Error finalizing recording on shutdown", "error", err)
		}
	}()

	tickSleep := a.config.TickSleep
	if tickSleep == 0 {
		tickSleep = DefaultTickSleep
	}

	timer := time.NewTimer(tickSleep)
	defer timer.Stop()

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		a.tick()

		timer.Reset(tickSleep)
		select {
		case <-stopCh:
			return
		case <-timer.C:
		}
	}
}

func (a *App) tick() {
	frame, err := a.camera.ReadFrame()
	if err != nil {
		n := a.captureErrors.Add(1)
		if n == 1 || n%captureErrorLogEvery == 0 {
			a.log.Warnw("Error reading frame", "error", err, "failures", n)
		}
		return
	}

	published := a.buffer.Publish(frame)

	a.recorder.NotifyMotion(a.monitor.Active())

	// Open failures are logged by the controller and surfaced through Status.
	if err := a.recorder.Reconcile(published.Size()); err != nil {
		return
	}

	if err := a.recorder.WriteIfActive(published, published.Timestamp); err != nil {
		a.log.Debugw("Frame not recorded", "seq", published.Seq, "error", err)
	}
}
