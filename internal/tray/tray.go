// Package tray provides a system tray interface for the watchpost camera service.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onRecord func(on bool)
	onMotion func(on bool)
	onOpen   func()
	onQuit   func()

	recording bool
	motion    bool
	mu        sync.RWMutex

	// Menu items stored for later updates
	menuRecord *systray.MenuItem
	menuMotion *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a new Tray instance with recording and motion detection off.
func New() *Tray {
	return &Tray{}
}

// OnRecord sets the callback called when the Record item is toggled.
func (t *Tray) OnRecord(fn func(on bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRecord = fn
}

// OnMotion sets the callback called when the motion detection item is toggled.
func (t *Tray) OnMotion(fn func(on bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMotion = fn
}

// OnOpen sets the callback called when the viewer item is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Watchpost")
	systray.SetTooltip("Watchpost camera")

	t.mu.Lock()
	t.menuRecord = systray.AddMenuItem(recordTitle(t.recording), "Start or stop a manual recording")
	t.menuMotion = systray.AddMenuItem(motionTitle(t.motion), "Toggle motion detection")
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem(statusTitle(t.recording), "Recording status")
	t.menuStatus.Disable()
	systray.AddSeparator()
	t.mu.Unlock()

	menuOpen := systray.AddMenuItem("Open viewer...", "Open the live view in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Watchpost")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuRecord.ClickedCh:
				t.handleRecord()
			case <-t.menuMotion.ClickedCh:
				t.handleMotion()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func recordTitle(on bool) string {
	if on {
		return "■ Stop recording"
	}
	return "● Record"
}

func motionTitle(on bool) string {
	if on {
		return "✓ Motion detection"
	}
	return "Motion detection"
}

func statusTitle(recording bool) string {
	if recording {
		return "Status: recording"
	}
	return "Status: idle"
}

// handleRecord handles the Record menu item click.
func (t *Tray) handleRecord() {
	t.mu.Lock()
	on := !t.recording
	callback := t.onRecord
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(on)
	}
}

// handleMotion handles the motion detection menu item click.
func (t *Tray) handleMotion() {
	t.mu.Lock()
	t.motion = !t.motion
	on := t.motion
	if t.menuMotion != nil {
		t.menuMotion.SetTitle(motionTitle(on))
	}
	callback := t.onMotion
	t.mu.Unlock()

	if callback != nil {
		callback(on)
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetRecording updates the record item and status line. The recording
// state follows the pipeline, which may also record because of motion.
func (t *Tray) SetRecording(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.recording = on
	if t.menuRecord != nil {
		t.menuRecord.SetTitle(recordTitle(on))
	}
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(statusTitle(on))
	}
}

// SetMotion updates the motion detection item.
func (t *Tray) SetMotion(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.motion = on
	if t.menuMotion != nil {
		t.menuMotion.SetTitle(motionTitle(on))
	}
}

// IsRecording returns the last recording state shown.
func (t *Tray) IsRecording() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.recording
}

// MotionEnabled returns the motion detection state shown.
func (t *Tray) MotionEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.motion
}
