package tray

import "testing"

func TestTray_RecordToggle(t *testing.T) {
	tr := New()

	var got []bool
	tr.OnRecord(func(on bool) { got = append(got, on) })

	tr.handleRecord()
	if len(got) != 1 || !got[0] {
		t.Fatalf("first click requested %v, want [true]", got)
	}

	// The shown state only changes when the pipeline reports it.
	if tr.IsRecording() {
		t.Error("IsRecording() should follow SetRecording, not clicks")
	}

	tr.SetRecording(true)
	tr.handleRecord()
	if len(got) != 2 || got[1] {
		t.Errorf("second click requested %v, want stop", got)
	}
}

func TestTray_MotionToggle(t *testing.T) {
	tr := New()
	tr.SetMotion(true)

	var got []bool
	tr.OnMotion(func(on bool) { got = append(got, on) })

	tr.handleMotion()
	tr.handleMotion()

	if len(got) != 2 || got[0] || !got[1] {
		t.Errorf("motion callbacks = %v, want [false true]", got)
	}
	if !tr.MotionEnabled() {
		t.Error("MotionEnabled() should be true after two toggles")
	}
}

func TestTray_Open(t *testing.T) {
	tr := New()
	tr.handleOpen()

	opened := false
	tr.OnOpen(func() { opened = true })
	tr.handleOpen()

	if !opened {
		t.Error("open callback not called")
	}
}

func TestTitles(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"record off", recordTitle(false), "● Record"},
		{"record on", recordTitle(true), "■ Stop recording"},
		{"status idle", statusTitle(false), "Status: idle"},
		{"status recording", statusTitle(true), "Status: recording"},
		{"motion on", motionTitle(true), "✓ Motion detection"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
