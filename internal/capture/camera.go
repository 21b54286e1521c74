// Package capture provides camera capture and the shared latest-frame buffer using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 15
	DefaultWidth  = 640
	DefaultHeight = 480
)

// Layout names the channel order delivered by a source.
type Layout string

const (
	// LayoutBGR is the canonical pipeline layout (OpenCV native order).
	LayoutBGR Layout = "bgr"
	// LayoutRGB is used by sources that deliver red first.
	LayoutRGB Layout = "rgb"
)

// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
var ErrCameraNotOpen = errors.New("camera is not open")

// CaptureError reports a failed frame acquisition. It is always transient:
// the next read may succeed.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string {
	return "capture failed: " + e.Err.Error()
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame blocks until the next image is available and returns it in
	// the canonical BGR layout. Failures are reported as *CaptureError.
	ReadFrame() (*Frame, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Options configures a device camera.
type Options struct {
	DeviceID  int
	Width     int
	Height    int
	FPS       int
	Layout    Layout
	Transform *Transform
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	opts    Options
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
	fps     int
}

// NewCamera creates a new Camera for the given options.
// Zero width, height or fps fall back to the defaults.
func NewCamera(opts Options) Camera {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	if opts.Layout == "" {
		opts.Layout = LayoutBGR
	}
	if opts.Transform == nil {
		opts.Transform = NewTransform(false)
	}

	return &cameraImpl{
		opts: opts,
		fps:  opts.FPS,
	}
}

// Open opens the camera for capturing frames.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.opts.DeviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.opts.DeviceID, err)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(c.opts.Width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(c.opts.Height))
	capture.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.capture = capture
	c.running = true

	return nil
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame from the camera.
func (c *cameraImpl) ReadFrame() (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, &CaptureError{Err: ErrCameraNotOpen}
	}

	mat := gocv.NewMat()
	defer func() { mat.Close() }()

	if ok := c.capture.Read(&mat); !ok {
		return nil, &CaptureError{Err: errors.New("failed to read frame from camera")}
	}
	ts := time.Now()

	if mat.Empty() {
		return nil, &CaptureError{Err: errors.New("captured frame is empty")}
	}

	if err := toCanonical(&mat, c.opts.Layout); err != nil {
		return nil, &CaptureError{Err: err}
	}
	c.opts.Transform.Apply(&mat)

	frame, err := NewFrameFromMat(mat, ts)
	if err != nil {
		return nil, &CaptureError{Err: err}
	}
	return frame, nil
}

// toCanonical converts mat to three channel BGR in place.
func toCanonical(mat *gocv.Mat, layout Layout) error {
	switch mat.Channels() {
	case 1:
		gocv.CvtColor(*mat, mat, gocv.ColorGrayToBGR)
	case 3:
		if layout == LayoutRGB {
			gocv.CvtColor(*mat, mat, gocv.ColorRGBToBGR)
		}
	case 4:
		if layout == LayoutRGB {
			gocv.CvtColor(*mat, mat, gocv.ColorRGBAToBGR)
		} else {
			gocv.CvtColor(*mat, mat, gocv.ColorBGRAToBGR)
		}
	default:
		return fmt.Errorf("unsupported channel count %d", mat.Channels())
	}
	return nil
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps

	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.fps
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
