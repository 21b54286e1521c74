package capture

import (
	"errors"
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"
)

// Bytes per pixel of the canonical BGR24 layout.
const bytesPerPixel = 3

// ErrInvalidFrame is returned when a frame's pixel data does not match its dimensions.
var ErrInvalidFrame = errors.New("invalid frame")

// Frame is a captured image in the canonical BGR24 layout.
// A Frame is never modified after it has been built; consumers may share it freely.
type Frame struct {
	Seq       uint64
	Timestamp time.Time
	Width     int
	Height    int
	Data      []byte
}

// NewFrame wraps BGR24 pixel data. The slice is owned by the frame afterwards.
func NewFrame(width, height int, data []byte, ts time.Time) (*Frame, error) {
	if width <= 0 || height <= 0 || len(data) != width*height*bytesPerPixel {
		return nil, fmt.Errorf("%w: %dx%d with %d bytes", ErrInvalidFrame, width, height, len(data))
	}
	return &Frame{
		Timestamp: ts,
		Width:     width,
		Height:    height,
		Data:      data,
	}, nil
}

// NewFrameFromMat copies a three channel 8-bit Mat into a new Frame.
func NewFrameFromMat(mat gocv.Mat, ts time.Time) (*Frame, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("%w: empty mat", ErrInvalidFrame)
	}
	if mat.Type() != gocv.MatTypeCV8UC3 {
		return nil, fmt.Errorf("%w: unexpected mat type %v", ErrInvalidFrame, mat.Type())
	}
	return NewFrame(mat.Cols(), mat.Rows(), mat.ToBytes(), ts)
}

// Size returns the frame dimensions.
func (f *Frame) Size() image.Point {
	return image.Point{X: f.Width, Y: f.Height}
}

// Mat returns an independent Mat holding a copy of the frame.
// The caller is responsible for closing it.
func (f *Frame) Mat() (gocv.Mat, error) {
	if f == nil || len(f.Data) != f.Width*f.Height*bytesPerPixel {
		return gocv.Mat{}, ErrInvalidFrame
	}

	view, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Data)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("wrap frame data: %w", err)
	}
	defer view.Close()

	return view.Clone(), nil
}

// JPEG encodes the frame as a JPEG image with the given quality (1-100).
func (f *Frame) JPEG(quality int) ([]byte, error) {
	mat, err := f.Mat()
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	// The native buffer is released on Close, keep our own copy.
	return append([]byte(nil), buf.GetBytes()...), nil
}
