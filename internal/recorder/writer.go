package recorder

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/watchpost/internal/capture"
)

// Default encoder settings.
const (
	DefaultCodec = "MJPG"
	DefaultExt   = ".avi"
)

// Writer is a video sink bound to one output file.
type Writer interface {
	Write(frame *capture.Frame) error
	// Close flushes buffered data and finalizes the container.
	Close() error
}

// WriterFactory opens a Writer for path with the given rate and frame size.
type WriterFactory func(path string, fps float64, size image.Point) (Writer, error)

// VideoWriterFactory returns a factory backed by OpenCV's VideoWriter
// using the given FourCC codec.
func VideoWriterFactory(codec string) WriterFactory {
	if codec == "" {
		codec = DefaultCodec
	}
	return func(path string, fps float64, size image.Point) (Writer, error) {
		if size.X <= 0 || size.Y <= 0 {
			return nil, fmt.Errorf("invalid frame size %dx%d", size.X, size.Y)
		}
		if fps <= 0 {
			return nil, fmt.Errorf("invalid frame rate %v", fps)
		}

		vw, err := gocv.VideoWriterFile(path, codec, fps, size.X, size.Y, true)
		if err != nil {
			return nil, err
		}
		if !vw.IsOpened() {
			vw.Close()
			return nil, errors.New("video writer did not open")
		}

		return &videoWriter{vw: vw, size: size}, nil
	}
}

type videoWriter struct {
	vw   *gocv.VideoWriter
	size image.Point
}

func (w *videoWriter) Write(frame *capture.Frame) error {
	if frame.Size() != w.size {
		return fmt.Errorf("frame size %v does not match recording size %v", frame.Size(), w.size)
	}

	mat, err := frame.Mat()
	if err != nil {
		return err
	}
	defer mat.Close()

	if err := w.vw.Write(mat); err != nil {
		if !w.vw.IsOpened() {
			return fmt.Errorf("%w: %v", ErrSinkFailed, err)
		}
		return err
	}
	return nil
}

func (w *videoWriter) Close() error {
	return w.vw.Close()
}
