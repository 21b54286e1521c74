package recorder

import "errors"

// ErrSinkFailed marks a write error the sink cannot recover from.
// Writers wrap it so the controller knows to abandon the session.
var ErrSinkFailed = errors.New("video sink failed")

// WriterOpenError is returned when a recording file cannot be created.
type WriterOpenError struct {
	Path string
	Err  error
}

func (e *WriterOpenError) Error() string {
	return "open recording " + e.Path + ": " + e.Err.Error()
}

func (e *WriterOpenError) Unwrap() error {
	return e.Err
}

// WriterWriteError is returned when a frame could not be written.
type WriterWriteError struct {
	Path string
	Err  error
}

func (e *WriterWriteError) Error() string {
	return "write recording " + e.Path + ": " + e.Err.Error()
}

func (e *WriterWriteError) Unwrap() error {
	return e.Err
}

// Permanent reports whether the sink is gone for good.
func (e *WriterWriteError) Permanent() bool {
	return errors.Is(e.Err, ErrSinkFailed)
}
