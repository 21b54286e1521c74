package app

import (
	"context"
	"iter"
	"time"
)

// DefaultStreamInterval is how often Stream polls for a new frame.
const DefaultStreamInterval = 30 * time.Millisecond

// Stream returns a lazy sequence of JPEG-encoded frames. Each published
// frame is yielded at most once; the sequence ends when ctx is done or the
// consumer stops ranging. Nothing is encoded until iteration begins.
func (a *App) Stream(ctx context.Context, interval time.Duration) iter.Seq[[]byte] {
	if interval <= 0 {
		interval = DefaultStreamInterval
	}

	return func(yield func([]byte) bool) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var last uint64
		for {
			if f, ok := a.buffer.Latest(); ok && f.Seq != last {
				last = f.Seq

				data, err := f.JPEG(StreamQuality)
				if err != nil {
					a.log.Debugw("Failed to encode stream frame", "seq", f.Seq, "error", err)
				} else if !yield(data) {
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
}
