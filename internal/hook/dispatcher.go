package hook

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Dispatcher fans events out to subscribed hooks in the background.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	log      *zap.SugaredLogger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. A nil logger discards output.
func NewDispatcher(manager *Manager, executor *Executor, log *zap.SugaredLogger) *Dispatcher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		manager:  manager,
		executor: executor,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Dispatch starts every hook subscribed to req.Event and returns immediately.
func (d *Dispatcher) Dispatch(req Request) {
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}

	for _, h := range d.manager.ForEvent(req.Event) {
		d.wg.Add(1)
		go func(h *Hook) {
			defer d.wg.Done()
			d.run(h, req)
		}(h)
	}
}

func (d *Dispatcher) run(h *Hook, req Request) {
	resp, err := d.executor.Execute(d.ctx, h, &req)
	if err != nil {
		d.log.Warnw("Hook failed", "hook", h.Manifest.Name, "event", req.Event, "error", err)
		return
	}
	if !resp.Success {
		d.log.Warnw("Hook reported failure", "hook", h.Manifest.Name, "event", req.Event, "error", resp.Error)
		return
	}
	d.log.Debugw("Hook completed", "hook", h.Manifest.Name, "event", req.Event)
}

// Wait blocks until all running hooks have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown waits for running hooks to finish until ctx is done, then cancels
// whatever is still running and waits for it to exit.
func (d *Dispatcher) Shutdown(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		d.log.Warnw("Cancelling hooks still running at shutdown", "error", ctx.Err())
	}
	d.Close()
}

// Close cancels running hooks and waits for them to exit.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}
