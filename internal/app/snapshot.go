package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/watchpost/internal/hook"
	"github.com/ayusman/watchpost/internal/store"
)

// SaveSnapshot encodes the latest frame as a JPEG into the photo directory
// and indexes it. It returns capture.ErrNotAvailable before the first frame.
func (a *App) SaveSnapshot(ctx context.Context) (*store.Snapshot, error) {
	frame, err := a.CaptureSnapshot()
	if err != nil {
		return nil, err
	}

	data, err := frame.JPEG(SnapshotQuality)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.snapMu.Lock()
	path, err := a.writeSnapshot(data, frame.Timestamp)
	a.snapMu.Unlock()
	if err != nil {
		return nil, err
	}

	snap := &store.Snapshot{
		ID:        uuid.NewString(),
		Path:      path,
		Width:     frame.Width,
		Height:    frame.Height,
		SizeBytes: int64(len(data)),
		CreatedAt: frame.Timestamp,
	}

	if st := a.config.Store; st != nil {
		if err := st.Snapshots().Create(snap); err != nil {
			return nil, fmt.Errorf("index snapshot: %w", err)
		}
	}

	a.log.Infow("Snapshot saved", "path", path, "bytes", len(data))

	if a.config.Hooks != nil {
		a.config.Hooks.Dispatch(hook.Request{
			Event: hook.EventSnapshotSaved,
			ID:    snap.ID,
			Path:  path,
		})
	}

	return snap, nil
}

// writeSnapshot stores data under a name derived from ts that does not
// exist yet.
func (a *App) writeSnapshot(data []byte, ts time.Time) (string, error) {
	if err := os.MkdirAll(a.config.PhotoDir, 0o755); err != nil {
		return "", fmt.Errorf("create photo dir: %w", err)
	}

	base := filepath.Join(a.config.PhotoDir, "snapshot_"+ts.Format("20060102_150405"))
	path := base + ".jpg"
	for n := 1; ; n++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			path = fmt.Sprintf("%s_%d.jpg", base, n)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create snapshot: %w", err)
		}

		_, werr := f.Write(data)
		cerr := f.Close()
		if werr != nil {
			return "", fmt.Errorf("write snapshot: %w", werr)
		}
		if cerr != nil {
			return "", fmt.Errorf("write snapshot: %w", cerr)
		}
		return path, nil
	}
}
