package capture

import (
	"image"
	"math"
	"sync"

	"gocv.io/x/gocv"
)

// Digital zoom limits.
const (
	MinZoom  = 1.0
	MaxZoom  = 3.0
	ZoomStep = 0.2
)

// Transform applies digital zoom (centre crop scaled back to full size)
// and an optional horizontal mirror to captured images.
type Transform struct {
	mu     sync.RWMutex
	zoom   float64
	mirror bool
}

// NewTransform creates a Transform with no zoom.
func NewTransform(mirror bool) *Transform {
	return &Transform{
		zoom:   MinZoom,
		mirror: mirror,
	}
}

// ZoomIn increases the zoom level by one step and returns the new level.
func (t *Transform) ZoomIn() float64 {
	return t.adjust(ZoomStep)
}

// ZoomOut decreases the zoom level by one step and returns the new level.
func (t *Transform) ZoomOut() float64 {
	return t.adjust(-ZoomStep)
}

func (t *Transform) adjust(delta float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	z := math.Round((t.zoom+delta)*10) / 10
	t.zoom = math.Max(MinZoom, math.Min(MaxZoom, z))
	return t.zoom
}

// Zoom returns the current zoom level.
func (t *Transform) Zoom() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.zoom
}

// SetMirror enables or disables the horizontal flip.
func (t *Transform) SetMirror(mirror bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mirror = mirror
}

// Mirror reports whether the horizontal flip is enabled.
func (t *Transform) Mirror() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mirror
}

// Apply transforms mat in place. Output dimensions always match the input.
func (t *Transform) Apply(mat *gocv.Mat) {
	t.mu.RLock()
	zoom, mirror := t.zoom, t.mirror
	t.mu.RUnlock()

	if zoom > MinZoom {
		w, h := mat.Cols(), mat.Rows()
		crop := cropRect(w, h, zoom)

		region := mat.Region(crop)
		zoomed := gocv.NewMat()
		gocv.Resize(region, &zoomed, image.Pt(w, h), 0, 0, gocv.InterpolationLinear)
		region.Close()

		mat.Close()
		*mat = zoomed
	}

	if mirror {
		gocv.Flip(*mat, mat, 1)
	}
}

// cropRect returns the centred rectangle covering 1/zoom of a w x h image.
func cropRect(w, h int, zoom float64) image.Rectangle {
	cw := int(float64(w) / zoom)
	ch := int(float64(h) / zoom)
	x := (w - cw) / 2
	y := (h - ch) / 2
	return image.Rect(x, y, x+cw, y+ch)
}
