// Package motion detects movement between consecutive frames and tracks how
// long a detection stays in effect.
package motion

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/watchpost/internal/capture"
)

// Default detection settings.
const (
	DefaultBlurSize         = 21
	DefaultDiffThreshold    = 25
	DefaultMinArea          = 1500
	DefaultDilateIterations = 2
)

// Config holds the image-processing knobs of a Detector.
type Config struct {
	// BlurSize is the Gaussian kernel size. Even values are rounded up.
	BlurSize int
	// DiffThreshold is the per-pixel intensity change counted as different.
	DiffThreshold float32
	// MinArea is the smallest contour area (px²) that counts as motion.
	MinArea float64
	// DilateIterations grows the difference mask to merge nearby blobs.
	DilateIterations int
}

// DefaultConfig returns the default detection settings.
func DefaultConfig() Config {
	return Config{
		BlurSize:         DefaultBlurSize,
		DiffThreshold:    DefaultDiffThreshold,
		MinArea:          DefaultMinArea,
		DilateIterations: DefaultDilateIterations,
	}
}

func (c Config) withDefaults() Config {
	if c.BlurSize <= 0 {
		c.BlurSize = DefaultBlurSize
	}
	if c.BlurSize%2 == 0 {
		c.BlurSize++
	}
	if c.DiffThreshold <= 0 {
		c.DiffThreshold = DefaultDiffThreshold
	}
	if c.MinArea <= 0 {
		c.MinArea = DefaultMinArea
	}
	if c.DilateIterations < 0 {
		c.DilateIterations = 0
	}
	return c
}

// Result describes one detection pass.
type Result struct {
	Motion      bool
	Regions     []image.Rectangle
	LargestArea float64
}

// Detector compares each frame against the previous one using frame
// differencing with Gaussian blur for noise reduction.
type Detector struct {
	cfg      Config
	baseline gocv.Mat
	seeded   bool
	kernel   gocv.Mat
	mu       sync.Mutex
}

// NewDetector creates a Detector. Zero config fields take their defaults.
func NewDetector(cfg Config) *Detector {
	return &Detector{
		cfg:      cfg.withDefaults(),
		baseline: gocv.NewMat(),
		kernel:   gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3)),
	}
}

// Config returns the effective settings.
func (d *Detector) Config() Config {
	return d.cfg
}

// Detect analyzes a frame for motion compared to the previous frame.
//
// Algorithm:
// 1. Convert frame to grayscale and blur it
// 2. If there is no baseline of the same size, store it and report no motion
// 3. Absolute difference with the baseline, binary threshold, dilate
// 4. External contours larger than MinArea count as motion
// 5. The blurred frame becomes the new baseline
func (d *Detector) Detect(frame *capture.Frame) (Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	src, err := frame.Mat()
	if err != nil {
		return Result{}, fmt.Errorf("motion: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(d.cfg.BlurSize, d.cfg.BlurSize), 0, 0, gocv.BorderDefault)

	if !d.seeded || d.baseline.Cols() != blurred.Cols() || d.baseline.Rows() != blurred.Rows() {
		blurred.CopyTo(&d.baseline)
		d.seeded = true
		return Result{}, nil
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, d.baseline, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, d.cfg.DiffThreshold, 255, gocv.ThresholdBinary)

	for i := 0; i < d.cfg.DilateIterations; i++ {
		gocv.Dilate(mask, &mask, d.kernel)
	}

	res := d.contours(mask)

	blurred.CopyTo(&d.baseline)

	return res, nil
}

func (d *Detector) contours(mask gocv.Mat) Result {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var res Result
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		area := gocv.ContourArea(c)
		if area > res.LargestArea {
			res.LargestArea = area
		}
		if area > d.cfg.MinArea {
			res.Motion = true
			res.Regions = append(res.Regions, gocv.BoundingRect(c))
		}
	}
	return res
}

// Reset drops the baseline; the next frame seeds a new one.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.resetLocked()
}

func (d *Detector) resetLocked() {
	if !d.baseline.Empty() {
		d.baseline.Close()
		d.baseline = gocv.NewMat()
	}
	d.seeded = false
}

// Close releases resources used by the detector.
func (d *Detector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.resetLocked()
	d.baseline.Close()
	d.kernel.Close()
}
