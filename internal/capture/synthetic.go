package capture

import (
	"image"
	"time"
)

// SolidFrame builds a frame filled with a single BGR colour.
func SolidFrame(width, height int, b, g, r byte) *Frame {
	data := make([]byte, width*height*bytesPerPixel)
	for i := 0; i < len(data); i += bytesPerPixel {
		data[i] = b
		data[i+1] = g
		data[i+2] = r
	}
	return &Frame{
		Timestamp: time.Now(),
		Width:     width,
		Height:    height,
		Data:      data,
	}
}

// FrameWithRect builds a grey frame of intensity bg with rect painted at intensity fg.
func FrameWithRect(width, height int, rect image.Rectangle, bg, fg byte) *Frame {
	f := SolidFrame(width, height, bg, bg, bg)
	rect = rect.Intersect(image.Rect(0, 0, width, height))

	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		row := y * width * bytesPerPixel
		for x := rect.Min.X; x < rect.Max.X; x++ {
			i := row + x*bytesPerPixel
			f.Data[i] = fg
			f.Data[i+1] = fg
			f.Data[i+2] = fg
		}
	}
	return f
}

// SyntheticSequence returns n frames of a bright square sliding across a dark
// background. Played in a loop through MockCamera it gives a source with
// periodic motion and no device attached.
func SyntheticSequence(width, height, n int) []*Frame {
	if n <= 0 {
		return nil
	}

	side := height / 4
	if side < 1 {
		side = 1
	}
	span := width - side
	if span < 1 {
		span = 1
	}

	frames := make([]*Frame, 0, n)
	for i := 0; i < n; i++ {
		x := i * span / n
		y := (height - side) / 2
		frames = append(frames, FrameWithRect(width, height, image.Rect(x, y, x+side, y+side), 16, 235))
	}
	return frames
}
