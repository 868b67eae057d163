// Package sample turns camera frames into scalar pulse samples and prepares
// sample traces for display.
package sample

import (
	"image"
	"math"
)

// Luminance returns the mean red-channel value (0-255) of a frame region.
//
// With a fingertip over the lens and the flashlight on, the red channel is the
// one that tracks blood volume. Only every step-th pixel of every step-th row
// inside roi is read. An empty roi means the whole frame. The result is NaN
// when there is nothing to sample (nil image, empty region), which callers
// treat as "discard this frame".
func Luminance(img image.Image, roi image.Rectangle, step int) float64 {
	if img == nil {
		return math.NaN()
	}
	if step < 1 {
		step = 1
	}

	bounds := img.Bounds()
	if roi.Empty() {
		roi = bounds
	} else {
		roi = roi.Intersect(bounds)
	}
	if roi.Empty() {
		return math.NaN()
	}

	var (
		sum   float64
		count int
	)

	switch m := img.(type) {
	case *image.RGBA:
		sum, count = sumRed(m.Pix, m.Stride, m.Rect, roi, step)
	case *image.NRGBA:
		sum, count = sumRed(m.Pix, m.Stride, m.Rect, roi, step)
	default:
		for y := roi.Min.Y; y < roi.Max.Y; y += step {
			for x := roi.Min.X; x < roi.Max.X; x += step {
				r, _, _, _ := m.At(x, y).RGBA()
				sum += float64(r >> 8)
				count++
			}
		}
	}

	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}

// sumRed walks the red bytes of a 4-byte-per-pixel buffer.
func sumRed(pix []uint8, stride int, rect, roi image.Rectangle, step int) (float64, int) {
	var (
		sum   float64
		count int
	)
	for y := roi.Min.Y; y < roi.Max.Y; y += step {
		row := (y - rect.Min.Y) * stride
		for x := roi.Min.X; x < roi.Max.X; x += step {
			i := row + (x-rect.Min.X)*4
			if i < 0 || i >= len(pix) {
				continue
			}
			sum += float64(pix[i])
			count++
		}
	}
	return sum, count
}

// CenterROI returns a region centered in bounds covering fraction of each
// dimension. Fractions outside (0, 1] select the whole frame.
func CenterROI(bounds image.Rectangle, fraction float64) image.Rectangle {
	if fraction <= 0 || fraction >= 1 {
		return bounds
	}
	w := int(math.Round(float64(bounds.Dx()) * fraction))
	h := int(math.Round(float64(bounds.Dy()) * fraction))
	if w < 1 || h < 1 {
		return bounds
	}
	x0 := bounds.Min.X + (bounds.Dx()-w)/2
	y0 := bounds.Min.Y + (bounds.Dy()-h)/2
	return image.Rect(x0, y0, x0+w, y0+h)
}
