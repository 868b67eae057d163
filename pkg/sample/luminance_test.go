package sample

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func filledRGBA(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestLuminance_Uniform(t *testing.T) {
	tests := []struct {
		name string
		img  image.Image
		want float64
	}{
		{"rgba", filledRGBA(16, 12, color.RGBA{R: 200, G: 10, B: 30, A: 255}), 200},
		{"nrgba", func() image.Image {
			img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
			for i := 0; i < len(img.Pix); i += 4 {
				img.Pix[i] = 90
				img.Pix[i+3] = 255
			}
			return img
		}(), 90},
		{"generic gray", func() image.Image {
			img := image.NewGray(image.Rect(0, 0, 8, 8))
			for i := range img.Pix {
				img.Pix[i] = 120
			}
			return img
		}(), 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, step := range []int{1, 2, 4} {
				assert.InDelta(t, tt.want, Luminance(tt.img, image.Rectangle{}, step), 1e-9, "step %d", step)
			}
		})
	}
}

func TestLuminance_ReadsOnlyRedChannel(t *testing.T) {
	img := filledRGBA(4, 4, color.RGBA{R: 50, G: 255, B: 255, A: 255})
	assert.InDelta(t, 50, Luminance(img, image.Rectangle{}, 1), 1e-9)
}

func TestLuminance_Stride(t *testing.T) {
	// Columns alternate 0/100; step 2 only visits even columns
	img := image.NewRGBA(image.Rect(0, 0, 8, 2))
	for y := range 2 {
		for x := range 8 {
			if x%2 == 1 {
				img.SetRGBA(x, y, color.RGBA{R: 100, A: 255})
			}
		}
	}

	assert.InDelta(t, 50, Luminance(img, image.Rectangle{}, 1), 1e-9)
	assert.InDelta(t, 0, Luminance(img, image.Rectangle{}, 2), 1e-9)
}

func TestLuminance_ROI(t *testing.T) {
	img := filledRGBA(10, 10, color.RGBA{R: 10, A: 255})
	for y := 4; y < 6; y++ {
		for x := 4; x < 6; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 250, A: 255})
		}
	}

	assert.InDelta(t, 250, Luminance(img, image.Rect(4, 4, 6, 6), 1), 1e-9)

	// Region partly outside the frame is clipped
	assert.InDelta(t, 10, Luminance(img, image.Rect(8, 8, 20, 20), 1), 1e-9)
}

func TestLuminance_SubImage(t *testing.T) {
	img := filledRGBA(10, 10, color.RGBA{R: 10, A: 255})
	for y := 5; y < 10; y++ {
		for x := 5; x < 10; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 170, A: 255})
		}
	}
	sub := img.SubImage(image.Rect(5, 5, 10, 10))

	assert.InDelta(t, 170, Luminance(sub, image.Rectangle{}, 1), 1e-9)
}

func TestLuminance_Degenerate(t *testing.T) {
	assert.True(t, math.IsNaN(Luminance(nil, image.Rectangle{}, 4)))

	empty := image.NewRGBA(image.Rectangle{})
	assert.True(t, math.IsNaN(Luminance(empty, image.Rectangle{}, 4)))

	img := filledRGBA(4, 4, color.RGBA{R: 1, A: 255})
	assert.True(t, math.IsNaN(Luminance(img, image.Rect(10, 10, 20, 20), 1)), "roi outside frame")

	// Non-positive step falls back to every pixel
	assert.InDelta(t, 1, Luminance(img, image.Rectangle{}, 0), 1e-9)
}

func TestCenterROI(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 50)

	assert.Equal(t, bounds, CenterROI(bounds, 1))
	assert.Equal(t, bounds, CenterROI(bounds, 0))
	assert.Equal(t, image.Rect(25, 12, 75, 37), CenterROI(bounds, 0.5))
	assert.Equal(t, bounds, CenterROI(bounds, 0.001), "degenerate region falls back to the frame")
}
