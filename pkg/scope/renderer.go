package scope

import (
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
)

var (
	gridColor     = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor    = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	rawColor      = color.RGBA{R: 255, G: 165, B: 0, A: 255}   // Orange
	filteredColor = color.RGBA{R: 100, G: 200, B: 255, A: 255} // Light blue
	beatColor     = color.RGBA{R: 0, G: 100, B: 200, A: 255}   // Dark blue
	stableColor   = color.RGBA{R: 120, G: 220, B: 120, A: 255}
	statusColor   = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)

// plot is a rectangular drawing area with a value range.
type plot struct {
	x, y, w, h float32
	lo, hi     float64
}

func (p plot) point(i, n int, v float64) fyne.Position {
	x := p.x
	if n > 1 {
		x += float32(i) / float32(n-1) * p.w
	}
	y := p.y + p.h - float32((v-p.lo)/(p.hi-p.lo))*p.h
	return fyne.NewPos(x, y)
}

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	background *canvas.Rectangle

	// Objects list for Fyne
	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.background.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh redraws both traces and the overlay.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	raw := r.scope.raw
	filtered := r.scope.filtered
	beats := r.scope.beats
	duration := r.scope.duration
	rawRange := r.scope.rawRange
	filteredRange := r.scope.filteredRange
	status := statusText(r.scope.bpm, r.scope.quality, r.scope.stable)
	stable := r.scope.stable
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.background}

	marginLeft := float32(60.0)
	marginRight := float32(20.0)
	marginTop := float32(36.0)
	marginBottom := float32(30.0)
	gap := float32(16.0)

	plotWidth := size.Width - marginLeft - marginRight
	plotHeight := (size.Height - marginTop - marginBottom - gap) / 2
	if plotWidth <= 0 || plotHeight <= 0 {
		return
	}

	top := plot{x: marginLeft, y: marginTop, w: plotWidth, h: plotHeight, lo: rawRange[0], hi: rawRange[1]}
	bottom := plot{x: marginLeft, y: marginTop + plotHeight + gap, w: plotWidth, h: plotHeight, lo: filteredRange[0], hi: filteredRange[1]}

	r.drawGrid(top)
	r.drawGrid(bottom)
	r.drawTimeAxis(bottom, duration)
	r.drawBeats(bottom, beats)
	r.drawTrace(top, raw, rawColor, 1.5)
	r.drawTrace(bottom, filtered, filteredColor, 2)
	r.drawStatus(status, stable)
}

// drawGrid draws the oscilloscope-style grid with value labels.
func (r *scopeRenderer) drawGrid(p plot) {
	numHLines := 4
	for i := range numHLines + 1 {
		y := p.y + float32(i)*p.h/float32(numHLines)
		r.line(fyne.NewPos(p.x, y), fyne.NewPos(p.x+p.w, y), gridColor, 1)

		value := p.hi - float64(i)*(p.hi-p.lo)/float64(numHLines)
		text := canvas.NewText(fmt.Sprintf("%.1f", value), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(p.x-5, y-6))
		r.objects = append(r.objects, text)
	}

	numVLines := 10
	for i := range numVLines + 1 {
		x := p.x + float32(i)*p.w/float32(numVLines)
		r.line(fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.h), gridColor, 1)
	}
}

func (r *scopeRenderer) drawTimeAxis(p plot, duration float64) {
	numVLines := 10
	for i := range numVLines + 1 {
		x := p.x + float32(i)*p.w/float32(numVLines)
		seconds := duration * float64(i) / float64(numVLines)
		text := canvas.NewText(fmt.Sprintf("%.1fs", seconds), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(x-20, p.y+p.h+5))
		r.objects = append(r.objects, text)
	}
}

func (r *scopeRenderer) drawTrace(p plot, values []float64, c color.Color, width float32) {
	if len(values) < 2 || p.hi == p.lo {
		return
	}
	prev := p.point(0, len(values), values[0])
	for i := 1; i < len(values); i++ {
		cur := p.point(i, len(values), values[i])
		r.line(prev, cur, c, width)
		prev = cur
	}
}

// drawBeats draws vertical markers at detected beats.
func (r *scopeRenderer) drawBeats(p plot, beats []float64) {
	for _, b := range beats {
		x := p.x + float32(b)*p.w
		r.line(fyne.NewPos(x, p.y), fyne.NewPos(x, p.y+p.h), beatColor, 1)
	}
}

func (r *scopeRenderer) drawStatus(status string, stable bool) {
	c := statusColor
	if stable {
		c = stableColor
	}
	text := canvas.NewText(status, c)
	text.TextSize = 16
	text.TextStyle = fyne.TextStyle{Bold: true}
	text.Move(fyne.NewPos(10, 8))
	r.objects = append(r.objects, text)
}

func (r *scopeRenderer) line(a, b fyne.Position, c color.Color, width float32) {
	l := canvas.NewLine(c)
	l.Position1 = a
	l.Position2 = b
	l.StrokeWidth = width
	r.objects = append(r.objects, l)
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {}
