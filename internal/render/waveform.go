package render

import (
	"image"

	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/ports"
)

const (
	gridRows      = 4
	gridColumns   = 8
	traceWidth    = 2
	amplitudeFill = 0.9 // share of the half-height a full-scale sample reaches
)

// Waveform draws samples as a poly-line over a fixed reference grid.
type Waveform struct {
	surface ports.RenderSurface
	draw    DrawingUtils
}

// NewWaveform creates a waveform renderer for surface.
func NewWaveform(surface ports.RenderSurface) *Waveform {
	return &Waveform{surface: surface}
}

// RenderResult draws the normalized [-1,1] waveform of a completed result.
func (r *Waveform) RenderResult(result *domain.GenerationResult) {
	if result == nil {
		return
	}
	w, h := r.surface.Size()
	r.surface.Present(r.Draw(w, h, result.Waveform))
}

// RenderLive draws a time-domain snapshot centred at 128.
func (r *Waveform) RenderLive(frame domain.AnalysisFrame) {
	samples := make([]float64, len(frame.TimeDomain))
	for i, b := range frame.TimeDomain {
		samples[i] = (float64(b) - 128) / 128
	}
	w, h := r.surface.Size()
	r.surface.Present(r.Draw(w, h, samples))
}

// Draw renders samples into a new w x h frame.
func (r *Waveform) Draw(w, h int, samples []float64) *image.RGBA {
	img := newFrame(w, h)
	w, h = img.Bounds().Dx(), img.Bounds().Dy()

	r.draw.FillBackground(img, backgroundColor)
	r.drawGrid(img, w, h)

	if len(samples) == 0 {
		return img
	}

	midY := float64(h) / 2
	xStep := float64(w) / float64(len(samples))
	pointY := func(v float64) float64 {
		return midY - v*midY*amplitudeFill
	}

	prevX, prevY := 0.0, pointY(samples[0])
	if len(samples) == 1 {
		r.draw.DrawThickLine(img, 0, prevY, float64(w-1), prevY, traceWidth, traceColor)
		return img
	}
	for i := 1; i < len(samples); i++ {
		x := float64(i) * xStep
		y := pointY(samples[i])
		r.draw.DrawThickLine(img, prevX, prevY, x, y, traceWidth, traceColor)
		prevX, prevY = x, y
	}
	return img
}

// drawGrid draws 4 horizontal and 8 vertical divisions, edges included.
func (r *Waveform) drawGrid(img *image.RGBA, w, h int) {
	for i := 0; i <= gridRows; i++ {
		y := min(h*i/gridRows, h-1)
		r.draw.FillRect(img, image.Rect(0, y, w, y+1), gridColor)
	}
	for i := 0; i <= gridColumns; i++ {
		x := min(w*i/gridColumns, w-1)
		r.draw.FillRect(img, image.Rect(x, 0, x+1, h), gridColor)
	}
}
