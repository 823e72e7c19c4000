package render

import (
	"image"
	"math"

	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/ports"
)

// One-shot spectrogram grid.
const (
	OneShotSlices = 100
	OneShotBins   = 64
)

// Spectrogram draws time on the x axis and frequency bins on the y axis,
// low frequencies at the bottom.
type Spectrogram struct {
	surface ports.RenderSurface
	history *SpectrogramBuffer
}

// NewSpectrogram creates a spectrogram renderer. Live frames are accumulated
// in history, which the caller owns and clears.
func NewSpectrogram(surface ports.RenderSurface, history *SpectrogramBuffer) *Spectrogram {
	return &Spectrogram{surface: surface, history: history}
}

// RenderResult draws the one-shot approximation of a completed result.
func (r *Spectrogram) RenderResult(result *domain.GenerationResult) {
	if result == nil {
		return
	}
	grid := OneShotGrid(result.Waveform, OneShotSlices, OneShotBins)
	w, h := r.surface.Size()
	r.surface.Present(DrawIntensityGrid(w, h, len(grid), OneShotBins, func(c, row int) float64 {
		return grid[c][row]
	}))
}

// RenderLive appends the frame's frequency snapshot to the history and
// redraws every retained slice, oldest on the left.
func (r *Spectrogram) RenderLive(frame domain.AnalysisFrame) {
	r.history.Push(frame.FreqDomain)
	slices := r.history.Snapshot()
	w, h := r.surface.Size()
	r.surface.Present(r.DrawHistory(w, h, slices))
}

// DrawHistory renders retained slices, one column per slice, one row per bin.
func (r *Spectrogram) DrawHistory(w, h int, slices [][]byte) *image.RGBA {
	bins := 0
	if len(slices) > 0 {
		bins = len(slices[len(slices)-1])
	}
	return DrawIntensityGrid(w, h, len(slices), bins, func(c, row int) float64 {
		s := slices[c]
		if row >= len(s) {
			return 0
		}
		return float64(s[row]) / 255
	})
}

// OneShotGrid partitions the waveform into slices time slices, each split
// into bins contiguous sample runs, and returns the mean absolute amplitude of
// every run, clamped to [0,1].
//
// This is an intensity proxy rather than a frequency transform; the live
// spectrogram uses true magnitude bins and the two are not expected to agree.
func OneShotGrid(waveform []float64, slices, bins int) [][]float64 {
	grid := make([][]float64, slices)
	n := len(waveform)
	for s := range grid {
		grid[s] = make([]float64, bins)
		start := s * n / slices
		end := (s + 1) * n / slices
		segment := waveform[start:end]
		m := len(segment)
		for b := 0; b < bins; b++ {
			lo := b * m / bins
			hi := (b + 1) * m / bins
			if hi <= lo {
				continue
			}
			var sum float64
			for _, v := range segment[lo:hi] {
				sum += math.Abs(v)
			}
			grid[s][b] = clamp01(sum / float64(hi-lo))
		}
	}
	return grid
}

// DrawIntensityGrid fills a w x h frame from a cols x rows grid of
// intensities, row 0 at the bottom, using IntensityColor.
func DrawIntensityGrid(w, h, cols, rows int, cell func(c, row int) float64) *image.RGBA {
	img := newFrame(w, h)
	w, h = img.Bounds().Dx(), img.Bounds().Dy()
	if cols == 0 || rows == 0 {
		var d DrawingUtils
		d.FillBackground(img, backgroundColor)
		return img
	}

	for x := 0; x < w; x++ {
		c := x * cols / w
		for y := 0; y < h; y++ {
			row := (h - 1 - y) * rows / h
			img.SetRGBA(x, y, IntensityColor(cell(c, row)))
		}
	}
	return img
}
