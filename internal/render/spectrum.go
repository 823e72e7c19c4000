package render

import (
	"image"
	"math"
	"sort"
	"strconv"

	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/ports"
)

// ReferenceFrequencies are the tick labels overlaid on the spectrum, in Hz.
var ReferenceFrequencies = []float64{100, 500, 1000, 2000, 5000, 10000, 15000, 20000}

const (
	labelMargin     = 4
	labelLineHeight = 11
	labelStagger    = 3 // distinct baselines used by the live variant
)

// FrequencyLabel is a tick label placed at a bin.
type FrequencyLabel struct {
	Bin  int
	Text string
}

// FormatFrequency renders 100 as "100" and 15000 as "15k".
func FormatFrequency(hz float64) string {
	if hz >= 1000 {
		return strconv.FormatFloat(hz/1000, 'f', -1, 64) + "k"
	}
	return strconv.FormatFloat(hz, 'f', -1, 64)
}

// Spectrum draws one hue-swept bar per frequency bin.
type Spectrum struct {
	surface ports.RenderSurface
	draw    DrawingUtils
}

// NewSpectrum creates a spectrum renderer for surface.
func NewSpectrum(surface ports.RenderSurface) *Spectrum {
	return &Spectrum{surface: surface}
}

// RenderResult draws the precomputed FFT of a completed result.
func (r *Spectrum) RenderResult(result *domain.GenerationResult) {
	if result == nil {
		return
	}
	labels := ResultLabels(result.FFT.Frequencies, len(result.FFT.Magnitudes))
	w, h := r.surface.Size()
	r.surface.Present(r.Draw(w, h, result.FFT.Magnitudes, labels, false))
}

// RenderLive draws a frequency-domain snapshot, one bar per analyser bin.
func (r *Spectrum) RenderLive(frame domain.AnalysisFrame) {
	mags := make([]float64, len(frame.FreqDomain))
	for i, b := range frame.FreqDomain {
		mags[i] = float64(b) / 255
	}
	labels := LiveLabels(frame.BinHz(), len(mags))
	w, h := r.surface.Size()
	r.surface.Present(r.Draw(w, h, mags, labels, true))
}

// ResultLabels places each reference frequency at the nearest bin of an
// ascending frequency axis. Frequencies outside the axis are skipped.
func ResultLabels(frequencies []float64, bins int) []FrequencyLabel {
	n := min(len(frequencies), bins)
	if n == 0 {
		return nil
	}
	axis := frequencies[:n]
	labels := make([]FrequencyLabel, 0, len(ReferenceFrequencies))
	for _, f := range ReferenceFrequencies {
		if f < axis[0] || f > axis[n-1] {
			continue
		}
		i := sort.SearchFloat64s(axis, f)
		if i > 0 && (i == n || f-axis[i-1] <= axis[i]-f) {
			i--
		}
		labels = append(labels, FrequencyLabel{Bin: i, Text: FormatFrequency(f)})
	}
	return labels
}

// LiveLabels places each reference frequency at bin f/binHz.
func LiveLabels(binHz float64, bins int) []FrequencyLabel {
	if binHz <= 0 || bins == 0 {
		return nil
	}
	labels := make([]FrequencyLabel, 0, len(ReferenceFrequencies))
	for _, f := range ReferenceFrequencies {
		i := int(math.Round(f / binHz))
		if i >= bins {
			continue
		}
		labels = append(labels, FrequencyLabel{Bin: i, Text: FormatFrequency(f)})
	}
	return labels
}

// Draw renders magnitudes in [0,1] as bars spanning the frame, then the labels.
// With stagger set, consecutive labels cycle through three baselines.
func (r *Spectrum) Draw(w, h int, mags []float64, labels []FrequencyLabel, stagger bool) *image.RGBA {
	img := newFrame(w, h)
	w, h = img.Bounds().Dx(), img.Bounds().Dy()
	r.draw.FillBackground(img, backgroundColor)

	n := len(mags)
	if n == 0 {
		return img
	}

	barWidth := float64(w) / float64(n)
	for i, m := range mags {
		x0 := int(float64(i) * barWidth)
		x1 := max(int(float64(i+1)*barWidth), x0+1)
		barHeight := int(math.Round(clamp01(m) * float64(h)))
		if barHeight == 0 {
			continue
		}
		r.draw.FillRect(img, image.Rect(x0, h-barHeight, x1, h), SpectrumColor(i, n))
	}

	for k, l := range labels {
		offset := 0
		if stagger {
			offset = k % labelStagger
		}
		x := int(float64(l.Bin) * barWidth)
		x = min(x, w-r.draw.TextWidth(l.Text))
		y := h - labelMargin - offset*labelLineHeight
		r.draw.DrawText(img, max(x, 0), y, l.Text, labelColor)
	}
	return img
}
