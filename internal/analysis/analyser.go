// Package analysis turns tapped playback audio into time-domain and
// frequency-domain byte snapshots for the live renderers.
package analysis

import (
	"math"
	"math/cmplx"

	"github.com/madelynnblue/go-dsp/fft"
	"github.com/madelynnblue/go-dsp/window"

	"github.com/uapsignal/signalscope/internal/domain"
)

// Analyser holds a sliding window of mono samples and produces byte
// snapshots of it. The window size is fixed at construction.
//
// Analyser is not safe for concurrent use; CaptureGraph serializes access.
type Analyser struct {
	fftSize   int
	smoothing float64
	minDB     float64
	maxDB     float64

	window   []float64
	samples  []float64 // oldest first
	smoothed []float64
	scratch  []float64
}

// NewAnalyser creates an analyser. fftSize must be a power of two in [32, 32768].
func NewAnalyser(cfg Config) (*Analyser, error) {
	if !validFFTSize(cfg.FFTSize) {
		return nil, domain.ErrInvalidFFTSize
	}
	if cfg.MaxDecibels <= cfg.MinDecibels {
		return nil, domain.NewValidationError("max_decibels", cfg.MaxDecibels, "must exceed min_decibels")
	}
	if cfg.Smoothing < 0 || cfg.Smoothing >= 1 {
		return nil, domain.NewValidationError("smoothing", cfg.Smoothing, "must be in [0,1)")
	}
	return &Analyser{
		fftSize:   cfg.FFTSize,
		smoothing: cfg.Smoothing,
		minDB:     cfg.MinDecibels,
		maxDB:     cfg.MaxDecibels,
		window:    window.Blackman(cfg.FFTSize),
		samples:   make([]float64, cfg.FFTSize),
		smoothed:  make([]float64, cfg.FFTSize/2),
		scratch:   make([]float64, cfg.FFTSize),
	}, nil
}

func validFFTSize(n int) bool {
	return n >= 32 && n <= 32768 && n&(n-1) == 0
}

// FFTSize returns the analysis window length.
func (a *Analyser) FFTSize() int { return a.fftSize }

// BinCount returns the number of frequency bins, half the window length.
func (a *Analyser) BinCount() int { return a.fftSize / 2 }

// Push appends samples to the window, dropping the oldest.
func (a *Analyser) Push(samples []float64) {
	n := len(samples)
	if n >= a.fftSize {
		copy(a.samples, samples[n-a.fftSize:])
		return
	}
	copy(a.samples, a.samples[n:])
	copy(a.samples[a.fftSize-n:], samples)
}

// Reset zeroes the window and the smoothing state.
func (a *Analyser) Reset() {
	clear(a.samples)
	clear(a.smoothed)
}

// TimeDomain returns the window as bytes, 128 being zero amplitude.
func (a *Analyser) TimeDomain() []byte {
	out := make([]byte, a.fftSize)
	for i, v := range a.samples {
		out[i] = clampByte(128 * (1 + v))
	}
	return out
}

// FrequencyDomain returns BinCount magnitudes scaled linearly from the
// decibel range onto 0..255. Each call advances the smoothing state.
func (a *Analyser) FrequencyDomain() []byte {
	for i, v := range a.samples {
		a.scratch[i] = v * a.window[i]
	}
	spectrum := fft.FFTReal(a.scratch)

	out := make([]byte, a.BinCount())
	scale := 255 / (a.maxDB - a.minDB)
	for k := range out {
		mag := cmplx.Abs(spectrum[k]) / float64(a.fftSize)
		a.smoothed[k] = a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag
		if a.smoothed[k] <= 0 {
			continue
		}
		db := 20 * math.Log10(a.smoothed[k])
		out[k] = clampByte((db - a.minDB) * scale)
	}
	return out
}

func clampByte(v float64) byte {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return byte(v)
	}
}
