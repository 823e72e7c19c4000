package analysis

import (
	"math"
	"math/cmplx"

	"github.com/madelynnblue/go-dsp/fft"
	"github.com/madelynnblue/go-dsp/window"

	"github.com/uapsignal/signalscope/internal/domain"
)

// WaveformSpectrum estimates the spectrum of a stored waveform whose points
// span durationMs. It is used when a result is rebuilt from the waveform
// endpoint, which carries no spectrum. Magnitudes are normalized to [0,1];
// at most bins points are returned.
func WaveformSpectrum(waveform []float64, durationMs int, bins int) domain.FFTData {
	n := len(waveform)
	if n < 2 || durationMs <= 0 || bins <= 0 {
		return domain.FFTData{}
	}

	win := window.Hann(n)
	windowed := make([]float64, n)
	for i, v := range waveform {
		windowed[i] = v * win[i]
	}
	spec := fft.FFTReal(windowed)

	half := n / 2
	rate := float64(n) / (float64(durationMs) / 1000)
	mags := make([]float64, half)
	peak := 0.0
	for i := range mags {
		mags[i] = cmplx.Abs(spec[i])
		peak = math.Max(peak, mags[i])
	}

	step := max(1, half/bins)
	out := domain.FFTData{}
	for i := 0; i < half; i += step {
		m := 0.0
		for j := i; j < min(i+step, half); j++ {
			m = math.Max(m, mags[j])
		}
		if peak > 0 {
			m /= peak
		}
		out.Frequencies = append(out.Frequencies, float64(i)*rate/float64(n))
		out.Magnitudes = append(out.Magnitudes, m)
	}
	return out
}
