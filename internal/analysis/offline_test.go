package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaveformSpectrum_PeakAtToneFrequency(t *testing.T) {
	// 1000 points over one second: 1000 Hz effective rate, tone at 50 Hz.
	wave := make([]float64, 1000)
	for i := range wave {
		wave[i] = math.Sin(2 * math.Pi * 50 * float64(i) / 1000)
	}

	spec := WaveformSpectrum(wave, 1000, 500)

	require.Len(t, spec.Frequencies, 500)
	require.Len(t, spec.Magnitudes, 500)

	peak := 0
	for i, m := range spec.Magnitudes {
		assert.True(t, m >= 0 && m <= 1)
		if m > spec.Magnitudes[peak] {
			peak = i
		}
	}
	assert.InDelta(t, 50, spec.Frequencies[peak], 1)
	assert.InDelta(t, 1.0, spec.Magnitudes[peak], 1e-9)
}

func TestWaveformSpectrum_Downsamples(t *testing.T) {
	wave := make([]float64, 4096)
	wave[10] = 1

	spec := WaveformSpectrum(wave, 2000, 256)

	assert.Len(t, spec.Magnitudes, 256)
	assert.Equal(t, 0.0, spec.Frequencies[0])
}

func TestWaveformSpectrum_Degenerate(t *testing.T) {
	assert.Empty(t, WaveformSpectrum(nil, 1000, 10).Magnitudes)
	assert.Empty(t, WaveformSpectrum([]float64{1, 2}, 0, 10).Magnitudes)
	assert.Empty(t, WaveformSpectrum(make([]float64, 8), 1000, 0).Magnitudes)
}
