package render

import (
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/ports"
)

// memSurface records presented frames.
type memSurface struct {
	id     string
	w, h   int
	mu     sync.Mutex
	frames []*image.RGBA
}

func newMemSurface(id string, w, h int) *memSurface {
	return &memSurface{id: id, w: w, h: h}
}

func (s *memSurface) ID() string { return s.id }

func (s *memSurface) Size() (int, int) { return s.w, s.h }

func (s *memSurface) Present(i *image.RGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, i)
}

func (s *memSurface) last() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) == 0 {
		return nil
	}
	return s.frames[len(s.frames)-1]
}

func newTestSurfaces() map[domain.VisualizationTab]*memSurface {
	return map[domain.VisualizationTab]*memSurface{
		domain.TabWaveform:    newMemSurface("waveform", 160, 80),
		domain.TabSpectrum:    newMemSurface("spectrum", 160, 80),
		domain.TabSpectrogram: newMemSurface("spectrogram", 100, 64),
	}
}

func asPorts(m map[domain.VisualizationTab]*memSurface) map[domain.VisualizationTab]ports.RenderSurface {
	out := make(map[domain.VisualizationTab]ports.RenderSurface, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func TestSpectrogramBuffer_NeverExceedsCapacity(t *testing.T) {
	buf := NewSpectrogramBuffer(DefaultHistorySlices)

	for i := 0; i < 350; i++ {
		buf.Push([]byte{byte(i)})
		assert.LessOrEqual(t, buf.Len(), DefaultHistorySlices)
	}
	assert.Equal(t, DefaultHistorySlices, buf.Len())
}

func TestSpectrogramBuffer_EvictsExactlyOldest(t *testing.T) {
	buf := NewSpectrogramBuffer(100)

	for i := 0; i < 100; i++ {
		assert.False(t, buf.Push([]byte{byte(i)}))
	}
	require.Equal(t, 100, buf.Len())

	evicted := buf.Push([]byte{100})
	assert.True(t, evicted)
	assert.Equal(t, 100, buf.Len())
	assert.Equal(t, []byte{1}, buf.At(0), "slice 0 should have been evicted")
	assert.Equal(t, []byte{100}, buf.At(99))

	snap := buf.Snapshot()
	for i, s := range snap {
		assert.Equal(t, byte(i+1), s[0])
	}
}

func TestSpectrogramBuffer_PushCopies(t *testing.T) {
	buf := NewSpectrogramBuffer(2)
	src := []byte{7, 7}
	buf.Push(src)
	src[0] = 0

	assert.Equal(t, []byte{7, 7}, buf.At(0))
}

func TestSpectrogramBuffer_Clear(t *testing.T) {
	buf := NewSpectrogramBuffer(3)
	buf.Push([]byte{1})
	buf.Push([]byte{2})
	buf.Clear()

	assert.Equal(t, 0, buf.Len())
	assert.Nil(t, buf.At(0))
	buf.Push([]byte{3})
	assert.Equal(t, []byte{3}, buf.At(0))
}

func TestNewSpectrogramBuffer_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultHistorySlices, NewSpectrogramBuffer(0).Cap())
}

func TestIntensityColor_ContinuousAtMidpoint(t *testing.T) {
	assert.Equal(t, lowIntensity(0.5), highIntensity(0.5))
	assert.Equal(t, IntensityColor(0.5), lowIntensity(0.5))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, IntensityColor(0.5))
}

func TestIntensityColor_Endpoints(t *testing.T) {
	assert.Equal(t, color.RGBA{A: 255}, IntensityColor(0))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, IntensityColor(1))
	assert.Equal(t, color.RGBA{R: 255, G: 255, A: 255}, IntensityColor(0.75))
	assert.Equal(t, IntensityColor(1), IntensityColor(3), "out of range input is clamped")
	assert.Equal(t, IntensityColor(0), IntensityColor(-1))
}

func TestIntensityColor_NoJumpNearMidpoint(t *testing.T) {
	below := IntensityColor(0.4999)
	above := IntensityColor(0.5001)

	diff := func(a, b uint8) int {
		d := int(a) - int(b)
		if d < 0 {
			return -d
		}
		return d
	}
	assert.LessOrEqual(t, diff(below.R, above.R), 1)
	assert.LessOrEqual(t, diff(below.G, above.G), 1)
	assert.LessOrEqual(t, diff(below.B, above.B), 1)
}

func TestSpectrumColor_HueSweep(t *testing.T) {
	assert.Equal(t, color.RGBA{B: 255, A: 255}, SpectrumColor(0, 10), "lowest bin is blue")
	assert.Equal(t, color.RGBA{R: 255, A: 255}, SpectrumColor(9, 10), "highest bin is red")
	assert.Equal(t, color.RGBA{B: 255, A: 255}, SpectrumColor(0, 1))
}

func TestWaveform_DrawsGridThenTrace(t *testing.T) {
	var r Waveform
	img := r.Draw(80, 40, []float64{0, 0, 0, 0})

	assert.Equal(t, gridColor, img.RGBAAt(0, 10), "left grid edge")
	assert.Equal(t, gridColor, img.RGBAAt(5, 0), "top grid edge")
	assert.Equal(t, gridColor, img.RGBAAt(5, 39), "bottom grid edge clamped inside")
	assert.Equal(t, traceColor, img.RGBAAt(30, 20), "flat signal sits on the midline")
	assert.Equal(t, backgroundColor, img.RGBAAt(5, 5))
}

func TestWaveform_AmplitudeScaling(t *testing.T) {
	var r Waveform
	img := r.Draw(80, 40, []float64{1, 1, 1, 1})

	// midY - 1*midY*0.9 = 2
	assert.Equal(t, traceColor, img.RGBAAt(30, 2))
	assert.NotEqual(t, traceColor, img.RGBAAt(30, 20))
}

func TestWaveform_RenderLiveCentresAt128(t *testing.T) {
	surface := newMemSurface("waveform", 80, 40)
	r := NewWaveform(surface)

	r.RenderLive(domain.AnalysisFrame{TimeDomain: []byte{128, 128, 128, 128}})

	img := surface.last()
	require.NotNil(t, img)
	assert.Equal(t, traceColor, img.RGBAAt(30, 20))
}

func TestWaveform_EmptyAndNil(t *testing.T) {
	surface := newMemSurface("waveform", 10, 10)
	r := NewWaveform(surface)

	r.RenderResult(nil)
	assert.Nil(t, surface.last())

	r.RenderResult(&domain.GenerationResult{})
	assert.NotNil(t, surface.last())
}

func TestFormatFrequency(t *testing.T) {
	assert.Equal(t, "100", FormatFrequency(100))
	assert.Equal(t, "500", FormatFrequency(500))
	assert.Equal(t, "1k", FormatFrequency(1000))
	assert.Equal(t, "15k", FormatFrequency(15000))
	assert.Equal(t, "2.5k", FormatFrequency(2500))
}

func TestLiveLabels_BinFromFrequency(t *testing.T) {
	// 44.1kHz with 1024 bins: ~21.5 Hz per bin
	binHz := 44100.0 / 2 / 1024
	labels := LiveLabels(binHz, 1024)

	require.Len(t, labels, len(ReferenceFrequencies))
	assert.Equal(t, 5, labels[0].Bin)
	assert.Equal(t, "100", labels[0].Text)
	assert.Equal(t, 929, labels[len(labels)-1].Bin)
	assert.Equal(t, "20k", labels[len(labels)-1].Text)
}

func TestLiveLabels_SkipsOutOfRange(t *testing.T) {
	// 16kHz sample rate tops out at 8kHz
	labels := LiveLabels(16000.0/2/512, 512)
	for _, l := range labels {
		assert.Less(t, l.Bin, 512)
	}
	assert.Len(t, labels, 5)
}

func TestResultLabels_NearestBin(t *testing.T) {
	freqs := []float64{0, 90, 480, 1010, 2000, 4900, 10100, 14000, 16000, 22050}
	labels := ResultLabels(freqs, len(freqs))

	bins := make(map[string]int)
	for _, l := range labels {
		bins[l.Text] = l.Bin
	}
	assert.Equal(t, 1, bins["100"])
	assert.Equal(t, 2, bins["500"])
	assert.Equal(t, 3, bins["1k"])
	assert.Equal(t, 4, bins["2k"])
	assert.Equal(t, 5, bins["5k"])
	assert.Equal(t, 6, bins["10k"])
	assert.Equal(t, 7, bins["15k"], "tie breaks towards the lower bin")
	assert.Equal(t, 9, bins["20k"])
}

func TestSpectrum_DrawBars(t *testing.T) {
	var r Spectrum
	img := r.Draw(100, 50, []float64{1, 0, 0.5, 1}, nil, false)

	assert.Equal(t, SpectrumColor(0, 4), img.RGBAAt(10, 0), "full bar reaches the top")
	assert.Equal(t, backgroundColor, img.RGBAAt(30, 49), "zero bar is empty")
	assert.Equal(t, SpectrumColor(2, 4), img.RGBAAt(60, 30))
	assert.Equal(t, backgroundColor, img.RGBAAt(60, 20))
	assert.Equal(t, SpectrumColor(3, 4), img.RGBAAt(90, 0))
}

func TestSpectrum_StaggeredLabels(t *testing.T) {
	var r Spectrum
	labels := []FrequencyLabel{{Bin: 0, Text: "1"}, {Bin: 10, Text: "2"}, {Bin: 20, Text: "3"}}
	plain := r.Draw(300, 60, make([]float64, 30), labels, false)
	staggered := r.Draw(300, 60, make([]float64, 30), labels, true)

	assert.NotEqual(t, plain.Pix, staggered.Pix)
}

func TestOneShotGrid_MeanAbsoluteAmplitude(t *testing.T) {
	waveform := make([]float64, 100*64)
	for i := range waveform {
		if i%2 == 0 {
			waveform[i] = 0.5
		} else {
			waveform[i] = -0.5
		}
	}

	grid := OneShotGrid(waveform, OneShotSlices, OneShotBins)

	require.Len(t, grid, OneShotSlices)
	for _, slice := range grid {
		require.Len(t, slice, OneShotBins)
		for _, v := range slice {
			assert.InDelta(t, 0.5, v, 1e-9)
		}
	}
}

func TestOneShotGrid_ShortWaveform(t *testing.T) {
	grid := OneShotGrid([]float64{1, -2}, OneShotSlices, OneShotBins)

	require.Len(t, grid, OneShotSlices)
	var nonZero int
	for _, slice := range grid {
		for _, v := range slice {
			assert.LessOrEqual(t, v, 1.0)
			if v > 0 {
				nonZero++
			}
		}
	}
	assert.Equal(t, 2, nonZero)
}

func TestSpectrogram_RenderLiveAccumulates(t *testing.T) {
	history := NewSpectrogramBuffer(100)
	surface := newMemSurface("spectrogram", 50, 20)
	r := NewSpectrogram(surface, history)

	for i := 0; i < 120; i++ {
		r.RenderLive(domain.AnalysisFrame{FreqDomain: []byte{255, 0}})
	}

	assert.Equal(t, 100, history.Len())
	img := surface.last()
	require.NotNil(t, img)
	assert.Equal(t, IntensityColor(1), img.RGBAAt(0, 19), "low bin at the bottom")
	assert.Equal(t, IntensityColor(0), img.RGBAAt(0, 0), "high bin at the top")
}

func TestSet_RenderResultDrawsAllSurfaces(t *testing.T) {
	surfaces := newTestSurfaces()
	set, err := NewSet(asPorts(surfaces), NewSpectrogramBuffer(100))
	require.NoError(t, err)

	set.RenderResult(&domain.GenerationResult{
		Filename: "UAP_Signal_custom.mp3",
		Waveform: []float64{0, 0.5, -0.5, 0},
		FFT: domain.FFTData{
			Frequencies: []float64{0, 100, 1000},
			Magnitudes:  []float64{0.1, 0.9, 0.3},
		},
	})

	for tab, s := range surfaces {
		assert.NotNil(t, s.last(), "surface %s not drawn", tab)
	}
	assert.Len(t, set.Live(), 3)
}

func TestNewSet_MissingSurface(t *testing.T) {
	surfaces := asPorts(newTestSurfaces())
	delete(surfaces, domain.TabSpectrum)

	_, err := NewSet(surfaces, NewSpectrogramBuffer(1))
	assert.Error(t, err)
}
