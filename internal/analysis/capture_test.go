package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uapsignal/signalscope/internal/adapter/audio/mock"
	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/logger"
)

func newTestGraph(t *testing.T, cfg Config) *CaptureGraph {
	t.Helper()
	g, err := NewCaptureGraph(logger.NewTestLogger(), cfg)
	require.NoError(t, err)
	return g
}

func constant(n int, v float64) [][2]float64 {
	out := make([][2]float64, n)
	for i := range out {
		out[i] = [2]float64{v, v}
	}
	return out
}

func sine(n int, freq, rate, amp float64) [][2]float64 {
	out := make([][2]float64, n)
	for i := range out {
		v := amp * math.Sin(2*math.Pi*freq*float64(i)/rate)
		out[i] = [2]float64{v, v}
	}
	return out
}

func TestCaptureGraph_EnsureStartedIsIdempotent(t *testing.T) {
	player := mock.NewPlayer(44100)
	g := newTestGraph(t, DefaultConfig())

	assert.False(t, g.Initialized())
	require.NoError(t, g.EnsureStarted(player))
	require.NoError(t, g.EnsureStarted(player))

	assert.True(t, g.Initialized())
	assert.Equal(t, 1, player.ResumeCalls())
	assert.Equal(t, 1, player.AttachCalls())
}

func TestCaptureGraph_ResumeFailureIsSticky(t *testing.T) {
	player := mock.NewPlayer(44100)
	boom := errors.New("output device busy")
	player.SetFailResume(boom)
	g := newTestGraph(t, DefaultConfig())

	err := g.EnsureStarted(player)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCaptureUnavailable)
	assert.ErrorIs(t, err, boom)

	player.SetFailResume(nil)
	assert.Equal(t, err, g.EnsureStarted(player))
	assert.Equal(t, 1, player.ResumeCalls())
	assert.False(t, g.Initialized())
}

func TestCaptureGraph_AttachFailure(t *testing.T) {
	player := mock.NewPlayer(44100)
	player.SetFailAttach(domain.ErrTapAlreadyAttached)
	g := newTestGraph(t, DefaultConfig())

	err := g.EnsureStarted(player)
	assert.ErrorIs(t, err, domain.ErrCaptureUnavailable)
	assert.ErrorIs(t, err, domain.ErrTapAlreadyAttached)
	assert.False(t, g.Initialized())
}

func TestCaptureGraph_SilenceFrame(t *testing.T) {
	player := mock.NewPlayer(44100)
	g := newTestGraph(t, DefaultConfig())
	require.NoError(t, g.EnsureStarted(player))

	player.Feed(constant(2048, 0))
	frame := g.Frame()

	require.Len(t, frame.TimeDomain, 2048)
	require.Len(t, frame.FreqDomain, 1024)
	assert.Equal(t, 44100, frame.SampleRate)
	for i, b := range frame.TimeDomain {
		if b != 128 {
			t.Fatalf("time-domain byte %d = %d, want 128", i, b)
		}
	}
	for i, b := range frame.FreqDomain {
		if b != 0 {
			t.Fatalf("frequency byte %d = %d, want 0", i, b)
		}
	}
}

func TestCaptureGraph_SinePeak(t *testing.T) {
	player := mock.NewPlayer(44100)
	g := newTestGraph(t, DefaultConfig())
	require.NoError(t, g.EnsureStarted(player))

	player.Feed(sine(2048, 1000, 44100, 0.5))
	frame := g.Frame()

	peak := 0
	for i, b := range frame.FreqDomain {
		if b > frame.FreqDomain[peak] {
			peak = i
		}
	}
	// 1000 Hz / (44100/2048) Hz per bin is about 46.4
	assert.InDelta(t, 46, peak, 1)
	assert.Greater(t, frame.FreqDomain[peak], byte(128))
	assert.InDelta(t, 1000, float64(peak)*frame.BinHz(), 30)
}

func TestCaptureGraph_OverflowDropsOldest(t *testing.T) {
	player := mock.NewPlayer(8000)
	cfg := DefaultConfig()
	cfg.FFTSize = 32
	cfg.BufferWindows = 1
	g := newTestGraph(t, cfg)
	require.NoError(t, g.EnsureStarted(player))

	player.Feed(constant(24, -1))
	player.Feed(constant(24, 1))

	td := g.SampleTimeDomain()
	require.Len(t, td, 32)
	for i := 0; i < 8; i++ {
		assert.Equal(t, byte(0), td[i], "index %d", i)
	}
	for i := 8; i < 32; i++ {
		assert.Equal(t, byte(255), td[i], "index %d", i)
	}
}

func TestCaptureGraph_OversizedBlockKeepsTail(t *testing.T) {
	player := mock.NewPlayer(8000)
	cfg := DefaultConfig()
	cfg.FFTSize = 32
	cfg.BufferWindows = 1
	g := newTestGraph(t, cfg)
	require.NoError(t, g.EnsureStarted(player))

	block := append(constant(16, -1), constant(32, 1)...)
	player.Feed(block)

	for i, b := range g.SampleTimeDomain() {
		assert.Equal(t, byte(255), b, "index %d", i)
	}
}

func TestCaptureGraph_SamplingWithoutNewAudioKeepsWindow(t *testing.T) {
	player := mock.NewPlayer(8000)
	cfg := DefaultConfig()
	cfg.FFTSize = 32
	g := newTestGraph(t, cfg)
	require.NoError(t, g.EnsureStarted(player))

	player.Feed(constant(32, 1))
	first := g.SampleTimeDomain()
	second := g.SampleTimeDomain()

	assert.Equal(t, first, second)
}

func TestNewCaptureGraph_InvalidFFTSize(t *testing.T) {
	for _, size := range []int{0, 16, 1000, 65536} {
		cfg := DefaultConfig()
		cfg.FFTSize = size
		_, err := NewCaptureGraph(logger.NewTestLogger(), cfg)
		assert.ErrorIs(t, err, domain.ErrInvalidFFTSize, "size %d", size)
	}
}

func TestNewAnalyser_InvalidRanges(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinDecibels, cfg.MaxDecibels = -30, -100
	_, err := NewAnalyser(cfg)
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)

	cfg = DefaultConfig()
	cfg.Smoothing = 1
	_, err = NewAnalyser(cfg)
	assert.ErrorAs(t, err, &verr)
}

func TestAnalyser_SmoothingAccumulates(t *testing.T) {
	a, err := NewAnalyser(DefaultConfig())
	require.NoError(t, err)

	samples := make([]float64, a.FFTSize())
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*1000*float64(i)/44100)
	}
	a.Push(samples)

	first := a.FrequencyDomain()
	second := a.FrequencyDomain()
	assert.Greater(t, second[46], first[46])

	a.Reset()
	for _, b := range a.TimeDomain() {
		require.Equal(t, byte(128), b)
	}
}
