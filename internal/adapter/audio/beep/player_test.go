package beep

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/logger"
)

// Helper to create a short WAV tone on disk
func writeTone(t *testing.T, rate beep.SampleRate, samples int) string {
	t.Helper()
	tone, err := generators.SineTone(rate, 440)
	require.NoError(t, err)

	p := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(p)
	require.NoError(t, err)
	defer f.Close()

	format := beep.Format{SampleRate: rate, NumChannels: 2, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Take(samples, tone), format))
	return p
}

type recordingTap struct {
	blocks int
	frames int
}

func (r *recordingTap) WriteSamples(samples [][2]float64) {
	r.blocks++
	r.frames += len(samples)
}

func TestPlayer_LoadDecodesWav(t *testing.T) {
	file := writeTone(t, 22050, 2205)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, file)
	}))
	defer srv.Close()

	p := NewPlayer(logger.NewTestLogger(), DefaultConfig(), srv.Client())

	require.NoError(t, p.Load(context.Background(), srv.URL+"/api/download/uap_signal_1.wav"))
	assert.Equal(t, domain.PlaybackStopped, p.Status())
	assert.Equal(t, 2205, p.buffer.Len())
	assert.Equal(t, beep.SampleRate(22050), p.buffer.Format().SampleRate)
}

func TestPlayer_LoadFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/garbage.wav" {
			_, _ = w.Write([]byte("definitely not RIFF"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p := NewPlayer(logger.NewTestLogger(), DefaultConfig(), srv.Client())

	assert.Error(t, p.Load(context.Background(), srv.URL+"/missing.wav"))
	assert.Error(t, p.Load(context.Background(), srv.URL+"/garbage.wav"))
	assert.ErrorIs(t, p.Play(), domain.ErrNoTrackLoaded)
}

func TestPlayer_AttachTapOnce(t *testing.T) {
	p := NewPlayer(logger.NewTestLogger(), DefaultConfig(), nil)

	require.NoError(t, p.AttachTap(&recordingTap{}))
	assert.ErrorIs(t, p.AttachTap(&recordingTap{}), domain.ErrTapAlreadyAttached)
	assert.Equal(t, 44100, p.SampleRate())
}

func TestTapStreamer_CopiesPassedBlocks(t *testing.T) {
	p := NewPlayer(logger.NewTestLogger(), DefaultConfig(), nil)
	tap := &recordingTap{}
	require.NoError(t, p.AttachTap(tap))

	ts := &tapStreamer{s: beep.Take(300, beep.Silence(-1)), player: p}
	buf := make([][2]float64, 128)

	var total int
	for {
		n, ok := ts.Stream(buf)
		total += n
		if !ok {
			break
		}
	}

	assert.Equal(t, 300, total)
	assert.Equal(t, 300, tap.frames)
	assert.Equal(t, 3, tap.blocks)
}

func TestDecode_PicksMp3ByExtension(t *testing.T) {
	_, err := decode([]byte("not an mp3"), "http://h/a.mp3?x=1", "")
	assert.Error(t, err)
}
