package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uapsignal/signalscope/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	s, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", s.Backend.URL)
	assert.Equal(t, 30*time.Second, s.Backend.Timeout)
	assert.Equal(t, 2048, s.Analysis.FFTSize)
	assert.Equal(t, domain.DefaultDurationMs, s.Generation.DurationMs)
	assert.Equal(t, domain.DefaultPresetName, s.Generation.Preset)
	assert.Equal(t, time.Second/60, s.RedrawInterval())
	assert.Empty(t, s.Metrics.Listen)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "signalscope.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
backend:
  url: https://signals.example
  cache_ttl: 1m
analysis:
  fft_size: 4096
render:
  fps: 30
`), 0o600))
	t.Setenv("SIGNALSCOPE_METRICS_LISTEN", "127.0.0.1:9100")
	t.Setenv("SIGNALSCOPE_LOG_FORMAT", "json")

	s, err := Load(New(), file)
	require.NoError(t, err)

	assert.Equal(t, "https://signals.example", s.Backend.URL)
	assert.Equal(t, time.Minute, s.Backend.CacheTTL)
	assert.Equal(t, 4096, s.Analysis.FFTSize)
	assert.Equal(t, time.Second/30, s.RedrawInterval())
	assert.Equal(t, "127.0.0.1:9100", s.Metrics.Listen)
	assert.Equal(t, "json", s.Log.Format)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	base, err := Load(New(), "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(s *Settings)
		field  string
	}{
		{"bad url", func(s *Settings) { s.Backend.URL = "localhost:5000" }, "backend.url"},
		{"fft not power of two", func(s *Settings) { s.Analysis.FFTSize = 1000 }, "analysis.fft_size"},
		{"inverted db range", func(s *Settings) { s.Analysis.MinDecibels = -10 }, "analysis.min_db"},
		{"zero size", func(s *Settings) { s.Render.Width = 0 }, "render"},
		{"bad format", func(s *Settings) { s.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := *base
			tt.mutate(&s)

			err := Validate(&s)

			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
