// Package config loads signalscope settings from defaults, an optional YAML
// file and SIGNALSCOPE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/uapsignal/signalscope/internal/domain"
)

// EnvPrefix is prepended to every environment override, e.g. SIGNALSCOPE_BACKEND_URL.
const EnvPrefix = "SIGNALSCOPE"

// Settings is the full client configuration.
type Settings struct {
	Backend    BackendSettings    `mapstructure:"backend"`
	Log        LogSettings        `mapstructure:"log"`
	Audio      AudioSettings      `mapstructure:"audio"`
	Analysis   AnalysisSettings   `mapstructure:"analysis"`
	Render     RenderSettings     `mapstructure:"render"`
	Generation GenerationSettings `mapstructure:"generation"`
	Metrics    MetricsSettings    `mapstructure:"metrics"`
}

// BackendSettings addresses the generation backend.
type BackendSettings struct {
	URL      string        `mapstructure:"url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// LogSettings controls the slog handler.
type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// AudioSettings controls the speaker.
type AudioSettings struct {
	SampleRate int           `mapstructure:"sample_rate"`
	Buffer     time.Duration `mapstructure:"buffer"`
}

// AnalysisSettings controls the live analyser.
type AnalysisSettings struct {
	FFTSize     int     `mapstructure:"fft_size"`
	Smoothing   float64 `mapstructure:"smoothing"`
	MinDecibels float64 `mapstructure:"min_db"`
	MaxDecibels float64 `mapstructure:"max_db"`
}

// RenderSettings controls surfaces and the redraw rate.
type RenderSettings struct {
	Width     int    `mapstructure:"width"`
	Height    int    `mapstructure:"height"`
	FPS       int    `mapstructure:"fps"`
	OutputDir string `mapstructure:"output_dir"`
}

// GenerationSettings holds request defaults for the CLI.
type GenerationSettings struct {
	DurationMs int    `mapstructure:"duration_ms"`
	Preset     string `mapstructure:"preset"`
}

// MetricsSettings enables the Prometheus endpoint when Listen is set.
type MetricsSettings struct {
	Listen string `mapstructure:"listen"`
}

// RedrawInterval returns the tick period for the configured FPS.
func (s Settings) RedrawInterval() time.Duration {
	if s.Render.FPS <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(s.Render.FPS)
}

// New returns a viper instance with defaults and environment overrides set.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.url", "http://localhost:5000")
	v.SetDefault("backend.timeout", 30*time.Second)
	v.SetDefault("backend.cache_ttl", 5*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("audio.sample_rate", 44100)
	v.SetDefault("audio.buffer", 100*time.Millisecond)

	v.SetDefault("analysis.fft_size", 2048)
	v.SetDefault("analysis.smoothing", 0.8)
	v.SetDefault("analysis.min_db", -100.0)
	v.SetDefault("analysis.max_db", -30.0)

	v.SetDefault("render.width", 800)
	v.SetDefault("render.height", 300)
	v.SetDefault("render.fps", 60)
	v.SetDefault("render.output_dir", ".")

	v.SetDefault("generation.duration_ms", domain.DefaultDurationMs)
	v.SetDefault("generation.preset", domain.DefaultPresetName)

	v.SetDefault("metrics.listen", "")
}

// DefaultConfigPaths returns the directories searched for signalscope.yaml.
func DefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "signalscope"))
	}
	return paths
}

// Load reads settings into v. An explicit file must exist; otherwise a missing
// signalscope.yaml in the default paths is not an error.
func Load(v *viper.Viper, file string) (*Settings, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("signalscope")
		v.SetConfigType("yaml")
		for _, p := range DefaultConfigPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	if err := Validate(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate checks settings that would otherwise fail later at startup.
func Validate(s *Settings) error {
	if !strings.HasPrefix(s.Backend.URL, "http://") && !strings.HasPrefix(s.Backend.URL, "https://") {
		return domain.NewValidationError("backend.url", s.Backend.URL, "must start with http:// or https://")
	}
	if s.Audio.SampleRate <= 0 {
		return domain.NewValidationError("audio.sample_rate", s.Audio.SampleRate, "must be positive")
	}
	if n := s.Analysis.FFTSize; n < 32 || n > 32768 || n&(n-1) != 0 {
		return domain.NewValidationError("analysis.fft_size", n, domain.ErrInvalidFFTSize.Error())
	}
	if s.Analysis.MinDecibels >= s.Analysis.MaxDecibels {
		return domain.NewValidationError("analysis.min_db", s.Analysis.MinDecibels, "must be below analysis.max_db")
	}
	if s.Render.Width <= 0 || s.Render.Height <= 0 {
		return domain.NewValidationError("render", fmt.Sprintf("%dx%d", s.Render.Width, s.Render.Height), "size must be positive")
	}
	if s.Generation.DurationMs <= 0 {
		return domain.NewValidationError("generation.duration_ms", s.Generation.DurationMs, "must be positive")
	}
	switch s.Log.Format {
	case "text", "json":
	default:
		return domain.NewValidationError("log.format", s.Log.Format, "must be text or json")
	}
	return nil
}
