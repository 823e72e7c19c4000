// Package domain contains the core business entities for signalscope.
// These types are independent of any infrastructure (HTTP, WebSocket, audio, UI).
package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DefaultPresetName is sent when the user has not picked a preset.
const DefaultPresetName = "custom"

// DefaultDurationMs is the signal length requested when none is given.
const DefaultDurationMs = 10000

// SignalConfig holds the tunable parameters of a generated signal.
// Field names match the backend wire format.
type SignalConfig struct {
	BaseToneFreq       float64 `json:"base_tone_freq" mapstructure:"base_tone_freq"`
	SchumannFreq       float64 `json:"schumann_freq" mapstructure:"schumann_freq"`
	DNARepairFreq      float64 `json:"dna_repair_freq" mapstructure:"dna_repair_freq"`
	AmbientFreq        float64 `json:"ambient_freq" mapstructure:"ambient_freq"`
	ChirpFreq          float64 `json:"chirp_freq" mapstructure:"chirp_freq"`
	UltrasonicFreq     float64 `json:"ultrasonic_freq" mapstructure:"ultrasonic_freq"`
	UseMusicModulation bool    `json:"use_music_modulation" mapstructure:"use_music_modulation"`
	UseTremolo         bool    `json:"use_tremolo" mapstructure:"use_tremolo"`
	TremoloDepth       float64 `json:"tremolo_depth" mapstructure:"tremolo_depth"` // fraction 0..1
}

// DefaultSignalConfig returns the parameters used when nothing else is chosen.
func DefaultSignalConfig() SignalConfig {
	return SignalConfig{
		BaseToneFreq:       100,
		SchumannFreq:       7.83,
		DNARepairFreq:      528,
		AmbientFreq:        432,
		ChirpFreq:          2500,
		UltrasonicFreq:     17000,
		UseMusicModulation: true,
		UseTremolo:         true,
		TremoloDepth:       0.5,
	}
}

// Validate checks that every numeric field is a finite number.
// Ranges are the backend's concern.
func (c SignalConfig) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"base_tone_freq", c.BaseToneFreq},
		{"schumann_freq", c.SchumannFreq},
		{"dna_repair_freq", c.DNARepairFreq},
		{"ambient_freq", c.AmbientFreq},
		{"chirp_freq", c.ChirpFreq},
		{"ultrasonic_freq", c.UltrasonicFreq},
		{"tremolo_depth", c.TremoloDepth},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return NewValidationError("config."+f.name, f.v, "must be a finite number")
		}
	}
	return nil
}

// GenerationRequest is a single job submitted to the backend.
// It is treated as immutable once submitted.
type GenerationRequest struct {
	Config     SignalConfig `json:"config"`
	UseMusic   bool         `json:"use_music"`
	MusicFile  *string      `json:"music_file"`
	PresetName string       `json:"preset_name"`
	DurationMs int          `json:"duration"`
}

// NewGenerationRequest builds a request with the default preset name and duration.
func NewGenerationRequest(config SignalConfig) GenerationRequest {
	return GenerationRequest{
		Config:     config,
		PresetName: DefaultPresetName,
		DurationMs: DefaultDurationMs,
	}
}

// WithMusic returns a copy of the request that modulates the given uploaded file.
func (r GenerationRequest) WithMusic(filename string) GenerationRequest {
	r.UseMusic = true
	r.MusicFile = &filename
	return r
}

// Validate checks the request shape before it leaves the process.
func (r GenerationRequest) Validate() error {
	if err := r.Config.Validate(); err != nil {
		return err
	}
	if r.DurationMs <= 0 {
		return NewValidationError("duration", r.DurationMs, "must be positive")
	}
	if strings.TrimSpace(r.PresetName) == "" {
		return NewValidationError("preset_name", r.PresetName, "must not be empty")
	}
	if r.UseMusic && (r.MusicFile == nil || *r.MusicFile == "") {
		return NewValidationError("music_file", nil, "required when use_music is set")
	}
	return nil
}

// FFTData is the precomputed spectrum of a generated signal.
type FFTData struct {
	Frequencies []float64 `json:"frequencies"`
	Magnitudes  []float64 `json:"magnitudes"` // normalized to [0,1]
}

// SignalLayers lists the component tones of each layer of a generated signal.
type SignalLayers struct {
	Foundation       []string `json:"foundation"`
	HumanEnhancement []string `json:"human_enhancement"`
	Attention        []string `json:"attention"`
	LifeIndicator    []string `json:"life_indicator"`
}

// Modulation describes which modulation stages the backend applied.
type Modulation struct {
	MusicModulation   bool    `json:"music_modulation"`
	MusicAsFoundation bool    `json:"music_as_foundation"`
	Tremolo           bool    `json:"tremolo"`
	TremoloRate       float64 `json:"tremolo_rate"`
}

// Metadata is the descriptive part of a generation result.
type Metadata struct {
	Layers     SignalLayers `json:"layers"`
	Modulation Modulation   `json:"modulation"`
}

// GenerationResult is the terminal payload of a completed task.
// It is produced once per task and never mutated.
type GenerationResult struct {
	Filename   string    `json:"filename"`
	DurationMs int       `json:"duration_ms"`
	Waveform   []float64 `json:"waveform"`
	FFT        FFTData   `json:"fft"`
	Metadata   Metadata  `json:"metadata"`
}

// Duration returns the signal length as a time.Duration.
func (r GenerationResult) Duration() time.Duration {
	return time.Duration(r.DurationMs) * time.Millisecond
}

// Summary renders the human-readable description shown after generation.
func (r GenerationResult) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Duration: %.2f seconds\n", float64(r.DurationMs)/1000)
	b.WriteString("Layers:\n")
	fmt.Fprintf(&b, "  Foundation: %s\n", strings.Join(r.Metadata.Layers.Foundation, ", "))
	fmt.Fprintf(&b, "  Human Enhancement: %s\n", strings.Join(r.Metadata.Layers.HumanEnhancement, ", "))
	fmt.Fprintf(&b, "  Attention: %s\n", strings.Join(r.Metadata.Layers.Attention, ", "))
	fmt.Fprintf(&b, "  Life Indicator: %s\n", strings.Join(r.Metadata.Layers.LifeIndicator, ", "))
	b.WriteString("Modulation:\n")
	fmt.Fprintf(&b, "  Music Modulation: %s\n", enabled(r.Metadata.Modulation.MusicModulation))
	if r.Metadata.Modulation.Tremolo {
		fmt.Fprintf(&b, "  Tremolo: Enabled (%g Hz)\n", r.Metadata.Modulation.TremoloRate)
	} else {
		b.WriteString("  Tremolo: Disabled\n")
	}
	return b.String()
}

func enabled(v bool) string {
	if v {
		return "Enabled"
	}
	return "Disabled"
}

// TaskStatus is the lifecycle status of a GenerationTask.
type TaskStatus int

const (
	TaskPending TaskStatus = iota
	TaskStreaming
	TaskCompleted
	TaskFailed
)

// String returns a string representation of the task status.
func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskStreaming:
		return "streaming"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further updates can change the task.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// FailureKind classifies why a task failed.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureValidation
	FailureTransport
	FailureProtocol
	FailureBackend
)

// String returns a string representation of the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureValidation:
		return "validation"
	case FailureTransport:
		return "transport"
	case FailureProtocol:
		return "protocol"
	case FailureBackend:
		return "backend"
	default:
		return "unknown"
	}
}

// GenerationTask is the client-side view of a backend job.
type GenerationTask struct {
	ID              string
	Status          TaskStatus
	ProgressPercent float64 // 0-100, never decreases
	Message         string
	Result          *GenerationResult
	Error           string
	Failure         FailureKind
	Superseded      bool
	SubmittedAt     time.Time
}

// OrchestratorState is the state of the generation state machine.
type OrchestratorState int

const (
	StateIdle OrchestratorState = iota
	StateSubmitting
	StateStreaming
	StateCompleted
	StateFailed
)

// String returns a string representation of the orchestrator state.
func (s OrchestratorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StreamStatus is the status field of a progress stream message.
type StreamStatus string

const (
	StreamProgress  StreamStatus = "progress"
	StreamCompleted StreamStatus = "completed"
	StreamError     StreamStatus = "error"
)

// IsTerminal reports whether the stream closes after this status.
func (s StreamStatus) IsTerminal() bool {
	return s == StreamCompleted || s == StreamError
}

// ProgressMessage is one parsed record from the progress stream.
type ProgressMessage struct {
	Status   StreamStatus
	Progress float64
	Message  string
	Result   *GenerationResult
	Error    string
}

// VisualizationTab identifies one of the three visualization surfaces.
type VisualizationTab int32

const (
	TabWaveform VisualizationTab = iota
	TabSpectrum
	TabSpectrogram
)

// AllTabs lists the tabs in display order.
var AllTabs = []VisualizationTab{TabWaveform, TabSpectrum, TabSpectrogram}

// String returns the stable surface identifier of the tab.
func (t VisualizationTab) String() string {
	switch t {
	case TabWaveform:
		return "waveform"
	case TabSpectrum:
		return "spectrum"
	case TabSpectrogram:
		return "spectrogram"
	default:
		return "unknown"
	}
}

// Title returns the label shown on the tab.
func (t VisualizationTab) Title() string {
	switch t {
	case TabWaveform:
		return "Waveform"
	case TabSpectrum:
		return "Spectrum"
	case TabSpectrogram:
		return "Spectrogram"
	default:
		return "Unknown"
	}
}

// ParseVisualizationTab maps a surface identifier back to its tab.
func ParseVisualizationTab(s string) (VisualizationTab, error) {
	for _, t := range AllTabs {
		if t.String() == strings.ToLower(s) {
			return t, nil
		}
	}
	return TabWaveform, NewValidationError("tab", s, "unknown visualization")
}

// AnalysisFrame is a live snapshot taken from the capture graph.
// TimeDomain bytes are centred on 128; FreqDomain bytes are relative magnitudes.
type AnalysisFrame struct {
	TimeDomain []byte
	FreqDomain []byte
	SampleRate int
}

// BinHz returns the width of one frequency bin in Hz.
func (f AnalysisFrame) BinHz() float64 {
	if len(f.FreqDomain) == 0 || f.SampleRate <= 0 {
		return 0
	}
	return float64(f.SampleRate) / 2 / float64(len(f.FreqDomain))
}

// CatalogEntry is an uploaded music file known to the backend.
type CatalogEntry struct {
	Filename        string  `json:"filename"`
	DurationMs      int     `json:"duration_ms,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// UploadResult is the backend reply to an upload or ingestion.
type UploadResult struct {
	Status          string  `json:"status"`
	Filename        string  `json:"filename"`
	DurationSeconds float64 `json:"duration_seconds"`
	Title           string  `json:"title,omitempty"`
	Cached          bool    `json:"cached,omitempty"`
}

// Preset is a named signal configuration offered by the backend.
type Preset struct {
	Key         string       `json:"-"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Config      SignalConfig `json:"config"`
}

// PlaybackStatus represents the current playback state.
type PlaybackStatus int

const (
	PlaybackStopped PlaybackStatus = iota
	PlaybackPlaying
	PlaybackPaused
)

// String returns a string representation of the playback status.
func (s PlaybackStatus) String() string {
	switch s {
	case PlaybackStopped:
		return "stopped"
	case PlaybackPlaying:
		return "playing"
	case PlaybackPaused:
		return "paused"
	default:
		return "unknown"
	}
}
