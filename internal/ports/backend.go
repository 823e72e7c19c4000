package ports

import (
	"context"

	"github.com/uapsignal/signalscope/internal/domain"
)

// GenerationBackend accepts generation requests.
type GenerationBackend interface {
	// Submit posts the request and returns the backend task id.
	// A backend rejection is a *domain.ValidationError; network and decoding
	// failures are a *domain.TransportError.
	Submit(ctx context.Context, req domain.GenerationRequest) (string, error)
}

// MessageStream is an open push channel for one task.
type MessageStream interface {
	// ReadMessage blocks until the next message arrives or the stream fails.
	ReadMessage() ([]byte, error)

	// Close closes the stream and unblocks a pending ReadMessage. Safe to call twice.
	Close() error
}

// StreamDialer opens progress streams.
type StreamDialer interface {
	Dial(ctx context.Context, taskID string) (MessageStream, error)
}

// MusicCatalog lists and accepts music files used for modulation.
type MusicCatalog interface {
	ListMusic(ctx context.Context) ([]domain.CatalogEntry, error)
	UploadMusic(ctx context.Context, path string) (domain.UploadResult, error)
	IngestMusic(ctx context.Context, sourceURL string) (domain.UploadResult, error)
}

// PresetCatalog serves named configurations.
type PresetCatalog interface {
	ListPresets(ctx context.Context) ([]domain.Preset, error)
	GetPreset(ctx context.Context, name string) (domain.Preset, error)
}

// ResultStore addresses generated artifacts.
type ResultStore interface {
	// DownloadURL returns the stable URL of a generated file.
	DownloadURL(filename string) string

	// FetchWaveform returns the downsampled waveform of a generated file.
	FetchWaveform(ctx context.Context, filename string) ([]float64, int, error)
}
