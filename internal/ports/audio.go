// Package ports define interfaces for dependency inversion.
// These interfaces allow the core business logic to remain independent of external frameworks.
package ports

import (
	"context"

	"github.com/uapsignal/signalscope/internal/domain"
)

// SampleTap receives a copy of every stereo block the playback source emits.
// WriteSamples is called on the audio thread and must not block.
type SampleTap interface {
	WriteSamples(samples [][2]float64)
}

// PlaybackSource is the part of a player the capture graph attaches to.
type PlaybackSource interface {
	// SampleRate returns the output rate in Hz.
	SampleRate() int

	// Resume wakes the output context. It is a no-op when already running.
	Resume() error

	// AttachTap installs the capture tap. A source accepts exactly one tap;
	// a second call returns domain.ErrTapAlreadyAttached.
	AttachTap(tap SampleTap) error
}

// Player plays the generated artifact.
// Implementations must be thread-safe.
type Player interface {
	PlaybackSource

	// Load fetches and decodes the audio at url, replacing any loaded audio.
	Load(ctx context.Context, url string) error

	// Play starts or resumes playback.
	Play() error

	// Pause pauses playback, keeping the position.
	Pause() error

	// Stop halts playback and rewinds to the start.
	Stop() error

	// Status returns the current playback status.
	Status() domain.PlaybackStatus

	// SetOnFinished registers a function called when the audio reaches its end.
	// It is never called on the audio thread.
	SetOnFinished(fn func())

	// Close releases the player.
	Close() error
}

// AnalysisSource yields live analysis snapshots.
type AnalysisSource interface {
	Frame() domain.AnalysisFrame
}

// CaptureStarter builds the capture graph on first playback.
type CaptureStarter interface {
	EnsureStarted(source PlaybackSource) error
}
