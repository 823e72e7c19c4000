// Package mock provides a mock implementation of the Player interface.
// It is used for testing services and the capture graph without an audio device.
package mock

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/ports"
)

// Player is a mock implementation of ports.Player.
// It produces no sound; tests push samples through the attached tap with Feed.
//
// Thread-safety: This implementation is thread-safe.
type Player struct {
	// Dependencies
	logger *slog.Logger

	sampleRate int
	url        string
	status     domain.PlaybackStatus
	tap        ports.SampleTap
	onFinished func()
	closed     bool

	// Call tracking
	resumeCalls int
	attachCalls int
	playCalls   int

	// Behavior configuration (for testing error scenarios)
	failResume error
	failAttach error
	failLoad   error
	failPlay   error

	mu sync.Mutex
}

// NewPlayer creates a new mock player running at sampleRate.
func NewPlayer(sampleRate int) *Player {
	return &Player{sampleRate: sampleRate}
}

// SetLogger sets the logger for this player.
func (m *Player) SetLogger(logger *slog.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger
}

// SetFailResume makes Resume return err (for testing).
func (m *Player) SetFailResume(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failResume = err
}

// SetFailAttach makes AttachTap return err (for testing).
func (m *Player) SetFailAttach(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAttach = err
}

// SetFailLoad makes Load return err (for testing).
func (m *Player) SetFailLoad(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failLoad = err
}

// SetFailPlay makes Play return err (for testing).
func (m *Player) SetFailPlay(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPlay = err
}

// SampleRate implements ports.PlaybackSource.
func (m *Player) SampleRate() int {
	return m.sampleRate
}

// Resume implements ports.PlaybackSource.
func (m *Player) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumeCalls++
	return m.failResume
}

// AttachTap implements ports.PlaybackSource.
func (m *Player) AttachTap(tap ports.SampleTap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attachCalls++
	if m.failAttach != nil {
		return m.failAttach
	}
	if m.tap != nil {
		return domain.ErrTapAlreadyAttached
	}
	m.tap = tap
	return nil
}

// Load implements ports.Player.
func (m *Player) Load(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLoad != nil {
		return m.failLoad
	}
	m.url = url
	m.status = domain.PlaybackStopped
	if m.logger != nil {
		m.logger.Debug("mock: loaded", slog.String("url", url))
	}
	return nil
}

// Play implements ports.Player.
func (m *Player) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPlay != nil {
		return m.failPlay
	}
	if m.url == "" {
		return domain.ErrNoTrackLoaded
	}
	m.playCalls++
	m.status = domain.PlaybackPlaying
	return nil
}

// Pause implements ports.Player.
func (m *Player) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.url == "" {
		return domain.ErrNoTrackLoaded
	}
	m.status = domain.PlaybackPaused
	return nil
}

// Stop implements ports.Player.
func (m *Player) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = domain.PlaybackStopped
	return nil
}

// Status implements ports.Player.
func (m *Player) Status() domain.PlaybackStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// SetOnFinished implements ports.Player.
func (m *Player) SetOnFinished(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFinished = fn
}

// Close implements ports.Player.
func (m *Player) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("mock player already closed")
	}
	m.closed = true
	m.status = domain.PlaybackStopped
	return nil
}

// Feed pushes samples through the attached tap, as the audio thread would.
// It reports whether a tap was attached.
func (m *Player) Feed(samples [][2]float64) bool {
	m.mu.Lock()
	tap := m.tap
	m.mu.Unlock()
	if tap == nil {
		return false
	}
	tap.WriteSamples(samples)
	return true
}

// Finish simulates the audio reaching its end.
func (m *Player) Finish() {
	m.mu.Lock()
	m.status = domain.PlaybackStopped
	fn := m.onFinished
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// URL returns the last loaded URL.
func (m *Player) URL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.url
}

// ResumeCalls returns how many times Resume was called.
func (m *Player) ResumeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resumeCalls
}

// AttachCalls returns how many times AttachTap was called.
func (m *Player) AttachCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attachCalls
}

// PlayCalls returns how many times Play succeeded.
func (m *Player) PlayCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playCalls
}

var _ ports.Player = (*Player)(nil)
