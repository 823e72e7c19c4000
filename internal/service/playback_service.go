package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/ports"
)

// PlaybackService plays the generated artifact and ties the capture graph
// and the redraw scheduler to the transport controls.
//
// If the capture graph cannot be built, live visualization is disabled for
// the rest of the session while playback itself keeps working.
// All operations are thread-safe via sync.Mutex.
type PlaybackService struct {
	// Dependencies (injected)
	logger    *slog.Logger
	player    ports.Player
	capture   ports.CaptureStarter
	scheduler *RedrawScheduler
	bus       ports.EventBus

	// State
	url     string
	liveErr error
	closed  bool

	mu sync.Mutex
}

// NewPlaybackService creates a new playback service.
func NewPlaybackService(
	logger *slog.Logger,
	player ports.Player,
	capture ports.CaptureStarter,
	scheduler *RedrawScheduler,
	bus ports.EventBus,
) *PlaybackService {
	s := &PlaybackService{
		logger:    logger.With(slog.String("service", "playback")),
		player:    player,
		capture:   capture,
		scheduler: scheduler,
		bus:       bus,
	}
	player.SetOnFinished(s.handleFinished)

	s.logger.Debug("playback service initialized")
	return s
}

// Load replaces the loaded audio with the artifact at url.
// The scheduler is stopped before the source changes.
func (s *PlaybackService) Load(ctx context.Context, url string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrServiceClosed
	}
	s.scheduler.Stop()
	s.scheduler.ClearHistory()
	if err := s.player.Load(ctx, url); err != nil {
		s.mu.Unlock()
		return domain.NewServiceError("playback", "load", "failed to load audio", err)
	}
	s.url = url
	s.mu.Unlock()

	s.logger.Info("audio loaded", slog.String("url", url))
	s.bus.Publish(domain.NewPlaybackLoadedEvent(url))
	return nil
}

// Play starts or resumes playback. The capture graph is built on the first
// call; live rendering starts only if it is available.
func (s *PlaybackService) Play() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrServiceClosed
	}
	if s.url == "" {
		s.mu.Unlock()
		return domain.ErrNoTrackLoaded
	}

	var disabled error
	if s.liveErr == nil {
		if err := s.capture.EnsureStarted(s.player); err != nil {
			s.liveErr = err
			disabled = err
		}
	}
	live := s.liveErr == nil

	if err := s.player.Play(); err != nil {
		s.mu.Unlock()
		if disabled != nil {
			s.bus.Publish(domain.NewLiveVisualizationDisabledEvent(disabled))
		}
		return domain.NewServiceError("playback", "play", "failed to start playback", err)
	}
	if live {
		s.scheduler.Start()
	}
	s.mu.Unlock()

	if disabled != nil {
		s.logger.Warn("live visualization disabled", slog.Any("error", disabled))
		s.bus.Publish(domain.NewLiveVisualizationDisabledEvent(disabled))
	}
	s.bus.Publish(domain.NewPlaybackStartedEvent(live))
	return nil
}

// Pause pauses playback. The spectrogram keeps its slices.
func (s *PlaybackService) Pause() error {
	s.mu.Lock()
	if s.url == "" {
		s.mu.Unlock()
		return domain.ErrNoTrackLoaded
	}
	s.scheduler.Stop()
	if err := s.player.Pause(); err != nil {
		s.mu.Unlock()
		return domain.NewServiceError("playback", "pause", "failed to pause playback", err)
	}
	s.mu.Unlock()

	s.bus.Publish(domain.NewPlaybackPausedEvent())
	return nil
}

// Stop halts playback, rewinds and clears the spectrogram history.
func (s *PlaybackService) Stop() error {
	if err := s.stop(); err != nil {
		return err
	}
	s.bus.Publish(domain.NewPlaybackStoppedEvent(false))
	return nil
}

func (s *PlaybackService) stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scheduler.Stop()
	s.scheduler.ClearHistory()
	if s.url == "" {
		return nil
	}
	if err := s.player.Stop(); err != nil {
		return domain.NewServiceError("playback", "stop", "failed to stop playback", err)
	}
	return nil
}

// handleFinished runs when the audio reaches its end.
func (s *PlaybackService) handleFinished() {
	if err := s.stop(); err != nil {
		s.logger.Warn("stop after finish failed", slog.Any("error", err))
	}
	s.logger.Debug("playback finished")
	s.bus.Publish(domain.NewPlaybackStoppedEvent(true))
}

// Status returns the player status.
func (s *PlaybackService) Status() domain.PlaybackStatus {
	return s.player.Status()
}

// URL returns the loaded artifact URL.
func (s *PlaybackService) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// LiveEnabled reports whether live visualization is still available.
func (s *PlaybackService) LiveEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveErr == nil
}

// LiveError returns why live visualization was disabled, if it was.
func (s *PlaybackService) LiveError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveErr
}

// Shutdown stops the scheduler and releases the player.
func (s *PlaybackService) Shutdown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.scheduler.Shutdown()
	if err := s.player.Close(); err != nil {
		return fmt.Errorf("close player: %w", err)
	}
	return nil
}
