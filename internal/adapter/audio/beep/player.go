// Package beep plays generated signals through the system speaker using gopxl/beep.
package beep

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"

	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/ports"
)

// resampleQuality is passed to beep.Resample when the file rate differs from the output rate.
const resampleQuality = 4

// Config holds speaker settings.
type Config struct {
	SampleRate int
	BufferSize time.Duration
}

// DefaultConfig returns 44.1 kHz output with a 100ms speaker buffer.
func DefaultConfig() Config {
	return Config{SampleRate: 44100, BufferSize: 100 * time.Millisecond}
}

// Player implements ports.Player on the beep speaker.
// The speaker is a process-wide singleton; a process should hold one Player.
//
// Thread-safety: This implementation is thread-safe.
type Player struct {
	logger     *slog.Logger
	httpClient *http.Client
	sampleRate beep.SampleRate
	bufferSize time.Duration

	// tap is read on the audio thread.
	tap atomic.Pointer[tapSlot]

	mu         sync.Mutex
	speakerUp  bool
	buffer     *beep.Buffer
	ctrl       *beep.Ctrl
	url        string
	status     domain.PlaybackStatus
	generation uint64
	onFinished func()
	closed     bool
}

type tapSlot struct {
	tap ports.SampleTap
}

// NewPlayer creates a player. A nil httpClient uses http.DefaultClient.
func NewPlayer(logger *slog.Logger, cfg Config, httpClient *http.Client) *Player {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultConfig().SampleRate
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	return &Player{
		logger:     logger.With(slog.String("component", "beep_player")),
		httpClient: httpClient,
		sampleRate: beep.SampleRate(cfg.SampleRate),
		bufferSize: cfg.BufferSize,
		status:     domain.PlaybackStopped,
	}
}

// SampleRate implements ports.PlaybackSource.
func (p *Player) SampleRate() int {
	return int(p.sampleRate)
}

// Resume implements ports.PlaybackSource. The first call opens the speaker.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ensureSpeakerLocked()
}

func (p *Player) ensureSpeakerLocked() error {
	if p.closed {
		return domain.ErrServiceClosed
	}
	if p.speakerUp {
		return nil
	}
	if err := speaker.Init(p.sampleRate, p.sampleRate.N(p.bufferSize)); err != nil {
		return fmt.Errorf("open speaker: %w", err)
	}
	p.speakerUp = true
	p.logger.Info("speaker opened", slog.Int("sample_rate", int(p.sampleRate)))
	return nil
}

// AttachTap implements ports.PlaybackSource.
func (p *Player) AttachTap(tap ports.SampleTap) error {
	if tap == nil {
		return domain.NewValidationError("tap", nil, "tap is nil")
	}
	if !p.tap.CompareAndSwap(nil, &tapSlot{tap: tap}) {
		return domain.ErrTapAlreadyAttached
	}
	return nil
}

// Load implements ports.Player. The whole file is fetched and decoded into memory.
func (p *Player) Load(ctx context.Context, url string) error {
	buffer, err := p.fetch(ctx, url)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return domain.ErrServiceClosed
	}
	p.stopLocked()
	p.buffer = buffer
	p.url = url

	p.logger.Info("audio loaded",
		slog.String("url", url),
		slog.Duration("duration", buffer.Format().SampleRate.D(buffer.Len())))
	return nil
}

func (p *Player) fetch(ctx context.Context, url string) (*beep.Buffer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch audio: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}

	return decode(data, url, resp.Header.Get("Content-Type"))
}

// decode picks a decoder by content type, then by extension; WAV is the default.
func decode(data []byte, url, contentType string) (*beep.Buffer, error) {
	rc := io.NopCloser(bytes.NewReader(data))

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	ext := strings.ToLower(path.Ext(strings.SplitN(url, "?", 2)[0]))
	if strings.Contains(contentType, "mpeg") || ext == ".mp3" {
		streamer, format, err = mp3.Decode(rc)
	} else {
		streamer, format, err = wav.Decode(rc)
	}
	if err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}
	defer streamer.Close()

	buffer := beep.NewBuffer(format)
	buffer.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("decode audio: %w", err)
	}
	return buffer, nil
}

// Play implements ports.Player.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.buffer == nil {
		return domain.ErrNoTrackLoaded
	}
	if err := p.ensureSpeakerLocked(); err != nil {
		return err
	}

	switch p.status {
	case domain.PlaybackPlaying:
		return nil
	case domain.PlaybackPaused:
		speaker.Lock()
		p.ctrl.Paused = false
		speaker.Unlock()
	default:
		p.generation++
		gen := p.generation
		p.ctrl = &beep.Ctrl{Streamer: p.pipelineLocked()}
		speaker.Play(beep.Seq(p.ctrl, beep.Callback(func() {
			// Callbacks run on the audio thread.
			go p.finished(gen)
		})))
	}
	p.status = domain.PlaybackPlaying
	return nil
}

// pipelineLocked builds buffer -> resample -> tap.
func (p *Player) pipelineLocked() beep.Streamer {
	var s beep.Streamer = p.buffer.Streamer(0, p.buffer.Len())
	if rate := p.buffer.Format().SampleRate; rate != p.sampleRate {
		s = beep.Resample(resampleQuality, rate, p.sampleRate, s)
	}
	return &tapStreamer{s: s, player: p}
}

func (p *Player) finished(gen uint64) {
	p.mu.Lock()
	if gen != p.generation || p.status == domain.PlaybackStopped {
		p.mu.Unlock()
		return
	}
	p.status = domain.PlaybackStopped
	p.ctrl = nil
	fn := p.onFinished
	p.mu.Unlock()

	p.logger.Debug("playback finished")
	if fn != nil {
		fn()
	}
}

// Pause implements ports.Player.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.buffer == nil {
		return domain.ErrNoTrackLoaded
	}
	if p.status != domain.PlaybackPlaying {
		return nil
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
	p.status = domain.PlaybackPaused
	return nil
}

// Stop implements ports.Player.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.buffer == nil {
		return domain.ErrNoTrackLoaded
	}
	p.stopLocked()
	return nil
}

func (p *Player) stopLocked() {
	p.generation++
	if p.ctrl != nil {
		speaker.Lock()
		p.ctrl.Streamer = nil
		speaker.Unlock()
		p.ctrl = nil
	}
	p.status = domain.PlaybackStopped
}

// Status implements ports.Player.
func (p *Player) Status() domain.PlaybackStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// SetOnFinished implements ports.Player.
func (p *Player) SetOnFinished(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onFinished = fn
}

// Close implements ports.Player.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.stopLocked()
	p.closed = true
	if p.speakerUp {
		speaker.Clear()
		speaker.Close()
		p.speakerUp = false
	}
	return nil
}

// tapStreamer copies every block it passes through to the attached tap.
type tapStreamer struct {
	s      beep.Streamer
	player *Player
}

func (t *tapStreamer) Stream(samples [][2]float64) (int, bool) {
	n, ok := t.s.Stream(samples)
	if n > 0 {
		if slot := t.player.tap.Load(); slot != nil {
			slot.tap.WriteSamples(samples[:n])
		}
	}
	return n, ok
}

func (t *tapStreamer) Err() error {
	return t.s.Err()
}

var _ ports.Player = (*Player)(nil)
