package analysis

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/smallnest/ringbuffer"

	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/ports"
)

const bytesPerSample = 4 // mono float32

// Config holds analyser settings. They cannot change after construction.
type Config struct {
	FFTSize     int
	Smoothing   float64
	MinDecibels float64
	MaxDecibels float64

	// BufferWindows is how many analysis windows of audio the tap can hold
	// between two samplings before the oldest audio is dropped.
	BufferWindows int
}

// DefaultConfig returns the analyser defaults used by the desktop app.
func DefaultConfig() Config {
	return Config{
		FFTSize:       2048,
		Smoothing:     0.8,
		MinDecibels:   -100,
		MaxDecibels:   -30,
		BufferWindows: 4,
	}
}

// CaptureGraph owns the tap attached to the playback source and the analyser
// fed from it. The graph is built at most once; later calls to EnsureStarted
// reuse it across play/pause cycles.
type CaptureGraph struct {
	logger *slog.Logger

	mu          sync.Mutex
	initialized bool
	startErr    error
	sampleRate  int
	analyser    *Analyser

	// tapMu guards the ring and the scratch buffers. The audio thread holds it
	// only long enough to copy one block.
	tapMu   sync.Mutex
	ring    *ringbuffer.RingBuffer
	encoded []byte
	drained []byte
	decoded []float64
}

// NewCaptureGraph creates an unstarted capture graph.
func NewCaptureGraph(logger *slog.Logger, cfg Config) (*CaptureGraph, error) {
	analyser, err := NewAnalyser(cfg)
	if err != nil {
		return nil, err
	}
	windows := max(cfg.BufferWindows, 1)
	capacity := cfg.FFTSize * bytesPerSample * windows

	return &CaptureGraph{
		logger:   logger,
		analyser: analyser,
		ring:     ringbuffer.New(capacity),
		drained:  make([]byte, capacity),
		decoded:  make([]float64, 0, cfg.FFTSize*windows),
	}, nil
}

// EnsureStarted resumes the source's output context and attaches the tap.
// It is idempotent. A failure is remembered: the tap can be attached to a
// source only once, so later calls return the same error.
func (g *CaptureGraph) EnsureStarted(source ports.PlaybackSource) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.initialized {
		return nil
	}
	if g.startErr != nil {
		return g.startErr
	}

	if err := source.Resume(); err != nil {
		g.startErr = fmt.Errorf("%w: resume output: %w", domain.ErrCaptureUnavailable, err)
		return g.startErr
	}
	if err := source.AttachTap(g); err != nil {
		g.startErr = fmt.Errorf("%w: attach tap: %w", domain.ErrCaptureUnavailable, err)
		return g.startErr
	}

	g.sampleRate = source.SampleRate()
	g.initialized = true
	g.logger.Info("capture graph started",
		slog.Int("sample_rate", g.sampleRate),
		slog.Int("fft_size", g.analyser.FFTSize()))
	return nil
}

// Initialized reports whether the graph has been built.
func (g *CaptureGraph) Initialized() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.initialized
}

// FFTSize returns the fixed analysis window length.
func (g *CaptureGraph) FFTSize() int {
	return g.analyser.FFTSize()
}

// WriteSamples implements ports.SampleTap. It stores a mono mix of the block,
// discarding the oldest stored audio when the ring is full.
func (g *CaptureGraph) WriteSamples(samples [][2]float64) {
	if len(samples) == 0 {
		return
	}

	g.tapMu.Lock()
	defer g.tapMu.Unlock()

	capacity := g.ring.Capacity()
	size := len(samples) * bytesPerSample
	if cap(g.encoded) < size {
		g.encoded = make([]byte, size)
	}
	buf := g.encoded[:size]
	for i, s := range samples {
		mono := float32((s[0] + s[1]) / 2)
		binary.LittleEndian.PutUint32(buf[i*bytesPerSample:], math.Float32bits(mono))
	}
	if len(buf) > capacity {
		buf = buf[len(buf)-capacity:]
	}

	if need := len(buf) - g.ring.Free(); need > 0 {
		g.discard(need)
	}
	if _, err := g.ring.Write(buf); err != nil && g.logger != nil {
		g.logger.Debug("capture ring write failed", slog.Any("error", err))
	}
}

// discard drops at least n of the oldest bytes, in whole samples.
func (g *CaptureGraph) discard(n int) {
	n = (n + bytesPerSample - 1) / bytesPerSample * bytesPerSample
	for n > 0 {
		chunk := g.drained[:min(n, len(g.drained))]
		read, err := g.ring.Read(chunk)
		if err != nil || read == 0 {
			return
		}
		n -= read
	}
}

// drain moves every buffered sample into the analyser window.
func (g *CaptureGraph) drain() {
	g.tapMu.Lock()
	g.decoded = g.decoded[:0]
	for {
		n, err := g.ring.Read(g.drained)
		if n > 0 {
			for off := 0; off+bytesPerSample <= n; off += bytesPerSample {
				bits := binary.LittleEndian.Uint32(g.drained[off:])
				g.decoded = append(g.decoded, float64(math.Float32frombits(bits)))
			}
		}
		if err != nil || n < len(g.drained) {
			if err != nil && !errors.Is(err, ringbuffer.ErrIsEmpty) && g.logger != nil {
				g.logger.Debug("capture ring read failed", slog.Any("error", err))
			}
			break
		}
	}
	g.tapMu.Unlock()

	g.analyser.Push(g.decoded)
}

// SampleTimeDomain returns the latest window, 128 marking zero amplitude.
func (g *CaptureGraph) SampleTimeDomain() []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.drain()
	return g.analyser.TimeDomain()
}

// SampleFrequencyDomain returns the latest relative magnitudes, 0..255.
func (g *CaptureGraph) SampleFrequencyDomain() []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.drain()
	return g.analyser.FrequencyDomain()
}

// Frame implements ports.AnalysisSource with one consistent snapshot pair.
func (g *CaptureGraph) Frame() domain.AnalysisFrame {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.drain()
	return domain.AnalysisFrame{
		TimeDomain: g.analyser.TimeDomain(),
		FreqDomain: g.analyser.FrequencyDomain(),
		SampleRate: g.sampleRate,
	}
}

var (
	_ ports.SampleTap      = (*CaptureGraph)(nil)
	_ ports.AnalysisSource = (*CaptureGraph)(nil)
	_ ports.CaptureStarter = (*CaptureGraph)(nil)
)
