package service

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/observability/metrics"
	"github.com/uapsignal/signalscope/internal/ports"
)

// DefaultRedrawInterval is one display refresh at 60 Hz.
const DefaultRedrawInterval = time.Second / 60

// RedrawScheduler drives the live renderers while audio plays. Each tick
// samples the analysis source once and draws only the active tab; the other
// surfaces keep their last image until selected.
type RedrawScheduler struct {
	// Dependencies (injected)
	logger   *slog.Logger
	source   ports.AnalysisSource
	live     map[domain.VisualizationTab]ports.LiveRenderer
	history  ports.FrameHistory
	bus      ports.EventBus
	metrics  *metrics.ClientMetrics
	interval time.Duration

	active atomic.Int32
	ticks  atomic.Uint64
	subID  domain.SubscriptionID

	// Concurrency control
	mu      sync.Mutex
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup // waits for the tick goroutine to exit
}

// NewRedrawScheduler creates a stopped scheduler. It follows
// EventVisualizationChanged on bus to track the active tab.
func NewRedrawScheduler(
	logger *slog.Logger,
	source ports.AnalysisSource,
	live map[domain.VisualizationTab]ports.LiveRenderer,
	history ports.FrameHistory,
	bus ports.EventBus,
	m *metrics.ClientMetrics,
	interval time.Duration,
) *RedrawScheduler {
	if interval <= 0 {
		interval = DefaultRedrawInterval
	}
	s := &RedrawScheduler{
		logger:   logger.With(slog.String("service", "redraw")),
		source:   source,
		live:     live,
		history:  history,
		bus:      bus,
		metrics:  m,
		interval: interval,
	}
	s.active.Store(int32(domain.TabWaveform))

	if bus != nil {
		s.subID = bus.Subscribe(domain.EventVisualizationChanged, func(e domain.Event) {
			if ev, ok := e.(domain.VisualizationChangedEvent); ok {
				s.SetActive(ev.Tab)
			}
		})
	}
	return s
}

// SetActive selects the tab drawn by subsequent ticks.
func (s *RedrawScheduler) SetActive(tab domain.VisualizationTab) {
	if prev := domain.VisualizationTab(s.active.Swap(int32(tab))); prev != tab {
		s.logger.Debug("active visualization changed", slog.String("tab", tab.String()))
	}
}

// Active returns the tab drawn by ticks.
func (s *RedrawScheduler) Active() domain.VisualizationTab {
	return domain.VisualizationTab(s.active.Load())
}

// Start begins ticking. Starting a running scheduler is a no-op.
func (s *RedrawScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	stop := s.stop
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Debug("redraw scheduler started", slog.Duration("interval", s.interval))

	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return

			case <-ticker.C:
				// A stop that raced with the tick wins.
				select {
				case <-stop:
					return
				default:
				}
				s.tick()
			}
		}
	}()
}

// Stop halts ticking and waits for an in-flight tick to finish.
// Stopping a stopped scheduler is a no-op.
func (s *RedrawScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	// Release lock before waiting for goroutine to exit (to avoid deadlock)
	s.wg.Wait()
	s.logger.Debug("redraw scheduler stopped", slog.Uint64("ticks", s.ticks.Load()))
}

// Running reports whether the tick loop is active.
func (s *RedrawScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Ticks returns how many ticks have drawn a frame.
func (s *RedrawScheduler) Ticks() uint64 {
	return s.ticks.Load()
}

// ClearHistory drops the retained live spectrogram slices.
func (s *RedrawScheduler) ClearHistory() {
	if s.history != nil {
		s.history.Clear()
	}
}

// Shutdown stops the loop and detaches from the event bus.
func (s *RedrawScheduler) Shutdown() {
	s.Stop()
	if s.bus != nil && s.subID != "" {
		s.bus.Unsubscribe(s.subID)
	}
}

func (s *RedrawScheduler) tick() {
	tab := s.Active()
	renderer, ok := s.live[tab]
	if !ok {
		return
	}

	start := time.Now()
	renderer.RenderLive(s.source.Frame())
	s.ticks.Add(1)
	s.metrics.RecordRedrawTick(tab.String(), time.Since(start))
}
