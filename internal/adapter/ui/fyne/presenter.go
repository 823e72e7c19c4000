// Package fyne provides Fyne UI adapter implementations.
// This package implements the UI layer using the Fyne toolkit.
package fyne

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/ports"
	"github.com/uapsignal/signalscope/internal/service"
)

// UIView defines the interface for UI updates.
// The actual UI implementation (MainWindow) must implement this interface.
// Methods may be called from any goroutine.
type UIView interface {
	// Form
	SetPresets(presets []domain.Preset, selected string)
	SetMusicFiles(files []domain.CatalogEntry, selected string)
	SetConfig(cfg domain.SignalConfig)
	SetActiveTab(tab domain.VisualizationTab)
	SetGenerating(busy bool)

	// Results and playback
	ShowResult(result domain.GenerationResult, downloadURL string)
	SetPlaybackState(status domain.PlaybackStatus, loaded bool)
	SetLiveStatus(text string)

	// Notifications
	ShowError(title, message string)
	ShowNotification(title, message string)
}

// FormState is the generation form as the user left it.
type FormState struct {
	Config     domain.SignalConfig
	PresetKey  string
	UseMusic   bool
	MusicFile  string
	DurationMs int
}

// Request builds the generation request for the form.
func (f FormState) Request() domain.GenerationRequest {
	req := domain.NewGenerationRequest(f.Config)
	if f.PresetKey != "" {
		req.PresetName = f.PresetKey
	}
	if f.DurationMs > 0 {
		req.DurationMs = f.DurationMs
	}
	if f.UseMusic {
		req = req.WithMusic(f.MusicFile)
	}
	return req
}

// Presenter implements the Presenter pattern (MVP architecture).
// It coordinates between services and the UI, handling all event-driven updates.
//
// Thread-safety: All operations are thread-safe.
type Presenter struct {
	// Dependencies
	logger *slog.Logger

	// Services and adapters (injected)
	generation *service.GenerationService
	playback   *service.PlaybackService
	music      ports.MusicCatalog
	presets    ports.PresetCatalog
	results    ports.ResultStore
	prefs      ports.PreferencesRepository
	bus        ports.EventBus

	// UI view
	view UIView

	subs   []domain.SubscriptionID
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	generating   bool
	shutdownOnce sync.Once
}

// NewPresenter creates a new presenter and subscribes it to the event bus.
func NewPresenter(
	logger *slog.Logger,
	generation *service.GenerationService,
	playback *service.PlaybackService,
	music ports.MusicCatalog,
	presets ports.PresetCatalog,
	results ports.ResultStore,
	prefs ports.PreferencesRepository,
	bus ports.EventBus,
	view UIView,
) *Presenter {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Presenter{
		logger:     logger,
		generation: generation,
		playback:   playback,
		music:      music,
		presets:    presets,
		results:    results,
		prefs:      prefs,
		bus:        bus,
		view:       view,
		ctx:        ctx,
		cancel:     cancel,
	}

	p.subscribeToEvents()
	return p
}

// subscribeToEvents subscribes to all relevant events from the event bus.
func (p *Presenter) subscribeToEvents() {
	subscriptions := map[domain.EventType]domain.EventHandler{
		domain.EventTaskCompleted:  p.onTaskCompleted,
		domain.EventTaskFailed:     p.onTaskFailed,
		domain.EventTaskSuperseded: p.onTaskSuperseded,

		domain.EventPlaybackLoaded:  p.onPlaybackChanged,
		domain.EventPlaybackStarted: p.onPlaybackChanged,
		domain.EventPlaybackPaused:  p.onPlaybackChanged,
		domain.EventPlaybackStopped: p.onPlaybackChanged,

		domain.EventLiveVisualizationOffline: p.onLiveDisabled,
	}

	for eventType, handler := range subscriptions {
		p.subs = append(p.subs, p.bus.Subscribe(eventType, handler))
	}
}

// Start restores the saved form and loads the catalogs in the background.
func (p *Presenter) Start() {
	if cfg, err := p.prefs.LoadLastConfig(); err != nil {
		p.logger.Warn("failed to load last config", slog.Any("error", err))
		p.view.SetConfig(domain.DefaultSignalConfig())
	} else {
		p.view.SetConfig(cfg)
	}

	if name, err := p.prefs.LoadActiveTab(); err == nil {
		if tab, err := domain.ParseVisualizationTab(name); err == nil {
			p.view.SetActiveTab(tab)
			p.bus.Publish(domain.NewVisualizationChangedEvent(tab))
		}
	}
	p.view.SetPlaybackState(domain.PlaybackStopped, false)

	p.goBackground(func(ctx context.Context) {
		if err := p.RefreshCatalogs(ctx); err != nil {
			p.view.ShowError("Backend unavailable", err.Error())
		}
	})
}

// RefreshCatalogs reloads presets and music files into the view.
func (p *Presenter) RefreshCatalogs(ctx context.Context) error {
	lastPreset, _ := p.prefs.LoadLastPreset()
	lastMusic, _ := p.prefs.LoadLastMusicFile()

	presets, presetErr := p.presets.ListPresets(ctx)
	if presetErr == nil {
		p.view.SetPresets(presets, lastPreset)
	}

	files, musicErr := p.music.ListMusic(ctx)
	if musicErr == nil {
		p.view.SetMusicFiles(files, lastMusic)
	}

	return errors.Join(presetErr, musicErr)
}

// OnRefreshClicked reloads the catalogs in the background.
func (p *Presenter) OnRefreshClicked() {
	p.goBackground(func(ctx context.Context) {
		if err := p.RefreshCatalogs(ctx); err != nil {
			p.view.ShowError("Refresh failed", domain.UserMessage(err))
		}
	})
}

// OnGenerateClicked submits the form. Progress and failures reach the user
// through the progress display; the presenter only tracks the busy state.
func (p *Presenter) OnGenerateClicked(form FormState) {
	req := form.Request()

	if err := p.prefs.SaveLastConfig(form.Config); err != nil {
		p.logger.Warn("failed to save config", slog.Any("error", err))
	}
	if err := p.prefs.SaveLastPreset(req.PresetName); err != nil {
		p.logger.Warn("failed to save preset", slog.Any("error", err))
	}
	if form.UseMusic {
		if err := p.prefs.SaveLastMusicFile(form.MusicFile); err != nil {
			p.logger.Warn("failed to save music file", slog.Any("error", err))
		}
	}

	p.setGenerating(true)
	p.goBackground(func(ctx context.Context) {
		handle, err := p.generation.Submit(ctx, req)
		if err != nil {
			if !service.Superseded(err) {
				p.setGenerating(false)
			}
			return
		}
		p.logger.Info("generation submitted", slog.String("task_id", handle.ID()))
	})
}

// OnPresetSelected fills the form with the preset's parameters.
func (p *Presenter) OnPresetSelected(key string) {
	if key == "" || key == domain.DefaultPresetName {
		return
	}
	p.goBackground(func(ctx context.Context) {
		preset, err := p.presets.GetPreset(ctx, key)
		if err != nil {
			p.view.ShowError("Preset", err.Error())
			return
		}
		p.view.SetConfig(preset.Config)
	})
}

// OnTabSelected switches the live visualization.
func (p *Presenter) OnTabSelected(tab domain.VisualizationTab) {
	p.bus.Publish(domain.NewVisualizationChangedEvent(tab))
	if err := p.prefs.SaveActiveTab(tab.String()); err != nil {
		p.logger.Warn("failed to save tab", slog.Any("error", err))
	}
}

// OnPlayClicked toggles between play and pause.
func (p *Presenter) OnPlayClicked() {
	var err error
	if p.playback.Status() == domain.PlaybackPlaying {
		err = p.playback.Pause()
	} else {
		err = p.playback.Play()
	}
	if err != nil {
		p.view.ShowError("Playback", err.Error())
	}
}

// OnStopClicked stops playback.
func (p *Presenter) OnStopClicked() {
	if err := p.playback.Stop(); err != nil && !errors.Is(err, domain.ErrNoTrackLoaded) {
		p.view.ShowError("Playback", err.Error())
	}
}

// OnUploadFile sends a local music file to the backend.
func (p *Presenter) OnUploadFile(path string) {
	p.goBackground(func(ctx context.Context) {
		res, err := p.music.UploadMusic(ctx, path)
		p.afterMusicAdded(ctx, "Upload", res, err)
	})
}

// OnIngestURL asks the backend to fetch music from a URL.
func (p *Presenter) OnIngestURL(sourceURL string) {
	p.goBackground(func(ctx context.Context) {
		res, err := p.music.IngestMusic(ctx, sourceURL)
		p.afterMusicAdded(ctx, "Ingest", res, err)
	})
}

func (p *Presenter) afterMusicAdded(ctx context.Context, op string, res domain.UploadResult, err error) {
	if err != nil {
		p.view.ShowError(op+" failed", domain.UserMessage(err))
		return
	}
	if err := p.prefs.SaveLastMusicFile(res.Filename); err != nil {
		p.logger.Warn("failed to save music file", slog.Any("error", err))
	}
	if files, err := p.music.ListMusic(ctx); err == nil {
		p.view.SetMusicFiles(files, res.Filename)
	}

	name := res.Filename
	if res.Title != "" {
		name = res.Title
	}
	p.view.ShowNotification(op+" complete", fmt.Sprintf("%s (%.0f s)", name, res.DurationSeconds))
}

// Event handlers

func (p *Presenter) onTaskCompleted(event domain.Event) {
	e, ok := event.(domain.TaskCompletedEvent)
	if !ok {
		return
	}
	p.setGenerating(false)
	p.view.ShowResult(e.Result, p.results.DownloadURL(e.Result.Filename))
}

func (p *Presenter) onTaskFailed(event domain.Event) {
	p.setGenerating(false)
}

func (p *Presenter) onTaskSuperseded(event domain.Event) {
	// A newer submission is already running; stay busy.
}

func (p *Presenter) onPlaybackChanged(event domain.Event) {
	p.view.SetPlaybackState(p.playback.Status(), p.playback.URL() != "")
}

func (p *Presenter) onLiveDisabled(event domain.Event) {
	e, ok := event.(domain.LiveVisualizationDisabledEvent)
	if !ok {
		return
	}
	p.view.SetLiveStatus("Live visualization unavailable: " + e.Reason.Error())
}

func (p *Presenter) setGenerating(busy bool) {
	p.mu.Lock()
	changed := p.generating != busy
	p.generating = busy
	p.mu.Unlock()

	if changed {
		p.view.SetGenerating(busy)
	}
}

// Generating reports whether a submission is in flight.
func (p *Presenter) Generating() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generating
}

func (p *Presenter) goBackground(fn func(ctx context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		fn(p.ctx)
	}()
}

// Shutdown unsubscribes and waits for background calls to return.
func (p *Presenter) Shutdown() {
	p.shutdownOnce.Do(func() {
		for _, id := range p.subs {
			p.bus.Unsubscribe(id)
		}
		p.cancel()
		p.wg.Wait()
	})
}
