// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"

	"github.com/uapsignal/signalscope/internal/adapter/audio/beep"
	"github.com/uapsignal/signalscope/internal/adapter/audio/mock"
	"github.com/uapsignal/signalscope/internal/adapter/backend/httpapi"
	"github.com/uapsignal/signalscope/internal/adapter/backend/ws"
	"github.com/uapsignal/signalscope/internal/adapter/eventbus"
	"github.com/uapsignal/signalscope/internal/adapter/repository/fyneprefs"
	fyneui "github.com/uapsignal/signalscope/internal/adapter/ui/fyne"
	"github.com/uapsignal/signalscope/internal/analysis"
	"github.com/uapsignal/signalscope/internal/config"
	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/logger"
	"github.com/uapsignal/signalscope/internal/observability"
	"github.com/uapsignal/signalscope/internal/ports"
	"github.com/uapsignal/signalscope/internal/render"
	"github.com/uapsignal/signalscope/internal/service"
)

// shutdownTimeout bounds the metrics server shutdown.
const shutdownTimeout = 5 * time.Second

// Config holds application configuration.
type Config struct {
	// AppID is the unique application identifier
	AppID string

	// AppName is the display name
	AppName string

	// Settings is the loaded user configuration
	Settings config.Settings

	// UseMockAudio determines whether to use a mock player (for testing)
	UseMockAudio bool

	// LogOutput receives log records (nil for stderr)
	LogOutput io.Writer

	// HTTPClient is used for backend and audio requests (nil for a default client)
	HTTPClient *http.Client

	// TestFyneApp allows injecting a test Fyne app for testing (nil for production)
	TestFyneApp fyne.App
}

// DefaultConfig returns the default application configuration for settings.
func DefaultConfig(settings config.Settings) Config {
	return Config{
		AppID:    "com.uapsignal.signalscope",
		AppName:  "Signalscope",
		Settings: settings,
	}
}

// core is the wiring shared by the desktop app and the headless runner.
type core struct {
	logger   *slog.Logger
	settings config.Settings
	bus      *eventbus.SyncEventBus
	metrics  *observability.Metrics
	backend  *httpapi.Client
	streams  *service.ProgressStreamClient
}

func newCore(cfg Config) (*core, error) {
	s := cfg.Settings
	level, ok := logger.ParseLevel(s.Log.Level)
	if !ok {
		level = slog.LevelInfo
	}
	log := logger.NewLogger(logger.Config{Level: level, Format: s.Log.Format, Output: cfg.LogOutput})

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	backend, err := httpapi.NewClient(log, httpapi.Config{
		BaseURL:  s.Backend.URL,
		Timeout:  s.Backend.Timeout,
		CacheTTL: s.Backend.CacheTTL,
	}, cfg.HTTPClient, m.Client)
	if err != nil {
		return nil, err
	}
	dialer, err := ws.NewDialer(log, s.Backend.URL)
	if err != nil {
		return nil, err
	}

	if s.Metrics.Listen != "" {
		if _, err := m.Serve(s.Metrics.Listen, log); err != nil {
			return nil, fmt.Errorf("failed to start metrics endpoint: %w", err)
		}
	}

	bus := eventbus.NewSyncEventBus()
	bus.SetLogger(log.With(slog.String("component", "eventbus")))
	if log.Enabled(context.Background(), slog.LevelDebug) {
		trace := log.With(slog.String("component", "events"))
		bus.SubscribeAll(func(e domain.Event) {
			trace.Debug("event", slog.String("type", string(e.Type())))
		})
	}

	return &core{
		logger:   log,
		settings: s,
		bus:      bus,
		metrics:  m,
		backend:  backend,
		streams:  service.NewProgressStreamClient(log, dialer, m.Client),
	}, nil
}

func (c *core) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := c.metrics.Shutdown(ctx)
	return errors.Join(err, c.bus.Close())
}

// newAnalysisConfig maps settings onto the capture graph configuration.
func newAnalysisConfig(s config.Settings) analysis.Config {
	cfg := analysis.DefaultConfig()
	cfg.FFTSize = s.Analysis.FFTSize
	cfg.Smoothing = s.Analysis.Smoothing
	cfg.MinDecibels = s.Analysis.MinDecibels
	cfg.MaxDecibels = s.Analysis.MaxDecibels
	return cfg
}

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
type Application struct {
	*core
	fyneApp fyne.App

	// Infrastructure
	player  ports.Player
	capture *analysis.CaptureGraph
	history *render.SpectrogramBuffer

	// Repositories
	preferencesRepo ports.PreferencesRepository

	// Services
	generationService *service.GenerationService
	playbackService   *service.PlaybackService
	scheduler         *service.RedrawScheduler

	// UI
	presenter  *fyneui.Presenter
	mainWindow *fyneui.MainWindow

	autoLoadSub domain.SubscriptionID
	loads       sync.WaitGroup
	loadCtx     context.Context
	cancelLoads context.CancelFunc

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function.
func NewApplication(cfg Config) (*Application, error) {
	c, err := newCore(cfg)
	if err != nil {
		return nil, err
	}
	app := &Application{core: c}
	app.loadCtx, app.cancelLoads = context.WithCancel(context.Background())
	s := cfg.Settings

	// Step 1: Create Fyne application
	if cfg.TestFyneApp != nil {
		app.fyneApp = cfg.TestFyneApp
	} else {
		app.fyneApp = fyneapp.NewWithID(cfg.AppID)
	}
	app.logger.Info("initializing application",
		slog.String("app_id", cfg.AppID),
		slog.String("version", GetVersionInfo().FullString()))

	// Step 2: Create the player
	if cfg.UseMockAudio {
		player := mock.NewPlayer(s.Audio.SampleRate)
		player.SetLogger(app.logger.With(slog.String("player", "mock")))
		app.player = player
	} else {
		app.player = beep.NewPlayer(app.logger, beep.Config{
			SampleRate: s.Audio.SampleRate,
			BufferSize: s.Audio.Buffer,
		}, cfg.HTTPClient)
	}

	// Step 3: Create the capture graph and renderers
	app.capture, err = analysis.NewCaptureGraph(app.logger, newAnalysisConfig(s))
	if err != nil {
		return nil, fmt.Errorf("failed to create capture graph: %w", err)
	}

	surfaces := make(map[domain.VisualizationTab]*fyneui.RasterSurface, len(domain.AllTabs))
	renderSurfaces := make(map[domain.VisualizationTab]ports.RenderSurface, len(domain.AllTabs))
	for _, tab := range domain.AllTabs {
		surface := fyneui.NewRasterSurface(tab.String(), s.Render.Width, s.Render.Height)
		surfaces[tab] = surface
		renderSurfaces[tab] = surface
	}
	app.history = render.NewSpectrogramBuffer(render.DefaultHistorySlices)
	renderers, err := render.NewSet(renderSurfaces, app.history)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderers: %w", err)
	}

	// Step 4: Create repositories
	app.preferencesRepo = fyneprefs.NewPreferencesRepository(app.fyneApp.Preferences())

	// Step 5: Create services (with dependency injection)
	app.scheduler = service.NewRedrawScheduler(
		app.logger,
		app.capture,
		renderers.Live(),
		app.history,
		app.bus,
		app.metrics.Client,
		s.RedrawInterval(),
	)

	app.playbackService = service.NewPlaybackService(
		app.logger,
		app.player,
		app.capture,
		app.scheduler,
		app.bus,
	)

	// Step 6: Create UI
	app.mainWindow = fyneui.NewMainWindow(app.fyneApp, app.logger, surfaces)

	app.generationService = service.NewGenerationService(
		app.logger,
		app.backend,
		app.streams,
		app.mainWindow.ProgressDisplay(),
		renderers,
		app.bus,
		app.metrics.Client,
	)

	// Step 7: Create Presenter and wire with UI
	app.presenter = fyneui.NewPresenter(
		app.logger.With(slog.String("component", "presenter")),
		app.generationService,
		app.playbackService,
		app.backend,
		app.backend,
		app.backend,
		app.preferencesRepo,
		app.bus,
		app.mainWindow,
	)
	app.mainWindow.SetPresenter(app.presenter)

	app.autoLoadSub = app.wireAutoLoad()

	app.mainWindow.SetOnBeforeClose(func() {
		app.logger.Debug("main window closing")
	})

	return app, nil
}

// wireAutoLoad loads every completed artifact into the player.
func (a *Application) wireAutoLoad() domain.SubscriptionID {
	hasFile := func(e domain.Event) bool {
		done, ok := e.(domain.TaskCompletedEvent)
		return ok && done.Result.Filename != ""
	}
	return a.bus.SubscribeFiltered(domain.EventTaskCompleted, hasFile, func(e domain.Event) {
		url := a.backend.DownloadURL(e.(domain.TaskCompletedEvent).Result.Filename)
		a.loads.Add(1)
		go func() {
			defer a.loads.Done()
			if err := a.playbackService.Load(a.loadCtx, url); err != nil {
				a.logger.Warn("failed to load generated audio", slog.String("url", url), slog.Any("error", err))
			}
		}()
	})
}

// Run starts the application and blocks until the window is closed.
func (a *Application) Run() error {
	a.logger.Info("signalscope started")
	a.presenter.Start()
	a.mainWindow.ShowAndRun()
	return nil
}

// Shutdown gracefully shuts down the application. Safe to call twice.
func (a *Application) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.logger.Info("shutting down application")

		a.bus.Unsubscribe(a.autoLoadSub)
		a.cancelLoads()
		a.loads.Wait()

		if a.presenter != nil {
			a.presenter.Shutdown()
		}

		var errs []error
		if err := a.generationService.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("generation service: %w", err))
		}
		if err := a.playbackService.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("playback service: %w", err))
		}
		if err := a.core.shutdown(); err != nil {
			errs = append(errs, err)
		}

		a.shutdownErr = errors.Join(errs...)
		a.logger.Info("application shutdown complete")
	})
	return a.shutdownErr
}

// GetServices returns the application services.
func (a *Application) GetServices() (*service.GenerationService, *service.PlaybackService, *service.RedrawScheduler) {
	return a.generationService, a.playbackService, a.scheduler
}

// GetEventBus returns the event bus.
func (a *Application) GetEventBus() ports.FilteringEventBus {
	return a.bus
}

// GetFyneApp returns the Fyne application.
func (a *Application) GetFyneApp() fyne.App {
	return a.fyneApp
}

// GetPlayer returns the audio player.
func (a *Application) GetPlayer() ports.Player {
	return a.player
}
