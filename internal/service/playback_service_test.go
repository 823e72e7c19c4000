package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uapsignal/signalscope/internal/adapter/audio/mock"
	"github.com/uapsignal/signalscope/internal/adapter/eventbus"
	"github.com/uapsignal/signalscope/internal/analysis"
	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/logger"
	"github.com/uapsignal/signalscope/internal/ports"
	"github.com/uapsignal/signalscope/internal/render"
	"github.com/uapsignal/signalscope/internal/testutil"
)

const testURL = "http://backend/api/download/uap_signal_1.wav"

type playbackFixture struct {
	svc     *PlaybackService
	player  *mock.Player
	capture *analysis.CaptureGraph
	sched   *RedrawScheduler
	history *render.SpectrogramBuffer
	bus     *eventbus.SyncEventBus
	events  []domain.EventType
}

// Helper to create a playback service over the real capture graph and renderers
func newPlaybackFixture(t *testing.T) *playbackFixture {
	t.Helper()
	log := logger.NewTestLogger()

	f := &playbackFixture{
		player:  mock.NewPlayer(44100),
		history: render.NewSpectrogramBuffer(render.DefaultHistorySlices),
		bus:     eventbus.NewSyncEventBus(),
	}

	var err error
	cfg := analysis.DefaultConfig()
	cfg.FFTSize = 256
	f.capture, err = analysis.NewCaptureGraph(log, cfg)
	require.NoError(t, err)

	set, err := render.NewSet(map[domain.VisualizationTab]ports.RenderSurface{
		domain.TabWaveform:    nullSurface{id: "waveform"},
		domain.TabSpectrum:    nullSurface{id: "spectrum"},
		domain.TabSpectrogram: nullSurface{id: "spectrogram"},
	}, f.history)
	require.NoError(t, err)

	f.sched = NewRedrawScheduler(log, f.capture, set.Live(), f.history, f.bus, nil, time.Millisecond)
	f.svc = NewPlaybackService(log, f.player, f.capture, f.sched, f.bus)
	f.bus.SubscribeAll(func(e domain.Event) { f.events = append(f.events, e.Type()) })

	t.Cleanup(func() { _ = f.svc.Shutdown() })
	return f
}

func TestPlaybackService_PlayRequiresLoad(t *testing.T) {
	f := newPlaybackFixture(t)

	assert.ErrorIs(t, f.svc.Play(), domain.ErrNoTrackLoaded)
	assert.ErrorIs(t, f.svc.Pause(), domain.ErrNoTrackLoaded)
	assert.False(t, f.capture.Initialized())
}

func TestPlaybackService_PlayStartsCaptureAndScheduler(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	f := newPlaybackFixture(t)

	require.NoError(t, f.svc.Load(context.Background(), testURL))
	assert.Equal(t, testURL, f.player.URL())

	require.NoError(t, f.svc.Play())
	assert.True(t, f.capture.Initialized())
	assert.True(t, f.sched.Running())
	assert.True(t, f.svc.LiveEnabled())
	assert.Equal(t, domain.PlaybackPlaying, f.svc.Status())

	// Play/pause cycles reuse the graph.
	require.NoError(t, f.svc.Pause())
	assert.False(t, f.sched.Running())
	require.NoError(t, f.svc.Play())
	assert.Equal(t, 1, f.player.AttachCalls())
	assert.Equal(t, 1, f.player.ResumeCalls())

	require.NoError(t, f.svc.Stop())
	assert.False(t, f.sched.Running())
	assert.Contains(t, f.events, domain.EventPlaybackStarted)
	assert.Contains(t, f.events, domain.EventPlaybackStopped)

	require.NoError(t, f.svc.Shutdown())
}

func TestPlaybackService_PauseKeepsSlicesStopClears(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	f := newPlaybackFixture(t)
	f.sched.SetActive(domain.TabSpectrogram)

	require.NoError(t, f.svc.Load(context.Background(), testURL))
	require.NoError(t, f.svc.Play())
	assert.Eventually(t, func() bool { return f.history.Len() >= 3 }, time.Second, time.Millisecond)

	require.NoError(t, f.svc.Pause())
	kept := f.history.Len()
	assert.GreaterOrEqual(t, kept, 3)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, kept, f.history.Len(), "no slices while paused")

	require.NoError(t, f.svc.Play())
	assert.Eventually(t, func() bool { return f.history.Len() > kept }, time.Second, time.Millisecond)

	require.NoError(t, f.svc.Stop())
	assert.Zero(t, f.history.Len())

	require.NoError(t, f.svc.Shutdown())
}

func TestPlaybackService_CaptureFailureDisablesLiveOnly(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	f := newPlaybackFixture(t)
	f.player.SetFailResume(errors.New("no output device"))

	var disabled []error
	f.bus.Subscribe(domain.EventLiveVisualizationOffline, func(e domain.Event) {
		disabled = append(disabled, e.(domain.LiveVisualizationDisabledEvent).Reason)
	})

	require.NoError(t, f.svc.Load(context.Background(), testURL))
	require.NoError(t, f.svc.Play(), "playback must still work")

	assert.Equal(t, domain.PlaybackPlaying, f.svc.Status())
	assert.False(t, f.sched.Running())
	assert.False(t, f.svc.LiveEnabled())
	assert.ErrorIs(t, f.svc.LiveError(), domain.ErrCaptureUnavailable)
	require.Len(t, disabled, 1)

	// The graph is not retried later in the session.
	f.player.SetFailResume(nil)
	require.NoError(t, f.svc.Pause())
	require.NoError(t, f.svc.Play())
	assert.False(t, f.sched.Running())
	assert.Equal(t, 1, f.player.ResumeCalls())
	assert.Len(t, disabled, 1)

	require.NoError(t, f.svc.Shutdown())
}

func TestPlaybackService_FinishedStopsAndClears(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	f := newPlaybackFixture(t)
	f.sched.SetActive(domain.TabSpectrogram)

	var finished []bool
	f.bus.Subscribe(domain.EventPlaybackStopped, func(e domain.Event) {
		finished = append(finished, e.(domain.PlaybackStoppedEvent).Finished)
	})

	require.NoError(t, f.svc.Load(context.Background(), testURL))
	require.NoError(t, f.svc.Play())
	assert.Eventually(t, func() bool { return f.history.Len() >= 1 }, time.Second, time.Millisecond)

	f.player.Finish()

	assert.False(t, f.sched.Running())
	assert.Zero(t, f.history.Len())
	assert.Equal(t, []bool{true}, finished)

	require.NoError(t, f.svc.Shutdown())
}

func TestPlaybackService_LoadStopsScheduler(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)
	f := newPlaybackFixture(t)

	require.NoError(t, f.svc.Load(context.Background(), testURL))
	require.NoError(t, f.svc.Play())
	require.True(t, f.sched.Running())

	require.NoError(t, f.svc.Load(context.Background(), testURL+"?v=2"))
	assert.False(t, f.sched.Running())

	require.NoError(t, f.svc.Shutdown())
}

func TestPlaybackService_LoadFailure(t *testing.T) {
	f := newPlaybackFixture(t)
	f.player.SetFailLoad(errors.New("404"))

	err := f.svc.Load(context.Background(), testURL)

	var serr *domain.ServiceError
	assert.ErrorAs(t, err, &serr)
	assert.Empty(t, f.svc.URL())
}

func TestPlaybackService_ShutdownIsIdempotent(t *testing.T) {
	f := newPlaybackFixture(t)

	require.NoError(t, f.svc.Shutdown())
	require.NoError(t, f.svc.Shutdown())
	assert.ErrorIs(t, f.svc.Play(), domain.ErrServiceClosed)
}
