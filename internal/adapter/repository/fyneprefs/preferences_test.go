package fyneprefs

import (
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uapsignal/signalscope/internal/domain"
)

// Helper to create a test preferences repository
func newTestPreferencesRepository() *PreferencesRepository {
	app := test.NewApp()
	prefs := app.Preferences()

	return NewPreferencesRepository(prefs)
}

func TestPreferencesRepository_Defaults(t *testing.T) {
	repo := newTestPreferencesRepository()

	preset, err := repo.LoadLastPreset()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPresetName, preset)

	music, err := repo.LoadLastMusicFile()
	require.NoError(t, err)
	assert.Empty(t, music)

	tab, err := repo.LoadActiveTab()
	require.NoError(t, err)
	assert.Equal(t, "waveform", tab)

	cfg, err := repo.LoadLastConfig()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSignalConfig(), cfg)
}

func TestPreferencesRepository_SaveAndLoad(t *testing.T) {
	repo := newTestPreferencesRepository()

	require.NoError(t, repo.SaveLastPreset("deep_space"))
	require.NoError(t, repo.SaveLastMusicFile("ambient.mp3"))
	require.NoError(t, repo.SaveActiveTab("spectrogram"))

	preset, _ := repo.LoadLastPreset()
	music, _ := repo.LoadLastMusicFile()
	tab, _ := repo.LoadActiveTab()

	assert.Equal(t, "deep_space", preset)
	assert.Equal(t, "ambient.mp3", music)
	assert.Equal(t, "spectrogram", tab)
}

func TestPreferencesRepository_RejectsUnknownTab(t *testing.T) {
	repo := newTestPreferencesRepository()

	err := repo.SaveActiveTab("oscilloscope")

	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
	tab, _ := repo.LoadActiveTab()
	assert.Equal(t, "waveform", tab)
}

func TestPreferencesRepository_LastConfigRoundTrip(t *testing.T) {
	repo := newTestPreferencesRepository()

	cfg := domain.DefaultSignalConfig()
	cfg.BaseToneFreq = 111.5
	cfg.UseTremolo = false
	require.NoError(t, repo.SaveLastConfig(cfg))

	got, err := repo.LoadLastConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestPreferencesRepository_CorruptConfig(t *testing.T) {
	repo := newTestPreferencesRepository()
	repo.prefs.SetString(keyLastConfig, "{broken")

	cfg, err := repo.LoadLastConfig()

	var serr *domain.ServiceError
	assert.ErrorAs(t, err, &serr)
	assert.Equal(t, domain.DefaultSignalConfig(), cfg)
}

func TestPreferencesRepository_Clear(t *testing.T) {
	repo := newTestPreferencesRepository()
	require.NoError(t, repo.SaveLastPreset("deep_space"))
	require.NoError(t, repo.SaveActiveTab("spectrum"))

	require.NoError(t, repo.Clear())

	preset, _ := repo.LoadLastPreset()
	tab, _ := repo.LoadActiveTab()
	assert.Equal(t, domain.DefaultPresetName, preset)
	assert.Equal(t, "waveform", tab)
}
