// Package fyneprefs stores user choices in the Fyne preferences store.
package fyneprefs

import (
	"encoding/json"
	"sync"

	"fyne.io/fyne/v2"

	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/ports"
)

const (
	keyLastPreset = "preferences.last_preset"
	keyMusicFile  = "preferences.music_file"
	keyActiveTab  = "preferences.active_tab"
	keyLastConfig = "preferences.last_config"
)

// PreferencesRepository implements ports.PreferencesRepository using Fyne preferences.
//
// Thread-safe: All operations protected by sync.RWMutex.
type PreferencesRepository struct {
	prefs fyne.Preferences
	mu    sync.RWMutex
}

// NewPreferencesRepository creates a new preferences' repository.
// The preferences parameter should be obtained from fyne.CurrentApp().Preferences().
func NewPreferencesRepository(prefs fyne.Preferences) *PreferencesRepository {
	return &PreferencesRepository{
		prefs: prefs,
	}
}

// SaveLastPreset persists the preset key of the last generation.
func (r *PreferencesRepository) SaveLastPreset(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetString(keyLastPreset, name)
	return nil
}

// LoadLastPreset retrieves the saved preset key.
func (r *PreferencesRepository) LoadLastPreset() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.prefs.StringWithFallback(keyLastPreset, domain.DefaultPresetName), nil
}

// SaveLastMusicFile persists the music file chosen for modulation.
func (r *PreferencesRepository) SaveLastMusicFile(filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetString(keyMusicFile, filename)
	return nil
}

// LoadLastMusicFile retrieves the saved music file.
func (r *PreferencesRepository) LoadLastMusicFile() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.prefs.String(keyMusicFile), nil
}

// SaveActiveTab persists the selected visualization.
func (r *PreferencesRepository) SaveActiveTab(tab string) error {
	if _, err := domain.ParseVisualizationTab(tab); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetString(keyActiveTab, tab)
	return nil
}

// LoadActiveTab retrieves the saved visualization, defaulting to the waveform.
func (r *PreferencesRepository) LoadActiveTab() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.prefs.StringWithFallback(keyActiveTab, domain.TabWaveform.String()), nil
}

// SaveLastConfig persists the signal parameters as JSON.
func (r *PreferencesRepository) SaveLastConfig(cfg domain.SignalConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return domain.NewServiceError("PreferencesRepository", "SaveLastConfig", "failed to marshal config", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetString(keyLastConfig, string(data))
	return nil
}

// LoadLastConfig retrieves the saved signal parameters.
func (r *PreferencesRepository) LoadLastConfig() (domain.SignalConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data := r.prefs.String(keyLastConfig)
	if data == "" {
		return domain.DefaultSignalConfig(), nil
	}

	cfg := domain.DefaultSignalConfig()
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return domain.DefaultSignalConfig(), domain.NewServiceError("PreferencesRepository", "LoadLastConfig", "failed to unmarshal config", err)
	}
	return cfg, nil
}

// Clear removes all saved preferences.
func (r *PreferencesRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.RemoveValue(keyLastPreset)
	r.prefs.RemoveValue(keyMusicFile)
	r.prefs.RemoveValue(keyActiveTab)
	r.prefs.RemoveValue(keyLastConfig)

	return nil
}

// Verify interface implementation
var _ ports.PreferencesRepository = (*PreferencesRepository)(nil)
