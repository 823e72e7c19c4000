package ports

import "github.com/uapsignal/signalscope/internal/domain"

// PreferencesRepository persists user choices between sessions.
//
// Thread-safety: Implementations must be thread-safe.
type PreferencesRepository interface {
	// SaveLastPreset stores the last preset the user generated with.
	SaveLastPreset(name string) error

	// LoadLastPreset returns the stored preset name, or domain.DefaultPresetName.
	LoadLastPreset() (string, error)

	// SaveLastMusicFile stores the last music file selected for modulation.
	SaveLastMusicFile(filename string) error

	// LoadLastMusicFile returns the stored music file, or "".
	LoadLastMusicFile() (string, error)

	// SaveActiveTab stores the visualization tab that was selected.
	SaveActiveTab(tab string) error

	// LoadActiveTab returns the stored tab identifier.
	LoadActiveTab() (string, error)

	// SaveLastConfig stores the signal parameters of the last submission.
	SaveLastConfig(cfg domain.SignalConfig) error

	// LoadLastConfig returns the stored parameters, or domain.DefaultSignalConfig.
	LoadLastConfig() (domain.SignalConfig, error)

	// Clear removes every stored preference.
	Clear() error
}
