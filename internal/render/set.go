package render

import (
	"fmt"

	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/ports"
)

// Set groups the three renderers bound to their surfaces.
type Set struct {
	Waveform    *Waveform
	Spectrum    *Spectrum
	Spectrogram *Spectrogram
}

// NewSet binds one renderer per tab. Every tab must have a surface.
func NewSet(surfaces map[domain.VisualizationTab]ports.RenderSurface, history *SpectrogramBuffer) (*Set, error) {
	for _, tab := range domain.AllTabs {
		if surfaces[tab] == nil {
			return nil, fmt.Errorf("no render surface for %s", tab)
		}
	}
	return &Set{
		Waveform:    NewWaveform(surfaces[domain.TabWaveform]),
		Spectrum:    NewSpectrum(surfaces[domain.TabSpectrum]),
		Spectrogram: NewSpectrogram(surfaces[domain.TabSpectrogram], history),
	}, nil
}

// RenderResult draws the one-shot view of result on all three surfaces.
func (s *Set) RenderResult(result *domain.GenerationResult) {
	s.Waveform.RenderResult(result)
	s.Spectrum.RenderResult(result)
	s.Spectrogram.RenderResult(result)
}

// Live returns the live renderer of each tab.
func (s *Set) Live() map[domain.VisualizationTab]ports.LiveRenderer {
	return map[domain.VisualizationTab]ports.LiveRenderer{
		domain.TabWaveform:    s.Waveform,
		domain.TabSpectrum:    s.Spectrum,
		domain.TabSpectrogram: s.Spectrogram,
	}
}

var _ ports.ResultRenderer = (*Set)(nil)
