package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/uapsignal/signalscope/internal/adapter/backend/httpapi"
	"github.com/uapsignal/signalscope/internal/adapter/surface/pngfile"
	"github.com/uapsignal/signalscope/internal/adapter/ui/terminal"
	"github.com/uapsignal/signalscope/internal/analysis"
	"github.com/uapsignal/signalscope/internal/domain"
	"github.com/uapsignal/signalscope/internal/ports"
	"github.com/uapsignal/signalscope/internal/render"
	"github.com/uapsignal/signalscope/internal/service"
)

// spectrumBins is the resolution of spectra derived from stored waveforms.
const spectrumBins = 512

// Headless drives generation and rendering without a window. Finished
// visualizations are kept in memory until exported as PNG files.
type Headless struct {
	*core

	display    *terminal.ProgressDisplay
	surfaces   map[domain.VisualizationTab]*pngfile.Surface
	renderers  *render.Set
	generation *service.GenerationService
}

// NewHeadless wires a headless runner that reports progress to out.
func NewHeadless(cfg Config, out io.Writer) (*Headless, error) {
	c, err := newCore(cfg)
	if err != nil {
		return nil, err
	}
	s := cfg.Settings

	h := &Headless{
		core:     c,
		display:  terminal.NewProgressDisplay(out),
		surfaces: make(map[domain.VisualizationTab]*pngfile.Surface, len(domain.AllTabs)),
	}
	renderSurfaces := make(map[domain.VisualizationTab]ports.RenderSurface, len(domain.AllTabs))
	for _, tab := range domain.AllTabs {
		surface := pngfile.NewSurface(tab.String(), s.Render.Width, s.Render.Height)
		h.surfaces[tab] = surface
		renderSurfaces[tab] = surface
	}
	h.renderers, err = render.NewSet(renderSurfaces, render.NewSpectrogramBuffer(render.DefaultHistorySlices))
	if err != nil {
		return nil, fmt.Errorf("failed to create renderers: %w", err)
	}

	h.generation = service.NewGenerationService(
		c.logger,
		c.backend,
		c.streams,
		h.display,
		h.renderers,
		c.bus,
		c.metrics.Client,
	)
	return h, nil
}

// Backend returns the backend client.
func (h *Headless) Backend() *httpapi.Client {
	return h.backend
}

// Generate submits req and blocks until the task finishes.
func (h *Headless) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationTask, error) {
	handle, err := h.generation.Submit(ctx, req)
	if err != nil {
		return domain.GenerationTask{}, err
	}
	return handle.Wait(ctx)
}

// RenderStored draws a previously generated file from its stored waveform.
// The backend keeps no spectrum for stored files, so one is derived locally.
func (h *Headless) RenderStored(ctx context.Context, filename string) (domain.GenerationResult, error) {
	waveform, durationMs, err := h.backend.FetchWaveform(ctx, filename)
	if err != nil {
		return domain.GenerationResult{}, err
	}
	result := domain.GenerationResult{
		Filename:   filename,
		DurationMs: durationMs,
		Waveform:   waveform,
		FFT:        analysis.WaveformSpectrum(waveform, durationMs, spectrumBins),
	}
	h.renderers.RenderResult(&result)
	h.logger.Info("rendered stored signal",
		slog.String("filename", filename),
		slog.Int("samples", len(waveform)))
	return result, nil
}

// ExportPNG writes every visualization to dir and returns the written paths.
func (h *Headless) ExportPNG(ctx context.Context, dir, prefix string) ([]string, error) {
	paths := make([]string, len(domain.AllTabs))
	g, ctx := errgroup.WithContext(ctx)
	for i, tab := range domain.AllTabs {
		surface := h.surfaces[tab]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path, err := surface.WriteFile(dir, prefix)
			if err != nil {
				return fmt.Errorf("export %s: %w", tab, err)
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// Shutdown stops the generation service and releases shared resources.
func (h *Headless) Shutdown() error {
	err := h.generation.Shutdown()
	if cerr := h.core.shutdown(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
