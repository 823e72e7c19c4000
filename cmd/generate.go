package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/uapsignal/signalscope/internal/adapter/ui/terminal"
	"github.com/uapsignal/signalscope/internal/domain"
)

// generateOptions holds flags of the generate command.
type generateOptions struct {
	preset     string
	durationMs int
	music      string
	outDir     string
	noPNG      bool
	config     domain.SignalConfig
}

func generateCommand(cli *cliContext) *cobra.Command {
	opts := &generateOptions{config: domain.DefaultSignalConfig()}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a signal and export its visualizations",
		Long: `Submit a generation job, follow its progress in the terminal and write
the waveform, spectrum and spectrogram images of the result as PNG files.

Frequency flags override the values of --preset.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, cli, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.preset, "preset", "p", "", "Preset to start from (default from generation.preset)")
	flags.IntVarP(&opts.durationMs, "duration", "d", 0, "Signal length in milliseconds (default from generation.duration_ms)")
	flags.StringVarP(&opts.music, "music", "m", "", "Uploaded music file to mix in")
	flags.StringVarP(&opts.outDir, "out", "o", "", "Directory for PNG files (default from render.output_dir)")
	flags.BoolVar(&opts.noPNG, "no-png", false, "Skip PNG export")

	flags.Float64Var(&opts.config.BaseToneFreq, "base-freq", opts.config.BaseToneFreq, "Foundation base tone in Hz")
	flags.Float64Var(&opts.config.SchumannFreq, "schumann-freq", opts.config.SchumannFreq, "Schumann resonance in Hz")
	flags.Float64Var(&opts.config.DNARepairFreq, "dna-freq", opts.config.DNARepairFreq, "Human enhancement tone in Hz")
	flags.Float64Var(&opts.config.AmbientFreq, "ambient-freq", opts.config.AmbientFreq, "Ambient tone in Hz")
	flags.Float64Var(&opts.config.ChirpFreq, "chirp-freq", opts.config.ChirpFreq, "Attention chirp in Hz")
	flags.Float64Var(&opts.config.UltrasonicFreq, "ultrasonic-freq", opts.config.UltrasonicFreq, "Life indicator tone in Hz")
	flags.BoolVar(&opts.config.UseMusicModulation, "music-modulation", opts.config.UseMusicModulation, "Modulate tones with the music envelope")
	flags.BoolVar(&opts.config.UseTremolo, "tremolo", opts.config.UseTremolo, "Apply tremolo")
	flags.Float64Var(&opts.config.TremoloDepth, "tremolo-depth", opts.config.TremoloDepth, "Tremolo depth from 0 to 1")

	return cmd
}

// overrideFlags maps flag names to the config fields they set.
func overrideFlags(dst *domain.SignalConfig, src domain.SignalConfig) map[string]func() {
	return map[string]func(){
		"base-freq":        func() { dst.BaseToneFreq = src.BaseToneFreq },
		"schumann-freq":    func() { dst.SchumannFreq = src.SchumannFreq },
		"dna-freq":         func() { dst.DNARepairFreq = src.DNARepairFreq },
		"ambient-freq":     func() { dst.AmbientFreq = src.AmbientFreq },
		"chirp-freq":       func() { dst.ChirpFreq = src.ChirpFreq },
		"ultrasonic-freq":  func() { dst.UltrasonicFreq = src.UltrasonicFreq },
		"music-modulation": func() { dst.UseMusicModulation = src.UseMusicModulation },
		"tremolo":          func() { dst.UseTremolo = src.UseTremolo },
		"tremolo-depth":    func() { dst.TremoloDepth = src.TremoloDepth },
	}
}

func runGenerate(cmd *cobra.Command, cli *cliContext, opts *generateOptions) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	h, err := cli.headless(cmd)
	if err != nil {
		return err
	}
	defer h.Shutdown()

	preset := opts.preset
	if preset == "" {
		preset = cli.settings.Generation.Preset
	}

	cfg := opts.config
	if preset != domain.DefaultPresetName {
		p, err := h.Backend().GetPreset(ctx, preset)
		if err != nil {
			return err
		}
		cfg = p.Config
		for name, apply := range overrideFlags(&cfg, opts.config) {
			if cmd.Flags().Changed(name) {
				apply()
			}
		}
	}

	req := domain.NewGenerationRequest(cfg)
	req.PresetName = preset
	req.DurationMs = cli.settings.Generation.DurationMs
	if opts.durationMs > 0 {
		req.DurationMs = opts.durationMs
	}
	if opts.music != "" {
		req = req.WithMusic(opts.music)
	}

	task, err := h.Generate(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, terminal.Summary(task.Result))
	fmt.Fprintf(out, "Download: %s\n", h.Backend().DownloadURL(task.Result.Filename))

	if opts.noPNG {
		return nil
	}
	dir := opts.outDir
	if dir == "" {
		dir = cli.settings.Render.OutputDir
	}
	paths, err := h.ExportPNG(ctx, dir, pngPrefix(task.Result.Filename))
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintf(out, "Wrote %s\n", p)
	}
	return nil
}

// pngPrefix names images after the generated file, e.g. uap_signal_1-waveform.png.
func pngPrefix(filename string) string {
	return strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)) + "-"
}

func renderCommand(cli *cliContext) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "render [filename]",
		Short: "Redraw a stored signal from the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			h, err := cli.headless(cmd)
			if err != nil {
				return err
			}
			defer h.Shutdown()

			result, err := h.RenderStored(ctx, args[0])
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = cli.settings.Render.OutputDir
			}
			paths, err := h.ExportPNG(ctx, outDir, pngPrefix(result.Filename))
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory for PNG files (default from render.output_dir)")
	return cmd
}
