package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/uapsignal/signalscope/internal/domain"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#88C0D0"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4C566A"))
)

func musicCommand(cli *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "music",
		Short: "Manage music files on the backend",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List uploaded music files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cli.headless(cmd)
			if err != nil {
				return err
			}
			defer h.Shutdown()

			files, err := h.Backend().ListMusic(cmd.Context())
			if err != nil {
				return err
			}
			printMusic(cmd.OutOrStdout(), files)
			return nil
		},
	}

	upload := &cobra.Command{
		Use:   "upload [path]",
		Short: "Upload a local music file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cli.headless(cmd)
			if err != nil {
				return err
			}
			defer h.Shutdown()

			res, err := h.Backend().UploadMusic(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printUpload(cmd.OutOrStdout(), res)
			return nil
		},
	}

	ingest := &cobra.Command{
		Use:   "ingest [url]",
		Short: "Have the backend download music from a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cli.headless(cmd)
			if err != nil {
				return err
			}
			defer h.Shutdown()

			res, err := h.Backend().IngestMusic(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printUpload(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.AddCommand(list, upload, ingest)
	return cmd
}

func presetsCommand(cli *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List generation presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := cli.headless(cmd)
			if err != nil {
				return err
			}
			defer h.Shutdown()

			presets, err := h.Backend().ListPresets(cmd.Context())
			if err != nil {
				return err
			}
			printPresets(cmd.OutOrStdout(), presets)
			return nil
		},
	}
}

func printMusic(w io.Writer, files []domain.CatalogEntry) {
	if len(files) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no music uploaded"))
		return
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-48s %10s", "FILE", "SECONDS")))
	for _, f := range files {
		fmt.Fprintf(w, "%-48s %10.1f\n", f.Filename, f.DurationSeconds)
	}
}

func printUpload(w io.Writer, res domain.UploadResult) {
	name := res.Filename
	if res.Title != "" {
		name = fmt.Sprintf("%s (%s)", res.Filename, res.Title)
	}
	note := ""
	if res.Cached {
		note = dimStyle.Render(" cached")
	}
	fmt.Fprintf(w, "%s %.1f s%s\n", name, res.DurationSeconds, note)
}

func printPresets(w io.Writer, presets []domain.Preset) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%-20s %s", "PRESET", "DESCRIPTION")))
	for _, p := range presets {
		fmt.Fprintf(w, "%-20s %s\n", p.Key, p.Description)
	}
}
