package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/uapsignal/signalscope/internal/app"
	"github.com/uapsignal/signalscope/internal/config"
)

// cliContext carries configuration shared by all subcommands.
type cliContext struct {
	v          *viper.Viper
	configFile string
	settings   *config.Settings
}

func newRootCommand() *cobra.Command {
	cli := &cliContext{v: config.New()}

	rootCmd := &cobra.Command{
		Use:          "signalscope",
		Short:        "Generate and visualize UAP attraction signals",
		SilenceUsage: true,
		Version:      app.GetVersionInfo().String(),
	}

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load(cli.v, cli.configFile)
		if err != nil {
			return err
		}
		cli.settings = settings
		return nil
	}

	if err := setupFlags(rootCmd, cli); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(
		uiCommand(cli),
		generateCommand(cli),
		renderCommand(cli),
		musicCommand(cli),
		presetsCommand(cli),
		versionCommand(),
	)
	return rootCmd
}

// setupFlags defines flags that are global to the command line interface.
func setupFlags(rootCmd *cobra.Command, cli *cliContext) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cli.configFile, "config", "c", "", "Path to a signalscope.yaml file")
	flags.String("backend", "", "Generation backend base URL")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: text or json")
	flags.String("metrics-listen", "", "Serve Prometheus metrics on this address")
	flags.Int("width", 0, "Visualization width in pixels")
	flags.Int("height", 0, "Visualization height in pixels")

	bindings := map[string]string{
		"backend.url":    "backend",
		"log.level":      "log-level",
		"log.format":     "log-format",
		"metrics.listen": "metrics-listen",
		"render.width":   "width",
		"render.height":  "height",
	}
	for key, flag := range bindings {
		if err := cli.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

func (cli *cliContext) appConfig(cmd *cobra.Command) app.Config {
	cfg := app.DefaultConfig(*cli.settings)
	cfg.LogOutput = cmd.ErrOrStderr()
	return cfg
}

// headless builds a headless runner that reports to the command's output.
func (cli *cliContext) headless(cmd *cobra.Command) (*app.Headless, error) {
	return app.NewHeadless(cli.appConfig(cmd), cmd.OutOrStdout())
}

// signalContext is cancelled on interrupt.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}

func uiCommand(cli *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Open the desktop window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := app.NewApplication(cli.appConfig(cmd))
			if err != nil {
				return fmt.Errorf("failed to create application: %w", err)
			}
			defer func() {
				if err := application.Shutdown(); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Shutdown error: %v\n", err)
				}
			}()

			// Blocks until the window is closed
			return application.Run()
		},
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.GetVersionInfo().FullString())
		},
	}
}
