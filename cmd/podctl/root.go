package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Ratio1/pod_sdk_go/internal/config"
	"github.com/Ratio1/pod_sdk_go/internal/logging"
	"github.com/Ratio1/pod_sdk_go/pkg/pod"
	"github.com/Ratio1/pod_sdk_go/pkg/pod_sdk"
)

// app carries what PersistentPreRunE resolved for the subcommands.
type app struct {
	out    io.Writer
	logger *slog.Logger
	client *pod.Client
	mode   string
	strict bool
}

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		configPath string
		podURL     string
		logLevel   string
	)
	a := &app{out: out}

	rootCmd := &cobra.Command{
		Use:   "podctl",
		Short: "Read and write line resources on a Solid pod",
		Long: `podctl creates containers and publishes, reads and appends newline
separated items on a Solid/LDP pod.

Failures are logged and ignored unless --strict is set, in which case the
command exits with an error.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("pod") {
				if cfg.Mode == pod_sdk.ModeMock {
					return fmt.Errorf("--pod cannot be used with mode %q", cfg.Mode)
				}
				cfg.URL = podURL
				if cfg.Mode == pod_sdk.ModeAuto {
					cfg.Mode = pod_sdk.ModeHTTP
				}
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, _, err := logging.Setup(cfg.LogLevel)
			if err != nil {
				return err
			}
			a.logger = logger.With("command", cmd.Name())
			a.logger.Debug("command started", "mode", cfg.Mode, "pod", cfg.Redacted())

			client, mode, err := pod_sdk.NewFromSettings(cfg.Settings(), cfg.ClientOptions(a.logger)...)
			if err != nil {
				return err
			}
			a.client, a.mode = client, mode
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path to a TOML configuration file")
	flags.StringVarP(&podURL, "pod", "p", "", "pod root URL (overrides POD_URL)")
	flags.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	flags.BoolVar(&a.strict, "strict", false, "exit with an error instead of logging failures")

	rootCmd.AddCommand(
		newCreateContainerCmd(a),
		newPublishCmd(a),
		newReadCmd(a),
		newUpdateCmd(a),
	)
	return rootCmd
}
