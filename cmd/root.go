package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mj1618/desktop-narrator/internal/config"
	"github.com/mj1618/desktop-narrator/internal/logging"
	"github.com/mj1618/desktop-narrator/internal/output"
	"github.com/mj1618/desktop-narrator/internal/version"
)

var (
	cfg    = config.Default()
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "desktop-narrator",
	Short: "Replay accessibility notifications and narrate them",
	Long: `A screen-reader core that turns accessibility notifications into spoken output.

Scripts describe applications, their element trees and a sequence of
notifications (focus changes, selection changes, value changes). Replaying a
script runs them through the observer manager, the focus trackers and the
selection echo, and prints every output job that would have been spoken.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version.String()
	rootCmd.PersistentFlags().String("config", "", "Config file (.toml, .yaml, .json; default: user config dir)")
	rootCmd.PersistentFlags().String("format", "", "Output format: yaml, json")
	rootCmd.PersistentFlags().Bool("pretty", false, "Pretty-print JSON output")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		path, _ := rootCmd.PersistentFlags().GetString("config")
		if path == "" {
			path = config.DefaultPath()
		}
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// Flags win over the config file and the environment.
		if format, _ := rootCmd.PersistentFlags().GetString("format"); format != "" {
			loaded.Output.Format = format
		}
		if pretty, _ := rootCmd.PersistentFlags().GetBool("pretty"); pretty {
			loaded.Output.Pretty = true
		}
		if level, _ := rootCmd.PersistentFlags().GetString("log-level"); level != "" {
			loaded.Logging.Level = level
		}

		format, err := output.ParseFormat(loaded.Output.Format)
		if err != nil {
			return fmt.Errorf("%w (use yaml or json)", err)
		}
		output.OutputFormat = format
		output.PrettyOutput = loaded.Output.Pretty

		l, err := logging.New(loaded.Logging)
		if err != nil {
			return err
		}
		cfg, logger = loaded, l
		return nil
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	}
}
