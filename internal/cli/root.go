// Package cli provides the command-line interface for QuantLens.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dyike/QuantLens/config"
	"github.com/dyike/QuantLens/internal/dataflows"
	"github.com/dyike/QuantLens/internal/logger"
)

// Version is set at build time with -ldflags "-X github.com/dyike/QuantLens/internal/cli.Version=...".
var Version = "dev"

// app is the state shared by every command once the root pre-run has loaded it.
type app struct {
	configPath string
	cfg        *config.Config
	logger     zerolog.Logger

	// newHistory builds the price provider; tests replace it.
	newHistory func(cfg *config.Config, logger zerolog.Logger) dataflows.HistoryProvider
	// interactive reports whether prompts may be shown.
	interactive func() bool
}

func newApp() *app {
	return &app{
		logger: zerolog.Nop(),
		newHistory: func(cfg *config.Config, logger zerolog.Logger) dataflows.HistoryProvider {
			return dataflows.NewRouter(cfg, logger)
		},
		interactive: stdinIsTerminal,
	}
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	return newRootCmd(newApp())
}

func newRootCmd(a *app) *cobra.Command {
	var (
		debug     bool
		logFormat string
	)

	rootCmd := &cobra.Command{
		Use:   "quantlens",
		Short: "QuantLens - volatility statistics and AI market commentary",
		Long: `QuantLens fetches daily price history for a ticker, computes volatility statistics
and EMA trends, and asks a language model for an options-oriented analysis with
numbered source citations.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if path == "" {
				var err error
				if path, err = config.DefaultPath(); err != nil {
					return err
				}
				a.configPath = path
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if debug {
				cfg.Debug = true
				cfg.LogLevel = "debug"
			}
			if logFormat != "" {
				cfg.LogFormat = logFormat
			}
			a.cfg = cfg

			l, err := logger.Setup(logger.Config{
				Level:  cfg.LogLevel,
				Format: cfg.LogFormat,
				Output: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			a.logger = l
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console or json")

	rootCmd.AddCommand(
		newAnalyzeCmd(a),
		newStatsCmd(a),
		newCleanCmd(a),
		newHistoryCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// Run executes the root command and exits non-zero on failure.
func Run() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func stdinIsTerminal() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "QuantLens %s\n", Version)
}
