// Package cmd implements the CLI commands using Cobra.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"anicat/internal/config"
	"anicat/internal/logging"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Global flags
var (
	flagDownload string
	flagQuality  string
	flagPlayer   string
	flagJSON     bool
	flagDebug    bool
)

// cfg holds the loaded configuration (merged: defaults < config file < flags).
var cfg *config.Config

// svc is built once the configuration is known.
var svc *app

var rootCmd = &cobra.Command{
	Use:   "anicat [query]",
	Short: "Browse and stream anime from the terminal",
	Long: `anicat searches the yani.tv catalog, groups each title's embeds by player,
dubbing and episode, and resolves embeds into direct streams for mpv/vlc.`,
	Args:              cobra.ArbitraryArgs,
	PersistentPreRunE: loadConfig,
	PersistentPostRun: shutdown,
	RunE:              searchRun,
	SilenceUsage:      true,
}

// versionCmd skips config loading.
var versionCmd = &cobra.Command{
	Use:               "version",
	Short:             "Print the version",
	Args:              cobra.NoArgs,
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "anicat", Version)
	},
}

// Execute runs the root command. Ctrl-C cancels in-flight lookups.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDownload, "download", "d", "", "Download to directory instead of playing")
	rootCmd.PersistentFlags().StringVarP(&flagQuality, "quality", "q", "", "Preferred quality: 360 | 480 | 720 | 1080")
	rootCmd.PersistentFlags().StringVar(&flagPlayer, "player", "", "Media player: mpv | vlc | iina | celluloid")
	rootCmd.PersistentFlags().BoolVarP(&flagJSON, "json", "j", false, "Print results as JSON instead of playing")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "x", false, "Debug logging to stderr")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(ongoingCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and merges configuration: defaults < config file < CLI flags.
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config file values
	if flagPlayer != "" {
		cfg.Player = flagPlayer
	}
	if flagQuality != "" {
		cfg.Quality = flagQuality
	}
	if flagDebug {
		cfg.Debug = true
	}

	// Re-validate after flag overrides
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level := cfg.LogLevel
	if cfg.Debug {
		level = logrus.DebugLevel.String()
	}
	logging.Setup(os.Stderr, level, cfg.LogJSON)

	svc, err = newApp(cfg, logrus.StandardLogger())
	if err != nil {
		return fmt.Errorf("initializing: %w", err)
	}
	svc.Start()
	return nil
}

func shutdown(*cobra.Command, []string) {
	if svc != nil {
		svc.Stop()
	}
}

// debugf logs a message if debug mode is enabled.
func debugf(format string, args ...interface{}) {
	logrus.Debugf(format, args...)
}
