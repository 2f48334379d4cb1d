package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ChamsBouzaiene/nora/internal/config"
	"github.com/ChamsBouzaiene/nora/internal/logging"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// Global flags
	verbose     bool
	personaFile string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "nora",
	Short: "Nora - autonomous companion agent for a game server",
	Long: `Nora connects to a game server through a bridge process, samples the world
on a fixed cadence, asks a language model what to do next, and carries the
decision out behind a chat throttle and a command blacklist.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if personaFile != "" {
			cfg.PersonaFile = personaFile
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.LogJSON)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "nora", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&personaFile, "persona", "", "persona YAML file (overrides NORA_PERSONA_FILE)")

	runCmd.Flags().DurationVar(&cycleInterval, "interval", 0, "decision cycle period (overrides NORA_CYCLE_INTERVAL)")
	journalTailCmd.Flags().IntVarP(&tailLimit, "lines", "n", 20, "number of decisions to print")

	journalCmd.AddCommand(journalTailCmd)
	rootCmd.AddCommand(runCmd, journalCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
