// recall answers natural-language questions against a personal archive
// of recorded meetings, grounding every claim in quoted evidence.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"recall/internal/config"
)

var (
	// Global flags
	configPath string
	ownerID    string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "recall - evidence-grounded Q&A over your recorded meetings",
	Long: `recall answers questions against your meeting archive: transcripts,
attached documents, and generated summaries. Every claim in an answer is
backed by a quoted piece of evidence with a link to its source.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		zapCfg := zap.NewProductionConfig()
		if !cfg.Logging.JSON {
			zapCfg.Encoding = "console"
		}
		level, lvlErr := zapcore.ParseLevel(cfg.Logging.Level)
		if lvlErr != nil {
			level = zapcore.InfoLevel
		}
		if verbose {
			level = zapcore.DebugLevel
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)

		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "recall.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&ownerID, "owner", os.Getenv("RECALL_OWNER"), "owner id scoping every query")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(threadsCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("recall 0.3.0")
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
