package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ksapi/internal/config"
	"ksapi/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Set up by PersistentPreRunE
	cfg      *config.Config
	logger   *zap.Logger
	logLevel zap.AtomicLevel
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ksapi",
	Short: "ksapi - HTTP assembly service over the Keystone engine",
	Long: `ksapi turns assembly text into machine code.

It validates a request naming an architecture, mode and endianness, runs each
instruction line through the Keystone engine and answers with the encoded
bytes of every line, in order. Lines the engine rejects are reported in place
without failing the rest of the batch.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", configPath, err)
		}
		cfg = loaded

		logger, logLevel, err = logging.New(logging.Options{
			Level:       cfg.Logging.Level,
			Format:      cfg.Logging.Format,
			Development: cfg.Logging.Development,
			OutputPaths: cfg.Logging.OutputPaths(),
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if verbose {
			logLevel.SetLevel(zapcore.DebugLevel)
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
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(assembleCmd)
	rootCmd.AddCommand(targetsCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
