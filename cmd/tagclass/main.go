package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tagclass/cmd/tagclass/ui"
	"tagclass/internal/config"
	"tagclass/internal/logging"
	"tagclass/internal/vocab"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// Global flags
	verbose    bool
	configPath string
	vocabDir   string

	cfg    *config.Config
	styles = ui.DefaultStyles()

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tagclass",
	Short: "tagclass - malware label tagging and vocabulary learning",
	Long: `tagclass splits anti-malware engine labels into tags and files them under
behavior, platform, method, family and modifier.

The vocabulary grows with the incremental update loop: LFS infers families
from the position of known locators, CFS proposes new locators from the
tags that co-occur with known families.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if vocabDir != "" {
			cfg.Vocabulary.Dir = vocabDir
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := logging.Initialize(cfg.Logging.Logging()); err != nil {
			return err
		}
		logging.Boot("tagclass %s, vocabulary %s", version, cfg.Vocabulary.Dir)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tagclass version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), version)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "tagclass.yaml", "Config file")
	rootCmd.PersistentFlags().StringVar(&vocabDir, "vocab-dir", "", "Vocabulary directory (default from config)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(tokenizeCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(aliasCmd)
	rootCmd.AddCommand(candidatesCmd)
	rootCmd.AddCommand(checkpointsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, styles.Error.Render("error:"), err)
		os.Exit(1)
	}
}

// commandContext is cancelled on SIGINT or SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// loadVocabulary loads the configured vocabulary files. Missing files are
// skipped.
func loadVocabulary(ignorePending bool) (*vocab.Vocabulary, error) {
	var paths []string
	for _, p := range cfg.Vocabulary.Files() {
		if _, err := os.Stat(p); err != nil {
			logger.Warn("Vocabulary file not found", zap.String("path", p))
			continue
		}
		paths = append(paths, p)
	}
	voc, err := vocab.LoadFiles(paths, ignorePending)
	if err != nil {
		return nil, err
	}
	logger.Debug("Loaded vocabulary", zap.Int("records", voc.Len()), zap.Strings("files", paths))
	return voc, nil
}
