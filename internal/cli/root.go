// Package cli wires the command line to a configured enrichment run.
package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/variantlab/pubcounter/internal/config"
	"github.com/variantlab/pubcounter/internal/logging"
	"github.com/variantlab/pubcounter/internal/metrics"
	"github.com/variantlab/pubcounter/internal/pubmed"
	"github.com/variantlab/pubcounter/internal/sniff"
	"github.com/variantlab/pubcounter/internal/stream"
)

var (
	outputPath    string
	logPath       string
	delimiter     string
	email         string
	maxRetries    int
	retryDelaySec int
	noProgress    bool
)

var rootCmd = &cobra.Command{
	Use:   "pubcounter <input-file> <column-number>",
	Short: "Append PubMed hit counts to a delimited file",
	Long: `pubcounter reads a delimited text file, queries PubMed once per row with
the value found in the given 1-based column, and writes a copy of the file
with the hit count appended as a new trailing column. Rows whose lookups
fail after every retry are marked with -1.`,
	Args:         cobra.ExactArgs(2),
	RunE:         run,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path (default: <input>_pubmed_counts<ext>)")
	rootCmd.Flags().StringVarP(&logPath, "log", "l", "", "log file path (default: <input>_pubmed_counts.log)")
	rootCmd.Flags().StringVarP(&delimiter, "delimiter", "d", "", "field delimiter (default: auto-detected)")
	rootCmd.Flags().StringVarP(&email, "email", "e", "", "contact e-mail forwarded to NCBI with every query")
	rootCmd.Flags().IntVarP(&maxRetries, "max-retries", "m", 3, "maximum attempts per query")
	rootCmd.Flags().IntVarP(&retryDelaySec, "retry-delay", "r", 10, "seconds to pause between attempts")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
}

func run(cmd *cobra.Command, args []string) error {
	printBanner()

	column, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("column number %q is not an integer", args[1])
	}

	cfg := &config.Config{
		InputPath:     args[0],
		Column:        column,
		OutputPath:    outputPath,
		LogPath:       logPath,
		Delimiter:     delimiter,
		Email:         email,
		MaxAttempts:   maxRetries,
		RetryDelaySec: retryDelaySec,
		ShowProgress:  !noProgress,
	}
	if err := config.Finalize(cfg); err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogPath, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer logger.Sync()

	logger.Info("Starting PubCounter run",
		zap.String("input", cfg.InputPath),
		zap.Int("column", cfg.Column),
		zap.String("output", cfg.OutputPath),
		zap.String("log", cfg.LogPath),
		zap.String("email", cfg.Email),
		zap.Int("max_retries", cfg.MaxAttempts),
		zap.Int("retry_delay_sec", cfg.RetryDelaySec))

	if cfg.Delimiter == "" {
		detected, err := sniff.DetectDelimiter(cfg.InputPath)
		if err != nil {
			logger.Warn("Could not detect delimiter, defaulting to tab", zap.Error(err))
			detected = '\t'
		}
		cfg.Delimiter = string(detected)
	}
	logger.Info("Using delimiter", zap.String("delimiter", config.DelimiterName(cfg.Delimiter[0])))

	collector := metrics.NewCollector(logger)
	client := pubmed.NewClient(cfg.BaseURL, cfg.Email, cfg.Tool)
	engine := pubmed.NewEngine(client, logger, collector)
	driver := stream.NewDriver(engine, logger, collector)

	rows, err := driver.Run(cmd.Context(), stream.RunConfig{
		InputPath:  cfg.InputPath,
		OutputPath: cfg.OutputPath,
		Delimiter:  cfg.Delimiter,
		Column:     cfg.Column,
		Policy: pubmed.RetryPolicy{
			MaxAttempts: cfg.MaxAttempts,
			Delay:       time.Duration(cfg.RetryDelaySec) * time.Second,
		},
		ShowProgress: cfg.ShowProgress,
	})
	collector.LogSummary()
	if err != nil {
		logger.Error("An error occurred during processing", zap.Error(err))
		return err
	}

	logger.Info("Run complete",
		zap.Int("rows", rows),
		zap.String("output", cfg.OutputPath))
	return nil
}

func printBanner() {
	banner := figure.NewFigure("PubCounter", "slant", true)
	fmt.Printf("%s\n%s\n\n",
		color.CyanString(banner.String()),
		color.GreenString("PubMed hit counting for delimited files"))
}
