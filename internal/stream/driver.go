// Package stream drives the lookup engine across every data row of a
// delimited input file, producing the augmented output file row by row.
package stream

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"go.uber.org/zap"

	"github.com/variantlab/pubcounter/internal/metrics"
	"github.com/variantlab/pubcounter/internal/pubmed"
	"github.com/variantlab/pubcounter/internal/sniff"
)

const (
	previewRows = 5

	// hitsColumnPrefix names the appended header field; the run date in
	// MMDDYY form is attached at runtime.
	hitsColumnPrefix = "pubmed_hits_"

	maxLineBytes = 1024 * 1024
)

// RunConfig is the resolved per-run input for the driver.
type RunConfig struct {
	InputPath  string
	OutputPath string
	Delimiter  string // single character
	Column     int    // 1-based
	Policy     pubmed.RetryPolicy

	ShowProgress bool
}

// Driver streams the input once to preview and count, then once more to
// enrich every row. The output is flushed after every written row, so an
// interrupted run always leaves a valid file ending on a complete row.
type Driver struct {
	resolver pubmed.Resolver
	logger   *zap.Logger
	metrics  *metrics.Collector
}

func NewDriver(resolver pubmed.Resolver, logger *zap.Logger, metrics *metrics.Collector) *Driver {
	return &Driver{
		resolver: resolver,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run enriches every data row of the input and returns the number of rows
// written. Any file-level fault aborts the run; rows flushed before the
// fault remain on disk.
func (d *Driver) Run(ctx context.Context, cfg RunConfig) (int, error) {
	totalLines, err := d.previewAndCount(cfg)
	if err != nil {
		return 0, err
	}
	if totalLines == 0 {
		return 0, fmt.Errorf("input file %s is empty", cfg.InputPath)
	}

	// Compressed streams cannot seek, so the second pass reopens instead of
	// rewinding.
	in, err := sniff.Open(cfg.InputPath)
	if err != nil {
		return 0, fmt.Errorf("open input file: %w", err)
	}
	defer in.Close()

	out, err := os.Create(cfg.OutputPath)
	if err != nil {
		return 0, fmt.Errorf("create output file: %w", err)
	}
	defer out.Close()

	writer := bufio.NewWriter(out)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	if err := d.writeHeader(scanner, writer, cfg.Delimiter); err != nil {
		return 0, err
	}

	var bar *pb.ProgressBar
	if cfg.ShowProgress {
		bar = pb.StartNew(totalLines - 1)
		defer bar.Finish()
	}

	processed := 0
	lineNo := 1
	for scanner.Scan() {
		lineNo++
		if bar != nil {
			bar.Increment()
		}

		line := strings.TrimSpace(scanner.Text())
		fields := strings.Split(line, cfg.Delimiter)
		if cfg.Column > len(fields) {
			d.logger.Warn("Skipping malformed row",
				zap.Int("line", lineNo),
				zap.Int("fields", len(fields)),
				zap.Int("column", cfg.Column))
			d.metrics.RecordRowSkipped()
			continue
		}

		key := fields[cfg.Column-1]
		count := d.resolver.Resolve(ctx, key, cfg.Policy)

		if _, err := fmt.Fprintf(writer, "%s%s%d\n", line, cfg.Delimiter, count); err != nil {
			return processed, fmt.Errorf("write output row: %w", err)
		}
		// Flush before reading the next line so a crash mid-run leaves a
		// valid, truncated output file.
		if err := writer.Flush(); err != nil {
			return processed, fmt.Errorf("flush output: %w", err)
		}

		processed++
		d.metrics.RecordRowProcessed()
	}
	if err := scanner.Err(); err != nil {
		return processed, fmt.Errorf("read input: %w", err)
	}

	d.logger.Info("Processing complete", zap.Int("rows", processed))
	return processed, nil
}

// previewAndCount streams the input once, logging the target column of the
// first few well-formed lines and counting every line for the progress
// total. Lines too short for the column are left out of the preview without
// complaint.
func (d *Driver) previewAndCount(cfg RunConfig) (int, error) {
	in, err := sniff.Open(cfg.InputPath)
	if err != nil {
		return 0, fmt.Errorf("open input file: %w", err)
	}
	defer in.Close()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	total := 0
	var preview []string
	for scanner.Scan() {
		total++
		if total > previewRows {
			continue
		}
		fields := strings.Split(strings.TrimSpace(scanner.Text()), cfg.Delimiter)
		if cfg.Column <= len(fields) {
			preview = append(preview, fields[cfg.Column-1])
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("scan input: %w", err)
	}

	d.logger.Info("Preview of column data", zap.Int("column", cfg.Column))
	for _, value := range preview {
		d.logger.Info(value)
	}
	return total, nil
}

// writeHeader copies the input header to the output with the dated hits
// column appended.
func (d *Driver) writeHeader(scanner *bufio.Scanner, writer *bufio.Writer, delim string) error {
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		return fmt.Errorf("input has no header line")
	}

	header := strings.TrimSpace(scanner.Text())
	stamp := time.Now().Format("010206")
	if _, err := fmt.Fprintf(writer, "%s%s%s%s\n", header, delim, hitsColumnPrefix, stamp); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush header: %w", err)
	}

	d.logger.Info("Header processed and written to output file")
	return nil
}
