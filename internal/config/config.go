package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// ValidDelimiters is the fixed set of separator characters the tool accepts,
// both for manual selection and for auto-detection.
const ValidDelimiters = ", \t;|:"

type Config struct {
	// Input
	InputPath string
	Column    int // 1-based

	// Output
	OutputPath string
	LogPath    string

	// Delimiter is a single character, or empty to auto-detect.
	Delimiter string

	// Remote service
	Email   string
	Tool    string
	BaseURL string

	// Retry policy
	MaxAttempts   int
	RetryDelaySec int

	// Logging
	LogLevel  string
	LogFormat string

	// UI
	ShowProgress bool
}

// Finalize loads environment fallbacks and derives the defaulted output and
// log paths from the input path, then validates the result.
func Finalize(cfg *Config) error {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg.InputPath = ExpandUser(cfg.InputPath)

	if cfg.Email == "" {
		cfg.Email = getEnv("PUBCOUNTER_EMAIL", "null@example.com")
	}
	if cfg.Tool == "" {
		cfg.Tool = getEnv("PUBCOUNTER_TOOL", "pubcounter")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = getEnv("PUBCOUNTER_BASE_URL", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = getEnv("PUBCOUNTER_LOG_LEVEL", "info")
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = getEnv("PUBCOUNTER_LOG_FORMAT", "console")
	}

	base, ext := splitExt(stripCompressionExt(cfg.InputPath))
	if cfg.OutputPath == "" {
		cfg.OutputPath = base + "_pubmed_counts" + ext
	}
	if cfg.LogPath == "" {
		cfg.LogPath = base + "_pubmed_counts.log"
	}

	return cfg.Validate()
}

func (c *Config) Validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("input file path is required")
	}
	if c.Column < 1 {
		return fmt.Errorf("column number must be >= 1, got %d", c.Column)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max retries must be >= 1, got %d", c.MaxAttempts)
	}
	if c.RetryDelaySec < 0 {
		return fmt.Errorf("retry delay must be >= 0, got %d", c.RetryDelaySec)
	}
	if c.Delimiter != "" {
		if len(c.Delimiter) != 1 || !strings.Contains(ValidDelimiters, c.Delimiter) {
			return fmt.Errorf("delimiter %q is not one of the supported separators", c.Delimiter)
		}
	}
	return nil
}

// DelimiterName returns a human-readable name for a separator character.
func DelimiterName(d byte) string {
	switch d {
	case '\t':
		return "TAB"
	case ' ':
		return "SPACE"
	case ',':
		return "COMMA"
	case ';':
		return "SEMICOLON"
	case '|':
		return "PIPE"
	case ':':
		return "COLON"
	default:
		return fmt.Sprintf("%q", d)
	}
}

// ExpandUser replaces a leading ~ with the current user's home directory.
func ExpandUser(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// splitExt splits a path into everything before the final extension and the
// extension itself, like Python's os.path.splitext.
func splitExt(path string) (string, string) {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext), ext
}

// stripCompressionExt drops a trailing compression extension so defaulted
// output paths never suggest the plain-text output is compressed.
func stripCompressionExt(path string) string {
	for _, ext := range []string{".gz", ".bz2", ".zip"} {
		if strings.HasSuffix(path, ext) {
			return strings.TrimSuffix(path, ext)
		}
	}
	return path
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
