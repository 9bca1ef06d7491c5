package config

import (
	"testing"
)

func testConfig() *Config {
	return &Config{
		InputPath:     "/data/snps.tsv",
		Column:        1,
		MaxAttempts:   3,
		RetryDelaySec: 10,
	}
}

func TestFinalizeDefaultsPaths(t *testing.T) {
	tests := []struct {
		input      string
		wantOutput string
		wantLog    string
	}{
		{"/data/snps.tsv", "/data/snps_pubmed_counts.tsv", "/data/snps_pubmed_counts.log"},
		// The output is always plain text, so compression extensions never
		// carry over into the defaulted paths.
		{"/data/snps.txt.gz", "/data/snps_pubmed_counts.txt", "/data/snps_pubmed_counts.log"},
		{"/data/snps.csv.bz2", "/data/snps_pubmed_counts.csv", "/data/snps_pubmed_counts.log"},
		{"/data/snps.tsv.zip", "/data/snps_pubmed_counts.tsv", "/data/snps_pubmed_counts.log"},
		{"noext", "noext_pubmed_counts", "noext_pubmed_counts.log"},
	}

	for _, tt := range tests {
		cfg := testConfig()
		cfg.InputPath = tt.input
		if err := Finalize(cfg); err != nil {
			t.Fatalf("Finalize(%q): %v", tt.input, err)
		}
		if cfg.OutputPath != tt.wantOutput {
			t.Errorf("input %q: output = %q, want %q", tt.input, cfg.OutputPath, tt.wantOutput)
		}
		if cfg.LogPath != tt.wantLog {
			t.Errorf("input %q: log = %q, want %q", tt.input, cfg.LogPath, tt.wantLog)
		}
	}
}

func TestFinalizeKeepsExplicitPaths(t *testing.T) {
	cfg := testConfig()
	cfg.OutputPath = "/tmp/custom.out"
	cfg.LogPath = "/tmp/custom.log"
	if err := Finalize(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.OutputPath != "/tmp/custom.out" || cfg.LogPath != "/tmp/custom.log" {
		t.Errorf("explicit paths overwritten: %q %q", cfg.OutputPath, cfg.LogPath)
	}
}

func TestFinalizeEnvFallbacks(t *testing.T) {
	t.Setenv("PUBCOUNTER_EMAIL", "env@example.org")
	t.Setenv("PUBCOUNTER_TOOL", "")
	t.Setenv("PUBCOUNTER_BASE_URL", "")
	t.Setenv("PUBCOUNTER_LOG_LEVEL", "")
	t.Setenv("PUBCOUNTER_LOG_FORMAT", "")

	cfg := testConfig()
	if err := Finalize(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Email != "env@example.org" {
		t.Errorf("email = %q, want env fallback", cfg.Email)
	}
	if cfg.Tool != "pubcounter" {
		t.Errorf("tool = %q, want default", cfg.Tool)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "console" {
		t.Errorf("log settings = %q/%q, want info/console", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"valid delimiter", func(c *Config) { c.Delimiter = ";" }, true},
		{"missing input", func(c *Config) { c.InputPath = "" }, false},
		{"zero column", func(c *Config) { c.Column = 0 }, false},
		{"negative column", func(c *Config) { c.Column = -2 }, false},
		{"zero attempts", func(c *Config) { c.MaxAttempts = 0 }, false},
		{"negative delay", func(c *Config) { c.RetryDelaySec = -1 }, false},
		{"unknown delimiter", func(c *Config) { c.Delimiter = "#" }, false},
		{"multi-char delimiter", func(c *Config) { c.Delimiter = ",," }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate: %v, want nil", err)
			}
			if !tt.ok && err == nil {
				t.Error("Validate: nil, want error")
			}
		})
	}
}

func TestDelimiterName(t *testing.T) {
	tests := []struct {
		delim byte
		want  string
	}{
		{'\t', "TAB"},
		{' ', "SPACE"},
		{',', "COMMA"},
		{';', "SEMICOLON"},
		{'|', "PIPE"},
		{':', "COLON"},
	}
	for _, tt := range tests {
		if got := DelimiterName(tt.delim); got != tt.want {
			t.Errorf("DelimiterName(%q) = %q, want %q", tt.delim, got, tt.want)
		}
	}
}
