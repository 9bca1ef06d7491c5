// Package sniff opens possibly-compressed delimited text files and guesses
// their separator character from a short sample.
package sniff

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/saintfish/chardet"
	"github.com/yeka/zip"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"github.com/variantlab/pubcounter/internal/config"
)

const (
	sampleBytes = 4096
	sampleLines = 5
)

// Open returns a sequential reader over the file's text content, decompressing
// .gz, .bz2 and .zip inputs transparently. Zip archives are read from their
// first regular entry.
func Open(path string) (io.ReadCloser, error) {
	path = config.ExpandUser(path)

	switch {
	case strings.HasSuffix(path, ".gz"):
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		gz, err := gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		return &compositeReadCloser{reader: gz, closers: []io.Closer{gz, file}}, nil

	case strings.HasSuffix(path, ".bz2"):
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		return &compositeReadCloser{reader: bzip2.NewReader(file), closers: []io.Closer{file}}, nil

	case strings.HasSuffix(path, ".zip"):
		archive, err := zip.OpenReader(path)
		if err != nil {
			return nil, fmt.Errorf("open zip archive: %w", err)
		}
		for _, entry := range archive.File {
			if entry.FileInfo().IsDir() {
				continue
			}
			rc, err := entry.Open()
			if err != nil {
				archive.Close()
				return nil, fmt.Errorf("open zip entry %s: %w", entry.Name, err)
			}
			return &compositeReadCloser{reader: rc, closers: []io.Closer{rc, archive}}, nil
		}
		archive.Close()
		return nil, fmt.Errorf("zip archive %s has no file entries", path)

	default:
		return os.Open(path)
	}
}

type compositeReadCloser struct {
	reader  io.Reader
	closers []io.Closer
}

func (c *compositeReadCloser) Read(p []byte) (int, error) { return c.reader.Read(p) }

func (c *compositeReadCloser) Close() error {
	var firstErr error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DetectDelimiter reads the first few lines of the file and returns the
// separator that appears a consistent, positive number of times on every
// line. Candidates are tried in the order of config.ValidDelimiters, so the
// more common separators win ties.
func DetectDelimiter(path string) (byte, error) {
	rc, err := Open(path)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	sample := make([]byte, sampleBytes)
	n, err := io.ReadFull(rc, sample)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return 0, fmt.Errorf("read sample: %w", err)
	}
	sample = sample[:n]
	if len(sample) == 0 {
		return 0, fmt.Errorf("file %s is empty", path)
	}

	lines := sampleTextLines(toUTF8(sample))
	if len(lines) == 0 {
		return 0, fmt.Errorf("file %s has no text lines to sample", path)
	}

	for _, candidate := range []byte(config.ValidDelimiters) {
		if consistentCount(lines, candidate) {
			return candidate, nil
		}
	}
	return 0, fmt.Errorf("no consistent delimiter found in the first %d lines", len(lines))
}

// toUTF8 detects the sample's character encoding and converts it to UTF-8 so
// the per-line counting below sees real characters. Detection is best-effort:
// when it is inconclusive the sample is used as-is.
func toUTF8(sample []byte) []byte {
	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(sample)
	if err != nil || result == nil || strings.EqualFold(result.Charset, "UTF-8") {
		return sample
	}

	enc, err := ianaindex.IANA.Encoding(result.Charset)
	if err != nil || enc == nil {
		return sample
	}
	converted, _, err := transform.Bytes(enc.NewDecoder(), sample)
	if err != nil {
		return sample
	}
	return converted
}

// sampleTextLines returns up to sampleLines complete lines. The final line of
// the sample is dropped unless it ends the sample with a newline, because a
// truncated line would skew the counts.
func sampleTextLines(sample []byte) []string {
	var all []string
	scanner := bufio.NewScanner(bytes.NewReader(sample))
	for scanner.Scan() {
		all = append(all, strings.TrimRight(scanner.Text(), "\r"))
	}

	// A full-size sample that does not end in a newline cut its last line
	// short somewhere mid-field.
	if len(all) > 1 && len(sample) == sampleBytes && !bytes.HasSuffix(sample, []byte("\n")) {
		all = all[:len(all)-1]
	}

	var lines []string
	for _, line := range all {
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == sampleLines {
			break
		}
	}
	return lines
}

func consistentCount(lines []string, delim byte) bool {
	want := strings.Count(lines[0], string(delim))
	if want == 0 {
		return false
	}
	for _, line := range lines[1:] {
		if strings.Count(line, string(delim)) != want {
			return false
		}
	}
	return true
}
