// Package dump decodes streamed entity dumps: one JSON record per line,
// optionally wrapped in a top-level JSON array (leading "[", trailing "]",
// trailing commas), optionally bz2- or gzip-compressed. The whole file is
// never loaded at once.
package dump

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ParseError reports malformed JSON at a specific line of the dump. A
// malformed dump indicates a producer bug, so callers treat it as fatal.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("dump: parse %s line %d: %v", e.Path, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Reader yields parsed entity records one at a time. It is a lazy, finite,
// non-restartable sequence: once Next returns io.EOF the reader is exhausted.
// Not safe for concurrent use.
type Reader struct {
	path    string
	file    *os.File
	gzip    *gzip.Reader
	lines   *bufio.Reader
	line    int
	emitted int
	limit   int
	done    bool
}

// Open prepares a Reader for the dump at path. Compression is selected by
// file extension: ".bz2", ".gz", or none. limit > 0 stops the stream after
// that many entities; limit <= 0 reads to the end.
func Open(path string, limit int) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dump: open: %w", err)
	}

	r := &Reader{path: path, file: f, limit: limit}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bz2":
		r.lines = bufio.NewReaderSize(bzip2.NewReader(f), 1<<20)
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("dump: open gzip %s: %w", path, err)
		}
		r.gzip = zr
		r.lines = bufio.NewReaderSize(zr, 1<<20)
	default:
		r.lines = bufio.NewReaderSize(f, 1<<20)
	}
	return r, nil
}

// Next returns the next entity record. It returns io.EOF when the dump (or
// the configured limit) is exhausted and a *ParseError on malformed JSON.
// Lines that are array framing or not JSON objects are skipped.
func (r *Reader) Next() (map[string]any, error) {
	if r.done {
		return nil, io.EOF
	}
	for {
		if r.limit > 0 && r.emitted >= r.limit {
			r.done = true
			return nil, io.EOF
		}

		raw, err := r.lines.ReadString('\n')
		if raw == "" && err != nil {
			r.done = true
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("dump: read %s: %w", r.path, err)
		}
		r.line++

		cleaned, ok := cleanDumpLine(raw)
		if !ok {
			if err == io.EOF {
				r.done = true
				return nil, io.EOF
			}
			continue
		}

		var parsed any
		if jsonErr := json.Unmarshal([]byte(cleaned), &parsed); jsonErr != nil {
			r.done = true
			return nil, &ParseError{Path: r.path, Line: r.line, Err: jsonErr}
		}

		entity, isObject := parsed.(map[string]any)
		if !isObject {
			if err == io.EOF {
				r.done = true
				return nil, io.EOF
			}
			continue
		}

		r.emitted++
		if err == io.EOF {
			r.done = true
		}
		return entity, nil
	}
}

// Close releases the underlying file handle. Safe to call more than once.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	if r.gzip != nil {
		r.gzip.Close()
		r.gzip = nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// cleanDumpLine strips dump framing from one raw line. It returns ok=false
// for blank lines and the "[" / "]" array wrapper lines.
func cleanDumpLine(raw string) (string, bool) {
	line := strings.TrimSpace(raw)
	if line == "" || line == "[" || line == "]" {
		return "", false
	}
	line = strings.TrimSuffix(line, ",")
	if line == "" {
		return "", false
	}
	return line, true
}
