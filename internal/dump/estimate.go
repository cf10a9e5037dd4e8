package dump

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	estimateSampleRecords = 20000
	estimateSampleBytes   = 64 << 20
)

// countingReader tracks how many compressed bytes the decompressor has
// consumed from the underlying file.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// EstimateTotalRecords samples the head of the dump and extrapolates the
// total record count from the compressed-bytes-per-record ratio. The sample
// stops after estimateSampleRecords records or estimateSampleBytes of decoded
// text. Returns ok=false when the dump cannot be opened or the sample yields
// no records. limit > 0 caps the estimate.
//
// The estimate steers progress reporting only; ingestion never depends on it.
func EstimateTotalRecords(path string, limit int) (estimate int64, ok bool) {
	info, err := os.Stat(path)
	if err != nil || info.Size() <= 0 {
		return 0, false
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	counter := &countingReader{r: f}
	var decoded io.Reader
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bz2":
		decoded = bzip2.NewReader(counter)
	case ".gz":
		zr, err := gzip.NewReader(counter)
		if err != nil {
			return 0, false
		}
		defer zr.Close()
		decoded = zr
	default:
		decoded = counter
	}

	lines := bufio.NewReaderSize(decoded, 1<<20)
	var sampledRecords, sampledBytes int64
	reachedEnd := false
	for sampledRecords < estimateSampleRecords && sampledBytes < estimateSampleBytes {
		raw, err := lines.ReadString('\n')
		sampledBytes += int64(len(raw))
		if cleaned, isRecord := cleanDumpLine(raw); isRecord && cleaned != "" {
			sampledRecords++
		}
		if err != nil {
			reachedEnd = err == io.EOF
			break
		}
	}
	if sampledRecords == 0 {
		return 0, false
	}

	if reachedEnd {
		estimate = sampledRecords
	} else {
		// Extrapolate from compressed bytes so the ratio holds for
		// compressed and plain dumps alike.
		consumed := counter.n
		if consumed <= 0 {
			return 0, false
		}
		estimate = info.Size() * sampledRecords / consumed
		if estimate < sampledRecords {
			estimate = sampledRecords
		}
	}
	if limit > 0 && estimate > int64(limit) {
		estimate = int64(limit)
	}
	return estimate, true
}
