package ner

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Override replaces the lexical typer's output for one entity.
type Override struct {
	Coarse []string
	Fine   []string
}

var validTypeLabel = regexp.MustCompile(`^[A-Za-z0-9_\-./:]+$`)

// LoadOverrides reads a precomputed type map: one JSON object per line with
// an "id" and optional "coarse_types" / "fine_types" arrays (the legacy
// "ner_coarse_types" / "ner_fine_types" keys are accepted too). Files ending
// in ".gz" are decompressed. Later lines win on duplicate IDs.
func LoadOverrides(path string) (map[string]Override, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ner: open overrides: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.EqualFold(filepath.Ext(path), ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("ner: open overrides %s: %w", path, err)
		}
		defer zr.Close()
		reader = zr
	}

	overrides := map[string]Override{}
	lines := bufio.NewReaderSize(reader, 1<<20)
	for lineNumber := 1; ; lineNumber++ {
		raw, readErr := lines.ReadString('\n')
		line := strings.TrimSpace(raw)
		if line != "" {
			record, err := parseOverrideLine(line)
			if err != nil {
				return nil, fmt.Errorf("ner: overrides %s line %d: %w", path, lineNumber, err)
			}
			overrides[record.id] = Override{Coarse: record.coarse, Fine: record.fine}
		}
		if readErr == io.EOF {
			return overrides, nil
		}
		if readErr != nil {
			return nil, fmt.Errorf("ner: read overrides %s: %w", path, readErr)
		}
	}
}

type overrideRecord struct {
	id     string
	coarse []string
	fine   []string
}

func parseOverrideLine(line string) (overrideRecord, error) {
	var parsed struct {
		ID           string   `json:"id"`
		CoarseTypes  []string `json:"coarse_types"`
		FineTypes    []string `json:"fine_types"`
		LegacyCoarse []string `json:"ner_coarse_types"`
		LegacyFine   []string `json:"ner_fine_types"`
	}
	if err := json.Unmarshal([]byte(line), &parsed); err != nil {
		return overrideRecord{}, fmt.Errorf("parse: %w", err)
	}

	id := strings.TrimSpace(parsed.ID)
	if id == "" {
		return overrideRecord{}, fmt.Errorf("missing string field %q", "id")
	}

	coarseRaw := parsed.CoarseTypes
	if coarseRaw == nil {
		coarseRaw = parsed.LegacyCoarse
	}
	fineRaw := parsed.FineTypes
	if fineRaw == nil {
		fineRaw = parsed.LegacyFine
	}

	coarse, err := normalizeTypeList(coarseRaw, "coarse_types")
	if err != nil {
		return overrideRecord{}, err
	}
	fine, err := normalizeTypeList(fineRaw, "fine_types")
	if err != nil {
		return overrideRecord{}, err
	}
	return overrideRecord{id: id, coarse: coarse, fine: fine}, nil
}

func normalizeTypeList(raw []string, field string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	for _, item := range raw {
		value := strings.TrimSpace(item)
		if value == "" {
			continue
		}
		if !validTypeLabel.MatchString(value) {
			return nil, fmt.Errorf("%s value %q has unsupported characters", field, item)
		}
		if !seen[value] {
			seen[value] = true
			out = append(out, value)
		}
	}
	return out, nil
}
