package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// WriteTriggerFile writes test command lines, sorted, one per line. The file
// is always replaced so a run without changes leaves it empty.
func WriteTriggerFile(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("writing trigger file: creating directory: %w", err)
	}
	sorted := append([]string(nil), lines...)
	sort.Strings(sorted)

	var b strings.Builder
	for _, line := range sorted {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := writeFileAtomic(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing trigger file: %w", err)
	}
	return nil
}

// ReadTriggerFile returns the non-empty lines of a trigger file.
func ReadTriggerFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading trigger file: %w", err)
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}
