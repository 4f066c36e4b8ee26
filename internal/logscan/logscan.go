// Package logscan scans captured engine output for fatal markers and known
// metric lines. It is pure text analysis: it knows nothing about processes,
// exit codes, or the pipeline's own bookkeeping, and is tested against
// literal fixture text.
package logscan

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"

	simerrors "github.com/rimuru/simpipe/internal/errors"
)

// fatalMarkers are the fixed keywords whose presence anywhere in a stage log
// is interpreted as a fatal-failure signal, regardless of the engine's exit
// code. Matching is case-insensitive substring search.
var fatalMarkers = []string{
	"ERROR",
	"Fatal",
	"Segmentation fault",
	"MPI_ABORT",
	"out of memory",
	"Killed",
}

// Markers returns a copy of the fatal marker set.
func Markers() []string {
	out := make([]string, len(fatalMarkers))
	copy(out, fatalMarkers)
	return out
}

// MetricPattern maps a human-readable label to the line pattern that carries
// that metric in the engine's output.
type MetricPattern struct {
	Label   string
	Pattern *regexp.Regexp
}

// Metric is one extracted metric: the label from the pattern table and the
// literal matched line, untouched.
type Metric struct {
	Label string
	Line  string
}

// ScanResult is the outcome of scanning one log.
type ScanResult struct {
	// FatalMarker is the first marker found in the text, empty when clean.
	FatalMarker string
	// Metrics holds, in table order, the last matching line for each pattern
	// that matched at all. Patterns with no match are omitted.
	Metrics []Metric
}

// Failed reports whether the scan found a fatal marker.
func (r ScanResult) Failed() bool {
	return r.FatalMarker != ""
}

// Lines in engine logs are normally short, but dump-style output can produce
// very long ones.
const maxLineSize = 1024 * 1024

// Scan reads the log text once, recording the first fatal marker and the
// last line matching each pattern in the table.
func Scan(r io.Reader, table []MetricPattern) (ScanResult, error) {
	var result ScanResult
	lastMatch := make(map[string]string, len(table))

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()

		if result.FatalMarker == "" {
			if marker := matchMarker(line); marker != "" {
				result.FatalMarker = marker
			}
		}

		for _, mp := range table {
			if mp.Pattern.MatchString(line) {
				lastMatch[mp.Label] = line
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return ScanResult{}, simerrors.Wrap(err, "scanning log")
	}

	for _, mp := range table {
		if line, ok := lastMatch[mp.Label]; ok {
			result.Metrics = append(result.Metrics, Metric{Label: mp.Label, Line: line})
		}
	}
	return result, nil
}

// ScanFile opens and scans a log file.
func ScanFile(path string, table []MetricPattern) (ScanResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ScanResult{}, simerrors.Wrapf(err, "opening log %s", path)
	}
	defer f.Close()

	return Scan(f, table)
}

// matchMarker returns the first fatal marker the line contains, or "".
func matchMarker(line string) string {
	lower := strings.ToLower(line)
	for _, marker := range fatalMarkers {
		if strings.Contains(lower, strings.ToLower(marker)) {
			return marker
		}
	}
	return ""
}
