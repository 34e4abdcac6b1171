package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"tagclass/internal/logging"
	"tagclass/internal/tokenize"
)

const maxLineSize = 64 << 20

type scanResult struct {
	Detected bool   `json:"detected"`
	Result   string `json:"result"`
}

type report struct {
	Scans map[string]scanResult `json:"scans"`
}

type processedReport struct {
	Scans map[string]string `json:"scans"`
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), maxLineSize)
	return sc
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadReports reads VirusTotal v2 report lines and collects every detected
// label. Malformed lines are skipped.
func LoadReports(r io.Reader) (*LabelSet, error) {
	set := NewLabelSet()
	skipped := 0
	sc := newScanner(r)
	for sc.Scan() {
		var rep report
		if err := json.Unmarshal(sc.Bytes(), &rep); err != nil {
			skipped++
			continue
		}
		for _, engine := range sortedKeys(rep.Scans) {
			res := rep.Scans[engine]
			if !res.Detected {
				continue
			}
			if label := CleanLabel(res.Result); KeepLabel(label) {
				set.Add(label, engine)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reports: %w", err)
	}
	logging.Dataset("loaded %d labels (%d malformed lines skipped)", set.Len(), skipped)
	return set, nil
}

// LoadProcessed reads pre-processed lines of {"scans": {engine: label}}.
// A positive limit stops after that many lines.
func LoadProcessed(r io.Reader, limit int) (*LabelSet, error) {
	set := NewLabelSet()
	lines, skipped := 0, 0
	sc := newScanner(r)
	for sc.Scan() {
		if limit > 0 && lines == limit {
			break
		}
		lines++
		var rep processedReport
		if err := json.Unmarshal(sc.Bytes(), &rep); err != nil {
			skipped++
			continue
		}
		for _, engine := range sortedKeys(rep.Scans) {
			if label := CleanLabel(rep.Scans[engine]); KeepLabel(label) {
				set.Add(label, engine)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read processed reports: %w", err)
	}
	logging.Dataset("loaded %d labels from %d lines (%d malformed)", set.Len(), lines, skipped)
	return set, nil
}

// LoadSamples turns every report line into one transaction: the sorted set
// of tags found in the detected labels of that sample.
func LoadSamples(r io.Reader, tk *tokenize.Tokenizer) ([][]string, error) {
	var out [][]string
	sc := newScanner(r)
	for sc.Scan() {
		var rep report
		if err := json.Unmarshal(sc.Bytes(), &rep); err != nil {
			continue
		}
		engineLabels := make(map[string]string, len(rep.Scans))
		for engine, res := range rep.Scans {
			if res.Detected {
				engineLabels[engine] = CleanLabel(res.Result)
			}
		}
		seen := make(map[string]bool)
		for label, engine := range Dedupe(engineLabels) {
			for _, tag := range tk.Run(engine, label) {
				seen[tag] = true
			}
		}
		if len(seen) == 0 {
			continue
		}
		out = append(out, sortedKeys(seen))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}
	logging.Dataset("loaded %d sample transactions", len(out))
	return out, nil
}

// OpenReports loads a report file, processed or raw.
func OpenReports(path string, processed bool, limit int) (*LabelSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reports: %w", err)
	}
	defer f.Close()
	if processed {
		return LoadProcessed(f, limit)
	}
	return LoadReports(f)
}
