package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"tagclass/internal/vocab"
)

// Truth holds hand-parsed tag frequencies per root.
type Truth map[vocab.Root]map[string]int

// Lookup returns the first root whose table knows tag, checking modifier,
// family, behavior, platform and method in that order.
func (t Truth) Lookup(tag string) (vocab.Root, bool) {
	for _, root := range []vocab.Root{vocab.RootModifier, vocab.RootFamily, vocab.RootBehavior, vocab.RootPlatform, vocab.RootMethod} {
		if _, ok := t[root][tag]; ok {
			return root, true
		}
	}
	return "", false
}

// Locators merges the behavior, platform and method tables.
func (t Truth) Locators() map[string]int {
	out := make(map[string]int)
	for _, root := range vocab.Locators {
		for tag, n := range t[root] {
			out[tag] = n
		}
	}
	return out
}

// LoadTruth reads a hand-parsing CSV whose header names the behavior,
// platform, family, modifier and method columns. Cells hold ';'-joined tags.
func LoadTruth(r io.Reader) (Truth, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read truth header: %w", err)
	}
	cols := make(map[vocab.Root]int)
	for i, name := range header {
		if root, err := vocab.ParseRoot(name); err == nil {
			cols[root] = i
		}
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("truth header has no tag columns: %v", header)
	}

	truth := make(Truth, len(cols))
	for root := range cols {
		truth[root] = make(map[string]int)
	}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read truth row: %w", err)
		}
		for root, i := range cols {
			if i >= len(row) {
				continue
			}
			for _, tag := range strings.Split(row[i], ";") {
				if tag = strings.TrimSpace(tag); tag != "" {
					truth[root][tag]++
				}
			}
		}
	}
	return truth, nil
}

// OpenTruth loads a truth file.
func OpenTruth(path string) (Truth, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open truth: %w", err)
	}
	defer f.Close()
	return LoadTruth(f)
}
