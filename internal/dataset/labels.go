// Package dataset loads the inputs of the tagclass core: engine labels from
// VirusTotal style report lines, per-sample tag transactions, and hand-parsed
// ground truth tables.
package dataset

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// MinLabelLen is the shortest label kept while loading, in characters.
const MinLabelLen = 3

// KeepLabel reports whether a cleaned label is long enough to keep.
func KeepLabel(label string) bool {
	return utf8.RuneCountInString(label) >= MinLabelLen
}

// Labeled is one label with the engine that reported it.
type Labeled struct {
	Label  string
	Engine string
}

// LabelSet maps label to engine and keeps first insertion order. Adding a
// known label replaces its engine in place.
type LabelSet struct {
	index map[string]int
	items []Labeled
}

// NewLabelSet returns an empty set.
func NewLabelSet() *LabelSet {
	return &LabelSet{index: make(map[string]int)}
}

// Add inserts or updates a label.
func (s *LabelSet) Add(label, engine string) {
	if i, ok := s.index[label]; ok {
		s.items[i].Engine = engine
		return
	}
	s.index[label] = len(s.items)
	s.items = append(s.items, Labeled{Label: label, Engine: engine})
}

// Len returns the number of distinct labels.
func (s *LabelSet) Len() int { return len(s.items) }

// Engine returns the engine recorded for label.
func (s *LabelSet) Engine(label string) (string, bool) {
	i, ok := s.index[label]
	if !ok {
		return "", false
	}
	return s.items[i].Engine, true
}

// Items returns the labels in insertion order. The slice is shared.
func (s *LabelSet) Items() []Labeled { return s.items }

// CleanLabel keeps printable ASCII and trims surrounding whitespace.
func CleanLabel(label string) string {
	var b strings.Builder
	b.Grow(len(label))
	for i := 0; i < len(label); i++ {
		c := label[i]
		if (c >= 0x20 && c <= 0x7e) || strings.IndexByte(" \t\n\r\v\f", c) >= 0 {
			b.WriteByte(c)
		}
	}
	return strings.TrimSpace(b.String())
}

// Dedupe folds the labels of one sample: vendors that relabel another
// engine's result are reduced to the original label, and each distinct label
// keeps the lexicographically greatest engine.
func Dedupe(engineLabels map[string]string) map[string]string {
	engines := make([]string, 0, len(engineLabels))
	for e := range engineLabels {
		engines = append(engines, e)
	}
	sort.Strings(engines)

	out := make(map[string]string, len(engineLabels))
	for _, engine := range engines {
		label := engineLabels[engine]
		// Emsisoft reuses BitDefender family labels with a " (B)" suffix.
		label = strings.TrimSuffix(label, " (B)")
		// F-Secure prefixes Avira labels with "Malware.".
		label = strings.TrimPrefix(label, "Malware.")
		if label == "" {
			continue
		}
		if cur, ok := out[label]; !ok || engine > cur {
			out[label] = engine
		}
	}
	return out
}
