// Package tokenize turns raw anti-malware engine labels into ordered
// sequences of normalized candidate tags.
package tokenize

import (
	"regexp"
	"strings"

	"tagclass/internal/logging"
)

// MinTagLen is the minimum length of a tag after trailing digits are stripped.
const MinTagLen = 3

// lastDotEngines drop everything after the final '.' of a label; the tail is
// a variant or build code for these vendors.
var lastDotEngines = map[string]bool{
	"avast":                true,
	"avira":                true,
	"comodo":               true,
	"eset-nod32":           true,
	"fortinet":             true,
	"gdata":                true,
	"jiangmin":             true,
	"kaspersky":            true,
	"microsoft":            true,
	"nano-antivirus":       true,
	"norman":               true,
	"sophos":               true,
	"trendmicro":           true,
	"trendmicro-housecall": true,
	"avg":                  true,
	"alibaba":              true,
}

// lastSeparators are cut from the right, in order, for every engine.
var lastSeparators = []string{"@", "#", "!"}

var defaultSeparator = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Tokenizer splits labels into tags. Separator may be set to override the
// split policy per engine; it receives the normalized engine name and
// returns nil to fall back to the default.
type Tokenizer struct {
	Separator func(engine string) *regexp.Regexp
}

// New returns a Tokenizer with the shared split policy.
func New() *Tokenizer {
	return &Tokenizer{}
}

// NormalizeEngine lower-cases an engine name and removes spaces.
func NormalizeEngine(engine string) string {
	return strings.ReplaceAll(strings.ToLower(engine), " ", "")
}

// RemoveSuffixes strips engine-specific trailing noise from a label.
// engine must already be normalized.
func RemoveSuffixes(engine, label string) string {
	if lastDotEngines[engine] {
		label = cutLast(label, ".")
	}
	for _, sep := range lastSeparators {
		label = cutLast(label, sep)
	}
	return label
}

func cutLast(s, sep string) string {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[:i]
	}
	return s
}

// Run tokenizes label as reported by engine. Tags keep their original order
// and duplicates are preserved.
func (t *Tokenizer) Run(engine, label string) []string {
	engine = NormalizeEngine(engine)
	label = RemoveSuffixes(engine, label)

	sep := defaultSeparator
	if t.Separator != nil {
		if re := t.Separator(engine); re != nil {
			sep = re
		}
	}

	var tags []string
	for _, tag := range sep.Split(label, -1) {
		if tag == "" || isDigits(tag) {
			continue
		}
		// engine build ids: W32, 8TNKKV9OZTL
		if hasDigit(tag) && isUpper(tag) {
			continue
		}
		tag = strings.TrimRight(tag, "0123456789")
		if len(tag) < MinTagLen {
			continue
		}
		tags = append(tags, strings.ToLower(tag))
	}
	if len(tags) == 0 && label != "" {
		logging.Get(logging.CategoryTokenize).Debug("no tags in %q (%s)", label, engine)
	}
	return tags
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

func hasDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}

// isUpper reports whether s has at least one cased letter and no lower-case ones.
func isUpper(s string) bool {
	cased := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
			return false
		case c >= 'A' && c <= 'Z':
			cased = true
		}
	}
	return cased
}
