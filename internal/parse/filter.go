package parse

import (
	"strings"
)

// FamilyRule vetoes a family that is likely a parsing artifact. Engines
// restricts the rule to labels from those engines (case-insensitive); an
// empty list applies it to every engine. Length, when non-zero, restricts
// it to families of exactly that many characters.
type FamilyRule struct {
	Name    string
	Engines []string
	Length  int
	Reject  func(family, label string) bool
}

func (r FamilyRule) applies(res *Result) bool {
	if r.Length > 0 && len(res.Family) != r.Length {
		return false
	}
	if len(r.Engines) == 0 {
		return true
	}
	for _, e := range r.Engines {
		if strings.EqualFold(e, res.Engine) {
			return true
		}
	}
	return false
}

// FamilyFilter applies a table of rules after parsing. It never touches the
// vocabulary, only the result.
type FamilyFilter struct {
	Rules []FamilyRule
}

// DefaultFamilyRules are the modifier-mistaken-for-family patterns seen in
// the wild.
var DefaultFamilyRules = []FamilyRule{
	{
		Name:   "digit-ratio",
		Reject: func(family, _ string) bool { return DigitRatio(family) >= 0.5 },
	},
	{
		// Win64.Trojan.Inject.Eawu
		Name:    "title-suffix",
		Engines: []string{"Tencent"},
		Length:  4,
		Reject: func(family, label string) bool {
			last := lastSegment(label)
			return isTitle(last) && strings.ToLower(last) == family
		},
	},
	{
		// W32/Trojan.ZTSA-8671
		Name:    "upper-acronym",
		Engines: []string{"Cyren"},
		Reject: func(family, label string) bool {
			return strings.Contains(label, strings.ToUpper(family))
		},
	},
	{
		Name:    "upper-suffix",
		Engines: []string{"Sophos", "F-Prot"},
		Length:  4,
		Reject: func(family, label string) bool {
			return strings.ToUpper(family) == lastSegment(label)
		},
	},
}

// NewFamilyFilter returns a filter over the default rules.
func NewFamilyFilter() *FamilyFilter {
	return &FamilyFilter{Rules: append([]FamilyRule(nil), DefaultFamilyRules...)}
}

// Check returns the name of the first rule that rejects the result family,
// or "" when the family stands. Empty families are never checked.
func (f *FamilyFilter) Check(res *Result) string {
	if f == nil || res.Family == "" {
		return ""
	}
	for _, rule := range f.Rules {
		if rule.applies(res) && rule.Reject(res.Family, res.Label) {
			return rule.Name
		}
	}
	return ""
}

// DigitRatio is the share of ASCII digits in s; an empty string counts as all digits.
func DigitRatio(s string) float64 {
	if s == "" {
		return 1
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			n++
		}
	}
	return float64(n) / float64(len(s))
}

func lastSegment(label string) string {
	if i := strings.LastIndex(label, "."); i >= 0 {
		return label[i+1:]
	}
	return label
}

// isTitle reports title case: upper-case letters only start a word,
// lower-case letters only follow a letter, and there is at least one letter.
func isTitle(s string) bool {
	cased, prevCased := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			if prevCased {
				return false
			}
			prevCased, cased = true, true
		case c >= 'a' && c <= 'z':
			if !prevCased {
				return false
			}
			prevCased, cased = true, true
		default:
			prevCased = false
		}
	}
	return cased
}
