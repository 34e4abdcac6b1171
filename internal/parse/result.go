package parse

import (
	"encoding/json"
	"strings"
)

// Result is the parse of one label. List fields keep insertion order and
// may hold duplicates; Tags renders them deduplicated.
type Result struct {
	Behavior []string
	Platform []string
	Method   []string
	Modifier []string
	Family   string
	Score    int
	Engine   string
	Label    string
}

// Tags is the ordered-field view of a Result.
type Tags struct {
	Behavior string `json:"behavior,omitempty" yaml:"behavior,omitempty"`
	Platform string `json:"platform,omitempty" yaml:"platform,omitempty"`
	Family   string `json:"family,omitempty" yaml:"family,omitempty"`
	Method   string `json:"method,omitempty" yaml:"method,omitempty"`
	Modifier string `json:"modifier,omitempty" yaml:"modifier,omitempty"`
}

// Join deduplicates values keeping first occurrence order and joins them with ';'.
func Join(values []string) string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return strings.Join(out, ";")
}

// Tags renders the result fields.
func (r *Result) Tags() Tags {
	return Tags{
		Behavior: Join(r.Behavior),
		Platform: Join(r.Platform),
		Family:   r.Family,
		Method:   Join(r.Method),
		Modifier: Join(r.Modifier),
	}
}

// Empty reports whether no tag was extracted.
func (r *Result) Empty() bool {
	return r.Family == "" && len(r.Behavior) == 0 && len(r.Platform) == 0 &&
		len(r.Method) == 0 && len(r.Modifier) == 0
}

// MarshalJSON writes the Tags view.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Tags())
}

func (r *Result) String() string {
	data, _ := json.Marshal(r.Tags())
	return string(data)
}
