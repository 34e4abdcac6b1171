// Package vocab owns the tag vocabulary: the mapping from tag name to record,
// the record lifecycle (pending -> confirmed/locked, aliased synonyms) and the
// load/save contract for vocabulary sources.
//
// A Vocabulary is a plain value owned by its caller. It is not safe for
// concurrent mutation; clone it per worker if parallel updates are needed.
package vocab

import (
	"fmt"
	"sort"
	"strings"
)

// Vocabulary maps tag names to records and remembers insertion order.
type Vocabulary struct {
	records map[string]*Record
	order   []string
}

// New returns an empty vocabulary.
func New() *Vocabulary {
	return &Vocabulary{records: make(map[string]*Record)}
}

// Len returns the number of records, aliased ones included.
func (v *Vocabulary) Len() int { return len(v.records) }

// Lookup returns the record for name. A miss is out of vocabulary.
func (v *Vocabulary) Lookup(name string) (*Record, bool) {
	r, ok := v.records[name]
	return r, ok
}

// Has reports whether name is in the vocabulary.
func (v *Vocabulary) Has(name string) bool {
	_, ok := v.records[name]
	return ok
}

// Add inserts a new record. An existing record is returned untouched.
func (v *Vocabulary) Add(name string, f Fields) *Record {
	if r, ok := v.records[name]; ok {
		return r
	}
	r := NewRecord(name, f)
	v.insert(r)
	return r
}

func (v *Vocabulary) insert(r *Record) {
	v.records[r.name] = r
	v.order = append(v.order, r.name)
}

// Promote registers name under root with a provenance remark, creating a
// pending record carrying score as evidence when it does not exist yet.
// Existing records go through the guarded PromoteTo.
func (v *Vocabulary) Promote(name string, root Root, remark string, score int) *Record {
	if r, ok := v.records[name]; ok {
		r.PromoteTo(root, remark)
		r.SetScore(score)
		return r
	}
	return v.Add(name, Fields{Root: root, Remark: remark, Score: score})
}

// Delete removes name. Locked records are kept and false is returned.
func (v *Vocabulary) Delete(name string) bool {
	r, ok := v.records[name]
	if !ok {
		return true
	}
	if r.Locked() {
		return false
	}
	delete(v.records, name)
	for i, n := range v.order {
		if n == name {
			v.order = append(v.order[:i], v.order[i+1:]...)
			break
		}
	}
	return true
}

// Retain keeps only the records for which keep returns true and reports
// how many were dropped.
func (v *Vocabulary) Retain(keep func(*Record) bool) int {
	kept := v.order[:0]
	dropped := 0
	for _, name := range v.order {
		if keep(v.records[name]) {
			kept = append(kept, name)
			continue
		}
		delete(v.records, name)
		dropped++
	}
	v.order = kept
	return dropped
}

// Names returns tag names in insertion order.
func (v *Vocabulary) Names() []string {
	return append([]string(nil), v.order...)
}

// Records returns the records in insertion order.
func (v *Vocabulary) Records() []*Record {
	out := make([]*Record, 0, len(v.order))
	for _, name := range v.order {
		out = append(out, v.records[name])
	}
	return out
}

// Select returns the records of the given roots that are not aliased,
// optionally sorted by (root, name). This is the persisted view.
func (v *Vocabulary) Select(roots []Root, sorted bool) []*Record {
	allow := make(map[Root]bool, len(roots))
	for _, r := range roots {
		allow[r] = true
	}
	var out []*Record
	for _, name := range v.order {
		r := v.records[name]
		if !allow[r.root] || r.Aliased() {
			continue
		}
		out = append(out, r)
	}
	if sorted {
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].root != out[j].root {
				return out[i].root < out[j].root
			}
			return out[i].name < out[j].name
		})
	}
	return out
}

// Summary counts records per root.
func (v *Vocabulary) Summary() map[Root]int {
	out := make(map[Root]int)
	for _, r := range v.records {
		out[r.root]++
	}
	return out
}

// Clone deep-copies the vocabulary.
func (v *Vocabulary) Clone() *Vocabulary {
	c := &Vocabulary{
		records: make(map[string]*Record, len(v.records)),
		order:   append([]string(nil), v.order...),
	}
	for name, r := range v.records {
		c.records[name] = r.clone()
	}
	return c
}

func (v *Vocabulary) String() string {
	summary := v.Summary()
	parts := make([]string, 0, len(summary))
	for _, root := range Roots {
		if n := summary[root]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", root, n))
		}
	}
	return fmt.Sprintf("Vocabulary{%s}", strings.Join(parts, " "))
}

// =============================================================================
// SOURCES
// =============================================================================

// Entry is one persisted record of a source.
type Entry struct {
	Name   string
	Fields Fields
}

// Source is an ordered list of persisted records, typically one file.
type Source struct {
	Name    string
	Entries []Entry
}

// Load builds a vocabulary from sources merged in order. With ignorePending
// false a pending record is fatal; with true it is skipped. Aliases are
// unfolded one level and any duplicate name is fatal.
func Load(sources []Source, ignorePending bool) (*Vocabulary, error) {
	v := New()
	for _, src := range sources {
		if err := v.Merge(src, ignorePending); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Merge loads one source into v. See Load.
func (v *Vocabulary) Merge(src Source, ignorePending bool) error {
	policy := rejectPending
	if ignorePending {
		policy = skipPending
	}
	return v.merge(src, policy)
}

// Restore loads a source saved mid-update, pending records included.
func Restore(src Source) (*Vocabulary, error) {
	v := New()
	if err := v.merge(src, keepPending); err != nil {
		return nil, err
	}
	return v, nil
}

type pendingPolicy int

const (
	rejectPending pendingPolicy = iota
	skipPending
	keepPending
)

func (v *Vocabulary) merge(src Source, policy pendingPolicy) error {
	for _, e := range src.Entries {
		if e.Fields.State == "" {
			e.Fields.State = StatePending
		}
		if !e.Fields.Root.Valid() {
			return &LoadError{Source: src.Name, Tags: []string{e.Name}, Err: fmt.Errorf("%w: %q", ErrInvalidRoot, e.Fields.Root)}
		}
		rec := NewRecord(e.Name, e.Fields)
		if rec.Pending() {
			switch policy {
			case skipPending:
				continue
			case rejectPending:
				return &LoadError{Source: src.Name, Tags: []string{rec.String()}, Err: ErrPendingRecord}
			}
		}
		for _, r := range Unfold(rec) {
			if exist, ok := v.records[r.name]; ok {
				return &LoadError{Source: src.Name, Tags: []string{r.String(), exist.String()}, Err: ErrDuplicateTag}
			}
			v.insert(r)
		}
	}
	return nil
}
