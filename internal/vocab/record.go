package vocab

import (
	"fmt"
	"path"
	"strings"
)

// MaxScore is the trust value of every non-pending record.
const MaxScore = 100

// Root is the taxonomy category of a tag.
type Root string

const (
	RootBehavior Root = "behavior"
	RootPlatform Root = "platform"
	RootFamily   Root = "family"
	RootMethod   Root = "method"
	RootModifier Root = "modifier"
)

// Roots lists every storable root in dump order.
var Roots = []Root{RootBehavior, RootPlatform, RootFamily, RootMethod, RootModifier}

// Locators are the roots that give positional context for family inference.
var Locators = []Root{RootBehavior, RootPlatform, RootMethod}

// ParseRoot validates a root name.
func ParseRoot(s string) (Root, error) {
	r := Root(strings.TrimSpace(s))
	if r.Valid() {
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRoot, s)
}

// Valid reports whether r is one of the five storable roots.
func (r Root) Valid() bool {
	switch r {
	case RootBehavior, RootPlatform, RootFamily, RootMethod, RootModifier:
		return true
	}
	return false
}

// IsLocator reports whether r is behavior, platform or method.
func (r Root) IsLocator() bool {
	return r == RootBehavior || r == RootPlatform || r == RootMethod
}

// State is the lifecycle stage of a record.
type State string

const (
	StatePending   State = "pending"
	StateConfirmed State = "confirmed"
	StateLocked    State = "locked"
	StateAliased   State = "aliased"
)

// ParseState accepts state names and the legacy numeric codes 0-3.
// An empty string is pending.
func ParseState(s string) (State, error) {
	switch strings.TrimSpace(s) {
	case "", "0", string(StatePending):
		return StatePending, nil
	case "1", string(StateConfirmed):
		return StateConfirmed, nil
	case "2", string(StateLocked):
		return StateLocked, nil
	case "3", string(StateAliased):
		return StateAliased, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidState, s)
}

// Fields is the persisted shape of a record. Score is runtime only.
type Fields struct {
	Root   Root   `yaml:"root,omitempty"`
	Path   string `yaml:"path,omitempty"`
	Alias  string `yaml:"alias,omitempty"`
	State  State  `yaml:"state,omitempty"`
	Remark string `yaml:"remark,omitempty"`
	Score  int    `yaml:"-"`
}

// Record is one vocabulary entry. Fields are only reachable through
// accessors so the identity can never go stale.
type Record struct {
	name     string
	root     Root
	path     string
	alias    string
	state    State
	remark   string
	score    int
	identity string
}

// NewRecord builds a record. An empty state is pending.
func NewRecord(name string, f Fields) *Record {
	if f.State == "" {
		f.State = StatePending
	}
	r := &Record{
		name:   name,
		root:   f.Root,
		path:   f.Path,
		alias:  f.Alias,
		state:  f.State,
		remark: f.Remark,
		score:  f.Score,
	}
	r.refresh()
	return r
}

func (r *Record) refresh() {
	if r.state != StatePending {
		r.score = MaxScore
	}
	id := r.name
	if r.state == StateAliased {
		id = r.alias
	}
	r.identity = path.Join("/", string(r.root), r.path, id)
}

func (r *Record) Name() string   { return r.name }
func (r *Record) Root() Root     { return r.root }
func (r *Record) Path() string   { return r.path }
func (r *Record) Alias() string  { return r.alias }
func (r *Record) State() State   { return r.state }
func (r *Record) Remark() string { return r.remark }
func (r *Record) Score() int     { return r.score }

// Identity is the absolute location of the tag in the taxonomy tree,
// /<root>/<path>/<name>, or the alias target for aliased records.
func (r *Record) Identity() string { return r.identity }

// Canonical is the last identity segment: the name, or for aliased records
// the tag they were folded from.
func (r *Record) Canonical() string { return path.Base(r.identity) }

func (r *Record) Pending() bool   { return r.state == StatePending }
func (r *Record) Confirmed() bool { return r.state == StateConfirmed }
func (r *Record) Locked() bool    { return r.state == StateLocked }
func (r *Record) Aliased() bool   { return r.state == StateAliased }

func (r *Record) hasSegment(seg string) bool {
	for _, p := range strings.Split(r.identity, "/") {
		if p == seg {
			return true
		}
	}
	return false
}

// Generic reports modifiers and tags filed under a "gen" segment.
func (r *Record) Generic() bool {
	return r.root == RootModifier || r.hasSegment("gen")
}

// Packed reports tags filed under a "packed" segment.
func (r *Record) Packed() bool {
	return r.hasSegment("packed")
}

// Aliases lists the synonyms held by a non-aliased record.
func (r *Record) Aliases() []string {
	if r.Aliased() || r.alias == "" {
		return nil
	}
	var out []string
	for _, a := range strings.Split(r.alias, ";") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Fields returns a copy of the persisted fields.
func (r *Record) Fields() Fields {
	return Fields{
		Root:   r.root,
		Path:   r.path,
		Alias:  r.alias,
		State:  r.state,
		Remark: r.remark,
		Score:  r.score,
	}
}

func (r *Record) String() string {
	return fmt.Sprintf("%s : %s", r.name, r.identity)
}

// =============================================================================
// MUTATIONS
// Every mutation is a no-op on locked records. Confirmed records keep their
// root and remark. All of them return whether the record changed.
// =============================================================================

// PromoteTo files the record under root with a provenance remark.
func (r *Record) PromoteTo(root Root, remark string) bool {
	if r.Locked() || r.Confirmed() {
		return false
	}
	if r.root == root && r.remark == remark {
		return false
	}
	r.root = root
	r.remark = remark
	r.refresh()
	return true
}

// SetPath moves the record to another sub-path.
func (r *Record) SetPath(p string) bool {
	if r.Locked() || r.path == p {
		return false
	}
	r.path = p
	r.refresh()
	return true
}

// SetScore records evidence for a pending record. Other states stay at MaxScore.
func (r *Record) SetScore(score int) bool {
	if !r.Pending() || r.score == score {
		return false
	}
	r.score = score
	return true
}

// AttachAlias adds a synonym. Aliased records never hold synonyms.
func (r *Record) AttachAlias(tag string) bool {
	if r.Locked() || r.Aliased() || tag == "" || tag == r.name {
		return false
	}
	for _, a := range r.Aliases() {
		if a == tag {
			return false
		}
	}
	if r.alias == "" {
		r.alias = tag
	} else {
		r.alias += ";" + tag
	}
	r.refresh()
	return true
}

// Confirm marks the category assignment as final.
func (r *Record) Confirm() bool {
	if r.Locked() || r.Aliased() || r.Confirmed() {
		return false
	}
	r.state = StateConfirmed
	r.refresh()
	return true
}

// Lock freezes the record.
func (r *Record) Lock() bool {
	if r.Locked() || r.Aliased() {
		return false
	}
	r.state = StateLocked
	r.refresh()
	return true
}

// Verify files a pending record under root and locks it. Confirmed records
// are locked under the root they already carry.
func (r *Record) Verify(root Root) bool {
	if r.Locked() || r.Aliased() {
		return false
	}
	if r.Pending() && root.Valid() {
		r.root = root
	}
	r.state = StateLocked
	r.refresh()
	return true
}

// AliasLike builds the aliased record that folds name into r.
func (r *Record) AliasLike(name string) *Record {
	return NewRecord(name, Fields{
		Root:  r.root,
		Path:  r.path,
		Alias: r.name,
		State: StateAliased,
	})
}

// Unfold expands a record into itself plus one aliased record per synonym.
func Unfold(r *Record) []*Record {
	out := []*Record{r}
	for _, name := range r.Aliases() {
		out = append(out, r.AliasLike(name))
	}
	return out
}

func (r *Record) clone() *Record {
	c := *r
	return &c
}
