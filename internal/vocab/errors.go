package vocab

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPendingRecord is returned when a verified-only load meets a pending record.
	ErrPendingRecord = errors.New("vocab: unverified pending record")
	// ErrDuplicateTag is returned when two sources (or aliases) define the same tag.
	ErrDuplicateTag = errors.New("vocab: duplicate tag")
	// ErrInvalidRoot is returned for roots outside the closed enumeration.
	ErrInvalidRoot = errors.New("vocab: invalid root")
	// ErrInvalidState is returned for unknown lifecycle states.
	ErrInvalidState = errors.New("vocab: invalid state")
)

// LoadError is a fatal vocabulary load failure. Tags holds the conflicting
// names: the offending tag first, then the existing one for duplicates.
type LoadError struct {
	Source string
	Tags   []string
	Err    error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if len(e.Tags) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Tags, " | "))
	}
	if e.Source != "" {
		fmt.Fprintf(&b, " in %s", e.Source)
	}
	return b.String()
}

func (e *LoadError) Unwrap() error { return e.Err }
