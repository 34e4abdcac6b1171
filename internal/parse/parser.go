// Package parse classifies tokenized labels against a vocabulary.
//
// Location-First-Search (LFS) infers the family of a label from the position
// of known locator tags (behavior, platform, method). Cooccurrence-First-Search
// (CFS) proposes new locator candidates from the tags that appear next to a
// known family.
package parse

import (
	"errors"
	"fmt"

	"tagclass/internal/tokenize"
	"tagclass/internal/vocab"
)

// ErrInvalidRoot is returned when a vocabulary record carries a root outside
// the closed enumeration. It indicates corrupted vocabulary data.
var ErrInvalidRoot = errors.New("parse: invalid root")

// Mode selects how much LFS is allowed to guess.
type Mode string

const (
	// ModeParse names the first unknown tag as family when no locator is known.
	ModeParse Mode = "parsing"
	// ModeUpdate only trusts families backed by two or more locators.
	ModeUpdate Mode = "updating"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeParse, ModeUpdate:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid lfs mode %q (valid: %s, %s)", s, ModeParse, ModeUpdate)
}

// Options tune one parse call.
type Options struct {
	// Uniform reports canonical names, so aliased tags resolve to the tag
	// they were folded from.
	Uniform bool
	// IgnoreGeneric drops generic and packed tags from the result lists.
	// They still count as locators.
	IgnoreGeneric bool
}

// Parser runs LFS and CFS. It reads the vocabulary and never mutates it.
type Parser struct {
	Tokenizer *tokenize.Tokenizer
	Filter    *FamilyFilter
	mode      Mode
}

// New returns a parser with the default family filter.
func New(tk *tokenize.Tokenizer, mode Mode) *Parser {
	if tk == nil {
		tk = tokenize.New()
	}
	return &Parser{Tokenizer: tk, Filter: NewFamilyFilter(), mode: mode}
}

// Mode returns the run mode.
func (p *Parser) Mode() Mode { return p.mode }

// CFS returns the first tag of the label whose root is family, and every
// other tag in order. Both are empty when the label has no known family.
func (p *Parser) CFS(engine, label string, voc *vocab.Vocabulary) (string, []string) {
	tags := p.Tokenizer.Run(engine, label)
	for _, t := range tags {
		rec, ok := voc.Lookup(t)
		if !ok || rec.Root() != vocab.RootFamily {
			continue
		}
		others := make([]string, 0, len(tags)-1)
		for _, o := range tags {
			if o != t {
				others = append(others, o)
			}
		}
		return t, others
	}
	return "", nil
}

// slot is one entry of the LFS potential sequence: either an out of
// vocabulary tag or a known locator.
type slot struct {
	tag     string
	locator bool
}

// LFS classifies a tag sequence into res.
func (p *Parser) LFS(tags []string, res *Result, voc *vocab.Vocabulary, opts Options) error {
	potential := make([]slot, 0, len(tags))
	for _, t := range tags {
		rec, ok := voc.Lookup(t)
		if !ok {
			potential = append(potential, slot{tag: t})
			continue
		}
		root := rec.Root()
		if root.IsLocator() {
			potential = append(potential, slot{locator: true})
		}
		if opts.IgnoreGeneric && (rec.Generic() || rec.Packed()) {
			continue
		}
		name := rec.Name()
		if opts.Uniform {
			name = rec.Canonical()
		}
		switch root {
		case vocab.RootBehavior:
			res.Behavior = append(res.Behavior, name)
		case vocab.RootPlatform:
			res.Platform = append(res.Platform, name)
		case vocab.RootMethod:
			res.Method = append(res.Method, name)
		case vocab.RootModifier:
			res.Modifier = append(res.Modifier, name)
		case vocab.RootFamily:
			if res.Family == "" {
				res.Family = name
			}
		default:
			return fmt.Errorf("%w: %q for tag %q", ErrInvalidRoot, root, t)
		}
	}

	// a family straight from the vocabulary is authoritative
	if res.Family != "" {
		res.Score = vocab.MaxScore
		return nil
	}

	first, last, score := -1, -1, 0
	for i, s := range potential {
		if !s.locator {
			continue
		}
		if first < 0 {
			first = i
		}
		last = i
		score++
	}
	res.Score = score

	switch {
	case score == len(potential):
		// nothing left to be the family
		return nil
	case score == 0:
		if p.mode == ModeParse {
			res.Family = potential[0].tag
		}
		return nil
	}

	family := ""
	if last-first+1 == score {
		// contiguous locator run: take the tag after a leading run,
		// otherwise the tag right before the run
		if first == 0 && last < len(potential)-1 {
			family = potential[last+1].tag
		} else {
			family = potential[first-1].tag
		}
	} else {
		// an unknown tag interrupts the run: the first one wins
		for i := first + 1; i < last; i++ {
			if !potential[i].locator {
				family = potential[i].tag
				break
			}
		}
	}

	if p.mode == ModeUpdate && score <= 1 {
		family = ""
	}
	res.Family = family
	return nil
}

// Parse tokenizes and classifies one label. Structurally invalid labels
// yield an empty result without error.
func (p *Parser) Parse(label, engine string, voc *vocab.Vocabulary, opts Options) (*Result, error) {
	res := &Result{Engine: engine, Label: label}
	if !ValidLabel(label) {
		return res, nil
	}
	tags := p.Tokenizer.Run(engine, label)
	if err := p.LFS(tags, res, voc, opts); err != nil {
		return nil, err
	}
	if rule := p.Filter.Check(res); rule != "" {
		res.Family = ""
	}
	return res, nil
}
