// Package alias mines frequent tag itemsets from per-sample tag sets. Tags
// that keep appearing together across samples are alias candidates.
package alias

import (
	"errors"
	"sort"
	"strings"

	"tagclass/internal/logging"
)

const (
	// Separator joins the items of a rule.
	Separator = ";"
	// DefaultThreshold is the minimum support of a rule.
	DefaultThreshold = 20
	// DefaultMaxLen is the largest itemset mined by default.
	DefaultMaxLen = 5

	// seed satisfies the subrule check of every single item.
	seed = "\x00INIT"
)

// ErrEmptyRule is returned for an itemset without items.
var ErrEmptyRule = errors.New("alias: empty rule")

// Counter maps a rule key to its support.
type Counter map[string]int

// Rule returns the canonical key of an itemset: the bare item for a single
// tag, otherwise the sorted items joined with Separator.
func Rule(items []string) (string, error) {
	switch len(items) {
	case 0:
		return "", ErrEmptyRule
	case 1:
		return items[0], nil
	}
	sorted := append([]string(nil), items...)
	sort.Strings(sorted)
	return strings.Join(sorted, Separator), nil
}

// Split returns the items of a rule key.
func Split(rule string) []string {
	return strings.Split(rule, Separator)
}

// subrules returns the keys of every size k-1 subset of items.
func subrules(items []string) ([]string, error) {
	switch len(items) {
	case 0:
		return nil, ErrEmptyRule
	case 1:
		return []string{seed}, nil
	}
	out := make([]string, 0, len(items))
	for skip := range items {
		sub := make([]string, 0, len(items)-1)
		for i, it := range items {
			if i != skip {
				sub = append(sub, it)
			}
		}
		key, _ := Rule(sub)
		out = append(out, key)
	}
	return out, nil
}

// Miner counts itemsets level by level. A candidate of size k is counted
// only when every subset of size k-1 reached the threshold at the previous
// level.
type Miner struct {
	threshold int
	counter   Counter
	level     int
}

// NewMiner returns a miner at level zero.
func NewMiner(threshold int) *Miner {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	return &Miner{threshold: threshold, counter: Counter{seed: threshold}}
}

// Level returns the size of the last counted itemsets.
func (m *Miner) Level() int { return m.level }

// Step counts the next level over transactions and evicts every rule below
// the threshold. Transactions are sets; duplicates inside one are ignored.
func (m *Miner) Step(transactions [][]string) {
	m.level++
	k := m.level
	for _, tx := range transactions {
		items := distinct(tx)
		if len(items) < k {
			continue
		}
		combinations(items, k, func(set []string) {
			subs, _ := subrules(set)
			for _, sub := range subs {
				if m.counter[sub] < m.threshold {
					return
				}
			}
			key, _ := Rule(set)
			m.counter[key]++
		})
	}

	evicted := 0
	for rule, n := range m.counter {
		if n < m.threshold {
			delete(m.counter, rule)
			evicted++
		}
	}
	logging.Get(logging.CategoryAlias).Debug("level %d: %d rules kept, %d evicted", k, len(m.counter)-1, evicted)
}

// Rules returns every rule that met the threshold at its own level.
func (m *Miner) Rules() Counter {
	out := make(Counter, len(m.counter))
	for rule, n := range m.counter {
		if rule != seed {
			out[rule] = n
		}
	}
	return out
}

// Mine runs levels 1..maxLen and returns the surviving rules.
func Mine(transactions [][]string, maxLen, threshold int) Counter {
	if maxLen < 1 {
		maxLen = DefaultMaxLen
	}
	timer := logging.StartTimer(logging.CategoryAlias, "Mine")
	defer timer.Stop()

	m := NewMiner(threshold)
	for m.Level() < maxLen {
		m.Step(transactions)
	}
	rules := m.Rules()
	logging.Alias("mined %d rules from %d transactions", len(rules), len(transactions))
	return rules
}

func distinct(tx []string) []string {
	seen := make(map[string]bool, len(tx))
	out := make([]string, 0, len(tx))
	for _, t := range tx {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// combinations calls fn with every size-k subset of items in index order.
// fn must not retain the slice.
func combinations(items []string, k int, fn func([]string)) {
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	set := make([]string, k)
	n := len(items)
	for {
		for i, j := range idx {
			set[i] = items[j]
		}
		fn(set)

		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
