package alias

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeat(tx []string, n int) [][]string {
	out := make([][]string, n)
	for i := range out {
		out[i] = tx
	}
	return out
}

func TestRule(t *testing.T) {
	key, err := Rule([]string{"zbot", "agent", "gen"})
	require.NoError(t, err)
	assert.Equal(t, "agent;gen;zbot", key)

	key, err = Rule([]string{"zbot"})
	require.NoError(t, err)
	assert.Equal(t, "zbot", key)

	_, err = Rule(nil)
	assert.ErrorIs(t, err, ErrEmptyRule)
	_, err = subrules(nil)
	assert.ErrorIs(t, err, ErrEmptyRule)

	assert.Equal(t, []string{"agent", "gen", "zbot"}, Split("agent;gen;zbot"))
}

func TestSubrules(t *testing.T) {
	subs, err := subrules([]string{"c", "a", "b"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a;b", "b;c", "a;c"}, subs)

	subs, err = subrules([]string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, subs)

	subs, err = subrules([]string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []string{seed}, subs)
}

func TestCombinations(t *testing.T) {
	var got []string
	combinations([]string{"a", "b", "c", "d"}, 2, func(set []string) {
		got = append(got, strings.Join(set, ""))
	})
	assert.Equal(t, []string{"ab", "ac", "ad", "bc", "bd", "cd"}, got)
}

func TestMine(t *testing.T) {
	txs := append(repeat([]string{"a", "b", "c"}, 3), []string{"a", "d", "a"})

	got := Mine(txs, 3, 3)
	assert.Equal(t, Counter{
		"a":     4,
		"b":     3,
		"c":     3,
		"a;b":   3,
		"a;c":   3,
		"b;c":   3,
		"a;b;c": 3,
	}, got)
}

func TestMine_Defaults(t *testing.T) {
	txs := repeat([]string{"a", "b", "c", "d", "e", "f"}, DefaultThreshold)
	got := Mine(txs, 0, 0)

	longest := 0
	for rule := range got {
		if n := len(Split(rule)); n > longest {
			longest = n
		}
	}
	assert.Equal(t, DefaultMaxLen, longest)
	assert.NotContains(t, got, seed)
}

// A pair can only be counted when both of its items were frequent at the
// previous level, even if the pair itself would clear the threshold.
func TestMiner_InfrequentItemBlocksPair(t *testing.T) {
	m := NewMiner(2)
	m.Step([][]string{{"a"}, {"a"}, {"x"}})
	assert.Equal(t, Counter{"a": 2}, m.Rules())

	m.Step(repeat([]string{"a", "x"}, 3))
	assert.NotContains(t, m.Rules(), "a;x")
	assert.Equal(t, Counter{"a": 2}, m.Rules())
}

func TestMiner_LevelsOnlyShrink(t *testing.T) {
	txs := [][]string{
		{"a", "b", "c"}, {"a", "b", "c"}, {"a", "b"}, {"a", "c", "d"}, {"b", "c", "d"}, {"d"},
	}
	m := NewMiner(2)
	prev := Counter{}
	for m.Level() < 4 {
		m.Step(txs)
		rules := m.Rules()
		for rule, n := range rules {
			assert.GreaterOrEqual(t, n, 2, rule)
			if len(Split(rule)) < m.Level() {
				// earlier levels are never counted again
				assert.Equal(t, prev[rule], n, rule)
			}
			// every surviving itemset has frequent subsets
			if items := Split(rule); len(items) > 1 {
				subs, err := subrules(items)
				require.NoError(t, err)
				for _, sub := range subs {
					assert.Contains(t, rules, sub, rule)
				}
			}
		}
		for rule := range prev {
			assert.Contains(t, rules, rule)
		}
		prev = rules
	}
	assert.Equal(t, 3, prev["a;b"])
	assert.NotContains(t, prev, "a;b;c;d")
}
