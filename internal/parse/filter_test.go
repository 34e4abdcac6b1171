package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFamilyFilter(t *testing.T) {
	f := NewFamilyFilter()

	tests := []struct {
		engine, label, family string
		rule                  string
	}{
		{"Zillya", "Trojan.Win32.a1b2c3", "a1b2c3", "digit-ratio"},
		{"Tencent", "Win64.Trojan.Inject.Eawu", "eawu", "title-suffix"},
		{"Tencent", "Win64.Trojan.Inject.EAWU", "eawu", ""},
		{"Tencent", "Win64.Trojan.Zbot.Zbot", "zbot", "title-suffix"},
		{"Zillya", "Win64.Trojan.Inject.Eawu", "eawu", ""},
		{"Cyren", "W32/Trojan.ZTSA-8671", "ztsa", "upper-acronym"},
		{"Cyren", "W32/Zbot.AB", "zbot", ""},
		{"Sophos", "Troj/Inject.ABCD", "abcd", "upper-suffix"},
		{"F-Prot", "W32/Inject.ABCD", "abcd", "upper-suffix"},
		{"Sophos", "Troj/Zbotx.ABCDE", "abcde", ""},
		{"Microsoft", "Backdoor:Win32/Darkshell", "darkshell", ""},
		// engine names match regardless of case
		{"tencent", "Win64.Trojan.Inject.Eawu", "eawu", "title-suffix"},
		{"CYREN", "W32/Trojan.ZTSA-8671", "ztsa", "upper-acronym"},
	}
	for _, tt := range tests {
		res := &Result{Engine: tt.engine, Label: tt.label, Family: tt.family}
		assert.Equal(t, tt.rule, f.Check(res), "%s %s", tt.engine, tt.label)
	}

	assert.Empty(t, f.Check(&Result{Engine: "Cyren", Label: "W32/Trojan.ZTSA"}))
	var none *FamilyFilter
	assert.Empty(t, none.Check(&Result{Family: "123"}))
}

func TestFamilyFilter_CustomRule(t *testing.T) {
	f := &FamilyFilter{Rules: []FamilyRule{{
		Name:   "deny",
		Reject: func(family, _ string) bool { return family == "generic" },
	}}}
	assert.Equal(t, "deny", f.Check(&Result{Family: "generic"}))
	assert.Empty(t, f.Check(&Result{Family: "zbot"}))
}

func TestIsTitle(t *testing.T) {
	assert.True(t, isTitle("Eawu"))
	assert.True(t, isTitle("Eawu-Bc"))
	assert.False(t, isTitle("EAWU"))
	assert.False(t, isTitle("eawu"))
	assert.False(t, isTitle("1234"))
}

func TestDigitRatio(t *testing.T) {
	assert.Equal(t, 1.0, DigitRatio(""))
	assert.Equal(t, 0.5, DigitRatio("ab12"))
	assert.Equal(t, 0.0, DigitRatio("zbot"))
}

func TestResultTags(t *testing.T) {
	res := &Result{
		Behavior: []string{"trojan", "dropper", "trojan"},
		Platform: []string{"win"},
		Family:   "zbot",
	}
	assert.Equal(t, Tags{Behavior: "trojan;dropper", Platform: "win", Family: "zbot"}, res.Tags())
	assert.Equal(t, `{"behavior":"trojan;dropper","platform":"win","family":"zbot"}`, res.String())
	assert.False(t, res.Empty())
	assert.True(t, (&Result{}).Empty())
}
