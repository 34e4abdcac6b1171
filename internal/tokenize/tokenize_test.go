package tokenize

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"tagclass/internal/logging"
)

func TestRun(t *testing.T) {
	tk := New()
	tests := []struct {
		name   string
		engine string
		label  string
		want   []string
	}{
		{"microsoft drops variant", "Microsoft", "Worm:Win32/Silly.Gaa", []string{"worm", "win", "silly"}},
		{"mixed case digits survive", "Microsoft", "Worm:Win32/Silly_12a23b", []string{"worm", "win", "silly", "12a23b"}},
		{"bang suffix dropped", "Rising", "Trojan.Emotet!8.B95 (TFE:3:8TNkkv9OZTL)", []string{"trojan", "emotet"}},
		{"empty label", "Microsoft", "", nil},
		{"upper build id dropped", "Cyren", "W32/Trojan.ZTSA-8671", []string{"trojan", "ztsa"}},
		{"duplicates preserved", "Rising", "Trojan.Trojan.Agent", []string{"trojan", "trojan", "agent"}},
		{"engine name normalized", "Trend Micro", "TROJ_GEN.R002C0", []string{"troj", "gen"}},
		{"at separator", "McAfee", "Artemis@abc.def", []string{"artemis"}},
		{"pure digits and short tags", "Rising", "ab.12345.xyz9", []string{"xyz"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tk.Run(tt.engine, tt.label))
		})
	}
}

func TestRemoveSuffixes(t *testing.T) {
	assert.Equal(t, "Trojan.Win32.Agent", RemoveSuffixes("kaspersky", "Trojan.Win32.Agent.abc"))
	assert.Equal(t, "Trojan.Win32.Agent.abc", RemoveSuffixes("rising", "Trojan.Win32.Agent.abc"))
	assert.Equal(t, "a!b", RemoveSuffixes("rising", "a!b!c"))
	assert.Equal(t, "no-separators", RemoveSuffixes("rising", "no-separators"))
}

func TestSeparatorOverride(t *testing.T) {
	tk := &Tokenizer{Separator: func(engine string) *regexp.Regexp {
		if engine == "dashy" {
			return regexp.MustCompile(`[^a-zA-Z0-9-]+`)
		}
		return nil
	}}
	assert.Equal(t, []string{"nano-bot", "win"}, tk.Run("Dashy", "Nano-Bot/Win32"))
	assert.Equal(t, []string{"nano", "bot", "win"}, tk.Run("Other", "Nano-Bot/Win32"))
}

func TestRun_LogsEmptyLabels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logging.Use(zap.New(core))
	t.Cleanup(func() { logging.Use(zap.NewNop()) })

	tk := New()
	assert.Empty(t, tk.Run("Rising", "W32.12345"))
	assert.NotEmpty(t, tk.Run("Rising", "Trojan.Agent"))
	assert.Empty(t, tk.Run("Rising", ""))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "tokenize", entries[0].LoggerName)
	assert.Contains(t, entries[0].Message, "W32.12345")
}
