package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagclass/internal/vocab"
)

func seedVocab(t *testing.T) *vocab.Vocabulary {
	t.Helper()
	voc, err := vocab.Load([]vocab.Source{{Name: "seed", Entries: []vocab.Entry{
		{Name: "backdoor", Fields: vocab.Fields{Root: vocab.RootBehavior, State: vocab.StateLocked}},
		{Name: "trojan", Fields: vocab.Fields{Root: vocab.RootBehavior, State: vocab.StateLocked}},
		{Name: "ransomware", Fields: vocab.Fields{Root: vocab.RootBehavior, Alias: "ransom", State: vocab.StateLocked}},
		{Name: "agent", Fields: vocab.Fields{Root: vocab.RootBehavior, Path: "gen", State: vocab.StateLocked}},
		{Name: "win", Fields: vocab.Fields{Root: vocab.RootPlatform, State: vocab.StateLocked}},
		{Name: "androidos", Fields: vocab.Fields{Root: vocab.RootPlatform, State: vocab.StateLocked}},
		{Name: "emotet", Fields: vocab.Fields{Root: vocab.RootFamily, State: vocab.StateLocked}},
		{Name: "heur", Fields: vocab.Fields{Root: vocab.RootModifier, State: vocab.StateLocked}},
	}}}, false)
	require.NoError(t, err)
	return voc
}

func TestParse(t *testing.T) {
	voc := seedVocab(t)

	tests := []struct {
		name   string
		mode   Mode
		engine string
		label  string
		want   Tags
		score  int
	}{
		{
			name:   "leading locator run names the next tag",
			mode:   ModeParse,
			engine: "Microsoft",
			label:  "Backdoor:Win32/Darkshell",
			want:   Tags{Behavior: "backdoor", Platform: "win", Family: "darkshell"},
			score:  2,
		},
		{
			name:   "only locators leaves the family empty",
			mode:   ModeParse,
			engine: "Microsoft",
			label:  "backdoor/androidos",
			want:   Tags{Behavior: "backdoor", Platform: "androidos"},
			score:  2,
		},
		{
			name:   "direct family hit is authoritative",
			mode:   ModeUpdate,
			engine: "Rising",
			label:  "Trojan.Emotet!8.B95 (TFE:3:8TNkkv9OZTL)",
			want:   Tags{Behavior: "trojan", Family: "emotet"},
			score:  vocab.MaxScore,
		},
		{
			name:   "trailing locator run names the previous tag",
			mode:   ModeParse,
			engine: "Zillya",
			label:  "Darkshell.Backdoor.Win32",
			want:   Tags{Behavior: "backdoor", Platform: "win", Family: "darkshell"},
			score:  2,
		},
		{
			name:   "inner locator run names the previous tag",
			mode:   ModeParse,
			engine: "Zillya",
			label:  "Alpha.Backdoor.Win32.Beta",
			want:   Tags{Behavior: "backdoor", Platform: "win", Family: "alpha"},
			score:  2,
		},
		{
			// Between two locators the first unknown tag wins; later ones
			// are never considered.
			name:   "interrupted run takes the first interior tag",
			mode:   ModeParse,
			engine: "Zillya",
			label:  "Backdoor.Alpha.Beta.Win32",
			want:   Tags{Behavior: "backdoor", Platform: "win", Family: "alpha"},
			score:  2,
		},
		{
			name:   "no locator falls back to first tag when parsing",
			mode:   ModeParse,
			engine: "Zillya",
			label:  "Foo.Bar.Baz",
			want:   Tags{Family: "foo"},
		},
		{
			name:   "no locator gives no family when updating",
			mode:   ModeUpdate,
			engine: "Zillya",
			label:  "Foo.Bar.Baz",
			want:   Tags{},
		},
		{
			name:   "single locator is trusted when parsing",
			mode:   ModeParse,
			engine: "Zillya",
			label:  "Backdoor.Darkshell",
			want:   Tags{Behavior: "backdoor", Family: "darkshell"},
			score:  1,
		},
		{
			name:   "single locator is not trusted when updating",
			mode:   ModeUpdate,
			engine: "Zillya",
			label:  "Backdoor.Darkshell",
			want:   Tags{Behavior: "backdoor"},
			score:  1,
		},
		{
			name:   "modifiers are not positional",
			mode:   ModeParse,
			engine: "Zillya",
			label:  "Heur.Backdoor.Win32.Darkshell",
			want:   Tags{Behavior: "backdoor", Platform: "win", Family: "darkshell", Modifier: "heur"},
			score:  2,
		},
		{
			name:   "digit heavy family is filtered",
			mode:   ModeParse,
			engine: "Zillya",
			label:  "Backdoor.Win32.x12y34z",
			want:   Tags{Behavior: "backdoor", Platform: "win"},
			score:  2,
		},
		{
			name:   "duplicates are rendered once",
			mode:   ModeParse,
			engine: "Zillya",
			label:  "Trojan.Win32.Trojan.Darkshell",
			want:   Tags{Behavior: "trojan", Platform: "win", Family: "darkshell"},
			score:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(nil, tt.mode)
			res, err := p.Parse(tt.label, tt.engine, voc, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Tags())
			assert.Equal(t, tt.score, res.Score)
		})
	}
}

func TestParse_InvalidLabels(t *testing.T) {
	voc := seedVocab(t)
	p := New(nil, ModeParse)

	for _, label := range []string{"", "ab", "éé", `\sav6\work_channel1_12\57745154`, "a/b/c/Backdoor"} {
		res, err := p.Parse(label, "Microsoft", voc, Options{})
		require.NoError(t, err, label)
		assert.True(t, res.Empty(), label)
		assert.Zero(t, res.Score, label)
	}
}

func TestParse_Uniform(t *testing.T) {
	voc := seedVocab(t)
	p := New(nil, ModeParse)

	res, err := p.Parse("Ransom:Win32/Locky", "Microsoft", voc, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ransom"}, res.Behavior)

	res, err = p.Parse("Ransom:Win32/Locky", "Microsoft", voc, Options{Uniform: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"ransomware"}, res.Behavior)
	assert.Equal(t, "locky", res.Family)
}

func TestParse_IgnoreGeneric(t *testing.T) {
	voc := seedVocab(t)
	p := New(nil, ModeParse)

	res, err := p.Parse("Heur.Trojan.Agent.Darkshell", "Zillya", voc, Options{IgnoreGeneric: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"trojan"}, res.Behavior)
	assert.Empty(t, res.Modifier)
	// generic tags still locate the family
	assert.Equal(t, "darkshell", res.Family)
	assert.Equal(t, 2, res.Score)
}

func TestLFS_InvalidRoot(t *testing.T) {
	voc := vocab.New()
	voc.Add("bogus", vocab.Fields{Root: vocab.Root("outofvoc"), State: vocab.StateLocked})

	p := New(nil, ModeParse)
	_, err := p.Parse("Bogus.Thing", "Zillya", voc, Options{})
	require.ErrorIs(t, err, ErrInvalidRoot)
}

func TestCFS(t *testing.T) {
	voc := seedVocab(t)
	p := New(nil, ModeUpdate)

	family, others := p.CFS("Zillya", "Spyware.Emotet.Stealer.Emotet", voc)
	assert.Equal(t, "emotet", family)
	assert.Equal(t, []string{"spyware", "stealer"}, others)

	family, others = p.CFS("Zillya", "Spyware.Stealer", voc)
	assert.Empty(t, family)
	assert.Empty(t, others)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("updating")
	require.NoError(t, err)
	assert.Equal(t, ModeUpdate, m)

	_, err = ParseMode("training")
	assert.Error(t, err)
}
