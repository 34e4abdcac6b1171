package update

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagclass/internal/dataset"
	"tagclass/internal/parse"
	"tagclass/internal/vocab"
)

func seedVocab(t *testing.T) *vocab.Vocabulary {
	t.Helper()
	voc, err := vocab.Load([]vocab.Source{{Name: "seed", Entries: []vocab.Entry{
		{Name: "backdoor", Fields: vocab.Fields{Root: vocab.RootBehavior, State: vocab.StateLocked}},
		{Name: "trojan", Fields: vocab.Fields{Root: vocab.RootBehavior, State: vocab.StateLocked, Remark: "seed"}},
		{Name: "win", Fields: vocab.Fields{Root: vocab.RootPlatform, Path: "windows", State: vocab.StateLocked}},
	}}}, false)
	require.NoError(t, err)
	return voc
}

func testLabels() []dataset.Labeled {
	return []dataset.Labeled{
		{Label: "Backdoor.Win32.Darkshell", Engine: "Zillya"},
		{Label: "Trojan.Win32.Zbot", Engine: "Zillya"},
		{Label: "Stealer.Darkshell", Engine: "Zillya"},
		{Label: "Stealer.Zbot", Engine: "Zillya"},
		{Label: "Stealer.Win32.Qakbot", Engine: "Zillya"},
	}
}

func TestRun(t *testing.T) {
	voc := seedVocab(t)
	report, err := New(nil, 2, parse.ModeUpdate).Run(context.Background(), testLabels(), voc)
	require.NoError(t, err)

	require.Len(t, report.Steps, 2)
	first, second := report.Steps[0], report.Steps[1]
	assert.Equal(t, 2, first.NewFamilies)
	assert.Equal(t, 1, first.NewLocators)
	assert.Equal(t, 6, first.Size)
	assert.Equal(t, []Candidate{{Tag: "stealer", Count: 2, Remark: "darkshell -> Stealer.Darkshell", Promoted: true}}, first.Candidates)

	// the promoted locator exposes qakbot on the next step
	assert.Equal(t, 1, second.NewFamilies)
	assert.Equal(t, 0, second.NewLocators)
	assert.Equal(t, 4, report.Added())

	stealer, ok := voc.Lookup("stealer")
	require.True(t, ok)
	assert.Equal(t, vocab.RootBehavior, stealer.Root())
	assert.True(t, stealer.Pending())
	assert.Equal(t, 2, stealer.Score())

	darkshell, ok := voc.Lookup("darkshell")
	require.True(t, ok)
	assert.Equal(t, vocab.RootFamily, darkshell.Root())
	assert.Equal(t, "darkshell -> Backdoor.Win32.Darkshell", darkshell.Remark())

	qakbot, ok := voc.Lookup("qakbot")
	require.True(t, ok)
	assert.Equal(t, vocab.RootFamily, qakbot.Root())
}

func TestRun_BelowThreshold(t *testing.T) {
	voc := seedVocab(t)
	report, err := Update(context.Background(), testLabels(), voc, 3, parse.ModeUpdate)
	require.NoError(t, err)

	require.Len(t, report.Steps, 1)
	assert.Equal(t, []Candidate{{Tag: "stealer", Count: 2, Remark: "darkshell -> Stealer.Darkshell"}}, report.Steps[0].Candidates)
	assert.False(t, voc.Has("stealer"))
	assert.False(t, voc.Has("qakbot"))
}

func TestRun_Idempotent(t *testing.T) {
	voc := seedVocab(t)
	u := New(nil, 2, parse.ModeUpdate)
	_, err := u.Run(context.Background(), testLabels(), voc)
	require.NoError(t, err)
	size := voc.Len()

	report, err := u.Run(context.Background(), testLabels(), voc)
	require.NoError(t, err)
	require.Len(t, report.Steps, 1)
	assert.Zero(t, report.Steps[0].NewLocators)
	assert.Zero(t, report.Steps[0].NewFamilies)
	assert.Equal(t, size, voc.Len())
}

func TestRun_Monotonic(t *testing.T) {
	voc := seedVocab(t)
	size := voc.Len()
	report, err := New(nil, 1, parse.ModeUpdate).Run(context.Background(), testLabels(), voc)
	require.NoError(t, err)
	for _, step := range report.Steps {
		assert.GreaterOrEqual(t, step.Size, size, "step %d", step.Index)
		size = step.Size
	}
}

func TestRun_LockedUntouched(t *testing.T) {
	voc := seedVocab(t)
	before := make(map[string]vocab.Fields)
	for _, rec := range voc.Records() {
		before[rec.Name()] = rec.Fields()
	}

	_, err := New(nil, 1, parse.ModeUpdate).Run(context.Background(), testLabels(), voc)
	require.NoError(t, err)

	for name, fields := range before {
		rec, ok := voc.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, fields, rec.Fields(), name)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	voc := seedVocab(t)
	_, err := New(nil, 2, "").Run(ctx, testLabels(), voc)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, voc.Len())
}

func TestNew_Defaults(t *testing.T) {
	u := New(nil, 0, "")
	assert.Equal(t, DefaultThreshold, u.Threshold())
	assert.Equal(t, parse.ModeUpdate, u.parser.Mode())
}
