package parse

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"tagclass/internal/dataset"
)

func TestBatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	voc := seedVocab(t)
	p := New(nil, ModeParse)
	labels := []dataset.Labeled{
		{Label: "Backdoor:Win32/Darkshell", Engine: "Microsoft"},
		{Label: "ab", Engine: "Microsoft"},
		{Label: "Trojan.Emotet!8.B95", Engine: "Rising"},
		{Label: "backdoor/androidos", Engine: "Microsoft"},
	}

	got, err := p.Batch(context.Background(), labels, voc, Options{}, 3)
	require.NoError(t, err)
	require.Len(t, got, len(labels))

	tags := make([]Tags, len(got))
	for i, res := range got {
		assert.Equal(t, labels[i].Label, res.Label)
		tags[i] = res.Tags()
	}
	want := []Tags{
		{Behavior: "backdoor", Platform: "win", Family: "darkshell"},
		{},
		{Behavior: "trojan", Family: "emotet"},
		{Behavior: "backdoor", Platform: "androidos"},
	}
	if diff := cmp.Diff(want, tags); diff != "" {
		t.Errorf("Batch() mismatch (-want +got):\n%s", diff)
	}
}

func TestBatch_Cancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(nil, ModeParse)
	_, err := p.Batch(ctx, []dataset.Labeled{{Label: "Backdoor:Win32/Darkshell", Engine: "Microsoft"}}, seedVocab(t), Options{}, 0)
	assert.ErrorIs(t, err, context.Canceled)
}
