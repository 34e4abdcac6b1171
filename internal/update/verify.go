package update

import (
	"context"
	"strings"

	"tagclass/internal/dataset"
	"tagclass/internal/logging"
	"tagclass/internal/vocab"
)

// TruthVerifier imitates a human reviewer with a hand-parsed truth table.
// Every unlocked locator is locked under the root truth gives it, the
// family named in its remark is locked too, and the pending records left
// over are dropped.
type TruthVerifier struct {
	Truth dataset.Truth
}

// Verify implements Verifier.
func (tv *TruthVerifier) Verify(ctx context.Context, voc *vocab.Vocabulary) (int, error) {
	changed := 0
	for _, rec := range voc.Records() {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		if !rec.Root().IsLocator() || rec.Locked() || rec.Aliased() {
			continue
		}

		root, ok := tv.Truth.Lookup(rec.Name())
		if !ok {
			logging.Get(logging.CategoryUpdate).Warn("%s out of class", rec)
			root = rec.Root()
		}
		if rec.Verify(root) {
			changed++
		}

		pivot := strings.TrimSpace(strings.SplitN(rec.Remark(), "->", 2)[0])
		if pivot == "" {
			continue
		}
		root, ok = tv.Truth.Lookup(pivot)
		if !ok {
			continue
		}
		if fam, exists := voc.Lookup(pivot); exists {
			if fam.Verify(root) {
				changed++
			}
			continue
		}
		voc.Add(pivot, vocab.Fields{Root: root, State: vocab.StateLocked})
		changed++
	}

	dropped := voc.Retain(func(rec *vocab.Record) bool { return !rec.Pending() })
	logging.UpdateDebug("verified %d records, dropped %d pending", changed, dropped)
	return changed, nil
}
