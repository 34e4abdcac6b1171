package update

import (
	"context"
	"fmt"
	"sort"

	"tagclass/internal/dataset"
	"tagclass/internal/logging"
	"tagclass/internal/vocab"
)

// DefaultMaxRounds bounds Rounds.Run when MaxRounds is unset.
const DefaultMaxRounds = 5

// Verifier settles the pending records produced by a round. It returns the
// number of records it changed.
type Verifier interface {
	Verify(ctx context.Context, voc *vocab.Vocabulary) (int, error)
}

// Checkpointer persists the vocabulary at the end of each round.
type Checkpointer interface {
	SaveCheckpoint(ctx context.Context, round int, voc *vocab.Vocabulary) error
}

// Round summarizes one outer round.
type Round struct {
	Round    int
	Report   *Report
	Updated  []string
	Verified int
	Size     int
	Metrics  *Metrics
}

// Rounds repeats the update loop, interleaved with verification, until a
// round yields no new pending locator or MaxRounds is reached.
type Rounds struct {
	Updater   *Updater
	MaxRounds int
	// FirstRound numbers the first round run, so a resumed run continues
	// its checkpoints. Zero means 1.
	FirstRound   int
	Verifier     Verifier
	Checkpointer Checkpointer
	// Truth, when set, holds locator tag frequencies used to score each round.
	Truth map[string]int
}

// Run drives the rounds over voc.
func (r *Rounds) Run(ctx context.Context, labels []dataset.Labeled, voc *vocab.Vocabulary) ([]Round, error) {
	max := r.MaxRounds
	if max < 1 {
		max = DefaultMaxRounds
	}

	var (
		rounds     []Round
		cumulative = make(map[string]bool)
	)
	first := r.FirstRound
	if first < 1 {
		first = 1
	}
	for n := first; n < first+max; n++ {
		log := logging.Get(logging.CategoryUpdate).With("round", n)
		initial := locatorNames(voc, func(rec *vocab.Record) bool { return !rec.Pending() })
		before := locatorNames(voc, (*vocab.Record).Pending)

		report, err := r.Updater.Run(ctx, labels, voc)
		if err != nil {
			return rounds, fmt.Errorf("round %d: %w", n, err)
		}

		var updated []string
		for name := range locatorNames(voc, (*vocab.Record).Pending) {
			// without verification pending locators survive across rounds
			if r.Verifier == nil && before[name] {
				continue
			}
			updated = append(updated, name)
			cumulative[name] = true
		}
		sort.Strings(updated)

		round := Round{Round: n, Report: report, Updated: updated}
		if r.Truth != nil {
			if m, ok := PrecisionRecall(r.Truth, cumulative, initial, r.Updater.Threshold()); ok {
				round.Metrics = &m
			}
		}
		log.Info("updated = %d", len(updated))

		if r.Verifier != nil {
			verified, err := r.Verifier.Verify(ctx, voc)
			if err != nil {
				return rounds, fmt.Errorf("round %d verify: %w", n, err)
			}
			round.Verified = verified
			for name := range cumulative {
				if rec, ok := voc.Lookup(name); !ok || !rec.Root().IsLocator() {
					delete(cumulative, name)
				}
			}
		}
		round.Size = voc.Len()

		if r.Checkpointer != nil {
			if err := r.Checkpointer.SaveCheckpoint(ctx, n, voc); err != nil {
				return rounds, fmt.Errorf("round %d checkpoint: %w", n, err)
			}
		}
		rounds = append(rounds, round)

		if len(updated) == 0 {
			break
		}
	}
	return rounds, nil
}

func locatorNames(voc *vocab.Vocabulary, keep func(*vocab.Record) bool) map[string]bool {
	out := make(map[string]bool)
	for _, rec := range voc.Records() {
		if rec.Root().IsLocator() && keep(rec) {
			out[rec.Name()] = true
		}
	}
	return out
}
