// Package update grows a vocabulary from a label set by alternating LFS and
// CFS passes until no new locator appears.
package update

import (
	"context"
	"fmt"
	"time"

	"tagclass/internal/dataset"
	"tagclass/internal/logging"
	"tagclass/internal/parse"
	"tagclass/internal/tokenize"
	"tagclass/internal/vocab"
)

// SlowPass is the LFS+CFS pass duration above which a warning is logged.
const SlowPass = 30 * time.Second

// DefaultThreshold is the co-occurrence count a CFS candidate needs.
const DefaultThreshold = 5

// Candidate is a tag counted by the CFS pass. Remark records where it was
// first seen next to a family.
type Candidate struct {
	Tag      string
	Count    int
	Remark   string
	Promoted bool
}

// Step summarizes one LFS+CFS iteration.
type Step struct {
	Index       int
	NewFamilies int
	NewLocators int
	Size        int
	Candidates  []Candidate
}

// Report is the trace of one Run.
type Report struct {
	Steps []Step
}

// Added is the vocabulary growth over the whole run.
func (r *Report) Added() int {
	n := 0
	for _, s := range r.Steps {
		n += s.NewFamilies + s.NewLocators
	}
	return n
}

// Evidence merges the candidates of every pass into one entry per tag.
// Each CFS pass recounts the whole label set, so the count is the largest
// seen in any pass rather than a sum. The remark is the first one seen and
// Promoted is set if any pass promoted the tag. Order is first appearance.
func Evidence(rounds []Round) []Candidate {
	index := make(map[string]int)
	var out []Candidate
	for _, r := range rounds {
		if r.Report == nil {
			continue
		}
		for _, step := range r.Report.Steps {
			for _, c := range step.Candidates {
				i, ok := index[c.Tag]
				if !ok {
					index[c.Tag] = len(out)
					out = append(out, c)
					continue
				}
				if c.Count > out[i].Count {
					out[i].Count = c.Count
				}
				out[i].Promoted = out[i].Promoted || c.Promoted
			}
		}
	}
	return out
}

// Updater runs the incremental update loop. It is not safe for concurrent
// use on the same vocabulary.
type Updater struct {
	parser    *parse.Parser
	threshold int
}

// New returns an updater. A threshold below one uses DefaultThreshold.
func New(tk *tokenize.Tokenizer, threshold int, mode parse.Mode) *Updater {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	if mode == "" {
		mode = parse.ModeUpdate
	}
	return &Updater{parser: parse.New(tk, mode), threshold: threshold}
}

// Threshold returns the CFS promotion threshold.
func (u *Updater) Threshold() int { return u.threshold }

// Update is a one-shot Run with a default tokenizer.
func Update(ctx context.Context, labels []dataset.Labeled, voc *vocab.Vocabulary, threshold int, mode parse.Mode) (*Report, error) {
	return New(nil, threshold, mode).Run(ctx, labels, voc)
}

// Run mutates voc until a CFS pass adds no locator. The context is checked
// between passes.
func (u *Updater) Run(ctx context.Context, labels []dataset.Labeled, voc *vocab.Vocabulary) (*Report, error) {
	timer := logging.StartTimer(logging.CategoryUpdate, "Run")
	defer timer.Stop()

	report := &Report{}
	for index := 1; ; index++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		pass := logging.StartTimer(logging.CategoryUpdate, fmt.Sprintf("pass %d", index))
		start := voc.Len()

		if err := u.lfs(labels, voc); err != nil {
			return report, err
		}
		families := voc.Len() - start

		if err := ctx.Err(); err != nil {
			return report, err
		}
		cands := u.cfs(labels, voc)

		step := Step{
			Index:       index,
			NewFamilies: families,
			NewLocators: voc.Len() - start - families,
			Size:        voc.Len(),
			Candidates:  cands,
		}
		report.Steps = append(report.Steps, step)
		pass.StopWithThreshold(SlowPass)
		logging.Update("step %d: new family = %d, new locator = %d", index, step.NewFamilies, step.NewLocators)

		if step.NewLocators <= 0 {
			return report, nil
		}
	}
}

// lfs registers every inferred family. Promotions are visible to the labels
// that follow in the same pass.
func (u *Updater) lfs(labels []dataset.Labeled, voc *vocab.Vocabulary) error {
	opts := parse.Options{Uniform: true}
	for _, l := range labels {
		res, err := u.parser.Parse(l.Label, l.Engine, voc, opts)
		if err != nil {
			return fmt.Errorf("lfs %q: %w", l.Label, err)
		}
		if res.Family == "" || res.Score >= vocab.MaxScore {
			continue
		}
		voc.Promote(res.Family, vocab.RootFamily, fmt.Sprintf("%s -> %s", res.Family, l.Label), res.Score)
	}
	return nil
}

// cfs counts out of vocabulary tags next to a known family over the whole
// label set, then promotes those at the threshold as behavior.
func (u *Updater) cfs(labels []dataset.Labeled, voc *vocab.Vocabulary) []Candidate {
	index := make(map[string]int)
	var cands []Candidate
	for _, l := range labels {
		family, others := u.parser.CFS(l.Engine, l.Label, voc)
		if family == "" {
			continue
		}
		for _, tag := range others {
			if voc.Has(tag) {
				continue
			}
			if i, ok := index[tag]; ok {
				cands[i].Count++
				continue
			}
			index[tag] = len(cands)
			cands = append(cands, Candidate{Tag: tag, Count: 1, Remark: fmt.Sprintf("%s -> %s", family, l.Label)})
		}
	}

	for i := range cands {
		c := &cands[i]
		if c.Count < u.threshold {
			continue
		}
		voc.Promote(c.Tag, vocab.RootBehavior, c.Remark, c.Count)
		c.Promoted = true
		logging.UpdateDebug("promoted %s (%d): %s", c.Tag, c.Count, c.Remark)
	}
	return cands
}
