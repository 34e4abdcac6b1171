package parse

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"tagclass/internal/dataset"
	"tagclass/internal/logging"
	"tagclass/internal/vocab"
)

// Batch parses labels concurrently. The vocabulary is only read, so workers
// share it. Results keep the input order.
func (p *Parser) Batch(ctx context.Context, labels []dataset.Labeled, voc *vocab.Vocabulary, opts Options, workers int) ([]*Result, error) {
	timer := logging.StartTimer(logging.CategoryParse, "Batch")
	defer timer.Stop()

	if workers < 1 {
		workers = 1
	}
	results := make([]*Result, len(labels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, item := range labels {
		if gctx.Err() != nil {
			break
		}
		i, item := i, item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := p.Parse(item.Label, item.Engine, voc, opts)
			if err != nil {
				return fmt.Errorf("label %q: %w", item.Label, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logging.ParseDebug("parsed %d labels with %d workers", len(labels), workers)
	return results, nil
}
