// Package runner evaluates a batch of queries and writes trec_eval output.
package runner

import (
	"context"
	"fmt"
	"time"

	log "github.com/cihub/seelog"
	"golang.org/x/sync/errgroup"

	"harshagw/qryeval/internal/metrics"
	"harshagw/qryeval/internal/search"
	"harshagw/qryeval/internal/trec"
)

// Options configures a Runner.
type Options struct {
	// Workers bounds concurrent query evaluations; values below 1 mean 1.
	Workers int
	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Runner evaluates independent queries concurrently against one searcher.
// Each query builds its own tree and result list, so no state is shared.
type Runner struct {
	searcher *search.Searcher
	ids      trec.IDNamer
	opts     Options
}

func New(searcher *search.Searcher, ids trec.IDNamer, opts Options) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Runner{searcher: searcher, ids: ids, opts: opts}
}

// Summary counts what a batch produced.
type Summary struct {
	Queries  int
	Expanded int
	Empty    int
}

// Evaluate runs every query and returns the outcomes in input order. The
// first failure cancels the remaining queries.
func (r *Runner) Evaluate(ctx context.Context, queries []trec.Query) ([]*search.Outcome, error) {
	outcomes := make([]*search.Outcome, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := r.evaluate(q)
			if err != nil {
				return fmt.Errorf("query %s: %w", q.ID, err)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (r *Runner) evaluate(q trec.Query) (*search.Outcome, error) {
	if m := r.opts.Metrics; m != nil {
		m.QueriesInFlight.Inc()
		defer m.QueriesInFlight.Dec()
	}

	start := time.Now()
	out, err := r.searcher.Search(q.ID, q.Text)
	elapsed := time.Since(start)
	if r.opts.Metrics != nil {
		r.opts.Metrics.Observe(r.searcher.Model().Kind, out, err, elapsed)
	}
	if err != nil {
		return nil, err
	}
	log.Infof("query %s: %d matches in %s", q.ID, out.Results.Len(), elapsed)
	return out, nil
}

// Run evaluates queries and writes results, and expansions when expansions is
// non-nil, in input order.
func (r *Runner) Run(ctx context.Context, queries []trec.Query, results, expansions *trec.Writer) (Summary, error) {
	outcomes, err := r.Evaluate(ctx, queries)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	for _, out := range outcomes {
		sum.Queries++
		if out.Results.Len() == 0 {
			sum.Empty++
		}
		if err := results.WriteResults(out.QueryID, out.Results, r.ids); err != nil {
			return sum, err
		}
		if out.Expansion == "" {
			continue
		}
		sum.Expanded++
		if expansions != nil {
			if err := expansions.WriteExpansion(out.QueryID, out.Expansion); err != nil {
				return sum, err
			}
		}
	}
	if err := results.Flush(); err != nil {
		return sum, err
	}
	if expansions != nil {
		if err := expansions.Flush(); err != nil {
			return sum, err
		}
	}
	return sum, nil
}
