package aggregate

import (
	"context"

	"golang.org/x/sync/errgroup"

	hll "github.com/EIDA/statsboard-sub000"
)

// Parallel aggregates rows on up to workers goroutines and returns the same buckets, registers and
// stats as feeding the rows to a single Aggregator in order.
//
// Rows are decoded concurrently. A bucket's precision is then taken from its first decodable row in
// input order, as the serial path does, and rows that disagree with it are rejected under the
// policy. Finally each worker unions a contiguous chunk of the accepted rows into a private
// Aggregator and the partial results are merged in order, so no estimator is ever written by two
// goroutines. Under Abort the first bad row in input order is reported.
func Parallel(ctx context.Context, rows []Row, workers int, opts ...Option) (*Aggregator, error) {
	if workers < 1 {
		workers = 1
	}
	if workers > len(rows) {
		workers = len(rows)
	}

	numbered := make([]Row, len(rows))
	for i, r := range rows {
		if r.Record == 0 {
			r.Record = i + 1
		}
		numbered[i] = r
	}

	decoded := make([]*hll.Hll, len(rows))
	errs := make([]error, len(rows))
	err := fanOut(ctx, len(rows), workers, func(ctx context.Context, _, lo, hi int) error {
		for i := lo; i < hi; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			decoded[i], errs[i] = hll.FromHexString(numbered[i].HLL)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Union with a mismatched operand fails without touching either side, so the first estimator of
	// each key can stand in for its bucket here.
	firsts := map[string]*hll.Hll{}
	for i, r := range numbered {
		if errs[i] != nil {
			continue
		}
		first, ok := firsts[r.Key]
		if !ok {
			firsts[r.Key] = decoded[i]
			continue
		}
		if first.Log2m() != decoded[i].Log2m() || first.RegisterWidth() != decoded[i].RegisterWidth() {
			errs[i] = first.Union(decoded[i])
		}
	}

	result := New(opts...)
	if result.policy == Abort {
		for i, r := range numbered {
			if errs[i] != nil {
				return nil, result.reject(r, errs[i])
			}
		}
	}

	partials := make([]*Aggregator, workers)
	for w := range partials {
		partials[w] = New(opts...)
	}
	err = fanOut(ctx, len(rows), workers, func(ctx context.Context, w, lo, hi int) error {
		p := partials[w]
		for i := lo; i < hi; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.stats.Rows++
			err := errs[i]
			if err == nil {
				err = p.union(numbered[i].Key, decoded[i], 1)
			}
			if err != nil {
				if err := p.reject(numbered[i], err); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, p := range partials {
		if err := result.Merge(p); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// fanOut splits [0, n) into workers contiguous chunks and runs fn on chunk w in its own goroutine.
// The first error cancels the context passed to the others.
func fanOut(ctx context.Context, n, workers int, fn func(ctx context.Context, w, lo, hi int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		lo, hi := w*n/workers, (w+1)*n/workers
		g.Go(func() error {
			return fn(ctx, w, lo, hi)
		})
	}
	return g.Wait()
}
