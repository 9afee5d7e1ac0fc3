// Package aggregate groups encoded HLL estimators by bucket key and unions each group into one
// estimator, so the number of distinct clients per month, country, station or any other slicing
// can be read off without the underlying sets.
package aggregate

import (
	"sort"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	hll "github.com/EIDA/statsboard-sub000"
)

// Policy decides what happens to a row that cannot be decoded or unioned.
type Policy int

const (
	// Abort stops at the first bad row and returns its error. Nothing after it is aggregated.
	Abort Policy = iota
	// Skip logs the bad row, counts it in Stats.Skipped and carries on.
	Skip
)

func (p Policy) String() string {
	switch p {
	case Abort:
		return "abort"
	case Skip:
		return "skip"
	default:
		return "unknown"
	}
}

// ParsePolicy is the inverse of Policy.String.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "abort":
		return Abort, nil
	case "skip":
		return Skip, nil
	}
	return Abort, errors.Errorf("unknown policy %q, want abort or skip", s)
}

// Stats counts what an Aggregator has seen.
type Stats struct {
	Rows    int // rows offered, including skipped ones
	Skipped int
}

// Result is the estimate for one bucket.
type Result struct {
	Key              string  `json:"key" yaml:"key"`
	Cardinality      uint64  `json:"cardinality" yaml:"cardinality"`
	CardinalityError float64 `json:"error" yaml:"error"`
	Rows             int     `json:"rows" yaml:"rows"`
}

type Option func(*Aggregator)

func WithPolicy(p Policy) Option {
	return func(a *Aggregator) {
		a.policy = p
	}
}

// WithLogger sets the logger used to report skipped rows. The default discards everything.
func WithLogger(l log.Logger) Option {
	return func(a *Aggregator) {
		a.logger = l
	}
}

type bucket struct {
	acc  *hll.Hll
	rows int
}

// Aggregator keeps one accumulator per bucket key. It is not safe for concurrent use; see
// Parallel for aggregating on several goroutines.
type Aggregator struct {
	buckets map[string]*bucket
	policy  Policy
	logger  log.Logger
	stats   Stats
}

func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		buckets: map[string]*bucket{},
		policy:  Abort,
		logger:  log.NewNopLogger(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Add decodes encoded and unions it into the bucket for key.
func (a *Aggregator) Add(key, encoded string) error {
	return a.AddRow(Row{Key: key, HLL: encoded})
}

// AddRow decodes the row's estimator and unions it into the row's bucket. Under the Skip policy a
// bad row is logged and nil is returned.
func (a *Aggregator) AddRow(r Row) error {
	a.stats.Rows++

	decoded, err := hll.FromHexString(r.HLL)
	if err == nil {
		err = a.union(r.Key, decoded, 1)
	}
	if err != nil {
		return a.reject(r, err)
	}
	return nil
}

// reject applies the policy to a row that failed with err. It returns nil if the row was skipped.
func (a *Aggregator) reject(r Row, err error) error {
	err = errors.Wrapf(err, "record %d (key %q)", r.Record, r.Key)
	if a.policy == Skip {
		a.stats.Skipped++
		level.Warn(a.logger).Log("msg", "skipping row", "record", r.Record, "key", r.Key, "err", err)
		return nil
	}
	return err
}

// union takes ownership of h.
func (a *Aggregator) union(key string, h *hll.Hll, rows int) error {
	b, ok := a.buckets[key]
	if !ok {
		a.buckets[key] = &bucket{acc: h, rows: rows}
		return nil
	}
	if err := b.acc.Union(h); err != nil {
		return err
	}
	b.rows += rows
	return nil
}

// AddRows reads rows until the reader is exhausted. Under the Abort policy the first failing row
// ends the read and its error is returned.
func (a *Aggregator) AddRows(rr RowReader) error {
	for {
		r, ok, err := rr.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := a.AddRow(r); err != nil {
			return err
		}
	}
}

// Merge unions every bucket of other into a. other is not modified. A bucket that cannot be merged
// aborts under the Abort policy; under Skip its rows are logged and counted as skipped.
func (a *Aggregator) Merge(other *Aggregator) error {
	for _, key := range other.Keys() {
		b := other.buckets[key]
		if err := a.union(key, b.acc.Clone(), b.rows); err != nil {
			err = errors.Wrapf(err, "merging bucket %q", key)
			if a.policy != Skip {
				return err
			}
			a.stats.Skipped += b.rows
			level.Warn(a.logger).Log("msg", "skipping bucket", "key", key, "rows", b.rows, "err", err)
		}
	}
	a.stats.Rows += other.stats.Rows
	a.stats.Skipped += other.stats.Skipped
	return nil
}

// Keys returns the bucket keys in sorted order.
func (a *Aggregator) Keys() []string {
	keys := make([]string, 0, len(a.buckets))
	for k := range a.buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Estimator returns the accumulator for key. The caller must not modify it.
func (a *Aggregator) Estimator(key string) (*hll.Hll, bool) {
	b, ok := a.buckets[key]
	if !ok {
		return nil, false
	}
	return b.acc, true
}

func (a *Aggregator) Cardinality(key string) (uint64, bool) {
	b, ok := a.buckets[key]
	if !ok {
		return 0, false
	}
	return b.acc.Cardinality(), true
}

// Total unions every bucket into a new estimator, the distinct count across all keys. Buckets of
// higher precision are folded down to the smallest log2m among them first. Buckets that differ in
// register width cannot be combined and yield an error wrapping hll.ErrUnionMismatch. It returns nil
// if there are no buckets.
func (a *Aggregator) Total() (*hll.Hll, error) {
	keys := a.Keys()
	if len(keys) == 0 {
		return nil, nil
	}

	first := a.buckets[keys[0]].acc
	log2m, regwidth := first.Log2m(), first.RegisterWidth()
	for _, key := range keys[1:] {
		acc := a.buckets[key].acc
		if acc.RegisterWidth() != regwidth {
			return nil, errors.Wrapf(hll.ErrUnionMismatch, "buckets %q and %q differ in register width: %d/%d",
				keys[0], key, regwidth, acc.RegisterWidth())
		}
		if acc.Log2m() < log2m {
			log2m = acc.Log2m()
		}
	}

	var total *hll.Hll
	for _, key := range keys {
		// Fold to the same precision returns a copy, so the buckets are never modified.
		folded, err := a.buckets[key].acc.Fold(log2m)
		if err != nil {
			return nil, errors.Wrapf(err, "bucket %q", key)
		}
		if total == nil {
			total = folded
			continue
		}
		if err := total.Union(folded); err != nil {
			return nil, errors.Wrapf(err, "bucket %q", key)
		}
	}
	return total, nil
}

// Results returns one Result per bucket, ordered by key.
func (a *Aggregator) Results() []Result {
	keys := a.Keys()
	out := make([]Result, 0, len(keys))
	for _, key := range keys {
		b := a.buckets[key]
		out = append(out, Result{
			Key:              key,
			Cardinality:      b.acc.Cardinality(),
			CardinalityError: b.acc.CardinalityError(),
			Rows:             b.rows,
		})
	}
	return out
}

func (a *Aggregator) Stats() Stats {
	return a.stats
}
