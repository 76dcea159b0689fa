// Package features attaches recent-form differences to a pairwise dataset.
package features

import (
	"time"

	"github.com/pable/tiebreaker/internal/aggregator"
	"github.com/pable/tiebreaker/internal/history"
	"github.com/pable/tiebreaker/internal/identity"
	"github.com/pable/tiebreaker/internal/model"
)

// Index maps (key, date, surface) to the single feature row recorded for it.
type Index map[model.RowKey]model.FeatureRow

// NewIndex indexes rows. Aggregate output is already unique per triple; for
// rows built any other way the first one of a repeated triple is kept.
func NewIndex(rows []model.FeatureRow) Index {
	idx := make(Index, len(rows))
	for _, r := range rows {
		k := r.RowKey()
		if _, ok := idx[k]; !ok {
			idx[k] = r
		}
	}
	return idx
}

// Lookup returns one side's features and missing flag. A competitor without
// a key, a date or a recorded row gets undefined features and missing = 1.
func (idx Index) Lookup(c model.Competitor, date time.Time, dateOK bool, surfaceKey string) (model.FeatureValues, int) {
	key, ok := identity.Key(c)
	if !ok || !dateOK {
		return model.FeatureValues{}, 1
	}
	row, found := idx[model.KeyOf(key, date, surfaceKey)]
	if !found {
		return model.FeatureValues{}, 1
	}
	if row.Missing {
		return row.Values, 1
	}
	return row.Values, 0
}

// Diff is the element-wise a - b; undefined when either side is.
func Diff(a, b model.FeatureValues) model.FeatureValues {
	var out model.FeatureValues
	for f := range out {
		if a[f] == nil || b[f] == nil {
			continue
		}
		v := *a[f] - *b[f]
		out[f] = &v
	}
	return out
}

// Join attaches features to every pair. The output has one row per input
// pair, in input order.
func Join(pairs []model.PairRow, rows []model.FeatureRow) []model.AugmentedRow {
	idx := NewIndex(rows)
	out := make([]model.AugmentedRow, len(pairs))
	for i, p := range pairs {
		surface := identity.SurfaceKey(p.Surface)
		a, missingA := idx.Lookup(p.A, p.Date, p.DateOK, surface)
		b, missingB := idx.Lookup(p.B, p.Date, p.DateOK, surface)
		out[i] = model.AugmentedRow{
			PairRow:  p,
			Diffs:    Diff(a, b),
			MissingA: missingA,
			MissingB: missingB,
		}
	}
	return out
}

// EmptyResult is the answer when no usable history exists: every diff is
// undefined and both sides are flagged missing.
func EmptyResult(pairs []model.PairRow) []model.AugmentedRow {
	out := make([]model.AugmentedRow, len(pairs))
	for i, p := range pairs {
		out[i] = model.AugmentedRow{PairRow: p, MissingA: 1, MissingB: 1}
	}
	return out
}

// Result is the augmented dataset plus history bookkeeping.
type Result struct {
	Rows []model.AugmentedRow

	// HistoryRows is the number of per-competitor rows the features came from.
	HistoryRows    int
	DroppedUndated int
	DroppedUnkeyed int
}

// Augment runs the whole engine: history, rolling features, join.
func Augment(matches []model.RawMatch, pairs []model.PairRow, cfg model.Config, opts aggregator.Options) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	hist := history.Build(matches)
	res := Result{
		HistoryRows:    len(hist.Rows),
		DroppedUndated: hist.DroppedUndated,
		DroppedUnkeyed: hist.DroppedUnkeyed,
	}
	if len(hist.Rows) == 0 {
		res.Rows = EmptyResult(pairs)
		return res, nil
	}

	rows, err := aggregator.Aggregate(hist.Rows, cfg, opts)
	if err != nil {
		return Result{}, err
	}
	res.Rows = Join(pairs, rows)
	return res, nil
}
