// Package aggregator computes trailing-window recent-form features per
// competitor.
package aggregator

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/pable/tiebreaker/internal/history"
	"github.com/pable/tiebreaker/internal/model"
)

// Options tunes how the fold is scheduled. It never changes the result.
type Options struct {
	// Workers bounds the number of competitor partitions folded at once.
	// Zero or negative means GOMAXPROCS.
	Workers int
}

// Aggregate computes the recent form of every competitor going into every
// match of the sorted history rows (see history.Build).
//
// Each competitor's matches are folded in order through a bounded buffer of
// the last LookbackMatches matches, plus one buffer per surface. Features for
// a match are read from the buffers before that match is appended, so they
// only ever reflect strictly earlier matches.
//
// The result follows the order of rows, with at most one row per
// (key, date, surface): the first one wins, duplicates are never averaged.
func Aggregate(rows []model.CompetitorMatch, cfg model.Config, opts Options) ([]model.FeatureRow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]model.FeatureRow, len(rows))
	var g errgroup.Group
	g.SetLimit(workers)

	offset := 0
	for _, part := range history.Partition(rows) {
		dst := out[offset : offset+len(part)]
		offset += len(part)
		g.Go(func() error {
			return fold(part, cfg, dst)
		})
	}
	// Every partition must land before anything reads out.
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dedupe(out), nil
}

// fold walks one competitor's chronologically sorted matches.
func fold(part []model.CompetitorMatch, cfg model.Config, dst []model.FeatureRow) error {
	if len(part) != len(dst) {
		return fmt.Errorf("fold %s: %d rows into %d slots", part[0].Key, len(part), len(dst))
	}
	overall := newWindow(cfg.LookbackMatches)
	bySurface := make(map[string]*window)

	for i, m := range part {
		if i > 0 && m.Date.Before(part[i-1].Date) {
			return fmt.Errorf("fold %s: history not sorted at row %d", m.Key, i)
		}
		surface, ok := bySurface[m.SurfaceKey]
		if !ok {
			surface = newWindow(cfg.LookbackMatches)
			bySurface[m.SurfaceKey] = surface
		}

		values := overall.features(cfg.MinMatches)
		values[model.WinRateSurface] = surface.winRate(cfg.MinMatches)
		dst[i] = model.FeatureRow{
			Key:        m.Key,
			Date:       m.Date,
			SurfaceKey: m.SurfaceKey,
			Values:     values,
			Missing:    overall.Len() < cfg.MinMatches,
		}

		overall.push(m)
		surface.push(m)
	}
	return nil
}

// dedupe keeps the first row of every (key, date, surface) triple.
func dedupe(rows []model.FeatureRow) []model.FeatureRow {
	seen := make(map[model.RowKey]struct{}, len(rows))
	out := rows[:0]
	for _, r := range rows {
		k := r.RowKey()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
