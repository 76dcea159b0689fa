package aggregator

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pable/tiebreaker/internal/model"
)

// window is a bounded FIFO of the most recent matches.
type window struct {
	size  int
	items []model.CompetitorMatch
}

func newWindow(size int) *window {
	return &window{size: size, items: make([]model.CompetitorMatch, 0, size)}
}

func (w *window) Len() int { return len(w.items) }

// push appends m, evicting the oldest match once the window is full.
func (w *window) push(m model.CompetitorMatch) {
	if len(w.items) == w.size {
		copy(w.items, w.items[1:])
		w.items = w.items[:w.size-1]
	}
	w.items = append(w.items, m)
}

func (w *window) column(get func(model.CompetitorMatch) float64) []float64 {
	col := make([]float64, len(w.items))
	for i, m := range w.items {
		col[i] = get(m)
	}
	return col
}

func (w *window) sum(get func(model.ServeStats) float64) float64 {
	return floats.Sum(w.column(func(m model.CompetitorMatch) float64 { return get(m.Stats) }))
}

// winRate is the share of matches won, or nil below minMatches.
func (w *window) winRate(minMatches int) *float64 {
	if w.Len() < minMatches || w.Len() == 0 {
		return nil
	}
	won := w.column(func(m model.CompetitorMatch) float64 {
		if m.Won {
			return 1
		}
		return 0
	})
	v := stat.Mean(won, nil)
	return &v
}

// features computes every feature except WinRateSurface, which comes from
// the per-surface window. Below minMatches everything is undefined.
func (w *window) features(minMatches int) model.FeatureValues {
	var fv model.FeatureValues
	if w.Len() < minMatches || w.Len() == 0 {
		return fv
	}

	svpt := w.sum(func(s model.ServeStats) float64 { return s.ServePoints })
	firstIn := w.sum(func(s model.ServeStats) float64 { return s.FirstIn })
	firstWon := w.sum(func(s model.ServeStats) float64 { return s.FirstWon })
	secondWon := w.sum(func(s model.ServeStats) float64 { return s.SecondWon })
	svGms := w.sum(func(s model.ServeStats) float64 { return s.ServiceGames })
	aces := w.sum(func(s model.ServeStats) float64 { return s.Aces })
	dfs := w.sum(func(s model.ServeStats) float64 { return s.DoubleFaults })

	fv[model.WinRate] = w.winRate(minMatches)
	fv[model.FirstInPct] = ratio(firstIn, svpt)
	fv[model.FirstWonPct] = ratio(firstWon, firstIn)
	fv[model.SecondWonPct] = ratio(secondWon, svpt-firstIn)
	fv[model.AcesPerServiceGame] = ratio(aces, svGms)
	fv[model.DoubleFaultsPerServiceGame] = ratio(dfs, svGms)
	return fv
}

// ratio is num/den, undefined when den <= 0.
func ratio(num, den float64) *float64 {
	if den <= 0 {
		return nil
	}
	v := num / den
	return &v
}
