// Package history expands raw match records into per-competitor rows.
package history

import (
	"sort"

	"github.com/pable/tiebreaker/internal/identity"
	"github.com/pable/tiebreaker/internal/model"
)

// Result is the chronological history plus what was left out of it.
type Result struct {
	// Rows is sorted by (Key, Date); rows sharing both keep emission order.
	Rows []model.CompetitorMatch

	// DroppedUndated counts raw matches discarded for an unparseable date.
	DroppedUndated int
	// DroppedUnkeyed counts perspective rows discarded because neither the id
	// nor the name resolved to a key.
	DroppedUnkeyed int
}

// Build emits one winner row and one loser row per dated match. All winner
// rows come before all loser rows, each block in input order, and the
// combined set is then stable-sorted by (Key, Date). That ordering is a
// precondition of the rolling fold.
func Build(matches []model.RawMatch) Result {
	var res Result
	winners := make([]model.CompetitorMatch, 0, len(matches))
	losers := make([]model.CompetitorMatch, 0, len(matches))

	for _, m := range matches {
		if !m.DateOK {
			res.DroppedUndated++
			continue
		}
		surface := identity.SurfaceKey(m.Surface)

		if key, ok := identity.Key(m.Winner); ok {
			winners = append(winners, model.CompetitorMatch{
				Key:        key,
				Date:       m.Date,
				SurfaceKey: surface,
				Won:        true,
				Stats:      m.WinnerStats,
			})
		} else {
			res.DroppedUnkeyed++
		}

		if key, ok := identity.Key(m.Loser); ok {
			losers = append(losers, model.CompetitorMatch{
				Key:        key,
				Date:       m.Date,
				SurfaceKey: surface,
				Won:        false,
				Stats:      m.LoserStats,
			})
		} else {
			res.DroppedUnkeyed++
		}
	}

	rows := append(winners, losers...)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Key != rows[j].Key {
			return rows[i].Key < rows[j].Key
		}
		return rows[i].Date.Before(rows[j].Date)
	})
	res.Rows = rows
	return res
}

// Partition splits sorted rows into contiguous per-competitor runs.
// Each returned slice aliases rows.
func Partition(rows []model.CompetitorMatch) [][]model.CompetitorMatch {
	var parts [][]model.CompetitorMatch
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i == len(rows) || rows[i].Key != rows[start].Key {
			parts = append(parts, rows[start:i])
			start = i
		}
	}
	return parts
}
