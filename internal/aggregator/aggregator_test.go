package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/tiebreaker/internal/history"
	"github.com/pable/tiebreaker/internal/model"
)

var epoch = time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC)

// week returns the Monday n weeks after epoch.
func week(n int) time.Time { return epoch.AddDate(0, 0, 7*n) }

// playerRows builds one competitor's history from a list of outcomes, one
// match per week, all on the given surface.
func playerRows(key, surface string, outcomes []int) []model.CompetitorMatch {
	rows := make([]model.CompetitorMatch, len(outcomes))
	for i, o := range outcomes {
		rows[i] = model.CompetitorMatch{
			Key:        key,
			Date:       week(i),
			SurfaceKey: surface,
			Won:        o == 1,
			Stats: model.ServeStats{
				Aces: 5, DoubleFaults: 2, ServePoints: 80, FirstIn: 50,
				FirstWon: 35, SecondWon: 15, ServiceGames: 10,
			},
		}
	}
	return rows
}

func mustAggregate(t *testing.T, rows []model.CompetitorMatch, cfg model.Config) []model.FeatureRow {
	t.Helper()
	out, err := Aggregate(rows, cfg, Options{})
	require.NoError(t, err)
	return out
}

func TestAggregate_WinRateAfterTenMatches(t *testing.T) {
	outcomes := []int{1, 0, 1, 1, 0, 1, 0, 1, 1, 1, 0}
	out := mustAggregate(t, playerRows("id:1", "Hard", outcomes), model.DefaultConfig())
	require.Len(t, out, 11)

	eleventh := out[10]
	require.NotNil(t, eleventh.Values[model.WinRate])
	assert.InDelta(t, 0.7, *eleventh.Values[model.WinRate], 1e-12)
	assert.False(t, eleventh.Missing)
}

func TestAggregate_MissingFlagThreshold(t *testing.T) {
	out := mustAggregate(t, playerRows("id:1", "Hard", make([]int, 12)), model.DefaultConfig())

	for i := 0; i < 10; i++ {
		assert.True(t, out[i].Missing, "match %d has %d prior matches", i+1, i)
		assert.Nil(t, out[i].Values[model.WinRate], "match %d", i+1)
	}
	// 10th match: 9 prior -> missing. 11th match: 10 prior -> present.
	assert.True(t, out[9].Missing)
	assert.False(t, out[10].Missing)
	assert.False(t, out[11].Missing)
}

func TestAggregate_FirstMatchHasNoHistory(t *testing.T) {
	cfg := model.Config{LookbackMatches: 5, MinMatches: 1}
	out := mustAggregate(t, playerRows("id:1", "Hard", []int{1, 1}), cfg)

	assert.True(t, out[0].Missing)
	for f := model.Feature(0); f < model.NumFeatures; f++ {
		assert.Nil(t, out[0].Values[f], "feature %s", f.Column(5))
	}
	require.NotNil(t, out[1].Values[model.WinRate])
	assert.Equal(t, 1.0, *out[1].Values[model.WinRate])
}

func TestAggregate_ServeRatios(t *testing.T) {
	cfg := model.Config{LookbackMatches: 20, MinMatches: 2}
	out := mustAggregate(t, playerRows("id:1", "Hard", []int{1, 0, 1}), cfg)
	v := out[2].Values

	assert.InDelta(t, 50.0/80, *v[model.FirstInPct], 1e-12)
	assert.InDelta(t, 35.0/50, *v[model.FirstWonPct], 1e-12)
	assert.InDelta(t, 15.0/30, *v[model.SecondWonPct], 1e-12)
	assert.InDelta(t, 0.5, *v[model.AcesPerServiceGame], 1e-12)
	assert.InDelta(t, 0.2, *v[model.DoubleFaultsPerServiceGame], 1e-12)
}

func TestAggregate_WindowSlides(t *testing.T) {
	cfg := model.Config{LookbackMatches: 3, MinMatches: 3}
	// Three losses followed by three wins.
	out := mustAggregate(t, playerRows("id:1", "Hard", []int{0, 0, 0, 1, 1, 1, 0}), cfg)

	want := []float64{0, 1.0 / 3, 2.0 / 3, 1}
	for i, w := range want {
		got := out[3+i].Values[model.WinRate]
		require.NotNil(t, got, "match %d", 4+i)
		assert.InDelta(t, w, *got, 1e-12, "match %d", 4+i)
	}
}

func TestAggregate_ZeroDenominatorIsUndefined(t *testing.T) {
	cfg := model.Config{LookbackMatches: 20, MinMatches: 1}
	rows := playerRows("id:1", "Hard", []int{1, 1})
	for i := range rows {
		rows[i].Stats = model.ServeStats{}
	}
	out := mustAggregate(t, rows, cfg)
	v := out[1].Values

	assert.NotNil(t, v[model.WinRate])
	assert.Nil(t, v[model.FirstInPct])
	assert.Nil(t, v[model.FirstWonPct])
	assert.Nil(t, v[model.SecondWonPct])
	assert.Nil(t, v[model.AcesPerServiceGame])
	assert.Nil(t, v[model.DoubleFaultsPerServiceGame])
}

func TestAggregate_SecondServeDenominatorNegative(t *testing.T) {
	cfg := model.Config{LookbackMatches: 20, MinMatches: 1}
	rows := playerRows("id:1", "Hard", []int{1, 1})
	rows[0].Stats.FirstIn = 90 // more first serves in than serve points
	out := mustAggregate(t, rows, cfg)

	assert.Nil(t, out[1].Values[model.SecondWonPct])
	assert.NotNil(t, out[1].Values[model.FirstInPct])
}

func TestAggregate_SurfaceIsolation(t *testing.T) {
	cfg := model.Config{LookbackMatches: 20, MinMatches: 3}
	rows := playerRows("id:1", "Hard", []int{1, 1, 0, 1, 1})
	// One clay match after five hard-court matches.
	clay := model.CompetitorMatch{Key: "id:1", Date: week(5), SurfaceKey: "Clay", Won: true}
	hard := model.CompetitorMatch{Key: "id:1", Date: week(6), SurfaceKey: "Hard", Won: true}
	rows = append(rows, clay, hard)

	out := mustAggregate(t, rows, cfg)
	require.Len(t, out, 7)

	clayRow := out[5]
	assert.Nil(t, clayRow.Values[model.WinRateSurface])
	require.NotNil(t, clayRow.Values[model.WinRate])
	assert.InDelta(t, 0.8, *clayRow.Values[model.WinRate], 1e-12)

	hardRow := out[6]
	require.NotNil(t, hardRow.Values[model.WinRateSurface])
	assert.InDelta(t, 0.8, *hardRow.Values[model.WinRateSurface], 1e-12)
	require.NotNil(t, hardRow.Values[model.WinRate])
	assert.InDelta(t, 5.0/6, *hardRow.Values[model.WinRate], 1e-12)
}

func TestAggregate_Causality(t *testing.T) {
	cfg := model.Config{LookbackMatches: 5, MinMatches: 2}
	full := playerRows("id:1", "Hard", []int{1, 0, 1, 1, 0, 1, 0, 1})
	prefix := full[:5]

	a := mustAggregate(t, append([]model.CompetitorMatch(nil), full...), cfg)
	b := mustAggregate(t, append([]model.CompetitorMatch(nil), prefix...), cfg)

	for i := range b {
		assert.Equal(t, b[i], a[i], "row %d changed when later matches were added", i)
	}
}

func TestAggregate_DuplicateTripleKeepsFirst(t *testing.T) {
	cfg := model.Config{LookbackMatches: 20, MinMatches: 1}
	res := history.Build([]model.RawMatch{
		{Date: week(0), DateOK: true, Surface: "Hard",
			Winner: model.Competitor{ID: 2, HasID: true}, Loser: model.Competitor{ID: 1, HasID: true}},
		{Date: week(1), DateOK: true, Surface: "Hard",
			Winner: model.Competitor{ID: 1, HasID: true}, Loser: model.Competitor{ID: 3, HasID: true}},
		{Date: week(1), DateOK: true, Surface: "Hard",
			Winner: model.Competitor{ID: 1, HasID: true}, Loser: model.Competitor{ID: 4, HasID: true}},
	})
	out := mustAggregate(t, res.Rows, cfg)

	var mine []model.FeatureRow
	for _, r := range out {
		if r.Key == "id:1" {
			mine = append(mine, r)
		}
	}
	require.Len(t, mine, 2)
	// The retained week-1 row is the first of the two: it has seen only the
	// week-0 loss, not the same-week win.
	require.NotNil(t, mine[1].Values[model.WinRate])
	assert.Equal(t, 0.0, *mine[1].Values[model.WinRate])
	assert.False(t, mine[1].Missing)
}

func TestAggregate_WorkersDoNotChangeResult(t *testing.T) {
	cfg := model.Config{LookbackMatches: 4, MinMatches: 2}
	var rows []model.CompetitorMatch
	for _, key := range []string{"id:1", "id:2", "id:3", "name:someone"} {
		rows = append(rows, playerRows(key, "Hard", []int{1, 0, 0, 1, 1, 0})...)
	}

	serial, err := Aggregate(rows, cfg, Options{Workers: 1})
	require.NoError(t, err)
	parallel, err := Aggregate(rows, cfg, Options{Workers: 8})
	require.NoError(t, err)
	assert.Equal(t, serial, parallel)
}

func TestAggregate_InvalidConfig(t *testing.T) {
	_, err := Aggregate(nil, model.Config{LookbackMatches: 5, MinMatches: 6}, Options{})
	assert.ErrorIs(t, err, model.ErrInvalidConfig)
}

func TestAggregate_UnsortedHistoryIsRejected(t *testing.T) {
	rows := playerRows("id:1", "Hard", []int{1, 0})
	rows[0], rows[1] = rows[1], rows[0]
	_, err := Aggregate(rows, model.DefaultConfig(), Options{})
	assert.Error(t, err)
}
