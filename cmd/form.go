package cmd

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/tiebreaker/internal/aggregator"
	"github.com/pable/tiebreaker/internal/features"
	"github.com/pable/tiebreaker/internal/history"
	"github.com/pable/tiebreaker/internal/identity"
	"github.com/pable/tiebreaker/internal/model"
	"github.com/pable/tiebreaker/internal/report"
	"github.com/pable/tiebreaker/internal/resolve"
	"github.com/pable/tiebreaker/internal/storage"
)

var formLast int

var formCmd = &cobra.Command{
	Use:   "form <player name>",
	Short: "Chronological recent-form trail for a player",
	Long: `Show, for each of a player's most recent matches, the rolling form they
carried into it. Names are resolved against the imported player registry.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runForm,
}

func init() {
	formCmd.Flags().IntVarP(&formLast, "last", "n", 20, "number of most recent matches to show (0 = all)")
	formCmd.Flags().Int("lookback", 20, "trailing window size in matches")
	formCmd.Flags().Int("min-matches", 10, "minimum prior matches for a feature to be defined")
}

func runForm(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := resolvePlayer(db, strings.Join(args, " "))
	if err != nil {
		return err
	}
	matches, err := db.PlayerMatches(p.ID)
	if err != nil {
		return fmt.Errorf("query matches: %w", err)
	}
	if len(matches) == 0 {
		fmt.Fprintf(os.Stdout, "No matches stored for %s.\n", p.FullName)
		return nil
	}

	entries, err := formTrail(p, matches, cfg.Engine(), cfg.Workers)
	if err != nil {
		return err
	}
	if formLast > 0 && len(entries) > formLast {
		entries = entries[len(entries)-formLast:]
	}
	report.PrintForm(os.Stdout, p.FullName, entries, cfg.LookbackMatches)
	return nil
}

// formTrail runs the feature engine over the player's matches and pairs each
// match with the form the player carried into it, oldest first.
func formTrail(p model.Player, matches []model.RawMatch, engine model.Config, workers int) ([]report.FormEntry, error) {
	hist := history.Build(matches)
	rows, err := aggregator.Aggregate(hist.Rows, engine, aggregator.Options{Workers: workers})
	if err != nil {
		return nil, err
	}
	idx := features.NewIndex(rows)
	self := model.Competitor{ID: p.ID, HasID: true, Name: p.FullName}

	// Winner rows before loser rows, then a stable date sort: the same order
	// the history builder gives this player's rows.
	var entries []report.FormEntry
	for _, won := range []bool{true, false} {
		for _, m := range matches {
			if !m.DateOK {
				continue
			}
			me, opp := m.Winner, m.Loser
			if !won {
				me, opp = m.Loser, m.Winner
			}
			if !me.HasID || me.ID != p.ID {
				continue
			}
			surface := identity.SurfaceKey(m.Surface)
			values, missing := idx.Lookup(self, m.Date, true, surface)
			entries = append(entries, report.FormEntry{
				Date:     m.Date,
				Surface:  surface,
				Opponent: opponentName(opp),
				Won:      won,
				Row:      model.FeatureRow{Values: values, Missing: missing == 1},
			})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Date.Before(entries[j].Date) })
	return entries, nil
}

func opponentName(c model.Competitor) string {
	if c.Name != "" {
		return c.Name
	}
	if c.HasID {
		return fmt.Sprintf("#%d", c.ID)
	}
	return "?"
}

// resolvePlayer maps a free-text name onto the imported player registry.
func resolvePlayer(db *storage.DB, name string) (model.Player, error) {
	players, err := db.ListPlayers()
	if err != nil {
		return model.Player{}, fmt.Errorf("list players: %w", err)
	}
	if len(players) == 0 {
		return model.Player{}, errors.New("player registry is empty, run 'tiebreaker import' first")
	}
	p, err := resolve.Player(name, players)
	if err != nil {
		return model.Player{}, fmt.Errorf("%w: %s", err, name)
	}
	if identity.NormalizeName(p.FullName) != identity.NormalizeName(name) {
		log.WithField("query", name).WithField("resolved", p.FullName).Info("fuzzy name match")
	}
	return p, nil
}
