package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pable/tiebreaker/internal/parser"
	"github.com/pable/tiebreaker/internal/report"
	"github.com/pable/tiebreaker/internal/storage"
)

var (
	rankPlayer string
	rankDate   string
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "ATP rank of a player on a date (or the latest known)",
	Long: `Look up a player's ranking snapshot. With --date the latest snapshot on or
before that date is shown, otherwise the latest one available.`,
	Args: cobra.NoArgs,
	RunE: runRank,
}

func init() {
	rankCmd.Flags().StringVar(&rankPlayer, "player", "", "player name, e.g. 'Novak Djokovic' (required)")
	rankCmd.Flags().StringVar(&rankDate, "date", "", "ISO date YYYY-MM-DD (default: latest)")
	rankCmd.MarkFlagRequired("player")
}

func runRank(cmd *cobra.Command, args []string) error {
	q := storage.RankingQuery{}
	if rankDate != "" {
		d, ok := parser.ParseDate(rankDate)
		if !ok {
			return fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", rankDate)
		}
		q.Before, q.HasLimit = d, true
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := resolvePlayer(db, rankPlayer)
	if err != nil {
		return err
	}
	q.PlayerID = p.ID
	q.Names = nameVariants(p.FullName)

	res, err := db.RankingAt(q)
	if err != nil {
		return fmt.Errorf("query rankings: %w", err)
	}
	switch {
	case res.Found:
		report.PrintRanking(os.Stdout, p.FullName, res.Ranking)
	case res.NoneBefore:
		fmt.Fprintf(os.Stdout, "No ranking for %s before %s.\n", p.FullName, rankDate)
	default:
		fmt.Fprintf(os.Stdout, "No ranking found for %s (player_id=%d).\n", p.FullName, p.ID)
	}
	return nil
}

// nameVariants lists the spellings older ranking files use for a player:
// "Last, First", "First Last" and the registry name itself.
func nameVariants(full string) []string {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return nil
	}
	first, last := parts[0], parts[len(parts)-1]
	seen := map[string]bool{}
	var out []string
	for _, n := range []string{last + ", " + first, first + " " + last, full} {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
