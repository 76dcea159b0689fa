package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pable/tiebreaker/internal/parser"
	"github.com/pable/tiebreaker/internal/report"
	"github.com/pable/tiebreaker/internal/storage"
)

var (
	matchP1         string
	matchP2         string
	matchYear       int
	matchAllYears   bool
	matchTournament string
	matchRound      string
	matchSurface    string
	matchDate       string
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "List the meetings between two players",
	Long: `List every stored match between two players, in either order.

Without --year or --all-years only the last ten seasons are searched.`,
	Args: cobra.NoArgs,
	RunE: runMatch,
}

func init() {
	f := matchCmd.Flags()
	f.StringVar(&matchP1, "p1", "", "first player (required)")
	f.StringVar(&matchP2, "p2", "", "second player (required)")
	f.IntVar(&matchYear, "year", 0, "exact season, e.g. 2023")
	f.BoolVar(&matchAllYears, "all-years", false, "search every stored season when --year is absent")
	f.StringVar(&matchTournament, "tournament", "", "tournament name contains")
	f.StringVar(&matchRound, "round", "", "exact round (F, SF, QF, R16, R32, R64, R128)")
	f.StringVar(&matchSurface, "surface", "", "exact surface (Hard, Clay, Grass, Carpet)")
	f.StringVar(&matchDate, "date", "", "exact tournament date YYYY-MM-DD")
	matchCmd.MarkFlagRequired("p1")
	matchCmd.MarkFlagRequired("p2")
}

func runMatch(cmd *cobra.Command, args []string) error {
	filter := storage.HeadToHeadFilter{
		Years:      matchYears(matchYear, matchAllYears, time.Now().UTC().Year()),
		Tournament: matchTournament,
		Round:      matchRound,
		Surface:    matchSurface,
	}
	if matchDate != "" {
		d, ok := parser.ParseDate(matchDate)
		if !ok {
			return fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", matchDate)
		}
		filter.Date, filter.HasDate = d, true
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	a, err := resolvePlayer(db, matchP1)
	if err != nil {
		return fmt.Errorf("p1: %w", err)
	}
	b, err := resolvePlayer(db, matchP2)
	if err != nil {
		return fmt.Errorf("p2: %w", err)
	}

	matches, err := db.HeadToHead(a.ID, b.ID, filter)
	if err != nil {
		return fmt.Errorf("query matches: %w", err)
	}
	log.WithFields(logrus.Fields{"p1": a.ID, "p2": b.ID, "found": len(matches)}).Debug("head to head")

	if len(matches) == 0 {
		fmt.Fprintf(os.Stdout, "No match %s vs %s%s with these filters.\n", a.FullName, b.FullName, yearScope(filter.Years))
		return nil
	}
	report.PrintHeadToHead(os.Stdout, a, b, matches)
	return nil
}

// matchYears returns the seasons to search: the given year, every season
// (nil) with all set, else the ten seasons ending at now.
func matchYears(year int, all bool, now int) []int {
	if year != 0 {
		return []int{year}
	}
	if all {
		return nil
	}
	years := make([]int, 0, 10)
	for y := now - 9; y <= now; y++ {
		years = append(years, y)
	}
	return years
}

func yearScope(years []int) string {
	switch len(years) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf(" (%d)", years[0])
	default:
		return fmt.Sprintf(" (%d-%d)", years[0], years[len(years)-1])
	}
}
