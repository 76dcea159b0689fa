package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pable/tiebreaker/internal/aggregator"
	"github.com/pable/tiebreaker/internal/features"
	"github.com/pable/tiebreaker/internal/model"
	"github.com/pable/tiebreaker/internal/parser"
	"github.com/pable/tiebreaker/internal/report"
)

var (
	featPairs   string
	featMatches []string
	featYears   []int
	featOut     string
	featSummary bool
)

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Append recent-form differences to a pairwise match dataset",
	Long: `Compute each competitor's trailing-window form going into every match and
append the A-minus-B differences to a pairwise dataset.

The pairwise CSV needs tourney_date, surface and A_player_id/A_name,
B_player_id/B_name columns; every other column is carried through untouched.
Match history comes from --matches files when given, else from the database.`,
	Args: cobra.NoArgs,
	RunE: runFeatures,
}

func init() {
	f := featuresCmd.Flags()
	f.StringVar(&featPairs, "pairs", "", "pairwise dataset CSV (required)")
	f.StringSliceVar(&featMatches, "matches", nil, "match history CSV files (default: the database)")
	f.IntSliceVar(&featYears, "years", nil, "restrict database history to these seasons")
	f.StringVarP(&featOut, "out", "o", "", "output CSV path (default: stdout)")
	f.BoolVar(&featSummary, "summary", false, "print a per-column summary to stderr")
	f.Int("lookback", 20, "trailing window size in matches")
	f.Int("min-matches", 10, "minimum prior matches for a feature to be defined")
	f.Int("workers", 0, "parallel competitor folds (0 = GOMAXPROCS)")
	featuresCmd.MarkFlagRequired("pairs")
}

func runFeatures(cmd *cobra.Command, args []string) error {
	engine := cfg.Engine()

	pairs, err := parser.ReadPairs(featPairs)
	if err != nil {
		return fmt.Errorf("read pairs: %w", err)
	}
	matches, err := loadHistory()
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"pairs":    len(pairs.Rows),
		"matches":  len(matches),
		"lookback": engine.LookbackMatches,
		"min":      engine.MinMatches,
	}).Info("computing recent form")

	start := time.Now()
	res, err := features.Augment(matches, pairs.Rows, engine, aggregator.Options{Workers: cfg.Workers})
	if err != nil {
		return err
	}
	entry := log.WithFields(logrus.Fields{
		"history_rows": res.HistoryRows,
		"elapsed":      time.Since(start).Round(time.Millisecond),
	})
	if res.DroppedUndated > 0 || res.DroppedUnkeyed > 0 {
		entry.WithFields(logrus.Fields{
			"dropped_undated": res.DroppedUndated,
			"dropped_unkeyed": res.DroppedUnkeyed,
		}).Warn("history rows dropped")
	}
	if res.HistoryRows == 0 {
		entry.Warn("no usable match history, every row is flagged missing")
	} else {
		entry.Info("features computed")
	}

	var w io.Writer = os.Stdout
	if featOut != "" {
		f, err := os.Create(featOut)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := parser.WriteAugmented(w, pairs.Header, res.Rows, engine.LookbackMatches); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if featOut != "" {
		log.WithFields(logrus.Fields{"path": featOut, "rows": len(res.Rows)}).Info("wrote augmented dataset")
	}

	if featSummary {
		report.PrintAugmentSummary(os.Stderr, res.Rows, engine.LookbackMatches)
	}
	return nil
}

// loadHistory reads match history from --matches files, or from the
// database when none are given.
func loadHistory() ([]model.RawMatch, error) {
	if len(featMatches) > 0 {
		var all []model.RawMatch
		for _, p := range featMatches {
			mf, err := parser.ReadMatchFile(p)
			if err != nil {
				return nil, fmt.Errorf("read matches: %w", err)
			}
			if len(mf.Absent) > 0 {
				log.WithFields(logrus.Fields{"path": p, "columns": mf.Absent}).Warn("statistic columns absent, zero-filled")
			}
			all = append(all, mf.Matches...)
		}
		return all, nil
	}

	db, err := openDB()
	if err != nil {
		return nil, err
	}
	defer db.Close()
	matches, err := db.LoadMatches(featYears)
	if err != nil {
		return nil, fmt.Errorf("load matches: %w", err)
	}
	return matches, nil
}
