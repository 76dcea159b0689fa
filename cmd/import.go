package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pable/tiebreaker/internal/model"
	"github.com/pable/tiebreaker/internal/parser"
	"github.com/pable/tiebreaker/internal/storage"
)

var (
	importYears    []int
	importNoRanks  bool
	importNoPlayer bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import players, rankings and match CSVs into the database",
	Long: `Import the ATP data tree under --data-root into the database:

  atp_player/atp_players.csv
  atp_current_ranking/atp_rankings_current.csv
  atp_old_ranking/atp_rankings_*s.csv
  atp_matches/atp_matches_YYYY.csv[.gz|.bz2|.zst]

Files already imported (same content hash) are skipped.`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

func init() {
	importCmd.Flags().IntSliceVar(&importYears, "years", nil, "only import these seasons (e.g. --years 2022,2023)")
	importCmd.Flags().BoolVar(&importNoRanks, "skip-rankings", false, "do not import ranking files")
	importCmd.Flags().BoolVar(&importNoPlayer, "skip-players", false, "do not import the player registry")
}

func runImport(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	root := cfg.DataRoot
	var imported, skipped int
	tally := func(done bool) {
		if done {
			imported++
		} else {
			skipped++
		}
	}

	if !importNoPlayer {
		done, err := importFile(db, filepath.Join(root, parser.PlayersFile), "players", func(hash, path string) (int, error) {
			players, err := parser.ReadPlayers(root)
			if err != nil {
				return 0, err
			}
			return len(players), db.InsertPlayers(players)
		})
		if errors.Is(err, os.ErrNotExist) {
			log.WithField("path", parser.PlayersFile).Warn("player registry not found, name lookups will be unavailable")
		} else if err != nil {
			return err
		} else {
			tally(done)
		}
	}

	if !importNoRanks {
		files, err := parser.RankingFiles(root)
		if err != nil {
			log.WithError(err).Warn("no ranking files imported")
		}
		for _, f := range files {
			done, err := importFile(db, f, "rankings", func(hash, path string) (int, error) {
				rs, err := parser.ReadRankingFile(path)
				if err != nil {
					return 0, err
				}
				return len(rs), db.InsertRankings(hash, rs)
			})
			if err != nil {
				return err
			}
			tally(done)
		}
	}

	files, err := parser.MatchFiles(root, importYears)
	if err != nil {
		return err
	}
	for _, f := range files {
		done, err := importFile(db, f, "matches", func(hash, path string) (int, error) {
			mf, err := parser.ReadMatchFile(path)
			if err != nil {
				return 0, err
			}
			if len(mf.Absent) > 0 {
				log.WithFields(logrus.Fields{"path": path, "columns": mf.Absent}).
					Warn("statistic columns absent, zero-filled")
			}
			return len(mf.Matches), db.InsertMatches(hash, mf.Matches)
		})
		if err != nil {
			return err
		}
		tally(done)
	}

	fmt.Fprintf(os.Stdout, "Imported %d file(s), %d already present.\n", imported, skipped)
	return nil
}

// importFile records path as a source and loads its rows with load, unless a
// file with the same content hash was already imported. Once the load
// succeeds, earlier imports of the same path are removed with their rows. It
// reports whether anything was loaded.
func importFile(db *storage.DB, path, kind string, load func(hash, path string) (int, error)) (bool, error) {
	hash, err := parser.HashFile(path)
	if err != nil {
		return false, err
	}
	exists, err := db.SourceExists(hash)
	if err != nil {
		return false, fmt.Errorf("check source: %w", err)
	}
	entry := log.WithFields(logrus.Fields{"path": path, "kind": kind, "hash": hash[:12]})
	if exists {
		entry.Debug("already imported, skipping")
		return false, nil
	}

	src := model.Source{Hash: hash, Path: path, Kind: kind, ImportedAt: time.Now().UTC().Format(time.RFC3339)}
	if err := db.InsertSource(src); err != nil {
		return false, fmt.Errorf("insert source: %w", err)
	}
	start := time.Now()
	n, err := load(hash, path)
	if err != nil {
		if derr := db.DeleteSource(hash); derr != nil {
			entry.WithError(derr).Warn("could not remove partial import")
		}
		return false, fmt.Errorf("import %s: %w", path, err)
	}
	if err := db.SetSourceRows(hash, n); err != nil {
		return false, fmt.Errorf("update source: %w", err)
	}
	stale, err := db.DeleteStaleSources(path, hash)
	if err != nil {
		return false, fmt.Errorf("remove superseded source: %w", err)
	}
	if stale > 0 {
		entry = entry.WithField("replaced", stale)
	}
	entry.WithFields(logrus.Fields{"rows": n, "elapsed": time.Since(start).Round(time.Millisecond)}).Info("imported")
	return true, nil
}
