package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/pable/tiebreaker/internal/identity"
	"github.com/pable/tiebreaker/internal/model"
)

// statColumns are the per-side statistic suffixes, in model.ServeStats order.
var statColumns = [...]string{"ace", "df", "svpt", "1stIn", "1stWon", "2ndWon", "SvGms", "bpSaved", "bpFaced"}

// MatchSchema records where each match column lives in a table. Absent
// columns are -1 and read as empty cells, so absent statistics are zero.
type MatchSchema struct {
	Date    int
	Surface int

	WinnerID, WinnerName int
	LoserID, LoserName   int

	WinnerStats [len(statColumns)]int
	LoserStats  [len(statColumns)]int

	TourneyName, Round, Score, BestOf, Minutes int
}

// NegotiateMatchSchema inspects t's header once. tourney_date is required,
// as is an id or name column for each side.
func NegotiateMatchSchema(t *Table) (MatchSchema, error) {
	s := MatchSchema{
		Date:        t.colOrAbsent("tourney_date"),
		Surface:     t.colOrAbsent("surface"),
		WinnerID:    t.colOrAbsent("winner_id"),
		WinnerName:  t.colOrAbsent("winner_name"),
		LoserID:     t.colOrAbsent("loser_id"),
		LoserName:   t.colOrAbsent("loser_name"),
		TourneyName: t.colOrAbsent("tourney_name"),
		Round:       t.colOrAbsent("round"),
		Score:       t.colOrAbsent("score"),
		BestOf:      t.colOrAbsent("best_of"),
		Minutes:     t.colOrAbsent("minutes"),
	}
	if s.Date < 0 {
		return s, fmt.Errorf("%w: tourney_date", ErrMissingColumn)
	}
	if s.WinnerID < 0 && s.WinnerName < 0 {
		return s, fmt.Errorf("%w: winner_id or winner_name", ErrMissingColumn)
	}
	if s.LoserID < 0 && s.LoserName < 0 {
		return s, fmt.Errorf("%w: loser_id or loser_name", ErrMissingColumn)
	}
	for i, c := range statColumns {
		s.WinnerStats[i] = t.colOrAbsent("w_" + c)
		s.LoserStats[i] = t.colOrAbsent("l_" + c)
	}
	return s, nil
}

// Absent lists the statistic columns the table does not have.
func (s MatchSchema) Absent() []string {
	var out []string
	for i, c := range statColumns {
		if s.WinnerStats[i] < 0 {
			out = append(out, "w_"+c)
		}
		if s.LoserStats[i] < 0 {
			out = append(out, "l_"+c)
		}
	}
	return out
}

func readStats(row []string, cols [len(statColumns)]int) model.ServeStats {
	v := func(i int) float64 { return ParseFloat(cell(row, cols[i])) }
	return model.ServeStats{
		Aces:          v(0),
		DoubleFaults:  v(1),
		ServePoints:   v(2),
		FirstIn:       v(3),
		FirstWon:      v(4),
		SecondWon:     v(5),
		ServiceGames:  v(6),
		BreakPtsSaved: v(7),
		BreakPtsFaced: v(8),
	}
}

// Match decodes one row under the schema.
func (s MatchSchema) Match(row []string) model.RawMatch {
	date, ok := ParseDate(cell(row, s.Date))
	m := model.RawMatch{
		Date:        date,
		DateOK:      ok,
		Surface:     cell(row, s.Surface),
		Winner:      identity.Competitor(cell(row, s.WinnerID), cell(row, s.WinnerName)),
		Loser:       identity.Competitor(cell(row, s.LoserID), cell(row, s.LoserName)),
		WinnerStats: readStats(row, s.WinnerStats),
		LoserStats:  readStats(row, s.LoserStats),
		TourneyName: cell(row, s.TourneyName),
		Round:       cell(row, s.Round),
		Score:       cell(row, s.Score),
	}
	m.BestOf, _ = parseInt(cell(row, s.BestOf))
	m.Minutes, _ = parseInt(cell(row, s.Minutes))
	return m
}

// MatchFile is the result of reading one match file.
type MatchFile struct {
	Path    string
	Matches []model.RawMatch
	Absent  []string
}

// ReadMatchFile reads a single match file.
func ReadMatchFile(path string) (MatchFile, error) {
	rc, err := Open(path)
	if err != nil {
		return MatchFile{}, err
	}
	defer rc.Close()

	t, err := ReadTable(rc)
	if err != nil {
		return MatchFile{}, fmt.Errorf("%s: %w", path, err)
	}
	schema, err := NegotiateMatchSchema(t)
	if err != nil {
		return MatchFile{}, fmt.Errorf("%s: %w", path, err)
	}

	out := MatchFile{Path: path, Matches: make([]model.RawMatch, 0, len(t.Rows)), Absent: schema.Absent()}
	for _, row := range t.Rows {
		out.Matches = append(out.Matches, schema.Match(row))
	}
	return out, nil
}

// ReadMatches concatenates the matches of every file in order.
func ReadMatches(paths ...string) ([]model.RawMatch, error) {
	var all []model.RawMatch
	for _, p := range paths {
		mf, err := ReadMatchFile(p)
		if err != nil {
			return nil, err
		}
		all = append(all, mf.Matches...)
	}
	return all, nil
}

var matchFileRe = regexp.MustCompile(`^atp_matches_(\d{4})\.csv(\.gz|\.bz2|\.zst)?$`)

// MatchFiles lists the singles match files under root/atp_matches, sorted by
// name. When years is non-empty only those seasons are returned.
func MatchFiles(root string, years []int) ([]string, error) {
	dir := filepath.Join(root, "atp_matches")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list match files: %w", err)
	}
	want := make(map[int]bool, len(years))
	for _, y := range years {
		want[y] = true
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := matchFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		y, _ := strconv.Atoi(m[1])
		if len(want) > 0 && !want[y] {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil, fmt.Errorf("no atp_matches_YYYY.csv files in %s", dir)
	}
	return out, nil
}
