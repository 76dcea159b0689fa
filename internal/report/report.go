package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"gonum.org/v1/gonum/stat"

	"github.com/pable/tiebreaker/internal/model"
)

var (
	cWin     = color.New(color.FgGreen, color.Bold)
	cLoss    = color.New(color.FgRed)
	cMissing = color.New(color.FgYellow)
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
}

// fmtPct renders a fraction as a percentage, "—" when undefined.
func fmtPct(v *float64) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}

// fmtRate renders a per-service-game rate, "—" when undefined.
func fmtRate(v *float64) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%.2f", *v)
}

func fmtDate(t time.Time, ok bool) string {
	if !ok {
		return "????-??-??"
	}
	return t.Format("2006-01-02")
}

// PrintSources prints the imported files.
func PrintSources(w io.Writer, sources []model.Source) {
	table := newTable(w)
	table.Header("HASH", "KIND", "ROWS", "IMPORTED", "PATH")
	for _, s := range sources {
		hash := s.Hash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		table.Append(hash, s.Kind, strconv.Itoa(s.Rows), s.ImportedAt, s.Path)
	}
	table.Render()
}

// FormEntry is one match of a competitor's form trail: the match itself and
// the recent form the competitor carried into it.
type FormEntry struct {
	Date     time.Time
	Surface  string
	Opponent string
	Won      bool
	Row      model.FeatureRow
}

// PrintForm prints a competitor's per-match form trail. Rows below the
// minimum-history quorum are flagged.
func PrintForm(w io.Writer, name string, entries []FormEntry, lookback int) {
	fmt.Fprintf(w, "\nRecent form: %s  (window %d matches)\n\n", name, lookback)

	table := newTable(w)
	table.Header("DATE", "SURFACE", "OPPONENT", "RES",
		"WIN%", "1ST_IN%", "1ST_WON%", "2ND_WON%", "ACE/SG", "DF/SG", "SURF_WIN%", "HIST")

	wins := 0
	for _, e := range entries {
		res := cLoss.Sprint("L")
		if e.Won {
			res = cWin.Sprint("W")
			wins++
		}
		hist := "ok"
		if e.Row.Missing {
			hist = cMissing.Sprint("thin")
		}
		v := e.Row.Values
		table.Append(
			e.Date.Format("2006-01-02"),
			e.Surface,
			e.Opponent,
			res,
			fmtPct(v[model.WinRate]),
			fmtPct(v[model.FirstInPct]),
			fmtPct(v[model.FirstWonPct]),
			fmtPct(v[model.SecondWonPct]),
			fmtRate(v[model.AcesPerServiceGame]),
			fmtRate(v[model.DoubleFaultsPerServiceGame]),
			fmtPct(v[model.WinRateSurface]),
			hist,
		)
	}
	table.Render()

	if n := len(entries); n > 0 {
		lo, hi := wilsonCI(wins, n)
		fmt.Fprintf(w, "\n%d-%d over %d matches, win rate %.1f%% (95%% CI %.1f%%–%.1f%%)\n",
			wins, n-wins, n, 100*float64(wins)/float64(n), 100*lo, 100*hi)
	}
}

// wilsonCI computes the 95% Wilson score confidence interval for a proportion.
// Returns (lo, hi) as fractions in [0, 1].
func wilsonCI(hits, n int) (lo, hi float64) {
	if n == 0 {
		return 0, 1
	}
	z := 1.96
	p := float64(hits) / float64(n)
	nf := float64(n)
	denom := 1 + z*z/nf
	center := (p + z*z/(2*nf)) / denom
	half := z * math.Sqrt(p*(1-p)/nf+z*z/(4*nf*nf)) / denom
	return math.Max(0, center-half), math.Min(1, center+half)
}

// PrintRanking prints one ranking snapshot in a single line.
func PrintRanking(w io.Writer, name string, r model.Ranking) {
	date := "(date unknown)"
	if r.DateOK {
		date = r.Date.Format("2006-01-02")
	}
	switch {
	case r.HasRank && r.HasPoints:
		fmt.Fprintf(w, "%s — ATP rank %d (%d pts) on %s\n", name, r.Rank, r.Points, date)
	case r.HasRank:
		fmt.Fprintf(w, "%s — ATP rank %d on %s\n", name, r.Rank, date)
	default:
		fmt.Fprintf(w, "No rank recorded for %s (on %s).\n", name, date)
	}
}

// HeadToHeadLine formats one meeting the way the match listing prints it.
func HeadToHeadLine(m model.RawMatch) string {
	head := fmtDate(m.Date, m.DateOK) + " — " + orUnknown(m.TourneyName)
	if m.Surface != "" {
		head += " (" + m.Surface + ")"
	}
	line := head
	if m.Round != "" {
		line += " | R: " + m.Round
	}
	if m.BestOf > 0 {
		line += fmt.Sprintf(" | Best-of-%d", m.BestOf)
	}
	line += " | " + orUnknown(m.Winner.Name) + " def. " + orUnknown(m.Loser.Name)
	if m.Score != "" {
		line += "  " + m.Score
	}
	if m.Minutes > 0 {
		line += fmt.Sprintf("  (%d min)", m.Minutes)
	}
	return line
}

// PrintHeadToHead prints every meeting, one per line, followed by the tally.
func PrintHeadToHead(w io.Writer, a, b model.Player, matches []model.RawMatch) {
	winsA := 0
	for _, m := range matches {
		fmt.Fprintln(w, HeadToHeadLine(m))
		if m.Winner.HasID && m.Winner.ID == a.ID {
			winsA++
		}
	}
	fmt.Fprintf(w, "\n%s %d – %d %s\n", a.FullName, winsA, len(matches)-winsA, b.FullName)
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

// PrintAugmentSummary prints, per appended column, how many rows carry a
// value and the mean and range of those values, then the missing-flag counts.
func PrintAugmentSummary(w io.Writer, rows []model.AugmentedRow, lookback int) {
	table := newTable(w)
	table.Header("COLUMN", "DEFINED", "MEAN", "MIN", "MAX")

	for f := model.Feature(0); f < model.NumFeatures; f++ {
		var vals []float64
		for _, r := range rows {
			if v := r.Diffs[f]; v != nil {
				vals = append(vals, *v)
			}
		}
		mean, lo, hi := "—", "—", "—"
		if len(vals) > 0 {
			mean = fmt.Sprintf("%+.4f", stat.Mean(vals, nil))
			mn, mx := vals[0], vals[0]
			for _, v := range vals[1:] {
				mn, mx = math.Min(mn, v), math.Max(mx, v)
			}
			lo, hi = fmt.Sprintf("%+.4f", mn), fmt.Sprintf("%+.4f", mx)
		}
		table.Append(f.Column(lookback)+"_diff", fmt.Sprintf("%d/%d", len(vals), len(rows)), mean, lo, hi)
	}
	table.Render()

	missA, missB := 0, 0
	for _, r := range rows {
		missA += r.MissingA
		missB += r.MissingB
	}
	fmt.Fprintf(w, "\nrecent_form_missing_A: %d/%d  recent_form_missing_B: %d/%d\n", missA, len(rows), missB, len(rows))
}
