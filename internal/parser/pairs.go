package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/pable/tiebreaker/internal/identity"
	"github.com/pable/tiebreaker/internal/model"
)

// Pairs is a pairwise dataset: the header and one PairRow per data row.
type Pairs struct {
	Header []string
	Rows   []model.PairRow
}

// ParsePairs decodes a pairwise table. tourney_date and surface are
// required, as is an id or name column for each side.
func ParsePairs(t *Table) (Pairs, error) {
	date, ok := t.Col("tourney_date")
	if !ok {
		return Pairs{}, fmt.Errorf("%w: tourney_date", ErrMissingColumn)
	}
	surface, ok := t.Col("surface")
	if !ok {
		return Pairs{}, fmt.Errorf("%w: surface", ErrMissingColumn)
	}
	aID, aName := t.colOrAbsent("A_player_id"), t.colOrAbsent("A_name")
	bID, bName := t.colOrAbsent("B_player_id"), t.colOrAbsent("B_name")
	if aID < 0 && aName < 0 {
		return Pairs{}, fmt.Errorf("%w: A_player_id or A_name", ErrMissingColumn)
	}
	if bID < 0 && bName < 0 {
		return Pairs{}, fmt.Errorf("%w: B_player_id or B_name", ErrMissingColumn)
	}

	out := Pairs{Header: t.Header, Rows: make([]model.PairRow, 0, len(t.Rows))}
	for _, row := range t.Rows {
		d, ok := ParseDate(cell(row, date))
		out.Rows = append(out.Rows, model.PairRow{
			Date:    d,
			DateOK:  ok,
			Surface: cell(row, surface),
			A:       identity.Competitor(cell(row, aID), cell(row, aName)),
			B:       identity.Competitor(cell(row, bID), cell(row, bName)),
			Cells:   row,
		})
	}
	return out, nil
}

// ReadPairs reads a pairwise dataset from path.
func ReadPairs(path string) (Pairs, error) {
	rc, err := Open(path)
	if err != nil {
		return Pairs{}, err
	}
	defer rc.Close()

	t, err := ReadTable(rc)
	if err != nil {
		return Pairs{}, fmt.Errorf("%s: %w", path, err)
	}
	p, err := ParsePairs(t)
	if err != nil {
		return Pairs{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// AugmentedColumns returns the nine columns appended to a pairwise dataset.
func AugmentedColumns(lookback int) []string {
	cols := make([]string, 0, model.NumFeatures+2)
	for f := model.Feature(0); f < model.NumFeatures; f++ {
		cols = append(cols, f.Column(lookback)+"_diff")
	}
	return append(cols, "recent_form_missing_A", "recent_form_missing_B")
}

// FormatValue renders a feature value; undefined is the empty cell.
func FormatValue(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

// WriteAugmented writes header plus the appended columns, then every row's
// original cells followed by its diffs and missing flags. Rows are padded or
// cut to the header width so the appended columns stay aligned.
func WriteAugmented(w io.Writer, header []string, rows []model.AugmentedRow, lookback int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append(append([]string(nil), header...), AugmentedColumns(lookback)...)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	rec := make([]string, 0, len(header)+int(model.NumFeatures)+2)
	for i, r := range rows {
		rec = append(rec[:0], r.Cells...)
		if len(rec) > len(header) {
			rec = rec[:len(header)]
		}
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		for _, v := range r.Diffs {
			rec = append(rec, FormatValue(v))
		}
		rec = append(rec, strconv.Itoa(r.MissingA), strconv.Itoa(r.MissingB))
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
