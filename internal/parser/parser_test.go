package parser

import (
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/pable/tiebreaker/internal/model"
)

const matchesCSV = `tourney_name,surface,tourney_date,winner_id,winner_name,loser_id,loser_name,score,best_of,round,minutes,w_ace,w_df,w_svpt,w_1stIn,w_1stWon,w_2ndWon,w_SvGms,w_bpSaved,w_bpFaced,l_ace,l_df,l_svpt,l_1stIn,l_1stWon,l_2ndWon,l_SvGms,l_bpSaved,l_bpFaced
Brisbane,Hard,20230102,104925,Novak Djokovic,106421,Daniil Medvedev,6-3 6-4,3,F,95,8,1,60,40,33,12,9,2,2,4,3,70,41,28,14,9,5,8
Doha,Hard,20230220.0,,Some Player,106421,Daniil Medvedev,7-6(5) 6-2,3,SF,,,,,,,,,,,,,,,,,,,
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func mustTable(t *testing.T, body string) *Table {
	t.Helper()
	tbl, err := ReadTable(strings.NewReader(body))
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	return tbl
}

func TestParseDate(t *testing.T) {
	want := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	for _, raw := range []string{"20230102", "20230102.0", " 2023-01-02 ", "2023-01-02 14:30:00", "2023-01-02T23:59:59+02:00"} {
		got, ok := ParseDate(raw)
		if !ok {
			t.Errorf("ParseDate(%q): not ok", raw)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v, want %v", raw, got, want)
		}
	}
	for _, raw := range []string{"", "nan", "2023-13-45", "20231345", "yesterday"} {
		if _, ok := ParseDate(raw); ok {
			t.Errorf("ParseDate(%q): expected failure", raw)
		}
	}
}

func TestParseFloat(t *testing.T) {
	cases := map[string]float64{"12": 12, "3.5": 3.5, "": 0, "n/a": 0, "NaN": 0, "inf": 0}
	for raw, want := range cases {
		if got := ParseFloat(raw); got != want {
			t.Errorf("ParseFloat(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestTable_ColIsCaseInsensitive(t *testing.T) {
	tbl := mustTable(t, "Tourney_Date,SURFACE\n20230102,Clay\n")
	if i, ok := tbl.Col("tourney_date"); !ok || i != 0 {
		t.Errorf("Col(tourney_date) = %d,%v", i, ok)
	}
	if i, ok := tbl.Col("missing", "surface"); !ok || i != 1 {
		t.Errorf("Col(missing, surface) = %d,%v", i, ok)
	}
	if _, ok := tbl.Col("round"); ok {
		t.Error("Col(round) should be absent")
	}
}

func TestReadTable_Empty(t *testing.T) {
	if _, err := ReadTable(strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestReadTable_StripsBOM(t *testing.T) {
	tbl := mustTable(t, "\uFEFFtourney_date,surface\n20230102,Clay\n")
	if tbl.Header[0] != "tourney_date" {
		t.Errorf("Header[0] = %q, want tourney_date", tbl.Header[0])
	}
	if i, ok := tbl.Col("tourney_date"); !ok || i != 0 {
		t.Errorf("Col(tourney_date) = %d,%v", i, ok)
	}
}

func TestNegotiateMatchSchema(t *testing.T) {
	s, err := NegotiateMatchSchema(mustTable(t, matchesCSV))
	if err != nil {
		t.Fatalf("NegotiateMatchSchema: %v", err)
	}
	if absent := s.Absent(); len(absent) != 0 {
		t.Errorf("Absent() = %v, want none", absent)
	}

	s, err = NegotiateMatchSchema(mustTable(t, "tourney_date,winner_name,loser_id,w_ace\n"))
	if err != nil {
		t.Fatalf("NegotiateMatchSchema: %v", err)
	}
	if got := len(s.Absent()); got != 2*len(statColumns)-1 {
		t.Errorf("len(Absent()) = %d, want %d", got, 2*len(statColumns)-1)
	}
}

func TestNegotiateMatchSchema_MissingColumns(t *testing.T) {
	for _, header := range []string{
		"surface,winner_id,loser_id",
		"tourney_date,loser_id",
		"tourney_date,winner_name",
	} {
		_, err := NegotiateMatchSchema(mustTable(t, header+"\n"))
		if !errors.Is(err, ErrMissingColumn) {
			t.Errorf("header %q: err = %v, want ErrMissingColumn", header, err)
		}
	}
}

func TestReadMatchFile(t *testing.T) {
	mf, err := ReadMatchFile(writeFile(t, "atp_matches_2023.csv", matchesCSV))
	if err != nil {
		t.Fatalf("ReadMatchFile: %v", err)
	}
	if len(mf.Matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(mf.Matches))
	}

	m := mf.Matches[0]
	if !m.DateOK || m.Date.Day() != 2 {
		t.Errorf("date = %v (ok=%v)", m.Date, m.DateOK)
	}
	if !m.Winner.HasID || m.Winner.ID != 104925 || m.Winner.Name != "Novak Djokovic" {
		t.Errorf("winner = %+v", m.Winner)
	}
	if m.WinnerStats.Aces != 8 || m.WinnerStats.ServiceGames != 9 || m.LoserStats.BreakPtsFaced != 8 {
		t.Errorf("stats = %+v / %+v", m.WinnerStats, m.LoserStats)
	}
	if m.Round != "F" || m.BestOf != 3 || m.Minutes != 95 || m.TourneyName != "Brisbane" {
		t.Errorf("descriptive fields = %q %d %d %q", m.Round, m.BestOf, m.Minutes, m.TourneyName)
	}

	m = mf.Matches[1]
	if !m.DateOK || m.Date.Month() != time.February {
		t.Errorf("float-typed date not parsed: %v", m.Date)
	}
	if m.Winner.HasID || m.Winner.Name != "Some Player" {
		t.Errorf("winner without id = %+v", m.Winner)
	}
	if m.WinnerStats != (model.ServeStats{}) {
		t.Errorf("empty stat cells should read as zero, got %+v", m.WinnerStats)
	}
}

func TestOpen_Compressed(t *testing.T) {
	dir := t.TempDir()

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	zw.Write([]byte(matchesCSV))
	zw.Close()
	gzPath := filepath.Join(dir, "atp_matches_2023.csv.gz")
	if err := os.WriteFile(gzPath, gz.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	zstPath := filepath.Join(dir, "atp_matches_2022.csv.zst")
	if err := os.WriteFile(zstPath, enc.EncodeAll([]byte(matchesCSV), nil), 0o644); err != nil {
		t.Fatal(err)
	}
	enc.Close()

	for _, p := range []string{gzPath, zstPath} {
		matches, err := ReadMatches(p)
		if err != nil {
			t.Fatalf("ReadMatches(%s): %v", filepath.Base(p), err)
		}
		if len(matches) != 2 {
			t.Errorf("%s: got %d matches, want 2", filepath.Base(p), len(matches))
		}
	}
}

func TestMatchFiles(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "atp_matches")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		"atp_matches_2021.csv", "atp_matches_2022.csv.gz", "atp_matches_2023.csv",
		"atp_matches_doubles_2023.csv", "atp_matches_qual_chall_2023.csv", "notes.txt",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	all, err := MatchFiles(root, nil)
	if err != nil {
		t.Fatalf("MatchFiles: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d files, want 3: %v", len(all), all)
	}

	some, err := MatchFiles(root, []int{2022})
	if err != nil {
		t.Fatalf("MatchFiles(2022): %v", err)
	}
	if len(some) != 1 || filepath.Base(some[0]) != "atp_matches_2022.csv.gz" {
		t.Errorf("MatchFiles(2022) = %v", some)
	}

	if _, err := MatchFiles(root, []int{1999}); err == nil {
		t.Error("expected error when no file matches")
	}
}

func TestParsePairs(t *testing.T) {
	tbl := mustTable(t, "match_id,tourney_date,surface,A_player_id,A_name,B_player_id,B_name,label\n"+
		"m1,20230102,hard,104925,Novak Djokovic,,Daniil Medvedev,1\n"+
		"m2,,Clay,1,,2,,0\n")
	p, err := ParsePairs(tbl)
	if err != nil {
		t.Fatalf("ParsePairs: %v", err)
	}
	if len(p.Rows) != 2 {
		t.Fatalf("got %d rows", len(p.Rows))
	}
	r := p.Rows[0]
	if !r.DateOK || r.Surface != "hard" || r.A.ID != 104925 || r.B.HasID || r.B.Name != "Daniil Medvedev" {
		t.Errorf("row 0 = %+v", r)
	}
	if r.Cells[0] != "m1" || r.Cells[7] != "1" {
		t.Errorf("cells not carried through: %v", r.Cells)
	}
	if p.Rows[1].DateOK {
		t.Error("row 1 has no date")
	}
}

func TestParsePairs_MissingColumns(t *testing.T) {
	for _, header := range []string{
		"surface,A_player_id,B_player_id",
		"tourney_date,A_player_id,B_player_id",
		"tourney_date,surface,B_name",
		"tourney_date,surface,A_name",
	} {
		_, err := ParsePairs(mustTable(t, header+"\n"))
		if !errors.Is(err, ErrMissingColumn) {
			t.Errorf("header %q: err = %v, want ErrMissingColumn", header, err)
		}
	}
}

func TestWriteAugmented(t *testing.T) {
	half := 0.5
	neg := -0.125
	rows := []model.AugmentedRow{
		{PairRow: model.PairRow{Cells: []string{"m1", "x"}}, MissingA: 0, MissingB: 1},
		{PairRow: model.PairRow{Cells: []string{"m2"}}},
	}
	rows[0].Diffs[model.WinRate] = &half
	rows[1].Diffs[model.DoubleFaultsPerServiceGame] = &neg

	var buf bytes.Buffer
	if err := WriteAugmented(&buf, []string{"id", "note"}, rows, 20); err != nil {
		t.Fatalf("WriteAugmented: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines", len(lines))
	}
	wantHeader := "id,note,win_rate_20_diff,first_in_pct_20_diff,first_won_pct_20_diff,second_won_pct_20_diff," +
		"aces_per_SvGm_20_diff,df_per_SvGm_20_diff,win_rate_surface_20_diff,recent_form_missing_A,recent_form_missing_B"
	if lines[0] != wantHeader {
		t.Errorf("header = %s", lines[0])
	}
	if lines[1] != "m1,x,0.5,,,,,,,0,1" {
		t.Errorf("row 1 = %s", lines[1])
	}
	if lines[2] != "m2,,,,,,,-0.125,,0,0" {
		t.Errorf("row 2 = %s", lines[2])
	}
}

func TestWriteAugmented_WideRowIsCut(t *testing.T) {
	rows := []model.AugmentedRow{
		{PairRow: model.PairRow{Cells: []string{"m1", "x", "extra"}}, MissingA: 1, MissingB: 0},
	}

	var buf bytes.Buffer
	if err := WriteAugmented(&buf, []string{"id", "note"}, rows, 20); err != nil {
		t.Fatalf("WriteAugmented: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if lines[1] != "m1,x,,,,,,,,1,0" {
		t.Errorf("row = %s", lines[1])
	}
	if n := len(strings.Split(lines[1], ",")); n != len(strings.Split(lines[0], ",")) {
		t.Errorf("row has %d fields, header %d", n, len(strings.Split(lines[0], ",")))
	}
}

func TestParsePlayers(t *testing.T) {
	players, err := ParsePlayers(mustTable(t, "player_id,name_first,name_last,hand\n104925,Novak,Djokovic,R\nbad,No,Id,L\n106421,Daniil,,R\n"))
	if err != nil {
		t.Fatalf("ParsePlayers: %v", err)
	}
	if len(players) != 2 {
		t.Fatalf("got %d players, want 2", len(players))
	}
	if players[0].FullName != "Novak Djokovic" || players[1].FullName != "Daniil" {
		t.Errorf("players = %+v", players)
	}

	players, err = ParsePlayers(mustTable(t, "id,name\n7,Roger Federer\n"))
	if err != nil || len(players) != 1 || players[0].FullName != "Roger Federer" {
		t.Errorf("single name column: %+v, %v", players, err)
	}

	if _, err := ParsePlayers(mustTable(t, "player_id,hand\n1,R\n")); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("err = %v, want ErrMissingColumn", err)
	}
}

func TestParseRankings(t *testing.T) {
	rs, err := ParseRankings(mustTable(t, "ranking_date,rank,player,points\n20230102,1,104925,6980\n20230109.0,2,104925,\n"))
	if err != nil {
		t.Fatalf("ParseRankings: %v", err)
	}
	if len(rs) != 2 {
		t.Fatalf("got %d rows", len(rs))
	}
	if rs[0].PlayerID != 104925 || rs[0].Rank != 1 || !rs[0].HasPoints || rs[0].Points != 6980 || !rs[0].DateOK {
		t.Errorf("row 0 = %+v", rs[0])
	}
	if rs[1].HasPoints || !rs[1].DateOK || rs[1].Date.Day() != 9 {
		t.Errorf("row 1 = %+v", rs[1])
	}

	rs, err = ParseRankings(mustTable(t, "ranking_date,rank,player\n19900101,1,\"Edberg, Stefan\"\n"))
	if err != nil {
		t.Fatalf("ParseRankings: %v", err)
	}
	if rs[0].PlayerID != 0 || rs[0].PlayerName != "Edberg, Stefan" {
		t.Errorf("name-keyed row = %+v", rs[0])
	}
}

func TestRankingFiles(t *testing.T) {
	root := t.TempDir()
	if _, err := RankingFiles(root); err == nil {
		t.Fatal("expected error with no ranking files")
	}
	for _, rel := range []string{
		"atp_current_ranking/atp_rankings_current.csv",
		"atp_old_ranking/atp_rankings_90s.csv",
		"atp_old_ranking/atp_rankings_00s.csv",
	} {
		p := filepath.Join(root, rel)
		os.MkdirAll(filepath.Dir(p), 0o755)
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	files, err := RankingFiles(root)
	if err != nil {
		t.Fatalf("RankingFiles: %v", err)
	}
	if len(files) != 3 || filepath.Base(files[0]) != "atp_rankings_current.csv" || filepath.Base(files[1]) != "atp_rankings_00s.csv" {
		t.Errorf("files = %v", files)
	}
}

func TestHashFile(t *testing.T) {
	a := writeFile(t, "a.csv", "x\n1\n")
	b := writeFile(t, "b.csv", "x\n1\n")
	c := writeFile(t, "c.csv", "x\n2\n")
	ha, err := HashFile(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, _ := HashFile(b)
	hc, _ := HashFile(c)
	if ha != hb || ha == hc || len(ha) != 64 {
		t.Errorf("hashes = %s %s %s", ha, hb, hc)
	}
}
