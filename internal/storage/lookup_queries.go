package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pable/tiebreaker/internal/model"
)

// RankingQuery identifies a player in the rankings table. Names are matched
// exactly against name-keyed rows from older files.
type RankingQuery struct {
	PlayerID int64
	Names    []string

	// Before limits the lookup to snapshots on or before this date.
	Before   time.Time
	HasLimit bool
}

// RankingResult is the outcome of RankingAt.
type RankingResult struct {
	Ranking model.Ranking
	Found   bool

	// NoneBefore is set when the player has dated snapshots but none on or
	// before the requested date.
	NoneBefore bool
}

// where matches the player's rows; prefix qualifies the column names.
func (q RankingQuery) where(prefix string) (string, []any) {
	conds := []string{prefix + "player_id = ?"}
	args := []any{q.PlayerID}
	if len(q.Names) > 0 {
		conds = append(conds, fmt.Sprintf("%splayer_name IN (%s)", prefix, placeholders(len(q.Names))))
		for _, n := range q.Names {
			args = append(args, n)
		}
	}
	return "(" + strings.Join(conds, " OR ") + ")", args
}

// RankingAt returns the latest dated snapshot for the player, optionally
// bounded by q.Before. A player whose rows carry no date at all gets the
// last imported row.
func (db *DB) RankingAt(q RankingQuery) (RankingResult, error) {
	where, args := q.where("")

	query := `SELECT player_id, player_name, ranking_date, rank, points FROM rankings
		WHERE ` + where + ` AND ranking_date IS NOT NULL`
	dated := append([]any(nil), args...)
	if q.HasLimit {
		query += ` AND ranking_date <= ?`
		dated = append(dated, q.Before.Format(dateLayout))
	}
	query += ` ORDER BY ranking_date DESC, rank ASC LIMIT 1`

	r, err := scanRanking(db.conn.QueryRow(query, dated...))
	if err == nil {
		return RankingResult{Ranking: r, Found: true}, nil
	}
	if err != sql.ErrNoRows {
		return RankingResult{}, err
	}

	var datedCount int
	if err := db.conn.QueryRow(`SELECT COUNT(1) FROM rankings WHERE `+where+` AND ranking_date IS NOT NULL`, args...).
		Scan(&datedCount); err != nil {
		return RankingResult{}, err
	}
	if datedCount > 0 {
		return RankingResult{NoneBefore: true}, nil
	}

	rkWhere, _ := q.where("rk.")
	r, err = scanRanking(db.conn.QueryRow(`
		SELECT rk.player_id, rk.player_name, rk.ranking_date, rk.rank, rk.points
		FROM rankings rk JOIN sources s ON s.hash = rk.source_hash
		WHERE `+rkWhere+`
		ORDER BY s.path DESC, rk.row_num DESC LIMIT 1`, args...))
	if err == sql.ErrNoRows {
		return RankingResult{}, nil
	}
	if err != nil {
		return RankingResult{}, err
	}
	return RankingResult{Ranking: r, Found: true}, nil
}

func scanRanking(row *sql.Row) (model.Ranking, error) {
	var r model.Ranking
	var pid, rank, points sql.NullInt64
	var date sql.NullString
	if err := row.Scan(&pid, &r.PlayerName, &date, &rank, &points); err != nil {
		return r, err
	}
	r.PlayerID = pid.Int64
	r.Date, r.DateOK = scanDate(date)
	r.Rank, r.HasRank = int(rank.Int64), rank.Valid
	r.Points, r.HasPoints = int(points.Int64), points.Valid
	return r, nil
}

// HeadToHeadFilter narrows a head-to-head listing. Empty fields do not filter.
type HeadToHeadFilter struct {
	Years      []int
	Tournament string // case-insensitive substring
	Round      string // case-insensitive exact
	Surface    string // case-insensitive exact
	Date       time.Time
	HasDate    bool
}

// HeadToHead returns every stored match between the two players in either
// order, sorted by date, tournament and round.
func (db *DB) HeadToHead(a, b int64, f HeadToHeadFilter) ([]model.RawMatch, error) {
	query := `SELECT` + matchColumns + `
		FROM matches m
		WHERE ((m.winner_id = ? AND m.loser_id = ?) OR (m.winner_id = ? AND m.loser_id = ?))`
	args := []any{a, b, b, a}

	if len(f.Years) > 0 {
		query += fmt.Sprintf(` AND CAST(substr(m.tourney_date, 1, 4) AS INTEGER) IN (%s)`, placeholders(len(f.Years)))
		for _, y := range f.Years {
			args = append(args, y)
		}
	}
	if f.Tournament != "" {
		query += ` AND instr(lower(m.tourney_name), lower(?)) > 0`
		args = append(args, f.Tournament)
	}
	if f.Round != "" {
		query += ` AND m.round = ? COLLATE NOCASE`
		args = append(args, f.Round)
	}
	if f.Surface != "" {
		query += ` AND m.surface = ? COLLATE NOCASE`
		args = append(args, f.Surface)
	}
	if f.HasDate {
		query += ` AND m.tourney_date = ?`
		args = append(args, f.Date.Format(dateLayout))
	}
	query += ` ORDER BY m.tourney_date IS NULL, m.tourney_date, m.tourney_name, m.round`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return scanMatches(rows)
}

// MatchSpan summarizes the stored matches.
type MatchSpan struct {
	Matches  int
	Undated  int
	First    string
	Last     string
	Players  int
	Rankings int
}

// Span returns row counts and the stored date range.
func (db *DB) Span() (MatchSpan, error) {
	var s MatchSpan
	var first, last sql.NullString
	err := db.conn.QueryRow(`
		SELECT COUNT(1),
		       COALESCE(SUM(CASE WHEN tourney_date IS NULL THEN 1 ELSE 0 END), 0),
		       MIN(tourney_date), MAX(tourney_date)
		FROM matches`).Scan(&s.Matches, &s.Undated, &first, &last)
	if err != nil {
		return s, err
	}
	s.First, s.Last = first.String, last.String
	if err := db.conn.QueryRow(`SELECT COUNT(1) FROM players`).Scan(&s.Players); err != nil {
		return s, err
	}
	if err := db.conn.QueryRow(`SELECT COUNT(1) FROM rankings`).Scan(&s.Rankings); err != nil {
		return s, err
	}
	return s, nil
}
