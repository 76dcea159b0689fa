package storage

import (
	"database/sql"
	"fmt"

	"github.com/pable/tiebreaker/internal/model"
)

// SourceExists returns true if a file with the given hash is already stored.
func (db *DB) SourceExists(hash string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(1) FROM sources WHERE hash = ?", hash).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertSource inserts a source record. Uses INSERT OR REPLACE for idempotency.
func (db *DB) InsertSource(s model.Source) error {
	_, err := db.conn.Exec(`
		INSERT OR REPLACE INTO sources(hash, path, kind, rows, imported_at)
		VALUES (?, ?, ?, ?, ?)`,
		s.Hash, s.Path, s.Kind, s.Rows, s.ImportedAt,
	)
	return err
}

// SetSourceRows records how many rows a source contributed.
func (db *DB) SetSourceRows(hash string, rows int) error {
	_, err := db.conn.Exec(`UPDATE sources SET rows = ? WHERE hash = ?`, rows, hash)
	return err
}

// DeleteSource removes a source and, by cascade, every row imported from it.
func (db *DB) DeleteSource(hash string) error {
	_, err := db.conn.Exec(`DELETE FROM sources WHERE hash = ?`, hash)
	return err
}

// DeleteStaleSources removes every source recorded for path other than
// keepHash, with their rows. It returns how many sources were removed.
func (db *DB) DeleteStaleSources(path, keepHash string) (int64, error) {
	res, err := db.conn.Exec(`DELETE FROM sources WHERE path = ? AND hash <> ?`, path, keepHash)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListSources returns all imported files ordered by kind then path.
func (db *DB) ListSources() ([]model.Source, error) {
	rows, err := db.conn.Query(`
		SELECT hash, path, kind, rows, imported_at
		FROM sources ORDER BY kind, path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Source
	for rows.Next() {
		var s model.Source
		if err := rows.Scan(&s.Hash, &s.Path, &s.Kind, &s.Rows, &s.ImportedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// InsertMatches bulk-inserts the rows of one match file in a transaction.
// Rows are numbered in file order so LoadMatches can restore it.
func (db *DB) InsertMatches(sourceHash string, matches []model.RawMatch) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO matches(
			source_hash, row_num, tourney_date, surface,
			tourney_name, round, score, best_of, minutes,
			winner_id, winner_name, loser_id, loser_name,
			w_ace, w_df, w_svpt, w_1st_in, w_1st_won, w_2nd_won, w_sv_gms, w_bp_saved, w_bp_faced,
			l_ace, l_df, l_svpt, l_1st_in, l_1st_won, l_2nd_won, l_sv_gms, l_bp_saved, l_bp_faced
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, m := range matches {
		w, l := m.WinnerStats, m.LoserStats
		_, err = stmt.Exec(
			sourceHash, i, nullDate(m.Date, m.DateOK), m.Surface,
			m.TourneyName, m.Round, m.Score, m.BestOf, m.Minutes,
			nullInt(m.Winner.ID, m.Winner.HasID), m.Winner.Name,
			nullInt(m.Loser.ID, m.Loser.HasID), m.Loser.Name,
			w.Aces, w.DoubleFaults, w.ServePoints, w.FirstIn, w.FirstWon, w.SecondWon, w.ServiceGames, w.BreakPtsSaved, w.BreakPtsFaced,
			l.Aces, l.DoubleFaults, l.ServePoints, l.FirstIn, l.FirstWon, l.SecondWon, l.ServiceGames, l.BreakPtsSaved, l.BreakPtsFaced,
		)
		if err != nil {
			return fmt.Errorf("insert match row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

const matchColumns = `
	m.tourney_date, m.surface, m.tourney_name, m.round, m.score, m.best_of, m.minutes,
	m.winner_id, m.winner_name, m.loser_id, m.loser_name,
	m.w_ace, m.w_df, m.w_svpt, m.w_1st_in, m.w_1st_won, m.w_2nd_won, m.w_sv_gms, m.w_bp_saved, m.w_bp_faced,
	m.l_ace, m.l_df, m.l_svpt, m.l_1st_in, m.l_1st_won, m.l_2nd_won, m.l_sv_gms, m.l_bp_saved, m.l_bp_faced`

// matchOrder restores file order: files by path, rows by position.
const matchOrder = ` ORDER BY s.path, m.row_num`

func scanMatches(rows *sql.Rows) ([]model.RawMatch, error) {
	defer rows.Close()

	var out []model.RawMatch
	for rows.Next() {
		var m model.RawMatch
		var date sql.NullString
		var wid, lid sql.NullInt64
		var ws, ls [9]sql.NullFloat64
		if err := rows.Scan(
			&date, &m.Surface, &m.TourneyName, &m.Round, &m.Score, &m.BestOf, &m.Minutes,
			&wid, &m.Winner.Name, &lid, &m.Loser.Name,
			&ws[0], &ws[1], &ws[2], &ws[3], &ws[4], &ws[5], &ws[6], &ws[7], &ws[8],
			&ls[0], &ls[1], &ls[2], &ls[3], &ls[4], &ls[5], &ls[6], &ls[7], &ls[8],
		); err != nil {
			return nil, err
		}
		m.Date, m.DateOK = scanDate(date)
		m.Winner.ID, m.Winner.HasID = wid.Int64, wid.Valid
		m.Loser.ID, m.Loser.HasID = lid.Int64, lid.Valid
		m.WinnerStats = serveStats(ws)
		m.LoserStats = serveStats(ls)
		out = append(out, m)
	}
	return out, rows.Err()
}

func serveStats(v [9]sql.NullFloat64) model.ServeStats {
	return model.ServeStats{
		Aces:          v[0].Float64,
		DoubleFaults:  v[1].Float64,
		ServePoints:   v[2].Float64,
		FirstIn:       v[3].Float64,
		FirstWon:      v[4].Float64,
		SecondWon:     v[5].Float64,
		ServiceGames:  v[6].Float64,
		BreakPtsSaved: v[7].Float64,
		BreakPtsFaced: v[8].Float64,
	}
}

// LoadMatches returns stored matches in import order. When years is
// non-empty only matches dated in those seasons are returned.
func (db *DB) LoadMatches(years []int) ([]model.RawMatch, error) {
	query := `SELECT` + matchColumns + `
		FROM matches m JOIN sources s ON s.hash = m.source_hash`
	var args []any
	if len(years) > 0 {
		query += fmt.Sprintf(` WHERE CAST(substr(m.tourney_date, 1, 4) AS INTEGER) IN (%s)`, placeholders(len(years)))
		for _, y := range years {
			args = append(args, y)
		}
	}
	rows, err := db.conn.Query(query+matchOrder, args...)
	if err != nil {
		return nil, err
	}
	return scanMatches(rows)
}

// PlayerMatches returns every stored match the player took part in, in
// import order.
func (db *DB) PlayerMatches(playerID int64) ([]model.RawMatch, error) {
	rows, err := db.conn.Query(`SELECT`+matchColumns+`
		FROM matches m JOIN sources s ON s.hash = m.source_hash
		WHERE m.winner_id = ? OR m.loser_id = ?`+matchOrder, playerID, playerID)
	if err != nil {
		return nil, err
	}
	return scanMatches(rows)
}

// InsertPlayers replaces the player registry entries in a transaction.
func (db *DB) InsertPlayers(players []model.Player) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO players(player_id, full_name) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range players {
		if _, err := stmt.Exec(p.ID, p.FullName); err != nil {
			return fmt.Errorf("insert player %d: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// ListPlayers returns the registry ordered by id.
func (db *DB) ListPlayers() ([]model.Player, error) {
	rows, err := db.conn.Query(`SELECT player_id, full_name FROM players ORDER BY player_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Player
	for rows.Next() {
		var p model.Player
		if err := rows.Scan(&p.ID, &p.FullName); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// InsertRankings bulk-inserts the rows of one ranking file in a transaction.
func (db *DB) InsertRankings(sourceHash string, rankings []model.Ranking) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO rankings(
			source_hash, row_num, player_id, player_name, ranking_date, rank, points
		) VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range rankings {
		_, err = stmt.Exec(
			sourceHash, i,
			nullInt(r.PlayerID, r.PlayerID != 0), r.PlayerName,
			nullDate(r.Date, r.DateOK),
			nullInt(int64(r.Rank), r.HasRank), nullInt(int64(r.Points), r.HasPoints),
		)
		if err != nil {
			return fmt.Errorf("insert ranking row %d: %w", i, err)
		}
	}
	return tx.Commit()
}
