package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pable/tiebreaker/internal/identity"
	"github.com/pable/tiebreaker/internal/model"
)

// PlayersFile is the player registry path relative to the data root.
const PlayersFile = "atp_player/atp_players.csv"

// ParsePlayers decodes a player registry. The full name comes from a
// first/last column pair when both exist, otherwise from a single player or
// name column. Rows without a numeric id are skipped.
func ParsePlayers(t *Table) ([]model.Player, error) {
	pid, ok := t.Col("player_id", "id")
	if !ok {
		return nil, fmt.Errorf("%w: player_id", ErrMissingColumn)
	}
	first, hasFirst := t.Col("name_first", "firstname", "first_name")
	last, hasLast := t.Col("name_last", "lastname", "last_name")
	single, hasSingle := t.Col("player", "name")
	if !(hasFirst && hasLast) && !hasSingle {
		return nil, fmt.Errorf("%w: no name column in player registry", ErrMissingColumn)
	}

	out := make([]model.Player, 0, len(t.Rows))
	for _, row := range t.Rows {
		id, ok := identity.ParseID(cell(row, pid))
		if !ok {
			continue
		}
		var name string
		if hasFirst && hasLast {
			name = strings.TrimSpace(cell(row, first) + " " + cell(row, last))
		} else {
			name = cell(row, single)
		}
		out = append(out, model.Player{ID: id, FullName: name})
	}
	return out, nil
}

// ReadPlayers reads root/atp_player/atp_players.csv.
func ReadPlayers(root string) ([]model.Player, error) {
	path := filepath.Join(root, PlayersFile)
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	t, err := ReadTable(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	players, err := ParsePlayers(t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return players, nil
}

// ParseRankings decodes a ranking table. The player column holds an id in
// recent files and a display name in some older ones; both are handled.
func ParseRankings(t *Table) ([]model.Ranking, error) {
	date := t.colOrAbsent("ranking_date")
	rank := t.colOrAbsent("rank")
	points := t.colOrAbsent("points")
	pid := t.colOrAbsent("player_id")
	player := t.colOrAbsent("player")
	if pid < 0 && player < 0 {
		return nil, fmt.Errorf("%w: player or player_id", ErrMissingColumn)
	}

	// A player column counts as ids only when every non-empty cell is digits.
	playerIsID := pid < 0 && player >= 0
	if playerIsID {
		for _, row := range t.Rows {
			if v := strings.TrimSuffix(cell(row, player), ".0"); v != "" && !isDigits(v) {
				playerIsID = false
				break
			}
		}
	}

	out := make([]model.Ranking, 0, len(t.Rows))
	for _, row := range t.Rows {
		var r model.Ranking
		switch {
		case pid >= 0:
			r.PlayerID, _ = identity.ParseID(cell(row, pid))
		case playerIsID:
			r.PlayerID, _ = identity.ParseID(cell(row, player))
		default:
			r.PlayerName = cell(row, player)
		}
		r.Date, r.DateOK = ParseDate(cell(row, date))
		r.Rank, r.HasRank = parseInt(cell(row, rank))
		r.Points, r.HasPoints = parseInt(cell(row, points))
		out = append(out, r)
	}
	return out, nil
}

// RankingFiles lists the current ranking file and every decade file under
// root, current first. It is an error for none to exist.
func RankingFiles(root string) ([]string, error) {
	var out []string
	cur := filepath.Join(root, "atp_current_ranking", "atp_rankings_current.csv")
	if _, err := os.Stat(cur); err == nil {
		out = append(out, cur)
	}
	old, err := filepath.Glob(filepath.Join(root, "atp_old_ranking", "atp_rankings_*s.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(old)
	out = append(out, old...)
	if len(out) == 0 {
		return nil, fmt.Errorf("no ranking files under %s", root)
	}
	return out, nil
}

// ReadRankingFile reads one ranking file.
func ReadRankingFile(path string) ([]model.Ranking, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	t, err := ReadTable(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rs, err := ParseRankings(t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rs, nil
}
