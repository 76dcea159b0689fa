// Package resolve maps a free-text player name onto the player registry.
package resolve

import (
	"errors"

	"github.com/pable/tiebreaker/internal/identity"
	"github.com/pable/tiebreaker/internal/model"
)

// Cutoff is the minimum similarity for a fuzzy match.
const Cutoff = 0.75

// ErrNotFound is returned when no candidate is close enough.
var ErrNotFound = errors.New("player not found")

// BestMatch returns the candidate equal to query after name normalization,
// or failing that the most similar candidate scoring at least Cutoff. Equal
// scores go to the lexicographically greater candidate.
func BestMatch(query string, candidates []string) (string, error) {
	q := identity.NormalizeName(query)
	for _, c := range candidates {
		if identity.NormalizeName(c) == q {
			return c, nil
		}
	}

	best, bestScore := "", -1.0
	for _, c := range candidates {
		s := Similarity(c, query)
		if s < Cutoff {
			continue
		}
		if s > bestScore || (s == bestScore && c > best) {
			best, bestScore = c, s
		}
	}
	if bestScore < 0 {
		return "", ErrNotFound
	}
	return best, nil
}

// Player resolves query against the registry and returns the first player
// carrying the matched name.
func Player(query string, players []model.Player) (model.Player, error) {
	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.FullName
	}
	name, err := BestMatch(query, names)
	if err != nil {
		return model.Player{}, err
	}
	for _, p := range players {
		if p.FullName == name {
			return p, nil
		}
	}
	return model.Player{}, ErrNotFound
}

// Similarity is the Ratcliff/Obershelp ratio 2M/T, where M counts the runes
// in matching blocks found by recursively taking the longest common
// substring, and T is the total rune count of both strings.
func Similarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(ra, rb)) / float64(total)
}

func matchingRunes(a, b []rune) int {
	i, j, k := longestMatch(a, b)
	if k == 0 {
		return 0
	}
	return k + matchingRunes(a[:i], b[:j]) + matchingRunes(a[i+k:], b[j+k:])
}

// longestMatch finds the longest common substring of a and b. Ties go to the
// earliest start in a, then in b.
func longestMatch(a, b []rune) (besti, bestj, bestk int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				k := cur[j]
				si, sj := i-k, j-k
				if k > bestk || (k == bestk && (si < besti || (si == besti && sj < bestj))) {
					besti, bestj, bestk = si, sj, k
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return besti, bestj, bestk
}
