// Package identity derives canonical competitor and surface keys.
//
// Keys are pure functions of their inputs: an id-tagged key ("id:104925")
// when a numeric identifier is available, otherwise a name-tagged key built
// from the case-folded, whitespace-collapsed name ("name:novak djokovic").
// The two namespaces never collide because of the tag prefix.
package identity

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pable/tiebreaker/internal/model"
)

const (
	idPrefix   = "id:"
	namePrefix = "name:"
)

// NormalizeName trims, collapses runs of whitespace to a single space and
// case-folds the result. Empty input yields "".
func NormalizeName(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return cases.Fold().String(strings.Join(fields, " "))
}

// ParseID coerces a raw identifier cell to an integer. Values such as
// "104925.0" are accepted and truncated toward zero; empty, non-numeric and
// non-finite values are reported as absent.
func ParseID(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f >= math.MaxInt64 || f <= math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// Competitor builds a model.Competitor from raw id and name cells.
func Competitor(rawID, name string) model.Competitor {
	id, ok := ParseID(rawID)
	return model.Competitor{ID: id, HasID: ok, Name: name}
}

// Key returns the canonical key of c. The identifier wins over the name when
// both are present. ok is false when neither yields a usable value.
func Key(c model.Competitor) (key string, ok bool) {
	if c.HasID {
		return idPrefix + strconv.FormatInt(c.ID, 10), true
	}
	if n := NormalizeName(c.Name); n != "" {
		return namePrefix + n, true
	}
	return "", false
}

// SurfaceKey normalizes a surface label: trimmed and title-cased, or
// model.MissingSurface when empty.
func SurfaceKey(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return model.MissingSurface
	}
	// Title casers carry state between calls; build one per use.
	return cases.Title(language.Und).String(s)
}
