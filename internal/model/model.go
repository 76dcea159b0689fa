// Package model holds the shared types of the recent-form feature engine.
package model

import (
	"errors"
	"fmt"
	"time"
)

// MissingSurface is the surface key used when a match has no usable surface.
const MissingSurface = "__MISSING__"

// Competitor is one side of a match as supplied by the data source.
// HasID is false when the id column was absent or unparseable.
type Competitor struct {
	ID    int64
	HasID bool
	Name  string
}

// ServeStats are the per-match service statistics of one competitor.
// Absent columns are zero-filled at the ingestion boundary.
type ServeStats struct {
	Aces          float64
	DoubleFaults  float64
	ServePoints   float64
	FirstIn       float64
	FirstWon      float64
	SecondWon     float64
	ServiceGames  float64
	BreakPtsSaved float64
	BreakPtsFaced float64
}

// ---- Raw input ----

// RawMatch is one completed match. DateOK is false when the tournament date
// could not be parsed; such matches never enter a history.
type RawMatch struct {
	Date        time.Time
	DateOK      bool
	Surface     string
	Winner      Competitor
	Loser       Competitor
	WinnerStats ServeStats
	LoserStats  ServeStats

	// Descriptive fields, carried for head-to-head listings only.
	TourneyName string
	Round       string
	Score       string
	BestOf      int
	Minutes     int
}

// ---- Derived rows ----

// CompetitorMatch is one match seen from one competitor's perspective.
type CompetitorMatch struct {
	Key        string
	Date       time.Time
	SurfaceKey string
	Won        bool
	Stats      ServeStats
}

// Feature indexes into FeatureValues.
type Feature int

const (
	WinRate Feature = iota
	FirstInPct
	FirstWonPct
	SecondWonPct
	AcesPerServiceGame
	DoubleFaultsPerServiceGame
	WinRateSurface

	NumFeatures
)

// FeatureValues holds the seven recent-form features. A nil entry is undefined.
type FeatureValues [NumFeatures]*float64

// Column returns the output column name of f for the given lookback.
func (f Feature) Column(lookback int) string {
	switch f {
	case WinRate:
		return fmt.Sprintf("win_rate_%d", lookback)
	case FirstInPct:
		return fmt.Sprintf("first_in_pct_%d", lookback)
	case FirstWonPct:
		return fmt.Sprintf("first_won_pct_%d", lookback)
	case SecondWonPct:
		return fmt.Sprintf("second_won_pct_%d", lookback)
	case AcesPerServiceGame:
		return fmt.Sprintf("aces_per_SvGm_%d", lookback)
	case DoubleFaultsPerServiceGame:
		return fmt.Sprintf("df_per_SvGm_%d", lookback)
	case WinRateSurface:
		return fmt.Sprintf("win_rate_surface_%d", lookback)
	default:
		return fmt.Sprintf("feature_%d", int(f))
	}
}

// FeatureRow is the recent form of one competitor going into one match.
type FeatureRow struct {
	Key        string
	Date       time.Time
	SurfaceKey string
	Values     FeatureValues
	Missing    bool
}

// RowKey identifies at most one FeatureRow.
type RowKey struct {
	Key        string
	Day        int64 // Unix seconds of the UTC date
	SurfaceKey string
}

// KeyOf builds the RowKey of a competitor on a date and surface.
func KeyOf(key string, date time.Time, surfaceKey string) RowKey {
	return RowKey{Key: key, Day: date.Unix(), SurfaceKey: surfaceKey}
}

// RowKey returns the lookup key of r.
func (r FeatureRow) RowKey() RowKey {
	return KeyOf(r.Key, r.Date, r.SurfaceKey)
}

// ---- Pairwise dataset ----

// PairRow is one row of the pairwise dataset. Cells is the original row and
// is never modified.
type PairRow struct {
	Date    time.Time
	DateOK  bool
	Surface string
	A       Competitor
	B       Competitor
	Cells   []string
}

// AugmentedRow is a PairRow with its recent-form differences attached.
type AugmentedRow struct {
	PairRow
	Diffs    FeatureValues
	MissingA int
	MissingB int
}

// ---- Configuration ----

// Config controls the trailing window of the rolling engine.
type Config struct {
	LookbackMatches int
	MinMatches      int
}

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid recent-form config")

// DefaultConfig returns the 20-match window with a 10-match quorum.
func DefaultConfig() Config {
	return Config{LookbackMatches: 20, MinMatches: 10}
}

// Validate checks 1 <= MinMatches <= LookbackMatches.
func (c Config) Validate() error {
	if c.LookbackMatches < 1 {
		return fmt.Errorf("%w: lookback_matches must be positive, got %d", ErrInvalidConfig, c.LookbackMatches)
	}
	if c.MinMatches < 1 || c.MinMatches > c.LookbackMatches {
		return fmt.Errorf("%w: min_matches must be in [1, %d], got %d", ErrInvalidConfig, c.LookbackMatches, c.MinMatches)
	}
	return nil
}

// ---- Collaborator records ----

// Player is one entry of the player registry.
type Player struct {
	ID       int64
	FullName string
}

// Ranking is one ranking snapshot. DateOK is false when the source had no
// usable ranking date. Older files identify the player by name only; those
// rows carry PlayerName and a zero PlayerID.
type Ranking struct {
	PlayerID   int64
	PlayerName string
	Date       time.Time
	DateOK     bool
	Rank       int
	Points     int
	HasRank    bool
	HasPoints  bool
}

// Source is one imported file.
type Source struct {
	Hash       string
	Path       string
	Kind       string
	Rows       int
	ImportedAt string
}
