package resolver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Vodeneev/sharpedge/internal/pkg/enums"
	"github.com/Vodeneev/sharpedge/internal/pkg/models"
)

var (
	ErrSameTeam         = errors.New("home and away resolve to the same team")
	ErrInvalidStartTime = errors.New("invalid start time")
)

const (
	DefaultBucket    = 5 * time.Minute
	DefaultTolerance = 5 * time.Minute
)

// BucketStart rounds t to the nearest bucket boundary in UTC, halfway values round up.
func BucketStart(t time.Time, bucket time.Duration) time.Time {
	if bucket <= 0 {
		bucket = DefaultBucket
	}
	return t.UTC().Round(bucket)
}

var startLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseStartTime accepts ISO-8601 with or without zone (no zone means UTC) and unix seconds or milliseconds.
func ParseStartTime(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidStartTime)
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}

	for _, layout := range startLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidStartTime, raw)
}

type pairKey struct {
	league enums.League
	a, b   string // team ids, a < b
}

func newPairKey(league enums.League, home, away string) pairKey {
	if home > away {
		home, away = away, home
	}
	return pairKey{league: league, a: home, b: away}
}

type gameEntry struct {
	key    models.CanonicalGameKey
	anchor time.Time // raw start of the first observation
}

// GameIndex assigns game keys within one cycle. The first observation of a game fixes
// its key and orientation; later ones join it when their bucket matches or their raw
// start is within tolerance of the anchor.
type GameIndex struct {
	bucket    time.Duration
	tolerance time.Duration
	games     map[pairKey][]*gameEntry
}

func NewGameIndex(bucket, tolerance time.Duration) *GameIndex {
	if bucket <= 0 {
		bucket = DefaultBucket
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &GameIndex{
		bucket:    bucket,
		tolerance: tolerance,
		games:     make(map[pairKey][]*gameEntry),
	}
}

// Resolve returns the game key for the observation. swapped is true when the book lists
// the teams in the opposite home/away order from the key.
func (g *GameIndex) Resolve(league enums.League, homeID, awayID string, start time.Time) (key models.CanonicalGameKey, swapped bool, err error) {
	if homeID == awayID {
		return models.CanonicalGameKey{}, false, fmt.Errorf("%w: %s", ErrSameTeam, homeID)
	}

	start = start.UTC()
	bucketed := BucketStart(start, g.bucket)
	pk := newPairKey(league, homeID, awayID)

	var match *gameEntry
	var matchDiff time.Duration
	for _, e := range g.games[pk] {
		diff := absDuration(start.Sub(e.anchor))
		if !e.key.Start.Equal(bucketed) && diff > g.tolerance {
			continue
		}
		if match == nil || diff < matchDiff {
			match, matchDiff = e, diff
		}
	}
	if match != nil {
		return match.key, match.key.HomeTeamID != homeID, nil
	}

	e := &gameEntry{
		key: models.CanonicalGameKey{
			League:     league,
			HomeTeamID: homeID,
			AwayTeamID: awayID,
			Start:      bucketed,
		},
		anchor: start,
	}
	g.games[pk] = append(g.games[pk], e)
	return e.key, false, nil
}

// Len returns the number of distinct games seen.
func (g *GameIndex) Len() int {
	n := 0
	for _, entries := range g.games {
		n += len(entries)
	}
	return n
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
