// Package game defines the game types offered by the service, their
// clock settings and the Elo rating update.
package game

import "time"

// Type identifies a time control. The string values are the wire
// encoding.
type Type string

const (
	Blitz   Type = "BLITZ"
	Rapid   Type = "RAPID"
	Classic Type = "CLASSIC"
)

// Types lists all game types in a stable order.
var Types = []Type{Blitz, Rapid, Classic}

// ParseType converts a wire name to a game type.
func ParseType(name string) (Type, bool) {
	switch Type(name) {
	case Blitz, Rapid, Classic:
		return Type(name), true
	default:
		return "", false
	}
}

// Clock totals per game type.
var clockTotals = map[Type]time.Duration{
	Blitz:   5 * time.Minute,
	Rapid:   30 * time.Minute,
	Classic: 2 * time.Hour,
}

// ClockTotal returns the per-team clock budget of the game type.
func ClockTotal(t Type) time.Duration {
	return clockTotals[t]
}

// FirstMoveGrace is the first mover's first clock segment, independent
// of the game type.
const FirstMoveGrace = 30 * time.Second

// DefaultElo is the rating assigned to every game type on sign-up.
const DefaultElo = 1000
