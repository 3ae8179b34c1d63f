package game

import "math"

// eloK is the K-factor of the rating update.
const eloK = 30

// Score is player1's result in a finished game.
type Score float64

const (
	ScoreLoss Score = 0.0
	ScoreDraw Score = 0.5
	ScoreWin  Score = 1.0
)

// EloChange returns the rating change of player1 after a game against
// player2. The caller adds the returned value to player1's rating and
// subtracts it from player2's.
func EloChange(elo1, elo2 int, score Score) int {
	expected := 1 / (1 + math.Pow(10, float64(elo2-elo1)/400))
	return int(math.Round(eloK * (float64(score) - expected)))
}
