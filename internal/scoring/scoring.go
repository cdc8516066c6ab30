// Package scoring maps answer timing and correctness to points.
package scoring

import (
	"math"
	"time"
)

const (
	MaxPoints = 1000
	MinPoints = 200

	// RaceFloor and RaceBonus set first-to-respond rewards apart from
	// multiple-choice scoring.
	RaceFloor = 250
	RaceBonus = 200
)

// ScoreFor returns the time-decayed reward for a correct answer: one point
// lost per 10ms after sentAt, never below MinPoints. Answers that arrive
// before sentAt score as if given at sentAt.
func ScoreFor(sentAt, answeredAt time.Time) int {
	elapsed := answeredAt.Sub(sentAt).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return max(MinPoints, MaxPoints-int(elapsed/10))
}

// OrderingGain scales ScoreFor by the fraction of positions in the right place.
func OrderingGain(sentAt, answeredAt time.Time, matches, total int) int {
	if total <= 0 || matches <= 0 {
		return 0
	}
	ratio := float64(matches) / float64(total)
	return int(math.Round(float64(ScoreFor(sentAt, answeredAt)) * ratio))
}

// RaceGain is the reward for a correct first-to-respond answer.
func RaceGain(sentAt, answeredAt time.Time) int {
	return max(RaceFloor, ScoreFor(sentAt, answeredAt)+RaceBonus)
}
