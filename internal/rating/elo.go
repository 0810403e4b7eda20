package rating

import (
	"errors"
	"fmt"
	"math"
)

const (
	MinRating = 100
	MaxRating = 4000
)

var (
	ErrRatingOutOfRange = errors.New("rating out of range")
	ErrRatingNotInteger = errors.New("rating is not an integer")
)

// KFactor returns the K-factor for a player's pre-game rating.
func KFactor(rating int) float64 {
	switch {
	case rating < 2100:
		return 32
	case rating < 2400:
		return 24
	default:
		return 16
	}
}

// Expected returns the expected score of the player against the opponent.
func Expected(playerRating, opponentRating int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(opponentRating-playerRating)/400))
}

// ComputeDelta returns the rating change for the player after scoring
// actualScore against the opponent. The K-factor depends on the player's own
// band only, so the two sides of a game need not mirror each other.
func ComputeDelta(playerRating, opponentRating int, actualScore float64) int {
	change := KFactor(playerRating) * (actualScore - Expected(playerRating, opponentRating))
	return int(math.Round(change))
}

// Validate accepts integral ratings within [MinRating, MaxRating].
func Validate(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v", ErrRatingNotInteger, v)
	}
	if v != math.Trunc(v) {
		return fmt.Errorf("%w: %v", ErrRatingNotInteger, v)
	}
	if v < MinRating || v > MaxRating {
		return fmt.Errorf("%w: %v not in [%d, %d]", ErrRatingOutOfRange, v, MinRating, MaxRating)
	}
	return nil
}

// Apply adds delta to rating. A result outside the valid range is rejected,
// never clamped.
func Apply(rating, delta int) (int, error) {
	next := rating + delta
	if err := Validate(float64(next)); err != nil {
		return rating, err
	}
	return next, nil
}
