package pairing

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrPairingImpossible = errors.New("pairing impossible")
	ErrNotEnoughPlayers  = errors.New("not enough active players to pair")
	ErrRoundOutOfRange   = errors.New("round is outside the schedule")
	ErrKnockoutUndecided = errors.New("knockout game has no winner")
	ErrKnockoutComplete  = errors.New("knockout already has a winner")
)

// ImpossibleError names the players left without a legal opponent. It is
// reported to the arbiter and never retried automatically.
type ImpossibleError struct {
	Players []uuid.UUID
	Reason  string
	// Exhausted is set when the search gave up at its step limit. A legal
	// pairing may still exist.
	Exhausted bool
}

func (e *ImpossibleError) Error() string {
	return fmt.Sprintf("pairing impossible for %d players: %s", len(e.Players), e.Reason)
}

func (e *ImpossibleError) Unwrap() error {
	return ErrPairingImpossible
}
