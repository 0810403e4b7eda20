package service

import (
	"errors"

	"github.com/AdamBeresnev/op-arbiter/internal/tournament"
)

var (
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrGameNotFound         = errors.New("game not found")
	ErrTournamentNotOngoing = errors.New("tournament is not ongoing")
	ErrRoundNotComplete     = errors.New("previous round has games that are not final and approved")
	ErrAllRoundsPaired      = errors.New("all rounds have been paired")
	ErrNotRatable           = errors.New("game cannot be rated")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidTransition    = tournament.ErrInvalidTransition
)
