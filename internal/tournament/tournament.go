package tournament

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusCreated   Status = "created"
	StatusOngoing   Status = "ongoing"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var ErrInvalidTransition = errors.New("invalid tournament status transition")

// CanTransition reports whether a tournament may move from s to next.
// Only paused and ongoing may go back and forth.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusCreated:
		return next == StatusOngoing || next == StatusCancelled
	case StatusOngoing:
		return next == StatusPaused || next == StatusCompleted || next == StatusCancelled
	case StatusPaused:
		return next == StatusOngoing || next == StatusCancelled
	case StatusCompleted, StatusCancelled:
		return false
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusCreated, StatusOngoing, StatusPaused, StatusCompleted, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown tournament status %q", s)
}

type PairingSystem string

const (
	Swiss      PairingSystem = "swiss"
	RoundRobin PairingSystem = "round_robin"
	Knockout   PairingSystem = "knockout"
)

func ParsePairingSystem(s string) (PairingSystem, error) {
	switch ps := PairingSystem(s); ps {
	case Swiss, RoundRobin, Knockout:
		return ps, nil
	}
	return "", fmt.Errorf("unknown pairing system %q", s)
}

// Policy is the severity of a domain-policy check.
type Policy string

const (
	PolicyIgnore Policy = "ignore"
	PolicyWarn   Policy = "warn"
	PolicyReject Policy = "reject"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyIgnore, PolicyWarn, PolicyReject:
		return p, nil
	case "":
		return PolicyWarn, nil
	}
	return "", fmt.Errorf("unknown policy %q", s)
}

type Tournament struct {
	ID                   uuid.UUID     `db:"id" json:"id"`
	OwnerID              uuid.UUID     `db:"owner_id" json:"owner_id"`
	Name                 string        `db:"name" json:"name"`
	TotalRounds          int           `db:"total_rounds" json:"total_rounds"`
	PairingSystem        PairingSystem `db:"pairing_system" json:"pairing_system"`
	Status               Status        `db:"status" json:"status"`
	TiebreakOrder        string        `db:"tiebreak_order" json:"tiebreak_order"`
	AllowRematches       bool          `db:"allow_rematches" json:"allow_rematches"`
	FloatBeforeRematch   bool          `db:"float_before_rematch" json:"float_before_rematch"`
	MissingReasonPolicy  Policy        `db:"missing_reason_policy" json:"missing_reason_policy"`
	OverwriteFinalPolicy Policy        `db:"overwrite_final_policy" json:"overwrite_final_policy"`
	CreatedAt            time.Time     `db:"created_at" json:"created_at"`
}
