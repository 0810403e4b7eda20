package audit

import (
	"strings"
	"time"

	"github.com/AdamBeresnev/op-arbiter/internal/tournament"
	"github.com/google/uuid"
)

// Entry is one immutable row of a game's result history.
type Entry struct {
	ID             int64                 `db:"id" json:"id"`
	GameID         uuid.UUID             `db:"game_id" json:"game_id"`
	PreviousResult tournament.Result     `db:"previous_result" json:"previous_result"`
	PreviousType   tournament.ResultType `db:"previous_type" json:"previous_type"`
	NewResult      tournament.Result     `db:"new_result" json:"new_result"`
	NewType        tournament.ResultType `db:"new_type" json:"new_type"`
	Actor          string                `db:"actor" json:"actor"`
	Approved       bool                  `db:"approved" json:"approved"`
	Reason         *string               `db:"reason" json:"reason,omitempty"`
	Warnings       string                `db:"warnings" json:"warnings,omitempty"`
	CreatedAt      time.Time             `db:"created_at" json:"created_at"`
}

// NewEntry records the move of a game from before to after.
func NewEntry(before, after *tournament.Game, actor string, warnings []string) Entry {
	return Entry{
		GameID:         after.ID,
		PreviousResult: before.Result,
		PreviousType:   before.ResultType,
		NewResult:      after.Result,
		NewType:        after.ResultType,
		Actor:          actor,
		Approved:       after.IsApproved(),
		Reason:         after.Reason,
		Warnings:       strings.Join(warnings, ","),
		CreatedAt:      time.Now().UTC(),
	}
}

func (e Entry) WarningCodes() []string {
	if e.Warnings == "" {
		return nil
	}
	return strings.Split(e.Warnings, ",")
}

// IsApproval reports whether the entry only approved the existing result.
func (e Entry) IsApproval() bool {
	return e.Approved && e.PreviousResult == e.NewResult && e.PreviousType == e.NewType
}

// IsOverwrite reports whether the entry replaced a result that had already
// been entered.
func (e Entry) IsOverwrite() bool {
	entered := e.PreviousResult != tournament.Ongoing || e.PreviousType != tournament.Standard
	changed := e.PreviousResult != e.NewResult || e.PreviousType != e.NewType
	return entered && changed
}

type Summary struct {
	GameID      uuid.UUID             `json:"game_id"`
	Result      tournament.Result     `json:"result"`
	ResultType  tournament.ResultType `json:"result_type"`
	Approved    bool                  `json:"approved"`
	ApprovedBy  string                `json:"approved_by,omitempty"`
	LastActor   string                `json:"last_actor,omitempty"`
	Submissions int                   `json:"submissions"`
	Overwrites  int                   `json:"overwrites"`
	LastChange  time.Time             `json:"last_change"`
}

// Summarize folds a trail, oldest first, into the current state of the game.
func Summarize(trail []Entry) Summary {
	s := Summary{Result: tournament.Ongoing, ResultType: tournament.Standard}
	for _, e := range trail {
		s.GameID = e.GameID
		s.Result = e.NewResult
		s.ResultType = e.NewType
		s.Approved = e.Approved
		s.LastActor = e.Actor
		s.LastChange = e.CreatedAt

		switch {
		case e.IsApproval():
			s.ApprovedBy = e.Actor
		default:
			s.Submissions++
			s.ApprovedBy = ""
			if e.Approved {
				s.ApprovedBy = e.Actor
			}
			if e.IsOverwrite() {
				s.Overwrites++
			}
		}
	}
	return s
}
