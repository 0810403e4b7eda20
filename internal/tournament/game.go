package tournament

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnknownResult     = errors.New("unknown result")
	ErrUnknownResultType = errors.New("unknown result type")
)

type Result string

const (
	WhiteWin Result = "1-0"
	BlackWin Result = "0-1"
	Draw     Result = "1/2-1/2"
	Ongoing  Result = "*"
)

func ParseResult(s string) (Result, error) {
	switch r := Result(s); r {
	case WhiteWin, BlackWin, Draw, Ongoing:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownResult, s)
}

// Decided reports whether the result has a winner or is a draw.
func (r Result) Decided() bool {
	return r == WhiteWin || r == BlackWin || r == Draw
}

// Points returns the points each side earns from the result.
func (r Result) Points() (white, black float64) {
	switch r {
	case WhiteWin:
		return 1, 0
	case BlackWin:
		return 0, 1
	case Draw:
		return 0.5, 0.5
	case Ongoing:
		return 0, 0
	}
	return 0, 0
}

type ResultType string

const (
	Standard      ResultType = "standard"
	WhiteForfeit  ResultType = "white_forfeit"
	BlackForfeit  ResultType = "black_forfeit"
	WhiteDefault  ResultType = "white_default"
	BlackDefault  ResultType = "black_default"
	WhiteTimeout  ResultType = "white_timeout"
	BlackTimeout  ResultType = "black_timeout"
	DoubleForfeit ResultType = "double_forfeit"
	Adjourned     ResultType = "adjourned"
	Cancelled     ResultType = "cancelled"
)

func ParseResultType(s string) (ResultType, error) {
	switch t := ResultType(s); t {
	case Standard, WhiteForfeit, BlackForfeit, WhiteDefault, BlackDefault,
		WhiteTimeout, BlackTimeout, DoubleForfeit, Adjourned, Cancelled:
		return t, nil
	case "":
		return Standard, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownResultType, s)
}

func (t ResultType) IsAdministrative() bool {
	return t != Standard
}

// Allows reports whether result r may carry type t. A white forfeit means
// white lost, so only 0-1 is accepted, and so on.
func (t ResultType) Allows(r Result) bool {
	switch t {
	case Standard:
		return true
	case WhiteForfeit, WhiteDefault:
		return r == BlackWin
	case BlackForfeit, BlackDefault:
		return r == WhiteWin
	case WhiteTimeout:
		return r == BlackWin || r == Draw
	case BlackTimeout:
		return r == WhiteWin || r == Draw
	case DoubleForfeit, Adjourned, Cancelled:
		return r == Ongoing
	}
	return false
}

// Played reports whether a game with this type was actually contested over
// the board. Only played games count for colour history and ratings.
func (t ResultType) Played() bool {
	switch t {
	case Standard, WhiteTimeout, BlackTimeout:
		return true
	case WhiteForfeit, BlackForfeit, WhiteDefault, BlackDefault, DoubleForfeit, Adjourned, Cancelled:
		return false
	}
	return false
}

type Approval string

const (
	Unapproved Approval = "unapproved"
	Approved   Approval = "approved"
)

type Game struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	TournamentID uuid.UUID  `db:"tournament_id" json:"tournament_id"`
	RoundID      uuid.UUID  `db:"round_id" json:"round_id"`
	RoundNumber  int        `db:"round_number" json:"round_number"`
	Board        int        `db:"board" json:"board"`
	WhiteID      uuid.UUID  `db:"white_id" json:"white_id"`
	BlackID      *uuid.UUID `db:"black_id" json:"black_id,omitempty"`
	Result       Result     `db:"result" json:"result"`
	ResultType   ResultType `db:"result_type" json:"result_type"`
	Approval     Approval   `db:"approval" json:"approval"`
	Reason       *string    `db:"reason" json:"reason,omitempty"`
	Rated        bool       `db:"rated" json:"rated"`
	WhiteDelta   int        `db:"white_delta" json:"white_delta"`
	BlackDelta   int        `db:"black_delta" json:"black_delta"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

func (g *Game) IsBye() bool {
	return g.BlackID == nil
}

func (g *Game) IsApproved() bool {
	return g.Approval == Approved
}

// IsFinal reports whether the game no longer blocks the next round.
func (g *Game) IsFinal() bool {
	if !g.IsApproved() {
		return false
	}
	switch g.ResultType {
	case DoubleForfeit, Cancelled:
		return true
	case Adjourned:
		return false
	}
	return g.Result.Decided()
}

// IsPlayed reports whether the game was contested and decided over the board.
func (g *Game) IsPlayed() bool {
	return !g.IsBye() && g.ResultType.Played() && g.Result.Decided()
}

// Counts reports whether the game contributes to standings and tiebreaks.
func (g *Game) Counts() bool {
	return g.IsApproved()
}

func (g *Game) Points() (white, black float64) {
	return g.Result.Points()
}

// ScoreOf returns the points the player earned in the game.
func (g *Game) ScoreOf(playerID uuid.UUID) float64 {
	white, black := g.Points()
	if g.WhiteID == playerID {
		return white
	}
	if g.BlackID != nil && *g.BlackID == playerID {
		return black
	}
	return 0
}

// OpponentOf returns the other player of the game, or false for a bye or a
// player who is not part of it.
func (g *Game) OpponentOf(playerID uuid.UUID) (uuid.UUID, bool) {
	if g.BlackID == nil {
		return uuid.Nil, false
	}
	switch playerID {
	case g.WhiteID:
		return *g.BlackID, true
	case *g.BlackID:
		return g.WhiteID, true
	}
	return uuid.Nil, false
}

func (g *Game) Involves(playerID uuid.UUID) bool {
	return g.WhiteID == playerID || (g.BlackID != nil && *g.BlackID == playerID)
}
