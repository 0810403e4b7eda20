package validator

import (
	"fmt"
	"strings"

	"github.com/AdamBeresnev/op-arbiter/internal/tournament"
	"github.com/google/uuid"
)

type Kind string

const (
	Structural Kind = "structural"
	Policy     Kind = "policy"
)

const (
	CodeUnknownGame          = "unknown_game"
	CodeUnknownPlayer        = "unknown_player"
	CodeMalformedResult      = "malformed_result"
	CodeMalformedType        = "malformed_result_type"
	CodeIncompatibleType     = "incompatible_result_type"
	CodeByeImmutable         = "bye_immutable"
	CodeTournamentNotOngoing = "tournament_not_ongoing"
	CodeRoundClosed          = "round_closed"
	CodeMissingReason        = "missing_reason"
	CodeOverwriteFinal       = "overwrite_final"
	CodeNotPendingApproval   = "not_pending_approval"
	CodeRatingOutOfRange     = "rating_out_of_range"
)

type Issue struct {
	Kind    Kind   `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Update is a result submission as received from a caller. Tokens stay raw
// so that malformed values are reported as issues instead of parse errors.
type Update struct {
	GameID     uuid.UUID `json:"game_id"`
	Result     string    `json:"result"`
	ResultType string    `json:"result_type"`
	Reason     *string   `json:"reason,omitempty"`
	Actor      string    `json:"-"`
}

// Snapshot is the state an update is screened against. Game is nil when the
// id did not resolve.
type Snapshot struct {
	Tournament       *tournament.Tournament
	Round            *tournament.Round
	Game             *tournament.Game
	Players          []tournament.Player
	LaterRoundExists bool
}

type Result struct {
	IsValid  bool    `json:"is_valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`

	// Parsed values, set when the tokens were well formed.
	Outcome tournament.Result     `json:"-"`
	Type    tournament.ResultType `json:"-"`
}

func (r *Result) reject(kind Kind, code, format string, args ...any) {
	r.Errors = append(r.Errors, Issue{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)})
}

// apply records a policy check according to its configured severity.
func (r *Result) apply(p tournament.Policy, code, format string, args ...any) {
	issue := Issue{Kind: Policy, Code: code, Message: fmt.Sprintf(format, args...)}
	switch p {
	case tournament.PolicyReject:
		r.Errors = append(r.Errors, issue)
	case tournament.PolicyWarn:
		r.Warnings = append(r.Warnings, issue)
	case tournament.PolicyIgnore:
	}
}

func (r *Result) finish() Result {
	r.IsValid = len(r.Errors) == 0
	if r.Errors == nil {
		r.Errors = []Issue{}
	}
	if r.Warnings == nil {
		r.Warnings = []Issue{}
	}
	return *r
}

// WarningCodes lists the codes of all warnings, in order.
func (r Result) WarningCodes() []string {
	codes := make([]string, len(r.Warnings))
	for i, w := range r.Warnings {
		codes[i] = w.Code
	}
	return codes
}

// Err returns a *ValidationError when the result is not valid.
func (r Result) Err() error {
	if r.IsValid {
		return nil
	}
	kind := Policy
	for _, issue := range r.Errors {
		if issue.Kind == Structural {
			kind = Structural
			break
		}
	}
	return &ValidationError{Kind: kind, Issues: r.Errors}
}

// ValidationError is returned when a mutation is refused. Kind is structural
// if any of the issues is structural.
type ValidationError struct {
	Kind   Kind
	Issues []Issue
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.Message
	}
	return fmt.Sprintf("%s validation failed: %s", e.Kind, strings.Join(msgs, "; "))
}

// Has reports whether one of the issues carries code.
func (e *ValidationError) Has(code string) bool {
	for _, issue := range e.Issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

type Class string

const (
	Undecided               Class = "undecided"
	Decided                 Class = "decided"
	AdministrativelyDecided Class = "administratively_decided"
)

// Classify tells how a result was reached. Only administratively decided
// results wait for an arbiter's approval.
func Classify(r tournament.Result, t tournament.ResultType) Class {
	if t.IsAdministrative() {
		return AdministrativelyDecided
	}
	if r.Decided() {
		return Decided
	}
	return Undecided
}

func NeedsApproval(t tournament.ResultType) bool {
	return Classify(tournament.Ongoing, t) == AdministrativelyDecided
}

// Validate screens update against snap. It never mutates anything.
func Validate(snap Snapshot, update Update) Result {
	var res Result

	outcome, errResult := tournament.ParseResult(update.Result)
	if errResult != nil {
		res.reject(Structural, CodeMalformedResult, "malformed result token %q", update.Result)
	}
	resultType, errType := tournament.ParseResultType(update.ResultType)
	if errType != nil {
		res.reject(Structural, CodeMalformedType, "malformed result type %q", update.ResultType)
	}
	if errResult == nil && errType == nil {
		res.Outcome, res.Type = outcome, resultType
		if !resultType.Allows(outcome) {
			res.reject(Structural, CodeIncompatibleType, "result %s cannot carry type %s", outcome, resultType)
		}
	}

	game := snap.Game
	if game == nil || snap.Tournament == nil || game.TournamentID != snap.Tournament.ID {
		res.reject(Structural, CodeUnknownGame, "game %s not found", update.GameID)
		return res.finish()
	}

	checkPlayers(&res, snap)
	if game.IsBye() {
		res.reject(Structural, CodeByeImmutable, "game %s is a bye and cannot be changed", game.ID)
	}
	checkOpen(&res, snap)

	if errResult == nil && errType == nil {
		if resultType.IsAdministrative() && (update.Reason == nil || strings.TrimSpace(*update.Reason) == "") {
			res.apply(snap.Tournament.MissingReasonPolicy, CodeMissingReason,
				"administrative result %s submitted without a reason", resultType)
		}
		changed := outcome != game.Result || resultType != game.ResultType
		if game.IsFinal() && changed {
			res.apply(snap.Tournament.OverwriteFinalPolicy, CodeOverwriteFinal,
				"overwriting final result %s (%s) with %s (%s)", game.Result, game.ResultType, outcome, resultType)
		}
	}

	return res.finish()
}

// ValidateApproval checks that the game holds an administrative result still
// waiting for approval.
func ValidateApproval(snap Snapshot) Result {
	var res Result
	game := snap.Game
	if game == nil || snap.Tournament == nil || game.TournamentID != snap.Tournament.ID {
		res.reject(Structural, CodeUnknownGame, "game not found")
		return res.finish()
	}
	res.Outcome, res.Type = game.Result, game.ResultType

	checkOpen(&res, snap)
	if game.IsApproved() || !NeedsApproval(game.ResultType) {
		res.reject(Policy, CodeNotPendingApproval, "game %s has no result awaiting approval", game.ID)
	}
	return res.finish()
}

func checkPlayers(res *Result, snap Snapshot) {
	registered := make(map[uuid.UUID]bool, len(snap.Players))
	for _, p := range snap.Players {
		if p.TournamentID == snap.Tournament.ID {
			registered[p.ID] = true
		}
	}
	game := snap.Game
	if !registered[game.WhiteID] {
		res.reject(Structural, CodeUnknownPlayer, "white player %s is not registered in the tournament", game.WhiteID)
	}
	if game.BlackID != nil && !registered[*game.BlackID] {
		res.reject(Structural, CodeUnknownPlayer, "black player %s is not registered in the tournament", *game.BlackID)
	}
}

func checkOpen(res *Result, snap Snapshot) {
	if snap.Tournament.Status != tournament.StatusOngoing {
		res.reject(Policy, CodeTournamentNotOngoing, "tournament is %s", snap.Tournament.Status)
	}
	if snap.LaterRoundExists {
		res.reject(Policy, CodeRoundClosed, "round is closed because a later round has been paired")
	}
}
