package validator

import (
	"errors"
	"testing"

	"github.com/AdamBeresnev/op-arbiter/internal/tournament"
	"github.com/AdamBeresnev/op-arbiter/internal/utils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSnapshot() Snapshot {
	tr := &tournament.Tournament{
		ID:                   uuid.New(),
		Status:               tournament.StatusOngoing,
		MissingReasonPolicy:  tournament.PolicyWarn,
		OverwriteFinalPolicy: tournament.PolicyWarn,
	}
	white := tournament.Player{ID: uuid.New(), TournamentID: tr.ID, Rating: 1800}
	black := tournament.Player{ID: uuid.New(), TournamentID: tr.ID, Rating: 1700}
	round := &tournament.Round{ID: uuid.New(), TournamentID: tr.ID, Number: 1, Status: tournament.RoundPaired}
	blackID := black.ID
	game := &tournament.Game{
		ID:           uuid.New(),
		TournamentID: tr.ID,
		RoundID:      round.ID,
		RoundNumber:  1,
		Board:        1,
		WhiteID:      white.ID,
		BlackID:      &blackID,
		Result:       tournament.Ongoing,
		ResultType:   tournament.Standard,
		Approval:     tournament.Approved,
	}
	return Snapshot{Tournament: tr, Round: round, Game: game, Players: []tournament.Player{white, black}}
}

func codes(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.Code
	}
	return out
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Snapshot)
		update   Update
		valid    bool
		errors   []string
		warnings []string
	}{
		{
			name:   "standard decisive result",
			update: Update{Result: "1-0"},
			valid:  true,
		},
		{
			name:   "malformed token",
			update: Update{Result: "2-0"},
			errors: []string{CodeMalformedResult},
		},
		{
			name:   "malformed type",
			update: Update{Result: "1-0", ResultType: "resigned"},
			errors: []string{CodeMalformedType},
		},
		{
			name:   "draw cannot be a forfeit",
			update: Update{Result: "1/2-1/2", ResultType: "white_forfeit", Reason: utils.Ptr("late")},
			errors: []string{CodeIncompatibleType},
		},
		{
			name:     "forfeit without reason warns",
			update:   Update{Result: "0-1", ResultType: "white_forfeit"},
			valid:    true,
			warnings: []string{CodeMissingReason},
		},
		{
			name: "forfeit without reason rejected when mandatory",
			mutate: func(s *Snapshot) {
				s.Tournament.MissingReasonPolicy = tournament.PolicyReject
			},
			update: Update{Result: "0-1", ResultType: "white_forfeit"},
			errors: []string{CodeMissingReason},
		},
		{
			name: "forfeit without reason ignored",
			mutate: func(s *Snapshot) {
				s.Tournament.MissingReasonPolicy = tournament.PolicyIgnore
			},
			update: Update{Result: "0-1", ResultType: "white_forfeit"},
			valid:  true,
		},
		{
			name: "overwriting a final result warns",
			mutate: func(s *Snapshot) {
				s.Game.Result = tournament.WhiteWin
			},
			update:   Update{Result: "0-1"},
			valid:    true,
			warnings: []string{CodeOverwriteFinal},
		},
		{
			name: "resubmitting the same final result is silent",
			mutate: func(s *Snapshot) {
				s.Game.Result = tournament.WhiteWin
			},
			update: Update{Result: "1-0"},
			valid:  true,
		},
		{
			name: "unknown game",
			mutate: func(s *Snapshot) {
				s.Game = nil
			},
			update: Update{Result: "1-0"},
			errors: []string{CodeUnknownGame},
		},
		{
			name: "game from another tournament",
			mutate: func(s *Snapshot) {
				s.Game.TournamentID = uuid.New()
			},
			update: Update{Result: "1-0"},
			errors: []string{CodeUnknownGame},
		},
		{
			name: "player not registered",
			mutate: func(s *Snapshot) {
				s.Players = s.Players[:1]
			},
			update: Update{Result: "1-0"},
			errors: []string{CodeUnknownPlayer},
		},
		{
			name: "bye cannot change",
			mutate: func(s *Snapshot) {
				s.Game.BlackID = nil
				s.Game.Result = tournament.WhiteWin
			},
			update: Update{Result: "1-0"},
			errors: []string{CodeByeImmutable},
		},
		{
			name: "paused tournament",
			mutate: func(s *Snapshot) {
				s.Tournament.Status = tournament.StatusPaused
			},
			update: Update{Result: "1-0"},
			errors: []string{CodeTournamentNotOngoing},
		},
		{
			name: "round closed",
			mutate: func(s *Snapshot) {
				s.LaterRoundExists = true
			},
			update: Update{Result: "1-0"},
			errors: []string{CodeRoundClosed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := newSnapshot()
			if tt.mutate != nil {
				tt.mutate(&snap)
			}

			res := Validate(snap, tt.update)

			assert.Equal(t, tt.valid, res.IsValid)
			if tt.errors == nil {
				tt.errors = []string{}
			}
			if tt.warnings == nil {
				tt.warnings = []string{}
			}
			assert.Equal(t, tt.errors, codes(res.Errors))
			assert.Equal(t, tt.warnings, codes(res.Warnings))
		})
	}
}

func TestValidateParsesTokens(t *testing.T) {
	res := Validate(newSnapshot(), Update{Result: "0-1", ResultType: "black_timeout"})
	assert.False(t, res.IsValid)

	res = Validate(newSnapshot(), Update{Result: "1/2-1/2", ResultType: "black_timeout"})
	require.True(t, res.IsValid)
	assert.Equal(t, tournament.Draw, res.Outcome)
	assert.Equal(t, tournament.BlackTimeout, res.Type)
}

func TestErrKind(t *testing.T) {
	snap := newSnapshot()
	snap.Tournament.Status = tournament.StatusCompleted

	err := Validate(snap, Update{Result: "1-0"}).Err()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, Policy, verr.Kind)

	err = Validate(snap, Update{Result: "x"}).Err()
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, Structural, verr.Kind)
	assert.True(t, verr.Has(CodeMalformedResult))
	assert.True(t, verr.Has(CodeTournamentNotOngoing))

	assert.NoError(t, Validate(newSnapshot(), Update{Result: "1-0"}).Err())
}

func TestClassify(t *testing.T) {
	assert.Equal(t, Decided, Classify(tournament.Draw, tournament.Standard))
	assert.Equal(t, Undecided, Classify(tournament.Ongoing, tournament.Standard))
	assert.Equal(t, AdministrativelyDecided, Classify(tournament.WhiteWin, tournament.BlackForfeit))
	assert.Equal(t, AdministrativelyDecided, Classify(tournament.Ongoing, tournament.Cancelled))
	assert.False(t, NeedsApproval(tournament.Standard))
	assert.True(t, NeedsApproval(tournament.DoubleForfeit))
}

func TestValidateApproval(t *testing.T) {
	snap := newSnapshot()
	assert.Equal(t, []string{CodeNotPendingApproval}, codes(ValidateApproval(snap).Errors))

	snap.Game.Result = tournament.WhiteWin
	snap.Game.ResultType = tournament.BlackForfeit
	snap.Game.Approval = tournament.Unapproved
	assert.True(t, ValidateApproval(snap).IsValid)

	snap.Game.Approval = tournament.Approved
	assert.False(t, ValidateApproval(snap).IsValid)

	snap.Game = nil
	assert.Equal(t, []string{CodeUnknownGame}, codes(ValidateApproval(snap).Errors))
}
