package service

import (
	"testing"

	"github.com/AdamBeresnev/op-arbiter/internal/pairing"
	"github.com/AdamBeresnev/op-arbiter/internal/tiebreak"
	"github.com/AdamBeresnev/op-arbiter/internal/tournament"
	users "github.com/AdamBeresnev/op-arbiter/internal/user"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTournamentValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   CreateTournamentInput
		wantErr bool
	}{
		{name: "swiss", input: CreateTournamentInput{Name: "Open", PairingSystem: "swiss", TotalRounds: 5}},
		{name: "round robin derives rounds", input: CreateTournamentInput{Name: "RR", PairingSystem: "round_robin"}},
		{name: "knockout", input: CreateTournamentInput{Name: "Cup", PairingSystem: "knockout"}},
		{name: "missing name", input: CreateTournamentInput{PairingSystem: "swiss", TotalRounds: 5}, wantErr: true},
		{name: "swiss without rounds", input: CreateTournamentInput{Name: "Open", PairingSystem: "swiss"}, wantErr: true},
		{name: "unknown system", input: CreateTournamentInput{Name: "Open", PairingSystem: "scheveningen", TotalRounds: 5}, wantErr: true},
		{name: "unknown tiebreak", input: CreateTournamentInput{Name: "Open", PairingSystem: "swiss", TotalRounds: 5, TiebreakOrder: "koya"}, wantErr: true},
		{name: "unknown policy", input: CreateTournamentInput{Name: "Open", PairingSystem: "swiss", TotalRounds: 5, MissingReasonPolicy: "shout"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			tr, err := e.tournaments.CreateTournament(e.ctx, users.GuestID, tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tournament.StatusCreated, tr.Status)

			stored, err := e.tournamentStore.GetTournament(e.ctx, e.db, tr.ID)
			require.NoError(t, err)
			assert.Equal(t, tr.Name, stored.Name)
			assert.Equal(t, tiebreak.FormatMethods(tiebreak.DefaultOrder), stored.TiebreakOrder)
			assert.True(t, stored.FloatBeforeRematch)
			assert.Equal(t, tournament.PolicyWarn, stored.MissingReasonPolicy)
		})
	}
}

func TestSetStatus(t *testing.T) {
	e := newTestEnv(t)
	tr, err := e.tournaments.CreateTournament(e.ctx, users.GuestID, CreateTournamentInput{Name: "Open", PairingSystem: "swiss", TotalRounds: 3})
	require.NoError(t, err)

	_, err = e.tournaments.SetStatus(e.ctx, tr.ID, "ongoing")
	assert.ErrorIs(t, err, pairing.ErrNotEnoughPlayers)

	_, err = e.tournaments.AddPlayers(e.ctx, tr.ID, []PlayerInput{{Name: "Ana", Rating: 1500}, {Name: "Ben", Rating: 1400, Title: "CM"}})
	require.NoError(t, err)

	_, err = e.tournaments.SetStatus(e.ctx, tr.ID, "completed")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = e.tournaments.SetStatus(e.ctx, tr.ID, "finished")
	assert.ErrorIs(t, err, ErrInvalidInput)

	for _, status := range []string{"ongoing", "paused", "ongoing", "completed"} {
		tr, err = e.tournaments.SetStatus(e.ctx, tr.ID, status)
		require.NoError(t, err, status)
		assert.Equal(t, tournament.Status(status), tr.Status)
	}

	_, err = e.tournaments.SetStatus(e.ctx, tr.ID, "ongoing")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = e.tournaments.SetStatus(e.ctx, uuid.New(), "ongoing")
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	assert.Contains(t, e.notifier.Events(), EventStatusChanged)
}

func TestStartDerivesRounds(t *testing.T) {
	e := newTestEnv(t)

	rr, _ := e.start(t, CreateTournamentInput{PairingSystem: "round_robin"}, 5)
	assert.Equal(t, 5, rr.TotalRounds)

	ko, _ := e.start(t, CreateTournamentInput{PairingSystem: "knockout"}, 6)
	assert.Equal(t, 3, ko.TotalRounds)

	stored, err := e.tournamentStore.GetTournament(e.ctx, e.db, ko.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.TotalRounds)
}

func TestAddPlayers(t *testing.T) {
	e := newTestEnv(t)
	tr, players := e.start(t, CreateTournamentInput{PairingSystem: "swiss", TotalRounds: 5}, 4)
	for i, p := range players {
		assert.Equal(t, i+1, p.PairingNumber)
	}

	late, err := e.tournaments.AddPlayers(e.ctx, tr.ID, []PlayerInput{{Name: "Late Entry", Rating: 1700, Title: " "}})
	require.NoError(t, err)
	assert.Equal(t, 5, late[0].PairingNumber)
	assert.Nil(t, late[0].Title)

	_, err = e.tournaments.AddPlayers(e.ctx, tr.ID, []PlayerInput{{Name: "Too Strong", Rating: 4001}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	rr, _ := e.start(t, CreateTournamentInput{PairingSystem: "round_robin"}, 4)
	_, err = e.tournaments.AddPlayers(e.ctx, rr.ID, []PlayerInput{{Name: "Late Entry", Rating: 1700}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestWithdrawPlayer(t *testing.T) {
	e := newTestEnv(t)
	tr, players := e.start(t, CreateTournamentInput{PairingSystem: "swiss", TotalRounds: 3}, 5)

	require.NoError(t, e.tournaments.WithdrawPlayer(e.ctx, tr.ID, players[4].ID))
	assert.ErrorIs(t, e.tournaments.WithdrawPlayer(e.ctx, tr.ID, uuid.New()), ErrInvalidInput)

	out, err := e.rounds.GenerateRound(e.ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, out.Games, 2, "four active players, no bye")
	for _, g := range out.Games {
		assert.False(t, g.Involves(players[4].ID))
	}
}

func TestGetTournamentData(t *testing.T) {
	e := newTestEnv(t)
	tr, players := e.start(t, CreateTournamentInput{PairingSystem: "swiss", TotalRounds: 3}, 4)
	_, err := e.rounds.GenerateRound(e.ctx, tr.ID)
	require.NoError(t, err)

	data, err := e.tournaments.GetTournamentData(e.ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.ID, data.Tournament.ID)
	assert.Len(t, data.Players, len(players))
	assert.Len(t, data.Rounds, 1)
	assert.Len(t, data.Games, 2)

	_, err = e.tournaments.GetTournamentData(e.ctx, uuid.New())
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	owned, err := e.tournaments.GetTournamentsByOwner(e.ctx, users.GuestID)
	require.NoError(t, err)
	assert.Len(t, owned, 1)
}

func TestGetStandings(t *testing.T) {
	e := newTestEnv(t)
	tr, players := e.start(t, CreateTournamentInput{PairingSystem: "swiss", TotalRounds: 3}, 5)

	out, err := e.rounds.GenerateRound(e.ctx, tr.ID)
	require.NoError(t, err)
	e.completeRound(t, out.Games)

	data, err := e.tournaments.GetStandings(e.ctx, tr.ID, "")
	require.NoError(t, err)
	require.Len(t, data.Standings, len(players))
	assert.Equal(t, tiebreak.DefaultOrder, data.Order)
	assert.Equal(t, 1, data.RoundsCompleted)

	// Two white winners and the bye share the lead on one point.
	assert.Equal(t, 1, data.Standings[0].Rank)
	assert.Equal(t, 1.0, data.Standings[0].Points)
	leaders := 0
	for _, s := range data.Standings {
		if s.Points == 1 {
			leaders++
		}
	}
	assert.Equal(t, 3, leaders)
	assert.Equal(t, 0.0, data.Standings[len(data.Standings)-1].Points)

	custom, err := e.tournaments.GetStandings(e.ctx, tr.ID, "wins,sonneborn_berger")
	require.NoError(t, err)
	assert.Equal(t, []tiebreak.Method{tiebreak.Wins, tiebreak.SonnebornBerger}, custom.Order)

	_, err = e.tournaments.GetStandings(e.ctx, tr.ID, "koya")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.tournaments.GetStandings(e.ctx, uuid.New(), "")
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}
