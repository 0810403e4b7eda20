package standings

import (
	"testing"

	"github.com/AdamBeresnev/op-arbiter/internal/tiebreak"
	"github.com/AdamBeresnev/op-arbiter/internal/tournament"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlayers(n int) []tournament.Player {
	players := make([]tournament.Player, n)
	for i := range players {
		players[i] = tournament.Player{ID: uuid.New(), Rating: 2000 - i*50, PairingNumber: i + 1, Active: true}
	}
	return players
}

func played(round int, white, black tournament.Player, result tournament.Result) tournament.Game {
	blackID := black.ID
	return tournament.Game{
		ID:          uuid.New(),
		RoundNumber: round,
		WhiteID:     white.ID,
		BlackID:     &blackID,
		Result:      result,
		ResultType:  tournament.Standard,
		Approval:    tournament.Approved,
	}
}

func rank(players []tournament.Player, games []tournament.Game, order []tiebreak.Method) []Standing {
	return Rank(players, tiebreak.Points(players, games), tiebreak.Compute(players, games), order, games)
}

func ranksByID(standings []Standing) map[uuid.UUID]int {
	ranks := make(map[uuid.UUID]int, len(standings))
	for _, s := range standings {
		ranks[s.Player.ID] = s.Rank
	}
	return ranks
}

func TestRankByPoints(t *testing.T) {
	p := newPlayers(4)
	games := []tournament.Game{
		played(1, p[0], p[1], tournament.WhiteWin),
		played(1, p[2], p[3], tournament.Draw),
		played(2, p[0], p[2], tournament.WhiteWin),
		played(2, p[1], p[3], tournament.BlackWin),
	}

	standings := rank(p, games, tiebreak.DefaultOrder)

	require.Len(t, standings, 4)
	assert.Equal(t, []uuid.UUID{p[0].ID, p[3].ID, p[2].ID, p[1].ID}, []uuid.UUID{
		standings[0].Player.ID, standings[1].Player.ID, standings[2].Player.ID, standings[3].Player.ID,
	})
	assert.Equal(t, []int{1, 2, 3, 4}, []int{standings[0].Rank, standings[1].Rank, standings[2].Rank, standings[3].Rank})
}

func TestRankSharesRankOnFullTie(t *testing.T) {
	p := newPlayers(4)
	bye := func(pl tournament.Player) tournament.Game {
		return tournament.Game{ID: uuid.New(), RoundNumber: 1, WhiteID: pl.ID, Result: tournament.WhiteWin, ResultType: tournament.Standard, Approval: tournament.Approved}
	}
	games := []tournament.Game{bye(p[0]), bye(p[1])}

	ranks := ranksByID(rank(p, games, tiebreak.DefaultOrder))

	assert.Equal(t, 1, ranks[p[0].ID])
	assert.Equal(t, 1, ranks[p[1].ID])
	assert.Equal(t, 3, ranks[p[2].ID])
	assert.Equal(t, 3, ranks[p[3].ID])
}

func TestRankNumericTiebreakOrder(t *testing.T) {
	p := newPlayers(4)
	// p0 and p1 both finish on 1.5 points; p0 beat the stronger finisher.
	games := []tournament.Game{
		played(1, p[0], p[2], tournament.WhiteWin),
		played(1, p[1], p[3], tournament.WhiteWin),
		played(2, p[2], p[3], tournament.WhiteWin),
		played(2, p[0], p[1], tournament.Draw),
	}

	standings := rank(p, games, []tiebreak.Method{tiebreak.SonnebornBerger})

	ranks := ranksByID(standings)
	assert.Less(t, ranks[p[0].ID], ranks[p[1].ID])
}

func TestRankDirectEncounter(t *testing.T) {
	p := newPlayers(4)
	a, b, c, d := p[0], p[1], p[2], p[3]
	games := []tournament.Game{
		played(1, c, a, tournament.BlackWin),
		played(1, b, d, tournament.WhiteWin),
		played(2, b, a, tournament.WhiteWin),
		played(2, c, d, tournament.WhiteWin),
	}

	withoutDirect := ranksByID(rank(p, games, nil))
	assert.Equal(t, 1, withoutDirect[b.ID])
	assert.Equal(t, 2, withoutDirect[a.ID])
	assert.Equal(t, 2, withoutDirect[c.ID])
	assert.Equal(t, 4, withoutDirect[d.ID])

	standings := rank(p, games, []tiebreak.Method{tiebreak.DirectEncounter})
	ranks := ranksByID(standings)
	assert.Equal(t, 2, ranks[a.ID])
	assert.Equal(t, 3, ranks[c.ID])
	for _, s := range standings {
		if s.Player.ID == a.ID {
			require.NotNil(t, s.DirectEncounter)
			assert.Equal(t, 1.0, *s.DirectEncounter)
		}
	}
}

func TestRankDirectEncounterSkippedForIncompleteGroup(t *testing.T) {
	p := newPlayers(4)
	// Everyone is on half a point but p0 never met p2 or p3.
	games := []tournament.Game{
		played(1, p[0], p[1], tournament.Draw),
		played(1, p[2], p[3], tournament.Draw),
	}

	standings := rank(p, games, []tiebreak.Method{tiebreak.DirectEncounter})

	for _, s := range standings {
		assert.Equal(t, 1, s.Rank)
		assert.Nil(t, s.DirectEncounter)
	}
	assert.Equal(t, p[0].ID, standings[0].Player.ID, "ties keep pairing number order")
}

func TestRankIsDeterministicTotalPreorder(t *testing.T) {
	faker := gofakeit.New(7)
	p := newPlayers(10)

	results := []tournament.Result{tournament.WhiteWin, tournament.BlackWin, tournament.Draw}
	var games []tournament.Game
	for round := 1; round <= 5; round++ {
		order := make([]int, len(p))
		for i := range order {
			order[i] = i
		}
		for i := len(order) - 1; i > 0; i-- {
			j := faker.IntRange(0, i)
			order[i], order[j] = order[j], order[i]
		}
		for i := 0; i+1 < len(order); i += 2 {
			games = append(games, played(round, p[order[i]], p[order[i+1]], results[faker.IntRange(0, 2)]))
		}
	}

	first := rank(p, games, tiebreak.DefaultOrder)
	second := rank(p, games, tiebreak.DefaultOrder)
	assert.Equal(t, first, second)

	points := tiebreak.Points(p, games)
	for i, s := range first {
		ahead := 0
		for _, other := range first {
			if other.Rank < s.Rank {
				ahead++
			}
		}
		assert.Equal(t, ahead+1, s.Rank, "standard competition ranking")
		if i > 0 {
			assert.GreaterOrEqual(t, s.Rank, first[i-1].Rank)
			assert.LessOrEqual(t, points[s.Player.ID], points[first[i-1].Player.ID])
		}
	}
}
