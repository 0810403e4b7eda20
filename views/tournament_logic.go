package views

import (
	"cmp"
	"slices"

	"github.com/AdamBeresnev/op-arbiter/internal/tournament"
	"github.com/google/uuid"
)

type RoundData struct {
	Rounds    map[int][]tournament.Game
	RoundNums []int
	PlayerMap map[uuid.UUID]tournament.Player
}

// PrepareRoundData groups games by round, rounds ascending and boards in
// order inside each round.
func PrepareRoundData(players []tournament.Player, games []tournament.Game) RoundData {
	playerMap := make(map[uuid.UUID]tournament.Player, len(players))
	for _, p := range players {
		playerMap[p.ID] = p
	}

	rounds := make(map[int][]tournament.Game)
	var roundNums []int
	for _, g := range games {
		if _, exists := rounds[g.RoundNumber]; !exists {
			roundNums = append(roundNums, g.RoundNumber)
		}
		rounds[g.RoundNumber] = append(rounds[g.RoundNumber], g)
	}

	slices.Sort(roundNums)
	for _, n := range roundNums {
		slices.SortFunc(rounds[n], func(a, b tournament.Game) int {
			return cmp.Compare(a.Board, b.Board)
		})
	}

	return RoundData{
		Rounds:    rounds,
		RoundNums: roundNums,
		PlayerMap: playerMap,
	}
}

// Name returns the display label of a player, or "bye" for a missing one.
func (d RoundData) Name(id *uuid.UUID) string {
	if id == nil {
		return "bye"
	}
	p, ok := d.PlayerMap[*id]
	if !ok {
		return id.String()
	}
	return PlayerLabel(p)
}
