package pairing

import (
	"cmp"
	"slices"

	"github.com/AdamBeresnev/op-arbiter/internal/tournament"
)

// RoundRobinRounds is the number of rounds one cycle takes for n players.
func RoundRobinRounds(n int) int {
	if n < 2 {
		return 0
	}
	if n%2 == 1 {
		n++
	}
	return n - 1
}

// RoundRobin looks up the pairings of a round (1-based) in the circle table
// keyed by pairing number. Rounds past the first cycle repeat it with
// colours reversed. An odd field gets an empty seat, and whoever meets it
// has the bye.
func RoundRobin(players []tournament.Player, round int) (*Plan, error) {
	seats := make([]*tournament.Player, 0, len(players)+1)
	sorted := slices.Clone(players)
	slices.SortFunc(sorted, func(a, b tournament.Player) int {
		return cmp.Compare(a.PairingNumber, b.PairingNumber)
	})
	for i := range sorted {
		seats = append(seats, &sorted[i])
	}
	if len(seats) < 2 {
		return nil, ErrNotEnoughPlayers
	}
	if len(seats)%2 == 1 {
		seats = append(seats, nil)
	}

	perCycle := len(seats) - 1
	if round < 1 {
		return nil, ErrRoundOutOfRange
	}
	cycle := (round - 1) / perCycle
	roundI := (round - 1) % perCycle

	plan := &Plan{}
	var bye *tournament.Player
	for matchI := 0; matchI < len(seats)/2; matchI++ {
		white, black := circleOpponents(seats, cycle, roundI, matchI)
		switch {
		case white == nil && black == nil:
			continue
		case black == nil:
			bye = white
			continue
		case white == nil:
			bye = black
			continue
		}
		blackID := black.ID
		plan.Pairings = append(plan.Pairings, Pairing{
			Board: len(plan.Pairings) + 1,
			White: white.ID,
			Black: &blackID,
		})
	}
	if bye != nil {
		plan.Pairings = append(plan.Pairings, Pairing{Board: len(plan.Pairings) + 1, White: bye.ID})
	}
	return plan, nil
}

// circleOpponents picks the two seats of a board. Seat 0 stays fixed and the
// others rotate one step per round; the fixed seat switches colour every
// round and every other cycle reverses all colours.
func circleOpponents(seats []*tournament.Player, cycle, roundI, matchI int) (*tournament.Player, *tournament.Player) {
	i1 := circleIndex(matchI, len(seats), roundI)
	i2 := circleIndex(len(seats)-1-matchI, len(seats), roundI)

	white, black := seats[i1], seats[i2]
	if matchI == 0 && roundI%2 != 0 {
		white, black = black, white
	}
	if cycle%2 != 0 {
		white, black = black, white
	}
	return white, black
}

func circleIndex(index, length, round int) int {
	if index == 0 {
		return 0
	}
	index -= 1
	index -= round
	index += length - 1
	index %= length - 1
	index += 1
	return index
}
