package pairing

import (
	"cmp"
	"math"
	"slices"

	"github.com/AdamBeresnev/op-arbiter/internal/tournament"
	"github.com/google/uuid"
)

// Gets the nearest power of 2 while rounding up, so with input 5 it returns 8 and so on
func bracketSize(count int) int {
	if count <= 0 {
		return 0
	}

	// Log2 -> Ceil -> 2^^log2 to round up
	log2 := math.Ceil(math.Log2(float64(count)))
	return int(math.Pow(2, log2))
}

// KnockoutRounds is the number of rounds needed to find a winner.
func KnockoutRounds(n int) int {
	if n < 2 {
		return 0
	}
	return int(math.Log2(float64(bracketSize(n))))
}

// seedPairs returns the seed indices meeting in the first round so that the
// top seeds can only meet late: 1 v 8, 4 v 5, 2 v 7, 3 v 6 for eight.
func seedPairs(size int) [][2]int {
	if size == 0 {
		return [][2]int{}
	}

	seeds := []int{0}
	for len(seeds) < size {
		var next []int
		count := len(seeds) * 2

		for _, seed := range seeds {
			next = append(next, seed)
			next = append(next, (count-1)-seed)
		}
		seeds = next
	}

	pairs := make([][2]int, 0, size/2)
	for i := 0; i < len(seeds); i += 2 {
		pairs = append(pairs, [2]int{seeds[i], seeds[i+1]})
	}

	return pairs
}

// Knockout pairs a single elimination round. The first round seeds active
// players by rating into a bracket padded to a power of two, the missing
// seats turning into byes. Later rounds pair the winners of consecutive
// boards of the previous round.
func Knockout(players []tournament.Player, round int, previous []tournament.Game) (*Plan, error) {
	if round < 1 {
		return nil, ErrRoundOutOfRange
	}
	if round == 1 {
		return knockoutFirstRound(players)
	}
	return knockoutNextRound(previous)
}

func knockoutFirstRound(players []tournament.Player) (*Plan, error) {
	var seeded []tournament.Player
	for _, p := range players {
		if p.Active {
			seeded = append(seeded, p)
		}
	}
	if len(seeded) < 2 {
		return nil, ErrNotEnoughPlayers
	}
	slices.SortStableFunc(seeded, func(a, b tournament.Player) int {
		if c := cmp.Compare(b.Rating, a.Rating); c != 0 {
			return c
		}
		return cmp.Compare(a.PairingNumber, b.PairingNumber)
	})

	plan := &Plan{}
	for i, pair := range seedPairs(bracketSize(len(seeded))) {
		board := i + 1
		top := seeded[pair[0]]
		if pair[1] >= len(seeded) {
			plan.Pairings = append(plan.Pairings, Pairing{Board: board, White: top.ID})
			continue
		}
		bottom := seeded[pair[1]].ID
		if board%2 == 0 {
			plan.Pairings = append(plan.Pairings, Pairing{Board: board, White: bottom, Black: &top.ID})
			continue
		}
		plan.Pairings = append(plan.Pairings, Pairing{Board: board, White: top.ID, Black: &bottom})
	}
	return plan, nil
}

// winner returns who goes through from a finished knockout game. A double
// forfeit or a cancelled game sends nobody through.
func winner(g *tournament.Game) (*uuid.UUID, error) {
	if !g.IsFinal() {
		return nil, ErrKnockoutUndecided
	}
	switch g.Result {
	case tournament.WhiteWin:
		id := g.WhiteID
		return &id, nil
	case tournament.BlackWin:
		return g.BlackID, nil
	case tournament.Draw:
		return nil, ErrKnockoutUndecided
	case tournament.Ongoing:
		return nil, nil
	}
	return nil, ErrKnockoutUndecided
}

// knockoutNextRound pairs the winners of boards 2k-1 and 2k of the previous
// round on board k. Boards are bracket positions: a pair that sends nobody
// through leaves its board unused, and a winner whose neighbour slot is empty
// gets a bye, so later rounds keep meeting the right half of the bracket.
func knockoutNextRound(previous []tournament.Game) (*Plan, error) {
	size := 0
	for _, g := range previous {
		size = max(size, g.Board)
	}
	size += size % 2

	slots := make([]*uuid.UUID, size)
	remaining := 0
	for i := range previous {
		g := &previous[i]
		w, err := winner(g)
		if err != nil {
			return nil, &ImpossibleError{Players: []uuid.UUID{g.WhiteID}, Reason: err.Error()}
		}
		slots[g.Board-1] = w
		if w != nil {
			remaining++
		}
	}
	if remaining <= 1 {
		return nil, ErrKnockoutComplete
	}

	plan := &Plan{}
	for i := 0; i < len(slots); i += 2 {
		a, b := slots[i], slots[i+1]
		board := i/2 + 1
		switch {
		case a == nil && b == nil:
			continue
		case b == nil:
			plan.Pairings = append(plan.Pairings, Pairing{Board: board, White: *a})
		case a == nil:
			plan.Pairings = append(plan.Pairings, Pairing{Board: board, White: *b})
		default:
			black := *b
			plan.Pairings = append(plan.Pairings, Pairing{Board: board, White: *a, Black: &black})
		}
	}
	return plan, nil
}
