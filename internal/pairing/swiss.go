package pairing

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/AdamBeresnev/op-arbiter/internal/tournament"
	"github.com/google/uuid"
)

const (
	maxColorImbalance = 2
	defaultMaxSteps   = 200_000
)

type Pairing struct {
	Board int        `json:"board"`
	White uuid.UUID  `json:"white"`
	Black *uuid.UUID `json:"black,omitempty"`
}

func (p Pairing) IsBye() bool {
	return p.Black == nil
}

// Plan is the outcome of pairing one round. Swiss and round robin byes come
// last; knockout byes sit on their bracket board.
type Plan struct {
	Pairings     []Pairing   `json:"pairings"`
	Floaters     []uuid.UUID `json:"floaters,omitempty"`
	Rematches    int         `json:"rematches"`
	ColorRelaxed bool        `json:"color_relaxed"`
}

type Options struct {
	AllowRematches bool
	// FloatBeforeRematch prefers moving a player to a lower score group over
	// repeating a pairing. Only meaningful with AllowRematches.
	FloatBeforeRematch bool
	// MaxSteps bounds each backtracking search. Zero uses a default.
	MaxSteps int
}

type rematchMode int

const (
	rematchNever rematchMode = iota
	rematchBeforeFloat
	rematchAfterFloat
)

type attempt struct {
	rematch      rematchMode
	strictColors bool
}

// attempts lists the rule sets tried in order. Colour bounds are only
// relaxed when no pairing satisfies them.
func attempts(opts Options) []attempt {
	switch {
	case !opts.AllowRematches:
		return []attempt{{rematchNever, true}, {rematchNever, false}}
	case opts.FloatBeforeRematch:
		return []attempt{{rematchNever, true}, {rematchNever, false}, {rematchAfterFloat, true}, {rematchAfterFloat, false}}
	default:
		return []attempt{{rematchBeforeFloat, true}, {rematchBeforeFloat, false}}
	}
}

type entrant struct {
	player tournament.Player
	points float64
	group  int
}

// rankEntrants keeps active players ordered by points, then rating, then
// pairing number, and numbers their score groups from the top.
func rankEntrants(players []tournament.Player, points map[uuid.UUID]float64) []entrant {
	entrants := make([]entrant, 0, len(players))
	for _, p := range players {
		if p.Active {
			entrants = append(entrants, entrant{player: p, points: points[p.ID]})
		}
	}
	slices.SortStableFunc(entrants, func(a, b entrant) int {
		if c := cmp.Compare(b.points, a.points); c != 0 {
			return c
		}
		if c := cmp.Compare(b.player.Rating, a.player.Rating); c != 0 {
			return c
		}
		return cmp.Compare(a.player.PairingNumber, b.player.PairingNumber)
	})
	group := 0
	for i := range entrants {
		if i > 0 && entrants[i].points != entrants[i-1].points {
			group++
		}
		entrants[i].group = group
	}
	return entrants
}

// byeTiers groups bye candidates by how many byes they already had, fewest
// first. Inside a tier candidates run from the bottom of the standings up.
func byeTiers(entrants []entrant, history *History) [][]int {
	order := make([]int, len(entrants))
	for i := range order {
		order[i] = len(entrants) - 1 - i
	}
	byes := func(i int) int {
		return history.Byes(entrants[i].player.ID)
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(byes(a), byes(b))
	})

	var tiers [][]int
	for k, i := range order {
		if k == 0 || byes(i) != byes(order[k-1]) {
			tiers = append(tiers, nil)
		}
		tiers[len(tiers)-1] = append(tiers[len(tiers)-1], i)
	}
	return tiers
}

// Swiss pairs the next round. Players are split into score groups, each
// group is paired top half against bottom half, rematches are avoided by
// trying other partners in the group and then by floating players down, and
// an odd player out receives the bye.
func Swiss(players []tournament.Player, points map[uuid.UUID]float64, history *History, opts Options) (*Plan, error) {
	entrants := rankEntrants(players, points)
	if len(entrants) < 2 {
		return nil, ErrNotEnoughPlayers
	}

	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}

	tiers := [][]int{{-1}}
	if len(entrants)%2 == 1 {
		tiers = byeTiers(entrants, history)
	}

	exhausted := false
	// A repeated bye is worse than a relaxed colour, so bye tiers come first.
	for _, tier := range tiers {
		for _, a := range attempts(opts) {
			for _, bye := range tier {
				pool := entrants
				if bye >= 0 {
					pool = slices.Delete(slices.Clone(entrants), bye, bye+1)
				}
				s := newSearch(pool, history, a, maxSteps)
				if !s.pairFrom(0) {
					exhausted = exhausted || s.steps > maxSteps
					continue
				}
				var byePlayer *tournament.Player
				if bye >= 0 {
					byePlayer = &entrants[bye].player
				}
				return s.plan(byePlayer, !a.strictColors), nil
			}
		}
	}

	if exhausted {
		return nil, &ImpossibleError{
			Players:   isolated(entrants, history),
			Reason:    fmt.Sprintf("search budget exhausted after %d steps per attempt", maxSteps),
			Exhausted: true,
		}
	}
	return nil, &ImpossibleError{
		Players: isolated(entrants, history),
		Reason:  "no legal pairing exists without rematches",
	}
}

// isolated lists players with no legal opponent left, or everyone when the
// deadlock is spread over several players.
func isolated(entrants []entrant, history *History) []uuid.UUID {
	var stuck []uuid.UUID
	for i := range entrants {
		free := false
		for j := range entrants {
			if i != j && !history.Played(entrants[i].player.ID, entrants[j].player.ID) {
				free = true
				break
			}
		}
		if !free {
			stuck = append(stuck, entrants[i].player.ID)
		}
	}
	if len(stuck) > 0 {
		return stuck
	}
	all := make([]uuid.UUID, len(entrants))
	for i := range entrants {
		all[i] = entrants[i].player.ID
	}
	return all
}

type search struct {
	pool     []entrant
	history  *History
	attempt  attempt
	paired   []bool
	partner  []int
	steps    int
	maxSteps int
}

func newSearch(pool []entrant, history *History, a attempt, maxSteps int) *search {
	partner := make([]int, len(pool))
	for i := range partner {
		partner[i] = -1
	}
	return &search{
		pool:     pool,
		history:  history,
		attempt:  a,
		paired:   make([]bool, len(pool)),
		partner:  partner,
		maxSteps: maxSteps,
	}
}

// pairFrom pairs the highest unpaired player and recurses, backtracking to
// the next candidate when the rest of the pool cannot be completed.
func (s *search) pairFrom(start int) bool {
	i := start
	for i < len(s.pool) && s.paired[i] {
		i++
	}
	if i == len(s.pool) {
		return true
	}

	s.steps++
	if s.steps > s.maxSteps {
		return false
	}

	s.paired[i] = true
	for _, j := range s.candidates(i) {
		s.paired[j] = true
		s.partner[i], s.partner[j] = j, i
		if s.pairFrom(i + 1) {
			return true
		}
		s.paired[j] = false
		s.partner[i], s.partner[j] = -1, -1
	}
	s.paired[i] = false
	return false
}

// candidates orders the possible partners of i. Inside the score group the
// natural partner is the player half a group below; the rest of the lower
// half follows, then the upper half from the bottom. Players of lower groups
// come after, as downfloats.
func (s *search) candidates(i int) []int {
	group := s.pool[i].group
	bracket := []int{i}
	var lower []int
	for k := i + 1; k < len(s.pool); k++ {
		if s.paired[k] {
			continue
		}
		if s.pool[k].group == group {
			bracket = append(bracket, k)
		} else {
			lower = append(lower, k)
		}
	}

	var same []int
	if half := len(bracket) / 2; half > 0 {
		same = append(same, bracket[half:]...)
		for k := half - 1; k >= 1; k-- {
			same = append(same, bracket[k])
		}
	}

	var sameFresh, sameRepeat, lowerFresh, lowerRepeat []int
	split := func(list []int, fresh, repeat *[]int) {
		for _, j := range list {
			if s.attempt.strictColors && !s.colorFeasible(i, j) {
				continue
			}
			if s.history.Played(s.pool[i].player.ID, s.pool[j].player.ID) {
				*repeat = append(*repeat, j)
			} else {
				*fresh = append(*fresh, j)
			}
		}
	}
	split(same, &sameFresh, &sameRepeat)
	split(lower, &lowerFresh, &lowerRepeat)

	switch s.attempt.rematch {
	case rematchBeforeFloat:
		return slices.Concat(sameFresh, sameRepeat, lowerFresh, lowerRepeat)
	case rematchAfterFloat:
		return slices.Concat(sameFresh, lowerFresh, sameRepeat, lowerRepeat)
	case rematchNever:
		return slices.Concat(sameFresh, lowerFresh)
	}
	return nil
}

func (s *search) colorFeasible(i, j int) bool {
	bi := s.history.ColorBalance(s.pool[i].player.ID)
	bj := s.history.ColorBalance(s.pool[j].player.ID)
	return withinBound(bi+1, bj-1) || withinBound(bj+1, bi-1)
}

func withinBound(balances ...int) bool {
	for _, b := range balances {
		if b > maxColorImbalance || b < -maxColorImbalance {
			return false
		}
	}
	return true
}

func (s *search) plan(bye *tournament.Player, relaxed bool) *Plan {
	plan := &Plan{}
	for i := range s.pool {
		j := s.partner[i]
		if j < i {
			continue
		}
		hi, lo := s.pool[i], s.pool[j]
		board := len(plan.Pairings) + 1
		white, black := allocateColors(s.history, hi.player.ID, lo.player.ID, board)
		plan.Pairings = append(plan.Pairings, Pairing{Board: board, White: white, Black: &black})

		if hi.group != lo.group {
			plan.Floaters = append(plan.Floaters, hi.player.ID)
		}
		if s.history.Played(hi.player.ID, lo.player.ID) {
			plan.Rematches++
		}
		if relaxed {
			bw := s.history.ColorBalance(white) + 1
			bb := s.history.ColorBalance(black) - 1
			if !withinBound(bw, bb) {
				plan.ColorRelaxed = true
			}
		}
	}
	if bye != nil {
		plan.Pairings = append(plan.Pairings, Pairing{Board: len(plan.Pairings) + 1, White: bye.ID})
	}
	return plan
}

// allocateColors gives white to the player who is owed it: the lower colour
// balance first, then the player whose last game was black, then the higher
// ranked player alternating by board in the first round.
func allocateColors(h *History, hi, lo uuid.UUID, board int) (uuid.UUID, uuid.UUID) {
	bh, bl := h.ColorBalance(hi), h.ColorBalance(lo)
	lh, ll := h.LastColor(hi), h.LastColor(lo)

	var hiWhite bool
	switch {
	case bh < bl:
		hiWhite = true
	case bh > bl:
		hiWhite = false
	case lh != ll && lh != NoColor:
		hiWhite = lh == Black
	case lh != ll:
		hiWhite = ll == White
	case lh != NoColor:
		hiWhite = lh == Black
	default:
		hiWhite = board%2 == 1
	}

	if hiWhite && !withinBound(bh+1, bl-1) && withinBound(bl+1, bh-1) {
		hiWhite = false
	} else if !hiWhite && !withinBound(bl+1, bh-1) && withinBound(bh+1, bl-1) {
		hiWhite = true
	}

	if hiWhite {
		return hi, lo
	}
	return lo, hi
}
