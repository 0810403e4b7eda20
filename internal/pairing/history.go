package pairing

import (
	"errors"
	"slices"

	"github.com/AdamBeresnev/op-arbiter/internal/tournament"
	"github.com/dominikbraun/graph"
	"github.com/google/uuid"
)

type Color int

const (
	NoColor Color = 0
	White   Color = 1
	Black   Color = -1
)

func (c Color) Opposite() Color {
	return -c
}

// History is what the pairing rules need to know about past rounds. It is
// rebuilt from the approved games on every run instead of being stored.
type History struct {
	opponents    graph.Graph[uuid.UUID, uuid.UUID]
	colorBalance map[uuid.UUID]int
	lastColor    map[uuid.UUID]Color
	byes         map[uuid.UUID]int
}

func playerHash(id uuid.UUID) uuid.UUID {
	return id
}

// BuildHistory derives the opponent graph from every approved two-player
// game and the colour balance from approved games played over the board.
// Unapproved games are ignored.
func BuildHistory(players []tournament.Player, games []tournament.Game) *History {
	h := &History{
		opponents:    graph.New(playerHash),
		colorBalance: make(map[uuid.UUID]int, len(players)),
		lastColor:    make(map[uuid.UUID]Color, len(players)),
		byes:         make(map[uuid.UUID]int),
	}
	for _, p := range players {
		h.addPlayer(p.ID)
	}

	ordered := slices.Clone(games)
	slices.SortStableFunc(ordered, func(a, b tournament.Game) int {
		return a.RoundNumber - b.RoundNumber
	})

	for i := range ordered {
		g := &ordered[i]
		if !g.IsApproved() {
			continue
		}
		if g.IsBye() {
			h.byes[g.WhiteID]++
			continue
		}

		h.addPlayer(g.WhiteID)
		h.addPlayer(*g.BlackID)
		// A second edge between the same pair only exists in rematch mode.
		if err := h.opponents.AddEdge(g.WhiteID, *g.BlackID); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
			continue
		}

		if g.IsPlayed() {
			h.colorBalance[g.WhiteID]++
			h.colorBalance[*g.BlackID]--
			h.lastColor[g.WhiteID] = White
			h.lastColor[*g.BlackID] = Black
		}
	}
	return h
}

func (h *History) addPlayer(id uuid.UUID) {
	// ErrVertexAlreadyExists is expected for every game after the first.
	_ = h.opponents.AddVertex(id)
}

// Played reports whether a and b have already met.
func (h *History) Played(a, b uuid.UUID) bool {
	_, err := h.opponents.Edge(a, b)
	return err == nil
}

// Opponents lists everyone the player has met.
func (h *History) Opponents(id uuid.UUID) []uuid.UUID {
	adjacency, err := h.opponents.AdjacencyMap()
	if err != nil {
		return nil
	}
	opponents := make([]uuid.UUID, 0, len(adjacency[id]))
	for opp := range adjacency[id] {
		opponents = append(opponents, opp)
	}
	slices.SortFunc(opponents, func(a, b uuid.UUID) int {
		return slices.Compare(a[:], b[:])
	})
	return opponents
}

// ColorBalance is white games minus black games.
func (h *History) ColorBalance(id uuid.UUID) int {
	return h.colorBalance[id]
}

func (h *History) LastColor(id uuid.UUID) Color {
	return h.lastColor[id]
}

func (h *History) Byes(id uuid.UUID) int {
	return h.byes[id]
}
