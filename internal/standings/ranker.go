package standings

import (
	"bytes"
	"cmp"
	"slices"

	"github.com/AdamBeresnev/op-arbiter/internal/tiebreak"
	"github.com/AdamBeresnev/op-arbiter/internal/tournament"
	"github.com/google/uuid"
)

type Standing struct {
	Rank      int               `json:"rank"`
	Player    tournament.Player `json:"player"`
	Points    float64           `json:"points"`
	Tiebreaks tiebreak.Vector   `json:"tiebreaks"`
	// DirectEncounter is set when the player's tied group was separated by
	// the games played among its members.
	DirectEncounter *float64 `json:"direct_encounter,omitempty"`
}

// Rank orders players by points, then by each numeric method of order in
// turn. Direct encounter, when listed, is applied last and only to groups
// whose members have all met. Players still tied share a rank (1, 1, 3).
func Rank(
	players []tournament.Player,
	points map[uuid.UUID]float64,
	vectors map[uuid.UUID]tiebreak.Vector,
	order []tiebreak.Method,
	games []tournament.Game,
) []Standing {
	seated := slices.Clone(players)
	slices.SortStableFunc(seated, func(a, b tournament.Player) int {
		if c := cmp.Compare(a.PairingNumber, b.PairingNumber); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})

	groups := splitBy(seated, func(p tournament.Player) float64 { return points[p.ID] })

	useDirect := false
	for _, m := range order {
		if m == tiebreak.DirectEncounter {
			useDirect = true
			continue
		}
		groups = refine(groups, func(p tournament.Player) float64 {
			return vectors[p.ID].Value(m)
		})
	}

	direct := make(map[uuid.UUID]float64)
	if useDirect {
		var next [][]tournament.Player
		for _, group := range groups {
			if len(group) < 2 {
				next = append(next, group)
				continue
			}
			ids := make([]uuid.UUID, len(group))
			for i, p := range group {
				ids[i] = p.ID
			}
			scores, complete := tiebreak.HeadToHead(games, ids)
			if !complete {
				next = append(next, group)
				continue
			}
			for id, s := range scores {
				direct[id] = s
			}
			next = append(next, splitBy(group, func(p tournament.Player) float64 { return scores[p.ID] })...)
		}
		groups = next
	}

	standings := make([]Standing, 0, len(players))
	position := 0
	for _, group := range groups {
		rank := position + 1
		for _, p := range group {
			s := Standing{
				Rank:      rank,
				Player:    p,
				Points:    points[p.ID],
				Tiebreaks: vectors[p.ID],
			}
			if v, ok := direct[p.ID]; ok {
				s.DirectEncounter = &v
			}
			standings = append(standings, s)
		}
		position += len(group)
	}
	return standings
}

func refine(groups [][]tournament.Player, value func(tournament.Player) float64) [][]tournament.Player {
	refined := make([][]tournament.Player, 0, len(groups))
	for _, group := range groups {
		if len(group) < 2 {
			refined = append(refined, group)
			continue
		}
		refined = append(refined, splitBy(group, value)...)
	}
	return refined
}

// splitBy buckets players by value, highest first. Order inside a bucket
// follows the input order.
func splitBy(players []tournament.Player, value func(tournament.Player) float64) [][]tournament.Player {
	buckets := make(map[float64][]tournament.Player)
	for _, p := range players {
		v := value(p)
		buckets[v] = append(buckets[v], p)
	}

	keys := make([]float64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b float64) int { return cmp.Compare(b, a) })

	sorted := make([][]tournament.Player, 0, len(keys))
	for _, k := range keys {
		sorted = append(sorted, buckets[k])
	}
	return sorted
}
