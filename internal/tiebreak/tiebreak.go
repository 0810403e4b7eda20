package tiebreak

import (
	"fmt"
	"math"
	"strings"

	"github.com/AdamBeresnev/op-arbiter/internal/tournament"
	"github.com/google/uuid"
)

type Method string

const (
	Buchholz          Method = "buchholz"
	BuchholzCut1      Method = "buchholz_cut1"
	Wins              Method = "wins"
	DirectEncounter   Method = "direct_encounter"
	SonnebornBerger   Method = "sonneborn_berger"
	AverageRating     Method = "average_rating"
	PerformanceRating Method = "performance_rating"
)

var DefaultOrder = []Method{BuchholzCut1, Buchholz, SonnebornBerger, Wins, DirectEncounter}

func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.TrimSpace(s)); m {
	case Buchholz, BuchholzCut1, Wins, DirectEncounter, SonnebornBerger, AverageRating, PerformanceRating:
		return m, nil
	}
	return "", fmt.Errorf("unknown tiebreak method %q", s)
}

// ParseMethods parses a comma separated order. An empty string yields
// DefaultOrder.
func ParseMethods(s string) ([]Method, error) {
	if strings.TrimSpace(s) == "" {
		return append([]Method(nil), DefaultOrder...), nil
	}
	seen := make(map[Method]bool)
	var methods []Method
	for _, part := range strings.Split(s, ",") {
		m, err := ParseMethod(part)
		if err != nil {
			return nil, err
		}
		if seen[m] {
			return nil, fmt.Errorf("tiebreak method %q listed twice", m)
		}
		seen[m] = true
		methods = append(methods, m)
	}
	return methods, nil
}

func FormatMethods(methods []Method) string {
	parts := make([]string, len(methods))
	for i, m := range methods {
		parts[i] = string(m)
	}
	return strings.Join(parts, ",")
}

type Vector struct {
	Points                float64 `json:"points"`
	Buchholz              float64 `json:"buchholz"`
	BuchholzCut1          float64 `json:"buchholz_cut1"`
	Wins                  int     `json:"wins"`
	SonnebornBerger       float64 `json:"sonneborn_berger"`
	AverageOpponentRating float64 `json:"average_opponent_rating"`
	PerformanceRating     float64 `json:"performance_rating"`
	GamesPlayed           int     `json:"games_played"`
}

// Value returns the numeric value used to order players by m. Direct
// encounter only has a meaning inside a tied group and yields 0 here.
func (v Vector) Value(m Method) float64 {
	switch m {
	case Buchholz:
		return v.Buchholz
	case BuchholzCut1:
		return v.BuchholzCut1
	case Wins:
		return float64(v.Wins)
	case SonnebornBerger:
		return v.SonnebornBerger
	case AverageRating:
		return v.AverageOpponentRating
	case PerformanceRating:
		return v.PerformanceRating
	case DirectEncounter:
		return 0
	}
	return 0
}

// encounter reports whether the game is an approved two-player game with a
// decided outcome. Byes, cancellations and double forfeits have no opponent
// to weigh.
func encounter(g *tournament.Game) bool {
	return g.Counts() && !g.IsBye() && g.Result.Decided()
}

// Points sums the approved points of every player, byes included.
func Points(players []tournament.Player, games []tournament.Game) map[uuid.UUID]float64 {
	points := make(map[uuid.UUID]float64, len(players))
	for _, p := range players {
		points[p.ID] = 0
	}
	for i := range games {
		g := &games[i]
		if !g.Counts() {
			continue
		}
		white, black := g.Points()
		points[g.WhiteID] += white
		if g.BlackID != nil {
			points[*g.BlackID] += black
		}
	}
	return points
}

// Compute derives the tiebreak vector of every player from the approved
// games. Unapproved games are ignored, so the same approved set always
// yields the same vectors.
func Compute(players []tournament.Player, games []tournament.Game) map[uuid.UUID]Vector {
	points := Points(players, games)
	ratings := make(map[uuid.UUID]int, len(players))
	for _, p := range players {
		ratings[p.ID] = p.Rating
	}

	vectors := make(map[uuid.UUID]Vector, len(players))
	for _, p := range players {
		v := Vector{Points: points[p.ID]}

		lowest := math.Inf(1)
		opponents := 0
		ratingSum := 0
		playedScore := 0.0

		for i := range games {
			g := &games[i]
			if !encounter(g) {
				continue
			}
			opp, ok := g.OpponentOf(p.ID)
			if !ok {
				continue
			}

			score := g.ScoreOf(p.ID)
			oppPoints := points[opp]

			opponents++
			v.Buchholz += oppPoints
			v.SonnebornBerger += oppPoints * score
			lowest = math.Min(lowest, oppPoints)
			if score == 1 {
				v.Wins++
			}

			if g.IsPlayed() {
				v.GamesPlayed++
				ratingSum += ratings[opp]
				playedScore += score
			}
		}

		if opponents > 0 {
			v.BuchholzCut1 = v.Buchholz - lowest
		}
		if v.GamesPlayed > 0 {
			aro := float64(ratingSum) / float64(v.GamesPlayed)
			fraction := playedScore / float64(v.GamesPlayed)
			v.AverageOpponentRating = math.Round(aro)
			v.PerformanceRating = math.Round(aro + 800*(fraction-0.5))
		}

		vectors[p.ID] = v
	}
	return vectors
}

// HeadToHead returns each member's score in approved games against the other
// members of group, and whether every pair in the group has met.
func HeadToHead(games []tournament.Game, group []uuid.UUID) (map[uuid.UUID]float64, bool) {
	members := make(map[uuid.UUID]bool, len(group))
	for _, id := range group {
		members[id] = true
	}

	type pair struct{ a, b uuid.UUID }
	met := make(map[pair]bool)
	scores := make(map[uuid.UUID]float64, len(group))
	for _, id := range group {
		scores[id] = 0
	}

	for i := range games {
		g := &games[i]
		if !encounter(g) || !members[g.WhiteID] || !members[*g.BlackID] {
			continue
		}
		white, black := g.Points()
		scores[g.WhiteID] += white
		scores[*g.BlackID] += black
		met[pair{g.WhiteID, *g.BlackID}] = true
		met[pair{*g.BlackID, g.WhiteID}] = true
	}

	for i := range group {
		for j := i + 1; j < len(group); j++ {
			if !met[pair{group[i], group[j]}] {
				return scores, false
			}
		}
	}
	return scores, true
}
