package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AdamBeresnev/op-arbiter/internal/pairing"
	"github.com/AdamBeresnev/op-arbiter/internal/store"
	"github.com/AdamBeresnev/op-arbiter/internal/tiebreak"
	"github.com/AdamBeresnev/op-arbiter/internal/tournament"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
)

type RoundService struct {
	db          *sqlx.DB
	tournaments *store.TournamentStore
	rounds      *store.RoundStore
	deps        Deps

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewRoundService(db *sqlx.DB, tournaments *store.TournamentStore, rounds *store.RoundStore, deps Deps) *RoundService {
	return &RoundService{
		db:          db,
		tournaments: tournaments,
		rounds:      rounds,
		deps:        deps.withDefaults(),
		locks:       make(map[uuid.UUID]*sync.Mutex),
	}
}

// lockFor serializes round generation per tournament inside this process.
// The immediate transaction covers other writers.
func (s *RoundService) lockFor(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

type GeneratedRound struct {
	Round *tournament.Round `json:"round"`
	Games []tournament.Game `json:"games"`
	Plan  *pairing.Plan     `json:"plan"`
}

// GenerateRound pairs the next round and stores it with all its games in one
// transaction. The previous round must have every game final and approved.
func (s *RoundService) GenerateRound(ctx context.Context, tournamentID uuid.UUID) (out *GeneratedRound, err error) {
	ctx, span := startSpan(ctx, "RoundService.GenerateRound", attribute.String("tournament_id", tournamentID.String()))
	start := time.Now()
	defer func() {
		s.deps.Metrics.ObserveOperation("RoundService.GenerateRound", start, err)
		endSpan(span, err)
	}()

	l := s.lockFor(tournamentID)
	l.Lock()
	defer l.Unlock()

	var system tournament.PairingSystem
	err = store.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		t, err := s.tournaments.GetTournament(ctx, tx, tournamentID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrTournamentNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load tournament: %w", err)
		}
		system = t.PairingSystem
		if t.Status != tournament.StatusOngoing {
			return fmt.Errorf("%w: tournament is %s", ErrTournamentNotOngoing, t.Status)
		}

		number := 1
		latest, err := s.rounds.LatestRound(ctx, tx, tournamentID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			// first round
		case err != nil:
			return fmt.Errorf("failed to load latest round: %w", err)
		default:
			number = latest.Number + 1
		}
		if t.TotalRounds > 0 && number > t.TotalRounds {
			return ErrAllRoundsPaired
		}

		players, err := s.tournaments.GetPlayers(ctx, tx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to load players: %w", err)
		}
		games, err := s.rounds.GetGames(ctx, tx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to load games: %w", err)
		}

		var previous []tournament.Game
		if latest != nil {
			for _, g := range games {
				if g.RoundID != latest.ID {
					continue
				}
				if !g.IsFinal() {
					return fmt.Errorf("%w: round %d board %d", ErrRoundNotComplete, latest.Number, g.Board)
				}
				previous = append(previous, g)
			}
		}

		plan, err := s.pair(t, players, games, previous, number)
		if err != nil {
			return err
		}

		out = &GeneratedRound{Plan: plan}
		out.Round, out.Games = buildRound(t, number, plan)
		if err := s.rounds.CreateRound(ctx, tx, out.Round); err != nil {
			return fmt.Errorf("failed to create round: %w", err)
		}
		if err := s.rounds.CreateGames(ctx, tx, out.Games); err != nil {
			return fmt.Errorf("failed to create games: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, pairing.ErrPairingImpossible) {
			s.deps.Metrics.PairingFailed(string(system))
			s.deps.Logger.WarnContext(ctx, "pairing impossible", "tournament_id", tournamentID, "error", err)
		}
		return nil, err
	}

	s.deps.Metrics.RoundGenerated(string(system))
	s.deps.Logger.InfoContext(ctx, "round generated",
		"tournament_id", tournamentID,
		"round", out.Round.Number,
		"games", len(out.Games),
		"rematches", out.Plan.Rematches,
		"color_relaxed", out.Plan.ColorRelaxed,
	)
	s.deps.Notifier.Publish(tournamentID, EventRoundGenerated, out)
	return out, nil
}

func (s *RoundService) pair(t *tournament.Tournament, players []tournament.Player, games, previous []tournament.Game, number int) (*pairing.Plan, error) {
	switch t.PairingSystem {
	case tournament.Swiss:
		return pairing.Swiss(players, tiebreak.Points(players, games), pairing.BuildHistory(players, games), pairing.Options{
			AllowRematches:     t.AllowRematches,
			FloatBeforeRematch: t.FloatBeforeRematch,
		})
	case tournament.RoundRobin:
		return pairing.RoundRobin(players, number)
	case tournament.Knockout:
		return pairing.Knockout(players, number, previous)
	}
	return nil, fmt.Errorf("unknown pairing system %q", t.PairingSystem)
}

// buildRound turns a plan into a paired round. Byes are decided and approved
// on creation.
func buildRound(t *tournament.Tournament, number int, plan *pairing.Plan) (*tournament.Round, []tournament.Game) {
	now := time.Now().UTC()
	round := &tournament.Round{
		ID:           uuid.New(),
		TournamentID: t.ID,
		Number:       number,
		Status:       tournament.RoundPaired,
		CreatedAt:    now,
	}

	games := make([]tournament.Game, 0, len(plan.Pairings))
	for _, p := range plan.Pairings {
		g := tournament.Game{
			ID:           uuid.New(),
			TournamentID: t.ID,
			RoundID:      round.ID,
			RoundNumber:  number,
			Board:        p.Board,
			WhiteID:      p.White,
			BlackID:      p.Black,
			Result:       tournament.Ongoing,
			ResultType:   tournament.Standard,
			Approval:     tournament.Unapproved,
			UpdatedAt:    now,
		}
		if p.IsBye() {
			g.Result = tournament.WhiteWin
			g.Approval = tournament.Approved
		}
		games = append(games, g)
	}
	return round, games
}

// GetRoundGames lists the games of one round in board order.
func (s *RoundService) GetRoundGames(ctx context.Context, tournamentID uuid.UUID, number int) ([]tournament.Game, error) {
	rounds, err := s.rounds.GetRounds(ctx, s.db, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rounds: %w", err)
	}
	for _, r := range rounds {
		if r.Number == number {
			return s.rounds.GetRoundGames(ctx, s.db, r.ID)
		}
	}
	return nil, fmt.Errorf("%w: round %d", store.ErrNotFound, number)
}
