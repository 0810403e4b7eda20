package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AdamBeresnev/op-arbiter/internal/pairing"
	"github.com/AdamBeresnev/op-arbiter/internal/rating"
	"github.com/AdamBeresnev/op-arbiter/internal/standings"
	"github.com/AdamBeresnev/op-arbiter/internal/store"
	"github.com/AdamBeresnev/op-arbiter/internal/tiebreak"
	"github.com/AdamBeresnev/op-arbiter/internal/tournament"
	"github.com/AdamBeresnev/op-arbiter/internal/utils"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

type TournamentService struct {
	db     *sqlx.DB
	store  *store.TournamentStore
	rounds *store.RoundStore
	deps   Deps
}

func NewTournamentService(db *sqlx.DB, store *store.TournamentStore, rounds *store.RoundStore, deps Deps) *TournamentService {
	return &TournamentService{db: db, store: store, rounds: rounds, deps: deps.withDefaults()}
}

type CreateTournamentInput struct {
	Name          string `json:"name"`
	TotalRounds   int    `json:"total_rounds"`
	PairingSystem string `json:"pairing_system"`
	TiebreakOrder string `json:"tiebreak_order"`
	// AllowRematches lets Swiss repeat a pairing when nothing else works.
	AllowRematches       bool   `json:"allow_rematches"`
	FloatBeforeRematch   *bool  `json:"float_before_rematch,omitempty"`
	MissingReasonPolicy  string `json:"missing_reason_policy"`
	OverwriteFinalPolicy string `json:"overwrite_final_policy"`
}

type PlayerInput struct {
	Name   string `json:"name"`
	Rating int    `json:"rating"`
	Title  string `json:"title"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func (in CreateTournamentInput) build(ownerID uuid.UUID) (*tournament.Tournament, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("tournament name is required")
	}
	system, err := tournament.ParsePairingSystem(in.PairingSystem)
	if err != nil {
		return nil, invalid("%v", err)
	}
	if in.TotalRounds < 0 || (system == tournament.Swiss && in.TotalRounds == 0) {
		return nil, invalid("a %s tournament needs a positive number of rounds", system)
	}
	order, err := tiebreak.ParseMethods(in.TiebreakOrder)
	if err != nil {
		return nil, invalid("%v", err)
	}
	missingReason, err := tournament.ParsePolicy(in.MissingReasonPolicy)
	if err != nil {
		return nil, invalid("%v", err)
	}
	overwriteFinal, err := tournament.ParsePolicy(in.OverwriteFinalPolicy)
	if err != nil {
		return nil, invalid("%v", err)
	}

	return &tournament.Tournament{
		ID:                   uuid.New(),
		OwnerID:              ownerID,
		Name:                 name,
		TotalRounds:          in.TotalRounds,
		PairingSystem:        system,
		Status:               tournament.StatusCreated,
		TiebreakOrder:        tiebreak.FormatMethods(order),
		AllowRematches:       in.AllowRematches,
		FloatBeforeRematch:   utils.ValueOr(in.FloatBeforeRematch, true),
		MissingReasonPolicy:  missingReason,
		OverwriteFinalPolicy: overwriteFinal,
		CreatedAt:            time.Now().UTC(),
	}, nil
}

func (s *TournamentService) CreateTournament(ctx context.Context, ownerID uuid.UUID, in CreateTournamentInput) (t *tournament.Tournament, err error) {
	ctx, span := startSpan(ctx, "TournamentService.CreateTournament")
	defer func() { endSpan(span, err) }()

	t, err = in.build(ownerID)
	if err != nil {
		return nil, err
	}

	err = store.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return s.store.CreateTournament(ctx, tx, t)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	s.deps.Logger.InfoContext(ctx, "tournament created",
		"tournament_id", t.ID, "system", t.PairingSystem, "rounds", t.TotalRounds)
	return t, nil
}

func (s *TournamentService) loadTournament(ctx context.Context, q store.Querier, id uuid.UUID) (*tournament.Tournament, error) {
	t, err := s.store.GetTournament(ctx, q, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTournamentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tournament: %w", err)
	}
	return t, nil
}

// AddPlayers registers players in the order given. Swiss accepts late
// entries while the tournament runs; the fixed schedules do not.
func (s *TournamentService) AddPlayers(ctx context.Context, tournamentID uuid.UUID, inputs []PlayerInput) (players []tournament.Player, err error) {
	ctx, span := startSpan(ctx, "TournamentService.AddPlayers", attribute.String("tournament_id", tournamentID.String()))
	defer func() { endSpan(span, err) }()

	if len(inputs) == 0 {
		return nil, invalid("no players given")
	}
	for _, in := range inputs {
		if strings.TrimSpace(in.Name) == "" {
			return nil, invalid("player name is required")
		}
		if err := rating.Validate(float64(in.Rating)); err != nil {
			return nil, invalid("player %q: %v", in.Name, err)
		}
	}

	err = store.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		t, err := s.loadTournament(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		switch {
		case t.Status == tournament.StatusCompleted || t.Status == tournament.StatusCancelled:
			return invalid("tournament is %s", t.Status)
		case t.Status != tournament.StatusCreated && t.PairingSystem != tournament.Swiss:
			return invalid("a %s tournament only accepts players before it starts", t.PairingSystem)
		}

		next, err := s.store.NextPairingNumber(ctx, tx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to get pairing number: %w", err)
		}

		now := time.Now().UTC()
		players = make([]tournament.Player, len(inputs))
		for i, in := range inputs {
			players[i] = tournament.Player{
				ID:            uuid.New(),
				TournamentID:  tournamentID,
				Name:          strings.TrimSpace(in.Name),
				Rating:        in.Rating,
				Title:         utils.StringOrNil(in.Title),
				Active:        true,
				PairingNumber: next + i,
				CreatedAt:     now,
			}
		}
		if err := s.store.CreatePlayers(ctx, tx, players); err != nil {
			return fmt.Errorf("failed to create players: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deps.Logger.InfoContext(ctx, "players registered", "tournament_id", tournamentID, "count", len(players))
	return players, nil
}

// WithdrawPlayer stops pairing a player. Their games stay in the record.
func (s *TournamentService) WithdrawPlayer(ctx context.Context, tournamentID, playerID uuid.UUID) (err error) {
	ctx, span := startSpan(ctx, "TournamentService.WithdrawPlayer", attribute.String("player_id", playerID.String()))
	defer func() { endSpan(span, err) }()

	return store.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		p, err := s.store.GetPlayer(ctx, tx, playerID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && p.TournamentID != tournamentID) {
			return invalid("player %s is not registered in the tournament", playerID)
		}
		if err != nil {
			return fmt.Errorf("failed to load player: %w", err)
		}
		if err := s.store.SetPlayerActive(ctx, tx, playerID, false); err != nil {
			return fmt.Errorf("failed to withdraw player: %w", err)
		}
		return nil
	})
}

// SetStatus moves a tournament along its lifecycle. Starting a round robin
// or knockout without a configured number of rounds derives it from the
// field.
func (s *TournamentService) SetStatus(ctx context.Context, id uuid.UUID, next string) (t *tournament.Tournament, err error) {
	ctx, span := startSpan(ctx, "TournamentService.SetStatus",
		attribute.String("tournament_id", id.String()), attribute.String("status", next))
	defer func() { endSpan(span, err) }()

	status, err := tournament.ParseStatus(next)
	if err != nil {
		return nil, invalid("%v", err)
	}

	err = store.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		t, err = s.loadTournament(ctx, tx, id)
		if err != nil {
			return err
		}
		if !t.Status.CanTransition(status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, t.Status, status)
		}

		if t.Status == tournament.StatusCreated && status == tournament.StatusOngoing {
			if err := s.prepareStart(ctx, tx, t); err != nil {
				return err
			}
		}

		if err := s.store.UpdateTournamentStatus(ctx, tx, id, status); err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}
		t.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deps.Logger.InfoContext(ctx, "tournament status changed", "tournament_id", id, "status", status)
	s.deps.Notifier.Publish(id, EventStatusChanged, t)
	return t, nil
}

func (s *TournamentService) prepareStart(ctx context.Context, tx *sqlx.Tx, t *tournament.Tournament) error {
	players, err := s.store.GetPlayers(ctx, tx, t.ID)
	if err != nil {
		return fmt.Errorf("failed to load players: %w", err)
	}
	active := 0
	for _, p := range players {
		if p.Active {
			active++
		}
	}
	if active < 2 {
		return fmt.Errorf("%w: %d active players", pairing.ErrNotEnoughPlayers, active)
	}
	if t.TotalRounds > 0 {
		return nil
	}

	switch t.PairingSystem {
	case tournament.RoundRobin:
		t.TotalRounds = pairing.RoundRobinRounds(len(players))
	case tournament.Knockout:
		t.TotalRounds = pairing.KnockoutRounds(active)
	case tournament.Swiss:
		return invalid("a swiss tournament needs a positive number of rounds")
	}
	if err := s.store.UpdateTournamentRounds(ctx, tx, t.ID, t.TotalRounds); err != nil {
		return fmt.Errorf("failed to set number of rounds: %w", err)
	}
	return nil
}

type TournamentData struct {
	Tournament *tournament.Tournament `json:"tournament"`
	Players    []tournament.Player    `json:"players"`
	Rounds     []tournament.Round     `json:"rounds"`
	Games      []tournament.Game      `json:"games"`
}

// GetTournamentData loads a tournament with its players, rounds and games.
func (s *TournamentService) GetTournamentData(ctx context.Context, id uuid.UUID) (data *TournamentData, err error) {
	ctx, span := startSpan(ctx, "TournamentService.GetTournamentData", attribute.String("tournament_id", id.String()))
	defer func() { endSpan(span, err) }()

	t, err := s.loadTournament(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	data = &TournamentData{Tournament: t}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		players, err := s.store.GetPlayers(gctx, s.db, id)
		data.Players = players
		return err
	})
	g.Go(func() error {
		rounds, err := s.rounds.GetRounds(gctx, s.db, id)
		data.Rounds = rounds
		return err
	})
	g.Go(func() error {
		games, err := s.rounds.GetGames(gctx, s.db, id)
		data.Games = games
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load tournament data: %w", err)
	}
	return data, nil
}

func (s *TournamentService) GetTournamentsByOwner(ctx context.Context, ownerID uuid.UUID) ([]tournament.Tournament, error) {
	return s.store.GetTournamentsByOwner(ctx, ownerID)
}

type StandingsData struct {
	Tournament      *tournament.Tournament `json:"tournament"`
	Order           []tiebreak.Method      `json:"order"`
	RoundsCompleted int                    `json:"rounds_completed"`
	Standings       []standings.Standing   `json:"standings"`
}

// GetStandings ranks the players from the approved games. An empty order
// uses the tournament's configured tiebreaks.
func (s *TournamentService) GetStandings(ctx context.Context, id uuid.UUID, order string) (data *StandingsData, err error) {
	ctx, span := startSpan(ctx, "TournamentService.GetStandings", attribute.String("tournament_id", id.String()))
	defer func() { endSpan(span, err) }()
	start := time.Now()

	t, err := s.loadTournament(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(order) == "" {
		order = t.TiebreakOrder
	}
	methods, err := tiebreak.ParseMethods(order)
	if err != nil {
		return nil, invalid("%v", err)
	}

	var (
		players []tournament.Player
		rounds  []tournament.Round
		games   []tournament.Game
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		players, err = s.store.GetPlayers(gctx, s.db, id)
		return err
	})
	g.Go(func() (err error) {
		rounds, err = s.rounds.GetRounds(gctx, s.db, id)
		return err
	})
	g.Go(func() (err error) {
		games, err = s.rounds.GetGames(gctx, s.db, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load standings data: %w", err)
	}

	completed := 0
	for _, r := range rounds {
		if r.Status == tournament.RoundCompleted {
			completed++
		}
	}

	ranked := standings.Rank(players, tiebreak.Points(players, games), tiebreak.Compute(players, games), methods, games)
	s.deps.Metrics.ObserveStandings(time.Since(start))

	return &StandingsData{
		Tournament:      t,
		Order:           methods,
		RoundsCompleted: completed,
		Standings:       ranked,
	}, nil
}
