package store

import (
	"context"

	"github.com/AdamBeresnev/op-arbiter/internal/tournament"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Games are always read with the number of their round.
const selectGames = `SELECT g.*, r.number AS round_number FROM games g JOIN rounds r ON r.id = g.round_id`

type RoundStore struct {
	db *sqlx.DB
}

func NewRoundStore(db *sqlx.DB) *RoundStore {
	return &RoundStore{db: db}
}

func (s *RoundStore) CreateRound(ctx context.Context, tx *sqlx.Tx, round *tournament.Round) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO rounds (id, tournament_id, number, status, created_at)
		VALUES (:id, :tournament_id, :number, :status, :created_at)`, round)
	return err
}

func (s *RoundStore) CreateGames(ctx context.Context, tx *sqlx.Tx, games []tournament.Game) error {
	if len(games) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO games (id, tournament_id, round_id, board, white_id, black_id, result, result_type,
			approval, reason, rated, white_delta, black_delta, updated_at)
		VALUES (:id, :tournament_id, :round_id, :board, :white_id, :black_id, :result, :result_type,
			:approval, :reason, :rated, :white_delta, :black_delta, :updated_at)`, games)
	return err
}

func (s *RoundStore) GetRound(ctx context.Context, q Querier, id uuid.UUID) (*tournament.Round, error) {
	var r tournament.Round
	if err := get(ctx, q, &r, "SELECT * FROM rounds WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *RoundStore) GetRounds(ctx context.Context, q Querier, tournamentID uuid.UUID) ([]tournament.Round, error) {
	var rounds []tournament.Round
	err := sqlx.SelectContext(ctx, q, &rounds, "SELECT * FROM rounds WHERE tournament_id = ? ORDER BY number ASC", tournamentID)
	return rounds, err
}

// LatestRound returns ErrNotFound when no round has been generated yet.
func (s *RoundStore) LatestRound(ctx context.Context, q Querier, tournamentID uuid.UUID) (*tournament.Round, error) {
	var r tournament.Round
	if err := get(ctx, q, &r, "SELECT * FROM rounds WHERE tournament_id = ? ORDER BY number DESC LIMIT 1", tournamentID); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *RoundStore) HasLaterRound(ctx context.Context, q Querier, tournamentID uuid.UUID, number int) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, q, &exists, "SELECT EXISTS (SELECT 1 FROM rounds WHERE tournament_id = ? AND number > ?)", tournamentID, number)
	return exists, err
}

func (s *RoundStore) UpdateRoundStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status tournament.RoundStatus) error {
	return expectOne(tx.ExecContext(ctx, "UPDATE rounds SET status = ? WHERE id = ?", status, id))
}

func (s *RoundStore) GetGame(ctx context.Context, q Querier, id uuid.UUID) (*tournament.Game, error) {
	var g tournament.Game
	if err := get(ctx, q, &g, selectGames+" WHERE g.id = ?", id); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *RoundStore) GetGames(ctx context.Context, q Querier, tournamentID uuid.UUID) ([]tournament.Game, error) {
	var games []tournament.Game
	err := sqlx.SelectContext(ctx, q, &games, selectGames+" WHERE g.tournament_id = ? ORDER BY r.number ASC, g.board ASC", tournamentID)
	return games, err
}

func (s *RoundStore) GetRoundGames(ctx context.Context, q Querier, roundID uuid.UUID) ([]tournament.Game, error) {
	var games []tournament.Game
	err := sqlx.SelectContext(ctx, q, &games, selectGames+" WHERE g.round_id = ? ORDER BY g.board ASC", roundID)
	return games, err
}

func (s *RoundStore) UpdateGame(ctx context.Context, tx *sqlx.Tx, g *tournament.Game) error {
	return expectOne(tx.NamedExecContext(ctx, `UPDATE games SET
		result = :result,
		result_type = :result_type,
		approval = :approval,
		reason = :reason,
		rated = :rated,
		white_delta = :white_delta,
		black_delta = :black_delta,
		updated_at = :updated_at
		WHERE id = :id`, g))
}
