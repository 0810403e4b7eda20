package store

import (
	"context"

	"github.com/AdamBeresnev/op-arbiter/internal/tournament"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

func (s *TournamentStore) DB() *sqlx.DB {
	return s.db
}

func (s *TournamentStore) CreateTournament(ctx context.Context, tx *sqlx.Tx, t *tournament.Tournament) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO tournaments (id, owner_id, name, total_rounds, pairing_system, status, tiebreak_order,
			allow_rematches, float_before_rematch, missing_reason_policy, overwrite_final_policy, created_at)
		VALUES (:id, :owner_id, :name, :total_rounds, :pairing_system, :status, :tiebreak_order,
			:allow_rematches, :float_before_rematch, :missing_reason_policy, :overwrite_final_policy, :created_at)`, t)
	return err
}

func (s *TournamentStore) GetTournament(ctx context.Context, q Querier, id uuid.UUID) (*tournament.Tournament, error) {
	var t tournament.Tournament
	if err := get(ctx, q, &t, "SELECT * FROM tournaments WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TournamentStore) GetTournamentsByOwner(ctx context.Context, ownerID uuid.UUID) ([]tournament.Tournament, error) {
	var tournaments []tournament.Tournament
	err := s.db.SelectContext(ctx, &tournaments, "SELECT * FROM tournaments WHERE owner_id = ? ORDER BY created_at DESC", ownerID)
	return tournaments, err
}

func (s *TournamentStore) UpdateTournamentStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status tournament.Status) error {
	return expectOne(tx.ExecContext(ctx, "UPDATE tournaments SET status = ? WHERE id = ?", status, id))
}

func (s *TournamentStore) NextPairingNumber(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) (int, error) {
	var next int
	err := tx.GetContext(ctx, &next, "SELECT COALESCE(MAX(pairing_number), 0) + 1 FROM players WHERE tournament_id = ?", tournamentID)
	return next, err
}

func (s *TournamentStore) CreatePlayers(ctx context.Context, tx *sqlx.Tx, players []tournament.Player) error {
	if len(players) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO players (id, tournament_id, name, rating, title, active, pairing_number, created_at)
		VALUES (:id, :tournament_id, :name, :rating, :title, :active, :pairing_number, :created_at)`, players)
	return err
}

func (s *TournamentStore) GetPlayers(ctx context.Context, q Querier, tournamentID uuid.UUID) ([]tournament.Player, error) {
	var players []tournament.Player
	err := sqlx.SelectContext(ctx, q, &players, "SELECT * FROM players WHERE tournament_id = ? ORDER BY pairing_number ASC", tournamentID)
	return players, err
}

func (s *TournamentStore) GetPlayer(ctx context.Context, q Querier, id uuid.UUID) (*tournament.Player, error) {
	var p tournament.Player
	if err := get(ctx, q, &p, "SELECT * FROM players WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *TournamentStore) UpdatePlayerRating(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, rating int) error {
	return expectOne(tx.ExecContext(ctx, "UPDATE players SET rating = ? WHERE id = ?", rating, id))
}

func (s *TournamentStore) SetPlayerActive(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, active bool) error {
	return expectOne(tx.ExecContext(ctx, "UPDATE players SET active = ? WHERE id = ?", active, id))
}

func (s *TournamentStore) UpdateTournamentRounds(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, totalRounds int) error {
	return expectOne(tx.ExecContext(ctx, "UPDATE tournaments SET total_rounds = ? WHERE id = ?", totalRounds, id))
}
