package store

import (
	"context"
	"fmt"

	"github.com/AdamBeresnev/op-arbiter/internal/audit"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// AuditStore only ever appends. The table rejects updates and deletes.
type AuditStore struct {
	db *sqlx.DB
}

func NewAuditStore(db *sqlx.DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) Record(ctx context.Context, tx *sqlx.Tx, entry *audit.Entry) error {
	res, err := tx.NamedExecContext(ctx, `INSERT INTO result_audits (game_id, previous_result, previous_type, new_result, new_type,
			actor, approved, reason, warnings, created_at)
		VALUES (:game_id, :previous_result, :previous_type, :new_result, :new_type,
			:actor, :approved, :reason, :warnings, :created_at)`, entry)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read audit id: %w", err)
	}
	entry.ID = id
	return nil
}

// Trail returns every entry of a game, oldest first.
func (s *AuditStore) Trail(ctx context.Context, q Querier, gameID uuid.UUID) ([]audit.Entry, error) {
	trail := []audit.Entry{}
	err := sqlx.SelectContext(ctx, q, &trail, "SELECT * FROM result_audits WHERE game_id = ? ORDER BY id ASC", gameID)
	return trail, err
}
