package store

import (
	"context"
	"testing"
	"time"

	"github.com/AdamBeresnev/op-arbiter/internal/audit"
	"github.com/AdamBeresnev/op-arbiter/internal/tournament"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRecordAndTrail(t *testing.T) {
	f := newRoundFixture(t)
	ctx := context.Background()
	audits := NewAuditStore(f.db)
	game := f.games[0]

	first := &audit.Entry{
		GameID: game.ID, PreviousResult: tournament.Ongoing, PreviousType: tournament.Standard,
		NewResult: tournament.WhiteWin, NewType: tournament.Standard, Actor: "alice", Approved: true,
		CreatedAt: time.Now().UTC(),
	}
	second := &audit.Entry{
		GameID: game.ID, PreviousResult: tournament.WhiteWin, PreviousType: tournament.Standard,
		NewResult: tournament.Draw, NewType: tournament.Standard, Actor: "bob", Approved: true,
		Warnings: "overwrite_final", CreatedAt: time.Now().UTC(),
	}
	inTx(t, f.db, func(tx *sqlx.Tx) error {
		if err := audits.Record(ctx, tx, first); err != nil {
			return err
		}
		return audits.Record(ctx, tx, second)
	})
	assert.Less(t, first.ID, second.ID)

	trail, err := audits.Trail(ctx, f.db, game.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, "alice", trail[0].Actor)
	assert.Equal(t, "bob", trail[1].Actor)
	assert.Equal(t, []string{"overwrite_final"}, trail[1].WarningCodes())

	empty, err := audits.Trail(ctx, f.db, f.games[1].ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAuditIsAppendOnly(t *testing.T) {
	f := newRoundFixture(t)
	ctx := context.Background()
	audits := NewAuditStore(f.db)

	entry := &audit.Entry{
		GameID: f.games[0].ID, PreviousResult: tournament.Ongoing, PreviousType: tournament.Standard,
		NewResult: tournament.WhiteWin, NewType: tournament.Standard, Actor: "alice", Approved: true,
		CreatedAt: time.Now().UTC(),
	}
	inTx(t, f.db, func(tx *sqlx.Tx) error {
		return audits.Record(ctx, tx, entry)
	})

	_, err := f.db.Exec("UPDATE result_audits SET actor = 'mallory' WHERE id = ?", entry.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append-only")

	_, err = f.db.Exec("DELETE FROM result_audits WHERE id = ?", entry.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append-only")

	trail, err := audits.Trail(ctx, f.db, f.games[0].ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, "alice", trail[0].Actor)
}
