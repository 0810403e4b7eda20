package service

import (
	"context"
	"sync"
	"testing"

	"github.com/AdamBeresnev/op-arbiter/internal/metrics"
	"github.com/AdamBeresnev/op-arbiter/internal/store"
	"github.com/AdamBeresnev/op-arbiter/internal/tournament"
	users "github.com/AdamBeresnev/op-arbiter/internal/user"
	"github.com/AdamBeresnev/op-arbiter/internal/validator"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")
	database.SetMaxOpenConns(1)

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	driver, err := sqlite3.WithInstance(database.DB, &sqlite3.Config{})
	require.NoError(t, err, "Failed to create migrate driver instance")

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"sqlite3",
		driver,
	)
	require.NoError(t, err, "Failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to apply migrations")
	}

	return database
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Publish(_ uuid.UUID, event string, _ any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

type testEnv struct {
	ctx             context.Context
	db              *sqlx.DB
	tournamentStore *store.TournamentStore
	roundStore      *store.RoundStore
	auditStore      *store.AuditStore
	tournaments     *TournamentService
	rounds          *RoundService
	results         *ResultService
	notifier        *recordingNotifier
	faker           *gofakeit.Faker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	e := &testEnv{
		ctx:             context.Background(),
		db:              db,
		tournamentStore: store.NewTournamentStore(db),
		roundStore:      store.NewRoundStore(db),
		auditStore:      store.NewAuditStore(db),
		notifier:        &recordingNotifier{},
		faker:           gofakeit.New(42),
	}
	deps := Deps{Metrics: metrics.New(prometheus.NewRegistry()), Notifier: e.notifier}
	e.tournaments = NewTournamentService(db, e.tournamentStore, e.roundStore, deps)
	e.rounds = NewRoundService(db, e.tournamentStore, e.roundStore, deps)
	e.results = NewResultService(db, e.tournamentStore, e.roundStore, e.auditStore, deps)
	return e
}

// start creates a tournament with n players rated 2000, 1900, ... and
// starts it.
func (e *testEnv) start(t *testing.T, in CreateTournamentInput, n int) (*tournament.Tournament, []tournament.Player) {
	t.Helper()
	if in.Name == "" {
		in.Name = "Club Championship"
	}
	tr, err := e.tournaments.CreateTournament(e.ctx, users.GuestID, in)
	require.NoError(t, err)

	inputs := make([]PlayerInput, n)
	for i := range inputs {
		inputs[i] = PlayerInput{Name: e.faker.Name(), Rating: 2000 - i*100}
	}
	players, err := e.tournaments.AddPlayers(e.ctx, tr.ID, inputs)
	require.NoError(t, err)

	tr, err = e.tournaments.SetStatus(e.ctx, tr.ID, string(tournament.StatusOngoing))
	require.NoError(t, err)
	return tr, players
}

func (e *testEnv) submit(t *testing.T, gameID uuid.UUID, result string) *Submission {
	t.Helper()
	sub, err := e.results.SubmitResult(e.ctx, validator.Update{GameID: gameID, Result: result, Actor: "arbiter"})
	require.NoError(t, err)
	return sub
}

// completeRound enters a white win on every board that is not a bye.
func (e *testEnv) completeRound(t *testing.T, games []tournament.Game) {
	t.Helper()
	for _, g := range games {
		if !g.IsBye() {
			e.submit(t, g.ID, "1-0")
		}
	}
}

func pairedGames(games []tournament.Game) []tournament.Game {
	var out []tournament.Game
	for _, g := range games {
		if !g.IsBye() {
			out = append(out, g)
		}
	}
	return out
}
