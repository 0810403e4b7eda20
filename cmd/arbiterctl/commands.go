package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/AdamBeresnev/op-arbiter/internal/audit"
	"github.com/AdamBeresnev/op-arbiter/internal/config"
	"github.com/AdamBeresnev/op-arbiter/internal/db"
	"github.com/AdamBeresnev/op-arbiter/internal/service"
	"github.com/AdamBeresnev/op-arbiter/internal/store"
	"github.com/AdamBeresnev/op-arbiter/internal/tournament"
	users "github.com/AdamBeresnev/op-arbiter/internal/user"
	"github.com/AdamBeresnev/op-arbiter/internal/validator"
	"github.com/AdamBeresnev/op-arbiter/views"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"
)

type services struct {
	db          *sqlx.DB
	tournaments *service.TournamentService
	rounds      *service.RoundService
	results     *service.ResultService
}

func newApp(out io.Writer) *cli.App {
	var svc *services

	return &cli.App{
		Name:   "arbiterctl",
		Usage:  "administer op-arbiter tournaments from the command line",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "arbiter.yaml", Usage: "path to the YAML config file"},
			&cli.StringFlag{Name: "db", Usage: "database path, overrides the config"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log debug output"},
		},
		Before: func(c *cli.Context) error {
			level := slog.LevelWarn
			if c.Bool("verbose") {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level})))

			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			path := cfg.Database.Path
			if p := c.String("db"); p != "" {
				path = p
			}
			database, err := db.InitDB(path)
			if err != nil {
				return err
			}

			tournamentStore := store.NewTournamentStore(database)
			roundStore := store.NewRoundStore(database)
			deps := service.Deps{Logger: slog.Default()}
			svc = &services{
				db:          database,
				tournaments: service.NewTournamentService(database, tournamentStore, roundStore, deps),
				rounds:      service.NewRoundService(database, tournamentStore, roundStore, deps),
				results:     service.NewResultService(database, tournamentStore, roundStore, store.NewAuditStore(database), deps),
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if svc != nil {
				return svc.db.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			migrateCommand(&svc),
			seedCommand(&svc),
			pairCommand(&svc),
			resultCommand(&svc),
			standingsCommand(&svc),
			auditCommand(&svc),
		},
	}
}

func argID(c *cli.Context, name string) (uuid.UUID, error) {
	raw := c.Args().First()
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing %s argument", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return id, nil
}

func migrateCommand(svc **services) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply all pending migrations",
				Action: func(c *cli.Context) error {
					if err := db.RunMigrations((*svc).db); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, "migrations applied")
					return nil
				},
			},
			{
				Name:  "down",
				Usage: "roll back the last migration",
				Action: func(c *cli.Context) error {
					if err := db.Rollback((*svc).db); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, "rolled back one migration")
					return nil
				},
			},
		},
	}
}

func seedCommand(svc **services) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "create a demo tournament with generated players and start it",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Value: "Demo Open"},
			&cli.StringFlag{Name: "system", Value: "swiss", Usage: "swiss, round_robin or knockout"},
			&cli.IntFlag{Name: "players", Value: 8},
			&cli.IntFlag{Name: "rounds", Value: 5, Usage: "rounds for swiss; derived for the other systems"},
			&cli.Uint64Flag{Name: "seed", Value: 1, Usage: "seed for generated names and ratings"},
		},
		Action: func(c *cli.Context) error {
			s := *svc
			faker := gofakeit.New(c.Uint64("seed"))

			rounds := c.Int("rounds")
			if c.String("system") != string(tournament.Swiss) {
				rounds = 0
			}
			t, err := s.tournaments.CreateTournament(c.Context, users.GuestID, service.CreateTournamentInput{
				Name:          c.String("name"),
				TotalRounds:   rounds,
				PairingSystem: c.String("system"),
			})
			if err != nil {
				return err
			}

			inputs := make([]service.PlayerInput, c.Int("players"))
			for i := range inputs {
				inputs[i] = service.PlayerInput{
					Name:   faker.Name(),
					Rating: faker.IntRange(1200, 2600),
				}
			}
			if _, err := s.tournaments.AddPlayers(c.Context, t.ID, inputs); err != nil {
				return err
			}
			if t, err = s.tournaments.SetStatus(c.Context, t.ID, string(tournament.StatusOngoing)); err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "tournament %s (%s, %d rounds, %d players)\n", t.ID, t.PairingSystem, t.TotalRounds, len(inputs))
			return nil
		},
	}
}

func pairCommand(svc **services) *cli.Command {
	return &cli.Command{
		Name:      "pair",
		Usage:     "pair the next round",
		ArgsUsage: "<tournament-id>",
		Action: func(c *cli.Context) error {
			id, err := argID(c, "tournament-id")
			if err != nil {
				return err
			}
			s := *svc
			out, err := s.rounds.GenerateRound(c.Context, id)
			if err != nil {
				return err
			}
			data, err := s.tournaments.GetTournamentData(c.Context, id)
			if err != nil {
				return err
			}
			rounds := views.PrepareRoundData(data.Players, out.Games)

			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Round %d\n", out.Round.Number)
			fmt.Fprintln(w, "Board\tWhite\tBlack\tGame")
			for _, g := range out.Games {
				white := g.WhiteID
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", g.Board, rounds.Name(&white), rounds.Name(g.BlackID), g.ID)
			}
			return w.Flush()
		},
	}
}

func resultCommand(svc **services) *cli.Command {
	return &cli.Command{
		Name:      "result",
		Usage:     "submit a result for a game",
		ArgsUsage: "<game-id> <1-0|0-1|1/2-1/2|*>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Usage: "result type, standard when empty"},
			&cli.StringFlag{Name: "reason"},
			&cli.StringFlag{Name: "actor", Value: "arbiterctl"},
			&cli.BoolFlag{Name: "approve", Usage: "approve an administrative result right away"},
		},
		Action: func(c *cli.Context) error {
			id, err := argID(c, "game-id")
			if err != nil {
				return err
			}
			update := validator.Update{
				GameID:     id,
				Result:     c.Args().Get(1),
				ResultType: c.String("type"),
				Actor:      c.String("actor"),
			}
			if r := c.String("reason"); r != "" {
				update.Reason = &r
			}

			s := *svc
			sub, err := s.results.SubmitResult(c.Context, update)
			if err != nil {
				return err
			}
			for _, w := range sub.Warnings {
				fmt.Fprintf(c.App.Writer, "warning: %s: %s\n", w.Code, w.Message)
			}
			game := sub.Game
			if c.Bool("approve") && !game.IsApproved() {
				if game, err = s.results.ApproveResult(c.Context, id, update.Actor); err != nil {
					return err
				}
			}
			fmt.Fprintf(c.App.Writer, "game %s: %s (%s, %s)\n", game.ID, game.Result, game.ResultType, game.Approval)
			return nil
		},
	}
}

func standingsCommand(svc **services) *cli.Command {
	return &cli.Command{
		Name:      "standings",
		Usage:     "print the current standings",
		ArgsUsage: "<tournament-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "order", Usage: "comma separated tiebreak order"},
		},
		Action: func(c *cli.Context) error {
			id, err := argID(c, "tournament-id")
			if err != nil {
				return err
			}
			data, err := (*svc).tournaments.GetStandings(c.Context, id, c.String("order"))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			header := []string{"#", "Player", "Rtg", "Pts"}
			for _, m := range data.Order {
				header = append(header, string(m))
			}
			fmt.Fprintln(w, strings.Join(header, "\t"))
			for _, s := range data.Standings {
				row := []string{
					fmt.Sprint(s.Rank),
					views.PlayerLabel(s.Player),
					fmt.Sprint(s.Player.Rating),
					views.FormatScore(s.Points),
				}
				for _, m := range data.Order {
					row = append(row, views.FormatScore(s.Tiebreaks.Value(m)))
				}
				fmt.Fprintln(w, strings.Join(row, "\t"))
			}
			return w.Flush()
		},
	}
}

func auditCommand(svc **services) *cli.Command {
	return &cli.Command{
		Name:      "audit",
		Usage:     "print the audit trail of a game",
		ArgsUsage: "<game-id>",
		Action: func(c *cli.Context) error {
			id, err := argID(c, "game-id")
			if err != nil {
				return err
			}
			trail, err := (*svc).results.GetAuditTrail(c.Context, id)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "When\tActor\tFrom\tTo\tWarnings")
			for _, e := range trail {
				fmt.Fprintf(w, "%s\t%s\t%s %s\t%s %s\t%s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.Actor,
					e.PreviousResult, e.PreviousType, e.NewResult, e.NewType, e.Warnings)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			sum := audit.Summarize(trail)
			fmt.Fprintf(c.App.Writer, "submissions: %d, overwrites: %d, approved: %t", sum.Submissions, sum.Overwrites, sum.Approved)
			if sum.ApprovedBy != "" {
				fmt.Fprintf(c.App.Writer, " by %s", sum.ApprovedBy)
			}
			fmt.Fprintln(c.App.Writer)
			return nil
		},
	}
}
