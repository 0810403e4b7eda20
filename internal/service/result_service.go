package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AdamBeresnev/op-arbiter/internal/audit"
	"github.com/AdamBeresnev/op-arbiter/internal/rating"
	"github.com/AdamBeresnev/op-arbiter/internal/store"
	"github.com/AdamBeresnev/op-arbiter/internal/tournament"
	"github.com/AdamBeresnev/op-arbiter/internal/utils"
	"github.com/AdamBeresnev/op-arbiter/internal/validator"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
)

type ResultService struct {
	db          *sqlx.DB
	tournaments *store.TournamentStore
	rounds      *store.RoundStore
	audits      *store.AuditStore
	deps        Deps
}

func NewResultService(db *sqlx.DB, tournaments *store.TournamentStore, rounds *store.RoundStore, audits *store.AuditStore, deps Deps) *ResultService {
	return &ResultService{db: db, tournaments: tournaments, rounds: rounds, audits: audits, deps: deps.withDefaults()}
}

type RatingDelta struct {
	GameID      uuid.UUID `json:"game_id"`
	WhiteDelta  int       `json:"white_delta"`
	BlackDelta  int       `json:"black_delta"`
	WhiteRating int       `json:"white_rating"`
	BlackRating int       `json:"black_rating"`
}

// Submission is the outcome of an accepted result.
type Submission struct {
	Game     *tournament.Game  `json:"game"`
	Warnings []validator.Issue `json:"warnings"`
	Rating   *RatingDelta      `json:"rating,omitempty"`
}

// snapshot gathers what the validator needs about a game. An unknown game
// yields an empty snapshot rather than an error.
func (s *ResultService) snapshot(ctx context.Context, q store.Querier, gameID uuid.UUID) (validator.Snapshot, error) {
	var snap validator.Snapshot

	game, err := s.rounds.GetGame(ctx, q, gameID)
	if errors.Is(err, store.ErrNotFound) {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("failed to load game: %w", err)
	}
	snap.Game = game

	if snap.Tournament, err = s.tournaments.GetTournament(ctx, q, game.TournamentID); err != nil {
		return snap, fmt.Errorf("failed to load tournament: %w", err)
	}
	if snap.Round, err = s.rounds.GetRound(ctx, q, game.RoundID); err != nil {
		return snap, fmt.Errorf("failed to load round: %w", err)
	}
	if snap.Players, err = s.tournaments.GetPlayers(ctx, q, game.TournamentID); err != nil {
		return snap, fmt.Errorf("failed to load players: %w", err)
	}
	if snap.LaterRoundExists, err = s.rounds.HasLaterRound(ctx, q, game.TournamentID, snap.Round.Number); err != nil {
		return snap, fmt.Errorf("failed to check later rounds: %w", err)
	}
	return snap, nil
}

// Validate screens an update without writing anything.
func (s *ResultService) Validate(ctx context.Context, update validator.Update) (res validator.Result, err error) {
	ctx, span := startSpan(ctx, "ResultService.Validate", attribute.String("game_id", update.GameID.String()))
	defer func() { endSpan(span, err) }()

	snap, err := s.snapshot(ctx, s.db, update.GameID)
	if err != nil {
		return validator.Result{}, err
	}
	return validator.Validate(snap, update), nil
}

// SubmitResult records a result. Standard results are approved at once,
// administrative ones wait for ApproveResult. Every accepted submission is
// audited; a rejected one leaves no trace.
func (s *ResultService) SubmitResult(ctx context.Context, update validator.Update) (*Submission, error) {
	sub, _, err := s.submit(ctx, update)
	return sub, err
}

func (s *ResultService) submit(ctx context.Context, update validator.Update) (sub *Submission, res validator.Result, err error) {
	ctx, span := startSpan(ctx, "ResultService.SubmitResult",
		attribute.String("game_id", update.GameID.String()), attribute.String("actor", update.Actor))
	start := time.Now()
	defer func() {
		s.deps.Metrics.ObserveOperation("ResultService.SubmitResult", start, err)
		endSpan(span, err)
	}()

	if strings.TrimSpace(update.Actor) == "" {
		return nil, res, invalid("actor is required")
	}

	var tournamentID uuid.UUID
	err = store.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		snap, err := s.snapshot(ctx, tx, update.GameID)
		if err != nil {
			return err
		}
		res = validator.Validate(snap, update)
		if !res.IsValid {
			return res.Err()
		}
		tournamentID = snap.Tournament.ID

		before := *snap.Game
		after := before
		if after.Rated {
			if err := s.revertRating(ctx, tx, &after); err != nil {
				return err
			}
		}
		after.Result = res.Outcome
		after.ResultType = res.Type
		after.Reason = utils.StringOrNil(utils.OrZero(update.Reason))
		after.Approval = tournament.Approved
		if validator.NeedsApproval(res.Type) {
			after.Approval = tournament.Unapproved
		}
		after.UpdatedAt = time.Now().UTC()

		if err := s.rounds.UpdateGame(ctx, tx, &after); err != nil {
			return fmt.Errorf("failed to update game: %w", err)
		}

		sub = &Submission{Game: &after}
		if after.IsApproved() && after.IsPlayed() {
			var rejected *validator.Issue
			if sub.Rating, rejected, err = s.rateAccepted(ctx, tx, &after); err != nil {
				return err
			}
			if rejected != nil {
				res.Warnings = append(res.Warnings, *rejected)
			}
		}
		sub.Warnings = res.Warnings

		entry := audit.NewEntry(&before, &after, update.Actor, res.WarningCodes())
		if err := s.audits.Record(ctx, tx, &entry); err != nil {
			return fmt.Errorf("failed to record audit entry: %w", err)
		}
		return s.advanceRound(ctx, tx, snap.Round)
	})
	if err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			s.deps.Metrics.ValidationRejected(issueCodes(verr.Issues)...)
			s.deps.Logger.WarnContext(ctx, "result rejected", "game_id", update.GameID, "actor", update.Actor, "error", err)
		}
		return nil, res, err
	}

	s.deps.Metrics.ResultSubmitted(string(sub.Game.ResultType))
	s.deps.Logger.InfoContext(ctx, "result submitted",
		"tournament_id", tournamentID,
		"game_id", sub.Game.ID,
		"result", sub.Game.Result,
		"result_type", sub.Game.ResultType,
		"approval", sub.Game.Approval,
		"warnings", res.WarningCodes(),
	)
	s.deps.Notifier.Publish(tournamentID, EventResultSubmitted, sub.Game)
	return sub, res, nil
}

// ApproveResult confirms an administrative result so that it counts.
func (s *ResultService) ApproveResult(ctx context.Context, gameID uuid.UUID, actor string) (game *tournament.Game, err error) {
	ctx, span := startSpan(ctx, "ResultService.ApproveResult",
		attribute.String("game_id", gameID.String()), attribute.String("actor", actor))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(actor) == "" {
		return nil, invalid("actor is required")
	}

	var tournamentID uuid.UUID
	err = store.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		snap, err := s.snapshot(ctx, tx, gameID)
		if err != nil {
			return err
		}
		if err := validator.ValidateApproval(snap).Err(); err != nil {
			return err
		}
		tournamentID = snap.Tournament.ID

		before := *snap.Game
		after := before
		after.Approval = tournament.Approved
		after.UpdatedAt = time.Now().UTC()
		if err := s.rounds.UpdateGame(ctx, tx, &after); err != nil {
			return fmt.Errorf("failed to update game: %w", err)
		}
		var warnings []string
		if after.IsPlayed() {
			_, rejected, err := s.rateAccepted(ctx, tx, &after)
			if err != nil {
				return err
			}
			if rejected != nil {
				warnings = append(warnings, rejected.Code)
			}
		}
		entry := audit.NewEntry(&before, &after, actor, warnings)
		if err := s.audits.Record(ctx, tx, &entry); err != nil {
			return fmt.Errorf("failed to record audit entry: %w", err)
		}
		game = &after
		return s.advanceRound(ctx, tx, snap.Round)
	})
	if err != nil {
		return nil, err
	}

	s.deps.Metrics.ResultApproved()
	s.deps.Logger.InfoContext(ctx, "result approved", "tournament_id", tournamentID, "game_id", gameID, "actor", actor)
	s.deps.Notifier.Publish(tournamentID, EventResultApproved, game)
	return game, nil
}

// advanceRound moves the round to in progress on its first result and to
// completed once every game is final.
func (s *ResultService) advanceRound(ctx context.Context, tx *sqlx.Tx, round *tournament.Round) error {
	games, err := s.rounds.GetRoundGames(ctx, tx, round.ID)
	if err != nil {
		return fmt.Errorf("failed to load round games: %w", err)
	}
	status := tournament.StatusAfterSubmission(games)
	if status == round.Status {
		return nil
	}
	if err := s.rounds.UpdateRoundStatus(ctx, tx, round.ID, status); err != nil {
		return fmt.Errorf("failed to update round status: %w", err)
	}
	round.Status = status
	return nil
}

// UpdateRating applies the rating change of an approved played game. A game
// that is already rated returns its stored deltas.
func (s *ResultService) UpdateRating(ctx context.Context, gameID uuid.UUID) (delta *RatingDelta, err error) {
	ctx, span := startSpan(ctx, "ResultService.UpdateRating", attribute.String("game_id", gameID.String()))
	defer func() { endSpan(span, err) }()

	err = store.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		game, err := s.rounds.GetGame(ctx, tx, gameID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrGameNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load game: %w", err)
		}

		if game.Rated {
			white, black, err := s.gamePlayers(ctx, tx, game)
			if err != nil {
				return err
			}
			delta = &RatingDelta{
				GameID:      game.ID,
				WhiteDelta:  game.WhiteDelta,
				BlackDelta:  game.BlackDelta,
				WhiteRating: white.Rating,
				BlackRating: black.Rating,
			}
			return nil
		}
		if !game.IsApproved() || !game.IsPlayed() {
			return fmt.Errorf("%w: game %s is not an approved played game", ErrNotRatable, game.ID)
		}
		delta, err = s.rate(ctx, tx, game)
		return err
	})
	if err != nil {
		return nil, err
	}
	return delta, nil
}

func (s *ResultService) gamePlayers(ctx context.Context, tx *sqlx.Tx, g *tournament.Game) (*tournament.Player, *tournament.Player, error) {
	if g.BlackID == nil {
		return nil, nil, fmt.Errorf("%w: game %s is a bye", ErrNotRatable, g.ID)
	}
	white, err := s.tournaments.GetPlayer(ctx, tx, g.WhiteID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load white player: %w", err)
	}
	black, err := s.tournaments.GetPlayer(ctx, tx, *g.BlackID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load black player: %w", err)
	}
	return white, black, nil
}

// rateAccepted rates a game whose result has just been accepted. A new rating
// outside the allowed range leaves the game unrated and comes back as a
// warning, so the result itself still stands.
func (s *ResultService) rateAccepted(ctx context.Context, tx *sqlx.Tx, g *tournament.Game) (*RatingDelta, *validator.Issue, error) {
	delta, err := s.rate(ctx, tx, g)
	if errors.Is(err, rating.ErrRatingOutOfRange) {
		s.deps.Logger.WarnContext(ctx, "rating not applied", "game_id", g.ID, "error", err)
		return nil, &validator.Issue{
			Kind:    validator.Policy,
			Code:    validator.CodeRatingOutOfRange,
			Message: err.Error(),
		}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return delta, nil, nil
}

// rate computes both deltas from the current ratings and stores them. A new
// rating outside the allowed range is returned as an error before anything is
// written.
func (s *ResultService) rate(ctx context.Context, tx *sqlx.Tx, g *tournament.Game) (*RatingDelta, error) {
	white, black, err := s.gamePlayers(ctx, tx, g)
	if err != nil {
		return nil, err
	}

	whiteScore, blackScore := g.Points()
	whiteDelta := rating.ComputeDelta(white.Rating, black.Rating, whiteScore)
	blackDelta := rating.ComputeDelta(black.Rating, white.Rating, blackScore)

	whiteRating, err := rating.Apply(white.Rating, whiteDelta)
	if err != nil {
		return nil, fmt.Errorf("white player %s: %w", white.ID, err)
	}
	blackRating, err := rating.Apply(black.Rating, blackDelta)
	if err != nil {
		return nil, fmt.Errorf("black player %s: %w", black.ID, err)
	}

	if err := s.tournaments.UpdatePlayerRating(ctx, tx, white.ID, whiteRating); err != nil {
		return nil, fmt.Errorf("failed to update white rating: %w", err)
	}
	if err := s.tournaments.UpdatePlayerRating(ctx, tx, black.ID, blackRating); err != nil {
		return nil, fmt.Errorf("failed to update black rating: %w", err)
	}

	g.Rated = true
	g.WhiteDelta = whiteDelta
	g.BlackDelta = blackDelta
	if err := s.rounds.UpdateGame(ctx, tx, g); err != nil {
		return nil, fmt.Errorf("failed to mark game rated: %w", err)
	}

	s.deps.Metrics.RatingApplied()
	return &RatingDelta{
		GameID:      g.ID,
		WhiteDelta:  whiteDelta,
		BlackDelta:  blackDelta,
		WhiteRating: whiteRating,
		BlackRating: blackRating,
	}, nil
}

// revertRating undoes the deltas of a game whose result is being replaced.
func (s *ResultService) revertRating(ctx context.Context, tx *sqlx.Tx, g *tournament.Game) error {
	white, black, err := s.gamePlayers(ctx, tx, g)
	if err != nil {
		return err
	}
	whiteRating, err := rating.Apply(white.Rating, -g.WhiteDelta)
	if err != nil {
		return fmt.Errorf("white player %s: %w", white.ID, err)
	}
	blackRating, err := rating.Apply(black.Rating, -g.BlackDelta)
	if err != nil {
		return fmt.Errorf("black player %s: %w", black.ID, err)
	}
	if err := s.tournaments.UpdatePlayerRating(ctx, tx, white.ID, whiteRating); err != nil {
		return fmt.Errorf("failed to revert white rating: %w", err)
	}
	if err := s.tournaments.UpdatePlayerRating(ctx, tx, black.ID, blackRating); err != nil {
		return fmt.Errorf("failed to revert black rating: %w", err)
	}
	g.Rated = false
	g.WhiteDelta = 0
	g.BlackDelta = 0
	return nil
}

// GetAuditTrail returns the history of a game, oldest first.
func (s *ResultService) GetAuditTrail(ctx context.Context, gameID uuid.UUID) (trail []audit.Entry, err error) {
	ctx, span := startSpan(ctx, "ResultService.GetAuditTrail", attribute.String("game_id", gameID.String()))
	defer func() { endSpan(span, err) }()

	if _, err := s.rounds.GetGame(ctx, s.db, gameID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to load game: %w", err)
	}
	trail, err = s.audits.Trail(ctx, s.db, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit trail: %w", err)
	}
	return trail, nil
}

type BatchItem struct {
	Index      int              `json:"index"`
	GameID     uuid.UUID        `json:"game_id"`
	Validation validator.Result `json:"validation"`
	Applied    bool             `json:"applied"`
	Game       *tournament.Game `json:"game,omitempty"`
	Error      string           `json:"error,omitempty"`
}

type BatchResult struct {
	Items        []BatchItem `json:"items"`
	OverallValid bool        `json:"overall_valid"`
}

// BatchValidate validates every update on its own.
func (s *ResultService) BatchValidate(ctx context.Context, updates []validator.Update) BatchResult {
	return s.BatchSubmit(ctx, updates, true)
}

// BatchSubmit handles every update independently. A failing item never
// blocks or rolls back another; OverallValid reports whether all passed.
func (s *ResultService) BatchSubmit(ctx context.Context, updates []validator.Update, validateOnly bool) BatchResult {
	ctx, span := startSpan(ctx, "ResultService.BatchSubmit",
		attribute.Int("items", len(updates)), attribute.Bool("validate_only", validateOnly))
	defer span.End()

	out := BatchResult{Items: make([]BatchItem, len(updates)), OverallValid: true}
	for i, update := range updates {
		item := BatchItem{Index: i, GameID: update.GameID}

		if validateOnly {
			res, err := s.Validate(ctx, update)
			item.Validation = res
			if err != nil {
				item.Error = err.Error()
			}
		} else {
			sub, res, err := s.submit(ctx, update)
			item.Validation = res
			if err != nil {
				item.Error = err.Error()
			} else {
				item.Applied = true
				item.Game = sub.Game
			}
		}

		if item.Error != "" || !item.Validation.IsValid {
			out.OverallValid = false
		}
		out.Items[i] = item
	}

	s.deps.Logger.InfoContext(ctx, "batch processed",
		"items", len(updates), "validate_only", validateOnly, "overall_valid", out.OverallValid)
	return out
}

func issueCodes(issues []validator.Issue) []string {
	codes := make([]string, len(issues))
	for i, issue := range issues {
		codes[i] = issue.Code
	}
	return codes
}
