package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/AdamBeresnev/op-arbiter/internal/audit"
	"github.com/AdamBeresnev/op-arbiter/internal/httputil"
	"github.com/AdamBeresnev/op-arbiter/internal/middleware"
	"github.com/AdamBeresnev/op-arbiter/internal/service"
	"github.com/AdamBeresnev/op-arbiter/internal/validator"
	"github.com/AdamBeresnev/op-arbiter/views"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", service.ErrInvalidInput, name)
	}
	return id, nil
}

// withID parses the {id} path parameter before calling next.
func withID(next func(w http.ResponseWriter, r *http.Request, id uuid.UUID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			httputil.Error(w, r, err)
			return
		}
		next(w, r, id)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := httputil.Decode(r, v); err != nil {
		httputil.Error(w, r, fmt.Errorf("%w: malformed request body: %v", service.ErrInvalidInput, err))
		return false
	}
	return true
}

func (a *app) getTournament(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	data, err := a.tournaments.GetTournamentData(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, data)
}

func (a *app) getStandings(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	data, err := a.tournaments.GetStandings(r.Context(), id, r.URL.Query().Get("order"))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, data)
}

func (a *app) standingsPage(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var (
		standings *service.StandingsData
		data      *service.TournamentData
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		standings, err = a.tournaments.GetStandings(ctx, id, r.URL.Query().Get("order"))
		return err
	})
	g.Go(func() (err error) {
		data, err = a.tournaments.GetTournamentData(ctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		httputil.Error(w, r, err)
		return
	}

	page := views.StandingsPage(standings, views.PrepareRoundData(data.Players, data.Games))
	if err := views.Render(w, r, page); err != nil {
		httputil.InternalServerError(w, "Failed to render standings", err)
	}
}

func (a *app) getRound(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || number < 1 {
		httputil.Error(w, r, fmt.Errorf("%w: invalid round number", service.ErrInvalidInput))
		return
	}
	games, err := a.rounds.GetRoundGames(r.Context(), id, number)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, games)
}

type auditResponse struct {
	Summary audit.Summary `json:"summary"`
	Trail   []audit.Entry `json:"trail"`
}

func (a *app) getAuditTrail(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	trail, err := a.results.GetAuditTrail(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	summary := audit.Summarize(trail)
	summary.GameID = id
	httputil.JSON(w, http.StatusOK, auditResponse{Summary: summary, Trail: trail})
}

func (a *app) serveLive(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	a.hub.ServeWS(w, r, id)
}

func (a *app) listTournaments(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.GetUserIDFromContext(r.Context())
	list, err := a.tournaments.GetTournamentsByOwner(r.Context(), ownerID)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, list)
}

func (a *app) createTournament(w http.ResponseWriter, r *http.Request) {
	var in service.CreateTournamentInput
	if !decode(w, r, &in) {
		return
	}
	ownerID, _ := middleware.GetUserIDFromContext(r.Context())
	t, err := a.tournaments.CreateTournament(r.Context(), ownerID, in)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, t)
}

func (a *app) addPlayers(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var in []service.PlayerInput
	if !decode(w, r, &in) {
		return
	}
	players, err := a.tournaments.AddPlayers(r.Context(), id, in)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, players)
}

func (a *app) withdrawPlayer(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	playerID, err := pathID(r, "playerID")
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	if err := a.tournaments.WithdrawPlayer(r.Context(), id, playerID); err != nil {
		httputil.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (a *app) setStatus(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var in statusRequest
	if !decode(w, r, &in) {
		return
	}
	t, err := a.tournaments.SetStatus(r.Context(), id, in.Status)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, t)
}

func (a *app) generateRound(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	out, err := a.rounds.GenerateRound(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, out)
}

// resultUpdate reads an update for the game in the path. The actor is always
// the signed-in arbiter.
func resultUpdate(w http.ResponseWriter, r *http.Request, id uuid.UUID) (validator.Update, bool) {
	var update validator.Update
	if !decode(w, r, &update) {
		return update, false
	}
	update.GameID = id
	update.Actor = middleware.Actor(r.Context())
	return update, true
}

func (a *app) validateResult(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	update, ok := resultUpdate(w, r, id)
	if !ok {
		return
	}
	res, err := a.results.Validate(r.Context(), update)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, res)
}

func (a *app) submitResult(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	update, ok := resultUpdate(w, r, id)
	if !ok {
		return
	}
	sub, err := a.results.SubmitResult(r.Context(), update)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, sub)
}

func (a *app) approveResult(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	game, err := a.results.ApproveResult(r.Context(), id, middleware.Actor(r.Context()))
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, game)
}

func (a *app) updateRating(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	delta, err := a.results.UpdateRating(r.Context(), id)
	if err != nil {
		httputil.Error(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, delta)
}

func (a *app) batchResults(w http.ResponseWriter, r *http.Request) {
	var updates []validator.Update
	if !decode(w, r, &updates) {
		return
	}
	actor := middleware.Actor(r.Context())
	for i := range updates {
		updates[i].Actor = actor
	}
	validateOnly, _ := strconv.ParseBool(r.URL.Query().Get("validate_only"))

	out := a.results.BatchSubmit(r.Context(), updates, validateOnly)
	status := http.StatusOK
	if !out.OverallValid {
		status = http.StatusMultiStatus
	}
	httputil.JSON(w, status, out)
}
