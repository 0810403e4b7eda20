package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/op-arbiter/internal/httputil"
	"github.com/AdamBeresnev/op-arbiter/internal/live"
	"github.com/AdamBeresnev/op-arbiter/internal/metrics"
	"github.com/AdamBeresnev/op-arbiter/internal/middleware"
	"github.com/AdamBeresnev/op-arbiter/internal/service"
	"github.com/AdamBeresnev/op-arbiter/internal/store"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jmoiron/sqlx"
	"github.com/markbates/goth/gothic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type appOptions struct {
	logger   *slog.Logger
	sessions *scs.SessionManager
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	hub      *live.Hub
	limiter  *middleware.IPRateLimiter
	origins  []string
}

type app struct {
	appOptions
	userStore   *store.UserStore
	users       *service.UserService
	tournaments *service.TournamentService
	rounds      *service.RoundService
	results     *service.ResultService
}

func newApp(db *sqlx.DB, opts appOptions) *app {
	tournamentStore := store.NewTournamentStore(db)
	roundStore := store.NewRoundStore(db)
	userStore := store.NewUserStore(db)
	deps := service.Deps{Logger: opts.logger, Metrics: opts.metrics, Notifier: opts.hub}

	return &app{
		appOptions:  opts,
		userStore:   userStore,
		users:       service.NewUserService(db, userStore),
		tournaments: service.NewTournamentService(db, tournamentStore, roundStore, deps),
		rounds:      service.NewRoundService(db, tournamentStore, roundStore, deps),
		results:     service.NewResultService(db, tournamentStore, roundStore, store.NewAuditStore(db), deps),
	}
}

func newRouter(a *app) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(a.sessions.LoadAndSave)

	// Serve static files
	fileServer := http.FileServer(http.Dir("./static"))
	r.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))

	r.Get("/tournaments/{id}/standings", withID(a.standingsPage))
	r.Get("/ws/tournaments/{id}", withID(a.serveLive))

	r.Route("/api", func(r chi.Router) {
		r.Get("/tournaments/{id}", withID(a.getTournament))
		r.Get("/tournaments/{id}/standings", withID(a.getStandings))
		r.Get("/tournaments/{id}/rounds/{number}", withID(a.getRound))
		r.Get("/games/{id}/audit", withID(a.getAuditTrail))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(a.limiter))
			r.Use(middleware.RequireAuth(a.sessions, a.userStore))

			r.Get("/tournaments", a.listTournaments)
			r.Post("/tournaments", a.createTournament)
			r.Post("/tournaments/{id}/players", withID(a.addPlayers))
			r.Delete("/tournaments/{id}/players/{playerID}", withID(a.withdrawPlayer))
			r.Post("/tournaments/{id}/status", withID(a.setStatus))
			r.Post("/tournaments/{id}/rounds", withID(a.generateRound))

			r.Post("/games/{id}/validate", withID(a.validateResult))
			r.Post("/games/{id}/result", withID(a.submitResult))
			r.Post("/games/{id}/approve", withID(a.approveResult))
			r.Post("/games/{id}/rating", withID(a.updateRating))
			r.Post("/results/batch", a.batchResults)
		})
	})

	r.Get("/auth/{provider}", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothic.BeginAuthHandler(w, r)
	})

	r.Get("/auth/{provider}/callback", func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		r = r.WithContext(context.WithValue(r.Context(), "provider", provider))

		gothUser, err := gothic.CompleteUserAuth(w, r)
		if err != nil {
			httputil.BadRequest(w, "Authentication failure", err)
			return
		}

		user, err := a.users.FindOrCreateUserByProvider(r.Context(), gothUser)
		if err != nil {
			httputil.InternalServerError(w, "Failed to find or create arbiter", err)
			return
		}

		if err := a.sessions.RenewToken(r.Context()); err != nil {
			httputil.InternalServerError(w, "Failed to renew session", err)
			return
		}
		a.sessions.Put(r.Context(), "userID", user.ID.String())
		http.Redirect(w, r, "/", http.StatusFound)
	})

	r.Post("/auth/guest", func(w http.ResponseWriter, r *http.Request) {
		user, err := a.users.EnsureGuestUser(r.Context())
		if err != nil {
			httputil.InternalServerError(w, "Failed to login as guest", err)
			return
		}

		if err := a.sessions.RenewToken(r.Context()); err != nil {
			httputil.InternalServerError(w, "Failed to renew session", err)
			return
		}
		a.sessions.Put(r.Context(), "userID", user.ID.String())
		httputil.JSON(w, http.StatusOK, user)
	})

	r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
		if err := a.sessions.Destroy(r.Context()); err != nil {
			httputil.InternalServerError(w, "Failed to destroy session", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}
