package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AdamBeresnev/op-arbiter/internal/db"
	"github.com/AdamBeresnev/op-arbiter/internal/live"
	"github.com/AdamBeresnev/op-arbiter/internal/metrics"
	"github.com/AdamBeresnev/op-arbiter/internal/middleware"
	"github.com/AdamBeresnev/op-arbiter/internal/service"
	"github.com/AdamBeresnev/op-arbiter/internal/tournament"
	"github.com/alexedwards/scs/v2"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type apiClient struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newTestServer(t *testing.T) *apiClient {
	t.Helper()
	database, err := db.InitDB(filepath.Join(t.TempDir(), "arbiter.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.RunMigrations(database))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := live.NewHub(logger, allowOrigins([]string{"*"}))
	go hub.Run(ctx)

	registry := prometheus.NewRegistry()
	a := newApp(database, appOptions{
		logger:   logger,
		sessions: scs.New(),
		metrics:  metrics.New(registry),
		registry: registry,
		hub:      hub,
		limiter:  middleware.NewIPRateLimiter(rate.Inf, 1),
		origins:  []string{"*"},
	})
	srv := httptest.NewServer(newRouter(a))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &apiClient{t: t, base: srv.URL, client: &http.Client{Jar: jar}}
}

func (c *apiClient) do(method, path string, body any, out any) int {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestTournamentLifecycle(t *testing.T) {
	c := newTestServer(t)
	faker := gofakeit.New(7)

	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodPost, "/api/tournaments", map[string]any{"name": "x"}, nil))
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/auth/guest", nil, nil))

	var tr tournament.Tournament
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/tournaments", map[string]any{
		"name":           "Autumn Swiss",
		"total_rounds":   3,
		"pairing_system": "swiss",
		"tiebreak_order": "buchholz,wins",
	}, &tr))

	players := make([]map[string]any, 4)
	for i := range players {
		players[i] = map[string]any{"name": faker.Name(), "rating": 1800 + i*50}
	}
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/tournaments/"+tr.ID.String()+"/players", players, nil))
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/tournaments/"+tr.ID.String()+"/status", map[string]string{"status": "ongoing"}, nil))

	var round service.GeneratedRound
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/tournaments/"+tr.ID.String()+"/rounds", nil, &round))
	require.Len(t, round.Games, 2)
	assert.Equal(t, http.StatusConflict, c.do(http.MethodPost, "/api/tournaments/"+tr.ID.String()+"/rounds", nil, nil))

	var sub service.Submission
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/games/"+round.Games[0].ID.String()+"/result", map[string]string{"result": "1-0"}, &sub))
	assert.True(t, sub.Game.IsApproved())

	var rejected struct {
		Kind   string `json:"kind"`
		Issues []struct {
			Code string `json:"code"`
		} `json:"issues"`
	}
	require.Equal(t, http.StatusUnprocessableEntity, c.do(http.MethodPost, "/api/games/"+round.Games[1].ID.String()+"/result", map[string]string{"result": "2-0"}, &rejected))
	assert.Equal(t, "structural", rejected.Kind)
	require.Len(t, rejected.Issues, 1)
	assert.Equal(t, "malformed_result", rejected.Issues[0].Code)

	var batch service.BatchResult
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/results/batch", []map[string]string{
		{"game_id": round.Games[1].ID.String(), "result": "1/2-1/2"},
	}, &batch))
	assert.True(t, batch.OverallValid)

	var audit auditResponse
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/games/"+round.Games[0].ID.String()+"/audit", nil, &audit))
	require.Len(t, audit.Trail, 1)
	assert.Equal(t, "Guest Arbiter", audit.Trail[0].Actor)
	assert.Equal(t, 1, audit.Summary.Submissions)

	var standings service.StandingsData
	require.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/tournaments/"+tr.ID.String()+"/standings", nil, &standings))
	require.Len(t, standings.Standings, 4)
	assert.Equal(t, 1.0, standings.Standings[0].Points)
	assert.Equal(t, 1, standings.RoundsCompleted)

	resp, err := c.client.Get(c.base + "/tournaments/" + tr.ID.String() + "/standings")
	require.NoError(t, err)
	defer resp.Body.Close()
	html, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(html), "<h1>Autumn Swiss</h1>")

	resp, err = c.client.Get(c.base + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "arbiter_rounds_generated_total"))
}

func TestNotFoundAndBadInput(t *testing.T) {
	c := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodGet, "/api/tournaments/not-a-uuid", nil, nil))
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/tournaments/00000000-0000-0000-0000-00000000abcd", nil, nil))
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, "/api/games/00000000-0000-0000-0000-00000000abcd/audit", nil, nil))

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/auth/guest", nil, nil))
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/tournaments", map[string]any{"name": ""}, nil))
	assert.Equal(t, http.StatusBadRequest, c.do(http.MethodPost, "/api/tournaments", map[string]any{"unknown": true}, nil))
}
