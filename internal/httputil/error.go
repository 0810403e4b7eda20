package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/op-arbiter/internal/pairing"
	"github.com/AdamBeresnev/op-arbiter/internal/rating"
	"github.com/AdamBeresnev/op-arbiter/internal/service"
	"github.com/AdamBeresnev/op-arbiter/internal/store"
	"github.com/AdamBeresnev/op-arbiter/internal/validator"
	"github.com/google/uuid"
)

type errorBody struct {
	Error   string            `json:"error"`
	Kind    validator.Kind    `json:"kind,omitempty"`
	Issues  []validator.Issue `json:"issues,omitempty"`
	Players []uuid.UUID       `json:"players,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Decode reads a JSON request body, rejecting unknown fields.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// Error maps an engine error to its HTTP status and writes it as JSON.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		body.Error = http.StatusText(status)
	} else {
		slog.WarnContext(r.Context(), "request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	JSON(w, status, body)
}

func classify(err error) (int, errorBody) {
	body := errorBody{Error: err.Error()}

	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		body.Kind, body.Issues = verr.Kind, verr.Issues
		if verr.Has(validator.CodeUnknownGame) {
			return http.StatusNotFound, body
		}
		return http.StatusUnprocessableEntity, body
	}

	var impossible *pairing.ImpossibleError
	if errors.As(err, &impossible) {
		body.Players = impossible.Players
		return http.StatusConflict, body
	}

	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, service.ErrTournamentNotFound),
		errors.Is(err, service.ErrGameNotFound):
		return http.StatusNotFound, body
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, body
	case errors.Is(err, service.ErrNotRatable),
		errors.Is(err, rating.ErrRatingOutOfRange):
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrRoundNotComplete),
		errors.Is(err, service.ErrAllRoundsPaired),
		errors.Is(err, service.ErrTournamentNotOngoing),
		errors.Is(err, pairing.ErrPairingImpossible),
		errors.Is(err, pairing.ErrNotEnoughPlayers),
		errors.Is(err, pairing.ErrKnockoutComplete):
		return http.StatusConflict, body
	}
	return http.StatusInternalServerError, body
}

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	JSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	http.Error(w, msg, http.StatusNotFound)
}
