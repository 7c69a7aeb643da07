package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tubestream/backend/internal/auth"
	"github.com/tubestream/backend/internal/logging"
	"github.com/tubestream/backend/internal/repositories"
)

// envelope is the uniform response body returned by every endpoint.
type envelope struct {
	Status  int    `json:"status"`
	Data    any    `json:"data"`
	Message string `json:"message"`
	Success bool   `json:"success"`
}

func respondData(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	writeEnvelope(ctx, w, envelope{Status: status, Data: data, Message: message, Success: true})
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	writeEnvelope(ctx, w, envelope{Status: status, Data: nil, Message: message, Success: false})
}

func writeEnvelope(ctx context.Context, w http.ResponseWriter, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(body.Status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", body.Status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case body.Status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", body.Status, "message", body.Message)
	case body.Status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", body.Status, "message", body.Message)
	}
}

// statusForError maps sentinel errors onto the response status taxonomy.
func statusForError(err error) int {
	switch {
	case errors.Is(err, repositories.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, repositories.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, auth.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenReused):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
