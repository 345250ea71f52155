// Package handler contains the HTTP surface: auth/account endpoints,
// message CRUD, admin user management, and the websocket handshake.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/lmarchetti/sidechat/internal/apperr"
)

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

// respondError maps coded errors to HTTP statuses. Plain errors are
// logged and hidden behind a generic 500.
func respondError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	msg := "Internal server error"

	var ae *apperr.AppError
	if errors.As(err, &ae) && status < http.StatusInternalServerError {
		msg = ae.Message
	} else {
		slog.Error("request failed", "error", err)
	}

	respondJSON(w, status, map[string]string{"message": msg})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.InvalidArg("invalid request body")
	}
	return nil
}
