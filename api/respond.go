package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/poiesic/obsim/search"
	"github.com/poiesic/obsim/storage"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Detail any `json:"detail"`
}

func respondJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		logger.Error("failed to marshal JSON response", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logger.Debug("failed to write response", "err", err)
	}
}

func respondDetail(w http.ResponseWriter, logger *slog.Logger, status int, detail any) {
	respondJSON(w, logger, status, errorResponse{Detail: detail})
}

// respondError maps an error to its status code.
func respondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "err", err)
	}
	respondDetail(w, logger, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, search.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, search.ErrNoData), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
