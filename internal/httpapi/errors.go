package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/assetlife/server/internal/assetlife/actor"
	"github.com/assetlife/server/internal/assetlife/lifecycle"
	"github.com/assetlife/server/internal/assetlife/service"
	"github.com/assetlife/server/internal/assetlife/store"
)

// writeServiceError maps domain errors onto HTTP responses. Anything not
// recognised is logged and reported as a 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ge *lifecycle.GuardError

	switch {
	case errors.Is(err, actor.ErrMissing):
		writeError(w, http.StatusUnauthorized, "actor_required", err.Error())
	case errors.As(err, &ge):
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   "guard_failed",
			Message: ge.Reason,
			Guard:   ge.Guard,
		})
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, store.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody{
			Error:     "conflict",
			Message:   "the record changed concurrently; re-read and retry",
			Retryable: true,
		})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, service.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{
			Error:     "unavailable",
			Message:   "request was cancelled before it completed",
			Retryable: true,
		})
	case errors.Is(err, lifecycle.ErrStorage):
		s.log.Error().Err(err).Str("op", op).Msg("storage failure")
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error:     "storage_error",
			Message:   "storage unavailable",
			Retryable: true,
		})
	default:
		s.log.Error().Err(err).Str("op", op).Str("path", r.URL.Path).Msg("unexpected error")
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}
