package httpapi

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/assetlife/server/internal/assetlife/actor"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger zerolog.Logger, actorHeader string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now().UTC()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		ev := logger.Info()
		if rec.status >= http.StatusInternalServerError {
			ev = logger.Error()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Str("remote", r.RemoteAddr).
			Str("actor", r.Header.Get(actorHeader)).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// actorMiddleware puts the caller id set by the upstream auth proxy into the
// request context. Requests that change state are refused without it.
func actorMiddleware(header string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(header)
		if id != "" {
			r = r.WithContext(actor.WithID(r.Context(), id))
		} else if mutating(r.Method) {
			writeError(w, http.StatusUnauthorized, "actor_required", header+" header is required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		}
		next.ServeHTTP(w, r)
	})
}
