// Package httptransport is the thin HTTP layer. Handlers decode, delegate to
// domain services, and encode; business rules live below.
package httptransport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"taxgate/pkg/apperrors"
)

// NewRouter wires every public endpoint. Auth endpoints are open; the rate
// governance and notification surfaces sit behind bearer authentication.
func NewRouter(auth *AuthHandler, rates *RateHandler, notifs *NotificationHandler, authn Authenticator, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	auth.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(RequireAuth(authn))
		rates.Register(r)
		notifs.Register(r)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func accessLog(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError translates domain errors to the JSON error envelope. Unknown
// errors become opaque 500s; their detail stays in logs, not responses.
func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	resp := errorResponse{Error: string(code)}
	var ae *apperrors.Error
	if errors.As(err, &ae) {
		resp.Message = ae.Message
	}
	writeJSON(w, apperrors.ToHTTPStatus(code), resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
