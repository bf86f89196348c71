package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"jules-backend/internal/handler/http/respond"
	"jules-backend/internal/observability/metrics"
)

type ctxKey string

const ctxIdentity ctxKey = "identity"

// WithIdentity attaches an authenticated caller to ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

// FromContext returns the authenticated caller, if any.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxIdentity).(Identity)
	return id, ok
}

// Authenticate attaches the caller's identity when a bearer token is present.
// Requests without a token pass through anonymously; an invalid token is 401.
// A nil verifier disables authentication entirely.
func Authenticate(v *Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if v == nil || header == "" {
				next.ServeHTTP(w, r)
				return
			}
			id, err := v.Verify(header)
			if err != nil {
				metrics.RecordTokenVerification("unknown", false)
				slog.Default().Warn("bearer token rejected",
					slog.String("path", r.URL.Path),
					slog.String("error", respond.SanitizeError(err)))
				respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
			metrics.RecordTokenVerification(id.Role, true)
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin rejects callers without an admin identity. It must run after
// Authenticate. With allowAll set (auth disabled in development) every
// request passes.
func RequireAdmin(allowAll bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowAll {
				next.ServeHTTP(w, r)
				return
			}
			id, ok := FromContext(r.Context())
			if !ok {
				respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
				return
			}
			if !id.IsAdmin() {
				metrics.RecordAccessDenied(id.Role, metrics.DeniedNotAdmin)
				respond.SafeError(w, http.StatusForbidden, errors.New("forbidden: admin role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
