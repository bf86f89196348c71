package session

import (
	"net/http"

	"jules-backend/internal/handler/http/anonymous"
	"jules-backend/pkg/usagelimit"
)

// Register mounts the session endpoints. admin guards the extension route.
func Register(mux *http.ServeMux, res *anonymous.Resolver, policy usagelimit.Policy, svc Extender, admin func(http.Handler) http.Handler) {
	mux.Handle("POST   /anonymous/session", res.Middleware(CreateHandler{policy}))
	mux.Handle("GET    /anonymous/session", res.Optional(GetHandler{policy}))
	mux.Handle("GET    /anonymous/usage", res.Optional(UsageHandler{policy}))

	mux.Handle("POST   /admin/sessions/{id}/extend", admin(ExtendHandler{Svc: svc, Policy: policy}))
}
