package migration

import "net/http"

// Register mounts the migration routes. admin guards rollback, cleanup and
// stats.
func Register(mux *http.ServeMux, svc Service, sweeper Sweeper, admin func(http.Handler) http.Handler) {
	mux.Handle("GET    /migration/preview", PreviewHandler{svc})
	mux.Handle("POST   /migration/migrate", MigrateHandler{svc})

	mux.Handle("POST   /migration/rollback", admin(RollbackHandler{svc}))
	mux.Handle("POST   /cleanup", admin(CleanupHandler{sweeper}))
	mux.Handle("GET    /stats", admin(StatsHandler{svc}))
}
