// Package migration serves the anonymous-to-account migration endpoints and
// the admin maintenance routes.
package migration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"jules-backend/internal/handler/http/anonymous"
	"jules-backend/internal/handler/http/auth"
	"jules-backend/internal/handler/http/respond"
	"jules-backend/internal/observability/metrics"
	migUC "jules-backend/internal/usecase/migration"
	"jules-backend/internal/usecase/reaper"
)

// Service is the migration use case surface used by the handlers.
type Service interface {
	Preview(ctx context.Context, sessionID string) (*migUC.PreviewResult, error)
	Migrate(ctx context.Context, sessionID, userID string) (*migUC.MigrationResult, error)
	Rollback(ctx context.Context, userID, sessionID string) (*migUC.RollbackResult, error)
	Stats(ctx context.Context) (*migUC.Stats, error)
}

// Sweeper runs one expired-session cleanup.
type Sweeper interface {
	Run(ctx context.Context) (*migUC.CleanupResult, error)
}

// sessionFor returns the session to act on: the one the resolver attached,
// otherwise the id named by the request. Signed-in callers bypass the
// resolver, so their old session id is read directly.
func sessionFor(r *http.Request) string {
	if id := anonymous.SessionID(r.Context()); id != "" {
		return id
	}
	return anonymous.CandidateID(r)
}

type PreviewHandler struct{ Svc Service }

// ServeHTTP 移行プレビュー
// @Summary      Preview what a migration would transfer
// @Tags         migration
// @Produce      json
// @Param        X-Anonymous-Session-ID header string true "Session id"
// @Success      200 {object} migUC.PreviewResult
// @Failure      400 {object} respond.SessionRequiredBody
// @Failure      404 {string} string "Session not found"
// @Router       /migration/preview [get]
func (h PreviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := sessionFor(r)
	if id == "" {
		respond.SessionRequired(w, respond.MsgSessionRequired)
		return
	}
	res, err := h.Svc.Preview(r.Context(), id)
	if err != nil {
		respond.DomainError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

type MigrateHandler struct{ Svc Service }

// ServeHTTP 匿名セッション移行
// @Summary      Move an anonymous session's content to a user
// @Description  Re-points every fit check and conversation of the session to userId and deletes the session in one transaction. Retrying after success returns alreadyMigrated=true.
// @Tags         migration
// @Accept       json
// @Produce      json
// @Param        X-Anonymous-Session-ID header string true "Session id"
// @Param        body body object true "{\"userId\": \"...\"}"
// @Success      200 {object} migUC.MigrationResult
// @Failure      400 {string} string "userId is required"
// @Failure      403 {string} string "userId does not match the authenticated user"
// @Failure      404 {string} string "Session not found"
// @Failure      500 {object} respond.MigrationErrorBody
// @Router       /migration/migrate [post]
func (h MigrateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := sessionFor(r)
	if id == "" {
		respond.SessionRequired(w, respond.MsgSessionRequired)
		return
	}

	var req struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}
	if req.UserID == "" {
		respond.SafeError(w, http.StatusBadRequest, errors.New("userId is required"))
		return
	}
	if caller, ok := auth.FromContext(r.Context()); ok && caller.UserID != req.UserID {
		metrics.RecordAccessDenied(caller.Role, metrics.DeniedSubjectMismatch)
		respond.JSON(w, http.StatusForbidden, map[string]string{"error": "userId does not match the authenticated user"})
		return
	}

	res, err := h.Svc.Migrate(r.Context(), id, req.UserID)
	if err != nil {
		respond.DomainError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

type RollbackHandler struct{ Svc Service }

// ServeHTTP 移行ロールバック
// @Summary      Hand migrated content back to the anonymous session (admin)
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body body object true "{\"userId\": \"...\", \"sessionId\": \"...\"}"
// @Success      200 {object} migUC.RollbackResult
// @Failure      400 {string} string "userId and sessionId are required"
// @Failure      401 {string} string "Authentication required"
// @Failure      403 {string} string "Forbidden - admin role required"
// @Failure      500 {object} respond.MigrationErrorBody
// @Router       /migration/rollback [post]
func (h RollbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    string `json:"userId"`
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}
	if req.UserID == "" || req.SessionID == "" {
		respond.SafeError(w, http.StatusBadRequest, errors.New("userId and sessionId are required"))
		return
	}

	res, err := h.Svc.Rollback(r.Context(), req.UserID, req.SessionID)
	if err != nil {
		respond.DomainError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

type CleanupHandler struct{ Sweeper Sweeper }

// ServeHTTP 期限切れセッション削除
// @Summary      Delete expired sessions and their content (admin)
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} migUC.CleanupResult
// @Failure      401 {string} string "Authentication required"
// @Failure      403 {string} string "Forbidden - admin role required"
// @Failure      409 {string} string "A sweep is already running"
// @Failure      500 {string} string "サーバーエラー"
// @Router       /cleanup [post]
func (h CleanupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Detached from the request: the sweeper's own timeout bounds the run,
	// not the client or the request timeout.
	res, err := h.Sweeper.Run(context.WithoutCancel(r.Context()))
	if errors.Is(err, reaper.ErrAlreadyRunning) {
		respond.JSON(w, http.StatusConflict, map[string]string{"error": "cleanup already running"})
		return
	}
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

type StatsHandler struct{ Svc Service }

// ServeHTTP 統計情報
// @Summary      Session and content statistics (admin)
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} migUC.Stats
// @Failure      401 {string} string "Authentication required"
// @Failure      403 {string} string "Forbidden - admin role required"
// @Router       /stats [get]
func (h StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.Stats(r.Context())
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}
