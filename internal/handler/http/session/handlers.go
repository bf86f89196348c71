// Package session serves the explicit anonymous session endpoints and the
// admin expiry extension.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"jules-backend/internal/domain/entity"
	"jules-backend/internal/handler/http/anonymous"
	"jules-backend/internal/handler/http/respond"
	"jules-backend/pkg/usagelimit"
)

// DTO is the session view returned to the browser.
type DTO struct {
	SessionID string                                     `json:"sessionId"`
	CreatedAt time.Time                                  `json:"createdAt"`
	ExpiresAt time.Time                                  `json:"expiresAt"`
	Usage     map[entity.Feature]usagelimit.FeatureUsage `json:"usage"`
}

func toDTO(sess *entity.AnonymousSession, policy usagelimit.Policy) DTO {
	return DTO{
		SessionID: sess.SessionID,
		CreatedAt: sess.CreatedAt,
		ExpiresAt: sess.ExpiresAt,
		Usage:     policy.Check(sess.Usage).Usage,
	}
}

// writeSession answers with the resolved session, or SessionRequired when the
// resolver attached none.
func writeSession(w http.ResponseWriter, r *http.Request, policy usagelimit.Policy, code int) {
	sess, ok := anonymous.FromContext(r.Context())
	if !ok {
		respond.SessionRequired(w, respond.MsgSessionRequired)
		return
	}
	out := toDTO(sess, policy)
	w.Header().Set(anonymous.HeaderUsage, usagelimit.EncodeUsage(out.Usage))
	respond.JSON(w, code, out)
}

type CreateHandler struct{ Policy usagelimit.Policy }

// ServeHTTP セッション取得または作成
// @Summary      Resolve or create an anonymous session
// @Description  Adopts the session named by X-Anonymous-Session-ID (or body/query sessionId) when it is still valid, otherwise creates a new one.
// @Tags         anonymous
// @Produce      json
// @Param        X-Anonymous-Session-ID header string false "Existing session id"
// @Success      200 {object} DTO
// @Header       200 {string} X-Anonymous-Session-ID "Resolved session id"
// @Failure      400 {object} respond.SessionRequiredBody "Session could not be resolved"
// @Router       /anonymous/session [post]
func (h CreateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeSession(w, r, h.Policy, http.StatusOK)
}

type GetHandler struct{ Policy usagelimit.Policy }

// ServeHTTP セッション取得
// @Summary      Get the current anonymous session
// @Tags         anonymous
// @Produce      json
// @Param        X-Anonymous-Session-ID header string true "Session id"
// @Success      200 {object} DTO
// @Failure      400 {object} respond.SessionRequiredBody
// @Router       /anonymous/session [get]
func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeSession(w, r, h.Policy, http.StatusOK)
}

// UsageDTO is the quota breakdown of the current session.
type UsageDTO struct {
	SessionID string                                     `json:"sessionId"`
	Usage     map[entity.Feature]usagelimit.FeatureUsage `json:"usage"`
}

type UsageHandler struct{ Policy usagelimit.Policy }

// ServeHTTP 利用状況取得
// @Summary      Remaining free-tier quota
// @Tags         anonymous
// @Produce      json
// @Param        X-Anonymous-Session-ID header string true "Session id"
// @Success      200 {object} UsageDTO
// @Header       200 {string} X-Anonymous-Usage "JSON usage breakdown"
// @Failure      400 {object} respond.SessionRequiredBody
// @Router       /anonymous/usage [get]
func (h UsageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess, ok := anonymous.FromContext(r.Context())
	if !ok {
		respond.SessionRequired(w, respond.MsgSessionRequired)
		return
	}
	usage := h.Policy.Check(sess.Usage).Usage
	w.Header().Set(anonymous.HeaderUsage, usagelimit.EncodeUsage(usage))
	respond.JSON(w, http.StatusOK, UsageDTO{SessionID: sess.SessionID, Usage: usage})
}

// Extender is the part of the session service ExtendHandler needs.
type Extender interface {
	ExtendExpiry(ctx context.Context, sessionID string, hours int) (bool, error)
	Get(ctx context.Context, sessionID string) (*entity.AnonymousSession, error)
}

// maxExtendHours caps a single extension at 30 days.
const maxExtendHours = 720

type ExtendHandler struct {
	Svc    Extender
	Policy usagelimit.Policy
}

// ServeHTTP セッション有効期限延長
// @Summary      Extend a session's expiry (admin)
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path string true "Session id"
// @Param        body body object true "{\"hours\": 24}"
// @Success      200 {object} DTO
// @Failure      400 {string} string "Bad request - invalid hours"
// @Failure      401 {string} string "Authentication required"
// @Failure      403 {string} string "Forbidden - admin role required"
// @Failure      404 {string} string "Session not found"
// @Router       /admin/sessions/{id}/extend [post]
func (h ExtendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		respond.SafeError(w, http.StatusBadRequest, errors.New("session id is required"))
		return
	}

	var req struct {
		Hours int `json:"hours"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return
	}
	if req.Hours <= 0 || req.Hours > maxExtendHours {
		respond.SafeError(w, http.StatusBadRequest, errors.New("hours must be between 1 and 720"))
		return
	}

	ok, err := h.Svc.ExtendExpiry(r.Context(), id, req.Hours)
	if err != nil {
		respond.DomainError(w, err)
		return
	}
	if !ok {
		respond.DomainError(w, entity.ErrSessionNotFound)
		return
	}

	sess, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		respond.DomainError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, toDTO(sess, h.Policy))
}
