package content

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"jules-backend/internal/domain/entity"
	"jules-backend/internal/handler/http/anonymous"
	"jules-backend/internal/handler/http/auth"
	"jules-backend/internal/handler/http/respond"
	"jules-backend/internal/infra/advisor"
	contentUC "jules-backend/internal/usecase/content"
)

// Service is the content use case surface.
type Service interface {
	CreateFitCheck(ctx context.Context, owner entity.Owner, in contentUC.ReviewInput) (*entity.FitCheck, error)
	ListFitChecks(ctx context.Context, owner entity.Owner) ([]*entity.FitCheck, error)
	ReviewProfilePicture(ctx context.Context, owner entity.Owner, in contentUC.ReviewInput) (*advisor.Review, error)
	StartConversation(ctx context.Context, owner entity.Owner, message string) (*entity.Conversation, error)
	SendMessage(ctx context.Context, owner entity.Owner, conversationID, message string) (*entity.Conversation, error)
	ListConversations(ctx context.Context, owner entity.Owner) ([]*entity.Conversation, error)
}

// ownerOf returns the signed-in user, else the resolved anonymous session.
func ownerOf(r *http.Request) (entity.Owner, bool) {
	if id, ok := auth.FromContext(r.Context()); ok {
		return entity.UserOwner(id.UserID), true
	}
	if sid := anonymous.SessionID(r.Context()); sid != "" {
		return entity.AnonymousOwner(sid), true
	}
	return entity.Owner{}, false
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, advisor.ErrUnavailable) {
		respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"error": "the stylist is unavailable, please try again shortly"})
		return
	}
	respond.DomainError(w, err)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respond.SafeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return false
	}
	return true
}

type CreateFitCheckHandler struct{ Svc Service }

// ServeHTTP コーデ診断
// @Summary      Review an outfit
// @Description  Anonymous visitors get one free fit check per session.
// @Tags         features
// @Accept       json
// @Produce      json
// @Param        X-Anonymous-Session-ID header string false "Session id"
// @Param        body body object true "{\"context\": \"...\", \"imageUrl\": \"https://...\"}"
// @Success      201 {object} FitCheckDTO
// @Header       201 {string} X-Anonymous-Usage "JSON usage breakdown"
// @Failure      400 {object} respond.SessionRequiredBody
// @Failure      429 {object} respond.UsageLimitBody
// @Failure      503 {string} string "Advisor unavailable"
// @Router       /fit-checks [post]
func (h CreateFitCheckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(r)
	if !ok {
		respond.SessionRequired(w, respond.MsgSessionRequired)
		return
	}
	var req reviewRequest
	if !decode(w, r, &req) {
		return
	}
	fc, err := h.Svc.CreateFitCheck(r.Context(), owner, contentUC.ReviewInput{Context: req.Context, ImageURL: req.ImageURL})
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, fitCheckDTO(fc))
}

type ListFitChecksHandler struct{ Svc Service }

// ServeHTTP コーデ診断一覧
// @Summary      List the caller's fit checks
// @Tags         features
// @Produce      json
// @Param        X-Anonymous-Session-ID header string false "Session id"
// @Success      200 {array} FitCheckDTO
// @Failure      400 {object} respond.SessionRequiredBody
// @Router       /fit-checks [get]
func (h ListFitChecksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(r)
	if !ok {
		respond.SessionRequired(w, respond.MsgSessionRequired)
		return
	}
	list, err := h.Svc.ListFitChecks(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]FitCheckDTO, 0, len(list))
	for _, fc := range list {
		out = append(out, fitCheckDTO(fc))
	}
	respond.JSON(w, http.StatusOK, out)
}

type ProfilePicReviewHandler struct{ Svc Service }

// ServeHTTP プロフィール写真診断
// @Summary      Review a profile picture
// @Tags         features
// @Accept       json
// @Produce      json
// @Param        X-Anonymous-Session-ID header string false "Session id"
// @Param        body body object true "{\"context\": \"...\", \"imageUrl\": \"https://...\"}"
// @Success      200 {object} advisor.Review
// @Failure      400 {object} respond.SessionRequiredBody
// @Failure      429 {object} respond.UsageLimitBody
// @Failure      503 {string} string "Advisor unavailable"
// @Router       /profile-pic-reviews [post]
func (h ProfilePicReviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(r)
	if !ok {
		respond.SessionRequired(w, respond.MsgSessionRequired)
		return
	}
	var req reviewRequest
	if !decode(w, r, &req) {
		return
	}
	rv, err := h.Svc.ReviewProfilePicture(r.Context(), owner, contentUC.ReviewInput{Context: req.Context, ImageURL: req.ImageURL})
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, rv)
}

type StartConversationHandler struct{ Svc Service }

// ServeHTTP チャット開始
// @Summary      Start a conversation
// @Description  Each user message counts against the anonymous chat quota.
// @Tags         features
// @Accept       json
// @Produce      json
// @Param        body body object true "{\"message\": \"...\"}"
// @Success      201 {object} ConversationDTO
// @Failure      400 {object} respond.SessionRequiredBody
// @Failure      429 {object} respond.UsageLimitBody
// @Failure      503 {string} string "Advisor unavailable"
// @Router       /conversations [post]
func (h StartConversationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(r)
	if !ok {
		respond.SessionRequired(w, respond.MsgSessionRequired)
		return
	}
	var req messageRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.Svc.StartConversation(r.Context(), owner, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, conversationDTO(c))
}

type SendMessageHandler struct{ Svc Service }

// ServeHTTP メッセージ送信
// @Summary      Send a message in a conversation
// @Tags         features
// @Accept       json
// @Produce      json
// @Param        id path string true "Conversation id"
// @Param        body body object true "{\"message\": \"...\"}"
// @Success      200 {object} ConversationDTO
// @Failure      400 {object} respond.SessionRequiredBody
// @Failure      404 {string} string "Conversation not found"
// @Failure      429 {object} respond.UsageLimitBody
// @Failure      503 {string} string "Advisor unavailable"
// @Router       /conversations/{id}/messages [post]
func (h SendMessageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(r)
	if !ok {
		respond.SessionRequired(w, respond.MsgSessionRequired)
		return
	}
	var req messageRequest
	if !decode(w, r, &req) {
		return
	}
	c, err := h.Svc.SendMessage(r.Context(), owner, r.PathValue("id"), req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, conversationDTO(c))
}

type ListConversationsHandler struct{ Svc Service }

// ServeHTTP チャット一覧
// @Summary      List the caller's conversations
// @Tags         features
// @Produce      json
// @Success      200 {array} ConversationDTO
// @Failure      400 {object} respond.SessionRequiredBody
// @Router       /conversations [get]
func (h ListConversationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerOf(r)
	if !ok {
		respond.SessionRequired(w, respond.MsgSessionRequired)
		return
	}
	list, err := h.Svc.ListConversations(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]ConversationDTO, 0, len(list))
	for _, c := range list {
		out = append(out, conversationDTO(c))
	}
	respond.JSON(w, http.StatusOK, out)
}
