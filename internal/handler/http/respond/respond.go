// Package respond writes JSON responses and maps domain errors to the error
// shapes clients rely on. Internal error details are logged, sanitized, and
// never sent to the client.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"jules-backend/internal/domain/entity"
	"jules-backend/pkg/usagelimit"
)

// Error kinds carried in the errorKind field.
const (
	KindUsageLimitReached = "UsageLimitReached"
	KindSessionRequired   = "SessionRequired"
)

// Messages shown when the client must refresh to obtain a session.
const (
	MsgSessionRequired = "An anonymous session is required. Please refresh the page and try again."
	MsgSessionExpired  = "Your session has expired. Please refresh the page to start a new one."
)

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// headers are already sent
		slog.Default().Error("failed to encode JSON response",
			slog.Int("status_code", code),
			slog.Any("error", err))
	}
}

// Error writes {"error": err.Error()} without filtering.
func Error(w http.ResponseWriter, code int, err error) {
	JSON(w, code, map[string]string{"error": err.Error()})
}

var safeFragments = []string{
	"required",
	"invalid",
	"not found",
	"already exists",
	"must be",
	"cannot be",
	"unknown feature",
}

// SafeError returns validation-like messages as-is and replaces everything
// else, and every 5xx, with "internal server error".
func SafeError(w http.ResponseWriter, code int, err error) {
	if err == nil {
		return
	}
	msg := err.Error()
	safe := false
	if code < 500 {
		lower := strings.ToLower(msg)
		for _, frag := range safeFragments {
			if strings.Contains(lower, frag) {
				safe = true
				break
			}
		}
	}
	if safe {
		JSON(w, code, map[string]string{"error": msg})
		return
	}
	slog.Default().Error("internal server error",
		slog.String("status", http.StatusText(code)),
		slog.Int("code", code),
		slog.String("error", SanitizeError(err)))
	JSON(w, code, map[string]string{"error": "internal server error"})
}

// UsageLimitBody is the 429 body.
type UsageLimitBody struct {
	ErrorKind       string `json:"errorKind"`
	LimitType       string `json:"limitType"`
	CurrentUsage    int    `json:"currentUsage"`
	Limit           int    `json:"limit"`
	RemainingUsage  int    `json:"remainingUsage"`
	UpgradeRequired bool   `json:"upgradeRequired"`
	Message         string `json:"message"`
}

// UsageLimitReached writes the 429 quota denial.
func UsageLimitReached(w http.ResponseWriter, e *usagelimit.UsageLimitReachedError) {
	JSON(w, http.StatusTooManyRequests, UsageLimitBody{
		ErrorKind:       KindUsageLimitReached,
		LimitType:       string(e.Feature),
		CurrentUsage:    e.Current,
		Limit:           e.Limit,
		RemainingUsage:  0,
		UpgradeRequired: true,
		Message:         e.Message,
	})
}

// SessionRequiredBody is the 400 body for routes that need a session.
type SessionRequiredBody struct {
	ErrorKind string `json:"errorKind"`
	Message   string `json:"message"`
}

func SessionRequired(w http.ResponseWriter, message string) {
	JSON(w, http.StatusBadRequest, SessionRequiredBody{ErrorKind: KindSessionRequired, Message: message})
}

// MigrationErrorBody is the 500 body of a failed migrate or rollback.
type MigrationErrorBody struct {
	Error  string   `json:"error"`
	Errors []string `json:"errors"`
}

// DomainError maps the error taxonomy to status codes and bodies. Errors it
// does not recognise are written as 500 through SafeError.
func DomainError(w http.ResponseWriter, err error) {
	var limitErr *usagelimit.UsageLimitReachedError
	var migErr *entity.MigrationError
	var valErr *entity.ValidationError

	switch {
	case errors.As(err, &limitErr):
		UsageLimitReached(w, limitErr)
	case errors.Is(err, entity.ErrSessionRequired):
		SessionRequired(w, MsgSessionRequired)
	case errors.Is(err, entity.ErrSessionExpired):
		SessionRequired(w, MsgSessionExpired)
	case errors.As(err, &migErr):
		slog.Default().Error("migration failed",
			slog.String("op", migErr.Op),
			slog.String("error", SanitizeError(migErr)))
		errs := make([]string, 0, len(migErr.Errors))
		for _, e := range migErr.Errors {
			errs = append(errs, SanitizeMessage(e))
		}
		JSON(w, http.StatusInternalServerError, MigrationErrorBody{Error: migErr.Op + " failed", Errors: errs})
	case errors.As(err, &valErr):
		JSON(w, http.StatusBadRequest, map[string]string{"error": valErr.Error()})
	case errors.Is(err, entity.ErrUnknownFeature), errors.Is(err, entity.ErrInvalidInput):
		SafeError(w, http.StatusBadRequest, err)
	case errors.Is(err, entity.ErrSessionNotFound):
		JSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	case errors.Is(err, entity.ErrNotFound):
		JSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, entity.ErrDuplicateSession):
		JSON(w, http.StatusConflict, map[string]string{"error": "session already exists"})
	default:
		SafeError(w, http.StatusInternalServerError, err)
	}
}
