package http

import (
	"errors"
	"net/http"

	"jules-backend/internal/handler/http/anonymous"
	"jules-backend/internal/handler/http/respond"
)

const (
	maxAuthHeaderBytes    = 8 << 10
	maxSessionHeaderBytes = 256
	maxPathBytes          = 2 << 10
)

// InputValidation rejects oversized credentials and paths before any
// session lookup happens, then caps the body at maxBody bytes.
func InputValidation(maxBody int64) func(http.Handler) http.Handler {
	limit := LimitRequestBody(maxBody)
	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch {
			case len(r.Header.Get("Authorization")) > maxAuthHeaderBytes:
				respond.Error(w, http.StatusBadRequest, errors.New("authorization header too large"))
			case len(r.Header.Get(anonymous.HeaderSessionID)) > maxSessionHeaderBytes:
				respond.Error(w, http.StatusBadRequest, errors.New("session header too large"))
			case len(r.URL.Path) > maxPathBytes:
				respond.Error(w, http.StatusRequestURITooLong, errors.New("URI too long"))
			default:
				limited.ServeHTTP(w, r)
			}
		})
	}
}
