package entity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// SessionTTL is the fixed lifetime of an anonymous session.
const SessionTTL = 24 * time.Hour

// sessionIDBytes is the number of random bytes behind a session id (64 hex chars).
const sessionIDBytes = 32

// AnonymousSession represents an unauthenticated visitor tracked by an opaque token.
type AnonymousSession struct {
	SessionID      string
	Usage          UsageCounts
	IPAddress      string
	UserAgent      string
	CreatedAt      time.Time
	LastActivityAt time.Time
	ExpiresAt      time.Time
}

// NewAnonymousSession builds a session with zero usage expiring SessionTTL after now.
func NewAnonymousSession(sessionID, ipAddress, userAgent string, now time.Time) *AnonymousSession {
	return &AnonymousSession{
		SessionID:      sessionID,
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(SessionTTL),
	}
}

// IsExpired reports whether the session is dead at the given instant.
// A session is only valid while ExpiresAt is strictly after now.
func (s *AnonymousSession) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// GenerateSessionID returns a new 256-bit random token, hex encoded.
func GenerateSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ShortID returns a log-safe prefix of a session id.
func ShortID(sessionID string) string {
	if len(sessionID) <= 8 {
		return sessionID
	}
	return sessionID[:8] + "..."
}
