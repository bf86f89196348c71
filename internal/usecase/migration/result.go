package migration

import (
	"time"

	"jules-backend/internal/domain/entity"
)

// PreviewFitCheck is the subset of a fit check shown before migration.
type PreviewFitCheck struct {
	ID        string    `json:"id"`
	Context   string    `json:"context"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
}

// PreviewConversation is the subset of a conversation shown before migration.
type PreviewConversation struct {
	ID        string           `json:"id"`
	Messages  []entity.Message `json:"messages"`
	CreatedAt time.Time        `json:"createdAt"`
}

// PreviewResult lists what a migration of the session would transfer.
type PreviewResult struct {
	SessionID      string                `json:"sessionId"`
	CreatedAt      time.Time             `json:"createdAt"`
	LastActivityAt time.Time             `json:"lastActivityAt"`
	ExpiresAt      time.Time             `json:"expiresAt"`
	Usage          entity.UsageCounts    `json:"usageCounts"`
	FitChecks      []PreviewFitCheck     `json:"fitChecks"`
	Conversations  []PreviewConversation `json:"conversations"`
}

// MigrationResult reports a completed migration. AlreadyMigrated is set when
// a retry found the ledger entry of an earlier successful call; the counts are
// then those recorded by that call.
type MigrationResult struct {
	SessionID          string    `json:"sessionId"`
	UserID             string    `json:"userId"`
	FitChecksMoved     int       `json:"fitChecksMoved"`
	ConversationsMoved int       `json:"conversationsMoved"`
	MigratedAt         time.Time `json:"migratedAt"`
	AlreadyMigrated    bool      `json:"alreadyMigrated"`
	Errors             []string  `json:"errors"`
}

// RollbackResult reports how many records were handed back to the session.
type RollbackResult struct {
	SessionID          string `json:"sessionId"`
	UserID             string `json:"userId"`
	FitChecksMoved     int    `json:"fitChecksMoved"`
	ConversationsMoved int    `json:"conversationsMoved"`
}

// CleanupResult summarizes one expired-session sweep. SessionsFailed counts
// sessions whose deletion unit failed; they are retried by the next sweep.
// OrphansDeleted counts deleted session ids whose content outlived the
// session record; their content is included in the content totals.
type CleanupResult struct {
	SessionsDeleted      int      `json:"sessionsDeleted"`
	FitChecksDeleted     int      `json:"fitChecksDeleted"`
	ConversationsDeleted int      `json:"conversationsDeleted"`
	OrphansDeleted       int      `json:"orphansDeleted"`
	SessionsFailed       int      `json:"sessionsFailed"`
	Errors               []string `json:"errors,omitempty"`
}

// Stats is the diagnostic aggregate behind GET /stats.
type Stats struct {
	ActiveAnonymousSessions int64 `json:"activeAnonymousSessions"`
	ExpiredSessions         int64 `json:"expiredSessions"`
	TotalFitChecks          int64 `json:"totalFitChecks"`
	TotalConversations      int64 `json:"totalConversations"`
}
