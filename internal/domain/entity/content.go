package entity

import "time"

// FitCheck is an outfit review generated for a user or an anonymous session.
type FitCheck struct {
	ID           string
	Owner        Owner
	Context      string
	Rating       int
	Feedback     string
	CreatedAt    time.Time
	MigratedAt   *time.Time
	MigratedFrom string
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat turn.
type Message struct {
	Role      string    `json:"role" bson:"role"`
	Content   string    `json:"content" bson:"content"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// Conversation is a chat thread owned by a user or an anonymous session.
type Conversation struct {
	ID           string
	Owner        Owner
	Messages     []Message
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MigratedAt   *time.Time
	MigratedFrom string
}

// MigrationRecord is the ledger entry written by a successful migration.
type MigrationRecord struct {
	SessionID          string
	UserID             string
	FitChecksMoved     int
	ConversationsMoved int
	MigratedAt         time.Time
	RolledBackAt       *time.Time
}
