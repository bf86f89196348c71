package repository

import "context"

// Repositories bundles the stores that take part in a unit of work.
type Repositories struct {
	Sessions      SessionRepository
	FitChecks     FitCheckRepository
	Conversations ConversationRepository
	Migrations    MigrationRepository
}

// Transactor runs fn inside a storage transaction. Every write made through
// the Repositories passed to fn commits together when fn returns nil and is
// discarded when fn returns an error.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
