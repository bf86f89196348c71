package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"jules-backend/internal/repository"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewRepositories returns repositories bound to the connection pool.
func NewRepositories(db *sql.DB) repository.Repositories {
	return repositoriesFor(db)
}

func repositoriesFor(q querier) repository.Repositories {
	return repository.Repositories{
		Sessions:      &SessionRepo{db: q},
		FitChecks:     &FitCheckRepo{db: q},
		Conversations: &ConversationRepo{db: q},
		Migrations:    &MigrationRepo{db: q},
	}
}

// TxManager implements repository.Transactor with database/sql transactions.
type TxManager struct{ db *sql.DB }

func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) (err error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("WithinTx: BeginTx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, repositoriesFor(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("WithinTx: Rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("WithinTx: Commit: %w", err)
	}
	return nil
}
