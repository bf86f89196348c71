// Package memory provides an in-process implementation of the repository
// ports. Transactions run against a private copy of the data which replaces
// the shared state on commit, so writes inside a failed transaction are never
// observed. It is used for local development and tests.
package memory

import (
	"context"
	"sync"

	"jules-backend/internal/domain/entity"
	"jules-backend/internal/repository"
)

type state struct {
	sessions      map[string]entity.AnonymousSession
	fitChecks     map[string]entity.FitCheck
	conversations map[string]entity.Conversation
	migrations    map[string]entity.MigrationRecord
}

func newState() *state {
	return &state{
		sessions:      make(map[string]entity.AnonymousSession),
		fitChecks:     make(map[string]entity.FitCheck),
		conversations: make(map[string]entity.Conversation),
		migrations:    make(map[string]entity.MigrationRecord),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.fitChecks {
		c.fitChecks[k] = v
	}
	for k, v := range s.conversations {
		v.Messages = append([]entity.Message(nil), v.Messages...)
		c.conversations[k] = v
	}
	for k, v := range s.migrations {
		c.migrations[k] = v
	}
	return c
}

// Store holds all data behind a single lock.
type Store struct {
	mu sync.Mutex
	st *state
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{st: newState()}
}

// Repositories returns repositories that operate directly on the shared state.
func (s *Store) Repositories() repository.Repositories {
	return (&view{mu: &s.mu, root: func() *state { return s.st }}).repositories()
}

// WithinTx runs fn against a copy of the data and publishes the copy only when
// fn succeeds. Other callers block until the transaction finishes.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	tx := &view{mu: &sync.Mutex{}, root: func() *state { return work }}
	if err := fn(ctx, tx.repositories()); err != nil {
		return err
	}
	s.st = work
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

type view struct {
	mu   sync.Locker
	root func() *state
}

func (v *view) do(fn func(st *state)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn(v.root())
}

func (v *view) repositories() repository.Repositories {
	return repository.Repositories{
		Sessions:      &SessionRepo{v: v},
		FitChecks:     &FitCheckRepo{v: v},
		Conversations: &ConversationRepo{v: v},
		Migrations:    &MigrationRepo{v: v},
	}
}
