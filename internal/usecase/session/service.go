// Package session implements the anonymous session store operations on top
// of a SessionRepository: id generation, clock handling and error mapping.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jules-backend/internal/domain/entity"
	"jules-backend/internal/observability/metrics"
	"jules-backend/internal/repository"
)

// maxGenerateAttempts bounds retries when a generated id collides.
const maxGenerateAttempts = 3

// CreateInput holds the optional fields for Create. An empty SessionID means
// a fresh token is generated.
type CreateInput struct {
	SessionID string
	IPAddress string
	UserAgent string
}

// Service provides anonymous session use cases.
type Service struct {
	Repo repository.SessionRepository

	// Now and NewID default to time.Now and entity.GenerateSessionID.
	Now   func() time.Time
	NewID func() (string, error)
}

// NewService returns a Service using the wall clock and random ids.
func NewService(repo repository.SessionRepository) *Service {
	return &Service{Repo: repo, Now: time.Now, NewID: entity.GenerateSessionID}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) newID() (string, error) {
	if s.NewID == nil {
		return entity.GenerateSessionID()
	}
	return s.NewID()
}

// Create stores a new session with zero usage expiring entity.SessionTTL from
// now. A caller-supplied id that already exists, or was ever migrated, fails
// with entity.ErrDuplicateSession.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.AnonymousSession, error) {
	if in.SessionID != "" {
		sess := entity.NewAnonymousSession(in.SessionID, in.IPAddress, in.UserAgent, s.now())
		if err := s.Repo.Create(ctx, sess); err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		metrics.RecordSessionCreated()
		return sess, nil
	}

	var lastErr error
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		id, err := s.newID()
		if err != nil {
			return nil, err
		}
		sess := entity.NewAnonymousSession(id, in.IPAddress, in.UserAgent, s.now())
		err = s.Repo.Create(ctx, sess)
		if err == nil {
			metrics.RecordSessionCreated()
			return sess, nil
		}
		if !errors.Is(err, entity.ErrDuplicateSession) {
			return nil, fmt.Errorf("create session: %w", err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("create session: %w", lastErr)
}

// Get returns the session regardless of expiry, or entity.ErrSessionNotFound.
func (s *Service) Get(ctx context.Context, sessionID string) (*entity.AnonymousSession, error) {
	if sessionID == "" {
		return nil, entity.ErrSessionNotFound
	}
	sess, err := s.Repo.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, entity.ErrSessionNotFound
	}
	return sess, nil
}

// GetValid is Get plus the expiry check: an expired record yields
// entity.ErrSessionExpired.
func (s *Service) GetValid(ctx context.Context, sessionID string) (*entity.AnonymousSession, error) {
	sess, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.IsExpired(s.now()) {
		return sess, entity.ErrSessionExpired
	}
	return sess, nil
}

// Touch, Delete, DeleteExpired and the Count methods complete the session
// store API for callers outside the HTTP server. The server's sweep and stats
// go through package migration, which deletes content in the same transaction.

// Touch records activity. Absent sessions are ignored.
func (s *Service) Touch(ctx context.Context, sessionID string) error {
	if err := s.Repo.Touch(ctx, sessionID, s.now()); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// IncrementUsage atomically adds one use of feature and returns the new count.
func (s *Service) IncrementUsage(ctx context.Context, sessionID string, feature entity.Feature) (int, error) {
	if !feature.Valid() {
		return 0, fmt.Errorf("%w: %q", entity.ErrUnknownFeature, string(feature))
	}
	n, err := s.Repo.IncrementUsage(ctx, sessionID, feature, s.now())
	if err != nil {
		return 0, fmt.Errorf("increment usage: %w", err)
	}
	metrics.RecordUsageIncrement(string(feature))
	return n, nil
}

// ExtendExpiry sets expiresAt to now plus hours. It reports false when the
// session does not exist.
func (s *Service) ExtendExpiry(ctx context.Context, sessionID string, hours int) (bool, error) {
	if hours <= 0 {
		return false, &entity.ValidationError{Field: "hours", Message: "must be positive"}
	}
	ok, err := s.Repo.ExtendExpiry(ctx, sessionID, s.now().Add(time.Duration(hours)*time.Hour))
	if err != nil {
		return false, fmt.Errorf("extend expiry: %w", err)
	}
	return ok, nil
}

// Delete removes the session. Deleting an absent session is not an error.
func (s *Service) Delete(ctx context.Context, sessionID string) error {
	if err := s.Repo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes every session whose expiresAt is before now.
func (s *Service) DeleteExpired(ctx context.Context) (int64, error) {
	n, err := s.Repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return n, nil
}

func (s *Service) CountActive(ctx context.Context) (int64, error) {
	n, err := s.Repo.CountActive(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("count active sessions: %w", err)
	}
	return n, nil
}

func (s *Service) CountExpired(ctx context.Context) (int64, error) {
	n, err := s.Repo.CountExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("count expired sessions: %w", err)
	}
	return n, nil
}

func (s *Service) CountTotal(ctx context.Context) (int64, error) {
	n, err := s.Repo.CountTotal(ctx)
	if err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}
