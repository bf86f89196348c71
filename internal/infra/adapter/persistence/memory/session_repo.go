package memory

import (
	"context"
	"sort"
	"time"

	"jules-backend/internal/domain/entity"
)

type SessionRepo struct{ v *view }

func (r *SessionRepo) Create(ctx context.Context, s *entity.AnonymousSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var err error
	r.v.do(func(st *state) {
		if _, ok := st.sessions[s.SessionID]; ok {
			err = entity.ErrDuplicateSession
			return
		}
		if _, ok := st.migrations[s.SessionID]; ok {
			err = entity.ErrDuplicateSession
			return
		}
		st.sessions[s.SessionID] = *s
	})
	return err
}

func (r *SessionRepo) Get(ctx context.Context, sessionID string) (*entity.AnonymousSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *entity.AnonymousSession
	r.v.do(func(st *state) {
		if s, ok := st.sessions[sessionID]; ok {
			out = &s
		}
	})
	return out, nil
}

// GetForUpdate is Get; transactions already hold the store lock.
func (r *SessionRepo) GetForUpdate(ctx context.Context, sessionID string) (*entity.AnonymousSession, error) {
	return r.Get(ctx, sessionID)
}

func (r *SessionRepo) Touch(ctx context.Context, sessionID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.v.do(func(st *state) {
		if s, ok := st.sessions[sessionID]; ok {
			s.LastActivityAt = at
			st.sessions[sessionID] = s
		}
	})
	return nil
}

func (r *SessionRepo) IncrementUsage(ctx context.Context, sessionID string, feature entity.Feature, at time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var (
		n   int
		err error
	)
	r.v.do(func(st *state) {
		s, ok := st.sessions[sessionID]
		if !ok {
			err = entity.ErrSessionNotFound
			return
		}
		n, err = s.Usage.Increment(feature)
		if err != nil {
			return
		}
		s.LastActivityAt = at
		st.sessions[sessionID] = s
	})
	return n, err
}

func (r *SessionRepo) ExtendExpiry(ctx context.Context, sessionID string, expiresAt time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var found bool
	r.v.do(func(st *state) {
		s, ok := st.sessions[sessionID]
		if !ok {
			return
		}
		s.ExpiresAt = expiresAt
		st.sessions[sessionID] = s
		found = true
	})
	return found, nil
}

func (r *SessionRepo) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.v.do(func(st *state) { delete(st.sessions, sessionID) })
	return nil
}

func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	r.v.do(func(st *state) {
		for id, s := range st.sessions {
			if s.ExpiresAt.Before(now) {
				delete(st.sessions, id)
				n++
			}
		}
	})
	return n, nil
}

func (r *SessionRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var expired []entity.AnonymousSession
	r.v.do(func(st *state) {
		for _, s := range st.sessions {
			if s.ExpiresAt.Before(now) {
				expired = append(expired, s)
			}
		}
	})
	sort.Slice(expired, func(i, j int) bool {
		if expired[i].ExpiresAt.Equal(expired[j].ExpiresAt) {
			return expired[i].SessionID < expired[j].SessionID
		}
		return expired[i].ExpiresAt.Before(expired[j].ExpiresAt)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	ids := make([]string, 0, len(expired))
	for _, s := range expired {
		ids = append(ids, s.SessionID)
	}
	return ids, nil
}

func (r *SessionRepo) CountActive(ctx context.Context, now time.Time) (int64, error) {
	return r.count(ctx, func(s entity.AnonymousSession) bool { return !s.IsExpired(now) })
}

func (r *SessionRepo) CountExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.count(ctx, func(s entity.AnonymousSession) bool { return s.IsExpired(now) })
}

func (r *SessionRepo) CountTotal(ctx context.Context) (int64, error) {
	return r.count(ctx, func(entity.AnonymousSession) bool { return true })
}

func (r *SessionRepo) count(ctx context.Context, match func(entity.AnonymousSession) bool) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	r.v.do(func(st *state) {
		for _, s := range st.sessions {
			if match(s) {
				n++
			}
		}
	})
	return n, nil
}
