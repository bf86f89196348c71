package memory

import (
	"context"
	"sort"
	"time"

	"jules-backend/internal/domain/entity"
)

type FitCheckRepo struct{ v *view }

func (r *FitCheckRepo) Create(ctx context.Context, fc *entity.FitCheck) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.v.do(func(st *state) { st.fitChecks[fc.ID] = *fc })
	return nil
}

func (r *FitCheckRepo) Get(ctx context.Context, id string) (*entity.FitCheck, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *entity.FitCheck
	r.v.do(func(st *state) {
		if fc, ok := st.fitChecks[id]; ok {
			out = &fc
		}
	})
	return out, nil
}

func (r *FitCheckRepo) ListByOwner(ctx context.Context, owner entity.Owner) ([]*entity.FitCheck, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]*entity.FitCheck, 0)
	r.v.do(func(st *state) {
		for _, fc := range st.fitChecks {
			if fc.Owner == owner {
				out = append(out, &fc)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *FitCheckRepo) MigrateOwner(ctx context.Context, sessionID, userID string, at time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	from := entity.AnonymousOwner(sessionID)
	r.v.do(func(st *state) {
		for id, fc := range st.fitChecks {
			if fc.Owner != from {
				continue
			}
			fc.Owner = entity.UserOwner(userID)
			fc.MigratedAt = &at
			fc.MigratedFrom = sessionID
			st.fitChecks[id] = fc
			n++
		}
	})
	return n, nil
}

func (r *FitCheckRepo) RestoreOwner(ctx context.Context, userID, sessionID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	owner := entity.UserOwner(userID)
	r.v.do(func(st *state) {
		for id, fc := range st.fitChecks {
			if fc.Owner != owner || fc.MigratedAt == nil || fc.MigratedFrom != sessionID {
				continue
			}
			fc.Owner = entity.AnonymousOwner(sessionID)
			fc.MigratedAt = nil
			fc.MigratedFrom = ""
			st.fitChecks[id] = fc
			n++
		}
	})
	return n, nil
}

func (r *FitCheckRepo) DeleteByOwner(ctx context.Context, owner entity.Owner) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	r.v.do(func(st *state) {
		for id, fc := range st.fitChecks {
			if fc.Owner == owner {
				delete(st.fitChecks, id)
				n++
			}
		}
	})
	return n, nil
}

func (r *FitCheckRepo) CountByOwner(ctx context.Context, owner entity.Owner) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	r.v.do(func(st *state) {
		for _, fc := range st.fitChecks {
			if fc.Owner == owner {
				n++
			}
		}
	})
	return n, nil
}

func (r *FitCheckRepo) CountTotal(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	r.v.do(func(st *state) { n = int64(len(st.fitChecks)) })
	return n, nil
}

type ConversationRepo struct{ v *view }

func (r *ConversationRepo) Create(ctx context.Context, c *entity.Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := *c
	cp.Messages = append([]entity.Message(nil), c.Messages...)
	r.v.do(func(st *state) { st.conversations[c.ID] = cp })
	return nil
}

func (r *ConversationRepo) Get(ctx context.Context, id string) (*entity.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *entity.Conversation
	r.v.do(func(st *state) {
		if c, ok := st.conversations[id]; ok {
			c.Messages = append([]entity.Message(nil), c.Messages...)
			out = &c
		}
	})
	return out, nil
}

func (r *ConversationRepo) ListByOwner(ctx context.Context, owner entity.Owner) ([]*entity.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]*entity.Conversation, 0)
	r.v.do(func(st *state) {
		for _, c := range st.conversations {
			if c.Owner == owner {
				c.Messages = append([]entity.Message(nil), c.Messages...)
				out = append(out, &c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *ConversationRepo) AppendMessages(ctx context.Context, id string, msgs []entity.Message, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var err error
	r.v.do(func(st *state) {
		c, ok := st.conversations[id]
		if !ok {
			err = entity.ErrNotFound
			return
		}
		c.Messages = append(append([]entity.Message(nil), c.Messages...), msgs...)
		c.UpdatedAt = at
		st.conversations[id] = c
	})
	return err
}

func (r *ConversationRepo) MigrateOwner(ctx context.Context, sessionID, userID string, at time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	from := entity.AnonymousOwner(sessionID)
	r.v.do(func(st *state) {
		for id, c := range st.conversations {
			if c.Owner != from {
				continue
			}
			c.Owner = entity.UserOwner(userID)
			c.MigratedAt = &at
			c.MigratedFrom = sessionID
			st.conversations[id] = c
			n++
		}
	})
	return n, nil
}

func (r *ConversationRepo) RestoreOwner(ctx context.Context, userID, sessionID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	owner := entity.UserOwner(userID)
	r.v.do(func(st *state) {
		for id, c := range st.conversations {
			if c.Owner != owner || c.MigratedAt == nil || c.MigratedFrom != sessionID {
				continue
			}
			c.Owner = entity.AnonymousOwner(sessionID)
			c.MigratedAt = nil
			c.MigratedFrom = ""
			st.conversations[id] = c
			n++
		}
	})
	return n, nil
}

func (r *ConversationRepo) DeleteByOwner(ctx context.Context, owner entity.Owner) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	r.v.do(func(st *state) {
		for id, c := range st.conversations {
			if c.Owner == owner {
				delete(st.conversations, id)
				n++
			}
		}
	})
	return n, nil
}

func (r *ConversationRepo) CountByOwner(ctx context.Context, owner entity.Owner) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	r.v.do(func(st *state) {
		for _, c := range st.conversations {
			if c.Owner == owner {
				n++
			}
		}
	})
	return n, nil
}

func (r *ConversationRepo) CountTotal(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var n int64
	r.v.do(func(st *state) { n = int64(len(st.conversations)) })
	return n, nil
}

func (r *FitCheckRepo) ListOrphanedOwners(ctx context.Context, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []string
	r.v.do(func(st *state) {
		owners := make([]entity.Owner, 0, len(st.fitChecks))
		for _, fc := range st.fitChecks {
			owners = append(owners, fc.Owner)
		}
		out = orphanedOwners(st, owners, limit)
	})
	return out, nil
}

func (r *ConversationRepo) ListOrphanedOwners(ctx context.Context, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []string
	r.v.do(func(st *state) {
		owners := make([]entity.Owner, 0, len(st.conversations))
		for _, c := range st.conversations {
			owners = append(owners, c.Owner)
		}
		out = orphanedOwners(st, owners, limit)
	})
	return out, nil
}

// orphanedOwners returns the sorted, distinct anonymous owner ids with no
// session record and no rolled-back migration.
func orphanedOwners(st *state, owners []entity.Owner, limit int) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, o := range owners {
		if !o.IsAnonymous() {
			continue
		}
		if _, ok := seen[o.ID]; ok {
			continue
		}
		seen[o.ID] = struct{}{}
		if _, ok := st.sessions[o.ID]; ok {
			continue
		}
		if rec, ok := st.migrations[o.ID]; ok && rec.RolledBackAt != nil {
			continue
		}
		out = append(out, o.ID)
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
