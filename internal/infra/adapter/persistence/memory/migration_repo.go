package memory

import (
	"context"
	"time"

	"jules-backend/internal/domain/entity"
)

type MigrationRepo struct{ v *view }

func (r *MigrationRepo) Record(ctx context.Context, rec *entity.MigrationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.v.do(func(st *state) { st.migrations[rec.SessionID] = *rec })
	return nil
}

func (r *MigrationRepo) Get(ctx context.Context, sessionID string) (*entity.MigrationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *entity.MigrationRecord
	r.v.do(func(st *state) {
		if rec, ok := st.migrations[sessionID]; ok {
			out = &rec
		}
	})
	return out, nil
}

func (r *MigrationRepo) MarkRolledBack(ctx context.Context, sessionID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.v.do(func(st *state) {
		if rec, ok := st.migrations[sessionID]; ok {
			rec.RolledBackAt = &at
			st.migrations[sessionID] = rec
		}
	})
	return nil
}
