package postgres

import (
	"context"
	"time"

	"github.com/geocoder89/dmdash/internal/domain/signin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBObserver times a logical DB operation. observability.Prom satisfies it.
type DBObserver interface {
	ObserveDB(op string, fn func() error) error
}

type SigninsRepo struct {
	pool *pgxpool.Pool
	obs  DBObserver
}

func NewSigninsRepo(pool *pgxpool.Pool, obs DBObserver) *SigninsRepo {
	return &SigninsRepo{pool: pool, obs: obs}
}

func (r *SigninsRepo) observe(op string, fn func() error) error {
	if r.obs == nil {
		return fn()
	}
	return r.obs.ObserveDB(op, fn)
}

func (r *SigninsRepo) Record(ctx context.Context, e signin.Entry) (signin.Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	err := r.observe("signins.record", func() error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO signins (id, token, display_name, phone_hash, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, e.ID, e.Token, e.DisplayName, e.PhoneHash, e.CreatedAt)
		return err
	})
	if err != nil {
		return signin.Entry{}, err
	}

	return e, nil
}

func (r *SigninsRepo) Recent(ctx context.Context, limit int) ([]signin.Entry, error) {
	if limit <= 0 {
		limit = 5
	}

	var out []signin.Entry

	err := r.observe("signins.recent", func() error {
		rows, err := r.pool.Query(ctx, `
			SELECT id, token, display_name, phone_hash, created_at
			FROM signins
			ORDER BY created_at DESC, id DESC
			LIMIT $1
		`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var e signin.Entry
			if err := rows.Scan(&e.ID, &e.Token, &e.DisplayName, &e.PhoneHash, &e.CreatedAt); err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
