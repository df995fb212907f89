package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/dmdash/internal/domain/signin"
	"github.com/google/uuid"
)

// SigninsRepo keeps sign-in history in process memory. Used when no
// database is configured.
type SigninsRepo struct {
	mu    sync.RWMutex
	items []signin.Entry
	max   int
}

func NewSigninsRepo(max int) *SigninsRepo {
	if max <= 0 {
		max = 500
	}
	return &SigninsRepo{max: max}
}

func (r *SigninsRepo) Record(ctx context.Context, e signin.Entry) (signin.Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	r.items = append(r.items, e)
	if len(r.items) > r.max {
		r.items = r.items[len(r.items)-r.max:]
	}
	r.mu.Unlock()

	return e, nil
}

func (r *SigninsRepo) Recent(ctx context.Context, limit int) ([]signin.Entry, error) {
	r.mu.RLock()
	out := make([]signin.Entry, len(r.items))
	copy(out, r.items)
	r.mu.RUnlock()

	// newest first
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
