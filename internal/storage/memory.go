package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryProvider keeps local storage in process memory with a TTL per item.
type MemoryProvider struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]entry
	now func() time.Time
}

type entry struct {
	val string
	exp time.Time
}

func NewMemoryProvider(ttl time.Duration) *MemoryProvider {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	return &MemoryProvider{
		ttl: ttl,
		m:   make(map[string]entry),
		now: time.Now,
	}
}

func (p *MemoryProvider) Name() string { return "memory" }

func (p *MemoryProvider) Open(_ CookieJar, device string) LocalStorage {
	return &keyed{
		backend: p.Name(),
		device:  device,
		get:     p.get,
		set:     p.set,
		del:     p.del,
	}
}

func (p *MemoryProvider) get(ctx context.Context, key string) (string, bool, error) {
	now := p.now()
	p.mu.RLock()
	e, ok := p.m[key]
	p.mu.RUnlock()
	if !ok {
		return "", false, nil
	}

	if now.After(e.exp) {
		p.mu.Lock()
		// a set may have replaced the entry since the read
		if cur, ok := p.m[key]; ok && now.After(cur.exp) {
			delete(p.m, key)
		}
		p.mu.Unlock()
		return "", false, nil
	}

	return e.val, true, nil
}

func (p *MemoryProvider) set(ctx context.Context, key, val string) error {
	p.mu.Lock()
	p.m[key] = entry{val: val, exp: p.now().Add(p.ttl)}
	p.mu.Unlock()
	return nil
}

func (p *MemoryProvider) del(ctx context.Context, key string) error {
	p.mu.Lock()
	delete(p.m, key)
	p.mu.Unlock()
	return nil
}

// Sweep drops expired items and returns how many were removed.
func (p *MemoryProvider) Sweep() int {
	now := p.now()
	removed := 0

	p.mu.Lock()
	for k, e := range p.m {
		if now.After(e.exp) {
			delete(p.m, k)
			removed++
		}
	}
	p.mu.Unlock()

	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (p *MemoryProvider) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.Sweep()
		}
	}
}
