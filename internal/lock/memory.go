package lock

import (
	"context"
	"sync"
	"time"
)

type lease struct {
	token   uint64
	expires time.Time
}

// MemoryLocker is a single-process Locker.
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]lease
	next   uint64
	now    func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{leases: map[string]lease{}, now: time.Now}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if err := ctx.Err(); err != nil {
		return noop, false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, ok := l.leases[key]; ok && (cur.expires.IsZero() || now.Before(cur.expires)) {
		return noop, false, nil
	}
	l.next++
	it := lease{token: l.next}
	if ttl > 0 {
		it.expires = now.Add(ttl)
	}
	l.leases[key] = it

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if cur, ok := l.leases[key]; ok && cur.token == it.token {
				delete(l.leases, key)
			}
		})
	}
	return release, true, nil
}
