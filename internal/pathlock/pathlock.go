// Package pathlock serializes mutations on overlapping folder subtrees.
//
// Two lock sets conflict when any path in one equals, contains or is
// contained by a path in the other. Paths are compared case-insensitively
// so that case variants on case-insensitive filesystems serialize too.
package pathlock

import (
	"context"
	"strings"
	"sync"

	"github.com/starford/vaultfold/internal/vaultpath"
)

// Locker hands out advisory locks keyed by vault path.
type Locker struct {
	mu   sync.Mutex
	held map[uint64][]string
	next uint64
	wake chan struct{}
}

// New returns an empty Locker.
func New() *Locker {
	return &Locker{held: make(map[uint64][]string), wake: make(chan struct{})}
}

// Lock blocks until none of paths overlaps a held lock, or ctx is done. The
// returned function releases the lock and is safe to call more than once.
func (l *Locker) Lock(ctx context.Context, paths ...vaultpath.Path) (func(), error) {
	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = strings.ToLower(p.Rel())
	}

	for {
		l.mu.Lock()
		if !l.conflicts(keys) {
			id := l.next
			l.next++
			l.held[id] = keys
			l.mu.Unlock()

			var once sync.Once
			return func() { once.Do(func() { l.release(id) }) }, nil
		}
		wait := l.wake
		l.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Held returns the number of locks currently held.
func (l *Locker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}

func (l *Locker) release(id uint64) {
	l.mu.Lock()
	delete(l.held, id)
	close(l.wake)
	l.wake = make(chan struct{})
	l.mu.Unlock()
}

func (l *Locker) conflicts(keys []string) bool {
	for _, held := range l.held {
		for _, h := range held {
			for _, k := range keys {
				if overlaps(h, k) {
					return true
				}
			}
		}
	}
	return false
}

func overlaps(a, b string) bool {
	if a == "" || b == "" || a == b {
		return true
	}
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}
