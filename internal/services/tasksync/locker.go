package tasksync

import (
	"context"
	"sync"
)

// LocalLocker serializes work per domain inside one process. Entries are
// reference counted so idle domains do not accumulate.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*lockEntry)}
}

// LockDomain blocks until the domain is free or ctx is done.
func (l *LocalLocker) LockDomain(ctx context.Context, registrable string) (func(), error) {
	l.mu.Lock()
	e, ok := l.locks[registrable]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		l.locks[registrable] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(registrable, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.release(registrable, e)
		})
	}, nil
}

func (l *LocalLocker) release(registrable string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, registrable)
	}
}
