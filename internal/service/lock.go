package service

import (
	"context"
	"sync"
	"time"

	"github.com/adisyon/api/internal/ledger"
	"github.com/google/uuid"
)

// lockTable hands out one mutex per order id. Entries are refcounted and
// dropped once nobody holds or waits on them, so the table only grows with
// the number of orders being mutated right now.
type lockTable struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*lockEntry
	timeout time.Duration
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

func newLockTable(timeout time.Duration) *lockTable {
	return &lockTable{
		entries: make(map[uuid.UUID]*lockEntry),
		timeout: timeout,
	}
}

// acquire blocks until the order's lock is held, ctx is done, or the
// table's timeout elapses. The returned func releases the lock.
func (l *lockTable) acquire(ctx context.Context, id uuid.UUID) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[id]
	if !ok {
		e = &lockEntry{sem: make(chan struct{}, 1)}
		l.entries[id] = e
	}
	e.refs++
	l.mu.Unlock()

	var timeout <-chan time.Time
	if l.timeout > 0 {
		t := time.NewTimer(l.timeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case e.sem <- struct{}{}:
		return func() {
			<-e.sem
			l.drop(id, e)
		}, nil
	case <-ctx.Done():
		l.drop(id, e)
		return nil, ctx.Err()
	case <-timeout:
		l.drop(id, e)
		return nil, ledger.ErrConcurrentModification
	}
}

func (l *lockTable) drop(id uuid.UUID, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, id)
	}
}

// size reports how many orders currently have holders or waiters.
func (l *lockTable) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
