package redisclient

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// LocalLocker is a process-local Locker for runs without Redis (memory
// repository mode, tests). It serializes per appointment id within a single
// process only. Entries are reference counted and dropped when the last
// holder releases, so the map does not retain every id ever locked.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*localLock
}

type localLock struct {
	mu   sync.Mutex
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[uuid.UUID]*localLock)}
}

func (l *LocalLocker) WithAppointmentLock(ctx context.Context, appointmentID uuid.UUID, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	entry, ok := l.locks[appointmentID]
	if !ok {
		entry = &localLock{}
		l.locks[appointmentID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, appointmentID)
		}
		l.mu.Unlock()
	}()

	return fn(ctx)
}
