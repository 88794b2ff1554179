package lock

import "sync"

// Locker serializes every reconcile and sweep of one user. Relinking touches
// rows of all the user's accounts, so runs for different accounts of the same
// user must not overlap either.
type Locker struct {
	mu    sync.Mutex
	users map[string]*userEntry
}

type userEntry struct {
	mu   sync.Mutex
	refs int
}

// New creates an empty Locker.
func New() *Locker {
	return &Locker{users: make(map[string]*userEntry)}
}

// LockUser blocks until the caller owns userID and returns the release
// function.
func (l *Locker) LockUser(userID string) func() {
	l.mu.Lock()
	u, ok := l.users[userID]
	if !ok {
		u = &userEntry{}
		l.users[userID] = u
	}
	u.refs++
	l.mu.Unlock()

	u.mu.Lock()

	return func() {
		u.mu.Unlock()

		l.mu.Lock()
		u.refs--
		if u.refs == 0 {
			delete(l.users, userID)
		}
		l.mu.Unlock()
	}
}

// Len returns the number of users with live lock entries.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}
