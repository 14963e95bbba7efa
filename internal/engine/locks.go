package engine

import "sync"

// lockTable hands out one mutex per (user, pool) pair so pulls for the
// same pair serialize while everything else runs in parallel. Entries are
// never removed; the table is bounded by active user/pool combinations.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the pair's mutex and returns it for the caller to unlock.
func (t *lockTable) acquire(userID, poolID string) *sync.Mutex {
	key := userID + "\x00" + poolID

	t.mu.Lock()
	m, ok := t.locks[key]
	if !ok {
		m = &sync.Mutex{}
		t.locks[key] = m
	}
	t.mu.Unlock()

	m.Lock()
	return m
}
