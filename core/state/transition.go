package state

import (
	"sync"

	"cepchain/storage"
)

// Transition is an in-memory write overlay over a Database. Engagement
// operations execute against a transition so that every local write lands
// atomically: Commit flushes the buffered writes to the backing store,
// Discard drops them. A transition that is never committed leaves the
// backing store untouched.
//
// A Transition is safe for use by a single operation at a time; the host is
// expected to serialise conflicting writers, so no cross-transition conflict
// detection happens here.
type Transition struct {
	mu      sync.RWMutex
	backing storage.Database
	writes  map[string][]byte
}

// NewTransition creates an overlay over the provided database.
func NewTransition(backing storage.Database) *Transition {
	return &Transition{
		backing: backing,
		writes:  make(map[string][]byte),
	}
}

// Put buffers a write. Nothing reaches the backing store until Commit.
func (t *Transition) Put(key []byte, value []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes[string(key)] = append([]byte(nil), value...)
	return nil
}

// Get reads through the overlay: buffered writes shadow the backing store.
func (t *Transition) Get(key []byte) ([]byte, error) {
	t.mu.RLock()
	if value, ok := t.writes[string(key)]; ok {
		t.mu.RUnlock()
		return append([]byte(nil), value...), nil
	}
	t.mu.RUnlock()
	return t.backing.Get(key)
}

// Close satisfies storage.Database; it does not close the backing store.
func (t *Transition) Close() {}

// Commit flushes all buffered writes to the backing store and resets the
// overlay. If a flush fails partway the error is returned and the remaining
// writes stay buffered; callers treat that as a fatal host-storage fault.
func (t *Transition) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, value := range t.writes {
		if err := t.backing.Put([]byte(key), value); err != nil {
			return err
		}
		delete(t.writes, key)
	}
	return nil
}

// Discard drops every buffered write.
func (t *Transition) Discard() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes = make(map[string][]byte)
}

// Pending reports the number of buffered writes. Primarily used by tests.
func (t *Transition) Pending() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.writes)
}
