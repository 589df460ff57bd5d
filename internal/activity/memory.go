package activity

import (
	"context"
	"slices"
	"sync"
)

// Memory keeps activity entries in process memory.
type Memory struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

// List returns entries of a user, newest first.
func (m *Memory) List(_ context.Context, userID string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, 0)
	for _, e := range slices.Backward(m.entries) {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}
