package clients

import (
	"context"
	"slices"
	"sync"
)

// MemoryRepository keeps clients in process memory. It is used when no database is configured.
type MemoryRepository struct {
	mu      sync.RWMutex
	clients map[string]*Client
	order   []string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{clients: make(map[string]*Client)}
}

func (r *MemoryRepository) Create(_ context.Context, c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[c.ID]; !exists {
		r.order = append(r.order, c.ID)
	}
	r.clients[c.ID] = c
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// List returns the user's clients, newest first. An empty userID lists everyone.
func (r *MemoryRepository) List(_ context.Context, userID string) ([]*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Client, 0, len(r.order))
	for _, id := range slices.Backward(r.order) {
		c := r.clients[id]
		if userID != "" && c.UserID != userID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
