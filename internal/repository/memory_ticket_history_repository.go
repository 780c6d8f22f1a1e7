package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/reparafacil/repair-service/internal/domain"
)

// MemoryTicketHistoryRepository keeps audit entries in insertion order.
type MemoryTicketHistoryRepository struct {
	mu      sync.RWMutex
	entries map[string][]domain.TicketHistory
}

// NewMemoryTicketHistoryRepository returns an empty in-memory store.
func NewMemoryTicketHistoryRepository() *MemoryTicketHistoryRepository {
	return &MemoryTicketHistoryRepository{entries: make(map[string][]domain.TicketHistory)}
}

func (r *MemoryTicketHistoryRepository) Create(_ context.Context, history *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	history.ID = uuid.NewString()
	r.entries[history.TicketID] = append(r.entries[history.TicketID], *history)
	return nil
}

func (r *MemoryTicketHistoryRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.entries[ticketID]
	result := make([]domain.TicketHistory, len(entries))
	copy(result, entries)
	return result, nil
}
