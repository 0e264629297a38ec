package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"cmms-data/internal/domain"

	"github.com/google/uuid"
)

// MemoryTicketsRepo: 工单的内存实现
type MemoryTicketsRepo struct {
	mu      sync.RWMutex
	tickets map[string]domain.Ticket
}

func NewMemoryTicketsRepo() *MemoryTicketsRepo {
	return &MemoryTicketsRepo{tickets: map[string]domain.Ticket{}}
}

var _ TicketsRepository = (*MemoryTicketsRepo)(nil)

func (r *MemoryTicketsRepo) CreateTicket(_ context.Context, t *domain.Ticket) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.TicketID == "" {
		t.TicketID = uuid.NewString()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	r.tickets[t.TicketID] = *t
	return t.TicketID, nil
}

func (r *MemoryTicketsRepo) GetTicket(_ context.Context, ticketID string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tickets[ticketID]
	if !ok {
		return nil, fmt.Errorf("ticket not found: %w", domain.ErrNotFound)
	}
	return &t, nil
}

func (r *MemoryTicketsRepo) ListTickets(_ context.Context, filters *TicketFilters, page, size int) ([]*domain.Ticket, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []domain.Ticket{}
	for _, t := range r.tickets {
		if filters != nil {
			if filters.Department != "" && t.Department != filters.Department {
				continue
			}
			if filters.AssetID != "" && t.AssetID != filters.AssetID {
				continue
			}
			if filters.Status != "" && t.Status != filters.Status {
				continue
			}
			if filters.Priority != "" && t.Priority != filters.Priority {
				continue
			}
			if filters.ReporterID != "" && t.ReporterID != filters.ReporterID {
				continue
			}
			if filters.AssigneeID != "" && t.AssigneeID != filters.AssigneeID {
				continue
			}
		}
		matched = append(matched, t)
	}
	// 最新的在前
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	items := pageSlice(matched, page, size)
	out := make([]*domain.Ticket, 0, len(items))
	for i := range items {
		t := items[i]
		out = append(out, &t)
	}
	return out, total, nil
}

func (r *MemoryTicketsRepo) UpdateTicket(_ context.Context, t *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.tickets[t.TicketID]
	if !ok {
		return fmt.Errorf("ticket not found: %w", domain.ErrNotFound)
	}
	created := cur.CreatedAt
	cur = *t
	cur.CreatedAt = created
	cur.UpdatedAt = time.Now().UTC()
	r.tickets[t.TicketID] = cur
	return nil
}

func (r *MemoryTicketsRepo) DeleteTicket(_ context.Context, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tickets[ticketID]; !ok {
		return fmt.Errorf("ticket not found: %w", domain.ErrNotFound)
	}
	delete(r.tickets, ticketID)
	return nil
}

func (r *MemoryTicketsRepo) Stats(_ context.Context, department string) (*TicketStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &TicketStats{
		ByStatus:   map[string]int{},
		ByPriority: map[string]int{},
	}
	for _, t := range r.tickets {
		if department != "" && t.Department != department {
			continue
		}
		stats.Total++
		stats.ByStatus[string(t.Status)]++
		stats.ByPriority[string(t.Priority)]++
	}
	return stats, nil
}
