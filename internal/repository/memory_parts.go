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

// MemoryPartsRepo: 备件库存的内存实现
type MemoryPartsRepo struct {
	mu    sync.RWMutex
	parts map[string]domain.Part
}

func NewMemoryPartsRepo() *MemoryPartsRepo {
	return &MemoryPartsRepo{parts: map[string]domain.Part{}}
}

var _ PartsRepository = (*MemoryPartsRepo)(nil)

func (r *MemoryPartsRepo) CreatePart(_ context.Context, p *domain.Part) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.PartID == "" {
		p.PartID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.parts[p.PartID] = *p
	return p.PartID, nil
}

func (r *MemoryPartsRepo) GetPart(_ context.Context, partID string) (*domain.Part, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.parts[partID]
	if !ok {
		return nil, fmt.Errorf("part not found: %w", domain.ErrNotFound)
	}
	return &p, nil
}

func (r *MemoryPartsRepo) ListParts(_ context.Context, filters *PartFilters, page, size int) ([]*domain.Part, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []domain.Part{}
	for _, p := range r.parts {
		if filters != nil {
			if filters.Department != "" && p.Department != filters.Department {
				continue
			}
			if filters.Category != "" && p.Category != filters.Category {
				continue
			}
			if filters.LowStock && !p.LowStock() {
				continue
			}
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	total := len(matched)
	items := pageSlice(matched, page, size)
	out := make([]*domain.Part, 0, len(items))
	for i := range items {
		p := items[i]
		out = append(out, &p)
	}
	return out, total, nil
}

func (r *MemoryPartsRepo) UpdatePart(_ context.Context, p *domain.Part) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.parts[p.PartID]
	if !ok {
		return fmt.Errorf("part not found: %w", domain.ErrNotFound)
	}
	// 数量只经过 AdjustQuantity
	qty := cur.Quantity
	created := cur.CreatedAt
	cur = *p
	cur.Quantity = qty
	cur.CreatedAt = created
	cur.UpdatedAt = time.Now().UTC()
	r.parts[p.PartID] = cur
	return nil
}

func (r *MemoryPartsRepo) AdjustQuantity(_ context.Context, partID string, delta int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.parts[partID]
	if !ok {
		return 0, fmt.Errorf("part not found: %w", domain.ErrNotFound)
	}
	if cur.Quantity+delta < 0 {
		return 0, fmt.Errorf("insufficient stock: %w", domain.ErrConflict)
	}
	cur.Quantity += delta
	cur.UpdatedAt = time.Now().UTC()
	r.parts[partID] = cur
	return cur.Quantity, nil
}

func (r *MemoryPartsRepo) DeletePart(_ context.Context, partID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.parts[partID]; !ok {
		return fmt.Errorf("part not found: %w", domain.ErrNotFound)
	}
	delete(r.parts, partID)
	return nil
}
