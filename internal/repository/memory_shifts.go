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

// MemoryShiftsRepo: 排班明细的内存实现
type MemoryShiftsRepo struct {
	mu     sync.RWMutex
	shifts map[string]domain.ShiftDetail
}

func NewMemoryShiftsRepo() *MemoryShiftsRepo {
	return &MemoryShiftsRepo{shifts: map[string]domain.ShiftDetail{}}
}

var _ ShiftsRepository = (*MemoryShiftsRepo)(nil)

func (r *MemoryShiftsRepo) CreateShift(_ context.Context, s *domain.ShiftDetail) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.ShiftID == "" {
		s.ShiftID = uuid.NewString()
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	r.shifts[s.ShiftID] = *s
	return s.ShiftID, nil
}

func (r *MemoryShiftsRepo) GetShift(_ context.Context, shiftID string) (*domain.ShiftDetail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.shifts[shiftID]
	if !ok {
		return nil, fmt.Errorf("shift not found: %w", domain.ErrNotFound)
	}
	return &s, nil
}

func (r *MemoryShiftsRepo) ListShifts(_ context.Context, filters *ShiftFilters, page, size int) ([]*domain.ShiftDetail, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []domain.ShiftDetail{}
	for _, s := range r.shifts {
		if filters != nil {
			if filters.Department != "" && s.Department != filters.Department {
				continue
			}
			if filters.EmployeeID != "" && s.EmployeeID != filters.EmployeeID {
				continue
			}
			if filters.ShiftType != "" && s.ShiftType != filters.ShiftType {
				continue
			}
		}
		matched = append(matched, s)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].EmployeeName < matched[j].EmployeeName })

	total := len(matched)
	items := pageSlice(matched, page, size)
	out := make([]*domain.ShiftDetail, 0, len(items))
	for i := range items {
		s := items[i]
		out = append(out, &s)
	}
	return out, total, nil
}

func (r *MemoryShiftsRepo) UpdateShift(_ context.Context, s *domain.ShiftDetail) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.shifts[s.ShiftID]
	if !ok {
		return fmt.Errorf("shift not found: %w", domain.ErrNotFound)
	}
	created := cur.CreatedAt
	cur = *s
	cur.CreatedAt = created
	cur.UpdatedAt = time.Now().UTC()
	r.shifts[s.ShiftID] = cur
	return nil
}

func (r *MemoryShiftsRepo) DeleteShift(_ context.Context, shiftID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.shifts[shiftID]; !ok {
		return fmt.Errorf("shift not found: %w", domain.ErrNotFound)
	}
	delete(r.shifts, shiftID)
	return nil
}
