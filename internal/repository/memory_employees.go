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

// MemoryEmployeesRepo: 员工的内存实现
type MemoryEmployeesRepo struct {
	mu        sync.RWMutex
	employees map[string]domain.Employee
}

func NewMemoryEmployeesRepo() *MemoryEmployeesRepo {
	return &MemoryEmployeesRepo{employees: map[string]domain.Employee{}}
}

var _ EmployeesRepository = (*MemoryEmployeesRepo)(nil)

func (r *MemoryEmployeesRepo) CreateEmployee(_ context.Context, e *domain.Employee) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.Email != "" {
		for _, cur := range r.employees {
			if cur.Email == e.Email {
				return "", fmt.Errorf("email already exists: %w", domain.ErrConflict)
			}
		}
	}
	if e.EmployeeID == "" {
		e.EmployeeID = uuid.NewString()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	r.employees[e.EmployeeID] = *e
	return e.EmployeeID, nil
}

func (r *MemoryEmployeesRepo) GetEmployee(_ context.Context, employeeID string) (*domain.Employee, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.employees[employeeID]
	if !ok {
		return nil, fmt.Errorf("employee not found: %w", domain.ErrNotFound)
	}
	return &e, nil
}

func (r *MemoryEmployeesRepo) ListEmployees(_ context.Context, filters *EmployeeFilters, page, size int) ([]*domain.Employee, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []domain.Employee{}
	for _, e := range r.employees {
		if filters != nil {
			if filters.Department != "" && e.Department != filters.Department {
				continue
			}
			if filters.Role != "" && e.Role != filters.Role {
				continue
			}
			if filters.ShiftType != "" && e.ShiftType != filters.ShiftType {
				continue
			}
			if filters.ActiveOnly && !e.Active {
				continue
			}
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	total := len(matched)
	items := pageSlice(matched, page, size)
	out := make([]*domain.Employee, 0, len(items))
	for i := range items {
		e := items[i]
		out = append(out, &e)
	}
	return out, total, nil
}

func (r *MemoryEmployeesRepo) UpdateEmployee(_ context.Context, e *domain.Employee) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.employees[e.EmployeeID]
	if !ok {
		return fmt.Errorf("employee not found: %w", domain.ErrNotFound)
	}
	created := cur.CreatedAt
	cur = *e
	cur.CreatedAt = created
	cur.UpdatedAt = time.Now().UTC()
	r.employees[e.EmployeeID] = cur
	return nil
}

func (r *MemoryEmployeesRepo) DeleteEmployee(_ context.Context, employeeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.employees[employeeID]; !ok {
		return fmt.Errorf("employee not found: %w", domain.ErrNotFound)
	}
	delete(r.employees, employeeID)
	return nil
}
