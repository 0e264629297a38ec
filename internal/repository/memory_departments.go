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

// MemoryDepartmentsRepo: 部门的内存实现
type MemoryDepartmentsRepo struct {
	mu          sync.RWMutex
	departments map[string]domain.Department
}

func NewMemoryDepartmentsRepo() *MemoryDepartmentsRepo {
	return &MemoryDepartmentsRepo{departments: map[string]domain.Department{}}
}

var _ DepartmentsRepository = (*MemoryDepartmentsRepo)(nil)

func (r *MemoryDepartmentsRepo) CreateDepartment(_ context.Context, d *domain.Department) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cur := range r.departments {
		if cur.Name == d.Name {
			return "", fmt.Errorf("department name already exists: %w", domain.ErrConflict)
		}
	}
	if d.DepartmentID == "" {
		d.DepartmentID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	r.departments[d.DepartmentID] = *d
	return d.DepartmentID, nil
}

func (r *MemoryDepartmentsRepo) GetDepartment(_ context.Context, departmentID string) (*domain.Department, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.departments[departmentID]
	if !ok {
		return nil, fmt.Errorf("department not found: %w", domain.ErrNotFound)
	}
	return &d, nil
}

func (r *MemoryDepartmentsRepo) ListDepartments(_ context.Context, activeOnly bool, page, size int) ([]*domain.Department, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []domain.Department{}
	for _, d := range r.departments {
		if activeOnly && !d.Active {
			continue
		}
		matched = append(matched, d)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	total := len(matched)
	items := pageSlice(matched, page, size)
	out := make([]*domain.Department, 0, len(items))
	for i := range items {
		d := items[i]
		out = append(out, &d)
	}
	return out, total, nil
}

func (r *MemoryDepartmentsRepo) UpdateDepartment(_ context.Context, d *domain.Department) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.departments[d.DepartmentID]
	if !ok {
		return fmt.Errorf("department not found: %w", domain.ErrNotFound)
	}
	created := cur.CreatedAt
	cur = *d
	cur.CreatedAt = created
	cur.UpdatedAt = time.Now().UTC()
	r.departments[d.DepartmentID] = cur
	return nil
}

func (r *MemoryDepartmentsRepo) DeleteDepartment(_ context.Context, departmentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.departments[departmentID]; !ok {
		return fmt.Errorf("department not found: %w", domain.ErrNotFound)
	}
	delete(r.departments, departmentID)
	return nil
}
