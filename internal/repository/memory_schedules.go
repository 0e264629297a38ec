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

// MemorySchedulesRepo: 用于 DB 未就绪时的联测和单元测试
// - IDs 使用 uuid
// - 语义与 Postgres 实现保持一致（AdvanceSchedule 只写周期字段）
type MemorySchedulesRepo struct {
	mu        sync.RWMutex
	schedules map[string]domain.Schedule
}

func NewMemorySchedulesRepo() *MemorySchedulesRepo {
	return &MemorySchedulesRepo{schedules: map[string]domain.Schedule{}}
}

var _ SchedulesRepository = (*MemorySchedulesRepo)(nil)

func (r *MemorySchedulesRepo) CreateSchedule(_ context.Context, s *domain.Schedule) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.ScheduleID == "" {
		s.ScheduleID = uuid.NewString()
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	r.schedules[s.ScheduleID] = *s
	return s.ScheduleID, nil
}

func (r *MemorySchedulesRepo) GetSchedule(_ context.Context, scheduleID string) (*domain.Schedule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.schedules[scheduleID]
	if !ok {
		return nil, fmt.Errorf("schedule not found: %w", domain.ErrNotFound)
	}
	return &s, nil
}

func (r *MemorySchedulesRepo) ListSchedules(_ context.Context, filters *ScheduleFilters, page, size int) ([]*domain.Schedule, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []domain.Schedule{}
	for _, s := range r.schedules {
		if !matchSchedule(&s, filters) {
			continue
		}
		matched = append(matched, s)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].NextDueDate.Before(matched[j].NextDueDate)
	})

	total := len(matched)
	items := pageSlice(matched, page, size)
	out := make([]*domain.Schedule, 0, len(items))
	for i := range items {
		s := items[i]
		out = append(out, &s)
	}
	return out, total, nil
}

func matchSchedule(s *domain.Schedule, f *ScheduleFilters) bool {
	if f == nil {
		return true
	}
	if f.Kind != "" && s.Kind != f.Kind {
		return false
	}
	if f.Department != "" && s.Department != f.Department {
		return false
	}
	if f.AssetID != "" && s.AssetID != f.AssetID {
		return false
	}
	if f.Frequency != "" && s.Frequency != f.Frequency {
		return false
	}
	if f.Priority != "" && s.Priority != f.Priority {
		return false
	}
	if f.DueBefore != nil && s.NextDueDate.After(*f.DueBefore) {
		return false
	}
	if f.DueAfter != nil && s.NextDueDate.Before(*f.DueAfter) {
		return false
	}
	if f.Status != "" && s.Status(f.Now) != f.Status {
		return false
	}
	return true
}

func (r *MemorySchedulesRepo) UpdateSchedule(_ context.Context, s *domain.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.schedules[s.ScheduleID]
	if !ok {
		return fmt.Errorf("schedule not found: %w", domain.ErrNotFound)
	}
	cur.Title = s.Title
	cur.Description = s.Description
	cur.Frequency = s.Frequency
	cur.CustomFrequencyDays = s.CustomFrequencyDays
	cur.StartDate = s.StartDate
	cur.NextDueDate = s.NextDueDate
	cur.Priority = s.Priority
	cur.RiskLevel = s.RiskLevel
	cur.Template = s.Template
	cur.UpdatedAt = time.Now().UTC()
	r.schedules[s.ScheduleID] = cur
	return nil
}

func (r *MemorySchedulesRepo) AdvanceSchedule(_ context.Context, scheduleID string, lastCompleted, nextDue time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.schedules[scheduleID]
	if !ok {
		return fmt.Errorf("schedule not found: %w", domain.ErrNotFound)
	}
	lc := lastCompleted
	cur.LastCompletedDate = &lc
	cur.NextDueDate = nextDue
	cur.StatusOverride = ""
	cur.UpdatedAt = time.Now().UTC()
	r.schedules[scheduleID] = cur
	return nil
}

func (r *MemorySchedulesRepo) SetOverride(_ context.Context, scheduleID string, override domain.ScheduleStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.schedules[scheduleID]
	if !ok {
		return fmt.Errorf("schedule not found: %w", domain.ErrNotFound)
	}
	cur.StatusOverride = override
	cur.UpdatedAt = time.Now().UTC()
	r.schedules[scheduleID] = cur
	return nil
}

func (r *MemorySchedulesRepo) DeleteSchedule(_ context.Context, scheduleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.schedules[scheduleID]; !ok {
		return fmt.Errorf("schedule not found: %w", domain.ErrNotFound)
	}
	delete(r.schedules, scheduleID)
	return nil
}

func (r *MemorySchedulesRepo) ScheduleStats(_ context.Context, kind domain.ScheduleKind, department string, now time.Time) (*ScheduleStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &ScheduleStats{
		ByStatus:    map[string]int{},
		ByPriority:  map[string]int{},
		ByFrequency: map[string]int{},
	}
	for _, s := range r.schedules {
		if s.Kind != kind {
			continue
		}
		if department != "" && s.Department != department {
			continue
		}
		stats.Total++
		stats.ByStatus[string(s.Status(now))]++
		stats.ByPriority[string(s.Priority)]++
		stats.ByFrequency[string(s.Frequency)]++
	}
	return stats, nil
}

func pageSlice[T any](items []T, page, size int) []T {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	start := (page - 1) * size
	if start >= len(items) {
		return nil
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
