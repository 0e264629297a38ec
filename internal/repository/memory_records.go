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

// MemoryRecordsRepo: 记录的内存实现，语义对齐 Postgres 版
// （VerifyRecord 检查已审核返回 Conflict，首次审核字段不被覆盖）
type MemoryRecordsRepo struct {
	mu      sync.RWMutex
	records map[string]domain.Record
}

func NewMemoryRecordsRepo() *MemoryRecordsRepo {
	return &MemoryRecordsRepo{records: map[string]domain.Record{}}
}

var _ RecordsRepository = (*MemoryRecordsRepo)(nil)

func (r *MemoryRecordsRepo) CreateRecord(_ context.Context, rec *domain.Record) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.RecordID == "" {
		rec.RecordID = uuid.NewString()
	}
	now := time.Now().UTC()
	rec.AdminVerified = false
	rec.AdminVerifiedBy = ""
	rec.AdminVerifiedAt = nil
	rec.CreatedAt = now
	rec.UpdatedAt = now
	r.records[rec.RecordID] = *rec
	return rec.RecordID, nil
}

func (r *MemoryRecordsRepo) GetRecord(_ context.Context, recordID string) (*domain.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[recordID]
	if !ok {
		return nil, fmt.Errorf("record not found: %w", domain.ErrNotFound)
	}
	return &rec, nil
}

func (r *MemoryRecordsRepo) ListRecords(_ context.Context, filters *RecordFilters, page, size int) ([]*domain.Record, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []domain.Record{}
	for _, rec := range r.records {
		if !matchRecord(&rec, filters) {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CompletedDate.After(matched[j].CompletedDate)
	})

	total := len(matched)
	items := pageSlice(matched, page, size)
	out := make([]*domain.Record, 0, len(items))
	for i := range items {
		rec := items[i]
		out = append(out, &rec)
	}
	return out, total, nil
}

func matchRecord(rec *domain.Record, f *RecordFilters) bool {
	if f == nil {
		return true
	}
	if f.Kind != "" && rec.Kind != f.Kind {
		return false
	}
	if f.ScheduleID != "" && rec.ScheduleID != f.ScheduleID {
		return false
	}
	if f.Department != "" && rec.Department != f.Department {
		return false
	}
	if f.AssetID != "" && rec.AssetID != f.AssetID {
		return false
	}
	if f.TechnicianID != "" && rec.TechnicianID != f.TechnicianID {
		return false
	}
	if f.Status != "" && rec.Status != f.Status {
		return false
	}
	if f.Verified != nil && rec.AdminVerified != *f.Verified {
		return false
	}
	if f.From != nil && rec.CompletedDate.Before(*f.From) {
		return false
	}
	if f.To != nil && rec.CompletedDate.After(*f.To) {
		return false
	}
	return true
}

func (r *MemoryRecordsRepo) UpdateRecord(_ context.Context, rec *domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.records[rec.RecordID]
	if !ok {
		return fmt.Errorf("record not found: %w", domain.ErrNotFound)
	}
	// 审核字段不经过一般更新
	cur.CompletedDate = rec.CompletedDate
	cur.StartTime = rec.StartTime
	cur.EndTime = rec.EndTime
	cur.ActualDurationHours = rec.ActualDurationHours
	cur.Status = rec.Status
	cur.OverallCondition = rec.OverallCondition
	cur.Notes = rec.Notes
	cur.Results = rec.Results
	cur.UpdatedAt = time.Now().UTC()
	r.records[rec.RecordID] = cur
	return nil
}

func (r *MemoryRecordsRepo) VerifyRecord(_ context.Context, recordID, verifiedBy string, verifiedAt time.Time, notes string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.records[recordID]
	if !ok {
		return fmt.Errorf("record not found: %w", domain.ErrNotFound)
	}
	if cur.AdminVerified {
		return fmt.Errorf("record already verified: %w", domain.ErrConflict)
	}
	cur.AdminVerified = true
	cur.AdminVerifiedBy = verifiedBy
	at := verifiedAt
	cur.AdminVerifiedAt = &at
	cur.AdminNotes = notes
	cur.UpdatedAt = time.Now().UTC()
	r.records[recordID] = cur
	return nil
}

func (r *MemoryRecordsRepo) DeleteRecord(_ context.Context, recordID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[recordID]; !ok {
		return fmt.Errorf("record not found: %w", domain.ErrNotFound)
	}
	delete(r.records, recordID)
	return nil
}

func (r *MemoryRecordsRepo) RecordStats(_ context.Context, kind domain.ScheduleKind, department string) (*RecordStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &RecordStats{
		ByStatus:    map[string]int{},
		ByCondition: map[string]int{},
	}
	for _, rec := range r.records {
		if rec.Kind != kind {
			continue
		}
		if department != "" && rec.Department != department {
			continue
		}
		stats.Total++
		stats.ByStatus[string(rec.Status)]++
		stats.ByCondition[string(rec.OverallCondition)]++
		if rec.AdminVerified {
			stats.Verified++
		} else {
			stats.Unverified++
		}
	}
	return stats, nil
}
