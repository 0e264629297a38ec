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

// MemoryNoticesRepo: 通知公告的内存实现
type MemoryNoticesRepo struct {
	mu      sync.RWMutex
	notices map[string]domain.Notice
}

func NewMemoryNoticesRepo() *MemoryNoticesRepo {
	return &MemoryNoticesRepo{notices: map[string]domain.Notice{}}
}

var _ NoticesRepository = (*MemoryNoticesRepo)(nil)

func (r *MemoryNoticesRepo) CreateNotice(_ context.Context, n *domain.Notice) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n.NoticeID == "" {
		n.NoticeID = uuid.NewString()
	}
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now
	r.notices[n.NoticeID] = *n
	return n.NoticeID, nil
}

func (r *MemoryNoticesRepo) GetNotice(_ context.Context, noticeID string) (*domain.Notice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.notices[noticeID]
	if !ok {
		return nil, fmt.Errorf("notice not found: %w", domain.ErrNotFound)
	}
	return &n, nil
}

func (r *MemoryNoticesRepo) ListNotices(_ context.Context, department string, includeGlobal, publishedOnly bool, page, size int) ([]*domain.Notice, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []domain.Notice{}
	for _, n := range r.notices {
		if publishedOnly && !n.Published {
			continue
		}
		switch {
		case n.Department == department:
		case includeGlobal && n.Department == "":
		default:
			continue
		}
		matched = append(matched, n)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	items := pageSlice(matched, page, size)
	out := make([]*domain.Notice, 0, len(items))
	for i := range items {
		n := items[i]
		out = append(out, &n)
	}
	return out, total, nil
}

func (r *MemoryNoticesRepo) UpdateNotice(_ context.Context, n *domain.Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.notices[n.NoticeID]
	if !ok {
		return fmt.Errorf("notice not found: %w", domain.ErrNotFound)
	}
	created := cur.CreatedAt
	cur = *n
	cur.CreatedAt = created
	cur.UpdatedAt = time.Now().UTC()
	r.notices[n.NoticeID] = cur
	return nil
}

func (r *MemoryNoticesRepo) PublishNotice(_ context.Context, noticeID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.notices[noticeID]
	if !ok {
		return fmt.Errorf("notice not found: %w", domain.ErrNotFound)
	}
	if cur.Published {
		return fmt.Errorf("notice already published: %w", domain.ErrConflict)
	}
	cur.Published = true
	cur.PublishedAt = &at
	cur.UpdatedAt = time.Now().UTC()
	r.notices[noticeID] = cur
	return nil
}

func (r *MemoryNoticesRepo) DeleteNotice(_ context.Context, noticeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.notices[noticeID]; !ok {
		return fmt.Errorf("notice not found: %w", domain.ErrNotFound)
	}
	delete(r.notices, noticeID)
	return nil
}
