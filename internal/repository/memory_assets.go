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

// MemoryAssetsRepo: 资产的内存实现（DB 未就绪时的联测 + 单元测试）
type MemoryAssetsRepo struct {
	mu     sync.RWMutex
	assets map[string]domain.Asset
}

func NewMemoryAssetsRepo() *MemoryAssetsRepo {
	return &MemoryAssetsRepo{assets: map[string]domain.Asset{}}
}

var _ AssetsRepository = (*MemoryAssetsRepo)(nil)

func (r *MemoryAssetsRepo) CreateAsset(_ context.Context, a *domain.Asset) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.AssetID == "" {
		a.AssetID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	r.assets[a.AssetID] = *a
	return a.AssetID, nil
}

func (r *MemoryAssetsRepo) GetAsset(_ context.Context, assetID string) (*domain.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.assets[assetID]
	if !ok {
		return nil, fmt.Errorf("asset not found: %w", domain.ErrNotFound)
	}
	return &a, nil
}

func (r *MemoryAssetsRepo) ListAssets(_ context.Context, filters *AssetFilters, page, size int) ([]*domain.Asset, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []domain.Asset{}
	for _, a := range r.assets {
		if filters != nil {
			if filters.Department != "" && a.Department != filters.Department {
				continue
			}
			if filters.Category != "" && a.Category != filters.Category {
				continue
			}
			if filters.Location != "" && a.Location != filters.Location {
				continue
			}
			if filters.Status != "" && a.Status != filters.Status {
				continue
			}
		}
		matched = append(matched, a)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	total := len(matched)
	items := pageSlice(matched, page, size)
	out := make([]*domain.Asset, 0, len(items))
	for i := range items {
		a := items[i]
		out = append(out, &a)
	}
	return out, total, nil
}

func (r *MemoryAssetsRepo) UpdateAsset(_ context.Context, a *domain.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.assets[a.AssetID]
	if !ok {
		return fmt.Errorf("asset not found: %w", domain.ErrNotFound)
	}
	created := cur.CreatedAt
	cur = *a
	cur.CreatedAt = created
	cur.UpdatedAt = time.Now().UTC()
	r.assets[a.AssetID] = cur
	return nil
}

func (r *MemoryAssetsRepo) DeleteAsset(_ context.Context, assetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.assets[assetID]; !ok {
		return fmt.Errorf("asset not found: %w", domain.ErrNotFound)
	}
	delete(r.assets, assetID)
	return nil
}

func (r *MemoryAssetsRepo) AssetStats(_ context.Context, department string) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := map[string]int{}
	for _, a := range r.assets {
		if department != "" && a.Department != department {
			continue
		}
		stats[string(a.Status)]++
	}
	return stats, nil
}
