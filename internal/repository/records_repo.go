package repository

import (
	"context"
	"time"

	"cmms-data/internal/domain"
)

// RecordFilters 记录查询过滤器
type RecordFilters struct {
	Kind         domain.ScheduleKind
	ScheduleID   string
	Department   string
	AssetID      string
	TechnicianID string
	Status       domain.RecordStatus
	Verified     *bool
	From         *time.Time // completed_date >= From
	To           *time.Time // completed_date <= To
}

// RecordStats 记录统计
type RecordStats struct {
	Total       int            `json:"total"`
	Verified    int            `json:"verified"`
	Unverified  int            `json:"unverified"`
	ByStatus    map[string]int `json:"by_status"`
	ByCondition map[string]int `json:"by_condition"`
}

// RecordsRepository 巡检/维护记录 Repository 接口
type RecordsRepository interface {
	// CreateRecord 创建记录，返回生成的 record_id
	CreateRecord(ctx context.Context, r *domain.Record) (string, error)

	// GetRecord 获取记录
	GetRecord(ctx context.Context, recordID string) (*domain.Record, error)

	// ListRecords 批量查询记录（支持过滤和分页）
	ListRecords(ctx context.Context, filters *RecordFilters, page, size int) ([]*domain.Record, int, error)

	// UpdateRecord 更新记录的非审核字段（审核字段永远不经过这里）
	UpdateRecord(ctx context.Context, r *domain.Record) error

	// VerifyRecord 审核记录：条件更新 admin_verified=FALSE 的行，
	// 已审核时返回 domain.ErrConflict（首次审核的署名和时间保持不变）
	VerifyRecord(ctx context.Context, recordID, verifiedBy string, verifiedAt time.Time, notes string) error

	// DeleteRecord 删除记录
	DeleteRecord(ctx context.Context, recordID string) error

	// RecordStats 统计（空范围返回零值）
	RecordStats(ctx context.Context, kind domain.ScheduleKind, department string) (*RecordStats, error)
}
