package repository

import (
	"context"
	"time"

	"cmms-data/internal/domain"
)

// ScheduleFilters 计划查询过滤器。
// Department 由调用方先套用权限范围再叠加显式过滤（只收窄，不放宽）。
type ScheduleFilters struct {
	Kind       domain.ScheduleKind
	Department string
	AssetID    string
	Frequency  domain.Frequency
	Priority   domain.Priority
	DueBefore  *time.Time // next_due_date <= DueBefore
	DueAfter   *time.Time // next_due_date >= DueAfter

	// Status 按推导状态过滤（active/overdue/inactive/completed），
	// 在分页之前生效，total 是过滤后的计数；Now 是推导用时钟
	Status domain.ScheduleStatus
	Now    time.Time
}

// ScheduleStats 计划统计（按推导状态/优先级/周期计数）
type ScheduleStats struct {
	Total       int            `json:"total"`
	ByStatus    map[string]int `json:"by_status"`
	ByPriority  map[string]int `json:"by_priority"`
	ByFrequency map[string]int `json:"by_frequency"`
}

// SchedulesRepository 周期巡检计划 Repository 接口
type SchedulesRepository interface {
	// CreateSchedule 创建计划，返回生成的 schedule_id
	CreateSchedule(ctx context.Context, s *domain.Schedule) (string, error)

	// GetSchedule 获取计划
	GetSchedule(ctx context.Context, scheduleID string) (*domain.Schedule, error)

	// ListSchedules 批量查询计划（支持过滤和分页）
	ListSchedules(ctx context.Context, filters *ScheduleFilters, page, size int) ([]*domain.Schedule, int, error)

	// UpdateSchedule 更新计划的一般字段（标题/描述/优先级/模板/周期与改期）。
	// 不触碰 last_completed_date；周期字段的推导一致性由 Workflow 层保证。
	UpdateSchedule(ctx context.Context, s *domain.Schedule) error

	// AdvanceSchedule 提交完成记录后推进计划：单行 UPDATE，只写
	// last_completed_date / next_due_date 并清掉显式状态标记，
	// 不盲写其它字段（并发提交时后写者的推导结果生效）
	AdvanceSchedule(ctx context.Context, scheduleID string, lastCompleted, nextDue time.Time) error

	// SetOverride 设置/清除显式状态标记（''/inactive/completed）
	SetOverride(ctx context.Context, scheduleID string, override domain.ScheduleStatus) error

	// DeleteSchedule 删除计划（不级联删除记录，记录允许悬挂引用）
	DeleteSchedule(ctx context.Context, scheduleID string) error

	// ScheduleStats 统计（空范围返回零值而不是错误）
	ScheduleStats(ctx context.Context, kind domain.ScheduleKind, department string, now time.Time) (*ScheduleStats, error)
}
