package domain

import "time"

// ScheduleKind 周期巡检的类别：设备维护 / 安全巡检。
// 两者共用同一套计划/记录/审核流程，差异只在作业模板与记录结果的形态。
type ScheduleKind string

const (
	KindMaintenance ScheduleKind = "maintenance"
	KindSafety      ScheduleKind = "safety"
)

func ValidKind(k ScheduleKind) bool {
	return k == KindMaintenance || k == KindSafety
}

// Priority 优先级
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// RiskLevel 安全巡检的风险等级（仅 kind=safety 使用）
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// PartTemplate 维护作业模板中的一个部件项（kind=maintenance）
type PartTemplate struct {
	Name             string `json:"name"`
	Required         bool   `json:"required"`
	EstimatedMinutes int    `json:"estimated_minutes,omitempty"`
}

// ChecklistItem 安全检查清单项
type ChecklistItem struct {
	Description      string `json:"description"`
	Required         bool   `json:"required"`
	EstimatedMinutes int    `json:"estimated_minutes,omitempty"`
}

// ChecklistCategory 安全检查清单分类（kind=safety）
type ChecklistCategory struct {
	Name  string          `json:"name"`
	Items []ChecklistItem `json:"items"`
}

// WorkTemplate 作业模板。按 kind 只填充一侧；
// 提交记录时整体拷贝进记录，记录不回写模板。
type WorkTemplate struct {
	Parts      []PartTemplate      `json:"parts,omitempty"`
	Categories []ChecklistCategory `json:"categories,omitempty"`
}

// Schedule 周期巡检计划领域模型（对应 schedules 表）
// maintenance 与 safety 共用一张表，kind 列区分
type Schedule struct {
	ScheduleID string       `db:"schedule_id"` // UUID, PRIMARY KEY
	Kind       ScheduleKind `db:"kind"`        // VARCHAR(20), NOT NULL

	// 归属：通过资产落到部门，冗余存储避免每次请求做 join
	AssetID    string `db:"asset_id"`   // UUID, NOT NULL, FK to assets
	AssetName  string `db:"asset_name"` // 冗余
	Location   string `db:"location"`
	Department string `db:"department"` // NOT NULL, 权限过滤键

	Title       string `db:"title"`
	Description string `db:"description"` // TEXT, nullable

	// 周期：next_due_date 永远可由 (frequency, custom_frequency_days, 锚点) 推出，
	// 且不早于锚点；只有 Workflow 或显式改期才能改写
	Frequency           Frequency  `db:"frequency"`
	CustomFrequencyDays int        `db:"custom_frequency_days"` // frequency=custom 时必填
	StartDate           time.Time  `db:"start_date"`
	NextDueDate         time.Time  `db:"next_due_date"`
	LastCompletedDate   *time.Time `db:"last_completed_date"` // nullable

	Priority  Priority  `db:"priority"`
	RiskLevel RiskLevel `db:"risk_level"` // 仅 kind=safety

	// 状态只存显式标记（''/inactive/completed），overdue/active 读取时推导
	StatusOverride ScheduleStatus `db:"status_override"`

	Template WorkTemplate `db:"template"` // JSONB

	CreatedBy string    `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Status 当前状态（实时推导，见 DeriveStatus）
func (s *Schedule) Status(now time.Time) ScheduleStatus {
	return DeriveStatus(s.StatusOverride, s.NextDueDate, now)
}

// Anchor 下次到期日的锚点：有完成记录取 lastCompletedDate，否则取 startDate
func (s *Schedule) Anchor() time.Time {
	if s.LastCompletedDate != nil {
		return *s.LastCompletedDate
	}
	return s.StartDate
}
