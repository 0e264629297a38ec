package domain

import "time"

// RecordStatus 记录结果状态
type RecordStatus string

const (
	RecordCompleted          RecordStatus = "completed"
	RecordPartiallyCompleted RecordStatus = "partially_completed"
	RecordFailed             RecordStatus = "failed"
	RecordInProgress         RecordStatus = "in_progress"
)

func ValidRecordStatus(s RecordStatus) bool {
	switch s {
	case RecordCompleted, RecordPartiallyCompleted, RecordFailed, RecordInProgress:
		return true
	}
	return false
}

// Advances 该结果是否推进计划的下次到期日。
// failed / in_progress 不推进（该次到期仍然悬着，允许再次提交）。
func (s RecordStatus) Advances() bool {
	return s == RecordCompleted || s == RecordPartiallyCompleted
}

// Condition 整体状况评级
type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
)

func ValidCondition(c Condition) bool {
	switch c {
	case ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// PartResult 一个部件项的完成情况（从计划模板拷贝，独立于模板）
type PartResult struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
	Status    string `json:"status,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// ItemResult 一个检查清单项的结果
type ItemResult struct {
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Status      string `json:"status,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// CategoryResult 一个清单分类的结果
type CategoryResult struct {
	Name  string       `json:"name"`
	Items []ItemResult `json:"items"`
}

// WorkResult 作业结果明细，按 kind 只填充一侧
type WorkResult struct {
	Parts      []PartResult     `json:"parts,omitempty"`
	Categories []CategoryResult `json:"categories,omitempty"`
}

// 记录工时上限（小时）
const MaxDurationHours = 168

// Record 巡检/维护记录领域模型（对应 records 表）
// 一次计划作业的执行结果；schedule_id 在创建时检查存在性，
// 之后计划被删除导致悬挂引用是允许的
type Record struct {
	RecordID   string       `db:"record_id"` // UUID, PRIMARY KEY
	Kind       ScheduleKind `db:"kind"`
	ScheduleID string       `db:"schedule_id"` // 可悬挂

	AssetID    string `db:"asset_id"`
	AssetName  string `db:"asset_name"`
	Location   string `db:"location"`
	Department string `db:"department"`

	// 执行事实。start/end 为 HH:MM 字符串，按同日理解，
	// 不做跨午夜归一化（源系统未定义该语义）
	CompletedDate       time.Time `db:"completed_date"`
	StartTime           string    `db:"start_time"`
	EndTime             string    `db:"end_time"`
	ActualDurationHours float64   `db:"actual_duration_hours"` // 0..168

	TechnicianID   string `db:"technician_id"`
	TechnicianName string `db:"technician_name"`

	Status           RecordStatus `db:"status"`
	OverallCondition Condition    `db:"overall_condition"`
	Notes            string       `db:"notes"`

	Results WorkResult `db:"results"` // JSONB

	// 审核子状态：只能经由专门的 verify 操作单向置位，
	// 普通更新接口永远不碰这些字段
	AdminVerified   bool       `db:"admin_verified"`
	AdminVerifiedBy string     `db:"admin_verified_by"`
	AdminVerifiedAt *time.Time `db:"admin_verified_at"`
	AdminNotes      string     `db:"admin_notes"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
