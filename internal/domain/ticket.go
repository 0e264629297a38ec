package domain

import "time"

// TicketStatus 工单状态
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

func ValidTicketStatus(s TicketStatus) bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketResolved, TicketClosed:
		return true
	}
	return false
}

// Ticket 报修工单领域模型（对应 tickets 表）
// 创建是自助写入（任何本部门用户可报修），删除是管理性写入
type Ticket struct {
	TicketID     string       `db:"ticket_id"` // UUID, PRIMARY KEY
	Title        string       `db:"title"`     // VARCHAR(200), NOT NULL
	Description  string       `db:"description"`
	Department   string       `db:"department"` // NOT NULL
	AssetID      string       `db:"asset_id"`   // nullable, 关联资产
	Priority     Priority     `db:"priority"`
	Status       TicketStatus `db:"status"`
	ReporterID   string       `db:"reporter_id"`
	ReporterName string       `db:"reporter_name"`
	AssigneeID   string       `db:"assignee_id"` // nullable
	AssigneeName string       `db:"assignee_name"`
	ResolvedAt   *time.Time   `db:"resolved_at"` // nullable
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}
