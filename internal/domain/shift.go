package domain

import "time"

// ShiftType 班次类型
type ShiftType string

const (
	ShiftDay   ShiftType = "day"
	ShiftNight ShiftType = "night"
	ShiftSwing ShiftType = "swing"
)

func ValidShiftType(s ShiftType) bool {
	return s == ShiftDay || s == ShiftNight || s == ShiftSwing
}

// ShiftDetail 排班明细领域模型（对应 shift_details 表）
// start/end 为 HH:MM 字符串，与记录的时间字段同样按同日理解
type ShiftDetail struct {
	ShiftID      string    `db:"shift_id"` // UUID, PRIMARY KEY
	EmployeeID   string    `db:"employee_id"`
	EmployeeName string    `db:"employee_name"`
	Department   string    `db:"department"` // NOT NULL
	ShiftType    ShiftType `db:"shift_type"`
	Weekdays     []string  `db:"weekdays"` // JSONB, 如 ["mon","tue"]
	StartTime    string    `db:"start_time"` // HH:MM
	EndTime      string    `db:"end_time"`   // HH:MM
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
