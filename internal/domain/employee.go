package domain

import "time"

// Employee 员工领域模型（对应 employees 表）
// role/access_level 与 Actor 的枚举一致；身份认证本身在外部网关完成
type Employee struct {
	EmployeeID  string      `db:"employee_id"` // UUID, PRIMARY KEY
	Name        string      `db:"name"`        // VARCHAR(100), NOT NULL
	Email       string      `db:"email"`       // VARCHAR(255), UNIQUE
	Phone       string      `db:"phone"`
	Department  string      `db:"department"` // NOT NULL
	Role        Role        `db:"role"`
	AccessLevel AccessLevel `db:"access_level"`
	Skills      []string    `db:"skills"` // JSONB
	ShiftType   ShiftType   `db:"shift_type"`
	Active      bool        `db:"active"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}
