package domain

import "time"

// Department 部门领域模型（对应 departments 表）
type Department struct {
	DepartmentID string    `db:"department_id"` // UUID, PRIMARY KEY
	Name         string    `db:"name"`          // VARCHAR(100), NOT NULL, UNIQUE
	Description  string    `db:"description"`   // TEXT, nullable
	HeadName     string    `db:"head_name"`     // 负责人
	HeadEmail    string    `db:"head_email"`
	Active       bool      `db:"active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
