package domain

import "time"

// Notice 通知公告领域模型（对应 notices 表）
// department 为空表示全员公告；发布需要 admin/manager 岗位
type Notice struct {
	NoticeID    string     `db:"notice_id"` // UUID, PRIMARY KEY
	Title       string     `db:"title"`     // VARCHAR(200), NOT NULL
	Body        string     `db:"body"`      // TEXT
	Department  string     `db:"department"` // '' = 全员
	Priority    Priority   `db:"priority"`
	AuthorID    string     `db:"author_id"`
	AuthorName  string     `db:"author_name"`
	Published   bool       `db:"published"`
	PublishedAt *time.Time `db:"published_at"` // nullable
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}
