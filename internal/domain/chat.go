package domain

import "time"

// ChatMessage 聊天消息领域模型（对应 chat_messages 表）
// conversation 为部门房间名（"dept:<department>"）或用户对
// （"dm:<低字典序userID>:<高字典序userID>"）；
// 已读回执是自助写入，未读计数在 Redis 里维护
type ChatMessage struct {
	MessageID    string    `db:"message_id"` // UUID, PRIMARY KEY
	Conversation string    `db:"conversation"`
	Department   string    `db:"department"` // 权限过滤键（dm 时为发送者部门）
	SenderID     string    `db:"sender_id"`
	SenderName   string    `db:"sender_name"`
	Body         string    `db:"body"` // TEXT, NOT NULL
	SentAt       time.Time `db:"sent_at"`
}

// DepartmentConversation 部门房间的会话键
func DepartmentConversation(department string) string {
	return "dept:" + department
}

// DirectConversation 两人私聊的会话键（参与者顺序无关）
func DirectConversation(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return "dm:" + a + ":" + b
}
