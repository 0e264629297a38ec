package repository

import (
	"context"
	"database/sql"

	"cmms-data/internal/domain"

	"github.com/google/uuid"
)

// PostgresChatRepo 聊天消息 Repository 实现。
// 消息落库，未读计数在 Redis（见 store.KV），两边互不依赖。
type PostgresChatRepo struct {
	db *sql.DB
}

func NewPostgresChatRepo(db *sql.DB) *PostgresChatRepo {
	return &PostgresChatRepo{db: db}
}

var _ ChatRepository = (*PostgresChatRepo)(nil)

func (r *PostgresChatRepo) CreateMessage(ctx context.Context, m *domain.ChatMessage) (string, error) {
	if m.MessageID == "" {
		m.MessageID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO chat_messages (message_id, conversation, department, sender_id, sender_name, body, sent_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.MessageID, m.Conversation, m.Department, m.SenderID, m.SenderName, m.Body, m.SentAt,
	)
	if err != nil {
		return "", storeErr("failed to create chat message", err)
	}
	return m.MessageID, nil
}

func (r *PostgresChatRepo) ListMessages(ctx context.Context, conversation string, page, size int) ([]*domain.ChatMessage, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_messages WHERE conversation = $1`, conversation).Scan(&total); err != nil {
		return nil, 0, storeErr("failed to count chat messages", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT message_id::text, conversation, department, sender_id, sender_name, body, sent_at
		FROM chat_messages WHERE conversation = $1
		ORDER BY sent_at DESC LIMIT $2 OFFSET $3`,
		conversation, size, (page-1)*size)
	if err != nil {
		return nil, 0, storeErr("failed to list chat messages", err)
	}
	defer rows.Close()

	items := []*domain.ChatMessage{}
	for rows.Next() {
		var m domain.ChatMessage
		var department sql.NullString
		if err := rows.Scan(&m.MessageID, &m.Conversation, &department,
			&m.SenderID, &m.SenderName, &m.Body, &m.SentAt); err != nil {
			return nil, 0, storeErr("failed to scan chat message", err)
		}
		m.Department = department.String
		items = append(items, &m)
	}
	return items, total, storeErr("failed to list chat messages", rows.Err())
}
