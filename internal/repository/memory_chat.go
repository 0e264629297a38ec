package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"cmms-data/internal/domain"

	"github.com/google/uuid"
)

// MemoryChatRepo: 聊天消息的内存实现
type MemoryChatRepo struct {
	mu       sync.RWMutex
	messages map[string][]domain.ChatMessage // conversation -> 按时间正序
}

func NewMemoryChatRepo() *MemoryChatRepo {
	return &MemoryChatRepo{messages: map[string][]domain.ChatMessage{}}
}

var _ ChatRepository = (*MemoryChatRepo)(nil)

func (r *MemoryChatRepo) CreateMessage(_ context.Context, m *domain.ChatMessage) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.MessageID == "" {
		m.MessageID = uuid.NewString()
	}
	if m.SentAt.IsZero() {
		m.SentAt = time.Now().UTC()
	}
	r.messages[m.Conversation] = append(r.messages[m.Conversation], *m)
	return m.MessageID, nil
}

func (r *MemoryChatRepo) ListMessages(_ context.Context, conversation string, page, size int) ([]*domain.ChatMessage, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.messages[conversation]
	// 最新的在前
	matched := make([]domain.ChatMessage, len(all))
	copy(matched, all)
	sort.Slice(matched, func(i, j int) bool { return matched[i].SentAt.After(matched[j].SentAt) })

	total := len(matched)
	items := pageSlice(matched, page, size)
	out := make([]*domain.ChatMessage, 0, len(items))
	for i := range items {
		m := items[i]
		out = append(out, &m)
	}
	return out, total, nil
}
