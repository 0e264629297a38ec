package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cmms-data/internal/domain"
	"cmms-data/internal/repository"
	"cmms-data/internal/store"

	"go.uber.org/zap"
)

// 未读计数键：chat:unread:<conversation>:<userID>
// 已读回执键：chat:read:<conversation>:<userID> -> RFC3339 时间
const (
	chatUnreadPrefix = "chat:unread:"
	chatReadPrefix   = "chat:read:"
)

// ChatService 站内聊天：消息落库，未读计数与已读回执走 KV。
// 会话分两种：部门房间（同部门成员）与两人私聊。
type ChatService struct {
	repo      repository.ChatRepository
	employees repository.EmployeesRepository
	kv        store.KV
	logger    *zap.Logger
}

// NewChatService 创建聊天服务
func NewChatService(repo repository.ChatRepository, employees repository.EmployeesRepository, kv store.KV, logger *zap.Logger) *ChatService {
	return &ChatService{repo: repo, employees: employees, kv: kv, logger: logger}
}

// SendDepartmentMessage 在部门房间发言。发送者必须属于该部门
// （super_admin 可以向任意部门房间发言）。
func (s *ChatService) SendDepartmentMessage(ctx context.Context, actor domain.Actor, department, body string) (*domain.ChatMessage, error) {
	if body == "" {
		return nil, fmt.Errorf("%w: message body is required", domain.ErrInvalidInput)
	}
	if department == "" {
		return nil, fmt.Errorf("%w: department is required", domain.ErrInvalidInput)
	}
	if err := domain.Authorize(actor, department, domain.ActionSelfWrite); err != nil {
		return nil, err
	}

	msg := &domain.ChatMessage{
		Conversation: domain.DepartmentConversation(department),
		Department:   department,
		SenderID:     actor.UserID,
		SenderName:   actor.Name,
		Body:         body,
		SentAt:       time.Now().UTC(),
	}
	if _, err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	s.bumpUnread(ctx, msg.Conversation, actor.UserID)
	return msg, nil
}

// SendDirectMessage 两人私聊。收件人必须存在；会话键与参与者顺序无关。
func (s *ChatService) SendDirectMessage(ctx context.Context, actor domain.Actor, recipientID, body string) (*domain.ChatMessage, error) {
	if body == "" {
		return nil, fmt.Errorf("%w: message body is required", domain.ErrInvalidInput)
	}
	if recipientID == "" || recipientID == actor.UserID {
		return nil, fmt.Errorf("%w: invalid recipient", domain.ErrInvalidInput)
	}
	if _, err := s.employees.GetEmployee(ctx, recipientID); err != nil {
		return nil, err
	}

	msg := &domain.ChatMessage{
		Conversation: domain.DirectConversation(actor.UserID, recipientID),
		Department:   actor.Department,
		SenderID:     actor.UserID,
		SenderName:   actor.Name,
		Body:         body,
		SentAt:       time.Now().UTC(),
	}
	if _, err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	s.bumpUnreadFor(ctx, msg.Conversation, recipientID)
	return msg, nil
}

// ListMessages 拉取会话消息（倒序分页）。部门房间按部门做读权限检查；
// 私聊只允许参与者本人。
func (s *ChatService) ListMessages(ctx context.Context, actor domain.Actor, conversation string, page, size int) ([]*domain.ChatMessage, int, error) {
	if err := s.authorizeConversation(actor, conversation); err != nil {
		return nil, 0, err
	}
	return s.repo.ListMessages(ctx, conversation, page, size)
}

// MarkRead 标记会话已读：清零本人未读计数并记录回执时间。自助写入。
func (s *ChatService) MarkRead(ctx context.Context, actor domain.Actor, conversation string) error {
	if err := s.authorizeConversation(actor, conversation); err != nil {
		return err
	}
	if err := s.kv.Del(ctx, chatUnreadPrefix+conversation+":"+actor.UserID); err != nil {
		s.logger.Warn("failed to clear unread counter", zap.Error(err))
	}
	return s.kv.Set(ctx, chatReadPrefix+conversation+":"+actor.UserID,
		time.Now().UTC().Format(time.RFC3339), 0)
}

// UnreadCount 查询本人在某会话的未读条数
func (s *ChatService) UnreadCount(ctx context.Context, actor domain.Actor, conversation string) (int64, error) {
	if err := s.authorizeConversation(actor, conversation); err != nil {
		return 0, err
	}
	val, err := s.kv.Get(ctx, chatUnreadPrefix+conversation+":"+actor.UserID)
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return 0, nil
		}
		return 0, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// authorizeConversation 会话访问检查
func (s *ChatService) authorizeConversation(actor domain.Actor, conversation string) error {
	switch {
	case strings.HasPrefix(conversation, "dept:"):
		return domain.Authorize(actor, strings.TrimPrefix(conversation, "dept:"), domain.ActionRead)
	case strings.HasPrefix(conversation, "dm:"):
		if actor.AccessLevel == domain.AccessSuperAdmin {
			return nil
		}
		rest := strings.TrimPrefix(conversation, "dm:")
		parts := strings.SplitN(rest, ":", 2)
		if len(parts) == 2 && (parts[0] == actor.UserID || parts[1] == actor.UserID) {
			return nil
		}
		return fmt.Errorf("not a participant of this conversation: %w", domain.ErrUnauthorized)
	}
	return fmt.Errorf("%w: invalid conversation %q", domain.ErrInvalidInput, conversation)
}

// bumpUnreadFor 私聊：给收件人加未读
func (s *ChatService) bumpUnreadFor(ctx context.Context, conversation, userID string) {
	if _, err := s.kv.Incr(ctx, chatUnreadPrefix+conversation+":"+userID); err != nil {
		s.logger.Warn("failed to bump unread counter",
			zap.String("conversation", conversation), zap.Error(err))
	}
}

// bumpUnread 部门房间：给发送者之外的已有参与者加未读。
// 参与者集合用已读回执键近似（发过言或读过的人才有回执键）。
func (s *ChatService) bumpUnread(ctx context.Context, conversation, senderID string) {
	keys, err := s.kv.ScanKeys(ctx, chatReadPrefix+conversation+":*")
	if err != nil {
		s.logger.Warn("failed to scan read receipts",
			zap.String("conversation", conversation), zap.Error(err))
		return
	}
	for _, k := range keys {
		userID := strings.TrimPrefix(k, chatReadPrefix+conversation+":")
		if userID == senderID {
			continue
		}
		s.bumpUnreadFor(ctx, conversation, userID)
	}
}
