package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cmms-data/internal/domain"
	"cmms-data/internal/repository"

	"go.uber.org/zap"
)

// NoticeBroadcaster 通知发布后的广播出口（MQTT）
type NoticeBroadcaster interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// NoticeService 通知公告：草稿可改，发布是单向动作，
// 发布成功后向 MQTT 广播 + webhook 推送（都是尽力而为）。
type NoticeService struct {
	repo        repository.NoticesRepository
	broadcaster NoticeBroadcaster // 可为 nil
	topic       string
	events      *EventClient // 可为 nil
	logger      *zap.Logger
}

// NewNoticeService 创建通知服务
func NewNoticeService(repo repository.NoticesRepository, broadcaster NoticeBroadcaster, topic string, events *EventClient, logger *zap.Logger) *NoticeService {
	return &NoticeService{
		repo:        repo,
		broadcaster: broadcaster,
		topic:       topic,
		events:      events,
		logger:      logger,
	}
}

// CreateNotice 创建草稿。department 为空是全员公告，只有 super_admin 能发；
// 部门公告需要该部门的管理写权限 + admin/manager 岗位。
func (s *NoticeService) CreateNotice(ctx context.Context, actor domain.Actor, n *domain.Notice) (*domain.Notice, error) {
	if n.Title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if !domain.ValidPriority(n.Priority) {
		return nil, fmt.Errorf("%w: invalid priority %q", domain.ErrInvalidInput, n.Priority)
	}
	if n.Department == "" && actor.AccessLevel != domain.AccessSuperAdmin {
		return nil, fmt.Errorf("global notices require platform admin: %w", domain.ErrUnauthorized)
	}
	if err := domain.Authorize(actor, n.Department, domain.ActionWrite); err != nil {
		return nil, err
	}
	if err := domain.RequireManagerial(actor); err != nil {
		return nil, err
	}

	n.AuthorID = actor.UserID
	n.AuthorName = actor.Name
	n.Published = false
	n.PublishedAt = nil

	if _, err := s.repo.CreateNotice(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// GetNotice 获取通知。未发布的草稿只有作者和管理侧可见。
func (s *NoticeService) GetNotice(ctx context.Context, actor domain.Actor, noticeID string) (*domain.Notice, error) {
	n, err := s.repo.GetNotice(ctx, noticeID)
	if err != nil {
		return nil, err
	}
	if err := domain.Authorize(actor, n.Department, domain.ActionRead); err != nil {
		return nil, err
	}
	if !n.Published && n.AuthorID != actor.UserID {
		if err := domain.Authorize(actor, n.Department, domain.ActionWrite); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// ListNotices 查询通知。普通用户只看本部门 + 全员的已发布通知；
// 管理侧可带 publishedOnly=false 看草稿。
func (s *NoticeService) ListNotices(ctx context.Context, actor domain.Actor, department string, publishedOnly bool, page, size int) ([]*domain.Notice, int, error) {
	scopeDept, restricted := domain.ScopeFilter(actor)
	if restricted {
		if department != "" && department != scopeDept {
			return []*domain.Notice{}, 0, nil
		}
		department = scopeDept
	}
	if !publishedOnly {
		// 草稿列表是管理性读取
		if err := domain.Authorize(actor, department, domain.ActionWrite); err != nil {
			return nil, 0, err
		}
	}
	return s.repo.ListNotices(ctx, department, department != "", publishedOnly, page, size)
}

// UpdateNotice 更新草稿。已发布的通知不可再改。
func (s *NoticeService) UpdateNotice(ctx context.Context, actor domain.Actor, n *domain.Notice) (*domain.Notice, error) {
	existing, err := s.repo.GetNotice(ctx, n.NoticeID)
	if err != nil {
		return nil, err
	}
	if existing.Published {
		return nil, fmt.Errorf("notice is published and locked: %w", domain.ErrConflict)
	}
	if err := domain.Authorize(actor, existing.Department, domain.ActionWrite); err != nil {
		return nil, err
	}
	if err := domain.RequireManagerial(actor); err != nil {
		return nil, err
	}
	if !domain.ValidPriority(n.Priority) {
		return nil, fmt.Errorf("%w: invalid priority %q", domain.ErrInvalidInput, n.Priority)
	}

	existing.Title = n.Title
	existing.Body = n.Body
	existing.Priority = n.Priority
	if err := s.repo.UpdateNotice(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// PublishNotice 发布通知，单向 false→true；重复发布返回 Conflict。
// 发布成功后广播，广播失败不回滚。
func (s *NoticeService) PublishNotice(ctx context.Context, actor domain.Actor, noticeID string) (*domain.Notice, error) {
	n, err := s.repo.GetNotice(ctx, noticeID)
	if err != nil {
		return nil, err
	}
	if err := domain.Authorize(actor, n.Department, domain.ActionWrite); err != nil {
		return nil, err
	}
	if err := domain.RequireManagerial(actor); err != nil {
		return nil, err
	}

	at := time.Now().UTC()
	if err := s.repo.PublishNotice(ctx, noticeID, at); err != nil {
		return nil, err
	}
	n.Published = true
	n.PublishedAt = &at

	s.broadcast(n)
	if s.events != nil {
		s.events.Publish(ctx, EventNoticePublished, map[string]any{
			"notice_id":  n.NoticeID,
			"title":      n.Title,
			"department": n.Department,
			"priority":   n.Priority,
		})
	}
	return n, nil
}

// DeleteNotice 删除通知
func (s *NoticeService) DeleteNotice(ctx context.Context, actor domain.Actor, noticeID string) error {
	n, err := s.repo.GetNotice(ctx, noticeID)
	if err != nil {
		return err
	}
	if err := domain.Authorize(actor, n.Department, domain.ActionWrite); err != nil {
		return err
	}
	if err := domain.RequireManagerial(actor); err != nil {
		return err
	}
	return s.repo.DeleteNotice(ctx, noticeID)
}

func (s *NoticeService) broadcast(n *domain.Notice) {
	if s.broadcaster == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"notice_id":    n.NoticeID,
		"title":        n.Title,
		"department":   n.Department,
		"priority":     n.Priority,
		"published_at": n.PublishedAt,
	})
	if err != nil {
		return
	}
	if err := s.broadcaster.Publish(s.topic, 1, false, payload); err != nil {
		s.logger.Warn("notice broadcast failed",
			zap.String("notice_id", n.NoticeID), zap.Error(err))
	}
}
