package service

import (
	"context"
	"testing"

	"cmms-data/internal/domain"
	"cmms-data/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// captureBroadcaster 记录广播调用，替代真实 MQTT 连接
type captureBroadcaster struct {
	topics   []string
	payloads [][]byte
}

func (c *captureBroadcaster) Publish(topic string, _ byte, _ bool, payload []byte) error {
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, payload)
	return nil
}

func newNoticeFixture() (*NoticeService, *captureBroadcaster) {
	bc := &captureBroadcaster{}
	svc := NewNoticeService(repository.NewMemoryNoticesRepo(), bc, "cmms/notices", nil, zap.NewNop())
	return svc, bc
}

func noticeAdmin(department string) domain.Actor {
	return domain.Actor{
		UserID:      "admin-" + department,
		Name:        "Admin " + department,
		Department:  department,
		Role:        domain.RoleManager,
		AccessLevel: domain.AccessDepartmentAdmin,
	}
}

func TestNoticeLifecycle_PublishIsOneWay(t *testing.T) {
	svc, bc := newNoticeFixture()
	admin := noticeAdmin("Production")

	n, err := svc.CreateNotice(context.Background(), admin, &domain.Notice{
		Title:      "Planned outage",
		Body:       "Line 2 down for maintenance on Friday",
		Department: "Production",
		Priority:   domain.PriorityHigh,
	})
	require.NoError(t, err)
	require.False(t, n.Published)

	// 草稿可改
	n.Body = "Line 2 down for maintenance on Saturday"
	_, err = svc.UpdateNotice(context.Background(), admin, n)
	require.NoError(t, err)

	published, err := svc.PublishNotice(context.Background(), admin, n.NoticeID)
	require.NoError(t, err)
	require.True(t, published.Published)
	require.NotNil(t, published.PublishedAt)
	require.Equal(t, []string{"cmms/notices"}, bc.topics)

	// 已发布即锁定
	_, err = svc.UpdateNotice(context.Background(), admin, n)
	require.ErrorIs(t, err, domain.ErrConflict)
	_, err = svc.PublishNotice(context.Background(), admin, n.NoticeID)
	require.ErrorIs(t, err, domain.ErrConflict)
	require.Len(t, bc.topics, 1) // 重复发布不再广播
}

func TestGlobalNotice_RequiresPlatformAdmin(t *testing.T) {
	svc, _ := newNoticeFixture()

	_, err := svc.CreateNotice(context.Background(), noticeAdmin("Production"), &domain.Notice{
		Title:    "Company holiday",
		Priority: domain.PriorityMedium,
	})
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	super := domain.Actor{
		UserID:      "root-1",
		Name:        "Root",
		Role:        domain.RoleAdmin,
		AccessLevel: domain.AccessSuperAdmin,
	}
	n, err := svc.CreateNotice(context.Background(), super, &domain.Notice{
		Title:    "Company holiday",
		Priority: domain.PriorityMedium,
	})
	require.NoError(t, err)
	require.Empty(t, n.Department)
}

func TestNotice_DraftVisibility(t *testing.T) {
	svc, _ := newNoticeFixture()
	admin := noticeAdmin("Production")

	n, err := svc.CreateNotice(context.Background(), admin, &domain.Notice{
		Title:      "Draft only",
		Department: "Production",
		Priority:   domain.PriorityLow,
	})
	require.NoError(t, err)

	// 普通用户看不到别人的草稿
	viewer := domain.Actor{
		UserID:      "u-view",
		Department:  "Production",
		Role:        domain.RoleTechnician,
		AccessLevel: domain.AccessNormalUser,
	}
	_, err = svc.GetNotice(context.Background(), viewer, n.NoticeID)
	require.ErrorIs(t, err, domain.ErrUnauthorized)

	// 已发布列表里也没有草稿
	items, total, err := svc.ListNotices(context.Background(), viewer, "Production", true, 1, 50)
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, items)

	// 发布后可见
	_, err = svc.PublishNotice(context.Background(), admin, n.NoticeID)
	require.NoError(t, err)
	got, err := svc.GetNotice(context.Background(), viewer, n.NoticeID)
	require.NoError(t, err)
	require.Equal(t, "Draft only", got.Title)
}

func TestNotice_CrossDepartmentScope(t *testing.T) {
	svc, _ := newNoticeFixture()
	admin := noticeAdmin("Production")

	n, err := svc.CreateNotice(context.Background(), admin, &domain.Notice{
		Title:      "Prod only",
		Department: "Production",
		Priority:   domain.PriorityMedium,
	})
	require.NoError(t, err)
	_, err = svc.PublishNotice(context.Background(), admin, n.NoticeID)
	require.NoError(t, err)

	outsider := domain.Actor{
		UserID:      "u-out",
		Department:  "Facilities",
		Role:        domain.RoleTechnician,
		AccessLevel: domain.AccessNormalUser,
	}
	// 指定别的部门 → 空集而非报错
	items, total, err := svc.ListNotices(context.Background(), outsider, "Production", true, 1, 50)
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, items)

	_, err = svc.PublishNotice(context.Background(), noticeAdmin("Facilities"), n.NoticeID)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}
