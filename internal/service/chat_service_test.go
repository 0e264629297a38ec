package service

import (
	"context"
	"testing"

	"cmms-data/internal/domain"
	"cmms-data/internal/repository"
	"cmms-data/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type chatFixture struct {
	svc       *ChatService
	employees *repository.MemoryEmployeesRepo
	kv        *store.MemoryKV
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	employees := repository.NewMemoryEmployeesRepo()
	kv := store.NewMemoryKV()
	svc := NewChatService(repository.NewMemoryChatRepo(), employees, kv, zap.NewNop())
	return &chatFixture{svc: svc, employees: employees, kv: kv}
}

func (f *chatFixture) seedEmployee(t *testing.T, name, department string) string {
	t.Helper()
	id, err := f.employees.CreateEmployee(context.Background(), &domain.Employee{
		Name:        name,
		Email:       name + "@example.com",
		Department:  department,
		Role:        domain.RoleTechnician,
		AccessLevel: domain.AccessNormalUser,
		Active:      true,
	})
	require.NoError(t, err)
	return id
}

func chatActor(userID, department string) domain.Actor {
	return domain.Actor{
		UserID:      userID,
		Name:        "User " + userID,
		Department:  department,
		Role:        domain.RoleTechnician,
		AccessLevel: domain.AccessNormalUser,
	}
}

func TestDirectMessage_UnreadFlow(t *testing.T) {
	f := newChatFixture(t)
	alice := chatActor("u-alice", "Production")
	bobID := f.seedEmployee(t, "bob", "Production")
	bob := chatActor(bobID, "Production")

	msg, err := f.svc.SendDirectMessage(context.Background(), alice, bobID, "pump #2 is leaking")
	require.NoError(t, err)
	require.Equal(t, domain.DirectConversation(alice.UserID, bobID), msg.Conversation)

	// 收件人未读 +1，发送者为 0
	n, err := f.svc.UnreadCount(context.Background(), bob, msg.Conversation)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	n, err = f.svc.UnreadCount(context.Background(), alice, msg.Conversation)
	require.NoError(t, err)
	require.Zero(t, n)

	// 已读后清零
	require.NoError(t, f.svc.MarkRead(context.Background(), bob, msg.Conversation))
	n, err = f.svc.UnreadCount(context.Background(), bob, msg.Conversation)
	require.NoError(t, err)
	require.Zero(t, n)

	msgs, total, err := f.svc.ListMessages(context.Background(), bob, msg.Conversation, 1, 50)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "pump #2 is leaking", msgs[0].Body)
}

func TestDirectMessage_NonParticipantDenied(t *testing.T) {
	f := newChatFixture(t)
	alice := chatActor("u-alice", "Production")
	bobID := f.seedEmployee(t, "bob", "Production")

	msg, err := f.svc.SendDirectMessage(context.Background(), alice, bobID, "hi")
	require.NoError(t, err)

	eve := chatActor("u-eve", "Production")
	_, _, err = f.svc.ListMessages(context.Background(), eve, msg.Conversation, 1, 50)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = f.svc.UnreadCount(context.Background(), eve, msg.Conversation)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestDirectMessage_UnknownRecipient(t *testing.T) {
	f := newChatFixture(t)
	alice := chatActor("u-alice", "Production")

	_, err := f.svc.SendDirectMessage(context.Background(), alice, "nobody", "hello?")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.SendDirectMessage(context.Background(), alice, alice.UserID, "note to self")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDepartmentRoom_ScopeAndUnread(t *testing.T) {
	f := newChatFixture(t)
	alice := chatActor("u-alice", "Production")
	bob := chatActor("u-bob", "Production")
	conv := domain.DepartmentConversation("Production")

	// bob 先读过房间，留下回执键，之后 alice 发言会给他加未读
	require.NoError(t, f.svc.MarkRead(context.Background(), bob, conv))

	_, err := f.svc.SendDepartmentMessage(context.Background(), alice, "Production", "shift handover at 18:00")
	require.NoError(t, err)

	n, err := f.svc.UnreadCount(context.Background(), bob, conv)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	// 跨部门发言与读取都被拒
	outsider := chatActor("u-eve", "Facilities")
	_, err = f.svc.SendDepartmentMessage(context.Background(), outsider, "Production", "hello")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	_, _, err = f.svc.ListMessages(context.Background(), outsider, conv, 1, 50)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestChat_InvalidConversationKey(t *testing.T) {
	f := newChatFixture(t)
	alice := chatActor("u-alice", "Production")

	_, _, err := f.svc.ListMessages(context.Background(), alice, "room:42", 1, 50)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
