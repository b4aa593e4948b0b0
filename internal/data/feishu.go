package data

import (
	"context"

	"github.com/devricklin/weekcheck/internal/biz/domain"
	"github.com/devricklin/weekcheck/internal/biz/repo"
	"github.com/devricklin/weekcheck/internal/infra/feishu"
)

// historyPageSize is the number of messages read per poll
const historyPageSize = 50

// FeishuAPI is the subset of the Feishu client used by the gateway
type FeishuAPI interface {
	ListChats(ctx context.Context) ([]*feishu.Chat, error)
	GetChatName(ctx context.Context, chatID string) (string, error)
	GetChatMembers(ctx context.Context, chatID string) ([]*feishu.ChatMember, error)
	GetChatHistory(ctx context.Context, chatID string, pageSize int) ([]*feishu.Message, error)
	SendToChat(ctx context.Context, chatID, text string) error
	SendToUser(ctx context.Context, openID, text string) error
}

// feishuRepo implements the gateway over Feishu chats
type feishuRepo struct {
	client FeishuAPI
}

// NewFeishuRepo creates a new Feishu gateway repository
func NewFeishuRepo(client FeishuAPI) repo.GatewayRepo {
	return &feishuRepo{client: client}
}

// ListGroups lists the chats the bot belongs to
func (r *feishuRepo) ListGroups(ctx context.Context) ([]repo.GroupSummary, error) {
	chats, err := r.client.ListChats(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]repo.GroupSummary, 0, len(chats))
	for _, c := range chats {
		result = append(result, repo.GroupSummary{ID: c.ChatID, Name: c.Name})
	}
	return result, nil
}

// GetGroup gets the chat name and members.
// Feishu does not expose a chat creation time, so CreatedAt stays nil.
func (r *feishuRepo) GetGroup(ctx context.Context, groupID string) (*domain.Group, error) {
	name, err := r.client.GetChatName(ctx, groupID)
	if err != nil {
		return nil, err
	}
	members, err := r.client.GetChatMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	group := &domain.Group{ID: groupID, Name: name}
	for _, m := range members {
		group.Members = append(group.Members, domain.Member{
			ContactID: m.MemberID,
			Name:      m.Name,
		})
	}
	return group, nil
}

// ListMessages returns the newest messages. Only page 0 is available.
func (r *feishuRepo) ListMessages(ctx context.Context, groupID string, page int) ([]domain.InboundEvent, error) {
	if page > 0 {
		return nil, nil
	}
	msgs, err := r.client.GetChatHistory(ctx, groupID, historyPageSize)
	if err != nil {
		return nil, err
	}

	events := make([]domain.InboundEvent, 0, len(msgs))
	for _, m := range msgs {
		events = append(events, FeishuEvent(m))
	}
	return events, nil
}

// SendGroupMessage sends to a chat
func (r *feishuRepo) SendGroupMessage(ctx context.Context, groupID, text string) error {
	return r.client.SendToChat(ctx, groupID, text)
}

// SendDirectMessage sends to a user by open_id
func (r *feishuRepo) SendDirectMessage(ctx context.Context, contactID, text string) error {
	return r.client.SendToUser(ctx, contactID, text)
}

// FeishuEvent converts a listed or pushed Feishu message.
// Direct (p2p) messages carry no group ID.
func FeishuEvent(m *feishu.Message) domain.InboundEvent {
	ev := domain.InboundEvent{
		ID:        m.MsgID,
		GroupID:   m.ChatID,
		SenderID:  m.SenderID,
		Text:      m.Content,
		Timestamp: m.CreateTime,
		IsBot:     m.IsFromApp(),
	}
	if m.ChatType == "p2p" {
		ev.GroupID = ""
	}
	return ev
}
