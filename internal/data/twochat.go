package data

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/devricklin/weekcheck/internal/biz/domain"
	"github.com/devricklin/weekcheck/internal/biz/repo"
	"github.com/devricklin/weekcheck/internal/infra/twochat"
)

// twoChatRepo implements the gateway over the 2Chat WhatsApp API
type twoChatRepo struct {
	client *twochat.Client
}

// NewTwoChatRepo creates a new 2Chat gateway repository
func NewTwoChatRepo(client *twochat.Client) repo.GatewayRepo {
	return &twoChatRepo{client: client}
}

// ListGroups lists the bot number's groups
func (r *twoChatRepo) ListGroups(ctx context.Context) ([]repo.GroupSummary, error) {
	groups, err := r.client.ListGroups(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]repo.GroupSummary, 0, len(groups))
	for _, g := range groups {
		if g.UUID == "" {
			continue
		}
		result = append(result, repo.GroupSummary{ID: g.UUID, Name: g.Name})
	}
	return result, nil
}

// GetGroup gets group details. Participants are keyed by phone number.
func (r *twoChatRepo) GetGroup(ctx context.Context, groupID string) (*domain.Group, error) {
	details, err := r.client.GetGroup(ctx, groupID)
	if err != nil {
		var apiErr *twochat.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("group %s: %w", groupID, repo.ErrNotFound)
		}
		return nil, err
	}

	group := &domain.Group{
		ID:   details.UUID,
		Name: details.Name,
	}
	if !details.CreatedAt.IsZero() {
		createdAt := details.CreatedAt
		group.CreatedAt = &createdAt
	}
	for _, p := range details.Participants {
		group.Members = append(group.Members, domain.Member{
			ContactID: p.PhoneNumber,
			Name:      p.Name,
		})
	}
	return group, nil
}

// ListMessages gets one page of group messages
func (r *twoChatRepo) ListMessages(ctx context.Context, groupID string, page int) ([]domain.InboundEvent, error) {
	msgs, err := r.client.ListGroupMessages(ctx, groupID, page)
	if err != nil {
		return nil, err
	}

	events := make([]domain.InboundEvent, 0, len(msgs))
	for _, m := range msgs {
		events = append(events, TwoChatEvent(m))
	}
	return events, nil
}

// SendGroupMessage sends to a group
func (r *twoChatRepo) SendGroupMessage(ctx context.Context, groupID, text string) error {
	return r.client.SendToGroup(ctx, groupID, text)
}

// SendDirectMessage sends to a phone number
func (r *twoChatRepo) SendDirectMessage(ctx context.Context, contactID, text string) error {
	return r.client.SendToNumber(ctx, contactID, text)
}

// TwoChatEvent converts a listed or pushed 2Chat message
func TwoChatEvent(m twochat.Message) domain.InboundEvent {
	return domain.InboundEvent{
		ID:         m.ID,
		GroupID:    m.GroupUUID,
		GroupName:  m.GroupName,
		SenderID:   m.FromNumber,
		SenderName: m.SenderName,
		Text:       m.Text,
		Timestamp:  m.Timestamp,
		IsBot:      m.SentByAPI,
	}
}
