package repo

import (
	"context"
	"errors"

	"github.com/devricklin/weekcheck/internal/biz/domain"
)

// ErrNotFound is returned when a gateway or store has no record for the key
var ErrNotFound = errors.New("not found")

// GroupSummary is a group as listed by the gateway, before details are fetched
type GroupSummary struct {
	ID   string
	Name string
}

// GatewayRepo is the messaging gateway interface
// Implemented by the 2Chat WhatsApp API and by Feishu
type GatewayRepo interface {
	// ListGroups lists every group the bot account belongs to
	ListGroups(ctx context.Context) ([]GroupSummary, error)

	// GetGroup gets group details including members and creation time
	GetGroup(ctx context.Context, groupID string) (*domain.Group, error)

	// ListMessages gets one page of recent group messages, newest first.
	// Page numbering starts at 0.
	ListMessages(ctx context.Context, groupID string, page int) ([]domain.InboundEvent, error)

	// SendGroupMessage sends a text message to a group
	SendGroupMessage(ctx context.Context, groupID, text string) error

	// SendDirectMessage sends a text message to a single contact
	SendDirectMessage(ctx context.Context, contactID, text string) error
}
