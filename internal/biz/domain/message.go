package domain

import "time"

// InboundEvent is a single message occurrence delivered by polling or push
type InboundEvent struct {
	ID         string
	GroupID    string // empty for private messages
	GroupName  string // embedded group metadata, push payloads only
	SenderID   string
	SenderName string
	Text       string
	Timestamp  time.Time // zero when the transport timestamp could not be parsed
	IsBot      bool      // whether the message was sent by a bot or the API itself
}

// IsPrivate reports whether the event is a direct message
func (e *InboundEvent) IsPrivate() bool {
	return e.GroupID == ""
}

// IsFromBot checks if the message is from the bot
func (e *InboundEvent) IsFromBot(botID string) bool {
	return e.IsBot || (botID != "" && e.SenderID == botID)
}

// IsBefore reports whether the event happened before t.
// Events without a timestamp are never considered earlier.
func (e *InboundEvent) IsBefore(t time.Time) bool {
	if e.Timestamp.IsZero() {
		return false
	}
	return e.Timestamp.Before(t)
}
