package twochat

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ErrInvalidPayload is returned for push bodies that are not a JSON object
var ErrInvalidPayload = errors.New("invalid webhook payload")

// ParseWebhook parses one pushed message. Field names vary between 2Chat
// webhook versions, so each field is looked up under several paths.
func ParseWebhook(body []byte) (Message, error) {
	if !gjson.ValidBytes(body) {
		return Message{}, ErrInvalidPayload
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return Message{}, ErrInvalidPayload
	}
	if data := root.Get("data"); data.IsObject() {
		root = data
	}
	return parseMessage(root), nil
}

func parseMessage(m gjson.Result) Message {
	sentBy := strings.ToLower(first(m, "sent_by", "direction").String())

	text := first(m, "message.text", "text", "body").String()
	if text == "" && m.Get("message").Type == gjson.String {
		text = m.Get("message").String()
	}

	return Message{
		ID:         first(m, "id", "uuid", "message.id", "message_uuid").String(),
		GroupUUID:  first(m, "group.uuid", "group_uuid", "to_group_uuid").String(),
		GroupName:  first(m, "group.name", "group_name").String(),
		FromNumber: first(m, "from_number", "participant.phone_number", "sender.phone_number", "remote_phone_number").String(),
		SenderName: first(m, "participant.name", "sender.name", "contact.first_name", "push_name").String(),
		Text:       text,
		Timestamp:  ParseTimestamp(first(m, "timestamp", "created_at", "sent_at")),
		SentByAPI:  sentBy == "api" || sentBy == "bot" || sentBy == "outbound" || m.Get("from_me").Bool(),
	}
}

// ParseTimestamp accepts RFC 3339, naive ISO 8601 (read as UTC), and
// unix seconds or milliseconds. Returns zero if nothing matches.
func ParseTimestamp(v gjson.Result) time.Time {
	switch v.Type {
	case gjson.Number:
		return fromUnix(v.Int())
	case gjson.String:
		s := strings.TrimSpace(v.String())
		if s == "" {
			return time.Time{}
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return fromUnix(n)
		}
		for _, layout := range []string{
			time.RFC3339Nano,
			"2006-01-02T15:04:05.999999999",
			"2006-01-02 15:04:05.999999999Z07:00",
			"2006-01-02 15:04:05.999999999",
		} {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

func fromUnix(n int64) time.Time {
	switch {
	case n <= 0:
		return time.Time{}
	case n > 1e12:
		return time.UnixMilli(n)
	default:
		return time.Unix(n, 0)
	}
}

// listOf returns the items of a list response: {"data": [...]} or a bare array
func listOf(root gjson.Result) []gjson.Result {
	if root.IsArray() {
		return root.Array()
	}
	for _, key := range []string{"data", "groups", "messages", "results"} {
		if v := root.Get(key); v.IsArray() {
			return v.Array()
		}
	}
	return nil
}

// first returns the first path that exists in r
func first(r gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}
