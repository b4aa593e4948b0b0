// Package twochat is a client for the 2Chat WhatsApp REST API.
package twochat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// DefaultBaseURL is the 2Chat WhatsApp API root
const DefaultBaseURL = "https://api.p.2chat.io/open/whatsapp"

// APIError is a non-2xx response
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("2chat API status %d: %s", e.StatusCode, e.Body)
}

// GroupSummary is a group as listed by /groups
type GroupSummary struct {
	UUID string
	Name string
}

// Participant is a group member
type Participant struct {
	PhoneNumber string
	Name        string
}

// GroupDetails is the response of /group/{uuid}
type GroupDetails struct {
	UUID         string
	Name         string
	CreatedAt    time.Time // zero if absent or unparsable
	Participants []Participant
}

// Message is a group or private message, listed or pushed
type Message struct {
	ID         string
	GroupUUID  string // empty for private messages
	GroupName  string
	FromNumber string
	SenderName string
	Text       string
	Timestamp  time.Time // zero if absent or unparsable
	SentByAPI  bool
}

// Client is the 2Chat API client
type Client struct {
	baseURL    string
	apiKey     string
	fromNumber string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new client. fromNumber is the bot's WhatsApp number.
func NewClient(baseURL, apiKey, fromNumber string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		fromNumber: fromNumber,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.Named("twochat"),
	}
}

// ListGroups lists the groups of the bot number
func (c *Client) ListGroups(ctx context.Context) ([]GroupSummary, error) {
	body, err := c.do(ctx, http.MethodGet, "/groups", nil)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	var groups []GroupSummary
	for _, g := range listOf(gjson.ParseBytes(body)) {
		groups = append(groups, GroupSummary{
			UUID: first(g, "uuid", "id").String(),
			Name: first(g, "name", "subject").String(),
		})
	}
	return groups, nil
}

// GetGroup fetches group details including participants
func (c *Client) GetGroup(ctx context.Context, uuid string) (*GroupDetails, error) {
	body, err := c.do(ctx, http.MethodGet, "/group/"+url.PathEscape(uuid), nil)
	if err != nil {
		return nil, fmt.Errorf("get group %s: %w", uuid, err)
	}

	root := gjson.ParseBytes(body)
	if data := root.Get("data"); data.IsObject() {
		root = data
	}

	details := &GroupDetails{
		UUID:      first(root, "uuid", "id").String(),
		Name:      first(root, "name", "subject").String(),
		CreatedAt: ParseTimestamp(first(root, "created_at", "creation_date")),
	}
	if details.UUID == "" {
		details.UUID = uuid
	}
	for _, p := range first(root, "participants", "members").Array() {
		details.Participants = append(details.Participants, Participant{
			PhoneNumber: first(p, "phone_number", "phone").String(),
			Name:        first(p, "name", "push_name").String(),
		})
	}
	return details, nil
}

// ListGroupMessages fetches one page of group messages, newest first.
// Pages start at 0.
func (c *Client) ListGroupMessages(ctx context.Context, uuid string, page int) ([]Message, error) {
	path := "/groups/messages/" + url.PathEscape(uuid) + "?page_number=" + strconv.Itoa(page)
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("list messages for %s: %w", uuid, err)
	}

	var messages []Message
	for _, m := range listOf(gjson.ParseBytes(body)) {
		msg := parseMessage(m)
		if msg.GroupUUID == "" {
			msg.GroupUUID = uuid
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// SendToGroup sends a text message to a group
func (c *Client) SendToGroup(ctx context.Context, groupUUID, text string) error {
	payload := map[string]string{
		"from_number":   c.fromNumber,
		"to_group_uuid": groupUUID,
		"text":          text,
	}
	if _, err := c.do(ctx, http.MethodPost, "/send-message", payload); err != nil {
		return fmt.Errorf("send group message: %w", err)
	}
	c.logger.Debug("group message sent", zap.String("group_uuid", groupUUID))
	return nil
}

// SendToNumber sends a private text message
func (c *Client) SendToNumber(ctx context.Context, phoneNumber, text string) error {
	payload := map[string]string{
		"from_number": c.fromNumber,
		"to_number":   phoneNumber,
		"text":        text,
	}
	if _, err := c.do(ctx, http.MethodPost, "/send-message", payload); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	c.logger.Debug("private message sent", zap.String("to", phoneNumber))
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-User-API-Key", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON response from %s", path)
	}
	return body, nil
}
