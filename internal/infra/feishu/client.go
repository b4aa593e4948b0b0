package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
	"go.uber.org/zap"
)

const openAPIBase = "https://open.feishu.cn/open-apis"

// Message is a received or listed Feishu message
type Message struct {
	ChatID     string
	MsgID      string
	MsgType    string // text, post, image, ...
	ChatType   string // p2p, group
	Content    string // extracted text, empty for unsupported types
	SenderID   string // open_id
	SenderType string // user, app
	CreateTime time.Time
}

// IsFromApp reports whether the message was sent by a bot
func (m *Message) IsFromApp() bool {
	return m.SenderType == "app"
}

// ChatMember is a member of a chat
type ChatMember struct {
	MemberID string
	Name     string
}

// Chat is a chat the bot belongs to
type Chat struct {
	ChatID string
	Name   string
}

// MessageHandler is called for every pushed message
type MessageHandler func(ctx context.Context, msg *Message)

// Client is the Feishu API client
type Client struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
	logger    *zap.Logger
	botOpenID string
}

// NewClient creates a new Feishu client
func NewClient(appID, appSecret string, logger *zap.Logger) *Client {
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		larkCli:   lark.NewClient(appID, appSecret),
		logger:    logger.Named("feishu"),
	}
}

// BotOpenID returns the bot's own open_id, if FetchBotOpenID succeeded
func (c *Client) BotOpenID() string {
	return c.botOpenID
}

// Start connects via WebSocket and delivers pushed messages to handler.
// It blocks until ctx is cancelled or the connection fails.
func (c *Client) Start(ctx context.Context, handler MessageHandler) error {
	// The SDK must ACK quickly or Feishu redelivers, so handling is asynchronous
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(_ context.Context, event *larkim.P2MessageReceiveV1) error {
			msg := convertEvent(event)
			if msg == nil {
				return nil
			}
			go handler(ctx, msg)
			return nil
		})

	wsCli := larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	c.logger.Info("starting websocket connection")
	return wsCli.Start(ctx)
}

// FetchBotOpenID looks up the bot's own open_id
func (c *Client) FetchBotOpenID(ctx context.Context) (string, error) {
	tokenReq := fmt.Sprintf(`{"app_id":%q,"app_secret":%q}`, c.appID, c.appSecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		openAPIBase+"/auth/v3/tenant_access_token/internal", strings.NewReader(tokenReq))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	tokenResp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}
	defer tokenResp.Body.Close()

	var tokenResult struct {
		Code              int    `json:"code"`
		Msg               string `json:"msg"`
		TenantAccessToken string `json:"tenant_access_token"`
	}
	if err := json.NewDecoder(tokenResp.Body).Decode(&tokenResult); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	if tokenResult.Code != 0 {
		return "", fmt.Errorf("token API error: %s", tokenResult.Msg)
	}

	infoReq, err := http.NewRequestWithContext(ctx, http.MethodGet, openAPIBase+"/bot/v3/info", nil)
	if err != nil {
		return "", err
	}
	infoReq.Header.Set("Authorization", "Bearer "+tokenResult.TenantAccessToken)

	resp, err := http.DefaultClient.Do(infoReq)
	if err != nil {
		return "", fmt.Errorf("get bot info: %w", err)
	}
	defer resp.Body.Close()

	var botResult struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Bot  struct {
			OpenID  string `json:"open_id"`
			AppName string `json:"app_name"`
		} `json:"bot"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&botResult); err != nil {
		return "", fmt.Errorf("decode bot info: %w", err)
	}
	if botResult.Code != 0 {
		return "", fmt.Errorf("bot info API error: %s", botResult.Msg)
	}

	c.botOpenID = botResult.Bot.OpenID
	c.logger.Info("bot identity resolved",
		zap.String("open_id", c.botOpenID),
		zap.String("name", botResult.Bot.AppName))
	return c.botOpenID, nil
}

// ListChats lists every chat the bot belongs to
func (c *Client) ListChats(ctx context.Context) ([]*Chat, error) {
	var chats []*Chat
	var pageToken string

	for {
		reqBuilder := larkim.NewListChatReqBuilder().PageSize(100)
		if pageToken != "" {
			reqBuilder = reqBuilder.PageToken(pageToken)
		}

		resp, err := c.larkCli.Im.Chat.List(ctx, reqBuilder.Build())
		if err != nil {
			return nil, fmt.Errorf("list chats failed: %w", err)
		}
		if !resp.Success() {
			return nil, fmt.Errorf("list chats error: %s", resp.Msg)
		}

		for _, item := range resp.Data.Items {
			chat := &Chat{}
			if item.ChatId != nil {
				chat.ChatID = *item.ChatId
			}
			if item.Name != nil {
				chat.Name = *item.Name
			}
			chats = append(chats, chat)
		}

		if resp.Data.PageToken == nil || *resp.Data.PageToken == "" {
			break
		}
		pageToken = *resp.Data.PageToken
	}

	c.logger.Debug("listed chats", zap.Int("count", len(chats)))
	return chats, nil
}

// GetChatName returns the display name of a chat
func (c *Client) GetChatName(ctx context.Context, chatID string) (string, error) {
	req := larkim.NewGetChatReqBuilder().
		ChatId(chatID).
		Build()

	resp, err := c.larkCli.Im.Chat.Get(ctx, req)
	if err != nil {
		return "", fmt.Errorf("get chat info failed: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("get chat info error: %s", resp.Msg)
	}
	if resp.Data.Name == nil {
		return "", nil
	}
	return *resp.Data.Name, nil
}

// GetChatMembers retrieves all members of a chat, following pagination
func (c *Client) GetChatMembers(ctx context.Context, chatID string) ([]*ChatMember, error) {
	var members []*ChatMember
	var pageToken string

	for {
		reqBuilder := larkim.NewGetChatMembersReqBuilder().
			MemberIdType("open_id").
			ChatId(chatID).
			PageSize(100)
		if pageToken != "" {
			reqBuilder = reqBuilder.PageToken(pageToken)
		}

		resp, err := c.larkCli.Im.ChatMembers.Get(ctx, reqBuilder.Build())
		if err != nil {
			return nil, fmt.Errorf("get chat members failed: %w", err)
		}
		if !resp.Success() {
			return nil, fmt.Errorf("get chat members error: %s", resp.Msg)
		}

		for _, item := range resp.Data.Items {
			member := &ChatMember{}
			if item.MemberId != nil {
				member.MemberID = *item.MemberId
			}
			if item.Name != nil {
				member.Name = *item.Name
			}
			members = append(members, member)
		}

		if resp.Data.PageToken == nil || *resp.Data.PageToken == "" {
			break
		}
		pageToken = *resp.Data.PageToken
	}

	return members, nil
}

// GetChatHistory returns the newest messages of a chat, newest first.
// pageSize is capped at 50.
func (c *Client) GetChatHistory(ctx context.Context, chatID string, pageSize int) ([]*Message, error) {
	if pageSize > 50 {
		pageSize = 50
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	// Feishu defaults to oldest first
	req := larkim.NewListMessageReqBuilder().
		ContainerIdType("chat").
		ContainerId(chatID).
		SortType("ByCreateTimeDesc").
		PageSize(pageSize).
		Build()

	resp, err := c.larkCli.Im.Message.List(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get chat history failed: %w", err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("get chat history error: %s", resp.Msg)
	}

	var messages []*Message
	for _, item := range resp.Data.Items {
		msg := &Message{
			ChatID:     chatID,
			MsgID:      deref(item.MessageId),
			MsgType:    deref(item.MsgType),
			ChatType:   "group",
			CreateTime: parseMillis(deref(item.CreateTime)),
		}

		mentionMap := make(map[string]string)
		for _, mention := range item.Mentions {
			if mention.Key != nil && mention.Name != nil {
				mentionMap[*mention.Key] = *mention.Name
			}
		}
		if item.Body != nil && item.Body.Content != nil {
			msg.Content = ExtractText(msg.MsgType, *item.Body.Content, mentionMap)
		}
		if item.Sender != nil {
			msg.SenderID = deref(item.Sender.Id)
			msg.SenderType = deref(item.Sender.SenderType)
		}

		messages = append(messages, msg)
	}

	return messages, nil
}

// SendToChat sends a text message to a chat
func (c *Client) SendToChat(ctx context.Context, chatID, text string) error {
	return c.sendText(ctx, larkim.ReceiveIdTypeChatId, chatID, text)
}

// SendToUser sends a private text message to a user by open_id
func (c *Client) SendToUser(ctx context.Context, openID, text string) error {
	return c.sendText(ctx, larkim.ReceiveIdTypeOpenId, openID, text)
}

func (c *Client) sendText(ctx context.Context, idType, receiveID, text string) error {
	content := map[string]string{"text": text}
	contentJSON, _ := json.Marshal(content)

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(idType).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(receiveID).
			MsgType(larkim.MsgTypeText).
			Content(string(contentJSON)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send message failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("send message error: %s", resp.Msg)
	}

	c.logger.Debug("message sent", zap.String("receive_id", receiveID))
	return nil
}

// convertEvent flattens a push event. Returns nil for events without a message.
func convertEvent(event *larkim.P2MessageReceiveV1) *Message {
	if event == nil || event.Event == nil || event.Event.Message == nil {
		return nil
	}
	raw := event.Event.Message

	msg := &Message{
		ChatID:     deref(raw.ChatId),
		MsgID:      deref(raw.MessageId),
		MsgType:    deref(raw.MessageType),
		ChatType:   deref(raw.ChatType),
		CreateTime: parseMillis(deref(raw.CreateTime)),
	}

	if sender := event.Event.Sender; sender != nil {
		if sender.SenderId != nil {
			msg.SenderID = deref(sender.SenderId.OpenId)
		}
		msg.SenderType = deref(sender.SenderType)
	}

	mentionMap := make(map[string]string)
	for _, mention := range raw.Mentions {
		if mention.Key != nil && mention.Name != nil {
			mentionMap[*mention.Key] = *mention.Name
		}
	}
	msg.Content = ExtractText(msg.MsgType, deref(raw.Content), mentionMap)

	return msg
}

// parseMillis parses a Feishu millisecond timestamp string. Returns zero on failure.
func parseMillis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
