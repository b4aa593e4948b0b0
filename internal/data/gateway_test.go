package data

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devricklin/weekcheck/internal/biz/domain"
	"github.com/devricklin/weekcheck/internal/biz/repo"
	"github.com/devricklin/weekcheck/internal/infra/feishu"
	"github.com/devricklin/weekcheck/internal/infra/llm"
	"github.com/devricklin/weekcheck/internal/infra/twochat"
)

func TestTwoChatRepo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/groups":
			_, _ = w.Write([]byte(`[{"uuid":"WAG1","name":"Pilates"},{"name":"no id"}]`))
		case "/group/WAG1":
			_, _ = w.Write([]byte(`{"uuid":"WAG1","name":"Pilates","participants":[{"phone_number":"+100","name":"Ann"}]}`))
		case "/groups/messages/WAG1":
			_, _ = w.Write([]byte(`{"data":[{"id":"m1","from_number":"+999","text":"reminder","sent_by":"api"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	gw := NewTwoChatRepo(twochat.NewClient(srv.URL, "key", "+999", zap.NewNop()))
	ctx := context.Background()

	groups, err := gw.ListGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []repo.GroupSummary{{ID: "WAG1", Name: "Pilates"}}, groups)

	g, err := gw.GetGroup(ctx, "WAG1")
	require.NoError(t, err)
	assert.Nil(t, g.CreatedAt, "missing creation date should stay unknown")
	assert.Equal(t, []domain.Member{{ContactID: "+100", Name: "Ann"}}, g.Members)

	_, err = gw.GetGroup(ctx, "WAG404")
	assert.ErrorIs(t, err, repo.ErrNotFound)

	events, err := gw.ListMessages(ctx, "WAG1", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "WAG1", events[0].GroupID)
	assert.True(t, events[0].IsBot)
}

type fakeFeishu struct {
	chats    []*feishu.Chat
	members  []*feishu.ChatMember
	history  []*feishu.Message
	nameErr  error
	toChat   []string
	toUser   []string
	pageSize int
}

func (f *fakeFeishu) ListChats(ctx context.Context) ([]*feishu.Chat, error) { return f.chats, nil }

func (f *fakeFeishu) GetChatName(ctx context.Context, chatID string) (string, error) {
	if f.nameErr != nil {
		return "", f.nameErr
	}
	for _, c := range f.chats {
		if c.ChatID == chatID {
			return c.Name, nil
		}
	}
	return "", nil
}

func (f *fakeFeishu) GetChatMembers(ctx context.Context, chatID string) ([]*feishu.ChatMember, error) {
	return f.members, nil
}

func (f *fakeFeishu) GetChatHistory(ctx context.Context, chatID string, pageSize int) ([]*feishu.Message, error) {
	f.pageSize = pageSize
	return f.history, nil
}

func (f *fakeFeishu) SendToChat(ctx context.Context, chatID, text string) error {
	f.toChat = append(f.toChat, chatID+":"+text)
	return nil
}

func (f *fakeFeishu) SendToUser(ctx context.Context, openID, text string) error {
	f.toUser = append(f.toUser, openID+":"+text)
	return nil
}

func TestFeishuRepo(t *testing.T) {
	created := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	fake := &fakeFeishu{
		chats:   []*feishu.Chat{{ChatID: "oc_1", Name: "Pilates club"}},
		members: []*feishu.ChatMember{{MemberID: "ou_a", Name: "Ann"}},
		history: []*feishu.Message{
			{ChatID: "oc_1", MsgID: "om_1", ChatType: "group", Content: "done", SenderID: "ou_a", SenderType: "user", CreateTime: created},
			{ChatID: "oc_1", MsgID: "om_2", ChatType: "group", Content: "remember", SenderID: "cli_bot", SenderType: "app", CreateTime: created},
		},
	}
	gw := NewFeishuRepo(fake)
	ctx := context.Background()

	groups, err := gw.ListGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []repo.GroupSummary{{ID: "oc_1", Name: "Pilates club"}}, groups)

	g, err := gw.GetGroup(ctx, "oc_1")
	require.NoError(t, err)
	assert.Equal(t, "Pilates club", g.Name)
	assert.Nil(t, g.CreatedAt)
	assert.Equal(t, "Ann", g.MemberName("ou_a"))

	events, err := gw.ListMessages(ctx, "oc_1", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, historyPageSize, fake.pageSize)
	assert.Equal(t, domain.InboundEvent{ID: "om_1", GroupID: "oc_1", SenderID: "ou_a", Text: "done", Timestamp: created}, events[0])
	assert.True(t, events[1].IsBot)

	more, err := gw.ListMessages(ctx, "oc_1", 1)
	require.NoError(t, err)
	assert.Empty(t, more)

	require.NoError(t, gw.SendGroupMessage(ctx, "oc_1", "well done"))
	require.NoError(t, gw.SendDirectMessage(ctx, "ou_a", "hi"))
	assert.Equal(t, []string{"oc_1:well done"}, fake.toChat)
	assert.Equal(t, []string{"ou_a:hi"}, fake.toUser)

	fake.nameErr = errors.New("boom")
	_, err = gw.GetGroup(ctx, "oc_1")
	assert.Error(t, err)
}

func TestFeishuEvent_Private(t *testing.T) {
	ev := FeishuEvent(&feishu.Message{ChatID: "oc_p2p", MsgID: "om_9", ChatType: "p2p", SenderID: "ou_a", Content: "thanks"})
	assert.True(t, ev.IsPrivate())
	assert.Equal(t, "ou_a", ev.SenderID)
}

type fakeCompleter struct {
	opts []llm.Options
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	f.opts = append(f.opts, opts)
	return "YES", nil
}

func TestLLMRepo(t *testing.T) {
	fake := &fakeCompleter{}
	r := NewLLMRepo(fake)

	answer, err := r.Classify(context.Background(), "did they finish?")
	require.NoError(t, err)
	assert.Equal(t, "YES", answer)

	_, err = r.Generate(context.Background(), "reply kindly")
	require.NoError(t, err)

	require.Len(t, fake.opts, 2)
	assert.Zero(t, fake.opts[0].Temperature)
	assert.Greater(t, fake.opts[1].Temperature, float32(0))
	assert.Greater(t, fake.opts[1].MaxTokens, fake.opts[0].MaxTokens)
}

func TestNewGateway(t *testing.T) {
	_, err := NewGateway(GatewayTwoChat, Clients{})
	assert.Error(t, err)
	_, err = NewGateway("telegram", Clients{})
	assert.Error(t, err)

	gw, err := NewGateway("", Clients{TwoChat: twochat.NewClient("", "k", "+1", zap.NewNop())})
	require.NoError(t, err)
	assert.IsType(t, &twoChatRepo{}, gw)
}
